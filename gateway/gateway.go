package gateway

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/n9te9/graphql-parser/ast"
	"github.com/n9te9/graphql-parser/lexer"
	"github.com/n9te9/graphql-parser/parser"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/n9te9/fedquery-gateway/executor"
	"github.com/n9te9/fedquery-gateway/executor/httpsource"
)

// GatewayService is one federated subgraph's static configuration: where its
// schema files live and where it can be reached at runtime.
type GatewayService struct {
	Name        string   `yaml:"name"`
	Host        string   `yaml:"host"`
	SchemaFiles []string `yaml:"schema_files"`
}

// GatewayOption is the top-level gateway.yaml shape.
type GatewayOption struct {
	Endpoint                    string               `yaml:"endpoint"`
	ServiceName                 string               `yaml:"service_name"`
	Port                        int                  `yaml:"port"`
	TimeoutDuration             string               `yaml:"timeout_duration" default:"5s"`
	EnableHangOverRequestHeader bool                 `yaml:"enable_hang_over_request_header" default:"true"`
	Services                    []GatewayService     `yaml:"services"`
	Opentelemetry               OpentelemetrySetting `yaml:"opentelemetry"`
}

type OpentelemetrySetting struct {
	TracingSetting OpentelemetryTracingSetting `yaml:"tracing"`
}

type OpentelemetryTracingSetting struct {
	Enable bool `yaml:"enable" default:"false"`
}

// Gateway is the HTTP-facing query-plan executor. It serves every request
// against whatever supergraph generation its Engine currently has published,
// so a schema reload (see Engine.Reload) takes effect without downtime.
type Gateway struct {
	graphQLEndpoint string
	serviceName     string
	engine          *Engine

	enableHangOverRequestHeader bool
	enableOpentelemetryTracing  bool
}

var _ http.Handler = (*Gateway)(nil)

// NewGateway reads every service's schema files, composes a supergraph, and
// builds the Engine the handler serves requests against.
func NewGateway(settings GatewayOption) (*Gateway, error) {
	sdls := make(map[string]string, len(settings.Services))
	hosts := make(map[string]string, len(settings.Services))
	for _, s := range settings.Services {
		var schema []byte
		for _, f := range s.SchemaFiles {
			src, err := os.ReadFile(f)
			if err != nil {
				return nil, err
			}
			schema = append(schema, src...)
		}
		sdls[s.Name] = string(schema)
		hosts[s.Name] = s.Host
	}

	httpClient := &http.Client{Timeout: 3 * time.Second}
	if settings.Opentelemetry.TracingSetting.Enable {
		httpClient.Transport = otelhttp.NewTransport(http.DefaultTransport)
	}

	engine, err := NewEngine(sdls, hosts, httpClient)
	if err != nil {
		return nil, err
	}

	return &Gateway{
		graphQLEndpoint:             settings.Endpoint,
		serviceName:                 settings.ServiceName,
		engine:                      engine,
		enableHangOverRequestHeader: settings.EnableHangOverRequestHeader,
		enableOpentelemetryTracing:  settings.Opentelemetry.TracingSetting.Enable,
	}, nil
}

// Reload recomposes one subgraph's schema and publishes the new supergraph
// generation for subsequent requests to observe.
func (g *Gateway) Reload(name, sdl, host string) error {
	return g.engine.Reload(name, sdl, host)
}

// RefreshSchemas re-fetches every subgraph's SDL over the wire and swaps in
// the recomposed supergraph.
func (g *Gateway) RefreshSchemas(retry RetryOption) error {
	return g.engine.RefreshFromRemote(retry)
}

type graphQLRequest struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName"`
	Variables     map[string]any `json:"variables"`
}

func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req graphQLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	if g.enableHangOverRequestHeader {
		ctx = httpsource.WithRequestHeader(ctx, r.Header)
	}

	eng := g.engine.snapshot()

	doc := parser.New(lexer.New(req.Query)).ParseDocument()

	if err := g.validateAccessibility(eng, doc); err != nil {
		g.writeErrors(w, "INACCESSIBLE_FIELD", err)
		return
	}

	plan, err := eng.planner.Plan(doc)
	if err != nil {
		g.writeErrors(w, "", err)
		return
	}

	opCtx := executor.NewOperationContext(doc, eng.superGraph.Schema)
	resp := executor.Execute(ctx, plan, eng.services, opCtx, req.Variables)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp) //nolint:errcheck
}

func (g *Gateway) writeErrors(w http.ResponseWriter, code string, err error) {
	w.Header().Set("Content-Type", "application/json")
	entry := map[string]any{"message": err.Error()}
	if code != "" {
		entry["extensions"] = map[string]string{"code": code}
	}
	json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
		"errors": []map[string]any{entry},
	})
}

// Start serves the gateway on port, blocking until the listener errors out.
func (g *Gateway) Start(port int) error {
	fmt.Printf("Gateway started on port %d\n", port)
	return http.ListenAndServe(fmt.Sprintf(":%d", port), g)
}

// validateAccessibility rejects any selection that reaches a field marked
// @inaccessible; such fields exist in the supergraph only to satisfy entity
// resolution and must never be requested directly by a client.
func (g *Gateway) validateAccessibility(eng *executionEngine, doc *ast.Document) error {
	for _, def := range doc.Definitions {
		opDef, ok := def.(*ast.OperationDefinition)
		if !ok {
			continue
		}
		rootTypeName := "Query"
		switch opDef.Operation {
		case ast.Mutation:
			rootTypeName = "Mutation"
		case ast.Subscription:
			rootTypeName = "Subscription"
		}
		if err := g.validateSelectionSet(eng, opDef.SelectionSet, rootTypeName); err != nil {
			return err
		}
	}
	return nil
}

func (g *Gateway) validateSelectionSet(eng *executionEngine, selSet []ast.Selection, parentTypeName string) error {
	for _, sel := range selSet {
		switch s := sel.(type) {
		case *ast.Field:
			fieldName := s.Name.String()
			if fieldName == "__typename" || fieldName == "__schema" || fieldName == "__type" {
				continue
			}
			if err := g.checkFieldAccessibility(eng, parentTypeName, fieldName); err != nil {
				return err
			}
			if nextTypeName := g.getFieldTypeName(eng, parentTypeName, fieldName); nextTypeName != "" {
				if err := g.validateSelectionSet(eng, s.SelectionSet, nextTypeName); err != nil {
					return err
				}
			}
		case *ast.InlineFragment:
			typeCondition := parentTypeName
			if s.TypeCondition != nil && s.TypeCondition.String() != "" {
				typeCondition = s.TypeCondition.String()
			}
			if err := g.validateSelectionSet(eng, s.SelectionSet, typeCondition); err != nil {
				return err
			}
		}
	}
	return nil
}

func (g *Gateway) checkFieldAccessibility(eng *executionEngine, typeName, fieldName string) error {
	for _, subGraph := range eng.superGraph.Subgraphs {
		entity, exists := subGraph.GetEntity(typeName)
		if !exists {
			continue
		}
		field, ok := entity.Fields[fieldName]
		if ok && field.IsInaccessible() {
			return fmt.Errorf("Cannot query field %q on type %q", fieldName, typeName)
		}
	}
	return nil
}

func (g *Gateway) getFieldTypeName(eng *executionEngine, typeName, fieldName string) string {
	for _, def := range eng.superGraph.Schema.Definitions {
		objDef, ok := def.(*ast.ObjectTypeDefinition)
		if !ok || objDef.Name.String() != typeName {
			continue
		}
		for _, field := range objDef.Fields {
			if field.Name.String() == fieldName {
				return unwrapTypeName(field.Type)
			}
		}
	}
	return ""
}

func unwrapTypeName(t ast.Type) string {
	switch typ := t.(type) {
	case *ast.NamedType:
		return typ.Name.String()
	case *ast.ListType:
		return unwrapTypeName(typ.Type)
	case *ast.NonNullType:
		return unwrapTypeName(typ.Type)
	}
	return ""
}
