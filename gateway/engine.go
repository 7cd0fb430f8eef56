package gateway

import (
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/n9te9/fedquery-gateway/executor"
	"github.com/n9te9/fedquery-gateway/executor/httpsource"
	"github.com/n9te9/fedquery-gateway/federation/graph"
	"github.com/n9te9/fedquery-gateway/federation/planner"
)

// executionEngine bundles all read-only components required to serve GraphQL
// requests against one composed supergraph generation.
type executionEngine struct {
	planner    *planner.Planner
	superGraph *graph.Supergraph
	services   executor.ServiceMap
}

// schemaStore holds the current set of raw SDLs, host URLs, and the
// pre-built engine. It is stored behind an atomic.Pointer so every value
// must be read-only after it is constructed: a reload builds an entirely
// new schemaStore and swaps the pointer, never mutating a published one.
type schemaStore struct {
	sdls   map[string]string // subgraph name -> SDL string
	hosts  map[string]string // subgraph name -> base URL
	engine *executionEngine
}

// Engine serves requests against the latest successfully composed
// supergraph, allowing schema composition to be refreshed without downtime.
type Engine struct {
	current    atomic.Pointer[schemaStore]
	httpClient *http.Client
}

// NewEngine builds an Engine from an initial set of SDLs and hosts.
func NewEngine(sdls, hosts map[string]string, httpClient *http.Client) (*Engine, error) {
	eng, err := buildEngine(sdls, hosts, httpClient)
	if err != nil {
		return nil, err
	}
	e := &Engine{httpClient: httpClient}
	e.current.Store(&schemaStore{sdls: copyMap(sdls), hosts: copyMap(hosts), engine: eng})
	return e, nil
}

// Reload recomposes the supergraph from a new SDL for one subgraph and
// publishes it atomically. A failed composition leaves the previously
// published generation in place and is returned as an error.
func (e *Engine) Reload(name, sdl, host string) error {
	prev := e.current.Load()
	sdls := copyMap(prev.sdls)
	hosts := copyMap(prev.hosts)
	sdls[name] = sdl
	if host != "" {
		hosts[name] = host
	}

	eng, err := buildEngine(sdls, hosts, e.httpClient)
	if err != nil {
		return fmt.Errorf("gateway: reload %q: %w", name, err)
	}

	e.current.Store(&schemaStore{sdls: sdls, hosts: hosts, engine: eng})
	return nil
}

// RefreshFromRemote re-fetches every subgraph's SDL from its
// `_service { sdl }` introspection field, all hosts in parallel, and
// publishes a recomposed supergraph. Any fetch or composition failure
// leaves the previously published generation in place.
func (e *Engine) RefreshFromRemote(retry RetryOption) error {
	prev := e.current.Load()
	hosts := copyMap(prev.hosts)
	sdls := make(map[string]string, len(hosts))

	var mu sync.Mutex
	var g errgroup.Group
	for name, host := range hosts {
		name, host := name, host
		g.Go(func() error {
			sdl, err := fetchSDL(host, e.httpClient, retry)
			if err != nil {
				return err
			}
			mu.Lock()
			sdls[name] = sdl
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("gateway: refresh schemas: %w", err)
	}

	eng, err := buildEngine(sdls, hosts, e.httpClient)
	if err != nil {
		return fmt.Errorf("gateway: refresh schemas: %w", err)
	}

	e.current.Store(&schemaStore{sdls: sdls, hosts: hosts, engine: eng})
	return nil
}

func (e *Engine) snapshot() *executionEngine {
	return e.current.Load().engine
}

// buildEngine composes a new supergraph from the given SDLs and host map,
// then wraps it in an executionEngine together with a Planner and a
// downstream service map. The order subgraphs are processed in follows the
// iteration order of sdls, which is non-deterministic in Go maps;
// composition is order-independent.
func buildEngine(sdls, hosts map[string]string, httpClient *http.Client) (*executionEngine, error) {
	subGraphs := make([]*graph.Subgraph, 0, len(sdls))
	for name, sdl := range sdls {
		sg, err := graph.NewSubgraph(name, []byte(sdl), hosts[name])
		if err != nil {
			return nil, fmt.Errorf("failed to build subgraph %q: %w", name, err)
		}
		subGraphs = append(subGraphs, sg)
	}

	superGraph, err := graph.NewSupergraph(subGraphs)
	if err != nil {
		return nil, fmt.Errorf("composition failed: %w", err)
	}

	services := make(executor.ServiceMap, len(subGraphs))
	for _, sg := range subGraphs {
		services[sg.Name] = httpsource.New(sg.Host, httpClient)
	}

	return &executionEngine{
		planner:    planner.New(superGraph),
		superGraph: superGraph,
		services:   services,
	}, nil
}

// copyMap returns a shallow copy of a string map.
func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
