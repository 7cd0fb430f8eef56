package executor

import (
	"context"
	"fmt"
	"sync"
)

// GraphQLError is a single entry of the response's errors list.
type GraphQLError struct {
	Message    string         `json:"message"`
	Path       []interface{}  `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

func (e *GraphQLError) Error() string { return e.Message }

// newStructuralError builds a plan structural / extraction error: no path,
// no extensions, just a message. Recorded at the node boundary.
func newStructuralError(format string, args ...any) *GraphQLError {
	return &GraphQLError{Message: fmt.Sprintf(format, args...)}
}

// ResultMap is the working tree's node shape: response-name to value, where
// value is a scalar, nil, another ResultMap, or a list of either.
type ResultMap map[string]any

// ExecutionContext is per-request state shared by every plan node. The
// working tree and error list are private to one request; Plan, OpContext
// and Services are read-only and may be shared across concurrent requests.
type ExecutionContext struct {
	Plan      *QueryPlan
	OpContext *OperationContext
	Services  ServiceMap

	// Ctx is the request-scoped context passed opaquely to every
	// DataSource.Process call; it is the transport-level cancellation
	// channel.
	Ctx context.Context

	// Variables holds the client-supplied variable values for this request.
	Variables map[string]any

	mu     sync.Mutex
	errors []*GraphQLError
}

// NewExecutionContext builds a fresh, request-scoped ExecutionContext.
func NewExecutionContext(ctx context.Context, plan *QueryPlan, opCtx *OperationContext, services ServiceMap, variables map[string]any) *ExecutionContext {
	if variables == nil {
		variables = map[string]any{}
	}
	return &ExecutionContext{
		Plan:      plan,
		OpContext: opCtx,
		Services:  services,
		Ctx:       ctx,
		Variables: variables,
	}
}

// recordError appends an error to the context's error list. Safe for
// concurrent use by Parallel children.
func (ec *ExecutionContext) recordError(err *GraphQLError) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	ec.errors = append(ec.errors, err)
}

// Errors returns a copy of the collected errors in report order.
func (ec *ExecutionContext) Errors() []*GraphQLError {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	out := make([]*GraphQLError, len(ec.errors))
	copy(out, ec.errors)
	return out
}

// withLock runs fn while holding the context's merge/error mutex, used by
// the fetch executor to serialize deep-merges into the shared working tree.
func (ec *ExecutionContext) withLock(fn func()) {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	fn()
}
