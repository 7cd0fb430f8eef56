package executor

import "context"

// Response is the client-facing result of Execute: {data} when clean,
// {data, errors} when errors were collected and shaping succeeded, or
// {errors} alone when shaping itself failed.
type Response struct {
	Data   ResultMap       `json:"data,omitempty"`
	Errors []*GraphQLError `json:"errors,omitempty"`
}

// Execute runs plan against services, building the client-facing response
// for opCtx's operation. It never panics out of the plan walk: plan
// structural errors, downstream errors and extraction errors are all
// collected on the ExecutionContext and surfaced in Errors. Only a failure
// of the final shaping pass aborts the response.
func Execute(ctx context.Context, plan *QueryPlan, services ServiceMap, opCtx *OperationContext, variables map[string]any) *Response {
	ec := NewExecutionContext(ctx, plan, opCtx, services, variables)

	working := ResultMap{}
	if plan != nil && plan.Root != nil {
		executeNode(ec, plan.Root, working)
	}

	shaped, err := Shape(opCtx, working)
	if err != nil {
		return &Response{Errors: []*GraphQLError{newStructuralError("%s", err)}}
	}

	errs := ec.Errors()
	if len(errs) == 0 {
		return &Response{Data: shaped}
	}
	return &Response{Data: shaped, Errors: errs}
}
