package executor

import "context"

// DownstreamRequest is what a DataSource receives.
type DownstreamRequest struct {
	Query     string
	Variables map[string]any
}

// DownstreamError is one entry of a downstream reply's errors array. The
// JSON tags match the GraphQL response format so transports can decode a
// reply's errors directly into it.
type DownstreamError struct {
	Message    string         `json:"message"`
	Path       []interface{}  `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// DownstreamResponse is what a DataSource returns.
type DownstreamResponse struct {
	Data   map[string]any
	Errors []*DownstreamError
}

// DataSource is the abstract transport boundary to one federated service.
// The executor never knows whether it is HTTP, gRPC, or in-process.
type DataSource interface {
	Process(ctx context.Context, req *DownstreamRequest) (*DownstreamResponse, error)
}

// ServiceMap looks services up by name. Read-only and shared across
// concurrent requests once built.
type ServiceMap map[string]DataSource
