// Package httpsource implements executor.DataSource over plain HTTP POST,
// the transport the core executor treats abstractly.
package httpsource

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/n9te9/fedquery-gateway/executor"
)

// Source dispatches a downstream operation as a JSON POST to a fixed URL,
// the standard GraphQL-over-HTTP wire shape.
type Source struct {
	URL    string
	Client *http.Client
}

type contextKey int

const requestHeaderKey contextKey = iota

// WithRequestHeader attaches the inbound client request's header to ctx so
// it can be forwarded to every downstream fetch issued for this request.
func WithRequestHeader(ctx context.Context, header http.Header) context.Context {
	return context.WithValue(ctx, requestHeaderKey, header)
}

func requestHeaderFrom(ctx context.Context) http.Header {
	header, _ := ctx.Value(requestHeaderKey).(http.Header)
	return header
}

// New builds a Source with a sane default client if none is given.
func New(url string, client *http.Client) *Source {
	if client == nil {
		client = http.DefaultClient
	}
	return &Source{URL: url, Client: client}
}

type requestBody struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type responseBody struct {
	Data   map[string]any           `json:"data"`
	Errors []*executor.DownstreamError `json:"errors,omitempty"`
}

// Process implements executor.DataSource.
func (s *Source) Process(ctx context.Context, req *executor.DownstreamRequest) (*executor.DownstreamResponse, error) {
	payload, err := json.Marshal(requestBody{Query: req.Query, Variables: req.Variables})
	if err != nil {
		return nil, fmt.Errorf("httpsource: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("httpsource: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for name, values := range requestHeaderFrom(ctx) {
		for _, v := range values {
			httpReq.Header.Add(name, v)
		}
	}

	resp, err := s.Client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("httpsource: request to %s: %w", s.URL, err)
	}
	defer resp.Body.Close()

	var body responseBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("httpsource: decode response from %s: %w", s.URL, err)
	}

	return &executor.DownstreamResponse{Data: body.Data, Errors: body.Errors}, nil
}
