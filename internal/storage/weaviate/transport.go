package weaviate

import (
	"context"
)

// Transport is an abstraction over Weaviate access. It can be backed by
// the lightweight HTTP client or the official weaviate-go-client.
type Transport interface {
	// Ready should succeed when the server is ready to accept requests.
	Ready(ctx context.Context) error
	// EnsureClasses creates the provided class definitions if they don't
	// exist. Each element must be compatible with POST /v1/schema.
	EnsureClasses(ctx context.Context, classDefs []map[string]any) error
	// PutObject upserts an object (by class + id) with the provided
	// properties and, when non-nil, an externally computed vector.
	PutObject(ctx context.Context, class, id string, props map[string]any, vector []float32) error
	// GraphQL executes a GraphQL query, decoding the response into out.
	GraphQL(ctx context.Context, query string, out any) error
}
