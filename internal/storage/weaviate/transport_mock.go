package weaviate

import (
	"context"
	"encoding/json"
)

// MockTransport is an in-memory Transport for tests.
type MockTransport struct {
	ReadyErr   error
	Classes    []map[string]any
	Objects    map[string]map[string]any
	Vectors    map[string][]float32
	GraphQLFn  func(query string) (any, error)
	LastQuery  string
	PutErr     error
	EnsureErr  error
	GraphQLErr error
}

func NewMockTransport() *MockTransport {
	return &MockTransport{
		Objects: map[string]map[string]any{},
		Vectors: map[string][]float32{},
	}
}

func (m *MockTransport) Ready(ctx context.Context) error { return m.ReadyErr }

func (m *MockTransport) EnsureClasses(ctx context.Context, classDefs []map[string]any) error {
	if m.EnsureErr != nil {
		return m.EnsureErr
	}
	m.Classes = append(m.Classes, classDefs...)
	return nil
}

func (m *MockTransport) PutObject(ctx context.Context, class, id string, props map[string]any, vector []float32) error {
	if m.PutErr != nil {
		return m.PutErr
	}
	m.Objects[id] = props
	if vector != nil {
		m.Vectors[id] = vector
	}
	return nil
}

func (m *MockTransport) GraphQL(ctx context.Context, query string, out any) error {
	if m.GraphQLErr != nil {
		return m.GraphQLErr
	}
	m.LastQuery = query
	if m.GraphQLFn == nil {
		return nil
	}
	resp, err := m.GraphQLFn(query)
	if err != nil {
		return err
	}
	b, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}
