package weaviate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	wv "github.com/weaviate/weaviate-go-client/v5/weaviate"
	wvmodels "github.com/weaviate/weaviate/entities/models"

	"github.com/callcoach/callcoach-core/internal/config"
)

// officialTransport routes GraphQL through the official v5 client and
// keeps the lightweight HTTP transport for raw schema and object writes.
type officialTransport struct {
	client *wv.Client
	httpT  Transport
}

func (o *officialTransport) Ready(ctx context.Context) error { return o.httpT.Ready(ctx) }

func (o *officialTransport) EnsureClasses(ctx context.Context, classDefs []map[string]any) error {
	return o.httpT.EnsureClasses(ctx, classDefs)
}

func (o *officialTransport) PutObject(ctx context.Context, class, id string, props map[string]any, vector []float32) error {
	return o.httpT.PutObject(ctx, class, id, props, vector)
}

func (o *officialTransport) GraphQL(ctx context.Context, query string, out any) error {
	if o.client != nil {
		resp, err := o.client.GraphQL().Raw().WithQuery(query).Do(ctx)
		if err != nil {
			return err
		}
		if err := graphQLErrors(resp); err != nil {
			return err
		}
		b, err := json.Marshal(resp)
		if err != nil {
			return err
		}
		if out != nil {
			return json.Unmarshal(b, out)
		}
		return nil
	}
	return o.httpT.GraphQL(ctx, query, out)
}

// graphQLErrors lifts the errors array out of an otherwise-200 GraphQL
// response. Weaviate reports bad queries this way, not via HTTP status.
func graphQLErrors(resp *wvmodels.GraphQLResponse) error {
	if resp == nil || len(resp.Errors) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(resp.Errors))
	for _, gqlErr := range resp.Errors {
		if gqlErr != nil && gqlErr.Message != "" {
			msgs = append(msgs, gqlErr.Message)
		}
	}
	return fmt.Errorf("weaviate graphql: %s", strings.Join(msgs, "; "))
}

// NewTransportFromConfig builds the default transport from configuration.
func NewTransportFromConfig(cfg config.WeaviateConfig) (Transport, error) {
	conf := wv.Config{Scheme: cfg.Scheme, Host: cfg.Host}
	if cfg.APIKey != "" {
		conf.Headers = map[string]string{"Authorization": "Bearer " + cfg.APIKey}
	}
	client, err := wv.NewClient(conf)
	if err != nil {
		return nil, err
	}
	return &officialTransport{client: client, httpT: NewHTTPTransport(New(cfg))}, nil
}
