// Package catalog resolves stored catalog ids to display objects by
// calling the catalog lookup endpoints over HTTP. In production the
// base URL points at this service itself; the indirection matches the
// dashboard topology where editors resolve ids against the public API.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"

	"github.com/merchantkit/admin-api/internal/domain"
	"github.com/merchantkit/admin-api/pkg/httpclient"
)

// Resolver resolves catalog ids to {id, name} display items.
type Resolver interface {
	// Resolve looks up each id against the endpoint for the given kind.
	// Lookups run concurrently and fail independently: ids that cannot
	// be resolved are dropped from the result, never failing the batch.
	Resolve(ctx context.Context, kind domain.CatalogKind, ids []string) []domain.CatalogItem
}

// Client is an HTTP Resolver backed by the retrying, circuit-breaking
// client.
type Client struct {
	baseURL string
	http    *httpclient.BreakerClient
	logger  *slog.Logger
}

// NewClient creates a catalog resolver client. baseURL is the API root,
// e.g. "http://localhost:8080/api/v1".
func NewClient(baseURL string, hc *httpclient.BreakerClient, logger *slog.Logger) *Client {
	return &Client{baseURL: baseURL, http: hc, logger: logger}
}

type itemResponse struct {
	Data domain.CatalogItem `json:"data"`
}

// Resolve fetches every id concurrently, keeping input order for the
// ids that resolve. Failed lookups are logged at warn level and
// dropped.
func (c *Client) Resolve(ctx context.Context, kind domain.CatalogKind, ids []string) []domain.CatalogItem {
	if len(ids) == 0 {
		return []domain.CatalogItem{}
	}

	resolved := make([]*domain.CatalogItem, len(ids))

	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()

			item, err := c.lookup(ctx, kind, id)
			if err != nil {
				c.logger.WarnContext(ctx, "dropping unresolvable catalog id",
					slog.String("kind", string(kind)),
					slog.String("id", id),
					slog.String("error", err.Error()),
				)
				return
			}
			resolved[i] = item
		}(i, id)
	}
	wg.Wait()

	items := make([]domain.CatalogItem, 0, len(ids))
	for _, item := range resolved {
		if item != nil {
			items = append(items, *item)
		}
	}
	return items
}

func (c *Client) lookup(ctx context.Context, kind domain.CatalogKind, id string) (*domain.CatalogItem, error) {
	endpoint := fmt.Sprintf("%s/%s/%s", c.baseURL, kind, url.PathEscape(id))

	resp, err := c.http.Get(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("lookup %s %s: status %d", kind, id, resp.StatusCode)
	}

	var body itemResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode %s %s: %w", kind, id, err)
	}
	if body.Data.ID == "" {
		return nil, fmt.Errorf("lookup %s %s: empty payload", kind, id)
	}
	return &body.Data, nil
}
