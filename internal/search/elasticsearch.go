package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/merchantkit/admin-api/internal/domain"
)

// DefaultIndexName is the Elasticsearch index holding catalog entries.
const DefaultIndexName = "admin_catalog"

const indexMapping = `{
  "settings": {
    "analysis": {
      "analyzer": {
        "autocomplete": {
          "tokenizer": "autocomplete_tokenizer",
          "filter": ["lowercase"]
        },
        "autocomplete_search": {
          "tokenizer": "lowercase"
        }
      },
      "tokenizer": {
        "autocomplete_tokenizer": {
          "type": "edge_ngram",
          "min_gram": 2,
          "max_gram": 15,
          "token_chars": ["letter", "digit"]
        }
      }
    }
  },
  "mappings": {
    "properties": {
      "id":   {"type": "keyword"},
      "kind": {"type": "keyword"},
      "slug": {"type": "keyword"},
      "name": {
        "type": "text",
        "fields": {
          "autocomplete": {
            "type": "text",
            "analyzer": "autocomplete",
            "search_analyzer": "autocomplete_search"
          },
          "keyword": {"type": "keyword"}
        }
      }
    }
  }
}`

// ESEngine is an Elasticsearch-backed Engine.
type ESEngine struct {
	client    *elasticsearch.Client
	indexName string
	logger    *slog.Logger
}

type esErrorResponse struct {
	Error struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
	Status int `json:"status"`
}

type esSearchResponse struct {
	Hits struct {
		Hits []struct {
			Source Doc `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// NewESEngine connects to Elasticsearch and ensures the catalog index
// exists. An empty indexName falls back to DefaultIndexName.
func NewESEngine(esURL, indexName string, logger *slog.Logger) (*ESEngine, error) {
	if indexName == "" {
		indexName = DefaultIndexName
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{esURL}})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: create client: %w", err)
	}

	e := &ESEngine{client: client, indexName: indexName, logger: logger}
	if err := e.ensureIndex(); err != nil {
		return nil, fmt.Errorf("elasticsearch: ensure index: %w", err)
	}
	return e, nil
}

// Ping checks whether the cluster is reachable.
func (e *ESEngine) Ping(ctx context.Context) error {
	res, err := e.client.Ping(e.client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch ping: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping: unexpected status %s", res.Status())
	}
	return nil
}

func (e *ESEngine) ensureIndex() error {
	res, err := e.client.Indices.Exists([]string{e.indexName})
	if err != nil {
		return fmt.Errorf("check index exists: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode == 200 {
		return nil
	}

	res, err = e.client.Indices.Create(
		e.indexName,
		e.client.Indices.Create.WithBody(strings.NewReader(indexMapping)),
	)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return fmt.Errorf("create index: unexpected status %s", res.Status())
	}

	e.logger.Info("elasticsearch index created", "index", e.indexName)
	return nil
}

// Index adds or updates a single entry, keyed kind:id so ids only need
// to be unique within their kind.
func (e *ESEngine) Index(ctx context.Context, doc *Doc) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("elasticsearch index: marshal doc: %w", err)
	}

	res, err := e.client.Index(
		e.indexName,
		bytes.NewReader(data),
		e.client.Index.WithDocumentID(docID(doc.Kind, doc.ID)),
		e.client.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch index: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return esError("index", res.Body, res.Status())
	}
	return nil
}

// Delete removes an entry. A missing document is not an error.
func (e *ESEngine) Delete(ctx context.Context, kind domain.CatalogKind, id string) error {
	res, err := e.client.Delete(
		e.indexName,
		docID(kind, id),
		e.client.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch delete: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() && res.StatusCode != 404 {
		return esError("delete", res.Body, res.Status())
	}
	return nil
}

// Suggest queries the name.autocomplete field filtered by kind.
func (e *ESEngine) Suggest(ctx context.Context, kind domain.CatalogKind, prefix string, limit int) ([]domain.CatalogItem, error) {
	if limit <= 0 {
		limit = 10
	}

	query := map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"must": []any{
					map[string]any{"match": map[string]any{"name.autocomplete": prefix}},
				},
				"filter": []any{
					map[string]any{"term": map[string]any{"kind": string(kind)}},
				},
			},
		},
		"size": limit,
		"sort": []any{map[string]any{"_score": "desc"}},
	}

	data, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch suggest: marshal query: %w", err)
	}

	res, err := e.client.Search(
		e.client.Search.WithIndex(e.indexName),
		e.client.Search.WithBody(bytes.NewReader(data)),
		e.client.Search.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch suggest: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return nil, esError("suggest", res.Body, res.Status())
	}

	var esResp esSearchResponse
	if err := json.NewDecoder(res.Body).Decode(&esResp); err != nil {
		return nil, fmt.Errorf("elasticsearch suggest: decode response: %w", err)
	}

	items := make([]domain.CatalogItem, 0, len(esResp.Hits.Hits))
	for _, hit := range esResp.Hits.Hits {
		items = append(items, domain.CatalogItem{ID: hit.Source.ID, Name: hit.Source.Name})
	}
	return items, nil
}

// BulkIndex adds or updates multiple entries in one bulk request.
func (e *ESEngine) BulkIndex(ctx context.Context, docs []Doc) error {
	if len(docs) == 0 {
		return nil
	}

	var buf bytes.Buffer
	for i := range docs {
		meta := fmt.Sprintf(`{"index":{"_id":%q}}`, docID(docs[i].Kind, docs[i].ID))
		buf.WriteString(meta)
		buf.WriteByte('\n')

		data, err := json.Marshal(&docs[i])
		if err != nil {
			return fmt.Errorf("elasticsearch bulk: marshal doc %s: %w", docs[i].ID, err)
		}
		buf.Write(data)
		buf.WriteByte('\n')
	}

	res, err := e.client.Bulk(
		bytes.NewReader(buf.Bytes()),
		e.client.Bulk.WithIndex(e.indexName),
		e.client.Bulk.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch bulk: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return esError("bulk", res.Body, res.Status())
	}
	return nil
}

func docID(kind domain.CatalogKind, id string) string {
	return string(kind) + ":" + id
}

func esError(op string, body io.Reader, status string) error {
	var errResp esErrorResponse
	if err := json.NewDecoder(body).Decode(&errResp); err == nil && errResp.Error.Type != "" {
		return fmt.Errorf("elasticsearch %s: %s: %s", op, errResp.Error.Type, errResp.Error.Reason)
	}
	return fmt.Errorf("elasticsearch %s: unexpected status %s", op, status)
}
