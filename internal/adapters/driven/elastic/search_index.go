package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/corpora-labs/corpora-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.SearchIndex = (*SearchIndex)(nil)

// SearchIndex implements driven.SearchIndex against the Elasticsearch
// REST API. One index per tenant; records of a knowledge base are
// scoped by their kb_id field.
type SearchIndex struct {
	baseURL    string
	httpClient *http.Client
}

// Config holds Elasticsearch connection configuration
type Config struct {
	// BaseURL is the Elasticsearch endpoint (e.g., http://localhost:9200)
	BaseURL string

	// Timeout for HTTP requests
	Timeout time.Duration
}

// DefaultConfig returns sensible defaults
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL: baseURL,
		Timeout: 30 * time.Second,
	}
}

// NewSearchIndex creates a new Elasticsearch-backed SearchIndex
func NewSearchIndex(cfg Config) *SearchIndex {
	return &SearchIndex{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// IndexExists reports whether the tenant partition holds records of the
// knowledge base.
func (s *SearchIndex) IndexExists(ctx context.Context, index, kbID string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, s.baseURL+"/"+index, nil)
	if err != nil {
		return false, err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("check index %s: %w", index, err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("check index %s: unexpected status %d", index, resp.StatusCode)
	}
}

// Search retrieves records matching the field filter, most relevant
// first.
func (s *SearchIndex) Search(ctx context.Context, filter map[string]any, index string, kbIDs []string) ([]*driven.Hit, error) {
	query := map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"filter": append(filterClauses(filter), map[string]any{
					"terms": map[string]any{"kb_id": kbIDs},
				}),
			},
		},
		"size": 30,
	}

	var result struct {
		Hits struct {
			Hits []struct {
				ID     string         `json:"_id"`
				Source map[string]any `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := s.do(ctx, http.MethodPost, "/"+index+"/_search", query, &result); err != nil {
		return nil, fmt.Errorf("search %s: %w", index, err)
	}

	hits := make([]*driven.Hit, 0, len(result.Hits.Hits))
	for _, h := range result.Hits.Hits {
		hits = append(hits, &driven.Hit{ID: h.ID, Fields: h.Source})
	}
	return hits, nil
}

// Update applies a field patch to all records matching the filter. A
// patch of {"remove": field} drops the field instead of setting it.
func (s *SearchIndex) Update(ctx context.Context, filter, patch map[string]any, index, kbID string) error {
	var lines []string
	params := map[string]any{}
	for field, value := range patch {
		if field == "remove" {
			lines = append(lines, fmt.Sprintf("ctx._source.remove('%v');", value))
			continue
		}
		lines = append(lines, fmt.Sprintf("ctx._source['%s'] = params['%s'];", field, field))
		params[field] = value
	}

	body := map[string]any{
		"query": scopedQuery(filter, kbID),
		"script": map[string]any{
			"source": strings.Join(lines, " "),
			"lang":   "painless",
			"params": params,
		},
	}
	if err := s.do(ctx, http.MethodPost, "/"+index+"/_update_by_query?conflicts=proceed&refresh=true", body, nil); err != nil {
		return fmt.Errorf("update %s: %w", index, err)
	}
	return nil
}

// Delete removes all records matching the filter. Deleting with no
// matches is a no-op.
func (s *SearchIndex) Delete(ctx context.Context, filter map[string]any, index, kbID string) error {
	body := map[string]any{"query": scopedQuery(filter, kbID)}
	if err := s.do(ctx, http.MethodPost, "/"+index+"/_delete_by_query?conflicts=proceed&refresh=true", body, nil); err != nil {
		return fmt.Errorf("delete from %s: %w", index, err)
	}
	return nil
}

// DeleteIndex drops every record of the knowledge base from the tenant
// partition.
func (s *SearchIndex) DeleteIndex(ctx context.Context, index, kbID string) error {
	return s.Delete(ctx, map[string]any{}, index, kbID)
}

// scopedQuery builds a bool filter from the field filter plus the kb_id
// scope.
func scopedQuery(filter map[string]any, kbID string) map[string]any {
	clauses := filterClauses(filter)
	clauses = append(clauses, map[string]any{
		"term": map[string]any{"kb_id": kbID},
	})
	return map[string]any{
		"bool": map[string]any{"filter": clauses},
	}
}

// filterClauses maps each filter entry to a term (scalar) or terms
// (list) clause.
func filterClauses(filter map[string]any) []any {
	clauses := make([]any, 0, len(filter))
	for field, value := range filter {
		switch value.(type) {
		case []string, []any:
			clauses = append(clauses, map[string]any{
				"terms": map[string]any{field: value},
			})
		default:
			clauses = append(clauses, map[string]any{
				"term": map[string]any{field: value},
			})
		}
	}
	return clauses
}

func (s *SearchIndex) do(ctx context.Context, method, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("status %d: %s", resp.StatusCode, msg)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}
