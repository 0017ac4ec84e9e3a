// Package engine calls the external parsing engine over HTTP. The
// engine owns chunking and embedding; this adapter only submits jobs
// and reads back the reported counters.
package engine

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

// Ensure Runner implements PipelineRunner
var _ driven.PipelineRunner = (*Runner)(nil)

// Config holds parsing engine connection settings
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// DefaultConfig returns a config for the given engine URL.
// Parsing a large document can take minutes, hence the long timeout.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL: baseURL,
		Timeout: 30 * time.Minute,
	}
}

// Runner submits parse jobs to the engine's REST API.
type Runner struct {
	baseURL    string
	httpClient *http.Client
}

// NewRunner creates a new engine Runner
func NewRunner(cfg Config) *Runner {
	return &Runner{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

type parseResponse struct {
	ChunkNum int64 `json:"chunk_num"`
	TokenNum int64 `json:"token_num"`
}

// Run submits the job and blocks until the engine finishes parsing.
func (r *Runner) Run(ctx context.Context, job *driven.ParseJob) (*driven.ParseResult, error) {
	payload, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal parse job: %w", err)
	}

	url := r.baseURL + "/api/v1/parse"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("engine request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("engine returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed parseResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode engine response: %w", err)
	}

	return &driven.ParseResult{
		ChunkNum: parsed.ChunkNum,
		TokenNum: parsed.TokenNum,
	}, nil
}

// Ping checks engine health
func (r *Runner) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/health", nil)
	if err != nil {
		return err
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("engine unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("engine health check returned status %d", resp.StatusCode)
	}
	return nil
}
