/*
 * Copyright © 2025 Vivek Rajagopal, All rights reserved.
 */

package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/go-openapi/strfmt"
)

// HTTPService talks to a remote search service over its JSON API. The
// service exposes one endpoint per operation under a common base URL:
// /index, /delete, /delete-all and /query.
type HTTPService struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// HTTPOption configures an HTTPService.
type HTTPOption func(*HTTPService)

// WithAPIKey authenticates requests with a bearer token.
func WithAPIKey(key string) HTTPOption {
	return func(s *HTTPService) { s.apiKey = key }
}

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(s *HTTPService) { s.client = client }
}

// NewHTTPService creates a client for the search service at baseURL.
func NewHTTPService(baseURL string, opts ...HTTPOption) (*HTTPService, error) {
	if _, err := url.Parse(baseURL); err != nil || baseURL == "" {
		return nil, fmt.Errorf("invalid search service URL %q", baseURL)
	}
	s := &HTTPService{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

type indexRequest struct {
	IndexName string  `json:"indexName"`
	Entries   []Entry `json:"entries"`
}

type deleteRequest struct {
	IndexName string   `json:"indexName"`
	IDs       []string `json:"ids,omitempty"`
}

// Index implements Service.
func (s *HTTPService) Index(ctx context.Context, indexName string, entries []Entry) error {
	normalized := make([]Entry, len(entries))
	for i, entry := range entries {
		normalized[i] = Entry{ID: entry.ID, Fields: normalizeFields(entry.Fields)}
	}
	return s.post(ctx, "/index", indexRequest{IndexName: indexName, Entries: normalized}, nil)
}

// Delete implements Service.
func (s *HTTPService) Delete(ctx context.Context, indexName string, ids ...string) error {
	return s.post(ctx, "/delete", deleteRequest{IndexName: indexName, IDs: ids}, nil)
}

// DeleteAll implements Service.
func (s *HTTPService) DeleteAll(ctx context.Context, indexName string) error {
	return s.post(ctx, "/delete-all", deleteRequest{IndexName: indexName}, nil)
}

// Query implements Service.
func (s *HTTPService) Query(ctx context.Context, req Request) (*Results, error) {
	var results Results
	normalized := req
	normalized.Fields = normalizeFields(req.Fields)
	if err := s.post(ctx, "/query", normalized, &results); err != nil {
		return nil, err
	}
	return &results, nil
}

func (s *HTTPService) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("search service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("search service %s returned %d: %s", path, resp.StatusCode, detail)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding search response: %w", err)
	}
	return nil
}

// normalizeFields rewrites time values as RFC3339 date-times so index
// entries serialize the same way regardless of the Go type that produced
// them.
func normalizeFields(fields map[string]any) map[string]any {
	if fields == nil {
		return nil
	}
	out := make(map[string]any, len(fields))
	for name, value := range fields {
		switch v := value.(type) {
		case time.Time:
			out[name] = strfmt.DateTime(v)
		case *time.Time:
			if v != nil {
				out[name] = strfmt.DateTime(*v)
			} else {
				out[name] = nil
			}
		default:
			out[name] = value
		}
	}
	return out
}
