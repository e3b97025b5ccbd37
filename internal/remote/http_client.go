// Waymark - Local-First Location Capture and Sync
// Copyright 2026 Aytac Huseynli (aytachuseynli)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/aytachuseynli/waymark

package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"

	"github.com/aytachuseynli/waymark/internal/config"
	"github.com/aytachuseynli/waymark/internal/metrics"
)

// maxErrorBodySize bounds how much of an error response body is read.
// Prevents unbounded memory allocation on misbehaving servers.
const maxErrorBodySize = 64 * 1024

// HTTPStore talks to the remote document store over its REST API.
type HTTPStore struct {
	baseURL             string
	apiKey              string
	locationsCollection string
	client              *http.Client
}

// NewHTTPStore builds the HTTP client from configuration. The apiKey
// argument is the decrypted key; callers obtain it via
// config.RemoteConfig.RemoteAPIKey so encrypted-at-rest keys work.
func NewHTTPStore(cfg *config.RemoteConfig, apiKey string) *HTTPStore {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPStore{
		baseURL:             cfg.URL,
		apiKey:              apiKey,
		locationsCollection: cfg.LocationsCollection,
		client:              &http.Client{Timeout: timeout},
	}
}

// batchRequest is the upload body: documents keyed by their UUID so the
// write is one atomic multi-document commit.
type batchRequest struct {
	Documents map[string]Document `json:"documents"`
}

// CommitBatch uploads the documents in one atomic write.
func (s *HTTPStore) CommitBatch(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	body := batchRequest{Documents: make(map[string]Document, len(docs))}
	for _, doc := range docs {
		body.Documents[doc.ID] = doc
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal batch: %w", err)
	}

	reqURL := fmt.Sprintf("%s/v1/collections/%s/batch",
		s.baseURL, url.PathEscape(s.locationsCollection))
	return s.do(ctx, "commit_batch", http.MethodPost, reqURL, payload)
}

// DeleteWhere removes all documents in collection with field == value.
func (s *HTTPStore) DeleteWhere(ctx context.Context, collection, field, value string) error {
	params := url.Values{}
	params.Set("field", field)
	params.Set("value", value)
	reqURL := fmt.Sprintf("%s/v1/collections/%s/documents?%s",
		s.baseURL, url.PathEscape(collection), params.Encode())
	return s.do(ctx, "delete_where", http.MethodDelete, reqURL, nil)
}

// DeleteDocument removes one document by id.
func (s *HTTPStore) DeleteDocument(ctx context.Context, collection, id string) error {
	reqURL := fmt.Sprintf("%s/v1/collections/%s/documents/%s",
		s.baseURL, url.PathEscape(collection), url.PathEscape(id))
	return s.do(ctx, "delete_document", http.MethodDelete, reqURL, nil)
}

// Ping checks remote reachability.
func (s *HTTPStore) Ping(ctx context.Context) error {
	return s.do(ctx, "ping", http.MethodGet, s.baseURL+"/v1/health", nil)
}

// do executes one request and classifies the outcome for metrics. Any
// non-2xx status is an error carrying a bounded slice of the body.
func (s *HTTPStore) do(ctx context.Context, operation, method, reqURL string, payload []byte) error {
	var reqBody io.Reader = http.NoBody
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-Api-Key", s.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		metrics.RemoteRequests.WithLabelValues(operation, "failure").Inc()
		return fmt.Errorf("%s request failed: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.RemoteRequests.WithLabelValues(operation, "failure").Inc()
		body := readBodyForError(resp.Body)
		return fmt.Errorf("%s failed with status %d: %s", operation, resp.StatusCode, string(body))
	}

	metrics.RemoteRequests.WithLabelValues(operation, "success").Inc()
	return nil
}

// readBodyForError reads a bounded slice of a response body for error
// messages.
func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte("<unreadable body>")
	}
	return body
}
