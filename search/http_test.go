/*
 * Copyright © 2025 Vivek Rajagopal, All rights reserved.
 */

package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	path string
	auth string
	body map[string]any
}

func newCaptureServer(t *testing.T, status int, response string) (*httptest.Server, *capturedRequest) {
	t.Helper()
	captured := &capturedRequest{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.path = r.URL.Path
		captured.auth = r.Header.Get("Authorization")
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		captured.body = map[string]any{}
		require.NoError(t, json.Unmarshal(raw, &captured.body))
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(server.Close)
	return server, captured
}

func TestNewHTTPServiceRejectsEmptyURL(t *testing.T) {
	_, err := NewHTTPService("")
	assert.Error(t, err)
}

func TestHTTPIndex(t *testing.T) {
	server, captured := newCaptureServer(t, http.StatusOK, "{}")
	svc, err := NewHTTPService(server.URL, WithAPIKey("sekrit"))
	require.NoError(t, err)

	indexed := time.Date(2025, 5, 6, 7, 8, 9, 0, time.UTC)
	err = svc.Index(context.Background(), "users-idx", []Entry{
		{ID: "u1", Fields: map[string]any{"name": "Ada", "indexedAt": indexed}},
	})
	require.NoError(t, err)

	assert.Equal(t, "/index", captured.path)
	assert.Equal(t, "Bearer sekrit", captured.auth)
	assert.Equal(t, "users-idx", captured.body["indexName"])

	entries := captured.body["entries"].([]any)
	require.Len(t, entries, 1)
	fields := entries[0].(map[string]any)["fields"].(map[string]any)
	assert.Equal(t, "Ada", fields["name"])
	// Time values travel as RFC3339 strings.
	assert.Equal(t, "2025-05-06T07:08:09.000Z", fields["indexedAt"])
}

func TestHTTPDelete(t *testing.T) {
	server, captured := newCaptureServer(t, http.StatusOK, "{}")
	svc, err := NewHTTPService(server.URL)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), "users-idx", "u1", "u2"))
	assert.Equal(t, "/delete", captured.path)
	assert.Empty(t, captured.auth)
	assert.Equal(t, []any{"u1", "u2"}, captured.body["ids"])

	require.NoError(t, svc.DeleteAll(context.Background(), "users-idx"))
	assert.Equal(t, "/delete-all", captured.path)
	_, hasIDs := captured.body["ids"]
	assert.False(t, hasIDs)
}

func TestHTTPQuery(t *testing.T) {
	server, captured := newCaptureServer(t, http.StatusOK,
		`{"resultCount": 12, "limit": 2, "offset": 0, "ids": ["u1", "u2"]}`)
	svc, err := NewHTTPService(server.URL)
	require.NoError(t, err)

	results, err := svc.Query(context.Background(), Request{
		IndexName: "users-idx",
		Fields:    map[string]any{"name": "ada"},
		Page:      Page{Limit: 2},
	})
	require.NoError(t, err)

	assert.Equal(t, "/query", captured.path)
	assert.Equal(t, "users-idx", captured.body["indexName"])
	assert.Equal(t, 12, results.ResultCount)
	assert.Equal(t, []string{"u1", "u2"}, results.IDs)
}

func TestHTTPErrorResponse(t *testing.T) {
	server, _ := newCaptureServer(t, http.StatusBadGateway, "upstream broke")
	svc, err := NewHTTPService(server.URL)
	require.NoError(t, err)

	err = svc.Index(context.Background(), "users-idx", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
	assert.Contains(t, err.Error(), "upstream broke")
}
