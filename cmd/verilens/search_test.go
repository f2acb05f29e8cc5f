// cmd/verilens/search_test.go
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestTavilyClient(t *testing.T, handler http.HandlerFunc) (*TavilyClient, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewTavilyClient("test-key", defaultSearchDomains, 5*time.Second, 1000, zap.NewNop())
	client.baseURL = server.URL
	return client, server
}

func TestFetchEvidenceMapsResults(t *testing.T) {
	var gotRequest tavilySearchRequest
	client, _ := newTestTavilyClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotRequest))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"results": []map[string]interface{}{
				{"url": "https://reuters.com/x", "content": "first", "relevance_score": 0.9},
				{"url": "https://bbc.com/y", "content": "second", "relevance_score": 0.4},
				{"content": "no url or score"},
			},
		})
	})

	items, err := client.FetchEvidence(context.Background(), "some claim", 3)
	require.NoError(t, err)

	assert.Equal(t, "some claim", gotRequest.Query)
	assert.Equal(t, "advanced", gotRequest.SearchDepth)
	assert.Equal(t, defaultSearchDomains, gotRequest.IncludeDomains)
	assert.Equal(t, 3, gotRequest.MaxResults)

	require.Len(t, items, 3)
	// Provider rank order preserved, not relevance-sorted
	assert.Equal(t, "https://reuters.com/x", items[0].Source)
	assert.Equal(t, 0.9, items[0].Relevance)
	assert.Equal(t, 0.4, items[1].Relevance)
	// Missing fields take defaults; relevance is never absent
	assert.Equal(t, "Unknown Source", items[2].Source)
	assert.Equal(t, 0.0, items[2].Relevance)
}

func TestFetchEvidenceEmptyClaim(t *testing.T) {
	client := NewTavilyClient("test-key", defaultSearchDomains, time.Second, 1000, zap.NewNop())
	_, err := client.FetchEvidence(context.Background(), "", 3)
	require.Error(t, err)
	assert.True(t, IsErrorType(err, ErrorTypeValidation))
}

func TestFetchEvidenceAuthFailureNoRetry(t *testing.T) {
	calls := 0
	client, _ := newTestTavilyClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.FetchEvidence(context.Background(), "claim", 1)
	require.Error(t, err)
	assert.Equal(t, ErrFactCheckAuth, AsAppError(err).Code)
	assert.Equal(t, 1, calls)
}

func TestFetchEvidenceUsageLimit(t *testing.T) {
	client, _ := newTestTavilyClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.FetchEvidence(context.Background(), "claim", 1)
	require.Error(t, err)
	assert.Equal(t, ErrFactCheckRateLimit, AsAppError(err).Code)
}

func TestFetchEvidenceRetriesTransientFailure(t *testing.T) {
	calls := 0
	client, _ := newTestTavilyClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"results": []map[string]interface{}{
				{"url": "https://apnews.com/z", "content": "ok", "relevance_score": 0.8},
			},
		})
	})

	items, err := client.FetchEvidence(context.Background(), "claim", 1)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 2, calls)
}

func TestFetchEvidenceGivesUpAfterOneRetry(t *testing.T) {
	calls := 0
	client, _ := newTestTavilyClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.FetchEvidence(context.Background(), "claim", 1)
	require.Error(t, err)
	assert.Equal(t, ErrFactCheckNetwork, AsAppError(err).Code)
	assert.Equal(t, 2, calls)
}

func TestFetchEvidenceScoreFieldFallback(t *testing.T) {
	client, _ := newTestTavilyClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"results": []map[string]interface{}{
				{"url": "https://snopes.com/a", "content": "c", "score": 0.65},
			},
		})
	})

	items, err := client.FetchEvidence(context.Background(), "claim", 1)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 0.65, items[0].Relevance)
}
