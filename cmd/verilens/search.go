// cmd/verilens/search.go
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const defaultTavilyBaseURL = "https://api.tavily.com"

// SearchClient fetches fact-check evidence for a claim. Implementations must
// preserve the provider's result order.
type SearchClient interface {
	FetchEvidence(ctx context.Context, claim string, maxResults int) ([]EvidenceItem, error)
}

// TavilyClient talks to the Tavily search API with the scope restricted to a
// fixed allow-list of reputable domains.
type TavilyClient struct {
	apiKey  string
	baseURL string
	domains []string
	client  *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewTavilyClient creates a search client. ratePerSec bounds outbound
// request rate across all in-flight pipeline runs.
func NewTavilyClient(apiKey string, domains []string, timeout time.Duration, ratePerSec float64, logger *zap.Logger) *TavilyClient {
	return &TavilyClient{
		apiKey:  apiKey,
		baseURL: defaultTavilyBaseURL,
		domains: domains,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:    100,
				IdleConnTimeout: 90 * time.Second,
				MaxConnsPerHost: 10,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), 1),
		logger:  logger,
	}
}

type tavilySearchRequest struct {
	APIKey         string   `json:"api_key"`
	Query          string   `json:"query"`
	SearchDepth    string   `json:"search_depth"`
	IncludeDomains []string `json:"include_domains"`
	MaxResults     int      `json:"max_results"`
}

type tavilySearchResponse struct {
	Results []struct {
		URL            string  `json:"url"`
		Title          string  `json:"title"`
		Content        string  `json:"content"`
		RelevanceScore float64 `json:"relevance_score"`
		Score          float64 `json:"score"`
	} `json:"results"`
}

// FetchEvidence runs an advanced-depth search restricted to the allow-list
// and maps the hits to EvidenceItems in provider rank order. Transient
// network failures get one retry with a short backoff; credential and
// usage-limit failures do not.
func (tc *TavilyClient) FetchEvidence(ctx context.Context, claim string, maxResults int) ([]EvidenceItem, error) {
	if claim == "" {
		return nil, NewValidationError(ErrValidationEmptyText, "claim must not be empty")
	}
	if maxResults < 1 {
		maxResults = 1
	}

	if err := tc.limiter.Wait(ctx); err != nil {
		return nil, NewFactCheckError(ErrFactCheckNetwork, "search rate limiter interrupted", err)
	}

	body, err := json.Marshal(tavilySearchRequest{
		APIKey:         tc.apiKey,
		Query:          claim,
		SearchDepth:    "advanced",
		IncludeDomains: tc.domains,
		MaxResults:     maxResults,
	})
	if err != nil {
		return nil, NewFactCheckError(ErrFactCheckNetwork, "failed to encode search request", err)
	}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			tc.logger.Warn("retrying fact-check search",
				zap.String("claim", truncate(claim, 100)),
				zap.Error(lastErr))
			select {
			case <-ctx.Done():
				return nil, NewFactCheckError(ErrFactCheckNetwork, "search cancelled", ctx.Err())
			case <-time.After(500 * time.Millisecond):
			}
		}

		items, err := tc.search(ctx, body)
		if err == nil {
			return items, nil
		}
		// Only transient network failures are worth a retry
		if AsAppError(err).Code != ErrFactCheckNetwork {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

func (tc *TavilyClient) search(ctx context.Context, body []byte) ([]EvidenceItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tc.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, NewFactCheckError(ErrFactCheckNetwork, "failed to build search request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := tc.client.Do(req)
	if err != nil {
		return nil, NewFactCheckError(ErrFactCheckNetwork, "search request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewFactCheckError(ErrFactCheckNetwork, "failed to read search response", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, NewFactCheckError(ErrFactCheckAuth, "search provider rejected credentials", nil)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == 432:
		return nil, NewFactCheckError(ErrFactCheckRateLimit, "search provider usage limit exceeded", nil)
	case resp.StatusCode >= 500:
		return nil, NewFactCheckError(ErrFactCheckNetwork,
			fmt.Sprintf("search provider returned status %s", resp.Status), nil)
	case resp.StatusCode != http.StatusOK:
		return nil, NewFactCheckError(ErrFactCheckAuth,
			fmt.Sprintf("search provider returned status %s", resp.Status), nil)
	}

	var result tavilySearchResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, NewFactCheckError(ErrFactCheckNetwork, "failed to decode search response", err)
	}

	items := make([]EvidenceItem, 0, len(result.Results))
	for _, r := range result.Results {
		relevance := r.RelevanceScore
		if relevance == 0 {
			// Newer API revisions report the score under "score"
			relevance = r.Score
		}
		source := r.URL
		if source == "" {
			source = "Unknown Source"
		}
		snippet := r.Content
		if snippet == "" {
			snippet = "No snippet available."
		}
		items = append(items, EvidenceItem{
			Source:    source,
			Relevance: clamp01(relevance),
			Snippet:   snippet,
		})
	}

	tc.logger.Info("fact-check search completed", zap.Int("results", len(items)))
	return items, nil
}
