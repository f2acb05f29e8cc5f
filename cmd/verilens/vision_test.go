// cmd/verilens/vision_test.go
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

func testGenerationOptions() GenerationOptions {
	return GenerationOptions{
		Model:             "meta-llama/Llama-Vision-Free",
		MaxTokens:         512,
		Temperature:       0.7,
		TopP:              0.9,
		TopK:              50,
		RepetitionPenalty: 1.0,
		Stop:              []string{"<|eot_id|>", "<|eom_id|>"},
	}
}

func newTestTogetherClient(t *testing.T, handler http.HandlerFunc) *TogetherVisionClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewTogetherVisionClient("test-key", testGenerationOptions(), 5*time.Second, zap.NewNop())
	client.baseURL = server.URL
	return client
}

func completionResponse(content string) map[string]interface{} {
	return map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]interface{}{"content": content}},
		},
	}
}

func TestTogetherJudgeSendsGenerationParameters(t *testing.T) {
	var got map[string]interface{}
	client := newTestTogetherClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(completionResponse("FAKE NEWS: No"))
	})

	evidence := evidenceWithRelevances(0.9)
	text, err := client.Judge(context.Background(), "data:image/jpeg;base64,AAAA", "a claim", evidence)
	require.NoError(t, err)
	assert.Equal(t, "FAKE NEWS: No", text)

	assert.Equal(t, "meta-llama/Llama-Vision-Free", got["model"])
	assert.Equal(t, float64(512), got["max_tokens"])
	assert.Equal(t, 0.7, got["temperature"])
	assert.Equal(t, 0.9, got["top_p"])
	assert.Equal(t, float64(50), got["top_k"])
	assert.Equal(t, 1.0, got["repetition_penalty"])

	messages, ok := got["messages"].([]interface{})
	require.True(t, ok)
	require.Len(t, messages, 2)

	system := messages[0].(map[string]interface{})
	assert.Equal(t, "system", system["role"])
	assert.Contains(t, system["content"], "IMAGE-TEXT MATCH")

	user := messages[1].(map[string]interface{})
	parts := user["content"].([]interface{})
	require.Len(t, parts, 2)
	textPart := parts[0].(map[string]interface{})
	assert.Contains(t, textPart["text"], "a claim")
	assert.Contains(t, textPart["text"], "Fact-Checking Results")
	imagePart := parts[1].(map[string]interface{})
	assert.Equal(t, "image_url", imagePart["type"])
}

func TestTogetherJudgeOmitsEmptyEvidenceBlock(t *testing.T) {
	var got map[string]interface{}
	client := newTestTogetherClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(completionResponse("FAKE NEWS: Yes"))
	})

	_, err := client.Judge(context.Background(), "data:image/jpeg;base64,AAAA", "a claim", nil)
	require.NoError(t, err)

	messages := got["messages"].([]interface{})
	user := messages[1].(map[string]interface{})
	textPart := user["content"].([]interface{})[0].(map[string]interface{})
	assert.NotContains(t, textPart["text"], "Fact-Checking Results")
}

func TestTogetherDescribeReturnsDescription(t *testing.T) {
	client := newTestTogetherClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(completionResponse("  A crowd gathered in a town square.  "))
	})

	desc, err := client.Describe(context.Background(), "data:image/png;base64,AAAA", "claim")
	require.NoError(t, err)
	assert.Equal(t, "A crowd gathered in a town square.", desc.Description)
	assert.Equal(t, 0.0, desc.Confidence)
}

func TestTogetherProviderError(t *testing.T) {
	client := newTestTogetherClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.Describe(context.Background(), "data:image/png;base64,AAAA", "claim")
	require.Error(t, err)
	assert.True(t, IsErrorType(err, ErrorTypeVision))
}

func TestTogetherEmptyChoices(t *testing.T) {
	client := newTestTogetherClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"choices": []interface{}{}})
	})

	_, err := client.Judge(context.Background(), "data:image/png;base64,AAAA", "claim", nil)
	require.Error(t, err)
	assert.True(t, IsErrorType(err, ErrorTypeVision))
}
