// cmd/verilens/vision.go
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const defaultTogetherBaseURL = "https://api.together.xyz/v1"

// System instructions. The delegated-mode template drives the line-oriented
// structured output that ParseStructuredAnalysis understands.
const describeSystemPrompt = `You are an expert image analyst. Describe the contents of the provided image factually and concisely. Mention visible people, objects, places, text and any signs of manipulation.`

const judgeSystemPrompt = `You are a fake news detection expert. Analyze the provided news text, image, and fact-checking results. Respond in the following format:

IMAGE-TEXT MATCH: [Yes/No]
FACT CHECK: [Supported/Contradicted/Inconclusive]
FAKE NEWS: [Yes/No]
REASONING: [Your detailed explanation including references to fact-checking results]

Be direct and concise in your assessment.`

// GenerationOptions carries the completion parameters forwarded to the
// provider. Not every provider honors every knob; backends ignore what their
// API cannot express.
type GenerationOptions struct {
	Model             string
	MaxTokens         int
	Temperature       float64
	TopP              float64
	TopK              int
	RepetitionPenalty float64
	Stop              []string
}

// VisionClient is the multimodal completion boundary. Describe backs the
// local analysis mode; Judge backs the delegated mode and returns the raw
// completion text for the lenient parser.
type VisionClient interface {
	Describe(ctx context.Context, imageDataURI, newsText string) (*ImageDescription, error)
	Judge(ctx context.Context, imageDataURI, newsText string, evidence []EvidenceItem) (string, error)
}

// NewVisionClient constructs the configured provider backend.
func NewVisionClient(cfg *Config, logger *zap.Logger) VisionClient {
	opts := GenerationOptions{
		Model:             cfg.VisionModel,
		MaxTokens:         cfg.MaxTokens,
		Temperature:       cfg.Temperature,
		TopP:              cfg.TopP,
		TopK:              cfg.TopK,
		RepetitionPenalty: cfg.RepetitionPenalty,
		Stop:              cfg.StopSequences,
	}
	switch cfg.VisionProvider {
	case ProviderOpenAI:
		return NewOpenAIVisionClient(cfg.TogetherAPIKey, opts, cfg.VisionTimeout, logger)
	default:
		return NewTogetherVisionClient(cfg.TogetherAPIKey, opts, cfg.VisionTimeout, logger)
	}
}

// buildUserPrompt assembles the text part of the user message. Evidence is
// included only in delegated mode, and omitted entirely when the fetch came
// back empty so the model does not anchor on an empty block.
func buildUserPrompt(newsText string, evidence []EvidenceItem) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "News Text: %s\n", newsText)
	if len(evidence) > 0 {
		sb.WriteString("\nFact-Checking Results:\n")
		for _, item := range evidence {
			fmt.Fprintf(&sb, "- [%.2f] %s: %s\n", item.Relevance, item.Source, truncate(item.Snippet, 400))
		}
	}
	sb.WriteString("\nPlease analyze if this news is authentic by checking:\n")
	sb.WriteString("1. If the image supports the text\n")
	sb.WriteString("2. If the fact-checking results support or contradict the claim")
	return sb.String()
}

// ---------------------------------------------------------------------------
// Together backend (hand-rolled, carries the full generation parameter set)
// ---------------------------------------------------------------------------

// TogetherVisionClient speaks the Together chat completions API directly so
// top_k and repetition_penalty can be forwarded; the OpenAI-compatible SDK
// has no field for either.
type TogetherVisionClient struct {
	apiKey  string
	baseURL string
	opts    GenerationOptions
	client  *http.Client
	logger  *zap.Logger
}

func NewTogetherVisionClient(apiKey string, opts GenerationOptions, timeout time.Duration, logger *zap.Logger) *TogetherVisionClient {
	return &TogetherVisionClient{
		apiKey:  apiKey,
		baseURL: defaultTogetherBaseURL,
		opts:    opts,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type togetherImageURL struct {
	URL string `json:"url"`
}

type togetherMessagePart struct {
	Type     string            `json:"type"`
	Text     string            `json:"text,omitempty"`
	ImageURL *togetherImageURL `json:"image_url,omitempty"`
}

type togetherMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

type togetherCompletionRequest struct {
	Model             string            `json:"model"`
	Messages          []togetherMessage `json:"messages"`
	MaxTokens         int               `json:"max_tokens"`
	Temperature       float64           `json:"temperature"`
	TopP              float64           `json:"top_p"`
	TopK              int               `json:"top_k"`
	RepetitionPenalty float64           `json:"repetition_penalty"`
	Stop              []string          `json:"stop,omitempty"`
	Stream            bool              `json:"stream"`
}

type togetherCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (tv *TogetherVisionClient) Describe(ctx context.Context, imageDataURI, newsText string) (*ImageDescription, error) {
	text, err := tv.complete(ctx, describeSystemPrompt, newsText, imageDataURI)
	if err != nil {
		return nil, err
	}
	return &ImageDescription{Description: text}, nil
}

func (tv *TogetherVisionClient) Judge(ctx context.Context, imageDataURI, newsText string, evidence []EvidenceItem) (string, error) {
	return tv.complete(ctx, judgeSystemPrompt, buildUserPrompt(newsText, evidence), imageDataURI)
}

func (tv *TogetherVisionClient) complete(ctx context.Context, systemPrompt, userText, imageDataURI string) (string, error) {
	reqBody := togetherCompletionRequest{
		Model: tv.opts.Model,
		Messages: []togetherMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: []togetherMessagePart{
				{Type: "text", Text: userText},
				{Type: "image_url", ImageURL: &togetherImageURL{URL: imageDataURI}},
			}},
		},
		MaxTokens:         tv.opts.MaxTokens,
		Temperature:       tv.opts.Temperature,
		TopP:              tv.opts.TopP,
		TopK:              tv.opts.TopK,
		RepetitionPenalty: tv.opts.RepetitionPenalty,
		Stop:              tv.opts.Stop,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", NewVisionError("failed to encode completion request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tv.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", NewVisionError("failed to build completion request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+tv.apiKey)

	resp, err := tv.client.Do(req)
	if err != nil {
		return "", NewVisionError("completion request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", NewVisionError("failed to read completion response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", NewVisionError(fmt.Sprintf("completion provider returned status %s", resp.Status), nil)
	}

	var result togetherCompletionResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", NewVisionError("failed to decode completion response", err)
	}
	if len(result.Choices) == 0 {
		return "", NewVisionError("completion response contained no choices", nil)
	}

	content := strings.TrimSpace(result.Choices[0].Message.Content)
	tv.logger.Info("vision completion received", zap.Int("chars", len(content)))
	return content, nil
}

// ---------------------------------------------------------------------------
// OpenAI-compatible backend via the go-openai SDK
// ---------------------------------------------------------------------------

// OpenAIVisionClient uses the go-openai SDK for providers that expose the
// standard chat completions surface. TopK and repetition penalty have no SDK
// field and are not sent.
type OpenAIVisionClient struct {
	client *openai.Client
	opts   GenerationOptions
	logger *zap.Logger
}

func NewOpenAIVisionClient(apiKey string, opts GenerationOptions, timeout time.Duration, logger *zap.Logger) *OpenAIVisionClient {
	config := openai.DefaultConfig(apiKey)
	config.HTTPClient = &http.Client{Timeout: timeout}
	return &OpenAIVisionClient{
		client: openai.NewClientWithConfig(config),
		opts:   opts,
		logger: logger,
	}
}

func (ov *OpenAIVisionClient) Describe(ctx context.Context, imageDataURI, newsText string) (*ImageDescription, error) {
	text, err := ov.complete(ctx, describeSystemPrompt, newsText, imageDataURI)
	if err != nil {
		return nil, err
	}
	return &ImageDescription{Description: text}, nil
}

func (ov *OpenAIVisionClient) Judge(ctx context.Context, imageDataURI, newsText string, evidence []EvidenceItem) (string, error) {
	return ov.complete(ctx, judgeSystemPrompt, buildUserPrompt(newsText, evidence), imageDataURI)
}

func (ov *OpenAIVisionClient) complete(ctx context.Context, systemPrompt, userText, imageDataURI string) (string, error) {
	resp, err := ov.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: ov.opts.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: userText,
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL: imageDataURI,
						},
					},
				},
			},
		},
		MaxTokens:   ov.opts.MaxTokens,
		Temperature: float32(ov.opts.Temperature),
		TopP:        float32(ov.opts.TopP),
		Stop:        ov.opts.Stop,
	})
	if err != nil {
		return "", NewVisionError("completion request failed", err)
	}
	if len(resp.Choices) == 0 {
		return "", NewVisionError("completion response contained no choices", nil)
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	ov.logger.Info("vision completion received", zap.Int("chars", len(content)))
	return content, nil
}
