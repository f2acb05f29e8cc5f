// cmd/verilens/pipeline_test.go
package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockSearchClient struct {
	evidence []EvidenceItem
	err      error
	calls    int
}

func (m *mockSearchClient) FetchEvidence(ctx context.Context, claim string, maxResults int) ([]EvidenceItem, error) {
	m.calls++
	return m.evidence, m.err
}

type mockVisionClient struct {
	description   string
	judgeText     string
	describeErr   error
	judgeErr      error
	describeCalls int
	judgeCalls    int
	lastEvidence  []EvidenceItem
}

func (m *mockVisionClient) Describe(ctx context.Context, imageDataURI, newsText string) (*ImageDescription, error) {
	m.describeCalls++
	if m.describeErr != nil {
		return nil, m.describeErr
	}
	return &ImageDescription{Description: m.description}, nil
}

func (m *mockVisionClient) Judge(ctx context.Context, imageDataURI, newsText string, evidence []EvidenceItem) (string, error) {
	m.judgeCalls++
	m.lastEvidence = evidence
	return m.judgeText, m.judgeErr
}

func testConfig(mode string) *Config {
	return &Config{
		AnalysisMode:     mode,
		VisionProvider:   ProviderTogether,
		MaxSearchResults: 5,
		MaxWorkers:       2,
		MaxImageSize:     5 * 1024 * 1024,
		SearchDomains:    defaultSearchDomains,
	}
}

func TestPipelineLocalMode(t *testing.T) {
	search := &mockSearchClient{evidence: evidenceWithRelevances(0.9, 0.8)}
	vision := &mockVisionClient{description: "The image supports the reported scene."}
	p := NewPipeline(testConfig(ModeLocal), search, vision, zap.NewNop())

	assessment, err := p.Analyze(context.Background(), "The photo supports claims of flooding downtown.", jpegHeader)
	require.NoError(t, err)

	assert.Equal(t, 1, search.calls)
	assert.Equal(t, 1, vision.describeCalls)
	assert.Equal(t, 0, vision.judgeCalls)

	assert.Equal(t, LabelSupported, assessment.FactCheckStatus.Label)
	assert.Equal(t, LabelNo, assessment.IsFakeNews.Label)
	assert.Equal(t, LabelYes, assessment.ImageTextMatch.Label)
	require.NotNil(t, assessment.Description)
	assert.Equal(t, "The image supports the reported scene.", assessment.Description.Description)
}

func TestPipelineLocalModeSearchFailure(t *testing.T) {
	search := &mockSearchClient{err: NewFactCheckError(ErrFactCheckNetwork, "provider down", nil)}
	vision := &mockVisionClient{description: "anything"}
	p := NewPipeline(testConfig(ModeLocal), search, vision, zap.NewNop())

	_, err := p.Analyze(context.Background(), "some claim", jpegHeader)
	require.Error(t, err)
	assert.True(t, IsErrorType(err, ErrorTypeFactCheck))
	// Vision never called when evidence is required and unavailable
	assert.Equal(t, 0, vision.describeCalls)
}

func TestPipelineLocalModeEmptyEvidence(t *testing.T) {
	search := &mockSearchClient{evidence: []EvidenceItem{}}
	vision := &mockVisionClient{description: "anything"}
	p := NewPipeline(testConfig(ModeLocal), search, vision, zap.NewNop())

	_, err := p.Analyze(context.Background(), "some claim", jpegHeader)
	require.Error(t, err)
	assert.Equal(t, ErrNoEvidence, AsAppError(err).Code)
	assert.Equal(t, 0, vision.describeCalls)
}

func TestPipelineDelegatedMode(t *testing.T) {
	search := &mockSearchClient{evidence: evidenceWithRelevances(0.9)}
	vision := &mockVisionClient{judgeText: `IMAGE-TEXT MATCH: Yes
FACT CHECK: Supported
FAKE NEWS: No
REASONING: Verified by two outlets.
CONFIDENCE SCORE: 0.8`}
	p := NewPipeline(testConfig(ModeDelegated), search, vision, zap.NewNop())

	assessment, err := p.Analyze(context.Background(), "some claim", jpegHeader)
	require.NoError(t, err)

	assert.Equal(t, 1, vision.judgeCalls)
	assert.Equal(t, 0, vision.describeCalls)
	require.Len(t, vision.lastEvidence, 1)

	assert.Equal(t, LabelSupported, assessment.FactCheckStatus.Label)
	assert.Equal(t, 0.8, assessment.FactCheckStatus.Confidence)
	assert.Equal(t, LabelNo, assessment.IsFakeNews.Label)
	// Conclusive fact-check pins the fake-news confidence
	assert.Equal(t, 0.9, assessment.IsFakeNews.Confidence)
	assert.Equal(t, "Verified by two outlets.", assessment.Reasoning)
	assert.Len(t, assessment.Evidence, 1)
}

func TestPipelineDelegatedModeDegradesWithoutEvidence(t *testing.T) {
	search := &mockSearchClient{err: NewFactCheckError(ErrFactCheckAuth, "bad key", nil)}
	vision := &mockVisionClient{judgeText: "FAKE NEWS: Yes\nFACT CHECK: Inconclusive"}
	p := NewPipeline(testConfig(ModeDelegated), search, vision, zap.NewNop())

	assessment, err := p.Analyze(context.Background(), "some claim", jpegHeader)
	require.NoError(t, err)

	assert.Equal(t, 1, vision.judgeCalls)
	assert.Nil(t, vision.lastEvidence)
	assert.Empty(t, assessment.Evidence)
	// Inconclusive fact-check degrades the fake-news axis
	assert.Equal(t, LabelInconclusive, assessment.IsFakeNews.Label)
	assert.Equal(t, 0.6, assessment.IsFakeNews.Confidence)
}

func TestPipelineDelegatedModeParseFailure(t *testing.T) {
	search := &mockSearchClient{evidence: evidenceWithRelevances(0.5)}
	vision := &mockVisionClient{judgeText: "no structure whatsoever"}
	p := NewPipeline(testConfig(ModeDelegated), search, vision, zap.NewNop())

	_, err := p.Analyze(context.Background(), "some claim", jpegHeader)
	require.Error(t, err)
	assert.Equal(t, ErrAnalysisParse, AsAppError(err).Code)
}

func TestPipelineDelegatedModeVisionFailure(t *testing.T) {
	search := &mockSearchClient{evidence: evidenceWithRelevances(0.5)}
	vision := &mockVisionClient{judgeErr: NewVisionError("provider timeout", nil)}
	p := NewPipeline(testConfig(ModeDelegated), search, vision, zap.NewNop())

	_, err := p.Analyze(context.Background(), "some claim", jpegHeader)
	require.Error(t, err)
	assert.True(t, IsErrorType(err, ErrorTypeVision))
}

func TestPipelineRejectsEmptyInputs(t *testing.T) {
	search := &mockSearchClient{}
	vision := &mockVisionClient{}
	p := NewPipeline(testConfig(ModeLocal), search, vision, zap.NewNop())

	_, err := p.Analyze(context.Background(), "", jpegHeader)
	require.Error(t, err)
	assert.True(t, IsErrorType(err, ErrorTypeValidation))

	_, err = p.Analyze(context.Background(), "claim", nil)
	require.Error(t, err)
	assert.True(t, IsErrorType(err, ErrorTypeImage))

	// No provider calls on invalid input
	assert.Equal(t, 0, search.calls)
	assert.Equal(t, 0, vision.describeCalls)
	assert.Equal(t, 0, vision.judgeCalls)
}
