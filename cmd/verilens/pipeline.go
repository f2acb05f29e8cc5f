// cmd/verilens/pipeline.go
package main

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Pipeline orchestrates one assessment: evidence fetch and image encoding in
// parallel, then vision analysis, then verdict synthesis. All dependencies
// are explicit so tests can substitute fakes; there is no shared mutable
// state between requests.
type Pipeline struct {
	cfg    *Config
	search SearchClient
	vision VisionClient
	logger *zap.Logger

	// sem bounds the number of analyses holding outbound provider calls
	sem chan struct{}
}

// NewPipeline wires the pipeline from its collaborators.
func NewPipeline(cfg *Config, search SearchClient, vision VisionClient, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		cfg:    cfg,
		search: search,
		vision: vision,
		logger: logger,
		sem:    make(chan struct{}, cfg.MaxWorkers),
	}
}

// Analyze assesses one news item. The analysis mode is fixed at startup:
// local mode describes the image and computes the verdict here, delegated
// mode asks the model for the structured judgment in one shot.
func (p *Pipeline) Analyze(ctx context.Context, newsText string, imageData []byte) (*Assessment, error) {
	if newsText == "" {
		return nil, NewValidationError(ErrValidationEmptyText, "news_text must not be empty")
	}
	if len(imageData) == 0 {
		return nil, NewImageError("image data is empty", nil)
	}

	select {
	case p.sem <- struct{}{}:
		defer func() { <-p.sem }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	// Evidence fetch and image encoding have no data dependency; run both
	// concurrently the way the feed fetcher fans out sources.
	var (
		wg        sync.WaitGroup
		evidence  []EvidenceItem
		fetchErr  error
		dataURI   string
		encodeErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		evidence, fetchErr = p.search.FetchEvidence(ctx, newsText, p.cfg.MaxSearchResults)
	}()
	go func() {
		defer wg.Done()
		dataURI, encodeErr = EncodeImage(imageData)
	}()
	wg.Wait()

	if encodeErr != nil {
		p.logger.Error("image encoding failed",
			zap.String("claim", truncate(newsText, 100)),
			zap.Error(encodeErr))
		return nil, encodeErr
	}

	switch p.cfg.AnalysisMode {
	case ModeLocal:
		return p.analyzeLocal(ctx, newsText, dataURI, evidence, fetchErr)
	default:
		return p.analyzeDelegated(ctx, newsText, dataURI, evidence, fetchErr)
	}
}

// analyzeLocal runs the describe -> score -> synthesize path. Evidence is
// required here: a failed or empty fetch terminates the request.
func (p *Pipeline) analyzeLocal(ctx context.Context, newsText, dataURI string, evidence []EvidenceItem, fetchErr error) (*Assessment, error) {
	if fetchErr != nil {
		p.logger.Error("fact-check search failed",
			zap.String("claim", truncate(newsText, 100)),
			zap.Error(fetchErr))
		return nil, fetchErr
	}
	if len(evidence) == 0 {
		return nil, NewNoEvidenceError()
	}

	desc, err := p.vision.Describe(ctx, dataURI, newsText)
	if err != nil {
		p.logger.Error("vision description failed",
			zap.String("claim", truncate(newsText, 100)),
			zap.Error(err))
		return nil, err
	}

	match := ScoreMatch(desc.Description, newsText)
	assessment, err := Synthesize(evidence, match)
	if err != nil {
		return nil, err
	}
	assessment.Description = desc
	return assessment, nil
}

// analyzeDelegated sends claim, image and evidence to the model in one shot
// and parses the structured judgment. A failed evidence fetch degrades
// rather than failing: the model judges from image and claim alone.
func (p *Pipeline) analyzeDelegated(ctx context.Context, newsText, dataURI string, evidence []EvidenceItem, fetchErr error) (*Assessment, error) {
	if fetchErr != nil {
		p.logger.Warn("fact-check search unavailable, judging without evidence",
			zap.String("claim", truncate(newsText, 100)),
			zap.Error(fetchErr))
		evidence = nil
	}

	completion, err := p.vision.Judge(ctx, dataURI, newsText, evidence)
	if err != nil {
		p.logger.Error("vision judgment failed",
			zap.String("claim", truncate(newsText, 100)),
			zap.Error(err))
		return nil, err
	}

	analysis, err := ParseStructuredAnalysis(completion)
	if err != nil {
		p.logger.Error("structured analysis unparsable",
			zap.String("claim", truncate(newsText, 100)),
			zap.String("completion", truncate(completion, 200)),
			zap.Error(err))
		return nil, err
	}

	return assembleDelegated(analysis, evidence), nil
}

// assembleDelegated maps the parsed judgment onto the canonical record. The
// fact-check axis dominates the fake-news axis exactly as in the local path:
// a conclusive fact-check pins the fake-news confidence at 0.9, an
// inconclusive one degrades the fake-news axis to Inconclusive at 0.6.
func assembleDelegated(analysis *StructuredAnalysis, evidence []EvidenceItem) *Assessment {
	matchAxis := VerdictAxis{Label: analysis.ImageTextMatch, Confidence: analysis.Confidence}

	factConfidence := analysis.Confidence
	if analysis.FactCheckStatus == LabelInconclusive {
		factConfidence = inconclusiveConfidence
	}
	factCheck := VerdictAxis{Label: analysis.FactCheckStatus, Confidence: clamp01(factConfidence)}

	var fakeNews VerdictAxis
	if factCheck.Label == LabelInconclusive {
		fakeNews = VerdictAxis{Label: LabelInconclusive, Confidence: degradedConfidence}
	} else {
		fakeNews = VerdictAxis{Label: analysis.IsFakeNews, Confidence: dominantConfidence}
	}

	reasoning := analysis.Reasoning
	if reasoning == "" {
		reasoning = buildReasoning(matchAxis, factCheck, fakeNews)
	}

	if evidence == nil {
		evidence = []EvidenceItem{}
	}
	return &Assessment{
		ImageTextMatch:  matchAxis,
		FactCheckStatus: factCheck,
		IsFakeNews:      fakeNews,
		Reasoning:       reasoning,
		Evidence:        evidence,
	}
}
