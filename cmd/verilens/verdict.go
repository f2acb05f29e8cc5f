// cmd/verilens/verdict.go
package main

import (
	"fmt"
	"strings"
)

// Relevance thresholds for the fact-check axis. Both boundaries are
// inclusive: an average of exactly 0.7 is Supported, exactly 0.3 is
// Contradicted.
const (
	supportedThreshold    = 0.7
	contradictedThreshold = 0.3

	inconclusiveConfidence = 0.5
	dominantConfidence     = 0.9
	degradedConfidence     = 0.6
)

// Synthesize combines fact-check evidence and the image-text match judgment
// into an Assessment. Pure function: fixed inputs always produce the same
// axes and confidences.
//
// The fact-check axis dominates the fake-news axis: evidence strongly for or
// against the claim fixes the fake-news confidence at 0.9 regardless of the
// image-match outcome, and inconclusive evidence degrades the fake-news axis
// to Inconclusive at 0.6. The image-match axis is reported but does not veto.
func Synthesize(evidence []EvidenceItem, match MatchResult) (*Assessment, error) {
	if len(evidence) == 0 {
		return nil, NewNoEvidenceError()
	}

	var sum float64
	for _, item := range evidence {
		sum += item.Relevance
	}
	avgRelevance := sum / float64(len(evidence))

	var factCheck VerdictAxis
	switch {
	case avgRelevance >= supportedThreshold:
		factCheck = VerdictAxis{Label: LabelSupported, Confidence: avgRelevance}
	case avgRelevance <= contradictedThreshold:
		factCheck = VerdictAxis{Label: LabelContradicted, Confidence: 1.0 - avgRelevance}
	default:
		factCheck = VerdictAxis{Label: LabelInconclusive, Confidence: inconclusiveConfidence}
	}

	var fakeNews VerdictAxis
	switch factCheck.Label {
	case LabelContradicted:
		fakeNews = VerdictAxis{Label: LabelYes, Confidence: dominantConfidence}
	case LabelSupported:
		fakeNews = VerdictAxis{Label: LabelNo, Confidence: dominantConfidence}
	default:
		fakeNews = VerdictAxis{Label: LabelInconclusive, Confidence: degradedConfidence}
	}

	matchAxis := VerdictAxis{Label: match.Label, Confidence: match.Confidence}

	return &Assessment{
		ImageTextMatch:  matchAxis,
		FactCheckStatus: factCheck,
		IsFakeNews:      fakeNews,
		Reasoning:       buildReasoning(matchAxis, factCheck, fakeNews),
		Evidence:        evidence,
	}, nil
}

// buildReasoning renders the human-readable rationale for the three axes.
func buildReasoning(match, factCheck, fakeNews VerdictAxis) string {
	imageClause := "does not support"
	if match.Label == LabelYes {
		imageClause = "supports"
	}

	var determination string
	switch fakeNews.Label {
	case LabelYes:
		determination = "likely fake"
	case LabelNo:
		determination = "likely authentic"
	default:
		determination = "inconclusive"
	}

	return fmt.Sprintf(
		"The image %s the news text (confidence %.0f%%). Fact-check evidence is %s (confidence %.0f%%). The news item is judged %s (confidence %.0f%%).",
		imageClause, match.Confidence*100,
		strings.ToLower(factCheck.Label), factCheck.Confidence*100,
		determination, fakeNews.Confidence*100,
	)
}
