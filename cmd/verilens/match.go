// cmd/verilens/match.go
package main

import (
	"strings"

	"golang.org/x/text/cases"
)

// Keywords whose presence in both the image description and the news text is
// taken as a weak signal of consistency. This is a coarse lexical heuristic,
// not a learned similarity model; the contract is only the (label, confidence)
// pair, so a stronger scorer can replace it without touching callers.
var matchKeywords = []string{
	"supports",
	"aligns",
	"corroborates",
	"indicates",
	"relates",
	"confirms",
	"shows",
	"depicts",
}

const (
	matchConfidence   = 0.8
	noMatchConfidence = 0.6
)

// ScoreMatch decides whether the image description and the news text are
// mutually consistent. Deterministic and local; no network calls. Any single
// keyword shared by both texts yields a match.
func ScoreMatch(description, newsText string) MatchResult {
	// Casers are stateful; build one per call rather than sharing
	fold := cases.Fold()
	desc := fold.String(description)
	news := fold.String(newsText)

	for _, kw := range matchKeywords {
		folded := fold.String(kw)
		if strings.Contains(desc, folded) && strings.Contains(news, folded) {
			return MatchResult{Label: LabelYes, Confidence: matchConfidence}
		}
	}
	return MatchResult{Label: LabelNo, Confidence: noMatchConfidence}
}
