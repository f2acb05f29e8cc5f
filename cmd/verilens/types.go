// cmd/verilens/types.go
package main

// Axis labels shared across the pipeline. The fact-check and fake-news axes
// are tri-state, the image-text match axis is binary.
const (
	LabelYes          = "Yes"
	LabelNo           = "No"
	LabelSupported    = "Supported"
	LabelContradicted = "Contradicted"
	LabelInconclusive = "Inconclusive"
)

// EvidenceItem is a single fact-check search hit. Items keep the provider's
// rank order; relevance-descending order is not guaranteed.
type EvidenceItem struct {
	Source    string  `json:"source"`
	Relevance float64 `json:"relevance"`
	Snippet   string  `json:"snippet"`
}

// ImageDescription is the vision model's free-text reading of the image.
// Confidence is 0.0 unless the provider reports one.
type ImageDescription struct {
	Description string  `json:"description"`
	Confidence  float64 `json:"confidence"`
}

// VerdictAxis is one judgment dimension: a label plus a confidence in [0,1].
type VerdictAxis struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Assessment is the terminal output of the pipeline. Built once per request,
// immutable after construction, never persisted.
type Assessment struct {
	ImageTextMatch  VerdictAxis       `json:"image_text_match"`
	FactCheckStatus VerdictAxis       `json:"fact_check_status"`
	IsFakeNews      VerdictAxis       `json:"is_fake_news"`
	Reasoning       string            `json:"reasoning"`
	Evidence        []EvidenceItem    `json:"fact_check_sources"`
	Description     *ImageDescription `json:"image_description,omitempty"`
}

// MatchResult is the consistency scorer's output for the local mode.
type MatchResult struct {
	Label      string
	Confidence float64
}

// AnalyzeRequest is the JSON payload carried in the "news" multipart field.
type AnalyzeRequest struct {
	NewsText string `json:"news_text"`
}
