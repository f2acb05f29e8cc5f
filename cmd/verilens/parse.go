// cmd/verilens/parse.go
package main

import (
	"strconv"
	"strings"
)

// StructuredAnalysis is the model's one-shot judgment in delegated mode,
// extracted from line-oriented "KEY: VALUE" completion text.
type StructuredAnalysis struct {
	ImageTextMatch  string
	FactCheckStatus string
	IsFakeNews      string
	Reasoning       string
	Confidence      float64
}

// Default values for keys the model omitted. The parser is deliberately
// pessimistic: an answer that fails to assert a match or deny fakeness is
// treated as a non-match / fake.
const (
	defaultImageTextMatch = LabelNo
	defaultIsFakeNews     = LabelYes
	defaultFactCheck      = LabelInconclusive
)

// ParseStructuredAnalysis parses the completion text of a delegated-mode
// request. Keys are case- and space-insensitive; lines without a colon are
// ignored; missing keys take the documented defaults. Only when the text
// yields no usable key at all does parsing fail.
func ParseStructuredAnalysis(text string) (*StructuredAnalysis, error) {
	fields := make(map[string]string)
	for _, line := range strings.Split(text, "\n") {
		if !strings.Contains(line, ":") {
			continue
		}
		parts := strings.SplitN(line, ":", 2)
		key := normalizeKey(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" || value == "" {
			continue
		}
		// First occurrence wins; models sometimes repeat the template
		if _, seen := fields[key]; !seen {
			fields[key] = value
		}
	}

	analysis := &StructuredAnalysis{
		ImageTextMatch:  defaultImageTextMatch,
		FactCheckStatus: defaultFactCheck,
		IsFakeNews:      defaultIsFakeNews,
	}

	usable := 0
	if v, ok := fields["image_text_match"]; ok {
		analysis.ImageTextMatch = normalizeYesNo(v, defaultImageTextMatch)
		usable++
	}
	if v, ok := fields["fact_check"]; ok {
		analysis.FactCheckStatus = normalizeFactCheck(v)
		usable++
	}
	if v, ok := fields["fake_news"]; ok {
		analysis.IsFakeNews = normalizeYesNo(v, defaultIsFakeNews)
		usable++
	}
	if v, ok := fields["reasoning"]; ok {
		analysis.Reasoning = v
		usable++
	}
	if v, ok := fields["confidence_score"]; ok {
		if f, err := strconv.ParseFloat(strings.TrimSuffix(v, "%"), 64); err == nil {
			if f > 1 {
				f /= 100
			}
			analysis.Confidence = clamp01(f)
			usable++
		}
	}

	if usable == 0 {
		return nil, NewParseError("completion text contained no usable fields")
	}
	return analysis, nil
}

// normalizeKey folds "IMAGE-TEXT MATCH", "image_text_match" and friends onto
// one canonical key.
func normalizeKey(raw string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.ReplaceAll(key, "-", "_")
	key = strings.ReplaceAll(key, " ", "_")
	key = strings.Trim(key, "*#")
	return key
}

func normalizeYesNo(value, fallback string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "yes", "true":
		return LabelYes
	case "no", "false":
		return LabelNo
	}
	return fallback
}

func normalizeFactCheck(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "supported":
		return LabelSupported
	case "contradicted":
		return LabelContradicted
	}
	return LabelInconclusive
}
