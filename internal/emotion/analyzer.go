package emotion

import (
	"context"
	"log/slog"
	"strings"

	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

// Analyzer is the LLM-backed classifier variant. It trades latency for
// precision and is invoked separately from the hot path; any failure
// degrades to the neutral label.
type Analyzer struct {
	model    model.LLM
	fallback Classifier
}

// NewAnalyzer returns an Analyzer. fallback may be nil, in which case failures
// yield the neutral classification directly.
func NewAnalyzer(m model.LLM, fallback Classifier) *Analyzer {
	return &Analyzer{model: m, fallback: fallback}
}

const analyzerInstruction = `You are an emotion classifier for chat messages.
Return exactly one of these labels and nothing else:
loving, happy, playful, sad, angry, anxious, jealous, lonely, horny, neutral`

// Classify asks the model for a label. It never returns an error: on any
// failure it falls back to the heuristic classifier or the neutral label.
func (a *Analyzer) Classify(ctx context.Context, text string) Classification {
	if a == nil || a.model == nil {
		return a.degrade(ctx, text)
	}
	if strings.TrimSpace(text) == "" {
		return Neutral()
	}

	req := &model.LLMRequest{
		Contents: []*genai.Content{
			genai.NewContentFromText(analyzerInstruction, "system"),
			genai.NewContentFromText(text, "user"),
		},
	}

	seq := a.model.GenerateContent(ctx, req, false)
	var resp *model.LLMResponse
	var err error
	seq(func(r *model.LLMResponse, e error) bool {
		resp = r
		err = e
		return false
	})
	if err != nil {
		slog.Warn("emotion analyzer call failed", "error", err.Error())
		return a.degrade(ctx, text)
	}

	raw := extractLabelText(resp)
	if raw == "" {
		return a.degrade(ctx, text)
	}
	label := ParseLabel(raw)
	if string(label) != raw {
		// Model returned something off-list; the heuristic is more trustworthy.
		return a.degrade(ctx, text)
	}
	return Classification{Label: label, Confidence: 0.9}
}

func (a *Analyzer) degrade(ctx context.Context, text string) Classification {
	if a != nil && a.fallback != nil {
		return a.fallback.Classify(ctx, text)
	}
	return Neutral()
}

func extractLabelText(resp *model.LLMResponse) string {
	if resp == nil || resp.Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Content.Parts {
		if part != nil && part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	return strings.ToLower(strings.TrimSpace(sb.String()))
}
