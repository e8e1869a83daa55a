package memory

import (
	"context"
	"strconv"
	"strings"

	"google.golang.org/adk/model"
	"google.golang.org/genai"

	"github.com/velvetlabs/amora/internal/types"
)

const extractorInstruction = `You extract durable facts about the user from a chat transcript.
Only include facts worth remembering weeks later: identity details, preferences,
emotional patterns, relationship events, intimate preferences.
Output one fact per line in the form:

category|confidence|fact

where category is one of: identity, preference, emotional, relationship, kink, summary
and confidence is a number between 0 and 1.
Output nothing else. If there are no durable facts, output nothing.`

// Extractor pulls long-term facts out of recent conversation with an LLM.
type Extractor struct {
	model model.LLM
}

// NewExtractor returns an Extractor.
func NewExtractor(m model.LLM) *Extractor {
	return &Extractor{model: m}
}

// Extract asks the model for durable facts in the transcript. Returns nil on
// any model failure; extraction is always best-effort.
func (e *Extractor) Extract(ctx context.Context, turns []types.ConversationTurn) []types.MemoryFact {
	if e == nil || e.model == nil || len(turns) == 0 {
		return nil
	}

	var transcript strings.Builder
	for _, turn := range turns {
		transcript.WriteString(string(turn.Role))
		transcript.WriteString(": ")
		transcript.WriteString(turn.Content)
		transcript.WriteString("\n")
	}

	req := &model.LLMRequest{
		Contents: []*genai.Content{
			genai.NewContentFromText(extractorInstruction, "system"),
			genai.NewContentFromText(transcript.String(), "user"),
		},
	}

	seq := e.model.GenerateContent(ctx, req, false)
	var resp *model.LLMResponse
	var err error
	seq(func(r *model.LLMResponse, e error) bool {
		resp = r
		err = e
		return false
	})
	if err != nil || resp == nil || resp.Content == nil {
		return nil
	}

	var raw strings.Builder
	for _, part := range resp.Content.Parts {
		if part != nil && part.Text != "" {
			raw.WriteString(part.Text)
		}
	}
	return parseFactLines(raw.String())
}

// parseFactLines parses "category|confidence|fact" lines, skipping anything
// malformed.
func parseFactLines(raw string) []types.MemoryFact {
	var facts []types.MemoryFact
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "|", 3)
		if len(parts) != 3 {
			continue
		}
		text := strings.TrimSpace(parts[2])
		if text == "" {
			continue
		}
		confidence, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil || confidence < 0 || confidence > 1 {
			continue
		}
		facts = append(facts, types.MemoryFact{
			Fact:       text,
			Category:   types.ParseFactCategory(strings.TrimSpace(strings.ToLower(parts[0]))),
			Confidence: confidence,
		})
	}
	return facts
}
