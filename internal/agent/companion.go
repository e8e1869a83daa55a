// Package agent turns an assembled context window into the companion's reply.
package agent

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"text/template"

	"google.golang.org/adk/model"
	"google.golang.org/genai"

	"github.com/velvetlabs/amora/internal/types"
)

// Companion generates replies with a chat model.
type Companion struct {
	model model.LLM
}

// NewCompanion returns a Companion.
func NewCompanion(m model.LLM) (*Companion, error) {
	if m == nil {
		return nil, fmt.Errorf("model is required")
	}
	return &Companion{model: m}, nil
}

// Reply runs the model over the context window and returns the reply text.
// The window comes from the engine, already budgeted and ordered: system
// turns first, then history, with the current user message last.
func (c *Companion) Reply(ctx context.Context, window []types.ConversationTurn) (string, error) {
	if len(window) == 0 {
		return "", fmt.Errorf("empty context window")
	}

	contents := make([]*genai.Content, 0, len(window))
	for _, turn := range window {
		contents = append(contents, genai.NewContentFromText(turn.Content, roleFor(turn.Role)))
	}

	req := &model.LLMRequest{Contents: contents}
	seq := c.model.GenerateContent(ctx, req, false)

	var resp *model.LLMResponse
	var err error
	seq(func(r *model.LLMResponse, e error) bool {
		resp = r
		err = e
		return false
	})
	if err != nil {
		return "", fmt.Errorf("reply generation failed: %w", err)
	}
	if resp == nil || resp.Content == nil {
		return "", fmt.Errorf("empty model response")
	}

	var sb strings.Builder
	for _, part := range resp.Content.Parts {
		if part != nil && part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", fmt.Errorf("model returned no text")
	}
	return text, nil
}

func roleFor(role types.Role) genai.Role {
	switch role {
	case types.RoleAssistant:
		return "model"
	case types.RoleSystem:
		// genai has no system role in contents; the params layer maps it back.
		return "system"
	default:
		return "user"
	}
}

// personaTmpl decorates the base system prompt with relationship context.
var personaTmpl = template.Must(template.New("persona").Parse(`{{.Base}}

Relationship stage: {{.Stage}}.
{{- if .StreakMessage }}
They just extended a daily streak. Work this into your reply naturally: {{.StreakMessage}}
{{- end }}
{{- if .StageChanged }}
The relationship just deepened a stage. Let it show in your warmth, don't announce it.
{{- end }}`))

// PersonaPrompt renders the per-message system prompt from the base persona
// and the latest retention result.
func PersonaPrompt(base string, stage types.Stage, stageChanged bool, streakMessage string) string {
	data := struct {
		Base          string
		Stage         types.Stage
		StageChanged  bool
		StreakMessage string
	}{
		Base:          base,
		Stage:         stage,
		StageChanged:  stageChanged,
		StreakMessage: streakMessage,
	}

	var buf bytes.Buffer
	if err := personaTmpl.Execute(&buf, data); err != nil {
		slog.Warn("failed to render persona prompt", "error", err.Error())
		return base
	}
	return buf.String()
}
