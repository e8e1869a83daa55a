// Package prompt assembles token-budget-compliant generation context from
// history, long-term memory, and the system prompt.
package prompt

import (
	"strings"

	"github.com/velvetlabs/amora/internal/types"
)

const (
	keepOpeningTurns = 2
	keepRecentTurns  = 8
	summaryItemCap   = 6
	summaryClipRunes = 120

	collapsedPlaceholder = "(earlier conversation trimmed for space)"
)

// BuildRequest carries everything the builder needs for one generation call.
type BuildRequest struct {
	History      []types.ConversationTurn
	Facts        []types.MemoryFact
	SystemPrompt string
	// CurrentMessage drives memory relevance; when empty, the last user turn
	// in History is used.
	CurrentMessage string
	NSFW           bool
}

// BuildResult is the assembled context.
type BuildResult struct {
	Messages    []types.ConversationTurn
	TotalTokens int
	// OverBudget is set only in the irreducible case where a single turn (or
	// the fixed system/memory cost) alone exceeds the ceiling.
	OverBudget bool
}

// Builder produces budget-compliant context windows.
type Builder struct {
	maxTokens int
	maxTurns  int
}

// NewBuilder returns a Builder with the given token ceiling; zero or negative
// values fall back to the default.
func NewBuilder(maxTokens int) *Builder {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &Builder{maxTokens: maxTokens, maxTurns: 40}
}

// Build assembles system prompt, memory block, and trimmed history. The system
// prompt and memory block are costed first; history gets the remainder with a
// hard floor.
func (b *Builder) Build(req BuildRequest) BuildResult {
	current := req.CurrentMessage
	if current == "" {
		current = lastUserTurn(req.History)
	}

	var messages []types.ConversationTurn
	fixedTokens := 0
	if strings.TrimSpace(req.SystemPrompt) != "" {
		messages = append(messages, types.ConversationTurn{Role: types.RoleSystem, Content: req.SystemPrompt})
		fixedTokens += EstimateTokens(req.SystemPrompt)
	}

	memoryBlock := RenderMemoryBlock(SelectMemories(req.Facts, current, req.NSFW))
	if memoryBlock != "" {
		messages = append(messages, types.ConversationTurn{Role: types.RoleSystem, Content: memoryBlock})
		fixedTokens += EstimateTokens(memoryBlock)
	}

	historyBudget := b.maxTokens - fixedTokens
	if historyBudget < historyTokenFloor {
		historyBudget = historyTokenFloor
	}

	history := b.trimHistory(req.History, historyBudget)
	messages = append(messages, history...)

	total := fixedTokens + EstimateTurns(history)
	return BuildResult{
		Messages:    messages,
		TotalTokens: total,
		OverBudget:  total > b.maxTokens,
	}
}

// trimHistory enforces the history token budget: keep the opening and most
// recent turns verbatim, collapse the middle into a bounded extractive
// summary, then degrade further if needed.
func (b *Builder) trimHistory(history []types.ConversationTurn, budget int) []types.ConversationTurn {
	if len(history) == 0 {
		return nil
	}
	if EstimateTurns(history) <= budget && len(history) <= b.maxTurns {
		return append([]types.ConversationTurn(nil), history...)
	}

	kept := collapseMiddle(history)
	if EstimateTurns(kept) <= budget {
		return kept
	}

	// Degrade the synthetic summary to a short placeholder.
	for i := range kept {
		if kept[i].Role == types.RoleSystem && i > 0 {
			kept[i].Content = collapsedPlaceholder
			break
		}
	}
	if EstimateTurns(kept) <= budget {
		return kept
	}

	// Drop from the middle, never the most recent turn.
	for len(kept) > 1 && EstimateTurns(kept) > budget {
		drop := len(kept) / 2
		if drop >= len(kept)-1 {
			drop = len(kept) - 2
		}
		kept = append(kept[:drop], kept[drop+1:]...)
	}
	return kept
}

// collapseMiddle keeps the first and last turns verbatim and replaces the
// span between them with one synthetic system message summarizing it.
func collapseMiddle(history []types.ConversationTurn) []types.ConversationTurn {
	if len(history) <= keepOpeningTurns+keepRecentTurns {
		return append([]types.ConversationTurn(nil), history...)
	}

	opening := history[:keepOpeningTurns]
	middle := history[keepOpeningTurns : len(history)-keepRecentTurns]
	recent := history[len(history)-keepRecentTurns:]

	kept := make([]types.ConversationTurn, 0, keepOpeningTurns+1+keepRecentTurns)
	kept = append(kept, opening...)
	kept = append(kept, types.ConversationTurn{
		Role:    types.RoleSystem,
		Content: summarizeTurns(middle),
	})
	kept = append(kept, recent...)
	return kept
}

// summarizeTurns builds a bounded extractive summary: up to summaryItemCap
// evenly spaced turns, each clipped to summaryClipRunes runes.
func summarizeTurns(turns []types.ConversationTurn) string {
	if len(turns) == 0 {
		return collapsedPlaceholder
	}

	step := 1
	if len(turns) > summaryItemCap {
		step = (len(turns) + summaryItemCap - 1) / summaryItemCap
	}

	var sb strings.Builder
	sb.WriteString("Earlier in this conversation:")
	count := 0
	for i := 0; i < len(turns) && count < summaryItemCap; i += step {
		sb.WriteString("\n- ")
		sb.WriteString(string(turns[i].Role))
		sb.WriteString(": ")
		sb.WriteString(clipRunes(turns[i].Content, summaryClipRunes))
		count++
	}
	return sb.String()
}

func clipRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "…"
}

func lastUserTurn(history []types.ConversationTurn) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == types.RoleUser {
			return history[i].Content
		}
	}
	return ""
}
