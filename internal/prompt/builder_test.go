package prompt

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/velvetlabs/amora/internal/types"
)

func turn(role types.Role, content string) types.ConversationTurn {
	return types.ConversationTurn{Role: role, Content: content}
}

func longHistory(turns int, chars int) []types.ConversationTurn {
	history := make([]types.ConversationTurn, 0, turns)
	for i := 0; i < turns; i++ {
		role := types.RoleUser
		if i%2 == 1 {
			role = types.RoleAssistant
		}
		history = append(history, turn(role, fmt.Sprintf("turn %03d %s", i, strings.Repeat("x", chars))))
	}
	return history
}

func TestBuildWithinBudgetPassesThrough(t *testing.T) {
	b := NewBuilder(4000)
	history := longHistory(6, 40)

	got := b.Build(BuildRequest{History: history, SystemPrompt: "You are Amora."})

	if got.OverBudget {
		t.Fatalf("unexpected over-budget: %#v", got)
	}
	// System prompt plus the untouched history.
	if len(got.Messages) != 7 {
		t.Fatalf("expected 7 messages, got %d", len(got.Messages))
	}
}

func TestBuildTokenBudgetInvariant(t *testing.T) {
	b := NewBuilder(1200)
	history := longHistory(60, 300)

	got := b.Build(BuildRequest{History: history, SystemPrompt: "system"})

	if got.OverBudget {
		t.Fatalf("budget should be reducible here: %d tokens", got.TotalTokens)
	}
	if got.TotalTokens > 1200 {
		t.Fatalf("token budget violated: %d > 1200", got.TotalTokens)
	}
}

func TestBuildCollapsesMiddle(t *testing.T) {
	b := NewBuilder(2000)
	history := longHistory(50, 120)

	got := b.Build(BuildRequest{History: history})

	var summaryIdx = -1
	for i, msg := range got.Messages {
		if msg.Role == types.RoleSystem {
			summaryIdx = i
			break
		}
	}
	if summaryIdx == -1 {
		t.Fatalf("expected a synthetic summary message: %#v", got.Messages)
	}

	// Opening turns stay verbatim ahead of the summary.
	if !strings.HasPrefix(got.Messages[0].Content, "turn 000") {
		t.Fatalf("first turn not preserved: %q", got.Messages[0].Content)
	}
	// The most recent turn always survives.
	last := got.Messages[len(got.Messages)-1]
	if !strings.HasPrefix(last.Content, "turn 049") {
		t.Fatalf("most recent turn not preserved: %q", last.Content)
	}
}

func TestBuildSummaryBounded(t *testing.T) {
	long := strings.Repeat("word ", 100)
	turns := make([]types.ConversationTurn, 30)
	for i := range turns {
		turns[i] = turn(types.RoleUser, long)
	}

	summary := summarizeTurns(turns)

	if lines := strings.Count(summary, "\n- "); lines > summaryItemCap {
		t.Fatalf("summary has %d items, cap is %d", lines, summaryItemCap)
	}
	for _, line := range strings.Split(summary, "\n")[1:] {
		if len([]rune(line)) > summaryClipRunes+20 {
			t.Fatalf("summary line not clipped: %d runes", len([]rune(line)))
		}
	}
}

func TestBuildIrreducibleTurnReported(t *testing.T) {
	b := NewBuilder(500)
	giant := turn(types.RoleUser, strings.Repeat("a", 40000))

	got := b.Build(BuildRequest{History: []types.ConversationTurn{giant}})

	if !got.OverBudget {
		t.Fatal("expected over-budget flag for an irreducible turn")
	}
	if len(got.Messages) != 1 {
		t.Fatalf("the single turn must pass through, got %d messages", len(got.Messages))
	}
}

func TestBuildNeverDropsMostRecentTurn(t *testing.T) {
	b := NewBuilder(600)
	history := longHistory(12, 800)

	got := b.Build(BuildRequest{History: history})

	last := got.Messages[len(got.Messages)-1]
	if !strings.HasPrefix(last.Content, "turn 011") {
		t.Fatalf("most recent turn was dropped: %q", last.Content)
	}
}

func TestEstimateTokensMonotonic(t *testing.T) {
	short := EstimateTokens("hi")
	long := EstimateTokens(strings.Repeat("hi", 500))
	if long <= short {
		t.Fatalf("estimate not monotonic: %d <= %d", long, short)
	}
}

func TestBuildMemoryBlockCostedBeforeHistory(t *testing.T) {
	b := NewBuilder(4000)
	facts := []types.MemoryFact{
		{Fact: "their name is Sam", Category: types.FactIdentity, Confidence: 0.9, CreatedAt: time.Now()},
	}

	got := b.Build(BuildRequest{
		History:      longHistory(4, 40),
		Facts:        facts,
		SystemPrompt: "You are Amora.",
	})

	if len(got.Messages) < 2 || got.Messages[1].Role != types.RoleSystem {
		t.Fatalf("expected memory block right after system prompt: %#v", got.Messages)
	}
	if !strings.Contains(got.Messages[1].Content, "their name is Sam") {
		t.Fatalf("memory block missing fact: %q", got.Messages[1].Content)
	}
}
