package prompt

import (
	"strings"
	"testing"
	"time"

	"github.com/velvetlabs/amora/internal/types"
)

func fact(text string, category types.FactCategory, confidence float64, age time.Duration) types.MemoryFact {
	return types.MemoryFact{
		Fact:       text,
		Category:   category,
		Confidence: confidence,
		CreatedAt:  time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC).Add(-age),
	}
}

func TestMemoryDedupAcrossTiers(t *testing.T) {
	facts := []types.MemoryFact{
		fact("loves hiking in the mountains", types.FactIdentity, 0.9, 0),
		fact("Loves hiking in the   mountains", types.FactPreference, 0.8, time.Hour),
	}

	block := RenderMemoryBlock(SelectMemories(facts, "", false))

	if got := strings.Count(strings.ToLower(block), "loves hiking"); got != 1 {
		t.Fatalf("expected fact exactly once, found %d times in %q", got, block)
	}
}

func TestIntimateTierOnlyWhenNSFW(t *testing.T) {
	facts := []types.MemoryFact{
		fact("their name is Sam", types.FactIdentity, 0.9, 0),
		fact("likes being teased", types.FactKink, 0.9, 0),
	}

	sfw := RenderMemoryBlock(SelectMemories(facts, "", false))
	if strings.Contains(sfw, "teased") {
		t.Fatalf("kink fact leaked into sfw block: %q", sfw)
	}

	nsfw := RenderMemoryBlock(SelectMemories(facts, "", true))
	if !strings.Contains(nsfw, "teased") {
		t.Fatalf("kink fact missing from nsfw block: %q", nsfw)
	}
}

func TestRelevantFactsRankFirst(t *testing.T) {
	facts := []types.MemoryFact{
		fact("works as a nurse", types.FactPreference, 0.95, 0),
		fact("has a dog named Biscuit", types.FactPreference, 0.5, 0),
	}

	tiers := SelectMemories(facts, "I took Biscuit to the park today", false)

	pool := tiers[TierPreference]
	if len(pool) != 2 {
		t.Fatalf("expected both facts kept, got %#v", pool)
	}
	if !strings.Contains(pool[0].Fact, "Biscuit") {
		t.Fatalf("relevant fact should rank first despite lower confidence: %#v", pool)
	}
}

func TestPerTierCap(t *testing.T) {
	var facts []types.MemoryFact
	for i := 0; i < 10; i++ {
		facts = append(facts, fact(strings.Repeat("a", i+3)+" distinct fact", types.FactEmotional, 0.5, time.Duration(i)*time.Hour))
	}

	tiers := SelectMemories(facts, "", false)
	if got := len(tiers[TierEmotional]); got != perTierCap {
		t.Fatalf("expected tier capped at %d, got %d", perTierCap, got)
	}
}

func TestUncategorizedFallsIntoTopicalTier(t *testing.T) {
	facts := []types.MemoryFact{
		fact("mentioned a trip to Lisbon", types.FactUncategorized, 0.4, 0),
		fact("summary of last week's chats", types.FactSummary, 0.6, 0),
	}

	tiers := SelectMemories(facts, "", false)
	if len(tiers[TierTopical]) != 2 {
		t.Fatalf("expected both facts in topical tier: %#v", tiers)
	}
}

func TestSignificantWordsFiltersShortAndStopwords(t *testing.T) {
	words := significantWords("I am at the park with my dog")
	if words["the"] || words["am"] || words["at"] {
		t.Fatalf("stopwords leaked: %#v", words)
	}
	if !words["park"] || !words["dog"] {
		t.Fatalf("content words missing: %#v", words)
	}
}

func TestEmptyPoolRendersNothing(t *testing.T) {
	if got := RenderMemoryBlock(SelectMemories(nil, "hello", false)); got != "" {
		t.Fatalf("expected empty block, got %q", got)
	}
}
