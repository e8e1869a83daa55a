package prompt

import (
	"sort"
	"strings"
	"text/template"
	"unicode"

	"github.com/orsinium-labs/stopwords"

	"github.com/velvetlabs/amora/internal/types"
)

// Tier is a memory bucket rendered as its own section of the memory block.
type Tier string

const (
	TierIdentity     Tier = "identity"
	TierPreference   Tier = "preference"
	TierEmotional    Tier = "emotional"
	TierRelationship Tier = "relationship"
	TierTopical      Tier = "topical"
	TierIntimate     Tier = "intimate"
)

// tierOrder is the rendering and dedup-priority order.
var tierOrder = []Tier{
	TierIdentity, TierPreference, TierEmotional,
	TierRelationship, TierTopical, TierIntimate,
}

const perTierCap = 4

var englishStopwords = stopwords.MustGet("en")

// tierFor maps a fact category to its tier.
func tierFor(category types.FactCategory) Tier {
	switch category {
	case types.FactIdentity:
		return TierIdentity
	case types.FactPreference:
		return TierPreference
	case types.FactEmotional:
		return TierEmotional
	case types.FactRelationship:
		return TierRelationship
	case types.FactKink:
		return TierIntimate
	default:
		return TierTopical
	}
}

// SelectMemories picks a tiered, deduplicated subset of facts for the current
// exchange. The intimate tier is only populated when the exchange is flagged
// NSFW; no fact text appears twice even if it qualifies for multiple tiers.
func SelectMemories(facts []types.MemoryFact, currentMessage string, nsfw bool) map[Tier][]types.MemoryFact {
	tiers := make(map[Tier][]types.MemoryFact)
	for _, fact := range facts {
		if strings.TrimSpace(fact.Fact) == "" {
			continue
		}
		tier := tierFor(fact.Category)
		if tier == TierIntimate && !nsfw {
			continue
		}
		tiers[tier] = append(tiers[tier], fact)
	}

	messageWords := significantWords(currentMessage)
	for tier, pool := range tiers {
		sort.SliceStable(pool, func(i, j int) bool {
			ri, rj := isRelevant(pool[i], messageWords), isRelevant(pool[j], messageWords)
			if ri != rj {
				return ri
			}
			if pool[i].Confidence != pool[j].Confidence {
				return pool[i].Confidence > pool[j].Confidence
			}
			return pool[i].CreatedAt.After(pool[j].CreatedAt)
		})
		if len(pool) > perTierCap {
			pool = pool[:perTierCap]
		}
		tiers[tier] = pool
	}

	// Dedup across tiers by normalized text, earlier tiers win.
	seen := make(map[string]bool)
	for _, tier := range tierOrder {
		kept := tiers[tier][:0]
		for _, fact := range tiers[tier] {
			key := normalizeFact(fact.Fact)
			if seen[key] {
				continue
			}
			seen[key] = true
			kept = append(kept, fact)
		}
		if len(kept) == 0 {
			delete(tiers, tier)
		} else {
			tiers[tier] = kept
		}
	}
	return tiers
}

var memoryBlockTemplate = template.Must(template.New("memory").Parse(
	`What you remember about them:
{{- range .Sections}}
[{{.Tier}}]
{{- range .Facts}}
- {{.Fact}}
{{- end}}
{{- end}}`))

type memorySection struct {
	Tier  Tier
	Facts []types.MemoryFact
}

// RenderMemoryBlock formats selected tiers into the system-prompt memory
// section. Empty string when nothing was selected.
func RenderMemoryBlock(tiers map[Tier][]types.MemoryFact) string {
	var sections []memorySection
	for _, tier := range tierOrder {
		if len(tiers[tier]) > 0 {
			sections = append(sections, memorySection{Tier: tier, Facts: tiers[tier]})
		}
	}
	if len(sections) == 0 {
		return ""
	}

	var sb strings.Builder
	if err := memoryBlockTemplate.Execute(&sb, struct{ Sections []memorySection }{sections}); err != nil {
		return ""
	}
	return sb.String()
}

// isRelevant reports whether any significant word of the fact appears in the
// current message.
func isRelevant(fact types.MemoryFact, messageWords map[string]bool) bool {
	if len(messageWords) == 0 {
		return false
	}
	for word := range significantWords(fact.Fact) {
		if messageWords[word] {
			return true
		}
	}
	return false
}

// significantWords lowercases, strips punctuation, and keeps words longer than
// two characters that are not stopwords.
func significantWords(text string) map[string]bool {
	words := make(map[string]bool)
	for _, raw := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if len(raw) <= 2 {
			continue
		}
		if englishStopwords.Contains(raw) {
			continue
		}
		words[raw] = true
	}
	return words
}

func normalizeFact(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}
