package mood

import (
	"strings"
	"time"

	"github.com/velvetlabs/amora/internal/types"
)

const (
	neglectSevereAfter  = 48.0 // hours
	neglectMildAfter    = 24.0
	jealousySevereAbove = 75.0
	jealousyMildAbove   = 40.0
	randomMoodChance    = 0.02

	escalationThreshold = 2
	resolvedLinger      = 15 * time.Minute
)

var (
	lovePhrases = []string{
		"i love you", "love you so much", "you're my everything",
		"youre my everything", "you mean everything", "i'm yours", "im yours",
	}
	apologyPhrases = []string{
		"i'm sorry", "im sorry", "i am sorry", "my bad", "forgive me",
		"i apologize", "i was wrong", "didn't mean", "didnt mean",
	}
	reassurancePhrases = []string{
		"you're the only one", "youre the only one", "only you",
		"no one else", "nobody else", "i promise", "never leave you",
		"nothing happened", "she's just a friend", "hes just a friend",
		"he's just a friend", "shes just a friend",
	}
)

// Effect is a side effect a conflict transition asks the caller to dispatch.
// Transitions stay pure; dispatch is fire-and-forget.
type Effect struct {
	Kind   EffectKind
	Reason string
}

type EffectKind string

const (
	// EffectAwardXP credits the user for resolving a conflict. Emitted exactly
	// once per resolution.
	EffectAwardXP EffectKind = "award_xp"
)

// DecayResolved resets a resolved record back to none once the makeup-phase
// linger window has elapsed. Call on every read.
func DecayResolved(record types.ConflictRecord, now time.Time) types.ConflictRecord {
	if record.State != types.ConflictResolved || record.ResolvedAt == nil {
		return record
	}
	if now.Sub(*record.ResolvedAt) > resolvedLinger {
		return types.ConflictRecord{State: types.ConflictNone}
	}
	return record
}

// EvaluateTrigger decides whether a new conflict starts. Only meaningful when
// the current state is none (callers decay resolved records first). Reasons
// are checked in strict priority order; the first match wins. pendingUpset is
// the consumed-once flag from the mood store. chance is a uniform [0,1) draw
// supplied by the caller so tests stay deterministic.
func EvaluateTrigger(state types.MoodState, hoursSinceInteraction float64, pendingUpset bool, chance float64, now time.Time) types.ConflictRecord {
	reason, ok := triggerReason(state, hoursSinceInteraction, pendingUpset, chance)
	if !ok {
		return types.ConflictRecord{State: types.ConflictNone}
	}
	return types.ConflictRecord{
		State:       types.ConflictTriggered,
		TriggeredAt: now,
		Reason:      reason,
	}
}

func triggerReason(state types.MoodState, hours float64, pendingUpset bool, chance float64) (types.ConflictReason, bool) {
	switch {
	case hours > neglectSevereAfter:
		return types.ReasonNeglectSevere, true
	case state.JealousyMeter > jealousySevereAbove:
		return types.ReasonJealousySevere, true
	case hours > neglectMildAfter && pendingUpset:
		return types.ReasonNeglectMild, true
	case state.JealousyMeter > jealousyMildAbove:
		return types.ReasonJealousyMild, true
	case chance < randomMoodChance:
		return types.ReasonRandomMood, true
	default:
		return "", false
	}
}

// ProcessMessage advances an active conflict with one user message and returns
// the pending effects the caller must dispatch. No-op when state is none.
func ProcessMessage(record types.ConflictRecord, text string, now time.Time) (types.ConflictRecord, []Effect) {
	if record.State == types.ConflictNone || record.State == types.ConflictResolved {
		return record, nil
	}

	lowered := strings.ToLower(text)

	if containsAny(lowered, lovePhrases) {
		return resolve(record, now)
	}

	if containsAny(lowered, apologyPhrases) {
		switch record.State {
		case types.ConflictResolving:
			return resolve(record, now)
		default:
			record.State = types.ConflictResolving
			return record, nil
		}
	}

	if record.State == types.ConflictResolving && containsAny(lowered, reassurancePhrases) {
		return resolve(record, now)
	}

	// Anything else digs the hole deeper.
	record.EscalationCount++
	if record.State == types.ConflictTriggered && record.EscalationCount >= escalationThreshold {
		record.State = types.ConflictEscalating
	}
	return record, nil
}

func resolve(record types.ConflictRecord, now time.Time) (types.ConflictRecord, []Effect) {
	record.State = types.ConflictResolved
	resolvedAt := now
	record.ResolvedAt = &resolvedAt
	return record, []Effect{{Kind: EffectAwardXP, Reason: "conflict_resolved"}}
}

func containsAny(text string, phrases []string) bool {
	for _, phrase := range phrases {
		if phrase == "" {
			continue
		}
		if strings.Contains(text, phrase) {
			return true
		}
	}
	return false
}
