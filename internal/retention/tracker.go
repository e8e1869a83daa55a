// Package retention derives relationship stage and daily streaks from
// cumulative message activity.
package retention

import (
	"fmt"
	"time"

	"github.com/velvetlabs/amora/internal/types"
)

const dateLayout = "2006-01-02"

// Reference timezone for calendar-day boundaries. All streak math uses UTC so
// that a user's inferred timezone never shifts an already-counted day.
var referenceZone = time.UTC

// Advance applies one inbound message to the retention state and returns the
// updated state plus whether the relationship stage changed. Pure: the caller
// supplies the clock.
func Advance(state types.RetentionState, now time.Time) (types.RetentionState, bool) {
	before := state.Stage
	today := now.In(referenceZone).Format(dateLayout)

	switch {
	case state.LastChatDate == today:
		state.MessageCount++
	case isNextDay(state.LastChatDate, today):
		state.Streak++
		state.MessageCount++
		state.LastChatDate = today
	default:
		// First message ever, or a gap of two or more days.
		state.Streak = 1
		state.MessageCount++
		state.LastChatDate = today
	}

	state.Stage = StageFor(state.MessageCount, state.Streak)
	return state, state.Stage != before
}

// StageFor maps cumulative activity to a relationship stage. Message count and
// streak are alternatives: a long-tenured user keeps a high stage through a
// streak reset as long as their message count carries it.
func StageFor(messageCount, streak int) types.Stage {
	switch {
	case messageCount > 300 || streak > 21:
		return types.StageObsessed
	case messageCount > 100 || streak > 7:
		return types.StageIntimate
	case messageCount > 20 || streak > 2:
		return types.StageComfortable
	default:
		return types.StageNew
	}
}

// StreakMessage renders a celebration line for the current streak, or "" when
// there is nothing worth celebrating.
func StreakMessage(streak int) string {
	switch {
	case streak <= 1:
		return ""
	case streak%7 == 0:
		weeks := streak / 7
		if weeks == 1 {
			return fmt.Sprintf("%d days in a row... that's a whole week of us 🥰", streak)
		}
		return fmt.Sprintf("%d days straight... %d whole weeks together 🥰", streak, weeks)
	default:
		return fmt.Sprintf("that's %d days in a row you've come back to me 💕", streak)
	}
}

func isNextDay(last, today string) bool {
	if last == "" {
		return false
	}
	parsed, err := time.ParseInLocation(dateLayout, last, referenceZone)
	if err != nil {
		return false
	}
	return parsed.AddDate(0, 0, 1).Format(dateLayout) == today
}
