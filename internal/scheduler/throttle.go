package scheduler

import (
	"time"

	"github.com/velvetlabs/amora/internal/types"
)

const (
	blanketThrottleWindow = 2 * time.Hour
	generalThrottleWindow = 4 * time.Hour
	slowResponderCooldown = 6 * time.Hour
	fastResponseWindow    = 5 * time.Minute
	slowResponseThreshold = 2 * time.Hour
)

// ShouldThrottle decides whether a proactive send of msgType must be
// suppressed given the rolling send history (oldest first). Rules are
// evaluated in order with early exit:
//
//  1. any send within the last 2 hours suppresses;
//  2. the two most recent same-type-or-photo sends both unanswered suppresses;
//  3. the most recent same-type send answered within 5 minutes bypasses all
//     remaining windows (engaged user);
//  4. the most recent same-type send answered only after 2+ hours extends the
//     cooldown to 6 hours;
//  5. otherwise any send within the last 4 hours suppresses.
func ShouldThrottle(events []types.ProactiveSendEvent, msgType types.ProactiveType, now time.Time) bool {
	lastAny := lastSend(events)
	if lastAny != nil && now.Sub(lastAny.SentAt) < blanketThrottleWindow {
		return true
	}

	related := filterSameTypeOrPhoto(events, msgType)
	if len(related) >= 2 {
		a, b := related[len(related)-1], related[len(related)-2]
		if a.RespondedAt == nil && b.RespondedAt == nil {
			return true
		}
	}

	if recent := lastOfType(events, msgType); recent != nil && recent.RespondedAt != nil {
		delay := recent.RespondedAt.Sub(recent.SentAt)
		if delay <= fastResponseWindow {
			return false
		}
		if delay >= slowResponseThreshold && lastAny != nil && now.Sub(lastAny.SentAt) < slowResponderCooldown {
			return true
		}
	}

	return lastAny != nil && now.Sub(lastAny.SentAt) < generalThrottleWindow
}

func lastSend(events []types.ProactiveSendEvent) *types.ProactiveSendEvent {
	if len(events) == 0 {
		return nil
	}
	return &events[len(events)-1]
}

func lastOfType(events []types.ProactiveSendEvent, msgType types.ProactiveType) *types.ProactiveSendEvent {
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].MessageType == msgType {
			return &events[i]
		}
	}
	return nil
}

func filterSameTypeOrPhoto(events []types.ProactiveSendEvent, msgType types.ProactiveType) []types.ProactiveSendEvent {
	var out []types.ProactiveSendEvent
	for _, ev := range events {
		if ev.MessageType == msgType || ev.MessageType == types.ProactivePhoto {
			out = append(out, ev)
		}
	}
	return out
}
