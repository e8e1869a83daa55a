package scheduler

import (
	"time"

	"github.com/velvetlabs/amora/internal/types"
)

const (
	activeStartHour = 8
	activeEndHour   = 23
)

// defaultSendHour is the fallback local hour per message type, also used as
// the tiebreaker when several hours are equally active.
func defaultSendHour(msgType types.ProactiveType) int {
	switch msgType {
	case types.ProactiveMorning:
		return 9
	case types.ProactiveGoodnight:
		return 22
	case types.ProactiveThinking:
		return 14
	case types.ProactivePhoto:
		return 19
	default:
		return 12
	}
}

// BestLocalHour picks the local hour at which the user is most likely to
// engage with a message of msgType: the busiest hour of their own history
// restricted to 08:00-23:00 local, ties broken by proximity to the
// type default, then nudged out of quiet hours.
func BestLocalHour(timestamps []time.Time, offsetMinutes int, msgType types.ProactiveType, quiet QuietHours) int {
	var histogram [24]int
	for _, ts := range timestamps {
		hour := localHour(ts, offsetMinutes)
		if hour >= activeStartHour && hour < activeEndHour {
			histogram[hour]++
		}
	}

	preferred := defaultSendHour(msgType)
	best := preferred
	bestCount := 0
	for hour := activeStartHour; hour < activeEndHour; hour++ {
		count := histogram[hour]
		if count > bestCount {
			best = hour
			bestCount = count
			continue
		}
		if count == bestCount && count > 0 && hourDistance(hour, preferred) < hourDistance(best, preferred) {
			best = hour
		}
	}

	for i := 0; i < 24 && quiet.Contains(best); i++ {
		best = (best + 1) % 24
	}
	return best
}

// BestUTCHour converts the best local hour back to UTC for scheduling.
func BestUTCHour(timestamps []time.Time, offsetMinutes int, msgType types.ProactiveType, quiet QuietHours) int {
	local := BestLocalHour(timestamps, offsetMinutes, msgType, quiet)
	utc := local - offsetMinutes/60
	return ((utc % 24) + 24) % 24
}

func hourDistance(a, b int) int {
	d := a - b
	if d < 0 {
		d = -d
	}
	if d > 12 {
		d = 24 - d
	}
	return d
}
