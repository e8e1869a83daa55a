package scheduler

import (
	"math"
	"time"

	"github.com/velvetlabs/amora/internal/types"
)

const (
	responseRateWeight  = 40.0
	responseSpeedWeight = 30.0
	messageLenWeight    = 15.0
	streakWeight        = 15.0

	referenceMessageLen  = 200.0
	referenceStreakDays  = 14.0
	responseDelayHorizon = 12.0 // hours
)

// EngagementScore is a composite [0,100] responsiveness metric: response rate
// (40%), response speed (30%), average message length against a 200-character
// reference (15%), and current streak against a 14-day reference (15%). A
// diagnostic signal for tuning; it gates nothing by itself.
func EngagementScore(events []types.ProactiveSendEvent, avgMessageLen float64, streak int) float64 {
	score := responseRateWeight * responseRate(events)
	score += responseSpeedWeight * responseSpeed(events)
	score += messageLenWeight * math.Min(1, avgMessageLen/referenceMessageLen)
	score += streakWeight * math.Min(1, float64(streak)/referenceStreakDays)

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func responseRate(events []types.ProactiveSendEvent) float64 {
	if len(events) == 0 {
		return 0
	}
	answered := 0
	for _, ev := range events {
		if ev.RespondedAt != nil {
			answered++
		}
	}
	return float64(answered) / float64(len(events))
}

// responseSpeed decays with the average response delay, capped at a 12h
// horizon beyond which a response counts as no faster than none at all.
func responseSpeed(events []types.ProactiveSendEvent) float64 {
	var total time.Duration
	answered := 0
	for _, ev := range events {
		if ev.RespondedAt == nil {
			continue
		}
		total += ev.RespondedAt.Sub(ev.SentAt)
		answered++
	}
	if answered == 0 {
		return 0
	}
	avgHours := (total / time.Duration(answered)).Hours()
	if avgHours >= responseDelayHorizon {
		return 0
	}
	return math.Exp(-avgHours / 3)
}
