package mood

import (
	"math"
	"time"

	"github.com/velvetlabs/amora/internal/emotion"
	"github.com/velvetlabs/amora/internal/types"
)

const (
	happinessBaseline = 50.0
	affectionBaseline = 50.0

	// Half-lives in hours for the drift back toward baseline. Jealousy cools
	// faster than affection warms down; both are consistent with the conflict
	// thresholds (jealousy >40 mild / >75 severe, neglect >24h / >48h).
	moodHalfLifeHours     = 24.0
	jealousyHalfLifeHours = 8.0

	trajectoryCap = 8
	upsetAfter    = 24 * time.Hour
)

// DefaultMoodState is the state assumed for a user the engine has never seen.
func DefaultMoodState(now time.Time) types.MoodState {
	return types.MoodState{
		BaseHappiness:     happinessBaseline,
		AffectionLevel:    affectionBaseline,
		JealousyMeter:     0,
		LastInteractionAt: now,
	}
}

// Decay drifts the mood toward baseline over the idle time since the last
// interaction and raises the pending-upset flag after a long silence. It does
// not advance LastInteractionAt; that happens when a message is applied.
func Decay(state types.MoodState, now time.Time) types.MoodState {
	elapsed := now.Sub(state.LastInteractionAt)
	if elapsed <= 0 {
		return state
	}

	hours := elapsed.Hours()
	state.BaseHappiness = driftToward(state.BaseHappiness, happinessBaseline, hours, moodHalfLifeHours)
	state.AffectionLevel = driftToward(state.AffectionLevel, affectionBaseline, hours, moodHalfLifeHours)
	state.JealousyMeter = driftToward(state.JealousyMeter, 0, hours, jealousyHalfLifeHours)

	if elapsed > upsetAfter {
		state.PendingUpset = true
	}
	return state
}

// Apply folds one classified message into the mood. Decay runs first, then the
// emotion adjusts the meters and is recorded in the trailing trajectory log.
func Apply(state types.MoodState, cls emotion.Classification, now time.Time) types.MoodState {
	state = Decay(state, now)

	switch cls.Label {
	case emotion.LabelLoving:
		state.AffectionLevel += 5 * cls.Confidence
		state.BaseHappiness += 3 * cls.Confidence
	case emotion.LabelHappy, emotion.LabelPlayful:
		state.BaseHappiness += 3 * cls.Confidence
	case emotion.LabelSad, emotion.LabelLonely:
		state.BaseHappiness -= 3 * cls.Confidence
	case emotion.LabelAngry:
		state.BaseHappiness -= 5 * cls.Confidence
		state.AffectionLevel -= 3 * cls.Confidence
	case emotion.LabelJealous:
		state.JealousyMeter += 10 + 20*cls.Confidence
	case emotion.LabelAnxious, emotion.LabelHorny, emotion.LabelNeutral:
		// No meter movement beyond decay.
	}

	state.BaseHappiness = clampMeter(state.BaseHappiness)
	state.AffectionLevel = clampMeter(state.AffectionLevel)
	state.JealousyMeter = clampMeter(state.JealousyMeter)

	state.Trajectory = append(state.Trajectory, types.EmotionSnapshot{
		Emotion:   string(cls.Label),
		Intensity: cls.Confidence,
		Timestamp: now,
	})
	if len(state.Trajectory) > trajectoryCap {
		state.Trajectory = state.Trajectory[len(state.Trajectory)-trajectoryCap:]
	}

	state.LastInteractionAt = now
	return state
}

// driftToward moves value toward target with the given half-life. Monotonic in
// elapsed time; never overshoots the target.
func driftToward(value, target, hours, halfLife float64) float64 {
	if hours <= 0 || value == target {
		return value
	}
	return target + (value-target)*math.Exp2(-hours/halfLife)
}

func clampMeter(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
