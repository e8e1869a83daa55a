package types

import "time"

// Stage is the coarse relationship-progress bucket.
type Stage string

const (
	StageNew         Stage = "new"
	StageComfortable Stage = "comfortable"
	StageIntimate    Stage = "intimate"
	StageObsessed    Stage = "obsessed"
)

// ParseStage maps stored stage strings to a Stage, defaulting to StageNew.
func ParseStage(s string) Stage {
	switch Stage(s) {
	case StageComfortable, StageIntimate, StageObsessed:
		return Stage(s)
	default:
		return StageNew
	}
}

// RetentionState tracks cumulative activity for one user. Created on first
// message and mutated on every message; never deleted.
type RetentionState struct {
	UserID            int64      `json:"user_id"`
	Streak            int        `json:"streak"`
	LastChatDate      string     `json:"last_chat_date"` // YYYY-MM-DD in the reference timezone
	MessageCount      int        `json:"message_count"`
	Stage             Stage      `json:"stage"`
	LastJealousyAt    *time.Time `json:"last_jealousy_trigger_at,omitempty"`
	LastCliffhangerAt *time.Time `json:"last_cliffhanger_at,omitempty"`
}

// ConflictState is the discrete phase of the conflict loop.
type ConflictState string

const (
	ConflictNone       ConflictState = "none"
	ConflictTriggered  ConflictState = "triggered"
	ConflictEscalating ConflictState = "escalating"
	ConflictResolving  ConflictState = "resolving"
	ConflictResolved   ConflictState = "resolved"
)

// ConflictReason names what started a conflict.
type ConflictReason string

const (
	ReasonJealousyMild   ConflictReason = "jealousy_mild"
	ReasonJealousySevere ConflictReason = "jealousy_severe"
	ReasonNeglectMild    ConflictReason = "neglect_mild"
	ReasonNeglectSevere  ConflictReason = "neglect_severe"
	ReasonRandomMood     ConflictReason = "random_mood"
)

// ConflictRecord is the single active conflict for one user.
type ConflictRecord struct {
	State           ConflictState  `json:"state"`
	TriggeredAt     time.Time      `json:"triggered_at"`
	Reason          ConflictReason `json:"trigger_reason"`
	EscalationCount int            `json:"escalation_count"`
	ResolvedAt      *time.Time     `json:"resolved_at,omitempty"`
}

// EmotionSnapshot is one entry of the trailing mood trajectory log.
type EmotionSnapshot struct {
	Emotion   string    `json:"emotion"`
	Intensity float64   `json:"intensity"`
	Timestamp time.Time `json:"timestamp"`
}

// MoodState is the continuous per-user mood, decayed over idle time.
type MoodState struct {
	BaseHappiness     float64           `json:"base_happiness"`  // 0-100
	AffectionLevel    float64           `json:"affection_level"` // 0-100
	JealousyMeter     float64           `json:"jealousy_meter"`  // 0-100
	LastInteractionAt time.Time         `json:"last_interaction_at"`
	PendingUpset      bool              `json:"pending_upset"`
	Trajectory        []EmotionSnapshot `json:"trajectory"`
}

// ProactiveType is the kind of unprompted outreach.
type ProactiveType string

const (
	ProactiveMorning   ProactiveType = "morning"
	ProactiveGoodnight ProactiveType = "goodnight"
	ProactiveThinking  ProactiveType = "thinking_of_you"
	ProactivePhoto     ProactiveType = "proactive_photo"
)

// ProactiveSendEvent records one proactive send and whether it was answered.
type ProactiveSendEvent struct {
	SentAt      time.Time     `json:"sent_at"`
	MessageType ProactiveType `json:"message_type"`
	RespondedAt *time.Time    `json:"responded_at,omitempty"`
}
