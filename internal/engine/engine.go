// Package engine orchestrates the per-message pipeline: emotion, mood and
// conflict state, retention, and context assembly.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/velvetlabs/amora/internal/emotion"
	"github.com/velvetlabs/amora/internal/mood"
	"github.com/velvetlabs/amora/internal/prompt"
	"github.com/velvetlabs/amora/internal/retention"
	"github.com/velvetlabs/amora/internal/scheduler"
	"github.com/velvetlabs/amora/internal/types"
)

const (
	factFetchLimit    = 50
	historyFetchLimit = 60
)

// RetentionStore persists per-user retention state.
type RetentionStore interface {
	Get(ctx context.Context, userID int64) (types.RetentionState, bool, error)
	Save(ctx context.Context, state types.RetentionState) error
}

// FactSource supplies extracted long-term facts for a user.
type FactSource interface {
	FactsFor(ctx context.Context, userID int64, limit int) ([]types.MemoryFact, error)
}

// HistoryStore reads and appends conversation turns.
type HistoryStore interface {
	RecentMessages(ctx context.Context, userID int64, limit int) ([]types.ConversationTurn, error)
	AddTurn(ctx context.Context, userID int64, turn types.ConversationTurn, embedding []float32) error
}

// Engine is the single entry point message handlers call into. All state
// crossings happen here; the underlying packages stay pure.
type Engine struct {
	classifier emotion.Classifier
	moods      *mood.Service
	scheduler  *scheduler.Service
	retention  RetentionStore
	facts      FactSource
	history    HistoryStore
	builder    *prompt.Builder
	nowFunc    func() time.Time
}

// Config collects the engine dependencies. Facts and History may be nil; the
// context builder then works from what the caller passes in directly.
type Config struct {
	Classifier emotion.Classifier
	Moods      *mood.Service
	Scheduler  *scheduler.Service
	Retention  RetentionStore
	Facts      FactSource
	History    HistoryStore
	MaxTokens  int
}

// New returns an Engine.
func New(cfg Config) *Engine {
	return &Engine{
		classifier: cfg.Classifier,
		moods:      cfg.Moods,
		scheduler:  cfg.Scheduler,
		retention:  cfg.Retention,
		facts:      cfg.Facts,
		history:    cfg.History,
		builder:    prompt.NewBuilder(cfg.MaxTokens),
		nowFunc:    time.Now,
	}
}

// SetClock injects a fixed clock for tests.
func (e *Engine) SetClock(now func() time.Time) {
	if now != nil {
		e.nowFunc = now
	}
}

// MessageResult is everything downstream response generation needs to know
// about one inbound message.
type MessageResult struct {
	Emotion       emotion.Classification
	Conflict      types.ConflictRecord
	Retention     types.RetentionState
	StageChanged  bool
	StreakMessage string
}

// HandleMessage runs the full inbound pipeline for one user message:
// classify, update mood and conflict, advance retention, mark any pending
// proactive send as answered, and append the turn to history.
func (e *Engine) HandleMessage(ctx context.Context, userID int64, text string) (MessageResult, error) {
	now := e.nowFunc()

	var result MessageResult
	if e.classifier != nil {
		result.Emotion = e.classifier.Classify(ctx, text)
	} else {
		result.Emotion = emotion.Neutral()
	}

	if e.moods != nil {
		result.Conflict = e.moods.RecordMessage(ctx, userID, text, result.Emotion)
	}

	state, err := e.advanceRetention(ctx, userID, now)
	if err != nil {
		return result, err
	}
	result.Retention = state.state
	result.StageChanged = state.changed
	if state.extended {
		result.StreakMessage = retention.StreakMessage(state.state.Streak)
	}

	if e.scheduler != nil {
		e.scheduler.RecordResponse(ctx, userID)
	}

	if e.history != nil {
		turn := types.ConversationTurn{Role: types.RoleUser, Content: text, Timestamp: now}
		if err := e.history.AddTurn(ctx, userID, turn, nil); err != nil {
			slog.Warn("failed to record user turn", "user_id", userID, "error", err.Error())
		}
	}

	return result, nil
}

// RecordReply appends the assistant's reply to history.
func (e *Engine) RecordReply(ctx context.Context, userID int64, text string) {
	if e.history == nil {
		return
	}
	turn := types.ConversationTurn{Role: types.RoleAssistant, Content: text, Timestamp: e.nowFunc()}
	if err := e.history.AddTurn(ctx, userID, turn, nil); err != nil {
		slog.Warn("failed to record assistant turn", "user_id", userID, "error", err.Error())
	}
}

type retentionAdvance struct {
	state    types.RetentionState
	changed  bool
	extended bool
}

func (e *Engine) advanceRetention(ctx context.Context, userID int64, now time.Time) (retentionAdvance, error) {
	var state types.RetentionState
	if e.retention != nil {
		loaded, _, err := e.retention.Get(ctx, userID)
		if err != nil {
			return retentionAdvance{}, fmt.Errorf("failed to load retention state: %w", err)
		}
		state = loaded
	}
	state.UserID = userID

	streakBefore := state.Streak
	advanced, changed := retention.Advance(state, now)

	if e.retention != nil {
		if err := e.retention.Save(ctx, advanced); err != nil {
			return retentionAdvance{}, fmt.Errorf("failed to save retention state: %w", err)
		}
	}
	return retentionAdvance{
		state:    advanced,
		changed:  changed,
		extended: advanced.Streak > streakBefore && advanced.Streak > 1,
	}, nil
}

// BuildContext assembles the model request for the user's next reply: system
// prompt plus mood and conflict directives, the tiered memory block, and the
// token-budgeted history window.
func (e *Engine) BuildContext(ctx context.Context, userID int64, systemPrompt, currentMessage string, nsfw bool) (prompt.BuildResult, error) {
	sys := systemPrompt
	if e.moods != nil {
		if instr := e.moods.MoodInstruction(ctx, userID); instr != "" {
			sys += "\n\n" + instr
		}
		if modifier := e.moods.ConflictPromptModifier(ctx, userID); modifier != "" {
			sys += "\n\n" + modifier
		}
	}

	var history []types.ConversationTurn
	if e.history != nil {
		turns, err := e.history.RecentMessages(ctx, userID, historyFetchLimit)
		if err != nil {
			return prompt.BuildResult{}, fmt.Errorf("failed to load history: %w", err)
		}
		history = turns
	}

	var facts []types.MemoryFact
	if e.facts != nil {
		loaded, err := e.facts.FactsFor(ctx, userID, factFetchLimit)
		if err != nil {
			slog.Warn("failed to load memory facts", "user_id", userID, "error", err.Error())
		} else {
			facts = loaded
		}
	}

	return e.builder.Build(prompt.BuildRequest{
		History:        history,
		Facts:          facts,
		SystemPrompt:   sys,
		CurrentMessage: currentMessage,
		NSFW:           nsfw,
	}), nil
}

// Retention implements scheduler.RetentionSource.
func (e *Engine) Retention(ctx context.Context, userID int64) (types.RetentionState, bool) {
	if e.retention == nil {
		return types.RetentionState{}, false
	}
	state, ok, err := e.retention.Get(ctx, userID)
	if err != nil {
		slog.Warn("failed to load retention state", "user_id", userID, "error", err.Error())
		return types.RetentionState{}, false
	}
	return state, ok
}

// ShouldSendProactive reports whether a proactive message of msgType may go
// out to the user right now.
func (e *Engine) ShouldSendProactive(ctx context.Context, userID int64, msgType types.ProactiveType, lastSentAt time.Time) bool {
	if e.scheduler == nil {
		return false
	}
	return e.scheduler.ShouldSendProactive(ctx, userID, msgType, lastSentAt)
}

// BestLocalHourFor returns the best local hour to schedule msgType.
func (e *Engine) BestLocalHourFor(ctx context.Context, userID int64, msgType types.ProactiveType) int {
	if e.scheduler == nil {
		return 12
	}
	return e.scheduler.BestLocalHourFor(ctx, userID, msgType)
}
