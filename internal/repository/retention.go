package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/velvetlabs/amora/internal/types"
)

// retentionModel maps to the retention_states table, one row per user.
type retentionModel struct {
	UserID            int64 `gorm:"primaryKey"`
	Streak            int
	LastChatDate      string
	MessageCount      int
	Stage             string
	LastJealousyAt    *time.Time
	LastCliffhangerAt *time.Time
	UpdatedAt         time.Time
}

func (retentionModel) TableName() string {
	return "retention_states"
}

// RetentionRepo accesses per-user retention state.
type RetentionRepo struct {
	db *gorm.DB
}

// NewRetentionRepo returns a RetentionRepo.
func NewRetentionRepo(db *gorm.DB) *RetentionRepo {
	return &RetentionRepo{db: db}
}

// Get fetches the retention state for a user; the bool reports whether a row
// exists yet.
func (r *RetentionRepo) Get(ctx context.Context, userID int64) (types.RetentionState, bool, error) {
	var record retentionModel
	err := r.db.WithContext(ctx).First(&record, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return types.RetentionState{UserID: userID}, false, nil
	}
	if err != nil {
		return types.RetentionState{}, false, fmt.Errorf("failed to get retention state: %w", err)
	}
	return retentionFromModel(record), true, nil
}

// Save upserts the retention state keyed by user ID.
func (r *RetentionRepo) Save(ctx context.Context, state types.RetentionState) error {
	record := retentionModel{
		UserID:            state.UserID,
		Streak:            state.Streak,
		LastChatDate:      state.LastChatDate,
		MessageCount:      state.MessageCount,
		Stage:             string(state.Stage),
		LastJealousyAt:    state.LastJealousyAt,
		LastCliffhangerAt: state.LastCliffhangerAt,
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			UpdateAll: true,
		}).
		Create(&record).Error
	if err != nil {
		return fmt.Errorf("failed to save retention state: %w", err)
	}
	return nil
}

// ActiveUserIDs lists users who chatted within the last maxIdleDays days,
// candidates for proactive outreach.
func (r *RetentionRepo) ActiveUserIDs(ctx context.Context, maxIdleDays int) ([]int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -maxIdleDays).Format("2006-01-02")
	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&retentionModel{}).
		Where("last_chat_date >= ?", cutoff).
		Order("user_id ASC").
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active users: %w", err)
	}
	return ids, nil
}

func retentionFromModel(record retentionModel) types.RetentionState {
	return types.RetentionState{
		UserID:            record.UserID,
		Streak:            record.Streak,
		LastChatDate:      record.LastChatDate,
		MessageCount:      record.MessageCount,
		Stage:             types.ParseStage(record.Stage),
		LastJealousyAt:    record.LastJealousyAt,
		LastCliffhangerAt: record.LastCliffhangerAt,
	}
}
