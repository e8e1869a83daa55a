package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// sessionModel maps to the session_values table, a per-user key-value store
// backing mood, conflict, and scheduler state.
type sessionModel struct {
	UserID    int64  `gorm:"primaryKey"`
	Key       string `gorm:"primaryKey;column:key"`
	Value     string
	UpdatedAt time.Time
}

func (sessionModel) TableName() string {
	return "session_values"
}

// SessionRepo accesses per-user session values.
type SessionRepo struct {
	db *gorm.DB
}

// NewSessionRepo returns a SessionRepo.
func NewSessionRepo(db *gorm.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

// Get fetches a session value; a missing key returns "" without error.
func (r *SessionRepo) Get(ctx context.Context, userID int64, key string) (string, error) {
	var record sessionModel
	err := r.db.WithContext(ctx).
		First(&record, "user_id = ? AND key = ?", userID, key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get session value: %w", err)
	}
	return record.Value, nil
}

// Set upserts a session value.
func (r *SessionRepo) Set(ctx context.Context, userID int64, key, value string) error {
	record := sessionModel{UserID: userID, Key: key, Value: value}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&record).Error
	if err != nil {
		return fmt.Errorf("failed to set session value: %w", err)
	}
	return nil
}
