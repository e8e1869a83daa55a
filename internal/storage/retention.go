package storage

import (
	"context"
	"log/slog"

	"github.com/velvetlabs/amora/internal/repository"
	"github.com/velvetlabs/amora/internal/types"
)

// RetentionAdapter exposes the retention repo through the error-free read
// surface the scheduler wants. Implements scheduler.RetentionSource.
type RetentionAdapter struct {
	repo *repository.RetentionRepo
}

// NewRetentionAdapter returns a RetentionAdapter.
func NewRetentionAdapter(repo *repository.RetentionRepo) *RetentionAdapter {
	return &RetentionAdapter{repo: repo}
}

// Retention returns the user's retention state, treating load errors as
// absence.
func (a *RetentionAdapter) Retention(ctx context.Context, userID int64) (types.RetentionState, bool) {
	if a.repo == nil {
		return types.RetentionState{}, false
	}
	state, ok, err := a.repo.Get(ctx, userID)
	if err != nil {
		slog.Warn("failed to load retention state", "user_id", userID, "error", err.Error())
		return types.RetentionState{}, false
	}
	return state, ok
}
