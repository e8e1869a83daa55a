package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"github.com/velvetlabs/amora/internal/types"
)

type chatMessageModel struct {
	ID        int
	UserID    int64
	Role      string
	Content   string
	Embedding *pgvector.Vector `gorm:"type:vector"`
	CreatedAt time.Time
}

func (chatMessageModel) TableName() string {
	return "chat_history"
}

// ChatHistoryRepo accesses chat history data.
type ChatHistoryRepo struct {
	db *gorm.DB
}

// NewChatHistoryRepo returns a ChatHistoryRepo.
func NewChatHistoryRepo(db *gorm.DB) *ChatHistoryRepo {
	return &ChatHistoryRepo{db: db}
}

// AddTurn appends one conversation turn; embedding may be empty.
func (r *ChatHistoryRepo) AddTurn(ctx context.Context, userID int64, turn types.ConversationTurn, embedding []float32) error {
	var vector *pgvector.Vector
	if len(embedding) > 0 {
		v := pgvector.NewVector(embedding)
		vector = &v
	}
	record := chatMessageModel{
		UserID:    userID,
		Role:      string(turn.Role),
		Content:   turn.Content,
		Embedding: vector,
		CreatedAt: turn.Timestamp,
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("failed to insert chat message: %w", err)
	}
	return nil
}

// RecentMessages returns the user's last messages, oldest first.
func (r *ChatHistoryRepo) RecentMessages(ctx context.Context, userID int64, limit int) ([]types.ConversationTurn, error) {
	var records []chatMessageModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to query chat history: %w", err)
	}

	results := make([]types.ConversationTurn, 0, len(records))
	for _, record := range records {
		results = append(results, types.ConversationTurn{
			Role:      types.Role(record.Role),
			Content:   record.Content,
			Timestamp: record.CreatedAt,
		})
	}

	// Oldest -> newest
	for i, j := 0, len(results)-1; i < j; i, j = i+1, j-1 {
		results[i], results[j] = results[j], results[i]
	}
	return results, nil
}

// SearchSimilar finds past turns semantically close to the query embedding.
func (r *ChatHistoryRepo) SearchSimilar(ctx context.Context, userID int64, embedding []float32, topK int, threshold float64) ([]types.ConversationTurn, error) {
	if len(embedding) == 0 {
		return nil, nil
	}

	query := `
		SELECT role, content, created_at
		FROM chat_history
		WHERE user_id = $2
		  AND embedding IS NOT NULL
		  AND 1 - (embedding <=> $1) > $3
		ORDER BY 1 - (embedding <=> $1) DESC
		LIMIT $4`

	vector := pgvector.NewVector(embedding)
	var records []chatMessageModel
	if err := r.db.WithContext(ctx).
		Raw(query, vector, userID, threshold, topK).
		Scan(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to search chat history: %w", err)
	}

	results := make([]types.ConversationTurn, 0, len(records))
	for _, record := range records {
		results = append(results, types.ConversationTurn{
			Role:      types.Role(record.Role),
			Content:   record.Content,
			Timestamp: record.CreatedAt,
		})
	}
	return results, nil
}
