package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"github.com/velvetlabs/amora/internal/types"
)

// factModel maps to the memory_facts table.
type factModel struct {
	ID         int
	UserID     int64
	Fact       string
	Category   string
	Confidence float64
	// Embedding stores the vector representation for similarity search.
	Embedding *pgvector.Vector `gorm:"type:vector"`
	CreatedAt time.Time
}

func (factModel) TableName() string {
	return "memory_facts"
}

// FactRepo accesses long-term memory facts.
type FactRepo struct {
	db *gorm.DB
}

// NewFactRepo returns a FactRepo.
func NewFactRepo(db *gorm.DB) *FactRepo {
	return &FactRepo{db: db}
}

// AddFact inserts an extracted fact; embedding may be empty.
func (r *FactRepo) AddFact(ctx context.Context, userID int64, fact types.MemoryFact, embedding []float32) error {
	var vector *pgvector.Vector
	if len(embedding) > 0 {
		v := pgvector.NewVector(embedding)
		vector = &v
	}
	record := factModel{
		UserID:     userID,
		Fact:       fact.Fact,
		Category:   string(fact.Category),
		Confidence: fact.Confidence,
		Embedding:  vector,
	}
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("failed to insert memory fact: %w", err)
	}
	return nil
}

// FactsFor fetches the user's facts, newest first.
func (r *FactRepo) FactsFor(ctx context.Context, userID int64, limit int) ([]types.MemoryFact, error) {
	var records []factModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to query memory facts: %w", err)
	}

	results := make([]types.MemoryFact, 0, len(records))
	for _, record := range records {
		results = append(results, factFromModel(record))
	}
	return results, nil
}

// SearchSimilar ranks the user's facts by cosine similarity to the query
// embedding, re-ranked by extraction confidence.
func (r *FactRepo) SearchSimilar(ctx context.Context, userID int64, embedding []float32, topK int, threshold float64) ([]types.MemoryFact, error) {
	if len(embedding) == 0 {
		return nil, nil
	}

	query := `
		SELECT id, fact, category, confidence, created_at
		FROM memory_facts
		WHERE user_id = $2
		  AND embedding IS NOT NULL
		  AND 1 - (embedding <=> $1) > $3
		ORDER BY (0.85 * (1 - (embedding <=> $1)) + 0.15 * confidence) DESC
		LIMIT $4`

	vector := pgvector.NewVector(embedding)
	var records []factModel
	if err := r.db.WithContext(ctx).
		Raw(query, vector, userID, threshold, topK).
		Scan(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to search similar facts: %w", err)
	}

	results := make([]types.MemoryFact, 0, len(records))
	for _, record := range records {
		results = append(results, factFromModel(record))
	}
	return results, nil
}

func factFromModel(record factModel) types.MemoryFact {
	return types.MemoryFact{
		ID:         record.ID,
		Fact:       record.Fact,
		Category:   types.ParseFactCategory(record.Category),
		Confidence: record.Confidence,
		CreatedAt:  record.CreatedAt,
	}
}
