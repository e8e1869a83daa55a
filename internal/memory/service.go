package memory

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/velvetlabs/amora/internal/types"
)

// FactStore persists facts with optional embeddings.
type FactStore interface {
	AddFact(ctx context.Context, userID int64, fact types.MemoryFact, embedding []float32) error
	SearchSimilar(ctx context.Context, userID int64, embedding []float32, topK int, threshold float64) ([]types.MemoryFact, error)
}

// HistorySearcher finds semantically similar past turns.
type HistorySearcher interface {
	SearchSimilar(ctx context.Context, userID int64, embedding []float32, topK int, threshold float64) ([]types.ConversationTurn, error)
}

// Service ties extraction, embedding, and vector search together.
type Service struct {
	embedder  Embedder
	extractor *Extractor
	facts     FactStore
	history   HistorySearcher

	topK                int
	similarityThreshold float64
}

// NewService returns a memory service. extractor and history may be nil.
func NewService(embedder Embedder, extractor *Extractor, facts FactStore, history HistorySearcher, topK int, threshold float64) *Service {
	if topK <= 0 {
		topK = 5
	}
	if threshold <= 0 {
		threshold = 0.7
	}
	return &Service{
		embedder:            embedder,
		extractor:           extractor,
		facts:               facts,
		history:             history,
		topK:                topK,
		similarityThreshold: threshold,
	}
}

// Remember stores one fact with its embedding. Embedding failures degrade to
// storing the fact without a vector.
func (s *Service) Remember(ctx context.Context, userID int64, fact types.MemoryFact) error {
	if s.facts == nil {
		return fmt.Errorf("fact store not configured")
	}
	if fact.CreatedAt.IsZero() {
		fact.CreatedAt = time.Now().UTC()
	}

	var embedding []float32
	if s.embedder != nil {
		vec, err := s.embedder.EmbedDocument(ctx, fact.Fact)
		if err != nil {
			slog.Warn("fact embedding failed, storing without vector", "user_id", userID, "error", err.Error())
		} else {
			embedding = vec
		}
	}
	return s.facts.AddFact(ctx, userID, fact, embedding)
}

// Recall returns the facts most similar to the query.
func (s *Service) Recall(ctx context.Context, userID int64, query string) ([]types.MemoryFact, error) {
	if query == "" || s.embedder == nil || s.facts == nil {
		return nil, nil
	}
	vec, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	return s.facts.SearchSimilar(ctx, userID, vec, s.topK, s.similarityThreshold)
}

// RecallConversation returns past turns semantically close to the query.
func (s *Service) RecallConversation(ctx context.Context, userID int64, query string) ([]types.ConversationTurn, error) {
	if query == "" || s.embedder == nil || s.history == nil {
		return nil, nil
	}
	vec, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	return s.history.SearchSimilar(ctx, userID, vec, s.topK, s.similarityThreshold)
}

// ExtractAndStore runs fact extraction over recent turns and stores whatever
// comes back. Best-effort: per-fact failures are logged, not returned.
func (s *Service) ExtractAndStore(ctx context.Context, userID int64, turns []types.ConversationTurn) int {
	facts := s.extractor.Extract(ctx, turns)
	stored := 0
	for _, fact := range facts {
		if err := s.Remember(ctx, userID, fact); err != nil {
			slog.Warn("failed to store extracted fact", "user_id", userID, "error", err.Error())
			continue
		}
		stored++
	}
	return stored
}
