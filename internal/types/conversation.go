package types

import "time"

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ConversationTurn is one message in the chat history. Turns come from the
// message store and are never mutated by the engine.
type ConversationTurn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// FactCategory classifies a long-term memory fact.
type FactCategory string

const (
	FactIdentity      FactCategory = "identity"
	FactPreference    FactCategory = "preference"
	FactEmotional     FactCategory = "emotional"
	FactRelationship  FactCategory = "relationship"
	FactKink          FactCategory = "kink"
	FactSummary       FactCategory = "summary"
	FactUncategorized FactCategory = "uncategorized"
)

// ParseFactCategory maps stored category strings to a FactCategory,
// defaulting to FactUncategorized for anything unknown.
func ParseFactCategory(s string) FactCategory {
	switch FactCategory(s) {
	case FactIdentity, FactPreference, FactEmotional, FactRelationship, FactKink, FactSummary:
		return FactCategory(s)
	default:
		return FactUncategorized
	}
}

// MemoryFact is an extracted long-term fact about the user. Facts are created
// by an external extraction step; the engine only selects and ranks them.
type MemoryFact struct {
	ID         int          `json:"id"`
	Fact       string       `json:"fact"`
	Category   FactCategory `json:"category"`
	Confidence float64      `json:"confidence"`
	CreatedAt  time.Time    `json:"created_at"`
}
