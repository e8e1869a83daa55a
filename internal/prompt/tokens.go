package prompt

import "github.com/velvetlabs/amora/internal/types"

// Token estimation uses a fixed character ratio plus per-message overhead.
// Intentionally approximate: the budget only needs a conservative, monotonic
// proxy, not exact tokenization.
const (
	charsPerToken       = 4
	perMessageOverhead  = 4
	DefaultMaxTokens    = 4000
	historyTokenFloor   = 400
)

// EstimateTokens returns the token estimate for a piece of message text.
func EstimateTokens(text string) int {
	return len(text)/charsPerToken + perMessageOverhead
}

// EstimateTurns sums the estimates for a set of turns.
func EstimateTurns(turns []types.ConversationTurn) int {
	total := 0
	for _, turn := range turns {
		total += EstimateTokens(turn.Content)
	}
	return total
}
