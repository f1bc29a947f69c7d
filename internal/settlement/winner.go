package settlement

import (
	"fmt"

	"tournament/internal/models"
)

// ResolveWinner picks the winning address for the given expiry logic.
//
// For ExpiryLogicScore, records may arrive in any order; the highest score wins
// and equal scores go to the most recent record. For ExpiryLogicLastSender,
// history must be ordered by date descending.
func ResolveWinner(logic models.ExpiryLogic, history []models.Chat) (string, error) {
	switch logic {
	case models.ExpiryLogicScore:
		return resolveByScore(history)
	case models.ExpiryLogicLastSender:
		return resolveByLastSender(history)
	default:
		return "", fmt.Errorf("%w: unsupported expiry logic %q", ErrNoEligibleWinner, logic)
	}
}

func resolveByScore(history []models.Chat) (string, error) {
	var best *models.Chat
	var bestScore float64

	for i := range history {
		chat := &history[i]
		if chat.Role == models.ChatRoleSystem || chat.Address == "" {
			continue
		}

		score, ok := chat.Score()
		if !ok {
			continue
		}

		if best == nil || score > bestScore || (score == bestScore && chat.Date.After(best.Date)) {
			best = chat
			bestScore = score
		}
	}

	if best == nil {
		return "", fmt.Errorf("%w: no scored activity", ErrNoEligibleWinner)
	}

	return best.Address, nil
}

func resolveByLastSender(history []models.Chat) (string, error) {
	for _, chat := range history {
		if chat.Role == models.ChatRoleSystem {
			continue
		}
		if chat.Address == "" {
			break
		}
		return chat.Address, nil
	}

	return "", fmt.Errorf("%w: empty history", ErrNoEligibleWinner)
}
