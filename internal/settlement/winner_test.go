package settlement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tournament/internal/models"
)

func scored(address string, score float64, date time.Time) models.Chat {
	return models.Chat{Role: models.ChatRoleUser, Address: address, Date: date, ToolCalls: &models.ToolCalls{Score: &score}}
}

func TestResolveWinnerByScore(t *testing.T) {
	t1 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Minute)
	t3 := t2.Add(time.Minute)

	t.Run("tie goes to the most recent record", func(t *testing.T) {
		history := []models.Chat{scored("a", 10, t1), scored("b", 30, t2), scored("c", 30, t3)}

		winner, err := ResolveWinner(models.ExpiryLogicScore, history)
		require.NoError(t, err)
		assert.Equal(t, "c", winner)
	})

	t.Run("order of input does not matter", func(t *testing.T) {
		history := []models.Chat{scored("c", 30, t3), scored("a", 10, t1), scored("b", 30, t2)}

		winner, err := ResolveWinner(models.ExpiryLogicScore, history)
		require.NoError(t, err)
		assert.Equal(t, "c", winner)
	})

	t.Run("unscored and system records are ignored", func(t *testing.T) {
		history := []models.Chat{
			{Role: models.ChatRoleUser, Address: "x", Date: t3},
			{Role: models.ChatRoleSystem, Address: "sys", Date: t3, ToolCalls: &models.ToolCalls{Score: ptr(99.0)}},
			scored("a", 5, t1),
		}

		winner, err := ResolveWinner(models.ExpiryLogicScore, history)
		require.NoError(t, err)
		assert.Equal(t, "a", winner)
	})

	t.Run("no score", func(t *testing.T) {
		_, err := ResolveWinner(models.ExpiryLogicScore, []models.Chat{{Role: models.ChatRoleUser, Address: "a", Date: t1}})
		assert.ErrorIs(t, err, ErrNoEligibleWinner)
	})
}

func TestResolveWinnerByLastSender(t *testing.T) {
	t1 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Minute)

	t.Run("empty history", func(t *testing.T) {
		_, err := ResolveWinner(models.ExpiryLogicLastSender, nil)
		assert.ErrorIs(t, err, ErrNoEligibleWinner)
	})

	t.Run("most recent sender", func(t *testing.T) {
		history := []models.Chat{
			{Role: models.ChatRoleUser, Address: "addrB", Date: t2},
			{Role: models.ChatRoleUser, Address: "addrA", Date: t1},
		}

		winner, err := ResolveWinner(models.ExpiryLogicLastSender, history)
		require.NoError(t, err)
		assert.Equal(t, "addrB", winner)
	})

	t.Run("system records are skipped", func(t *testing.T) {
		history := []models.Chat{
			{Role: models.ChatRoleSystem, Date: t2},
			{Role: models.ChatRoleUser, Address: "addrA", Date: t1},
		}

		winner, err := ResolveWinner(models.ExpiryLogicLastSender, history)
		require.NoError(t, err)
		assert.Equal(t, "addrA", winner)
	})
}

func TestResolveWinnerUnknownLogic(t *testing.T) {
	_, err := ResolveWinner("random", []models.Chat{scored("a", 1, time.Now())})
	assert.ErrorIs(t, err, ErrNoEligibleWinner)
}

func ptr[T any](v T) *T {
	return &v
}
