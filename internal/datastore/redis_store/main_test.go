package redis_store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tournament/internal/models"
)

func setupRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	return redis.NewClient(&redis.Options{Addr: mr.Addr()}), mr
}

func TestSettlementReceipt(t *testing.T) {
	client, mr := setupRedis(t)
	ctx := context.Background()
	settledAt := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	receipt := &models.SettlementReceipt{
		ID:        "r-1",
		Challenge: "Vault",
		Winner:    "EQwinner",
		Plan:      &models.DistributionPlan{TotalFunds: 1000, Recipients: []string{"a", "b"}, PerRecipient: 175},
		Transfers: []models.TransferOutcome{
			{Leg: models.TransferLegWinner, Amount: 500, Status: models.TransferStatusFailed, Error: "timeout"},
		},
		SettledAt: settledAt,
	}

	require.NoError(t, SetSettlementReceipt(ctx, client, receipt))
	assert.True(t, mr.Exists("challenge:vault:settlement"))
	assert.Equal(t, RECEIPT_TTL, mr.TTL("challenge:vault:settlement"))

	got, err := GetSettlementReceipt(ctx, client, "VAULT")
	require.NoError(t, err)
	assert.Equal(t, "EQwinner", got.Winner)
	assert.Equal(t, uint64(175), got.Plan.PerRecipient)
	assert.Len(t, got.FailedLegs(), 1)
	assert.True(t, settledAt.Equal(got.SettledAt))
}

func TestGetSettlementReceiptMissing(t *testing.T) {
	client, _ := setupRedis(t)

	_, err := GetSettlementReceipt(context.Background(), client, "nope")
	assert.ErrorIs(t, err, redis.Nil)
}

func TestSetSettlementReceiptRequiresChallenge(t *testing.T) {
	client, _ := setupRedis(t)

	assert.Error(t, SetSettlementReceipt(context.Background(), client, &models.SettlementReceipt{}))
}

func TestGetRecentSettlements(t *testing.T) {
	client, _ := setupRedis(t)
	ctx := context.Background()
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	for i, name := range []string{"first", "second", "third"} {
		require.NoError(t, SetSettlementReceipt(ctx, client, &models.SettlementReceipt{
			Challenge: name,
			SettledAt: base.Add(time.Duration(i) * time.Hour),
		}))
	}

	names, err := GetRecentSettlements(ctx, client, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"third", "second"}, names)
}
