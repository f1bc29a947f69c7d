package redis_store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"

	"tournament/internal/models"
)

const RECEIPT_TTL = 30 * 24 * time.Hour

func dbKeySettlementReceipt(challenge string) string {
	return fmt.Sprintf("challenge:%s:settlement", strings.ToLower(challenge))
}

func dbKeySettlementLog() string {
	return "settlement:log"
}

func SetSettlementReceipt(ctx context.Context, cmd redis.Cmdable, v *models.SettlementReceipt) error {
	if v.Challenge == "" {
		return errors.New("invalid receipt")
	}

	b, err := msgpack.Marshal(v)
	if err != nil {
		return err
	}

	err = cmd.Set(ctx, dbKeySettlementReceipt(v.Challenge), b, RECEIPT_TTL).Err()
	if err != nil {
		return err
	}

	return cmd.ZAdd(ctx, dbKeySettlementLog(), redis.Z{
		Score:  float64(v.SettledAt.Unix()),
		Member: v.Challenge,
	}).Err()
}

func GetSettlementReceipt(ctx context.Context, cmd redis.Cmdable, challenge string) (*models.SettlementReceipt, error) {
	var v *models.SettlementReceipt
	b, err := cmd.Get(ctx, dbKeySettlementReceipt(challenge)).Bytes()
	if err != nil {
		return nil, err
	}

	err = msgpack.Unmarshal(b, &v)
	return v, err
}

// GetRecentSettlements returns challenge names, most recently settled first.
func GetRecentSettlements(ctx context.Context, cmd redis.Cmdable, num int) ([]string, error) {
	// num always greater than 0
	return cmd.ZRevRange(ctx, dbKeySettlementLog(), 0, int64(num-1)).Result()
}
