package datastore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"

	"tournament/internal/models"
)

var ErrNotFound = errors.New("record not found")

func CreateTableChallenge(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.Challenge)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.Challenge)(nil)).Index("index_challenge_name").IfNotExists().Unique().Column("name").Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.Challenge)(nil)).Index("index_challenge_status_expiry").IfNotExists().Column("status", "expiry").Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewRaw(`
		alter table "challenge"
			add if not exists settlement_status varchar not null default '';

		alter table "challenge"
			add if not exists settlement_error varchar;

		alter table "challenge"
			add if not exists settled_at timestamptz;
		`).Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func InsertChallenge(ctx context.Context, db *bun.DB, challenge *models.Challenge) error {
	_, err := db.NewInsert().Model(challenge).Returning("*").Exec(ctx)
	if err != nil {
		return err
	}
	return nil
}

func GetChallengeByName(ctx context.Context, db *bun.DB, name string) (*models.Challenge, error) {
	var challenge models.Challenge
	err := db.NewSelect().Model(&challenge).Where("name = ?", name).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &challenge, nil
}

// ListExpiredActiveChallenges skips challenges without activity. Those stay
// active forever and would otherwise fill every page.
func ListExpiredActiveChallenges(ctx context.Context, db *bun.DB, now time.Time, limit int) ([]models.Challenge, error) {
	activity := db.NewSelect().
		Model((*models.Chat)(nil)).
		ColumnExpr("1").
		Where("chat.challenge = challenge.name").
		Where("chat.role != ?", models.ChatRoleSystem)

	var challenges []models.Challenge
	err := db.NewSelect().
		Model(&challenges).
		Where("challenge.status = ?", models.ChallengeStatusActive).
		Where("challenge.expiry < ?", now).
		Where("EXISTS (?)", activity).
		Order("challenge.expiry ASC", "challenge.id ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return challenges, nil
}

// ActivateChallenge is a no-op when the challenge already left upcoming.
func ActivateChallenge(ctx context.Context, db *bun.DB, id int64) error {
	_, err := db.NewUpdate().
		Model((*models.Challenge)(nil)).
		Set("status = ?", models.ChallengeStatusActive).
		Set("updated_at = current_timestamp").
		Where("id = ?", id).
		Where("status = ?", models.ChallengeStatusUpcoming).
		Exec(ctx)
	return err
}

// ClaimChallengeSettlement concludes an active challenge. Only one caller can
// see true for a given challenge.
func ClaimChallengeSettlement(ctx context.Context, db *bun.DB, id int64) (bool, error) {
	res, err := db.NewUpdate().
		Model((*models.Challenge)(nil)).
		Set("status = ?", models.ChallengeStatusConcluded).
		Set("settlement_status = ?", models.SettlementStatusClaimed).
		Set("updated_at = current_timestamp").
		Where("id = ?", id).
		Where("status = ?", models.ChallengeStatusActive).
		Exec(ctx)
	if err != nil {
		return false, err
	}

	return claimed(res)
}

func ReclaimFailedSettlement(ctx context.Context, db *bun.DB, id int64) (bool, error) {
	res, err := db.NewUpdate().
		Model((*models.Challenge)(nil)).
		Set("settlement_status = ?", models.SettlementStatusClaimed).
		Set("settlement_error = ''").
		Set("updated_at = current_timestamp").
		Where("id = ?", id).
		Where("status = ?", models.ChallengeStatusConcluded).
		Where("settlement_status = ?", models.SettlementStatusFailed).
		Exec(ctx)
	if err != nil {
		return false, err
	}

	return claimed(res)
}

func UpdateChallengeSettlement(ctx context.Context, db *bun.DB, id int64, update models.ChallengeSettlementUpdate) error {
	q := db.NewUpdate().
		Model((*models.Challenge)(nil)).
		Set("settlement_status = ?", update.SettlementStatus).
		Set("settlement_error = ?", update.SettlementError).
		Set("updated_at = current_timestamp").
		Where("id = ?", id)

	if update.Winner != nil {
		q = q.Set("winner = ?", *update.Winner)
	}
	if update.WinningPrize != nil {
		q = q.Set("winning_prize = ?", *update.WinningPrize)
	}
	if update.UsdPrize != nil {
		q = q.Set("usd_prize = ?", *update.UsdPrize)
	}
	if update.Expiry != nil {
		q = q.Set("expiry = ?", *update.Expiry)
	}
	if update.SettledAt != nil {
		q = q.Set("settled_at = ?", *update.SettledAt)
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}

	return nil
}

func claimed(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
