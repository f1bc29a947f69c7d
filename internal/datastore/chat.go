package datastore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"

	"tournament/internal/models"
)

const scoreExpr = "(tool_calls->>'score')::numeric"

func CreateTableChat(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.Chat)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.Chat)(nil)).Index("index_chat_challenge_date").IfNotExists().Column("challenge", "date").Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.Chat)(nil)).Index("index_chat_challenge_address").IfNotExists().Column("challenge", "address").Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewRaw(`
		alter table "chat"
			add if not exists receipt jsonb;
		`).Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func CreateChat(ctx context.Context, db *bun.DB, chat *models.Chat) error {
	_, err := db.NewInsert().Model(chat).Exec(ctx)
	if err != nil {
		return err
	}
	return nil
}

// GetChatHistory returns the newest non-system records first.
func GetChatHistory(ctx context.Context, db *bun.DB, challenge string, limit int) ([]models.Chat, error) {
	var chats []models.Chat
	err := db.NewSelect().
		Model(&chats).
		Where("challenge = ?", challenge).
		Where("role != ?", models.ChatRoleSystem).
		Order("date DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return chats, nil
}

func GetHighestScore(ctx context.Context, db *bun.DB, challenge string) (*float64, error) {
	var score sql.NullFloat64
	err := db.NewSelect().
		Model((*models.Chat)(nil)).
		ColumnExpr("MAX(" + scoreExpr + ")::float8").
		Where("challenge = ?", challenge).
		Where("tool_calls->>'score' IS NOT NULL").
		Scan(ctx, &score)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	if !score.Valid {
		return nil, nil
	}
	return &score.Float64, nil
}

// GetHighestAndLatestScore orders the whole history by score, then recency.
func GetHighestAndLatestScore(ctx context.Context, db *bun.DB, challenge string, limit int) ([]models.Chat, error) {
	var chats []models.Chat
	err := db.NewSelect().
		Model(&chats).
		Where("challenge = ?", challenge).
		Where("role != ?", models.ChatRoleSystem).
		Where("tool_calls->>'score' IS NOT NULL").
		OrderExpr(scoreExpr + " DESC").
		Order("date DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return chats, nil
}

func GetSendersByChallenge(ctx context.Context, db *bun.DB, challenge string, exclude string) ([]string, error) {
	var senders []string
	err := db.NewSelect().
		Model((*models.Chat)(nil)).
		DistinctOn("address").
		Column("address").
		Where("challenge = ?", challenge).
		Where("role = ?", models.ChatRoleUser).
		Where("address != ?", exclude).
		Where("address != ''").
		Order("address").
		Scan(ctx, &senders)
	if err != nil {
		return nil, err
	}
	return senders, nil
}

// GetLatestSettlementChat returns the audit record of the last settlement run.
func GetLatestSettlementChat(ctx context.Context, db *bun.DB, challenge string) (*models.Chat, error) {
	var chat models.Chat
	err := db.NewSelect().
		Model(&chat).
		Where("challenge = ?", challenge).
		Where("receipt IS NOT NULL").
		Order("date DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &chat, nil
}
