package services

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/bun"

	"tournament/internal/datastore"
	"tournament/internal/models"
	"tournament/internal/settlement"
)

const topScoreLimit = 50

// challengeStore serves settlement from Postgres. Status reads and every
// write go to the primary; activity reads may come from the replica.
type challengeStore struct {
	postgresDB         *bun.DB
	readonlyPostgresDB *bun.DB
}

func (s *challengeStore) GetChallengeByName(ctx context.Context, name string) (*models.Challenge, error) {
	challenge, err := datastore.GetChallengeByName(ctx, s.postgresDB, name)
	if errors.Is(err, datastore.ErrNotFound) {
		return nil, settlement.ErrNotFound
	}
	return challenge, err
}

func (s *challengeStore) ListExpiredActiveChallenges(ctx context.Context, now time.Time, limit int) ([]models.Challenge, error) {
	return datastore.ListExpiredActiveChallenges(ctx, s.postgresDB, now, limit)
}

func (s *challengeStore) ActivateChallenge(ctx context.Context, id int64) error {
	return datastore.ActivateChallenge(ctx, s.postgresDB, id)
}

func (s *challengeStore) ClaimSettlement(ctx context.Context, id int64) (bool, error) {
	return datastore.ClaimChallengeSettlement(ctx, s.postgresDB, id)
}

func (s *challengeStore) ReclaimSettlement(ctx context.Context, id int64) (bool, error) {
	return datastore.ReclaimFailedSettlement(ctx, s.postgresDB, id)
}

func (s *challengeStore) UpdateSettlement(ctx context.Context, id int64, update models.ChallengeSettlementUpdate) error {
	return datastore.UpdateChallengeSettlement(ctx, s.postgresDB, id, update)
}

func (s *challengeStore) GetChatHistory(ctx context.Context, challenge string, limit int) ([]models.Chat, error) {
	return datastore.GetChatHistory(ctx, s.readonlyPostgresDB, challenge, limit)
}

func (s *challengeStore) GetHighestScore(ctx context.Context, challenge string) (*float64, error) {
	return datastore.GetHighestScore(ctx, s.readonlyPostgresDB, challenge)
}

// GetTopScoreChats reads the primary so a score written just before expiry is
// not missed by the winner decision.
func (s *challengeStore) GetTopScoreChats(ctx context.Context, challenge string) ([]models.Chat, error) {
	return datastore.GetHighestAndLatestScore(ctx, s.postgresDB, challenge, topScoreLimit)
}

func (s *challengeStore) GetSenders(ctx context.Context, challenge string, exclude string) ([]string, error) {
	return datastore.GetSendersByChallenge(ctx, s.postgresDB, challenge, exclude)
}

func (s *challengeStore) CreateChat(ctx context.Context, chat *models.Chat) error {
	return datastore.CreateChat(ctx, s.postgresDB, chat)
}
