package settlement

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"tournament/internal/models"
)

const DefaultHistoryLimit = 100

// Store is the persistence the orchestrator needs. ClaimSettlement and
// ReclaimSettlement must be single conditional updates on the stored status.
// ListExpiredActiveChallenges only returns challenges with non-system
// activity, oldest expiry first.
type Store interface {
	GetChallengeByName(ctx context.Context, name string) (*models.Challenge, error)
	ListExpiredActiveChallenges(ctx context.Context, now time.Time, limit int) ([]models.Challenge, error)
	ActivateChallenge(ctx context.Context, id int64) error
	ClaimSettlement(ctx context.Context, id int64) (bool, error)
	ReclaimSettlement(ctx context.Context, id int64) (bool, error)
	UpdateSettlement(ctx context.Context, id int64, update models.ChallengeSettlementUpdate) error

	GetChatHistory(ctx context.Context, challenge string, limit int) ([]models.Chat, error)
	GetHighestScore(ctx context.Context, challenge string) (*float64, error)
	GetTopScoreChats(ctx context.Context, challenge string) ([]models.Chat, error)
	GetSenders(ctx context.Context, challenge string, exclude string) ([]string, error)
	CreateChat(ctx context.Context, chat *models.Chat) error
}

type QuoteSource interface {
	CurrentQuote(ctx context.Context, fresh bool) (float64, error)
}

// Publisher receives every completed receipt. Failures are logged only.
type Publisher interface {
	PublishSettlement(ctx context.Context, receipt *models.SettlementReceipt) error
}

type Config struct {
	StorageTimeout time.Duration
	LedgerTimeout  time.Duration
	HistoryLimit   int
	Now            func() time.Time
}

type Orchestrator struct {
	store      Store
	ledger     Ledger
	quotes     QuoteSource
	publishers []Publisher
	executor   *Executor
	cfg        Config
}

func NewOrchestrator(store Store, ledger Ledger, quotes QuoteSource, cfg Config, publishers ...Publisher) *Orchestrator {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultHistoryLimit
	}

	return &Orchestrator{
		store:      store,
		ledger:     ledger,
		quotes:     quotes,
		publishers: publishers,
		executor:   NewExecutor(ledger, cfg.LedgerTimeout),
		cfg:        cfg,
	}
}

type ReadRequest struct {
	Name    string
	Initial bool
	// Settings is nil when the platform settings could not be loaded; the
	// challenge is still served but settlement waits for a later read.
	Settings *models.DeploymentSettings
}

type ChallengeView struct {
	Challenge     *models.Challenge `json:"challenge"`
	BreakAttempts int               `json:"break_attempts"`
	PrizeFigures
	Expiry       time.Time     `json:"expiry"`
	HighestScore float64       `json:"highestScore"`
	ChatHistory  []models.Chat `json:"chatHistory"`

	Receipt *models.SettlementReceipt `json:"-"`
}

// Read serves a challenge and advances its lifecycle on the way. Only
// ErrNotFound and ErrInvalidState (and a failed challenge lookup) reach the
// caller; every settlement failure is logged and recorded on the challenge.
func (o *Orchestrator) Read(ctx context.Context, req ReadRequest) (*ChallengeView, error) {
	challenge, err := o.loadChallenge(ctx, req.Name)
	if err != nil {
		return nil, err
	}

	quote, err := o.quotes.CurrentQuote(ctx, req.Initial)
	if err != nil {
		log.Printf("settlement: quote unavailable for %s: %v\n", challenge.Name, err)
	}

	history, err := o.history(ctx, challenge)
	if err != nil {
		log.Printf("settlement: history unavailable for %s: %v\n", challenge.Name, err)
		history = nil
	}

	now := o.cfg.Now()
	if Evaluate(challenge, now, len(history) > 0) == TransitionActivate {
		if err := o.activate(ctx, challenge); err != nil {
			log.Printf("settlement: activate %s: %v\n", challenge.Name, err)
		}
	}

	view := &ChallengeView{
		Challenge:     challenge,
		BreakAttempts: challenge.BreakAttempts,
		PrizeFigures:  ComputePrizeFigures(challenge, quote),
	}

	if challenge.IsScoring() {
		view.HighestScore = o.highestScore(ctx, challenge)
	}

	if len(history) > 0 && Evaluate(challenge, now, true) == TransitionConclude {
		if req.Settings == nil {
			log.Printf("settlement: %s is due but platform settings are missing\n", challenge.Name)
		} else {
			receipt, err := o.claimAndSettle(ctx, challenge, history, *req.Settings)
			switch {
			case errors.Is(err, ErrClaimLost):
			case err != nil:
				log.Printf("settlement: %s: %v\n", challenge.Name, err)
			default:
				view.Receipt = receipt
			}
		}
	}

	view.Expiry = challenge.Expiry
	view.ChatHistory = chronological(history)
	return view, nil
}

// SettleExpired claims and settles every expired active challenge that has
// activity. It uses the same claim as Read, so it can run next to readers.
func (o *Orchestrator) SettleExpired(ctx context.Context, settings models.DeploymentSettings, limit int) ([]*models.SettlementReceipt, error) {
	now := o.cfg.Now()

	sctx, cancel := withTimeout(ctx, o.cfg.StorageTimeout)
	challenges, err := o.store.ListExpiredActiveChallenges(sctx, now, limit)
	cancel()
	if err != nil {
		return nil, err
	}

	var receipts []*models.SettlementReceipt
	for i := range challenges {
		challenge := &challenges[i]

		history, err := o.history(ctx, challenge)
		if err != nil {
			log.Printf("settlement: sweep history for %s: %v\n", challenge.Name, err)
			continue
		}

		if Evaluate(challenge, now, len(history) > 0) != TransitionConclude {
			continue
		}

		receipt, err := o.claimAndSettle(ctx, challenge, history, settings)
		if err != nil {
			if !errors.Is(err, ErrClaimLost) {
				log.Printf("settlement: sweep %s: %v\n", challenge.Name, err)
			}
			continue
		}

		receipts = append(receipts, receipt)
	}

	return receipts, nil
}

// Reconcile re-runs a settlement that previously failed after its claim. The
// failed -> claimed transition is itself a conditional update, so concurrent
// reconcilers cannot both run.
func (o *Orchestrator) Reconcile(ctx context.Context, name string, settings models.DeploymentSettings) (*models.SettlementReceipt, error) {
	challenge, err := o.loadChallenge(ctx, name)
	if err != nil {
		return nil, err
	}

	if challenge.Status != models.ChallengeStatusConcluded || challenge.SettlementStatus != models.SettlementStatusFailed {
		return nil, fmt.Errorf("%w: %s is %s/%q", ErrInvalidState, challenge.Name, challenge.Status, challenge.SettlementStatus)
	}

	sctx, cancel := withTimeout(ctx, o.cfg.StorageTimeout)
	won, err := o.store.ReclaimSettlement(sctx, challenge.ID)
	cancel()
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, ErrClaimLost
	}
	challenge.SettlementStatus = models.SettlementStatusClaimed

	history, err := o.history(ctx, challenge)
	if err != nil {
		return nil, err
	}

	return o.settle(ctx, challenge, history, settings)
}

func (o *Orchestrator) loadChallenge(ctx context.Context, name string) (*models.Challenge, error) {
	sctx, cancel := withTimeout(ctx, o.cfg.StorageTimeout)
	defer cancel()

	challenge, err := o.store.GetChallengeByName(sctx, name)
	if err != nil {
		return nil, err
	}
	if challenge == nil {
		return nil, ErrNotFound
	}

	if !challenge.Status.Valid() {
		return nil, fmt.Errorf("%w: status %q", ErrInvalidState, challenge.Status)
	}

	if challenge.ProgramID() == "" {
		return nil, fmt.Errorf("%w: program id not found", ErrNotFound)
	}

	if challenge.TournamentPDA == "" {
		return nil, fmt.Errorf("%w: tournament pool not found", ErrNotFound)
	}

	return challenge, nil
}

func (o *Orchestrator) history(ctx context.Context, challenge *models.Challenge) ([]models.Chat, error) {
	limit := challenge.ChatLimit
	if limit <= 0 {
		limit = o.cfg.HistoryLimit
	}

	sctx, cancel := withTimeout(ctx, o.cfg.StorageTimeout)
	defer cancel()

	return o.store.GetChatHistory(sctx, challenge.Name, limit)
}

func (o *Orchestrator) activate(ctx context.Context, challenge *models.Challenge) error {
	sctx, cancel := withTimeout(ctx, o.cfg.StorageTimeout)
	defer cancel()

	if err := o.store.ActivateChallenge(sctx, challenge.ID); err != nil {
		return err
	}

	challenge.Status = models.ChallengeStatusActive
	return nil
}

func (o *Orchestrator) highestScore(ctx context.Context, challenge *models.Challenge) float64 {
	sctx, cancel := withTimeout(ctx, o.cfg.StorageTimeout)
	defer cancel()

	score, err := o.store.GetHighestScore(sctx, challenge.Name)
	if err != nil {
		log.Printf("settlement: highest score for %s: %v\n", challenge.Name, err)
		return 0
	}
	if score == nil {
		return 0
	}
	return *score
}

func (o *Orchestrator) claimAndSettle(ctx context.Context, challenge *models.Challenge, history []models.Chat, settings models.DeploymentSettings) (*models.SettlementReceipt, error) {
	sctx, cancel := withTimeout(ctx, o.cfg.StorageTimeout)
	won, err := o.store.ClaimSettlement(sctx, challenge.ID)
	cancel()
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, ErrClaimLost
	}

	challenge.Status = models.ChallengeStatusConcluded
	challenge.SettlementStatus = models.SettlementStatusClaimed

	return o.settle(ctx, challenge, history, settings)
}

// settle runs once the caller holds the claim. The concluded status is never
// reverted; failures before any transfer mark the settlement failed so an
// operator can reconcile it.
func (o *Orchestrator) settle(ctx context.Context, challenge *models.Challenge, history []models.Chat, settings models.DeploymentSettings) (*models.SettlementReceipt, error) {
	lctx, cancel := withTimeout(ctx, o.cfg.LedgerTimeout)
	snapshot, err := o.ledger.PoolSnapshot(lctx, challenge.TournamentPDA)
	cancel()
	if err != nil {
		return nil, o.fail(ctx, challenge, fmt.Errorf("%w: %v", ErrSnapshotUnavailable, err))
	}

	winner, err := o.resolveWinner(ctx, challenge, history)
	if err != nil {
		return nil, o.fail(ctx, challenge, err)
	}

	sctx, cancel := withTimeout(ctx, o.cfg.StorageTimeout)
	senders, err := o.store.GetSenders(sctx, challenge.Name, winner)
	cancel()
	if err != nil {
		return nil, o.fail(ctx, challenge, fmt.Errorf("load senders: %w", err))
	}

	plan, err := BuildPlan(*snapshot, SharesFor(challenge, settings), winner, senders)
	if err != nil {
		return nil, o.fail(ctx, challenge, err)
	}

	receipt := &models.SettlementReceipt{
		ID:        uuid.NewString(),
		Challenge: challenge.Name,
		Winner:    winner,
		Prize:     Prize(challenge),
		UsdPrize:  challenge.UsdPrize,
		Plan:      plan,
	}

	lctx, cancel = withTimeout(ctx, o.cfg.LedgerTimeout)
	err = o.ledger.FinalizePool(lctx, challenge.TournamentPDA, settings.OwnerAddress)
	cancel()
	if err != nil {
		log.Printf("settlement: finalize pool %s: %v\n", challenge.TournamentPDA, err)
		receipt.FinalizeError = err.Error()
	} else {
		receipt.PoolFinalized = true
	}

	receipt.Transfers = o.executor.Execute(ctx, plan)
	receipt.SettledAt = o.cfg.Now()
	receipt.Message = SettlementMessage(receipt)

	if err := o.record(ctx, challenge, receipt); err != nil {
		return receipt, err
	}

	for _, publisher := range o.publishers {
		if err := publisher.PublishSettlement(ctx, receipt); err != nil {
			log.Printf("settlement: publish %s: %v\n", challenge.Name, err)
		}
	}

	return receipt, nil
}

func (o *Orchestrator) resolveWinner(ctx context.Context, challenge *models.Challenge, history []models.Chat) (string, error) {
	if challenge.ExpiryLogic != models.ExpiryLogicScore {
		return ResolveWinner(challenge.ExpiryLogic, history)
	}

	sctx, cancel := withTimeout(ctx, o.cfg.StorageTimeout)
	defer cancel()

	scored, err := o.store.GetTopScoreChats(sctx, challenge.Name)
	if err != nil {
		return "", fmt.Errorf("load top scores: %w", err)
	}

	return ResolveWinner(models.ExpiryLogicScore, scored)
}

func (o *Orchestrator) record(ctx context.Context, challenge *models.Challenge, receipt *models.SettlementReceipt) error {
	settledAt := receipt.SettledAt
	winner := receipt.Winner
	prize := receipt.Prize
	usdPrize := receipt.UsdPrize

	sctx, cancel := withTimeout(ctx, o.cfg.StorageTimeout)
	err := o.store.CreateChat(sctx, &models.Chat{
		Challenge: challenge.Name,
		Model:     challenge.Model,
		Role:      models.ChatRoleAssistant,
		Content:   receipt.Message,
		Address:   winner,
		Date:      settledAt,
		ToolCalls: &models.ToolCalls{},
		Receipt:   receipt,
	})
	cancel()
	if err != nil {
		log.Printf("settlement: audit chat for %s: %v\n", challenge.Name, err)
	}

	sctx, cancel = withTimeout(ctx, o.cfg.StorageTimeout)
	defer cancel()

	err = o.store.UpdateSettlement(sctx, challenge.ID, models.ChallengeSettlementUpdate{
		Winner:           &winner,
		WinningPrize:     &prize,
		UsdPrize:         &usdPrize,
		Expiry:           &settledAt,
		SettledAt:        &settledAt,
		SettlementStatus: models.SettlementStatusSettled,
	})
	if err != nil {
		return fmt.Errorf("persist settlement of %s: %w", challenge.Name, err)
	}

	challenge.Winner = &winner
	challenge.WinningPrize = prize
	challenge.UsdPrize = usdPrize
	challenge.Expiry = settledAt
	challenge.SettledAt = &settledAt
	challenge.SettlementStatus = models.SettlementStatusSettled
	challenge.SettlementError = ""
	return nil
}

func (o *Orchestrator) fail(ctx context.Context, challenge *models.Challenge, cause error) error {
	sctx, cancel := withTimeout(ctx, o.cfg.StorageTimeout)
	defer cancel()

	err := o.store.UpdateSettlement(sctx, challenge.ID, models.ChallengeSettlementUpdate{
		SettlementStatus: models.SettlementStatusFailed,
		SettlementError:  cause.Error(),
	})
	if err != nil {
		log.Printf("settlement: mark %s failed: %v\n", challenge.Name, err)
	}

	challenge.SettlementStatus = models.SettlementStatusFailed
	challenge.SettlementError = cause.Error()
	return cause
}

// chronological reverses a newest-first page into presentation order.
func chronological(history []models.Chat) []models.Chat {
	out := make([]models.Chat, len(history))
	for i, chat := range history {
		out[len(history)-1-i] = chat
	}
	return out
}
