package settlement

import (
	"context"
	"fmt"
	"log"
	"math"
	"math/big"
	"time"

	"github.com/shopspring/decimal"

	"tournament/internal/models"
)

var hundred = decimal.NewFromInt(100)

// Shares are percentages of the on-chain pool total.
type Shares struct {
	OwnerPct   float64
	WinnerPct  float64
	CreatorPct float64
}

func SharesFor(challenge *models.Challenge, settings models.DeploymentSettings) Shares {
	return Shares{
		OwnerPct:   settings.OwnerFee,
		WinnerPct:  challenge.AirdropSplit.Winner,
		CreatorPct: challenge.AirdropSplit.Creator,
	}
}

func (s Shares) Validate() error {
	for name, pct := range map[string]float64{"owner": s.OwnerPct, "winner": s.WinnerPct, "creator": s.CreatorPct} {
		if math.IsNaN(pct) || pct < 0 || pct > 100 {
			return fmt.Errorf("%w: %s share %v out of range", ErrInvalidSplit, name, pct)
		}
	}

	if s.poolPct().IsNegative() {
		return fmt.Errorf("%w: owner %v + winner %v + creator %v exceeds 100", ErrInvalidSplit, s.OwnerPct, s.WinnerPct, s.CreatorPct)
	}

	return nil
}

func (s Shares) PoolPct() float64 {
	return s.poolPct().InexactFloat64()
}

func (s Shares) poolPct() decimal.Decimal {
	return hundred.
		Sub(decimal.NewFromFloat(s.OwnerPct)).
		Sub(decimal.NewFromFloat(s.WinnerPct)).
		Sub(decimal.NewFromFloat(s.CreatorPct))
}

// shareOf returns floor(total * pct / 100). Shift keeps the division exact so
// the floor never rounds up.
func shareOf(total uint64, pct decimal.Decimal) uint64 {
	if total == 0 || !pct.IsPositive() {
		return 0
	}

	amount := decimal.NewFromBigInt(new(big.Int).SetUint64(total), 0).
		Mul(pct).
		Shift(-2).
		Floor()

	return amount.BigInt().Uint64()
}

// Recipients returns the distinct non-empty senders other than the winner, in
// first-seen order.
func Recipients(senders []string, winner string) []string {
	seen := make(map[string]bool, len(senders))
	recipients := make([]string, 0, len(senders))
	for _, sender := range senders {
		if sender == "" || sender == winner || seen[sender] {
			continue
		}
		seen[sender] = true
		recipients = append(recipients, sender)
	}
	return recipients
}

// BuildPlan splits the pool total. Every amount is floored so the plan never
// distributes more than the snapshot holds.
func BuildPlan(snapshot models.PoolSnapshot, shares Shares, winner string, senders []string) (*models.DistributionPlan, error) {
	if err := shares.Validate(); err != nil {
		return nil, err
	}

	if winner == "" {
		return nil, ErrNoEligibleWinner
	}

	total := snapshot.TotalFunds
	poolPct := shares.poolPct()
	recipients := Recipients(senders, winner)

	plan := &models.DistributionPlan{
		TotalFunds:    total,
		OwnerPct:      shares.OwnerPct,
		WinnerPct:     shares.WinnerPct,
		CreatorPct:    shares.CreatorPct,
		PoolPct:       poolPct.InexactFloat64(),
		Authority:     snapshot.Authority,
		Winner:        winner,
		CreatorRefund: shareOf(total, decimal.NewFromFloat(shares.OwnerPct)),
		WinnerAmount:  shareOf(total, decimal.NewFromFloat(shares.WinnerPct)),
		PoolAmount:    shareOf(total, poolPct),
		Recipients:    recipients,
	}

	if len(recipients) > 0 {
		plan.PerRecipient = plan.PoolAmount / uint64(len(recipients))
	}

	plan.Undistributed = total - plan.Distributed()
	return plan, nil
}

// Ledger is the external pool ledger.
type Ledger interface {
	PoolSnapshot(ctx context.Context, pool string) (*models.PoolSnapshot, error)
	FinalizePool(ctx context.Context, pool string, authority string) error
	// Transfer splits totalAmount evenly across recipients and returns one
	// confirmation per paid recipient, in recipient order. On error the
	// confirmations already obtained are still returned.
	Transfer(ctx context.Context, recipients []string, totalAmount uint64) ([]string, error)
}

type Executor struct {
	ledger  Ledger
	timeout time.Duration
}

func NewExecutor(ledger Ledger, timeout time.Duration) *Executor {
	return &Executor{ledger: ledger, timeout: timeout}
}

// Execute sends the three legs of the plan one after another. A failed leg is
// recorded and the next leg still runs.
func (e *Executor) Execute(ctx context.Context, plan *models.DistributionPlan) []models.TransferOutcome {
	legs := []models.TransferOutcome{
		{Leg: models.TransferLegCreator, Recipients: []string{plan.Authority}, Amount: plan.CreatorRefund},
		{Leg: models.TransferLegWinner, Recipients: []string{plan.Winner}, Amount: plan.WinnerAmount},
		{Leg: models.TransferLegPool, Recipients: plan.Recipients, Amount: plan.PerRecipient * uint64(len(plan.Recipients))},
	}

	for i := range legs {
		legs[i] = e.send(ctx, legs[i])
	}

	return legs
}

func (e *Executor) send(ctx context.Context, leg models.TransferOutcome) models.TransferOutcome {
	if leg.Amount == 0 || len(leg.Recipients) == 0 || leg.Recipients[0] == "" {
		leg.Status = models.TransferStatusSkipped
		return leg
	}

	ctx, cancel := withTimeout(ctx, e.timeout)
	defer cancel()

	confirmations, err := e.ledger.Transfer(ctx, leg.Recipients, leg.Amount)
	if err == nil && len(confirmations) < len(leg.Recipients) {
		err = fmt.Errorf("%w: %d of %d transfers confirmed", ErrTransferFailed, len(confirmations), len(leg.Recipients))
	}

	// confirmations cover a prefix of the recipients, also when err is set
	if len(confirmations) > len(leg.Recipients) {
		confirmations = confirmations[:len(leg.Recipients)]
	}
	leg.Confirmations = confirmations
	leg.PaidRecipients = leg.Recipients[:len(confirmations)]

	if err != nil {
		log.Printf("settlement: %s transfer of %d to %d recipients failed after %d paid: %v\n", leg.Leg, leg.Amount, len(leg.Recipients), len(confirmations), err)
		leg.Status = models.TransferStatusFailed
		if len(confirmations) > 0 {
			leg.Status = models.TransferStatusPartial
		}
		leg.Error = err.Error()
		return leg
	}

	leg.Status = models.TransferStatusSuccess
	return leg
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
