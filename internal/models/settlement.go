package models

import "time"

// PoolSnapshot is the ledger view of a challenge pool, in nanotons.
type PoolSnapshot struct {
	TotalFunds uint64 `json:"total_funds" msgpack:"total_funds"`
	Authority  string `json:"authority" msgpack:"authority"`
}

type TransferLegKind string

const (
	TransferLegCreator TransferLegKind = "creator"
	TransferLegWinner  TransferLegKind = "winner"
	TransferLegPool    TransferLegKind = "pool"
)

type TransferStatus string

const (
	TransferStatusSuccess TransferStatus = "success"
	TransferStatusFailed  TransferStatus = "failed"
	TransferStatusPartial TransferStatus = "partial"
	TransferStatusSkipped TransferStatus = "skipped"
)

// DistributionPlan is computed in full before the first transfer is sent.
type DistributionPlan struct {
	TotalFunds    uint64   `json:"total_funds" msgpack:"total_funds"`
	OwnerPct      float64  `json:"owner_pct" msgpack:"owner_pct"`
	WinnerPct     float64  `json:"winner_pct" msgpack:"winner_pct"`
	CreatorPct    float64  `json:"creator_pct" msgpack:"creator_pct"`
	PoolPct       float64  `json:"pool_pct" msgpack:"pool_pct"`
	Authority     string   `json:"authority" msgpack:"authority"`
	Winner        string   `json:"winner" msgpack:"winner"`
	CreatorRefund uint64   `json:"creator_refund" msgpack:"creator_refund"`
	WinnerAmount  uint64   `json:"winner_amount" msgpack:"winner_amount"`
	PoolAmount    uint64   `json:"pool_amount" msgpack:"pool_amount"`
	Recipients    []string `json:"recipients" msgpack:"recipients"`
	PerRecipient  uint64   `json:"per_recipient" msgpack:"per_recipient"`
	Undistributed uint64   `json:"undistributed" msgpack:"undistributed"`
}

// Distributed is the sum the plan will send if every leg succeeds.
func (p *DistributionPlan) Distributed() uint64 {
	return p.CreatorRefund + p.WinnerAmount + p.PerRecipient*uint64(len(p.Recipients))
}

type TransferOutcome struct {
	Leg           TransferLegKind `json:"leg" msgpack:"leg"`
	Recipients    []string        `json:"recipients" msgpack:"recipients"`
	Amount        uint64          `json:"amount" msgpack:"amount"`
	Status        TransferStatus  `json:"status" msgpack:"status"`
	Confirmations []string        `json:"confirmations,omitempty" msgpack:"confirmations,omitempty"`
	// PaidRecipients is the prefix of Recipients the ledger confirmed.
	PaidRecipients []string `json:"paid_recipients,omitempty" msgpack:"paid_recipients,omitempty"`
	Error          string   `json:"error,omitempty" msgpack:"error,omitempty"`
}

func (o TransferOutcome) Succeeded() bool {
	return o.Status == TransferStatusSuccess
}

// UnpaidRecipients lists the recipients still owed after a failed or partial leg.
func (o TransferOutcome) UnpaidRecipients() []string {
	if o.Status == TransferStatusSuccess || o.Status == TransferStatusSkipped {
		return nil
	}
	if len(o.PaidRecipients) >= len(o.Recipients) {
		return nil
	}
	return o.Recipients[len(o.PaidRecipients):]
}

// SettlementReceipt is the audit trail of one settlement run.
type SettlementReceipt struct {
	ID            string            `json:"id" msgpack:"id"`
	Challenge     string            `json:"challenge" msgpack:"challenge"`
	Winner        string            `json:"winner" msgpack:"winner"`
	Prize         float64           `json:"prize" msgpack:"prize"`
	UsdPrize      float64           `json:"usd_prize" msgpack:"usd_prize"`
	PoolFinalized bool              `json:"pool_finalized" msgpack:"pool_finalized"`
	FinalizeError string            `json:"finalize_error,omitempty" msgpack:"finalize_error,omitempty"`
	Plan          *DistributionPlan `json:"plan" msgpack:"plan"`
	Transfers     []TransferOutcome `json:"transfers" msgpack:"transfers"`
	Message       string            `json:"message" msgpack:"message"`
	SettledAt     time.Time         `json:"settled_at" msgpack:"settled_at"`
}

func (r *SettlementReceipt) FailedLegs() []TransferOutcome {
	var failed []TransferOutcome
	for _, t := range r.Transfers {
		if t.Status == TransferStatusFailed || t.Status == TransferStatusPartial {
			failed = append(failed, t)
		}
	}
	return failed
}

// DeploymentSettings is the platform-wide operator configuration.
type DeploymentSettings struct {
	OwnerAddress string  `json:"owner_address"`
	OwnerFee     float64 `json:"owner_fee"`
}
