package models

import (
	"time"

	"github.com/uptrace/bun"
)

type ChallengeStatus string

const (
	ChallengeStatusUpcoming  ChallengeStatus = "upcoming"
	ChallengeStatusActive    ChallengeStatus = "active"
	ChallengeStatusConcluded ChallengeStatus = "concluded"
)

func (v ChallengeStatus) Valid() bool {
	switch v {
	case ChallengeStatusUpcoming, ChallengeStatusActive, ChallengeStatusConcluded:
		return true
	default:
		return false
	}
}

func (v ChallengeStatus) String() string {
	return string(v)
}

type ExpiryLogic string

const (
	ExpiryLogicScore      ExpiryLogic = "score"
	ExpiryLogicLastSender ExpiryLogic = "last_sender"
)

const AgentLogicScoring = "scoring"

type SettlementStatus string

const (
	SettlementStatusNone    SettlementStatus = ""
	SettlementStatusClaimed SettlementStatus = "claimed"
	SettlementStatusSettled SettlementStatus = "settled"
	SettlementStatusFailed  SettlementStatus = "failed"
)

// AirdropSplit holds the per-challenge percentages of the pool.
type AirdropSplit struct {
	Winner  float64 `json:"winner" msgpack:"winner"`
	Creator float64 `json:"creator" msgpack:"creator"`
}

type ChallengeIDL struct {
	Address string `json:"address" msgpack:"address"`
}

type Challenge struct {
	bun.BaseModel `bun:"table:challenge"`
	ID            int64  `bun:"id,pk,autoincrement" json:"_id"`
	Name          string `bun:"name,notnull" json:"name"`
	Title         string `bun:"title" json:"title"`
	Label         string `bun:"label" json:"label"`
	Task          string `bun:"task" json:"task"`
	Tldr          string `bun:"tldr" json:"tldr"`
	Tag           string `bun:"tag" json:"tag"`
	Image         string `bun:"image" json:"image"`
	Pfp           string `bun:"pfp" json:"pfp"`
	Level         string `bun:"level" json:"level"`
	Model         string `bun:"model" json:"model"`
	Language      string `bun:"language" json:"language"`

	Status    ChallengeStatus `bun:"status,notnull,default:'upcoming'" json:"status"`
	StartDate time.Time       `bun:"start_date" json:"start_date"`
	Expiry    time.Time       `bun:"expiry" json:"expiry"`

	EntryFee      float64      `bun:"entry_fee" json:"entryFee"`
	FeeMultiplier *float64     `bun:"fee_multiplier" json:"fee_multiplier"`
	WinningPrize  float64      `bun:"winning_prize" json:"winning_prize"`
	UsdPrize      float64      `bun:"usd_prize" json:"usd_prize"`
	ExpiryLogic   ExpiryLogic  `bun:"expiry_logic,default:'last_sender'" json:"expiry_logic"`
	AgentLogic    *string      `bun:"agent_logic" json:"agent_logic"`
	AirdropSplit  AirdropSplit `bun:"airdrop_split,type:jsonb" json:"airdrop_split"`
	Winner        *string      `bun:"winner" json:"winner"`

	ChatLimit     int           `bun:"chat_limit" json:"chatLimit"`
	BreakAttempts int           `bun:"break_attempts" json:"break_attempts"`
	TournamentPDA string        `bun:"tournament_pda" json:"tournamentPDA"`
	IDL           *ChallengeIDL `bun:"idl,type:jsonb" json:"idl"`

	SettlementStatus SettlementStatus `bun:"settlement_status,notnull,default:''" json:"settlement_status"`
	SettlementError  string           `bun:"settlement_error" json:"settlement_error,omitempty"`
	SettledAt        *time.Time       `bun:"settled_at" json:"settled_at"`

	CreatedAt time.Time `bun:"created_at,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,default:current_timestamp" json:"updated_at"`
}

func (c *Challenge) IsScoring() bool {
	return c.AgentLogic != nil && *c.AgentLogic == AgentLogicScoring
}

func (c *Challenge) ProgramID() string {
	if c.IDL == nil {
		return ""
	}
	return c.IDL.Address
}

// ChallengeSettlementUpdate is the single write applied after a settlement run.
type ChallengeSettlementUpdate struct {
	Winner           *string
	WinningPrize     *float64
	UsdPrize         *float64
	Expiry           *time.Time
	SettledAt        *time.Time
	SettlementStatus SettlementStatus
	SettlementError  string
}
