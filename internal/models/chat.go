package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
	ChatRoleSystem    = "system"
)

type ToolCalls struct {
	Score *float64 `json:"score,omitempty" msgpack:"score,omitempty"`
}

// Chat is one activity record of a challenge.
type Chat struct {
	bun.BaseModel `bun:"table:chat"`
	ID            int64              `bun:"id,pk,autoincrement" json:"_id"`
	Challenge     string             `bun:"challenge,notnull" json:"challenge"`
	Model         string             `bun:"model" json:"model,omitempty"`
	Role          string             `bun:"role,notnull" json:"role"`
	Content       string             `bun:"content" json:"content"`
	Address       string             `bun:"address" json:"address"`
	Txn           string             `bun:"txn" json:"txn,omitempty"`
	Date          time.Time          `bun:"date,notnull,default:current_timestamp" json:"date"`
	Win           *bool              `bun:"win" json:"win,omitempty"`
	ToolCalls     *ToolCalls         `bun:"tool_calls,type:jsonb" json:"tool_calls,omitempty"`
	Receipt       *SettlementReceipt `bun:"receipt,type:jsonb" json:"receipt,omitempty"`
}

func (c *Chat) Score() (float64, bool) {
	if c.ToolCalls == nil || c.ToolCalls.Score == nil {
		return 0, false
	}
	return *c.ToolCalls.Score, true
}
