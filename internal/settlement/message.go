package settlement

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"

	"tournament/internal/models"
)

const nanoDecimals = 9

// FormatTON renders a nanoton amount with three decimals.
func FormatTON(nano uint64) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(nano), -nanoDecimals).StringFixed(3)
}

func formatPct(pct float64) string {
	return decimal.NewFromFloat(pct).String()
}

func legStatusLine(leg models.TransferOutcome) string {
	switch leg.Status {
	case models.TransferStatusSuccess:
		return "✅ Airdropped successfully"
	case models.TransferStatusSkipped:
		return "➖ Nothing to airdrop"
	case models.TransferStatusPartial:
		return fmt.Sprintf("⚠️ Airdropped to %d of %d, we will airdrop manually to:\n%s",
			len(leg.PaidRecipients), len(leg.Recipients), strings.Join(leg.UnpaidRecipients(), "\n"))
	default:
		return "❌ Airdrop failed, we will airdrop manually"
	}
}

// SettlementMessage is the narrative appended to the chat as the audit record.
func SettlementMessage(receipt *models.SettlementReceipt) string {
	plan := receipt.Plan
	var b strings.Builder

	fmt.Fprintf(&b, "⏱️ Tournament Expired - %s%% to winner, %s%% to creator, %s%% to airdrop",
		formatPct(plan.WinnerPct), formatPct(plan.CreatorPct), formatPct(plan.PoolPct))

	for _, leg := range receipt.Transfers {
		switch leg.Leg {
		case models.TransferLegCreator:
			fmt.Fprintf(&b, "\n🔁 Refunded %s TON to %s\n%s", FormatTON(leg.Amount), plan.Authority, legStatusLine(leg))
		case models.TransferLegWinner:
			fmt.Fprintf(&b, "\n🎁 Airdropped %s TON to %s\n%s", FormatTON(leg.Amount), plan.Winner, legStatusLine(leg))
		case models.TransferLegPool:
			fmt.Fprintf(&b, "\n🎁 Airdropped %s TON among %d recipients.\n%s", FormatTON(leg.Amount), len(leg.Recipients), legStatusLine(leg))
		}
	}

	if !receipt.PoolFinalized {
		b.WriteString("\n⚠️ Pool finalization failed, operator follow-up required")
	}

	return b.String()
}
