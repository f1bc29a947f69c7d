package ton_utils

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tonkeeper/tongo/boc"
	"github.com/tonkeeper/tongo/liteapi"
	"github.com/tonkeeper/tongo/tlb"
	"github.com/tonkeeper/tongo/ton"
	"github.com/tonkeeper/tongo/wallet"

	"tournament/internal/models"
)

const (
	// a v4 wallet accepts at most four messages per external message
	maxMessagesPerSend = 4

	opFinalize         = 0x4f1c2a7e
	methodGetAuthority = "get_authority"
)

var (
	ErrAccountNotActive = errors.New("pool account is not active")
	ErrInvalidAddress   = errors.New("invalid address")
)

type Chain interface {
	GetAccountState(ctx context.Context, accountID ton.AccountID) (tlb.ShardAccount, error)
	RunSmcMethod(ctx context.Context, accountID ton.AccountID, method string, params tlb.VmStack) (uint32, tlb.VmStack, error)
}

type Sender interface {
	SendV2(ctx context.Context, waitingConfirmation time.Duration, messages ...wallet.Sendable) (ton.Bits256, error)
}

type LedgerConfig struct {
	Seed            string
	FinalizeAmount  tlb.Grams
	ConfirmationTTL time.Duration
}

// Ledger pays out tournament pools from the operator wallet.
type Ledger struct {
	chain           Chain
	sender          Sender
	finalizeAmount  tlb.Grams
	confirmationTTL time.Duration
}

func NewLedger(chain Chain, sender Sender, cfg LedgerConfig) *Ledger {
	if cfg.FinalizeAmount == 0 {
		cfg.FinalizeAmount = tlb.Grams(50_000_000)
	}
	if cfg.ConfirmationTTL <= 0 {
		cfg.ConfirmationTTL = 15 * time.Second
	}

	return &Ledger{
		chain:           chain,
		sender:          sender,
		finalizeAmount:  cfg.FinalizeAmount,
		confirmationTTL: cfg.ConfirmationTTL,
	}
}

func NewMainnetLedger(cfg LedgerConfig) (*Ledger, error) {
	client, err := liteapi.NewClientWithDefaultMainnet()
	if err != nil {
		return nil, err
	}

	w, err := wallet.DefaultWalletFromSeed(cfg.Seed, client)
	if err != nil {
		return nil, fmt.Errorf("unable to create wallet: %w", err)
	}

	return NewLedger(client, &w, cfg), nil
}

func (l *Ledger) PoolSnapshot(ctx context.Context, pool string) (*models.PoolSnapshot, error) {
	accountID, err := ParseAccountID(pool)
	if err != nil {
		return nil, err
	}

	state, err := l.chain.GetAccountState(ctx, accountID)
	if err != nil {
		return nil, err
	}

	balance, err := Balance(state)
	if err != nil {
		return nil, err
	}

	exitCode, stack, err := l.chain.RunSmcMethod(ctx, accountID, methodGetAuthority, tlb.VmStack{})
	if err != nil {
		return nil, err
	}
	if exitCode != 0 && exitCode != 1 {
		return nil, fmt.Errorf("%s exited with code %d", methodGetAuthority, exitCode)
	}

	authority, err := authorityFromStack(stack)
	if err != nil {
		return nil, err
	}

	return &models.PoolSnapshot{
		TotalFunds: balance,
		Authority:  authority.ToRaw(),
	}, nil
}

// FinalizePool asks the pool contract to close and hand its authority to the
// operator.
func (l *Ledger) FinalizePool(ctx context.Context, pool string, authority string) error {
	poolID, err := ParseAccountID(pool)
	if err != nil {
		return err
	}

	authorityID, err := ParseAccountID(authority)
	if err != nil {
		return err
	}

	body, err := FinalizeBody(authorityID, uint64(time.Now().Unix()))
	if err != nil {
		return err
	}

	_, err = l.sender.SendV2(ctx, l.confirmationTTL, wallet.Message{
		Amount:  l.finalizeAmount,
		Address: poolID,
		Body:    body,
		Bounce:  true,
		Mode:    3,
	})
	return err
}

// Transfer pays totalAmount split evenly across recipients. All addresses are
// checked before the first message is sent.
func (l *Ledger) Transfer(ctx context.Context, recipients []string, totalAmount uint64) ([]string, error) {
	if len(recipients) == 0 {
		return nil, nil
	}

	accounts := make([]ton.AccountID, len(recipients))
	for i, recipient := range recipients {
		accountID, err := ParseAccountID(recipient)
		if err != nil {
			return nil, err
		}
		accounts[i] = accountID
	}

	amount := tlb.Grams(totalAmount / uint64(len(recipients)))
	if amount == 0 {
		return nil, fmt.Errorf("amount %d too small for %d recipients", totalAmount, len(recipients))
	}

	confirmations := make([]string, 0, len(recipients))
	for start := 0; start < len(accounts); start += maxMessagesPerSend {
		end := min(start+maxMessagesPerSend, len(accounts))

		messages := make([]wallet.Sendable, 0, end-start)
		for _, accountID := range accounts[start:end] {
			messages = append(messages, wallet.Message{
				Amount:  amount,
				Address: accountID,
				Bounce:  false,
				Mode:    3,
			})
		}

		hash, err := l.sender.SendV2(ctx, l.confirmationTTL, messages...)
		if err != nil {
			return confirmations, err
		}

		for range messages {
			confirmations = append(confirmations, hash.Hex())
		}
	}

	return confirmations, nil
}

func ParseAccountID(address string) (ton.AccountID, error) {
	accountID, err := ton.ParseAccountID(address)
	if err != nil {
		return ton.AccountID{}, fmt.Errorf("%w %q: %v", ErrInvalidAddress, address, err)
	}
	return accountID, nil
}

func Balance(state tlb.ShardAccount) (uint64, error) {
	if state.Account.SumType != "Account" {
		return 0, ErrAccountNotActive
	}
	return uint64(state.Account.Account.Storage.Balance.Grams), nil
}

func FinalizeBody(authority ton.AccountID, queryID uint64) (*boc.Cell, error) {
	body := boc.NewCell()
	if err := body.WriteUint(opFinalize, 32); err != nil {
		return nil, err
	}
	if err := body.WriteUint(queryID, 64); err != nil {
		return nil, err
	}
	if err := tlb.Marshal(body, authority.ToMsgAddress()); err != nil {
		return nil, err
	}
	return body, nil
}

func authorityFromStack(stack tlb.VmStack) (ton.AccountID, error) {
	if len(stack) == 0 || stack[0].SumType != "VmStkSlice" {
		return ton.AccountID{}, fmt.Errorf("%s: unexpected stack", methodGetAuthority)
	}

	var addr tlb.MsgAddress
	if err := stack[0].VmStkSlice.UnmarshalToTlbStruct(&addr); err != nil {
		return ton.AccountID{}, err
	}

	accountID, err := ton.AccountIDFromTlb(addr)
	if err != nil {
		return ton.AccountID{}, err
	}
	if accountID == nil {
		return ton.AccountID{}, fmt.Errorf("%s: empty authority", methodGetAuthority)
	}

	return *accountID, nil
}
