package settlement

import "errors"

var (
	ErrNotFound            = errors.New("challenge not found")
	ErrInvalidState        = errors.New("invalid challenge status")
	ErrNoEligibleWinner    = errors.New("no eligible winner")
	ErrSnapshotUnavailable = errors.New("pool snapshot unavailable")
	ErrTransferFailed      = errors.New("transfer failed")
	ErrClaimLost           = errors.New("settlement already claimed")
	ErrInvalidSplit        = errors.New("invalid airdrop split")
)
