package models

import "errors"

// Domain error sentinels. Every failure is a precondition violation:
// callers must change inputs before retrying. Services wrap these with
// the offending values via fmt.Errorf("...: %w", Err...), so handlers
// can match with errors.Is while the message carries the specifics.
var (
	ErrInvalidAsset            = errors.New("invalid asset identifier")
	ErrPoolAlreadyExists       = errors.New("pool already exists")
	ErrInvalidCollateralFactor = errors.New("collateral factor below 10000 bps")
	ErrPoolNotActive           = errors.New("pool not active")
	ErrInvalidAmount           = errors.New("amount must be positive")
	ErrInsufficientBalance     = errors.New("insufficient balance")
	ErrInsufficientLiquidity   = errors.New("insufficient liquidity")
	ErrInsufficientCollateral  = errors.New("insufficient collateral")
	ErrNoActiveBorrow          = errors.New("no active borrow")
	ErrAmountExceedsDebt       = errors.New("amount exceeds outstanding debt")
	ErrPreviousRaffleNotDrawn  = errors.New("previous raffle not drawn")
	ErrAlreadyDrawn            = errors.New("raffle already drawn")
	ErrRaffleNotEnded          = errors.New("raffle not ended")
	ErrNoParticipants          = errors.New("raffle has no participants")
	ErrRaffleNotFound          = errors.New("raffle not found")
	ErrArithmeticOverflow      = errors.New("arithmetic overflow")
	ErrTransferFailed          = errors.New("asset transfer failed")
)
