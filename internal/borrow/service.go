package borrow

import (
	"fmt"
	"time"

	"github.com/rafflefi/api/internal/fixedmath"
	"github.com/rafflefi/api/internal/models"
)

// RepayResult reports how a repayment was applied. Repayment services
// interest first; only the excess retires principal, and collateral is
// released in proportion to the principal actually retired.
type RepayResult struct {
	Interest           uint64 `json:"interest"`     // interest outstanding at repay time
	ProtocolFee        uint64 `json:"protocol_fee"` // slice of interest routed to the raffle reward pool
	PrincipalRepaid    uint64 `json:"principal_repaid"`
	CollateralAsset    string `json:"collateral_asset"`
	CollateralReleased uint64 `json:"collateral_released"`
	Closed             bool   `json:"closed"` // borrow fully repaid, all collateral released
}

// Service defines borrow ledger operations. Pool liquidity checks and
// asset movement belong to the orchestrator.
type Service interface {
	Borrow(account, asset string, amount uint64, collateralAsset string, collateralAmount, collateralFactor uint64, now time.Time) (*models.UserBorrow, error)
	Repay(account, asset string, amount, borrowRate, protocolFeeBps uint64, now time.Time) (*RepayResult, error)
	InterestAccrued(account, asset string, borrowRate uint64, now time.Time) (uint64, error)
	GetBorrow(account, asset string) (*models.UserBorrow, error)
	ListBorrows(account string) ([]*models.UserBorrow, error)
}

type service struct {
	repo BorrowRepository
}

// NewService creates a new borrow service
func NewService(repo BorrowRepository) Service {
	return &service{repo: repo}
}

// Borrow opens or grows a borrow position. Amounts and collateral are
// additive across repeated borrows of the same asset pair, and the
// borrow timestamp resets, restarting the interest clock for the whole
// outstanding balance.
func (s *service) Borrow(account, asset string, amount uint64, collateralAsset string, collateralAmount, collateralFactor uint64, now time.Time) (*models.UserBorrow, error) {
	if amount == 0 {
		return nil, fmt.Errorf("borrow of %s: %w", asset, models.ErrInvalidAmount)
	}

	required, err := fixedmath.BasisPointsOf(amount, collateralFactor)
	if err != nil {
		return nil, err
	}
	if collateralAmount < required {
		return nil, fmt.Errorf("required %d of %s, provided %d: %w",
			required, collateralAsset, collateralAmount, models.ErrInsufficientCollateral)
	}

	b, err := s.repo.GetByAccountAsset(account, asset)
	if err != nil {
		return nil, err
	}
	if b == nil {
		b = &models.UserBorrow{Account: account, Asset: asset}
	}
	if b.Amount > 0 && b.CollateralAsset != collateralAsset {
		return nil, fmt.Errorf("open borrow collateralized with %s, not %s: %w",
			b.CollateralAsset, collateralAsset, models.ErrInvalidAsset)
	}

	principal, err := fixedmath.CheckedAdd(b.Amount, amount)
	if err != nil {
		return nil, err
	}
	collateral, err := fixedmath.CheckedAdd(b.CollateralAmount, collateralAmount)
	if err != nil {
		return nil, err
	}

	b.Amount = principal
	b.CollateralAsset = collateralAsset
	b.CollateralAmount = collateral
	b.BorrowTime = now

	if err := s.repo.Save(b); err != nil {
		return nil, err
	}
	return b, nil
}

// InterestAccrued computes the simple interest owed since the borrow
// timestamp: the annual charge at borrowRate bps, prorated by elapsed
// time. Zero when no borrow is open.
func (s *service) InterestAccrued(account, asset string, borrowRate uint64, now time.Time) (uint64, error) {
	b, err := s.repo.GetByAccountAsset(account, asset)
	if err != nil {
		return 0, err
	}
	return interestOn(b, borrowRate, now)
}

func interestOn(b *models.UserBorrow, borrowRate uint64, now time.Time) (uint64, error) {
	if b == nil || b.Amount == 0 {
		return 0, nil
	}
	annual, err := fixedmath.BasisPointsOf(b.Amount, borrowRate)
	if err != nil {
		return 0, err
	}
	return fixedmath.ScaleByTime(annual, now.Sub(b.BorrowTime))
}

// Repay applies amount against the outstanding debt. Interest is
// serviced before principal: when amount does not exceed the accrued
// interest no principal is retired and no collateral moves, even
// though the nominal debt shrank. Collateral release is proportional
// to the fraction of pre-repayment principal retired; full repayment
// releases everything and clears the record.
func (s *service) Repay(account, asset string, amount, borrowRate, protocolFeeBps uint64, now time.Time) (*RepayResult, error) {
	if amount == 0 {
		return nil, fmt.Errorf("repay of %s: %w", asset, models.ErrInvalidAmount)
	}

	b, err := s.repo.GetByAccountAsset(account, asset)
	if err != nil {
		return nil, err
	}
	if b == nil || b.Amount == 0 {
		return nil, fmt.Errorf("repay of %s by %s: %w", asset, account, models.ErrNoActiveBorrow)
	}

	interest, err := interestOn(b, borrowRate, now)
	if err != nil {
		return nil, err
	}
	totalDebt, err := fixedmath.CheckedAdd(b.Amount, interest)
	if err != nil {
		return nil, err
	}
	if amount > totalDebt {
		return nil, fmt.Errorf("repay %d, debt %d (principal %d + interest %d): %w",
			amount, totalDebt, b.Amount, interest, models.ErrAmountExceedsDebt)
	}

	fee, err := fixedmath.BasisPointsOf(interest, protocolFeeBps)
	if err != nil {
		return nil, err
	}

	principalRepaid := uint64(0)
	if amount > interest {
		principalRepaid = amount - interest
	}

	preAmount := b.Amount
	remaining := preAmount - principalRepaid

	released := uint64(0)
	if remaining == 0 {
		released = b.CollateralAmount
	} else if principalRepaid > 0 {
		released, err = fixedmath.MulDiv(b.CollateralAmount, principalRepaid, preAmount)
		if err != nil {
			return nil, err
		}
	}

	result := &RepayResult{
		Interest:           interest,
		ProtocolFee:        fee,
		PrincipalRepaid:    principalRepaid,
		CollateralAsset:    b.CollateralAsset,
		CollateralReleased: released,
		Closed:             remaining == 0,
	}

	b.Amount = remaining
	b.CollateralAmount -= released
	b.BorrowTime = now

	if err := s.repo.Save(b); err != nil {
		return nil, err
	}
	return result, nil
}

// GetBorrow returns the account's borrow position, or nil when absent.
func (s *service) GetBorrow(account, asset string) (*models.UserBorrow, error) {
	return s.repo.GetByAccountAsset(account, asset)
}

// ListBorrows returns all of the account's borrow positions.
func (s *service) ListBorrows(account string) ([]*models.UserBorrow, error) {
	return s.repo.ListByAccount(account)
}
