package deposit

import (
	"fmt"
	"time"

	"github.com/rafflefi/api/internal/fixedmath"
	"github.com/rafflefi/api/internal/models"
)

// TicketsPerTokenPerDay is the raffle ticket accrual rate: one ticket
// per whole token per day held, with day zero counting as one day.
const TicketsPerTokenPerDay uint64 = 1

// Service defines deposit ledger operations. Liquidity checks and the
// actual asset movement belong to the orchestrator; this layer owns the
// per-(account, asset) record and the ticket arithmetic.
type Service interface {
	Deposit(account, asset string, amount, tokenUnit uint64, now time.Time) (uint64, error)
	Withdraw(account, asset string, amount, tokenUnit uint64, now time.Time) (*models.UserDeposit, error)
	TicketsFor(amount, tokenUnit, daysElapsed uint64) (uint64, error)
	GetDeposit(account, asset string) (*models.UserDeposit, error)
	ListDeposits(account string) ([]*models.UserDeposit, error)
}

type service struct {
	repo DepositRepository
}

// NewService creates a new deposit service
func NewService(repo DepositRepository) Service {
	return &service{repo: repo}
}

// TicketsFor computes floor(amount * rate * (daysElapsed+1) / tokenUnit):
// tickets scale linearly with principal and holding duration, and a
// deposit of one whole token held zero full days earns exactly one.
func (s *service) TicketsFor(amount, tokenUnit, daysElapsed uint64) (uint64, error) {
	multiplier, err := fixedmath.CheckedAdd(daysElapsed, 1)
	if err != nil {
		return 0, err
	}
	weighted, err := fixedmath.CheckedMul(multiplier, TicketsPerTokenPerDay)
	if err != nil {
		return 0, err
	}
	return fixedmath.MulDiv(amount, weighted, tokenUnit)
}

// Deposit adds amount to the account's position, stamps the deposit
// time and accrues tickets for the new principal at day zero. The
// tickets earned are returned for the caller to forward to the raffle.
func (s *service) Deposit(account, asset string, amount, tokenUnit uint64, now time.Time) (uint64, error) {
	if amount == 0 {
		return 0, fmt.Errorf("deposit of %s: %w", asset, models.ErrInvalidAmount)
	}

	tickets, err := s.TicketsFor(amount, tokenUnit, 0)
	if err != nil {
		return 0, err
	}

	dep, err := s.repo.GetByAccountAsset(account, asset)
	if err != nil {
		return 0, err
	}
	if dep == nil {
		dep = &models.UserDeposit{Account: account, Asset: asset}
	}

	total, err := fixedmath.CheckedAdd(dep.Amount, amount)
	if err != nil {
		return 0, err
	}
	accrued, err := fixedmath.CheckedAdd(dep.RaffleTickets, tickets)
	if err != nil {
		return 0, err
	}

	dep.Amount = total
	dep.DepositTime = now
	dep.RaffleTickets = accrued

	if err := s.repo.Save(dep); err != nil {
		return 0, err
	}
	return tickets, nil
}

// Withdraw reduces the position and recomputes the ticket balance from
// the remaining amount and the days elapsed since the last deposit.
// The recompute overwrites earlier accrual; tickets already captured by
// an open raffle are unaffected.
func (s *service) Withdraw(account, asset string, amount, tokenUnit uint64, now time.Time) (*models.UserDeposit, error) {
	if amount == 0 {
		return nil, fmt.Errorf("withdraw of %s: %w", asset, models.ErrInvalidAmount)
	}

	dep, err := s.repo.GetByAccountAsset(account, asset)
	if err != nil {
		return nil, err
	}
	held := uint64(0)
	if dep != nil {
		held = dep.Amount
	}
	if dep == nil || amount > held {
		return nil, fmt.Errorf("withdraw %d of %s, deposited %d: %w",
			amount, asset, held, models.ErrInsufficientBalance)
	}

	remaining := dep.Amount - amount
	tickets, err := s.TicketsFor(remaining, tokenUnit, DaysElapsed(dep.DepositTime, now))
	if err != nil {
		return nil, err
	}

	dep.Amount = remaining
	dep.RaffleTickets = tickets

	if err := s.repo.Save(dep); err != nil {
		return nil, err
	}
	return dep, nil
}

// GetDeposit returns the account's position, or nil when absent.
func (s *service) GetDeposit(account, asset string) (*models.UserDeposit, error) {
	return s.repo.GetByAccountAsset(account, asset)
}

// ListDeposits returns all of the account's positions.
func (s *service) ListDeposits(account string) ([]*models.UserDeposit, error) {
	return s.repo.ListByAccount(account)
}

// DaysElapsed counts whole days between two instants, zero when from
// is unset or in the future.
func DaysElapsed(from, to time.Time) uint64 {
	if from.IsZero() || !to.After(from) {
		return 0
	}
	return uint64(to.Sub(from) / (24 * time.Hour))
}
