package lending

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rafflefi/api/internal/borrow"
	"github.com/rafflefi/api/internal/deposit"
	"github.com/rafflefi/api/internal/models"
	"github.com/rafflefi/api/internal/pool"
	"github.com/rafflefi/api/internal/raffle"
	"github.com/rafflefi/api/internal/transaction"
	"github.com/rafflefi/api/internal/transfer"
	"github.com/rafflefi/api/internal/websocket"
)

// DefaultProtocolFeeBps is the slice of repaid interest routed to the
// raffle reward pool: 10%.
const DefaultProtocolFeeBps uint64 = 1_000

// EventPublisher pushes ledger events onto the realtime feed. The
// websocket hub satisfies it; a nil publisher is replaced by a no-op.
type EventPublisher interface {
	PublishEvent(topic websocket.SubscriptionTopic, event string, data interface{})
}

type noopPublisher struct{}

func (noopPublisher) PublishEvent(websocket.SubscriptionTopic, string, interface{}) {}

// Config carries the orchestrator's protocol parameters.
type Config struct {
	// ProtocolFeeBps is the share of repaid interest that funds the
	// open raffle. Zero means DefaultProtocolFeeBps.
	ProtocolFeeBps uint64
	// RewardAsset denominates raffle payouts.
	RewardAsset string
}

// Service coordinates the pool registry, the two position ledgers, the
// raffle engine and asset custody into the atomic operations the API
// exposes. Each operation locks the account positions and pool it
// touches, validates, moves funds, then commits ledger state.
//
// It also implements pool.Service and raffle.Service by delegation so
// the pool and raffle handlers get journaling, raffle payouts and feed
// events without knowing about the orchestrator.
type Service struct {
	pools     pool.Service
	deposits  deposit.Service
	borrows   borrow.Service
	raffles   raffle.Service
	transfers transfer.Service
	journal   transaction.OperationRepository
	events    EventPublisher

	locks *lockMap
	now   func() time.Time
	cfg   Config
}

var (
	_ pool.Service   = (*Service)(nil)
	_ raffle.Service = (*Service)(nil)
)

// NewService creates the orchestrator.
func NewService(
	pools pool.Service,
	deposits deposit.Service,
	borrows borrow.Service,
	raffles raffle.Service,
	transfers transfer.Service,
	journal transaction.OperationRepository,
	events EventPublisher,
	cfg Config,
) *Service {
	if events == nil {
		events = noopPublisher{}
	}
	if cfg.ProtocolFeeBps == 0 {
		cfg.ProtocolFeeBps = DefaultProtocolFeeBps
	}
	return &Service{
		pools:     pools,
		deposits:  deposits,
		borrows:   borrows,
		raffles:   raffles,
		transfers: transfers,
		journal:   journal,
		events:    events,
		locks:     newLockMap(),
		now:       time.Now,
		cfg:       cfg,
	}
}

// SetClock overrides the time source. Test hook.
func (s *Service) SetClock(fn func() time.Time) {
	s.now = fn
}

func acctKey(account, asset string) string { return "acct:" + account + ":" + asset }
func poolKey(asset string) string          { return "pool:" + asset }

// record appends to the operation journal. The journal is an audit
// trail, not ledger state: failures are logged, never propagated.
func (s *Service) record(op *models.Operation) {
	if s.journal == nil {
		return
	}
	if err := s.journal.Create(op); err != nil {
		logrus.WithError(err).WithField("type", op.Type).Warn("failed to journal operation")
	}
}

// refund is the compensation path when a step fails after funds were
// already pulled in.
func (s *Service) refund(account, asset string, amount uint64) {
	if err := s.transfers.Credit(account, asset, amount); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"account": account,
			"asset":   asset,
			"amount":  amount,
		}).Error("refund after failed operation did not complete")
	}
}

// reclaim pulls back a credit already paid out when a later ledger
// commit fails. Counterpart of refund.
func (s *Service) reclaim(account, asset string, amount uint64) {
	if err := s.transfers.Debit(account, asset, amount); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"account": account,
			"asset":   asset,
			"amount":  amount,
		}).Error("reclaim after failed operation did not complete")
	}
}

// unwindDeposit backs a just-committed deposit out of the position
// ledger when a later step fails. Best effort, like refund.
func (s *Service) unwindDeposit(account, asset string, amount, tokenUnit uint64) {
	if _, err := s.deposits.Withdraw(account, asset, amount, tokenUnit, s.now()); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"account": account,
			"asset":   asset,
			"amount":  amount,
		}).Error("deposit unwind after failed operation did not complete")
	}
}

func (s *Service) unwindPool(asset string, undo func(string, uint64) (*models.Pool, error), amount uint64) {
	if _, err := undo(asset, amount); err != nil {
		logrus.WithError(err).WithField("asset", asset).
			Error("pool unwind after failed operation did not complete")
	}
}

// DepositResult reports a committed deposit.
type DepositResult struct {
	Deposit       *models.UserDeposit `json:"deposit"`
	TicketsIssued uint64              `json:"tickets_issued"`
	RaffleID      uint                `json:"raffle_id,omitempty"`
	Pool          *models.Pool        `json:"pool"`
}

// Deposit moves amount of asset from the account into the pool and
// credits raffle tickets for the new principal.
func (s *Service) Deposit(account, asset string, amount uint64) (*DepositResult, error) {
	unlock := s.locks.lock(acctKey(account, asset), poolKey(asset))
	defer unlock()

	p, err := s.pools.RequireActive(asset)
	if err != nil {
		return nil, err
	}
	if amount == 0 {
		return nil, fmt.Errorf("deposit of %s: %w", asset, models.ErrInvalidAmount)
	}

	now := s.now()
	unit := p.TokenUnit
	if err := s.transfers.Debit(account, asset, amount); err != nil {
		return nil, err
	}

	// Ledger commits run after the debit; any failure below unwinds
	// the committed steps and returns the debited funds.
	tickets, err := s.deposits.Deposit(account, asset, amount, unit, now)
	if err != nil {
		s.refund(account, asset, amount)
		return nil, err
	}
	p, err = s.pools.AddDeposits(asset, amount)
	if err != nil {
		s.unwindDeposit(account, asset, amount, unit)
		s.refund(account, asset, amount)
		return nil, err
	}
	raffleID, err := s.raffles.AddTickets(account, tickets)
	if err != nil {
		s.unwindPool(asset, s.pools.SubDeposits, amount)
		s.unwindDeposit(account, asset, amount, unit)
		s.refund(account, asset, amount)
		return nil, err
	}

	dep, err := s.deposits.GetDeposit(account, asset)
	if err != nil {
		return nil, err
	}

	s.record(&models.Operation{
		Account:  account,
		Asset:    asset,
		Type:     models.OperationTypeDeposit,
		Amount:   amount,
		Tickets:  tickets,
		RaffleID: raffleID,
	})
	s.events.PublishEvent(websocket.TopicDeposits, websocket.EventDeposit, map[string]interface{}{
		"account": account,
		"asset":   asset,
		"amount":  amount,
		"tickets": tickets,
	})

	return &DepositResult{Deposit: dep, TicketsIssued: tickets, RaffleID: raffleID, Pool: p}, nil
}

// WithdrawResult reports a committed withdrawal.
type WithdrawResult struct {
	Deposit *models.UserDeposit `json:"deposit"`
	Pool    *models.Pool        `json:"pool"`
}

// Withdraw returns amount of asset to the account. Free liquidity caps
// withdrawals: principal lent out cannot leave the pool. The pool need
// not be active, depositors of a retired pool can still exit.
func (s *Service) Withdraw(account, asset string, amount uint64) (*WithdrawResult, error) {
	unlock := s.locks.lock(acctKey(account, asset), poolKey(asset))
	defer unlock()

	p, err := s.pools.GetPool(asset)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("no pool for asset %s: %w", asset, models.ErrPoolNotActive)
	}
	if amount == 0 {
		return nil, fmt.Errorf("withdraw of %s: %w", asset, models.ErrInvalidAmount)
	}
	if free := p.FreeLiquidity(); amount > free {
		return nil, fmt.Errorf("withdraw %d of %s, free liquidity %d: %w",
			amount, asset, free, models.ErrInsufficientLiquidity)
	}
	held := uint64(0)
	if existing, err := s.deposits.GetDeposit(account, asset); err != nil {
		return nil, err
	} else if existing != nil {
		held = existing.Amount
	}
	if amount > held {
		return nil, fmt.Errorf("withdraw %d of %s, deposited %d: %w",
			amount, asset, held, models.ErrInsufficientBalance)
	}

	// Pay out before touching the ledger: a failed credit must not
	// leave the position or the pool totals mutated.
	unit := p.TokenUnit
	if err := s.transfers.Credit(account, asset, amount); err != nil {
		return nil, err
	}
	p, err = s.pools.SubDeposits(asset, amount)
	if err != nil {
		s.reclaim(account, asset, amount)
		return nil, err
	}
	dep, err := s.deposits.Withdraw(account, asset, amount, unit, s.now())
	if err != nil {
		s.unwindPool(asset, s.pools.AddDeposits, amount)
		s.reclaim(account, asset, amount)
		return nil, err
	}

	s.record(&models.Operation{
		Account: account,
		Asset:   asset,
		Type:    models.OperationTypeWithdraw,
		Amount:  amount,
		Tickets: dep.RaffleTickets,
	})
	s.events.PublishEvent(websocket.TopicDeposits, websocket.EventWithdraw, map[string]interface{}{
		"account": account,
		"asset":   asset,
		"amount":  amount,
	})

	return &WithdrawResult{Deposit: dep, Pool: p}, nil
}

// BorrowResult reports a committed borrow.
type BorrowResult struct {
	Borrow *models.UserBorrow `json:"borrow"`
	Pool   *models.Pool       `json:"pool"`
}

// Borrow locks collateral and pays the loan out of pool liquidity.
func (s *Service) Borrow(account, asset string, amount uint64, collateralAsset string, collateralAmount uint64) (*BorrowResult, error) {
	unlock := s.locks.lock(acctKey(account, asset), acctKey(account, collateralAsset), poolKey(asset))
	defer unlock()

	p, err := s.pools.RequireActive(asset)
	if err != nil {
		return nil, err
	}
	if amount == 0 {
		return nil, fmt.Errorf("borrow of %s: %w", asset, models.ErrInvalidAmount)
	}
	if free := p.FreeLiquidity(); amount > free {
		return nil, fmt.Errorf("borrow %d of %s, free liquidity %d: %w",
			amount, asset, free, models.ErrInsufficientLiquidity)
	}

	if err := s.transfers.Debit(account, collateralAsset, collateralAmount); err != nil {
		return nil, err
	}
	// The loan pays out before the position commits, so a failed credit
	// leaves no ledger state behind, only the collateral to refund.
	if err := s.transfers.Credit(account, asset, amount); err != nil {
		s.refund(account, collateralAsset, collateralAmount)
		return nil, err
	}

	b, err := s.borrows.Borrow(account, asset, amount, collateralAsset, collateralAmount, p.CollateralFactor, s.now())
	if err != nil {
		s.reclaim(account, asset, amount)
		s.refund(account, collateralAsset, collateralAmount)
		return nil, err
	}
	p, err = s.pools.AddBorrows(asset, amount)
	if err != nil {
		if _, repayErr := s.borrows.Repay(account, asset, amount, 0, 0, s.now()); repayErr != nil {
			logrus.WithError(repayErr).WithField("asset", asset).
				Error("borrow unwind after failed operation did not complete")
		}
		s.reclaim(account, asset, amount)
		s.refund(account, collateralAsset, collateralAmount)
		return nil, err
	}

	s.record(&models.Operation{
		Account: account,
		Asset:   asset,
		Type:    models.OperationTypeBorrow,
		Amount:  amount,
	})
	s.events.PublishEvent(websocket.TopicBorrows, websocket.EventBorrow, map[string]interface{}{
		"account":           account,
		"asset":             asset,
		"amount":            amount,
		"collateral_asset":  collateralAsset,
		"collateral_amount": collateralAmount,
	})

	return &BorrowResult{Borrow: b, Pool: p}, nil
}

// RepayResult reports a committed repayment.
type RepayResult struct {
	*borrow.RepayResult
	RaffleID uint         `json:"raffle_id,omitempty"`
	Pool     *models.Pool `json:"pool"`
}

// Repay settles debt interest-first. The protocol's cut of the interest
// funds the open raffle; collateral backing the retired principal goes
// back to the account. Repayment is accepted while the pool is
// inactive, a retired pool still has debts to settle.
func (s *Service) Repay(account, asset string, amount uint64) (*RepayResult, error) {
	unlock := s.locks.lock(acctKey(account, asset), poolKey(asset))
	defer unlock()

	p, err := s.pools.GetPool(asset)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("no pool for asset %s: %w", asset, models.ErrPoolNotActive)
	}
	if amount == 0 {
		return nil, fmt.Errorf("repay of %s: %w", asset, models.ErrInvalidAmount)
	}

	if err := s.transfers.Debit(account, asset, amount); err != nil {
		return nil, err
	}

	res, err := s.borrows.Repay(account, asset, amount, p.BorrowRate, s.cfg.ProtocolFeeBps, s.now())
	if err != nil {
		s.refund(account, asset, amount)
		return nil, err
	}

	if res.PrincipalRepaid > 0 {
		if p, err = s.pools.SubBorrows(asset, res.PrincipalRepaid); err != nil {
			return nil, err
		}
	}
	raffleID, err := s.raffles.FundCurrentRaffle(res.ProtocolFee)
	if err != nil {
		return nil, err
	}
	if res.CollateralReleased > 0 {
		if err := s.transfers.Credit(account, res.CollateralAsset, res.CollateralReleased); err != nil {
			return nil, err
		}
	}

	s.record(&models.Operation{
		Account:  account,
		Asset:    asset,
		Type:     models.OperationTypeRepay,
		Amount:   amount,
		RaffleID: raffleID,
	})
	s.events.PublishEvent(websocket.TopicBorrows, websocket.EventRepay, map[string]interface{}{
		"account":          account,
		"asset":            asset,
		"amount":           amount,
		"principal_repaid": res.PrincipalRepaid,
		"interest":         res.Interest,
		"closed":           res.Closed,
	})
	if raffleID != 0 && res.ProtocolFee > 0 {
		s.events.PublishEvent(websocket.TopicRaffles, websocket.EventRaffleFunded, map[string]interface{}{
			"raffle_id": raffleID,
			"amount":    res.ProtocolFee,
		})
	}

	return &RepayResult{RepayResult: res, RaffleID: raffleID, Pool: p}, nil
}

// DepositInfo is a deposit record with the live ticket projection.
type DepositInfo struct {
	*models.UserDeposit
	CurrentTickets uint64 `json:"current_tickets"`
}

// GetDepositInfo returns the account's position with tickets recomputed
// for the current holding duration.
func (s *Service) GetDepositInfo(account, asset string) (*DepositInfo, error) {
	dep, err := s.deposits.GetDeposit(account, asset)
	if err != nil || dep == nil {
		return nil, err
	}
	p, err := s.pools.GetPool(asset)
	if err != nil {
		return nil, err
	}
	info := &DepositInfo{UserDeposit: dep, CurrentTickets: dep.RaffleTickets}
	if p != nil {
		current, err := s.deposits.TicketsFor(dep.Amount, p.TokenUnit, deposit.DaysElapsed(dep.DepositTime, s.now()))
		if err == nil {
			info.CurrentTickets = current
		}
	}
	return info, nil
}

// BorrowInfo is a borrow record with live interest.
type BorrowInfo struct {
	*models.UserBorrow
	InterestAccrued uint64 `json:"interest_accrued"`
	TotalDebt       uint64 `json:"total_debt"`
	BorrowRate      uint64 `json:"borrow_rate"`
}

// GetBorrowInfo returns the account's position with interest accrued
// up to now.
func (s *Service) GetBorrowInfo(account, asset string) (*BorrowInfo, error) {
	b, err := s.borrows.GetBorrow(account, asset)
	if err != nil || b == nil {
		return nil, err
	}
	p, err := s.pools.GetPool(asset)
	if err != nil {
		return nil, err
	}
	info := &BorrowInfo{UserBorrow: b, TotalDebt: b.Amount}
	if p != nil {
		info.BorrowRate = p.BorrowRate
		interest, err := s.borrows.InterestAccrued(account, asset, p.BorrowRate, s.now())
		if err == nil {
			info.InterestAccrued = interest
			info.TotalDebt = b.Amount + interest
		}
	}
	return info, nil
}

// ListAccountDeposits returns all of the account's deposit positions.
func (s *Service) ListAccountDeposits(account string) ([]*models.UserDeposit, error) {
	return s.deposits.ListDeposits(account)
}

// ListAccountBorrows returns all of the account's borrow positions.
func (s *Service) ListAccountBorrows(account string) ([]*models.UserBorrow, error) {
	return s.borrows.ListBorrows(account)
}

// CreditBalance seeds an account's custody balance. Admin bootstrap.
func (s *Service) CreditBalance(account, asset string, amount uint64) error {
	return s.transfers.Credit(account, asset, amount)
}

// GetBalance reports an account's free custody balance.
func (s *Service) GetBalance(account, asset string) (uint64, error) {
	return s.transfers.Balance(account, asset)
}

// AccountOperations returns the account's journal slice.
func (s *Service) AccountOperations(account string, limit, offset int) ([]*models.Operation, error) {
	if s.journal == nil {
		return nil, nil
	}
	return s.journal.GetByAccount(account, limit, offset)
}
