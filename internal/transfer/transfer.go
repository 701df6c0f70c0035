// Package transfer is the boundary to asset custody. The ledger only
// requires that value can be debited from an owner before a deposit or
// repayment commits and credited back on withdrawal, collateral release
// and raffle payout; the bundled implementation keeps simple balances
// in the database so those movements are observable end to end.
package transfer

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/rafflefi/api/internal/fixedmath"
	"github.com/rafflefi/api/internal/models"
)

// Service moves value between an owner account and the ledger.
type Service interface {
	// Debit pulls amount of asset from the account into the ledger.
	Debit(account, asset string, amount uint64) error
	// Credit releases amount of asset from the ledger to the account.
	Credit(account, asset string, amount uint64) error
	// CreditReward pays out a raffle reward to the winner's account.
	CreditReward(account, asset string, amount uint64) error
	// Balance reports the account's free balance of asset.
	Balance(account, asset string) (uint64, error)
}

// LedgerTransfer implements Service over the account_balances table.
type LedgerTransfer struct {
	db *gorm.DB
}

// NewLedgerTransfer creates a transfer service backed by the database.
func NewLedgerTransfer(db *gorm.DB) *LedgerTransfer {
	return &LedgerTransfer{db: db}
}

func (t *LedgerTransfer) load(account, asset string) (*models.AccountBalance, error) {
	var bal models.AccountBalance
	err := t.db.Where("account = ? AND asset = ?", account, asset).First(&bal).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &bal, nil
}

// Debit pulls amount of asset from the account into the ledger.
func (t *LedgerTransfer) Debit(account, asset string, amount uint64) error {
	bal, err := t.load(account, asset)
	if err != nil {
		return err
	}
	if bal == nil || bal.Amount < amount {
		held := uint64(0)
		if bal != nil {
			held = bal.Amount
		}
		return fmt.Errorf("debit %d of %s from %s, balance %d: %w",
			amount, asset, account, held, models.ErrTransferFailed)
	}
	bal.Amount -= amount
	return t.db.Save(bal).Error
}

// Credit releases amount of asset from the ledger to the account.
func (t *LedgerTransfer) Credit(account, asset string, amount uint64) error {
	bal, err := t.load(account, asset)
	if err != nil {
		return err
	}
	if bal == nil {
		bal = &models.AccountBalance{Account: account, Asset: asset}
	}
	sum, err := fixedmath.CheckedAdd(bal.Amount, amount)
	if err != nil {
		return fmt.Errorf("credit %d of %s to %s: %w", amount, asset, account, err)
	}
	bal.Amount = sum
	return t.db.Save(bal).Error
}

// CreditReward pays out a raffle reward to the winner's account.
func (t *LedgerTransfer) CreditReward(account, asset string, amount uint64) error {
	return t.Credit(account, asset, amount)
}

// Balance reports the account's free balance of asset.
func (t *LedgerTransfer) Balance(account, asset string) (uint64, error) {
	bal, err := t.load(account, asset)
	if err != nil {
		return 0, err
	}
	if bal == nil {
		return 0, nil
	}
	return bal.Amount, nil
}
