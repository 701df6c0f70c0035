package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// User represents an account known to the API layer. Roles gate the
// admin-only operations (pool creation, raffle management).
type User struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	Address   string         `json:"address" gorm:"uniqueIndex;not null;size:42"`
	Nonce     string         `json:"nonce" gorm:"size:64"`
	Roles     pq.StringArray `json:"roles" gorm:"type:text[]"`
	IsActive  *bool          `json:"is_active" gorm:"default:true"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at" gorm:"index"`
}

// TableName returns the table name for User model
func (User) TableName() string {
	return "users"
}

// BeforeCreate hook to set default values
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.Roles == nil {
		u.Roles = pq.StringArray{"user"}
	}
	return nil
}

// Pool represents a per-asset lending pool. All amounts are unsigned
// integers in the asset's smallest unit; rates are basis points.
// UtilizationRate is derived from the totals and recomputed after every
// mutation, never set independently.
type Pool struct {
	ID               uint           `json:"id" gorm:"primaryKey"`
	Asset            string         `json:"asset" gorm:"uniqueIndex;not null;size:42"`
	TotalDeposits    uint64         `json:"total_deposits" gorm:"not null;default:0"`
	TotalBorrows     uint64         `json:"total_borrows" gorm:"not null;default:0"`
	UtilizationRate  uint64         `json:"utilization_rate" gorm:"not null;default:0"` // bps, derived
	BorrowRate       uint64         `json:"borrow_rate" gorm:"not null"`                // annual bps
	CollateralFactor uint64         `json:"collateral_factor" gorm:"not null"`          // bps, >= 10000
	Decimals         uint8          `json:"decimals" gorm:"not null;default:6"`
	TokenUnit        uint64         `json:"token_unit" gorm:"not null"` // 10^Decimals
	IsActive         *bool          `json:"is_active" gorm:"default:true"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `json:"deleted_at" gorm:"index"`
}

// TableName returns the table name for Pool model
func (Pool) TableName() string {
	return "pools"
}

// FreeLiquidity is the ceiling on withdrawals and new borrows.
func (p *Pool) FreeLiquidity() uint64 {
	if p.TotalBorrows > p.TotalDeposits {
		return 0
	}
	return p.TotalDeposits - p.TotalBorrows
}

// UserDeposit tracks a depositor's position in one pool. RaffleTickets
// is recomputed from the remaining amount and elapsed days on withdrawal;
// it is not continuously decayed.
type UserDeposit struct {
	ID            uint           `json:"id" gorm:"primaryKey"`
	Account       string         `json:"account" gorm:"not null;size:42;uniqueIndex:idx_deposit_account_asset"`
	Asset         string         `json:"asset" gorm:"not null;size:42;uniqueIndex:idx_deposit_account_asset"`
	Amount        uint64         `json:"amount" gorm:"not null;default:0"`
	DepositTime   time.Time      `json:"deposit_time"`
	RaffleTickets uint64         `json:"raffle_tickets" gorm:"not null;default:0"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `json:"deleted_at" gorm:"index"`
}

// TableName returns the table name for UserDeposit model
func (UserDeposit) TableName() string {
	return "user_deposits"
}

// UserBorrow tracks a borrower's outstanding principal and locked
// collateral in one pool. Interest is computed from BorrowTime alone;
// repeated borrows restart the clock for the entire balance.
type UserBorrow struct {
	ID               uint           `json:"id" gorm:"primaryKey"`
	Account          string         `json:"account" gorm:"not null;size:42;uniqueIndex:idx_borrow_account_asset"`
	Asset            string         `json:"asset" gorm:"not null;size:42;uniqueIndex:idx_borrow_account_asset"`
	Amount           uint64         `json:"amount" gorm:"not null;default:0"`
	BorrowTime       time.Time      `json:"borrow_time"`
	CollateralAsset  string         `json:"collateral_asset" gorm:"size:42"`
	CollateralAmount uint64         `json:"collateral_amount" gorm:"not null;default:0"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `json:"deleted_at" gorm:"index"`
}

// TableName returns the table name for UserBorrow model
func (UserBorrow) TableName() string {
	return "user_borrows"
}

// Raffle is one weekly draw. Exactly one raffle is open (Drawn == false
// on the highest ID) at a time; a new raffle cannot start until the
// previous one has been drawn.
type Raffle struct {
	ID              uint           `json:"id" gorm:"primaryKey"`
	TotalRewardPool uint64         `json:"total_reward_pool" gorm:"not null;default:0"`
	EndTime         time.Time      `json:"end_time"`
	NumberOfWinners int            `json:"number_of_winners" gorm:"not null"`
	Drawn           bool           `json:"drawn" gorm:"not null;default:false"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `json:"deleted_at" gorm:"index"`
}

// TableName returns the table name for Raffle model
func (Raffle) TableName() string {
	return "raffles"
}

// RaffleEntry is one participant's accumulated tickets in a raffle. The
// auto-increment ID preserves first-contribution order, which the
// cumulative-weight scan in the draw depends on.
type RaffleEntry struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	RaffleID  uint      `json:"raffle_id" gorm:"not null;uniqueIndex:idx_entry_raffle_account"`
	Account   string    `json:"account" gorm:"not null;size:42;uniqueIndex:idx_entry_raffle_account"`
	Tickets   uint64    `json:"tickets" gorm:"not null;default:0"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the table name for RaffleEntry model
func (RaffleEntry) TableName() string {
	return "raffle_entries"
}

// RaffleWinner records one drawn winner. The same account may appear at
// several positions: winners are drawn with replacement.
type RaffleWinner struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	RaffleID  uint      `json:"raffle_id" gorm:"not null;index"`
	Account   string    `json:"account" gorm:"not null;size:42"`
	Position  int       `json:"position" gorm:"not null"`
	Reward    uint64    `json:"reward" gorm:"not null;default:0"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the table name for RaffleWinner model
func (RaffleWinner) TableName() string {
	return "raffle_winners"
}

// AccountBalance backs the bundled asset-transfer ledger. Custody is an
// external collaborator; this table exists so the API and the
// integration suite can observe debits and credits end to end.
type AccountBalance struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Account   string    `json:"account" gorm:"not null;size:42;uniqueIndex:idx_balance_account_asset"`
	Asset     string    `json:"asset" gorm:"not null;size:42;uniqueIndex:idx_balance_account_asset"`
	Amount    uint64    `json:"amount" gorm:"not null;default:0"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the table name for AccountBalance model
func (AccountBalance) TableName() string {
	return "account_balances"
}

// OperationType represents the type of ledger operation
type OperationType string

const (
	OperationTypeDeposit     OperationType = "deposit"
	OperationTypeWithdraw    OperationType = "withdraw"
	OperationTypeBorrow      OperationType = "borrow"
	OperationTypeRepay       OperationType = "repay"
	OperationTypeCreatePool  OperationType = "create_pool"
	OperationTypeStartRaffle OperationType = "start_raffle"
	OperationTypeDrawRaffle  OperationType = "draw_raffle"
)

// Operation is the audit journal of committed ledger mutations.
type Operation struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	Account   string         `json:"account" gorm:"size:42;index"`
	Asset     string         `json:"asset" gorm:"size:42;index"`
	Type      OperationType  `json:"type" gorm:"not null;size:20"`
	Amount    uint64         `json:"amount" gorm:"not null;default:0"`
	Tickets   uint64         `json:"tickets" gorm:"not null;default:0"`
	RaffleID  uint           `json:"raffle_id"`
	CreatedAt time.Time      `json:"created_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at" gorm:"index"`
}

// TableName returns the table name for Operation model
func (Operation) TableName() string {
	return "operations"
}

// All returns every model registered for auto-migration.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Pool{},
		&UserDeposit{},
		&UserBorrow{},
		&Raffle{},
		&RaffleEntry{},
		&RaffleWinner{},
		&AccountBalance{},
		&Operation{},
	}
}
