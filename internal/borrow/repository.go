package borrow

import (
	"errors"

	"gorm.io/gorm"

	"github.com/rafflefi/api/internal/models"
)

// BorrowRepository interface defines borrow database operations
type BorrowRepository interface {
	GetByAccountAsset(account, asset string) (*models.UserBorrow, error)
	Save(borrow *models.UserBorrow) error
	ListByAccount(account string) ([]*models.UserBorrow, error)
}

// borrowRepository implements BorrowRepository interface
type borrowRepository struct {
	db *gorm.DB
}

// NewBorrowRepository creates a new borrow repository
func NewBorrowRepository(db *gorm.DB) BorrowRepository {
	return &borrowRepository{db: db}
}

// GetByAccountAsset retrieves a borrow record by account and asset
func (r *borrowRepository) GetByAccountAsset(account, asset string) (*models.UserBorrow, error) {
	if account == "" || asset == "" {
		return nil, errors.New("account and asset cannot be empty")
	}

	var b models.UserBorrow
	err := r.db.Where("account = ? AND asset = ?", account, asset).First(&b).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &b, nil
}

// Save creates or updates a borrow record
func (r *borrowRepository) Save(borrow *models.UserBorrow) error {
	if borrow == nil {
		return errors.New("borrow cannot be nil")
	}
	return r.db.Save(borrow).Error
}

// ListByAccount retrieves all borrow records for an account
func (r *borrowRepository) ListByAccount(account string) ([]*models.UserBorrow, error) {
	if account == "" {
		return nil, errors.New("account cannot be empty")
	}

	var borrows []*models.UserBorrow
	err := r.db.Where("account = ?", account).Find(&borrows).Error
	return borrows, err
}
