package deposit

import (
	"errors"

	"gorm.io/gorm"

	"github.com/rafflefi/api/internal/models"
)

// DepositRepository interface defines deposit database operations
type DepositRepository interface {
	GetByAccountAsset(account, asset string) (*models.UserDeposit, error)
	Save(deposit *models.UserDeposit) error
	ListByAccount(account string) ([]*models.UserDeposit, error)
}

// depositRepository implements DepositRepository interface
type depositRepository struct {
	db *gorm.DB
}

// NewDepositRepository creates a new deposit repository
func NewDepositRepository(db *gorm.DB) DepositRepository {
	return &depositRepository{db: db}
}

// GetByAccountAsset retrieves a deposit record by account and asset
func (r *depositRepository) GetByAccountAsset(account, asset string) (*models.UserDeposit, error) {
	if account == "" || asset == "" {
		return nil, errors.New("account and asset cannot be empty")
	}

	var dep models.UserDeposit
	err := r.db.Where("account = ? AND asset = ?", account, asset).First(&dep).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &dep, nil
}

// Save creates or updates a deposit record
func (r *depositRepository) Save(deposit *models.UserDeposit) error {
	if deposit == nil {
		return errors.New("deposit cannot be nil")
	}
	return r.db.Save(deposit).Error
}

// ListByAccount retrieves all deposit records for an account
func (r *depositRepository) ListByAccount(account string) ([]*models.UserDeposit, error) {
	if account == "" {
		return nil, errors.New("account cannot be empty")
	}

	var deps []*models.UserDeposit
	err := r.db.Where("account = ?", account).Find(&deps).Error
	return deps, err
}
