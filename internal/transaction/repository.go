package transaction

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/rafflefi/api/internal/models"
)

// OperationRepository interface defines operation journal database operations
type OperationRepository interface {
	Create(op *models.Operation) error
	GetByID(id uint) (*models.Operation, error)
	GetByAccount(account string, limit, offset int) ([]*models.Operation, error)
	GetByAsset(asset string, limit, offset int) ([]*models.Operation, error)
	GetByType(opType models.OperationType, limit, offset int) ([]*models.Operation, error)
	GetByRaffleID(raffleID uint) ([]*models.Operation, error)
	GetRecent(limit int) ([]*models.Operation, error)
	GetByDateRange(start, end time.Time) ([]*models.Operation, error)
	GetAccountOperationCount(account string) (int64, error)
	List(limit, offset int) ([]*models.Operation, error)
}

// operationRepository implements OperationRepository interface
type operationRepository struct {
	db *gorm.DB
}

// NewOperationRepository creates a new operation repository
func NewOperationRepository(db *gorm.DB) OperationRepository {
	return &operationRepository{db: db}
}

// Create appends an operation to the journal
func (r *operationRepository) Create(op *models.Operation) error {
	if op == nil {
		return errors.New("operation cannot be nil")
	}
	return r.db.Create(op).Error
}

// GetByID retrieves an operation by its ID
func (r *operationRepository) GetByID(id uint) (*models.Operation, error) {
	if id == 0 {
		return nil, errors.New("id cannot be zero")
	}

	var op models.Operation
	err := r.db.First(&op, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &op, nil
}

// GetByAccount retrieves operations for an account with pagination
func (r *operationRepository) GetByAccount(account string, limit, offset int) ([]*models.Operation, error) {
	if account == "" {
		return nil, errors.New("account cannot be empty")
	}

	var ops []*models.Operation
	err := r.db.Where("account = ?", account).
		Order("created_at DESC").Limit(limit).Offset(offset).Find(&ops).Error
	return ops, err
}

// GetByAsset retrieves operations against an asset with pagination
func (r *operationRepository) GetByAsset(asset string, limit, offset int) ([]*models.Operation, error) {
	if asset == "" {
		return nil, errors.New("asset cannot be empty")
	}

	var ops []*models.Operation
	err := r.db.Where("asset = ?", asset).
		Order("created_at DESC").Limit(limit).Offset(offset).Find(&ops).Error
	return ops, err
}

// GetByType retrieves operations of one type with pagination
func (r *operationRepository) GetByType(opType models.OperationType, limit, offset int) ([]*models.Operation, error) {
	if opType == "" {
		return nil, errors.New("type cannot be empty")
	}

	var ops []*models.Operation
	err := r.db.Where("type = ?", opType).
		Order("created_at DESC").Limit(limit).Offset(offset).Find(&ops).Error
	return ops, err
}

// GetByRaffleID retrieves the operations that touched one raffle
func (r *operationRepository) GetByRaffleID(raffleID uint) ([]*models.Operation, error) {
	if raffleID == 0 {
		return nil, errors.New("raffleID cannot be zero")
	}

	var ops []*models.Operation
	err := r.db.Where("raffle_id = ?", raffleID).Order("created_at ASC").Find(&ops).Error
	return ops, err
}

// GetRecent retrieves the most recent operations
func (r *operationRepository) GetRecent(limit int) ([]*models.Operation, error) {
	var ops []*models.Operation
	err := r.db.Order("created_at DESC").Limit(limit).Find(&ops).Error
	return ops, err
}

// GetByDateRange retrieves operations within a date range
func (r *operationRepository) GetByDateRange(start, end time.Time) ([]*models.Operation, error) {
	var ops []*models.Operation
	err := r.db.Where("created_at BETWEEN ? AND ?", start, end).
		Order("created_at DESC").Find(&ops).Error
	return ops, err
}

// GetAccountOperationCount gets the total number of operations for an account
func (r *operationRepository) GetAccountOperationCount(account string) (int64, error) {
	if account == "" {
		return 0, errors.New("account cannot be empty")
	}

	var count int64
	err := r.db.Model(&models.Operation{}).Where("account = ?", account).Count(&count).Error
	return count, err
}

// List retrieves operations with pagination
func (r *operationRepository) List(limit, offset int) ([]*models.Operation, error) {
	var ops []*models.Operation
	err := r.db.Order("created_at DESC").Limit(limit).Offset(offset).Find(&ops).Error
	return ops, err
}
