package pool

import (
	"errors"

	"gorm.io/gorm"

	"github.com/rafflefi/api/internal/models"
)

// PoolRepository interface defines pool database operations
type PoolRepository interface {
	Create(pool *models.Pool) error
	GetByAsset(asset string) (*models.Pool, error)
	Update(pool *models.Pool) error
	List(limit, offset int) ([]*models.Pool, error)
	GetActivePools() ([]*models.Pool, error)
	GetTopPoolsByUtilization(limit int) ([]*models.Pool, error)
}

// poolRepository implements PoolRepository interface
type poolRepository struct {
	db *gorm.DB
}

// NewPoolRepository creates a new pool repository
func NewPoolRepository(db *gorm.DB) PoolRepository {
	return &poolRepository{db: db}
}

// Create creates a new pool
func (r *poolRepository) Create(pool *models.Pool) error {
	if pool == nil {
		return errors.New("pool cannot be nil")
	}
	return r.db.Create(pool).Error
}

// GetByAsset retrieves a pool by its asset identifier
func (r *poolRepository) GetByAsset(asset string) (*models.Pool, error) {
	if asset == "" {
		return nil, errors.New("asset cannot be empty")
	}

	var pool models.Pool
	err := r.db.Where("asset = ?", asset).First(&pool).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &pool, nil
}

// Update updates an existing pool
func (r *poolRepository) Update(pool *models.Pool) error {
	if pool == nil {
		return errors.New("pool cannot be nil")
	}
	return r.db.Save(pool).Error
}

// List retrieves pools with pagination
func (r *poolRepository) List(limit, offset int) ([]*models.Pool, error) {
	var pools []*models.Pool
	err := r.db.Limit(limit).Offset(offset).Order("id ASC").Find(&pools).Error
	return pools, err
}

// GetActivePools retrieves all active pools
func (r *poolRepository) GetActivePools() ([]*models.Pool, error) {
	var pools []*models.Pool
	err := r.db.Where("is_active = ?", true).Find(&pools).Error
	return pools, err
}

// GetTopPoolsByUtilization retrieves the most utilized active pools
func (r *poolRepository) GetTopPoolsByUtilization(limit int) ([]*models.Pool, error) {
	var pools []*models.Pool
	err := r.db.Where("is_active = ?", true).Order("utilization_rate DESC").Limit(limit).Find(&pools).Error
	return pools, err
}
