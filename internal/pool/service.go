package pool

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rafflefi/api/internal/fixedmath"
	"github.com/rafflefi/api/internal/models"
)

// Service defines pool registry operations
type Service interface {
	CreatePool(asset string, collateralFactor, borrowRate uint64, decimals uint8) (*models.Pool, error)
	GetPool(asset string) (*models.Pool, error)
	RequireActive(asset string) (*models.Pool, error)
	AddDeposits(asset string, amount uint64) (*models.Pool, error)
	SubDeposits(asset string, amount uint64) (*models.Pool, error)
	AddBorrows(asset string, amount uint64) (*models.Pool, error)
	SubBorrows(asset string, amount uint64) (*models.Pool, error)
	ListPools(limit, offset int) ([]*models.Pool, error)
	GetTopPools(limit int) ([]*models.Pool, error)
}

type service struct {
	repo PoolRepository
}

// NewService creates a new pool service
func NewService(repo PoolRepository) Service {
	return &service{repo: repo}
}

// CreatePool initializes a zeroed, active pool for the asset.
func (s *service) CreatePool(asset string, collateralFactor, borrowRate uint64, decimals uint8) (*models.Pool, error) {
	if asset == "" || !common.IsHexAddress(asset) || asset == (common.Address{}).Hex() {
		return nil, fmt.Errorf("asset %q: %w", asset, models.ErrInvalidAsset)
	}
	if collateralFactor < fixedmath.BpsDenominator {
		return nil, fmt.Errorf("collateral factor %d bps: %w", collateralFactor, models.ErrInvalidCollateralFactor)
	}
	unit, err := fixedmath.Pow10(decimals)
	if err != nil {
		return nil, fmt.Errorf("decimals %d: %w", decimals, err)
	}

	existing, err := s.repo.GetByAsset(asset)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.IsActive != nil && *existing.IsActive {
			return nil, fmt.Errorf("asset %s: %w", asset, models.ErrPoolAlreadyExists)
		}
		// Reactivate a deactivated pool with fresh parameters. Totals
		// survive because open positions still reference them.
		existing.CollateralFactor = collateralFactor
		existing.BorrowRate = borrowRate
		existing.Decimals = decimals
		existing.TokenUnit = unit
		active := true
		existing.IsActive = &active
		if err := s.repo.Update(existing); err != nil {
			return nil, err
		}
		return existing, nil
	}

	active := true
	pool := &models.Pool{
		Asset:            asset,
		BorrowRate:       borrowRate,
		CollateralFactor: collateralFactor,
		Decimals:         decimals,
		TokenUnit:        unit,
		IsActive:         &active,
	}
	if err := s.repo.Create(pool); err != nil {
		return nil, err
	}
	return pool, nil
}

// GetPool returns the pool for the asset, or nil when absent.
func (s *service) GetPool(asset string) (*models.Pool, error) {
	return s.repo.GetByAsset(asset)
}

// RequireActive returns the pool or fails when it is missing or inactive.
func (s *service) RequireActive(asset string) (*models.Pool, error) {
	pool, err := s.repo.GetByAsset(asset)
	if err != nil {
		return nil, err
	}
	if pool == nil || pool.IsActive == nil || !*pool.IsActive {
		return nil, fmt.Errorf("asset %s: %w", asset, models.ErrPoolNotActive)
	}
	return pool, nil
}

// AddDeposits grows the pool's deposit total and recomputes utilization.
func (s *service) AddDeposits(asset string, amount uint64) (*models.Pool, error) {
	return s.apply(asset, func(p *models.Pool) error {
		total, err := fixedmath.CheckedAdd(p.TotalDeposits, amount)
		if err != nil {
			return err
		}
		p.TotalDeposits = total
		return nil
	})
}

// SubDeposits shrinks the pool's deposit total and recomputes utilization.
func (s *service) SubDeposits(asset string, amount uint64) (*models.Pool, error) {
	return s.apply(asset, func(p *models.Pool) error {
		total, err := fixedmath.CheckedSub(p.TotalDeposits, amount)
		if err != nil {
			return err
		}
		p.TotalDeposits = total
		return nil
	})
}

// AddBorrows grows the pool's borrow total and recomputes utilization.
func (s *service) AddBorrows(asset string, amount uint64) (*models.Pool, error) {
	return s.apply(asset, func(p *models.Pool) error {
		total, err := fixedmath.CheckedAdd(p.TotalBorrows, amount)
		if err != nil {
			return err
		}
		p.TotalBorrows = total
		return nil
	})
}

// SubBorrows shrinks the pool's borrow total and recomputes utilization.
func (s *service) SubBorrows(asset string, amount uint64) (*models.Pool, error) {
	return s.apply(asset, func(p *models.Pool) error {
		total, err := fixedmath.CheckedSub(p.TotalBorrows, amount)
		if err != nil {
			return err
		}
		p.TotalBorrows = total
		return nil
	})
}

// apply mutates the pool's totals, recomputes the derived utilization
// rate and persists the result. Utilization is never set anywhere else.
func (s *service) apply(asset string, mutate func(*models.Pool) error) (*models.Pool, error) {
	pool, err := s.repo.GetByAsset(asset)
	if err != nil {
		return nil, err
	}
	if pool == nil {
		return nil, fmt.Errorf("asset %s: %w", asset, models.ErrPoolNotActive)
	}
	if err := mutate(pool); err != nil {
		return nil, err
	}
	util, err := Utilization(pool.TotalDeposits, pool.TotalBorrows)
	if err != nil {
		return nil, err
	}
	pool.UtilizationRate = util
	if err := s.repo.Update(pool); err != nil {
		return nil, err
	}
	return pool, nil
}

// Utilization computes the utilization rate in basis points: zero when
// nothing is deposited, floor(borrows*10000/deposits) otherwise.
func Utilization(totalDeposits, totalBorrows uint64) (uint64, error) {
	if totalDeposits == 0 {
		return 0, nil
	}
	return fixedmath.MulDiv(totalBorrows, fixedmath.BpsDenominator, totalDeposits)
}

// ListPools retrieves pools with pagination
func (s *service) ListPools(limit, offset int) ([]*models.Pool, error) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(limit, offset)
}

// GetTopPools retrieves the most utilized pools
func (s *service) GetTopPools(limit int) ([]*models.Pool, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.repo.GetTopPoolsByUtilization(limit)
}
