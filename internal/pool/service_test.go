package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/rafflefi/api/internal/models"
)

const (
	usdcAsset = "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
	wethAsset = "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"
)

// MockPoolRepository is a mock implementation of PoolRepository
type MockPoolRepository struct {
	mock.Mock
}

func (m *MockPoolRepository) Create(pool *models.Pool) error {
	args := m.Called(pool)
	return args.Error(0)
}

func (m *MockPoolRepository) GetByAsset(asset string) (*models.Pool, error) {
	args := m.Called(asset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Pool), args.Error(1)
}

func (m *MockPoolRepository) Update(pool *models.Pool) error {
	args := m.Called(pool)
	return args.Error(0)
}

func (m *MockPoolRepository) List(limit, offset int) ([]*models.Pool, error) {
	args := m.Called(limit, offset)
	return args.Get(0).([]*models.Pool), args.Error(1)
}

func (m *MockPoolRepository) GetActivePools() ([]*models.Pool, error) {
	args := m.Called()
	return args.Get(0).([]*models.Pool), args.Error(1)
}

func (m *MockPoolRepository) GetTopPoolsByUtilization(limit int) ([]*models.Pool, error) {
	args := m.Called(limit)
	return args.Get(0).([]*models.Pool), args.Error(1)
}

func activePool(asset string) *models.Pool {
	active := true
	return &models.Pool{
		Asset:            asset,
		BorrowRate:       500,
		CollateralFactor: 15_000,
		Decimals:         6,
		TokenUnit:        1_000_000,
		IsActive:         &active,
	}
}

func TestCreatePool(t *testing.T) {
	repo := new(MockPoolRepository)
	svc := NewService(repo)

	repo.On("GetByAsset", usdcAsset).Return(nil, nil)
	repo.On("Create", mock.AnythingOfType("*models.Pool")).Return(nil)

	pool, err := svc.CreatePool(usdcAsset, 15_000, 500, 6)
	assert.NoError(t, err)
	assert.Equal(t, uint64(0), pool.TotalDeposits)
	assert.Equal(t, uint64(0), pool.TotalBorrows)
	assert.Equal(t, uint64(0), pool.UtilizationRate)
	assert.Equal(t, uint64(1_000_000), pool.TokenUnit)
	assert.True(t, *pool.IsActive)
	repo.AssertExpectations(t)
}

func TestCreatePoolInvalidAsset(t *testing.T) {
	svc := NewService(new(MockPoolRepository))

	_, err := svc.CreatePool("", 15_000, 500, 6)
	assert.ErrorIs(t, err, models.ErrInvalidAsset)

	_, err = svc.CreatePool("not-an-address", 15_000, 500, 6)
	assert.ErrorIs(t, err, models.ErrInvalidAsset)

	// The null address is not a valid asset.
	_, err = svc.CreatePool("0x0000000000000000000000000000000000000000", 15_000, 500, 6)
	assert.ErrorIs(t, err, models.ErrInvalidAsset)
}

func TestCreatePoolInvalidCollateralFactor(t *testing.T) {
	svc := NewService(new(MockPoolRepository))

	_, err := svc.CreatePool(usdcAsset, 9_999, 500, 6)
	assert.ErrorIs(t, err, models.ErrInvalidCollateralFactor)
}

func TestCreatePoolAlreadyExists(t *testing.T) {
	repo := new(MockPoolRepository)
	svc := NewService(repo)

	repo.On("GetByAsset", usdcAsset).Return(activePool(usdcAsset), nil)

	_, err := svc.CreatePool(usdcAsset, 15_000, 500, 6)
	assert.ErrorIs(t, err, models.ErrPoolAlreadyExists)
}

func TestRequireActive(t *testing.T) {
	repo := new(MockPoolRepository)
	svc := NewService(repo)

	repo.On("GetByAsset", usdcAsset).Return(activePool(usdcAsset), nil)
	repo.On("GetByAsset", wethAsset).Return(nil, nil)

	pool, err := svc.RequireActive(usdcAsset)
	assert.NoError(t, err)
	assert.Equal(t, usdcAsset, pool.Asset)

	_, err = svc.RequireActive(wethAsset)
	assert.ErrorIs(t, err, models.ErrPoolNotActive)
}

func TestRequireActiveInactivePool(t *testing.T) {
	repo := new(MockPoolRepository)
	svc := NewService(repo)

	p := activePool(usdcAsset)
	inactive := false
	p.IsActive = &inactive
	repo.On("GetByAsset", usdcAsset).Return(p, nil)

	_, err := svc.RequireActive(usdcAsset)
	assert.ErrorIs(t, err, models.ErrPoolNotActive)
}

func TestAddDepositsRecomputesUtilization(t *testing.T) {
	repo := new(MockPoolRepository)
	svc := NewService(repo)

	p := activePool(usdcAsset)
	repo.On("GetByAsset", usdcAsset).Return(p, nil)
	repo.On("Update", p).Return(nil)

	updated, err := svc.AddDeposits(usdcAsset, 1_000_000_000)
	assert.NoError(t, err)
	assert.Equal(t, uint64(1_000_000_000), updated.TotalDeposits)
	assert.Equal(t, uint64(0), updated.UtilizationRate)

	updated, err = svc.AddBorrows(usdcAsset, 500_000_000)
	assert.NoError(t, err)
	assert.Equal(t, uint64(500_000_000), updated.TotalBorrows)
	assert.Equal(t, uint64(5_000), updated.UtilizationRate)
}

func TestSubDepositsUnderflow(t *testing.T) {
	repo := new(MockPoolRepository)
	svc := NewService(repo)

	repo.On("GetByAsset", usdcAsset).Return(activePool(usdcAsset), nil)

	_, err := svc.SubDeposits(usdcAsset, 1)
	assert.ErrorIs(t, err, models.ErrArithmeticOverflow)
}

func TestUtilization(t *testing.T) {
	util, err := Utilization(0, 0)
	assert.NoError(t, err)
	assert.Equal(t, uint64(0), util)

	util, err = Utilization(1_000, 500)
	assert.NoError(t, err)
	assert.Equal(t, uint64(5_000), util)

	// Floor division.
	util, err = Utilization(3, 1)
	assert.NoError(t, err)
	assert.Equal(t, uint64(3_333), util)
}
