package pool

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/rafflefi/api/internal/models"
)

// MockService is a mock implementation of Service
type MockService struct {
	mock.Mock
}

func (m *MockService) CreatePool(asset string, collateralFactor, borrowRate uint64, decimals uint8) (*models.Pool, error) {
	args := m.Called(asset, collateralFactor, borrowRate, decimals)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Pool), args.Error(1)
}

func (m *MockService) GetPool(asset string) (*models.Pool, error) {
	args := m.Called(asset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Pool), args.Error(1)
}

func (m *MockService) RequireActive(asset string) (*models.Pool, error) {
	args := m.Called(asset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Pool), args.Error(1)
}

func (m *MockService) AddDeposits(asset string, amount uint64) (*models.Pool, error) {
	args := m.Called(asset, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Pool), args.Error(1)
}

func (m *MockService) SubDeposits(asset string, amount uint64) (*models.Pool, error) {
	args := m.Called(asset, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Pool), args.Error(1)
}

func (m *MockService) AddBorrows(asset string, amount uint64) (*models.Pool, error) {
	args := m.Called(asset, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Pool), args.Error(1)
}

func (m *MockService) SubBorrows(asset string, amount uint64) (*models.Pool, error) {
	args := m.Called(asset, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Pool), args.Error(1)
}

func (m *MockService) ListPools(limit, offset int) ([]*models.Pool, error) {
	args := m.Called(limit, offset)
	return args.Get(0).([]*models.Pool), args.Error(1)
}

func (m *MockService) GetTopPools(limit int) ([]*models.Pool, error) {
	args := m.Called(limit)
	return args.Get(0).([]*models.Pool), args.Error(1)
}

func setupRouter(svc Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handler := NewHandler(svc, nil)
	v1 := router.Group("/api/v1")
	handler.RegisterRoutes(v1)
	return router
}

func TestCreatePoolHandler(t *testing.T) {
	svc := new(MockService)
	router := setupRouter(svc)

	svc.On("CreatePool", usdcAsset, uint64(15_000), uint64(500), uint8(6)).
		Return(activePool(usdcAsset), nil)

	body, _ := json.Marshal(CreatePoolRequest{
		Asset:            usdcAsset,
		CollateralFactor: 15_000,
		BorrowRate:       500,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/pools", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp PoolResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, usdcAsset, resp.Asset)
	assert.Equal(t, "0.00%", resp.UtilizationPercent)
	assert.Equal(t, "5.00%", resp.BorrowRatePercent)
	svc.AssertExpectations(t)
}

func TestCreatePoolHandlerConflict(t *testing.T) {
	svc := new(MockService)
	router := setupRouter(svc)

	svc.On("CreatePool", usdcAsset, uint64(15_000), uint64(500), uint8(6)).
		Return(nil, models.ErrPoolAlreadyExists)

	body, _ := json.Marshal(CreatePoolRequest{
		Asset:            usdcAsset,
		CollateralFactor: 15_000,
		BorrowRate:       500,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/pools", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestGetPoolHandler(t *testing.T) {
	svc := new(MockService)
	router := setupRouter(svc)

	p := activePool(usdcAsset)
	p.TotalDeposits = 1_000_000_000
	p.TotalBorrows = 500_000_000
	p.UtilizationRate = 5_000
	svc.On("GetPool", usdcAsset).Return(p, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/pools/"+usdcAsset, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp PoolResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "50.00%", resp.UtilizationPercent)
}

func TestGetPoolHandlerNotFound(t *testing.T) {
	svc := new(MockService)
	router := setupRouter(svc)

	svc.On("GetPool", wethAsset).Return(nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/pools/"+wethAsset, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListPoolsHandler(t *testing.T) {
	svc := new(MockService)
	router := setupRouter(svc)

	svc.On("ListPools", 10, 0).Return([]*models.Pool{activePool(usdcAsset)}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/pools", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp []*PoolResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp, 1)
}
