package pool

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/rafflefi/api/internal/cache"
	"github.com/rafflefi/api/internal/models"
)

type Handler struct {
	service Service
	cache   *cache.Cache
}

func NewHandler(service Service, c *cache.Cache) *Handler {
	return &Handler{service: service, cache: c}
}

// CreatePoolRequest is the admin request to open a new pool.
type CreatePoolRequest struct {
	Asset            string `json:"asset" binding:"required"`
	CollateralFactor uint64 `json:"collateral_factor" binding:"required"`
	BorrowRate       uint64 `json:"borrow_rate"`
	Decimals         *uint8 `json:"decimals"`
}

// PoolResponse augments the raw pool record with display-friendly rates.
type PoolResponse struct {
	*models.Pool
	UtilizationPercent string `json:"utilization_percent"`
	BorrowRatePercent  string `json:"borrow_rate_percent"`
}

func bpsToPercent(bps uint64) string {
	return decimal.New(int64(bps), -2).StringFixed(2) + "%"
}

func newPoolResponse(p *models.Pool) *PoolResponse {
	return &PoolResponse{
		Pool:               p,
		UtilizationPercent: bpsToPercent(p.UtilizationRate),
		BorrowRatePercent:  bpsToPercent(p.BorrowRate),
	}
}

func (h *Handler) CreatePool(c *gin.Context) {
	var req CreatePoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	decimals := uint8(6)
	if req.Decimals != nil {
		decimals = *req.Decimals
	}

	pool, err := h.service.CreatePool(req.Asset, req.CollateralFactor, req.BorrowRate, decimals)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, models.ErrInvalidAsset),
			errors.Is(err, models.ErrInvalidCollateralFactor),
			errors.Is(err, models.ErrArithmeticOverflow):
			status = http.StatusBadRequest
		case errors.Is(err, models.ErrPoolAlreadyExists):
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	h.cache.Invalidate(c.Request.Context(), "pool:"+pool.Asset)
	c.JSON(http.StatusCreated, newPoolResponse(pool))
}

func (h *Handler) GetPool(c *gin.Context) {
	asset := c.Param("asset")

	var cached PoolResponse
	key := "pool:" + asset
	if ok, _ := h.cache.GetJSON(c.Request.Context(), key, &cached); ok {
		c.JSON(http.StatusOK, cached)
		return
	}

	pool, err := h.service.GetPool(asset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if pool == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "pool not found"})
		return
	}

	resp := newPoolResponse(pool)
	h.cache.SetJSON(c.Request.Context(), key, resp)
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) ListPools(c *gin.Context) {
	limitStr := c.DefaultQuery("limit", "10")
	offsetStr := c.DefaultQuery("offset", "0")

	limit, _ := strconv.Atoi(limitStr)
	offset, _ := strconv.Atoi(offsetStr)

	pools, err := h.service.ListPools(limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]*PoolResponse, 0, len(pools))
	for _, p := range pools {
		resp = append(resp, newPoolResponse(p))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) GetTopPools(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	pools, err := h.service.GetTopPools(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]*PoolResponse, 0, len(pools))
	for _, p := range pools {
		resp = append(resp, newPoolResponse(p))
	}
	c.JSON(http.StatusOK, resp)
}

// RegisterRoutes mounts the pool endpoints. Pool creation is admin-only;
// the caller supplies the middleware chain guarding it.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, admin ...gin.HandlerFunc) {
	pools := router.Group("/pools")
	{
		create := append(append([]gin.HandlerFunc{}, admin...), h.CreatePool)
		pools.POST("", create...)
		pools.GET("", h.ListPools)
		pools.GET("/top", h.GetTopPools)
		pools.GET("/:asset", h.GetPool)
	}
}
