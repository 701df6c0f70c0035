package lending

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/rafflefi/api/internal/models"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// DepositRequest is the body of deposit and withdraw calls.
type DepositRequest struct {
	Asset  string `json:"asset" binding:"required"`
	Amount uint64 `json:"amount" binding:"required"`
}

// BorrowRequest is the body of a borrow call.
type BorrowRequest struct {
	Asset            string `json:"asset" binding:"required"`
	Amount           uint64 `json:"amount" binding:"required"`
	CollateralAsset  string `json:"collateral_asset" binding:"required"`
	CollateralAmount uint64 `json:"collateral_amount" binding:"required"`
}

// RepayRequest is the body of a repay call.
type RepayRequest struct {
	Asset  string `json:"asset" binding:"required"`
	Amount uint64 `json:"amount" binding:"required"`
}

// SeedBalanceRequest is the admin body for crediting custody balances.
type SeedBalanceRequest struct {
	Account string `json:"account" binding:"required"`
	Asset   string `json:"asset" binding:"required"`
	Amount  uint64 `json:"amount" binding:"required"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidAmount),
		errors.Is(err, models.ErrInvalidAsset),
		errors.Is(err, models.ErrInsufficientBalance),
		errors.Is(err, models.ErrInsufficientLiquidity),
		errors.Is(err, models.ErrInsufficientCollateral),
		errors.Is(err, models.ErrAmountExceedsDebt),
		errors.Is(err, models.ErrTransferFailed),
		errors.Is(err, models.ErrArithmeticOverflow):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrPoolNotActive),
		errors.Is(err, models.ErrNoActiveBorrow):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func (h *Handler) Deposit(c *gin.Context) {
	var req DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.Deposit(c.GetString("user_address"), req.Asset, req.Amount)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) Withdraw(c *gin.Context) {
	var req DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.Withdraw(c.GetString("user_address"), req.Asset, req.Amount)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) Borrow(c *gin.Context) {
	var req BorrowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.Borrow(c.GetString("user_address"), req.Asset, req.Amount, req.CollateralAsset, req.CollateralAmount)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) Repay(c *gin.Context) {
	var req RepayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.Repay(c.GetString("user_address"), req.Asset, req.Amount)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) GetDeposit(c *gin.Context) {
	info, err := h.service.GetDepositInfo(c.GetString("user_address"), c.Param("asset"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if info == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no deposit for asset"})
		return
	}
	c.JSON(http.StatusOK, info)
}

func (h *Handler) ListDeposits(c *gin.Context) {
	deposits, err := h.service.ListAccountDeposits(c.GetString("user_address"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, deposits)
}

func (h *Handler) GetBorrow(c *gin.Context) {
	info, err := h.service.GetBorrowInfo(c.GetString("user_address"), c.Param("asset"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if info == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no borrow for asset"})
		return
	}
	c.JSON(http.StatusOK, info)
}

func (h *Handler) ListBorrows(c *gin.Context) {
	borrows, err := h.service.ListAccountBorrows(c.GetString("user_address"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, borrows)
}

func (h *Handler) GetBalance(c *gin.Context) {
	balance, err := h.service.GetBalance(c.GetString("user_address"), c.Param("asset"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"asset": c.Param("asset"), "balance": balance})
}

func (h *Handler) ListOperations(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	ops, err := h.service.AccountOperations(c.GetString("user_address"), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, ops)
}

func (h *Handler) SeedBalance(c *gin.Context) {
	var req SeedBalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.service.CreditBalance(req.Account, req.Asset, req.Amount); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"account": req.Account, "asset": req.Asset})
}

// RegisterRoutes mounts the ledger endpoints. Every route is account
// scoped and sits behind the auth chain; balance seeding additionally
// requires the admin chain.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, auth []gin.HandlerFunc, admin []gin.HandlerFunc) {
	lending := router.Group("/lending")
	lending.Use(auth...)
	{
		lending.POST("/deposit", h.Deposit)
		lending.POST("/withdraw", h.Withdraw)
		lending.POST("/borrow", h.Borrow)
		lending.POST("/repay", h.Repay)
		lending.GET("/deposits", h.ListDeposits)
		lending.GET("/deposits/:asset", h.GetDeposit)
		lending.GET("/borrows", h.ListBorrows)
		lending.GET("/borrows/:asset", h.GetBorrow)
		lending.GET("/balances/:asset", h.GetBalance)
		lending.GET("/operations", h.ListOperations)
	}

	seed := append(append([]gin.HandlerFunc{}, auth...), admin...)
	router.POST("/balances", append(seed, h.SeedBalance)...)
}
