package raffle

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rafflefi/api/internal/models"
	"github.com/rafflefi/api/internal/rng"
)

type Handler struct {
	service Service
	source  rng.Source
	now     func() time.Time
}

func NewHandler(service Service, source rng.Source) *Handler {
	return &Handler{service: service, source: source, now: time.Now}
}

// SetClock overrides the handler's time source. Used by tests.
func (h *Handler) SetClock(now func() time.Time) {
	h.now = now
}

// StartRaffleRequest is the admin request to open a new raffle.
type StartRaffleRequest struct {
	NumberOfWinners int `json:"number_of_winners" binding:"required"`
}

func (h *Handler) StartRaffle(c *gin.Context) {
	var req StartRaffleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	raffle, err := h.service.StartNewRaffle(req.NumberOfWinners, h.now())
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, models.ErrInvalidAmount):
			status = http.StatusBadRequest
		case errors.Is(err, models.ErrPreviousRaffleNotDrawn):
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, raffle)
}

func (h *Handler) DrawRaffle(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid raffle id"})
		return
	}

	winners, err := h.service.Draw(uint(id), h.source, h.now())
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, models.ErrRaffleNotFound):
			status = http.StatusNotFound
		case errors.Is(err, models.ErrAlreadyDrawn):
			status = http.StatusConflict
		case errors.Is(err, models.ErrRaffleNotEnded),
			errors.Is(err, models.ErrNoParticipants):
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"raffle_id": id, "winners": winners})
}

func (h *Handler) GetCurrentRaffle(c *gin.Context) {
	raffle, err := h.service.CurrentRaffle()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if raffle == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no open raffle"})
		return
	}
	c.JSON(http.StatusOK, raffle)
}

func (h *Handler) GetRaffle(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid raffle id"})
		return
	}

	raffle, err := h.service.GetRaffle(uint(id))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if raffle == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "raffle not found"})
		return
	}
	c.JSON(http.StatusOK, raffle)
}

func (h *Handler) GetEntries(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid raffle id"})
		return
	}

	entries, err := h.service.GetEntries(uint(id))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (h *Handler) GetWinners(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid raffle id"})
		return
	}

	winners, err := h.service.GetWinners(uint(id))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, winners)
}

func (h *Handler) ListRaffles(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	raffles, err := h.service.ListRaffles(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, raffles)
}

// RegisterRoutes mounts the raffle endpoints. Starting and drawing are
// admin-only; the caller supplies the middleware chain guarding them.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, admin ...gin.HandlerFunc) {
	raffles := router.Group("/raffles")
	{
		start := append(append([]gin.HandlerFunc{}, admin...), h.StartRaffle)
		draw := append(append([]gin.HandlerFunc{}, admin...), h.DrawRaffle)
		raffles.POST("", start...)
		raffles.POST("/:id/draw", draw...)
		raffles.GET("", h.ListRaffles)
		raffles.GET("/current", h.GetCurrentRaffle)
		raffles.GET("/:id", h.GetRaffle)
		raffles.GET("/:id/entries", h.GetEntries)
		raffles.GET("/:id/winners", h.GetWinners)
	}
}
