package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/RyanDutko/Bet-Ledger/internal/repository"
	"github.com/RyanDutko/Bet-Ledger/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// BetHandler exposes bet creation, preview, history and settlement.
type BetHandler struct {
	betService    *service.BetService
	settleService *service.SettlementService
	exportService *service.ExportService
	logger        *logrus.Logger
}

// NewBetHandler creates a BetHandler.
func NewBetHandler(db *gorm.DB, logger *logrus.Logger) *BetHandler {
	return &BetHandler{
		betService:    service.NewBetService(db, logger),
		settleService: service.NewSettlementService(db, logger),
		exportService: service.NewExportService(db, logger),
		logger:        logger,
	}
}

// Create POST /api/bets
func (h *BetHandler) Create(c *gin.Context) {
	var req service.CreateBetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	bet, err := h.betService.Create(c.Request.Context(), &req)
	if err != nil {
		h.logger.WithError(err).Error("Create bet failed")
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, bet)
}

// Preview POST /api/bets/preview
func (h *BetHandler) Preview(c *gin.Context) {
	var req service.CreateBetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	result, err := h.betService.Preview(&req)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// List GET /api/bets?person_id=1&status=SETTLED&from=2026-01-01&to=2026-02-01&page=1&page_size=20
func (h *BetHandler) List(c *gin.Context) {
	filter := repository.BetFilter{Status: c.Query("status")}
	if v := c.Query("person_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid person_id"})
			return
		}
		filter.PersonID = id
	}
	if v := c.Query("from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from date, want YYYY-MM-DD"})
			return
		}
		filter.From = &t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to date, want YYYY-MM-DD"})
			return
		}
		end := t.Add(24*time.Hour - time.Nanosecond)
		filter.To = &end
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	result, err := h.betService.List(c.Request.Context(), filter, page, pageSize)
	if err != nil {
		h.logger.WithError(err).Error("List bets failed")
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// Get GET /api/bets/:bet_uuid
func (h *BetHandler) Get(c *gin.Context) {
	betUUID := c.Param("bet_uuid")
	bet, err := h.betService.Get(c.Request.Context(), betUUID)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, bet)
}

// Settle POST /api/bets/:bet_uuid/settle
func (h *BetHandler) Settle(c *gin.Context) {
	betUUID := c.Param("bet_uuid")
	var req service.SettleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	result, err := h.settleService.Settle(c.Request.Context(), betUUID, &req)
	if err != nil {
		h.logger.WithError(err).WithField("bet_uuid", betUUID).Error("Settle failed")
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// ExportCSV GET /api/history.csv
func (h *BetHandler) ExportCSV(c *gin.Context) {
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="bet_history.csv"`)
	if err := h.exportService.WriteHistory(c.Request.Context(), c.Writer); err != nil {
		h.logger.WithError(err).Error("ExportCSV failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
