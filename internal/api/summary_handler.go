package api

import (
	"net/http"

	"github.com/RyanDutko/Bet-Ledger/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// SummaryHandler exposes the dashboard aggregates.
type SummaryHandler struct {
	summaryService *service.SummaryService
	logger         *logrus.Logger
}

// NewSummaryHandler creates a SummaryHandler.
func NewSummaryHandler(db *gorm.DB, logger *logrus.Logger) *SummaryHandler {
	return &SummaryHandler{
		summaryService: service.NewSummaryService(db, logger),
		logger:         logger,
	}
}

// Overview GET /api/summary
func (h *SummaryHandler) Overview(c *gin.Context) {
	result, err := h.summaryService.Overview(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Overview failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}
