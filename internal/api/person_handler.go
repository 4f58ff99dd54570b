package api

import (
	"net/http"
	"strconv"

	"github.com/RyanDutko/Bet-Ledger/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// PersonHandler exposes people and bankroll transactions.
type PersonHandler struct {
	personService *service.PersonService
	logger        *logrus.Logger
}

// NewPersonHandler creates a PersonHandler.
func NewPersonHandler(db *gorm.DB, logger *logrus.Logger) *PersonHandler {
	return &PersonHandler{
		personService: service.NewPersonService(db, logger),
		logger:        logger,
	}
}

// List GET /api/people
func (h *PersonHandler) List(c *gin.Context) {
	persons, err := h.personService.List(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("List persons failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"people": persons})
}

type personRequest struct {
	Name string `json:"name"`
}

// Create POST /api/people
func (h *PersonHandler) Create(c *gin.Context) {
	var req personRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	person, err := h.personService.Create(c.Request.Context(), req.Name)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, person)
}

// Rename PUT /api/people/:id
func (h *PersonHandler) Rename(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid person id"})
		return
	}
	var req personRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	person, err := h.personService.Rename(c.Request.Context(), id, req.Name)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, person)
}

// RecordTransaction POST /api/transactions
func (h *PersonHandler) RecordTransaction(c *gin.Context) {
	var req service.TransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	tx, err := h.personService.RecordTransaction(c.Request.Context(), &req)
	if err != nil {
		h.logger.WithError(err).Error("RecordTransaction failed")
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, tx)
}
