package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nurpe/policy-billing/internal/http/middleware"
	"github.com/nurpe/policy-billing/internal/metrics"
	"github.com/nurpe/policy-billing/internal/model"
	"github.com/nurpe/policy-billing/internal/service"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	pdfContentType  = "application/pdf"
)

// StatementRenderer turns a statement into a downloadable document.
type StatementRenderer interface {
	Generate(statement model.PolicyStatement) ([]byte, error)
}

type Handler struct {
	accounting *service.AccountingService
	xlsx       StatementRenderer
	pdf        StatementRenderer
	metrics    *metrics.Metrics
	log        zerolog.Logger
}

func NewHandler(
	accounting *service.AccountingService,
	xlsx StatementRenderer,
	pdf StatementRenderer,
	m *metrics.Metrics,
	log zerolog.Logger,
) *Handler {
	return &Handler{accounting: accounting, xlsx: xlsx, pdf: pdf, metrics: m, log: log}
}

func (h *Handler) Register(router *gin.Engine, authMiddleware gin.HandlerFunc) {
	protected := router.Group("/api")
	protected.Use(authMiddleware)
	protected.POST("/policies/search", h.searchPolicy)
	protected.GET("/policies/:id", h.getStatement)
	protected.GET("/policies/:id/statement.xlsx", h.exportStatement(h.xlsx, xlsxContentType, "xlsx"))
	protected.GET("/policies/:id/statement.pdf", h.exportStatement(h.pdf, pdfContentType, "pdf"))
	protected.POST("/policies/:id/payments", h.recordPayment)
	protected.GET("/policies/:id/cancellation-pending", h.cancellationPending)
	protected.POST("/policies/:id/cancellation", h.evaluateCancellation)
	protected.PUT("/policies/:id/billing-schedule", h.changeBillingSchedule)
}

type searchPolicyRequest struct {
	PolicyNumber string `json:"policy_number" binding:"required"`
	Date         string `json:"date" binding:"required"`
}

func (h *Handler) searchPolicy(c *gin.Context) {
	var req searchPolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	asOf, err := parseDate(req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Date search must have format YYYY-MM-DD"})
		return
	}

	policy, err := h.accounting.Lookup(c.Request.Context(), req.PolicyNumber)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "No policy found with given number"})
			return
		}
		h.handleError(c, err)
		return
	}

	statement, err := h.accounting.Statement(c.Request.Context(), policy.ID, asOf)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, toStatementResponse(statement))
}

func (h *Handler) getStatement(c *gin.Context) {
	statement, ok := h.loadStatement(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, toStatementResponse(statement))
}

func (h *Handler) exportStatement(renderer StatementRenderer, contentType, ext string) gin.HandlerFunc {
	return func(c *gin.Context) {
		statement, ok := h.loadStatement(c)
		if !ok {
			return
		}

		content, err := renderer.Generate(*statement)
		if err != nil {
			h.handleError(c, fmt.Errorf("render %s statement: %w", ext, err))
			return
		}

		fileName := fmt.Sprintf("statement_%s_%s.%s",
			sanitizeFileName(statement.Policy.PolicyNumber),
			model.FormatDate(statement.AsOf),
			ext,
		)
		c.Header("Content-Disposition", "attachment; filename=\""+fileName+"\"")
		c.Data(http.StatusOK, contentType, content)
	}
}

type recordPaymentRequest struct {
	Amount    *int64     `json:"amount" binding:"required"`
	ContactID *uuid.UUID `json:"contact_id"`
	Date      string     `json:"date"`
	Reference *string    `json:"reference" binding:"omitempty,max=128"`
}

func (h *Handler) recordPayment(c *gin.Context) {
	policyID, ok := parsePolicyID(c)
	if !ok {
		return
	}

	var req recordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	date, err := parseOptionalDate(req.Date)
	if err != nil {
		h.handleError(c, err)
		return
	}

	account, err := h.accounting.Open(c.Request.Context(), policyID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	payment, err := account.RecordPayment(c.Request.Context(), service.PaymentInput{
		ContactID: req.ContactID,
		Date:      date,
		Amount:    *req.Amount,
		Reference: req.Reference,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toPaymentResponse(*payment))
}

func (h *Handler) cancellationPending(c *gin.Context) {
	account, asOf, ok := h.openWithDate(c)
	if !ok {
		return
	}

	pending, err := account.CancellationPending(c.Request.Context(), asOf)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pending": pending})
}

type evaluateCancellationRequest struct {
	Date   string  `json:"date"`
	Reason *string `json:"reason"`
}

func (h *Handler) evaluateCancellation(c *gin.Context) {
	if !h.requireAdmin(c) {
		return
	}
	policyID, ok := parsePolicyID(c)
	if !ok {
		return
	}

	var req evaluateCancellationRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	asOf, err := parseOptionalDate(req.Date)
	if err != nil {
		h.handleError(c, err)
		return
	}

	account, err := h.accounting.Open(c.Request.Context(), policyID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	canceled, err := account.EvaluateCancellation(c.Request.Context(), asOf, req.Reason)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"canceled": canceled,
		"policy":   toPolicyResponse(account.Policy()),
	})
}

type changeBillingScheduleRequest struct {
	BillingSchedule string `json:"billing_schedule" binding:"required,billing_schedule"`
}

func (h *Handler) changeBillingSchedule(c *gin.Context) {
	if !h.requireAdmin(c) {
		return
	}
	policyID, ok := parsePolicyID(c)
	if !ok {
		return
	}

	var req changeBillingScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	account, err := h.accounting.Open(c.Request.Context(), policyID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	if err := account.ChangeBillingSchedule(c.Request.Context(), model.BillingSchedule(req.BillingSchedule)); err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"policy": toPolicyResponse(account.Policy())})
}

func (h *Handler) loadStatement(c *gin.Context) (*model.PolicyStatement, bool) {
	policyID, ok := parsePolicyID(c)
	if !ok {
		return nil, false
	}

	asOf, err := parseOptionalDate(c.Query("date"))
	if err != nil {
		h.handleError(c, err)
		return nil, false
	}

	statement, err := h.accounting.Statement(c.Request.Context(), policyID, asOf)
	if err != nil {
		h.handleError(c, err)
		return nil, false
	}
	return statement, true
}

func (h *Handler) openWithDate(c *gin.Context) (*service.PolicyAccount, time.Time, bool) {
	policyID, ok := parsePolicyID(c)
	if !ok {
		return nil, time.Time{}, false
	}

	asOf, err := parseOptionalDate(c.Query("date"))
	if err != nil {
		h.handleError(c, err)
		return nil, time.Time{}, false
	}

	account, err := h.accounting.Open(c.Request.Context(), policyID)
	if err != nil {
		h.handleError(c, err)
		return nil, time.Time{}, false
	}
	return account, asOf, true
}

func (h *Handler) requireAdmin(c *gin.Context) bool {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing principal"})
		return false
	}
	if !principal.IsAdmin() {
		h.handleError(c, service.ErrPermissionDenied)
		return false
	}
	return true
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "policy not found"})
	case errors.Is(err, service.ErrConstraintViolation):
		c.JSON(http.StatusConflict, gin.H{"error": "conflicts with existing data"})
	default:
		h.log.Error().Err(err).Str("route", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func parsePolicyID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param("id")))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid policy id"})
		return uuid.Nil, false
	}
	return id, true
}

// parseDate accepts calendar dates only.
func parseDate(raw string) (time.Time, error) {
	parsed, err := model.ParseDate(strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date must have format YYYY-MM-DD", service.ErrInvalidInput)
	}
	return parsed, nil
}

// parseOptionalDate maps an empty value to the zero time, which the engine
// reads as today.
func parseOptionalDate(raw string) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return time.Time{}, nil
	}
	return parseDate(raw)
}

func sanitizeFileName(value string) string {
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", "\"", "")
	return replacer.Replace(strings.TrimSpace(value))
}
