package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gitlab.com/tozd/go/errors"

	"ortkod/internal/pipeline"
	"ortkod/internal/storage"
)

func (h *Handlers) ListRules(c *gin.Context) {
	activeOnly := c.Query("all") != "true"
	items, err := h.db.ListRules(c.Request.Context(), activeOnly)
	if err != nil {
		_ = c.Error(err)
		internalError(c, err.Error())
		return
	}
	ok(c, gin.H{"items": items})
}

type ruleRequest struct {
	RegexPattern *string `json:"regexPattern"`
	OutputFormat *string `json:"outputFormat"`
	Priority     *int    `json:"priority"`
	IsActive     *bool   `json:"isActive"`
}

func (h *Handlers) CreateRule(c *gin.Context) {
	var req ruleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	if req.RegexPattern == nil || strings.TrimSpace(*req.RegexPattern) == "" ||
		req.OutputFormat == nil || strings.TrimSpace(*req.OutputFormat) == "" {
		badRequest(c, "Regex pattern and output format are required")
		return
	}
	if err := pipeline.ValidatePattern(*req.RegexPattern); err != nil {
		badRequest(c, err.Error())
		return
	}
	priority := 0
	if req.Priority != nil {
		priority = *req.Priority
	}

	rule, err := h.db.CreateRule(c.Request.Context(), *req.RegexPattern, *req.OutputFormat, priority)
	if err != nil {
		_ = c.Error(err)
		internalError(c, err.Error())
		return
	}
	ok(c, gin.H{"insertedId": rule.ID, "rule": rule})
}

func (h *Handlers) UpdateRule(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c, "invalid rule id")
		return
	}
	var req ruleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	if req.RegexPattern != nil {
		if err := pipeline.ValidatePattern(*req.RegexPattern); err != nil {
			badRequest(c, err.Error())
			return
		}
	}
	if req.OutputFormat != nil && strings.TrimSpace(*req.OutputFormat) == "" {
		badRequest(c, "output format must not be empty")
		return
	}

	rule, err := h.db.UpdateRule(c.Request.Context(), id, storage.RulePatch{
		RegexPattern: req.RegexPattern,
		OutputFormat: req.OutputFormat,
		Priority:     req.Priority,
		IsActive:     req.IsActive,
	})
	if errors.Is(err, storage.ErrNotFound) {
		notFound(c, "rule not found")
		return
	}
	if err != nil {
		_ = c.Error(err)
		internalError(c, err.Error())
		return
	}
	ok(c, gin.H{"rule": rule})
}

func (h *Handlers) ListAbbreviations(c *gin.Context) {
	items, err := h.db.ListManualAbbreviations(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		internalError(c, err.Error())
		return
	}
	ok(c, gin.H{"items": items})
}

func (h *Handlers) UpsertAbbreviation(c *gin.Context) {
	var req struct {
		OrderNumber  string `json:"orderNumber"`
		Abbreviation string `json:"abbreviation"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	if strings.TrimSpace(req.OrderNumber) == "" || strings.TrimSpace(req.Abbreviation) == "" {
		badRequest(c, "Order number and abbreviation are required")
		return
	}
	if err := h.db.UpsertManualAbbreviation(c.Request.Context(), req.OrderNumber, req.Abbreviation); err != nil {
		_ = c.Error(err)
		internalError(c, err.Error())
		return
	}
	ok(c, nil)
}

func (h *Handlers) DeleteAbbreviation(c *gin.Context) {
	h.deleteEntry(c, c.Param("orderNumber"), h.db.DeleteManualAbbreviation)
}

func (h *Handlers) ListReplacements(c *gin.Context) {
	items, err := h.db.ListOrderReplacements(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		internalError(c, err.Error())
		return
	}
	ok(c, gin.H{"items": items})
}

func (h *Handlers) UpsertReplacement(c *gin.Context) {
	var req struct {
		OriginalOrderNumber    string `json:"originalOrderNumber"`
		ReplacementOrderNumber string `json:"replacementOrderNumber"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	if strings.TrimSpace(req.OriginalOrderNumber) == "" || strings.TrimSpace(req.ReplacementOrderNumber) == "" {
		badRequest(c, "Original and replacement order numbers are required")
		return
	}
	if err := h.db.UpsertOrderReplacement(c.Request.Context(), req.OriginalOrderNumber, req.ReplacementOrderNumber); err != nil {
		_ = c.Error(err)
		internalError(c, err.Error())
		return
	}
	ok(c, nil)
}

func (h *Handlers) DeleteReplacement(c *gin.Context) {
	h.deleteEntry(c, c.Param("originalOrderNumber"), h.db.DeleteOrderReplacement)
}

func (h *Handlers) ListExclusions(c *gin.Context) {
	items, err := h.db.ListExclusions(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		internalError(c, err.Error())
		return
	}
	ok(c, gin.H{"items": items})
}

func (h *Handlers) AddExclusion(c *gin.Context) {
	var req struct {
		OrderNumber string `json:"orderNumber"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	if strings.TrimSpace(req.OrderNumber) == "" {
		badRequest(c, "Order number is required")
		return
	}
	created, err := h.db.AddExclusion(c.Request.Context(), req.OrderNumber)
	if err != nil {
		_ = c.Error(err)
		internalError(c, err.Error())
		return
	}
	if !created {
		ok(c, gin.H{"message": "This filter already exists"})
		return
	}
	ok(c, nil)
}

func (h *Handlers) DeleteExclusion(c *gin.Context) {
	h.deleteEntry(c, c.Param("orderNumber"), h.db.DeleteExclusion)
}

func (h *Handlers) deleteEntry(c *gin.Context, key string, del func(ctx context.Context, key string) (bool, error)) {
	if strings.TrimSpace(key) == "" {
		badRequest(c, "Order number is required")
		return
	}
	deleted, err := del(c.Request.Context(), key)
	if err != nil {
		_ = c.Error(err)
		internalError(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": deleted})
}
