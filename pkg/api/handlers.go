package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"halcyon-net/warden/pkg/limits"
	"halcyon-net/warden/pkg/usage"
)

// Handlers holds the dependencies of the API endpoints.
type Handlers struct {
	service *limits.Service
	source  usage.Source
}

// NewHandlers creates the endpoint handlers.
func NewHandlers(service *limits.Service, source usage.Source) *Handlers {
	return &Handlers{service: service, source: source}
}

// Health reports liveness.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GetRules returns a user's limit rules.
func (h *Handlers) GetRules(c *gin.Context) {
	rules, err := h.service.Rules(c.Request.Context(), c.Param("username"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, toRuleResponses(rules))
}

// SetRuleRequest is the body of PUT /users/:username/limits.
type SetRuleRequest struct {
	Kind            limits.LimitKind  `json:"kind" binding:"required"`
	Threshold       int64             `json:"threshold"`
	Action          limits.ActionKind `json:"action" binding:"required"`
	Enabled         *bool             `json:"enabled"`
	WarningFraction float64           `json:"warning_fraction"`
	WebhookURL      string            `json:"webhook_url"`
	Description     string            `json:"description"`
	AutoReset       bool              `json:"auto_reset"`
	ResetSchedule   string            `json:"reset_schedule"`
}

// SetRule creates or updates one rule for a user.
func (h *Handlers) SetRule(c *gin.Context) {
	var req SetRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	rule := &limits.LimitRule{
		Username:        c.Param("username"),
		Kind:            req.Kind,
		Threshold:       req.Threshold,
		Action:          req.Action,
		Enabled:         enabled,
		WarningFraction: req.WarningFraction,
		WebhookURL:      req.WebhookURL,
		Description:     req.Description,
		AutoReset:       req.AutoReset,
		ResetSchedule:   req.ResetSchedule,
	}

	if err := h.service.SetRule(c.Request.Context(), rule); err != nil {
		if errors.Is(err, limits.ErrInvalidRule) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, toRuleResponse(*rule))
}

// DeleteRule removes one rule for a user.
func (h *Handlers) DeleteRule(c *gin.Context) {
	kind := limits.LimitKind(c.Param("kind"))
	if !kind.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown limit kind"})
		return
	}

	err := h.service.RemoveRule(c.Request.Context(), c.Param("username"), kind)
	if errors.Is(err, limits.ErrRuleNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// CheckUser evaluates a user's rules against live usage without recording
// violations or enforcing anything.
func (h *Handlers) CheckUser(c *gin.Context) {
	username := c.Param("username")

	snapshot, err := h.source.Snapshot(c.Request.Context(), username)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	evaluations, err := h.service.CheckUser(c.Request.Context(), username, snapshot)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"username":    username,
		"evaluations": evaluations,
	})
}

// GetViolations returns a user's violation history, newest first.
func (h *Handlers) GetViolations(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	violations, err := h.service.Store().Violations(c.Request.Context(), c.Param("username"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, toViolationResponses(violations))
}

// ResolveViolationRequest is the body of POST /violations/:id/resolve.
type ResolveViolationRequest struct {
	Note string `json:"note"`
}

// ResolveViolation marks one violation resolved.
func (h *Handlers) ResolveViolation(c *gin.Context) {
	var req ResolveViolationRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.service.Store().ResolveViolation(c.Request.Context(), c.Param("id"), req.Note)
	if errors.Is(err, limits.ErrViolationNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "resolved"})
}

// ApplyTemplate applies a template's rules to a user.
func (h *Handlers) ApplyTemplate(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid template ID"})
		return
	}

	err = h.service.ApplyTemplate(c.Request.Context(), c.Param("username"), id)
	if errors.Is(err, limits.ErrTemplateNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "applied"})
}

// GetTemplates lists all templates.
func (h *Handlers) GetTemplates(c *gin.Context) {
	templates, err := h.service.Store().Templates(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, toTemplateResponses(templates))
}

// GetSubscriptions lists a user's subscriptions for one limit kind.
func (h *Handlers) GetSubscriptions(c *gin.Context) {
	kind := limits.LimitKind(c.Param("kind"))
	if !kind.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown limit kind"})
		return
	}

	subs, err := h.service.Store().Subscriptions(c.Request.Context(), c.Param("username"), kind)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, toSubscriptionResponses(subs))
}

// SaveSubscriptionRequest is the body of POST /users/:username/subscriptions.
type SaveSubscriptionRequest struct {
	Kind            limits.LimitKind   `json:"kind" binding:"required"`
	Channel         limits.ChannelType `json:"channel" binding:"required"`
	Recipient       string             `json:"recipient" binding:"required"`
	Enabled         *bool              `json:"enabled"`
	WarningFraction float64            `json:"warning_fraction"`
}

// SaveSubscription creates or updates a notification subscription.
func (h *Handlers) SaveSubscription(c *gin.Context) {
	var req SaveSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.Kind.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown limit kind"})
		return
	}
	if !req.Channel.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown channel"})
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	sub := &limits.NotificationSubscription{
		Username:        c.Param("username"),
		Kind:            req.Kind,
		Channel:         req.Channel,
		Recipient:       req.Recipient,
		Enabled:         enabled,
		WarningFraction: req.WarningFraction,
	}
	if err := h.service.Store().SaveSubscription(c.Request.Context(), sub); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, toSubscriptionResponse(*sub))
}

// GetStats returns aggregate counters.
func (h *Handlers) GetStats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}
