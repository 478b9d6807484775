package api

import (
	"time"

	"halcyon-net/warden/pkg/limits"
)

// RuleResponse is the JSON shape of a limit rule.
type RuleResponse struct {
	ID              int64             `json:"id"`
	Username        string            `json:"username"`
	Kind            limits.LimitKind  `json:"kind"`
	Threshold       int64             `json:"threshold"`
	Action          limits.ActionKind `json:"action"`
	Enabled         bool              `json:"enabled"`
	WarningFraction float64           `json:"warning_fraction"`
	WebhookURL      string            `json:"webhook_url,omitempty"`
	Description     string            `json:"description,omitempty"`
	AutoReset       bool              `json:"auto_reset"`
	ResetSchedule   string            `json:"reset_schedule,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

func toRuleResponse(r limits.LimitRule) RuleResponse {
	return RuleResponse{
		ID:              r.ID,
		Username:        r.Username,
		Kind:            r.Kind,
		Threshold:       r.Threshold,
		Action:          r.Action,
		Enabled:         r.Enabled,
		WarningFraction: r.WarningFraction,
		WebhookURL:      r.WebhookURL,
		Description:     r.Description,
		AutoReset:       r.AutoReset,
		ResetSchedule:   r.ResetSchedule,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

func toRuleResponses(rules []limits.LimitRule) []RuleResponse {
	out := make([]RuleResponse, len(rules))
	for i, r := range rules {
		out[i] = toRuleResponse(r)
	}
	return out
}

// ViolationResponse is the JSON shape of a violation record.
type ViolationResponse struct {
	ID               string            `json:"id"`
	Username         string            `json:"username"`
	Kind             limits.LimitKind  `json:"kind"`
	Observed         int64             `json:"observed"`
	Threshold        int64             `json:"threshold"`
	ActionTaken      limits.ActionKind `json:"action_taken"`
	OccurredAt       time.Time         `json:"occurred_at"`
	Resolved         bool              `json:"resolved"`
	ResolvedAt       *time.Time        `json:"resolved_at,omitempty"`
	NotificationSent bool              `json:"notification_sent"`
	AdminNote        string            `json:"admin_note,omitempty"`
}

func toViolationResponses(violations []limits.Violation) []ViolationResponse {
	out := make([]ViolationResponse, len(violations))
	for i, v := range violations {
		resp := ViolationResponse{
			ID:               v.ID,
			Username:         v.Username,
			Kind:             v.Kind,
			Observed:         v.Observed,
			Threshold:        v.Threshold,
			ActionTaken:      v.ActionTaken,
			OccurredAt:       v.OccurredAt,
			Resolved:         v.Resolved,
			NotificationSent: v.NotificationSent,
			AdminNote:        v.AdminNote,
		}
		if !v.ResolvedAt.IsZero() {
			t := v.ResolvedAt
			resp.ResolvedAt = &t
		}
		out[i] = resp
	}
	return out
}

// TemplateResponse is the JSON shape of a limit template.
type TemplateResponse struct {
	ID          int64                 `json:"id"`
	Name        string                `json:"name"`
	Description string                `json:"description,omitempty"`
	Rules       []limits.TemplateRule `json:"rules"`
	Default     bool                  `json:"default"`
	CreatedAt   time.Time             `json:"created_at"`
}

func toTemplateResponses(templates []limits.LimitTemplate) []TemplateResponse {
	out := make([]TemplateResponse, len(templates))
	for i, t := range templates {
		out[i] = TemplateResponse{
			ID:          t.ID,
			Name:        t.Name,
			Description: t.Description,
			Rules:       t.Rules,
			Default:     t.Default,
			CreatedAt:   t.CreatedAt,
		}
	}
	return out
}

// SubscriptionResponse is the JSON shape of a notification subscription.
type SubscriptionResponse struct {
	ID              int64              `json:"id"`
	Username        string             `json:"username"`
	Kind            limits.LimitKind   `json:"kind"`
	Channel         limits.ChannelType `json:"channel"`
	Recipient       string             `json:"recipient"`
	Enabled         bool               `json:"enabled"`
	WarningFraction float64            `json:"warning_fraction,omitempty"`
}

func toSubscriptionResponse(s limits.NotificationSubscription) SubscriptionResponse {
	return SubscriptionResponse{
		ID:              s.ID,
		Username:        s.Username,
		Kind:            s.Kind,
		Channel:         s.Channel,
		Recipient:       s.Recipient,
		Enabled:         s.Enabled,
		WarningFraction: s.WarningFraction,
	}
}

func toSubscriptionResponses(subs []limits.NotificationSubscription) []SubscriptionResponse {
	out := make([]SubscriptionResponse, len(subs))
	for i, s := range subs {
		out[i] = toSubscriptionResponse(s)
	}
	return out
}
