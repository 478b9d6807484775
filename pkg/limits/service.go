package limits

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// DefaultWarningFraction is applied to rules that do not carry their own
// warning fraction.
const DefaultWarningFraction = 0.8

// Service implements rule management and on-demand limit checks on top of a
// Store. The periodic sweep lives in the monitor package; Service carries the
// operations shared between the sweep and the API surface.
type Service struct {
	store           Store
	logger          *slog.Logger
	metrics         *Metrics
	warningFraction float64
}

// ServiceConfig configures a Service.
type ServiceConfig struct {
	// WarningFraction is applied to rules whose own fraction is unset.
	// Zero selects DefaultWarningFraction.
	WarningFraction float64
}

// NewService creates a limits service backed by the given store.
func NewService(store Store, cfg ServiceConfig, logger *slog.Logger, metrics *Metrics) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	wf := cfg.WarningFraction
	if wf <= 0 {
		wf = DefaultWarningFraction
	}
	return &Service{
		store:           store,
		logger:          logger.With("component", "limits"),
		metrics:         metrics,
		warningFraction: wf,
	}
}

// Store returns the backing store.
func (s *Service) Store() Store {
	return s.store
}

// SetRule validates and persists a rule for a user. A rule with an unset
// warning fraction inherits the service default.
func (s *Service) SetRule(ctx context.Context, rule *LimitRule) error {
	if rule.WarningFraction <= 0 {
		rule.WarningFraction = s.warningFraction
	}
	if err := rule.Validate(); err != nil {
		return err
	}
	if err := s.store.UpsertRule(ctx, rule); err != nil {
		return fmt.Errorf("upserting rule: %w", err)
	}
	s.logger.Info("Limit rule set",
		"username", rule.Username,
		"kind", rule.Kind,
		"threshold", rule.Threshold,
		"action", rule.Action)
	return nil
}

// RemoveRule deletes the rule of the given kind for a user.
func (s *Service) RemoveRule(ctx context.Context, username string, kind LimitKind) error {
	if err := s.store.DeleteRule(ctx, username, kind); err != nil {
		return err
	}
	s.logger.Info("Limit rule removed", "username", username, "kind", kind)
	return nil
}

// Rules returns the rules configured for a user.
func (s *Service) Rules(ctx context.Context, username string) ([]LimitRule, error) {
	return s.store.Rules(ctx, username)
}

// CheckUser evaluates the user's enabled rules against the supplied usage
// snapshot. It does not record violations or dispatch actions; the monitor
// owns that flow.
func (s *Service) CheckUser(ctx context.Context, username string, usage Usage) ([]Evaluation, error) {
	rules, err := s.store.Rules(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("loading rules for %s: %w", username, err)
	}

	evaluations := make([]Evaluation, 0, len(rules))
	for _, rule := range rules {
		if !rule.Enabled {
			continue
		}
		ev := Evaluate(rule, usage[rule.Kind])
		s.metrics.RecordEvaluation(ev.Kind, ev.Status)
		evaluations = append(evaluations, ev)
	}
	return evaluations, nil
}

// ApplyTemplate replaces the user's rules of each kind the template covers
// with the template's rules. Rules of kinds the template does not mention are
// left alone. Applying the same template twice is a no-op.
func (s *Service) ApplyTemplate(ctx context.Context, username string, templateID int64) error {
	tpl, err := s.store.Template(ctx, templateID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	rules := make([]LimitRule, 0, len(tpl.Rules))
	for _, tr := range tpl.Rules {
		wf := tr.WarningFraction
		if wf <= 0 {
			wf = s.warningFraction
		}
		rules = append(rules, LimitRule{
			Username:        username,
			Kind:            tr.Kind,
			Threshold:       tr.Threshold,
			Action:          tr.Action,
			Enabled:         true,
			WarningFraction: wf,
			Description:     tr.Description,
			CreatedAt:       now,
			UpdatedAt:       now,
		})
	}

	if err := s.store.ReplaceRulesByKind(ctx, username, rules); err != nil {
		return fmt.Errorf("applying template %q to %s: %w", tpl.Name, username, err)
	}

	s.logger.Info("Template applied",
		"username", username,
		"template", tpl.Name,
		"rules", len(rules))
	return nil
}

// SeedTemplates inserts the built-in templates when the store has none.
func (s *Service) SeedTemplates(ctx context.Context) error {
	existing, err := s.store.Templates(ctx)
	if err != nil {
		return fmt.Errorf("listing templates: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}
	for _, tpl := range DefaultTemplates() {
		t := tpl
		if err := s.store.SaveTemplate(ctx, &t); err != nil {
			return fmt.Errorf("seeding template %q: %w", t.Name, err)
		}
	}
	s.logger.Info("Seeded built-in limit templates", "count", len(DefaultTemplates()))
	return nil
}

// Stats returns aggregate counts for the admin surface.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	return s.store.Stats(ctx)
}
