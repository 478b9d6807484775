package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"halcyon-net/warden/pkg/limits"
	"halcyon-net/warden/pkg/limits/storage"
)

type staticSource struct {
	usage limits.Usage
	err   error
}

func (s *staticSource) Snapshot(_ context.Context, _ string) (limits.Usage, error) {
	return s.usage, s.err
}

func (s *staticSource) Close() error { return nil }

func newTestRouter(t *testing.T, source *staticSource) (http.Handler, limits.Store) {
	t.Helper()
	store := storage.NewMemoryStore()
	service := limits.NewService(store, limits.ServiceConfig{}, nil, nil)
	if source == nil {
		source = &staticSource{usage: limits.Usage{}}
	}
	return NewRouter(NewHandlers(service, source), nil), store
}

func doRequest(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, nil)
	w := doRequest(t, router, http.MethodGet, "/healthz", "")
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}
}

func TestSetAndGetRules(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	w := doRequest(t, router, http.MethodPut, "/api/v1/users/alice/limits",
		`{"kind":"data_limit","threshold":1000,"action":"disable"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var created RuleResponse
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if created.Username != "alice" || created.Kind != limits.KindData || !created.Enabled {
		t.Errorf("Unexpected created rule: %+v", created)
	}
	if created.WarningFraction != limits.DefaultWarningFraction {
		t.Errorf("Expected default warning fraction, got %v", created.WarningFraction)
	}

	w = doRequest(t, router, http.MethodGet, "/api/v1/users/alice/limits", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var rules []RuleResponse
	if err := json.Unmarshal(w.Body.Bytes(), &rules); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(rules) != 1 {
		t.Errorf("Expected 1 rule, got %d", len(rules))
	}
}

func TestSetRuleInvalid(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	w := doRequest(t, router, http.MethodPut, "/api/v1/users/alice/limits",
		`{"kind":"bogus_limit","threshold":10,"action":"notify"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", w.Code)
	}

	w = doRequest(t, router, http.MethodPut, "/api/v1/users/alice/limits", `{"threshold":10}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing fields, got %d", w.Code)
	}
}

func TestDeleteRule(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	doRequest(t, router, http.MethodPut, "/api/v1/users/bob/limits",
		`{"kind":"time_limit","threshold":600,"action":"notify"}`)

	w := doRequest(t, router, http.MethodDelete, "/api/v1/users/bob/limits/time_limit", "")
	if w.Code != http.StatusNoContent {
		t.Errorf("Expected 204, got %d", w.Code)
	}

	w = doRequest(t, router, http.MethodDelete, "/api/v1/users/bob/limits/time_limit", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for missing rule, got %d", w.Code)
	}

	w = doRequest(t, router, http.MethodDelete, "/api/v1/users/bob/limits/bogus", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad kind, got %d", w.Code)
	}
}

func TestCheckUser(t *testing.T) {
	source := &staticSource{usage: limits.Usage{limits.KindData: 1500}}
	router, _ := newTestRouter(t, source)

	doRequest(t, router, http.MethodPut, "/api/v1/users/carol/limits",
		`{"kind":"data_limit","threshold":1000,"action":"disable"}`)

	w := doRequest(t, router, http.MethodGet, "/api/v1/users/carol/check", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Username    string              `json:"username"`
		Evaluations []limits.Evaluation `json:"evaluations"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(resp.Evaluations) != 1 {
		t.Fatalf("Expected 1 evaluation, got %d", len(resp.Evaluations))
	}
	if resp.Evaluations[0].Status != limits.StatusExceeded {
		t.Errorf("Expected exceeded status, got %s", resp.Evaluations[0].Status)
	}
}

func TestCheckUserSourceDown(t *testing.T) {
	source := &staticSource{err: limits.ErrUsageUnavailable}
	router, _ := newTestRouter(t, source)

	w := doRequest(t, router, http.MethodGet, "/api/v1/users/carol/check", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", w.Code)
	}
}

func TestViolationsAndResolve(t *testing.T) {
	router, store := newTestRouter(t, nil)

	if err := store.SaveViolation(context.Background(), &limits.Violation{
		ID: "v-1", Username: "dave", Kind: limits.KindData,
		Observed: 1500, Threshold: 1000, ActionTaken: limits.ActionDisable,
	}); err != nil {
		t.Fatalf("SaveViolation failed: %v", err)
	}

	w := doRequest(t, router, http.MethodGet, "/api/v1/users/dave/violations", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var violations []ViolationResponse
	if err := json.Unmarshal(w.Body.Bytes(), &violations); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(violations) != 1 || violations[0].ID != "v-1" {
		t.Errorf("Unexpected violations: %+v", violations)
	}

	w = doRequest(t, router, http.MethodPost, "/api/v1/violations/v-1/resolve", `{"note":"credit applied"}`)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = doRequest(t, router, http.MethodPost, "/api/v1/violations/missing/resolve", `{}`)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
}

func TestTemplatesAndApply(t *testing.T) {
	router, store := newTestRouter(t, nil)

	tpl := limits.DefaultTemplates()[0]
	if err := store.SaveTemplate(context.Background(), &tpl); err != nil {
		t.Fatalf("SaveTemplate failed: %v", err)
	}

	w := doRequest(t, router, http.MethodGet, "/api/v1/templates", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var templates []TemplateResponse
	if err := json.Unmarshal(w.Body.Bytes(), &templates); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(templates) != 1 {
		t.Fatalf("Expected 1 template, got %d", len(templates))
	}

	w = doRequest(t, router, http.MethodPost, "/api/v1/users/erin/templates/1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	rules, err := store.Rules(context.Background(), "erin")
	if err != nil {
		t.Fatalf("Rules failed: %v", err)
	}
	if len(rules) != len(tpl.Rules) {
		t.Errorf("Expected %d rules after apply, got %d", len(tpl.Rules), len(rules))
	}

	w = doRequest(t, router, http.MethodPost, "/api/v1/users/erin/templates/99", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for missing template, got %d", w.Code)
	}
}

func TestSubscriptions(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	w := doRequest(t, router, http.MethodPost, "/api/v1/users/frank/subscriptions",
		`{"kind":"data_limit","channel":"webhook","recipient":"https://example.com/hook"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = doRequest(t, router, http.MethodPost, "/api/v1/users/frank/subscriptions",
		`{"kind":"data_limit","channel":"pigeon","recipient":"x"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown channel, got %d", w.Code)
	}

	w = doRequest(t, router, http.MethodGet, "/api/v1/users/frank/subscriptions/data_limit", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var subs []SubscriptionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &subs); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(subs) != 1 || subs[0].Channel != limits.ChannelWebhook {
		t.Errorf("Unexpected subscriptions: %+v", subs)
	}
}

func TestStats(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	doRequest(t, router, http.MethodPut, "/api/v1/users/gina/limits",
		`{"kind":"data_limit","threshold":1000,"action":"notify"}`)

	w := doRequest(t, router, http.MethodGet, "/api/v1/limits/stats", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var stats limits.Stats
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if stats.UsersWithRules != 1 {
		t.Errorf("Expected 1 user with rules, got %d", stats.UsersWithRules)
	}
}
