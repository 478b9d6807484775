package limits

// Status is the outcome of evaluating one rule against current usage.
type Status string

const (
	// StatusOK means usage is below both the warning and the limit threshold.
	StatusOK Status = "ok"

	// StatusWarning means usage has crossed the warning fraction but not
	// the threshold itself.
	StatusWarning Status = "warning"

	// StatusExceeded means the threshold has been reached or surpassed.
	StatusExceeded Status = "exceeded"
)

// Evaluation is the result of checking one rule against one usage value.
type Evaluation struct {
	Kind      LimitKind  `json:"kind"`
	Status    Status     `json:"status"`
	Observed  int64      `json:"observed"`
	Threshold int64      `json:"threshold"`
	Action    ActionKind `json:"action"`

	// Percentage is observed/threshold*100, or 0 when threshold <= 0.
	Percentage float64 `json:"percentage"`

	// ShouldNotify is true for warnings past the warning fraction and
	// unconditionally true for exceeded results.
	ShouldNotify bool `json:"should_notify"`
}

// Exceeded reports whether the evaluation crossed the threshold.
func (e Evaluation) Exceeded() bool {
	return e.Status == StatusExceeded
}

// Evaluate checks a single rule against a current usage value.
//
// Pure and deterministic: no I/O, no state, same inputs always produce the
// same output. The threshold comparison is inclusive: reaching the
// threshold exactly counts as exceeded. A non-positive threshold grants no
// allowance at all, so any usage above zero exceeds it; its percentage is
// reported as zero since there is no meaningful denominator.
//
// The caller is responsible for skipping disabled rules; Evaluate does not
// look at rule.Enabled.
func Evaluate(rule LimitRule, current int64) Evaluation {
	ev := Evaluation{
		Kind:      rule.Kind,
		Status:    StatusOK,
		Observed:  current,
		Threshold: rule.Threshold,
		Action:    rule.Action,
	}

	if rule.Threshold > 0 {
		ev.Percentage = float64(current) / float64(rule.Threshold) * 100
	}

	exceeded := current >= rule.Threshold
	if rule.Threshold <= 0 {
		exceeded = current > 0
	}

	switch {
	case exceeded:
		ev.Status = StatusExceeded
		ev.ShouldNotify = true
	case rule.WarningFraction > 0 && ev.Percentage >= rule.WarningFraction*100:
		ev.Status = StatusWarning
		ev.ShouldNotify = true
	}

	return ev
}
