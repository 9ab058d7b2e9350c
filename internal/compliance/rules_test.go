package compliance

import (
	"strings"
	"testing"

	"govline/internal/domain"
)

func TestPanickingRuleIsSkippedNotFatal(t *testing.T) {
	rules := []Rule{
		{
			ID: "exploding",
			check: func(lineContext) []domain.ComplianceViolation {
				panic("rule bug")
			},
		},
		{ID: "forbidden-term.1", Kind: KindForbiddenTerm, Severity: "error", Term: "do not ship"},
	}
	v := NewWithRules(rules)
	report := v.Evaluate("do not ship this", "x.txt")

	var skipped *domain.ComplianceViolation
	for i, violation := range report.Violations {
		if violation.Rule == "exploding" {
			skipped = &report.Violations[i]
		}
	}
	if skipped == nil {
		t.Fatalf("panicking rule left no trace: %+v", report.Violations)
	}
	if skipped.Severity != "info" {
		t.Fatalf("skipped rule severity = %q, want info", skipped.Severity)
	}
	if !strings.Contains(skipped.Message, "exploding") {
		t.Fatalf("skip notice should name the rule, got %q", skipped.Message)
	}
	// The healthy rule still ran.
	if report.Summary.Errors != 1 {
		t.Fatalf("errors = %d, want 1", report.Summary.Errors)
	}
}
