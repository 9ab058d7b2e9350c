// Package compliance implements the stateless rule evaluator of the
// governance pipeline. A validator holds a fixed rule set built from
// external configuration and scans text artifacts line by line; it is
// safe for concurrent use across independent artifacts.
package compliance

import (
	"fmt"
	"strings"

	"govline/internal/config"
	"govline/internal/domain"
)

type Validator struct {
	rules []Rule
}

// Report is the outcome of one artifact scan.
type Report struct {
	Compliant  bool                         `json:"compliant"`
	Violations []domain.ComplianceViolation `json:"violations"`
	Summary    domain.ViolationSummary      `json:"summary"`
}

// New builds a validator from the externalized rule configuration.
func New(cfg *config.Config) *Validator {
	return &Validator{rules: RulesFromConfig(cfg)}
}

// NewWithRules builds a validator over an explicit rule set.
func NewWithRules(rules []Rule) *Validator {
	return &Validator{rules: rules}
}

// Rules returns the configured rule set.
func (v *Validator) Rules() []Rule { return v.rules }

// Evaluate scans an artifact against every configured rule.
func (v *Validator) Evaluate(artifact, filePath string) Report {
	return v.evaluate(artifact, filePath, nil)
}

// EvaluateKinds scans an artifact against the subset of rules whose kind
// is listed. An empty kind list means all rules.
func (v *Validator) EvaluateKinds(artifact, filePath string, kinds []RuleKind) Report {
	if len(kinds) == 0 {
		return v.Evaluate(artifact, filePath)
	}
	wanted := make(map[RuleKind]bool, len(kinds))
	for _, k := range kinds {
		wanted[k] = true
	}
	return v.evaluate(artifact, filePath, wanted)
}

func (v *Validator) evaluate(artifact, filePath string, wanted map[RuleKind]bool) Report {
	report := Report{Violations: []domain.ComplianceViolation{}}
	lines := strings.Split(artifact, "\n")
	for _, rule := range v.rules {
		if wanted != nil && !wanted[rule.Kind] {
			continue
		}
		report.Violations = append(report.Violations, runRule(rule, filePath, lines)...)
	}
	for _, violation := range report.Violations {
		switch violation.Severity {
		case "error":
			report.Summary.Errors++
		case "warning":
			report.Summary.Warnings++
		default:
			report.Summary.Info++
		}
	}
	report.Compliant = report.Summary.Errors == 0
	return report
}

// runRule applies one rule to every line. A panicking rule yields a single
// info violation naming the rule instead of failing the scan.
func runRule(rule Rule, filePath string, lines []string) (violations []domain.ComplianceViolation) {
	defer func() {
		if r := recover(); r != nil {
			violations = []domain.ComplianceViolation{{
				Rule:     rule.ID,
				Severity: "info",
				Message:  fmt.Sprintf("rule %s failed and was skipped: %v", rule.ID, r),
			}}
		}
	}()
	for i, line := range lines {
		lc := lineContext{
			FilePath: filePath,
			Number:   i + 1,
			Line:     line,
			Lower:    strings.ToLower(line),
		}
		violations = append(violations, rule.apply(lc)...)
	}
	return violations
}
