package compliance

import (
	"fmt"
	"regexp"
	"strings"

	"govline/internal/config"
	"govline/internal/domain"
)

// RuleKind is the closed enumeration of compliance rule variants.
// Adding a rule family means adding a kind, not editing a dispatch chain.
type RuleKind string

const (
	KindForbiddenTerm  RuleKind = "forbidden-term"
	KindColorLiteral   RuleKind = "color-literal"
	KindSpacingLiteral RuleKind = "spacing-literal"
	KindAnyType        RuleKind = "any-type"
	KindNamingLocale   RuleKind = "naming-locale"
	KindDebugNoise     RuleKind = "debug-noise"
)

// suppressMarker disables the type-safety heuristic for a single line.
const suppressMarker = "lint:allow-any"

// lineContext is what a rule sees for each scanned line.
type lineContext struct {
	FilePath string
	Number   int
	Line     string
	Lower    string
}

// Rule is one tagged compliance rule. Kind selects the matching strategy,
// the remaining fields parameterize it.
type Rule struct {
	ID       string
	Kind     RuleKind
	Severity string
	Term     string
	Literal  string
	Token    string

	// check, when set, replaces the kind dispatch for this rule.
	check func(lineContext) []domain.ComplianceViolation
}

var (
	anyTypeRe   = regexp.MustCompile(`(:\s*any\b|\bas\s+any\b|\[\]any\b|interface\{\})`)
	debugCallRe = regexp.MustCompile(`\b(console\.(log|debug|trace)|fmt\.Print(ln|f)?|print(ln)?)\s*\(`)
	identRe     = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)
)

// apply inspects one line and returns zero or more violations. Rules are
// total over their input; the validator additionally recovers panics so a
// faulty rule can never abort a scan.
func (r Rule) apply(lc lineContext) []domain.ComplianceViolation {
	if r.check != nil {
		return r.check(lc)
	}
	switch r.Kind {
	case KindForbiddenTerm:
		if strings.Contains(lc.Lower, strings.ToLower(r.Term)) {
			return []domain.ComplianceViolation{{
				Rule:     r.ID,
				Severity: r.Severity,
				Message:  fmt.Sprintf("forbidden term %q", r.Term),
				Line:     lc.Number,
			}}
		}
	case KindColorLiteral:
		if strings.Contains(lc.Lower, strings.ToLower(r.Literal)) {
			return []domain.ComplianceViolation{{
				Rule:       r.ID,
				Severity:   r.Severity,
				Message:    fmt.Sprintf("hardcoded color %s; use a design token", r.Literal),
				Line:       lc.Number,
				Suggestion: r.Token,
			}}
		}
	case KindSpacingLiteral:
		if strings.Contains(lc.Lower, strings.ToLower(r.Literal)) {
			return []domain.ComplianceViolation{{
				Rule:       r.ID,
				Severity:   r.Severity,
				Message:    fmt.Sprintf("deprecated spacing literal %q", r.Literal),
				Line:       lc.Number,
				Suggestion: r.Token,
			}}
		}
	case KindAnyType:
		if strings.Contains(lc.Line, suppressMarker) {
			return nil
		}
		if anyTypeRe.MatchString(lc.Line) {
			return []domain.ComplianceViolation{{
				Rule:       r.ID,
				Severity:   r.Severity,
				Message:    "loosely typed declaration",
				Line:       lc.Number,
				Suggestion: "declare a concrete type or suppress with " + suppressMarker,
			}}
		}
	case KindNamingLocale:
		for _, ident := range identRe.FindAllString(lc.Line, -1) {
			if strings.EqualFold(ident, r.Term) {
				return []domain.ComplianceViolation{{
					Rule:     r.ID,
					Severity: r.Severity,
					Message:  fmt.Sprintf("identifier %q is in the wrong language register for code", ident),
					Line:     lc.Number,
				}}
			}
		}
	case KindDebugNoise:
		if isTestPath(lc.FilePath) {
			return nil
		}
		if debugCallRe.MatchString(lc.Line) {
			return []domain.ComplianceViolation{{
				Rule:     r.ID,
				Severity: r.Severity,
				Message:  "debug output statement left in artifact",
				Line:     lc.Number,
			}}
		}
	}
	return nil
}

func isTestPath(path string) bool {
	return strings.Contains(path, "_test.") || strings.Contains(path, ".test.") || strings.Contains(path, ".spec.")
}

// RulesFromConfig expands the externalized rule configuration into the
// concrete rule set the validator runs on every scan.
func RulesFromConfig(cfg *config.Config) []Rule {
	var rules []Rule
	for i, term := range cfg.Rules.ForbiddenTerms {
		rules = append(rules, Rule{
			ID:       fmt.Sprintf("forbidden-term.%d", i+1),
			Kind:     KindForbiddenTerm,
			Severity: "error",
			Term:     term,
		})
	}
	for literal, token := range cfg.Rules.ColorTokens {
		rules = append(rules, Rule{
			ID:       "color-literal." + literal,
			Kind:     KindColorLiteral,
			Severity: "warning",
			Literal:  literal,
			Token:    token,
		})
	}
	for literal, token := range cfg.Rules.SpacingTokens {
		rules = append(rules, Rule{
			ID:       "spacing-literal." + literal,
			Kind:     KindSpacingLiteral,
			Severity: "warning",
			Literal:  literal,
			Token:    token,
		})
	}
	rules = append(rules, Rule{
		ID:       "any-type",
		Kind:     KindAnyType,
		Severity: "warning",
	})
	for _, term := range cfg.Rules.LocaleTerms {
		rules = append(rules, Rule{
			ID:       "naming-locale." + strings.ToLower(term),
			Kind:     KindNamingLocale,
			Severity: "error",
			Term:     term,
		})
	}
	rules = append(rules, Rule{
		ID:       "debug-noise",
		Kind:     KindDebugNoise,
		Severity: "info",
	})
	return rules
}
