// Package workflow resolves per-agent workflow definitions and runs their
// mandatory checks through the compliance validator. Definitions are
// versioned configuration, not code: registering an agent is a config edit.
package workflow

import (
	"fmt"
	"sort"

	"govline/internal/compliance"
	"govline/internal/config"
	"govline/internal/domain"
)

// ConfigurationError marks a workflow request for an unregistered agent.
// An unrecognized agent must not silently bypass governance.
type ConfigurationError struct {
	AgentID string
}

func (e ConfigurationError) Error() string {
	return fmt.Sprintf("no workflow registered for agent %q", e.AgentID)
}

// checkKinds maps mandatory check names to validator rule kinds.
// An absent entry means the check runs the full rule set.
var checkKinds = map[string][]compliance.RuleKind{
	"compliance":    nil,
	"terminology":   {compliance.KindForbiddenTerm, compliance.KindNamingLocale},
	"design-tokens": {compliance.KindColorLiteral, compliance.KindSpacingLiteral},
	"type-safety":   {compliance.KindAnyType},
	"locale":        {compliance.KindNamingLocale},
	"diagnostics":   {compliance.KindDebugNoise},
}

type Engine struct {
	validator *compliance.Validator
	defs      map[string]domain.WorkflowDefinition
}

// ChecksOutcome aggregates the mandatory checks for one submission.
type ChecksOutcome struct {
	AgentID string               `json:"agent_id"`
	Passed  bool                 `json:"passed"`
	Results []domain.CheckResult `json:"results"`
}

// New loads the workflow definition table from config.
func New(cfg *config.Config, validator *compliance.Validator) *Engine {
	defs := make(map[string]domain.WorkflowDefinition, len(cfg.Workflows))
	for agentID, wf := range cfg.Workflows {
		defs[agentID] = domain.WorkflowDefinition{
			AgentID:         agentID,
			Steps:           append([]string(nil), wf.Steps...),
			MandatoryChecks: append([]string(nil), wf.MandatoryChecks...),
		}
	}
	return &Engine{validator: validator, defs: defs}
}

// Get returns the workflow definition for an agent.
func (e *Engine) Get(agentID string) (domain.WorkflowDefinition, error) {
	def, ok := e.defs[agentID]
	if !ok {
		return domain.WorkflowDefinition{}, ConfigurationError{AgentID: agentID}
	}
	return def, nil
}

// List returns all registered definitions sorted by agent id.
func (e *Engine) List() []domain.WorkflowDefinition {
	defs := make([]domain.WorkflowDefinition, 0, len(e.defs))
	for _, def := range e.defs {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].AgentID < defs[j].AgentID })
	return defs
}

// RunMandatoryChecks evaluates every mandatory check for the agent against
// the artifact. Passed is the logical AND over all checks. Unknown agents
// fail with ConfigurationError.
func (e *Engine) RunMandatoryChecks(agentID, artifact, filePath string) (ChecksOutcome, error) {
	def, err := e.Get(agentID)
	if err != nil {
		return ChecksOutcome{}, err
	}
	outcome := ChecksOutcome{AgentID: agentID, Passed: true}
	for _, check := range def.MandatoryChecks {
		report := e.validator.EvaluateKinds(artifact, filePath, checkKinds[check])
		// A mandatory check tolerates info findings but not errors or warnings.
		result := domain.CheckResult{
			Check:      check,
			Passed:     report.Summary.Errors == 0 && report.Summary.Warnings == 0,
			Violations: report.Violations,
		}
		if !result.Passed {
			outcome.Passed = false
		}
		outcome.Results = append(outcome.Results, result)
	}
	return outcome, nil
}
