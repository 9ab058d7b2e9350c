package workflow_test

import (
	"errors"
	"testing"

	"govline/internal/compliance"
	"govline/internal/config"
	"govline/internal/workflow"
)

func newEngine(t *testing.T, workflows map[string]config.Workflow) *workflow.Engine {
	t.Helper()
	cfg := config.Default("test")
	if workflows != nil {
		cfg.Workflows = workflows
	}
	return workflow.New(cfg, compliance.New(cfg))
}

func TestUnknownAgentIsConfigurationError(t *testing.T) {
	e := newEngine(t, nil)
	_, err := e.RunMandatoryChecks("mystery-bot", "anything", "")
	var cfgErr workflow.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("err = %v, want ConfigurationError", err)
	}
	if cfgErr.AgentID != "mystery-bot" {
		t.Fatalf("AgentID = %q", cfgErr.AgentID)
	}
	if _, err := e.Get("mystery-bot"); !errors.As(err, &cfgErr) {
		t.Fatalf("Get should fail the same way, got %v", err)
	}
}

func TestChecksAreScopedToTheirRuleKinds(t *testing.T) {
	e := newEngine(t, map[string]config.Workflow{
		"ts-bot": {Steps: []string{"lint"}, MandatoryChecks: []string{"type-safety"}},
	})
	outcome, err := e.RunMandatoryChecks("ts-bot", "margin: 7px\ndo not ship\n", "")
	if err != nil {
		t.Fatal(err)
	}
	if !outcome.Passed {
		t.Fatalf("type-safety check must ignore spacing and terminology findings: %+v", outcome.Results)
	}
	outcome, err = e.RunMandatoryChecks("ts-bot", "let x: any = 1", "")
	if err != nil {
		t.Fatal(err)
	}
	if outcome.Passed {
		t.Fatalf("loose typing should fail type-safety")
	}
}

func TestPassedIsANDOverAllChecks(t *testing.T) {
	e := newEngine(t, nil)
	outcome, err := e.RunMandatoryChecks("quality-bot", "margin: 7px", "theme.css")
	if err != nil {
		t.Fatal(err)
	}
	if outcome.Passed {
		t.Fatalf("one failing check must fail the submission")
	}
	failed := map[string]bool{}
	for _, result := range outcome.Results {
		if !result.Passed {
			failed[result.Check] = true
		}
	}
	if !failed["design-tokens"] {
		t.Fatalf("design-tokens should have failed: %+v", outcome.Results)
	}
	if failed["type-safety"] {
		t.Fatalf("type-safety should have passed: %+v", outcome.Results)
	}
}

func TestInfoFindingsDoNotFailACheck(t *testing.T) {
	e := newEngine(t, map[string]config.Workflow{
		"debug-bot": {MandatoryChecks: []string{"diagnostics"}},
	})
	outcome, err := e.RunMandatoryChecks("debug-bot", "console.log(x)", "app.ts")
	if err != nil {
		t.Fatal(err)
	}
	if !outcome.Passed {
		t.Fatalf("info-only findings must not fail a check: %+v", outcome.Results)
	}
	if len(outcome.Results) != 1 || len(outcome.Results[0].Violations) != 1 {
		t.Fatalf("the finding should still be reported: %+v", outcome.Results)
	}
}

func TestListIsSortedByAgent(t *testing.T) {
	e := newEngine(t, nil)
	defs := e.List()
	if len(defs) == 0 {
		t.Fatal("no workflows registered")
	}
	for i := 1; i < len(defs); i++ {
		if defs[i-1].AgentID >= defs[i].AgentID {
			t.Fatalf("definitions not sorted: %q before %q", defs[i-1].AgentID, defs[i].AgentID)
		}
	}
}
