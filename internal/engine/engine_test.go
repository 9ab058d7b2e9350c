package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"govline/internal/config"
	"govline/internal/db"
	"govline/internal/engine"
	"govline/internal/migrate"
	"govline/internal/textgen"
	"govline/internal/workflow"
)

type testEnv struct {
	Engine *engine.Engine
	Ctx    context.Context
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	cfg := config.Default("pipeline-1")
	eng := engine.New(conn, cfg)
	clock := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	eng.Now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return testEnv{Engine: eng, Ctx: context.Background()}
}

func submit(t *testing.T, env testEnv, title, description string) string {
	t.Helper()
	cr, created, err := env.Engine.SubmitRequest(env.Ctx, engine.SubmitOptions{
		RequesterAgent: "chat-bot",
		Type:           "best-practice-suggestion",
		Title:          title,
		Description:    description,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !created {
		t.Fatalf("expected a fresh request for %q", title)
	}
	return cr.ID
}

func TestSubmitRequestDeduplicates(t *testing.T) {
	env := newTestEnv(t)
	first, created, err := env.Engine.SubmitRequest(env.Ctx, engine.SubmitOptions{
		RequesterAgent: "chat-bot",
		Type:           "best-practice-suggestion",
		Title:          "Use dependency injection",
	})
	if err != nil || !created {
		t.Fatalf("first submit: created=%v err=%v", created, err)
	}
	// Same proposal, different punctuation and casing.
	second, created, err := env.Engine.SubmitRequest(env.Ctx, engine.SubmitOptions{
		RequesterAgent: "chat-bot",
		Type:           "best-practice-suggestion",
		Title:          "use Dependency-Injection!",
	})
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}
	if created {
		t.Fatalf("near-identical open request must be deduplicated")
	}
	if second.ID != first.ID {
		t.Fatalf("dedupe returned a different request: %s vs %s", second.ID, first.ID)
	}

	// A different agent submitting the same title is a new request.
	_, created, err = env.Engine.SubmitRequest(env.Ctx, engine.SubmitOptions{
		RequesterAgent: "design-bot",
		Type:           "best-practice-suggestion",
		Title:          "Use dependency injection",
	})
	if err != nil || !created {
		t.Fatalf("other agent submit: created=%v err=%v", created, err)
	}
}

func TestSubmitRequestValidation(t *testing.T) {
	env := newTestEnv(t)
	cases := []engine.SubmitOptions{
		{Type: "best-practice-suggestion", Title: "x"},
		{RequesterAgent: "chat-bot", Type: "best-practice-suggestion"},
		{RequesterAgent: "chat-bot", Type: "vague-idea", Title: "x"},
		{RequesterAgent: "chat-bot", Type: "bug-fix", Title: "x", Priority: "urgent"},
	}
	for i, opts := range cases {
		if _, _, err := env.Engine.SubmitRequest(env.Ctx, opts); err == nil {
			t.Fatalf("case %d should have been rejected", i)
		}
	}
}

func TestApprovalLifecycle(t *testing.T) {
	env := newTestEnv(t)
	id := submit(t, env, "Adopt structured logging", "replace ad-hoc output with structured log calls")

	decision, err := env.Engine.ReviewRequest(env.Ctx, id, "master-bot")
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if decision.Decision != "approved" {
		t.Fatalf("decision = %q, reasons %v", decision.Decision, decision.Reasons)
	}
	if decision.LedgerID == "" {
		t.Fatal("every decision must leave a ledger record")
	}
	entry, err := env.Engine.Ledger.Get(env.Ctx, decision.LedgerID)
	if err != nil {
		t.Fatalf("ledger record: %v", err)
	}
	if entry.Result != "approved" || entry.BotName != "master-bot" {
		t.Fatalf("ledger record content: %+v", entry)
	}

	cr, err := env.Engine.Repo.GetRequest(env.Ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if cr.Status != "approved" {
		t.Fatalf("status = %q, want approved", cr.Status)
	}

	if err := env.Engine.MarkApplied(env.Ctx, id, "master-bot"); err != nil {
		t.Fatalf("apply: %v", err)
	}
	cr, _ = env.Engine.Repo.GetRequest(env.Ctx, id)
	if cr.Status != "applied" || cr.AppliedAt == nil {
		t.Fatalf("applied state: %+v", cr)
	}
	// Applied is terminal.
	if err := env.Engine.MarkApplied(env.Ctx, id, "master-bot"); err == nil {
		t.Fatal("re-applying must fail")
	}
}

func TestTwoStrikesRejects(t *testing.T) {
	env := newTestEnv(t)
	id := submit(t, env, "Ship the hotfix", "contains password123 in an example")

	decision, err := env.Engine.ReviewRequest(env.Ctx, id, "master-bot")
	if err != nil {
		t.Fatalf("first review: %v", err)
	}
	if decision.Decision != "returned" || len(decision.Reasons) == 0 {
		t.Fatalf("first failure should return with reasons: %+v", decision)
	}
	cr, _ := env.Engine.Repo.GetRequest(env.Ctx, id)
	if cr.Status != "pending" || cr.FailureCount != 1 {
		t.Fatalf("after first strike: %+v", cr)
	}

	decision, err = env.Engine.ReviewRequest(env.Ctx, id, "master-bot")
	if err != nil {
		t.Fatalf("second review: %v", err)
	}
	if decision.Decision != "rejected" {
		t.Fatalf("second consecutive failure must reject: %+v", decision)
	}
	cr, _ = env.Engine.Repo.GetRequest(env.Ctx, id)
	if cr.Status != "rejected" || cr.FailureCount != 2 {
		t.Fatalf("after second strike: %+v", cr)
	}

	if _, err := env.Engine.ReviewRequest(env.Ctx, id, "master-bot"); err == nil {
		t.Fatal("rejected requests are not reviewable")
	}

	// Explicit human revision reopens with a clean slate.
	if err := env.Engine.ResubmitRequest(env.Ctx, id, "operator"); err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	cr, _ = env.Engine.Repo.GetRequest(env.Ctx, id)
	if cr.Status != "pending" || cr.FailureCount != 0 {
		t.Fatalf("after resubmit: %+v", cr)
	}
}

func TestFailedReviewFeedsLearningStore(t *testing.T) {
	env := newTestEnv(t)
	id := submit(t, env, "Sneak in a workaround", "this is a hack workaround for the release")
	if _, err := env.Engine.ReviewRequest(env.Ctx, id, "master-bot"); err != nil {
		t.Fatalf("review: %v", err)
	}
	patterns, err := env.Engine.Learning.FindByAgent(env.Ctx, "chat-bot")
	if err != nil {
		t.Fatal(err)
	}
	if len(patterns) == 0 {
		t.Fatal("failing checks should leave learned patterns")
	}
}

func TestSystemwideImpactNeedsMultiSign(t *testing.T) {
	env := newTestEnv(t)
	id := submit(t, env, "Tighten logging levels", "a systemwide change to default log verbosity")

	decision, err := env.Engine.ReviewRequest(env.Ctx, id, "master-bot")
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if decision.Decision != "approved" || !decision.NeedsMultiSign {
		t.Fatalf("decision: %+v", decision)
	}
	cr, _ := env.Engine.Repo.GetRequest(env.Ctx, id)
	if cr.Status != "under-review" {
		t.Fatalf("flagged request must wait for sign-off, status = %q", cr.Status)
	}
	if err := env.Engine.ApproveMultiSign(env.Ctx, id, "master-bot"); err != nil {
		t.Fatalf("approve: %v", err)
	}
	cr, _ = env.Engine.Repo.GetRequest(env.Ctx, id)
	if cr.Status != "approved" {
		t.Fatalf("status = %q, want approved", cr.Status)
	}
}

func TestReviewUnknownAgentFails(t *testing.T) {
	env := newTestEnv(t)
	cr, created, err := env.Engine.SubmitRequest(env.Ctx, engine.SubmitOptions{
		RequesterAgent: "rogue-bot",
		Type:           "policy-update",
		Title:          "Let me in",
	})
	if err != nil || !created {
		t.Fatalf("submit: created=%v err=%v", created, err)
	}
	_, err = env.Engine.ReviewRequest(env.Ctx, cr.ID, "master-bot")
	var cfgErr workflow.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("err = %v, want ConfigurationError", err)
	}
}

func TestChatFilesRequestOnStrongIntent(t *testing.T) {
	env := newTestEnv(t)
	result, err := env.Engine.SubmitConversation(env.Ctx, "chat-bot",
		"I suggest we refactor the billing module to reduce duplicated lookups.", nil)
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if result.Reply == "" {
		t.Fatal("the conversational boundary must always reply")
	}
	if result.Request == nil {
		t.Fatal("strong change intent should file a request")
	}
	if result.Request.Status != "pending" || result.Request.Type != "best-practice-suggestion" {
		t.Fatalf("filed request: %+v", result.Request)
	}
}

func TestChatIgnoresWeakIntent(t *testing.T) {
	env := newTestEnv(t)
	result, err := env.Engine.SubmitConversation(env.Ctx, "chat-bot",
		"I am planning a trip to the coast next week.", nil)
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if result.Request != nil {
		t.Fatalf("small talk must not file requests: %+v", result.Request)
	}
	if result.Reply == "" {
		t.Fatal("reply missing")
	}
}

type timeoutGenerator struct{}

func (timeoutGenerator) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	return "", textgen.TimeoutError{Attempts: 3}
}

func TestChatTimeoutFilesNoRequest(t *testing.T) {
	env := newTestEnv(t)
	env.Engine.TextGen = timeoutGenerator{}
	result, err := env.Engine.SubmitConversation(env.Ctx, "chat-bot",
		"I suggest we refactor the billing module to reduce duplicated lookups.", nil)
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if result.Reply == "" {
		t.Fatal("the conversational boundary must always reply")
	}
	if result.Request != nil {
		t.Fatalf("an exhausted draft must not file a request: %+v", result.Request)
	}
	items, err := env.Engine.Repo.ListRequests(env.Ctx, "", "chat-bot")
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 0 {
		t.Fatalf("requests = %d, want none after a timed-out draft", len(items))
	}
}

func TestStatusEventsAreLogged(t *testing.T) {
	env := newTestEnv(t)
	id := submit(t, env, "Adopt early returns", "flatten nested conditionals in handlers")
	if _, err := env.Engine.ReviewRequest(env.Ctx, id, "master-bot"); err != nil {
		t.Fatal(err)
	}
	events, err := env.Engine.Repo.ListEvents(env.Ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	seen := map[string]bool{}
	for _, evt := range events {
		seen[evt.Type] = true
	}
	if !seen["request.submitted"] || !seen["request.status"] {
		t.Fatalf("expected submission and status events, got %v", seen)
	}
}
