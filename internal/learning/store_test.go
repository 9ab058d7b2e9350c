package learning_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"govline/internal/db"
	"govline/internal/domain"
	"govline/internal/learning"
	"govline/internal/migrate"
	"govline/internal/repo"
)

func newStore(t *testing.T) (*learning.Store, context.Context) {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	s := learning.New(conn)
	s.Now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }
	return s, context.Background()
}

func samplePattern() domain.ErrorPattern {
	return learning.FromViolation("quality-bot", "theme.css", "scan", domain.ComplianceViolation{
		Rule:       "spacing-literal.margin: 7px",
		Severity:   "warning",
		Message:    "deprecated spacing literal",
		Line:       3,
		Suggestion: "spacing.sm",
	})
}

func TestRepeatedDetectionIncrementsOccurrences(t *testing.T) {
	s, ctx := newStore(t)
	for i := 0; i < 3; i++ {
		if err := s.Learn(ctx, samplePattern()); err != nil {
			t.Fatalf("learn %d: %v", i, err)
		}
	}
	patterns, err := s.FindByAgent(ctx, "quality-bot")
	if err != nil {
		t.Fatal(err)
	}
	if len(patterns) != 1 {
		t.Fatalf("expected one deduplicated pattern, got %d", len(patterns))
	}
	if patterns[0].Occurrences != 3 {
		t.Fatalf("occurrences = %d, want 3", patterns[0].Occurrences)
	}
}

func TestSameSignatureDifferentFileIsSeparate(t *testing.T) {
	s, ctx := newStore(t)
	a := samplePattern()
	b := samplePattern()
	b.FilePath = "other.css"
	if err := s.Learn(ctx, a); err != nil {
		t.Fatal(err)
	}
	if err := s.Learn(ctx, b); err != nil {
		t.Fatal(err)
	}
	patterns, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(patterns) != 2 {
		t.Fatalf("expected two rows for distinct files, got %d", len(patterns))
	}
}

func TestMarkFixedSurvivesRelearn(t *testing.T) {
	s, ctx := newStore(t)
	if err := s.Learn(ctx, samplePattern()); err != nil {
		t.Fatal(err)
	}
	patterns, err := s.FindUnfixed(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(patterns) != 1 {
		t.Fatalf("expected one unfixed pattern, got %d", len(patterns))
	}
	id := patterns[0].ID
	if err := s.MarkFixed(ctx, id); err != nil {
		t.Fatal(err)
	}
	// A new detection counts again but does not reopen the fixed flag.
	if err := s.Learn(ctx, samplePattern()); err != nil {
		t.Fatal(err)
	}
	p, err := s.Get(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if !p.Fixed {
		t.Fatalf("relearn must not clear the fixed flag")
	}
	if p.Occurrences != 2 {
		t.Fatalf("occurrences = %d, want 2", p.Occurrences)
	}
	unfixed, err := s.FindUnfixed(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(unfixed) != 0 {
		t.Fatalf("fixed pattern still listed as unfixed: %+v", unfixed)
	}
}

func TestMarkFixedUnknownID(t *testing.T) {
	s, ctx := newStore(t)
	if err := s.MarkFixed(ctx, "nope"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestEmptySignatureRejected(t *testing.T) {
	s, ctx := newStore(t)
	if err := s.Learn(ctx, domain.ErrorPattern{}); err == nil {
		t.Fatal("empty pattern signature must be rejected")
	}
}
