package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"govline/internal/domain"
	"govline/internal/events"
)

var validRequestTypes = map[string]bool{
	"best-practice-suggestion": true,
	"bug-fix":                  true,
	"policy-update":            true,
}

var validPriorities = map[string]bool{
	"low":      true,
	"medium":   true,
	"high":     true,
	"critical": true,
}

// SubmitOptions are the parameters for a structured change request submission.
type SubmitOptions struct {
	RequesterAgent string
	Type           string
	Title          string
	Description    string
	Justification  string
	Priority       string
}

// SubmitRequest normalizes a proposed change into a ChangeRequest and
// deduplicates it against the agent's open requests. Re-submitting a
// sufficiently similar title while the original is still open returns the
// existing request unchanged. The dedupe-then-insert section is serialized
// per requester agent.
func (e *Engine) SubmitRequest(ctx context.Context, opts SubmitOptions) (domain.ChangeRequest, bool, error) {
	if opts.RequesterAgent == "" {
		return domain.ChangeRequest{}, false, errors.New("requester agent is required")
	}
	if strings.TrimSpace(opts.Title) == "" {
		return domain.ChangeRequest{}, false, errors.New("title is required")
	}
	if !validRequestTypes[opts.Type] {
		return domain.ChangeRequest{}, false, fmt.Errorf("invalid request type %q", opts.Type)
	}
	if opts.Priority == "" {
		opts.Priority = "medium"
	}
	if !validPriorities[opts.Priority] {
		return domain.ChangeRequest{}, false, fmt.Errorf("invalid priority %q", opts.Priority)
	}

	mu := e.agentLock(opts.RequesterAgent)
	mu.Lock()
	defer mu.Unlock()

	normalized := normalizeTitle(opts.Title)
	open, normals, err := e.Repo.ListOpenRequestsByAgent(ctx, opts.RequesterAgent)
	if err != nil {
		return domain.ChangeRequest{}, false, err
	}
	threshold := e.Config.Approval.TitleSimilarity
	for i, existing := range open {
		if titleSimilarity(normalized, normals[i]) >= threshold {
			return existing, false, nil
		}
	}

	now := e.now().UTC().Format(time.RFC3339)
	cr := domain.ChangeRequest{
		ID:             uuid.NewSHA1(uuid.NameSpaceOID, []byte(opts.RequesterAgent+"|"+normalized+"|"+now)).String(),
		RequesterAgent: opts.RequesterAgent,
		Type:           opts.Type,
		Title:          strings.TrimSpace(opts.Title),
		Description:    opts.Description,
		Justification:  opts.Justification,
		Priority:       opts.Priority,
		Status:         "pending",
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.ChangeRequest{}, false, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertRequest(ctx, tx, cr, normalized); err != nil {
		return domain.ChangeRequest{}, false, err
	}
	if err := e.Events.Append(ctx, tx, "request.submitted", "request", cr.ID, opts.RequesterAgent, events.EventPayload{
		"type":     cr.Type,
		"title":    cr.Title,
		"priority": cr.Priority,
	}); err != nil {
		return domain.ChangeRequest{}, false, err
	}
	if err := tx.Commit(); err != nil {
		return domain.ChangeRequest{}, false, err
	}
	return cr, true, nil
}

// normalizeTitle lowercases, strips punctuation and collapses whitespace so
// near-identical titles compare equal.
func normalizeTitle(title string) string {
	var b strings.Builder
	prevSpace := false
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			prevSpace = false
		case r == ' ' || r == '\t' || r == '-' || r == '_':
			if !prevSpace {
				b.WriteByte(' ')
				prevSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// titleSimilarity scores two normalized titles in [0,1]. Equal titles score
// 1; a prefix relation scores the length ratio; anything else scores the
// token overlap.
func titleSimilarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	shorter, longer := a, b
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	if strings.HasPrefix(longer, shorter) {
		return float64(len(shorter)) / float64(len(longer))
	}
	tokensA := strings.Fields(a)
	tokensB := strings.Fields(b)
	set := make(map[string]bool, len(tokensA))
	for _, t := range tokensA {
		set[t] = true
	}
	common := 0
	for _, t := range tokensB {
		if set[t] {
			common++
		}
	}
	total := len(tokensA) + len(tokensB) - common
	if total == 0 {
		return 0
	}
	return float64(common) / float64(total)
}
