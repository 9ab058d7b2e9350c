package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"govline/internal/domain"
	"govline/internal/events"
	"govline/internal/learning"
	"govline/internal/workflow"
)

// ReviewRequest runs the approval authority over a change request: the
// requester agent's mandatory checks decide pass/fail, failing checks feed
// the learning store, a first failure returns the request to pending and a
// second consecutive failure rejects it terminally. Passing requests are
// approved directly unless the systemwide-impact heuristic flags them for
// multi-area sign-off. Every decision emits exactly one ledger record.
func (e *Engine) ReviewRequest(ctx context.Context, id, actorID string) (domain.ReviewDecision, error) {
	cr, err := e.Repo.GetRequest(ctx, id)
	if err != nil {
		return domain.ReviewDecision{}, err
	}
	if cr.Status != "pending" && cr.Status != "under-review" {
		return domain.ReviewDecision{}, fmt.Errorf("request %s is %s and cannot be reviewed", id, cr.Status)
	}

	artifact := cr.Description
	if cr.Justification != "" {
		artifact += "\n" + cr.Justification
	}
	outcome, err := e.Workflows.RunMandatoryChecks(cr.RequesterAgent, artifact, "")
	if err != nil {
		// ConfigurationError included: an unregistered agent must not pass.
		return domain.ReviewDecision{}, err
	}

	decision := domain.ReviewDecision{RequestID: cr.ID}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.ReviewDecision{}, err
	}
	defer tx.Rollback()

	status := cr.Status
	if status == "pending" {
		if err := e.setRequestStatus(ctx, tx, cr.ID, "pending", "under-review", actorID, nil); err != nil {
			return domain.ReviewDecision{}, err
		}
		status = "under-review"
	}

	if !outcome.Passed {
		decision.Reasons = failureReasons(outcome)
		strikes := cr.FailureCount + 1
		now := e.now().UTC().Format(time.RFC3339)
		if err := e.Repo.SetRequestFailureCount(ctx, tx, cr.ID, strikes, now); err != nil {
			return domain.ReviewDecision{}, err
		}
		target := "pending"
		decision.Decision = "returned"
		if strikes >= e.Config.Approval.StrikeLimit {
			target = "rejected"
			decision.Decision = "rejected"
		}
		if err := e.setRequestStatus(ctx, tx, cr.ID, status, target, actorID, events.EventPayload{
			"strikes": strikes,
			"reasons": decision.Reasons,
		}); err != nil {
			return domain.ReviewDecision{}, err
		}
	} else {
		decision.NeedsMultiSign = matchesImpactTerms(cr.Description, e.Config.Approval.ImpactTerms)
		decision.Decision = "approved"
		if decision.NeedsMultiSign {
			// Stays under-review until multi-area sign-off finalizes it.
			decision.Reasons = []string{"systemwide impact: multi-area sign-off required"}
			if err := e.Events.Append(ctx, tx, "request.multi_sign_required", "request", cr.ID, actorID, events.EventPayload{}); err != nil {
				return domain.ReviewDecision{}, err
			}
		} else {
			if err := e.setRequestStatus(ctx, tx, cr.ID, status, "approved", actorID, nil); err != nil {
				return domain.ReviewDecision{}, err
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return domain.ReviewDecision{}, err
	}

	e.learnFromOutcome(ctx, cr.RequesterAgent, outcome)

	ledgerID, err := e.documentReview(ctx, cr, actorID, decision)
	if err != nil {
		return domain.ReviewDecision{}, err
	}
	decision.LedgerID = ledgerID
	return decision, nil
}

// learnFromOutcome records every violation from failing checks so recurring
// patterns accumulate occurrence counts. Failures here are logged, not
// surfaced: learning must never block a decision.
func (e *Engine) learnFromOutcome(ctx context.Context, agent string, outcome workflow.ChecksOutcome) {
	for _, result := range outcome.Results {
		if result.Passed {
			continue
		}
		for _, v := range result.Violations {
			p := learning.FromViolation(agent, "", "check "+result.Check, v)
			if err := e.Learning.Learn(ctx, p); err != nil {
				e.logger().Printf("learn pattern %s: %v", v.Rule, err)
			}
		}
	}
}

// documentReview writes the single audit ledger record for a decision.
func (e *Engine) documentReview(ctx context.Context, cr domain.ChangeRequest, actorID string, decision domain.ReviewDecision) (string, error) {
	entry := domain.WorkDocumentation{
		Timestamp: e.now().UTC().Format(time.RFC3339),
		BotName:   actorID,
		Area:      "governance",
		Task:      fmt.Sprintf("review change request %s", cr.ID),
		Result:    decision.Decision,
		Reflection: domain.Reflection{
			Before: fmt.Sprintf("request %q from %s awaiting review", cr.Title, cr.RequesterAgent),
			During: "ran mandatory workflow checks",
			After:  fmt.Sprintf("decision: %s", decision.Decision),
			Issues: decision.Reasons,
		},
	}
	return e.Ledger.Record(ctx, entry)
}

func failureReasons(outcome workflow.ChecksOutcome) []string {
	var reasons []string
	for _, result := range outcome.Results {
		if result.Passed {
			continue
		}
		for _, v := range result.Violations {
			reasons = append(reasons, fmt.Sprintf("%s: %s (%s)", result.Check, v.Message, v.Rule))
		}
	}
	return reasons
}

func matchesImpactTerms(text string, terms []string) bool {
	lower := strings.ToLower(text)
	for _, term := range terms {
		if term != "" && strings.Contains(lower, strings.ToLower(term)) {
			return true
		}
	}
	return false
}
