// Package engine is the transactional core of the change governance
// pipeline: request intake, the approval authority, and the change request
// state machine, tying together the compliance validator, workflow engine,
// learning store and audit ledger.
package engine

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	"govline/internal/compliance"
	"govline/internal/config"
	"govline/internal/events"
	"govline/internal/learning"
	"govline/internal/ledger"
	"govline/internal/repo"
	"govline/internal/textgen"
	"govline/internal/workflow"
)

type Engine struct {
	DB        *sql.DB
	Repo      repo.Repo
	Events    events.Writer
	Config    *config.Config
	Validator *compliance.Validator
	Workflows *workflow.Engine
	Ledger    *ledger.Ledger
	Learning  *learning.Store
	TextGen   textgen.Generator
	Logger    *log.Logger
	Now       func() time.Time

	// intakeLocks serializes duplicate detection per requester agent.
	intakeLocks sync.Map
}

func New(conn *sql.DB, cfg *config.Config) *Engine {
	validator := compliance.New(cfg)
	return &Engine{
		DB:        conn,
		Repo:      repo.Repo{DB: conn},
		Events:    events.Writer{DB: conn},
		Config:    cfg,
		Validator: validator,
		Workflows: workflow.New(cfg, validator),
		Ledger:    ledger.New(conn),
		Learning:  learning.New(conn),
		Now:       time.Now,
	}
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Engine) logger() *log.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return log.Default()
}

func (e *Engine) agentLock(agent string) *sync.Mutex {
	mu, _ := e.intakeLocks.LoadOrStore(agent, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// ensureRequestTransition enforces the change request state machine.
// Transitions are one-directional except rejected -> pending (resubmission
// after revision); applied is terminal.
func ensureRequestTransition(oldStatus, newStatus string) error {
	switch oldStatus {
	case "pending":
		if newStatus == "under-review" {
			return nil
		}
	case "under-review":
		if newStatus == "approved" || newStatus == "rejected" || newStatus == "pending" {
			return nil
		}
	case "approved":
		if newStatus == "applied" {
			return nil
		}
	case "rejected":
		if newStatus == "pending" {
			return nil
		}
	}
	return fmt.Errorf("invalid change request transition %s -> %s", oldStatus, newStatus)
}

// setRequestStatus moves a request through the state machine inside a tx,
// appending the audit event.
func (e *Engine) setRequestStatus(ctx context.Context, tx *sql.Tx, id, oldStatus, newStatus, actorID string, payload events.EventPayload) error {
	if err := ensureRequestTransition(oldStatus, newStatus); err != nil {
		return err
	}
	now := e.now().UTC().Format(time.RFC3339)
	if err := e.Repo.UpdateRequestStatus(ctx, tx, id, newStatus, now); err != nil {
		return err
	}
	if payload == nil {
		payload = events.EventPayload{}
	}
	payload["from_status"] = oldStatus
	payload["to_status"] = newStatus
	return e.Events.Append(ctx, tx, "request.status", "request", id, actorID, payload)
}

// MarkApplied records that the approved change was performed downstream.
// Applied is terminal.
func (e *Engine) MarkApplied(ctx context.Context, id, actorID string) error {
	cr, err := e.Repo.GetRequest(ctx, id)
	if err != nil {
		return err
	}
	if err := ensureRequestTransition(cr.Status, "applied"); err != nil {
		return err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	now := e.now().UTC().Format(time.RFC3339)
	if err := e.Repo.MarkRequestApplied(ctx, tx, id, now); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "request.applied", "request", id, actorID, events.EventPayload{"applied_at": now}); err != nil {
		return err
	}
	return tx.Commit()
}

// ResubmitRequest reopens a rejected request after revision, resetting its
// strike count.
func (e *Engine) ResubmitRequest(ctx context.Context, id, actorID string) error {
	cr, err := e.Repo.GetRequest(ctx, id)
	if err != nil {
		return err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.setRequestStatus(ctx, tx, id, cr.Status, "pending", actorID, events.EventPayload{"resubmitted": true}); err != nil {
		return err
	}
	now := e.now().UTC().Format(time.RFC3339)
	if err := e.Repo.SetRequestFailureCount(ctx, tx, id, 0, now); err != nil {
		return err
	}
	return tx.Commit()
}

// ApproveMultiSign finalizes a request that was flagged for multi-area
// sign-off during review.
func (e *Engine) ApproveMultiSign(ctx context.Context, id, actorID string) error {
	cr, err := e.Repo.GetRequest(ctx, id)
	if err != nil {
		return err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.setRequestStatus(ctx, tx, id, cr.Status, "approved", actorID, events.EventPayload{"multi_sign": true}); err != nil {
		return err
	}
	return tx.Commit()
}
