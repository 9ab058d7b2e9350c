// Package ledger is the append-or-extend store of work documentation
// records: one entry per unit of work, extended once by a validator and at
// most once more by a signer, never deleted. It is the single source of
// truth for whether a unit of work has been approved and closed.
package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"govline/internal/domain"
	"govline/internal/repo"
)

type Ledger struct {
	DB  *sql.DB
	Now func() time.Time
}

func New(db *sql.DB) *Ledger {
	return &Ledger{DB: db, Now: time.Now}
}

func (l *Ledger) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}

// Record appends a new entry with validation and sign-off unset.
func (l *Ledger) Record(ctx context.Context, entry domain.WorkDocumentation) (string, error) {
	if entry.BotName == "" {
		return "", errors.New("bot_name required")
	}
	if entry.Task == "" {
		return "", errors.New("task required")
	}
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp == "" {
		entry.Timestamp = l.now().UTC().Format(time.RFC3339)
	}
	reflection, err := marshalJSON(entry.Reflection)
	if err != nil {
		return "", err
	}
	var errorsJSON *string
	if len(entry.Errors) > 0 {
		errorsJSON, err = marshalJSON(entry.Errors)
		if err != nil {
			return "", err
		}
	}
	_, err = l.DB.ExecContext(ctx, `INSERT INTO work_docs(id,ts,bot_name,area,task,result,reflection_json,errors_json) VALUES (?,?,?,?,?,?,?,?)`,
		entry.ID, entry.Timestamp, entry.BotName, entry.Area, entry.Task, nullable(entry.Result), reflection, errorsJSON)
	if err != nil {
		return "", fmt.Errorf("insert work doc: %w", err)
	}
	return entry.ID, nil
}

// Validate sets the validation block of a record. Re-validation overwrites a
// prior judgment, but a signed record's judgment is immutable and yields
// ConflictError. Each record is locked for the read-then-write.
func (l *Ledger) Validate(ctx context.Context, id, validatedBy string, passed bool, issues []string) error {
	tx, err := l.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var signedBy sql.NullString
	err = tx.QueryRowContext(ctx, `SELECT signed_by FROM work_docs WHERE id=?`, id).Scan(&signedBy)
	if err == sql.ErrNoRows {
		return repo.ErrNotFound
	}
	if err != nil {
		return err
	}
	if signedBy.Valid {
		return ConflictError{ID: id}
	}
	issuesJSON, err := marshalJSON(issues)
	if err != nil {
		return err
	}
	now := l.now().UTC().Format(time.RFC3339)
	if _, err := tx.ExecContext(ctx, `UPDATE work_docs SET validated_by=?, validated_at=?, validation_passed=?, validation_issues_json=? WHERE id=?`,
		validatedBy, now, boolInt(passed), issuesJSON, id); err != nil {
		return err
	}
	return tx.Commit()
}

// Sign marks a validated record as approved and closed. Signing requires a
// passing validation; signing twice is a no-op keeping the original signer
// and time.
func (l *Ledger) Sign(ctx context.Context, id, signedBy string) (domain.WorkDocumentation, error) {
	tx, err := l.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.WorkDocumentation{}, err
	}
	defer tx.Rollback()

	entry, err := getTx(ctx, tx, id)
	if err != nil {
		return domain.WorkDocumentation{}, err
	}
	if entry.SignedBy != nil {
		// Idempotent: the original sign-off stands.
		return entry, tx.Commit()
	}
	if entry.Validation == nil {
		return domain.WorkDocumentation{}, PreconditionError{ID: id, Reason: "no validation recorded"}
	}
	if !entry.Validation.Passed {
		return domain.WorkDocumentation{}, PreconditionError{ID: id, Reason: "validation did not pass"}
	}
	now := l.now().UTC().Format(time.RFC3339)
	if _, err := tx.ExecContext(ctx, `UPDATE work_docs SET signed_by=?, signed_at=? WHERE id=?`, signedBy, now, id); err != nil {
		return domain.WorkDocumentation{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.WorkDocumentation{}, err
	}
	entry.SignedBy = &signedBy
	entry.SignedAt = &now
	return entry, nil
}

// Get returns one record by id.
func (l *Ledger) Get(ctx context.Context, id string) (domain.WorkDocumentation, error) {
	tx, err := l.DB.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return domain.WorkDocumentation{}, err
	}
	defer tx.Rollback()
	return getTx(ctx, tx, id)
}

// Filter narrows a ledger query. Zero values match everything.
type Filter struct {
	BotName    string
	Area       string
	SignedOnly bool
	Limit      int
}

// Query returns records matching the filter, most recent first.
func (l *Ledger) Query(ctx context.Context, f Filter) ([]domain.WorkDocumentation, error) {
	clauses := []string{}
	args := []any{}
	if f.BotName != "" {
		clauses = append(clauses, "bot_name=?")
		args = append(args, f.BotName)
	}
	if f.Area != "" {
		clauses = append(clauses, "area=?")
		args = append(args, f.Area)
	}
	if f.SignedOnly {
		clauses = append(clauses, "signed_by IS NOT NULL")
	}
	query := workDocSelect
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY ts DESC, id DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}
	rows, err := l.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.WorkDocumentation
	for rows.Next() {
		entry, err := scanWorkDoc(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, entry)
	}
	return res, rows.Err()
}

const workDocSelect = `SELECT id,ts,bot_name,area,task,COALESCE(result,''),reflection_json,errors_json,validated_by,validated_at,validation_passed,validation_issues_json,signed_by,signed_at FROM work_docs`

func getTx(ctx context.Context, tx *sql.Tx, id string) (domain.WorkDocumentation, error) {
	row := tx.QueryRowContext(ctx, workDocSelect+` WHERE id=?`, id)
	entry, err := scanWorkDoc(row.Scan)
	if err == sql.ErrNoRows {
		return domain.WorkDocumentation{}, repo.ErrNotFound
	}
	return entry, err
}

func scanWorkDoc(scan func(dest ...any) error) (domain.WorkDocumentation, error) {
	var entry domain.WorkDocumentation
	var reflection, errorsJSON, validatedBy, validatedAt, issuesJSON, signedBy, signedAt sql.NullString
	var passed sql.NullInt64
	err := scan(&entry.ID, &entry.Timestamp, &entry.BotName, &entry.Area, &entry.Task, &entry.Result,
		&reflection, &errorsJSON, &validatedBy, &validatedAt, &passed, &issuesJSON, &signedBy, &signedAt)
	if err != nil {
		return entry, err
	}
	if reflection.Valid {
		_ = json.Unmarshal([]byte(reflection.String), &entry.Reflection)
	}
	if errorsJSON.Valid {
		_ = json.Unmarshal([]byte(errorsJSON.String), &entry.Errors)
	}
	if validatedBy.Valid {
		v := domain.ValidationRecord{
			ValidatedBy: validatedBy.String,
			ValidatedAt: validatedAt.String,
			Passed:      passed.Valid && passed.Int64 != 0,
		}
		if issuesJSON.Valid {
			_ = json.Unmarshal([]byte(issuesJSON.String), &v.Issues)
		}
		entry.Validation = &v
	}
	if signedBy.Valid {
		entry.SignedBy = &signedBy.String
	}
	if signedAt.Valid {
		entry.SignedAt = &signedAt.String
	}
	entry.FillDisplayTimes()
	return entry, nil
}

func marshalJSON(v any) (*string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	s := string(b)
	return &s, nil
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
