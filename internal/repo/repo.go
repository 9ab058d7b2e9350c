package repo

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"govline/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

const requestColumns = `id,requester_agent,type,title,normalized_title,COALESCE(description,''),COALESCE(justification,''),priority,status,failure_count,created_at,updated_at,applied_at`

func scanRequest(scan func(dest ...any) error) (domain.ChangeRequest, error) {
	var cr domain.ChangeRequest
	var normalized string
	var appliedAt sql.NullString
	err := scan(&cr.ID, &cr.RequesterAgent, &cr.Type, &cr.Title, &normalized, &cr.Description,
		&cr.Justification, &cr.Priority, &cr.Status, &cr.FailureCount, &cr.CreatedAt, &cr.UpdatedAt, &appliedAt)
	if err == sql.ErrNoRows {
		return cr, ErrNotFound
	}
	if appliedAt.Valid {
		cr.AppliedAt = &appliedAt.String
	}
	return cr, err
}

func (r Repo) InsertRequest(ctx context.Context, tx *sql.Tx, cr domain.ChangeRequest, normalizedTitle string) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO change_requests(id,requester_agent,type,title,normalized_title,description,justification,priority,status,failure_count,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		cr.ID, cr.RequesterAgent, cr.Type, cr.Title, normalizedTitle, nullable(cr.Description), nullable(cr.Justification),
		cr.Priority, cr.Status, cr.FailureCount, cr.CreatedAt, cr.UpdatedAt)
	return err
}

func (r Repo) GetRequest(ctx context.Context, id string) (domain.ChangeRequest, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+requestColumns+` FROM change_requests WHERE id=?`, id)
	return scanRequest(row.Scan)
}

// ListOpenRequestsByAgent returns the agent's pending and under-review requests
// with their normalized titles, for duplicate detection.
func (r Repo) ListOpenRequestsByAgent(ctx context.Context, agent string) ([]domain.ChangeRequest, []string, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+requestColumns+` FROM change_requests WHERE requester_agent=? AND status IN ('pending','under-review') ORDER BY created_at DESC`, agent)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()
	var requests []domain.ChangeRequest
	var normalized []string
	for rows.Next() {
		var cr domain.ChangeRequest
		var norm string
		var appliedAt sql.NullString
		if err := rows.Scan(&cr.ID, &cr.RequesterAgent, &cr.Type, &cr.Title, &norm, &cr.Description,
			&cr.Justification, &cr.Priority, &cr.Status, &cr.FailureCount, &cr.CreatedAt, &cr.UpdatedAt, &appliedAt); err != nil {
			return nil, nil, err
		}
		if appliedAt.Valid {
			cr.AppliedAt = &appliedAt.String
		}
		requests = append(requests, cr)
		normalized = append(normalized, norm)
	}
	return requests, normalized, rows.Err()
}

func (r Repo) ListRequests(ctx context.Context, status, agent string) ([]domain.ChangeRequest, error) {
	clauses := []string{}
	args := []any{}
	if status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, status)
	}
	if agent != "" {
		clauses = append(clauses, "requester_agent=?")
		args = append(args, agent)
	}
	query := `SELECT ` + requestColumns + ` FROM change_requests`
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY created_at DESC, id DESC`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.ChangeRequest
	for rows.Next() {
		var cr domain.ChangeRequest
		var norm string
		var appliedAt sql.NullString
		if err := rows.Scan(&cr.ID, &cr.RequesterAgent, &cr.Type, &cr.Title, &norm, &cr.Description,
			&cr.Justification, &cr.Priority, &cr.Status, &cr.FailureCount, &cr.CreatedAt, &cr.UpdatedAt, &appliedAt); err != nil {
			return nil, err
		}
		if appliedAt.Valid {
			cr.AppliedAt = &appliedAt.String
		}
		res = append(res, cr)
	}
	return res, rows.Err()
}

// UpdateRequestStatus moves a request to a new status inside the caller's tx.
func (r Repo) UpdateRequestStatus(ctx context.Context, tx *sql.Tx, id, status, updatedAt string) error {
	res, err := tx.ExecContext(ctx, `UPDATE change_requests SET status=?, updated_at=? WHERE id=?`, status, updatedAt, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) SetRequestFailureCount(ctx context.Context, tx *sql.Tx, id string, count int, updatedAt string) error {
	res, err := tx.ExecContext(ctx, `UPDATE change_requests SET failure_count=?, updated_at=? WHERE id=?`, count, updatedAt, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) MarkRequestApplied(ctx context.Context, tx *sql.Tx, id, appliedAt string) error {
	res, err := tx.ExecContext(ctx, `UPDATE change_requests SET status='applied', applied_at=?, updated_at=? WHERE id=?`, appliedAt, appliedAt, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) CountRequestsByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT status, COUNT(*) FROM change_requests GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := map[string]int{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func (r Repo) ListEvents(ctx context.Context, limit int) ([]domain.Event, error) {
	query := `SELECT id,ts,type,entity_kind,COALESCE(entity_id,''),actor_id,payload_json FROM events ORDER BY id DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		var ev domain.Event
		if err := rows.Scan(&ev.ID, &ev.TS, &ev.Type, &ev.EntityKind, &ev.EntityID, &ev.ActorID, &ev.Payload); err != nil {
			return nil, err
		}
		res = append(res, ev)
	}
	return res, rows.Err()
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
