// Package learning accumulates recurring violation patterns across scans.
// The store is purely additive: a repeated detection increments its
// occurrence count, and entries are never deleted, preserving historical
// frequency for trend analysis.
package learning

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"govline/internal/domain"
	"govline/internal/repo"
)

type Store struct {
	DB  *sql.DB
	Now func() time.Time
}

func New(db *sql.DB) *Store {
	return &Store{DB: db, Now: time.Now}
}

func (s *Store) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// FromViolation derives an error pattern from a compliance violation.
// The violation rule id doubles as the dedup signature.
func FromViolation(agent, filePath, context string, v domain.ComplianceViolation) domain.ErrorPattern {
	return domain.ErrorPattern{
		Agent:      agent,
		Type:       "compliance",
		Severity:   v.Severity,
		Pattern:    v.Rule,
		Message:    v.Message,
		FilePath:   filePath,
		LineNumber: v.Line,
		Context:    context,
		Fix:        v.Suggestion,
	}
}

// Learn upserts a pattern atomically on its (pattern, file_path) dedup key.
// An existing entry gets occurrences+1 and a fresh last_seen; its fixed flag
// is left untouched.
func (s *Store) Learn(ctx context.Context, p domain.ErrorPattern) error {
	if p.Pattern == "" {
		return errors.New("pattern signature required")
	}
	now := s.now().UTC().Format(time.RFC3339)
	id := p.ID
	if id == "" {
		id = uuid.New().String()
	}
	_, err := s.DB.ExecContext(ctx, `INSERT INTO error_patterns(id,agent,type,severity,pattern,message,file_path,line_number,context,fix,occurrences,first_seen,last_seen,fixed)
VALUES (?,?,?,?,?,?,?,?,?,?,1,?,?,0)
ON CONFLICT(pattern, file_path) DO UPDATE SET occurrences=occurrences+1, last_seen=excluded.last_seen`,
		id, p.Agent, p.Type, p.Severity, p.Pattern, nullable(p.Message), p.FilePath,
		zeroNull(p.LineNumber), nullable(p.Context), nullable(p.Fix), now, now)
	return err
}

// Get returns one pattern by id.
func (s *Store) Get(ctx context.Context, id string) (domain.ErrorPattern, error) {
	row := s.DB.QueryRowContext(ctx, patternSelect+` WHERE id=?`, id)
	return scanPattern(row.Scan)
}

// FindByAgent returns every pattern recorded for an agent, most recent first.
func (s *Store) FindByAgent(ctx context.Context, agent string) ([]domain.ErrorPattern, error) {
	return s.query(ctx, patternSelect+` WHERE agent=? ORDER BY last_seen DESC, id`, agent)
}

// FindUnfixed returns every pattern not yet marked fixed.
func (s *Store) FindUnfixed(ctx context.Context) ([]domain.ErrorPattern, error) {
	return s.query(ctx, patternSelect+` WHERE fixed=0 ORDER BY occurrences DESC, last_seen DESC`)
}

// List returns all patterns, most recent first.
func (s *Store) List(ctx context.Context) ([]domain.ErrorPattern, error) {
	return s.query(ctx, patternSelect+` ORDER BY last_seen DESC, id`)
}

// MarkFixed flags a pattern as remediated. The row itself stays.
func (s *Store) MarkFixed(ctx context.Context, id string) error {
	res, err := s.DB.ExecContext(ctx, `UPDATE error_patterns SET fixed=1 WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repo.ErrNotFound
	}
	return nil
}

const patternSelect = `SELECT id,agent,type,severity,pattern,COALESCE(message,''),file_path,COALESCE(line_number,0),COALESCE(context,''),COALESCE(fix,''),occurrences,first_seen,last_seen,fixed FROM error_patterns`

func scanPattern(scan func(dest ...any) error) (domain.ErrorPattern, error) {
	var p domain.ErrorPattern
	var fixed int
	err := scan(&p.ID, &p.Agent, &p.Type, &p.Severity, &p.Pattern, &p.Message, &p.FilePath,
		&p.LineNumber, &p.Context, &p.Fix, &p.Occurrences, &p.FirstSeen, &p.LastSeen, &fixed)
	if err == sql.ErrNoRows {
		return p, repo.ErrNotFound
	}
	p.Fixed = fixed != 0
	return p, err
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]domain.ErrorPattern, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.ErrorPattern
	for rows.Next() {
		var p domain.ErrorPattern
		var fixed int
		if err := rows.Scan(&p.ID, &p.Agent, &p.Type, &p.Severity, &p.Pattern, &p.Message, &p.FilePath,
			&p.LineNumber, &p.Context, &p.Fix, &p.Occurrences, &p.FirstSeen, &p.LastSeen, &fixed); err != nil {
			return nil, err
		}
		p.Fixed = fixed != 0
		res = append(res, p)
	}
	return res, rows.Err()
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func zeroNull(v int) any {
	if v == 0 {
		return nil
	}
	return v
}
