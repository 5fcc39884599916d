package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrTransactionAborted = errors.New("transaction aborted")
)

// Repo is the document store. The zero tx runs statements directly on DB;
// inside Transaction every statement goes through the bound *sql.Tx.
type Repo struct {
	DB *sql.DB
	tx *sql.Tx
}

type Collection string

const (
	Jobs        Collection = "jobs"
	Candidates  Collection = "candidates"
	Timeline    Collection = "candidate_timeline"
	Notes       Collection = "candidate_notes"
	Assessments Collection = "assessments"
	Responses   Collection = "assessment_responses"
)

// AllCollections lists every collection in the store.
var AllCollections = []Collection{Jobs, Candidates, Timeline, Notes, Assessments, Responses}

func (c Collection) valid() bool {
	for _, v := range AllCollections {
		if v == c {
			return true
		}
	}
	return false
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

func (r Repo) q() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.DB
}

// InTx reports whether r is bound to a transaction.
func (r Repo) InTx() bool { return r.tx != nil }

// Transaction runs fn against a repo bound to a single transaction over the
// named collections. Any error or panic from fn discards every write, and the
// returned error matches ErrTransactionAborted as well as the cause.
// Calling Transaction on a repo already inside one reuses the outer transaction.
func (r Repo) Transaction(ctx context.Context, cols []Collection, fn func(Repo) error) (err error) {
	for _, c := range cols {
		if !c.valid() {
			return fmt.Errorf("unknown collection %q", c)
		}
	}
	if r.tx != nil {
		return fn(r)
	}
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: panic: %v", ErrTransactionAborted, p)
		}
	}()

	if err := fn(Repo{DB: r.DB, tx: tx}); err != nil {
		return fmt.Errorf("%w: %w", ErrTransactionAborted, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", ErrTransactionAborted, err)
	}
	return nil
}

// Clear deletes every document of the given collections.
func (r Repo) Clear(ctx context.Context, cols ...Collection) error {
	for _, c := range cols {
		if !c.valid() {
			return fmt.Errorf("unknown collection %q", c)
		}
		if _, err := r.q().ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s`, c)); err != nil {
			return fmt.Errorf("clear %s: %w", c, err)
		}
		if _, err := r.q().ExecContext(ctx, `DELETE FROM sqlite_sequence WHERE name=?`, string(c)); err != nil && !strings.Contains(err.Error(), "no such table") {
			return fmt.Errorf("reset %s sequence: %w", c, err)
		}
	}
	return nil
}

type Op string

const (
	Eq      Op = "="
	EqFold  Op = "=~"
	Between Op = "between"
	Has     Op = "has"
)

// Cond filters on an indexed field. Between takes a [2]int inclusive range;
// Has matches multi-entry fields and several Has conditions must all hold.
type Cond struct {
	Field string
	Op    Op
	Value any
}

// Query selects documents by indexed fields. Limit 0 means no limit.
type Query struct {
	Where   []Cond
	OrderBy string
	Desc    bool
	Offset  int
	Limit   int
}

type index struct {
	columns    map[string]string
	multiEntry map[string]bool
	defaultBy  string
}

func (ix index) where(conds []Cond) (string, []any, error) {
	var (
		clauses []string
		args    []any
	)
	for _, c := range conds {
		col, ok := ix.columns[c.Field]
		if !ok {
			return "", nil, fmt.Errorf("field %q is not indexed", c.Field)
		}
		switch c.Op {
		case Eq, "":
			clauses = append(clauses, col+"=?")
			args = append(args, c.Value)
		case EqFold:
			clauses = append(clauses, "lower("+col+")=lower(?)")
			args = append(args, c.Value)
		case Between:
			bounds, ok := c.Value.([2]int)
			if !ok {
				return "", nil, fmt.Errorf("between on %s needs [2]int", c.Field)
			}
			clauses = append(clauses, col+" BETWEEN ? AND ?")
			args = append(args, bounds[0], bounds[1])
		case Has:
			if !ix.multiEntry[c.Field] {
				return "", nil, fmt.Errorf("field %q is not multi-entry", c.Field)
			}
			clauses = append(clauses, fmt.Sprintf("EXISTS (SELECT 1 FROM json_each(%s) WHERE json_each.value=?)", col))
			args = append(args, c.Value)
		default:
			return "", nil, fmt.Errorf("unsupported operator %q", c.Op)
		}
	}
	if len(clauses) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

func (ix index) orderBy(q Query) (string, error) {
	field := q.OrderBy
	if field == "" {
		field = ix.defaultBy
	}
	col, ok := ix.columns[field]
	if !ok || ix.multiEntry[field] {
		return "", fmt.Errorf("cannot order by %q", field)
	}
	dir := "ASC"
	if q.Desc {
		dir = "DESC"
	}
	return fmt.Sprintf(" ORDER BY %s %s, rowid %s", col, dir, dir), nil
}

func page(q Query) (string, []any) {
	switch {
	case q.Limit > 0:
		return " LIMIT ? OFFSET ?", []any{q.Limit, max(q.Offset, 0)}
	case q.Offset > 0:
		return " LIMIT -1 OFFSET ?", []any{q.Offset}
	}
	return "", nil
}

// slice applies offset and limit to rows already filtered in memory.
func slice[T any](items []T, q Query) []T {
	off := max(q.Offset, 0)
	if off >= len(items) {
		return []T{}
	}
	items = items[off:]
	if q.Limit > 0 && q.Limit < len(items) {
		items = items[:q.Limit]
	}
	return items
}

const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
