package repo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"talentflow/internal/domain"
)

var candidateIndex = index{
	columns: map[string]string{
		"id":    "id",
		"name":  "name",
		"email": "email",
		"stage": "stage",
		"jobId": "job_id",
	},
	defaultBy: "id",
}

const candidateColumns = `id,name,email,stage,job_id`

type CandidatePatch struct {
	Name  *string
	Email *string
	Stage *domain.Stage
	JobID *string
}

func scanCandidate(row rowScanner) (domain.Candidate, error) {
	var (
		c     domain.Candidate
		stage string
	)
	if err := row.Scan(&c.ID, &c.Name, &c.Email, &stage, &c.JobID); err != nil {
		if err == sql.ErrNoRows {
			return c, ErrNotFound
		}
		return c, err
	}
	c.Stage = domain.Stage(stage)
	return c, nil
}

func (r Repo) GetCandidate(ctx context.Context, id string) (domain.Candidate, error) {
	return scanCandidate(r.q().QueryRowContext(ctx, `SELECT `+candidateColumns+` FROM candidates WHERE id=?`, id))
}

// QueryCandidates mirrors QueryJobs for the candidates collection.
func (r Repo) QueryCandidates(ctx context.Context, q Query, pred func(domain.Candidate) bool) ([]domain.Candidate, int, error) {
	where, args, err := candidateIndex.where(q.Where)
	if err != nil {
		return nil, 0, err
	}
	order, err := candidateIndex.orderBy(q)
	if err != nil {
		return nil, 0, err
	}
	if pred != nil {
		all, err := r.selectCandidates(ctx, `SELECT `+candidateColumns+` FROM candidates`+where+order, args)
		if err != nil {
			return nil, 0, err
		}
		matched := make([]domain.Candidate, 0, len(all))
		for _, c := range all {
			if pred(c) {
				matched = append(matched, c)
			}
		}
		return slice(matched, q), len(matched), nil
	}
	var total int
	if err := r.q().QueryRowContext(ctx, `SELECT COUNT(*) FROM candidates`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	limit, limitArgs := page(q)
	items, err := r.selectCandidates(ctx, `SELECT `+candidateColumns+` FROM candidates`+where+order+limit, append(args, limitArgs...))
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r Repo) selectCandidates(ctx context.Context, query string, args []any) ([]domain.Candidate, error) {
	rows, err := r.q().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Candidate{}
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func (r Repo) AddCandidate(ctx context.Context, c domain.Candidate) error {
	_, err := r.q().ExecContext(ctx, `INSERT INTO candidates(id,name,email,stage,job_id) VALUES (?,?,?,?,?)`,
		c.ID, c.Name, c.Email, string(c.Stage), c.JobID)
	if err != nil {
		return fmt.Errorf("add candidate %s: %w", c.ID, err)
	}
	return nil
}

func (r Repo) BulkAddCandidates(ctx context.Context, items []domain.Candidate) error {
	stmt, err := r.q().PrepareContext(ctx, `INSERT INTO candidates(id,name,email,stage,job_id) VALUES (?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, c := range items {
		if _, err := stmt.ExecContext(ctx, c.ID, c.Name, c.Email, string(c.Stage), c.JobID); err != nil {
			return fmt.Errorf("add candidate %s: %w", c.ID, err)
		}
	}
	return nil
}

func (r Repo) UpdateCandidate(ctx context.Context, id string, p CandidatePatch) error {
	var (
		fields []string
		args   []any
	)
	if p.Name != nil {
		fields = append(fields, "name=?")
		args = append(args, *p.Name)
	}
	if p.Email != nil {
		fields = append(fields, "email=?")
		args = append(args, *p.Email)
	}
	if p.Stage != nil {
		fields = append(fields, "stage=?")
		args = append(args, string(*p.Stage))
	}
	if p.JobID != nil {
		fields = append(fields, "job_id=?")
		args = append(args, *p.JobID)
	}
	if len(fields) == 0 {
		_, err := r.GetCandidate(ctx, id)
		return err
	}
	args = append(args, id)
	res, err := r.q().ExecContext(ctx, fmt.Sprintf(`UPDATE candidates SET %s WHERE id=?`, strings.Join(fields, ",")), args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CandidateCounts returns the number of candidates per job for the given job ids.
func (r Repo) CandidateCounts(ctx context.Context, jobIDs []string) (map[string]int, error) {
	counts := make(map[string]int, len(jobIDs))
	if len(jobIDs) == 0 {
		return counts, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(jobIDs)), ",")
	args := make([]any, 0, len(jobIDs))
	for _, id := range jobIDs {
		counts[id] = 0
		args = append(args, id)
	}
	rows, err := r.q().QueryContext(ctx, `SELECT job_id, COUNT(*) FROM candidates WHERE job_id IN (`+placeholders+`) GROUP BY job_id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id string
			n  int
		)
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		counts[id] = n
	}
	return counts, rows.Err()
}

// CountCandidatesByStage returns how many candidates sit in each stage.
func (r Repo) CountCandidatesByStage(ctx context.Context) (map[domain.Stage]int, error) {
	rows, err := r.q().QueryContext(ctx, `SELECT stage, COUNT(*) FROM candidates GROUP BY stage`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := map[domain.Stage]int{}
	for rows.Next() {
		var (
			stage string
			n     int
		)
		if err := rows.Scan(&stage, &n); err != nil {
			return nil, err
		}
		res[domain.Stage(stage)] = n
	}
	return res, rows.Err()
}
