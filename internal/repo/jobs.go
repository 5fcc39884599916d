package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"talentflow/internal/domain"
)

var jobIndex = index{
	columns: map[string]string{
		"id":          "id",
		"title":       "title",
		"description": "description",
		"slug":        "slug",
		"status":      "status",
		"order":       "ord",
		"tags":        "tags",
	},
	multiEntry: map[string]bool{"tags": true},
	defaultBy:  "order",
}

const jobColumns = `id,title,COALESCE(description,''),description IS NOT NULL,slug,status,tags,ord`

// JobPatch is a shallow update; nil fields are left untouched.
type JobPatch struct {
	Title       *string
	Description *string
	Slug        *string
	Status      *domain.JobStatus
	Tags        *[]string
	Order       *int
}

func (p JobPatch) Empty() bool {
	return p == JobPatch{}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (domain.Job, bool, error) {
	var (
		j         domain.Job
		described bool
		status    string
		tagsJSON  string
	)
	if err := row.Scan(&j.ID, &j.Title, &j.Description, &described, &j.Slug, &status, &tagsJSON, &j.Order); err != nil {
		if err == sql.ErrNoRows {
			return j, false, ErrNotFound
		}
		return j, false, err
	}
	j.Status = domain.JobStatus(status)
	if err := json.Unmarshal([]byte(tagsJSON), &j.Tags); err != nil {
		return j, false, fmt.Errorf("job %s tags: %w", j.ID, err)
	}
	if j.Tags == nil {
		j.Tags = []string{}
	}
	return j, described, nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r Repo) GetJob(ctx context.Context, id string) (domain.Job, error) {
	j, _, err := scanJob(r.q().QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id=?`, id))
	return j, err
}

// FirstJob returns the job with the lowest order and whether its description
// column is set. Jobs written before the description column existed report false.
func (r Repo) FirstJob(ctx context.Context) (domain.Job, bool, error) {
	return scanJob(r.q().QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs ORDER BY ord ASC, rowid ASC LIMIT 1`))
}

// QueryJobs returns the jobs matching q and the total matched before paging.
// When pred is set it is applied in memory and paging follows it.
func (r Repo) QueryJobs(ctx context.Context, q Query, pred func(domain.Job) bool) ([]domain.Job, int, error) {
	where, args, err := jobIndex.where(q.Where)
	if err != nil {
		return nil, 0, err
	}
	order, err := jobIndex.orderBy(q)
	if err != nil {
		return nil, 0, err
	}
	if pred != nil {
		all, err := r.selectJobs(ctx, `SELECT `+jobColumns+` FROM jobs`+where+order, args)
		if err != nil {
			return nil, 0, err
		}
		matched := make([]domain.Job, 0, len(all))
		for _, j := range all {
			if pred(j) {
				matched = append(matched, j)
			}
		}
		return slice(matched, q), len(matched), nil
	}
	var total int
	if err := r.q().QueryRowContext(ctx, `SELECT COUNT(*) FROM jobs`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	limit, limitArgs := page(q)
	items, err := r.selectJobs(ctx, `SELECT `+jobColumns+` FROM jobs`+where+order+limit, append(args, limitArgs...))
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r Repo) selectJobs(ctx context.Context, query string, args []any) ([]domain.Job, error) {
	rows, err := r.q().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Job{}
	for rows.Next() {
		j, _, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, j)
	}
	return res, rows.Err()
}

func (r Repo) CountJobs(ctx context.Context, conds ...Cond) (int, error) {
	where, args, err := jobIndex.where(conds)
	if err != nil {
		return 0, err
	}
	var n int
	err = r.q().QueryRowContext(ctx, `SELECT COUNT(*) FROM jobs`+where, args...).Scan(&n)
	return n, err
}

// NextJobOrder returns max(order)+1, or 0 when there are no jobs.
func (r Repo) NextJobOrder(ctx context.Context) (int, error) {
	var next int
	err := r.q().QueryRowContext(ctx, `SELECT COALESCE(MAX(ord)+1, 0) FROM jobs`).Scan(&next)
	return next, err
}

func (r Repo) AddJob(ctx context.Context, j domain.Job) error {
	tags, err := encodeTags(j.Tags)
	if err != nil {
		return err
	}
	_, err = r.q().ExecContext(ctx, `INSERT INTO jobs(id,title,description,slug,status,tags,ord) VALUES (?,?,?,?,?,?,?)`,
		j.ID, j.Title, j.Description, j.Slug, string(j.Status), tags, j.Order)
	if err != nil {
		return fmt.Errorf("add job %s: %w", j.ID, err)
	}
	return nil
}

// PutJob inserts or replaces the whole job document.
func (r Repo) PutJob(ctx context.Context, j domain.Job) error {
	tags, err := encodeTags(j.Tags)
	if err != nil {
		return err
	}
	_, err = r.q().ExecContext(ctx, `INSERT INTO jobs(id,title,description,slug,status,tags,ord) VALUES (?,?,?,?,?,?,?)
ON CONFLICT(id) DO UPDATE SET title=excluded.title, description=excluded.description, slug=excluded.slug,
status=excluded.status, tags=excluded.tags, ord=excluded.ord`,
		j.ID, j.Title, j.Description, j.Slug, string(j.Status), tags, j.Order)
	return err
}

func (r Repo) BulkAddJobs(ctx context.Context, jobs []domain.Job) error {
	stmt, err := r.q().PrepareContext(ctx, `INSERT INTO jobs(id,title,description,slug,status,tags,ord) VALUES (?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, j := range jobs {
		tags, err := encodeTags(j.Tags)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, j.ID, j.Title, j.Description, j.Slug, string(j.Status), tags, j.Order); err != nil {
			return fmt.Errorf("add job %s: %w", j.ID, err)
		}
	}
	return nil
}

// UpdateJob merges the non-nil patch fields into the stored job.
func (r Repo) UpdateJob(ctx context.Context, id string, p JobPatch) error {
	var (
		fields []string
		args   []any
	)
	if p.Title != nil {
		fields = append(fields, "title=?")
		args = append(args, *p.Title)
	}
	if p.Description != nil {
		fields = append(fields, "description=?")
		args = append(args, *p.Description)
	}
	if p.Slug != nil {
		fields = append(fields, "slug=?")
		args = append(args, *p.Slug)
	}
	if p.Status != nil {
		fields = append(fields, "status=?")
		args = append(args, string(*p.Status))
	}
	if p.Tags != nil {
		tags, err := encodeTags(*p.Tags)
		if err != nil {
			return err
		}
		fields = append(fields, "tags=?")
		args = append(args, tags)
	}
	if p.Order != nil {
		fields = append(fields, "ord=?")
		args = append(args, *p.Order)
	}
	if len(fields) == 0 {
		_, err := r.GetJob(ctx, id)
		return err
	}
	args = append(args, id)
	res, err := r.q().ExecContext(ctx, fmt.Sprintf(`UPDATE jobs SET %s WHERE id=?`, strings.Join(fields, ",")), args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ShiftOrders adds delta to the order of every job whose order lies in [from, to].
func (r Repo) ShiftOrders(ctx context.Context, from, to, delta int) (int64, error) {
	res, err := r.q().ExecContext(ctx, `UPDATE jobs SET ord=ord+? WHERE ord BETWEEN ? AND ?`, delta, from, to)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// JobOrders returns every job order ascending.
func (r Repo) JobOrders(ctx context.Context) ([]int, error) {
	rows, err := r.q().QueryContext(ctx, `SELECT ord FROM jobs ORDER BY ord`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []int
	for rows.Next() {
		var o int
		if err := rows.Scan(&o); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r Repo) JobTitles(ctx context.Context) ([]domain.JobTitle, error) {
	rows, err := r.q().QueryContext(ctx, `SELECT id,title FROM jobs ORDER BY ord, rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.JobTitle{}
	for rows.Next() {
		var t domain.JobTitle
		if err := rows.Scan(&t.ID, &t.Title); err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

// Tags returns the distinct tags across all jobs, sorted.
func (r Repo) Tags(ctx context.Context) ([]string, error) {
	rows, err := r.q().QueryContext(ctx, `SELECT DISTINCT je.value FROM jobs, json_each(jobs.tags) AS je ORDER BY je.value`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []string{}
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}
