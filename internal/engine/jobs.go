package engine

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"talentflow/internal/domain"
	"talentflow/internal/repo"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ValidationError{Message: err.Error()}
	}
	out := &ValidationError{Fields: map[string]string{}}
	for _, fe := range verrs {
		msg := fe.Tag()
		switch fe.Tag() {
		case "required":
			msg = "is required"
		case "oneof":
			msg = "must be one of " + fe.Param()
		case "max":
			msg = "must be at most " + fe.Param() + " characters"
		}
		out.Fields[fe.Field()] = msg
		if out.Field == "" {
			out.Field, out.Message = fe.Field(), msg
		}
	}
	return out
}

type JobFilter struct {
	Page     int
	PageSize int
	Status   string
	Search   string
	Tags     []string
}

type JobPage struct {
	Jobs     []domain.JobSummary `json:"jobs"`
	Total    int                 `json:"total"`
	Page     int                 `json:"page"`
	PageSize int                 `json:"pageSize"`
}

// ListJobs returns one page of jobs in board order with candidate counts.
func (e Engine) ListJobs(ctx context.Context, f JobFilter) (JobPage, error) {
	if err := e.latency(ctx, OpRead); err != nil {
		return JobPage{}, err
	}
	if f.Page < 1 {
		f.Page = DefaultPage
	}
	if f.PageSize < 1 {
		f.PageSize = DefaultPageSize
	}
	f.PageSize = min(f.PageSize, MaxPageSize)

	q := repo.Query{OrderBy: "order", Offset: (f.Page - 1) * f.PageSize, Limit: f.PageSize}
	if s := strings.TrimSpace(f.Status); s != "" {
		q.Where = append(q.Where, repo.Cond{Field: "status", Op: repo.EqFold, Value: s})
	}
	for _, t := range domain.NormalizeTags(f.Tags) {
		q.Where = append(q.Where, repo.Cond{Field: "tags", Op: repo.Has, Value: t})
	}
	var pred func(domain.Job) bool
	if s := strings.ToLower(strings.TrimSpace(f.Search)); s != "" {
		pred = func(j domain.Job) bool {
			return strings.Contains(strings.ToLower(j.Title), s)
		}
	}
	jobs, total, err := e.Repo.QueryJobs(ctx, q, pred)
	if err != nil {
		return JobPage{}, err
	}
	ids := make([]string, 0, len(jobs))
	for _, j := range jobs {
		ids = append(ids, j.ID)
	}
	counts, err := e.Repo.CandidateCounts(ctx, ids)
	if err != nil {
		return JobPage{}, err
	}
	out := JobPage{Jobs: make([]domain.JobSummary, 0, len(jobs)), Total: total, Page: f.Page, PageSize: f.PageSize}
	for _, j := range jobs {
		out.Jobs = append(out.Jobs, domain.JobSummary{Job: j, Candidates: counts[j.ID]})
	}
	return out, nil
}

func (e Engine) GetJob(ctx context.Context, id string) (domain.Job, error) {
	if err := e.latency(ctx, OpRead); err != nil {
		return domain.Job{}, err
	}
	j, err := e.Repo.GetJob(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return j, notFound("job", id)
	}
	return j, err
}

// JobInput is the payload for a new job.
type JobInput struct {
	Title       string   `json:"title" validate:"required,max=200"`
	Description string   `json:"description"`
	Slug        string   `json:"slug"`
	Tags        []string `json:"tags"`
}

// CreateJob appends an active job at the end of the board.
func (e Engine) CreateJob(ctx context.Context, in JobInput) (domain.Job, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := validate.Struct(in); err != nil {
		return domain.Job{}, validationError(err)
	}
	if err := e.write(ctx, OpWrite, e.config().Failure.Write, "Failed to create job"); err != nil {
		return domain.Job{}, err
	}
	j := domain.Job{
		ID:          uuid.NewString(),
		Title:       in.Title,
		Description: in.Description,
		Slug:        strings.TrimSpace(in.Slug),
		Status:      domain.JobActive,
		Tags:        domain.NormalizeTags(in.Tags),
	}
	if j.Slug == "" {
		j.Slug = domain.Slugify(j.Title)
	}
	err := e.transaction(ctx, "create job", []repo.Collection{repo.Jobs}, func(r repo.Repo) error {
		next, err := r.NextJobOrder(ctx)
		if err != nil {
			return err
		}
		j.Order = next
		return r.AddJob(ctx, j)
	})
	if err != nil {
		return domain.Job{}, err
	}
	e.publish("job.created", j.ID)
	return j, nil
}

// UpdateJob merges patch into the stored job and returns the applied patch.
// Order is written only by ReorderJob.
func (e Engine) UpdateJob(ctx context.Context, id string, patch repo.JobPatch) (repo.JobPatch, error) {
	if patch.Order != nil {
		return patch, invalid("order", "use reorder to move a job")
	}
	if patch.Title != nil {
		t := strings.TrimSpace(*patch.Title)
		if t == "" {
			return patch, invalid("title", "is required")
		}
		patch.Title = &t
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return patch, invalid("status", "must be one of active archived")
	}
	if patch.Tags != nil {
		tags := domain.NormalizeTags(*patch.Tags)
		patch.Tags = &tags
	}
	if err := e.write(ctx, OpWrite, e.config().Failure.Write, "Failed to update job"); err != nil {
		return patch, err
	}
	if err := e.Repo.UpdateJob(ctx, id, patch); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return patch, notFound("job", id)
		}
		return patch, err
	}
	e.publish("job.updated", id)
	return patch, nil
}

// ReorderJob moves a job from fromOrder to toOrder and shifts the jobs in
// between so orders stay dense.
func (e Engine) ReorderJob(ctx context.Context, id string, fromOrder, toOrder int) error {
	if err := e.Limits.Wait(ctx, OpReorder); err != nil {
		return err
	}
	if err := e.latency(ctx, OpReorder); err != nil {
		return err
	}
	if fromOrder == toOrder {
		return nil
	}
	if rate := e.config().Failure.Reorder; e.faults().ShouldFail(rate) {
		e.log().Warn("simulated failure", "op", OpReorder, "rate", rate, "job", id)
		return failure("Failed to reorder job")
	}
	err := e.transaction(ctx, "reorder job", []repo.Collection{repo.Jobs}, func(r repo.Repo) error {
		j, err := r.GetJob(ctx, id)
		if err != nil {
			return fmt.Errorf("job %s: %w", id, err)
		}
		if j.Order != fromOrder {
			return fmt.Errorf("job %s is at order %d, not %d", id, j.Order, fromOrder)
		}
		n, err := r.CountJobs(ctx)
		if err != nil {
			return err
		}
		if toOrder < 0 || toOrder >= n {
			return fmt.Errorf("target order %d outside [0, %d]", toOrder, n-1)
		}
		if fromOrder < toOrder {
			_, err = r.ShiftOrders(ctx, fromOrder+1, toOrder, -1)
		} else {
			_, err = r.ShiftOrders(ctx, toOrder, fromOrder-1, 1)
		}
		if err != nil {
			return err
		}
		return r.UpdateJob(ctx, id, repo.JobPatch{Order: &toOrder})
	})
	if err != nil {
		return err
	}
	e.publish("job.reordered", id)
	return nil
}

// UniqueTags returns every tag used by any job, sorted.
func (e Engine) UniqueTags(ctx context.Context) ([]string, error) {
	if err := e.latency(ctx, OpRead); err != nil {
		return nil, err
	}
	return e.Repo.Tags(ctx)
}

func (e Engine) JobTitles(ctx context.Context) ([]domain.JobTitle, error) {
	if err := e.latency(ctx, OpRead); err != nil {
		return nil, err
	}
	return e.Repo.JobTitles(ctx)
}

func (e Engine) JobCount(ctx context.Context) (int, error) {
	if err := e.latency(ctx, OpRead); err != nil {
		return 0, err
	}
	return e.Repo.CountJobs(ctx)
}

func (e Engine) ActiveJobCount(ctx context.Context) (int, error) {
	if err := e.latency(ctx, OpRead); err != nil {
		return 0, err
	}
	return e.Repo.CountJobs(ctx, repo.Cond{Field: "status", Op: repo.Eq, Value: string(domain.JobActive)})
}

type JobStats struct {
	Total  int `json:"total"`
	Active int `json:"active"`
}

// Stats reports total and active job counts under a single delay.
func (e Engine) Stats(ctx context.Context) (JobStats, error) {
	if err := e.latency(ctx, OpRead); err != nil {
		return JobStats{}, err
	}
	var (
		s   JobStats
		err error
	)
	if s.Total, err = e.Repo.CountJobs(ctx); err != nil {
		return s, err
	}
	s.Active, err = e.Repo.CountJobs(ctx, repo.Cond{Field: "status", Op: repo.Eq, Value: string(domain.JobActive)})
	return s, err
}
