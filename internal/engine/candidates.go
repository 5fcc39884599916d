package engine

import (
	"context"
	"errors"
	"strings"

	"talentflow/internal/domain"
	"talentflow/internal/repo"
)

const unknownJob = "Unknown Job"

type CandidateFilter struct {
	Stage  string
	Search string
	JobID  string
}

type CandidateList struct {
	Candidates []domain.CandidateSummary `json:"candidates"`
	Total      int                       `json:"total"`
}

// ListCandidates returns the matching candidates with their job titles.
// An empty filter returns every candidate.
func (e Engine) ListCandidates(ctx context.Context, f CandidateFilter) (CandidateList, error) {
	if err := e.latency(ctx, OpRead); err != nil {
		return CandidateList{}, err
	}
	var q repo.Query
	if s := strings.TrimSpace(f.Stage); s != "" {
		q.Where = append(q.Where, repo.Cond{Field: "stage", Op: repo.EqFold, Value: s})
	}
	if id := strings.TrimSpace(f.JobID); id != "" {
		q.Where = append(q.Where, repo.Cond{Field: "jobId", Op: repo.Eq, Value: id})
	}
	var pred func(domain.Candidate) bool
	if s := strings.ToLower(strings.TrimSpace(f.Search)); s != "" {
		pred = func(c domain.Candidate) bool {
			return strings.Contains(strings.ToLower(c.Name), s) || strings.Contains(strings.ToLower(c.Email), s)
		}
	}
	return e.listCandidates(ctx, q, pred)
}

// ListCandidatesByJob returns every candidate attached to jobID.
func (e Engine) ListCandidatesByJob(ctx context.Context, jobID string) (CandidateList, error) {
	if err := e.latency(ctx, OpRead); err != nil {
		return CandidateList{}, err
	}
	return e.listCandidates(ctx, repo.Query{Where: []repo.Cond{{Field: "jobId", Op: repo.Eq, Value: jobID}}}, nil)
}

func (e Engine) listCandidates(ctx context.Context, q repo.Query, pred func(domain.Candidate) bool) (CandidateList, error) {
	items, total, err := e.Repo.QueryCandidates(ctx, q, pred)
	if err != nil {
		return CandidateList{}, err
	}
	titles, err := e.Repo.JobTitles(ctx)
	if err != nil {
		return CandidateList{}, err
	}
	byID := make(map[string]string, len(titles))
	for _, t := range titles {
		byID[t.ID] = t.Title
	}
	out := CandidateList{Candidates: make([]domain.CandidateSummary, 0, len(items)), Total: total}
	for _, c := range items {
		title, ok := byID[c.JobID]
		if !ok {
			title = unknownJob
		}
		out.Candidates = append(out.Candidates, domain.CandidateSummary{Candidate: c, JobTitle: title})
	}
	return out, nil
}

func (e Engine) GetCandidate(ctx context.Context, id string) (domain.Candidate, error) {
	id, err := requireID("id", id)
	if err != nil {
		return domain.Candidate{}, err
	}
	if err := e.latency(ctx, OpRead); err != nil {
		return domain.Candidate{}, err
	}
	c, err := e.Repo.GetCandidate(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return c, notFound("candidate", id)
	}
	return c, err
}

// UpdateCandidateStage moves a candidate to stage and records the move on
// its timeline in the same transaction.
func (e Engine) UpdateCandidateStage(ctx context.Context, id, stage string) (domain.Candidate, error) {
	id, err := requireID("id", id)
	if err != nil {
		return domain.Candidate{}, err
	}
	if strings.TrimSpace(stage) == "" {
		return domain.Candidate{}, invalid("stage", "is required")
	}
	st, err := domain.ParseStage(stage)
	if err != nil {
		return domain.Candidate{}, invalid("stage", "unknown stage %q", stage)
	}
	if err := e.write(ctx, OpStage, e.config().Failure.Stage, "Failed to update candidate stage"); err != nil {
		return domain.Candidate{}, err
	}
	w := e.Events
	if w.Now == nil {
		w.Now = e.now
	}
	var out domain.Candidate
	err = e.transaction(ctx, "update stage", []repo.Collection{repo.Candidates, repo.Timeline}, func(r repo.Repo) error {
		if err := r.UpdateCandidate(ctx, id, repo.CandidatePatch{Stage: &st}); err != nil {
			return err
		}
		if _, err := w.AppendStage(ctx, r, id, st); err != nil {
			return err
		}
		out, err = r.GetCandidate(ctx, id)
		return err
	})
	if errors.Is(err, repo.ErrNotFound) {
		return domain.Candidate{}, notFound("candidate", id)
	}
	if err != nil {
		return domain.Candidate{}, err
	}
	e.publish("candidate.stage", id)
	return out, nil
}

// Timeline returns the candidate's events in insertion order.
func (e Engine) Timeline(ctx context.Context, id string) ([]domain.TimelineEvent, error) {
	if err := e.latency(ctx, OpRead); err != nil {
		return nil, err
	}
	return e.Repo.Timeline(ctx, id)
}

// Notes returns the candidate's note, empty when none was saved.
func (e Engine) Notes(ctx context.Context, id string) (domain.Note, error) {
	if err := e.latency(ctx, OpRead); err != nil {
		return domain.Note{}, err
	}
	n, err := e.Repo.GetNote(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return domain.Note{CandidateID: id}, nil
	}
	return n, err
}

func (e Engine) UpdateNotes(ctx context.Context, id, content string) error {
	id, err := requireID("id", id)
	if err != nil {
		return err
	}
	if err := e.write(ctx, OpWrite, e.config().Failure.Write, "Failed to save notes"); err != nil {
		return err
	}
	if err := e.Repo.PutNote(ctx, domain.Note{CandidateID: id, Content: content}, e.now()); err != nil {
		return err
	}
	e.publish("candidate.notes", id)
	return nil
}

// StageCounts returns how many candidates sit in each stage, zero-filled.
func (e Engine) StageCounts(ctx context.Context) (map[domain.Stage]int, error) {
	if err := e.latency(ctx, OpRead); err != nil {
		return nil, err
	}
	counts, err := e.Repo.CountCandidatesByStage(ctx)
	if err != nil {
		return nil, err
	}
	for _, st := range domain.Stages {
		if _, ok := counts[st]; !ok {
			counts[st] = 0
		}
	}
	return counts, nil
}
