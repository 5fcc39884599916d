package optimistic

import (
	"context"
	"fmt"
	"slices"

	"talentflow/internal/domain"
)

// JobReorderer moves a job between board positions on the server.
type JobReorderer interface {
	ReorderJob(ctx context.Context, id string, fromOrder, toOrder int) error
}

// StageMover moves a candidate to another stage on the server.
type StageMover interface {
	UpdateCandidateStage(ctx context.Context, id, stage string) (domain.Candidate, error)
}

// ArrayMove returns a copy of items with the element at from moved to to.
func ArrayMove[T any](items []T, from, to int) []T {
	out := slices.Clone(items)
	if from < 0 || from >= len(out) || to < 0 || to >= len(out) || from == to {
		return out
	}
	item := out[from]
	out = slices.Delete(out, from, from+1)
	return slices.Insert(out, to, item)
}

// NewJobView returns a view over a board of jobs.
func NewJobView(jobs []domain.Job) *View[[]domain.Job] {
	return NewView(jobs, slices.Clone[[]domain.Job])
}

// NewCandidateView returns a view over a list of candidates.
func NewCandidateView(candidates []domain.Candidate) *View[[]domain.Candidate] {
	return NewView(candidates, slices.Clone[[]domain.Candidate])
}

// MoveJob drags jobID to index toIndex of the board. Local orders follow the
// server's shift rule on the board's own order values, so a filtered or
// paged board stays in step with the store.
func MoveJob(ctx context.Context, view *View[[]domain.Job], r JobReorderer, jobID string, toIndex int, refresh func(context.Context) ([]domain.Job, error)) (Outcome, error) {
	jobs := view.State()
	from := slices.IndexFunc(jobs, func(j domain.Job) bool { return j.ID == jobID })
	if from < 0 {
		return Outcome{State: Idle}, fmt.Errorf("job %s is not on the board", jobID)
	}
	if toIndex < 0 || toIndex >= len(jobs) {
		return Outcome{State: Idle}, fmt.Errorf("index %d outside board of %d jobs", toIndex, len(jobs))
	}
	fromOrder, toOrder := jobs[from].Order, jobs[toIndex].Order
	return view.Do(ctx, Op[[]domain.Job]{
		Key: "job:" + jobID,
		Apply: func(s []domain.Job) []domain.Job {
			i := slices.IndexFunc(s, func(j domain.Job) bool { return j.ID == jobID })
			if i < 0 {
				return s
			}
			moved := ArrayMove(s, i, min(toIndex, len(s)-1))
			for k := range moved {
				moved[k].Order = ShiftOrder(moved[k].Order, fromOrder, toOrder)
				if moved[k].ID == jobID {
					moved[k].Order = toOrder
				}
			}
			return moved
		},
		Call: func(ctx context.Context) (func([]domain.Job) []domain.Job, error) {
			return nil, r.ReorderJob(ctx, jobID, fromOrder, toOrder)
		},
		Refresh: refresh,
	})
}

// ShiftOrder returns where a job at order lands when another job moves from
// fromOrder to toOrder.
func ShiftOrder(order, fromOrder, toOrder int) int {
	switch {
	case fromOrder < toOrder && order > fromOrder && order <= toOrder:
		return order - 1
	case toOrder < fromOrder && order >= toOrder && order < fromOrder:
		return order + 1
	}
	return order
}

// MoveCandidate reassigns a candidate's stage locally, then replaces the
// candidate with the server's copy once the move is accepted.
func MoveCandidate(ctx context.Context, view *View[[]domain.Candidate], m StageMover, id string, stage domain.Stage) (Outcome, error) {
	if !stage.Valid() {
		return Outcome{State: Idle}, fmt.Errorf("invalid stage %q", stage)
	}
	replace := func(c domain.Candidate) func([]domain.Candidate) []domain.Candidate {
		return func(s []domain.Candidate) []domain.Candidate {
			for i := range s {
				if s[i].ID == c.ID {
					s[i] = c
				}
			}
			return s
		}
	}
	return view.Do(ctx, Op[[]domain.Candidate]{
		Key: "candidate:" + id,
		Apply: func(s []domain.Candidate) []domain.Candidate {
			for i := range s {
				if s[i].ID == id {
					s[i].Stage = stage
				}
			}
			return s
		},
		Call: func(ctx context.Context) (func([]domain.Candidate) []domain.Candidate, error) {
			c, err := m.UpdateCandidateStage(ctx, id, string(stage))
			if err != nil {
				return nil, err
			}
			return replace(c), nil
		},
	})
}
