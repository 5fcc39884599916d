package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"

	"talentflow/internal/domain"
	"talentflow/internal/repo"
)

const (
	DefaultJobs       = 25
	DefaultCandidates = 1000
	day               = 24 * time.Hour
)

// Seeder fills an empty or outdated store with mock data.
type Seeder struct {
	Repo       repo.Repo
	Rand       *rand.Rand
	Now        func() time.Time
	Log        *slog.Logger
	Jobs       int
	Candidates int
	// Force reseeds even when the store is current.
	Force bool
}

type Result struct {
	Skipped     bool `json:"skipped"`
	OldSchema   bool `json:"oldSchema"`
	Jobs        int  `json:"jobs"`
	Candidates  int  `json:"candidates"`
	Assessments int  `json:"assessments"`
	Events      int  `json:"events"`
}

// Seed leaves a current store alone. Otherwise it clears every collection
// and writes a fresh data set in one transaction.
func (s Seeder) Seed(ctx context.Context) (Result, error) {
	s = s.withDefaults()
	if s.Jobs < 3 {
		return Result{}, fmt.Errorf("seed needs at least 3 jobs, got %d", s.Jobs)
	}
	first, described, err := s.Repo.FirstJob(ctx)
	exists := err == nil
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return Result{}, fmt.Errorf("inspect store: %w", err)
	}
	if exists && described && !s.Force {
		s.Log.Info("store already seeded", "first_job", first.ID)
		return Result{Skipped: true}, nil
	}
	res := Result{OldSchema: exists && !described}
	switch {
	case res.OldSchema:
		s.Log.Info("old schema detected, clearing all collections")
	case exists:
		s.Log.Info("forced reseed, clearing all collections")
	default:
		s.Log.Info("store is empty, seeding")
	}

	jobs := s.jobs()
	candidates := s.candidates(jobs)
	assessments := assessmentStructures(jobs)
	timeline := s.timeline(candidates)

	err = s.Repo.Transaction(ctx, repo.AllCollections, func(r repo.Repo) error {
		if err := r.Clear(ctx, repo.AllCollections...); err != nil {
			return err
		}
		if err := r.BulkAddJobs(ctx, jobs); err != nil {
			return err
		}
		if err := r.BulkAddCandidates(ctx, candidates); err != nil {
			return err
		}
		if err := r.BulkPutAssessments(ctx, assessments); err != nil {
			return err
		}
		return r.BulkAddTimeline(ctx, timeline)
	})
	if err != nil {
		return Result{}, fmt.Errorf("seed: %w", err)
	}
	res.Jobs, res.Candidates, res.Assessments, res.Events = len(jobs), len(candidates), len(assessments), len(timeline)
	s.Log.Info("seeded store", "jobs", res.Jobs, "candidates", res.Candidates, "assessments", res.Assessments, "events", res.Events)
	return res, nil
}

func (s Seeder) withDefaults() Seeder {
	if s.Rand == nil {
		seed := uint64(time.Now().UnixNano())
		s.Rand = rand.New(rand.NewPCG(seed, seed>>1))
	}
	if s.Now == nil {
		s.Now = time.Now
	}
	if s.Log == nil {
		s.Log = slog.Default()
	}
	if s.Jobs == 0 {
		s.Jobs = DefaultJobs
	}
	if s.Candidates == 0 {
		s.Candidates = DefaultCandidates
	}
	return s
}

func pick[T any](rnd *rand.Rand, items []T) T {
	return items[rnd.IntN(len(items))]
}

// subset returns n distinct items in random order.
func subset(rnd *rand.Rand, items []string, n int) []string {
	out := make([]string, 0, n)
	for _, i := range rnd.Perm(len(items))[:n] {
		out = append(out, items[i])
	}
	return out
}

func (s Seeder) jobs() []domain.Job {
	out := make([]domain.Job, 0, s.Jobs)
	for i := range s.Jobs {
		title := fmt.Sprintf("%s #%d", pick(s.Rand, jobTitles), i+1)
		status := domain.JobArchived
		if s.Rand.Float64() > 0.3 {
			status = domain.JobActive
		}
		describe := pick(s.Rand, descriptionTemplates)
		out = append(out, domain.Job{
			ID:          uuid.NewString(),
			Title:       title,
			Slug:        domain.Slugify(title),
			Description: describe(pick(s.Rand, jobTitles), pick(s.Rand, tagPool), pick(s.Rand, tagPool)),
			Status:      status,
			Tags:        subset(s.Rand, tagPool, 1+s.Rand.IntN(4)),
			Order:       i,
		})
	}
	return out
}

func (s Seeder) candidates(jobs []domain.Job) []domain.Candidate {
	out := make([]domain.Candidate, 0, s.Candidates)
	for i := range s.Candidates {
		first, last := pick(s.Rand, firstNames), pick(s.Rand, lastNames)
		out = append(out, domain.Candidate{
			ID:    uuid.NewString(),
			Name:  first + " " + last,
			Email: fmt.Sprintf("%s.%s%d@example.com", strings.ToLower(first), strings.ToLower(last), i),
			Stage: pick(s.Rand, domain.Stages),
			JobID: pick(s.Rand, jobs).ID,
		})
	}
	return out
}

// timeline builds a history consistent with each candidate's current stage.
// Rejected candidates applied three days ago and were rejected yesterday;
// everyone else walked the pipeline one step every three days.
func (s Seeder) timeline(candidates []domain.Candidate) []domain.TimelineEvent {
	now := s.Now().UTC()
	var out []domain.TimelineEvent
	for _, c := range candidates {
		if c.Stage == domain.StageRejected {
			out = append(out,
				domain.TimelineEvent{CandidateID: c.ID, Timestamp: now.Add(-3 * day), Event: domain.StageEvent(domain.StageApplied)},
				domain.TimelineEvent{CandidateID: c.ID, Timestamp: now.Add(-1 * day), Event: domain.StageEvent(domain.StageRejected)},
			)
			continue
		}
		cur := c.Stage.PipelineIndex()
		if cur < 0 {
			continue
		}
		for i := 0; i <= cur; i++ {
			daysAgo := (cur-i)*3 + 1
			out = append(out, domain.TimelineEvent{
				CandidateID: c.ID,
				Timestamp:   now.Add(-time.Duration(daysAgo) * day),
				Event:       domain.StageEvent(domain.Pipeline[i]),
			})
		}
	}
	return out
}
