package seed

import (
	"context"
	"io"
	"log/slog"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"talentflow/internal/db"
	"talentflow/internal/domain"
	"talentflow/internal/migrate"
	"talentflow/internal/repo"
)

var now = time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

func newSeeder(t *testing.T) Seeder {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, migrate.Migrate(conn))
	return Seeder{
		Repo:       repo.Repo{DB: conn},
		Rand:       rand.New(rand.NewPCG(7, 11)),
		Now:        func() time.Time { return now },
		Log:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		Jobs:       25,
		Candidates: 120,
	}
}

func TestSeedPopulatesEmptyStore(t *testing.T) {
	s := newSeeder(t)
	ctx := context.Background()

	res, err := s.Seed(ctx)
	require.NoError(t, err)
	assert.False(t, res.Skipped)
	assert.False(t, res.OldSchema)
	assert.Equal(t, 25, res.Jobs)
	assert.Equal(t, 120, res.Candidates)
	assert.Equal(t, 3, res.Assessments)

	orders, err := s.Repo.JobOrders(ctx)
	require.NoError(t, err)
	for i, o := range orders {
		assert.Equal(t, i, o)
	}

	jobs, _, err := s.Repo.QueryJobs(ctx, repo.Query{}, nil)
	require.NoError(t, err)
	for _, j := range jobs {
		assert.Equal(t, domain.Slugify(j.Title), j.Slug)
		assert.NotEmpty(t, j.Description)
		assert.True(t, j.Status.Valid())
		assert.GreaterOrEqual(t, len(j.Tags), 1)
		assert.LessOrEqual(t, len(j.Tags), 4)
		assert.Len(t, domain.NormalizeTags(j.Tags), len(j.Tags), "tags must be distinct")
	}

	for i := range 3 {
		a, err := s.Repo.GetAssessment(ctx, jobs[i].ID)
		require.NoError(t, err)
		assert.Equal(t, "Assessment for "+jobs[i].Title, a.Structure.Title)
	}
	q, ok := mustAssessment(t, s, jobs[1].ID).Question("q3")
	require.True(t, ok)
	require.NotNil(t, q.Base().DependsOn)
	assert.Equal(t, "Yes", q.Base().DependsOn.Value)
}

func mustAssessment(t *testing.T, s Seeder, jobID string) domain.Structure {
	t.Helper()
	a, err := s.Repo.GetAssessment(context.Background(), jobID)
	require.NoError(t, err)
	return *a.Structure
}

func TestSeedTimelineMatchesStage(t *testing.T) {
	s := newSeeder(t)
	ctx := context.Background()
	res, err := s.Seed(ctx)
	require.NoError(t, err)

	candidates, _, err := s.Repo.QueryCandidates(ctx, repo.Query{}, nil)
	require.NoError(t, err)
	total := 0
	for _, c := range candidates {
		events, err := s.Repo.Timeline(ctx, c.ID)
		require.NoError(t, err)
		total += len(events)
		latest, ok := domain.LatestStage(events)
		require.True(t, ok, "candidate %s has no stage events", c.ID)
		assert.Equal(t, c.Stage, latest)

		if c.Stage == domain.StageRejected {
			require.Len(t, events, 2)
			assert.True(t, events[0].Timestamp.Equal(now.Add(-3*day)))
			assert.True(t, events[1].Timestamp.Equal(now.Add(-1*day)))
			continue
		}
		cur := c.Stage.PipelineIndex()
		require.Len(t, events, cur+1)
		entries := domain.StageEntries(events)
		for i := 0; i <= cur; i++ {
			want := now.Add(-time.Duration((cur-i)*3+1) * day)
			assert.True(t, entries[domain.Pipeline[i]].Equal(want))
		}
	}
	assert.Equal(t, res.Events, total)
}

func TestSeedIsIdempotent(t *testing.T) {
	s := newSeeder(t)
	ctx := context.Background()
	_, err := s.Seed(ctx)
	require.NoError(t, err)
	before, err := s.Repo.JobTitles(ctx)
	require.NoError(t, err)

	res, err := s.Seed(ctx)
	require.NoError(t, err)
	assert.True(t, res.Skipped)

	after, err := s.Repo.JobTitles(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	n, err := s.Repo.CountTimeline(ctx)
	require.NoError(t, err)
	assert.Positive(t, n)
}

func TestSeedReplacesOldSchemaData(t *testing.T) {
	s := newSeeder(t)
	ctx := context.Background()
	_, err := s.Repo.DB.ExecContext(ctx, `INSERT INTO jobs(id,title,slug,status,tags,ord) VALUES ('legacy','Legacy','legacy','active','[]',0)`)
	require.NoError(t, err)
	require.NoError(t, s.Repo.AddCandidate(ctx, domain.Candidate{ID: "old", Name: "Old", Email: "old@x", Stage: domain.StageApplied, JobID: "legacy"}))

	res, err := s.Seed(ctx)
	require.NoError(t, err)
	assert.True(t, res.OldSchema)

	_, err = s.Repo.GetJob(ctx, "legacy")
	assert.ErrorIs(t, err, repo.ErrNotFound)
	_, err = s.Repo.GetCandidate(ctx, "old")
	assert.ErrorIs(t, err, repo.ErrNotFound)
	n, err := s.Repo.CountJobs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 25, n)
}

func TestSeedForce(t *testing.T) {
	s := newSeeder(t)
	ctx := context.Background()
	_, err := s.Seed(ctx)
	require.NoError(t, err)

	s.Force = true
	s.Candidates = 10
	res, err := s.Seed(ctx)
	require.NoError(t, err)
	assert.False(t, res.Skipped)
	list, total, err := s.Repo.QueryCandidates(ctx, repo.Query{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 10, total)
	assert.Len(t, list, 10)
}
