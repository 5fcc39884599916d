package engine_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"talentflow/internal/domain"
	"talentflow/internal/engine"
	"talentflow/internal/repo"
)

func (env testEnv) addCandidates(t *testing.T, items ...domain.Candidate) {
	t.Helper()
	require.NoError(t, env.Engine.Repo.BulkAddCandidates(env.Ctx, items))
}

func TestListCandidates(t *testing.T) {
	env := newTestEnv(t)
	env.addJobs(t, 2, nil)
	env.addCandidates(t,
		domain.Candidate{ID: "c1", Name: "Aisha Chen", Email: "aisha.chen0@example.com", Stage: domain.StageApplied, JobID: "job-00"},
		domain.Candidate{ID: "c2", Name: "Ben Smith", Email: "ben.smith1@example.com", Stage: domain.StageTech, JobID: "job-01"},
		domain.Candidate{ID: "c3", Name: "Cara Lee", Email: "cara.lee2@example.com", Stage: domain.StageTech, JobID: "gone"},
	)

	all, err := env.Engine.ListCandidates(env.Ctx, engine.CandidateFilter{})
	require.NoError(t, err)
	require.Equal(t, 3, all.Total)
	assert.Equal(t, "Job 0", all.Candidates[0].JobTitle)
	assert.Equal(t, "Unknown Job", all.Candidates[2].JobTitle)

	tech, err := env.Engine.ListCandidates(env.Ctx, engine.CandidateFilter{Stage: "Tech"})
	require.NoError(t, err)
	assert.Equal(t, 2, tech.Total)

	found, err := env.Engine.ListCandidates(env.Ctx, engine.CandidateFilter{Search: "SMITH"})
	require.NoError(t, err)
	require.Equal(t, 1, found.Total)
	assert.Equal(t, "c2", found.Candidates[0].ID)

	byEmail, err := env.Engine.ListCandidates(env.Ctx, engine.CandidateFilter{Search: "lee2@"})
	require.NoError(t, err)
	assert.Equal(t, 1, byEmail.Total)

	byJob, err := env.Engine.ListCandidatesByJob(env.Ctx, "job-01")
	require.NoError(t, err)
	require.Equal(t, 1, byJob.Total)
	assert.Equal(t, "Job 1", byJob.Candidates[0].JobTitle)
}

func TestGetCandidate(t *testing.T) {
	env := newTestEnv(t)
	env.addCandidates(t, domain.Candidate{ID: "c1", Name: "A", Email: "a@x", Stage: domain.StageApplied, JobID: "j"})

	c, err := env.Engine.GetCandidate(env.Ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "A", c.Name)

	_, err = env.Engine.GetCandidate(env.Ctx, "")
	assert.True(t, engine.IsValidation(err))

	_, err = env.Engine.GetCandidate(env.Ctx, "nope")
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestUpdateCandidateStageAppendsTimeline(t *testing.T) {
	env := newTestEnv(t)
	env.addCandidates(t, domain.Candidate{ID: "c1", Name: "A", Email: "a@x", Stage: domain.StageApplied, JobID: "j"})
	require.NoError(t, env.Engine.Repo.BulkAddTimeline(env.Ctx, []domain.TimelineEvent{
		{CandidateID: "c1", Timestamp: fixedNow.Add(-72 * time.Hour), Event: domain.StageEvent(domain.StageApplied)},
	}))

	updated, err := env.Engine.UpdateCandidateStage(env.Ctx, "c1", "screen")
	require.NoError(t, err)
	assert.Equal(t, domain.StageScreen, updated.Stage)

	events, err := env.Engine.Timeline(env.Ctx, "c1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	last := events[len(events)-1]
	assert.Equal(t, "stage:screen", last.Event)
	assert.True(t, last.Timestamp.Equal(fixedNow))
	for _, ev := range events[:len(events)-1] {
		assert.False(t, ev.Timestamp.After(last.Timestamp))
	}
	latest, ok := domain.LatestStage(events)
	require.True(t, ok)
	assert.Equal(t, updated.Stage, latest)
}

func TestUpdateCandidateStageErrors(t *testing.T) {
	env := newTestEnv(t)
	env.addCandidates(t, domain.Candidate{ID: "c1", Name: "A", Email: "a@x", Stage: domain.StageApplied, JobID: "j"})

	_, err := env.Engine.UpdateCandidateStage(env.Ctx, "c1", "")
	var verr *engine.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "stage", verr.Field)

	_, err = env.Engine.UpdateCandidateStage(env.Ctx, "c1", "interview")
	assert.True(t, engine.IsValidation(err))

	_, err = env.Engine.UpdateCandidateStage(env.Ctx, "ghost", "tech")
	assert.ErrorIs(t, err, repo.ErrNotFound)
	n, err := env.Engine.Repo.CountTimeline(env.Ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "aborted stage change must not leave a timeline event")

	env.Engine.Faults = engine.AlwaysFail{}
	_, err = env.Engine.UpdateCandidateStage(env.Ctx, "c1", "tech")
	var serr *engine.ServiceError
	require.ErrorAs(t, err, &serr)

	c, err := env.Engine.Repo.GetCandidate(env.Ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, domain.StageApplied, c.Stage)
}

func TestNotes(t *testing.T) {
	env := newTestEnv(t)

	n, err := env.Engine.Notes(env.Ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, n.Content)

	require.NoError(t, env.Engine.UpdateNotes(env.Ctx, "c1", "Strong on systems design. @Ben to follow up"))
	require.NoError(t, env.Engine.UpdateNotes(env.Ctx, "c1", "Second pass"))
	n, err = env.Engine.Notes(env.Ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "Second pass", n.Content)

	env.Engine.Faults = engine.AlwaysFail{}
	var serr *engine.ServiceError
	require.ErrorAs(t, env.Engine.UpdateNotes(env.Ctx, "c1", "lost"), &serr)
}

func TestStageCounts(t *testing.T) {
	env := newTestEnv(t)
	env.addCandidates(t,
		domain.Candidate{ID: "c1", Name: "A", Email: "a@x", Stage: domain.StageTech, JobID: "j"},
		domain.Candidate{ID: "c2", Name: "B", Email: "b@x", Stage: domain.StageTech, JobID: "j"},
	)
	counts, err := env.Engine.StageCounts(env.Ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, counts[domain.StageTech])
	assert.Len(t, counts, len(domain.Stages))
}
