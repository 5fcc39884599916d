package talentflowsdk_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"talentflow/internal/config"
	"talentflow/internal/db"
	"talentflow/internal/domain"
	"talentflow/internal/engine"
	"talentflow/internal/migrate"
	"talentflow/internal/optimistic"
	"talentflow/internal/server"
	talentflowsdk "talentflow/sdk/go"
)

func newClient(t *testing.T, faults engine.FaultPolicy) (*talentflowsdk.Client, engine.Engine) {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, migrate.Migrate(conn))
	e := engine.New(conn, config.Default())
	e.Faults = faults
	e.Now = func() time.Time { return time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC) }
	h, err := server.New(server.Config{Engine: e, BasePath: "/api"})
	require.NoError(t, err)
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return talentflowsdk.New(ts.URL + "/api"), e
}

func TestClientJobs(t *testing.T) {
	c, _ := newClient(t, engine.NoFaults{})
	ctx := context.Background()

	var ids []string
	for _, title := range []string{"Backend Engineer", "Frontend Engineer", "Designer"} {
		j, err := c.CreateJob(ctx, talentflowsdk.NewJob{Title: title, Tags: []string{"Remote"}})
		require.NoError(t, err)
		ids = append(ids, j.ID)
	}

	page, err := c.ListJobs(ctx, talentflowsdk.JobQuery{Search: "engineer"})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)

	require.NoError(t, c.ReorderJob(ctx, ids[2], 2, 0))
	titles, err := c.JobTitles(ctx)
	require.NoError(t, err)
	require.Len(t, titles, 3)
	assert.Equal(t, "Designer", titles[0].Title)

	archived := "archived"
	echo, err := c.UpdateJob(ctx, ids[0], talentflowsdk.JobUpdate{Status: &archived})
	require.NoError(t, err)
	assert.Equal(t, true, echo["success"])
	assert.Equal(t, "archived", echo["status"])

	stats, err := c.JobStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, talentflowsdk.JobStats{Total: 3, Active: 2}, stats)

	tags, err := c.JobTags(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Remote"}, tags)
}

func TestClientErrors(t *testing.T) {
	c, _ := newClient(t, engine.NoFaults{})
	ctx := context.Background()

	_, err := c.GetJob(ctx, "missing")
	var apiErr *talentflowsdk.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "missing")

	_, err = c.CreateJob(ctx, talentflowsdk.NewJob{Title: "   "})
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)

	failing, _ := newClient(t, engine.AlwaysFail{})
	_, err = failing.CreateJob(ctx, talentflowsdk.NewJob{Title: "Ops"})
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.EqualError(t, err, "Failed to create job")
}

func TestClientNormalizesEmptySuccess(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/candidates/c1/notes":
			w.WriteHeader(http.StatusNoContent)
		case "/jobs/j1/reorder":
			w.Write([]byte("ok"))
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer ts.Close()
	c := talentflowsdk.New(ts.URL)
	ctx := context.Background()

	require.NoError(t, c.SaveNotes(ctx, "c1", "hi"))
	require.NoError(t, c.ReorderJob(ctx, "j1", 0, 1))

	_, err := c.GetJob(ctx, "x")
	var apiErr *talentflowsdk.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusText(http.StatusBadGateway), apiErr.Message)
}

func TestClientCandidateDetailAndAssessment(t *testing.T) {
	c, e := newClient(t, engine.NoFaults{})
	ctx := context.Background()
	require.NoError(t, e.Repo.AddCandidate(ctx, domain.Candidate{ID: "c1", Name: "Lena Ortiz", Email: "lena@x", Stage: domain.StageApplied, JobID: "j1"}))

	moved, err := c.UpdateCandidateStage(ctx, "c1", "tech")
	require.NoError(t, err)
	assert.Equal(t, domain.StageTech, moved.Stage)
	require.NoError(t, c.SaveNotes(ctx, "c1", "Strong @sam"))

	d, err := c.CandidateDetail(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "Lena Ortiz", d.Candidate.Name)
	require.Len(t, d.Timeline, 1)
	assert.Equal(t, "Strong @sam", d.Notes)

	_, err = c.CandidateDetail(ctx, "ghost")
	assert.Error(t, err)

	a, err := c.GetAssessment(ctx, "j1")
	require.NoError(t, err)
	assert.Nil(t, a.Structure)

	structure := domain.Structure{Title: "Quiz", Sections: []domain.Section{{
		ID: "s1", Title: "One",
		Questions: domain.Questions{domain.ShortText{QuestionBase: domain.QuestionBase{ID: "q1", Label: "Name"}, Required: true}},
	}}}
	require.NoError(t, c.SaveAssessment(ctx, "j1", structure))
	a, err = c.GetAssessment(ctx, "j1")
	require.NoError(t, err)
	require.NotNil(t, a.Structure)
	q, ok := a.Structure.Question("q1")
	require.True(t, ok)
	assert.Equal(t, domain.ShortTextType, q.Type())

	_, err = c.SubmitAssessment(ctx, "j1", "c1", map[string]any{})
	var apiErr *talentflowsdk.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "This field is required.", apiErr.Fields["q1"])

	id, err := c.SubmitAssessment(ctx, "j1", "c1", map[string]any{"q1": "Lena"})
	require.NoError(t, err)
	assert.Positive(t, id)
}

func TestOptimisticMoveOverHTTP(t *testing.T) {
	c, e := newClient(t, engine.AlwaysFail{})
	ctx := context.Background()
	cand := domain.Candidate{ID: "c1", Name: "Omar", Email: "o@x", Stage: domain.StageScreen, JobID: "j"}
	require.NoError(t, e.Repo.AddCandidate(ctx, cand))

	view := optimistic.NewCandidateView([]domain.Candidate{cand})
	out, err := optimistic.MoveCandidate(ctx, view, c, "c1", domain.StageOffer)
	require.Error(t, err)
	assert.Equal(t, optimistic.RolledBack, out.State)
	assert.Equal(t, domain.StageScreen, view.State()[0].Stage)
	assert.EqualError(t, err, "Failed to update candidate stage")
}
