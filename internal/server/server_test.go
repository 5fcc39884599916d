package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"talentflow/internal/config"
	"talentflow/internal/db"
	"talentflow/internal/domain"
	"talentflow/internal/engine"
	"talentflow/internal/migrate"
)

type testServer struct {
	URL    string
	Engine engine.Engine
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T, basePath string) *testServer {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	require.NoError(t, migrate.Migrate(conn))
	e := engine.New(conn, config.Default())
	e.Now = func() time.Time { return time.Date(2024, 2, 2, 10, 0, 0, 0, time.UTC) }
	handler, err := New(Config{Engine: e, BasePath: basePath})
	require.NoError(t, err)
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	ts := &testServer{
		URL:    "http://" + ln.Addr().String() + basePath,
		Engine: e,
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader = bytes.NewReader(nil)
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	res, err := client.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res, data
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoErrorf(t, json.Unmarshal(data, &v), "body: %s", data)
	return v
}

func (s *testServer) addJobs(t *testing.T, n int) {
	t.Helper()
	for i := range n {
		require.NoError(t, s.Engine.Repo.AddJob(context.Background(), domain.Job{
			ID: fmt.Sprintf("job-%02d", i), Title: fmt.Sprintf("Job %d", i), Slug: fmt.Sprintf("job-%d", i),
			Status: domain.JobActive, Tags: []string{"Go"}, Order: i,
		}))
	}
}

func TestHealthAndOpenAPI(t *testing.T) {
	srv := newTestServer(t, "")
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/health", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(data))

	res, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/openapi.json", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	spec := decode[map[string]any](t, data)
	paths, ok := spec["paths"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, paths, "/jobs/{id}/reorder")
	assert.Contains(t, paths, "/assessments/{jobId}/submit")
}

func TestBasePath(t *testing.T) {
	srv := newTestServer(t, "/api")
	res, _ := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/jobs", nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestJobsEndpoints(t *testing.T) {
	srv := newTestServer(t, "")
	srv.addJobs(t, 12)
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/jobs?page=2&pageSize=5&tags=Go", nil)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	page := decode[engine.JobPage](t, data)
	assert.Equal(t, 12, page.Total)
	require.Len(t, page.Jobs, 5)
	assert.Equal(t, 5, page.Jobs[0].Order)

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/jobs", map[string]any{"title": "Data Scientist", "status": "archived", "tags": []string{"Python"}})
	require.Equal(t, http.StatusCreated, res.StatusCode, string(data))
	created := decode[domain.Job](t, data)
	assert.Equal(t, 12, created.Order)
	assert.Equal(t, "data-scientist", created.Slug)
	assert.Equal(t, domain.JobActive, created.Status)

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/jobs", map[string]any{"description": "no title"})
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.NotEmpty(t, decode[map[string]any](t, data)["message"])

	res, data = doJSON(t, client, http.MethodPatch, srv.URL+"/jobs/"+created.ID, map[string]any{"status": "archived"})
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	assert.JSONEq(t, fmt.Sprintf(`{"success":true,"id":%q,"status":"archived"}`, created.ID), string(data))

	res, _ = doJSON(t, client, http.MethodPatch, srv.URL+"/jobs/"+created.ID, map[string]any{"order": 0})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res, _ = doJSON(t, client, http.MethodPatch, srv.URL+"/jobs/nope", map[string]any{"title": "x"})
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	res, data = doJSON(t, client, http.MethodPatch, srv.URL+"/jobs/job-01/reorder", map[string]any{"fromOrder": 1, "toOrder": 3})
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	assert.JSONEq(t, `{"success":true}`, string(data))

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/jobs/job-01", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, 3, decode[domain.Job](t, data).Order)

	res, data = doJSON(t, client, http.MethodPatch, srv.URL+"/jobs/job-01/reorder", map[string]any{"fromOrder": 0, "toOrder": 2})
	assert.Equal(t, http.StatusInternalServerError, res.StatusCode, string(data))

	res, _ = doJSON(t, client, http.MethodGet, srv.URL+"/jobs/missing", nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/jobs/stats", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.JSONEq(t, `{"total":13,"active":12}`, string(data))

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/jobs/tags", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.JSONEq(t, `["Go","Python"]`, string(data))

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/jobs/titles", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Len(t, decode[[]domain.JobTitle](t, data), 13)
}

func TestSimulatedFailureEnvelope(t *testing.T) {
	srv := newTestServer(t, "")
	srv.Engine.Faults = engine.AlwaysFail{}
	handler, err := New(Config{Engine: srv.Engine})
	require.NoError(t, err)
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	hs := &http.Server{Handler: handler}
	go hs.Serve(ln)
	defer hs.Shutdown(context.Background())

	res, data := doJSON(t, srv.Client(), http.MethodPost, "http://"+ln.Addr().String()+"/jobs", map[string]any{"title": "x"})
	require.Equal(t, http.StatusInternalServerError, res.StatusCode)
	assert.JSONEq(t, `{"message":"Failed to create job"}`, string(data))
}

func TestCandidateEndpoints(t *testing.T) {
	srv := newTestServer(t, "")
	srv.addJobs(t, 1)
	ctx := context.Background()
	require.NoError(t, srv.Engine.Repo.AddCandidate(ctx, domain.Candidate{ID: "c1", Name: "Mia Patel", Email: "mia.patel1@example.com", Stage: domain.StageApplied, JobID: "job-00"}))
	require.NoError(t, srv.Engine.Repo.AddCandidate(ctx, domain.Candidate{ID: "c2", Name: "Tom Kim", Email: "tom.kim2@example.com", Stage: domain.StageOffer, JobID: "other"}))
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/candidates?search=patel", nil)
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	list := decode[CandidateListResponse](t, data)
	require.Equal(t, 1, list.Total)
	assert.Equal(t, "Job 0", list.Candidates[0].JobTitle)

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/candidates/job/other", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	list = decode[CandidateListResponse](t, data)
	require.Equal(t, 1, list.Total)
	assert.Equal(t, "Unknown Job", list.Candidates[0].JobTitle)

	res, data = doJSON(t, client, http.MethodPatch, srv.URL+"/candidates/c1/stage", map[string]any{"stage": "screen"})
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	assert.Equal(t, domain.StageScreen, decode[domain.Candidate](t, data).Stage)

	res, _ = doJSON(t, client, http.MethodPatch, srv.URL+"/candidates/c1/stage", map[string]any{"stage": "lunch"})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	res, _ = doJSON(t, client, http.MethodPatch, srv.URL+"/candidates/zz/stage", map[string]any{"stage": "tech"})
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/candidates/c1/timeline", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	events := decode[[]domain.TimelineEvent](t, data)
	require.Len(t, events, 1)
	assert.Equal(t, "stage:screen", events[0].Event)

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/candidates/c1/notes", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.JSONEq(t, `{"content":""}`, string(data))

	res, data = doJSON(t, client, http.MethodPut, srv.URL+"/candidates/c1/notes", map[string]any{"content": "Great call"})
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	assert.JSONEq(t, `{"success":true}`, string(data))

	_, data = doJSON(t, client, http.MethodGet, srv.URL+"/candidates/c1/notes", nil)
	assert.JSONEq(t, `{"content":"Great call"}`, string(data))

	res, _ = doJSON(t, client, http.MethodGet, srv.URL+"/candidates/nobody", nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestAssessmentEndpoints(t *testing.T) {
	srv := newTestServer(t, "")
	require.NoError(t, srv.Engine.Repo.AddCandidate(context.Background(), domain.Candidate{ID: "c1", Name: "A", Email: "a@x", Stage: domain.StageTech, JobID: "job-00"}))
	client := srv.Client()

	res, data := doJSON(t, client, http.MethodGet, srv.URL+"/assessments/job-00", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.JSONEq(t, `{"jobId":"job-00","structure":null}`, string(data))

	structure := map[string]any{
		"title": "Screen",
		"sections": []any{map[string]any{
			"id": "s1", "title": "Basics",
			"questions": []any{
				map[string]any{"id": "q1", "type": "numeric", "label": "Years", "validation": map[string]any{"required": true, "min": 0, "max": 20}},
			},
		}},
	}
	res, data = doJSON(t, client, http.MethodPut, srv.URL+"/assessments/job-00", map[string]any{"structure": structure})
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))

	res, data = doJSON(t, client, http.MethodGet, srv.URL+"/assessments/job-00", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	got := decode[AssessmentResponse](t, data)
	assert.Equal(t, "Screen", got.Structure["title"])

	res, data = doJSON(t, client, http.MethodPut, srv.URL+"/assessments/job-00", map[string]any{"structure": map[string]any{"title": "no sections"}})
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Contains(t, decode[map[string]any](t, data), "fields")

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/assessments/job-00/submit", map[string]any{"candidateId": "c1", "responses": map[string]any{"q1": 25}})
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Equal(t, "Value must be 20 or less.", decode[apiError](t, data).Fields["q1"])

	res, data = doJSON(t, client, http.MethodPost, srv.URL+"/assessments/job-00/submit", map[string]any{"candidateId": "c1", "responses": map[string]any{"q1": 4}})
	require.Equal(t, http.StatusOK, res.StatusCode, string(data))
	assert.True(t, decode[SubmitResponse](t, data).Success)

	res, _ = doJSON(t, client, http.MethodPost, srv.URL+"/assessments/job-99/submit", map[string]any{"candidateId": "c1"})
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}
