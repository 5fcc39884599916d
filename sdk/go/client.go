package talentflowsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"talentflow/internal/domain"
)

// Client is a typed TalentFlow HTTP API client.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// APIError wraps non-2xx responses. Message carries the server's
// {message} field, or the status text when the body has none.
type APIError struct {
	StatusCode int
	Message    string
	Fields     map[string]string
	Body       string
}

func (e *APIError) Error() string {
	return e.Message
}

// Success is the body of writes that return no entity.
type Success struct {
	Success bool  `json:"success"`
	ID      int64 `json:"id,omitempty"`
}

type JobQuery struct {
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

type JobStats struct {
	Total  int `json:"total"`
	Active int `json:"active"`
}

// NewJob is the create payload; Title is required.
type NewJob struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Slug        string   `json:"slug,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// JobUpdate holds the fields to change; nil fields are left alone.
type JobUpdate struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Slug        *string   `json:"slug,omitempty"`
	Status      *string   `json:"status,omitempty"`
	Tags        *[]string `json:"tags,omitempty"`
}

type CandidateQuery struct {
	Stage  string
	Search string
}

type CandidateList struct {
	Candidates []domain.CandidateSummary `json:"candidates"`
	Total      int                       `json:"total"`
}

type Assessment struct {
	JobID     string            `json:"jobId"`
	Structure *domain.Structure `json:"structure"`
}

// CandidateDetail bundles everything a candidate profile page shows.
type CandidateDetail struct {
	Candidate domain.Candidate
	Timeline  []domain.TimelineEvent
	Notes     string
}

// ListJobs returns one page of the job board.
func (c *Client) ListJobs(ctx context.Context, q JobQuery) (JobPage, error) {
	v := url.Values{}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.PageSize > 0 {
		v.Set("pageSize", strconv.Itoa(q.PageSize))
	}
	if q.Status != "" {
		v.Set("status", q.Status)
	}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if len(q.Tags) > 0 {
		v.Set("tags", strings.Join(q.Tags, ","))
	}
	var resp JobPage
	err := c.do(ctx, http.MethodGet, withQuery("jobs", v), nil, &resp)
	return resp, err
}

// GetJob fetches a job by id.
func (c *Client) GetJob(ctx context.Context, id string) (domain.Job, error) {
	var resp domain.Job
	err := c.do(ctx, http.MethodGet, "jobs/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

// CreateJob creates a job at the end of the board.
func (c *Client) CreateJob(ctx context.Context, j NewJob) (domain.Job, error) {
	var resp domain.Job
	err := c.do(ctx, http.MethodPost, "jobs", j, &resp)
	return resp, err
}

// UpdateJob applies a partial update and returns the server's echo.
func (c *Client) UpdateJob(ctx context.Context, id string, u JobUpdate) (map[string]any, error) {
	var resp map[string]any
	err := c.do(ctx, http.MethodPatch, "jobs/"+url.PathEscape(id), u, &resp)
	return resp, err
}

// ReorderJob moves a job between board positions.
func (c *Client) ReorderJob(ctx context.Context, id string, fromOrder, toOrder int) error {
	body := map[string]int{"fromOrder": fromOrder, "toOrder": toOrder}
	var resp Success
	return c.do(ctx, http.MethodPatch, fmt.Sprintf("jobs/%s/reorder", url.PathEscape(id)), body, &resp)
}

func (c *Client) JobTitles(ctx context.Context) ([]domain.JobTitle, error) {
	var resp []domain.JobTitle
	err := c.do(ctx, http.MethodGet, "jobs/titles", nil, &resp)
	return resp, err
}

func (c *Client) JobTags(ctx context.Context) ([]string, error) {
	var resp []string
	err := c.do(ctx, http.MethodGet, "jobs/tags", nil, &resp)
	return resp, err
}

func (c *Client) JobStats(ctx context.Context) (JobStats, error) {
	var resp JobStats
	err := c.do(ctx, http.MethodGet, "jobs/stats", nil, &resp)
	return resp, err
}

// ListCandidates returns candidates matching q, each with its job title.
func (c *Client) ListCandidates(ctx context.Context, q CandidateQuery) (CandidateList, error) {
	v := url.Values{}
	if q.Stage != "" {
		v.Set("stage", q.Stage)
	}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	var resp CandidateList
	err := c.do(ctx, http.MethodGet, withQuery("candidates", v), nil, &resp)
	return resp, err
}

func (c *Client) CandidatesByJob(ctx context.Context, jobID string) (CandidateList, error) {
	var resp CandidateList
	err := c.do(ctx, http.MethodGet, "candidates/job/"+url.PathEscape(jobID), nil, &resp)
	return resp, err
}

func (c *Client) GetCandidate(ctx context.Context, id string) (domain.Candidate, error) {
	var resp domain.Candidate
	err := c.do(ctx, http.MethodGet, "candidates/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

// UpdateCandidateStage moves a candidate and returns the stored record.
func (c *Client) UpdateCandidateStage(ctx context.Context, id, stage string) (domain.Candidate, error) {
	var resp domain.Candidate
	endpoint := fmt.Sprintf("candidates/%s/stage", url.PathEscape(id))
	err := c.do(ctx, http.MethodPatch, endpoint, map[string]string{"stage": stage}, &resp)
	return resp, err
}

func (c *Client) Timeline(ctx context.Context, id string) ([]domain.TimelineEvent, error) {
	var resp []domain.TimelineEvent
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("candidates/%s/timeline", url.PathEscape(id)), nil, &resp)
	return resp, err
}

func (c *Client) Notes(ctx context.Context, id string) (string, error) {
	var resp struct {
		Content string `json:"content"`
	}
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("candidates/%s/notes", url.PathEscape(id)), nil, &resp)
	return resp.Content, err
}

func (c *Client) SaveNotes(ctx context.Context, id, content string) error {
	var resp Success
	endpoint := fmt.Sprintf("candidates/%s/notes", url.PathEscape(id))
	return c.do(ctx, http.MethodPut, endpoint, map[string]string{"content": content}, &resp)
}

// CandidateDetail loads a candidate with its timeline and notes in parallel.
func (c *Client) CandidateDetail(ctx context.Context, id string) (CandidateDetail, error) {
	var d CandidateDetail
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		d.Candidate, err = c.GetCandidate(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		d.Timeline, err = c.Timeline(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		d.Notes, err = c.Notes(gctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		return CandidateDetail{}, err
	}
	return d, nil
}

// GetAssessment returns the job's assessment; Structure is nil when none
// has been saved.
func (c *Client) GetAssessment(ctx context.Context, jobID string) (Assessment, error) {
	var resp Assessment
	err := c.do(ctx, http.MethodGet, "assessments/"+url.PathEscape(jobID), nil, &resp)
	return resp, err
}

// SaveAssessment replaces the job's assessment structure. structure may be a
// domain.Structure or any value that encodes to the same JSON.
func (c *Client) SaveAssessment(ctx context.Context, jobID string, structure any) error {
	var resp Success
	body := map[string]any{"structure": structure}
	return c.do(ctx, http.MethodPut, "assessments/"+url.PathEscape(jobID), body, &resp)
}

// SubmitAssessment stores a candidate's answers and returns the response id.
func (c *Client) SubmitAssessment(ctx context.Context, jobID, candidateID string, answers map[string]any) (int64, error) {
	var resp Success
	body := map[string]any{"candidateId": candidateID, "responses": answers}
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("assessments/%s/submit", url.PathEscape(jobID)), body, &resp)
	return resp.ID, err
}

func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "health", nil, nil)
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return newAPIError(resp.StatusCode, data)
	}
	if out == nil {
		return nil
	}
	if s, ok := out.(*Success); ok && !json.Valid(bytes.TrimSpace(data)) {
		*s = Success{Success: true}
		return nil
	}
	return json.Unmarshal(data, out)
}

func newAPIError(status int, body []byte) *APIError {
	e := &APIError{StatusCode: status, Body: string(body)}
	var env struct {
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
	}
	if json.Unmarshal(body, &env) == nil && env.Message != "" {
		e.Message = env.Message
		e.Fields = env.Fields
	} else {
		e.Message = http.StatusText(status)
	}
	return e
}

func withQuery(p string, v url.Values) string {
	if len(v) == 0 {
		return p
	}
	return p + "?" + v.Encode()
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
