package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"talentflow/internal/domain"
)

func (r Repo) GetAssessment(ctx context.Context, jobID string) (domain.Assessment, error) {
	a := domain.Assessment{JobID: jobID}
	var raw string
	err := r.q().QueryRowContext(ctx, `SELECT structure_json FROM assessments WHERE job_id=?`, jobID).Scan(&raw)
	if err == sql.ErrNoRows {
		return a, ErrNotFound
	}
	if err != nil {
		return a, err
	}
	var s domain.Structure
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return a, fmt.Errorf("assessment %s structure: %w", jobID, err)
	}
	a.Structure = &s
	return a, nil
}

// PutAssessment replaces the whole assessment document for a job.
func (r Repo) PutAssessment(ctx context.Context, a domain.Assessment) error {
	raw, err := json.Marshal(a.Structure)
	if err != nil {
		return err
	}
	_, err = r.q().ExecContext(ctx, `INSERT INTO assessments(job_id,structure_json) VALUES (?,?)
ON CONFLICT(job_id) DO UPDATE SET structure_json=excluded.structure_json`, a.JobID, string(raw))
	return err
}

func (r Repo) BulkPutAssessments(ctx context.Context, items []domain.Assessment) error {
	for _, a := range items {
		if err := r.PutAssessment(ctx, a); err != nil {
			return fmt.Errorf("put assessment %s: %w", a.JobID, err)
		}
	}
	return nil
}

func (r Repo) CountAssessments(ctx context.Context) (int, error) {
	var n int
	err := r.q().QueryRowContext(ctx, `SELECT COUNT(*) FROM assessments`).Scan(&n)
	return n, err
}

// AddResponse appends a submission and returns its assigned id.
func (r Repo) AddResponse(ctx context.Context, resp domain.AssessmentResponse) (int64, error) {
	answers := resp.Responses
	if answers == nil {
		answers = map[string]any{}
	}
	raw, err := json.Marshal(answers)
	if err != nil {
		return 0, err
	}
	res, err := r.q().ExecContext(ctx, `INSERT INTO assessment_responses(assessment_id,candidate_id,submitted_at,responses_json) VALUES (?,?,?,?)`,
		resp.AssessmentID, resp.CandidateID, formatTime(resp.SubmittedAt), string(raw))
	if err != nil {
		return 0, fmt.Errorf("add response: %w", err)
	}
	return res.LastInsertId()
}

func (r Repo) ListResponses(ctx context.Context, assessmentID string) ([]domain.AssessmentResponse, error) {
	rows, err := r.q().QueryContext(ctx, `SELECT id,assessment_id,candidate_id,submitted_at,responses_json FROM assessment_responses WHERE assessment_id=? ORDER BY id`, assessmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.AssessmentResponse{}
	for rows.Next() {
		var (
			resp    domain.AssessmentResponse
			ts, raw string
		)
		if err := rows.Scan(&resp.ID, &resp.AssessmentID, &resp.CandidateID, &ts, &raw); err != nil {
			return nil, err
		}
		if resp.SubmittedAt, err = parseTime(ts); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(raw), &resp.Responses); err != nil {
			return nil, fmt.Errorf("response %d: %w", resp.ID, err)
		}
		res = append(res, resp)
	}
	return res, rows.Err()
}
