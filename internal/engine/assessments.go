package engine

import (
	"context"
	"errors"
	"strings"

	"talentflow/internal/domain"
	"talentflow/internal/repo"
)

// GetAssessment returns the job's assessment. A job without one yields a nil
// Structure rather than an error.
func (e Engine) GetAssessment(ctx context.Context, jobID string) (domain.Assessment, error) {
	if err := e.latency(ctx, OpRead); err != nil {
		return domain.Assessment{}, err
	}
	a, err := e.Repo.GetAssessment(ctx, jobID)
	if errors.Is(err, repo.ErrNotFound) {
		return domain.Assessment{JobID: jobID}, nil
	}
	return a, err
}

// SaveAssessment validates raw structure JSON and replaces the job's assessment.
func (e Engine) SaveAssessment(ctx context.Context, jobID string, raw []byte) (domain.Assessment, error) {
	jobID, err := requireID("jobId", jobID)
	if err != nil {
		return domain.Assessment{}, err
	}
	s, err := domain.ParseStructure(raw)
	if err != nil {
		var serr *domain.StructureError
		if errors.As(err, &serr) {
			fields := make(map[string]string, len(serr.Errors))
			for _, fe := range serr.Errors {
				fields[fe.Field] = fe.Message
			}
			return domain.Assessment{}, &ValidationError{Field: "structure", Message: serr.Error(), Fields: fields}
		}
		return domain.Assessment{}, invalid("structure", "%v", err)
	}
	if err := e.write(ctx, OpWrite, e.config().Failure.Write, "Failed to save assessment"); err != nil {
		return domain.Assessment{}, err
	}
	a := domain.Assessment{JobID: jobID, Structure: s}
	if err := e.Repo.PutAssessment(ctx, a); err != nil {
		return domain.Assessment{}, err
	}
	e.publish("assessment.saved", jobID)
	return a, nil
}

// SubmitAssessment validates a candidate's answers and stores them.
func (e Engine) SubmitAssessment(ctx context.Context, jobID, candidateID string, answers map[string]any) (domain.AssessmentResponse, error) {
	jobID, err := requireID("jobId", jobID)
	if err != nil {
		return domain.AssessmentResponse{}, err
	}
	candidateID, err = requireID("candidateId", candidateID)
	if err != nil {
		return domain.AssessmentResponse{}, err
	}
	a, err := e.Repo.GetAssessment(ctx, jobID)
	if errors.Is(err, repo.ErrNotFound) {
		return domain.AssessmentResponse{}, notFound("assessment", jobID)
	}
	if err != nil {
		return domain.AssessmentResponse{}, err
	}
	if _, err := e.Repo.GetCandidate(ctx, candidateID); errors.Is(err, repo.ErrNotFound) {
		return domain.AssessmentResponse{}, notFound("candidate", candidateID)
	} else if err != nil {
		return domain.AssessmentResponse{}, err
	}
	if answers == nil {
		answers = map[string]any{}
	}
	if err := domain.ValidateResponses(*a.Structure, answers); err != nil {
		var rerr domain.ResponseErrors
		if errors.As(err, &rerr) {
			return domain.AssessmentResponse{}, &ValidationError{Field: "responses", Message: strings.TrimPrefix(rerr.Error(), "invalid responses: "), Fields: rerr}
		}
		return domain.AssessmentResponse{}, err
	}
	if err := e.write(ctx, OpWrite, e.config().Failure.Write, "Failed to submit assessment"); err != nil {
		return domain.AssessmentResponse{}, err
	}
	resp := domain.AssessmentResponse{
		AssessmentID: jobID,
		CandidateID:  candidateID,
		SubmittedAt:  e.now().UTC(),
		Responses:    answers,
	}
	id, err := e.Repo.AddResponse(ctx, resp)
	if err != nil {
		return domain.AssessmentResponse{}, err
	}
	resp.ID = id
	e.publish("assessment.submitted", jobID)
	return resp, nil
}

// Responses lists the submissions recorded for a job's assessment.
func (e Engine) Responses(ctx context.Context, jobID string) ([]domain.AssessmentResponse, error) {
	if err := e.latency(ctx, OpRead); err != nil {
		return nil, err
	}
	return e.Repo.ListResponses(ctx, jobID)
}
