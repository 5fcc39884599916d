package server

import (
	"encoding/json"
	"fmt"

	"talentflow/internal/domain"
	"talentflow/internal/repo"
)

// Request payloads

type CreateJobRequest struct {
	Title       string   `json:"title" minLength:"1" maxLength:"200"`
	Description string   `json:"description,omitempty"`
	Slug        string   `json:"slug,omitempty"`
	Status      string   `json:"status,omitempty" doc:"Ignored; new jobs start active"`
	Tags        []string `json:"tags,omitempty"`
	Order       *int     `json:"order,omitempty" doc:"Ignored; new jobs are appended to the board"`
}

type UpdateJobRequest struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Slug        *string   `json:"slug,omitempty"`
	Status      *string   `json:"status,omitempty" enum:"active,archived"`
	Tags        *[]string `json:"tags,omitempty"`
	Order       *int      `json:"order,omitempty" doc:"Rejected; use the reorder endpoint"`
}

func (r UpdateJobRequest) patch() repo.JobPatch {
	p := repo.JobPatch{
		Title:       r.Title,
		Description: r.Description,
		Slug:        r.Slug,
		Tags:        r.Tags,
		Order:       r.Order,
	}
	if r.Status != nil {
		st := domain.JobStatus(*r.Status)
		p.Status = &st
	}
	return p
}

type ReorderRequest struct {
	FromOrder int `json:"fromOrder" minimum:"0"`
	ToOrder   int `json:"toOrder" minimum:"0"`
}

type StageRequest struct {
	Stage string `json:"stage"`
}

type NotesRequest struct {
	Content string `json:"content"`
}

type SaveAssessmentRequest struct {
	Structure map[string]any `json:"structure"`
}

type SubmitAssessmentRequest struct {
	CandidateID string         `json:"candidateId"`
	Responses   map[string]any `json:"responses,omitempty"`
}

// Response payloads

type SuccessResponse struct {
	Success bool `json:"success"`
}

type SubmitResponse struct {
	Success bool  `json:"success"`
	ID      int64 `json:"id"`
}

type CandidateListResponse struct {
	Candidates []domain.CandidateSummary `json:"candidates"`
	Total      int                       `json:"total"`
}

type NotesResponse struct {
	Content string `json:"content"`
}

type AssessmentResponse struct {
	JobID     string         `json:"jobId"`
	Structure map[string]any `json:"structure" nullable:"true"`
}

// updateEcho mirrors the applied patch back as {success, id, ...updates}.
func updateEcho(id string, p repo.JobPatch) map[string]any {
	out := map[string]any{"success": true, "id": id}
	if p.Title != nil {
		out["title"] = *p.Title
	}
	if p.Description != nil {
		out["description"] = *p.Description
	}
	if p.Slug != nil {
		out["slug"] = *p.Slug
	}
	if p.Status != nil {
		out["status"] = string(*p.Status)
	}
	if p.Tags != nil {
		out["tags"] = *p.Tags
	}
	return out
}

// structureMap converts a structure into its generic JSON form.
func structureMap(s *domain.Structure) (map[string]any, error) {
	if s == nil {
		return nil, nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode structure: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}
