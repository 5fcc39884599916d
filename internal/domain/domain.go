package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

type JobStatus string

const (
	JobActive   JobStatus = "active"
	JobArchived JobStatus = "archived"
)

func (s JobStatus) Valid() bool {
	return s == JobActive || s == JobArchived
}

type Job struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Slug        string    `json:"slug"`
	Status      JobStatus `json:"status" enum:"active,archived"`
	Tags        []string  `json:"tags"`
	Order       int       `json:"order"`
}

// JobSummary is a job enriched with the number of candidates attached to it.
type JobSummary struct {
	Job
	Candidates int `json:"candidates"`
}

type JobTitle struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type Stage string

const (
	StageApplied  Stage = "applied"
	StageScreen   Stage = "screen"
	StageTech     Stage = "tech"
	StageOffer    Stage = "offer"
	StageHired    Stage = "hired"
	StageRejected Stage = "rejected"
)

// Stages lists every stage; the first five are the canonical happy path.
var Stages = []Stage{StageApplied, StageScreen, StageTech, StageOffer, StageHired, StageRejected}

// Pipeline is the canonical order a candidate moves through.
var Pipeline = []Stage{StageApplied, StageScreen, StageTech, StageOffer, StageHired}

func (s Stage) Valid() bool {
	for _, v := range Stages {
		if v == s {
			return true
		}
	}
	return false
}

// PipelineIndex returns the position of s in Pipeline, or -1 for rejected.
func (s Stage) PipelineIndex() int {
	for i, v := range Pipeline {
		if v == s {
			return i
		}
	}
	return -1
}

func ParseStage(s string) (Stage, error) {
	st := Stage(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", fmt.Errorf("invalid stage %q", s)
	}
	return st, nil
}

type Candidate struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Stage Stage  `json:"stage" enum:"applied,screen,tech,offer,hired,rejected"`
	JobID string `json:"jobId"`
}

// CandidateSummary is a candidate enriched with its job title.
type CandidateSummary struct {
	Candidate
	JobTitle string `json:"jobTitle"`
}

const stageEventPrefix = "stage:"

type TimelineEvent struct {
	ID          int64     `json:"id"`
	CandidateID string    `json:"candidateId"`
	Timestamp   time.Time `json:"timestamp" format:"date-time"`
	Event       string    `json:"event"`
}

// StageEvent returns the timeline tag recorded when a candidate enters s.
func StageEvent(s Stage) string {
	return stageEventPrefix + string(s)
}

// Stage reports the stage an event records, if it is a stage event.
func (e TimelineEvent) Stage() (Stage, bool) {
	if !strings.HasPrefix(e.Event, stageEventPrefix) {
		return "", false
	}
	st := Stage(strings.TrimPrefix(e.Event, stageEventPrefix))
	return st, st.Valid()
}

type Note struct {
	CandidateID string `json:"candidateId"`
	Content     string `json:"content"`
}

type Assessment struct {
	JobID     string     `json:"jobId"`
	Structure *Structure `json:"structure"`
}

type Structure struct {
	Title    string    `json:"title"`
	Sections []Section `json:"sections"`
}

type Section struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Questions Questions `json:"questions"`
}

// Question looks up a question by id across all sections.
func (s Structure) Question(id string) (Question, bool) {
	for _, sec := range s.Sections {
		for _, q := range sec.Questions {
			if q.Base().ID == id {
				return q, true
			}
		}
	}
	return nil, false
}

type AssessmentResponse struct {
	ID           int64          `json:"id"`
	AssessmentID string         `json:"assessmentId"`
	CandidateID  string         `json:"candidateId"`
	SubmittedAt  time.Time      `json:"submittedAt" format:"date-time"`
	Responses    map[string]any `json:"responses"`
}

var (
	slugStrip = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugSpace = regexp.MustCompile(`[\s_]+`)
)

// Slugify lowercases title, drops punctuation and joins words with dashes.
func Slugify(title string) string {
	s := strings.ToLower(title)
	s = slugStrip.ReplaceAllString(s, "")
	s = slugSpace.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// NormalizeTags trims tags and drops blanks and duplicates, keeping first-seen order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
