package events

import (
	"context"
	"time"

	"talentflow/internal/domain"
	"talentflow/internal/repo"
)

// Writer appends stage events to the candidate timeline.
type Writer struct {
	Now func() time.Time
}

// AppendStage records that the candidate entered stage. r should be bound to
// the transaction that changed the candidate so both writes commit together.
func (w Writer) AppendStage(ctx context.Context, r repo.Repo, candidateID string, stage domain.Stage) (domain.TimelineEvent, error) {
	if w.Now == nil {
		w.Now = time.Now
	}
	ev := domain.TimelineEvent{
		CandidateID: candidateID,
		Timestamp:   w.Now().UTC(),
		Event:       domain.StageEvent(stage),
	}
	id, err := r.AddTimelineEvent(ctx, ev)
	if err != nil {
		return ev, err
	}
	ev.ID = id
	return ev, nil
}
