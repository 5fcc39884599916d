package repo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"talentflow/internal/domain"
)

// AddTimelineEvent appends one event and returns its assigned id.
func (r Repo) AddTimelineEvent(ctx context.Context, ev domain.TimelineEvent) (int64, error) {
	res, err := r.q().ExecContext(ctx, `INSERT INTO candidate_timeline(candidate_id,ts,event) VALUES (?,?,?)`,
		ev.CandidateID, formatTime(ev.Timestamp), ev.Event)
	if err != nil {
		return 0, fmt.Errorf("add timeline event: %w", err)
	}
	return res.LastInsertId()
}

func (r Repo) BulkAddTimeline(ctx context.Context, events []domain.TimelineEvent) error {
	stmt, err := r.q().PrepareContext(ctx, `INSERT INTO candidate_timeline(candidate_id,ts,event) VALUES (?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, ev := range events {
		if _, err := stmt.ExecContext(ctx, ev.CandidateID, formatTime(ev.Timestamp), ev.Event); err != nil {
			return fmt.Errorf("add timeline event for %s: %w", ev.CandidateID, err)
		}
	}
	return nil
}

// Timeline returns every event recorded for a candidate in insertion order.
func (r Repo) Timeline(ctx context.Context, candidateID string) ([]domain.TimelineEvent, error) {
	rows, err := r.q().QueryContext(ctx, `SELECT id,candidate_id,ts,event FROM candidate_timeline WHERE candidate_id=? ORDER BY id`, candidateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.TimelineEvent{}
	for rows.Next() {
		var (
			ev domain.TimelineEvent
			ts string
		)
		if err := rows.Scan(&ev.ID, &ev.CandidateID, &ts, &ev.Event); err != nil {
			return nil, err
		}
		if ev.Timestamp, err = parseTime(ts); err != nil {
			return nil, fmt.Errorf("timeline event %d: %w", ev.ID, err)
		}
		res = append(res, ev)
	}
	return res, rows.Err()
}

func (r Repo) CountTimeline(ctx context.Context) (int, error) {
	var n int
	err := r.q().QueryRowContext(ctx, `SELECT COUNT(*) FROM candidate_timeline`).Scan(&n)
	return n, err
}

func (r Repo) GetNote(ctx context.Context, candidateID string) (domain.Note, error) {
	n := domain.Note{CandidateID: candidateID}
	err := r.q().QueryRowContext(ctx, `SELECT content FROM candidate_notes WHERE candidate_id=?`, candidateID).Scan(&n.Content)
	if err == sql.ErrNoRows {
		return n, ErrNotFound
	}
	return n, err
}

// PutNote replaces the candidate's note wholesale.
func (r Repo) PutNote(ctx context.Context, n domain.Note, at time.Time) error {
	_, err := r.q().ExecContext(ctx, `INSERT INTO candidate_notes(candidate_id,content,updated_at) VALUES (?,?,?)
ON CONFLICT(candidate_id) DO UPDATE SET content=excluded.content, updated_at=excluded.updated_at`,
		n.CandidateID, n.Content, formatTime(at))
	return err
}
