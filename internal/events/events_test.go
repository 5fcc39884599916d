package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"talentflow/internal/db"
	"talentflow/internal/domain"
	"talentflow/internal/migrate"
	"talentflow/internal/repo"
)

func TestHubFanOut(t *testing.T) {
	h := NewHub()
	a, b := h.Subscribe(), h.Subscribe()
	h.Publish(Change{Type: "job.created", Key: "j1"})
	assert.Equal(t, "j1", (<-a).Key)
	assert.Equal(t, "job.created", (<-b).Type)

	h.Unsubscribe(a)
	_, open := <-a
	assert.False(t, open)
	h.Unsubscribe(a)

	for range 40 {
		h.Publish(Change{Type: "flood"})
	}
	assert.Len(t, b, cap(b), "slow subscribers drop instead of blocking")

	var nilHub *Hub
	nilHub.Publish(Change{Type: "ignored"})
}

func TestWriterAppendsInsideTransaction(t *testing.T) {
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, migrate.Migrate(conn))
	r := repo.Repo{DB: conn}
	ctx := context.Background()
	at := time.Date(2024, 7, 1, 9, 30, 0, 0, time.FixedZone("CET", 3600))
	w := Writer{Now: func() time.Time { return at }}

	var ev domain.TimelineEvent
	err = r.Transaction(ctx, []repo.Collection{repo.Timeline}, func(tx repo.Repo) error {
		var err error
		ev, err = w.AppendStage(ctx, tx, "c1", domain.StageOffer)
		return err
	})
	require.NoError(t, err)
	assert.Positive(t, ev.ID)
	assert.Equal(t, "stage:offer", ev.Event)
	assert.Equal(t, time.UTC, ev.Timestamp.Location())

	stored, err := r.Timeline(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.True(t, stored[0].Timestamp.Equal(at))
}
