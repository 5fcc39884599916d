package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"talentflow/internal/config"
	"talentflow/internal/events"
	"talentflow/internal/repo"
)

// Engine is the mock service layer. Every call waits out a simulated network
// delay, and writes may fail according to Faults.
type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Hub    *events.Hub
	Config *config.Config
	Faults FaultPolicy
	Limits *OpLimiter
	Log    *slog.Logger
	Now    func() time.Time
}

func New(db *sql.DB, cfg *config.Config) Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Hub:    events.NewHub(),
		Config: cfg,
		Faults: NoFaults{},
		Limits: NewOpLimiter(cfg.Limits.WritesPerSecond, cfg.Limits.Burst),
		Log:    slog.Default(),
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) log() *slog.Logger {
	if e.Log != nil {
		return e.Log
	}
	return slog.Default()
}

func (e Engine) faults() FaultPolicy {
	if e.Faults != nil {
		return e.Faults
	}
	return NoFaults{}
}

func (e Engine) config() *config.Config {
	if e.Config != nil {
		return e.Config
	}
	return config.Default()
}

// latency waits out the simulated delay for op.
func (e Engine) latency(ctx context.Context, op Op) error {
	return sleep(ctx, e.faults().Delay(op))
}

// write paces a write, waits out its delay and rolls for a simulated failure.
func (e Engine) write(ctx context.Context, op Op, rate float64, message string) error {
	if err := e.Limits.Wait(ctx, op); err != nil {
		return err
	}
	if err := e.latency(ctx, op); err != nil {
		return err
	}
	if e.faults().ShouldFail(rate) {
		e.log().Warn("simulated failure", "op", op, "rate", rate, "message", message)
		return failure(message)
	}
	return nil
}

// transaction runs fn in a store transaction and logs aborts.
func (e Engine) transaction(ctx context.Context, name string, cols []repo.Collection, fn func(repo.Repo) error) error {
	err := e.Repo.Transaction(ctx, cols, fn)
	if err != nil && errors.Is(err, repo.ErrTransactionAborted) {
		e.log().Error("transaction aborted", "op", name, "err", err)
	}
	return err
}

func (e Engine) publish(typ, key string) {
	e.Hub.Publish(events.Change{Type: typ, Key: key})
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, repo.ErrNotFound)
}

func requireID(field, id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", invalid(field, "is required")
	}
	return id, nil
}
