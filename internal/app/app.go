package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"talentflow/internal/config"
	"talentflow/internal/db"
	"talentflow/internal/engine"
	"talentflow/internal/migrate"
	"talentflow/internal/repo"
	"talentflow/internal/seed"
)

// Options control how a workspace is opened.
type Options struct {
	// Simulate enables config-driven latency and random write failures.
	Simulate bool
	Log      *slog.Logger
}

// Env is an opened workspace: its database, config and service engine.
type Env struct {
	Workspace string
	DB        *sql.DB
	Config    *config.Config
	Engine    engine.Engine
	Log       *slog.Logger
}

// Open prepares the workspace directory, migrates its database and builds
// the engine with the fault policy selected by opts.
func Open(ctx context.Context, workspace string, opts Options) (*Env, error) {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	e := engine.New(conn, cfg)
	e.Log = log
	if opts.Simulate {
		e.Faults = engine.NewRandomFaults(cfg, uint64(cfg.Seed.RandomSeed))
		log.Debug("simulating service faults",
			"latency_min", cfg.Latency.Min,
			"latency_max", cfg.Latency.Max,
			"write_failure", cfg.Failure.Write,
		)
	}
	return &Env{Workspace: workspace, DB: conn, Config: cfg, Engine: e, Log: log}, nil
}

// Seeder returns a seeder for the workspace store sized by the config.
func (e *Env) Seeder(force bool) seed.Seeder {
	s := uint64(e.Config.Seed.RandomSeed)
	if s == 0 {
		s = uint64(time.Now().UnixNano())
	}
	return seed.Seeder{
		Repo:       repo.Repo{DB: e.DB},
		Rand:       rand.New(rand.NewPCG(s, s>>1|1)),
		Now:        time.Now,
		Log:        e.Log,
		Jobs:       e.Config.Seed.Jobs,
		Candidates: e.Config.Seed.Candidates,
		Force:      force,
	}
}

// Seed runs the seeder while holding the workspace lock.
func (e *Env) Seed(ctx context.Context, force bool) (seed.Result, error) {
	lock, err := db.Lock(ctx, e.Workspace)
	if err != nil {
		return seed.Result{}, err
	}
	defer lock.Unlock()
	return e.Seeder(force).Seed(ctx)
}

func (e *Env) Close() error {
	if e == nil || e.DB == nil {
		return nil
	}
	return e.DB.Close()
}
