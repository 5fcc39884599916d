package engine

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"talentflow/internal/config"
)

// Op names a simulated service operation.
type Op string

const (
	OpRead    Op = "read"
	OpWrite   Op = "write"
	OpStage   Op = "stage"
	OpReorder Op = "reorder"
)

// FaultPolicy decides the artificial latency of each call and whether a
// write should fail.
type FaultPolicy interface {
	Delay(op Op) time.Duration
	ShouldFail(rate float64) bool
}

// RandomFaults draws latency uniformly from the configured window and fails
// writes with the configured probability.
type RandomFaults struct {
	Min, Max time.Duration
	Stage    time.Duration

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewRandomFaults builds a policy from config. A zero seed is replaced by the
// current time.
func NewRandomFaults(cfg *config.Config, seed uint64) *RandomFaults {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &RandomFaults{
		Min:   cfg.Latency.Min,
		Max:   cfg.Latency.Max,
		Stage: cfg.Latency.Stage,
		rnd:   rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

func (f *RandomFaults) Delay(op Op) time.Duration {
	if op == OpStage {
		return f.Stage
	}
	if f.Max <= f.Min {
		return f.Min
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Min + time.Duration(f.rnd.Int64N(int64(f.Max-f.Min)))
}

func (f *RandomFaults) ShouldFail(rate float64) bool {
	if rate <= 0 {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rnd.Float64() < rate
}

// NoFaults never delays and never fails.
type NoFaults struct{}

func (NoFaults) Delay(Op) time.Duration  { return 0 }
func (NoFaults) ShouldFail(float64) bool { return false }

// AlwaysFail never delays and fails every write that has a non-zero rate.
type AlwaysFail struct{}

func (AlwaysFail) Delay(Op) time.Duration       { return 0 }
func (AlwaysFail) ShouldFail(rate float64) bool { return rate > 0 }

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
