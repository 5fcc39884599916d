package optimistic

import (
	"context"
	"errors"
	"sync"

	"talentflow/internal/events"
)

// State is where an optimistic operation stands.
type State string

const (
	Idle       State = "idle"
	Pending    State = "pending"
	Committed  State = "committed"
	RolledBack State = "rolled_back"
)

// ErrPending rejects an operation whose key already has one in flight.
var ErrPending = errors.New("an update for this item is already pending")

// Op is one optimistic change. Apply computes the proposed local state and
// must not mutate its argument. Call performs the server request and returns
// a reconcile function that folds the authoritative result into local state;
// a nil reconcile keeps the proposed state. Refresh, when set, re-fetches the
// whole state after a successful call.
type Op[S any] struct {
	Key     string
	Apply   func(S) S
	Call    func(ctx context.Context) (func(S) S, error)
	Refresh func(ctx context.Context) (S, error)
}

// Outcome reports how Do finished.
type Outcome struct {
	State      State
	Err        error
	RefreshErr error
}

// View holds client-side state and applies optimistic operations to it.
type View[S any] struct {
	Hub *events.Hub

	mu     sync.Mutex
	state  S
	clone  func(S) S
	status map[string]State
}

func NewView[S any](initial S, clone func(S) S) *View[S] {
	return &View[S]{state: initial, clone: clone, status: make(map[string]State)}
}

// State returns a copy of the current state.
func (v *View[S]) State() S {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.clone(v.state)
}

// Set replaces the state, typically with a fresh server read.
func (v *View[S]) Set(s S) {
	v.mu.Lock()
	v.state = s
	v.mu.Unlock()
}

// Status returns the last known state of the operation keyed by key.
func (v *View[S]) Status(key string) State {
	v.mu.Lock()
	defer v.mu.Unlock()
	if st, ok := v.status[key]; ok {
		return st
	}
	return Idle
}

// Do applies op locally, calls the server and then commits or rolls back.
// A failed call restores the exact snapshot taken before Apply and returns
// the call's error.
func (v *View[S]) Do(ctx context.Context, op Op[S]) (Outcome, error) {
	snapshot, err := v.begin(op)
	if err != nil {
		return Outcome{State: Pending, Err: err}, err
	}
	v.publish(op.Key, Pending, nil)

	reconcile, err := op.Call(ctx)
	if err != nil {
		v.finish(op.Key, RolledBack, func(S) S { return snapshot })
		v.publish(op.Key, RolledBack, err)
		return Outcome{State: RolledBack, Err: err}, err
	}
	v.finish(op.Key, Committed, reconcile)
	v.publish(op.Key, Committed, nil)

	out := Outcome{State: Committed}
	if op.Refresh != nil {
		fresh, rerr := op.Refresh(ctx)
		if rerr != nil {
			out.RefreshErr = rerr
		} else {
			v.Set(fresh)
		}
	}
	return out, nil
}

// begin applies op and marks its key pending. A panicking Apply leaves the
// state and the key untouched.
func (v *View[S]) begin(op Op[S]) (S, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.status[op.Key] == Pending {
		var zero S
		return zero, ErrPending
	}
	snapshot := v.clone(v.state)
	v.state = op.Apply(v.clone(v.state))
	v.status[op.Key] = Pending
	return snapshot, nil
}

// finish settles the key. The key leaves Pending even if update panics.
func (v *View[S]) finish(key string, st State, update func(S) S) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.status[key] = st
	if update != nil {
		v.state = update(v.clone(v.state))
	}
}

func (v *View[S]) publish(key string, st State, err error) {
	c := events.Change{Type: "optimistic." + string(st), Key: key}
	if err != nil {
		c.Err = err.Error()
	}
	v.Hub.Publish(c)
}
