package requests

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/muurk/robowifi/internal/logging"
)

// Status is the lifecycle stage of a tracked request
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// IDPrefix prefixes every generated request id
const IDPrefix = "robotApi_request_"

// ErrUnknownRequest is returned when waiting on an id the tracker never issued
// or has already dismissed.
var ErrUnknownRequest = errors.New("unknown request")

// State is a snapshot of a tracked request.
// Response is set on success, Error on failure.
type State struct {
	Status   Status
	Response any
	Error    error
}

// Done reports whether the request has finished
func (s State) Done() bool {
	return s.Status == StatusSuccess || s.Status == StatusFailure
}

// Func is the work behind a request
type Func func(ctx context.Context) (any, error)

type entry struct {
	kind        string
	state       State
	subscribers []chan State
}

// Tracker runs requests in the background and records their outcome by id.
// It is safe for concurrent use.
type Tracker struct {
	mu       sync.Mutex
	seq      uint64
	requests map[string]*entry
}

// NewTracker creates an empty tracker
func NewTracker() *Tracker {
	return &Tracker{requests: make(map[string]*entry)}
}

// Dispatch starts fn in a new goroutine and returns its request id immediately.
// kind labels the request in logs (e.g. "configure", "disconnect").
func (t *Tracker) Dispatch(ctx context.Context, kind string, fn Func) string {
	t.mu.Lock()
	t.seq++
	id := fmt.Sprintf("%s%d", IDPrefix, t.seq)
	e := &entry{kind: kind, state: State{Status: StatusPending}}
	t.requests[id] = e
	t.mu.Unlock()

	go func() {
		resp, err := fn(ctx)
		t.complete(id, e, resp, err)
	}()

	return id
}

func (t *Tracker) complete(id string, e *entry, resp any, err error) {
	state := State{Status: StatusSuccess, Response: resp}
	if err != nil {
		state = State{Status: StatusFailure, Error: err}
	}

	t.mu.Lock()
	e.state = state
	subscribers := e.subscribers
	e.subscribers = nil
	t.mu.Unlock()

	logging.LogRequestOutcome(id, e.kind, string(state.Status), err)

	// Subscriber channels are buffered for exactly one value.
	for _, ch := range subscribers {
		ch <- state
		close(ch)
	}
}

// Get returns the current state of a request
func (t *Tracker) Get(id string) (State, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.requests[id]
	if !ok {
		return State{}, false
	}
	return e.state, true
}

// Subscribe returns a channel that receives the final state of the request
// exactly once and is then closed. A request that has already finished is
// delivered immediately. An unknown id yields a closed channel with no value.
func (t *Tracker) Subscribe(id string) <-chan State {
	ch := make(chan State, 1)

	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.requests[id]
	if !ok {
		close(ch)
		return ch
	}

	if e.state.Done() {
		ch <- e.state
		close(ch)
		return ch
	}

	e.subscribers = append(e.subscribers, ch)
	return ch
}

// Wait blocks until the request finishes or ctx is done
func (t *Tracker) Wait(ctx context.Context, id string) (State, error) {
	select {
	case state, ok := <-t.Subscribe(id):
		if !ok {
			return State{}, fmt.Errorf("%w: %s", ErrUnknownRequest, id)
		}
		return state, nil
	case <-ctx.Done():
		return State{}, ctx.Err()
	}
}

// Dismiss forgets a request. Existing subscribers are still notified when a
// pending request finishes; later lookups report it as unknown.
func (t *Tracker) Dismiss(id string) {
	t.mu.Lock()
	delete(t.requests, id)
	t.mu.Unlock()
}
