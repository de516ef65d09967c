package core

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// TimeoutState is the timeout frame's state machine, spec.md §4.5:
// pending (timer armed, body running) -> expired | completed, terminal
// on either branch.
type TimeoutState int32

const (
	TimeoutPending TimeoutState = iota
	TimeoutExpired
	TimeoutCompleted
)

// ModuleTimeout is the sentinel result the surrounding script's action
// table is expected to treat as a module-level return, per spec.md
// §4.5 "On body completion".
const ModuleTimeout = "MODULE_TIMEOUT"

// Interpreter is the collaborator surface a timeout frame drives,
// standing in for FreeRADIUS's unlang interpreter (spec.md §6):
// push_instruction, push_children, stack_signal, mark_runnable.
// Signal is delivered per frame; the timeout frame itself is exempt so
// its own cleanup still runs (spec.md §4.5 "Cancellation semantics").
type Interpreter interface {
	// PushChildren runs the guarded body as a child frame and returns
	// its result once it completes (or is cancelled).
	PushChildren(ctx context.Context, body func(ctx context.Context) (string, error)) (string, error)
	// PushHandler runs the "catch timeout" section with an initial
	// result code of ModuleTimeout. An error return means pushing it
	// failed and the caller should collapse to a full request cancel.
	PushHandler(handler func(ctx context.Context) (string, error)) (string, error)
	// MarkRunnable signals that the request, possibly blocked on I/O,
	// should be scheduled again.
	MarkRunnable()
}

// TimeoutFrame is the "timeout D { body } [catch timeout { handler }]"
// script construct of spec.md §4.5. One frame guards one body
// execution; it is not reusable across invocations.
type TimeoutFrame struct {
	interp  Interpreter
	handler func(ctx context.Context) (string, error)

	mu    sync.Mutex
	state TimeoutState
	fired atomic.Bool

	timer  *time.Timer
	cancel context.CancelFunc
}

// NewTimeoutFrame returns a pending frame to be run against interp; the
// deadline D is passed to Run, which arms the timer. handler may be nil
// (no "catch timeout" section).
func NewTimeoutFrame(interp Interpreter, handler func(ctx context.Context) (string, error)) *TimeoutFrame {
	return &TimeoutFrame{interp: interp, handler: handler, state: TimeoutPending}
}

// Run arms the deadline timer, pushes body as a child frame, and blocks
// until the body completes or the timer fires and the guarded section
// is cancelled. It returns the body's result (pass-through) or
// ModuleTimeout if the timer won.
//
// On timer fire (§4.5 "On timer fire"): fired is set, ctx passed to
// body is cancelled so every frame above the timeout frame observes
// the signal, the interpreter is told to mark the request runnable,
// and if a handler was supplied it is pushed with an initial result
// code of ModuleTimeout.
func (f *TimeoutFrame) Run(parent context.Context, d time.Duration, body func(ctx context.Context) (string, error)) (string, error) {
	ctx, cancel := context.WithCancel(parent)
	f.cancel = cancel
	defer cancel()

	f.timer = time.AfterFunc(d, func() {
		f.onFire(cancel)
	})
	defer f.timer.Stop()

	result, err := f.interp.PushChildren(ctx, body)

	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.fired.Load() {
		f.state = TimeoutCompleted
		return result, err
	}

	f.state = TimeoutExpired
	if f.handler == nil {
		return ModuleTimeout, nil
	}
	hr, herr := f.interp.PushHandler(f.handler)
	if herr != nil {
		// Failure to push the handler collapses to a full request
		// cancel: propagate the cancellation we already hold and
		// report the push failure.
		return ModuleTimeout, herr
	}
	return hr, nil
}

// onFire runs on the goroutine time.AfterFunc starts for the timer,
// standing in for the event-loop callback of spec.md §4.5. It cancels every frame above the timeout frame
// (modeled by cancelling ctx, which body observes cooperatively) and
// marks the request runnable. The timeout frame's own cleanup (the
// deferred cancel()/timer.Stop() in Run) is exempt, matching "frames
// are signalled strictly above it".
func (f *TimeoutFrame) onFire(cancel context.CancelFunc) {
	if !f.fired.CompareAndSwap(false, true) {
		return
	}
	cancel()
	f.interp.MarkRunnable()
}

// State returns the frame's current lifecycle state.
func (f *TimeoutFrame) State() TimeoutState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Fired reports whether the deadline timer fired before the body
// completed.
func (f *TimeoutFrame) Fired() bool {
	return f.fired.Load()
}
