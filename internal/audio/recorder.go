package audio

import (
	"context"
	"log/slog"
	"sync"

	"github.com/audiolibrelab/recorderctl/internal/config"
)

// Recorder drives one recording session on an Engine and keeps the session
// state in line with the engine's asynchronous notifications.
//
// Every operation returns immediately with a Pending result. Precondition
// failures and idempotent short-circuits settle before returning and never
// reach the engine. Only one engine call may be outstanding at a time; an
// operation that would issue a second one fails with CodeInvalidState.
type Recorder struct {
	engine Engine

	mutex        sync.Mutex
	state        State
	preparedPath string
	hasPath      bool
	options      config.Options
	busy         bool

	// epoch advances on every reset so that a command completing after a
	// reset cannot resurrect the session it belonged to
	epoch uint64

	errorSub  Subscription
	finishSub Subscription
}

// NewRecorder creates a recorder in the initial state and subscribes it to
// the error and finished notifications of notifier.
func NewRecorder(engine Engine, notifier Notifier) *Recorder {
	r := &Recorder{
		engine:  engine,
		state:   StateInitial,
		options: config.Defaults(),
	}
	r.errorSub = notifier.Subscribe(EventError, r.onNotification)
	r.finishSub = notifier.Subscribe(EventFinished, r.onNotification)
	return r
}

// State returns the current lifecycle state
func (r *Recorder) State() State {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.state
}

// PreparedPath returns the path of the last successful prepare, if the session holds one
func (r *Recorder) PreparedPath() (string, bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.preparedPath, r.hasPath
}

// Info returns a snapshot of the session
func (r *Recorder) Info() SessionInfo {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return SessionInfo{State: r.state, PreparedPath: r.preparedPath, HasPath: r.hasPath}
}

// Options returns the snapshot the next prepare will use
func (r *Recorder) Options() config.Options {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.options
}

// SetConfig replaces the pending options with the defaults merged with overrides
func (r *Recorder) SetConfig(overrides config.Overrides) config.Options {
	opts := config.Resolve(overrides)
	r.mutex.Lock()
	r.options = opts
	r.mutex.Unlock()
	return opts
}

// PrepareAtPath prepares the engine to record to path and resolves with the
// path chosen by the engine.
//
// Errors:
//   - CodeInvalidState
//   - CodeNoAccessToWriteToDirectory (engine)
//   - CodeFailedToConfigureRecorder (engine)
//   - CodeFailedToPrepareRecorder (engine)
func (r *Recorder) PrepareAtPath(path string) *Pending[string] {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.state == StatePrepared && r.hasPath && r.preparedPath == path {
		return resolved(path)
	}
	if r.state != StateInitial {
		return rejected[string](NewError(CodeInvalidState, "Stop previous recording before starting preparing"))
	}

	opts := r.options
	return run(r, "prepare", func(ctx context.Context) (string, error) {
		resolvedPath, err := r.engine.Prepare(ctx, path, opts)
		if err == nil && resolvedPath == "" {
			resolvedPath = path
		}
		return resolvedPath, err
	}, func(resolvedPath string) {
		r.state = StatePrepared
		r.preparedPath = resolvedPath
		r.hasPath = true
	})
}

// Start begins recording and resolves with the recording path.
//
// Errors:
//   - CodeRecorderNotPrepared
//   - CodeInvalidState
func (r *Recorder) Start() *Pending[string] {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.state < StatePrepared {
		return rejected[string](NewError(CodeRecorderNotPrepared, "Prepare recorder before starting recording"))
	}
	if r.state > StatePrepared {
		return rejected[string](NewError(CodeInvalidState, "Stop previous recording before starting new record"))
	}

	return run(r, "start", r.engine.Start, func(string) {
		r.state = StateRecording
	})
}

// Pause pauses an active recording. Pausing a paused recording is a no-op.
//
// Errors:
//   - CodeInvalidState
//   - CodeMethodNotAvailable (engine)
func (r *Recorder) Pause() *Pending[struct{}] {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.state == StatePaused {
		return resolved(struct{}{})
	}
	if r.state != StateRecording {
		return rejected[struct{}](NewError(CodeInvalidState, "Prepare and start recording before pausing record"))
	}

	return run(r, "pause", unit(r.engine.Pause), func(struct{}) {
		r.state = StatePaused
	})
}

// Resume continues a paused recording. Resuming an active recording is a no-op.
//
// Errors:
//   - CodeInvalidState
//   - CodeMethodNotAvailable (engine)
func (r *Recorder) Resume() *Pending[struct{}] {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.state == StateRecording {
		return resolved(struct{}{})
	}
	if r.state != StatePaused {
		return rejected[struct{}](NewError(CodeInvalidState, "Prepare and start recording before resuming record"))
	}

	return run(r, "resume", unit(r.engine.Resume), func(struct{}) {
		r.state = StateRecording
	})
}

// Stop ends the recording and resolves with its metadata. The session state
// is left as is; the engine's finished notification or Destroy resets it.
//
// Errors:
//   - CodeInvalidState
//   - CodeNoRecordDataFound (engine)
func (r *Recorder) Stop() *Pending[*RecordingMetadata] {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.state < StateRecording {
		return rejected[*RecordingMetadata](NewError(CodeInvalidState, "Prepare and start recording before stopping record"))
	}

	return run(r, "stop", r.engine.Stop, func(*RecordingMetadata) {})
}

// Destroy releases the engine and resets the session once the engine confirms.
// A failed destroy leaves the session untouched.
func (r *Recorder) Destroy() *Pending[struct{}] {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	return run(r, "destroy", unit(r.engine.Destroy), func(struct{}) {
		r.reset()
	})
}

// Clean cancels the notification subscriptions and destroys the session
func (r *Recorder) Clean() *Pending[struct{}] {
	r.errorSub.Cancel()
	r.finishSub.Cancel()
	return r.Destroy()
}

// CheckAuthorizationStatus asks the engine for the microphone permission state
func (r *Recorder) CheckAuthorizationStatus() *Pending[AuthStatus] {
	return async(context.Background(), r.engine.CheckAuthorizationStatus)
}

// RequestAuthorization asks the engine to obtain microphone permission
func (r *Recorder) RequestAuthorization() *Pending[bool] {
	return async(context.Background(), r.engine.RequestAuthorization)
}

// reset must be called with the mutex held
func (r *Recorder) reset() {
	r.state = StateInitial
	r.preparedPath = ""
	r.hasPath = false
	r.epoch++
}

func (r *Recorder) onNotification(n Notification) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if !r.hasPath || n.Path != r.preparedPath {
		// unrelated session, ignore it
		slog.Debug("Ignoring recorder notification", "kind", n.Kind, "path", n.Path, "prepared_path", r.preparedPath)
		return
	}

	slog.Debug("Recorder notification resets session", "kind", n.Kind, "path", n.Path, "state", r.state, "code", n.Code)
	r.reset()
}

// run issues call on its own goroutine and applies the transition when it
// succeeds. The caller must hold r.mutex.
func run[T any](r *Recorder, op string, call func(context.Context) (T, error), apply func(T)) *Pending[T] {
	if r.busy {
		return rejected[T](NewError(CodeInvalidState, "Wait for the previous recorder operation to complete"))
	}
	r.busy = true
	epoch := r.epoch
	from := r.state

	p := newPending[T]()
	go func() {
		v, err := call(context.Background())

		r.mutex.Lock()
		r.busy = false
		if err == nil {
			if epoch == r.epoch {
				apply(v)
			} else {
				slog.Debug("Session reset while engine call was outstanding", "op", op)
			}
		}
		to := r.state
		r.mutex.Unlock()

		if err != nil {
			slog.Debug("Recorder engine call failed", "op", op, "state", from, "error", err)
		} else {
			slog.Debug("Recorder engine call completed", "op", op, "from", from, "to", to)
		}
		p.settle(v, err)
	}()
	return p
}

func async[T any](ctx context.Context, call func(context.Context) (T, error)) *Pending[T] {
	p := newPending[T]()
	go func() {
		v, err := call(ctx)
		p.settle(v, err)
	}()
	return p
}

func unit(call func(context.Context) error) func(context.Context) (struct{}, error) {
	return func(ctx context.Context) (struct{}, error) {
		return struct{}{}, call(ctx)
	}
}
