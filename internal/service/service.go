package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/audiolibrelab/recorderctl/internal/audio"
	"github.com/audiolibrelab/recorderctl/internal/config"
)

// DefaultTimeout bounds how long a synchronous caller waits for the engine
const DefaultTimeout = 10 * time.Second

// Service represents the recorder operations offered to the CLI and the web server
type Service interface {
	// Recording operations
	Prepare(ctx context.Context, path string) (string, error)
	Start(ctx context.Context) (string, error)
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	Stop(ctx context.Context) (*audio.RecordingMetadata, error)
	Destroy(ctx context.Context) error
	Close(ctx context.Context) error

	// Configuration operations
	Configure(overrides config.Overrides) config.Options
	GetOptions() config.Options

	// Permission operations
	AuthorizationStatus(ctx context.Context) (audio.AuthStatus, error)
	RequestAuthorization(ctx context.Context) (bool, error)

	// Information operations
	GetStatus() Status
	GetLastError() string
	LastRecording() *audio.RecordingMetadata
	Ended() <-chan SessionEnd
}

// SessionEnd reports a recording the engine ended on its own or after a stop.
// Code is set when the engine reported an error instead.
type SessionEnd struct {
	Path     string
	Metadata *audio.RecordingMetadata
	Code     audio.Code
}

// Status is the session snapshot reported to clients
type Status struct {
	State         audio.State              `json:"state"`
	PreparedPath  string                   `json:"prepared_path,omitempty"`
	LastError     string                   `json:"last_error,omitempty"`
	LastRecording *audio.RecordingMetadata `json:"last_recording,omitempty"`
}

// RecorderService is the main service implementation
type RecorderService struct {
	recorder *audio.Recorder
	timeout  time.Duration

	// Error tracking
	lastError      string
	lastErrorMutex sync.RWMutex

	lastRecording      *audio.RecordingMetadata
	lastRecordingMutex sync.RWMutex

	// path of the last successful prepare, used to match engine notifications
	sessionPath  string
	sessionMutex sync.RWMutex

	ended     chan SessionEnd
	finishSub audio.Subscription
	errorSub  audio.Subscription
}

// New creates a service around recorder and listens on notifier for the
// recordings the engine finishes or aborts. A zero timeout selects DefaultTimeout.
func New(recorder *audio.Recorder, notifier audio.Notifier, timeout time.Duration) *RecorderService {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	s := &RecorderService{
		recorder: recorder,
		timeout:  timeout,
		ended:    make(chan SessionEnd, 1),
	}
	s.finishSub = notifier.Subscribe(audio.EventFinished, s.onFinished)
	s.errorSub = notifier.Subscribe(audio.EventError, s.onError)
	return s
}

// NewSimulated wires a service to a simulated engine writing under dir and
// applies cfg's recorder options.
func NewSimulated(cfg *config.Config) (*RecorderService, *audio.SimulatedEngine) {
	feed := audio.NewFeed()
	engine := audio.NewSimulatedEngine(feed, cfg.Output.Directory)
	recorder := audio.NewRecorder(engine, feed)
	recorder.SetConfig(cfg.Recorder)
	return New(recorder, feed, DefaultTimeout), engine
}

// Prepare prepares a recording at path (INITIAL -> PREPARED)
func (s *RecorderService) Prepare(ctx context.Context, path string) (string, error) {
	slog.Debug("Service.Prepare called", "path", path)
	s.clearLastError() // Clear any previous errors when starting a new operation
	resolved, err := wait(ctx, s.timeout, s.recorder.PrepareAtPath(path))
	if err != nil {
		slog.Error("Service.Prepare failed", "error", err)
		s.setLastError(fmt.Sprintf("Failed to prepare recording: %v", err))
		return "", err
	}
	s.sessionMutex.Lock()
	s.sessionPath = resolved
	s.sessionMutex.Unlock()
	slog.Debug("Service.Prepare completed successfully", "path", resolved)
	return resolved, nil
}

// Start begins recording (PREPARED -> RECORDING)
func (s *RecorderService) Start(ctx context.Context) (string, error) {
	path, err := wait(ctx, s.timeout, s.recorder.Start())
	if err != nil {
		s.setLastError(fmt.Sprintf("Failed to start recording: %v", err))
		return "", err
	}
	slog.Info("Recording started", "path", path)
	return path, nil
}

// Pause pauses the current recording (RECORDING -> PAUSED)
func (s *RecorderService) Pause(ctx context.Context) error {
	if _, err := wait(ctx, s.timeout, s.recorder.Pause()); err != nil {
		s.setLastError(fmt.Sprintf("Failed to pause recording: %v", err))
		return err
	}
	return nil
}

// Resume continues a paused recording (PAUSED -> RECORDING)
func (s *RecorderService) Resume(ctx context.Context) error {
	if _, err := wait(ctx, s.timeout, s.recorder.Resume()); err != nil {
		s.setLastError(fmt.Sprintf("Failed to resume recording: %v", err))
		return err
	}
	return nil
}

// Stop stops the current recording session and keeps its metadata
func (s *RecorderService) Stop(ctx context.Context) (*audio.RecordingMetadata, error) {
	meta, err := wait(ctx, s.timeout, s.recorder.Stop())
	if err != nil {
		s.setLastError(fmt.Sprintf("Failed to stop recording: %v", err))
		return nil, err
	}
	s.clearLastError() // Clear error on successful stop
	s.setLastRecording(meta)

	slog.Info("Recording stopped", "path", meta.Path, "duration", meta.Duration, "size", meta.Size)
	return meta, nil
}

// Destroy releases the engine and resets the session
func (s *RecorderService) Destroy(ctx context.Context) error {
	if _, err := wait(ctx, s.timeout, s.recorder.Destroy()); err != nil {
		s.setLastError(fmt.Sprintf("Failed to destroy recorder: %v", err))
		return err
	}
	return nil
}

// Close unsubscribes the service and the recorder from engine notifications and destroys the recorder
func (s *RecorderService) Close(ctx context.Context) error {
	s.finishSub.Cancel()
	s.errorSub.Cancel()
	_, err := wait(ctx, s.timeout, s.recorder.Clean())
	return err
}

// Configure replaces the options used by the next prepare
func (s *RecorderService) Configure(overrides config.Overrides) config.Options {
	return s.recorder.SetConfig(overrides)
}

// GetOptions returns the options used by the next prepare
func (s *RecorderService) GetOptions() config.Options {
	return s.recorder.Options()
}

func (s *RecorderService) AuthorizationStatus(ctx context.Context) (audio.AuthStatus, error) {
	return wait(ctx, s.timeout, s.recorder.CheckAuthorizationStatus())
}

func (s *RecorderService) RequestAuthorization(ctx context.Context) (bool, error) {
	return wait(ctx, s.timeout, s.recorder.RequestAuthorization())
}

// GetStatus returns the current session snapshot
func (s *RecorderService) GetStatus() Status {
	info := s.recorder.Info()
	return Status{
		State:         info.State,
		PreparedPath:  info.PreparedPath,
		LastError:     s.GetLastError(),
		LastRecording: s.LastRecording(),
	}
}

// GetLastError returns the last error message
func (s *RecorderService) GetLastError() string {
	s.lastErrorMutex.RLock()
	defer s.lastErrorMutex.RUnlock()
	return s.lastError
}

// LastRecording returns the metadata of the last finished recording
func (s *RecorderService) LastRecording() *audio.RecordingMetadata {
	s.lastRecordingMutex.RLock()
	defer s.lastRecordingMutex.RUnlock()
	return s.lastRecording
}

// Ended delivers the most recent session end that nobody has received yet
func (s *RecorderService) Ended() <-chan SessionEnd {
	return s.ended
}

func (s *RecorderService) ownsPath(path string) bool {
	s.sessionMutex.RLock()
	defer s.sessionMutex.RUnlock()
	return s.sessionPath != "" && s.sessionPath == path
}

func (s *RecorderService) onFinished(n audio.Notification) {
	if !s.ownsPath(n.Path) {
		return
	}
	if n.Metadata != nil {
		s.setLastRecording(n.Metadata)
		slog.Info("Recording finished", "path", n.Path, "duration", n.Metadata.Duration, "size", n.Metadata.Size)
	}
	s.publishEnd(SessionEnd{Path: n.Path, Metadata: n.Metadata})
}

func (s *RecorderService) onError(n audio.Notification) {
	if !s.ownsPath(n.Path) {
		return
	}
	slog.Error("Recorder engine reported an error", "path", n.Path, "code", n.Code, "extra", n.Extra)
	s.setLastError(fmt.Sprintf("Recording aborted by engine: %s", n.Code))
	s.publishEnd(SessionEnd{Path: n.Path, Code: n.Code})
}

// publishEnd replaces an unreceived end with end
func (s *RecorderService) publishEnd(end SessionEnd) {
	for {
		select {
		case s.ended <- end:
			return
		default:
		}
		select {
		case <-s.ended:
		default:
		}
	}
}

func (s *RecorderService) setLastRecording(meta *audio.RecordingMetadata) {
	s.lastRecordingMutex.Lock()
	defer s.lastRecordingMutex.Unlock()
	s.lastRecording = meta
}

// setLastError sets the last error message
func (s *RecorderService) setLastError(err string) {
	s.lastErrorMutex.Lock()
	defer s.lastErrorMutex.Unlock()
	s.lastError = err
}

// clearLastError clears the last error message
func (s *RecorderService) clearLastError() {
	s.lastErrorMutex.Lock()
	defer s.lastErrorMutex.Unlock()
	s.lastError = ""
}

// wait blocks on p for at most timeout. The engine call keeps running if the wait gives up.
func wait[T any](ctx context.Context, timeout time.Duration, p *audio.Pending[T]) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	v, err := p.Wait(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		return v, fmt.Errorf("recorder did not respond within %s: %w", timeout, err)
	}
	return v, err
}
