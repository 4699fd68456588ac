package audio

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/audiolibrelab/recorderctl/internal/config"
	"github.com/google/uuid"
)

type simStatus int

const (
	simIdle simStatus = iota
	simPrepared
	simRecording
	simPaused
)

// SimulatedEngine is a software Engine. It produces no audio but follows the
// native engine contract: it reports errors with the same codes, honours
// max duration and progress interval, and publishes finished and error
// notifications to its feed.
type SimulatedEngine struct {
	feed *Feed
	dir  string
	now  func() time.Time

	mutex      sync.Mutex
	id         string
	status     simStatus
	path       string
	opts       config.Options
	startedAt  time.Time
	elapsed    time.Duration
	authorized bool
	denyAuth   bool

	maxTimer     *time.Timer
	progressStop chan struct{}
}

// NewSimulatedEngine creates an engine that resolves relative paths against dir
func NewSimulatedEngine(feed *Feed, dir string) *SimulatedEngine {
	return &SimulatedEngine{
		feed: feed,
		dir:  dir,
		now:  time.Now,
	}
}

// DenyAuthorization makes RequestAuthorization refuse permission
func (e *SimulatedEngine) DenyAuthorization() {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.denyAuth = true
}

// SessionID identifies the current engine session, empty when idle
func (e *SimulatedEngine) SessionID() string {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.id
}

func (e *SimulatedEngine) Prepare(ctx context.Context, path string, opts config.Options) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if path == "" {
		return "", NewError(CodeFailedToPrepareRecorder, "recording path is required")
	}
	if opts.SampleRate <= 0 || opts.Channels <= 0 {
		return "", NewError(CodeFailedToConfigureRecorder, fmt.Sprintf("unsupported format: %d Hz, %d channels", opts.SampleRate, opts.Channels))
	}

	resolved := path
	if !filepath.IsAbs(resolved) && e.dir != "" {
		resolved = filepath.Join(e.dir, resolved)
	}
	if err := checkWritable(filepath.Dir(resolved)); err != nil {
		return "", NewError(CodeNoAccessToWriteToDirectory, err.Error())
	}

	e.mutex.Lock()
	defer e.mutex.Unlock()

	e.stopTimersLocked()
	e.id = uuid.NewString()
	e.status = simPrepared
	e.path = resolved
	e.opts = opts
	e.elapsed = 0

	slog.Debug("Simulated engine prepared", "session_id", e.id, "path", resolved, "sample_rate", opts.SampleRate)
	return resolved, nil
}

func (e *SimulatedEngine) Start(ctx context.Context) (string, error) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	switch e.status {
	case simIdle:
		return "", NewError(CodeRecorderNotPrepared, "Please call prepareRecordingAtPath before starting recording")
	case simRecording, simPaused:
		return "", NewError(CodeInvalidState, "recording already in progress")
	}

	e.status = simRecording
	e.startedAt = e.now()
	e.armTimersLocked()
	return e.path, nil
}

func (e *SimulatedEngine) Pause(ctx context.Context) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if e.status != simRecording {
		return NewError(CodeInvalidState, "recording is not active")
	}
	e.elapsed += e.now().Sub(e.startedAt)
	e.status = simPaused
	e.stopTimersLocked()
	return nil
}

func (e *SimulatedEngine) Resume(ctx context.Context) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if e.status != simPaused {
		return NewError(CodeInvalidState, "recording is not paused")
	}
	e.status = simRecording
	e.startedAt = e.now()
	e.armTimersLocked()
	return nil
}

func (e *SimulatedEngine) Stop(ctx context.Context) (*RecordingMetadata, error) {
	e.mutex.Lock()
	if e.status != simRecording && e.status != simPaused {
		e.mutex.Unlock()
		return nil, NewError(CodeNoRecordDataFound, "no recording in progress")
	}
	meta := e.finishLocked()
	e.mutex.Unlock()

	e.feed.Publish(Notification{Kind: EventFinished, Path: meta.Path, Metadata: meta})
	return meta, nil
}

func (e *SimulatedEngine) Destroy(ctx context.Context) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	e.stopTimersLocked()
	e.resetLocked()
	return nil
}

func (e *SimulatedEngine) CheckAuthorizationStatus(ctx context.Context) (AuthStatus, error) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	switch {
	case e.authorized:
		return AuthGranted, nil
	case e.denyAuth:
		return AuthDenied, nil
	default:
		return AuthUndetermined, nil
	}
}

func (e *SimulatedEngine) RequestAuthorization(ctx context.Context) (bool, error) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if e.denyAuth {
		return false, nil
	}
	e.authorized = true
	return true, nil
}

// Fail aborts the current session and publishes an error notification for it,
// the way a native engine reports a dead media server.
func (e *SimulatedEngine) Fail(code Code) {
	e.mutex.Lock()
	path := e.path
	e.stopTimersLocked()
	e.resetLocked()
	e.mutex.Unlock()

	e.feed.Publish(Notification{Kind: EventError, Path: path, Code: code})
}

// finishLocked ends the capture and returns its metadata
func (e *SimulatedEngine) finishLocked() *RecordingMetadata {
	duration := e.elapsed
	if e.status == simRecording {
		duration += e.now().Sub(e.startedAt)
	}
	if limit := time.Duration(e.opts.MaxDuration) * time.Millisecond; limit > 0 && duration > limit {
		duration = limit
	}

	// Nominal encoded size at the configured bitrate
	size := int64(duration.Seconds() * float64(e.opts.AudioEncodingBitRate) / 8)

	meta := &RecordingMetadata{
		Path:     e.path,
		URI:      "file://" + e.path,
		Duration: duration,
		Size:     size,
	}
	if e.opts.IncludeBase64 {
		if data, err := os.ReadFile(e.path); err == nil {
			meta.Base64 = base64.StdEncoding.EncodeToString(data)
		}
	}

	e.stopTimersLocked()
	e.resetLocked()
	return meta
}

func (e *SimulatedEngine) resetLocked() {
	e.id = ""
	e.status = simIdle
	e.path = ""
	e.elapsed = 0
}

func (e *SimulatedEngine) armTimersLocked() {
	if limit := time.Duration(e.opts.MaxDuration) * time.Millisecond; limit > 0 {
		remaining := limit - e.elapsed
		if remaining < 0 {
			remaining = 0
		}
		id := e.id
		e.maxTimer = time.AfterFunc(remaining, func() { e.maxDurationReached(id) })
	}

	if interval := time.Duration(e.opts.ProgressUpdateInterval) * time.Millisecond; interval > 0 {
		stop := make(chan struct{})
		e.progressStop = stop
		go e.reportProgress(interval, stop)
	}
}

func (e *SimulatedEngine) stopTimersLocked() {
	if e.maxTimer != nil {
		e.maxTimer.Stop()
		e.maxTimer = nil
	}
	if e.progressStop != nil {
		close(e.progressStop)
		e.progressStop = nil
	}
}

func (e *SimulatedEngine) maxDurationReached(id string) {
	e.mutex.Lock()
	if e.id != id || e.status != simRecording {
		e.mutex.Unlock()
		return
	}
	meta := e.finishLocked()
	e.mutex.Unlock()

	slog.Debug("Simulated engine reached max duration", "path", meta.Path, "duration", meta.Duration)
	e.feed.Publish(Notification{Kind: EventFinished, Path: meta.Path, Metadata: meta})
}

func (e *SimulatedEngine) reportProgress(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			e.mutex.Lock()
			if e.status != simRecording {
				e.mutex.Unlock()
				return
			}
			n := Notification{
				Kind:        EventProgress,
				Path:        e.path,
				CurrentTime: e.elapsed + e.now().Sub(e.startedAt),
			}
			e.mutex.Unlock()
			e.feed.Publish(n)
		}
	}
}

func checkWritable(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("directory not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	probe, err := os.CreateTemp(dir, ".recorder-probe-*")
	if err != nil {
		return fmt.Errorf("no write access to %s", strings.TrimSuffix(dir, "/"))
	}
	name := probe.Name()
	probe.Close()
	os.Remove(name)
	return nil
}
