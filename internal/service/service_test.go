package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/audiolibrelab/recorderctl/internal/audio"
	"github.com/audiolibrelab/recorderctl/internal/config"
)

func newTestService(t *testing.T) (*RecorderService, *audio.SimulatedEngine) {
	t.Helper()
	cfg := config.Default()
	cfg.Output.Directory = t.TempDir()
	return NewSimulated(cfg)
}

func TestService_RecordingCycle(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	path, err := svc.Prepare(ctx, "take.aac")
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	if status := svc.GetStatus(); status.State != audio.StatePrepared || status.PreparedPath != path {
		t.Errorf("Unexpected status after prepare: %+v", status)
	}

	if _, err := svc.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := svc.Pause(ctx); err != nil {
		t.Fatalf("Pause failed: %v", err)
	}
	if err := svc.Resume(ctx); err != nil {
		t.Fatalf("Resume failed: %v", err)
	}

	meta, err := svc.Stop(ctx)
	if err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if meta.Path != path {
		t.Errorf("Expected metadata for %s, got %s", path, meta.Path)
	}
	if svc.LastRecording() != meta {
		t.Error("Expected last recording to be kept")
	}

	if err := svc.Destroy(ctx); err != nil {
		t.Fatalf("Destroy failed: %v", err)
	}
	if status := svc.GetStatus(); status.State != audio.StateInitial || status.PreparedPath != "" {
		t.Errorf("Unexpected status after destroy: %+v", status)
	}
}

func TestService_TracksLastError(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Start(ctx)
	if !audio.IsCode(err, audio.CodeRecorderNotPrepared) {
		t.Fatalf("Expected RECORDER_NOT_PREPARED, got %v", err)
	}
	if !strings.Contains(svc.GetLastError(), "Failed to start recording") {
		t.Errorf("Expected last error to be recorded, got %q", svc.GetLastError())
	}

	// A new prepare clears the previous error
	if _, err := svc.Prepare(ctx, "take.aac"); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	if svc.GetLastError() != "" {
		t.Errorf("Expected last error cleared, got %q", svc.GetLastError())
	}
}

func TestService_ConfigureAppliesToPrepare(t *testing.T) {
	svc, _ := newTestService(t)
	channels := 1

	opts := svc.Configure(config.Overrides{Channels: &channels})
	if opts.Channels != 1 || svc.GetOptions().Channels != 1 {
		t.Errorf("Expected mono options, got %+v", opts)
	}
}

func TestService_EngineFailureResetsSession(t *testing.T) {
	svc, engine := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Prepare(ctx, "take.aac"); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	if _, err := svc.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	engine.Fail(audio.CodeRecorderServerDied)

	if state := svc.GetStatus().State; state != audio.StateInitial {
		t.Errorf("Expected INITIAL after engine failure, got %s", state)
	}
	if !strings.Contains(svc.GetLastError(), string(audio.CodeRecorderServerDied)) {
		t.Errorf("Expected last error to name the engine code, got %q", svc.GetLastError())
	}

	select {
	case end := <-svc.Ended():
		if end.Code != audio.CodeRecorderServerDied || end.Metadata != nil {
			t.Errorf("Unexpected session end: %+v", end)
		}
	default:
		t.Error("Expected the engine failure to end the session")
	}
}

func TestService_MaxDurationKeepsFinishedRecording(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	limit := 50
	svc.Configure(config.Overrides{MaxDuration: &limit})

	path, err := svc.Prepare(ctx, "take.aac")
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	if _, err := svc.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	var end SessionEnd
	select {
	case end = <-svc.Ended():
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for the recording to finish")
	}
	if end.Path != path || end.Metadata == nil {
		t.Fatalf("Unexpected session end: %+v", end)
	}

	// the recorder resets on the same notification, possibly after the service saw it
	deadline := time.Now().Add(2 * time.Second)
	for svc.GetStatus().State != audio.StateInitial && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	status := svc.GetStatus()
	if status.State != audio.StateInitial {
		t.Errorf("Expected INITIAL after max duration, got %s", status.State)
	}
	if status.LastRecording == nil || status.LastRecording.Path != path {
		t.Fatalf("Expected finished recording in status, got %+v", status.LastRecording)
	}
	if status.LastRecording.Duration > 50*time.Millisecond {
		t.Errorf("Expected duration capped at 50ms, got %s", status.LastRecording.Duration)
	}
}

func TestService_IgnoresOtherSessions(t *testing.T) {
	svc, engine := newTestService(t)

	// nothing prepared yet, so the notification belongs to someone else
	engine.Fail(audio.CodeRecorderServerDied)

	if svc.GetLastError() != "" {
		t.Errorf("Expected no last error, got %q", svc.GetLastError())
	}
	select {
	case end := <-svc.Ended():
		t.Errorf("Unexpected session end: %+v", end)
	default:
	}
}

func TestService_CloseStopsListening(t *testing.T) {
	feed := audio.NewFeed()
	engine := audio.NewSimulatedEngine(feed, t.TempDir())
	svc := New(audio.NewRecorder(engine, feed), feed, 0)

	if got := feed.Subscribers(audio.EventFinished); got != 2 {
		t.Fatalf("Expected recorder and service subscribed, got %d", got)
	}
	if err := svc.Close(context.Background()); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if got := feed.Subscribers(audio.EventFinished) + feed.Subscribers(audio.EventError); got != 0 {
		t.Errorf("Expected no subscribers after close, got %d", got)
	}
}

func TestService_Authorization(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	granted, err := svc.RequestAuthorization(ctx)
	if err != nil || !granted {
		t.Fatalf("Expected authorization granted, got %v, %v", granted, err)
	}
	status, err := svc.AuthorizationStatus(ctx)
	if err != nil || status != audio.AuthGranted {
		t.Errorf("Expected granted status, got %s, %v", status, err)
	}
}

func TestService_CloseCleansUp(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Prepare(ctx, "take.aac"); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	if err := svc.Close(ctx); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if state := svc.GetStatus().State; state != audio.StateInitial {
		t.Errorf("Expected INITIAL after close, got %s", state)
	}
}

func TestWait_Timeout(t *testing.T) {
	feed := audio.NewFeed()
	gate := make(chan struct{})
	defer close(gate)
	recorder := audio.NewRecorder(&blockingEngine{gate: gate}, feed)
	svc := New(recorder, feed, 20*time.Millisecond)

	_, err := svc.Prepare(context.Background(), "take.aac")
	if err == nil || !strings.Contains(err.Error(), "did not respond") {
		t.Errorf("Expected timeout error, got %v", err)
	}
}

// blockingEngine never completes prepare until gate is closed
type blockingEngine struct {
	gate chan struct{}
}

func (e *blockingEngine) Prepare(ctx context.Context, path string, opts config.Options) (string, error) {
	<-e.gate
	return path, nil
}
func (e *blockingEngine) Start(ctx context.Context) (string, error)                { return "", nil }
func (e *blockingEngine) Pause(ctx context.Context) error                          { return nil }
func (e *blockingEngine) Resume(ctx context.Context) error                         { return nil }
func (e *blockingEngine) Stop(ctx context.Context) (*audio.RecordingMetadata, error) { return nil, nil }
func (e *blockingEngine) Destroy(ctx context.Context) error                        { return nil }
func (e *blockingEngine) CheckAuthorizationStatus(ctx context.Context) (audio.AuthStatus, error) {
	return audio.AuthGranted, nil
}
func (e *blockingEngine) RequestAuthorization(ctx context.Context) (bool, error) { return true, nil }
