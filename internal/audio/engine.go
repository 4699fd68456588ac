package audio

import (
	"context"
	"time"

	"github.com/audiolibrelab/recorderctl/internal/config"
)

// AuthStatus is the microphone permission state reported by the engine
type AuthStatus string

const (
	AuthGranted      AuthStatus = "granted"
	AuthDenied       AuthStatus = "denied"
	AuthNeverAsk     AuthStatus = "never_ask_again"
	AuthUndetermined AuthStatus = "undetermined"
)

// RecordingMetadata describes a finished recording
type RecordingMetadata struct {
	Path     string        `json:"path"`
	URI      string        `json:"uri"`
	Duration time.Duration `json:"duration"`
	Size     int64         `json:"size"`
	Base64   string        `json:"base64,omitempty"`
}

// Engine is the native capture engine the recorder drives.
// Calls block until the engine has completed the command.
type Engine interface {
	Prepare(ctx context.Context, path string, opts config.Options) (string, error)
	Start(ctx context.Context) (string, error)
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	Stop(ctx context.Context) (*RecordingMetadata, error)
	Destroy(ctx context.Context) error

	CheckAuthorizationStatus(ctx context.Context) (AuthStatus, error)
	RequestAuthorization(ctx context.Context) (bool, error)
}
