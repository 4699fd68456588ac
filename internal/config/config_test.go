package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }
func boolPtr(v bool) *bool    { return &v }

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "recorder.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestResolve_NoOverridesKeepsDefaults(t *testing.T) {
	opts := Resolve(Overrides{})
	if opts != Defaults() {
		t.Errorf("Expected defaults, got %+v", opts)
	}
	if opts.SampleRate != 44100 || opts.Channels != 2 || opts.AudioEncodingBitRate != 128000 {
		t.Errorf("Unexpected default values: %+v", opts)
	}
	if opts.AudioSource != AudioSourceMic || opts.MaxDuration != 0 || opts.ProgressUpdateInterval != 1000 {
		t.Errorf("Unexpected default values: %+v", opts)
	}
}

func TestResolve_OverrideWinsPerKey(t *testing.T) {
	opts := Resolve(Overrides{
		SampleRate:      intPtr(22050),
		IncludeBase64:   boolPtr(true),
		AudioEncoding:   strPtr(EncodingOpus),
		MeteringEnabled: boolPtr(false),
	})

	if opts.SampleRate != 22050 {
		t.Errorf("Expected sample rate 22050, got %d", opts.SampleRate)
	}
	if !opts.IncludeBase64 {
		t.Error("Expected IncludeBase64 override to be applied")
	}
	if opts.AudioEncoding != EncodingOpus {
		t.Errorf("Expected encoding %s, got %s", EncodingOpus, opts.AudioEncoding)
	}
	// Untouched keys keep the default
	if opts.Channels != 2 || opts.OutputFormat != FormatAACADTS || opts.AudioQuality != QualityHigh {
		t.Errorf("Expected untouched keys to keep defaults, got %+v", opts)
	}
}

func TestResolve_DoesNotMutateDefaults(t *testing.T) {
	_ = Resolve(Overrides{SampleRate: intPtr(8000)})
	if Defaults().SampleRate != 44100 {
		t.Errorf("Defaults were mutated: %+v", Defaults())
	}
}

func TestMerge_ProfileWins(t *testing.T) {
	base := Overrides{SampleRate: intPtr(48000), Channels: intPtr(1)}
	profile := Overrides{Channels: intPtr(2), MaxDuration: intPtr(5000)}

	merged := base.Merge(profile)
	opts := Resolve(merged)

	if opts.SampleRate != 48000 {
		t.Errorf("Expected inherited sample rate 48000, got %d", opts.SampleRate)
	}
	if opts.Channels != 2 {
		t.Errorf("Expected profile channels 2, got %d", opts.Channels)
	}
	if opts.MaxDuration != 5000 {
		t.Errorf("Expected profile max duration 5000, got %d", opts.MaxDuration)
	}
	if *base.Channels != 1 {
		t.Error("Merge modified its receiver")
	}
}

func TestLoadWithProfile_SelectsActiveProfile(t *testing.T) {
	path := writeConfig(t, `
active_config: studio
output:
  directory: /tmp/recordings
configs:
  default:
    recorder:
      sample_rate: 48000
      channels: 1
  studio:
    recorder:
      channels: 2
      audio_encoding: flac
    output:
      extension: .flac
`)

	cfg, err := LoadWithProfile(path, "")
	if err != nil {
		t.Fatalf("LoadWithProfile failed: %v", err)
	}

	if cfg.Profile != "studio" {
		t.Errorf("Expected profile 'studio', got %s", cfg.Profile)
	}
	opts := cfg.Options()
	if opts.SampleRate != 48000 {
		t.Errorf("Expected sample rate inherited from default profile, got %d", opts.SampleRate)
	}
	if opts.Channels != 2 {
		t.Errorf("Expected studio channels 2, got %d", opts.Channels)
	}
	if opts.AudioEncoding != EncodingFLAC {
		t.Errorf("Expected flac encoding, got %s", opts.AudioEncoding)
	}
	if cfg.Output.Directory != "/tmp/recordings" {
		t.Errorf("Expected global output directory, got %s", cfg.Output.Directory)
	}
	if cfg.Output.Extension != "flac" {
		t.Errorf("Expected extension without dot, got %s", cfg.Output.Extension)
	}
}

func TestLoadWithProfile_ExplicitProfileOverridesActive(t *testing.T) {
	path := writeConfig(t, `
active_config: studio
configs:
  default:
    recorder:
      sample_rate: 48000
  studio:
    recorder:
      sample_rate: 96000
  field:
    recorder:
      max_duration: 60000
`)

	cfg, err := LoadWithProfile(path, "field")
	if err != nil {
		t.Fatalf("LoadWithProfile failed: %v", err)
	}
	opts := cfg.Options()
	if opts.SampleRate != 48000 || opts.MaxDuration != 60000 {
		t.Errorf("Unexpected options for field profile: %+v", opts)
	}
}

func TestLoadWithProfile_MissingProfile(t *testing.T) {
	path := writeConfig(t, `
configs:
  default:
    recorder:
      sample_rate: 48000
`)

	_, err := LoadWithProfile(path, "nonexistent")
	if err == nil {
		t.Fatal("Expected error for missing profile")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("Expected 'not found' error, got: %v", err)
	}
}

func TestLoadWithProfile_Validation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "negative sample rate",
			content: `
configs:
  default:
    recorder:
      sample_rate: -1
`,
			wantErr: "sample_rate",
		},
		{
			name: "too many channels",
			content: `
configs:
  default:
    recorder:
      channels: 6
`,
			wantErr: "channels",
		},
		{
			name: "unknown audio source",
			content: `
configs:
  default:
    recorder:
      audio_source: 42
`,
			wantErr: "audio_source",
		},
		{
			name: "negative max duration",
			content: `
configs:
  default:
    recorder:
      max_duration: -10
`,
			wantErr: "max_duration",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadWithProfile(writeConfig(t, tt.content), "")
			if err == nil {
				t.Fatalf("Expected validation error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoadWithProfile_EnvOverridesOutputDirectory(t *testing.T) {
	path := writeConfig(t, `
output:
  directory: /tmp/from-file
configs:
  default: {}
`)
	t.Setenv("RECORDER_OUTPUT_DIRECTORY", "/tmp/from-env")

	cfg, err := LoadWithProfile(path, "")
	if err != nil {
		t.Fatalf("LoadWithProfile failed: %v", err)
	}
	if cfg.Output.Directory != "/tmp/from-env" {
		t.Errorf("Expected env directory, got %s", cfg.Output.Directory)
	}
}

func TestLoadWithProfile_NoConfigFile(t *testing.T) {
	if _, err := LoadWithProfile("", ""); err == nil {
		t.Error("Expected error when no config file is given")
	}
}

func TestUpdateActiveConfig(t *testing.T) {
	path := writeConfig(t, `
active_config: default
configs:
  default: {}
  studio:
    recorder:
      sample_rate: 96000
`)

	if err := UpdateActiveConfig(path, "studio"); err != nil {
		t.Fatalf("UpdateActiveConfig failed: %v", err)
	}

	cfg, err := LoadWithProfile(path, "")
	if err != nil {
		t.Fatalf("LoadWithProfile failed: %v", err)
	}
	if cfg.Profile != "studio" {
		t.Errorf("Expected active profile 'studio', got %s", cfg.Profile)
	}
}

func TestExpandPath(t *testing.T) {
	home, _ := os.UserHomeDir()
	if got := expandPath("~/Audio"); got != filepath.Join(home, "Audio") {
		t.Errorf("Expected tilde expansion, got %s", got)
	}
	if got := expandPath("/abs/path"); got != "/abs/path" {
		t.Errorf("Expected absolute path unchanged, got %s", got)
	}
}

func TestNewRecordingPath(t *testing.T) {
	cfg := Default()
	cfg.Output.Directory = "/tmp/rec"
	cfg.Output.Extension = "flac"

	first := cfg.NewRecordingPath()
	second := cfg.NewRecordingPath()
	if first == second {
		t.Error("Expected unique recording paths")
	}
	if !strings.HasPrefix(first, "/tmp/rec/recording-") || !strings.HasSuffix(first, ".flac") {
		t.Errorf("Unexpected recording path: %s", first)
	}
}

func TestProfileNames(t *testing.T) {
	path := writeConfig(t, `
configs:
  studio: {}
  default: {}
  field:
    recorder:
      channels: 1
`)

	profiles, err := ProfileNames(path)
	if err != nil {
		t.Fatalf("ProfileNames failed: %v", err)
	}
	want := []string{"default", "field", "studio"}
	if strings.Join(profiles, ",") != strings.Join(want, ",") {
		t.Errorf("Expected profiles %v, got %v", want, profiles)
	}

	if _, err := ProfileNames(""); err == nil {
		t.Error("Expected error when no config file is given")
	}
}
