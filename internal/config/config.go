package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment variable overrides (RECORDER_OUTPUT_DIRECTORY, ...)
const EnvPrefix = "RECORDER"

type RootConfig struct {
	ActiveConfig string                    `mapstructure:"active_config" yaml:"active_config"`
	Output       *OutputConfig             `mapstructure:"output,omitempty" yaml:"output,omitempty"`
	Server       *ServerConfig             `mapstructure:"server,omitempty" yaml:"server,omitempty"`
	Configs      map[string]*ConfigProfile `mapstructure:"configs" yaml:"configs"`
}

type ConfigProfile struct {
	Recorder Overrides    `mapstructure:"recorder" yaml:"recorder"`
	Output   OutputConfig `mapstructure:"output" yaml:"output"`
}

type OutputConfig struct {
	Directory string `mapstructure:"directory" yaml:"directory"`
	Extension string `mapstructure:"extension" yaml:"extension"`
}

type ServerConfig struct {
	Port string `mapstructure:"port" yaml:"port"`
}

// Config is the resolved configuration for one run of the tool.
type Config struct {
	Profile  string       `yaml:"profile"`
	Recorder Overrides    `yaml:"recorder"`
	Output   OutputConfig `yaml:"output"`
	Server   ServerConfig `yaml:"server"`
}

// Options resolves the recorder overrides against the built-in defaults.
func (c *Config) Options() Options {
	return Resolve(c.Recorder)
}

// NewRecordingPath returns a fresh uuid-named file in the output directory
func (c *Config) NewRecordingPath() string {
	ext := c.Output.Extension
	if ext == "" {
		ext = "aac"
	}
	return filepath.Join(c.Output.Directory, fmt.Sprintf("recording-%s.%s", uuid.NewString(), ext))
}

var defaultConfig = Config{
	Profile: "default",
	Output: OutputConfig{
		Directory: filepath.Join(os.Getenv("HOME"), "Audio", "Recordings"),
		Extension: "aac",
	},
	Server: ServerConfig{
		Port: "8080",
	},
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	cfg := defaultConfig
	return &cfg
}

func LoadWithProfile(configFile, profile string) (*Config, error) {
	if configFile == "" {
		return nil, fmt.Errorf("no config file specified, use --config flag")
	}

	v := viper.New()
	v.SetConfigFile(configFile)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range []string{"active_config", "output.directory", "output.extension", "server.port"} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("error binding env for %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
	}

	var root RootConfig
	if err := v.Unmarshal(&root); err != nil {
		return nil, fmt.Errorf("error parsing config file %s: %w", configFile, err)
	}

	// Determine which config to use
	configName := profile
	if configName == "" {
		configName = root.ActiveConfig
	}
	if configName == "" {
		configName = "default"
	}

	selected, exists := root.Configs[configName]
	if !exists {
		// A file without profiles still carries output/server settings
		if len(root.Configs) > 0 || configName != "default" {
			return nil, fmt.Errorf("configuration profile '%s' not found", configName)
		}
		selected = &ConfigProfile{}
	}

	result := Default()
	result.Profile = configName

	// Global settings first, then the default profile, then the selected profile
	if root.Output != nil {
		result.Output = mergeOutput(result.Output, *root.Output)
	}
	if root.Server != nil && root.Server.Port != "" {
		result.Server.Port = root.Server.Port
	}
	if configName != "default" {
		if base, ok := root.Configs["default"]; ok && base != nil {
			result.Recorder = result.Recorder.Merge(base.Recorder)
			result.Output = mergeOutput(result.Output, base.Output)
		}
	}
	if selected != nil {
		result.Recorder = result.Recorder.Merge(selected.Recorder)
		result.Output = mergeOutput(result.Output, selected.Output)
	}

	result.Output.Directory = expandPath(result.Output.Directory)
	result.Output.Extension = strings.TrimPrefix(result.Output.Extension, ".")

	if err := validate(result); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return result, nil
}

// UpdateActiveConfig updates the active_config field in the config file
func UpdateActiveConfig(configFile, newActiveConfig string) error {
	if configFile == "" {
		return fmt.Errorf("no config file specified")
	}

	// Create a new viper instance to avoid interfering with the global one
	v := viper.New()
	v.SetConfigFile(configFile)

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config file %s: %w", configFile, err)
	}

	v.Set("active_config", newActiveConfig)

	if err := v.WriteConfig(); err != nil {
		return fmt.Errorf("error writing config file %s: %w", configFile, err)
	}

	return nil
}

// ProfileNames lists the profiles defined in the config file, sorted
func ProfileNames(configFile string) ([]string, error) {
	if configFile == "" {
		return nil, fmt.Errorf("no config file specified")
	}

	v := viper.New()
	v.SetConfigFile(configFile)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
	}

	var root RootConfig
	if err := v.Unmarshal(&root); err != nil {
		return nil, fmt.Errorf("error parsing config file %s: %w", configFile, err)
	}

	profiles := make([]string, 0, len(root.Configs))
	for name := range root.Configs {
		profiles = append(profiles, name)
	}
	sort.Strings(profiles)
	return profiles, nil
}

func mergeOutput(base, profile OutputConfig) OutputConfig {
	result := base
	if profile.Directory != "" {
		result.Directory = profile.Directory
	}
	if profile.Extension != "" {
		result.Extension = profile.Extension
	}
	return result
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, path[2:])
	}
	return path
}

// validate rejects values no engine could accept. Everything else is left to the engine.
func validate(cfg *Config) error {
	opts := cfg.Options()
	if opts.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got: %d", opts.SampleRate)
	}
	if opts.Channels != 1 && opts.Channels != 2 {
		return fmt.Errorf("channels must be 1 or 2, got: %d", opts.Channels)
	}
	if opts.ProgressUpdateInterval < 0 {
		return fmt.Errorf("progress_update_interval must not be negative, got: %d", opts.ProgressUpdateInterval)
	}
	if opts.MaxDuration < 0 {
		return fmt.Errorf("max_duration must not be negative, got: %d", opts.MaxDuration)
	}
	if opts.AudioSource < AudioSourceDefault || opts.AudioSource > AudioSourceUnprocessed {
		return fmt.Errorf("audio_source must be between %d and %d, got: %d", AudioSourceDefault, AudioSourceUnprocessed, opts.AudioSource)
	}
	if cfg.Output.Directory == "" {
		return fmt.Errorf("output directory must not be empty")
	}
	return nil
}
