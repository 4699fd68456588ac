package config

// Audio sources accepted by the engine
const (
	AudioSourceDefault            = 0
	AudioSourceMic                = 1
	AudioSourceVoiceUplink        = 2
	AudioSourceVoiceDownlink      = 3
	AudioSourceVoiceCall          = 4
	AudioSourceCamcorder          = 5
	AudioSourceVoiceRecognition   = 6
	AudioSourceVoiceCommunication = 7
	AudioSourceRemoteSubmix       = 8
	AudioSourceUnprocessed        = 9
)

// Audio encodings
const (
	EncodingAAC    = "aac"
	EncodingAACELD = "aac_eld"
	EncodingAMRNB  = "amr_nb"
	EncodingAMRWB  = "amr_wb"
	EncodingHEAAC  = "he_aac"
	EncodingVorbis = "vorbis"
	EncodingLPCM   = "lpcm"
	EncodingFLAC   = "flac"
	EncodingOpus   = "opus"
)

// Output container formats
const (
	FormatMPEG4   = "mpeg_4"
	FormatAACADTS = "aac_adts"
	FormatAMRNB   = "amr_nb"
	FormatAMRWB   = "amr_wb"
	FormatThreeGP = "three_gpp"
	FormatWebM    = "webm"
	FormatMPEG2TS = "mpeg_2_ts"
)

// Quality levels
const (
	QualityLow    = "Low"
	QualityMedium = "Medium"
	QualityHigh   = "High"
)

// Options is a fully resolved set of recording options handed to the engine on prepare.
// Every field is always defined; a zero MaxDuration means unlimited.
type Options struct {
	SampleRate             int    `mapstructure:"sample_rate" yaml:"sample_rate" json:"sample_rate"`
	Channels               int    `mapstructure:"channels" yaml:"channels" json:"channels"`
	AudioQuality           string `mapstructure:"audio_quality" yaml:"audio_quality" json:"audio_quality"`
	AudioEncoding          string `mapstructure:"audio_encoding" yaml:"audio_encoding" json:"audio_encoding"`
	OutputFormat           string `mapstructure:"output_format" yaml:"output_format" json:"output_format"`
	MeteringEnabled        bool   `mapstructure:"metering_enabled" yaml:"metering_enabled" json:"metering_enabled"`
	ProgressUpdateInterval int    `mapstructure:"progress_update_interval" yaml:"progress_update_interval" json:"progress_update_interval"` // ms
	MeasurementMode        bool   `mapstructure:"measurement_mode" yaml:"measurement_mode" json:"measurement_mode"`
	AudioEncodingBitRate   int    `mapstructure:"audio_encoding_bit_rate" yaml:"audio_encoding_bit_rate" json:"audio_encoding_bit_rate"`
	IncludeBase64          bool   `mapstructure:"include_base64" yaml:"include_base64" json:"include_base64"`
	AudioSource            int    `mapstructure:"audio_source" yaml:"audio_source" json:"audio_source"`
	MaxDuration            int    `mapstructure:"max_duration" yaml:"max_duration" json:"max_duration"` // ms
}

// Overrides holds caller supplied options. Nil fields keep the default.
type Overrides struct {
	SampleRate             *int    `mapstructure:"sample_rate,omitempty" yaml:"sample_rate,omitempty" json:"sample_rate,omitempty"`
	Channels               *int    `mapstructure:"channels,omitempty" yaml:"channels,omitempty" json:"channels,omitempty"`
	AudioQuality           *string `mapstructure:"audio_quality,omitempty" yaml:"audio_quality,omitempty" json:"audio_quality,omitempty"`
	AudioEncoding          *string `mapstructure:"audio_encoding,omitempty" yaml:"audio_encoding,omitempty" json:"audio_encoding,omitempty"`
	OutputFormat           *string `mapstructure:"output_format,omitempty" yaml:"output_format,omitempty" json:"output_format,omitempty"`
	MeteringEnabled        *bool   `mapstructure:"metering_enabled,omitempty" yaml:"metering_enabled,omitempty" json:"metering_enabled,omitempty"`
	ProgressUpdateInterval *int    `mapstructure:"progress_update_interval,omitempty" yaml:"progress_update_interval,omitempty" json:"progress_update_interval,omitempty"`
	MeasurementMode        *bool   `mapstructure:"measurement_mode,omitempty" yaml:"measurement_mode,omitempty" json:"measurement_mode,omitempty"`
	AudioEncodingBitRate   *int    `mapstructure:"audio_encoding_bit_rate,omitempty" yaml:"audio_encoding_bit_rate,omitempty" json:"audio_encoding_bit_rate,omitempty"`
	IncludeBase64          *bool   `mapstructure:"include_base64,omitempty" yaml:"include_base64,omitempty" json:"include_base64,omitempty"`
	AudioSource            *int    `mapstructure:"audio_source,omitempty" yaml:"audio_source,omitempty" json:"audio_source,omitempty"`
	MaxDuration            *int    `mapstructure:"max_duration,omitempty" yaml:"max_duration,omitempty" json:"max_duration,omitempty"`
}

var defaultOptions = Options{
	SampleRate:             44100,
	Channels:               2,
	AudioQuality:           QualityHigh,
	AudioEncoding:          EncodingAAC,
	OutputFormat:           FormatAACADTS,
	MeteringEnabled:        false,
	ProgressUpdateInterval: 1000,
	MeasurementMode:        false,
	AudioEncodingBitRate:   128000,
	IncludeBase64:          false,
	AudioSource:            AudioSourceMic,
	MaxDuration:            0,
}

// Defaults returns a copy of the built-in option set.
func Defaults() Options {
	return defaultOptions
}

// Resolve returns the defaults with every set override applied.
func Resolve(o Overrides) Options {
	return o.ApplyTo(defaultOptions)
}

// ApplyTo returns base with each non-nil override replacing the matching field.
func (o Overrides) ApplyTo(base Options) Options {
	result := base
	if o.SampleRate != nil {
		result.SampleRate = *o.SampleRate
	}
	if o.Channels != nil {
		result.Channels = *o.Channels
	}
	if o.AudioQuality != nil {
		result.AudioQuality = *o.AudioQuality
	}
	if o.AudioEncoding != nil {
		result.AudioEncoding = *o.AudioEncoding
	}
	if o.OutputFormat != nil {
		result.OutputFormat = *o.OutputFormat
	}
	if o.MeteringEnabled != nil {
		result.MeteringEnabled = *o.MeteringEnabled
	}
	if o.ProgressUpdateInterval != nil {
		result.ProgressUpdateInterval = *o.ProgressUpdateInterval
	}
	if o.MeasurementMode != nil {
		result.MeasurementMode = *o.MeasurementMode
	}
	if o.AudioEncodingBitRate != nil {
		result.AudioEncodingBitRate = *o.AudioEncodingBitRate
	}
	if o.IncludeBase64 != nil {
		result.IncludeBase64 = *o.IncludeBase64
	}
	if o.AudioSource != nil {
		result.AudioSource = *o.AudioSource
	}
	if o.MaxDuration != nil {
		result.MaxDuration = *o.MaxDuration
	}
	return result
}

// Merge layers profile over o; values set in profile win.
func (o Overrides) Merge(profile Overrides) Overrides {
	result := o
	if profile.SampleRate != nil {
		result.SampleRate = profile.SampleRate
	}
	if profile.Channels != nil {
		result.Channels = profile.Channels
	}
	if profile.AudioQuality != nil {
		result.AudioQuality = profile.AudioQuality
	}
	if profile.AudioEncoding != nil {
		result.AudioEncoding = profile.AudioEncoding
	}
	if profile.OutputFormat != nil {
		result.OutputFormat = profile.OutputFormat
	}
	if profile.MeteringEnabled != nil {
		result.MeteringEnabled = profile.MeteringEnabled
	}
	if profile.ProgressUpdateInterval != nil {
		result.ProgressUpdateInterval = profile.ProgressUpdateInterval
	}
	if profile.MeasurementMode != nil {
		result.MeasurementMode = profile.MeasurementMode
	}
	if profile.AudioEncodingBitRate != nil {
		result.AudioEncodingBitRate = profile.AudioEncodingBitRate
	}
	if profile.IncludeBase64 != nil {
		result.IncludeBase64 = profile.IncludeBase64
	}
	if profile.AudioSource != nil {
		result.AudioSource = profile.AudioSource
	}
	if profile.MaxDuration != nil {
		result.MaxDuration = profile.MaxDuration
	}
	return result
}
