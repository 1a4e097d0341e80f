// Package config resolves, parses, validates, and defaults voce configuration.
package config

// Config is the fully materialized runtime configuration used by voce.
type Config struct {
	WakeWord   string
	Parser     ParserConfig
	Activation ActivationConfig
	Engine     EngineConfig
	Riva       RivaConfig
	Audio      AudioConfig
	Inject     InjectConfig
	Indicator  IndicatorConfig
	Logging    LoggingConfig
	Metrics    MetricsConfig
	Vocab      VocabConfig
	Debug      DebugConfig
}

// ParserConfig tunes transcript command parsing.
type ParserConfig struct {
	StrictEnter bool
}

// ActivationConfig bounds how long a spoken wake word stays armed.
type ActivationConfig struct {
	TimeoutMS int
}

// EngineConfig selects and tunes the speech engine.
type EngineConfig struct {
	Backend        string
	ModelPath      string
	Language       string
	BeamSize       int
	Threads        int
	SilenceMS      int
	MinSpeechMS    int
	MaxUtteranceMS int
	RMSThreshold   float64
}

// RivaConfig controls the remote Riva streaming backend.
type RivaConfig struct {
	GRPC                 string
	HTTP                 string
	HealthPath           string
	LanguageCode         string
	Model                string
	AutomaticPunctuation bool
}

// AudioConfig controls the capture backend and input-source selection.
type AudioConfig struct {
	Backend  string
	Input    string
	Fallback string
}

// InjectConfig controls how dictated text reaches the focused window.
type InjectConfig struct {
	Backend       string
	TypeCmd       CommandConfig
	KeyCmd        CommandConfig
	ClipboardCmd  CommandConfig
	PasteShortcut string
	TimeoutMS     int
}

// IndicatorConfig controls visual notifications, console feedback, and audio cues.
type IndicatorConfig struct {
	Enable            bool
	Backend           string
	DesktopAppName    string
	Console           bool
	SoundEnable       bool
	SoundActivateFile string
	SoundCompleteFile string
	SoundExpireFile   string
	SoundErrorFile    string
	ErrorTimeoutMS    int
}

// LoggingConfig controls log verbosity and file rotation.
type LoggingConfig struct {
	Level      string
	MaxSizeMB  int
	MaxBackups int
	Compress   bool
}

// MetricsConfig controls the optional Prometheus endpoint.
type MetricsConfig struct {
	Listen string
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

// VocabConfig controls enabled speech phrase sets and dedupe limits.
type VocabConfig struct {
	GlobalSets []string
	Sets       map[string]VocabSet
	MaxPhrases int
}

// VocabSet is one named phrase group with a shared boost value.
type VocabSet struct {
	Name    string
	Boost   float64
	Phrases []string
}

// DebugConfig controls optional debug artifact output.
type DebugConfig struct {
	EnableAudioDump bool
	EnableGRPCDump  bool
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}

// SpeechPhrase is the normalized phrase payload sent to ASR adapters.
type SpeechPhrase struct {
	Phrase string
	Boost  float32
}
