package config

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	typeCmd := "wtype -"
	keyCmd := "wtype -k"

	return Config{
		WakeWord:   "copy",
		Parser:     ParserConfig{StrictEnter: false},
		Activation: ActivationConfig{TimeoutMS: 30000},
		Engine: EngineConfig{
			Backend:        "whisper",
			ModelPath:      "~/.local/share/voce/models/ggml-small.en.bin",
			Language:       "en",
			BeamSize:       5,
			SilenceMS:      1500,
			MinSpeechMS:    250,
			MaxUtteranceMS: 30000,
			RMSThreshold:   300,
		},
		Riva: RivaConfig{
			GRPC:                 "127.0.0.1:50051",
			HTTP:                 "127.0.0.1:9000",
			HealthPath:           "/v1/health/ready",
			LanguageCode:         "en-US",
			AutomaticPunctuation: true,
		},
		Audio: AudioConfig{
			Backend:  "pulse",
			Input:    "default",
			Fallback: "default",
		},
		Inject: InjectConfig{
			Backend:       "command",
			TypeCmd:       CommandConfig{Raw: typeCmd, Argv: mustParseArgv(typeCmd)},
			KeyCmd:        CommandConfig{Raw: keyCmd, Argv: mustParseArgv(keyCmd)},
			PasteShortcut: "CTRL,V",
			TimeoutMS:     2000,
		},
		Indicator: IndicatorConfig{
			Enable:         true,
			Backend:        "hypr",
			DesktopAppName: "voce-indicator",
			Console:        true,
			SoundEnable:    true,
			ErrorTimeoutMS: 1600,
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  5,
			MaxBackups: 3,
		},
		Vocab: VocabConfig{
			GlobalSets: nil,
			Sets:       map[string]VocabSet{},
			MaxPhrases: 1024,
		},
		Debug: DebugConfig{},
	}
}
