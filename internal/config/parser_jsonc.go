package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

type fileConfig struct {
	WakeWord   *string         `json:"wake_word" yaml:"wake_word"`
	Command    *fileCommand    `json:"command" yaml:"command"`
	Activation *fileActivation `json:"activation" yaml:"activation"`
	Engine     *fileEngine     `json:"engine" yaml:"engine"`
	Riva       *fileRiva       `json:"riva" yaml:"riva"`
	Audio      *fileAudio      `json:"audio" yaml:"audio"`
	Inject     *fileInject     `json:"inject" yaml:"inject"`
	Indicator  *fileIndicator  `json:"indicator" yaml:"indicator"`
	Logging    *fileLogging    `json:"logging" yaml:"logging"`
	Metrics    *fileMetrics    `json:"metrics" yaml:"metrics"`
	Vocab      *fileVocab      `json:"vocab" yaml:"vocab"`
	Debug      *fileDebug      `json:"debug" yaml:"debug"`
}

type fileCommand struct {
	StrictEnter *bool `json:"strict_enter" yaml:"strict_enter"`
}

type fileActivation struct {
	TimeoutMS *int `json:"timeout_ms" yaml:"timeout_ms"`
}

type fileEngine struct {
	Backend        *string  `json:"backend" yaml:"backend"`
	ModelPath      *string  `json:"model_path" yaml:"model_path"`
	Language       *string  `json:"language" yaml:"language"`
	BeamSize       *int     `json:"beam_size" yaml:"beam_size"`
	Threads        *int     `json:"threads" yaml:"threads"`
	SilenceMS      *int     `json:"silence_ms" yaml:"silence_ms"`
	MinSpeechMS    *int     `json:"min_speech_ms" yaml:"min_speech_ms"`
	MaxUtteranceMS *int     `json:"max_utterance_ms" yaml:"max_utterance_ms"`
	RMSThreshold   *float64 `json:"rms_threshold" yaml:"rms_threshold"`
}

type fileRiva struct {
	GRPC                 *string `json:"grpc" yaml:"grpc"`
	HTTP                 *string `json:"http" yaml:"http"`
	HealthPath           *string `json:"health_path" yaml:"health_path"`
	LanguageCode         *string `json:"language_code" yaml:"language_code"`
	Model                *string `json:"model" yaml:"model"`
	AutomaticPunctuation *bool   `json:"automatic_punctuation" yaml:"automatic_punctuation"`
}

type fileAudio struct {
	Backend  *string `json:"backend" yaml:"backend"`
	Input    *string `json:"input" yaml:"input"`
	Fallback *string `json:"fallback" yaml:"fallback"`
}

type fileInject struct {
	Backend       *string `json:"backend" yaml:"backend"`
	TypeCmd       *string `json:"type_cmd" yaml:"type_cmd"`
	KeyCmd        *string `json:"key_cmd" yaml:"key_cmd"`
	ClipboardCmd  *string `json:"clipboard_cmd" yaml:"clipboard_cmd"`
	PasteShortcut *string `json:"paste_shortcut" yaml:"paste_shortcut"`
	TimeoutMS     *int    `json:"timeout_ms" yaml:"timeout_ms"`
}

type fileIndicator struct {
	Enable            *bool   `json:"enable" yaml:"enable"`
	Backend           *string `json:"backend" yaml:"backend"`
	DesktopAppName    *string `json:"desktop_app_name" yaml:"desktop_app_name"`
	Console           *bool   `json:"console" yaml:"console"`
	SoundEnable       *bool   `json:"sound_enable" yaml:"sound_enable"`
	SoundActivateFile *string `json:"sound_activate_file" yaml:"sound_activate_file"`
	SoundCompleteFile *string `json:"sound_complete_file" yaml:"sound_complete_file"`
	SoundExpireFile   *string `json:"sound_expire_file" yaml:"sound_expire_file"`
	SoundErrorFile    *string `json:"sound_error_file" yaml:"sound_error_file"`
	ErrorTimeoutMS    *int    `json:"error_timeout_ms" yaml:"error_timeout_ms"`
}

type fileLogging struct {
	Level      *string `json:"level" yaml:"level"`
	MaxSizeMB  *int    `json:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups *int    `json:"max_backups" yaml:"max_backups"`
	Compress   *bool   `json:"compress" yaml:"compress"`
}

type fileMetrics struct {
	Listen *string `json:"listen" yaml:"listen"`
}

type fileVocab struct {
	Global     *stringList             `json:"global" yaml:"global"`
	MaxPhrases *int                    `json:"max_phrases" yaml:"max_phrases"`
	Sets       map[string]fileVocabSet `json:"sets" yaml:"sets"`
}

type fileVocabSet struct {
	Boost   *float64 `json:"boost" yaml:"boost"`
	Phrases []string `json:"phrases" yaml:"phrases"`
}

type fileDebug struct {
	AudioDump *bool `json:"audio_dump" yaml:"audio_dump"`
	GRPCDump  *bool `json:"grpc_dump" yaml:"grpc_dump"`
}

// stringList accepts either a list of strings or one comma-delimited string.
type stringList []string

func (l *stringList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*l = list
		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*l = splitCommaList(single)
		return nil
	}

	return fmt.Errorf("expected string array or comma-delimited string")
}

func (l *stringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		*l = list
		return nil
	case yaml.ScalarNode:
		*l = splitCommaList(node.Value)
		return nil
	default:
		return fmt.Errorf("line %d: expected string array or comma-delimited string", node.Line)
	}
}

func splitCommaList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

func parseJSONC(content string, base Config) (Config, []Warning, error) {
	normalized, err := normalizeJSONC(content)
	if err != nil {
		return Config{}, nil, err
	}

	decoder := json.NewDecoder(strings.NewReader(normalized))
	decoder.DisallowUnknownFields()

	var payload fileConfig
	if err := decoder.Decode(&payload); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}
	if err := ensureSingleJSONValue(decoder); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}

	return payload.materialize(base)
}

func (payload fileConfig) materialize(base Config) (Config, []Warning, error) {
	cfg := base
	warnings, err := payload.applyTo(&cfg)
	if err != nil {
		return Config{}, nil, err
	}

	validatedWarnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	warnings = append(warnings, validatedWarnings...)
	return cfg, warnings, nil
}

func (payload fileConfig) applyTo(cfg *Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if payload.WakeWord != nil {
		cfg.WakeWord = strings.ToLower(strings.TrimSpace(*payload.WakeWord))
	}

	if payload.Command != nil && payload.Command.StrictEnter != nil {
		cfg.Parser.StrictEnter = *payload.Command.StrictEnter
	}

	if payload.Activation != nil && payload.Activation.TimeoutMS != nil {
		cfg.Activation.TimeoutMS = *payload.Activation.TimeoutMS
	}

	if e := payload.Engine; e != nil {
		if e.Backend != nil {
			cfg.Engine.Backend = strings.ToLower(strings.TrimSpace(*e.Backend))
		}
		if e.ModelPath != nil {
			cfg.Engine.ModelPath = strings.TrimSpace(*e.ModelPath)
		}
		if e.Language != nil {
			cfg.Engine.Language = strings.TrimSpace(*e.Language)
		}
		if e.BeamSize != nil {
			cfg.Engine.BeamSize = *e.BeamSize
		}
		if e.Threads != nil {
			cfg.Engine.Threads = *e.Threads
		}
		if e.SilenceMS != nil {
			cfg.Engine.SilenceMS = *e.SilenceMS
		}
		if e.MinSpeechMS != nil {
			cfg.Engine.MinSpeechMS = *e.MinSpeechMS
		}
		if e.MaxUtteranceMS != nil {
			cfg.Engine.MaxUtteranceMS = *e.MaxUtteranceMS
		}
		if e.RMSThreshold != nil {
			cfg.Engine.RMSThreshold = *e.RMSThreshold
		}
	}

	if r := payload.Riva; r != nil {
		if r.GRPC != nil {
			cfg.Riva.GRPC = *r.GRPC
		}
		if r.HTTP != nil {
			cfg.Riva.HTTP = *r.HTTP
		}
		if r.HealthPath != nil {
			cfg.Riva.HealthPath = *r.HealthPath
		}
		if r.LanguageCode != nil {
			cfg.Riva.LanguageCode = *r.LanguageCode
		}
		if r.Model != nil {
			cfg.Riva.Model = *r.Model
		}
		if r.AutomaticPunctuation != nil {
			cfg.Riva.AutomaticPunctuation = *r.AutomaticPunctuation
		}
	}

	if a := payload.Audio; a != nil {
		if a.Backend != nil {
			cfg.Audio.Backend = strings.ToLower(strings.TrimSpace(*a.Backend))
		}
		if a.Input != nil {
			cfg.Audio.Input = *a.Input
		}
		if a.Fallback != nil {
			cfg.Audio.Fallback = *a.Fallback
		}
	}

	if in := payload.Inject; in != nil {
		if in.Backend != nil {
			cfg.Inject.Backend = strings.ToLower(strings.TrimSpace(*in.Backend))
		}
		commands := []struct {
			key string
			raw *string
			dst *CommandConfig
		}{
			{"inject.type_cmd", in.TypeCmd, &cfg.Inject.TypeCmd},
			{"inject.key_cmd", in.KeyCmd, &cfg.Inject.KeyCmd},
			{"inject.clipboard_cmd", in.ClipboardCmd, &cfg.Inject.ClipboardCmd},
		}
		for _, c := range commands {
			if c.raw == nil {
				continue
			}
			argv, err := parseArgv(*c.raw)
			if err != nil {
				return nil, fmt.Errorf("invalid %s: %w", c.key, err)
			}
			*c.dst = CommandConfig{Raw: *c.raw, Argv: argv}
		}
		if in.PasteShortcut != nil {
			cfg.Inject.PasteShortcut = strings.TrimSpace(*in.PasteShortcut)
		}
		if in.TimeoutMS != nil {
			cfg.Inject.TimeoutMS = *in.TimeoutMS
		}
	}

	if ind := payload.Indicator; ind != nil {
		if ind.Enable != nil {
			cfg.Indicator.Enable = *ind.Enable
		}
		if ind.Backend != nil {
			cfg.Indicator.Backend = strings.ToLower(strings.TrimSpace(*ind.Backend))
		}
		if ind.DesktopAppName != nil {
			cfg.Indicator.DesktopAppName = strings.TrimSpace(*ind.DesktopAppName)
		}
		if ind.Console != nil {
			cfg.Indicator.Console = *ind.Console
		}
		if ind.SoundEnable != nil {
			cfg.Indicator.SoundEnable = *ind.SoundEnable
		}
		if ind.SoundCompleteFile != nil {
			cfg.Indicator.SoundCompleteFile = strings.TrimSpace(*ind.SoundCompleteFile)
		}
		if ind.SoundExpireFile != nil {
			cfg.Indicator.SoundExpireFile = strings.TrimSpace(*ind.SoundExpireFile)
		}
		if ind.SoundActivateFile != nil {
			cfg.Indicator.SoundActivateFile = strings.TrimSpace(*ind.SoundActivateFile)
		}
		if ind.SoundErrorFile != nil {
			cfg.Indicator.SoundErrorFile = strings.TrimSpace(*ind.SoundErrorFile)
		}
		if ind.ErrorTimeoutMS != nil {
			cfg.Indicator.ErrorTimeoutMS = *ind.ErrorTimeoutMS
		}
	}

	if l := payload.Logging; l != nil {
		if l.Level != nil {
			cfg.Logging.Level = strings.ToLower(strings.TrimSpace(*l.Level))
		}
		if l.MaxSizeMB != nil {
			cfg.Logging.MaxSizeMB = *l.MaxSizeMB
		}
		if l.MaxBackups != nil {
			cfg.Logging.MaxBackups = *l.MaxBackups
		}
		if l.Compress != nil {
			cfg.Logging.Compress = *l.Compress
		}
	}

	if payload.Metrics != nil && payload.Metrics.Listen != nil {
		cfg.Metrics.Listen = strings.TrimSpace(*payload.Metrics.Listen)
	}

	if payload.Vocab != nil {
		if payload.Vocab.Global != nil {
			cfg.Vocab.GlobalSets = cfg.Vocab.GlobalSets[:0]
			for _, name := range *payload.Vocab.Global {
				name = strings.TrimSpace(name)
				if name == "" {
					continue
				}
				cfg.Vocab.GlobalSets = append(cfg.Vocab.GlobalSets, name)
			}
		}
		if payload.Vocab.MaxPhrases != nil {
			cfg.Vocab.MaxPhrases = *payload.Vocab.MaxPhrases
		}
		if payload.Vocab.Sets != nil {
			sets := make(map[string]VocabSet, len(cfg.Vocab.Sets)+len(payload.Vocab.Sets))
			for name, set := range cfg.Vocab.Sets {
				sets[name] = set
			}
			for name, set := range payload.Vocab.Sets {
				trimmedName := strings.TrimSpace(name)
				if trimmedName == "" {
					return nil, fmt.Errorf("vocab.sets contains an empty set name")
				}

				phrases := make([]string, 0, len(set.Phrases))
				phrases = append(phrases, set.Phrases...)

				entry := VocabSet{Name: trimmedName, Phrases: phrases}
				if set.Boost != nil {
					entry.Boost = *set.Boost
				}
				sets[trimmedName] = entry
			}
			cfg.Vocab.Sets = sets
		}
	}

	if payload.Debug != nil {
		if payload.Debug.AudioDump != nil {
			cfg.Debug.EnableAudioDump = *payload.Debug.AudioDump
		}
		if payload.Debug.GRPCDump != nil {
			cfg.Debug.EnableGRPCDump = *payload.Debug.GRPCDump
		}
	}

	return warnings, nil
}

func normalizeJSONC(content string) (string, error) {
	withoutComments, err := stripJSONCComments(content)
	if err != nil {
		return "", err
	}
	return stripJSONCTrailingCommas(withoutComments), nil
}

func stripJSONCComments(content string) (string, error) {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false
	lineComment := false
	blockComment := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if lineComment {
			if ch == '\n' {
				lineComment = false
				out.WriteByte(ch)
				continue
			}
			if ch == '\r' {
				lineComment = false
				out.WriteByte(ch)
				continue
			}
			out.WriteByte(' ')
			continue
		}

		if blockComment {
			if ch == '*' && i+1 < len(content) && content[i+1] == '/' {
				blockComment = false
				out.WriteString("  ")
				i++
				continue
			}
			if ch == '\n' || ch == '\r' || ch == '\t' {
				out.WriteByte(ch)
			} else {
				out.WriteByte(' ')
			}
			continue
		}

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == '/' && i+1 < len(content) {
			next := content[i+1]
			if next == '/' {
				lineComment = true
				out.WriteString("  ")
				i++
				continue
			}
			if next == '*' {
				blockComment = true
				out.WriteString("  ")
				i++
				continue
			}
		}

		out.WriteByte(ch)
	}

	if blockComment {
		return "", fmt.Errorf("unterminated block comment in JSONC")
	}

	return out.String(), nil
}

func stripJSONCTrailingCommas(content string) string {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == ',' {
			j := i + 1
			for j < len(content) && isJSONWhitespace(content[j]) {
				j++
			}
			if j < len(content) && (content[j] == '}' || content[j] == ']') {
				continue
			}
		}

		out.WriteByte(ch)
	}

	return out.String()
}

func isJSONWhitespace(ch byte) bool {
	switch ch {
	case ' ', '\n', '\r', '\t':
		return true
	default:
		return false
	}
}

func ensureSingleJSONValue(decoder *json.Decoder) error {
	var extra struct{}
	err := decoder.Decode(&extra)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err == nil {
		return fmt.Errorf("multiple JSON values are not allowed")
	}
	return err
}

func wrapJSONDecodeError(content string, err error) error {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		line, col := offsetToLineCol(content, syntaxErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		line, col := offsetToLineCol(content, typeErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	return err
}

func offsetToLineCol(content string, offset int64) (int, int) {
	if offset <= 0 {
		return 1, 1
	}

	limit := int(offset)
	if limit > len(content) {
		limit = len(content)
	}

	line := 1
	col := 1
	for i := 0; i < limit-1; i++ {
		if content[i] == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}
