// Package config loads birthdeck settings from defaults, an optional YAML
// file, BIRTHDECK_* environment variables and command-line flags, in that
// order of increasing priority.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix is the prefix of environment variables read by Load.
const EnvPrefix = "BIRTHDECK_"

// Stable identifiers. Anki merges re-imported packages by these ids, so they
// must never change between runs. They can only be overridden from a config
// file, never from a flag or the environment.
const (
	DefaultDeckID  int64 = 2059400110
	DefaultModelID int64 = 1607392319
)

const (
	DefaultDeckName  = "Birthdays"
	DefaultModelName = "Birthday Model"
	DefaultOutput    = "birthdays.apkg"
	DefaultCommand   = "osascript"
	DefaultTimeout   = 60 * time.Second
)

// fileOnlyKeys are the settings ignored outside the config file.
var fileOnlyKeys = map[string]bool{
	"deck.id":  true,
	"model.id": true,
}

// Config is the full set of runtime settings.
type Config struct {
	Output    string          `koanf:"output" validate:"required"`
	Deck      DeckConfig      `koanf:"deck"`
	Model     ModelConfig     `koanf:"model"`
	Extractor ExtractorConfig `koanf:"extractor"`
	Log       LogConfig       `koanf:"log"`
}

// DeckConfig identifies the generated deck.
type DeckConfig struct {
	ID   int64  `koanf:"id" validate:"gt=0"`
	Name string `koanf:"name" validate:"required"`
}

// ModelConfig identifies the card template.
type ModelConfig struct {
	ID   int64  `koanf:"id" validate:"gt=0"`
	Name string `koanf:"name" validate:"required"`
}

// ExtractorConfig controls the address-book query.
type ExtractorConfig struct {
	Command       string        `koanf:"command" validate:"required"`
	Timeout       time.Duration `koanf:"timeout" validate:"gt=0"`
	SkipMalformed bool          `koanf:"skip_malformed"`
}

// LogConfig sets the log level.
type LogConfig struct {
	Level string `koanf:"level" validate:"oneof=debug info warn error"`
}

// flagKeys maps flag names to configuration keys.
var flagKeys = map[string]string{
	"output":         "output",
	"deck-name":      "deck.name",
	"model-name":     "model.name",
	"command":        "extractor.command",
	"timeout":        "extractor.timeout",
	"skip-malformed": "extractor.skip_malformed",
	"log-level":      "log.level",
}

// RegisterFlags defines the command-line flags on fs. Their defaults are the
// built-in configuration.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "Path to an optional YAML configuration file")
	fs.StringP("output", "o", DefaultOutput, "Path of the .apkg file to write")
	fs.String("deck-name", DefaultDeckName, "Name of the generated deck")
	fs.String("model-name", DefaultModelName, "Name of the note type")
	fs.String("command", DefaultCommand, "Automation command used to query Contacts")
	fs.Duration("timeout", DefaultTimeout, "Maximum time to wait for the Contacts query")
	fs.Bool("skip-malformed", false, "Skip malformed contact records instead of aborting")
	fs.String("log-level", "info", "Log level: debug, info, warn or error")
}

// Load builds the configuration from the file named by the "config" flag,
// the environment and the parsed flags in fs.
func Load(fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path, _ := fs.GetString("config"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	flags := posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, interface{}) {
		key, ok := flagKeys[f.Name]
		if !ok {
			return "", nil
		}
		return key, posflag.FlagVal(fs, f)
	})
	if err := k.Load(flags, nil); err != nil {
		return nil, fmt.Errorf("failed to load flags: %w", err)
	}

	cfg := Config{
		Deck:  DeckConfig{ID: DefaultDeckID},
		Model: ModelConfig{ID: DefaultModelID},
	}
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey turns BIRTHDECK_EXTRACTOR_SKIP_MALFORMED into extractor.skip_malformed.
// Only the first underscore separates section from key. File-only keys map
// to "", which the env provider drops.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	key = strings.Replace(key, "_", ".", 1)
	if fileOnlyKeys[key] {
		return ""
	}
	return key
}

var validate = validator.New()

// Validate checks every field against its constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
