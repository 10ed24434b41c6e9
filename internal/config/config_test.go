package config

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("birthdeck", pflag.ContinueOnError)
	RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("Parse() returned an unexpected error: %v", err)
	}
	return fs
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(newFlags(t))
	if err != nil {
		t.Fatalf("Load() returned an unexpected error: %v", err)
	}

	if cfg.Output != "birthdays.apkg" {
		t.Errorf("Expected output 'birthdays.apkg', but got '%s'", cfg.Output)
	}
	if cfg.Deck.ID != 2059400110 || cfg.Deck.Name != "Birthdays" {
		t.Errorf("Unexpected deck config: %+v", cfg.Deck)
	}
	if cfg.Model.ID != 1607392319 || cfg.Model.Name != "Birthday Model" {
		t.Errorf("Unexpected model config: %+v", cfg.Model)
	}
	if cfg.Extractor.Command != DefaultCommand || cfg.Extractor.Timeout != time.Minute || cfg.Extractor.SkipMalformed {
		t.Errorf("Unexpected extractor config: %+v", cfg.Extractor)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Expected log level 'info', but got '%s'", cfg.Log.Level)
	}
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "birthdeck.yaml")
	yaml := `
output: from-file.apkg
deck:
  name: File Deck
extractor:
  timeout: 5s
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("BIRTHDECK_DECK_NAME", "Env Deck")
	t.Setenv("BIRTHDECK_EXTRACTOR_SKIP_MALFORMED", "true")
	t.Setenv("BIRTHDECK_OUTPUT", "from-env.apkg")

	cfg, err := Load(newFlags(t, "--config", path, "--output", "from-flag.apkg"))
	if err != nil {
		t.Fatalf("Load() returned an unexpected error: %v", err)
	}

	if cfg.Output != "from-flag.apkg" {
		t.Errorf("Expected flag to win for output, but got '%s'", cfg.Output)
	}
	if cfg.Deck.Name != "Env Deck" {
		t.Errorf("Expected env to override file for deck name, but got '%s'", cfg.Deck.Name)
	}
	if cfg.Extractor.Timeout != 5*time.Second {
		t.Errorf("Expected timeout from file, but got %s", cfg.Extractor.Timeout)
	}
	if !cfg.Extractor.SkipMalformed {
		t.Error("Expected skip_malformed from env")
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Expected log level from file, but got '%s'", cfg.Log.Level)
	}
	if cfg.Deck.ID != DefaultDeckID {
		t.Errorf("Expected default deck id, but got %d", cfg.Deck.ID)
	}
}

func TestLoadValidation(t *testing.T) {
	testCases := []struct {
		name string
		args []string
	}{
		{"empty deck name", []string{"--deck-name", ""}},
		{"bad log level", []string{"--log-level", "loud"}},
		{"zero timeout", []string{"--timeout", "0s"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(newFlags(t, tc.args...))
			if err == nil || !strings.Contains(err.Error(), "invalid configuration") {
				t.Errorf("Expected a validation error, but got %v", err)
			}
		})
	}
}

func TestStableIDsAreFileOnly(t *testing.T) {
	t.Run("flags are not accepted", func(t *testing.T) {
		for _, flag := range []string{"--deck-id", "--model-id"} {
			fs := pflag.NewFlagSet("birthdeck", pflag.ContinueOnError)
			fs.SetOutput(io.Discard)
			RegisterFlags(fs)
			if err := fs.Parse([]string{flag, "42"}); err == nil {
				t.Errorf("Expected %s to be an unknown flag", flag)
			}
		}
	})

	t.Run("environment is ignored", func(t *testing.T) {
		t.Setenv("BIRTHDECK_DECK_ID", "42")
		t.Setenv("BIRTHDECK_MODEL_ID", "43")
		cfg, err := Load(newFlags(t))
		if err != nil {
			t.Fatalf("Load() returned an unexpected error: %v", err)
		}
		if cfg.Deck.ID != DefaultDeckID || cfg.Model.ID != DefaultModelID {
			t.Errorf("Expected default ids, but got deck %d and model %d", cfg.Deck.ID, cfg.Model.ID)
		}
	})

	t.Run("config file can set them", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "birthdeck.yaml")
		if err := os.WriteFile(path, []byte("deck:\n  id: 42\nmodel:\n  id: 43\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		cfg, err := Load(newFlags(t, "--config", path))
		if err != nil {
			t.Fatalf("Load() returned an unexpected error: %v", err)
		}
		if cfg.Deck.ID != 42 || cfg.Model.ID != 43 {
			t.Errorf("Expected ids from file, but got deck %d and model %d", cfg.Deck.ID, cfg.Model.ID)
		}
		if cfg.Deck.Name != DefaultDeckName {
			t.Errorf("Expected default deck name, but got '%s'", cfg.Deck.Name)
		}
	})

	t.Run("zero id in file is rejected", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "birthdeck.yaml")
		if err := os.WriteFile(path, []byte("deck:\n  id: 0\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		_, err := Load(newFlags(t, "--config", path))
		if err == nil || !strings.Contains(err.Error(), "invalid configuration") {
			t.Errorf("Expected a validation error, but got %v", err)
		}
	})
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(newFlags(t, "--config", filepath.Join(t.TempDir(), "nope.yaml")))
	if err == nil {
		t.Error("Expected an error for a missing config file")
	}
}

func TestEnvKey(t *testing.T) {
	testCases := map[string]string{
		"BIRTHDECK_OUTPUT":                   "output",
		"BIRTHDECK_EXTRACTOR_SKIP_MALFORMED": "extractor.skip_malformed",
		"BIRTHDECK_DECK_ID":                  "",
		"BIRTHDECK_MODEL_ID":                 "",
	}
	for in, expected := range testCases {
		if got := envKey(in); got != expected {
			t.Errorf("Expected envKey(%s) to be '%s', but got '%s'", in, expected, got)
		}
	}
}
