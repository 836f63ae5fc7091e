package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// Environment variables that override file values.
const (
	EnvServerOrigin     = "MOCKHIRE_SERVER_ORIGIN"
	EnvVapiPublicKey    = "MOCKHIRE_VAPI_PUBLIC_KEY"
	EnvVapiAssistantID  = "MOCKHIRE_VAPI_ASSISTANT_ID"
	EnvVapiWorkflowID   = "MOCKHIRE_VAPI_WORKFLOW_ID"
	EnvSessionToken     = "MOCKHIRE_SESSION_TOKEN"
	EnvLogLevel         = "MOCKHIRE_LOG_LEVEL"
	defaultDotEnvSource = ".env"
)

// LoadDotEnv loads KEY=VALUE pairs from the given files (default: ./.env)
// into the process environment. Variables that are already set win. Missing
// files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{defaultDotEnvSource}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config: load %q: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overrides cfg fields with the values returned by lookup for the
// MOCKHIRE_* variables. Empty values are ignored.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) {
	set := func(dst *string, key string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	set(&cfg.Backend.Origin, EnvServerOrigin)
	set(&cfg.Voice.PublicKey, EnvVapiPublicKey)
	set(&cfg.Voice.AssistantID, EnvVapiAssistantID)
	set(&cfg.Voice.WorkflowID, EnvVapiWorkflowID)
	set(&cfg.Identity.SessionToken, EnvSessionToken)
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		cfg.Server.LogLevel = LogLevel(v)
	}
}

// LoadOrEnv builds the configuration from the optional YAML file at path,
// the .env file in the working directory and the process environment, in
// increasing order of precedence. A missing file is not an error as long as
// the environment supplies the required values.
func LoadOrEnv(path string) (*Config, error) {
	if err := LoadDotEnv(); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if path != "" {
		f, err := os.Open(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("config: open %q: %w", path, err)
		default:
			cfg, err = decode(f)
			f.Close()
			if err != nil {
				return nil, fmt.Errorf("config: parse %q: %w", path, err)
			}
		}
	}

	ApplyEnv(cfg, os.LookupEnv)
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
