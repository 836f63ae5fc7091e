package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"voice":      {"vapi"},
	"microphone": {"prompt", "static", "alsa"},
}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. Environment overrides are not applied; see [LoadOrEnv].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults and
// validates the result.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg, err := decode(r)
	if err != nil {
		return nil, err
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	return cfg, nil
}

// ApplyDefaults fills unset fields with their default values.
func ApplyDefaults(cfg *Config) {
	if cfg.Voice.Provider == "" {
		cfg.Voice.Provider = DefaultVoiceProvider
	}
	if cfg.Microphone.Provider == "" {
		cfg.Microphone.Provider = DefaultMicrophoneProvider
	}
	if cfg.Backend.Timeout == 0 {
		cfg.Backend.Timeout = DefaultBackendTimeout
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found. Missing
// voice-call settings are only warned about: the interview screen reports
// them when the user tries to start.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Backend
	if cfg.Backend.Origin == "" {
		errs = append(errs, fmt.Errorf("backend.origin is required (or set %s)", EnvServerOrigin))
	} else if u, err := url.Parse(cfg.Backend.Origin); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("backend.origin %q must be an absolute http(s) URL", cfg.Backend.Origin))
	}
	if cfg.Backend.Timeout < 0 {
		errs = append(errs, fmt.Errorf("backend.timeout %s must not be negative", cfg.Backend.Timeout))
	}

	// Voice
	validateProviderName("voice", cfg.Voice.Provider)
	if cfg.Voice.PublicKey == "" {
		slog.Warn("voice.public_key is empty; interviews cannot be started", "env", EnvVapiPublicKey)
	}
	if cfg.Voice.AssistantID == "" && cfg.Voice.WorkflowID == "" {
		slog.Warn("neither voice.assistant_id nor voice.workflow_id is set; interviews cannot be started")
	}
	if cfg.Voice.BaseURL != "" {
		if u, err := url.Parse(cfg.Voice.BaseURL); err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
			errs = append(errs, fmt.Errorf("voice.base_url %q must be a ws(s) URL", cfg.Voice.BaseURL))
		}
	}

	// Microphone
	validateProviderName("microphone", cfg.Microphone.Provider)
	if cfg.Microphone.Device != "" && cfg.Microphone.Provider != "alsa" {
		slog.Warn("microphone.device is only used by the alsa provider", "provider", cfg.Microphone.Provider)
	}

	// Identity
	if cfg.Identity.JWKSURL != "" {
		if cfg.Identity.Issuer == "" {
			errs = append(errs, errors.New("identity.issuer is required when identity.jwks_url is set"))
		}
		if u, err := url.Parse(cfg.Identity.JWKSURL); err != nil || u.Scheme != "https" && u.Scheme != "http" {
			errs = append(errs, fmt.Errorf("identity.jwks_url %q must be an http(s) URL", cfg.Identity.JWKSURL))
		}
	} else if cfg.Identity.User.ID == "" {
		slog.Warn("no identity configured; protected screens will ask the user to sign in")
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name; may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
