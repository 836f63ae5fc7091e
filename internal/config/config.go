// Package config provides the configuration schema, loader, and provider
// registry for mockhire.
package config

import "time"

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Defaults applied by [ApplyDefaults].
const (
	DefaultVoiceProvider      = "vapi"
	DefaultMicrophoneProvider = "prompt"
	DefaultBackendTimeout     = 30 * time.Second
)

// Config is the root configuration structure.
// It is typically loaded with [LoadOrEnv], or [Load] / [LoadFromReader] for
// file-only setups.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Backend    BackendConfig    `yaml:"backend"`
	Voice      VoiceConfig      `yaml:"voice"`
	Microphone MicrophoneConfig `yaml:"microphone"`
	Identity   IdentityConfig   `yaml:"identity"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
}

// ServerConfig holds the status server and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address of the status server (e.g. ":9090").
	// Empty disables the server.
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// BackendConfig points at the interview backend.
type BackendConfig struct {
	// Origin is the scheme and host of the backend
	// (e.g. "https://api.mockhire.dev"). Required.
	Origin string `yaml:"origin"`

	// Timeout bounds every backend request. Default: 30s.
	Timeout time.Duration `yaml:"timeout"`
}

// VoiceConfig selects and configures the voice-call client.
type VoiceConfig struct {
	// Provider selects the registered client implementation. Default: "vapi".
	Provider string `yaml:"provider"`

	// PublicKey authenticates the client with the voice-call service.
	// Without it the interview cannot be started.
	PublicKey string `yaml:"public_key"`

	// AssistantID selects the interviewer assistant. Preferred over
	// WorkflowID when both are set.
	AssistantID string `yaml:"assistant_id"`

	// WorkflowID selects an interview workflow.
	WorkflowID string `yaml:"workflow_id"`

	// BaseURL overrides the service endpoint. Leave empty for the default.
	BaseURL string `yaml:"base_url"`
}

// MicrophoneConfig selects how microphone permission is obtained.
type MicrophoneConfig struct {
	// Provider is one of "prompt" (ask on the terminal), "static" or "alsa".
	// Default: "prompt".
	Provider string `yaml:"provider"`

	// Granted is the answer of the "static" provider.
	Granted bool `yaml:"granted"`

	// Device is the ALSA device directory for the "alsa" provider.
	// Default: /dev/snd.
	Device string `yaml:"device"`
}

// IdentityConfig describes how the signed-in user is established.
type IdentityConfig struct {
	// SessionToken is the identity provider's session token (a JWT).
	SessionToken string `yaml:"session_token"`

	// JWKSURL is the identity provider's key set endpoint. When set, the
	// session token is verified against it.
	JWKSURL string `yaml:"jwks_url"`

	// Issuer is the expected "iss" claim of the session token.
	Issuer string `yaml:"issuer"`

	// User is a fixed development user, used when no JWKS URL is
	// configured.
	User UserConfig `yaml:"user"`
}

// UserConfig is a statically configured user.
type UserConfig struct {
	ID        string `yaml:"id"`
	FullName  string `yaml:"full_name"`
	FirstName string `yaml:"first_name"`
	Email     string `yaml:"email"`
}

// TelemetryConfig configures the OpenTelemetry resource.
type TelemetryConfig struct {
	ServiceName    string `yaml:"service_name"`
	ServiceVersion string `yaml:"service_version"`
}
