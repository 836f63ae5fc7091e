package config_test

import (
	"slices"
	"strings"
	"testing"

	"github.com/mockhire/mockhire/internal/config"
)

func TestValidate_MissingOrigin(t *testing.T) {
	t.Parallel()
	_, err := config.LoadFromReader(strings.NewReader("voice:\n  public_key: pk\n"))
	if err == nil {
		t.Fatal("expected error for missing backend origin, got nil")
	}
	if !strings.Contains(err.Error(), "backend.origin is required") {
		t.Errorf("error should mention backend.origin, got: %v", err)
	}
	if !strings.Contains(err.Error(), config.EnvServerOrigin) {
		t.Errorf("error should name the env variable, got: %v", err)
	}
}

func TestValidate_BadOrigin(t *testing.T) {
	t.Parallel()
	for _, origin := range []string{"ftp://host", "localhost:8000", "https://"} {
		t.Run(origin, func(t *testing.T) {
			t.Parallel()
			cfg := &config.Config{Backend: config.BackendConfig{Origin: origin}}
			if err := config.Validate(cfg); err == nil {
				t.Errorf("Validate(%q): expected error", origin)
			}
		})
	}
}

func TestValidate_NegativeTimeout(t *testing.T) {
	t.Parallel()
	yaml := `
backend:
  origin: http://localhost:8000
  timeout: -1s
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil || !strings.Contains(err.Error(), "timeout") {
		t.Fatalf("expected timeout error, got: %v", err)
	}
}

func TestValidate_VoiceBaseURLScheme(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{
		Backend: config.BackendConfig{Origin: "http://localhost:8000"},
		Voice:   config.VoiceConfig{BaseURL: "https://api.vapi.ai"},
	}
	if err := config.Validate(cfg); err == nil || !strings.Contains(err.Error(), "voice.base_url") {
		t.Fatalf("expected voice.base_url error, got: %v", err)
	}
	cfg.Voice.BaseURL = "wss://api.vapi.ai/call/web"
	if err := config.Validate(cfg); err != nil {
		t.Fatalf("wss base url should be valid: %v", err)
	}
}

func TestValidate_MissingVoiceSettingsOnlyWarn(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{Backend: config.BackendConfig{Origin: "https://api.mockhire.dev"}}
	if err := config.Validate(cfg); err != nil {
		t.Fatalf("missing voice settings should not fail validation: %v", err)
	}
}

func TestValidate_JWKSRequiresIssuer(t *testing.T) {
	t.Parallel()
	yaml := `
backend:
  origin: http://localhost:8000
identity:
  jwks_url: https://clerk.example.com/.well-known/jwks.json
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil || !strings.Contains(err.Error(), "identity.issuer") {
		t.Fatalf("expected identity.issuer error, got: %v", err)
	}
}

func TestValidate_MultipleErrors(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  log_level: loud
backend:
  timeout: -5s
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected errors, got nil")
	}
	errStr := err.Error()
	for _, want := range []string{"log_level", "backend.origin", "backend.timeout"} {
		if !strings.Contains(errStr, want) {
			t.Errorf("error should mention %s, got: %v", want, err)
		}
	}
}

func TestValidProviderNames(t *testing.T) {
	t.Parallel()
	if !slices.Contains(config.ValidProviderNames["voice"], config.DefaultVoiceProvider) {
		t.Errorf("ValidProviderNames[voice] should contain %q", config.DefaultVoiceProvider)
	}
	if !slices.Contains(config.ValidProviderNames["microphone"], config.DefaultMicrophoneProvider) {
		t.Errorf("ValidProviderNames[microphone] should contain %q", config.DefaultMicrophoneProvider)
	}
}
