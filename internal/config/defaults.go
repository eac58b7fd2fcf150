package config

import (
	"os"
	"strings"

	"sdp-assistant/internal/domain"
)

const (
	// DefaultBackendURL points at a locally running SDP backend.
	DefaultBackendURL = "http://localhost:8000"

	// DefaultMatlabCmd is forwarded to the workflow endpoint unchanged.
	DefaultMatlabCmd = "matlab"

	// DefaultTimeoutSec bounds workflow execution on the server side.
	DefaultTimeoutSec = 300
)

// Environment variables that seed first-run defaults. A .env file next to
// the binary is honored via godotenv at startup.
const (
	EnvBackendURL = "SDP_BACKEND_URL"
	EnvAPIKey     = "SDP_API_KEY"
)

// ProviderDefaults returns the baseline model configuration for a provider.
// Unknown providers fall back to openai-compatible.
func ProviderDefaults(p domain.Provider) domain.ModelConfig {
	if p == domain.ProviderOllamaCompatible {
		return domain.ModelConfig{
			Provider: domain.ProviderOllamaCompatible,
			Model:    "mistral:7b-instruct",
			BaseURL:  "http://localhost:11434",
			APIKey:   "",
		}
	}

	return domain.ModelConfig{
		Provider: domain.ProviderOpenAICompatible,
		Model:    "gpt-4o-mini",
		BaseURL:  "https://api.openai.com/v1",
		APIKey:   os.Getenv(EnvAPIKey),
	}
}

// DefaultSettings returns baseline configuration for first launch.
func DefaultSettings() domain.Settings {
	backendURL := strings.TrimSpace(os.Getenv(EnvBackendURL))
	if backendURL == "" {
		backendURL = DefaultBackendURL
	}

	return domain.Settings{
		BackendURL: backendURL,
		Model:      ProviderDefaults(domain.ProviderOpenAICompatible),
		MatlabCmd:  DefaultMatlabCmd,
		TimeoutSec: DefaultTimeoutSec,
	}
}

// SwitchProvider moves a model configuration to another provider. Only
// fields still holding the prior provider's default are overwritten, so
// user edits survive the switch. Ollama-compatible backends take no API
// key, so the key is always cleared when switching to one.
func SwitchProvider(cfg domain.ModelConfig, to domain.Provider) domain.ModelConfig {
	if cfg.Provider == to {
		return cfg
	}

	from := ProviderDefaults(cfg.Provider)
	target := ProviderDefaults(to)

	out := cfg
	out.Provider = to
	if cfg.Model == from.Model || strings.TrimSpace(cfg.Model) == "" {
		out.Model = target.Model
	}
	if cfg.BaseURL == from.BaseURL || strings.TrimSpace(cfg.BaseURL) == "" {
		out.BaseURL = target.BaseURL
	}

	switch to {
	case domain.ProviderOllamaCompatible:
		out.APIKey = ""
	default:
		if strings.TrimSpace(cfg.APIKey) == "" {
			out.APIKey = target.APIKey
		}
	}

	return out
}

// Normalize trims user inputs and applies defaults for empty fields.
func Normalize(cfg domain.Settings) domain.Settings {
	cfg.BackendURL = strings.TrimSpace(cfg.BackendURL)
	if cfg.BackendURL == "" {
		cfg.BackendURL = DefaultSettings().BackendURL
	}

	cfg.MatlabCmd = strings.TrimSpace(cfg.MatlabCmd)
	if cfg.MatlabCmd == "" {
		cfg.MatlabCmd = DefaultMatlabCmd
	}
	if cfg.TimeoutSec <= 0 {
		cfg.TimeoutSec = DefaultTimeoutSec
	}

	cfg.Model.Model = strings.TrimSpace(cfg.Model.Model)
	cfg.Model.BaseURL = strings.TrimSpace(cfg.Model.BaseURL)
	cfg.Model.APIKey = strings.TrimSpace(cfg.Model.APIKey)
	if cfg.Model.Provider != domain.ProviderOllamaCompatible {
		cfg.Model.Provider = domain.ProviderOpenAICompatible
	}

	defaults := ProviderDefaults(cfg.Model.Provider)
	if cfg.Model.Model == "" {
		cfg.Model.Model = defaults.Model
	}
	if cfg.Model.BaseURL == "" {
		cfg.Model.BaseURL = defaults.BaseURL
	}

	return cfg
}
