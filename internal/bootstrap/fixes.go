package bootstrap

import (
	"fmt"
	"os"

	"sdp-assistant/internal/config"
	"sdp-assistant/internal/domain"
)

// ApplyDiagnosticFix repairs the settings group behind a failed diagnostic
// item by restoring its defaults, then persists and rechecks.
func (a *App) ApplyDiagnosticFix(itemID string) (domain.Settings, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return domain.Settings{}, fmt.Errorf("load settings: %w", err)
	}

	switch itemID {
	case "backend_url":
		settings.BackendURL = config.DefaultBackendURL

	case "model_config":
		defaults := config.ProviderDefaults(settings.Model.Provider)
		if settings.Model.Model == "" {
			settings.Model.Model = defaults.Model
		}
		if settings.Model.BaseURL == "" {
			settings.Model.BaseURL = defaults.BaseURL
		}
		if settings.Model.Provider != domain.ProviderOllamaCompatible && settings.Model.APIKey == "" {
			settings.Model.APIKey = os.Getenv(config.EnvAPIKey)
		}

	case "workflow_settings":
		settings.MatlabCmd = config.DefaultMatlabCmd
		settings.TimeoutSec = config.DefaultTimeoutSec

	default:
		return domain.Settings{}, fmt.Errorf("no automatic fix for %q", itemID)
	}

	settings = config.Normalize(settings)
	if err := a.Store.Save(settings); err != nil {
		return domain.Settings{}, fmt.Errorf("save settings: %w", err)
	}

	a.refreshDiagnosticsFromSettings(settings)
	return settings, nil
}
