package bootstrap

import (
	"fmt"
	"strings"

	"sdp-assistant/internal/config"
	"sdp-assistant/internal/domain"
)

// modelPresetCatalog lists the model configurations offered in the UI.
// Hosted entries assume an OpenAI-compatible endpoint; local entries assume
// an Ollama server with the model already pulled.
var modelPresetCatalog = []domain.ModelPreset{
	{
		ID:          "openai-gpt-4o-mini",
		Provider:    domain.ProviderOpenAICompatible,
		Model:       "gpt-4o-mini",
		Name:        "GPT-4o mini",
		Description: "Fast hosted default for most model questions.",
	},
	{
		ID:          "openai-gpt-4o",
		Provider:    domain.ProviderOpenAICompatible,
		Model:       "gpt-4o",
		Name:        "GPT-4o",
		Description: "Higher quality answers on large models, slower and pricier.",
	},
	{
		ID:          "ollama-mistral-7b-instruct",
		Provider:    domain.ProviderOllamaCompatible,
		Model:       "mistral:7b-instruct",
		Name:        "Mistral 7B Instruct",
		Description: "Local default, no API key needed.",
	},
	{
		ID:          "ollama-llama31-8b-instruct",
		Provider:    domain.ProviderOllamaCompatible,
		Model:       "llama3.1:8b-instruct",
		Name:        "Llama 3.1 8B Instruct",
		Description: "Stronger local option when VRAM allows.",
	},
	{
		ID:          "ollama-qwen25-coder-7b",
		Provider:    domain.ProviderOllamaCompatible,
		Model:       "qwen2.5-coder:7b",
		Name:        "Qwen 2.5 Coder 7B",
		Description: "Local option tuned for reading generated MATLAB code.",
	},
}

// GetModelPresets returns the selectable model presets.
func (a *App) GetModelPresets() []domain.ModelPreset {
	presets := make([]domain.ModelPreset, len(modelPresetCatalog))
	copy(presets, modelPresetCatalog)
	return presets
}

// ApplyModelPreset switches settings to the preset's provider and model,
// keeping user edits to unrelated fields the way a manual switch would.
func (a *App) ApplyModelPreset(presetID string) (domain.Settings, error) {
	preset, ok := findModelPreset(presetID)
	if !ok {
		return domain.Settings{}, fmt.Errorf("unknown model preset: %s", presetID)
	}

	settings, err := a.Store.Load()
	if err != nil {
		return domain.Settings{}, fmt.Errorf("load settings: %w", err)
	}

	cfg := config.SwitchProvider(settings.Model, preset.Provider)
	cfg.Model = preset.Model
	settings.Model = cfg

	if err := a.Store.Save(settings); err != nil {
		return domain.Settings{}, fmt.Errorf("save settings: %w", err)
	}

	a.refreshDiagnosticsFromSettings(settings)
	return settings, nil
}

func findModelPreset(presetID string) (domain.ModelPreset, bool) {
	id := strings.TrimSpace(presetID)
	for _, preset := range modelPresetCatalog {
		if preset.ID == id {
			return preset, true
		}
	}
	return domain.ModelPreset{}, false
}
