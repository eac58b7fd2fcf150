package diagnostics

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"sdp-assistant/internal/domain"
)

// Checker validates the configured backend and model settings. The checks
// are advisory: operations are never blocked on a failing item.
type Checker struct {
	probe func(rawURL string) error
}

// NewChecker builds a checker with a short-lived HTTP reachability probe.
// The probe timeout is local to diagnostics and never applies to convert,
// ask, or workflow requests.
func NewChecker() *Checker {
	client := &http.Client{Timeout: 5 * time.Second}
	return &Checker{
		probe: func(rawURL string) error {
			resp, err := client.Get(rawURL)
			if err != nil {
				return err
			}
			// Any HTTP answer means the backend process is there.
			_ = resp.Body.Close()
			return nil
		},
	}
}

// NewCheckerForTests creates a checker with an injectable probe.
func NewCheckerForTests(probe func(rawURL string) error) *Checker {
	return &Checker{probe: probe}
}

// Run executes all checks and returns a combined report.
func (c *Checker) Run(settings domain.Settings) domain.DiagnosticReport {
	items := []domain.DiagnosticItem{
		c.checkBackend(settings.BackendURL),
		c.checkModelConfig(settings.Model),
		c.checkWorkflowSettings(settings),
	}

	hasFailures := false
	for _, item := range items {
		if item.Status == domain.DiagnosticStatusFail {
			hasFailures = true
			break
		}
	}

	return domain.DiagnosticReport{
		GeneratedAt: time.Now().UTC(),
		HasFailures: hasFailures,
		Items:       items,
	}
}

// checkBackend validates the backend URL and probes it once.
func (c *Checker) checkBackend(backendURL string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "backend_url",
		Name: "SDP backend",
	}

	trimmed := strings.TrimSpace(backendURL)
	if trimmed == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "Backend URL is empty."
		item.Hint = "Set the URL of the SDP backend in settings."
		return item
	}

	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Backend URL is not a valid http(s) URL: %s", trimmed)
		item.Hint = "Use a full URL such as http://localhost:8000."
		return item
	}

	if c.probe != nil {
		if err := c.probe(trimmed); err != nil {
			item.Status = domain.DiagnosticStatusFail
			item.Message = fmt.Sprintf("Backend is not reachable at %s", trimmed)
			item.Hint = "Start the SDP backend or point the URL at a running instance."
			return item
		}
	}

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Backend reachable at %s", trimmed)
	return item
}

// checkModelConfig validates the LLM selection the server will be asked to use.
func (c *Checker) checkModelConfig(cfg domain.ModelConfig) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "model_config",
		Name: "Model configuration",
	}

	if strings.TrimSpace(cfg.Model) == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "Model name is empty."
		item.Hint = "Pick a model preset or enter a model name in settings."
		return item
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "Provider base URL is empty."
		item.Hint = "Switch providers to restore the default base URL."
		return item
	}
	if cfg.Provider != domain.ProviderOllamaCompatible && strings.TrimSpace(cfg.APIKey) == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "API key is required for openai-compatible providers."
		item.Hint = "Enter an API key, or set SDP_API_KEY before launching."
		return item
	}

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Using %s via %s", cfg.Model, cfg.Provider)
	return item
}

// checkWorkflowSettings validates the MATLAB parameters sent to the server.
func (c *Checker) checkWorkflowSettings(settings domain.Settings) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "workflow_settings",
		Name: "Workflow settings",
	}

	if strings.TrimSpace(settings.MatlabCmd) == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "MATLAB command is empty."
		item.Hint = "Set the command the backend should use, typically \"matlab\"."
		return item
	}
	if settings.TimeoutSec <= 0 {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Workflow timeout must be positive, got %d.", settings.TimeoutSec)
		item.Hint = "Use the default of 300 seconds unless runs need longer."
		return item
	}

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("MATLAB via %q, timeout %ds", settings.MatlabCmd, settings.TimeoutSec)
	return item
}
