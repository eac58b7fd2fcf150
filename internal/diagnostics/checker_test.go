package diagnostics

import (
	"errors"
	"testing"

	"sdp-assistant/internal/domain"
)

func validSettings() domain.Settings {
	return domain.Settings{
		BackendURL: "http://localhost:8000",
		Model: domain.ModelConfig{
			Provider: domain.ProviderOpenAICompatible,
			Model:    "gpt-4o-mini",
			BaseURL:  "https://api.openai.com/v1",
			APIKey:   "sk-test",
		},
		MatlabCmd:  "matlab",
		TimeoutSec: 300,
	}
}

func itemByID(t *testing.T, report domain.DiagnosticReport, id string) domain.DiagnosticItem {
	t.Helper()
	for _, item := range report.Items {
		if item.ID == id {
			return item
		}
	}
	t.Fatalf("item %q missing from report: %+v", id, report.Items)
	return domain.DiagnosticItem{}
}

// TestRunAllChecksPass verifies a clean report for valid settings.
func TestRunAllChecksPass(t *testing.T) {
	checker := NewCheckerForTests(func(string) error { return nil })

	report := checker.Run(validSettings())
	if report.HasFailures {
		t.Fatalf("expected no failures: %+v", report.Items)
	}
	if len(report.Items) != 3 {
		t.Fatalf("items = %d, want 3", len(report.Items))
	}
}

// TestBackendUnreachableFails checks the reachability probe result.
func TestBackendUnreachableFails(t *testing.T) {
	checker := NewCheckerForTests(func(string) error { return errors.New("connection refused") })

	report := checker.Run(validSettings())
	item := itemByID(t, report, "backend_url")
	if item.Status != domain.DiagnosticStatusFail {
		t.Fatalf("status = %s, want fail", item.Status)
	}
	if !report.HasFailures {
		t.Fatal("expected report failure flag")
	}
}

// TestBackendURLValidation checks malformed URLs fail before probing.
func TestBackendURLValidation(t *testing.T) {
	probeCalled := false
	checker := NewCheckerForTests(func(string) error {
		probeCalled = true
		return nil
	})

	for _, raw := range []string{"", "localhost:8000", "ftp://host/.."} {
		settings := validSettings()
		settings.BackendURL = raw

		item := itemByID(t, checker.Run(settings), "backend_url")
		if item.Status != domain.DiagnosticStatusFail {
			t.Fatalf("url %q status = %s, want fail", raw, item.Status)
		}
	}
	if probeCalled {
		t.Fatal("probe must not run for invalid URLs")
	}
}

// TestOpenAIProviderRequiresKey checks the API key rule per provider.
func TestOpenAIProviderRequiresKey(t *testing.T) {
	checker := NewCheckerForTests(func(string) error { return nil })

	settings := validSettings()
	settings.Model.APIKey = ""
	item := itemByID(t, checker.Run(settings), "model_config")
	if item.Status != domain.DiagnosticStatusFail {
		t.Fatalf("openai without key status = %s, want fail", item.Status)
	}

	settings.Model.Provider = domain.ProviderOllamaCompatible
	item = itemByID(t, checker.Run(settings), "model_config")
	if item.Status != domain.DiagnosticStatusPass {
		t.Fatalf("ollama without key status = %s, want pass", item.Status)
	}
}

// TestWorkflowSettingsValidation checks MATLAB command and timeout rules.
func TestWorkflowSettingsValidation(t *testing.T) {
	checker := NewCheckerForTests(func(string) error { return nil })

	settings := validSettings()
	settings.MatlabCmd = "  "
	if item := itemByID(t, checker.Run(settings), "workflow_settings"); item.Status != domain.DiagnosticStatusFail {
		t.Fatalf("empty matlab cmd status = %s, want fail", item.Status)
	}

	settings = validSettings()
	settings.TimeoutSec = 0
	if item := itemByID(t, checker.Run(settings), "workflow_settings"); item.Status != domain.DiagnosticStatusFail {
		t.Fatalf("zero timeout status = %s, want fail", item.Status)
	}
}
