package backend

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"sdp-assistant/internal/domain"
)

// TestConvertSendsBase64AndParsesStats checks the convert wire format.
func TestConvertSendsBase64AndParsesStats(t *testing.T) {
	var gotPath string
	var gotPayload map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotPayload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"readable_text":"R","stats":{"blocks":3,"lines":10}}`))
	}))
	defer server.Close()

	client := New(server.URL)
	got, err := client.Convert(context.Background(), ConvertRequest{
		Filename: "m.slx",
		Content:  []byte("X"),
	})
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}

	if gotPath != "/api/convert" {
		t.Fatalf("path = %q, want /api/convert", gotPath)
	}
	if gotPayload["filename"] != "m.slx" {
		t.Fatalf("filename = %v, want m.slx", gotPayload["filename"])
	}
	wantB64 := base64.StdEncoding.EncodeToString([]byte("X"))
	if gotPayload["content_b64"] != wantB64 {
		t.Fatalf("content_b64 = %v, want %q", gotPayload["content_b64"], wantB64)
	}

	if got.ReadableText != "R" {
		t.Fatalf("readable text = %q, want R", got.ReadableText)
	}
	if got.Stats != (domain.ConvertStats{Blocks: 3, Lines: 10}) {
		t.Fatalf("stats = %+v, want blocks=3 lines=10", got.Stats)
	}
}

// TestConvertSurfacesServerErrorOn200 checks the ok:false contract: HTTP
// 200 with a falsy ok must fail with the server message verbatim.
func TestConvertSurfacesServerErrorOn200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":false,"error":"bad format"}`))
	}))
	defer server.Close()

	_, err := New(server.URL).Convert(context.Background(), ConvertRequest{Filename: "m.slx"})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.Message != "bad format" {
		t.Fatalf("message = %q, want bad format", apiErr.Message)
	}
}

// TestConvertMissingOkFieldIsFailure checks absence of ok counts as failure.
func TestConvertMissingOkFieldIsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"readable_text":"R"}`))
	}))
	defer server.Close()

	_, err := New(server.URL).Convert(context.Background(), ConvertRequest{Filename: "m.slx"})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
}

// TestPostNon2xxStatusIsAPIError checks non-2xx handling with message extraction.
func TestPostNon2xxStatusIsAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":"upstream model unavailable"}`))
	}))
	defer server.Close()

	_, err := New(server.URL).Ask(context.Background(), AskRequest{Prompt: "p"})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", apiErr.StatusCode)
	}
	if apiErr.Message != "upstream model unavailable" {
		t.Fatalf("message = %q", apiErr.Message)
	}
}

// TestPostMalformedBodyIsTransportError checks decode failures are not APIError.
func TestPostMalformedBodyIsTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{broken`))
	}))
	defer server.Close()

	_, err := New(server.URL).Ask(context.Background(), AskRequest{Prompt: "p"})
	if err == nil {
		t.Fatal("expected error for malformed body")
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		t.Fatalf("malformed body classified as *APIError: %v", err)
	}
}

// TestPostNetworkFailureIsTransportError checks refused connections wrap cleanly.
func TestPostNetworkFailureIsTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	_, err := New(server.URL).Ask(context.Background(), AskRequest{Prompt: "p"})
	if err == nil {
		t.Fatal("expected network error")
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		t.Fatalf("network failure classified as *APIError: %v", err)
	}
}

// TestAskSendsModelConfig checks the ask wire format.
func TestAskSendsModelConfig(t *testing.T) {
	var gotPayload map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotPayload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"ok":true,"answer":"A"}`))
	}))
	defer server.Close()

	got, err := New(server.URL).Ask(context.Background(), AskRequest{
		Prompt:       "what does it do",
		ReadableText: "R",
		Model: domain.ModelConfig{
			Provider: domain.ProviderOllamaCompatible,
			Model:    "mistral:7b-instruct",
			BaseURL:  "http://localhost:11434",
		},
	})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if got.Answer != "A" {
		t.Fatalf("answer = %q, want A", got.Answer)
	}

	modelCfg, ok := gotPayload["model_config"].(map[string]any)
	if !ok {
		t.Fatalf("model_config missing: %v", gotPayload)
	}
	if modelCfg["provider"] != "ollama-compatible" {
		t.Fatalf("provider = %v", modelCfg["provider"])
	}
	if modelCfg["model"] != "mistral:7b-instruct" {
		t.Fatalf("model = %v", modelCfg["model"])
	}
	if gotPayload["readable_text"] != "R" {
		t.Fatalf("readable_text = %v", gotPayload["readable_text"])
	}
}

// TestRunWorkflowSendsMatlabParamsAndParsesOutcome checks the workflow wire format.
func TestRunWorkflowSendsMatlabParamsAndParsesOutcome(t *testing.T) {
	var gotPayload map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotPayload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"ok":true,"generated_script":"disp(1)","report":"done","matlab":{"status":"success","run_id":"run-7"}}`))
	}))
	defer server.Close()

	got, err := New(server.URL).RunWorkflow(context.Background(), WorkflowRequest{
		Prompt:       "generate a test harness",
		ReadableText: "R",
		MatlabCmd:    "matlab",
		TimeoutSec:   300,
	})
	if err != nil {
		t.Fatalf("RunWorkflow() error = %v", err)
	}

	if gotPayload["matlab_cmd"] != "matlab" {
		t.Fatalf("matlab_cmd = %v", gotPayload["matlab_cmd"])
	}
	if gotPayload["timeout_sec"] != float64(300) {
		t.Fatalf("timeout_sec = %v", gotPayload["timeout_sec"])
	}

	if got.GeneratedScript != "disp(1)" || got.Report != "done" {
		t.Fatalf("result = %+v", got)
	}
	if got.MatlabStatus != "success" || got.RunID != "run-7" {
		t.Fatalf("matlab outcome = %q/%q", got.MatlabStatus, got.RunID)
	}
}
