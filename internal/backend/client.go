package backend

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"

	"sdp-assistant/internal/domain"
)

const (
	convertPath  = "/api/convert"
	askPath      = "/api/ask"
	workflowPath = "/api/workflow"
)

// Client talks to the three SDP backend endpoints. It deliberately carries
// no request timeout: the workflow timeout is a server-side parameter, and
// conversions of large models are allowed to take their time.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the backend at baseURL.
func New(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{},
	}
}

// NewWithHTTPClient creates a client with an injectable HTTP client.
func NewWithHTTPClient(baseURL string, httpClient *http.Client) *Client {
	c := New(baseURL)
	if httpClient != nil {
		c.httpClient = httpClient
	}
	return c
}

// ConvertRequest carries one .slx artifact for server-side conversion.
type ConvertRequest struct {
	Filename string
	Content  []byte
}

// ConvertResult is the readable rendering of a converted model.
type ConvertResult struct {
	ReadableText string
	Stats        domain.ConvertStats
}

// AskRequest queries the configured LLM about converted model text.
type AskRequest struct {
	Prompt       string
	ReadableText string
	Model        domain.ModelConfig
}

// AskResult carries the answer text.
type AskResult struct {
	Answer string
}

// WorkflowRequest triggers server-side script generation and MATLAB execution.
type WorkflowRequest struct {
	Prompt       string
	ReadableText string
	Model        domain.ModelConfig
	MatlabCmd    string
	TimeoutSec   int
}

// WorkflowResult carries the generated script, report, and MATLAB outcome.
type WorkflowResult struct {
	GeneratedScript string
	Report          string
	MatlabStatus    string
	RunID           string
}

type modelConfigPayload struct {
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model"`
	BaseURL  string `json:"base_url"`
	APIKey   string `json:"api_key"`
}

func modelConfigToPayload(cfg domain.ModelConfig) modelConfigPayload {
	return modelConfigPayload{
		Provider: string(cfg.Provider),
		Model:    cfg.Model,
		BaseURL:  cfg.BaseURL,
		APIKey:   cfg.APIKey,
	}
}

type convertPayload struct {
	Filename   string `json:"filename"`
	ContentB64 string `json:"content_b64"`
}

type convertResponse struct {
	OK           bool   `json:"ok"`
	Error        string `json:"error"`
	ReadableText string `json:"readable_text"`
	Stats        struct {
		Blocks int `json:"blocks"`
		Lines  int `json:"lines"`
	} `json:"stats"`
}

type askPayload struct {
	Prompt       string             `json:"prompt"`
	ReadableText string             `json:"readable_text"`
	ModelConfig  modelConfigPayload `json:"model_config"`
}

type askResponse struct {
	OK     bool   `json:"ok"`
	Error  string `json:"error"`
	Answer string `json:"answer"`
}

type workflowPayload struct {
	Prompt       string             `json:"prompt"`
	ReadableText string             `json:"readable_text"`
	ModelConfig  modelConfigPayload `json:"model_config"`
	MatlabCmd    string             `json:"matlab_cmd"`
	TimeoutSec   int                `json:"timeout_sec"`
}

type workflowResponse struct {
	OK              bool   `json:"ok"`
	Error           string `json:"error"`
	GeneratedScript string `json:"generated_script"`
	Report          string `json:"report"`
	Matlab          struct {
		Status string `json:"status"`
		RunID  string `json:"run_id"`
	} `json:"matlab"`
}

// Convert uploads the file as base64 and returns its readable rendering.
func (c *Client) Convert(ctx context.Context, req ConvertRequest) (ConvertResult, error) {
	payload := convertPayload{
		Filename:   req.Filename,
		ContentB64: base64.StdEncoding.EncodeToString(req.Content),
	}

	var resp convertResponse
	if err := c.postJSON(ctx, convertPath, payload, &resp); err != nil {
		return ConvertResult{}, err
	}
	if !resp.OK {
		return ConvertResult{}, applicationError(convertPath, resp.Error)
	}

	return ConvertResult{
		ReadableText: resp.ReadableText,
		Stats: domain.ConvertStats{
			Blocks: resp.Stats.Blocks,
			Lines:  resp.Stats.Lines,
		},
	}, nil
}

// Ask sends a prompt plus readable model text to the ask endpoint.
func (c *Client) Ask(ctx context.Context, req AskRequest) (AskResult, error) {
	payload := askPayload{
		Prompt:       req.Prompt,
		ReadableText: req.ReadableText,
		ModelConfig:  modelConfigToPayload(req.Model),
	}

	var resp askResponse
	if err := c.postJSON(ctx, askPath, payload, &resp); err != nil {
		return AskResult{}, err
	}
	if !resp.OK {
		return AskResult{}, applicationError(askPath, resp.Error)
	}

	return AskResult{Answer: resp.Answer}, nil
}

// RunWorkflow triggers the generate-and-execute workflow.
func (c *Client) RunWorkflow(ctx context.Context, req WorkflowRequest) (WorkflowResult, error) {
	payload := workflowPayload{
		Prompt:       req.Prompt,
		ReadableText: req.ReadableText,
		ModelConfig:  modelConfigToPayload(req.Model),
		MatlabCmd:    req.MatlabCmd,
		TimeoutSec:   req.TimeoutSec,
	}

	var resp workflowResponse
	if err := c.postJSON(ctx, workflowPath, payload, &resp); err != nil {
		return WorkflowResult{}, err
	}
	if !resp.OK {
		return WorkflowResult{}, applicationError(workflowPath, resp.Error)
	}

	return WorkflowResult{
		GeneratedScript: resp.GeneratedScript,
		Report:          resp.Report,
		MatlabStatus:    resp.Matlab.Status,
		RunID:           resp.Matlab.RunID,
	}, nil
}

// postJSON posts one payload and decodes the body into out. Non-2xx
// statuses become *APIError with the best available server message; network
// and decode failures are returned as wrapped transport errors.
func (c *Client) postJSON(ctx context.Context, path string, payload, out any) error {
	body, err := sonic.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{
			Endpoint:   path,
			StatusCode: resp.StatusCode,
			Message:    serverMessage(data, fmt.Sprintf("backend returned status %d", resp.StatusCode)),
		}
	}

	if err := sonic.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// applicationError builds the error for a 2xx payload without a truthy ok.
func applicationError(path, message string) *APIError {
	if strings.TrimSpace(message) == "" {
		message = "backend reported failure"
	}
	return &APIError{Endpoint: path, Message: message}
}

// serverMessage extracts the error field from an error body when present.
func serverMessage(data []byte, fallback string) string {
	var envelope struct {
		Error string `json:"error"`
	}
	if err := sonic.Unmarshal(data, &envelope); err == nil {
		if msg := strings.TrimSpace(envelope.Error); msg != "" {
			return msg
		}
	}
	return fallback
}
