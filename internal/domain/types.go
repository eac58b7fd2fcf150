package domain

// Provider selects which kind of LLM backend the server should talk to.
type Provider string

const (
	ProviderOpenAICompatible Provider = "openai-compatible"
	ProviderOllamaCompatible Provider = "ollama-compatible"
)

// ModelConfig selects and authenticates the LLM backend used by the server.
type ModelConfig struct {
	Provider Provider `json:"provider"`
	Model    string   `json:"model"`
	BaseURL  string   `json:"baseUrl"`
	APIKey   string   `json:"apiKey"`
}

// Settings contains user-selectable runtime configuration.
type Settings struct {
	BackendURL string      `json:"backendUrl"`
	Model      ModelConfig `json:"model"`
	MatlabCmd  string      `json:"matlabCmd"`
	TimeoutSec int         `json:"timeoutSec"`
}

// ModelFile is the selected .slx artifact. Bytes are read from Path when a
// conversion is dispatched, so the file on disk is the source of truth.
type ModelFile struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// ConvertStats summarizes the structure of a converted model.
type ConvertStats struct {
	Blocks int `json:"blocks"`
	Lines  int `json:"lines"`
}

// WorkflowRun is the outcome of one generate-and-execute workflow.
type WorkflowRun struct {
	RunID           string `json:"runId"`
	MatlabStatus    string `json:"matlabStatus"`
	DisplayStatus   string `json:"displayStatus"`
	GeneratedScript string `json:"generatedScript"`
	Report          string `json:"report"`
}

// OpKind names one of the three user-triggered operations.
type OpKind string

const (
	OpConvert  OpKind = "convert"
	OpAsk      OpKind = "ask"
	OpWorkflow OpKind = "workflow"
)

// OpStatus tracks the lifecycle of the single active operation.
type OpStatus string

const (
	OpStatusIdle      OpStatus = "idle"
	OpStatusRunning   OpStatus = "running"
	OpStatusSucceeded OpStatus = "succeeded"
	OpStatusFailed    OpStatus = "failed"
)

// Operation stores the current operation identity and lifecycle status.
type Operation struct {
	ID     string   `json:"id"`
	Kind   OpKind   `json:"kind"`
	Status OpStatus `json:"status"`
}

// SessionSnapshot is the UI-facing view of the in-memory session.
type SessionSnapshot struct {
	File         *ModelFile   `json:"file,omitempty"`
	ReadableText string       `json:"readableText"`
	Converted    bool         `json:"converted"`
	Stats        ConvertStats `json:"stats"`
	Answer       string       `json:"answer"`
	LastRun      *WorkflowRun `json:"lastRun,omitempty"`
}

// ModelPreset describes one built-in model choice for a provider.
type ModelPreset struct {
	ID          string   `json:"id"`
	Provider    Provider `json:"provider"`
	Model       string   `json:"model"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
}
