package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"

	"sdp-assistant/internal/backend"
	"sdp-assistant/internal/config"
	"sdp-assistant/internal/diagnostics"
	"sdp-assistant/internal/domain"
	"sdp-assistant/internal/history"
	"sdp-assistant/internal/ops"
	"sdp-assistant/internal/session"

	wailsruntime "github.com/wailsapp/wails/v2/pkg/runtime"
)

var modelDialogFilter = []wailsruntime.FileFilter{
	{
		DisplayName: "Simulink models",
		Pattern:     "*.slx",
	},
	{
		DisplayName: "All files",
		Pattern:     "*",
	},
}

// ErrEmptyPrompt is returned when ask or workflow is triggered without a prompt.
var ErrEmptyPrompt = errors.New("prompt is empty")

// genericFailureMessage is shown for transport-level failures, where the
// underlying error text would not help the user.
const genericFailureMessage = "Request failed. Check the backend connection and try again."

// backendCaller isolates the SDP backend client behind an interface.
type backendCaller interface {
	Convert(ctx context.Context, req backend.ConvertRequest) (backend.ConvertResult, error)
	Ask(ctx context.Context, req backend.AskRequest) (backend.AskResult, error)
	RunWorkflow(ctx context.Context, req backend.WorkflowRequest) (backend.WorkflowResult, error)
}

// activityRecorder isolates the history store behind an interface.
type activityRecorder interface {
	RecordAsk(modelFile, prompt, answer string) error
	RecordWorkflow(modelFile, prompt string, run domain.WorkflowRun) error
	Recent(limit int) ([]history.Entry, error)
	Close() error
}

// App wires settings, the session, operations, and UI runtime callbacks.
type App struct {
	Settings    domain.Settings
	Store       config.Store
	Ops         *ops.Manager
	Session     *session.Session
	Diagnostics domain.DiagnosticReport

	assets     fs.FS
	checker    *diagnostics.Checker
	events     *ops.EventBus
	history    activityRecorder
	historyErr error
	newBackend func(baseURL string) backendCaller
	readFile   func(name string) ([]byte, error)

	mu         sync.Mutex
	runtimeCtx context.Context
}

// New builds the application with persisted settings and startup diagnostics.
func New() (*App, error) {
	return NewWithAssets(nil)
}

// NewWithAssets builds the application and optionally configures embedded
// frontend assets. A .env file next to the binary may seed SDP_BACKEND_URL
// and SDP_API_KEY before settings defaults are computed.
func NewWithAssets(assets fs.FS) (*App, error) {
	_ = godotenv.Load()

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve user home: %w", err)
	}
	appDir := filepath.Join(homeDir, ".sdp-assistant")

	store := config.NewJSONStore(filepath.Join(appDir, "settings.json"))
	settings, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	checker := diagnostics.NewChecker()
	report := checker.Run(settings)

	app := &App{
		Settings:    settings,
		Store:       store,
		Ops:         ops.NewManager(),
		Session:     session.New(),
		Diagnostics: report,
		assets:      assets,
		checker:     checker,
		events:      ops.NewEventBus(1000),
		newBackend: func(baseURL string) backendCaller {
			return backend.New(baseURL)
		},
		readFile: os.ReadFile,
	}

	hist, histErr := history.Open(filepath.Join(appDir, "history.db"))
	if histErr != nil {
		// History is a convenience; a broken database must not block the app.
		log.Printf("history store disabled: %v", histErr)
		app.historyErr = histErr
	} else {
		app.history = hist
	}

	return app, nil
}

// Run starts the Wails desktop application and binds backend methods.
func (a *App) Run() error {
	assetOptions := &assetserver.Options{}
	if a.assets != nil {
		assetOptions.Assets = a.assets
	} else {
		assetOptions.Handler = http.FileServer(http.Dir("./frontend"))
	}

	return wails.Run(&options.App{
		Title:       "SDP Workflow Assistant",
		Width:       1100,
		Height:      760,
		AssetServer: assetOptions,
		OnStartup:   a.Startup,
		OnShutdown: func(ctx context.Context) {
			a.mu.Lock()
			a.runtimeCtx = nil
			a.mu.Unlock()
			if a.history != nil {
				_ = a.history.Close()
			}
		},
		Bind: []interface{}{a},
	})
}

// Startup stores the Wails runtime context for dialogs and push events.
func (a *App) Startup(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.runtimeCtx = ctx
}

// GetSettings loads and returns the latest persisted settings.
func (a *App) GetSettings() (domain.Settings, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return domain.Settings{}, fmt.Errorf("load settings: %w", err)
	}

	a.mu.Lock()
	a.Settings = settings
	a.mu.Unlock()

	return settings, nil
}

// SaveSettings normalizes and persists settings, then refreshes diagnostics.
func (a *App) SaveSettings(settings domain.Settings) (domain.Settings, error) {
	normalized := config.Normalize(settings)
	if err := a.Store.Save(normalized); err != nil {
		return domain.Settings{}, fmt.Errorf("save settings: %w", err)
	}

	a.refreshDiagnosticsFromSettings(normalized)
	return normalized, nil
}

// SwitchProvider changes the model provider, keeping user-edited fields.
func (a *App) SwitchProvider(provider string) (domain.Settings, error) {
	target := domain.Provider(strings.TrimSpace(provider))
	if target != domain.ProviderOpenAICompatible && target != domain.ProviderOllamaCompatible {
		return domain.Settings{}, fmt.Errorf("unknown provider: %s", provider)
	}

	settings, err := a.Store.Load()
	if err != nil {
		return domain.Settings{}, fmt.Errorf("load settings: %w", err)
	}

	settings.Model = config.SwitchProvider(settings.Model, target)
	if err := a.Store.Save(settings); err != nil {
		return domain.Settings{}, fmt.Errorf("save settings: %w", err)
	}

	a.refreshDiagnosticsFromSettings(settings)
	return settings, nil
}

// GetDiagnostics returns the latest cached diagnostics report.
func (a *App) GetDiagnostics() domain.DiagnosticReport {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Diagnostics
}

// RefreshDiagnostics reloads settings and reruns checks.
func (a *App) RefreshDiagnostics() (domain.DiagnosticReport, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return domain.DiagnosticReport{}, fmt.Errorf("load settings: %w", err)
	}

	return a.refreshDiagnosticsFromSettings(settings), nil
}

// GetSession returns the current session snapshot for rendering.
func (a *App) GetSession() domain.SessionSnapshot {
	return a.Session.Snapshot()
}

// CurrentOperation returns current operation metadata and status.
func (a *App) CurrentOperation() domain.Operation {
	return a.Ops.Current()
}

// OpEvents returns all events with sequence greater than sinceSeq.
func (a *App) OpEvents(sinceSeq int64) []ops.Event {
	return a.events.Since(sinceSeq)
}

// RecentActivity returns the newest recorded asks and workflow runs.
func (a *App) RecentActivity(limit int) ([]history.Entry, error) {
	if a.history == nil {
		if a.historyErr != nil {
			return nil, a.historyErr
		}
		return nil, nil
	}
	return a.history.Recent(limit)
}

// SelectModelFile opens a native file dialog for .slx selection. A
// cancelled dialog keeps the current selection.
func (a *App) SelectModelFile() (domain.ModelFile, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return domain.ModelFile{}, err
	}

	path, err := wailsruntime.OpenFileDialog(ctx, wailsruntime.OpenDialogOptions{
		Title:   "Select Simulink .slx file",
		Filters: modelDialogFilter,
	})
	if err != nil {
		return domain.ModelFile{}, err
	}
	if strings.TrimSpace(path) == "" {
		file, _ := a.Session.File()
		return file, nil
	}

	return a.SelectModelFileFromPath(path)
}

// SelectModelFileFromPath validates and stores a model file picked by path
// (drag and drop, or tests). Replacing the file invalidates the readable
// cache; an operation already in flight keeps the inputs it captured.
func (a *App) SelectModelFileFromPath(path string) (domain.ModelFile, error) {
	file, err := a.Session.SelectFile(path)
	if err != nil {
		return domain.ModelFile{}, err
	}

	a.publishStatus("", "", domain.OpStatusIdle, fmt.Sprintf("Selected %s", file.Name))
	return file, nil
}

// StartConvert uploads the selected model for conversion. The explicit
// trigger always reconverts; only the implicit conversion before ask and
// workflow reuses the cache.
func (a *App) StartConvert() (domain.Operation, error) {
	file, ok := a.Session.File()
	if !ok {
		return domain.Operation{}, session.ErrNoFileSelected
	}

	settings, err := a.currentSettings()
	if err != nil {
		return domain.Operation{}, err
	}

	return a.startOperation(domain.OpConvert, func(ctx context.Context, opID string) error {
		client := a.newBackend(settings.BackendURL)
		return a.convert(ctx, opID, domain.OpConvert, client, file)
	})
}

// StartAsk queries the configured model about the converted model text,
// converting first when no readable text is cached.
func (a *App) StartAsk(prompt string) (domain.Operation, error) {
	trimmed := strings.TrimSpace(prompt)
	if trimmed == "" {
		return domain.Operation{}, ErrEmptyPrompt
	}
	if err := a.requireConvertible(); err != nil {
		return domain.Operation{}, err
	}

	settings, err := a.currentSettings()
	if err != nil {
		return domain.Operation{}, err
	}

	return a.startOperation(domain.OpAsk, func(ctx context.Context, opID string) error {
		client := a.newBackend(settings.BackendURL)
		readable, err := a.ensureReadable(ctx, opID, domain.OpAsk, client)
		if err != nil {
			return err
		}

		result, err := client.Ask(ctx, backend.AskRequest{
			Prompt:       trimmed,
			ReadableText: readable,
			Model:        settings.Model,
		})
		if err != nil {
			return err
		}

		a.Session.SetAnswer(result.Answer)
		a.recordAsk(trimmed, result.Answer)
		a.publishEvent(ops.Event{
			OpID:    opID,
			Kind:    domain.OpAsk,
			Type:    ops.EventTypeResult,
			Status:  domain.OpStatusSucceeded,
			Message: "Answer ready",
		})
		return nil
	})
}

// StartWorkflow triggers the generate-and-execute workflow with the same
// preconditions and implicit conversion as StartAsk.
func (a *App) StartWorkflow(prompt string) (domain.Operation, error) {
	trimmed := strings.TrimSpace(prompt)
	if trimmed == "" {
		return domain.Operation{}, ErrEmptyPrompt
	}
	if err := a.requireConvertible(); err != nil {
		return domain.Operation{}, err
	}

	settings, err := a.currentSettings()
	if err != nil {
		return domain.Operation{}, err
	}

	return a.startOperation(domain.OpWorkflow, func(ctx context.Context, opID string) error {
		client := a.newBackend(settings.BackendURL)
		readable, err := a.ensureReadable(ctx, opID, domain.OpWorkflow, client)
		if err != nil {
			return err
		}

		result, err := client.RunWorkflow(ctx, backend.WorkflowRequest{
			Prompt:       trimmed,
			ReadableText: readable,
			Model:        settings.Model,
			MatlabCmd:    settings.MatlabCmd,
			TimeoutSec:   settings.TimeoutSec,
		})
		if err != nil {
			return err
		}

		run := domain.WorkflowRun{
			RunID:           result.RunID,
			MatlabStatus:    result.MatlabStatus,
			DisplayStatus:   deriveDisplayStatus(result.MatlabStatus, result.RunID),
			GeneratedScript: result.GeneratedScript,
			Report:          result.Report,
		}
		a.Session.SetWorkflowRun(run)
		a.recordWorkflow(trimmed, run)
		a.publishEvent(ops.Event{
			OpID:    opID,
			Kind:    domain.OpWorkflow,
			Type:    ops.EventTypeResult,
			Status:  domain.OpStatusSucceeded,
			Message: "Workflow " + run.DisplayStatus,
		})
		return nil
	})
}

// startOperation claims the busy flag and runs one operation in the
// background. The deferred Finish releases the flag on every path, so a
// failed operation re-enables the triggers exactly like a successful one.
func (a *App) startOperation(kind domain.OpKind, run func(ctx context.Context, opID string) error) (domain.Operation, error) {
	opID := "op-" + uuid.NewString()
	if err := a.Ops.Begin(kind, opID); err != nil {
		return domain.Operation{}, err
	}

	a.publishStatus(opID, kind, domain.OpStatusRunning, startMessage(kind))

	go func() {
		status := domain.OpStatusSucceeded
		defer func() {
			_ = a.Ops.Finish(status)
			a.publishStatus(opID, kind, status, "")
		}()

		if err := run(context.Background(), opID); err != nil {
			status = domain.OpStatusFailed
			a.publishEvent(ops.Event{
				OpID:    opID,
				Kind:    kind,
				Type:    ops.EventTypeError,
				Status:  domain.OpStatusFailed,
				Message: userMessage(err),
			})
		}
	}()

	return domain.Operation{ID: opID, Kind: kind, Status: domain.OpStatusRunning}, nil
}

// convert uploads the file bytes and stores the readable result.
func (a *App) convert(ctx context.Context, opID string, kind domain.OpKind, client backendCaller, file domain.ModelFile) error {
	data, err := a.readFile(file.Path)
	if err != nil {
		return fmt.Errorf("read model file: %w", err)
	}

	result, err := client.Convert(ctx, backend.ConvertRequest{
		Filename: file.Name,
		Content:  data,
	})
	if err != nil {
		return err
	}

	a.Session.SetConverted(result.ReadableText, result.Stats)
	a.publishEvent(ops.Event{
		OpID:    opID,
		Kind:    kind,
		Type:    ops.EventTypeResult,
		Status:  domain.OpStatusRunning,
		Message: convertSummary(file.Name, result.Stats),
	})
	return nil
}

// ensureReadable returns the cached readable text, converting the selected
// file first when no successful conversion has happened since it changed.
func (a *App) ensureReadable(ctx context.Context, opID string, kind domain.OpKind, client backendCaller) (string, error) {
	if text, ok := a.Session.Readable(); ok {
		return text, nil
	}

	file, ok := a.Session.File()
	if !ok {
		return "", session.ErrNoFileSelected
	}

	a.publishStatus(opID, kind, domain.OpStatusRunning, fmt.Sprintf("Converting %s first", file.Name))
	if err := a.convert(ctx, opID, kind, client, file); err != nil {
		return "", err
	}

	text, _ := a.Session.Readable()
	return text, nil
}

// requireConvertible checks ask/workflow preconditions: either a cached
// conversion or a selected file to convert implicitly.
func (a *App) requireConvertible() error {
	if _, ok := a.Session.Readable(); ok {
		return nil
	}
	if _, ok := a.Session.File(); !ok {
		return session.ErrNoFileSelected
	}
	return nil
}

// currentSettings loads settings for one operation and caches them on the App.
func (a *App) currentSettings() (domain.Settings, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return domain.Settings{}, fmt.Errorf("load settings: %w", err)
	}

	a.mu.Lock()
	a.Settings = settings
	a.mu.Unlock()
	return settings, nil
}

// recordAsk persists one answered question; history failures never fail the operation.
func (a *App) recordAsk(prompt, answer string) {
	if a.history == nil {
		return
	}

	name := ""
	if file, ok := a.Session.File(); ok {
		name = file.Name
	}
	if err := a.history.RecordAsk(name, prompt, answer); err != nil {
		log.Printf("record ask: %v", err)
	}
}

// recordWorkflow persists one workflow run; history failures never fail the operation.
func (a *App) recordWorkflow(prompt string, run domain.WorkflowRun) {
	if a.history == nil {
		return
	}

	name := ""
	if file, ok := a.Session.File(); ok {
		name = file.Name
	}
	if err := a.history.RecordWorkflow(name, prompt, run); err != nil {
		log.Printf("record workflow: %v", err)
	}
}

// refreshDiagnosticsFromSettings updates cached settings and diagnostics.
func (a *App) refreshDiagnosticsFromSettings(settings domain.Settings) domain.DiagnosticReport {
	var report domain.DiagnosticReport
	if a.checker != nil {
		report = a.checker.Run(settings)
	}

	a.mu.Lock()
	a.Settings = settings
	a.Diagnostics = report
	a.mu.Unlock()
	return report
}

// publishStatus sends a normalized status event.
func (a *App) publishStatus(opID string, kind domain.OpKind, status domain.OpStatus, message string) {
	a.publishEvent(ops.Event{
		OpID:    opID,
		Kind:    kind,
		Type:    ops.EventTypeStatus,
		Status:  status,
		Message: message,
	})
}

// publishEvent stores event history and emits runtime push notifications.
func (a *App) publishEvent(event ops.Event) {
	published := a.events.Publish(event)

	a.mu.Lock()
	ctx := a.runtimeCtx
	a.mu.Unlock()
	if ctx != nil {
		wailsruntime.EventsEmit(ctx, "op:event", published)
	}
}

// runtimeContext returns the Wails runtime context for dialog APIs.
func (a *App) runtimeContext() (context.Context, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.runtimeCtx == nil {
		return nil, fmt.Errorf("runtime context is not initialized")
	}
	return a.runtimeCtx, nil
}

// userMessage maps an operation error to the text shown in the status line.
// Backend-declared failures surface their message verbatim; validation
// errors explain themselves; everything else gets the generic transport text.
func userMessage(err error) string {
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}

	switch {
	case errors.Is(err, session.ErrNoFileSelected),
		errors.Is(err, session.ErrUnsupportedExtension),
		errors.Is(err, ErrEmptyPrompt):
		return err.Error()
	}

	return genericFailureMessage
}

// startMessage names the operation for the busy status line.
func startMessage(kind domain.OpKind) string {
	switch kind {
	case domain.OpConvert:
		return "Converting model"
	case domain.OpAsk:
		return "Asking model"
	case domain.OpWorkflow:
		return "Running workflow"
	default:
		return "Working"
	}
}

// convertSummary reports block and line counts when the server sent stats.
func convertSummary(fileName string, stats domain.ConvertStats) string {
	if stats.Blocks == 0 && stats.Lines == 0 {
		return fmt.Sprintf("Converted %s", fileName)
	}
	return fmt.Sprintf("Converted %s: %d blocks, %d lines", fileName, stats.Blocks, stats.Lines)
}

// deriveDisplayStatus maps the MATLAB run status to the display label.
// Anything other than success counts as failed.
func deriveDisplayStatus(matlabStatus, runID string) string {
	label := "failed"
	if matlabStatus == "success" {
		label = "completed"
	}

	id := strings.TrimSpace(runID)
	if id == "" {
		id = "unknown"
	}
	return fmt.Sprintf("%s (run %s)", label, id)
}
