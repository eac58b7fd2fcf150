package ops

import (
	"errors"
	"sync"

	"sdp-assistant/internal/domain"
)

// ErrOperationInFlight is returned when starting an operation while another
// one is still running. The three triggers share a single busy flag.
var ErrOperationInFlight = errors.New("another operation is in flight")

// ErrNoActiveOperation is returned when finishing with nothing running.
var ErrNoActiveOperation = errors.New("no active operation")

// Manager enforces that at most one convert, ask, or workflow operation is
// active at a time. The lifecycle is idle -> running -> succeeded|failed,
// and Finish always releases the busy flag regardless of outcome.
type Manager struct {
	mu      sync.RWMutex
	current domain.Operation
}

// NewManager creates a manager in idle state.
func NewManager() *Manager {
	return &Manager{
		current: domain.Operation{
			Status: domain.OpStatusIdle,
		},
	}
}

// Begin claims the busy flag for a new operation.
func (m *Manager) Begin(kind domain.OpKind, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current.Status == domain.OpStatusRunning {
		return ErrOperationInFlight
	}

	m.current = domain.Operation{
		ID:     id,
		Kind:   kind,
		Status: domain.OpStatusRunning,
	}
	return nil
}

// Finish records the terminal status and releases the busy flag. Statuses
// other than succeeded count as failed.
func (m *Manager) Finish(status domain.OpStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current.Status != domain.OpStatusRunning {
		return ErrNoActiveOperation
	}
	if status != domain.OpStatusSucceeded {
		status = domain.OpStatusFailed
	}

	m.current.Status = status
	return nil
}

// Current returns a snapshot of the current operation.
func (m *Manager) Current() domain.Operation {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// IsBusy reports whether an operation is running.
func (m *Manager) IsBusy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current.Status == domain.OpStatusRunning
}

// Reset clears operation metadata and returns the manager to idle.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = domain.Operation{Status: domain.OpStatusIdle}
}
