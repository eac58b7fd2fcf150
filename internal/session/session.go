package session

import (
	"errors"
	"path/filepath"
	"strings"
	"sync"

	"sdp-assistant/internal/domain"
)

// ErrNoFileSelected is returned when an operation needs a model file and
// none has been picked.
var ErrNoFileSelected = errors.New("no .slx file selected")

// ErrUnsupportedExtension is returned for files that are not .slx models.
var ErrUnsupportedExtension = errors.New("selected file is not a .slx model")

// Session holds the in-memory state of one user session: the selected
// model file, the readable-text conversion cache, and the latest results.
// Failed operations never clear previously cached state, so a retry can
// reuse it.
type Session struct {
	mu        sync.Mutex
	file      *domain.ModelFile
	readable  string
	stats     domain.ConvertStats
	converted bool
	answer    string
	lastRun   *domain.WorkflowRun
}

// New creates an empty session.
func New() *Session {
	return &Session{}
}

// SelectFile validates and stores the picked model file. Only .slx files
// are accepted, case-insensitively. Replacing the file invalidates the
// conversion cache; prior answers stay visible until overwritten.
func (s *Session) SelectFile(path string) (domain.ModelFile, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return domain.ModelFile{}, ErrNoFileSelected
	}
	if !strings.EqualFold(filepath.Ext(trimmed), ".slx") {
		return domain.ModelFile{}, ErrUnsupportedExtension
	}

	file := domain.ModelFile{
		Name: filepath.Base(trimmed),
		Path: trimmed,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.file = &file
	s.readable = ""
	s.stats = domain.ConvertStats{}
	s.converted = false
	return file, nil
}

// File returns the selected model file, if any.
func (s *Session) File() (domain.ModelFile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return domain.ModelFile{}, false
	}
	return *s.file, true
}

// Readable returns the cached readable text and whether a successful
// conversion has happened since the last file change.
func (s *Session) Readable() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readable, s.converted
}

// SetConverted stores a successful conversion result and marks the cache valid.
func (s *Session) SetConverted(text string, stats domain.ConvertStats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readable = text
	s.stats = stats
	s.converted = true
}

// SetAnswer stores the latest ask result.
func (s *Session) SetAnswer(answer string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.answer = answer
}

// SetWorkflowRun stores the latest workflow outcome.
func (s *Session) SetWorkflowRun(run domain.WorkflowRun) {
	s.mu.Lock()
	defer s.mu.Unlock()
	runCopy := run
	s.lastRun = &runCopy
}

// Snapshot returns a copy of the session for UI rendering.
func (s *Session) Snapshot() domain.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := domain.SessionSnapshot{
		ReadableText: s.readable,
		Converted:    s.converted,
		Stats:        s.stats,
		Answer:       s.answer,
	}
	if s.file != nil {
		fileCopy := *s.file
		snap.File = &fileCopy
	}
	if s.lastRun != nil {
		runCopy := *s.lastRun
		snap.LastRun = &runCopy
	}
	return snap
}
