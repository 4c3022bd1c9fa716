package index

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"dormguide/internal/domain"
	"dormguide/internal/log"
)

// State is the lifecycle state of the index.
type State int

const (
	Absent State = iota
	Building
	Ready
	Stale
)

func (s State) String() string {
	switch s {
	case Building:
		return "building"
	case Ready:
		return "ready"
	case Stale:
		return "stale"
	default:
		return "absent"
	}
}

// Status is a point-in-time view of the index for admin surfaces.
type Status struct {
	State     string       `json:"state"`
	Path      string       `json:"path"`
	Documents int          `json:"documents"`
	Terms     int          `json:"terms"`
	BuiltAt   *time.Time   `json:"built_at,omitempty"`
	LastBuild *BuildResult `json:"last_build,omitempty"`
	LastError string       `json:"last_error,omitempty"`
}

// Manager owns the index lifecycle: Absent, Building, Ready, Stale.
// Reads share the cached blob under a read lock; a rebuild swaps it under the write lock.
type Manager struct {
	builder *Builder
	logger  *slog.Logger

	buildMu sync.Mutex

	mu        sync.RWMutex
	state     State
	blob      *Blob
	lastBuild *BuildResult
	lastErr   error
	// dirty records a MarkStale that arrived while Building.
	dirty bool
}

// NewManager creates a Manager in the Absent state.
func NewManager(builder *Builder) *Manager {
	return &Manager{
		builder: builder,
		logger:  log.NewModuleLogger("index", "manager"),
	}
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Snapshot returns the current blob. Stale blobs are still served.
// With no blob in memory it tries the file on disk once and fails with domain.ErrIndexNotFound.
func (m *Manager) Snapshot() (*Blob, error) {
	m.mu.RLock()
	blob := m.blob
	m.mu.RUnlock()
	if blob != nil {
		return blob, nil
	}
	if err := m.loadFromDisk(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.blob == nil {
		return nil, domain.ErrIndexNotFound
	}
	return m.blob, nil
}

// EnsureReady drives the state machine towards Ready with at most one build.
// An empty corpus is not an error; retrieval then reports domain.ErrIndexNotFound.
func (m *Manager) EnsureReady() error {
	switch m.State() {
	case Ready:
		return nil
	case Absent:
		err := m.loadFromDisk()
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrIndexNotFound) && !errors.Is(err, domain.ErrCorruptIndex) {
			return err
		}
		m.logger.Info("Index absent, building", "reason", err.Error())
	case Stale:
		m.logger.Info("Index stale, rebuilding")
	case Building:
		m.buildMu.Lock()
		m.buildMu.Unlock()
		if m.State() == Ready {
			return nil
		}
	}
	_, err := m.Rebuild()
	return err
}

// Rebuild runs a full build and swaps the in-memory blob on success.
// Concurrent callers are serialized.
func (m *Manager) Rebuild() (BuildResult, error) {
	m.buildMu.Lock()
	defer m.buildMu.Unlock()

	m.mu.Lock()
	prev := m.state
	m.state = Building
	m.dirty = false
	m.mu.Unlock()

	blob, res, err := m.builder.build()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastErr = err
	if err != nil {
		m.state = m.settledState(prev)
		m.logger.Error("Index build failed", "error", err)
		return res, err
	}
	m.lastBuild = &res
	if res.Outcome == NoDocuments {
		// prior blob stays authoritative
		m.state = m.settledState(prev)
		if m.state == Stale {
			m.state = Ready
		}
		return res, nil
	}
	m.blob = blob
	m.state = Ready
	if m.dirty {
		m.state = Stale
	}
	return res, nil
}

// MarkStale flags a Ready index for rebuild on the next EnsureReady.
func (m *Manager) MarkStale() {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.state {
	case Ready:
		m.state = Stale
		m.logger.Debug("Index marked stale")
	case Building:
		m.dirty = true
	}
}

// Status reports the current state and the last build.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st := Status{
		State:     m.state.String(),
		Path:      m.builder.Path(),
		LastBuild: m.lastBuild,
	}
	if m.blob != nil {
		st.Documents = m.blob.Len()
		st.Terms = len(m.blob.Model.IDF)
		builtAt := m.blob.BuiltAt
		st.BuiltAt = &builtAt
	}
	if m.lastErr != nil {
		st.LastError = m.lastErr.Error()
	}
	return st
}

func (m *Manager) loadFromDisk() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.blob != nil {
		return nil
	}
	if m.state == Building {
		return fmt.Errorf("%w: build in progress", domain.ErrIndexNotFound)
	}
	blob, err := Load(m.builder.Path())
	if err != nil {
		return err
	}
	m.blob = blob
	m.state = Ready
	m.logger.Debug("Index loaded from disk", "documents", blob.Len())
	return nil
}

// settledState is the state to return to after a build that did not produce a blob.
// Callers hold m.mu.
func (m *Manager) settledState(prev State) State {
	if m.blob == nil {
		return Absent
	}
	if prev == Building || prev == Absent {
		return Ready
	}
	return prev
}
