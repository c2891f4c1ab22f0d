package transaction

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// UndoFunc reverses a single completed step
type UndoFunc func() error

// Manager collects undo steps while an operation makes side effects, so a
// failure partway through can unwind everything already done. Steps run in
// reverse order; undo failures are logged and collected but never mask the
// original error.
type Manager struct {
	steps []struct {
		name string
		fn   UndoFunc
	}
	mu  sync.Mutex
	log *zerolog.Logger
}

// New creates a transaction manager
func New(log *zerolog.Logger) *Manager {
	return &Manager{
		steps: make([]struct {
			name string
			fn   UndoFunc
		}, 0),
		log: log,
	}
}

// Add registers an undo step for a completed side effect
func (m *Manager) Add(name string, fn UndoFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps = append(m.steps, struct {
		name string
		fn   UndoFunc
	}{name, fn})
}

// Rollback unwinds all registered steps in reverse order (LIFO)
func (m *Manager) Rollback() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.steps) == 0 {
		return nil
	}

	if m.log != nil {
		m.log.Info().Msg("rolling back partial operation")
	}

	var errs []error
	for i := len(m.steps) - 1; i >= 0; i-- {
		step := m.steps[i]
		if m.log != nil {
			m.log.Debug().Str("step", step.name).Msg("undoing")
		}

		if err := step.fn(); err != nil {
			errs = append(errs, fmt.Errorf("undo %q: %w", step.name, err))
			if m.log != nil {
				m.log.Error().Err(err).Str("step", step.name).Msg("undo failed")
			}
		}
	}

	m.steps = nil

	if len(errs) > 0 {
		return fmt.Errorf("rollback completed with errors: %v", errs)
	}
	return nil
}

// Commit clears the undo stack, confirming the operation
func (m *Manager) Commit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps = nil
}

// Len returns the number of pending undo steps
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.steps)
}
