// Package errsink collects non-fatal engine errors for audit and
// observability. The sink is never used for control flow: callers record
// and move on.
package errsink

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// maxEntries bounds the in-memory buffer so a failing subsystem cannot
// grow the sink without limit. Oldest entries are dropped first.
const maxEntries = 500

// Entry is one recorded error with its context.
type Entry struct {
	Message string         `json:"message"`
	Context map[string]any `json:"context,omitempty"`
	At      time.Time      `json:"at"`
}

// Sink is the error-collector contract consumed by the engine.
type Sink interface {
	AddError(message string, context map[string]any)
	Clear()
	AllErrors() []Entry
}

// Memory is the default bounded in-memory sink. Entries are also echoed
// to the given logger at debug level.
type Memory struct {
	mu      sync.Mutex
	entries []Entry
	log     zerolog.Logger
	now     func() time.Time
}

// NewMemory builds an in-memory sink echoing to log.
func NewMemory(log zerolog.Logger) *Memory {
	return &Memory{log: log, now: time.Now}
}

// AddError records one error entry.
func (m *Memory) AddError(message string, context map[string]any) {
	m.mu.Lock()
	m.entries = append(m.entries, Entry{Message: message, Context: context, At: m.now()})
	if len(m.entries) > maxEntries {
		m.entries = m.entries[len(m.entries)-maxEntries:]
	}
	m.mu.Unlock()
	m.log.Debug().Fields(context).Msg(message)
}

// Clear drops all recorded entries.
func (m *Memory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = nil
}

// AllErrors returns a copy of the recorded entries, oldest first.
func (m *Memory) AllErrors() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, len(m.entries))
	copy(out, m.entries)
	return out
}
