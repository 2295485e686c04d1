package mocklogger

import (
	"sync"

	"github.com/hugolhafner/streamtable/logger"
)

var _ logger.Logger = (*MockLogger)(nil)

type LogEntry struct {
	Level   logger.LogLevel
	Message string
	KV      []any
}

// MockLogger records every log call so tests can assert on what was logged.
// Loggers derived via With share the parent's entry sink.
type MockLogger struct {
	parent *MockLogger
	bound  []any

	mu      sync.Mutex
	entries []LogEntry
}

func New() *MockLogger {
	return &MockLogger{}
}

func (m *MockLogger) root() *MockLogger {
	r := m
	for r.parent != nil {
		r = r.parent
	}
	return r
}

func (m *MockLogger) Log(level logger.LogLevel, msg string, kv ...any) {
	all := make([]any, 0, len(kv)+len(m.bound))
	all = append(all, kv...)
	all = append(all, m.bound...)

	r := m.root()
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = append(
		r.entries, LogEntry{
			Level:   level,
			Message: msg,
			KV:      all,
		},
	)
}

func (m *MockLogger) Level() logger.LogLevel {
	return logger.DebugLevel
}

func (m *MockLogger) With(kv ...any) logger.Logger {
	bound := make([]any, 0, len(m.bound)+len(kv))
	bound = append(bound, m.bound...)
	bound = append(bound, kv...)

	return &MockLogger{parent: m.root(), bound: bound}
}

func (m *MockLogger) Entries() []LogEntry {
	r := m.root()
	r.mu.Lock()
	defer r.mu.Unlock()

	copied := make([]LogEntry, len(r.entries))
	copy(copied, r.entries)
	return copied
}

// MessagesAt returns all messages logged at the given level.
func (m *MockLogger) MessagesAt(level logger.LogLevel) []string {
	var msgs []string
	for _, e := range m.Entries() {
		if e.Level == level {
			msgs = append(msgs, e.Message)
		}
	}
	return msgs
}

func (m *MockLogger) Debug(msg string, kv ...any) {
	m.Log(logger.DebugLevel, msg, kv...)
}

func (m *MockLogger) Info(msg string, kv ...any) {
	m.Log(logger.InfoLevel, msg, kv...)
}

func (m *MockLogger) Warn(msg string, kv ...any) {
	m.Log(logger.WarnLevel, msg, kv...)
}

func (m *MockLogger) Error(msg string, kv ...any) {
	m.Log(logger.ErrorLevel, msg, kv...)
}
