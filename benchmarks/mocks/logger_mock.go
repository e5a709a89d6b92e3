package mocks

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"gitlab.com/fletera/api/facturify-gateway/internal/domain"
)

// MockLogger implements domain.Logger for benchmarking
type MockLogger struct {
	logEntries []logEntry
	mu         sync.RWMutex

	// Metrics
	InfoCount  int64
	WarnCount  int64
	ErrorCount int64
	DebugCount int64
}

type logEntry struct {
	Level     string
	Message   string
	Fields    map[string]interface{}
	Timestamp time.Time
}

// NewMockLogger creates a new mock logger
func NewMockLogger() *MockLogger {
	return &MockLogger{
		logEntries: make([]logEntry, 0),
	}
}

// Info implements domain.Logger
func (m *MockLogger) Info(ctx context.Context, msg string, fields ...any) {
	atomic.AddInt64(&m.InfoCount, 1)
	m.addLogEntry("INFO", msg, fields...)
}

// Warn implements domain.Logger
func (m *MockLogger) Warn(ctx context.Context, msg string, fields ...any) {
	atomic.AddInt64(&m.WarnCount, 1)
	m.addLogEntry("WARN", msg, fields...)
}

// Error implements domain.Logger
func (m *MockLogger) Error(ctx context.Context, msg string, fields ...any) {
	atomic.AddInt64(&m.ErrorCount, 1)
	m.addLogEntry("ERROR", msg, fields...)
}

// Debug implements domain.Logger
func (m *MockLogger) Debug(ctx context.Context, msg string, fields ...any) {
	atomic.AddInt64(&m.DebugCount, 1)
	m.addLogEntry("DEBUG", msg, fields...)
}

// Fatal implements domain.Logger
func (m *MockLogger) Fatal(ctx context.Context, msg string, fields ...any) {
	atomic.AddInt64(&m.ErrorCount, 1)
	m.addLogEntry("FATAL", msg, fields...)
}

// With implements domain.Logger
func (m *MockLogger) With(fields ...any) domain.Logger {
	// Benchmarks do not need derived loggers; counting on the root is enough.
	return m
}

func (m *MockLogger) addLogEntry(level, msg string, fields ...any) {
	m.mu.Lock()
	defer m.mu.Unlock()

	fieldMap := make(map[string]interface{})
	for i := 0; i+1 < len(fields); i += 2 {
		if key, ok := fields[i].(string); ok {
			fieldMap[key] = fields[i+1]
		}
	}

	m.logEntries = append(m.logEntries, logEntry{
		Level:     level,
		Message:   msg,
		Fields:    fieldMap,
		Timestamp: time.Now(),
	})
}

// GetLogCounts returns the per-level log counts for benchmark analysis
func (m *MockLogger) GetLogCounts() (info, warn, errs, debug int64) {
	return atomic.LoadInt64(&m.InfoCount),
		atomic.LoadInt64(&m.WarnCount),
		atomic.LoadInt64(&m.ErrorCount),
		atomic.LoadInt64(&m.DebugCount)
}

// Reset clears all entries and metrics
func (m *MockLogger) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.logEntries = m.logEntries[:0]
	atomic.StoreInt64(&m.InfoCount, 0)
	atomic.StoreInt64(&m.WarnCount, 0)
	atomic.StoreInt64(&m.ErrorCount, 0)
	atomic.StoreInt64(&m.DebugCount, 0)
}
