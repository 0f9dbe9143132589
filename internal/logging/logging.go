// Package logging provides structured run logging. Entries carry a
// severity, labels and free-form fields; they go to a JSON-lines writer
// locally or to Cloud Logging when a GCP project is configured.
package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"
)

// Severity levels for structured logs
type Severity string

const (
	SeverityDebug   Severity = "DEBUG"
	SeverityInfo    Severity = "INFO"
	SeverityWarning Severity = "WARNING"
	SeverityError   Severity = "ERROR"
)

// Entry is one structured log record.
type Entry struct {
	Severity  Severity          `json:"severity"`
	Message   string            `json:"message"`
	Timestamp time.Time         `json:"timestamp"`
	Labels    map[string]string `json:"labels,omitempty"`
	Fields    map[string]any    `json:"fields,omitempty"`
}

// Logger is implemented by every structured sink.
type Logger interface {
	Log(severity Severity, message string, fields map[string]any)
	LogInfo(message string)
	LogWarning(message string)
	LogError(message string)
	Flush() error
	Close() error
}

// Config selects the structured sink.
type Config struct {
	Format     string `mapstructure:"format" yaml:"format"`
	GCPProject string `mapstructure:"gcp_project" yaml:"gcp_project,omitempty"`
	LogID      string `mapstructure:"log_id" yaml:"log_id,omitempty"`
}

// Formats accepted in Config.Format.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// DefaultLogID is the Cloud Logging log name.
const DefaultLogID = "p2p"

// Option configures a JSONLogger.
type Option func(*JSONLogger)

// WithLabels adds labels to every entry.
func WithLabels(labels map[string]string) Option {
	return func(l *JSONLogger) {
		for k, v := range labels {
			l.labels[k] = v
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(l *JSONLogger) {
		l.now = now
	}
}

// JSONLogger writes one JSON object per line.
type JSONLogger struct {
	writer io.Writer
	labels map[string]string
	now    func() time.Time
	mu     sync.Mutex
	closed bool
}

// NewJSONLogger creates a logger writing to w.
func NewJSONLogger(w io.Writer, opts ...Option) *JSONLogger {
	l := &JSONLogger{
		writer: w,
		labels: map[string]string{"component": "p2p"},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Log writes a structured log entry
func (l *JSONLogger) Log(severity Severity, message string, fields map[string]any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}

	entry := Entry{
		Severity:  severity,
		Message:   Redact(message),
		Timestamp: l.now().UTC(),
		Labels:    l.labels,
		Fields:    redactFields(fields),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		fmt.Fprintf(l.writer, `{"severity":"ERROR","message":"failed to marshal log entry: %v"}`+"\n", err)
		return
	}
	fmt.Fprintf(l.writer, "%s\n", data)
}

func (l *JSONLogger) LogInfo(message string)    { l.Log(SeverityInfo, message, nil) }
func (l *JSONLogger) LogWarning(message string) { l.Log(SeverityWarning, message, nil) }
func (l *JSONLogger) LogError(message string)   { l.Log(SeverityError, message, nil) }

// Flush syncs the writer when it supports it.
func (l *JSONLogger) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if syncer, ok := l.writer.(interface{ Sync() error }); ok {
		return syncer.Sync()
	}
	return nil
}

// Close marks the logger closed; later entries are dropped.
func (l *JSONLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}

// Nop discards everything.
type Nop struct{}

func (Nop) Log(Severity, string, map[string]any) {}
func (Nop) LogInfo(string)                       {}
func (Nop) LogWarning(string)                    {}
func (Nop) LogError(string)                      {}
func (Nop) Flush() error                         { return nil }
func (Nop) Close() error                         { return nil }

// New builds the sink described by cfg: Cloud Logging when a project is
// set, JSON lines on w for the json format, otherwise Nop.
func New(ctx context.Context, cfg Config, w io.Writer) (Logger, error) {
	if cfg.GCPProject != "" {
		logID := cfg.LogID
		if logID == "" {
			logID = DefaultLogID
		}
		return NewCloudLogger(ctx, cfg.GCPProject, logID)
	}
	if cfg.Format == FormatJSON {
		return NewJSONLogger(w), nil
	}
	return Nop{}, nil
}

var (
	_ Logger = (*JSONLogger)(nil)
	_ Logger = Nop{}
)
