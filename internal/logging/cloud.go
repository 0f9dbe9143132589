package logging

import (
	"context"
	"fmt"
	"sync"

	gcplogging "cloud.google.com/go/logging"
	"google.golang.org/api/option"
)

// CloudLogger sends entries to GCP Cloud Logging.
type CloudLogger struct {
	client *gcplogging.Client
	logger *gcplogging.Logger
	labels map[string]string
	mu     sync.Mutex
	closed bool
}

// NewCloudLogger opens a Cloud Logging client for projectID.
func NewCloudLogger(ctx context.Context, projectID, logID string, opts ...option.ClientOption) (*CloudLogger, error) {
	client, err := gcplogging.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create cloud logging client: %w", err)
	}
	labels := map[string]string{"component": "p2p"}
	return &CloudLogger{
		client: client,
		logger: client.Logger(logID, gcplogging.CommonLabels(labels)),
		labels: labels,
	}, nil
}

// Log writes a structured log entry
func (cl *CloudLogger) Log(severity Severity, message string, fields map[string]any) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	if cl.closed {
		return
	}

	payload := map[string]any{"message": Redact(message)}
	for k, v := range redactFields(fields) {
		payload[k] = v
	}
	cl.logger.Log(gcplogging.Entry{
		Severity: gcplogging.ParseSeverity(string(severity)),
		Payload:  payload,
	})
}

func (cl *CloudLogger) LogInfo(message string)    { cl.Log(SeverityInfo, message, nil) }
func (cl *CloudLogger) LogWarning(message string) { cl.Log(SeverityWarning, message, nil) }
func (cl *CloudLogger) LogError(message string)   { cl.Log(SeverityError, message, nil) }

// Flush pushes buffered entries.
func (cl *CloudLogger) Flush() error {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	if cl.closed {
		return nil
	}
	return cl.logger.Flush()
}

// Close flushes and releases the client.
func (cl *CloudLogger) Close() error {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	if cl.closed {
		return nil
	}
	cl.closed = true
	return cl.client.Close()
}

var _ Logger = (*CloudLogger)(nil)
