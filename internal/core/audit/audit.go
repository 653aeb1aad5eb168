package audit

import (
	"context"
	"encoding/json"
	"time"
)

// Protocol identifies the transport used for an outbound call.
type Protocol string

const (
	ProtocolHTTP Protocol = "http"
	ProtocolSFTP Protocol = "sftp"
)

// Operation identifies the kind of file-transfer operation performed.
type Operation string

const (
	OperationUpload   Operation = "upload"
	OperationDownload Operation = "download"
)

// CallRecord represents the audit entry for a single outbound call to an
// external service. Exactly one of ResponseRepr / ErrorMessage is populated:
// ResponseRepr on success, ErrorMessage on failure.
type CallRecord struct {
	ID            int64           `json:"id"`
	CorrelationID string          `json:"correlationId"`
	ServiceName   string          `json:"serviceName"`
	Protocol      Protocol        `json:"protocol"`
	RequestRepr   json.RawMessage `json:"requestRepr"`
	ResponseRepr  json.RawMessage `json:"responseRepr,omitempty"`
	ErrorMessage  string          `json:"errorMessage,omitempty"`
	ExecutionTime float64         `json:"executionTime"` // wall-clock seconds, >= 0
	CreatedAt     time.Time       `json:"createdAt"`
}

// Succeeded reports whether the recorded call completed without error.
func (r CallRecord) Succeeded() bool {
	return r.ErrorMessage == ""
}

// Sink receives completed call records for persistence. Implementations must
// not fail the instrumented call: callers log Record errors and move on.
type Sink interface {
	Record(ctx context.Context, rec CallRecord) error
}

// Repository extends Sink with the query operations backing the audit API.
type Repository interface {
	Sink

	// FindByServiceName retrieves the most recent records for a service,
	// newest first, capped at limit.
	FindByServiceName(ctx context.Context, serviceName string, limit int) ([]CallRecord, error)

	// FindByCorrelationID retrieves all records associated with a correlation ID.
	FindByCorrelationID(ctx context.Context, correlationID string) ([]CallRecord, error)
}
