package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"3tcapital/ms_external_services/internal/core/audit"
)

// Sink writes call records as NDJSON (one JSON object per line) to an
// append-only file. It backs deployments without a database.
type Sink struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

// NewSink opens (or creates) the file at path for append-only writing.
func NewSink(path string) (*Sink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open audit file: %w", err)
	}
	return &Sink{file: f, enc: json.NewEncoder(f)}, nil
}

// Record appends the call record as one NDJSON line.
func (s *Sink) Record(_ context.Context, rec audit.CallRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enc.Encode(rec); err != nil {
		return fmt.Errorf("append call record: %w", err)
	}
	return nil
}

// Close releases the underlying file.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}

// NoopSink discards all call records.
type NoopSink struct{}

func (NoopSink) Record(context.Context, audit.CallRecord) error { return nil }
