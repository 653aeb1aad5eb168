package postgres

import (
	"encoding/json"
	"testing"
	"time"

	"3tcapital/ms_external_services/internal/core/audit"
)

// Note: exercising Record/Find against a real database is an integration
// concern; these tests cover the interface contract and scan plumbing.

func TestRepositoryImplementsInterface(t *testing.T) {
	var _ audit.Repository = (*Repository)(nil)
}

// fakeRows feeds scanRecords a canned result set.
type fakeRows struct {
	records []audit.CallRecord
	idx     int
}

func (f *fakeRows) Next() bool {
	return f.idx < len(f.records)
}

func (f *fakeRows) Scan(dest ...any) error {
	rec := f.records[f.idx]
	f.idx++

	*(dest[0].(*int64)) = rec.ID
	*(dest[1].(*string)) = rec.CorrelationID
	*(dest[2].(*string)) = rec.ServiceName
	*(dest[3].(*string)) = string(rec.Protocol)
	*(dest[4].(*[]byte)) = rec.RequestRepr
	*(dest[5].(*[]byte)) = rec.ResponseRepr
	*(dest[6].(*string)) = rec.ErrorMessage
	*(dest[7].(*float64)) = rec.ExecutionTime
	*(dest[8].(*time.Time)) = rec.CreatedAt
	return nil
}

func (f *fakeRows) Err() error { return nil }

func TestScanRecords(t *testing.T) {
	now := time.Now()
	rows := &fakeRows{
		records: []audit.CallRecord{
			{
				ID:            1,
				CorrelationID: "corr-1",
				ServiceName:   "payments",
				Protocol:      audit.ProtocolHTTP,
				RequestRepr:   json.RawMessage(`{"endpoint":"https://api.example.com"}`),
				ResponseRepr:  json.RawMessage(`{"status_code":200}`),
				ExecutionTime: 0.25,
				CreatedAt:     now,
			},
			{
				ID:            2,
				CorrelationID: "corr-1",
				ServiceName:   "payments",
				Protocol:      audit.ProtocolSFTP,
				RequestRepr:   json.RawMessage(`{"host":"sftp.example.com"}`),
				ErrorMessage:  "connection not established",
				ExecutionTime: 0,
				CreatedAt:     now,
			},
		},
	}

	records, err := scanRecords(rows)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	first := records[0]
	if first.Protocol != audit.ProtocolHTTP {
		t.Errorf("expected http protocol, got %s", first.Protocol)
	}
	if !first.Succeeded() {
		t.Error("expected first record to be a success")
	}

	second := records[1]
	if second.Succeeded() {
		t.Error("expected second record to be a failure")
	}
	if len(second.ResponseRepr) != 0 {
		t.Errorf("failed record must not carry a response representation, got %s", second.ResponseRepr)
	}
}

func TestCallRecordRoundTrip(t *testing.T) {
	rec := audit.CallRecord{
		CorrelationID: "corr-9",
		ServiceName:   "billing",
		Protocol:      audit.ProtocolSFTP,
		RequestRepr:   json.RawMessage(`{"host":"sftp.example.com","operation":"upload","remote_path":"/data/","filename":"a.txt"}`),
		ResponseRepr:  json.RawMessage(`{"message":"a.txt uploaded successfully to /data/"}`),
		ExecutionTime: 1.5,
	}

	encoded, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded audit.CallRecord
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if decoded.ServiceName != rec.ServiceName || decoded.Protocol != rec.Protocol {
		t.Error("identity fields did not survive the round trip")
	}
	if decoded.ExecutionTime != rec.ExecutionTime {
		t.Errorf("expected execution time %v, got %v", rec.ExecutionTime, decoded.ExecutionTime)
	}
}
