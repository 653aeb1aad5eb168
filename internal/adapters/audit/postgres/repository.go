package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"3tcapital/ms_external_services/internal/core/audit"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository implements the audit.Repository interface using PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

// NewRepository creates a new PostgreSQL audit repository.
func NewRepository(pool *pgxpool.Pool, log *slog.Logger) *Repository {
	return &Repository{pool: pool, log: log}
}

// Record persists a call record to the database.
func (r *Repository) Record(ctx context.Context, rec audit.CallRecord) error {
	query := `
		INSERT INTO external_service_log (
			correlation_id, service_name, protocol, request_repr,
			response_repr, error_message, execution_time
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	// pgx maps nil json.RawMessage to NULL for JSONB columns
	var requestRepr, responseRepr any
	if len(rec.RequestRepr) > 0 {
		requestRepr = rec.RequestRepr
	}
	if len(rec.ResponseRepr) > 0 {
		responseRepr = rec.ResponseRepr
	}

	_, err := r.pool.Exec(ctx, query,
		rec.CorrelationID,
		rec.ServiceName,
		string(rec.Protocol),
		requestRepr,
		responseRepr,
		rec.ErrorMessage,
		rec.ExecutionTime,
	)
	if err != nil {
		wrapped := fmt.Errorf("insert call record: %w", err)
		if r.log != nil {
			r.log.Error("Failed to insert call record",
				"correlation_id", rec.CorrelationID,
				"service_name", rec.ServiceName,
				"protocol", rec.Protocol,
				"error", wrapped,
			)
		}
		return wrapped
	}

	if r.log != nil {
		r.log.Debug("Call record saved",
			"correlation_id", rec.CorrelationID,
			"service_name", rec.ServiceName,
			"protocol", rec.Protocol,
			"execution_time", rec.ExecutionTime,
		)
	}

	return nil
}

// FindByServiceName retrieves the most recent records for a service.
func (r *Repository) FindByServiceName(ctx context.Context, serviceName string, limit int) ([]audit.CallRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, correlation_id, service_name, protocol, request_repr,
		       response_repr, error_message, execution_time, created_at
		FROM external_service_log
		WHERE service_name = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, serviceName, limit)
	if err != nil {
		return nil, fmt.Errorf("query call records: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// FindByCorrelationID retrieves all records with the given correlation ID.
func (r *Repository) FindByCorrelationID(ctx context.Context, correlationID string) ([]audit.CallRecord, error) {
	query := `
		SELECT id, correlation_id, service_name, protocol, request_repr,
		       response_repr, error_message, execution_time, created_at
		FROM external_service_log
		WHERE correlation_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, query, correlationID)
	if err != nil {
		return nil, fmt.Errorf("query call records: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

type pgxRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanRecords(rows pgxRows) ([]audit.CallRecord, error) {
	var records []audit.CallRecord
	for rows.Next() {
		var rec audit.CallRecord
		var protocol string
		var requestRepr, responseRepr []byte

		err := rows.Scan(
			&rec.ID,
			&rec.CorrelationID,
			&rec.ServiceName,
			&protocol,
			&requestRepr,
			&responseRepr,
			&rec.ErrorMessage,
			&rec.ExecutionTime,
			&rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan call record: %w", err)
		}

		rec.Protocol = audit.Protocol(protocol)
		rec.RequestRepr = requestRepr
		rec.ResponseRepr = responseRepr
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return records, nil
}
