package httpcall

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"3tcapital/ms_external_services/internal/core/audit"
	"3tcapital/ms_external_services/internal/core/extservice"
	ctxutil "3tcapital/ms_external_services/internal/infrastructure/context"
	"3tcapital/ms_external_services/internal/infrastructure/security"

	"github.com/google/uuid"
)

const defaultMaxBodySize = 102400 // 100KB

// Config holds construction parameters for the instrumented HTTP client.
type Config struct {
	ServiceName string
	MaxBodySize int // cap on body bytes kept in representations (0 = default)
}

// Client wraps an HTTP transport so every outbound exchange is measured and
// produces exactly one audit record, without altering the semantics of the
// underlying call for the caller.
type Client struct {
	service     string
	doer        extservice.Doer
	sink        audit.Sink
	log         *slog.Logger
	maxBodySize int
}

// NewClient builds an instrumented HTTP client for one external service.
// A nil sink disables audit persistence (the call itself is unaffected).
func NewClient(cfg Config, doer extservice.Doer, sink audit.Sink, log *slog.Logger) *Client {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "default"
	}
	if cfg.MaxBodySize == 0 {
		cfg.MaxBodySize = defaultMaxBodySize
	}

	return &Client{
		service:     cfg.ServiceName,
		doer:        doer,
		sink:        sink,
		log:         log,
		maxBodySize: cfg.MaxBodySize,
	}
}

// Perform executes a single HTTP exchange and audits it end to end.
// Transport failures are captured in the result, never returned as an error:
// callers inspect CallResult.OK(). A response body that fails to decode as
// JSON still counts as a transport success; the audit record then carries the
// raw body representation.
func (c *Client) Perform(ctx context.Context, method, url string, opts extservice.CallOptions) *extservice.CallResult {
	start := time.Now()
	result := &extservice.CallResult{}
	requestRepr := c.requestRepr(method, url, opts)

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(opts.Body))
	if err != nil {
		result.Err = err
		c.emit(ctx, requestRepr, result, time.Since(start))
		return result
	}
	for key, value := range opts.Headers {
		req.Header.Set(key, value)
	}

	resp, err := c.doer.Do(req)
	switch {
	case err != nil:
		result.Err = err
	default:
		result.StatusCode = resp.StatusCode
		result.Headers = resp.Header

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			result.Err = readErr
		} else {
			result.Body = body
			if len(body) > 0 && json.Valid(body) {
				result.Decoded = json.RawMessage(body)
			}
		}
	}

	duration := time.Since(start)
	c.logCall(method, url, result, duration)
	c.emit(ctx, requestRepr, result, duration)

	return result
}

// requestRepr snapshots the outbound request with sensitive data redacted.
func (c *Client) requestRepr(method, url string, opts extservice.CallOptions) json.RawMessage {
	repr := map[string]any{
		"endpoint": security.SanitizeURL(url),
		"method":   method,
		"headers":  security.SanitizeHeaderMap(opts.Headers),
		"body":     security.SanitizeBody(opts.Body, c.maxBodySize),
	}
	encoded, _ := json.Marshal(repr)
	return encoded
}

func (c *Client) responseRepr(result *extservice.CallResult) json.RawMessage {
	repr := map[string]any{
		"status_code": result.StatusCode,
		"body":        security.SanitizeBody(result.Body, c.maxBodySize),
	}
	encoded, _ := json.Marshal(repr)
	return encoded
}

// emit builds and persists the single audit record for a finished call.
// A fresh record value is constructed per call; audit failures are logged
// and never surfaced to the caller.
func (c *Client) emit(ctx context.Context, requestRepr json.RawMessage, result *extservice.CallResult, duration time.Duration) {
	if c.sink == nil {
		if c.log != nil {
			c.log.Debug("Audit record skipped", "service_name", c.service, "reason", "no sink configured")
		}
		return
	}

	rec := audit.CallRecord{
		CorrelationID: correlationID(ctx),
		ServiceName:   c.service,
		Protocol:      audit.ProtocolHTTP,
		RequestRepr:   requestRepr,
		ExecutionTime: duration.Seconds(),
	}
	if result.Err != nil {
		rec.ErrorMessage = result.Err.Error()
	} else {
		rec.ResponseRepr = c.responseRepr(result)
	}

	// The request context may already be done; the record must still persist.
	saveCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := c.sink.Record(saveCtx, rec); err != nil && c.log != nil {
		c.log.Error("Failed to persist call record",
			"error", err,
			"correlation_id", rec.CorrelationID,
			"service_name", c.service,
		)
	}
}

func (c *Client) logCall(method, url string, result *extservice.CallResult, duration time.Duration) {
	if c.log == nil {
		return
	}

	attrs := []any{
		"service_name", c.service,
		"method", method,
		"url", security.SanitizeURL(url),
		"duration_ms", duration.Milliseconds(),
	}

	if result.Err != nil {
		attrs = append(attrs, "error", result.Err.Error())
		c.log.Error("external_call_failed", attrs...)
		return
	}

	attrs = append(attrs, "status", result.StatusCode, "response_size_bytes", len(result.Body))
	switch {
	case result.StatusCode >= 500:
		c.log.Error("external_call", attrs...)
	case result.StatusCode >= 400:
		c.log.Warn("external_call", attrs...)
	default:
		c.log.Info("external_call", attrs...)
	}
}

func correlationID(ctx context.Context) string {
	if id := ctxutil.GetCorrelationID(ctx); id != "" {
		return id
	}
	return "audit-" + uuid.NewString()
}
