package sftpcall

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"3tcapital/ms_external_services/internal/core/audit"
	"3tcapital/ms_external_services/internal/core/extservice"
	ctxutil "3tcapital/ms_external_services/internal/infrastructure/context"

	"github.com/google/uuid"
)

// DefaultConnectTimeout bounds the session establishment attempt.
const DefaultConnectTimeout = 30 * time.Second

// ErrNotConnected is returned when an operation requiring a live session is
// invoked before Connect succeeded.
var ErrNotConnected = errors.New("connection not established")

// Config holds construction parameters for the instrumented SFTP client.
type Config struct {
	ServiceName    string
	Host           string
	Port           int
	Username       string
	Password       string
	ConnectTimeout time.Duration // 0 means DefaultConnectTimeout
}

// Client manages a lazily-established, reused file-transfer session and wraps
// path validation, upload and download with audit capture. The session handle
// and record construction are serialized behind a mutex, so a single instance
// is safe for concurrent callers; each operation still blocks until the
// transport completes.
type Client struct {
	cfg    Config
	dialer extservice.Dialer
	sink   audit.Sink
	log    *slog.Logger

	mu      sync.Mutex
	session extservice.Session
	channel extservice.Channel
}

// NewClient builds an instrumented SFTP client for one external service.
// A nil sink disables audit persistence.
func NewClient(cfg Config, dialer extservice.Dialer, sink audit.Sink, log *slog.Logger) *Client {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "default"
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}

	return &Client{
		cfg:    cfg,
		dialer: dialer,
		sink:   sink,
		log:    log,
	}
}

// Connect establishes the session and file-transfer channel, or returns the
// live channel unchanged when one already exists. Only a failed attempt emits
// an audit record; a reused session issues no transport call at all.
func (c *Client) Connect(ctx context.Context) (extservice.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked(ctx)
}

func (c *Client) connectLocked(ctx context.Context) (extservice.Channel, error) {
	if c.channel != nil {
		if c.log != nil {
			c.log.Debug("Reusing existing SFTP connection", "host", c.cfg.Host, "service_name", c.cfg.ServiceName)
		}
		return c.channel, nil
	}

	start := time.Now()

	session, err := c.dialer.Dial(c.cfg.Host, c.cfg.Port, c.cfg.Username, c.cfg.Password, c.cfg.ConnectTimeout)
	if err != nil {
		failure := fmt.Errorf("sftp connection failed: %w", err)
		c.emit(ctx, c.requestRepr("", "", ""), "", failure, time.Since(start))
		return nil, failure
	}

	channel, err := session.OpenChannel()
	if err != nil {
		_ = session.Close()
		failure := fmt.Errorf("sftp connection failed: %w", err)
		c.emit(ctx, c.requestRepr("", "", ""), "", failure, time.Since(start))
		return nil, failure
	}

	c.session = session
	c.channel = channel
	if c.log != nil {
		c.log.Info("SFTP connection established", "host", c.cfg.Host, "service_name", c.cfg.ServiceName)
	}
	return c.channel, nil
}

// IsValidPath reports whether the remote directory at path exists and is
// listable. It distinguishes a missing path from an absent connection; no
// audit record is emitted by this operation alone.
func (c *Client) IsValidPath(path string) (bool, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isValidPathLocked(path)
}

func (c *Client) isValidPathLocked(path string) (bool, string) {
	if c.channel == nil {
		return false, ErrNotConnected.Error()
	}
	if _, err := c.channel.ListDir(path); err != nil {
		return false, fmt.Sprintf("folder(%s) not found", path)
	}
	return true, ""
}

// Upload writes content to remotePath+filename and emits exactly one audit
// record reflecting the single true outcome of the call. The returned message
// is empty whenever err is non-nil.
func (c *Client) Upload(ctx context.Context, remotePath, filename string, content []byte) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()
	requestRepr := c.requestRepr(audit.OperationUpload, remotePath, filename)

	var message string
	var failure error

	if c.channel == nil {
		failure = ErrNotConnected
	} else if ok, reason := c.isValidPathLocked(remotePath); !ok {
		failure = fmt.Errorf("path validation failed: %s", reason)
	} else if err := c.writeFile(remotePath+filename, content); err != nil {
		failure = fmt.Errorf("file upload failed: %w", err)
	} else {
		message = fmt.Sprintf("%s uploaded successfully to %s", filename, remotePath)
		if c.log != nil {
			c.log.Info(message, "service_name", c.cfg.ServiceName)
		}
	}

	c.emit(ctx, requestRepr, message, failure, time.Since(start))

	if failure != nil {
		return "", failure
	}
	return message, nil
}

// Download reads the remote file at remotePath+filename. Mirrors Upload:
// one audit record per call, explicit outcome.
func (c *Client) Download(ctx context.Context, remotePath, filename string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()
	requestRepr := c.requestRepr(audit.OperationDownload, remotePath, filename)

	var content []byte
	var message string
	var failure error

	if c.channel == nil {
		failure = ErrNotConnected
	} else if ok, reason := c.isValidPathLocked(remotePath); !ok {
		failure = fmt.Errorf("path validation failed: %s", reason)
	} else if data, err := c.readFile(remotePath + filename); err != nil {
		failure = fmt.Errorf("file download failed: %w", err)
	} else {
		content = data
		message = fmt.Sprintf("%s downloaded successfully from %s", filename, remotePath)
		if c.log != nil {
			c.log.Info(message, "service_name", c.cfg.ServiceName)
		}
	}

	c.emit(ctx, requestRepr, message, failure, time.Since(start))

	if failure != nil {
		return nil, failure
	}
	return content, nil
}

// Close releases the file-transfer channel and the underlying session and
// leaves the client disconnected. Calling it again is a safe no-op.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close channel: %w", err))
		}
		c.channel = nil
	}
	if c.session != nil {
		if err := c.session.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close session: %w", err))
		}
		c.session = nil
	}
	return errors.Join(errs...)
}

func (c *Client) writeFile(path string, content []byte) error {
	fh, err := c.channel.OpenFile(path)
	if err != nil {
		return err
	}
	if _, err := fh.Write(content); err != nil {
		_ = fh.Close()
		return err
	}
	return fh.Close()
}

func (c *Client) readFile(path string) ([]byte, error) {
	fh, err := c.channel.ReadFile(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	return io.ReadAll(fh)
}

func (c *Client) requestRepr(operation audit.Operation, remotePath, filename string) json.RawMessage {
	repr := map[string]any{
		"host":        c.cfg.Host,
		"operation":   string(operation),
		"remote_path": remotePath,
		"filename":    filename,
	}
	encoded, _ := json.Marshal(repr)
	return encoded
}

// emit builds a fresh record per call. Exactly one of message / failure is
// meaningful: failure wins, a successful outcome can never be overwritten by
// a stale validation error.
func (c *Client) emit(ctx context.Context, requestRepr json.RawMessage, message string, failure error, duration time.Duration) {
	if c.sink == nil {
		return
	}

	rec := audit.CallRecord{
		CorrelationID: correlationID(ctx),
		ServiceName:   c.cfg.ServiceName,
		Protocol:      audit.ProtocolSFTP,
		RequestRepr:   requestRepr,
		ExecutionTime: duration.Seconds(),
	}
	if failure != nil {
		rec.ErrorMessage = failure.Error()
	} else {
		responseRepr, _ := json.Marshal(map[string]string{"message": message})
		rec.ResponseRepr = responseRepr
	}

	saveCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := c.sink.Record(saveCtx, rec); err != nil && c.log != nil {
		c.log.Error("Failed to persist call record",
			"error", err,
			"correlation_id", rec.CorrelationID,
			"service_name", c.cfg.ServiceName,
		)
	}
}

func correlationID(ctx context.Context) string {
	if id := ctxutil.GetCorrelationID(ctx); id != "" {
		return id
	}
	return "audit-" + uuid.NewString()
}
