package extservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	coreext "3tcapital/ms_external_services/internal/core/extservice"
)

// ErrSFTPNotConfigured is returned when the gateway runs without an SFTP
// target configured.
var ErrSFTPNotConfigured = errors.New("sftp service not configured")

// ErrInvalidInput marks errors caused by the caller's request rather than
// by the remote service.
var ErrInvalidInput = errors.New("invalid input")

// HTTPCaller performs an instrumented HTTP call.
type HTTPCaller interface {
	Perform(ctx context.Context, method, url string, opts coreext.CallOptions) *coreext.CallResult
}

// FileTransferor manages the instrumented SFTP session and file operations.
type FileTransferor interface {
	Connect(ctx context.Context) (coreext.Channel, error)
	IsValidPath(path string) (bool, string)
	Upload(ctx context.Context, remotePath, filename string, content []byte) (string, error)
	Download(ctx context.Context, remotePath, filename string) ([]byte, error)
	Close() error
}

// Service exposes the gateway use cases over the instrumented clients.
type Service struct {
	httpCaller HTTPCaller
	transferor FileTransferor // nil when SFTP is not configured
	log        *slog.Logger
}

func NewService(httpCaller HTTPCaller, transferor FileTransferor, log *slog.Logger) *Service {
	return &Service{
		httpCaller: httpCaller,
		transferor: transferor,
		log:        log,
	}
}

// CallCommand describes an outbound HTTP call to proxy.
type CallCommand struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
}

// CallSnapshot is the caller-facing view of a finished HTTP call.
type CallSnapshot struct {
	OK         bool   `json:"ok"`
	StatusCode int    `json:"statusCode,omitempty"`
	Body       string `json:"body,omitempty"`
	Error      string `json:"error,omitempty"`
}

var allowedMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodHead:   true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

// PerformCall validates the command and executes the instrumented HTTP call.
// Transport failures are reported inside the snapshot, not as an error.
func (s *Service) PerformCall(ctx context.Context, cmd CallCommand) (CallSnapshot, error) {
	method := strings.ToUpper(strings.TrimSpace(cmd.Method))
	if !allowedMethods[method] {
		return CallSnapshot{}, fmt.Errorf("%w: unsupported method %q", ErrInvalidInput, cmd.Method)
	}
	if strings.TrimSpace(cmd.URL) == "" {
		return CallSnapshot{}, fmt.Errorf("%w: url is required", ErrInvalidInput)
	}

	result := s.httpCaller.Perform(ctx, method, cmd.URL, coreext.CallOptions{
		Headers: cmd.Headers,
		Body:    cmd.Body,
	})

	snapshot := CallSnapshot{OK: result.OK()}
	if result.Err != nil {
		snapshot.Error = result.Err.Error()
		return snapshot, nil
	}
	snapshot.StatusCode = result.StatusCode
	snapshot.Body = string(result.Body)
	return snapshot, nil
}

// UploadCommand describes an instrumented SFTP upload.
type UploadCommand struct {
	RemotePath string
	Filename   string
	Content    []byte
}

// UploadFile ensures a live session, then uploads through the instrumentor.
// The connection attempt and the upload each produce their own audit trail.
func (s *Service) UploadFile(ctx context.Context, cmd UploadCommand) (string, error) {
	if err := validateRemoteTarget(cmd.RemotePath, cmd.Filename); err != nil {
		return "", err
	}
	if err := s.ensureConnected(ctx); err != nil {
		return "", err
	}
	return s.transferor.Upload(ctx, cmd.RemotePath, cmd.Filename, cmd.Content)
}

// DownloadFile ensures a live session, then downloads through the instrumentor.
func (s *Service) DownloadFile(ctx context.Context, remotePath, filename string) ([]byte, error) {
	if err := validateRemoteTarget(remotePath, filename); err != nil {
		return nil, err
	}
	if err := s.ensureConnected(ctx); err != nil {
		return nil, err
	}
	return s.transferor.Download(ctx, remotePath, filename)
}

// ValidatePath ensures a live session, then checks the remote directory.
func (s *Service) ValidatePath(ctx context.Context, path string) (bool, string, error) {
	if strings.TrimSpace(path) == "" {
		return false, "", fmt.Errorf("%w: path is required", ErrInvalidInput)
	}
	if err := s.ensureConnected(ctx); err != nil {
		return false, "", err
	}
	valid, reason := s.transferor.IsValidPath(path)
	return valid, reason, nil
}

// Close releases the SFTP session if one is held.
func (s *Service) Close() error {
	if s.transferor == nil {
		return nil
	}
	return s.transferor.Close()
}

func (s *Service) ensureConnected(ctx context.Context) error {
	if s.transferor == nil {
		return ErrSFTPNotConfigured
	}
	if _, err := s.transferor.Connect(ctx); err != nil {
		return err
	}
	return nil
}

func validateRemoteTarget(remotePath, filename string) error {
	if strings.TrimSpace(remotePath) == "" {
		return fmt.Errorf("%w: remotePath is required", ErrInvalidInput)
	}
	if strings.TrimSpace(filename) == "" {
		return fmt.Errorf("%w: filename is required", ErrInvalidInput)
	}
	if strings.Contains(filename, "/") {
		return fmt.Errorf("%w: filename must not contain path separators", ErrInvalidInput)
	}
	return nil
}
