package extservice

import (
	"encoding/json"
	"io"
	"net/http"
	"time"
)

// Doer executes a single HTTP request/response exchange.
// The standard *http.Client satisfies this interface.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// CallOptions carries the optional parts of an outbound HTTP call.
type CallOptions struct {
	Headers map[string]string
	Body    []byte
}

// CallResult is the outcome of an instrumented HTTP call. Transport failures
// are carried in Err instead of being returned as a separate error value:
// callers inspect OK() rather than catch anything.
type CallResult struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	Decoded    json.RawMessage // set when the response body is valid JSON
	Err        error           // transport failure; nil on success
}

// OK reports whether the underlying exchange completed. A response that could
// not be decoded as JSON is still OK; only transport failures are not.
func (r *CallResult) OK() bool {
	return r != nil && r.Err == nil
}

// Dialer opens an authenticated session against a remote file-transfer host.
type Dialer interface {
	Dial(host string, port int, username, password string, timeout time.Duration) (Session, error)
}

// Session is a live connection to a remote host. At most one file-transfer
// channel is opened over it at a time.
type Session interface {
	OpenChannel() (Channel, error)
	Close() error
}

// Channel exposes the remote file operations the instrumentor needs.
type Channel interface {
	// ListDir returns the entry names of the remote directory at path.
	ListDir(path string) ([]string, error)

	// OpenFile opens the remote file at path for writing, creating or
	// truncating it.
	OpenFile(path string) (io.WriteCloser, error)

	// ReadFile opens the remote file at path for reading.
	ReadFile(path string) (io.ReadCloser, error)

	Close() error
}
