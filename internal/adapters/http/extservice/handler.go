package extservice

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	appext "3tcapital/ms_external_services/internal/application/extservice"
	httperrors "3tcapital/ms_external_services/internal/infrastructure/http"
)

// Handler bridges HTTP traffic with the external-service application service.
type Handler struct {
	service *appext.Service
	log     *slog.Logger
}

func NewHandler(service *appext.Service, log *slog.Logger) *Handler {
	return &Handler{service: service, log: log}
}

// CallRequest represents the request body for proxying an HTTP call.
type CallRequest struct {
	Method  string            `json:"method"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    string            `json:"body,omitempty"`
}

// UploadRequest represents the request body for an SFTP upload.
// Content carries the file bytes base64-encoded.
type UploadRequest struct {
	RemotePath string `json:"remotePath"`
	Filename   string `json:"filename"`
	Content    string `json:"content"`
}

// UploadResponse is returned after a successful upload.
type UploadResponse struct {
	Message string `json:"message"`
}

// DownloadResponse returns the file bytes base64-encoded.
type DownloadResponse struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

// PathValidationResponse reports whether a remote directory exists.
type PathValidationResponse struct {
	Path   string `json:"path"`
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// PerformCall handles POST /external/http/calls requests.
func (h *Handler) PerformCall(w http.ResponseWriter, r *http.Request) {
	var reqBody CallRequest
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		httperrors.WriteError(w, http.StatusBadRequest, "Validation error", []string{"request body is not valid JSON"}, h.log)
		return
	}

	snapshot, err := h.service.PerformCall(r.Context(), appext.CallCommand{
		Method:  reqBody.Method,
		URL:     reqBody.URL,
		Headers: reqBody.Headers,
		Body:    []byte(reqBody.Body),
	})
	if err != nil {
		httperrors.WriteError(w, http.StatusBadRequest, "Validation error", []string{err.Error()}, h.log)
		return
	}

	// A failed outbound call is still a successfully handled request:
	// the snapshot carries the failure detail.
	status := http.StatusOK
	if !snapshot.OK && snapshot.Error != "" {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, snapshot)
}

// Upload handles POST /external/sftp/uploads requests.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	var reqBody UploadRequest
	if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
		httperrors.WriteError(w, http.StatusBadRequest, "Validation error", []string{"request body is not valid JSON"}, h.log)
		return
	}

	content, err := base64.StdEncoding.DecodeString(reqBody.Content)
	if err != nil {
		httperrors.WriteError(w, http.StatusBadRequest, "Validation error", []string{"content must be base64 encoded"}, h.log)
		return
	}

	message, err := h.service.UploadFile(r.Context(), appext.UploadCommand{
		RemotePath: reqBody.RemotePath,
		Filename:   reqBody.Filename,
		Content:    content,
	})
	if err != nil {
		h.writeSFTPError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, UploadResponse{Message: message})
}

// Download handles GET /external/sftp/files requests.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	remotePath := r.URL.Query().Get("remotePath")
	filename := r.URL.Query().Get("filename")

	content, err := h.service.DownloadFile(r.Context(), remotePath, filename)
	if err != nil {
		h.writeSFTPError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, DownloadResponse{
		Filename: filename,
		Content:  base64.StdEncoding.EncodeToString(content),
	})
}

// ValidatePath handles GET /external/sftp/path-validations requests.
func (h *Handler) ValidatePath(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")

	valid, reason, err := h.service.ValidatePath(r.Context(), path)
	if err != nil {
		h.writeSFTPError(w, err)
		return
	}

	resp := PathValidationResponse{Path: path, Valid: valid}
	if !valid {
		resp.Reason = reason
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) writeSFTPError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, appext.ErrSFTPNotConfigured):
		httperrors.WriteError(w, http.StatusServiceUnavailable, "SFTP unavailable", []string{err.Error()}, h.log)
	case errors.Is(err, appext.ErrInvalidInput):
		httperrors.WriteError(w, http.StatusBadRequest, "Validation error", []string{err.Error()}, h.log)
	default:
		httperrors.WriteError(w, http.StatusBadGateway, "SFTP operation failed", []string{err.Error()}, h.log)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
