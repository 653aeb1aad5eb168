package auditlog

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"3tcapital/ms_external_services/internal/core/audit"
	httperrors "3tcapital/ms_external_services/internal/infrastructure/http"
)

// Handler exposes read access to recorded external-service calls.
type Handler struct {
	repo audit.Repository
	log  *slog.Logger
}

func NewHandler(repo audit.Repository, log *slog.Logger) *Handler {
	return &Handler{repo: repo, log: log}
}

// ListResponse wraps a page of call records.
type ListResponse struct {
	Total int                `json:"total"`
	Data  []audit.CallRecord `json:"data"`
}

// ListCalls handles GET /audit/calls requests. Exactly one of the
// service or correlationId query parameters must be provided.
func (h *Handler) ListCalls(w http.ResponseWriter, r *http.Request) {
	service := r.URL.Query().Get("service")
	correlationID := r.URL.Query().Get("correlationId")

	if (service == "") == (correlationID == "") {
		httperrors.WriteError(w, http.StatusBadRequest, "Validation error",
			[]string{"exactly one of service or correlationId is required"}, h.log)
		return
	}

	var (
		records []audit.CallRecord
		err     error
	)
	if correlationID != "" {
		records, err = h.repo.FindByCorrelationID(r.Context(), correlationID)
	} else {
		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			limit, err = strconv.Atoi(raw)
			if err != nil || limit < 1 {
				httperrors.WriteError(w, http.StatusBadRequest, "Validation error",
					[]string{"limit must be a positive integer"}, h.log)
				return
			}
		}
		records, err = h.repo.FindByServiceName(r.Context(), service, limit)
	}
	if err != nil {
		h.log.Error("audit query failed", "error", err)
		httperrors.WriteError(w, http.StatusInternalServerError, "Internal error",
			[]string{"could not query audit records"}, h.log)
		return
	}

	if records == nil {
		records = []audit.CallRecord{}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(ListResponse{Total: len(records), Data: records})
}
