package http

import (
	"io"
	"net/http"

	"github.com/YelzhanWeb/ordertrack/internal/adapter/logger"
	"github.com/YelzhanWeb/ordertrack/internal/domain"
	"github.com/YelzhanWeb/ordertrack/internal/interfaces"
	"github.com/gorilla/mux"
)

type TrackingHandler struct {
	service  interfaces.TrackingService
	terminal map[string]bool
	logger   logger.Logger
}

// NewTrackingHandler builds the read API. terminal is the set of statuses
// hidden from the admin listing.
func NewTrackingHandler(service interfaces.TrackingService, terminal map[string]bool, logger logger.Logger) *TrackingHandler {
	return &TrackingHandler{
		service:  service,
		terminal: terminal,
		logger:   logger,
	}
}

type HistoryEntry struct {
	Status    string  `json:"status"`
	Timestamp string  `json:"timestamp"`
	ChangedBy string  `json:"changed_by"`
	Notes     *string `json:"notes,omitempty"`
}

func (h *TrackingHandler) StatusGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.service.StatusGroups(r.Context())
	if err != nil {
		h.logger.Error("status_groups_failed", "Failed to load status groups", RequestID(r.Context()), nil, err)
		respondError(w, err.Error(), http.StatusServiceUnavailable, nil)
		return
	}
	respondJSON(w, http.StatusOK, groups)
}

func (h *TrackingHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.GetOrder(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

func (h *TrackingHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var scope domain.OrderScope
	switch {
	case q.Get("admin") == "true":
		scope = domain.AdminScope(h.terminal)
	case q.Get("user_id") != "":
		scope = domain.UserScope(q.Get("user_id"))
	case q.Get("fingerprint") != "":
		scope = domain.GuestScope(q.Get("fingerprint"))
	default:
		respondError(w, "one of user_id, fingerprint or admin=true is required", http.StatusBadRequest, nil)
		return
	}

	views, err := h.service.ListOrders(r.Context(), scope)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, views)
}

func (h *TrackingHandler) GetOrderHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.service.GetOrderHistory(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, r, err)
		return
	}

	resp := make([]HistoryEntry, len(history))
	for i, log := range history {
		resp[i] = HistoryEntry{
			Status:    log.Status,
			Timestamp: log.ChangedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
			ChangedBy: log.ChangedBy,
			Notes:     log.Notes,
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *TrackingHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, `{"alive": true}`)
}

func (h *TrackingHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("tracking_request_failed", "Tracking request failed", RequestID(r.Context()), map[string]interface{}{
			"path": r.URL.Path,
		}, err)
		respondError(w, "Internal server error", status, nil)
		return
	}
	respondError(w, err.Error(), status, nil)
}
