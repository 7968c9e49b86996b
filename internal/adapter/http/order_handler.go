package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/YelzhanWeb/ordertrack/internal/adapter/logger"
	"github.com/YelzhanWeb/ordertrack/internal/interfaces"
	"github.com/gorilla/mux"
)

const maxBodyBytes = 1 << 20

// OrderHandler serves the write side: checkout and admin status changes.
type OrderHandler struct {
	checkout interfaces.CheckoutService
	admin    interfaces.AdminService
	logger   logger.Logger
}

func NewOrderHandler(checkout interfaces.CheckoutService, admin interfaces.AdminService, logger logger.Logger) *OrderHandler {
	return &OrderHandler{
		checkout: checkout,
		admin:    admin,
		logger:   logger,
	}
}

type CreateOrderResponse struct {
	ID          string `json:"id"`
	OrderNumber string `json:"order_number"`
	Status      string `json:"status"`
	Total       string `json:"total"`
}

type UpdateStatusRequest struct {
	Status    string `json:"status"`
	ChangedBy string `json:"changed_by"`
}

type UpdateStatusResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	requestID := RequestID(r.Context())

	var cmd interfaces.PlaceOrderCommand
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&cmd); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	order, err := h.checkout.PlaceOrder(r.Context(), cmd)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("order_creation_failed", "Failed to create order", requestID, nil, err)
			respondError(w, "Failed to create order", status, nil)
			return
		}
		respondError(w, err.Error(), status, validationDetails(err))
		return
	}

	h.logger.Info("order_created", "Order placed", requestID, map[string]interface{}{
		"order_number": order.Number,
	})

	respondJSON(w, http.StatusCreated, CreateOrderResponse{
		ID:          order.ID,
		OrderNumber: order.Number,
		Status:      order.Status,
		Total:       order.Total.StringFixed(2),
	})
}

func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}
	if strings.TrimSpace(req.Status) == "" {
		respondError(w, "Validation failed", http.StatusBadRequest, []ValidationError{
			{Field: "status", Message: "status is required"},
		})
		return
	}

	order, err := h.admin.Advance(r.Context(), mux.Vars(r)["id"], req.Status, actor(req.ChangedBy))
	if err != nil {
		h.fail(w, r, "status_update_failed", err)
		return
	}
	respondJSON(w, http.StatusOK, UpdateStatusResponse{ID: order.ID, Status: order.Status})
}

func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.admin.Cancel(r.Context(), mux.Vars(r)["id"], actor(r.URL.Query().Get("changed_by")))
	if err != nil {
		h.fail(w, r, "order_cancel_failed", err)
		return
	}
	respondJSON(w, http.StatusOK, UpdateStatusResponse{ID: order.ID, Status: order.Status})
}

func (h *OrderHandler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.admin.Delete(r.Context(), mux.Vars(r)["id"], actor(r.URL.Query().Get("changed_by"))); err != nil {
		h.fail(w, r, "order_delete_failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *OrderHandler) fail(w http.ResponseWriter, r *http.Request, action string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error(action, "Admin operation failed", RequestID(r.Context()), map[string]interface{}{
			"order_id": mux.Vars(r)["id"],
		}, err)
		respondError(w, "Internal server error", status, nil)
		return
	}
	respondError(w, err.Error(), status, nil)
}

func actor(name string) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	return "admin"
}
