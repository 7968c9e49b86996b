package http

import (
	"net/http"

	"github.com/YelzhanWeb/ordertrack/internal/adapter/logger"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

// NewRouter wires every route behind logging, recovery and CORS.
func NewRouter(orders *OrderHandler, tracking *TrackingHandler, logger logger.Logger) http.Handler {
	r := mux.NewRouter()
	r.Use(LoggingMiddleware(logger), RecoveryMiddleware(logger))

	r.HandleFunc("/health", tracking.Health).Methods(http.MethodGet)
	r.HandleFunc("/statuses/groups", tracking.StatusGroups).Methods(http.MethodGet)

	r.HandleFunc("/orders", tracking.ListOrders).Methods(http.MethodGet)
	r.HandleFunc("/orders", orders.CreateOrder).Methods(http.MethodPost)
	r.HandleFunc("/orders/{id}", tracking.GetOrder).Methods(http.MethodGet)
	r.HandleFunc("/orders/{id}", orders.DeleteOrder).Methods(http.MethodDelete)
	r.HandleFunc("/orders/{id}/history", tracking.GetOrderHistory).Methods(http.MethodGet)
	r.HandleFunc("/orders/{id}/status", orders.UpdateStatus).Methods(http.MethodPatch)
	r.HandleFunc("/orders/{id}/cancel", orders.CancelOrder).Methods(http.MethodPost)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
		AllowedHeaders: []string{"Content-Type", "Authorization", RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader},
	})
	return c.Handler(r)
}
