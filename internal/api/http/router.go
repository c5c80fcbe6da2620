package http

import (
	"github.com/gorilla/mux"

	"rentcar-booking-backend/internal/security"
)

// NewRouter registers the REST API behind logging and auth middleware.
func NewRouter(h *Handler, tm security.TokenManager) *mux.Router {
	router := mux.NewRouter()
	router.Use(loggingMiddleware)
	router.Use(NewAuthMiddleware(tm).Handler)

	router.HandleFunc("/healthz", h.Health).Methods("GET").Name("Health")

	api := router.PathPrefix("/api/v1").Subrouter()

	// Catalog and pricing
	api.HandleFunc("/vehicles", h.ListVehicles).Methods("GET").Name("ListVehicles")
	api.HandleFunc("/vehicles/{id:[0-9]+}/availability", h.VehicleAvailability).Methods("GET").Name("VehicleAvailability")
	api.HandleFunc("/vehicles/{id:[0-9]+}/booked-slots", h.BookedSlots).Methods("GET").Name("BookedSlots")
	api.HandleFunc("/quotes", h.Quote).Methods("POST").Name("Quote")

	// Bookings
	api.HandleFunc("/bookings", h.CreateBooking).Methods("POST").Name("CreateBooking")
	api.HandleFunc("/bookings", h.ListMyBookings).Methods("GET").Name("ListMyBookings")
	api.HandleFunc("/bookings/{id:[0-9]+}", h.GetBooking).Methods("GET").Name("GetBooking")
	api.HandleFunc("/bookings/{id:[0-9]+}/cancel", h.CancelBooking).Methods("POST").Name("CancelBooking")
	api.HandleFunc("/bookings/{id:[0-9]+}/payments", h.InitiatePayment).Methods("POST").Name("InitiatePayment")

	// Payment gateway
	api.HandleFunc("/payments/callback", h.PaymentCallback).Methods("POST").Name("PaymentCallback")

	// Operator
	api.HandleFunc("/operator/bookings/{id:[0-9]+}/status", h.UpdateBookingStatus).Methods("PATCH").Name("UpdateBookingStatus")
	api.HandleFunc("/operator/bookings/{id:[0-9]+}/complete", h.CompleteBooking).Methods("POST").Name("CompleteBooking")
	api.HandleFunc("/operator/bookings/{id:[0-9]+}/refund", h.RefundBooking).Methods("POST").Name("RefundBooking")

	return router
}
