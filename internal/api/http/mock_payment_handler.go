package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"rentcar-booking-backend/internal/domain"
	"rentcar-booking-backend/internal/payment"
	"rentcar-booking-backend/internal/service"
)

// MockPaymentHandler serves the checkout pages of the mock gateway.
type MockPaymentHandler struct {
	gateway        *payment.MockGateway
	payments       service.PaymentService
	callbackSecret string
}

func NewMockPaymentHandler(gateway *payment.MockGateway, payments service.PaymentService, callbackSecret string) *MockPaymentHandler {
	return &MockPaymentHandler{
		gateway:        gateway,
		payments:       payments,
		callbackSecret: callbackSecret,
	}
}

// HandleCheckout settles the session the way a real gateway would: by posting a signed callback.
// ?outcome=fail simulates a declined payment.
func (h *MockPaymentHandler) HandleCheckout(w http.ResponseWriter, r *http.Request) {
	token := mux.Vars(r)["token"]
	session, ok := h.gateway.Session(token)
	if !ok {
		writeError(w, r, domain.ErrNotFound)
		return
	}

	cb := service.PaymentCallback{
		PaymentRef:    session.Ref,
		BookingID:     session.BookingID,
		Amount:        session.Amount,
		Success:       r.URL.Query().Get("outcome") != "fail",
		TransactionID: "mock-" + token,
	}
	if !cb.Success {
		cb.FailureReason = "declined by mock gateway"
	}
	cb.Signature = payment.Sign(h.callbackSecret, cb.PaymentRef, cb.BookingID, cb.Amount, cb.Success, cb.TransactionID)

	b, err := h.payments.HandleCallback(r.Context(), cb)
	h.gateway.Complete(token)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// RegisterMockPaymentRoutes registers the mock gateway checkout endpoint
func RegisterMockPaymentRoutes(router *mux.Router, gateway *payment.MockGateway, payments service.PaymentService, callbackSecret string) {
	handler := NewMockPaymentHandler(gateway, payments, callbackSecret)
	router.HandleFunc("/api/v1/mock-payment/{token}", handler.HandleCheckout).Methods("GET").Name("MockPayment")
}
