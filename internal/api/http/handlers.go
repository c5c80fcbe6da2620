package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"rentcar-booking-backend/internal/domain"
	"rentcar-booking-backend/internal/service"
)

// Handler serves the booking REST API.
type Handler struct {
	availability service.AvailabilityService
	quotes       service.QuoteService
	bookings     service.BookingService
	payments     service.PaymentService
}

func NewHandler(availability service.AvailabilityService, quotes service.QuoteService, bookings service.BookingService, payments service.PaymentService) *Handler {
	return &Handler{
		availability: availability,
		quotes:       quotes,
		bookings:     bookings,
		payments:     payments,
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) ListVehicles(w http.ResponseWriter, r *http.Request) {
	onlyAvailable := r.URL.Query().Get("available") == "true"
	vehicles, err := h.availability.ListVehicles(r.Context(), onlyAvailable)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if vehicles == nil {
		vehicles = []domain.VehicleListing{}
	}
	writeJSON(w, http.StatusOK, vehicles)
}

type availabilityResponse struct {
	VehicleID         int32      `json:"vehicle_id"`
	PickupDate        time.Time  `json:"pickup_date"`
	ReturnDate        time.Time  `json:"return_date"`
	Available         bool       `json:"available"`
	NextAvailableTime *time.Time `json:"next_available_time,omitempty"`
}

func (h *Handler) VehicleAvailability(w http.ResponseWriter, r *http.Request) {
	vehicleID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	pickup, err := queryTime(r, "pickup_date")
	if err != nil {
		writeError(w, r, err)
		return
	}
	ret, err := queryTime(r, "return_date")
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := availabilityResponse{VehicleID: vehicleID, PickupDate: pickup, ReturnDate: ret, Available: true}
	err = h.availability.CheckAvailability(r.Context(), vehicleID, pickup, ret)
	var conflict *domain.AvailabilityConflictError
	switch {
	case errors.As(err, &conflict):
		resp.Available = false
		resp.NextAvailableTime = conflict.NextAvailableTime
	case err != nil:
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) BookedSlots(w http.ResponseWriter, r *http.Request) {
	vehicleID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	from, err := queryTime(r, "from")
	if err != nil {
		writeError(w, r, err)
		return
	}
	to, err := queryTime(r, "to")
	if err != nil {
		writeError(w, r, err)
		return
	}
	slots, err := h.availability.BookedSlots(r.Context(), vehicleID, from, to)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if slots == nil {
		slots = []domain.BookedSlot{}
	}
	writeJSON(w, http.StatusOK, slots)
}

func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	var req service.QuoteRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	// discount eligibility depends on who is asking
	req.Customer = customerFromRequest(r)

	q, err := h.quotes.Quote(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req service.CreateBookingRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if claims := ClaimsFromContext(r.Context()); claims != nil {
		req.Customer = domain.CustomerInfo{UserID: claims.UserID}
	}

	b, err := h.bookings.CreateBooking(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	b, err := h.bookings.GetBooking(r.Context(), ownerScope(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *Handler) ListMyBookings(w http.ResponseWriter, r *http.Request) {
	customer := customerFromRequest(r)
	if customer == nil {
		writeError(w, r, unauthorized("access token or guest phone required"))
		return
	}
	page, err := queryInt(r, "page", 1)
	if err != nil {
		writeError(w, r, err)
		return
	}
	pageSize, err := queryInt(r, "page_size", 0)
	if err != nil {
		writeError(w, r, err)
		return
	}

	bookings, total, err := h.bookings.ListMyBookings(r.Context(), *customer, page, pageSize)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if bookings == nil {
		bookings = []domain.Booking{}
	}
	writeJSON(w, http.StatusOK, pageResult{Items: bookings, Total: total, Page: page, PageSize: pageSize})
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req cancelRequest
	if err := decodeOptionalBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	b, err := h.bookings.CancelBooking(r.Context(), ownerScope(r), id, req.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

type initiatePaymentRequest struct {
	PaymentType domain.PaymentType `json:"payment_type"`
}

type initiatePaymentResponse struct {
	Booking     *domain.Booking `json:"booking"`
	PaymentURL  string          `json:"payment_url"`
	AmountDue   int64           `json:"amount_due"`
	PaymentType string          `json:"payment_type"`
}

func (h *Handler) InitiatePayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req initiatePaymentRequest
	if err := decodeOptionalBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	b, err := h.payments.InitiatePayment(r.Context(), ownerScope(r), id, req.PaymentType)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, initiatePaymentResponse{
		Booking:     b,
		PaymentURL:  b.PaymentURL,
		AmountDue:   b.AmountDue(),
		PaymentType: string(b.PaymentType),
	})
}

func (h *Handler) PaymentCallback(w http.ResponseWriter, r *http.Request) {
	var cb service.PaymentCallback
	if err := decodeBody(r, &cb); err != nil {
		writeError(w, r, err)
		return
	}
	b, err := h.payments.HandleCallback(r.Context(), cb)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

type statusRequest struct {
	Status domain.BookingStatus `json:"status"`
}

func (h *Handler) UpdateBookingStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req statusRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	b, err := h.bookings.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *Handler) CompleteBooking(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	b, err := h.bookings.CompleteBooking(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *Handler) RefundBooking(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	b, err := h.payments.RefundBooking(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func pathID(r *http.Request, name string) (int32, error) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || id <= 0 {
		return 0, &requestError{field: name, err: errors.New("must be a positive integer")}
	}
	return int32(id), nil
}

func queryTime(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, &requestError{field: name, err: errors.New("is required")}
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, &requestError{field: name, err: errors.New("must be an RFC 3339 timestamp")}
	}
	return t, nil
}

func queryInt(r *http.Request, name string, def int32) (int32, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return 0, &requestError{field: name, err: errors.New("must be an integer")}
	}
	return int32(v), nil
}

const maxBodyBytes = 1 << 20

func decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(dst); err != nil {
		return &requestError{err: err}
	}
	return nil
}

// decodeOptionalBody accepts an empty body.
func decodeOptionalBody(r *http.Request, dst any) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(dst)
	if err != nil && !errors.Is(err, io.EOF) {
		return &requestError{err: err}
	}
	return nil
}
