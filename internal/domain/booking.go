package domain

import "time"

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusOngoing   BookingStatus = "ongoing"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// AllBookingStatuses lists every lifecycle status in lifecycle order.
var AllBookingStatuses = []BookingStatus{
	BookingStatusPending,
	BookingStatusConfirmed,
	BookingStatusOngoing,
	BookingStatusCompleted,
	BookingStatusCancelled,
}

func (s BookingStatus) Valid() bool {
	for _, st := range AllBookingStatuses {
		if s == st {
			return true
		}
	}
	return false
}

// Terminal reports whether no further status transition is possible.
func (s BookingStatus) Terminal() bool {
	return s == BookingStatusCompleted || s == BookingStatusCancelled
}

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

type PaymentType string

const (
	PaymentTypeHold PaymentType = "hold"
	PaymentTypeFull PaymentType = "full"
)

type PickupType string

const (
	PickupTypeSelf     PickupType = "self"
	PickupTypeDelivery PickupType = "delivery"
)

type InsuranceTier string

const (
	InsuranceBasic    InsuranceTier = "basic"
	InsuranceStandard InsuranceTier = "standard"
	InsurancePremium  InsuranceTier = "premium"
)

// Booking occupies its vehicle for [PickupDate, ReturnDate) unless cancelled.
type Booking struct {
	ID         int32     `json:"id"`
	VehicleID  int32     `json:"vehicle_id"`
	PickupDate time.Time `json:"pickup_date"`
	ReturnDate time.Time `json:"return_date"`

	// Exactly one of UserID or Guest is populated.
	UserID *int32        `json:"user_id,omitempty"`
	Guest  *GuestContact `json:"guest,omitempty"`

	PickupType       PickupType    `json:"pickup_type"`
	DeliveryLocation string        `json:"delivery_location,omitempty"`
	SelfReturn       bool          `json:"self_return"`
	InsuranceTier    InsuranceTier `json:"insurance_tier"`

	// Price snapshot, fixed at creation.
	OriginalAmount int64  `json:"original_amount"`
	InsuranceFee   int64  `json:"insurance_fee"`
	DeliveryFee    int64  `json:"delivery_fee"`
	VAT            int64  `json:"vat"`
	DiscountCode   string `json:"discount_code,omitempty"`
	DiscountAmount int64  `json:"discount_amount"`
	FinalAmount    int64  `json:"final_amount"`
	DepositAmount  int64  `json:"deposit_amount"`
	HoldFee        int64  `json:"hold_fee"`

	Status        BookingStatus `json:"status"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	PaymentType   PaymentType   `json:"payment_type"`
	PaidAmount    int64         `json:"paid_amount"`
	PaidAt        *time.Time    `json:"paid_at,omitempty"`

	// Payment gateway correlation.
	PaymentRef       string `json:"payment_ref,omitempty"`
	PaymentTxnID     string `json:"payment_txn_id,omitempty"`
	PaymentURL       string `json:"payment_url,omitempty"`
	PaymentFailCause string `json:"payment_fail_cause,omitempty"`

	CancelReason string     `json:"cancel_reason,omitempty"`
	CancelledAt  *time.Time `json:"cancelled_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	CreatedOn    time.Time  `json:"created_on"`
	UpdatedOn    time.Time  `json:"updated_on"`
}

// Occupies reports whether the booking holds its vehicle's interval.
func (b *Booking) Occupies() bool {
	return b.Status != BookingStatusCancelled
}

// Duration is the rental window length.
func (b *Booking) Duration() time.Duration {
	return b.ReturnDate.Sub(b.PickupDate)
}

// AmountDue is what the gateway must collect for the selected payment type.
func (b *Booking) AmountDue() int64 {
	if b.PaymentType == PaymentTypeHold {
		return b.HoldFee
	}
	return b.FinalAmount + b.DepositAmount
}

// RemainingAmount is what is still owed after the recorded payment, deposit included.
func (b *Booking) RemainingAmount() int64 {
	if b.PaymentStatus != PaymentStatusPaid {
		return b.FinalAmount + b.DepositAmount
	}
	rest := b.FinalAmount + b.DepositAmount - b.PaidAmount
	if rest < 0 {
		return 0
	}
	return rest
}

// Customer returns the booking's identity mode.
func (b *Booking) Customer() CustomerInfo {
	if b.UserID != nil {
		return CustomerInfo{UserID: *b.UserID}
	}
	return CustomerInfo{Guest: b.Guest}
}

// Overlaps reports whether [s1,e1) and [s2,e2) intersect. Touching endpoints do not.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && s2.Before(e1)
}
