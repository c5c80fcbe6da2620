package domain

import "time"

type DiscountType string

const (
	DiscountTypePercent DiscountType = "percent"
	DiscountTypeAmount  DiscountType = "amount"
)

type Discount struct {
	ID                int32        `json:"id"`
	Code              string       `json:"code"`
	Type              DiscountType `json:"type"`
	Value             int64        `json:"value"`
	MaxDiscountAmount int64        `json:"max_discount_amount"`
	MinOrderAmount    int64        `json:"min_order_amount"`
	Quantity          int32        `json:"quantity"`
	ValidFrom         time.Time    `json:"valid_from"`
	ValidTo           time.Time    `json:"valid_to"`
	// Optional window the booking's pickup date must fall in.
	RentalStart           *time.Time `json:"rental_start,omitempty"`
	RentalEnd             *time.Time `json:"rental_end,omitempty"`
	ForNewUsersOnly       bool       `json:"for_new_users_only"`
	ForNthOrder           int32      `json:"for_nth_order"`
	RequirePreBookingDays int32      `json:"require_pre_booking_days"`
	Exclusive             bool       `json:"exclusive"`
	IsActive              bool       `json:"is_active"`
	CreatedOn             time.Time  `json:"created_on"`
}

// DiscountResult is the outcome of validating a code against an order.
type DiscountResult struct {
	Code           string         `json:"code"`
	Valid          bool           `json:"valid"`
	DiscountAmount int64          `json:"discount_amount"`
	Reason         DiscountReason `json:"reason,omitempty"`
	Message        string         `json:"message,omitempty"`
}
