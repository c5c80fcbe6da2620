package utils

import (
	"fmt"
	"math"
	"time"

	"rentcar-booking-backend/internal/domain"
)

// FeeSchedule holds the fixed amounts and rates the fee composer applies.
type FeeSchedule struct {
	HoldFee            int64
	DepositAmount      int64
	DeliveryTripFee    int64
	VATPercent         int64
	OperatingStartHour int
	OperatingEndHour   int
	Location           *time.Location
}

// DefaultFeeSchedule is used when no pricing section is configured.
func DefaultFeeSchedule() FeeSchedule {
	return FeeSchedule{
		HoldFee:            500000,
		DepositAmount:      5000000,
		DeliveryTripFee:    150000,
		VATPercent:         10,
		OperatingStartHour: 7,
		OperatingEndHour:   22,
		Location:           time.UTC,
	}
}

var insuranceRates = map[domain.InsuranceTier]float64{
	domain.InsuranceBasic:    0.012,
	domain.InsuranceStandard: 0.013,
	domain.InsurancePremium:  0.014,
}

// InsuranceRate returns the share of the rental fee charged for the tier.
func InsuranceRate(tier domain.InsuranceTier) (float64, error) {
	rate, ok := insuranceRates[tier]
	if !ok {
		return 0, fmt.Errorf("unknown insurance tier %q", tier)
	}
	return rate, nil
}

// DeliverySelection describes how the vehicle reaches and leaves the customer.
type DeliverySelection struct {
	PickupType domain.PickupType
	Location   string
	SelfReturn bool
	ReturnTime time.Time
}

// FeeBreakdown is the payable composition of a quote.
type FeeBreakdown struct {
	RentalFee      int64 `json:"rental_fee"`
	InsuranceFee   int64 `json:"insurance_fee"`
	DeliveryFee    int64 `json:"delivery_fee"`
	DeliveryTrips  int   `json:"delivery_trips"`
	VAT            int64 `json:"vat"`
	DiscountAmount int64 `json:"discount_amount"`
	FinalAmount    int64 `json:"final_amount"`
	HoldFee        int64 `json:"hold_fee"`
	DepositAmount  int64 `json:"deposit_amount"`
	// FullPaymentTotal is FinalAmount plus the refundable deposit.
	FullPaymentTotal int64  `json:"full_payment_total"`
	Confirmable      bool   `json:"confirmable"`
	BlockReason      string `json:"block_reason,omitempty"`
}

// ComposeFees adds insurance, delivery and VAT to the rental fee and subtracts the discount.
func ComposeFees(rentalFee int64, tier domain.InsuranceTier, delivery DeliverySelection, discountAmount int64, sched FeeSchedule) (FeeBreakdown, error) {
	rate, err := InsuranceRate(tier)
	if err != nil {
		return FeeBreakdown{}, err
	}

	b := FeeBreakdown{
		RentalFee:      rentalFee,
		InsuranceFee:   int64(math.Round(float64(rentalFee) * rate)),
		VAT:            int64(math.Round(float64(rentalFee) * float64(sched.VATPercent) / 100)),
		DiscountAmount: discountAmount,
		HoldFee:        sched.HoldFee,
		DepositAmount:  sched.DepositAmount,
		Confirmable:    true,
	}

	if delivery.PickupType == domain.PickupTypeDelivery {
		b.DeliveryTrips = 2
		if delivery.SelfReturn {
			b.DeliveryTrips = 1
		}
		b.DeliveryFee = int64(b.DeliveryTrips) * sched.DeliveryTripFee

		if !delivery.SelfReturn && !sched.WithinOperatingHours(delivery.ReturnTime) {
			b.Confirmable = false
			b.BlockReason = fmt.Sprintf("vehicle collection is only available between %02d:00 and %02d:00; choose another return time or return the vehicle yourself",
				sched.OperatingStartHour, sched.OperatingEndHour)
		}
	}

	final := rentalFee + b.InsuranceFee + b.VAT + b.DeliveryFee - discountAmount
	if final < 0 {
		final = 0
	}
	b.FinalAmount = final
	b.FullPaymentTotal = final + sched.DepositAmount
	return b, nil
}

// WithinOperatingHours reports whether t falls inside [start:00, end:00] local time.
func (s FeeSchedule) WithinOperatingHours(t time.Time) bool {
	loc := s.Location
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	tod := local.Sub(midnight)
	return tod >= time.Duration(s.OperatingStartHour)*time.Hour && tod <= time.Duration(s.OperatingEndHour)*time.Hour
}
