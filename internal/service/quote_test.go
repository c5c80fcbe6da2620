package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentcar-booking-backend/internal/domain"
	"rentcar-booking-backend/internal/service"
)

func TestQuote_EightHourPremium(t *testing.T) {
	f := newFixture(t)

	q, err := f.quotes.Quote(context.Background(), service.QuoteRequest{
		VehicleID:     1,
		PickupDate:    at(10, 8),
		ReturnDate:    at(10, 16),
		InsuranceTier: domain.InsurancePremium,
		PickupType:    domain.PickupTypeSelf,
	})
	require.NoError(t, err)

	assert.Equal(t, float64(8), q.Hours)
	assert.Equal(t, int64(280000), q.Breakdown.RentalFee)
	assert.Equal(t, int64(3920), q.Breakdown.InsuranceFee)
	assert.Equal(t, int64(28000), q.Breakdown.VAT)
	assert.Equal(t, int64(0), q.Breakdown.DeliveryFee)
	assert.Equal(t, int64(311920), q.Breakdown.FinalAmount)
	assert.Equal(t, int64(311920+5000000), q.Breakdown.FullPaymentTotal)
	assert.True(t, q.Breakdown.Confirmable)
	assert.True(t, q.Available)
	require.Len(t, q.Packages, 4)
	assert.Equal(t, int64(280000), q.Packages[1].Amount)
	assert.Nil(t, q.Discount)
}

func TestQuote_Defaults(t *testing.T) {
	f := newFixture(t)
	q, err := f.quotes.Quote(context.Background(), service.QuoteRequest{VehicleID: 2, PickupDate: at(10, 8), ReturnDate: at(10, 12)})
	require.NoError(t, err)
	assert.Equal(t, int64(400000), q.Breakdown.RentalFee)
	assert.Equal(t, int64(4800), q.Breakdown.InsuranceFee, "basic tier")
}

func TestQuote_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		req   service.QuoteRequest
		field string
	}{
		{"missing vehicle", service.QuoteRequest{PickupDate: at(10, 8), ReturnDate: at(10, 16)}, "vehicle_id"},
		{"return before pickup", service.QuoteRequest{VehicleID: 1, PickupDate: at(10, 16), ReturnDate: at(10, 8)}, "return_date"},
		{"shorter than four hours", service.QuoteRequest{VehicleID: 1, PickupDate: at(10, 8), ReturnDate: at(10, 11)}, "return_date"},
		{"unknown tier", service.QuoteRequest{VehicleID: 1, PickupDate: at(10, 8), ReturnDate: at(10, 16), InsuranceTier: "gold"}, "insurance_tier"},
		{"delivery without location", service.QuoteRequest{VehicleID: 1, PickupDate: at(10, 8), ReturnDate: at(10, 16), PickupType: domain.PickupTypeDelivery}, "delivery_location"},
		{"unknown pickup type", service.QuoteRequest{VehicleID: 1, PickupDate: at(10, 8), ReturnDate: at(10, 16), PickupType: "drone"}, "pickup_type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.quotes.Quote(ctx, tt.req)
			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}

	_, err := f.quotes.Quote(ctx, service.QuoteRequest{VehicleID: 99, PickupDate: at(10, 8), ReturnDate: at(10, 16)})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestQuote_Delivery(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := service.QuoteRequest{
		VehicleID:        1,
		PickupDate:       at(10, 8),
		ReturnDate:       at(10, 16),
		PickupType:       domain.PickupTypeDelivery,
		DeliveryLocation: "12 Tran Phu, District 5",
	}

	q, err := f.quotes.Quote(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 2, q.Breakdown.DeliveryTrips)
	assert.Equal(t, int64(300000), q.Breakdown.DeliveryFee)

	req.SelfReturn = true
	q, err = f.quotes.Quote(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, int64(150000), q.Breakdown.DeliveryFee)

	req.SelfReturn = false
	req.ReturnDate = at(10, 23)
	q, err = f.quotes.Quote(ctx, req)
	require.NoError(t, err)
	assert.False(t, q.Breakdown.Confirmable)
	assert.NotEmpty(t, q.Breakdown.BlockReason)
}

func TestQuote_DiscountRevalidatedOnChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addDiscount(t, domain.Discount{Code: "LONG20", Value: 20, Quantity: 10, MinOrderAmount: 500000})

	// 60h at 50,000/h: 3,000,000 x 0.3333 rounds to 1,000,000
	req := service.QuoteRequest{VehicleID: 1, PickupDate: at(10, 8), ReturnDate: at(12, 20), DiscountCode: "long20"}
	q, err := f.quotes.Quote(ctx, req)
	require.NoError(t, err)
	require.NotNil(t, q.Discount)
	assert.True(t, q.Discount.Valid)
	assert.Equal(t, "LONG20", q.Discount.Code)
	assert.Equal(t, int64(1000000), q.Breakdown.RentalFee)
	assert.Equal(t, int64(200000), q.Breakdown.DiscountAmount)

	// shortening the rental drops the amount below the minimum: the discount is cleared and reported
	req.ReturnDate = at(10, 16)
	q, err = f.quotes.Quote(ctx, req)
	require.NoError(t, err)
	require.NotNil(t, q.Discount)
	assert.False(t, q.Discount.Valid)
	assert.Equal(t, domain.DiscountReasonBelowMinimum, q.Discount.Reason)
	assert.Equal(t, int64(0), q.Breakdown.DiscountAmount)
	assert.Equal(t, int64(280000+3360+28000), q.Breakdown.FinalAmount)

	// 24h prices at 400,000, still below the minimum
	req.ReturnDate = at(11, 8)
	q, err = f.quotes.Quote(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, int64(400000), q.Breakdown.RentalFee)
	assert.False(t, q.Discount.Valid)

	assert.Equal(t, int32(10), f.discountQuantity(t, "LONG20"), "quoting never redeems")
}

func TestQuote_NotAvailable(t *testing.T) {
	f := newFixture(t)
	f.seedBooking(1, at(10, 10), at(10, 14), domain.BookingStatusConfirmed, domain.PaymentStatusPaid)

	q, err := f.quotes.Quote(context.Background(), service.QuoteRequest{VehicleID: 1, PickupDate: at(10, 12), ReturnDate: at(10, 16)})
	require.NoError(t, err)
	assert.False(t, q.Available)

	q, err = f.quotes.Quote(context.Background(), service.QuoteRequest{VehicleID: 3, PickupDate: at(10, 12), ReturnDate: at(10, 16)})
	require.NoError(t, err)
	assert.False(t, q.Available, "vehicle closed for booking")
}
