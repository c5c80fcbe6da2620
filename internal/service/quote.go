package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"rentcar-booking-backend/internal/domain"
	"rentcar-booking-backend/internal/logger"
	"rentcar-booking-backend/internal/repository"
	"rentcar-booking-backend/internal/utils"
)

type quoteService struct {
	vehicleRepo  repository.VehicleRepository
	availability AvailabilityService
	discounts    DiscountService
	settings     Settings
}

func NewQuoteService(vehicleRepo repository.VehicleRepository, availability AvailabilityService, discounts DiscountService, settings Settings) QuoteService {
	return &quoteService{
		vehicleRepo:  vehicleRepo,
		availability: availability,
		discounts:    discounts,
		settings:     settings,
	}
}

// Quote prices the request and re-validates any discount code against the freshly priced amount.
// An ineligible code is cleared from the breakdown and reported in Quote.Discount.
func (s *quoteService) Quote(ctx context.Context, req QuoteRequest) (*Quote, error) {
	logger.EnterMethod("quoteService.Quote", "vehicleID", req.VehicleID, "pickup", req.PickupDate, "return", req.ReturnDate)
	if err := normalizeQuoteRequest(&req, s.settings); err != nil {
		return nil, err
	}

	vehicle, err := s.vehicleRepo.GetByID(ctx, req.VehicleID)
	if err != nil {
		return nil, err
	}

	q, err := s.price(ctx, vehicle, req)
	if err != nil {
		return nil, err
	}

	if vehicle.IsAvailable {
		ok, err := s.availability.IsAvailable(ctx, req.VehicleID, req.PickupDate, req.ReturnDate)
		if err != nil {
			return nil, err
		}
		q.Available = ok
	}
	return q, nil
}

// price is shared by Quote and CreateBooking so both see the same amounts.
func (s *quoteService) price(ctx context.Context, vehicle *domain.Vehicle, req QuoteRequest) (*Quote, error) {
	rentalFee := utils.RentalFee(vehicle.HourlyRate, req.PickupDate, req.ReturnDate)

	var discount *domain.DiscountResult
	var discountAmount int64
	if req.DiscountCode != "" {
		var caller domain.CallerContext
		if req.Customer != nil {
			cc, err := s.discounts.CallerContext(ctx, *req.Customer)
			if err != nil {
				return nil, err
			}
			caller = cc
		}
		res, err := s.discounts.Validate(ctx, req.DiscountCode, rentalFee, req.PickupDate, req.ReturnDate, caller)
		if err != nil {
			return nil, err
		}
		discount = res
		if discount.Valid {
			discountAmount = discount.DiscountAmount
		}
	}

	breakdown, err := utils.ComposeFees(rentalFee, req.InsuranceTier, utils.DeliverySelection{
		PickupType: req.PickupType,
		Location:   req.DeliveryLocation,
		SelfReturn: req.SelfReturn,
		ReturnTime: req.ReturnDate,
	}, discountAmount, s.settings.Fees)
	if err != nil {
		return nil, domain.NewValidationError("insurance_tier", err.Error())
	}

	return &Quote{
		VehicleID:  vehicle.ID,
		PickupDate: req.PickupDate,
		ReturnDate: req.ReturnDate,
		Hours:      utils.HoursBetween(req.PickupDate, req.ReturnDate),
		HourlyRate: vehicle.HourlyRate,
		Breakdown:  breakdown,
		Packages:   utils.PackagePrices(vehicle.HourlyRate),
		Discount:   discount,
	}, nil
}

// normalizeQuoteRequest fills defaults and rejects malformed input before any I/O.
func normalizeQuoteRequest(req *QuoteRequest, settings Settings) error {
	if req.VehicleID <= 0 {
		return domain.NewValidationError("vehicle_id", "vehicle id is required")
	}
	if req.PickupDate.IsZero() {
		return domain.NewValidationError("pickup_date", "pickup date is required")
	}
	if req.ReturnDate.IsZero() {
		return domain.NewValidationError("return_date", "return date is required")
	}
	if !req.ReturnDate.After(req.PickupDate) {
		return domain.NewValidationError("return_date", "return date must be after pickup date")
	}
	if d := req.ReturnDate.Sub(req.PickupDate); d < settings.MinDuration {
		return domain.NewValidationError("return_date",
			fmt.Sprintf("rental must last at least %s", formatHours(settings.MinDuration)))
	}

	if req.InsuranceTier == "" {
		req.InsuranceTier = domain.InsuranceBasic
	}
	if _, err := utils.InsuranceRate(req.InsuranceTier); err != nil {
		return domain.NewValidationError("insurance_tier", err.Error())
	}

	switch req.PickupType {
	case "":
		req.PickupType = domain.PickupTypeSelf
	case domain.PickupTypeSelf, domain.PickupTypeDelivery:
	default:
		return domain.NewValidationError("pickup_type", fmt.Sprintf("unknown pickup type %q", req.PickupType))
	}
	req.DeliveryLocation = strings.TrimSpace(req.DeliveryLocation)
	if req.PickupType == domain.PickupTypeDelivery && req.DeliveryLocation == "" {
		return domain.NewValidationError("delivery_location", "delivery location is required for delivery")
	}
	if req.PickupType == domain.PickupTypeSelf {
		req.DeliveryLocation = ""
		req.SelfReturn = false
	}
	req.DiscountCode = strings.ToUpper(strings.TrimSpace(req.DiscountCode))
	return nil
}

func formatHours(d time.Duration) string {
	return fmt.Sprintf("%g hours", d.Hours())
}
