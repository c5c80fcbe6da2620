package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"rentcar-booking-backend/internal/domain"
	"rentcar-booking-backend/internal/logger"
	"rentcar-booking-backend/internal/repository"
)

type discountService struct {
	discountRepo repository.DiscountRepository
	bookingRepo  repository.BookingRepository
	now          Clock
}

func NewDiscountService(discountRepo repository.DiscountRepository, bookingRepo repository.BookingRepository, now Clock) DiscountService {
	if now == nil {
		now = time.Now
	}
	return &discountService{discountRepo: discountRepo, bookingRepo: bookingRepo, now: now}
}

func (s *discountService) Validate(ctx context.Context, code string, amount int64, pickup, ret time.Time, caller domain.CallerContext) (*domain.DiscountResult, error) {
	logger.EnterMethod("discountService.Validate", "code", code, "amount", amount)
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, domain.NewValidationError("discount_code", "discount code is required")
	}
	d, err := s.discountRepo.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return rejected(code, domain.DiscountReasonNotFound, "discount code does not exist"), nil
		}
		return nil, fmt.Errorf("load discount: %w", err)
	}
	res := EvaluateDiscount(d, amount, pickup, s.now(), caller)
	if !res.Valid {
		logger.Debug("Discount rejected", "code", code, "reason", res.Reason)
	}
	return res, nil
}

// CallerContext loads the booking history discounts are checked against.
func (s *discountService) CallerContext(ctx context.Context, customer domain.CustomerInfo) (domain.CallerContext, error) {
	cc := domain.CallerContext{Customer: customer}
	if customer.UserID == 0 && customer.Guest == nil {
		return cc, nil
	}
	prior, completed, err := s.bookingRepo.CountByCustomer(ctx, customer)
	if err != nil {
		return cc, fmt.Errorf("count bookings: %w", err)
	}
	cc.PriorBookings = prior
	cc.CompletedBookings = completed
	return cc, nil
}

// EvaluateDiscount runs the eligibility checks in order and stops at the first failure.
// It has no side effects; quantity is only consumed when a booking is created.
func EvaluateDiscount(d *domain.Discount, amount int64, pickup, now time.Time, caller domain.CallerContext) *domain.DiscountResult {
	switch {
	case !d.IsActive:
		return rejected(d.Code, domain.DiscountReasonInactive, "discount code is not active")
	case now.Before(d.ValidFrom):
		return rejected(d.Code, domain.DiscountReasonNotStarted, "discount code is not valid yet")
	case now.After(d.ValidTo):
		return rejected(d.Code, domain.DiscountReasonExpired, "discount code has expired")
	case d.Quantity <= 0:
		return rejected(d.Code, domain.DiscountReasonOutOfStock, "discount code has been fully redeemed")
	case amount < d.MinOrderAmount:
		return rejected(d.Code, domain.DiscountReasonBelowMinimum,
			fmt.Sprintf("order amount must be at least %d", d.MinOrderAmount))
	}

	if d.RentalStart != nil && pickup.Before(*d.RentalStart) || d.RentalEnd != nil && pickup.After(*d.RentalEnd) {
		return rejected(d.Code, domain.DiscountReasonOutsideRentalWindow, "pickup date is outside the discount's rental period")
	}

	if d.ForNewUsersOnly {
		if !caller.IsNewUser() {
			return rejected(d.Code, domain.DiscountReasonNewUsersOnly, "discount code is for first-time customers only")
		}
	} else if d.ForNthOrder > 0 && int32(caller.CompletedBookings)+1 != d.ForNthOrder {
		return rejected(d.Code, domain.DiscountReasonNthOrderMismatch,
			fmt.Sprintf("discount code applies to order number %d only", d.ForNthOrder))
	}

	if d.RequirePreBookingDays > 0 && pickup.Sub(now) < time.Duration(d.RequirePreBookingDays)*24*time.Hour {
		return rejected(d.Code, domain.DiscountReasonPreBookingDays,
			fmt.Sprintf("book at least %d days before pickup to use this code", d.RequirePreBookingDays))
	}

	return &domain.DiscountResult{Code: d.Code, Valid: true, DiscountAmount: DiscountAmount(d, amount)}
}

// DiscountAmount is the reduction a valid discount gives on the order amount.
func DiscountAmount(d *domain.Discount, amount int64) int64 {
	var off int64
	switch d.Type {
	case domain.DiscountTypePercent:
		off = amount * d.Value / 100
		if d.MaxDiscountAmount > 0 && off > d.MaxDiscountAmount {
			off = d.MaxDiscountAmount
		}
	default:
		off = d.Value
	}
	if off > amount {
		off = amount
	}
	if off < 0 {
		off = 0
	}
	return off
}

func rejected(code string, reason domain.DiscountReason, msg string) *domain.DiscountResult {
	return &domain.DiscountResult{Code: code, Valid: false, Reason: reason, Message: msg}
}

func ineligible(res *domain.DiscountResult) error {
	return &domain.DiscountIneligibleError{Code: res.Code, Reason: res.Reason, Message: res.Message}
}
