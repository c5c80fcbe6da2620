package domain

type UserRole string

const (
	UserRoleCustomer UserRole = "CUSTOMER"
	UserRoleOperator UserRole = "OPERATOR"
)

type User struct {
	ID          int32    `json:"id"`
	Email       string   `json:"email"`
	PhoneNumber string   `json:"phone_number"`
	Name        string   `json:"name"`
	Role        UserRole `json:"role"`
	CreatedOn   string   `json:"created_on"`
}

// GuestContact identifies a customer who books without an account.
type GuestContact struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email,omitempty"`
}

// CustomerInfo carries exactly one identity mode: a registered user id or a guest contact.
type CustomerInfo struct {
	UserID int32         `json:"user_id,omitempty"`
	Guest  *GuestContact `json:"guest,omitempty"`
}

func (c CustomerInfo) IsGuest() bool {
	return c.UserID == 0 && c.Guest != nil
}

// CallerContext is the explicit identity and history of whoever is asking for a quote or booking.
type CallerContext struct {
	Customer CustomerInfo
	// PriorBookings counts the caller's non-cancelled bookings.
	PriorBookings int
	// CompletedBookings counts the caller's completed bookings.
	CompletedBookings int
}

// IsNewUser reports whether the caller has never held a non-cancelled booking.
func (c CallerContext) IsNewUser() bool {
	return c.PriorBookings == 0
}
