package http

// SecurityLevel is what a route requires from the caller.
type SecurityLevel int

const (
	SecurityPublic   SecurityLevel = iota // No authentication; a bearer token is still honoured when sent
	SecurityCustomer                      // Access token or guest phone header
	SecurityOperator                      // Access token with the OPERATOR role
)

// EndpointSecurityConfig maps route names to their required security level
var EndpointSecurityConfig = map[string]SecurityLevel{
	// Catalog and pricing - Public
	"Health":              SecurityPublic,
	"ListVehicles":        SecurityPublic,
	"VehicleAvailability": SecurityPublic,
	"BookedSlots":         SecurityPublic,
	"Quote":               SecurityPublic,

	// Booking - identity comes from the token or the guest contact in the body
	"CreateBooking": SecurityPublic,

	// Booking - Customer
	"ListMyBookings":  SecurityCustomer,
	"GetBooking":      SecurityCustomer,
	"CancelBooking":   SecurityCustomer,
	"InitiatePayment": SecurityCustomer,

	// Payment gateway - authenticated by callback signature
	"PaymentCallback": SecurityPublic,
	"MockPayment":     SecurityPublic,

	// Operator
	"UpdateBookingStatus": SecurityOperator,
	"CompleteBooking":     SecurityOperator,
	"RefundBooking":       SecurityOperator,
}

// GetSecurityLevel returns the security level for a given route name
func GetSecurityLevel(route string) SecurityLevel {
	if level, exists := EndpointSecurityConfig[route]; exists {
		return level
	}
	// Default to highest security for unknown endpoints
	return SecurityOperator
}
