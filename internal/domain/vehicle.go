package domain

import "time"

type FuelType string

const (
	FuelTypeGasoline FuelType = "gasoline"
	FuelTypeDiesel   FuelType = "diesel"
	FuelTypeElectric FuelType = "electric"
	FuelTypeHybrid   FuelType = "hybrid"
)

type Transmission string

const (
	TransmissionAutomatic Transmission = "automatic"
	TransmissionManual    Transmission = "manual"
)

// AvailabilityStatus is the listing classification of a vehicle at a point in time.
type AvailabilityStatus string

const (
	AvailabilityAvailable             AvailabilityStatus = "available"
	AvailabilitySoonAvailable         AvailabilityStatus = "soon_available"
	AvailabilityAvailableWithUpcoming AvailabilityStatus = "available_with_upcoming"
	AvailabilityBooked                AvailabilityStatus = "booked"
)

// Vehicle is owned by the fleet catalog and read-only here.
type Vehicle struct {
	ID            int32        `json:"id"`
	Name          string       `json:"name"`
	LicensePlate  string       `json:"license_plate"`
	HourlyRate    int64        `json:"hourly_rate"`
	Seats         int32        `json:"seats"`
	FuelType      FuelType     `json:"fuel_type"`
	Transmission  Transmission `json:"transmission"`
	PickupAddress string       `json:"pickup_address"`
	IsAvailable   bool         `json:"is_available"`
	CreatedOn     time.Time    `json:"created_on"`
}

// VehicleAvailability is computed per query and never persisted on the vehicle.
type VehicleAvailability struct {
	Status            AvailabilityStatus `json:"availability_status"`
	NextAvailableTime *time.Time         `json:"next_available_time,omitempty"`
	CurrentBookingEnd *time.Time         `json:"current_booking_end,omitempty"`
}

// VehicleListing pairs a vehicle with its transient availability annotation.
type VehicleListing struct {
	Vehicle
	VehicleAvailability
}

// BookedSlot is a calendar entry for an occupied interval.
type BookedSlot struct {
	BookingID int32         `json:"booking_id"`
	Start     time.Time     `json:"start"`
	End       time.Time     `json:"end"`
	Status    BookingStatus `json:"status"`
}
