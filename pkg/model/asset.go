package model

// Asset availability states. Only available assets accept new bookings.
const (
	AssetAvailable   = "available"
	AssetMaintenance = "maintenance"
	AssetUnavailable = "unavailable"
)

// Asset is the directory view of a rentable bike: the fields the booking
// core needs and nothing more. Catalog management lives outside this
// service. Rates are per hour in minor units.
type Asset struct {
	ID                 string `json:"id" bson:"_id,omitempty"`
	Name               string `json:"name" bson:"name"`
	Category           string `json:"category" bson:"category"`
	HourlyRate         int64  `json:"hourly_rate" bson:"hourly_rate"`
	OvertimeHourlyRate int64  `json:"overtime_hourly_rate" bson:"overtime_hourly_rate"`
	AvailabilityState  string `json:"availability_state" bson:"availability_state"`
}

// Bookable reports whether the asset accepts new bookings.
func (a *Asset) Bookable() bool {
	return a.AvailabilityState == AssetAvailable
}
