// Package trips implements the trip analytics pipeline: joining trips with
// their cars and cities, narrowing by brand, and reducing the result to the
// metrics and grouped summaries shown on the dashboard.
//
// Every function in this package is pure. Inputs are never modified and the
// returned slices may share pointer fields with their inputs.
package trips

import "time"

// DateLayout is the calendar date format used for PickupDate.
const DateLayout = "2006-01-02"

// Trip is one row of trips.csv. Nil pointers are empty cells.
type Trip struct {
	ID          int64
	CarID       *int64
	CustomerID  *int64
	CityID      *int64
	PickupTime  *time.Time
	DropoffTime *time.Time
	Distance    *float64 // km
	Revenue     *float64

	// Attributes holds any column outside the known trip schema.
	Attributes map[string]string
}

// Car is one row of cars.csv.
type Car struct {
	ID     int64
	Brand  *string
	Model  *string
	CityID *int64

	Attributes map[string]string
}

// City is one row of cities.csv.
type City struct {
	CityID   int64
	CityName *string

	Attributes map[string]string
}

// EnrichedTrip is a trip with the descriptive fields of its car and city.
// Join identifiers are not carried over.
type EnrichedTrip struct {
	PickupTime  *time.Time `json:"pickup_time"`
	DropoffTime *time.Time `json:"dropoff_time"`
	Distance    *float64   `json:"distance"`
	Revenue     *float64   `json:"revenue"`
	Brand       *string    `json:"brand"`
	Model       *string    `json:"model"`
	CityName    *string    `json:"city_name"`
	PickupDate  *string    `json:"pickup_date"`

	Attributes map[string]string `json:"attributes,omitempty"`
}

// Tables groups the three source record sets.
type Tables struct {
	Trips  []Trip
	Cars   []Car
	Cities []City
}

// PickupDateOf truncates a pickup timestamp to its calendar date, in the
// timestamp's own location. A nil timestamp has no date.
func PickupDateOf(t *time.Time) *string {
	if t == nil {
		return nil
	}
	d := t.Format(DateLayout)
	return &d
}
