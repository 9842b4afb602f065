package trips

import (
	"errors"

	"gonum.org/v1/gonum/floats"
)

// ErrEmptyDataset is returned by ComputeMetrics for zero rows. Callers are
// expected to render a neutral state rather than fail.
var ErrEmptyDataset = errors.New("empty dataset: no trips to summarise")

// Metrics are the headline figures of the dashboard.
type Metrics struct {
	TotalTrips    int     `json:"total_trips"`
	TopCar        *string `json:"top_car"`
	TotalDistance float64 `json:"total_distance"`
}

// ComputeMetrics counts rows, sums their distance and picks the model with
// the highest revenue. Equal revenue totals resolve to the alphabetically
// first model. TopCar is nil when no row has a model.
func ComputeMetrics(rows []EnrichedTrip) (Metrics, error) {
	if len(rows) == 0 {
		return Metrics{}, ErrEmptyDataset
	}

	distances := make([]float64, 0, len(rows))
	for _, r := range rows {
		if r.Distance != nil {
			distances = append(distances, *r.Distance)
		}
	}

	return Metrics{
		TotalTrips:    len(rows),
		TopCar:        topByValue(sumBy(rows, byModel, revenueOf)),
		TotalDistance: floats.Sum(distances),
	}, nil
}

// topByValue returns the key of the largest value. groups must be sorted by
// key so that the first maximum is also the smallest key.
func topByValue(groups []Group) *string {
	if len(groups) == 0 {
		return nil
	}
	best := 0
	for i := 1; i < len(groups); i++ {
		if groups[i].Value > groups[best].Value {
			best = i
		}
	}
	k := groups[best].Key
	return &k
}
