package trips

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Group is one grouped aggregate value.
type Group struct {
	Key   string  `json:"key"`
	Value float64 `json:"value"`
}

// Count is one grouped row count.
type Count struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// Summaries holds the grouped aggregates rendered by the dashboard charts.
// Rows with a nil group key are left out of that aggregate only. Groups are
// ordered by key; dates sort chronologically because of their layout.
type Summaries struct {
	TripsByCity       []Count `json:"trips_by_city"`
	AvgDistanceByCity []Group `json:"avg_distance_by_city"`
	RevenueByModel    []Group `json:"revenue_by_model"`
	RevenueByDate     []Group `json:"revenue_by_date"`
	TripsByDate       []Count `json:"trips_by_date"`
}

func byCity(r EnrichedTrip) *string  { return r.CityName }
func byModel(r EnrichedTrip) *string { return r.Model }
func byDate(r EnrichedTrip) *string  { return r.PickupDate }

func distanceOf(r EnrichedTrip) *float64 { return r.Distance }
func revenueOf(r EnrichedTrip) *float64  { return r.Revenue }

// ComputeSummaries reduces rows to the dashboard's grouped aggregates.
func ComputeSummaries(rows []EnrichedTrip) Summaries {
	return Summaries{
		TripsByCity:       countBy(rows, byCity),
		AvgDistanceByCity: meanBy(rows, byCity, distanceOf),
		RevenueByModel:    sumBy(rows, byModel, revenueOf),
		RevenueByDate:     sumBy(rows, byDate, revenueOf),
		TripsByDate:       countBy(rows, byDate),
	}
}

// partition collects the non-nil values of each non-nil key. Keys whose
// values are all nil are still present with an empty slice.
func partition(rows []EnrichedTrip, key func(EnrichedTrip) *string, value func(EnrichedTrip) *float64) (map[string][]float64, []string) {
	groups := make(map[string][]float64)
	for _, r := range rows {
		k := key(r)
		if k == nil {
			continue
		}
		vals, ok := groups[*k]
		if !ok {
			vals = []float64{}
		}
		if value != nil {
			if v := value(r); v != nil {
				vals = append(vals, *v)
			}
		}
		groups[*k] = vals
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return groups, keys
}

func countBy(rows []EnrichedTrip, key func(EnrichedTrip) *string) []Count {
	counts := make(map[string]int)
	for _, r := range rows {
		if k := key(r); k != nil {
			counts[*k]++
		}
	}
	out := make([]Count, 0, len(counts))
	for k, n := range counts {
		out = append(out, Count{Key: k, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// sumBy sums value per key; a group whose values are all nil sums to 0.
func sumBy(rows []EnrichedTrip, key func(EnrichedTrip) *string, value func(EnrichedTrip) *float64) []Group {
	groups, keys := partition(rows, key, value)
	out := make([]Group, 0, len(keys))
	for _, k := range keys {
		out = append(out, Group{Key: k, Value: floats.Sum(groups[k])})
	}
	return out
}

// meanBy averages value per key, skipping groups with no non-nil value.
func meanBy(rows []EnrichedTrip, key func(EnrichedTrip) *string, value func(EnrichedTrip) *float64) []Group {
	groups, keys := partition(rows, key, value)
	out := make([]Group, 0, len(keys))
	for _, k := range keys {
		vals := groups[k]
		if len(vals) == 0 {
			continue
		}
		out = append(out, Group{Key: k, Value: stat.Mean(vals, nil)})
	}
	return out
}
