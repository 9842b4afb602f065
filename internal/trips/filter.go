package trips

import "sort"

// FilterByBrand narrows rows to those whose brand is one of brands. With no
// brands selected the input slice is returned as is. Rows without a brand
// never match a non-empty selection.
func FilterByBrand(rows []EnrichedTrip, brands []string) []EnrichedTrip {
	if len(brands) == 0 {
		return rows
	}
	selected := make(map[string]struct{}, len(brands))
	for _, b := range brands {
		selected[b] = struct{}{}
	}

	out := make([]EnrichedTrip, 0, len(rows))
	for _, r := range rows {
		if r.Brand == nil {
			continue
		}
		if _, ok := selected[*r.Brand]; ok {
			out = append(out, r)
		}
	}
	return out
}

// Brands returns the distinct non-nil brands of rows in ascending order.
func Brands(rows []EnrichedTrip) []string {
	seen := make(map[string]struct{})
	for _, r := range rows {
		if r.Brand != nil {
			seen[*r.Brand] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for b := range seen {
		out = append(out, b)
	}
	sort.Strings(out)
	return out
}
