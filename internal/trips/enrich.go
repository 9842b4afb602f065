package trips

// Enrich left-joins every trip with its car (trip car_id = car id) and then
// with its city. The city reference is the trip's own city_id when present,
// otherwise the city_id of the joined car.
//
// The result always has exactly one row per trip, in input order. A missing
// or orphan reference leaves the corresponding descriptive fields nil. When
// cars or cities repeat a key, the first occurrence wins.
func Enrich(trips []Trip, cars []Car, cities []City) []EnrichedTrip {
	carIdx := make(map[int64]int, len(cars))
	for i, c := range cars {
		if _, seen := carIdx[c.ID]; !seen {
			carIdx[c.ID] = i
		}
	}
	cityIdx := make(map[int64]int, len(cities))
	for i, c := range cities {
		if _, seen := cityIdx[c.CityID]; !seen {
			cityIdx[c.CityID] = i
		}
	}

	out := make([]EnrichedTrip, 0, len(trips))
	for _, t := range trips {
		row := EnrichedTrip{
			PickupTime:  t.PickupTime,
			DropoffTime: t.DropoffTime,
			Distance:    t.Distance,
			Revenue:     t.Revenue,
			PickupDate:  PickupDateOf(t.PickupTime),
		}

		var car *Car
		if t.CarID != nil {
			if i, ok := carIdx[*t.CarID]; ok {
				car = &cars[i]
				row.Brand = car.Brand
				row.Model = car.Model
			}
		}

		cityRef := t.CityID
		if cityRef == nil && car != nil {
			cityRef = car.CityID
		}
		var city *City
		if cityRef != nil {
			if i, ok := cityIdx[*cityRef]; ok {
				city = &cities[i]
				row.CityName = city.CityName
			}
		}

		row.Attributes = mergeAttributes(t.Attributes, car, city)
		out = append(out, row)
	}
	return out
}

// mergeAttributes combines the extra columns of the joined records. Names
// already taken are suffixed with the side they came from.
func mergeAttributes(trip map[string]string, car *Car, city *City) map[string]string {
	n := len(trip)
	if car != nil {
		n += len(car.Attributes)
	}
	if city != nil {
		n += len(city.Attributes)
	}
	if n == 0 {
		return nil
	}

	merged := make(map[string]string, n)
	for k, v := range trip {
		merged[k] = v
	}
	add := func(attrs map[string]string, suffix string) {
		for k, v := range attrs {
			if _, taken := merged[k]; taken {
				k += suffix
			}
			merged[k] = v
		}
	}
	if car != nil {
		add(car.Attributes, "_car")
	}
	if city != nil {
		add(city.Attributes, "_city")
	}
	return merged
}
