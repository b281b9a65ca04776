package pricing

import "sort"

type CatalogTrip struct {
	TripID            string  `json:"trip_id"`
	TripName          string  `json:"trip_name"`
	Destination       string  `json:"destination"`
	PricePerPassenger float64 `json:"price_per_passenger"`
}

// Catalog is an immutable price table. The zero value is empty.
type Catalog struct {
	trips map[string]CatalogTrip
}

func NewCatalog(trips ...CatalogTrip) Catalog {
	m := make(map[string]CatalogTrip, len(trips))
	for _, t := range trips {
		m[t.TripID] = t
	}
	return Catalog{trips: m}
}

// DefaultCatalog is the set of packaged trips offered by the front-end.
func DefaultCatalog() Catalog {
	return NewCatalog(
		CatalogTrip{TripID: "goa-beach", TripName: "Goa Beach Getaway", Destination: "Goa", PricePerPassenger: 450},
		CatalogTrip{TripID: "paris-family", TripName: "Paris Family Holiday", Destination: "Paris", PricePerPassenger: 1200},
		CatalogTrip{TripID: "manali-adventure", TripName: "Manali Mountain Adventure", Destination: "Manali", PricePerPassenger: 380},
	)
}

func (c Catalog) Lookup(tripID string) (CatalogTrip, bool) {
	t, ok := c.trips[tripID]
	return t, ok
}

// Trips returns a copy of the table ordered by trip id.
func (c Catalog) Trips() []CatalogTrip {
	out := make([]CatalogTrip, 0, len(c.trips))
	for _, t := range c.trips {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TripID < out[j].TripID })
	return out
}
