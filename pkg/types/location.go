package types

import "strings"

// LimitedModeState is the single placeholder entry used when the location
// list could not be loaded from a backend that is known to be up
const LimitedModeState = "Limited Mode"

// LocationCatalog lists states and their districts.
// A catalog value is never mutated after construction; additions produce a
// new value.
type LocationCatalog struct {
	States           []string            `json:"states"`
	DistrictsByState map[string][]string `json:"districts_by_state,omitempty"`
	Limited          bool                `json:"limited,omitempty"`
}

// NewLocationCatalog builds a catalog from raw state names, dropping blanks
// and duplicates while keeping the server's order
func NewLocationCatalog(states []string) LocationCatalog {
	return LocationCatalog{
		States:           uniqueNames(states),
		DistrictsByState: map[string][]string{},
	}
}

// LimitedCatalog returns the single-entry placeholder catalog
func LimitedCatalog() LocationCatalog {
	return LocationCatalog{
		States:           []string{LimitedModeState},
		DistrictsByState: map[string][]string{},
		Limited:          true,
	}
}

// HasState reports whether the catalog lists the state
func (c LocationCatalog) HasState(state string) bool {
	for _, s := range c.States {
		if s == state {
			return true
		}
	}
	return false
}

// Districts returns the cached districts for a state
func (c LocationCatalog) Districts(state string) ([]string, bool) {
	d, ok := c.DistrictsByState[state]
	return d, ok
}

// WithDistricts returns a copy of the catalog with the districts of one
// state recorded
func (c LocationCatalog) WithDistricts(state string, districts []string) LocationCatalog {
	next := LocationCatalog{
		States:           append([]string(nil), c.States...),
		DistrictsByState: make(map[string][]string, len(c.DistrictsByState)+1),
		Limited:          c.Limited,
	}
	for k, v := range c.DistrictsByState {
		next.DistrictsByState[k] = v
	}
	next.DistrictsByState[state] = uniqueNames(districts)
	return next
}

func uniqueNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
