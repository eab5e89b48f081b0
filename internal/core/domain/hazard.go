package domain

import (
	"strings"
	"time"
)

// HazardCategory is a kind of road hazard tracked by the service.
type HazardCategory string

const (
	Pothole      HazardCategory = "pothole"
	Speedbreaker HazardCategory = "speedbreaker"
)

// Categories returns every tracked category in response order.
func Categories() []HazardCategory {
	return []HazardCategory{Pothole, Speedbreaker}
}

// ParseCategory resolves a category name case-insensitively. Both the
// canonical names and the legacy plural forms ("Potholes") are accepted.
func ParseCategory(s string) (HazardCategory, error) {
	switch strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "s") {
	case string(Pothole):
		return Pothole, nil
	case string(Speedbreaker):
		return Speedbreaker, nil
	}
	return "", ErrUnknownCategory
}

// PointSet is an unordered snapshot of the hazards of one category.
type PointSet struct {
	Category HazardCategory `json:"category"`
	Points   []Point        `json:"points"`
}

// Len returns the number of hazards in the set.
func (s PointSet) Len() int { return len(s.Points) }

// NearestResult is the closest hazard to one query point.
type NearestResult struct {
	Distance       float64 `json:"distance"`        // planar, in degrees
	DistanceMeters float64 `json:"distance_meters"` // haversine, informational
	Location       Point   `json:"location"`
}

// NearestHazards holds one NearestResult per query point and category, in
// query order.
type NearestHazards struct {
	Pothole      []NearestResult `json:"pothole"`
	Speedbreaker []NearestResult `json:"speedbreaker"`
}

// Set assigns the results of a category.
func (n *NearestHazards) Set(c HazardCategory, res []NearestResult) {
	switch c {
	case Pothole:
		n.Pothole = res
	case Speedbreaker:
		n.Speedbreaker = res
	}
}

// Get returns the results of a category.
func (n *NearestHazards) Get(c HazardCategory) []NearestResult {
	switch c {
	case Pothole:
		return n.Pothole
	case Speedbreaker:
		return n.Speedbreaker
	}
	return nil
}

// RouteHazards holds the deduplicated hazards lying on a route.
type RouteHazards struct {
	Pothole      []Point `json:"pothole"`
	Speedbreaker []Point `json:"speedbreaker"`
}

// Set assigns the hazards of a category.
func (r *RouteHazards) Set(c HazardCategory, pts []Point) {
	switch c {
	case Pothole:
		r.Pothole = pts
	case Speedbreaker:
		r.Speedbreaker = pts
	}
}

// Get returns the hazards of a category.
func (r *RouteHazards) Get(c HazardCategory) []Point {
	switch c {
	case Pothole:
		return r.Pothole
	case Speedbreaker:
		return r.Speedbreaker
	}
	return nil
}

// QueryEvent is published after every successful query for auditing.
type QueryEvent struct {
	Operation  string         `json:"operation"` // "nearest" | "route"
	Points     int            `json:"points"`
	Matches    map[string]int `json:"matches"`
	DurationMs float64        `json:"duration_ms"`
	RequestID  string         `json:"request_id,omitempty"`
	Time       time.Time      `json:"time"`
}
