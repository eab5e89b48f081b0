package geospatial

import (
	"math"
	"sort"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/samirrijal/raasta/internal/core/domain"
)

// DefaultTolerance is the betweenness tolerance in degrees. It absorbs
// floating-point error and GPS noise.
const DefaultTolerance = 1e-4

// Intersector finds the hazards lying on a route. Implementations return each
// matching coordinate once, in first-match order: by segment, then by the
// hazard's position in the input.
type Intersector interface {
	Intersecting(route domain.Route, hazards []domain.Point, tolerance float64) []domain.Point
}

// NewIntersector returns the intersector registered under name: "linear"
// (default) or "bounded".
func NewIntersector(name string) Intersector {
	if name == "bounded" {
		return BoundedIntersector{}
	}
	return LinearIntersector{}
}

// OnSegment reports whether c lies on segment ab within tolerance, using the
// relaxation |a−c| + |c−b| − |a−b| ≤ tolerance.
func OnSegment(a, b, c domain.Point, tolerance float64) bool {
	ao, bo, co := a.Orb(), b.Orb(), c.Orb()
	return planar.Distance(ao, co)+planar.Distance(co, bo)-planar.Distance(ao, bo) <= tolerance
}

// LinearIntersector tests every hazard against every segment.
type LinearIntersector struct{}

func (LinearIntersector) Intersecting(route domain.Route, hazards []domain.Point, tolerance float64) []domain.Point {
	if route.Segments() == 0 || len(hazards) == 0 {
		return nil
	}

	acc := newMatchSet(len(hazards))
	for i := 0; i < route.Segments(); i++ {
		a, b := route.Points[i], route.Points[i+1]
		for j, c := range hazards {
			if acc.done(j) {
				continue
			}
			if OnSegment(a, b, c, tolerance) {
				acc.add(j, c)
			}
		}
	}
	return acc.points
}

// BoundedIntersector loads the hazards into an R-tree and only tests, for each
// segment, the candidates inside the region where the relaxation can hold.
// It returns exactly what LinearIntersector returns.
type BoundedIntersector struct{}

func (BoundedIntersector) Intersecting(route domain.Route, hazards []domain.Point, tolerance float64) []domain.Point {
	if route.Segments() == 0 || len(hazards) == 0 {
		return nil
	}

	tree := rtreego.NewTree(treeDim, treeMinChildren, treeMaxChildren)
	for j, c := range hazards {
		tree.Insert(newHazardEntry(c, j))
	}

	acc := newMatchSet(len(hazards))
	for i := 0; i < route.Segments(); i++ {
		a, b := route.Points[i], route.Points[i+1]

		found := tree.SearchIntersect(segmentSearchRect(a, b, tolerance))
		candidates := make([]*hazardEntry, 0, len(found))
		for _, s := range found {
			candidates = append(candidates, s.(*hazardEntry))
		}
		sort.Slice(candidates, func(x, y int) bool { return candidates[x].pos < candidates[y].pos })

		for _, e := range candidates {
			if acc.done(e.pos) {
				continue
			}
			if OnSegment(a, b, e.point, tolerance) {
				acc.add(e.pos, e.point)
			}
		}
	}
	return acc.points
}

// segmentSearchRect returns the bounding box of segment ab grown by the
// largest distance a matching point can sit from the segment. Points with
// |a−c| + |c−b| ≤ L + t fill an ellipse whose semi-minor axis
// sqrt(t(2L+t))/2 bounds that distance.
func segmentSearchRect(a, b domain.Point, tolerance float64) rtreego.Rect {
	t := math.Max(tolerance, 0)
	length := planar.Distance(a.Orb(), b.Orb())
	pad := math.Sqrt(t*(2*length+t))/2 + 1e-9

	bound := orb.LineString{a.Orb(), b.Orb()}.Bound().Pad(pad)

	// Tree points are stored as (lat, lon); orb bounds are (lon, lat).
	corner := rtreego.Point{bound.Min.Lat(), bound.Min.Lon()}
	lengths := []float64{bound.Max.Lat() - bound.Min.Lat(), bound.Max.Lon() - bound.Min.Lon()}
	rect, err := rtreego.NewRect(corner, lengths)
	if err != nil {
		// Unreachable with a positive pad; fall back to the whole plane.
		rect, _ = rtreego.NewRect(rtreego.Point{-1000, -1000}, []float64{2000, 2000})
	}
	return rect
}

// matchSet accumulates matches, deduplicated by coordinate equality.
type matchSet struct {
	matched []bool
	seen    map[domain.Point]struct{}
	points  []domain.Point
}

func newMatchSet(n int) *matchSet {
	return &matchSet{matched: make([]bool, n), seen: make(map[domain.Point]struct{})}
}

func (m *matchSet) done(pos int) bool { return m.matched[pos] }

func (m *matchSet) add(pos int, p domain.Point) {
	m.matched[pos] = true
	if _, dup := m.seen[p]; dup {
		return
	}
	m.seen[p] = struct{}{}
	m.points = append(m.points, p)
}
