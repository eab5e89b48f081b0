package geospatial

import (
	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb/planar"

	"github.com/samirrijal/raasta/internal/core/domain"
)

// R-tree fan-out, same shape used for every tree in this package.
const (
	treeDim         = 2
	treeMinChildren = 25
	treeMaxChildren = 50
)

// hazardEntry stores one hazard in an R-tree. Its bounds are a degenerate
// rectangle, so the tree's point-to-rectangle distance is the exact planar
// distance to the hazard.
type hazardEntry struct {
	point domain.Point
	pos   int
	rect  rtreego.Rect
}

func newHazardEntry(p domain.Point, pos int) *hazardEntry {
	return &hazardEntry{
		point: p,
		pos:   pos,
		rect:  treePoint(p).ToRect(0),
	}
}

func (e *hazardEntry) Bounds() rtreego.Rect { return e.rect }

func treePoint(p domain.Point) rtreego.Point {
	return rtreego.Point{p.Lat, p.Lon}
}

// Index answers nearest-neighbour queries over one category of hazards.
// It is built for a single request and never mutated afterwards.
type Index struct {
	category domain.HazardCategory
	tree     *rtreego.Rtree
	size     int
}

// BuildIndex indexes a snapshot of hazards. An empty set yields an index
// whose queries fail with EmptyIndexError.
func BuildIndex(set domain.PointSet) *Index {
	idx := &Index{category: set.Category, size: len(set.Points)}
	if idx.size == 0 {
		return idx
	}
	idx.tree = rtreego.NewTree(treeDim, treeMinChildren, treeMaxChildren)
	for i, p := range set.Points {
		idx.tree.Insert(newHazardEntry(p, i))
	}
	return idx
}

// Category returns the hazard category the index was built from.
func (idx *Index) Category() domain.HazardCategory { return idx.category }

// Size returns the number of indexed hazards.
func (idx *Index) Size() int { return idx.size }

// Query returns the nearest hazard for every target, in target order.
// Distances are planar, in degrees.
func (idx *Index) Query(targets []domain.Point) ([]domain.NearestResult, error) {
	if idx.size == 0 {
		return nil, &domain.EmptyIndexError{Category: idx.category}
	}

	results := make([]domain.NearestResult, 0, len(targets))
	for _, t := range targets {
		// NearestNeighbor mis-prunes zero-area nodes, e.g. hazards sharing a latitude.
		nearest := idx.tree.NearestNeighbors(1, treePoint(t))[0].(*hazardEntry)
		results = append(results, domain.NearestResult{
			Distance:       planar.Distance(t.Orb(), nearest.point.Orb()),
			DistanceMeters: HaversinePoints(t, nearest.point),
			Location:       nearest.point,
		})
	}
	return results, nil
}
