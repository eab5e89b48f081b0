package geospatial

import (
	"math"
	"math/rand"
	"testing"

	"github.com/paulmach/orb/planar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/raasta/internal/core/domain"
)

func randomPoints(r *rand.Rand, n int) []domain.Point {
	pts := make([]domain.Point, n)
	for i := range pts {
		// Karachi-sized box, where the hazards actually live
		pts[i] = domain.Point{
			Lat: 24.75 + r.Float64()*0.35,
			Lon: 66.95 + r.Float64()*0.35,
		}
	}
	return pts
}

func TestIndex_SinglePointIsItsOwnNeighbour(t *testing.T) {
	p := domain.Point{Lat: 24.959767, Lon: 67.062717}
	idx := BuildIndex(domain.PointSet{Category: domain.Pothole, Points: []domain.Point{p}})

	res, err := idx.Query([]domain.Point{p})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, 0.0, res[0].Distance)
	assert.Equal(t, 0.0, res[0].DistanceMeters)
	assert.Equal(t, p, res[0].Location)
}

func TestIndex_EmptySetFailsOnQuery(t *testing.T) {
	idx := BuildIndex(domain.PointSet{Category: domain.Speedbreaker})
	assert.Equal(t, 0, idx.Size())

	_, err := idx.Query([]domain.Point{{Lat: 1, Lon: 1}})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmptyIndex)

	var empty *domain.EmptyIndexError
	require.ErrorAs(t, err, &empty)
	assert.Equal(t, domain.Speedbreaker, empty.Category)
}

func TestIndex_ResultOrderMatchesQueryOrder(t *testing.T) {
	hazards := []domain.Point{{Lat: 0, Lon: 0}, {Lat: 10, Lon: 10}, {Lat: -10, Lon: 5}}
	idx := BuildIndex(domain.PointSet{Category: domain.Pothole, Points: hazards})

	targets := []domain.Point{{Lat: 9, Lon: 9}, {Lat: -9, Lon: 4}, {Lat: 0.5, Lon: 0.5}}
	res, err := idx.Query(targets)
	require.NoError(t, err)
	require.Len(t, res, 3)
	assert.Equal(t, hazards[1], res[0].Location)
	assert.Equal(t, hazards[2], res[1].Location)
	assert.Equal(t, hazards[0], res[2].Location)
	assert.InDelta(t, math.Sqrt(2), res[0].Distance, 1e-12)
}

func TestIndex_MatchesBruteForce(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	hazards := randomPoints(r, 600)
	idx := BuildIndex(domain.PointSet{Category: domain.Pothole, Points: hazards})

	targets := randomPoints(r, 200)
	res, err := idx.Query(targets)
	require.NoError(t, err)
	require.Len(t, res, len(targets))

	for i, target := range targets {
		best := math.Inf(1)
		for _, h := range hazards {
			best = math.Min(best, planar.Distance(target.Orb(), h.Orb()))
		}
		assert.InDelta(t, best, res[i].Distance, 1e-12, "target %d", i)
		assert.Equal(t, res[i].Distance, planar.Distance(target.Orb(), res[i].Location.Orb()))
	}
}

func TestIndex_RebuildSeesNewData(t *testing.T) {
	target := []domain.Point{{Lat: 1, Lon: 1}}

	first := BuildIndex(domain.PointSet{Category: domain.Pothole, Points: []domain.Point{{Lat: 5, Lon: 5}}})
	second := BuildIndex(domain.PointSet{Category: domain.Pothole, Points: []domain.Point{{Lat: 5, Lon: 5}, {Lat: 1, Lon: 1.5}}})

	a, err := first.Query(target)
	require.NoError(t, err)
	b, err := second.Query(target)
	require.NoError(t, err)

	assert.Equal(t, domain.Point{Lat: 5, Lon: 5}, a[0].Location)
	assert.Equal(t, domain.Point{Lat: 1, Lon: 1.5}, b[0].Location)
}

func TestIndex_CollinearHazardsMatchBruteForce(t *testing.T) {
	// hazards along one east-west road give the tree zero-height nodes
	hazards := make([]domain.Point, 500)
	for i := range hazards {
		hazards[i] = domain.Point{Lat: 0, Lon: float64(i) * 0.001}
	}
	idx := BuildIndex(domain.PointSet{Category: domain.Speedbreaker, Points: hazards})

	targets := make([]domain.Point, 500)
	for i := range targets {
		targets[i] = domain.Point{Lat: 0.0003, Lon: float64(i)*0.001 - 0.00003}
	}
	targets = append(targets, domain.Point{Lat: 0.0003, Lon: 0.00097})

	res, err := idx.Query(targets)
	require.NoError(t, err)
	require.Len(t, res, len(targets))

	for i, target := range targets {
		best := math.Inf(1)
		for _, h := range hazards {
			best = math.Min(best, planar.Distance(target.Orb(), h.Orb()))
		}
		assert.InDelta(t, best, res[i].Distance, 1e-12, "target %v got %v", target, res[i].Location)
	}
}
