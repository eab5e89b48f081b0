package geospatial

import (
	"strconv"

	"github.com/twpayne/go-polyline"

	"github.com/samirrijal/raasta/internal/core/domain"
)

// ParsePolyline decodes a Google encoded polyline (precision 5) into points.
// Every decoded point must be a valid coordinate.
func ParsePolyline(encoded string) ([]domain.Point, error) {
	coords, rest, err := polyline.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, &domain.InvalidInputError{Index: -1, Reason: "malformed polyline: " + err.Error()}
	}
	if len(rest) != 0 {
		return nil, &domain.InvalidInputError{Index: -1, Reason: "trailing data after polyline"}
	}

	points := make([]domain.Point, 0, len(coords))
	for i, c := range coords {
		p := domain.Point{Lat: c[0], Lon: c[1]}
		if !p.Valid() {
			return nil, &domain.InvalidInputError{
				Index:  i,
				Token:  strconv.FormatFloat(c[0], 'f', -1, 64) + "," + strconv.FormatFloat(c[1], 'f', -1, 64),
				Reason: "decoded point out of range",
			}
		}
		points = append(points, p)
	}
	return points, nil
}

// EncodePolyline encodes points as a Google polyline (precision 5).
func EncodePolyline(points []domain.Point) string {
	coords := make([][]float64, 0, len(points))
	for _, p := range points {
		coords = append(coords, []float64{p.Lat, p.Lon})
	}
	return string(polyline.EncodeCoords(coords))
}
