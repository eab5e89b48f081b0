package geospatial

import (
	"strconv"
	"strings"

	"github.com/samirrijal/raasta/internal/core/domain"
)

const (
	maxLatitude     = 90
	maxLongitude    = 180
	maxFractionDigs = 6
	tokenSeparator  = ","
)

// ParseCoordinates turns a comma-separated list of alternating latitude and
// longitude tokens into points, preserving input order. The first invalid
// token aborts parsing and no partial result is returned.
func ParseCoordinates(raw string) ([]domain.Point, error) {
	tokens := strings.Split(raw, tokenSeparator)
	if len(tokens) < 2 || len(tokens)%2 != 0 {
		return nil, &domain.InvalidInputError{
			Index:  -1,
			Reason: "expected an even number (at least 2) of latitude,longitude values, got " + strconv.Itoa(len(tokens)),
		}
	}

	points := make([]domain.Point, 0, len(tokens)/2)
	for i := 0; i < len(tokens); i += 2 {
		lat, err := parseToken(tokens[i], i, maxLatitude, 2)
		if err != nil {
			return nil, err
		}
		lon, err := parseToken(tokens[i+1], i+1, maxLongitude, 3)
		if err != nil {
			return nil, err
		}
		points = append(points, domain.Point{Lat: lat, Lon: lon})
	}
	return points, nil
}

// ParseRoute parses raw input as a route. A route needs at least two
// waypoints to have a segment.
func ParseRoute(raw string) (domain.Route, error) {
	points, err := ParseCoordinates(raw)
	if err != nil {
		return domain.Route{}, err
	}
	return NewRoute(points)
}

// NewRoute wraps already validated points as a route.
func NewRoute(points []domain.Point) (domain.Route, error) {
	if len(points) < 2 {
		return domain.Route{}, &domain.InvalidInputError{
			Index:  -1,
			Reason: "a route needs at least 2 points, got " + strconv.Itoa(len(points)),
		}
	}
	return domain.Route{Points: points}, nil
}

// parseToken validates one coordinate token against an integer-part limit
// (limit itself only with an all-zero fraction) and the fraction precision.
func parseToken(raw string, index int, limit int, maxIntDigits int) (float64, error) {
	tok := strings.TrimSpace(raw)
	fail := func(reason string) (float64, error) {
		return 0, &domain.InvalidInputError{Index: index, Token: tok, Reason: reason}
	}

	body := tok
	if strings.HasPrefix(body, "+") || strings.HasPrefix(body, "-") {
		body = body[1:]
	}
	if body == "" {
		return fail("empty value")
	}

	intPart, frac, hasDot := strings.Cut(body, ".")
	if !allDigits(intPart) {
		return fail("not a decimal number")
	}
	if hasDot && !allDigits(frac) {
		return fail("not a decimal number")
	}
	if len(intPart) > maxIntDigits {
		return fail("integer part too long")
	}
	if len(frac) > maxFractionDigs {
		return fail("more than 6 decimal digits")
	}

	whole, err := strconv.Atoi(intPart)
	if err != nil {
		return fail("not a decimal number")
	}
	switch {
	case whole > limit:
		return fail("out of range ±" + strconv.Itoa(limit))
	case whole == limit && strings.Trim(frac, "0") != "":
		return fail("out of range ±" + strconv.Itoa(limit))
	}

	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return fail("not a decimal number")
	}
	return v, nil
}

// allDigits reports whether s is a non-empty run of ASCII digits.
func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
