package geospatial

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/raasta/internal/core/domain"
)

func TestParseCoordinates_PreservesOrder(t *testing.T) {
	pts, err := ParseCoordinates("24.959767, 67.062717, 24.802969,67.077941, 24.959767, 67.062717")
	require.NoError(t, err)
	require.Len(t, pts, 3)
	assert.Equal(t, domain.Point{Lat: 24.959767, Lon: 67.062717}, pts[0])
	assert.Equal(t, domain.Point{Lat: 24.802969, Lon: 67.077941}, pts[1])
	// duplicates are kept, route order matters
	assert.Equal(t, pts[0], pts[2])
}

func TestParseCoordinates_CountMatchesTokens(t *testing.T) {
	cases := map[string]int{
		"0,0":                 1,
		"1,2,3,4":             2,
		"-1.5,+2.25,3,4,5,6":  3,
		" 10 , 20 , 30 , 40 ": 2,
	}
	for raw, want := range cases {
		pts, err := ParseCoordinates(raw)
		require.NoError(t, err, raw)
		assert.Len(t, pts, want, raw)
	}
}

func TestParseCoordinates_Boundaries(t *testing.T) {
	valid := []string{
		"90,180",
		"-90,-180",
		"90.0,180.000000",
		"+90.000000,-180.0",
		"89.999999,179.999999",
		"-0,0",
		"09,099",
	}
	for _, raw := range valid {
		_, err := ParseCoordinates(raw)
		assert.NoError(t, err, raw)
	}
}

func TestParseCoordinates_Rejects(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"single value", "24.5"},
		{"odd count", "1,2,3"},
		{"latitude 91", "91,0"},
		{"longitude 181", "0,181"},
		{"latitude 90 with fraction", "90.000001,0"},
		{"longitude 180 with fraction", "0,180.5"},
		{"non numeric", "abc,1"},
		{"non numeric longitude", "1,east"},
		{"too many decimals", "1.1234567,2"},
		{"trailing dot", "12.,3"},
		{"leading dot", ".5,3"},
		{"exponent", "1e1,2"},
		{"sign only", "-,2"},
		{"double sign", "+-1,2"},
		{"three digit latitude", "100,2"},
		{"empty token", "1,,2,3"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pts, err := ParseCoordinates(tc.raw)
			require.Error(t, err)
			assert.Nil(t, pts)
			assert.True(t, errors.Is(err, domain.ErrInvalidInput), "got %v", err)
		})
	}
}

func TestParseCoordinates_StopsAtFirstBadToken(t *testing.T) {
	_, err := ParseCoordinates("1,2,3,999,5,6")
	require.Error(t, err)

	var inv *domain.InvalidInputError
	require.True(t, errors.As(err, &inv))
	assert.Equal(t, 3, inv.Index)
	assert.Equal(t, "999", inv.Token)
}

func TestParseRoute_NeedsTwoPoints(t *testing.T) {
	_, err := ParseRoute("1,2")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	route, err := ParseRoute("0,0,0,2")
	require.NoError(t, err)
	assert.Equal(t, 1, route.Segments())
}
