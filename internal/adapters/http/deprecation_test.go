package http

import "testing"

func TestMatchPattern(t *testing.T) {
	cases := []struct {
		path, pattern string
		want          bool
	}{
		{"/get_points/Pothole", "/get_points/:type", true},
		{"/get_points/", "/get_points/:type", false},
		{"/get_points/a/b", "/get_points/:type", false},
		{"/get_intersection/1,2,3,4", "/get_intersection/*", true},
		{"/get_intersection/1,2/3,4", "/get_intersection/*", true},
		{"/get_intersection/", "/get_intersection/*", false},
		{"/get_intersection", "/get_intersection/*", false},
		{"/v1/hazards/pothole", "/v1/hazards/:category", true},
		{"/v1/hazards/pothole/geojson", "/v1/hazards/:category", false},
		{"/v1/route", "/v1/route", true},
		{"/v1/nearest", "/v1/route", false},
	}
	for _, tc := range cases {
		if got := matchPattern(tc.path, tc.pattern); got != tc.want {
			t.Errorf("matchPattern(%q, %q) = %v, want %v", tc.path, tc.pattern, got, tc.want)
		}
	}
}
