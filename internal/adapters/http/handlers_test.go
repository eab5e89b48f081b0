package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	handler "github.com/samirrijal/raasta/internal/adapters/http"
	"github.com/samirrijal/raasta/internal/adapters/memory"
	"github.com/samirrijal/raasta/internal/core/domain"
	"github.com/samirrijal/raasta/internal/core/usecases"
	"github.com/samirrijal/raasta/internal/pkg/geospatial"
)

// ---- Fixtures ----

var (
	fixturePotholes = []domain.Point{
		{Lat: 0, Lon: 1}, {Lat: 0, Lon: 3}, {Lat: 5, Lon: 5},
	}
	fixtureSpeedbreakers = []domain.Point{
		{Lat: 0, Lon: 2}, {Lat: 1, Lon: 1},
	}
)

type failingStore struct{ err error }

func (f failingStore) ListByCategory(context.Context, domain.HazardCategory) ([]domain.Point, error) {
	return nil, f.err
}

// ---- Test helpers ----

func setupApp(deps *handler.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, deps)
	return app
}

func seededStore(t *testing.T, potholes, speedbreakers []domain.Point) *memory.Store {
	t.Helper()
	s := memory.New()
	ctx := context.Background()
	if err := s.ReplaceCategory(ctx, domain.Pothole, potholes); err != nil {
		t.Fatal(err)
	}
	if err := s.ReplaceCategory(ctx, domain.Speedbreaker, speedbreakers); err != nil {
		t.Fatal(err)
	}
	return s
}

func makeDeps(t *testing.T, opts ...func(*handler.Dependencies)) *handler.Dependencies {
	t.Helper()
	store := seededStore(t, fixturePotholes, fixtureSpeedbreakers)
	d := &handler.Dependencies{
		Hazards:     usecases.NewHazardService(store, nil, nil, usecases.QueryOptions{StoreName: "memory"}),
		Store:       store,
		StoreDriver: "memory",
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

func withStore(store interface {
	ListByCategory(context.Context, domain.HazardCategory) ([]domain.Point, error)
}) func(*handler.Dependencies) {
	return func(d *handler.Dependencies) {
		d.Hazards = usecases.NewHazardService(store, nil, nil, usecases.QueryOptions{})
	}
}

func get(t *testing.T, app *fiber.App, target string) (int, []byte, map[string]string) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest("GET", target, nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	headers := make(map[string]string)
	for k := range resp.Header {
		headers[k] = resp.Header.Get(k)
	}
	return resp.StatusCode, readBody(t, resp.Body), headers
}

func readBody(t *testing.T, body io.Reader) []byte {
	t.Helper()
	b, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return b
}

func decodeError(t *testing.T, body []byte) handler.APIError {
	t.Helper()
	var apiErr handler.APIError
	if err := json.Unmarshal(body, &apiErr); err != nil {
		t.Fatalf("decode error body %q: %v", body, err)
	}
	return apiErr
}

// ---- Hazard listing ----

func TestListHazards_Success(t *testing.T) {
	app := setupApp(makeDeps(t))

	status, body, headers := get(t, app, "/v1/hazards/pothole")
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}

	var result struct {
		Data       []domain.Point     `json:"data"`
		Pagination handler.Pagination `json:"pagination"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatal(err)
	}
	if result.Pagination.Total != 3 || len(result.Data) != 3 {
		t.Errorf("expected 3 potholes, got %d (total %d)", len(result.Data), result.Pagination.Total)
	}
	if cc := headers["Cache-Control"]; cc != "public, max-age=30" {
		t.Errorf("expected listing to be cacheable, got %q", cc)
	}
}

func TestListHazards_Pagination(t *testing.T) {
	app := setupApp(makeDeps(t))

	status, body, headers := get(t, app, "/v1/hazards/pothole?offset=1&limit=1")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}

	var result struct {
		Data       []domain.Point     `json:"data"`
		Pagination handler.Pagination `json:"pagination"`
	}
	json.Unmarshal(body, &result)
	if len(result.Data) != 1 || result.Data[0] != fixturePotholes[1] {
		t.Errorf("expected second pothole, got %+v", result.Data)
	}
	if result.Pagination.Offset != 1 || result.Pagination.Total != 3 {
		t.Errorf("unexpected pagination %+v", result.Pagination)
	}

	link := headers["Link"]
	for _, rel := range []string{`rel="first"`, `rel="prev"`, `rel="next"`, `rel="last"`} {
		if !strings.Contains(link, rel) {
			t.Errorf("expected %s in Link header, got %s", rel, link)
		}
	}
}

func TestListHazards_OffsetPastEnd(t *testing.T) {
	app := setupApp(makeDeps(t))

	status, body, _ := get(t, app, "/v1/hazards/speedbreaker?offset=50")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	if !strings.Contains(string(body), `"data":[]`) {
		t.Errorf("expected empty data array, got %s", body)
	}
}

func TestListHazards_UnknownCategory(t *testing.T) {
	app := setupApp(makeDeps(t))

	status, body, _ := get(t, app, "/v1/hazards/tree")
	if status != 400 {
		t.Fatalf("expected 400, got %d", status)
	}
	if code := decodeError(t, body).Code; code != "unknown_category" {
		t.Errorf("expected unknown_category, got %s", code)
	}
}

func TestHazardsGeoJSON(t *testing.T) {
	app := setupApp(makeDeps(t))

	status, body, headers := get(t, app, "/v1/hazards/speedbreaker/geojson")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	if ct := headers["Content-Type"]; ct != "application/geo+json" {
		t.Errorf("expected geo+json content type, got %q", ct)
	}

	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Geometry struct {
				Type        string    `json:"type"`
				Coordinates []float64 `json:"coordinates"`
			} `json:"geometry"`
		} `json:"features"`
	}
	if err := json.Unmarshal(body, &fc); err != nil {
		t.Fatal(err)
	}
	if fc.Type != "FeatureCollection" || len(fc.Features) != 2 {
		t.Fatalf("expected 2 features, got %s", body)
	}
	// GeoJSON is [lon, lat]
	if c := fc.Features[0].Geometry.Coordinates; c[0] != 2 || c[1] != 0 {
		t.Errorf("expected [2, 0], got %v", c)
	}
}

// ---- Nearest ----

func TestNearest_Success(t *testing.T) {
	app := setupApp(makeDeps(t))

	status, body, headers := get(t, app, "/v1/nearest?points=0,0,5,4.9")
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}

	var res domain.NearestHazards
	if err := json.Unmarshal(body, &res); err != nil {
		t.Fatal(err)
	}
	if len(res.Pothole) != 2 || len(res.Speedbreaker) != 2 {
		t.Fatalf("expected one result per point, got %+v", res)
	}
	if res.Pothole[0].Location != (domain.Point{Lat: 0, Lon: 1}) || res.Pothole[0].Distance != 1 {
		t.Errorf("unexpected nearest pothole to origin: %+v", res.Pothole[0])
	}
	if res.Pothole[1].Location != (domain.Point{Lat: 5, Lon: 5}) {
		t.Errorf("unexpected nearest pothole to (5,4.9): %+v", res.Pothole[1])
	}
	if res.Speedbreaker[0].Location != (domain.Point{Lat: 1, Lon: 1}) {
		t.Errorf("expected (1,1) closer than (0,2), got %+v", res.Speedbreaker[0])
	}
	if math.Abs(res.Speedbreaker[0].Distance-math.Sqrt2) > 1e-12 {
		t.Errorf("expected distance sqrt(2), got %v", res.Speedbreaker[0].Distance)
	}
	if headers["Cache-Control"] != "no-store" {
		t.Errorf("expected no-store, got %q", headers["Cache-Control"])
	}
}

func TestNearest_MissingPoints(t *testing.T) {
	app := setupApp(makeDeps(t))

	status, body, _ := get(t, app, "/v1/nearest")
	if status != 400 {
		t.Fatalf("expected 400, got %d", status)
	}
	apiErr := decodeError(t, body)
	if apiErr.Code != "bad_request" {
		t.Errorf("expected bad_request, got %s", apiErr.Code)
	}
	if apiErr.RequestID == "" {
		t.Error("expected request_id in error body")
	}
}

func TestNearest_InvalidInput(t *testing.T) {
	app := setupApp(makeDeps(t))

	for _, points := range []string{"1,2,3", "91,0", "a,b", "1,,2,3"} {
		status, body, _ := get(t, app, "/v1/nearest?points="+url.QueryEscape(points))
		if status != 400 {
			t.Errorf("%q: expected 400, got %d", points, status)
			continue
		}
		if code := decodeError(t, body).Code; code != "bad_request" {
			t.Errorf("%q: expected bad_request, got %s", points, code)
		}
	}
}

func TestNearest_EmptyCategory(t *testing.T) {
	app := setupApp(makeDeps(t, withStore(seededStore(t, fixturePotholes, nil))))

	status, body, _ := get(t, app, "/v1/nearest?points=0,0")
	if status != 404 {
		t.Fatalf("expected 404, got %d", status)
	}
	if code := decodeError(t, body).Code; code != "no_hazards" {
		t.Errorf("expected no_hazards, got %s", code)
	}
}

func TestNearest_StoreError(t *testing.T) {
	app := setupApp(makeDeps(t, withStore(failingStore{err: errors.New("connection refused")})))

	status, body, headers := get(t, app, "/v1/nearest?points=0,0")
	if status != 502 {
		t.Fatalf("expected 502, got %d", status)
	}
	if code := decodeError(t, body).Code; code != "store_error" {
		t.Errorf("expected store_error, got %s", code)
	}
	if headers["Cache-Control"] != "no-store" {
		t.Errorf("errors must not be cached, got %q", headers["Cache-Control"])
	}
}

// ---- Route ----

func TestRoute_Points(t *testing.T) {
	app := setupApp(makeDeps(t))

	status, body, _ := get(t, app, "/v1/route?points=0,0,0,4")
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}

	var res domain.RouteHazards
	if err := json.Unmarshal(body, &res); err != nil {
		t.Fatal(err)
	}
	wantP := []domain.Point{{Lat: 0, Lon: 1}, {Lat: 0, Lon: 3}}
	if fmt.Sprint(res.Pothole) != fmt.Sprint(wantP) {
		t.Errorf("expected potholes %v, got %v", wantP, res.Pothole)
	}
	if len(res.Speedbreaker) != 1 || res.Speedbreaker[0] != (domain.Point{Lat: 0, Lon: 2}) {
		t.Errorf("expected speedbreaker (0,2), got %v", res.Speedbreaker)
	}
}

func TestRoute_Polyline(t *testing.T) {
	app := setupApp(makeDeps(t))

	enc := geospatial.EncodePolyline([]domain.Point{{Lat: 0, Lon: 0}, {Lat: 0, Lon: 4}})
	status, body, _ := get(t, app, "/v1/route?polyline="+url.QueryEscape(enc))
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}

	var res domain.RouteHazards
	json.Unmarshal(body, &res)
	if len(res.Pothole) != 2 || len(res.Speedbreaker) != 1 {
		t.Errorf("expected 2 potholes and 1 speedbreaker, got %+v", res)
	}
}

func TestRoute_NoHazardsOnRouteIsEmptyArray(t *testing.T) {
	app := setupApp(makeDeps(t))

	status, body, _ := get(t, app, "/v1/route?points=-10,-10,-10,-9")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	if !strings.Contains(string(body), `"pothole":[]`) || !strings.Contains(string(body), `"speedbreaker":[]`) {
		t.Errorf("expected empty arrays, got %s", body)
	}
}

func TestRoute_Errors(t *testing.T) {
	app := setupApp(makeDeps(t))

	tests := []struct {
		target string
		status int
	}{
		{"/v1/route", 400},
		{"/v1/route?points=0,0", 400},
		{"/v1/route?points=0,0,0", 400},
		{"/v1/route?polyline=" + url.QueryEscape("_p~iF~ps|U_"), 400},
	}
	for _, tt := range tests {
		if status, _, _ := get(t, app, tt.target); status != tt.status {
			t.Errorf("%s: expected %d, got %d", tt.target, tt.status, status)
		}
	}
}

func TestRouteGeoJSON(t *testing.T) {
	app := setupApp(makeDeps(t))

	status, body, _ := get(t, app, "/v1/route/geojson?points=0,0,0,4")
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}

	var fc struct {
		Features []struct {
			Geometry struct {
				Type string `json:"type"`
			} `json:"geometry"`
			Properties map[string]string `json:"properties"`
		} `json:"features"`
	}
	if err := json.Unmarshal(body, &fc); err != nil {
		t.Fatal(err)
	}
	if len(fc.Features) != 4 {
		t.Fatalf("expected route + 3 hazards, got %d features", len(fc.Features))
	}
	if fc.Features[0].Geometry.Type != "LineString" || fc.Features[0].Properties["kind"] != "route" {
		t.Errorf("expected route line first, got %+v", fc.Features[0])
	}
	if fc.Features[3].Properties["category"] != "speedbreaker" {
		t.Errorf("expected speedbreaker last, got %+v", fc.Features[3])
	}
}

// ---- Legacy endpoints ----

func TestLegacyPoints(t *testing.T) {
	app := setupApp(makeDeps(t))

	status, body, headers := get(t, app, "/get_points/Pothole")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}

	var res struct {
		Points [][2]float64 `json:"Points"`
	}
	if err := json.Unmarshal(body, &res); err != nil {
		t.Fatal(err)
	}
	if len(res.Points) != 3 || res.Points[0] != [2]float64{0, 1} {
		t.Errorf("unexpected points %v", res.Points)
	}
	if headers["Deprecation"] != "true" {
		t.Errorf("expected Deprecation header, got %q", headers["Deprecation"])
	}
	if !strings.Contains(headers["Link"], "/v1/hazards/") {
		t.Errorf("expected successor link, got %q", headers["Link"])
	}
}

func TestLegacyPoints_InvalidType(t *testing.T) {
	app := setupApp(makeDeps(t))

	status, body, _ := get(t, app, "/get_points/Tree")
	if status != 400 {
		t.Fatalf("expected 400, got %d", status)
	}
	if msg := decodeError(t, body).Message; msg != "Invalid type of points requested" {
		t.Errorf("unexpected message %q", msg)
	}
}

func TestLegacyNearest(t *testing.T) {
	app := setupApp(makeDeps(t))

	status, body, _ := get(t, app, "/get_nearest_neighbor/0,0")
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}

	var res struct {
		PDist []float64    `json:"p_dist"`
		PLoc  [][2]float64 `json:"p_loc"`
		SDist []float64    `json:"s_dist"`
		SLoc  [][2]float64 `json:"s_loc"`
	}
	if err := json.Unmarshal(body, &res); err != nil {
		t.Fatal(err)
	}
	if len(res.PDist) != 1 || res.PDist[0] != 1 || res.PLoc[0] != [2]float64{0, 1} {
		t.Errorf("unexpected pothole result %+v", res)
	}
	if len(res.SLoc) != 1 || res.SLoc[0] != [2]float64{1, 1} {
		t.Errorf("unexpected speedbreaker result %+v", res)
	}
}

func TestLegacyIntersection(t *testing.T) {
	app := setupApp(makeDeps(t))

	status, body, headers := get(t, app, "/get_intersection/0,0,0,4")
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}

	var res map[string][][2]float64
	if err := json.Unmarshal(body, &res); err != nil {
		t.Fatal(err)
	}
	if got := res["Number of potholes"]; len(got) != 2 || got[0] != [2]float64{0, 1} || got[1] != [2]float64{0, 3} {
		t.Errorf("unexpected potholes %v", got)
	}
	if got := res["Number of speedbreakers:"]; len(got) != 1 || got[0] != [2]float64{0, 2} {
		t.Errorf("unexpected speedbreakers %v", got)
	}
	if headers["Sunset"] == "" {
		t.Error("expected Sunset header")
	}
}

func TestLegacyIntersection_InvalidInput(t *testing.T) {
	app := setupApp(makeDeps(t))

	status, _, _ := get(t, app, "/get_intersection/0,0,abc,4")
	if status != 400 {
		t.Fatalf("expected 400, got %d", status)
	}
}

// ---- GraphQL ----

func TestGraphQL_NearestHazards(t *testing.T) {
	app := setupApp(makeDeps(t))

	payload := `{"query":"{ nearestHazards(points: \"0,0\") { pothole { distance location { lat lon } } } }"}`
	req := httptest.NewRequest("POST", "/graphql", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Data struct {
			NearestHazards struct {
				Pothole []struct {
					Distance float64      `json:"distance"`
					Location domain.Point `json:"location"`
				} `json:"pothole"`
			} `json:"nearestHazards"`
		} `json:"data"`
		Errors []interface{} `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if len(result.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	got := result.Data.NearestHazards.Pothole
	if len(got) != 1 || got[0].Location != (domain.Point{Lat: 0, Lon: 1}) || got[0].Distance != 1 {
		t.Errorf("unexpected result %+v", got)
	}
}

func TestGraphQL_InvalidPointsReportsError(t *testing.T) {
	app := setupApp(makeDeps(t))

	payload := `{"query":"{ routeHazards(points: \"0,0\") { pothole { lat } } }"}`
	req := httptest.NewRequest("POST", "/graphql", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)

	var result struct {
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if len(result.Errors) == 0 {
		t.Fatal("expected a GraphQL error for a one-point route")
	}
}

func TestGraphQL_MissingQuery(t *testing.T) {
	app := setupApp(makeDeps(t))

	req := httptest.NewRequest("POST", "/graphql", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

// ---- Health, readiness, middleware ----

func TestHealth_Returns200(t *testing.T) {
	app := setupApp(makeDeps(t))

	status, body, _ := get(t, app, "/v1/health")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}

	var result map[string]interface{}
	json.Unmarshal(body, &result)
	if result["status"] != "healthy" {
		t.Errorf("expected healthy status, got %v", result["status"])
	}
}

func TestReady_MemoryStore(t *testing.T) {
	app := setupApp(makeDeps(t))

	status, body, _ := get(t, app, "/v1/ready")
	if status != 200 {
		t.Fatalf("expected 200, got %d: %s", status, body)
	}

	var result struct {
		Driver string            `json:"driver"`
		Checks map[string]string `json:"checks"`
	}
	json.Unmarshal(body, &result)
	if result.Driver != "memory" || result.Checks["store"] != "ok" {
		t.Errorf("unexpected readiness %+v", result)
	}
}

func TestReady_NoStore(t *testing.T) {
	app := setupApp(makeDeps(t, func(d *handler.Dependencies) { d.Store = nil }))

	if status, _, _ := get(t, app, "/v1/ready"); status != 503 {
		t.Fatalf("expected 503, got %d", status)
	}
}

func TestAPIVersionHeader(t *testing.T) {
	app := setupApp(makeDeps(t))

	status, _, headers := get(t, app, "/v1/health")
	if status != 200 {
		t.Fatalf("expected 200, got %d", status)
	}
	if v := headers["X-Api-Version"]; v != "1.0.0" {
		t.Errorf("expected X-API-Version 1.0.0, got %q", v)
	}
}

func TestETag_NotModified(t *testing.T) {
	app := setupApp(makeDeps(t))

	_, _, headers := get(t, app, "/v1/hazards/pothole")
	etag := headers["Etag"]
	if etag == "" {
		t.Fatal("expected ETag on hazard listing")
	}

	req := httptest.NewRequest("GET", "/v1/hazards/pothole", nil)
	req.Header.Set("If-None-Match", etag)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 304 {
		t.Fatalf("expected 304, got %d", resp.StatusCode)
	}
}

func TestRateLimit(t *testing.T) {
	app := setupApp(makeDeps(t, func(d *handler.Dependencies) { d.RateLimit = 2 }))

	for i := 0; i < 2; i++ {
		if status, _, _ := get(t, app, "/v1/hazards/pothole"); status != 200 {
			t.Fatalf("request %d: expected 200, got %d", i, status)
		}
	}
	status, body, _ := get(t, app, "/v1/hazards/pothole")
	if status != 429 {
		t.Fatalf("expected 429, got %d", status)
	}
	if code := decodeError(t, body).Code; code != "rate_limited" {
		t.Errorf("expected rate_limited, got %s", code)
	}

	// probes are exempt
	if status, _, _ := get(t, app, "/v1/health"); status != 200 {
		t.Errorf("expected health to bypass the limiter, got %d", status)
	}
}

func TestWebSocket_RequiresUpgrade(t *testing.T) {
	app := setupApp(makeDeps(t))

	if status, _, _ := get(t, app, "/ws/route"); status != fiber.StatusUpgradeRequired {
		t.Fatalf("expected 426, got %d", status)
	}
}

// TestAccessLogMiddleware verifies structured access logging is emitted.
func TestAccessLogMiddleware(t *testing.T) {
	app := fiber.New()

	app.Use(handler.AccessLogMiddleware())

	app.Get("/test", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
	})

	req := httptest.NewRequest("GET", "/test?points=1,2", nil)
	req.Header.Set("X-Request-ID", "test-req-123")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "ok") {
		t.Errorf("expected response body to contain 'ok', got %s", string(body))
	}
}
