package firebase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/raasta/internal/core/domain"
	"github.com/samirrijal/raasta/internal/pkg/telemetry"
)

// Store implements ports.HazardStore over the Firebase Realtime Database REST
// API. Every category lives under /<category>-locations as a collection of
// {"latitude": .., "longitude": ..} records keyed by push ID.
type Store struct {
	baseURL   string
	authToken string
	timeout   time.Duration
	client    *fasthttp.Client
}

// New creates a Store for the database at baseURL. authToken is sent as the
// ?auth= parameter when set.
func New(baseURL, authToken string, timeout time.Duration) *Store {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Store{
		baseURL:   strings.TrimRight(baseURL, "/"),
		authToken: authToken,
		timeout:   timeout,
		client: &fasthttp.Client{
			Name:                "raasta",
			MaxConnsPerHost:     32,
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
			MaxIdleConnDuration: time.Minute,
		},
	}
}

// Path returns the database node holding a category.
func Path(c domain.HazardCategory) string {
	return "/" + string(c) + "-locations"
}

func (s *Store) nodeURL(c domain.HazardCategory) string {
	u := s.baseURL + Path(c) + ".json"
	if s.authToken != "" {
		u += "?auth=" + url.QueryEscape(s.authToken)
	}
	return u
}

// ListByCategory fetches every hazard of a category.
func (s *Store) ListByCategory(ctx context.Context, c domain.HazardCategory) ([]domain.Point, error) {
	_, span := telemetry.Tracer().Start(ctx, telemetry.SpanFirebaseGet,
		trace.WithAttributes(attribute.String("path", Path(c))))
	defer span.End()

	body, err := s.get(ctx, c)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	pts, err := decodeLocations(body)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("firebase decode %s: %w", Path(c), err)
	}
	return pts, nil
}

// Ping fetches the shallow root so readiness reflects database reachability.
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.do(ctx, s.baseURL+"/.json?shallow=true"+s.authParam("&"))
	return err
}

func (s *Store) authParam(sep string) string {
	if s.authToken == "" {
		return ""
	}
	return sep + "auth=" + url.QueryEscape(s.authToken)
}

func (s *Store) get(ctx context.Context, c domain.HazardCategory) ([]byte, error) {
	body, err := s.do(ctx, s.nodeURL(c))
	if err != nil {
		return nil, fmt.Errorf("firebase get %s: %w", Path(c), err)
	}
	return body, nil
}

func (s *Store) do(ctx context.Context, uri string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(uri)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")

	deadline := time.Now().Add(s.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := s.client.DoDeadline(req, resp, deadline); err != nil {
		return nil, err
	}
	if code := resp.StatusCode(); code != fasthttp.StatusOK {
		return nil, fmt.Errorf("HTTP %d", code)
	}

	// resp is released on return
	return append([]byte(nil), resp.Body()...), nil
}

// location is one hazard record. Coordinates written by older clients are
// sometimes strings.
type location struct {
	Latitude  *coord `json:"latitude"`
	Longitude *coord `json:"longitude"`
}

type coord float64

func (c *coord) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return fmt.Errorf("coordinate %q: %w", s, err)
		}
		*c = coord(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*c = coord(f)
	return nil
}

// decodeLocations accepts the two shapes the database returns for a node: an
// object keyed by push ID, or an array (with null holes) when keys are
// numeric. A missing node decodes as null.
func decodeLocations(body []byte) ([]domain.Point, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return []domain.Point{}, nil
	}

	var records []*location
	var keys []string
	switch body[0] {
	case '[':
		if err := json.Unmarshal(body, &records); err != nil {
			return nil, err
		}
		keys = make([]string, len(records))
		for i := range records {
			keys[i] = strconv.Itoa(i)
		}
	case '{':
		var byKey map[string]*location
		if err := json.Unmarshal(body, &byKey); err != nil {
			return nil, err
		}
		// push IDs sort chronologically
		keys = make([]string, 0, len(byKey))
		for k := range byKey {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		records = make([]*location, len(keys))
		for i, k := range keys {
			records[i] = byKey[k]
		}
	default:
		return nil, fmt.Errorf("unexpected payload starting with %q", body[0])
	}

	pts := make([]domain.Point, 0, len(records))
	for i, r := range records {
		if r == nil {
			continue
		}
		if r.Latitude == nil || r.Longitude == nil {
			return nil, fmt.Errorf("record %s: missing latitude or longitude", keys[i])
		}
		p := domain.Point{Lat: float64(*r.Latitude), Lon: float64(*r.Longitude)}
		if !p.Valid() {
			return nil, fmt.Errorf("record %s: coordinate out of range", keys[i])
		}
		pts = append(pts, p)
	}
	return pts, nil
}
