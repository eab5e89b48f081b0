package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/samirrijal/raasta/internal/core/domain"
	"github.com/samirrijal/raasta/internal/core/ports"
	"github.com/samirrijal/raasta/internal/pkg/geospatial"
	"github.com/samirrijal/raasta/internal/pkg/logging"
	"github.com/samirrijal/raasta/internal/pkg/metrics"
	"github.com/samirrijal/raasta/internal/pkg/telemetry"
)

// Operation names, used as metric labels and event subjects.
const (
	OpNearest = "nearest"
	OpRoute   = "route"
)

// QueryOptions tunes HazardService. Zero values fall back to defaults.
type QueryOptions struct {
	Tolerance    float64                // betweenness tolerance in degrees
	Intersector  geospatial.Intersector // defaults to LinearIntersector
	MaxPoints    int                    // 0 means unlimited
	StoreName    string                 // metrics label for store reads
	ListCacheTTL int                    // seconds; 0 disables listing cache
}

// HazardService answers the nearest-hazard and route-hazard queries. Hazards
// are read fresh from the store on every query and indexed for that query
// only.
type HazardService struct {
	store     ports.HazardStore
	cache     ports.CacheService
	publisher ports.EventPublisher
	opts      QueryOptions
}

// NewHazardService creates a new HazardService. cache and publisher may be nil.
func NewHazardService(store ports.HazardStore, cache ports.CacheService, publisher ports.EventPublisher, opts QueryOptions) *HazardService {
	if opts.Tolerance <= 0 {
		opts.Tolerance = geospatial.DefaultTolerance
	}
	if opts.Intersector == nil {
		opts.Intersector = geospatial.LinearIntersector{}
	}
	if opts.StoreName == "" {
		opts.StoreName = "unknown"
	}
	return &HazardService{store: store, cache: cache, publisher: publisher, opts: opts}
}

// NearestNeighbors parses raw as a coordinate list and returns, for every
// category, the nearest hazard to each point in input order.
func (s *HazardService) NearestNeighbors(ctx context.Context, raw string) (*domain.NearestHazards, error) {
	pts, err := geospatial.ParseCoordinates(raw)
	if err != nil {
		metrics.QueryTotal.WithLabelValues(OpNearest, outcome(err)).Inc()
		return nil, err
	}
	return s.NearestNeighborsFromPoints(ctx, pts)
}

// NearestNeighborsFromPoints is NearestNeighbors for already validated points.
func (s *HazardService) NearestNeighborsFromPoints(ctx context.Context, pts []domain.Point) (_ *domain.NearestHazards, err error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanNearest,
		trace.WithAttributes(attribute.Int("points", len(pts))))
	start := time.Now()
	defer func() { observe(span, OpNearest, start, err) }()

	if len(pts) == 0 {
		return nil, &domain.InvalidInputError{Index: -1, Reason: "no points given"}
	}
	if err := s.checkLimit(len(pts)); err != nil {
		return nil, err
	}

	sets, err := s.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	out := &domain.NearestHazards{}
	matches := make(map[string]int, len(sets))
	for _, set := range sets {
		res, err := geospatial.BuildIndex(set).Query(pts)
		if err != nil {
			return nil, err
		}
		out.Set(set.Category, res)
		matches[string(set.Category)] = len(res)
	}

	logging.FromContext(ctx).Debug("nearest hazards resolved", "points", len(pts))
	s.publish(ctx, OpNearest, len(pts), matches, start)
	return out, nil
}

// RouteIntersections parses raw as the waypoints of a route and returns the
// hazards of every category lying on it.
func (s *HazardService) RouteIntersections(ctx context.Context, raw string) (*domain.RouteHazards, error) {
	pts, err := geospatial.ParseCoordinates(raw)
	if err != nil {
		metrics.QueryTotal.WithLabelValues(OpRoute, outcome(err)).Inc()
		return nil, err
	}
	return s.RouteIntersectionsFromPoints(ctx, pts)
}

// RouteIntersectionsFromPoints is RouteIntersections for already validated
// waypoints, such as a decoded polyline.
func (s *HazardService) RouteIntersectionsFromPoints(ctx context.Context, pts []domain.Point) (_ *domain.RouteHazards, err error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanRoute,
		trace.WithAttributes(attribute.Int("points", len(pts))))
	start := time.Now()
	defer func() { observe(span, OpRoute, start, err) }()

	route, err := geospatial.NewRoute(pts)
	if err != nil {
		return nil, err
	}
	if err := s.checkLimit(len(pts)); err != nil {
		return nil, err
	}

	sets, err := s.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	out := &domain.RouteHazards{}
	matches := make(map[string]int, len(sets))
	for _, set := range sets {
		if set.Len() == 0 {
			return nil, &domain.EmptyIndexError{Category: set.Category}
		}
		hits := s.opts.Intersector.Intersecting(route, set.Points, s.opts.Tolerance)
		if hits == nil {
			hits = []domain.Point{}
		}
		out.Set(set.Category, hits)
		matches[string(set.Category)] = len(hits)
		metrics.HazardsMatched.WithLabelValues(string(set.Category)).Add(float64(len(hits)))
	}

	logging.FromContext(ctx).Debug("route hazards resolved",
		"segments", route.Segments(),
		"potholes", len(out.Pothole),
		"speedbreakers", len(out.Speedbreaker),
	)
	s.publish(ctx, OpRoute, len(pts), matches, start)
	return out, nil
}

// ListHazards returns every hazard of one category. Listings may be served
// from the cache for ListCacheTTL seconds; queries never are.
func (s *HazardService) ListHazards(ctx context.Context, category domain.HazardCategory) ([]domain.Point, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanList,
		trace.WithAttributes(attribute.String("category", string(category))))
	defer span.End()

	cacheKey := "hazards:list:" + string(category)
	if s.cache != nil && s.opts.ListCacheTTL > 0 {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var pts []domain.Point
			if err := json.Unmarshal(data, &pts); err == nil {
				metrics.CacheHits.WithLabelValues("hazards_list").Inc()
				return pts, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("hazards_list").Inc()
	}

	pts, err := s.load(ctx, category)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if pts == nil {
		pts = []domain.Point{}
	}

	if s.cache != nil && s.opts.ListCacheTTL > 0 {
		if data, err := json.Marshal(pts); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, s.opts.ListCacheTTL)
		}
	}

	return pts, nil
}

func (s *HazardService) checkLimit(n int) error {
	if s.opts.MaxPoints > 0 && n > s.opts.MaxPoints {
		return &domain.InvalidInputError{
			Index:  -1,
			Reason: fmt.Sprintf("at most %d points per query, got %d", s.opts.MaxPoints, n),
		}
	}
	return nil
}

// loadAll reads every category concurrently. Sets come back in
// domain.Categories order; the first failed read cancels the others.
func (s *HazardService) loadAll(ctx context.Context) ([]domain.PointSet, error) {
	cats := domain.Categories()
	sets := make([]domain.PointSet, len(cats))

	g, gctx := errgroup.WithContext(ctx)
	for i, c := range cats {
		i, c := i, c
		g.Go(func() error {
			pts, err := s.load(gctx, c)
			if err != nil {
				return err
			}
			sets[i] = domain.PointSet{Category: c, Points: pts}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return sets, nil
}

func (s *HazardService) load(ctx context.Context, c domain.HazardCategory) ([]domain.Point, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanStoreRead,
		trace.WithAttributes(
			attribute.String("category", string(c)),
			attribute.String("driver", s.opts.StoreName),
		))
	defer span.End()

	start := time.Now()
	pts, err := s.store.ListByCategory(ctx, c)
	metrics.StoreReadDuration.WithLabelValues(s.opts.StoreName, string(c)).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.StoreErrors.WithLabelValues(s.opts.StoreName).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "store read failed")
		return nil, err
	}
	span.SetAttributes(attribute.Int("hazards", len(pts)))
	return pts, nil
}

func (s *HazardService) publish(ctx context.Context, op string, points int, matches map[string]int, start time.Time) {
	if s.publisher == nil {
		return
	}
	event := &domain.QueryEvent{
		Operation:  op,
		Points:     points,
		Matches:    matches,
		DurationMs: float64(time.Since(start).Microseconds()) / 1000,
		RequestID:  logging.RequestID(ctx),
		Time:       time.Now().UTC(),
	}
	if err := s.publisher.PublishQueryEvent(ctx, event); err != nil {
		logging.FromContext(ctx).Warn("publish query event", "operation", op, "error", err)
	}
}

func observe(span trace.Span, op string, start time.Time, err error) {
	metrics.ObserveQuery(op, outcome(err), time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome(err))
	}
	span.End()
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, domain.ErrEmptyIndex):
		return "empty_index"
	default:
		return "store_error"
	}
}
