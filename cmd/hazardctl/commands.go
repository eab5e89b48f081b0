package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/samirrijal/raasta/internal/adapters/firebase"
	"github.com/samirrijal/raasta/internal/adapters/memory"
	natsadapter "github.com/samirrijal/raasta/internal/adapters/nats"
	"github.com/samirrijal/raasta/internal/adapters/postgres"
	"github.com/samirrijal/raasta/internal/adapters/valkey"
	"github.com/samirrijal/raasta/internal/core/domain"
	"github.com/samirrijal/raasta/internal/core/ports"
	"github.com/samirrijal/raasta/internal/core/usecases"
	"github.com/samirrijal/raasta/internal/pkg/config"
	"github.com/samirrijal/raasta/internal/pkg/geospatial"
)

// openStore opens the configured store. The returned func releases it.
func openStore(ctx context.Context, cfg *config.Config) (ports.HazardStore, func(), error) {
	switch cfg.Store.Driver {
	case config.DriverFirebase:
		return firebase.New(cfg.Firebase.URL, cfg.Firebase.AuthToken, time.Duration(cfg.Firebase.Timeout)*time.Second), func() {}, nil
	case config.DriverValkey:
		client, err := valkey.Connect(cfg.Valkey.Addr)
		if err != nil {
			return nil, nil, err
		}
		return valkey.NewHazardStore(client, cfg.Valkey.KeyPrefix), client.Close, nil
	case config.DriverPostgres:
		db, err := postgres.New(ctx, cfg.Database.DSN())
		if err != nil {
			return nil, nil, err
		}
		return postgres.NewHazardRepo(db), db.Close, nil
	case config.DriverMemory:
		mem, err := memory.LoadFile(cfg.Store.SeedFile)
		if err != nil {
			return nil, nil, err
		}
		return mem, func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}

func newService(ctx context.Context, cfg *config.Config) (*usecases.HazardService, func(), error) {
	store, closeFn, err := openStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	svc := usecases.NewHazardService(store, nil, nil, usecases.QueryOptions{
		Tolerance:   cfg.Query.Tolerance,
		Intersector: geospatial.NewIntersector(cfg.Query.Intersector),
		MaxPoints:   cfg.Query.MaxPoints,
		StoreName:   cfg.Store.Driver,
	})
	return svc, closeFn, nil
}

func printJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func cmdList(ctx context.Context, cfg *config.Config, category string, out io.Writer) error {
	c, err := domain.ParseCategory(category)
	if err != nil {
		return err
	}
	svc, closeFn, err := newService(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	points, err := svc.ListHazards(ctx, c)
	if err != nil {
		return err
	}
	return printJSON(out, points)
}

func cmdNearest(ctx context.Context, cfg *config.Config, raw string, out io.Writer) error {
	svc, closeFn, err := newService(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	res, err := svc.NearestNeighbors(ctx, raw)
	if err != nil {
		return err
	}
	return printJSON(out, res)
}

func cmdRoute(ctx context.Context, cfg *config.Config, raw, encoded string, out io.Writer) error {
	svc, closeFn, err := newService(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	var res *domain.RouteHazards
	if encoded != "" {
		pts, err := geospatial.ParsePolyline(encoded)
		if err != nil {
			return err
		}
		res, err = svc.RouteIntersectionsFromPoints(ctx, pts)
		if err != nil {
			return err
		}
	} else {
		res, err = svc.RouteIntersections(ctx, raw)
		if err != nil {
			return err
		}
	}
	return printJSON(out, res)
}

// cmdSeed copies the seed file into the configured store, replacing each
// category it names.
func cmdSeed(ctx context.Context, cfg *config.Config, out io.Writer) error {
	if cfg.Store.Driver == config.DriverMemory || cfg.Store.Driver == config.DriverFirebase {
		return fmt.Errorf("seed needs a writable store (valkey or postgres), got %q", cfg.Store.Driver)
	}

	seed, err := memory.LoadFile(cfg.Store.SeedFile)
	if err != nil {
		return err
	}

	store, closeFn, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	writer, ok := store.(ports.HazardWriter)
	if !ok {
		return fmt.Errorf("store %q is read-only", cfg.Store.Driver)
	}
	return seedStore(ctx, seed, writer, out)
}

func seedStore(ctx context.Context, seed ports.HazardStore, writer ports.HazardWriter, out io.Writer) error {
	for _, c := range domain.Categories() {
		points, err := seed.ListByCategory(ctx, c)
		if err != nil {
			return err
		}
		if err := writer.ReplaceCategory(ctx, c, points); err != nil {
			return fmt.Errorf("seed %s: %w", c, err)
		}
		fmt.Fprintf(out, "OK  %s: %d hazards\n", c, len(points))
	}
	return nil
}

// cmdWatch prints query events from JetStream until ctx is cancelled.
func cmdWatch(ctx context.Context, cfg *config.Config, durable string, out io.Writer) error {
	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
	if err != nil {
		return err
	}
	defer sub.Close()

	err = sub.SubscribeQueryEvents(ctx, durable, func(_ context.Context, ev *domain.QueryEvent) error {
		_, err := fmt.Fprintf(out, "%s %-7s points=%d matches=%v %.1fms %s\n",
			ev.Time.Format(time.RFC3339), ev.Operation, ev.Points, ev.Matches, ev.DurationMs, ev.RequestID)
		return err
	})
	if err != nil {
		return err
	}

	<-ctx.Done()
	return nil
}
