// Command hazardctl queries and seeds hazard stores from the shell.
//
//	hazardctl [flags] list <category>
//	hazardctl [flags] nearest <lat,lon,...>
//	hazardctl [flags] route <lat,lon,...>
//	hazardctl [flags] route --polyline <encoded>
//	hazardctl [flags] seed
//	hazardctl [flags] watch
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/samirrijal/raasta/internal/pkg/config"
	"github.com/samirrijal/raasta/internal/pkg/logging"
)

var errUsage = errors.New("usage: hazardctl [flags] <list|nearest|route|seed|watch> [args]")

type options struct {
	driver    string
	seedFile  string
	polyline  string
	durable   string
	logLevel  string
	intersect string
	tolerance float64
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		log.Fatalf("hazardctl: %v", err)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	var opts options
	fs := pflag.NewFlagSet("hazardctl", pflag.ContinueOnError)
	fs.StringVar(&opts.driver, "driver", "", "hazard store driver (firebase, valkey, postgres, memory); defaults to store.driver")
	fs.StringVar(&opts.seedFile, "seed-file", "", "YAML seed file for the memory driver and the seed command")
	fs.StringVar(&opts.polyline, "polyline", "", "route as an encoded polyline (route command)")
	fs.StringVar(&opts.durable, "durable", "", "durable consumer name (watch command)")
	fs.StringVar(&opts.logLevel, "log-level", "warn", "log level")
	fs.StringVar(&opts.intersect, "intersector", "", "linear or bounded; defaults to query.intersector")
	fs.Float64Var(&opts.tolerance, "tolerance", 0, "betweenness tolerance in degrees; defaults to query.tolerance")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errUsage
	}

	logging.Setup(opts.logLevel, "text")

	cfg, err := config.Load("raasta-hazardctl")
	if err != nil {
		return err
	}
	if opts.driver != "" {
		cfg.Store.Driver = opts.driver
	}
	if opts.seedFile != "" {
		cfg.Store.SeedFile = opts.seedFile
	}
	if opts.intersect != "" {
		cfg.Query.Intersector = opts.intersect
	}
	if opts.tolerance > 0 {
		cfg.Query.Tolerance = opts.tolerance
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "list":
		if len(rest) != 1 {
			return errUsage
		}
		return cmdList(ctx, cfg, rest[0], out)
	case "nearest":
		if len(rest) != 1 {
			return errUsage
		}
		return cmdNearest(ctx, cfg, rest[0], out)
	case "route":
		if opts.polyline == "" && len(rest) != 1 {
			return errUsage
		}
		raw := ""
		if len(rest) > 0 {
			raw = rest[0]
		}
		return cmdRoute(ctx, cfg, raw, opts.polyline, out)
	case "seed":
		return cmdSeed(ctx, cfg, out)
	case "watch":
		return cmdWatch(ctx, cfg, opts.durable, out)
	}
	return fmt.Errorf("unknown command %q: %w", cmd, errUsage)
}
