// Command arenactl seeds the catalog, prints rankings rebuilt from the vote
// log, and drives simulated voting against a running arena.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/arena/internal/adapters/repository"
	"github.com/okian/arena/internal/config"
	"github.com/okian/arena/internal/domain/catalog"
	"github.com/okian/arena/internal/domain/rating"
	"github.com/okian/arena/internal/simulate"
	"github.com/okian/arena/pkg/logger"
)

var errUsage = errors.New("usage: arenactl <seed|rankings|simulate> [flags]")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		os.Stderr.WriteString("arenactl: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	// Logs go to stderr so stdout carries only command output.
	if err := logger.Init(logger.WithFormat(cfg.LogFormat), logger.WithWriter(os.Stderr)); err != nil {
		return err
	}
	_ = logger.SetLevelString(cfg.LogLevel)

	switch args[0] {
	case "seed":
		return seed(ctx, cfg, args[1:], out)
	case "rankings":
		return rankings(ctx, cfg, args[1:], out)
	case "simulate":
		return simulateCmd(ctx, args[1:], out)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}
}

// storeFlags binds -driver and -dsn, defaulting to the loaded config.
func storeFlags(fs *flag.FlagSet, cfg *config.Config) (*string, *string) {
	driver := fs.String("driver", cfg.DBDriver, "vote log driver: sqlite, pgx or memory")
	dsn := fs.String("dsn", cfg.DBDSN, "data source for the driver")
	return driver, dsn
}

func seed(ctx context.Context, cfg *config.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	fs.SetOutput(out)
	driver, dsn := storeFlags(fs, cfg)
	file := fs.String("file", cfg.CatalogFile, "YAML catalog; empty uses the built-in list")
	if err := fs.Parse(args); err != nil {
		return err
	}

	items, err := catalog.LoadSeed(*file)
	if err != nil {
		return err
	}
	// Reject the same bad input the service would.
	if _, err := catalog.New(items); err != nil {
		return err
	}

	store, err := repository.Open(ctx, *driver, *dsn)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.UpsertItems(ctx, items); err != nil {
		return err
	}
	logger.Get().Info(ctx, "catalog seeded", logger.Int("items", len(items)), logger.String("driver", *driver))
	_, err = fmt.Fprintf(out, "seeded %d items\n", len(items))
	return err
}

func rankings(ctx context.Context, cfg *config.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("rankings", flag.ContinueOnError)
	fs.SetOutput(out)
	driver, dsn := storeFlags(fs, cfg)
	limit := fs.Int("limit", 0, "show only the top n; 0 shows all")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := repository.Open(ctx, *driver, *dsn)
	if err != nil {
		return err
	}
	defer store.Close()

	items, err := store.ListItems(ctx)
	if err != nil {
		return err
	}
	names := make([]string, len(items))
	for i, it := range items {
		names[i] = it.Name
	}
	events, err := store.ReadAll(ctx)
	if err != nil {
		return err
	}

	e, err := rating.Rebuild(ctx, names, events,
		rating.WithKFactor(cfg.KFactor),
		rating.WithInitialRating(cfg.InitialRating),
	)
	if err != nil {
		return err
	}

	rows := e.Rankings()
	if *limit > 0 {
		rows = e.Top(*limit)
	}
	_, err = io.WriteString(out, renderRankings(rows, len(events)))
	return err
}

func simulateCmd(ctx context.Context, args []string, out io.Writer) error {
	cfg := simulate.DefaultConfig()
	fs := flag.NewFlagSet("simulate", flag.ContinueOnError)
	fs.SetOutput(out)
	fs.StringVar(&cfg.BaseURL, "url", cfg.BaseURL, "base URL of the arena")
	fs.IntVar(&cfg.Votes, "votes", cfg.Votes, "number of votes to submit")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "concurrent submitters")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "HTTP request timeout")
	fs.Int64Var(&cfg.Seed, "seed", cfg.Seed, "seed for strengths and outcomes")
	fs.Float64Var(&cfg.Spread, "spread", cfg.Spread, "rating distance between weakest and strongest")
	fs.Float64Var(&cfg.Resubmit, "resubmit", cfg.Resubmit, "fraction of votes sent twice")
	fs.Float64Var(&cfg.MinConcordance, "min-concordance", cfg.MinConcordance, "fail below this concordance; 0 disables")
	if err := fs.Parse(args); err != nil {
		return err
	}

	report, err := simulate.Run(ctx, cfg)
	if report != nil {
		if _, werr := io.WriteString(out, renderReport(report)); werr != nil && err == nil {
			err = werr
		}
	}
	return err
}
