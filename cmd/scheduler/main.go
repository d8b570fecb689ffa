package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-pkgz/lgr"

	"github.com/agalitsyn/artist-scheduler/internal/schedule"
	"github.com/agalitsyn/artist-scheduler/internal/seed"
	"github.com/agalitsyn/artist-scheduler/internal/storage/sqlite"
	"github.com/agalitsyn/artist-scheduler/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := ParseFlags()
	setupLog(cfg.Debug)

	if cfg.Debug {
		lgr.Printf("[DEBUG] running with config")
		fmt.Fprintln(os.Stdout, cfg.String())
	}

	db, err := sqlite.Open(cfg.DB.Path)
	if err != nil {
		lgr.Fatalf("[ERROR] could not open database: %v", err)
	}
	defer db.Close()

	blobs := sqlite.NewBlobStorage(db)
	if cfg.Command == "reset" {
		if err := blobs.RemoveBlob(ctx, cfg.StorageKey); err != nil {
			lgr.Fatalf("[ERROR] %v", err)
		}
		lgr.Printf("[INFO] stored tasks under %q removed", cfg.StorageKey)
		return
	}

	logger := lgr.Default()
	sched := schedule.New(
		store.New(blobs, cfg.StorageKey, logger),
		schedule.WithLogger(logger),
	)

	seeds := seed.Source(cfg.Seed, &http.Client{Timeout: cfg.SeedTimeout})
	if err := sched.Hydrate(ctx, seeds); err != nil {
		fmt.Fprintf(os.Stderr, "❌ could not load schedule data: %v\n", err)
		db.Close()
		os.Exit(1)
	}

	if err := run(ctx, cfg, sched, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		db.Close()
		os.Exit(1)
	}
}

func setupLog(debug bool) {
	opts := []lgr.Option{lgr.Msec, lgr.LevelBraces}
	if debug {
		opts = append(opts, lgr.Debug, lgr.CallerFunc)
	}
	lgr.Setup(opts...)
	lgr.SetupStdLogger(opts...)
}
