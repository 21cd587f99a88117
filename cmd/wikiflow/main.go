package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/go-pkgz/lgr"
	"github.com/jessevdk/go-flags"

	"github.com/wikiflow/wikiflow/pkg/buffer"
	"github.com/wikiflow/wikiflow/pkg/cache"
	"github.com/wikiflow/wikiflow/pkg/config"
	"github.com/wikiflow/wikiflow/pkg/feed"
	"github.com/wikiflow/wikiflow/pkg/interactions"
	"github.com/wikiflow/wikiflow/pkg/recommend"
	"github.com/wikiflow/wikiflow/pkg/scheduler"
	"github.com/wikiflow/wikiflow/pkg/store"
	"github.com/wikiflow/wikiflow/pkg/wikipedia"
	"github.com/wikiflow/wikiflow/server"
)

// Opts with all CLI options
type Opts struct {
	Config string `short:"f" long:"config" env:"CONFIG" default:"config.yml" description:"config file path"`

	// Common options
	Debug   bool `long:"dbg" env:"DEBUG" description:"debug mode"`
	Version bool `short:"V" long:"version" description:"show version info"`
	NoColor bool `long:"no-color" env:"NO_COLOR" description:"disable color output"`
}

var revision = "unknown"

func main() {
	var opts Opts
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if opts.Version {
		fmt.Printf("Version: %s\nGolang: %s\n", revision, runtime.Version())
		os.Exit(0)
	}

	setupLog(opts.Debug)

	log.Printf("[INFO] starting wikiflow version %s", revision)

	ctx, cancel := context.WithCancel(context.Background())

	// handle termination signals
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		log.Print("[INFO] termination signal received")
		cancel()
	}()

	err := run(ctx, opts)
	cancel()

	if err != nil {
		log.Printf("[ERROR] wikiflow failed: %v", err)
		os.Exit(1)
	}

	log.Print("[INFO] shutdown complete")
}

// run wires the pipeline together and serves until the context is canceled
func run(ctx context.Context, opts Opts) error {
	cfg, err := config.Load(opts.Config)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	st, err := store.New(ctx, store.Config{
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Database.ConnMaxLifetime) * time.Second,
	})
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Printf("[WARN] store close error: %v", err)
		}
	}()

	tiered := cache.New(cache.Config{
		ArticleTTL:        cfg.Cache.ArticleTTL,
		CategoryTTL:       cfg.Cache.CategoryTTL,
		SummaryTTL:        cfg.Cache.SummaryTTL,
		ImageTTL:          cfg.Cache.ImageTTL,
		RecommendationTTL: cfg.Cache.RecommendationTTL,
		SweepInterval:     cfg.Cache.SweepInterval,
	}, cfg.Language, st)
	go tiered.Run(ctx)

	wiki := wikipediaClient(cfg)

	buf := buffer.NewManager(wiki, buffer.Config{
		Capacity:  cfg.Buffer.Capacity,
		LowWater:  cfg.Buffer.LowWater,
		FillBatch: cfg.Buffer.FillBatch,
	}, cfg.Language)

	model := recommend.NewModel()
	engine := recommend.NewEngine(wiki, tiered, model, recommend.Config{
		MaxResults:         cfg.Recommend.MaxResults,
		PerCategory:        cfg.Recommend.PerCategory,
		MinResults:         cfg.Recommend.MinResults,
		MaxErrors:          cfg.Recommend.MaxErrors,
		RecentInteractions: cfg.Recommend.RecentInteractions,
	})

	recorder := interactions.NewRecorder(st, model, interactions.Config{
		Debounce:    cfg.Interactions.Debounce,
		ViewSpacing: cfg.Interactions.ViewSpacing,
	})

	merger := feed.NewMerger(feed.Config{
		RecommendationInterval: cfg.Feed.RecommendationInterval,
		AdOffset:               cfg.Feed.AdOffset,
		AdInterval:             cfg.Feed.AdInterval,
	})

	sched := scheduler.NewScheduler(buf, tiered, engine, st, cfg.Language, scheduler.Config{
		RefreshInterval: cfg.Recommend.RefreshInterval,
		CleanupInterval: cfg.Interactions.CleanupInterval,
		RetentionAge:    cfg.Interactions.RetentionAge,
		PrefetchBatch:   cfg.Buffer.FillBatch,
	})
	sched.Start(ctx)
	defer sched.Stop()

	srv := server.New(server.Config{
		Listen:  cfg.Server.Listen,
		Timeout: cfg.Server.Timeout,
	}, sched, engine, merger, recorder, st, revision, opts.Debug)

	return srv.Run(ctx)
}

func wikipediaClient(cfg *config.Config) *wikipedia.Client {
	return wikipedia.New(wikipedia.Config{
		BaseURL:   cfg.Wikipedia.BaseURL,
		UserAgent: cfg.Wikipedia.UserAgent,
		Timeout:   cfg.Wikipedia.Timeout,
		Throttle:  cfg.Wikipedia.Throttle,
		Attempts:  cfg.Wikipedia.Attempts,
		BaseDelay: cfg.Wikipedia.BaseDelay,
	})
}

func setupLog(dbg bool, secs ...string) {
	logOpts := []lgr.Option{lgr.Msec, lgr.LevelBraces, lgr.StackTraceOnError}
	if dbg {
		logOpts = append(logOpts, lgr.Debug)
	}

	colorizer := lgr.Mapper{
		ErrorFunc:  func(s string) string { return color.New(color.FgHiRed).Sprint(s) },
		WarnFunc:   func(s string) string { return color.New(color.FgRed).Sprint(s) },
		InfoFunc:   func(s string) string { return color.New(color.FgYellow).Sprint(s) },
		DebugFunc:  func(s string) string { return color.New(color.FgWhite).Sprint(s) },
		CallerFunc: func(s string) string { return color.New(color.FgBlue).Sprint(s) },
		TimeFunc:   func(s string) string { return color.New(color.FgCyan).Sprint(s) },
	}
	logOpts = append(logOpts, lgr.Map(colorizer))
	if len(secs) > 0 {
		logOpts = append(logOpts, lgr.Secret(secs...))
	}
	lgr.SetupStdLogger(logOpts...)
	lgr.Setup(logOpts...)
}
