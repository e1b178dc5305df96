package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/tucnak/climax"

	"github.com/aeternum-guides/nwdb/internal/cache"
	"github.com/aeternum-guides/nwdb/internal/config"
	"github.com/aeternum-guides/nwdb/internal/logger"
	"github.com/aeternum-guides/nwdb/internal/nwdb"
	"github.com/aeternum-guides/nwdb/internal/objectives"
	"github.com/aeternum-guides/nwdb/internal/output"
	"github.com/aeternum-guides/nwdb/internal/server"
)

// app holds everything a command needs, built from flags and config
type app struct {
	config     *config.Config
	logger     *logrus.Logger
	cache      cache.Cache
	client     *nwdb.Client
	objectives *objectives.Service
	out        io.Writer
	pretty     bool
	closers    []func() error
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warnf("Cleanup failed: %v", err)
		}
	}
}

// setup loads configuration, applies flag overrides and wires the services
func setup(ctx climax.Context) (*app, error) {
	configPath, _ := ctx.Get("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if provider, ok := ctx.Get("cache"); ok && provider != "" {
		cfg.Cache.Provider = provider
	}
	if listen, ok := ctx.Get("listen"); ok && listen != "" {
		cfg.Server.ListenAddr = listen
	}
	if ctx.Is("verbose") {
		cfg.Verbose = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := logger.New(cfg.Verbose)
	if cfg.Verbose {
		log.Debugf("Verbose logging enabled")
		log.Debugf("Using %s cache against %s", cfg.Cache.Provider, cfg.NWDB.BaseURL)
	}

	store, err := cache.New(cfg.CacheBackend(), log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}
	a := &app{
		config:  cfg,
		logger:  log,
		cache:   store,
		out:     os.Stdout,
		closers: []func() error{store.Close},
	}

	if err := store.CleanExpired(context.Background()); err != nil {
		log.Warnf("Failed to clean expired cache entries: %v", err)
	}

	a.client = nwdb.NewClient(cfg.ClientConfig(), store, log)
	a.closers = append(a.closers, a.client.Close)
	a.objectives = objectives.NewService(a.client, store, cfg.ObjectivesConfig(), log)

	if outputFile, ok := ctx.Get("output"); ok && outputFile != "" {
		file, err := os.Create(outputFile)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to create output file: %w", err)
		}
		a.out = file
		a.closers = append(a.closers, file.Close)
	}
	a.pretty = ctx.Is("pretty") || output.IsTerminal(a.out)

	return a, nil
}

// run sets up the app, runs fn and reports errors the way every command does
func run(ctx climax.Context, fn func(a *app) error) int {
	a, err := setup(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer a.Close()

	if err := fn(a); err != nil {
		var quiet errExitQuietly
		if !errors.As(err, &quiet) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

// errExitQuietly marks failures already rendered on stdout
type errExitQuietly struct{ err error }

func (e errExitQuietly) Error() string { return e.err.Error() }

func argAt(ctx climax.Context, i int) string {
	if i < len(ctx.Args) {
		return strings.TrimSpace(ctx.Args[i])
	}
	return ""
}

func flagLimit(ctx climax.Context) (int, error) {
	raw, ok := ctx.Get("limit")
	if !ok || strings.TrimSpace(raw) == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || limit < 0 {
		return 0, fmt.Errorf("--limit must be a non-negative integer, got %q", raw)
	}
	return limit, nil
}

func handleSearch(ctx climax.Context) int {
	query := strings.Join(ctx.Args, " ")
	if strings.TrimSpace(query) == "" {
		fmt.Fprintf(os.Stderr, "Error: a search query is required\n")
		return 1
	}
	limit, err := flagLimit(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	ranked := ctx.Is("ranked")

	return run(ctx, func(a *app) error {
		c := context.Background()
		var results []nwdb.SearchCandidate
		if ranked {
			results = a.client.SearchItemsRanked(c, query, limit)
		} else {
			results = a.client.SearchItems(c, query, limit)
		}
		return output.FormatJSON(output.BuildSearchReport(query, ranked, results), a.out, a.pretty)
	})
}

// printDetails writes the outcome; failures are written too and exit non-zero
func printDetails(a *app, entityType, entityID string) error {
	raw, err := a.client.GetEntityDetails(context.Background(), entityType, entityID)
	outcome := nwdb.OutcomeOf(raw, err)
	if fmtErr := output.FormatJSON(outcome, a.out, a.pretty); fmtErr != nil {
		return fmtErr
	}
	if outcome.Err != nil {
		return errExitQuietly{outcome.Err}
	}
	return nil
}

func handleEntity(ctx climax.Context) int {
	entityType, entityID := argAt(ctx, 0), argAt(ctx, 1)
	if entityType == "" || entityID == "" {
		fmt.Fprintf(os.Stderr, "Error: usage is entity <type> <id>\n")
		return 1
	}
	return runDetails(ctx, entityType, entityID)
}

func handleTypedEntity(entityType string) func(climax.Context) int {
	return func(ctx climax.Context) int {
		entityID := argAt(ctx, 0)
		if entityID == "" {
			fmt.Fprintf(os.Stderr, "Error: a %s id is required\n", entityType)
			return 1
		}
		return runDetails(ctx, entityType, entityID)
	}
}

func runDetails(ctx climax.Context, entityType, entityID string) int {
	return run(ctx, func(a *app) error {
		return printDetails(a, entityType, entityID)
	})
}

func handlePerks(ctx climax.Context) int {
	itemType := argAt(ctx, 0)
	if itemType == "" {
		fmt.Fprintf(os.Stderr, "Error: an item type is required\n")
		return 1
	}
	query := ""
	if len(ctx.Args) > 1 {
		query = strings.Join(ctx.Args[1:], " ")
	}
	limit, err := flagLimit(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	return run(ctx, func(a *app) error {
		perks := a.client.SearchPerksForItemType(context.Background(), itemType, query, limit)
		return output.FormatJSON(perks, a.out, a.pretty)
	})
}

func handlePerkItems(ctx climax.Context) int {
	perkID := argAt(ctx, 0)
	if perkID == "" {
		fmt.Fprintf(os.Stderr, "Error: a perk id is required\n")
		return 1
	}

	return run(ctx, func(a *app) error {
		summary, err := a.client.FetchItemsByPerkSummary(context.Background(), perkID)
		if err != nil {
			return err
		}
		if ctx.Is("json") {
			return output.FormatJSON(summary, a.out, a.pretty)
		}
		return output.FormatPerkItemsSummary(perkID, summary, a.out)
	})
}

func handleObjectives(ctx climax.Context) int {
	itemID := argAt(ctx, 0)
	if itemID == "" {
		fmt.Fprintf(os.Stderr, "Error: an item id is required\n")
		return 1
	}

	return run(ctx, func(a *app) error {
		sentences := a.objectives.BuildArtifactObjectives(context.Background(), itemID)
		if ctx.Is("json") {
			return output.FormatJSON(sentences, a.out, a.pretty)
		}
		return output.FormatObjectives(itemID, sentences, a.out)
	})
}

func handleServe(ctx climax.Context) int {
	return run(ctx, func(a *app) error {
		sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		srv := server.New(a.config.ServerConfig(), a.client, a.objectives, a.cache, a.logger)
		return srv.Run(sigCtx)
	})
}

func handleCache(ctx climax.Context) int {
	action := argAt(ctx, 0)
	if action == "" {
		action = "stats"
	}

	return run(ctx, func(a *app) error {
		return cacheAction(a, action, ctx.Is("json"))
	})
}

// cacheAction performs a maintenance action, then prints the cache stats
func cacheAction(a *app, action string, asJSON bool) error {
	c := context.Background()
	switch action {
	case "stats":
	case "clean":
		if err := a.cache.CleanExpired(c); err != nil {
			return fmt.Errorf("failed to clean cache: %w", err)
		}
	case "clear":
		if err := a.cache.Clear(c); err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}
	case "refresh":
		catalog, err := a.client.RefreshCatalog(c)
		if err != nil {
			return fmt.Errorf("failed to refresh catalog: %w", err)
		}
		a.logger.Infof("Catalog refreshed with %d items", len(catalog))
	default:
		return fmt.Errorf("unknown cache action %q (want stats, clean, clear or refresh)", action)
	}

	stats, err := a.cache.GetStats(c)
	if err != nil {
		return fmt.Errorf("failed to read cache stats: %w", err)
	}
	if asJSON {
		return output.FormatJSON(stats, a.out, a.pretty)
	}
	return output.FormatCacheStats(stats, a.out)
}
