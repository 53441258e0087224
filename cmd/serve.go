package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/orcidhub/orcidhub/internal/cachemanager"
	"github.com/orcidhub/orcidhub/internal/flags"
	"github.com/orcidhub/orcidhub/internal/invite"
	"github.com/orcidhub/orcidhub/internal/log"
	"github.com/orcidhub/orcidhub/internal/pubsub"
	"github.com/orcidhub/orcidhub/internal/record"
	"github.com/orcidhub/orcidhub/internal/store"
	"github.com/orcidhub/orcidhub/internal/tracing"
	"github.com/orcidhub/orcidhub/internal/watcher"
	"github.com/orcidhub/orcidhub/internal/web"
)

const shutdownGrace = 30 * time.Second

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the record section web interface",
	Long: `Start the HTTP server listing and editing researchers' record sections.

The server shuts down gracefully on SIGINT or SIGTERM.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	cleanup, err := setupLogging(false)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg, err := registry()
	if err != nil {
		return err
	}
	db, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	provider, err := tracing.NewProvider(tracing.FromAppConfig(cfg.Tracing))
	if err != nil {
		return fmt.Errorf("starting tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			log.ErrorErr(log.CatTrace, "Tracing shutdown failed", err)
		}
	}()

	ff := featureFlags()
	listings := cachemanager.NewInMemoryCacheManager[store.SectionKey, []record.Record]("records", cfg.Cache.RecordTTL, time.Minute)
	records := store.NewCached(db.Records(reg, source()), listings, cfg.Cache.RecordTTL, ff.Enabled(flags.FlagRecordCache))

	flashCache := cachemanager.NewInMemoryCacheManager[web.SessionKey, []web.Flash]("flash", cfg.Cache.FlashTTL, time.Minute)
	handler, err := web.NewHandler(web.HandlerConfig{
		Registry: reg,
		Records:  records,
		Users:    db.Users(),
		Invites:  invite.NewDispatcher(db),
		Status:   db.Status,
		Organisation: web.Organisation{
			Name:     cfg.Organisation.Name,
			ClientID: cfg.Organisation.ClientID,
		},
		Flags:   ff,
		Flashes: web.NewFlashStore(flashCache, cfg.Cache.FlashTTL),
		Tracer:  provider.Tracer(),
	})
	if err != nil {
		return err
	}
	server, err := web.NewServer(web.ServerConfig{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Serving %s on %s\n", cfg.Organisation.Name, server.URL())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(gctx, shutdownGrace)
	})
	g.Go(func() error {
		records.Run(gctx, db.Events().Subscribe(gctx))
		return nil
	})
	if cfg.Database.WatchChanges && db.Path() != store.MemoryPath {
		w, err := watcher.New(watcher.DefaultConfig(db.Path()))
		if err != nil {
			return err
		}
		g.Go(func() error {
			// The watcher cannot tell this process's writes from another
			// writer's, so every burst flushes the listings.
			return w.Run(gctx, func() {
				db.Events().Publish(pubsub.FlushedEvent, store.RecordChange{})
			})
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info(log.CatHTTP, "Shut down")
	return nil
}
