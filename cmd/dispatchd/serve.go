package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/viralclips/dispatch"
	"github.com/viralclips/dispatch/api"
	audithook "github.com/viralclips/dispatch/audit_hook"
	"github.com/viralclips/dispatch/config"
	"github.com/viralclips/dispatch/download"
	"github.com/viralclips/dispatch/engine"
	"github.com/viralclips/dispatch/job"
	"github.com/viralclips/dispatch/stream"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the worker pool",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open job store: %w", err)
	}
	started := false
	defer func() {
		if !started {
			_ = st.Close()
		}
	}()

	dl := download.New(cfg.Download, download.WithLogger(logger))
	b := job.NewRegistryBuilder()
	job.Register(b, dl.Definition())
	reg, err := b.Build()
	if err != nil {
		return err
	}

	d, err := dispatch.New(
		dispatch.WithStore(st),
		dispatch.WithConfig(cfg.Dispatch.Core()),
		dispatch.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	broker := stream.NewBroker(logger)
	engOpts := []engine.Option{
		engine.WithQueueConfig(cfg.QueueConfigs()...),
		engine.WithExtension(broker),
	}
	if cfg.Audit.Enabled {
		var auditOpts []audithook.Option
		if len(cfg.Audit.Actions) > 0 {
			auditOpts = append(auditOpts, audithook.WithActions(cfg.Audit.Actions...))
		}
		auditOpts = append(auditOpts, audithook.WithLogger(logger))
		engOpts = append(engOpts, engine.WithExtension(audithook.New(audithook.NewLogRecorder(logger), auditOpts...)))
	}
	eng, err := engine.Build(d, reg, engOpts...)
	if err != nil {
		return err
	}
	if err := eng.Start(ctx); err != nil {
		return err
	}
	// From here eng.Stop closes the store.
	started = true

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      api.New(eng, api.WithPreviewer(dl), api.WithEvents(broker), api.WithLogger(logger)).Handler(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	// Open event streams would otherwise hold Shutdown until its timeout.
	srv.RegisterOnShutdown(func() { _ = broker.OnShutdown(context.Background()) })

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server listening",
			slog.String("addr", cfg.HTTP.Addr),
			slog.Any("job_types", reg.Names()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		httpErr := srv.Shutdown(shutdownCtx)

		// The dispatcher bounds the drain with its own shutdown timeout.
		engErr := eng.Stop(context.WithoutCancel(ctx))
		return errors.Join(httpErr, engErr)
	})

	if err := g.Wait(); err != nil {
		logger.Error("dispatchd stopped with error", slog.String("error", err.Error()))
		return err
	}
	logger.Info("dispatchd stopped")
	return nil
}
