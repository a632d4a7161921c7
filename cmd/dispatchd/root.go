package main

import (
	"context"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/viralclips/dispatch/config"
	"github.com/viralclips/dispatch/logging"
	redisstore "github.com/viralclips/dispatch/store/redis"
)

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "dispatchd",
		Short:         "Asynchronous job service for video downloads",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file path (YAML)")

	cmd.AddCommand(
		newServeCmd(opts),
		newJobCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "dispatchd %s (commit %s)\n", version, commit)
		},
	}
}

// loadConfig loads and validates the configuration.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*slog.Logger, error) {
	return logging.New(cfg.Logging)
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*redisstore.Store, error) {
	opts := []redisstore.Option{
		redisstore.WithLogger(logger),
		redisstore.WithTTL(cfg.Dispatch.JobTTL),
	}
	if cfg.Redis.KeyPrefix != "" {
		opts = append(opts, redisstore.WithKeyPrefix(cfg.Redis.KeyPrefix))
	}
	return redisstore.Open(ctx, &goredis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, opts...)
}
