// cmd/historian drains queued room events from Redis into PostgreSQL.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/bcrescitelli/stir-the-pot-sub000/internal/cache"
	"github.com/bcrescitelli/stir-the-pot-sub000/internal/config"
	"github.com/bcrescitelli/stir-the-pot-sub000/internal/database"
	"github.com/bcrescitelli/stir-the-pot-sub000/internal/historian"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	cfg := &config.Config{}
	cmd := &cobra.Command{
		Use:   "historian",
		Short: "Persist queued room events to PostgreSQL.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.ValidateHistorian(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	config.RegisterHistorianFlags(cmd.Flags(), cfg)
	config.Bind(cmd.Flags())
	cmd.CompletionOptions.HiddenDefaultCmd = true

	cobra.CheckErr(cmd.Execute())
}

func run(ctx context.Context, cfg *config.Config) error {
	logger := logrus.New()
	logger.SetLevel(cfg.Level())
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := database.Migrate(cfg.DatabaseURL); err != nil {
		return err
	}
	pool, err := database.ConnectDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	rdb, err := cache.ConnectRedis(cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		return err
	}
	defer rdb.Close()

	hs := historian.NewService(
		cache.NewQueue(rdb, cfg.QueueName),
		&database.EventSink{Pool: pool},
		logger,
		cfg.BatchSize,
		cfg.FlushDelay,
	)
	hs.Run(ctx)
	return nil
}
