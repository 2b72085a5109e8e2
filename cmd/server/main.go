// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/bcrescitelli/stir-the-pot-sub000/internal/auth"
	"github.com/bcrescitelli/stir-the-pot-sub000/internal/cache"
	"github.com/bcrescitelli/stir-the-pot-sub000/internal/config"
	"github.com/bcrescitelli/stir-the-pot-sub000/internal/database"
	"github.com/bcrescitelli/stir-the-pot-sub000/internal/handlers"
	"github.com/bcrescitelli/stir-the-pot-sub000/internal/models"
	"github.com/bcrescitelli/stir-the-pot-sub000/internal/session"
	"github.com/bcrescitelli/stir-the-pot-sub000/internal/store"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/joho/godotenv/autoload"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"
)

const releaseVersion = "0.1.0"

func main() {
	cfg := &config.Config{}
	cobra.CheckErr(newCmd(cfg).Execute())
}

func newCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "stir-the-pot",
		Short:   "Room server for the Stir the Pot party game.",
		Args:    cobra.NoArgs,
		Version: releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}

	config.RegisterServerFlags(cmd.Flags(), cfg)
	config.Bind(cmd.Flags())

	cmd.AddCommand(&cobra.Command{
		Use:   "hash-password <password>",
		Short: "Print the argon2id hash to use as --admin-password-hash.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := auth.CreateHash(args[0], auth.DefaultParams)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetVersionTemplate("stir-the-pot v{{.Version}}\n")
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger := logrus.New()
	logger.SetLevel(cfg.Level())
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if cfg.SigningKey != "" {
		if err := auth.InitFromPath(cfg.SigningKey, cfg.TokenTTL); err != nil {
			return err
		}
	} else if err := auth.Init(cfg.TokenTTL); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	checks := map[string]handlers.HealthCheck{}

	var rdb *redis.Client
	if cfg.UsesRedis() {
		var err error
		rdb, err = cache.ConnectRedis(cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			return err
		}
		defer rdb.Close()
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		logger.WithField("addr", cfg.RedisAddr).Info("connected to redis")
	}

	var pool *pgxpool.Pool
	if cfg.UsesPostgres() {
		if cfg.Migrate {
			if err := database.Migrate(cfg.DatabaseURL); err != nil {
				return err
			}
		}
		var err error
		pool, err = database.ConnectDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()
		checks["postgres"] = pool.Ping
		logger.Info("connected to postgres")
	}

	var st store.Store
	switch cfg.Store {
	case config.StoreRedis:
		st = store.NewRedisStore(rdb, cfg.RoomTTL)
	case config.StorePostgres:
		st = store.NewPostgresStore(pool)
	default:
		st = store.NewMemoryStore()
	}
	defer st.Close()

	var pub session.Publisher
	if cfg.PublishEvents {
		pub = cache.NewQueue(rdb, cfg.QueueName)
	}

	opts := session.Options{
		TickInterval: cfg.TickInterval,
		IdleTimeout:  cfg.IdleTimeout,
	}
	if cfg.RecordResults {
		opts.OnGameOver = func(room *models.Room) {
			rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := database.RecordGameResults(rctx, pool, room); err != nil {
				logger.WithError(err).WithField("room", room.Code).Error("record game results")
				return
			}
			logger.WithField("room", room.Code).Info("game results recorded")
		}
	}

	mgr := session.NewManager(st, pub, logger, opts)
	defer mgr.Close()
	go mgr.Run(ctx, time.Minute)

	rs := handlers.NewRoomServer(mgr, logger)
	rs.PublicURL = cfg.PublicURL
	rs.AdminUser = cfg.AdminUser
	rs.AdminPasswordHash = cfg.AdminPasswordHash
	rs.WSRate = rate.Limit(cfg.WSRate)
	rs.WSBurst = cfg.WSBurst
	rs.Checks = checks

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.Bind, strconv.Itoa(cfg.Port)),
		Handler:           rs.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.WithField("store", cfg.Store).Infof("Running on %s", srv.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server exited: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
