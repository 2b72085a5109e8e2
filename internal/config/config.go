// Package config holds the settings shared by the server and historian
// binaries. Values come from flags, STP_* environment variables, or a .env
// file, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bcrescitelli/stir-the-pot-sub000/internal/auth"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const EnvPrefix = "STP"

// Store backends.
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

type Config struct {
	Bind      string
	Port      int
	PublicURL string
	LogLevel  string

	Store       string
	RedisAddr   string
	RedisDB     int
	RoomTTL     time.Duration
	DatabaseURL string
	Migrate     bool

	PublishEvents bool
	RecordResults bool
	QueueName     string

	TickInterval time.Duration
	IdleTimeout  time.Duration

	SigningKey string
	TokenTTL   time.Duration

	AdminUser         string
	AdminPasswordHash string

	WSRate  float64
	WSBurst int

	BatchSize  int
	FlushDelay time.Duration
}

// RegisterServerFlags declares the server flags on fs, writing into cfg.
func RegisterServerFlags(fs *pflag.FlagSet, cfg *Config) {
	normalize(fs)
	registerShared(fs, cfg)

	fs.StringVarP(&cfg.Bind, "bind", "b", "0.0.0.0", "address to bind to (env: STP_BIND)")
	fs.IntVarP(&cfg.Port, "port", "p", 8080, "port to listen on (env: STP_PORT)")
	fs.StringVar(&cfg.PublicURL, "public-url", "", "externally visible base URL used in join links (env: STP_PUBLIC_URL)")
	fs.StringVar(&cfg.Store, "store", StoreMemory, "room store backend: memory, redis or postgres (env: STP_STORE)")
	fs.DurationVar(&cfg.RoomTTL, "room-ttl", 24*time.Hour, "expiry of rooms in the redis store, 0 for none (env: STP_ROOM_TTL)")
	fs.BoolVar(&cfg.Migrate, "migrate", true, "apply database migrations on startup (env: STP_MIGRATE)")
	fs.BoolVar(&cfg.PublishEvents, "publish-events", false, "queue room events in redis for the historian (env: STP_PUBLISH_EVENTS)")
	fs.BoolVar(&cfg.RecordResults, "record-results", false, "write final standings to postgres (env: STP_RECORD_RESULTS)")
	fs.DurationVar(&cfg.TickInterval, "tick-interval", time.Second, "room clock period (env: STP_TICK_INTERVAL)")
	fs.DurationVar(&cfg.IdleTimeout, "idle-timeout", 30*time.Minute, "unload rooms idle this long, 0 to keep forever (env: STP_IDLE_TIMEOUT)")
	fs.StringVar(&cfg.SigningKey, "signing-key", "", "path to an ed25519 key or seed for participant tokens (env: STP_SIGNING_KEY)")
	fs.DurationVar(&cfg.TokenTTL, "token-ttl", 7*24*time.Hour, "participant token lifetime, 0 for no expiry (env: STP_TOKEN_TTL)")
	fs.StringVar(&cfg.AdminUser, "admin-user", "admin", "basic auth user for /admin (env: STP_ADMIN_USER)")
	fs.StringVar(&cfg.AdminPasswordHash, "admin-password-hash", "", "argon2id hash of the admin password, empty disables /admin (env: STP_ADMIN_PASSWORD_HASH)")
	fs.Float64Var(&cfg.WSRate, "ws-rate", 10, "intents per second allowed per websocket (env: STP_WS_RATE)")
	fs.IntVar(&cfg.WSBurst, "ws-burst", 20, "burst of intents allowed per websocket (env: STP_WS_BURST)")
}

// RegisterHistorianFlags declares the historian flags on fs, writing into cfg.
func RegisterHistorianFlags(fs *pflag.FlagSet, cfg *Config) {
	normalize(fs)
	registerShared(fs, cfg)

	fs.IntVar(&cfg.BatchSize, "batch-size", 20, "events per database write (env: STP_BATCH_SIZE)")
	fs.DurationVar(&cfg.FlushDelay, "flush-delay", 500*time.Millisecond, "maximum time an event waits before a write (env: STP_FLUSH_DELAY)")
	cfg.PublishEvents = true
	cfg.RecordResults = true
}

func registerShared(fs *pflag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.LogLevel, "log-level", "info", "logrus level (env: STP_LOG_LEVEL)")
	fs.StringVar(&cfg.RedisAddr, "redis-addr", "", "redis address host:port (env: STP_REDIS_ADDR)")
	fs.IntVar(&cfg.RedisDB, "redis-db", 0, "redis database number (env: STP_REDIS_DB)")
	fs.StringVar(&cfg.DatabaseURL, "database-url", "", "postgres connection URL (env: STP_DATABASE_URL)")
	fs.StringVar(&cfg.QueueName, "queue", "stirthepot_events", "redis list holding queued events (env: STP_QUEUE)")
}

func normalize(fs *pflag.FlagSet) {
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})
}

// Bind lets STP_* environment variables fill every flag not set on the
// command line.
func Bind(fs *pflag.FlagSet) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})
}

// Level returns the parsed log level.
func (c *Config) Level() logrus.Level {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

// Validate checks the server settings.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Port)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	switch c.Store {
	case StoreMemory:
	case StoreRedis:
		if c.RedisAddr == "" {
			return errors.New("--store=redis requires --redis-addr")
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			return errors.New("--store=postgres requires --database-url")
		}
	default:
		return fmt.Errorf("unknown store %q", c.Store)
	}
	if c.PublishEvents && c.RedisAddr == "" {
		return errors.New("--publish-events requires --redis-addr")
	}
	if c.RecordResults && c.DatabaseURL == "" {
		return errors.New("--record-results requires --database-url")
	}
	if c.TickInterval <= 0 {
		return errors.New("--tick-interval must be positive")
	}
	if c.WSRate <= 0 || c.WSBurst < 1 {
		return errors.New("--ws-rate and --ws-burst must be positive")
	}
	if c.AdminPasswordHash != "" {
		if _, _, _, err := auth.DecodeHash(c.AdminPasswordHash); err != nil {
			return fmt.Errorf("--admin-password-hash: %w", err)
		}
	}
	return nil
}

// ValidateHistorian checks the historian settings.
func (c *Config) ValidateHistorian() error {
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	if c.RedisAddr == "" || c.DatabaseURL == "" {
		return errors.New("the historian needs both --redis-addr and --database-url")
	}
	if c.BatchSize < 1 {
		return errors.New("--batch-size must be at least 1")
	}
	if c.FlushDelay <= 0 {
		return errors.New("--flush-delay must be positive")
	}
	return nil
}

// UsesRedis reports whether any server component needs a redis client.
func (c *Config) UsesRedis() bool {
	return c.Store == StoreRedis || c.PublishEvents
}

// UsesPostgres reports whether any server component needs a database pool.
func (c *Config) UsesPostgres() bool {
	return c.Store == StorePostgres || c.RecordResults
}
