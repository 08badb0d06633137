package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL,required"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	// Scheduler
	SyncEnabled        bool          `env:"SYNC_ENABLED" envDefault:"true"`
	SyncInterval       time.Duration `env:"SYNC_INTERVAL" envDefault:"1m"`
	MaxConcurrentSyncs int           `env:"MAX_CONCURRENT_SYNCS" envDefault:"4"`
	SyncRunRetention   time.Duration `env:"SYNC_RUN_RETENTION" envDefault:"720h"`

	// Per-run tuning
	SyncBatchSize    int           `env:"SYNC_BATCH_SIZE" envDefault:"100"`
	FullSyncLookback time.Duration `env:"FULL_SYNC_LOOKBACK" envDefault:"2160h"`
	SyncRetryBase    time.Duration `env:"SYNC_RETRY_BASE" envDefault:"2s"`
	SyncTimeout      time.Duration `env:"SYNC_TIMEOUT" envDefault:"10m"`
	IMAPDialTimeout  time.Duration `env:"IMAP_DIAL_TIMEOUT" envDefault:"30s"`

	// Secrets
	EncryptionKey      string        `env:"ENCRYPTION_KEY,required"`
	JWTSecret          string        `env:"JWT_SECRET,required"`
	JWTAccessExpiry    time.Duration `env:"JWT_ACCESS_EXPIRY" envDefault:"15m"`
	GoogleClientID     string        `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string        `env:"GOOGLE_CLIENT_SECRET"`
}

// Load reads configuration from the environment, with .env taken as a
// fallback source when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("unable to parse configuration: %w", err)
	}
	return cfg, nil
}
