package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	BotToken string `envconfig:"BOT_TOKEN" required:"true"`

	PostgresDSN string `envconfig:"POSTGRES_DSN"`

	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB"`

	AdminIDs []int64 `envconfig:"ADMIN_IDS"`

	// Card details shown in the manual payment instructions.
	CardNumber string `envconfig:"CARD_NUMBER" default:"8600 0000 0000 0000"`
	CardHolder string `envconfig:"CARD_HOLDER" default:"Admin"`

	// Reaper cadence: ReapInterval between successful sweeps, ReapRetry
	// after a failed one.
	ReapInterval time.Duration `envconfig:"REAP_INTERVAL" default:"1h"`
	ReapRetry    time.Duration `envconfig:"REAP_RETRY" default:"5m"`

	// InviteTTL bounds how long a freshly issued single-use invite stays
	// redeemable, independent of the trial duration it grants.
	InviteTTL time.Duration `envconfig:"INVITE_TTL" default:"1h"`

	StateTTLHours int `envconfig:"STATE_TTL_HOURS" default:"24"`
}

// Load reads an optional .env file and then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}
