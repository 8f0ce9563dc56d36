package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	// IngestSecret signs bearer tokens for the ingest API. Empty disables auth.
	IngestSecret string `env:"INGEST_SECRET"`

	Timezone       string        `env:"TIMEZONE,         default=Asia/Tashkent"`
	Workers        int           `env:"WORKERS,          default=8"`
	TurnTimeout    time.Duration `env:"TURN_TIMEOUT,     default=15s"`
	AllowTextPhone bool          `env:"ALLOW_TEXT_PHONE, default=false"`

	// StorageBackend selects the record store: "mongo" or "memory".
	StorageBackend string `env:"STORAGE_BACKEND, default=mongo"`

	Mongo     MongoConfig
	Redis     RedisConfig
	Messaging MessagingConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=attendance"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

// MessagingConfig names the Redis channels and stream shared with the chat
// transport.
type MessagingConfig struct {
	// GroupChatID is the broadcast destination. Empty disables broadcasts.
	GroupChatID      string `env:"GROUP_CHAT_ID"`
	BroadcastChannel string `env:"BROADCAST_CHANNEL, default=attendance:broadcast"`
	ReplyChannel     string `env:"REPLY_CHANNEL,     default=attendance:replies"`
	ActionStream     string `env:"ACTION_STREAM,     default=attendance:actions"`
	ActionGroup      string `env:"ACTION_GROUP,      default=attendance-bot"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	cfg, err := LoadFrom(envconfig.OsLookuper())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

// LoadFrom reads configuration through l and validates it.
func LoadFrom(l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(context.Background(), &envconfig.Config{
		Target:   &cfg,
		Lookuper: l,
	}); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.StorageBackend {
	case "mongo", "memory":
	default:
		return fmt.Errorf("STORAGE_BACKEND must be mongo or memory, got %q", c.StorageBackend)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("WORKERS must be positive, got %d", c.Workers)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("TIMEZONE: %w", err)
	}
	return nil
}

// Location returns the configured timezone. Load has already validated it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
