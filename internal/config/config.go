// /internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"slices"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the process configuration, read from the environment. A .env file
// in the working directory is loaded first if present.
type Config struct {
	DiscordToken string `env:"DISCORD_TOKEN"`
	TokenPath    string `env:"TOKEN_PATH" envDefault:"./TOKEN"`

	Prefixes      []string `env:"BOT_PREFIXES" envSeparator:"," envDefault:">>>"`
	MentionPrefix bool     `env:"BOT_MENTION_PREFIX" envDefault:"true"`
	OwnerIDs      []string `env:"BOT_OWNER_IDS" envSeparator:","`
	HomeGuildID   string   `env:"BOT_HOME_GUILD_ID"`
	ErrorLogID    string   `env:"BOT_ERROR_LOG_CHANNEL_ID"`
	Activity      string   `env:"BOT_ACTIVITY" envDefault:"pings"`
	Silent        bool     `env:"BOT_SILENT"`

	EditCacheSize int `env:"EDIT_CACHE_SIZE" envDefault:"1000"`

	ExtensionsDir       string   `env:"EXTENSIONS_DIR" envDefault:"cogs"`
	ExtensionsRecursive bool     `env:"EXTENSIONS_RECURSIVE"`
	ExtensionsExclude   []string `env:"EXTENSIONS_EXCLUDE" envSeparator:","`
	ExtensionsWatch     bool     `env:"EXTENSIONS_WATCH"`

	StoragePath string `env:"STORAGE_PATH" envDefault:"data/bot.db"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile  string `env:"LOG_FILE"`
}

// New loads envFiles (".env" when none are given) and parses the environment.
// Missing env files are not an error.
func New(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values the environment parser cannot.
func (c *Config) Validate() error {
	if len(c.Prefixes) == 0 && !c.MentionPrefix {
		return errors.New("no command prefix configured: set BOT_PREFIXES or BOT_MENTION_PREFIX")
	}
	if slices.Contains(c.Prefixes, "") {
		return errors.New("BOT_PREFIXES contains an empty prefix")
	}
	if c.EditCacheSize < 0 {
		return fmt.Errorf("EDIT_CACHE_SIZE must not be negative, got %d", c.EditCacheSize)
	}
	return nil
}

// IsOwner reports whether userID is one of the configured owners.
func (c *Config) IsOwner(userID string) bool {
	return slices.Contains(c.OwnerIDs, userID)
}
