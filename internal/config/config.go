package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/jask/relcards/internal/relationship"
)

// Config holds application configuration.
type Config struct {
	Database     DatabaseConfig
	Log          LogConfig
	Metrics      MetricsConfig
	Relationship RelationshipConfig
	UI           UIConfig
}

// DatabaseConfig holds sqlite settings. Migrations, when set, replaces the embedded migrations
// with a directory on disk.
type DatabaseConfig struct {
	Path       string
	Migrations string
	Seed       bool
}

type LogConfig struct {
	Level       string
	Development bool
	File        string
}

// MetricsConfig holds the Prometheus listen address. Empty disables the endpoint.
type MetricsConfig struct {
	Addr string
}

// RelationshipConfig selects the relationship field the TUI edits and how its cards look.
type RelationshipConfig struct {
	OwnerList     string   `mapstructure:"owner_list"`
	OwnerID       string   `mapstructure:"owner_id"`
	Field         string   `mapstructure:"field"`
	CardFields    []string `mapstructure:"card_fields"`
	InlineCreate  bool     `mapstructure:"inline_create"`
	CreateFields  []string `mapstructure:"create_fields"`
	InlineConnect bool     `mapstructure:"inline_connect"`
	InlineEdit    bool     `mapstructure:"inline_edit"`
	EditFields    []string `mapstructure:"edit_fields"`
	SearchLimit   int      `mapstructure:"search_limit"`
}

// UIConfig holds presentation settings.
type UIConfig struct {
	StarIcon string `mapstructure:"star_icon"`
}

// DisplayOptions maps the relationship section onto card display options.
func (c Config) DisplayOptions() relationship.DisplayOptions {
	r := c.Relationship
	opts := relationship.DisplayOptions{
		CardFields:    append([]string(nil), r.CardFields...),
		InlineConnect: r.InlineConnect,
	}
	if r.InlineCreate {
		opts.InlineCreate = &relationship.InlineFields{Fields: append([]string(nil), r.CreateFields...)}
	}
	if r.InlineEdit {
		opts.InlineEdit = &relationship.InlineFields{Fields: append([]string(nil), r.EditFields...)}
	}
	return opts
}

func home() string {
	dir, err := homedir.Dir()
	if err != nil {
		return os.Getenv("HOME")
	}
	return dir
}

// Path returns the config file location. RELCARDS_CONFIG overrides the default.
func Path() string {
	if p := os.Getenv("RELCARDS_CONFIG"); p != "" {
		if expanded, err := homedir.Expand(p); err == nil {
			return expanded
		}
		return p
	}
	return filepath.Join(home(), ".config", "relcards", "config.toml")
}

// Load reads configuration from file and env. Env var overrides use prefix RELCARDS_.
func Load() (Config, error) {
	v := viper.New()

	dataDir := filepath.Join(home(), ".local", "share", "relcards")
	v.SetDefault("database.path", filepath.Join(dataDir, "relcards.db"))
	v.SetDefault("database.migrations", "")
	v.SetDefault("database.seed", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("log.file", filepath.Join(dataDir, "relcards.log"))
	v.SetDefault("metrics.addr", "")
	v.SetDefault("relationship.owner_list", "Post")
	v.SetDefault("relationship.owner_id", "")
	v.SetDefault("relationship.field", "sections")
	v.SetDefault("relationship.card_fields", []string{"title", "rating"})
	v.SetDefault("relationship.inline_create", true)
	v.SetDefault("relationship.create_fields", []string{"title", "body", "rating"})
	v.SetDefault("relationship.inline_connect", true)
	v.SetDefault("relationship.inline_edit", true)
	v.SetDefault("relationship.edit_fields", []string{"title", "body", "rating"})
	v.SetDefault("relationship.search_limit", 8)
	v.SetDefault("ui.star_icon", "★")

	v.SetConfigType("toml")
	v.SetConfigFile(Path())

	v.SetEnvPrefix("RELCARDS")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// read config file if present
	_ = v.ReadInConfig()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.Database.Path, _ = homedir.Expand(c.Database.Path); c.Database.Path == "" {
		return Config{}, fmt.Errorf("database.path is empty")
	}
	if c.Relationship.SearchLimit <= 0 {
		c.Relationship.SearchLimit = 8
	}
	return c, nil
}

// Save writes the provided config to disk, creating the config directory if needed.
func Save(cfg Config) error {
	path := Path()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("database.path", cfg.Database.Path)
	v.Set("database.migrations", cfg.Database.Migrations)
	v.Set("database.seed", cfg.Database.Seed)
	v.Set("log.level", cfg.Log.Level)
	v.Set("log.development", cfg.Log.Development)
	v.Set("log.file", cfg.Log.File)
	v.Set("metrics.addr", cfg.Metrics.Addr)
	v.Set("relationship.owner_list", cfg.Relationship.OwnerList)
	v.Set("relationship.owner_id", cfg.Relationship.OwnerID)
	v.Set("relationship.field", cfg.Relationship.Field)
	v.Set("relationship.card_fields", cfg.Relationship.CardFields)
	v.Set("relationship.inline_create", cfg.Relationship.InlineCreate)
	v.Set("relationship.create_fields", cfg.Relationship.CreateFields)
	v.Set("relationship.inline_connect", cfg.Relationship.InlineConnect)
	v.Set("relationship.inline_edit", cfg.Relationship.InlineEdit)
	v.Set("relationship.edit_fields", cfg.Relationship.EditFields)
	v.Set("relationship.search_limit", cfg.Relationship.SearchLimit)
	v.Set("ui.star_icon", cfg.UI.StarIcon)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
