package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// Values are read by viper from a config file or environment variables.
type Config struct {
	BotToken     string `mapstructure:"BOT_TOKEN"`
	SearchAPIURL string `mapstructure:"SEARCH_API_URL"`
	Username     string `mapstructure:"PANSOU_USERNAME"`
	Password     string `mapstructure:"PANSOU_PASSWORD"`

	// AllowedUsersRaw is the comma-separated allow-list as configured.
	// An empty value permits every user.
	AllowedUsersRaw string `mapstructure:"ALLOWED_USERS"`

	SessionTTL time.Duration `mapstructure:"SESSION_TTL"`
	LogLevel   string        `mapstructure:"LOG_LEVEL"`

	// AllowedUsers is parsed from AllowedUsersRaw during LoadConfig.
	AllowedUsers []int64 `mapstructure:"-"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("SESSION_TTL", 24*time.Hour)
	viper.SetDefault("LOG_LEVEL", "info")

	// Viper only sees env vars it has been told about when no config
	// file supplies the keys.
	for _, key := range []string{
		"BOT_TOKEN", "SEARCH_API_URL", "PANSOU_USERNAME",
		"PANSOU_PASSWORD", "ALLOWED_USERS", "SESSION_TTL", "LOG_LEVEL",
	} {
		if err := viper.BindEnv(key); err != nil {
			return Config{}, fmt.Errorf("error binding env var %s: %w", key, err)
		}
	}

	err = viper.ReadInConfig()
	if err != nil {
		// A missing config file is fine as long as the required values
		// arrive via environment variables.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	err = viper.Unmarshal(&config)
	if err != nil {
		return Config{}, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if config.BotToken == "" {
		return Config{}, fmt.Errorf("BOT_TOKEN is not set")
	}
	if config.SearchAPIURL == "" {
		return Config{}, fmt.Errorf("SEARCH_API_URL is not set")
	}
	if config.Username == "" {
		return Config{}, fmt.Errorf("PANSOU_USERNAME is not set")
	}
	if config.Password == "" {
		return Config{}, fmt.Errorf("PANSOU_PASSWORD is not set")
	}

	config.AllowedUsers, err = ParseAllowedUsers(config.AllowedUsersRaw)
	if err != nil {
		return Config{}, fmt.Errorf("invalid ALLOWED_USERS: %w", err)
	}

	return config, nil
}

// ParseAllowedUsers parses a comma-separated list of Telegram user IDs.
// Blank entries are skipped; an empty list means every user is allowed.
func ParseAllowedUsers(raw string) ([]int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("user id %q is not an integer: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Allowed reports whether a user may use the bot. An empty allow-list
// permits everyone.
func (c Config) Allowed(userID int64) bool {
	if len(c.AllowedUsers) == 0 {
		return true
	}
	for _, id := range c.AllowedUsers {
		if id == userID {
			return true
		}
	}
	return false
}
