// Package config loads process configuration from .env files, the
// environment and an optional config file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds every setting of the bot and its HTTP surface
type Config struct {
	DiscordToken    string
	CommandPrefix   string
	DatabaseURL     string
	DataPath        string
	RedisURL        string
	GateTTL         time.Duration
	Port            string
	JWTSecret       string
	APIMasterSecret string
	AdminUsername   string
	AdminPassword   string
	ErrorWebhookURL string
	IgnoredChannels []string
	LogLevel        string
	LogFormat       string
	GinMode         string
	HTTPEnabled     bool
}

var envPaths = []string{".env", "../.env", "../../.env"}

// LoadDotEnv loads the first .env found in the working directory or its parents
func LoadDotEnv() {
	for _, p := range envPaths {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
			return
		}
	}
}

// Flags registers the command line flags understood by Load
func Flags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to a YAML, TOML or JSON config file")
	fs.String("port", "", "HTTP port")
	fs.String("log-level", "", "debug, info, warn or error")
	fs.Bool("http", true, "serve the HTTP command API")
}

// Load reads configuration. Flags win over the environment, which wins over
// the config file.
func Load(fs *pflag.FlagSet) (*Config, error) {
	LoadDotEnv()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("COMMAND_PREFIX", "!")
	v.SetDefault("DATA_PATH", "warlist.db")
	v.SetDefault("GATE_TTL", "30s")
	v.SetDefault("PORT", "8000")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("HTTP_ENABLED", true)

	if fs != nil {
		if path, _ := fs.GetString("config"); path != "" {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
		bindFlag(v, fs, "PORT", "port")
		bindFlag(v, fs, "LOG_LEVEL", "log-level")
		bindFlag(v, fs, "HTTP_ENABLED", "http")
	}

	ttl, err := time.ParseDuration(v.GetString("GATE_TTL"))
	if err != nil {
		return nil, fmt.Errorf("GATE_TTL: %w", err)
	}

	return &Config{
		DiscordToken:    v.GetString("DISCORD_TOKEN"),
		CommandPrefix:   v.GetString("COMMAND_PREFIX"),
		DatabaseURL:     v.GetString("DATABASE_URL"),
		DataPath:        v.GetString("DATA_PATH"),
		RedisURL:        v.GetString("REDIS_URL"),
		GateTTL:         ttl,
		Port:            v.GetString("PORT"),
		JWTSecret:       v.GetString("JWT_SECRET"),
		APIMasterSecret: v.GetString("API_MASTER_SECRET"),
		AdminUsername:   v.GetString("ADMIN_USERNAME"),
		AdminPassword:   v.GetString("ADMIN_PASSWORD"),
		ErrorWebhookURL: v.GetString("ERROR_WEBHOOK_URL"),
		IgnoredChannels: splitList(v.GetString("IGNORED_CHANNELS")),
		LogLevel:        v.GetString("LOG_LEVEL"),
		LogFormat:       v.GetString("LOG_FORMAT"),
		GinMode:         v.GetString("GIN_MODE"),
		HTTPEnabled:     v.GetBool("HTTP_ENABLED"),
	}, nil
}

// bindFlag lets an explicitly set flag override key
func bindFlag(v *viper.Viper, fs *pflag.FlagSet, key, name string) {
	if f := fs.Lookup(name); f != nil && f.Changed {
		v.Set(key, f.Value.String())
	}
}

func splitList(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' '
	})
}

// NewLogger builds the process logger from LogLevel and LogFormat
func (c *Config) NewLogger() *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
