package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, key := range []string{"COMMAND_PREFIX", "PORT", "DATA_PATH", "GATE_TTL", "IGNORED_CHANNELS", "HTTP_ENABLED"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.CommandPrefix != "!" || cfg.Port != "8000" || cfg.DataPath != "warlist.db" {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if cfg.GateTTL != 30*time.Second {
		t.Errorf("Expected 30s gate ttl, got %s", cfg.GateTTL)
	}
	if !cfg.HTTPEnabled {
		t.Error("Expected HTTP to be enabled by default")
	}
	if len(cfg.IgnoredChannels) != 0 {
		t.Errorf("Expected no ignored channels, got %v", cfg.IgnoredChannels)
	}
}

func TestLoad_Environment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("COMMAND_PREFIX", "?")
	t.Setenv("IGNORED_CHANNELS", "1, 2,3")
	t.Setenv("GATE_TTL", "1m")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.DiscordToken != "token" || cfg.CommandPrefix != "?" {
		t.Errorf("unexpected config %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.IgnoredChannels, []string{"1", "2", "3"}) {
		t.Errorf("unexpected ignored channels %v", cfg.IgnoredChannels)
	}
	if cfg.GateTTL != time.Minute {
		t.Errorf("Expected 1m, got %s", cfg.GateTTL)
	}
}

func TestLoad_InvalidTTL(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("GATE_TTL", "soon")

	if _, err := Load(nil); err == nil {
		t.Error("Expected an invalid GATE_TTL to fail")
	}
}

func TestLoad_FlagsAndFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("PORT", "")
	os.Unsetenv("PORT")

	path := filepath.Join(dir, "warlist.yaml")
	if err := os.WriteFile(path, []byte("COMMAND_PREFIX: \"$\"\nPORT: \"9000\"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("COMMAND_PREFIX", "")
	os.Unsetenv("COMMAND_PREFIX")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	Flags(fs)
	if err := fs.Parse([]string{"--config", path, "--log-level", "debug"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := Load(fs)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.CommandPrefix != "$" || cfg.Port != "9000" {
		t.Errorf("Expected values from the config file, got %+v", cfg)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("Expected flag to set the log level, got %s", cfg.LogLevel)
	}
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("ERROR_WEBHOOK_URL", "")
	os.Unsetenv("ERROR_WEBHOOK_URL")

	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("ERROR_WEBHOOK_URL=https://hooks.invalid/x\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("ERROR_WEBHOOK_URL") })

	if cfg.ErrorWebhookURL != "https://hooks.invalid/x" {
		t.Errorf("Expected value from .env, got %q", cfg.ErrorWebhookURL)
	}
}
