package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"project4869/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		DatabaseURL:    "file::memory:?cache=shared",
		HTTPPort:       "4869",
		RSSCron:        "0 * * * *",
		Workers:        4,
		BatchSize:      100,
		SubtitlePolicy: model.SubtitleVerbatim,
		RequestTimeout: 30 * time.Second,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(c *Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "missing database",
			modify:  func(c *Config) { c.DatabaseURL = "" },
			wantErr: true,
		},
		{
			name:    "zero workers",
			modify:  func(c *Config) { c.Workers = 0 },
			wantErr: true,
		},
		{
			name:    "negative batch size",
			modify:  func(c *Config) { c.BatchSize = -1 },
			wantErr: true,
		},
		{
			name:    "unknown subtitle policy",
			modify:  func(c *Config) { c.SubtitlePolicy = "codes" },
			wantErr: true,
		},
		{
			name:    "invalid port",
			modify:  func(c *Config) { c.HTTPPort = "70000" },
			wantErr: true,
		},
		{
			name:    "invalid rss cron",
			modify:  func(c *Config) { c.RSSCron = "every hour" },
			wantErr: true,
		},
		{
			name:    "invalid scrape cron",
			modify:  func(c *Config) { c.ScrapeCron = "* *" },
			wantErr: true,
		},
		{
			name:    "valid scrape cron",
			modify:  func(c *Config) { c.ScrapeCron = "30 3 * * *" },
			wantErr: false,
		},
		{
			name:    "bot token without chat",
			modify:  func(c *Config) { c.BotToken = "token" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := validConfig()
			tt.modify(config)
			err := config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Config.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// safeSetEnv безопасно устанавливает переменную окружения
func safeSetEnv(t *testing.T, key, value string) {
	t.Helper()
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("Failed to set env var %s: %v", key, err)
	}
}

// safeUnsetEnv безопасно удаляет переменную окружения
func safeUnsetEnv(t *testing.T, key string) {
	t.Helper()
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("Failed to unset env var %s: %v", key, err)
	}
}

func TestLoad(t *testing.T) {
	keys := []string{"SUBTITLE_POLICY", "WORKERS", "NOTIFY_CHAT_ID", "BOT_TOKEN", "REQUEST_TIMEOUT"}
	original := make(map[string]string, len(keys))
	for _, key := range keys {
		original[key] = os.Getenv(key)
	}
	defer func() {
		for key, value := range original {
			if value != "" {
				safeSetEnv(t, key, value)
			} else {
				safeUnsetEnv(t, key)
			}
		}
	}()

	t.Run("defaults", func(t *testing.T) {
		for _, key := range keys {
			safeUnsetEnv(t, key)
		}
		config, err := Load()
		require.NoError(t, err)
		assert.Equal(t, model.SubtitleVerbatim, config.SubtitlePolicy)
		assert.Equal(t, defaultWorkers, config.Workers)
		assert.Equal(t, defaultRSSCron, config.RSSCron)
		assert.Equal(t, defaultReqTimeout, config.RequestTimeout)
		assert.False(t, config.NotificationsEnabled())
	})

	t.Run("overrides", func(t *testing.T) {
		safeSetEnv(t, "SUBTITLE_POLICY", "Canonical")
		safeSetEnv(t, "WORKERS", "8")
		safeSetEnv(t, "BOT_TOKEN", "token")
		safeSetEnv(t, "NOTIFY_CHAT_ID", "-1001234")
		safeSetEnv(t, "REQUEST_TIMEOUT", "5s")
		config, err := Load()
		require.NoError(t, err)
		assert.Equal(t, model.SubtitleCanonical, config.SubtitlePolicy)
		assert.Equal(t, 8, config.Workers)
		assert.Equal(t, int64(-1001234), config.NotifyChatID)
		assert.Equal(t, 5*time.Second, config.RequestTimeout)
		assert.True(t, config.NotificationsEnabled())
	})

	t.Run("invalid policy", func(t *testing.T) {
		safeSetEnv(t, "SUBTITLE_POLICY", "codes")
		_, err := Load()
		assert.Error(t, err)
	})
}

func TestLoadProfile(t *testing.T) {
	t.Run("empty path gives defaults", func(t *testing.T) {
		profile, err := LoadProfile("")
		require.NoError(t, err)
		assert.Equal(t, DefaultProfile(), profile)
	})

	t.Run("partial file keeps defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "profile.yaml")
		data := "label_selector: span.tag\nfallback_rows:\n  - li.entry\nshort_label_limit: 30\n"
		require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

		profile, err := LoadProfile(path)
		require.NoError(t, err)
		assert.Equal(t, "span.tag", profile.LabelSelector)
		assert.Equal(t, []string{"li.entry"}, profile.FallbackRows)
		assert.Equal(t, 30, profile.ShortLabelLimit)
		assert.Equal(t, DefaultProfile().PayloadSelector, profile.PayloadSelector)
		assert.Equal(t, 10, profile.MaxDiscoveryDepth)
	})

	t.Run("invalid selector", func(t *testing.T) {
		_, err := ParseProfile([]byte("label_selector: \"label[\"\n"))
		assert.Error(t, err)
	})

	t.Run("discovery depth bounds", func(t *testing.T) {
		_, err := ParseProfile([]byte("max_discovery_depth: 10\n"))
		assert.NoError(t, err)

		_, err = ParseProfile([]byte("max_discovery_depth: 11\n"))
		assert.Error(t, err)

		_, err = ParseProfile([]byte("max_discovery_depth: -1\n"))
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadProfile(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.Error(t, err)
	})

	t.Run("broken yaml", func(t *testing.T) {
		_, err := ParseProfile([]byte("fallback_rows: [a, b"))
		assert.Error(t, err)
	})
}
