package config

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Setenv("GO_ENV", "test")
	t.Setenv("DATABASE_URL", "postgresql://localhost/delivery_admin_test")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")
	t.Setenv("ACTIVATION_INTERVAL", "45s")
	t.Setenv("REDIS_ADDR", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.True(t, cfg.IsTest())
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.KafkaEnabled())
	assert.False(t, cfg.RedisEnabled())
	assert.Equal(t, 45*time.Second, cfg.ActivationInterval)
	assert.Equal(t, 30*time.Second, cfg.DashboardCacheTTL)
	assert.Equal(t, "delivery-admin.events", cfg.KafkaTopic)
}

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("GO_ENV", "test")
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	assert.EqualError(t, err, "DATABASE_URL is required")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{DatabaseURL: "postgres://x", ActivationInterval: time.Second}, false},
		{"missing database", Config{ActivationInterval: time.Second}, true},
		{"zero interval", Config{DatabaseURL: "postgres://x"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewLoggerFormats(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&Config{LogFormat: "json", LogLevel: "debug"}, &buf)
	logger.Debug("hello", slog.String("k", "v"))
	assert.Contains(t, buf.String(), `"msg":"hello"`)

	buf.Reset()
	logger = newLogger(&Config{LogFormat: "text", LogLevel: "warn"}, &buf)
	logger.Info("dropped")
	assert.Empty(t, buf.String())
	logger.Warn("kept")
	assert.Contains(t, buf.String(), "msg=kept")
}
