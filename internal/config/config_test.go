package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost/stay")
	t.Setenv("JWT_SECRET", "secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 15*time.Minute, cfg.JWTAccessTokenTTL)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.Equal(t, 10*time.Second, cfg.SideEffectTimeout)
	assert.Equal(t, 2, cfg.SideEffectRetries)
	assert.Equal(t, 15, cfg.CheckInHour)
	assert.Equal(t, 11, cfg.CheckOutHour)
	assert.Equal(t, "stay.side_effects", cfg.TaskQueueName)
	assert.False(t, cfg.IsProduction)
}

func TestLoadRequiresDSN(t *testing.T) {
	t.Setenv("DB_DSN", "")
	t.Setenv("JWT_SECRET", "secret")

	_, err := Load()
	assert.ErrorContains(t, err, "DB_DSN")
}

func TestLoadParsesLists(t *testing.T) {
	setRequired(t)
	t.Setenv("WEBHOOK_URLS", "https://a.example/hook, ,https://b.example/hook")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"https://a.example/hook", "https://b.example/hook"}, cfg.WebhookURLs)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"BCRYPT_COST", "twelve"},
		{"SIDE_EFFECT_TIMEOUT", "soon"},
		{"CHECK_IN_HOUR", "25"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			setRequired(t)
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
