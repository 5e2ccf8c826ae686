package config

import (
	"context"
	"testing"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(context.Background(), envconfig.MapLookuper(map[string]string{}))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	assert.Equal(t, "reengage", cfg.Database.Name)
	assert.Equal(t, "campaign_deliveries", cfg.AMQP.Queue)
	assert.Empty(t, cfg.AMQP.URL)
	assert.False(t, cfg.SES.Enabled())
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORS.Origins())
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := load(context.Background(), envconfig.MapLookuper(map[string]string{
		"SERVER_PORT":           "9090",
		"DB_HOST":               "db.internal",
		"DB_NAME":               "crm",
		"APP_ENVIRONMENT":       "production",
		"AMQP_URL":              "amqp://guest:guest@mq:5672/",
		"APP_TRACKING_BASE_URL": "https://api.example.com",
		"SES_ACCESS_KEY":        "AKIA",
		"SES_SECRET_KEY":        "secret",
		"CORS_ALLOWED_ORIGINS":  "https://admin.example.com, http://localhost:5173,",
	}))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9090", cfg.Server.Addr())
	assert.Equal(t, "host=db.internal port=5432 user=postgres password=postgres dbname=crm sslmode=disable", cfg.Database.DSN())
	assert.True(t, cfg.App.IsProduction())
	assert.Equal(t, "amqp://guest:guest@mq:5672/", cfg.AMQP.URL)
	assert.Equal(t, "https://api.example.com", cfg.App.TrackingBaseURL)
	assert.True(t, cfg.SES.Enabled())
	assert.Equal(t, []string{"https://admin.example.com", "http://localhost:5173"}, cfg.CORS.Origins())
}

func TestLoadRejectsBadInt(t *testing.T) {
	_, err := load(context.Background(), envconfig.MapLookuper(map[string]string{
		"SERVER_READ_TIMEOUT": "soon",
	}))
	assert.Error(t, err)
}
