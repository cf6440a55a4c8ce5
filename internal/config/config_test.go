package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("REGION_MULTIPLIERS", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "VAB", cfg.OrderNumberPrefix)
	assert.Equal(t, "RUB", cfg.Currency)
	assert.Equal(t, 100000.0, cfg.OrderMaxAmount)
	assert.Equal(t, 5*time.Second, cfg.YooKassa.Timeout)
	assert.Equal(t, 2, cfg.YooKassa.MaxAttempts)
	assert.Equal(t, int64(12000), cfg.RegionMultipliers["EU"])
	assert.Empty(t, cfg.TrustedProxies)
	assert.Equal(t, "X-Webhook-Signature", cfg.WebhookSignatureHeader)
}

func TestLoad_ProdRejectsDefaultSecrets(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoad_ProdRequiresGatewayCredentials(t *testing.T) {
	t.Setenv("APP_ENV", "release")
	t.Setenv("JWT_SECRET", "real-secret")
	t.Setenv("WEBHOOK_SECRET", "real-webhook-secret")
	t.Setenv("YOOKASSA_SHOP_ID", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "YOOKASSA")
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv("YOOKASSA_TIMEOUT", "soon")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "YOOKASSA_TIMEOUT")
}

func TestParseRegionMultipliers(t *testing.T) {
	table, err := ParseRegionMultipliers("ru=1.0, asia=1.4")
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"RU": 10000, "ASIA": 14000}, table)

	table, err = ParseRegionMultipliers("KZ=1.15,BY=1.35,UA=0.0001")
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"KZ": 11500, "BY": 13500, "UA": 1}, table)

	for _, raw := range []string{"RU:1.0", "RU=-1", "RU=0", "RU=abc", "=1.2", "RU=1.00005"} {
		_, err = ParseRegionMultipliers(raw)
		assert.Error(t, err, raw)
	}
}

func TestLoad_TrustedProxies(t *testing.T) {
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 127.0.0.1")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.0/8", "127.0.0.1"}, cfg.TrustedProxies)
}
