package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("ESEWA_SECRET_KEY", "")

	_, err := Load()
	require.ErrorIs(t, err, ErrMissingSecret)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ESEWA_SECRET_KEY", "test-secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "http://localhost:3000", cfg.FrontendURL)
	assert.Equal(t, "EPAYTEST", cfg.ProductCode)
	assert.Equal(t, "test-secret", cfg.ESewaSecretKey)
	assert.Contains(t, cfg.DatabaseURL, "postgres://")
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ESEWA_SECRET_KEY", "test-secret")
	t.Setenv("PORT", "9090")
	t.Setenv("FRONTEND_URL", "https://shop.example.com")
	t.Setenv("ESEWA_PRODUCT_CODE", "EPAYLIVE")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "https://shop.example.com", cfg.FrontendURL)
	assert.Equal(t, "EPAYLIVE", cfg.ProductCode)
}
