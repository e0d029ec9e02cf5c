package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.API.Addr)
	assert.Equal(t, 12, cfg.Catalog.PageSize)
	assert.Equal(t, 300*time.Millisecond, cfg.Catalog.SearchDebounce)
	assert.Equal(t, 200*time.Millisecond, cfg.Catalog.FilterDebounce)
	assert.Equal(t, 5*time.Second, cfg.Client.Timeout)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("API_ADDR", ":9000")
	t.Setenv("CLIENT_CUSTOMER_ID", "cust-42")
	t.Setenv("CATALOG_PAGE_SIZE", "24")
	t.Setenv("PAYMENT_FAILURE_RATE", "0.25")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.API.Addr)
	assert.Equal(t, "cust-42", cfg.Client.CustomerID)
	assert.Equal(t, 24, cfg.Catalog.PageSize)
	assert.InDelta(t, 0.25, cfg.Payment.FailureRate, 1e-9)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_BadValue(t *testing.T) {
	t.Setenv("CATALOG_PAGE_SIZE", "twelve")
	_, err := Load()
	assert.Error(t, err)
}
