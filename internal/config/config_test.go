package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8003, cfg.HTTPPort)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 168, cfg.CartTTL)
	assert.Equal(t, int64(4000), cfg.DeliveryFeeMinor)
	assert.Equal(t, int64(500), cfg.TaxRateBP)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("CART_HTTP_PORT", "9100")
	t.Setenv("REDIS_ADDR", "redis.internal:6380")
	t.Setenv("CART_TTL_HOURS", "24")
	t.Setenv("DELIVERY_FEE_MINOR", "0")
	t.Setenv("TAX_RATE_BP", "1800")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.HTTPPort)
	assert.Equal(t, "redis.internal:6380", cfg.RedisAddr)
	assert.Equal(t, 24, cfg.CartTTL)
	assert.Equal(t, int64(0), cfg.DeliveryFeeMinor)
	assert.Equal(t, int64(1800), cfg.TaxRateBP)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
}

func TestLoad_InvalidPort(t *testing.T) {
	t.Setenv("CART_HTTP_PORT", "0")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_InvalidTTL(t *testing.T) {
	t.Setenv("CART_TTL_HOURS", "0")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_NegativeDeliveryFee(t *testing.T) {
	t.Setenv("DELIVERY_FEE_MINOR", "-100")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_TaxRateOutOfRange(t *testing.T) {
	t.Setenv("TAX_RATE_BP", "10001")

	_, err := Load()
	assert.Error(t, err)
}
