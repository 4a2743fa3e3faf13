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

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, StoreSQLite, cfg.StoreDriver)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "orders", cfg.KafkaTopic)
	assert.Equal(t, "order-group", cfg.KafkaGroupID)
	assert.Equal(t, 3, cfg.KafkaTopicPartitions)
	assert.Equal(t, 1, cfg.KafkaTopicReplication)
	assert.True(t, cfg.ListenerEnabled)
	assert.False(t, cfg.RateLimitEnabled)
	assert.Equal(t, 5*time.Second, cfg.StoreTimeout)
	assert.Equal(t, 10*time.Second, cfg.PublishTimeout)
	assert.Equal(t, time.Second, cfg.OrderRateWindow)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "Redis")
	t.Setenv("KAFKA_BROKERS", " broker-1:9092, ,broker-2:9092 ")
	t.Setenv("KAFKA_TOPIC_PARTITIONS", "6")
	t.Setenv("LISTENER_ENABLED", "false")
	t.Setenv("STORE_TIMEOUT", "750ms")
	t.Setenv("PUBLISH_TIMEOUT", "2s")
	t.Setenv("ORDER_RATE_WINDOW_SEC", "10")
	t.Setenv("TRACING_SAMPLE_RATE", "0.25")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StoreRedis, cfg.StoreDriver)
	assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 6, cfg.KafkaTopicPartitions)
	assert.False(t, cfg.ListenerEnabled)
	assert.Equal(t, 750*time.Millisecond, cfg.StoreTimeout)
	assert.Equal(t, 2*time.Second, cfg.PublishTimeout)
	assert.Equal(t, 10*time.Second, cfg.OrderRateWindow)
	assert.InDelta(t, 0.25, cfg.TracingSampleRate, 1e-9)
}

func TestLoad_Invalid(t *testing.T) {
	testCases := map[string]struct {
		key           string
		value         string
		expectedError string
	}{
		"should reject unknown store driver": {
			key:           "STORE_DRIVER",
			value:         "cassandra",
			expectedError: "STORE_DRIVER must be one of",
		},
		"should reject non numeric partitions": {
			key:           "KAFKA_TOPIC_PARTITIONS",
			value:         "three",
			expectedError: "invalid KAFKA_TOPIC_PARTITIONS",
		},
		"should reject zero partitions": {
			key:           "KAFKA_TOPIC_PARTITIONS",
			value:         "0",
			expectedError: "KAFKA_TOPIC_PARTITIONS must be > 0",
		},
		"should reject malformed duration": {
			key:           "STORE_TIMEOUT",
			value:         "5 seconds",
			expectedError: "invalid STORE_TIMEOUT",
		},
		"should reject non positive publish timeout": {
			key:           "PUBLISH_TIMEOUT",
			value:         "0s",
			expectedError: "PUBLISH_TIMEOUT must be > 0",
		},
		"should reject brokers list without entries": {
			key:           "KAFKA_BROKERS",
			value:         " , ",
			expectedError: "KAFKA_BROKERS must not be empty",
		},
		"should reject malformed bool": {
			key:           "LISTENER_ENABLED",
			value:         "sometimes",
			expectedError: "invalid LISTENER_ENABLED",
		},
		"should reject sample rate above one": {
			key:           "TRACING_SAMPLE_RATE",
			value:         "1.5",
			expectedError: "TRACING_SAMPLE_RATE must be within",
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.expectedError)
		})
	}
}
