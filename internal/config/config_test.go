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

	assert.Equal(t, StorageMemory, cfg.Storage.Driver)
	assert.Equal(t, time.UTC, cfg.Scheduling.Location())
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Address())
	assert.False(t, cfg.Events.Enabled)
}

func TestLoad_ReadsEnvironment(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "Bolt")
	t.Setenv("BOLT_PATH", "/var/lib/apptsched/data.db")
	t.Setenv("SCHEDULING_TIMEZONE", "Asia/Tokyo")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("EVENTS_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("EVENTS_BREAKER_TIMEOUT", "5s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StorageBolt, cfg.Storage.Driver)
	assert.Equal(t, "/var/lib/apptsched/data.db", cfg.Storage.BoltPath)
	assert.Equal(t, "Asia/Tokyo", cfg.Scheduling.Location().String())
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Events.Brokers)
	assert.Equal(t, 5*time.Second, cfg.Events.BreakerTimeout)
}

func TestLoad_MalformedNumbersFallBack(t *testing.T) {
	t.Setenv("SERVER_PORT", "eighty")
	t.Setenv("RATE_LIMIT_RPS", "fast")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 100.0, cfg.RateLimit.RequestsPerSecond)
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{
			name: "unknown storage driver",
			env:  map[string]string{"STORAGE_DRIVER": "mongo"},
			want: "STORAGE_DRIVER must be one of",
		},
		{
			name: "bad timezone",
			env:  map[string]string{"SCHEDULING_TIMEZONE": "Mars/Olympus"},
			want: "SCHEDULING_TIMEZONE",
		},
		{
			name: "postgres without password outside development",
			env:  map[string]string{"STORAGE_DRIVER": "postgres", "APP_ENV": "staging"},
			want: "DB_PASSWORD is required",
		},
		{
			name: "events without brokers",
			env:  map[string]string{"EVENTS_ENABLED": "true"},
			want: "KAFKA_BROKERS is required",
		},
		{
			name: "sample rate out of range",
			env:  map[string]string{"TRACING_SAMPLE_RATE": "1.5"},
			want: "TRACING_SAMPLE_RATE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "configuration errors")
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_CollectsEveryError(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "mongo")
	t.Setenv("SCHEDULING_TIMEZONE", "Nowhere/Else")
	t.Setenv("EVENTS_ENABLED", "true")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STORAGE_DRIVER")
	assert.Contains(t, err.Error(), "SCHEDULING_TIMEZONE")
	assert.Contains(t, err.Error(), "KAFKA_BROKERS")
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5433, Name: "appts", User: "svc", Password: "pw", SSLMode: "disable"}
	assert.Equal(t, "host=db user=svc password=pw dbname=appts port=5433 sslmode=disable TimeZone=UTC", d.DSN())
}
