package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper(values map[string]any) *viper.Viper {
	v := viper.New()
	setDefaults(v)
	for k, val := range values {
		v.Set(k, val)
	}
	return v
}

func TestDefaultsWithMemoryDriver(t *testing.T) {
	cfg, err := fromViper(newViper(map[string]any{"STORAGE_DRIVER": "memory"}))
	require.NoError(t, err)

	assert.True(t, cfg.Development())
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, DriverMemory, cfg.StorageDriver)
	assert.Equal(t, 10*time.Second, cfg.LockTTL)
	assert.Equal(t, 24*time.Hour, cfg.IdempotencyTTL)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, devJWTSecret, cfg.JWTSecret)
	assert.False(t, cfg.RedisEnabled())
}

func TestPostgresRequiresDatabaseURL(t *testing.T) {
	_, err := fromViper(newViper(nil))
	assert.ErrorContains(t, err, "DATABASE_URL")

	cfg, err := fromViper(newViper(map[string]any{"DATABASE_URL": "postgres://localhost/buildledger"}))
	require.NoError(t, err)
	assert.Equal(t, int32(25), cfg.DBMaxConns)
}

func TestProductionRequiresSecret(t *testing.T) {
	_, err := fromViper(newViper(map[string]any{"STORAGE_DRIVER": "memory", "APP_ENV": "production"}))
	assert.ErrorContains(t, err, "JWT_SECRET")
}

func TestUnknownDriver(t *testing.T) {
	_, err := fromViper(newViper(map[string]any{"STORAGE_DRIVER": "mysql"}))
	assert.Error(t, err)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"http://a", "http://b"}, splitList(" http://a, ,http://b "))
	assert.Nil(t, splitList(""))
}
