package config

import (
	"os"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validProductionConfig() *Config {
	return &Config{
		Env:                   "production",
		DBSSLMode:             "require",
		JWTSecret:             "secure-secret-at-least-32-chars-long",
		DBPassword:            "secure-password",
		Port:                  "8080",
		AuditRetentionDays:    90,
		AuditRetentionActorID: 1,
	}
}

func TestConfig_ValidateSSLMode(t *testing.T) {
	tests := []struct {
		name        string
		env         string
		sslMode     string
		expectError bool
	}{
		{"Production with empty SSL mode", "production", "", true},
		{"Production with disable SSL mode", "production", "disable", true},
		{"Production with require SSL mode", "production", "require", false},
		{"Prod with verify-full SSL mode", "prod", "verify-full", false},
		{"Development with disable SSL mode", "development", "disable", false},
		{"Test with empty SSL mode", "test", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validProductionConfig()
			c.Env = tt.env
			c.DBSSLMode = tt.sslMode

			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_ValidateProductionSecrets(t *testing.T) {
	t.Run("default secret rejected", func(t *testing.T) {
		c := validProductionConfig()
		c.JWTSecret = defaultJWTSecret
		assert.Error(t, c.Validate())
	})

	t.Run("retention needs a system actor", func(t *testing.T) {
		c := validProductionConfig()
		c.AuditRetentionActorID = 0
		assert.Error(t, c.Validate())

		c.AuditRetentionDays = 0
		assert.NoError(t, c.Validate())
	})

	t.Run("negative depth rejected", func(t *testing.T) {
		c := validProductionConfig()
		c.MaxThreadDepth = -1
		assert.Error(t, c.Validate())
	})
}

func TestConfig_AuditRetention(t *testing.T) {
	c := &Config{AuditRetentionDays: 2}
	assert.Equal(t, 48*time.Hour, c.AuditRetention())

	c.AuditRetentionDays = 0
	assert.Zero(t, c.AuditRetention())
}

func TestLoadConfig_Defaults(t *testing.T) {
	defer os.Unsetenv("APP_ENV")
	defer os.Unsetenv("DB_SSLMODE")
	defer viper.Reset()

	os.Setenv("APP_ENV", "development")
	os.Setenv("DB_SSLMODE", "  DISABLE  ")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "disable", c.DBSSLMode)
	assert.Equal(t, 5, c.MaxThreadDepth)
	assert.Equal(t, 24*time.Hour, c.AuditRetentionInterval)
}
