package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	// Run from a directory without a .env file
	chdir(t, t.TempDir())
	for _, key := range []string{
		"BLEND_PRICES_SOURCE", "BLEND_STEPS", "BLEND_WORKERS", "BLEND_PORT",
		"BLEND_REFRESH_SCHEDULE", "LOG_LEVEL", "LOG_PRETTY",
		"BLEND_S3_REGION", "BLEND_S3_ENDPOINT", "BLEND_S3_ACCESS_KEY_ID", "BLEND_S3_SECRET_ACCESS_KEY",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultPricesSource, cfg.PricesSource)
	assert.Equal(t, 101, cfg.Steps)
	assert.Equal(t, 0, cfg.Workers)
	assert.Equal(t, 8001, cfg.Port)
	assert.Empty(t, cfg.RefreshSchedule)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.LogPretty)
	assert.Equal(t, "us-east-1", cfg.S3.Region)
	assert.False(t, cfg.S3.HasStaticCredentials())
}

func TestLoad_FromEnvironment(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("BLEND_PRICES_SOURCE", "s3://bucket/prices.csv")
	t.Setenv("BLEND_STEPS", "201")
	t.Setenv("BLEND_WORKERS", "4")
	t.Setenv("BLEND_PORT", "9100")
	t.Setenv("BLEND_REFRESH_SCHEDULE", " @every 5m ")
	t.Setenv("LOG_PRETTY", "false")
	t.Setenv("BLEND_S3_ACCESS_KEY_ID", "id")
	t.Setenv("BLEND_S3_SECRET_ACCESS_KEY", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "s3://bucket/prices.csv", cfg.PricesSource)
	assert.Equal(t, 201, cfg.Steps)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 9100, cfg.Port)
	assert.Equal(t, "@every 5m", cfg.RefreshSchedule)
	assert.False(t, cfg.LogPretty)
	assert.True(t, cfg.S3.HasStaticCredentials())
}

func TestLoad_InvalidIntFallsBackToDefault(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("BLEND_STEPS", "many")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 101, cfg.Steps)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{PricesSource: "prices.csv", Steps: 101, Port: 8001}
	}

	testCases := []struct {
		name   string
		mutate func(c *Config)
		errMsg string
	}{
		{"valid", func(c *Config) {}, ""},
		{"empty source", func(c *Config) { c.PricesSource = "  " }, "prices source"},
		{"too few steps", func(c *Config) { c.Steps = 1 }, "steps must be at least 2"},
		{"negative workers", func(c *Config) { c.Workers = -1 }, "workers"},
		{"port zero", func(c *Config) { c.Port = 0 }, "port out of range"},
		{"port too high", func(c *Config) { c.Port = 70000 }, "port out of range"},
		{"half credentials", func(c *Config) { c.S3.AccessKeyID = "id" }, "must be set together"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(cfg)

			err := cfg.Validate()
			if tc.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errMsg)
		})
	}
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (stand-in for testing.T.Chdir, added in Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatal(err)
		}
	})
}
