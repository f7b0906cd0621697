package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configEnvKeys = []string{
	"TRUENAS_URL", "API_KEY", "TRUENAS_USER", "TRUENAS_PASS", "AUTH_METHOD",
	"TRUENAS_VERIFY_SSL", "TRUENAS_TIMEOUT_SECONDS", "BACKUP_DIR",
	"BACKUP_SECRET_SEED", "BACKUP_ROOT_AUTHORIZED_KEYS", "DELETE_LOCAL_BACKUP_AFTER_UPLOAD",
	"S3_ENDPOINT_URL", "S3_ACCESS_KEY_ID", "S3_SECRET_ACCESS_KEY", "S3_BUCKET_NAME", "S3_REGION",
}

// clearEnv unsets every variable read by NewConfig for the duration of the test
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configEnvKeys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestNewConfigDefaults(t *testing.T) {
	clearEnv(t)

	cfg := NewConfig()

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, OutputRich, cfg.OutputFormat)
	assert.Equal(t, "", cfg.TrueNASURL)
	assert.Equal(t, AuthMethodToken, cfg.AuthMethod)
	assert.False(t, cfg.VerifySSL)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.Equal(t, ".", cfg.BackupDir)
	assert.True(t, cfg.BackupSecretSeed)
	assert.True(t, cfg.BackupRootAuthorizedKeys)
	assert.False(t, cfg.DeleteLocalBackupAfterUpload)
	assert.False(t, cfg.S3Configured())
}

func TestNewConfigFromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("TRUENAS_URL", "https://nas.local/api/v2.0")
	t.Setenv("AUTH_METHOD", " Basic ")
	t.Setenv("TRUENAS_USER", "admin")
	t.Setenv("TRUENAS_PASS", "secret")
	t.Setenv("TRUENAS_VERIFY_SSL", "yes")
	t.Setenv("TRUENAS_TIMEOUT_SECONDS", "30")
	t.Setenv("DELETE_LOCAL_BACKUP_AFTER_UPLOAD", "1")
	t.Setenv("S3_ENDPOINT_URL", "https://s3.example.com")
	t.Setenv("S3_ACCESS_KEY_ID", "key")
	t.Setenv("S3_SECRET_ACCESS_KEY", "secret")
	t.Setenv("S3_BUCKET_NAME", "backups")

	cfg := NewConfig()

	assert.Equal(t, "https://nas.local/api/v2.0/", cfg.TrueNASURL)
	assert.Equal(t, AuthMethodBasic, cfg.AuthMethod)
	assert.True(t, cfg.VerifySSL)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.True(t, cfg.DeleteLocalBackupAfterUpload)
	assert.True(t, cfg.S3Configured())
	assert.Empty(t, cfg.MissingS3Settings())
	require.NoError(t, cfg.Validate())
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"   ", ""},
		{"https://nas/api/v2.0", "https://nas/api/v2.0/"},
		{"https://nas/api/v2.0/", "https://nas/api/v2.0/"},
		{"https://nas/api/v2.0//", "https://nas/api/v2.0/"},
		{" https://nas/api/v2.0 ", "https://nas/api/v2.0/"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeURL(tt.input))
		})
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			TrueNASURL:   "https://nas/api/v2.0/",
			AuthMethod:   AuthMethodToken,
			APIKey:       "1-abc",
			OutputFormat: OutputRich,
			Timeout:      10 * time.Second,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:   "valid token config",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing url",
			mutate:  func(c *Config) { c.TrueNASURL = "" },
			wantErr: "TRUENAS_URL",
		},
		{
			name:    "token without api key",
			mutate:  func(c *Config) { c.APIKey = "" },
			wantErr: "API_KEY",
		},
		{
			name: "basic without password",
			mutate: func(c *Config) {
				c.AuthMethod = AuthMethodBasic
				c.Username = "admin"
			},
			wantErr: "TRUENAS_PASS",
		},
		{
			name: "valid basic config",
			mutate: func(c *Config) {
				c.AuthMethod = AuthMethodBasic
				c.Username = "admin"
				c.Password = "secret"
			},
		},
		{
			name:    "unsupported auth method",
			mutate:  func(c *Config) { c.AuthMethod = "oauth" },
			wantErr: "not supported",
		},
		{
			name:    "invalid output format",
			mutate:  func(c *Config) { c.OutputFormat = "yaml" },
			wantErr: "invalid output format",
		},
		{
			name:    "non positive timeout",
			mutate:  func(c *Config) { c.Timeout = 0 },
			wantErr: "TRUENAS_TIMEOUT_SECONDS",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateMissingURLIsSentinel(t *testing.T) {
	cfg := &Config{AuthMethod: AuthMethodToken, APIKey: "x"}
	assert.ErrorIs(t, cfg.Validate(), ErrMissingURL)
}

func TestMissingS3Settings(t *testing.T) {
	cfg := &Config{S3EndpointURL: "https://s3", S3BucketName: "b"}
	assert.False(t, cfg.S3Configured())
	assert.Equal(t, []string{"S3_ACCESS_KEY_ID", "S3_SECRET_ACCESS_KEY"}, cfg.MissingS3Settings())
}

func TestIsDebugAndIsJSON(t *testing.T) {
	cfg := &Config{LogLevel: "debug", OutputFormat: OutputJSON}
	assert.True(t, cfg.IsDebug())
	assert.True(t, cfg.IsJSON())

	cfg = &Config{LogLevel: "info", OutputFormat: OutputRich}
	assert.False(t, cfg.IsDebug())
	assert.False(t, cfg.IsJSON())
}

func TestGetEnvAsInt(t *testing.T) {
	tests := []struct {
		name         string
		envValue     string
		defaultValue int
		want         int
	}{
		{"valid integer", "42", 10, 42},
		{"empty string", "", 10, 10},
		{"invalid integer", "not-a-number", 10, 10},
		{"zero value", "0", 10, 0},
		{"negative value", "-5", 10, -5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_INT_VALUE", tt.envValue)
			assert.Equal(t, tt.want, getEnvAsInt("TEST_INT_VALUE", tt.defaultValue))
		})
	}
}

func TestGetEnvAsBool(t *testing.T) {
	tests := []struct {
		envValue     string
		defaultValue bool
		want         bool
	}{
		{"true", false, true},
		{"TRUE", false, true},
		{"yes", false, true},
		{"1", false, true},
		{"false", true, false},
		{"no", true, false},
		{"0", true, false},
		{"", true, true},
		{"maybe", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.envValue, func(t *testing.T) {
			t.Setenv("TEST_BOOL_VALUE", tt.envValue)
			assert.Equal(t, tt.want, getEnvAsBool("TEST_BOOL_VALUE", tt.defaultValue))
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("TRUENAS_URL=https://from-file/api/v2.0\nAPI_KEY=file-key\n"), 0o600))

	// Process environment wins over the file
	t.Setenv("API_KEY", "env-key")

	require.NoError(t, LoadEnvFile(path, true))
	t.Cleanup(func() { os.Unsetenv("TRUENAS_URL") })

	cfg := NewConfig()
	assert.Equal(t, "https://from-file/api/v2.0/", cfg.TrueNASURL)
	assert.Equal(t, "env-key", cfg.APIKey)
}

func TestLoadEnvFileMissing(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.env")
	assert.NoError(t, LoadEnvFile(missing, false))
	assert.Error(t, LoadEnvFile(missing, true))
}
