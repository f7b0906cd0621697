package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Supported authentication methods
const (
	AuthMethodToken = "token"
	AuthMethodBasic = "basic"
)

// Supported output formats
const (
	OutputRich = "rich"
	OutputJSON = "json"
)

// ErrMissingURL is returned by Validate when TRUENAS_URL is not set
var ErrMissingURL = errors.New("TRUENAS_URL is not set")

// Config holds the application configuration
type Config struct {
	LogLevel     string
	OutputFormat string

	// Appliance connection
	TrueNASURL string // always ends with "/"
	AuthMethod string
	APIKey     string
	Username   string
	Password   string
	VerifySSL  bool
	Timeout    time.Duration

	// Backup
	BackupDir                    string
	BackupSecretSeed             bool
	BackupRootAuthorizedKeys     bool
	DeleteLocalBackupAfterUpload bool

	// Object storage
	S3EndpointURL     string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3BucketName      string
	S3Region          string

	// Optional Prometheus textfile output
	TextfilePath string
}

// NewConfig creates a new configuration from the process environment
func NewConfig() *Config {
	return &Config{
		LogLevel:                     "info",
		OutputFormat:                 OutputRich,
		TrueNASURL:                   normalizeURL(os.Getenv("TRUENAS_URL")),
		AuthMethod:                   strings.ToLower(strings.TrimSpace(getEnv("AUTH_METHOD", AuthMethodToken))),
		APIKey:                       os.Getenv("API_KEY"),
		Username:                     os.Getenv("TRUENAS_USER"),
		Password:                     os.Getenv("TRUENAS_PASS"),
		VerifySSL:                    getEnvAsBool("TRUENAS_VERIFY_SSL", false),
		Timeout:                      time.Duration(getEnvAsInt("TRUENAS_TIMEOUT_SECONDS", 10)) * time.Second,
		BackupDir:                    getEnv("BACKUP_DIR", "."),
		BackupSecretSeed:             getEnvAsBool("BACKUP_SECRET_SEED", true),
		BackupRootAuthorizedKeys:     getEnvAsBool("BACKUP_ROOT_AUTHORIZED_KEYS", true),
		DeleteLocalBackupAfterUpload: getEnvAsBool("DELETE_LOCAL_BACKUP_AFTER_UPLOAD", false),
		S3EndpointURL:                os.Getenv("S3_ENDPOINT_URL"),
		S3AccessKeyID:                os.Getenv("S3_ACCESS_KEY_ID"),
		S3SecretAccessKey:            os.Getenv("S3_SECRET_ACCESS_KEY"),
		S3BucketName:                 os.Getenv("S3_BUCKET_NAME"),
		S3Region:                     os.Getenv("S3_REGION"),
	}
}

// LoadEnvFile loads variables from a dotenv file into the process environment.
// Variables that are already set win. A missing default file is not an error.
func LoadEnvFile(path string, required bool) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) && !required {
			return nil
		}
		return fmt.Errorf("env file %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// Validate checks the settings that are required before any request is issued
func (c *Config) Validate() error {
	if c.TrueNASURL == "" {
		return ErrMissingURL
	}

	switch c.AuthMethod {
	case AuthMethodBasic:
		if c.Username == "" || c.Password == "" {
			return fmt.Errorf("TRUENAS_USER and TRUENAS_PASS are required for basic authentication")
		}
	case AuthMethodToken:
		if c.APIKey == "" {
			return fmt.Errorf("API_KEY is required for token authentication")
		}
	default:
		return fmt.Errorf("authentication method %q is not supported, use %q or %q", c.AuthMethod, AuthMethodBasic, AuthMethodToken)
	}

	if c.OutputFormat != OutputRich && c.OutputFormat != OutputJSON {
		return fmt.Errorf("invalid output format %q, must be one of: %s, %s", c.OutputFormat, OutputRich, OutputJSON)
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("TRUENAS_TIMEOUT_SECONDS must be positive")
	}

	return nil
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// IsJSON returns true if the snapshot is printed as a JSON document
func (c *Config) IsJSON() bool {
	return c.OutputFormat == OutputJSON
}

// S3Configured returns true when every setting needed for an upload is present
func (c *Config) S3Configured() bool {
	return c.S3EndpointURL != "" && c.S3AccessKeyID != "" && c.S3SecretAccessKey != "" && c.S3BucketName != ""
}

// MissingS3Settings lists the unset upload settings, for log messages
func (c *Config) MissingS3Settings() []string {
	var missing []string
	if c.S3EndpointURL == "" {
		missing = append(missing, "S3_ENDPOINT_URL")
	}
	if c.S3AccessKeyID == "" {
		missing = append(missing, "S3_ACCESS_KEY_ID")
	}
	if c.S3SecretAccessKey == "" {
		missing = append(missing, "S3_SECRET_ACCESS_KEY")
	}
	if c.S3BucketName == "" {
		missing = append(missing, "S3_BUCKET_NAME")
	}
	return missing
}

// normalizeURL trims whitespace and guarantees a single trailing slash
func normalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	return strings.TrimRight(raw, "/") + "/"
}

// getEnv reads an environment variable or returns the default value if not set
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt reads an environment variable and returns it as an integer,
// or returns the default value if not set or invalid
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

// getEnvAsBool reads an environment variable as a boolean.
// "true", "yes" and "1" are true, "false", "no" and "0" are false,
// anything else returns the default value.
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch valueStr {
	case "true", "yes", "1":
		return true
	case "false", "no", "0":
		return false
	default:
		return defaultValue
	}
}
