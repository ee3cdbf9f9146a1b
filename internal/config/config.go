package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig
	Log       LogConfig
	Telemetry TelemetryConfig
	Alerts    AlertConfig
	Audit     AuditConfig
	Auth      AuthConfig
	Dashboard DashboardConfig
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
}

// LogConfig contains logging configuration
type LogConfig struct {
	Level  string
	Format string
}

// TelemetryConfig controls the request sample buffer
type TelemetryConfig struct {
	BufferCapacity int
	// ExcludedPaths are path prefixes hidden from the top endpoint ranking.
	ExcludedPaths []string
}

// AlertConfig holds the alert rule thresholds
type AlertConfig struct {
	ErrorRate     float64
	WarnErrorRate float64
	LatencyMs     float64
	MinRPM        float64
	MaxRPM        float64
	// EvalInterval refreshes the alert gauges in the background. Zero
	// disables it; the dashboard still evaluates on demand.
	EvalInterval time.Duration
}

// AuditConfig contains audit trail configuration
type AuditConfig struct {
	Enabled    bool
	Sink       string // "file", "badger", "memory"
	FilePath   string
	DataDir    string
	SyncWrites bool
	BufferSize int
	DropPolicy string // "drop", "block"
	// IngestRate limits the ingestion endpoint per client IP in requests
	// per second. Zero disables the limit.
	IngestRate  float64
	IngestBurst int
}

// AuthConfig configures bearer token identity extraction. Tokens are only
// parsed to attribute samples and events, never required.
type AuthConfig struct {
	JWTSecret string
	Issuer    string
}

// Enabled reports whether tokens can be verified.
func (a AuthConfig) Enabled() bool {
	return a.JWTSecret != ""
}

// DashboardConfig contains dashboard composition settings
type DashboardConfig struct {
	TotalUsers int
}

// Load loads configuration from environment variables with defaults
func Load() (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Host:            getEnvString("VIGIL_HOST", ""),
			Port:            getEnvInt("VIGIL_PORT", 8888),
			ShutdownTimeout: getEnvDuration("VIGIL_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Log: LogConfig{
			Level:  getEnvString("VIGIL_LOG_LEVEL", "info"),
			Format: getEnvString("VIGIL_LOG_FORMAT", "text"),
		},
		Telemetry: TelemetryConfig{
			BufferCapacity: getEnvInt("VIGIL_BUFFER_CAPACITY", 10000),
			ExcludedPaths:  getEnvStringSlice("VIGIL_EXCLUDED_PATHS", []string{"/admin/metrics"}),
		},
		Alerts: AlertConfig{
			ErrorRate:     getEnvFloat("VIGIL_ALERT_ERROR_RATE", 5),
			WarnErrorRate: getEnvFloat("VIGIL_ALERT_WARN_ERROR_RATE", 2),
			LatencyMs:     getEnvFloat("VIGIL_ALERT_LATENCY_MS", 2000),
			MinRPM:        getEnvFloat("VIGIL_ALERT_MIN_RPM", 1),
			MaxRPM:        getEnvFloat("VIGIL_ALERT_MAX_RPM", 100),
			EvalInterval:  getEnvDuration("VIGIL_ALERT_EVAL_INTERVAL", 30*time.Second),
		},
		Audit: AuditConfig{
			Enabled:     getEnvBool("VIGIL_AUDIT_ENABLED", true),
			Sink:        getEnvString("VIGIL_AUDIT_SINK", "file"),
			FilePath:    getEnvString("VIGIL_AUDIT_FILE", "./data/audit.log"),
			DataDir:     getEnvString("VIGIL_AUDIT_DATA_DIR", "./data/audit"),
			SyncWrites:  getEnvBool("VIGIL_AUDIT_SYNC_WRITES", true),
			BufferSize:  getEnvInt("VIGIL_AUDIT_BUFFER_SIZE", 1024),
			DropPolicy:  getEnvString("VIGIL_AUDIT_DROP_POLICY", "drop"),
			IngestRate:  getEnvFloat("VIGIL_AUDIT_INGEST_RATE", 50),
			IngestBurst: getEnvInt("VIGIL_AUDIT_INGEST_BURST", 100),
		},
		Auth: AuthConfig{
			JWTSecret: getEnvString("VIGIL_JWT_SECRET", ""),
			Issuer:    getEnvString("VIGIL_JWT_ISSUER", "vigil"),
		},
		Dashboard: DashboardConfig{
			TotalUsers: getEnvInt("VIGIL_TOTAL_USERS", 0),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d (must be 1-65535)", c.Server.Port)
	}

	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("invalid shutdown timeout: %v (must be positive)", c.Server.ShutdownTimeout)
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.Log.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Log.Level)
	}

	validLogFormats := map[string]bool{
		"text": true,
		"json": true,
	}
	if !validLogFormats[c.Log.Format] {
		return fmt.Errorf("invalid log format: %s (must be text or json)", c.Log.Format)
	}

	if c.Telemetry.BufferCapacity <= 0 {
		return fmt.Errorf("invalid buffer capacity: %d (must be positive)", c.Telemetry.BufferCapacity)
	}

	if c.Alerts.ErrorRate < 0 || c.Alerts.WarnErrorRate < 0 || c.Alerts.LatencyMs < 0 ||
		c.Alerts.MinRPM < 0 || c.Alerts.MaxRPM < 0 || c.Alerts.EvalInterval < 0 {
		return fmt.Errorf("alert thresholds must not be negative")
	}

	if c.Alerts.WarnErrorRate > c.Alerts.ErrorRate {
		return fmt.Errorf("warning error rate %.2f exceeds error rate %.2f", c.Alerts.WarnErrorRate, c.Alerts.ErrorRate)
	}

	if c.Alerts.MinRPM > c.Alerts.MaxRPM {
		return fmt.Errorf("minimum rpm %.2f exceeds maximum rpm %.2f", c.Alerts.MinRPM, c.Alerts.MaxRPM)
	}

	// Validate audit configuration if enabled
	if c.Audit.Enabled {
		switch c.Audit.Sink {
		case "file":
			if c.Audit.FilePath == "" {
				return fmt.Errorf("audit file path must be specified for the file sink")
			}
		case "badger":
			if c.Audit.DataDir == "" {
				return fmt.Errorf("audit data directory must be specified for the badger sink")
			}
		case "memory":
		default:
			return fmt.Errorf("invalid audit sink: %s (must be file, badger, or memory)", c.Audit.Sink)
		}

		if c.Audit.BufferSize <= 0 {
			return fmt.Errorf("audit buffer size must be positive")
		}

		if c.Audit.DropPolicy != "drop" && c.Audit.DropPolicy != "block" {
			return fmt.Errorf("invalid audit drop policy: %s (must be drop or block)", c.Audit.DropPolicy)
		}

		if c.Audit.IngestRate < 0 {
			return fmt.Errorf("audit ingest rate must not be negative")
		}

		if c.Audit.IngestRate > 0 && c.Audit.IngestBurst <= 0 {
			return fmt.Errorf("audit ingest burst must be positive when the ingest rate is limited")
		}
	}

	if c.Auth.Enabled() && c.Auth.Issuer == "" {
		return fmt.Errorf("JWT issuer must be specified when a JWT secret is set")
	}

	if c.Dashboard.TotalUsers < 0 {
		return fmt.Errorf("total users must not be negative")
	}

	return nil
}

// Address returns the server address in host:port format
func (c *Config) Address() string {
	if c.Server.Host == "" {
		return fmt.Sprintf(":%d", c.Server.Port)
	}
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// getEnvString gets a string environment variable with a default value
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvDuration gets a duration environment variable with a default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvFloat gets a float environment variable with a default value
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvStringSlice gets a comma-separated string environment variable as a slice with a default value
func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		result := []string{}
		for _, v := range strings.Split(value, ",") {
			if v = strings.TrimSpace(v); v != "" {
				result = append(result, v)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}
