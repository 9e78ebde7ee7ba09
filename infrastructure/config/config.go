package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Storage backends
const (
	StorageDynamoDB = "dynamodb"
	StorageFile     = "file"
)

// Metrics backends
const (
	MetricsPrometheus = "prometheus"
	MetricsCloudWatch = "cloudwatch"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string
	Environment   string

	// Storage configuration
	StorageBackend string
	DataDir        string

	// AWS configuration
	AWSRegion        string
	DynamoDBTable    string
	ConnectionsTable string
	EventBusName     string

	// Lambda configuration
	IsLambda           bool
	LambdaFunctionName string

	// WebSocket configuration
	WebSocketEndpoint string

	// Rendering engine
	RenderEndpoint string
	RenderTimeout  time.Duration

	// Canvas sessions
	CanvasIdleTimeout time.Duration
	DiagramDirection  string

	// Logging
	LogLevel string

	// Authentication
	JWTSecret  string
	JWTIssuer  string
	SessionTTL time.Duration
	UsersFile  string

	// Metrics
	MetricsBackend   string
	MetricsNamespace string

	// Feature flags
	EnableTracing   bool
	EnableCORS      bool
	EnableRateLimit bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerAddress: getEnv("SERVER_ADDRESS", ":8080"),
		Environment:   getEnv("ENVIRONMENT", "development"),

		StorageBackend: getEnv("STORAGE_BACKEND", StorageFile),
		DataDir:        getEnv("DATA_DIR", "./data"),

		AWSRegion:        getEnv("AWS_REGION", "us-west-2"),
		DynamoDBTable:    getEnv("TABLE_NAME", getEnv("DYNAMODB_TABLE", "pulse-diagrams")),
		ConnectionsTable: getEnv("CONNECTIONS_TABLE", "pulse-connections"),
		EventBusName:     getEnv("EVENT_BUS_NAME", ""),

		// Lambda configuration
		IsLambda:           getEnvBool("IS_LAMBDA", false),
		LambdaFunctionName: getEnv("AWS_LAMBDA_FUNCTION_NAME", ""),

		WebSocketEndpoint: getEnv("WEBSOCKET_ENDPOINT", ""),

		RenderEndpoint: getEnv("RENDER_ENDPOINT", "http://localhost:8000"),
		RenderTimeout:  time.Duration(getEnvInt("RENDER_TIMEOUT_MS", 10000)) * time.Millisecond,

		CanvasIdleTimeout: time.Duration(getEnvInt("CANVAS_IDLE_TIMEOUT_MIN", 30)) * time.Minute,
		DiagramDirection:  getEnv("DIAGRAM_DIRECTION", "TD"),

		// Authentication
		JWTSecret:  getEnv("JWT_SECRET", ""),
		JWTIssuer:  getEnv("JWT_ISSUER", "pulse-backend"),
		SessionTTL: time.Duration(getEnvInt("SESSION_TTL_HOURS", 8)) * time.Hour,
		UsersFile:  getEnv("USERS_FILE", ""),

		MetricsBackend:   getEnv("METRICS_BACKEND", MetricsPrometheus),
		MetricsNamespace: getEnv("METRICS_NAMESPACE", "pulse"),

		// Logging and features
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		EnableTracing:   getEnvBool("ENABLE_TRACING", false),
		EnableCORS:      getEnvBool("ENABLE_CORS", true),
		EnableRateLimit: getEnvBool("ENABLE_RATE_LIMIT", true),
	}

	// Lambda always talks to DynamoDB and CloudWatch
	if cfg.LambdaFunctionName != "" {
		cfg.IsLambda = true
	}

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	switch c.StorageBackend {
	case StorageDynamoDB:
		if c.DynamoDBTable == "" {
			return fmt.Errorf("DYNAMODB_TABLE is required for the dynamodb storage backend")
		}
	case StorageFile:
		if c.DataDir == "" {
			return fmt.Errorf("DATA_DIR is required for the file storage backend")
		}
		if c.IsLambda {
			return fmt.Errorf("file storage backend is not supported on Lambda")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}

	switch c.MetricsBackend {
	case MetricsPrometheus, MetricsCloudWatch:
	default:
		return fmt.Errorf("unknown METRICS_BACKEND %q", c.MetricsBackend)
	}

	if c.RenderEndpoint == "" {
		return fmt.Errorf("RENDER_ENDPOINT is required")
	}
	if c.RenderTimeout <= 0 {
		return fmt.Errorf("RENDER_TIMEOUT_MS must be positive")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL_HOURS must be positive")
	}

	if c.Environment == "production" {
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
		if c.UsersFile == "" {
			return fmt.Errorf("USERS_FILE is required in production")
		}
	}

	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// SigningSecret returns the JWT secret, falling back to a fixed
// development value outside production.
func (c *Config) SigningSecret() []byte {
	if c.JWTSecret == "" {
		return []byte("pulse-development-secret")
	}
	return []byte(c.JWTSecret)
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
