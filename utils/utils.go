package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"jobdispatch-backend/models"

	"github.com/google/uuid"
	"github.com/spf13/viper"
)

const defaultJWTSecret = "change-me-dispatch-secret"

// GetConfig read the configuration from environment variables or config files
func GetConfig() (*models.Config, error) {
	config, err := Load()
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}
	return config, nil
}

// Load initializes and returns the application configuration using Viper
func Load() (*models.Config, error) {
	return LoadFrom(viper.New())
}

// LoadFrom reads configuration into v and unmarshals it
func LoadFrom(v *viper.Viper) (*models.Config, error) {
	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../")

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "Config file not found (%v), using defaults and environment variables\n", err)
	} else {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", v.ConfigFileUsed())
	}

	if v.IsSet("app") {
		flattenNestedConfig(v)
	}

	var config models.Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if v.IsSet("jwt.expires_in") {
		expiresStr := v.GetString("jwt.expires_in")
		if expiresStr != "" {
			expires, err := time.ParseDuration(expiresStr)
			if err != nil {
				return nil, fmt.Errorf("invalid JWT expires_in format: %w", err)
			}
			config.JWTExpiresIn = expires
		}
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("app_name", "Job Dispatch Backend")
	v.SetDefault("app_version", "1.0.0")
	v.SetDefault("app_env", "development")
	v.SetDefault("app_host", "0.0.0.0")
	v.SetDefault("app_port", "8081")

	v.SetDefault("jwt_secret", defaultJWTSecret)
	v.SetDefault("jwt_expires_in", 8*time.Hour)

	v.SetDefault("aws_region", "us-east-1")
	v.SetDefault("aws_access_key_id", "")
	v.SetDefault("aws_secret_access_key", "")
	v.SetDefault("dynamodb_endpoint", "")
	v.SetDefault("dynamodb_table_prefix", "dev")

	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)

	v.SetDefault("minio_endpoint", "localhost:9000")
	v.SetDefault("minio_access_key", "")
	v.SetDefault("minio_secret_key", "")
	v.SetDefault("minio_bucket", "job-reports")
	v.SetDefault("minio_secure", false)
	v.SetDefault("report_max_bytes", 20<<20)

	v.SetDefault("default_max_jobs", models.DefaultMaxJobs)
	v.SetDefault("action_guard_ttl", 30*time.Second)
	v.SetDefault("reconcile_schedule", "0 */15 * * * *")
	v.SetDefault("reconcile_on_startup", true)

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")

	v.SetDefault("cors_origins", []string{"*"})

	v.SetDefault("basePath", "/api/v1")

	v.SetDefault("tables", []string{"jobs", "technicians", "counters"})
}

// validate checks if all required configuration is provided
func validate(c *models.Config) error {
	if c.JWTSecret == defaultJWTSecret && c.AppEnv == "production" {
		return fmt.Errorf("JWT_SECRET must be set in production environment")
	}

	if c.DynamoDBTablePrefix == "" {
		return fmt.Errorf("dynamodb_table_prefix must not be empty")
	}

	if c.DefaultMaxJobs <= 0 {
		return fmt.Errorf("default_max_jobs must be positive, got %d", c.DefaultMaxJobs)
	}

	if c.AppEnv == "production" && c.AWSAccessKeyID == "" {
		fmt.Println("No AWS credentials provided, assuming IAM role is used")
	}

	return nil
}

// flattenNestedConfig maps the nested config.json sections onto flat keys
func flattenNestedConfig(v *viper.Viper) {
	sections := map[string]string{
		"app.name":                  "app_name",
		"app.version":               "app_version",
		"app.env":                   "app_env",
		"app.host":                  "app_host",
		"app.port":                  "app_port",
		"jwt.secret":                "jwt_secret",
		"aws.region":                "aws_region",
		"aws.access_key_id":         "aws_access_key_id",
		"aws.secret_access_key":     "aws_secret_access_key",
		"aws.dynamodb_endpoint":     "dynamodb_endpoint",
		"aws.dynamodb_table_prefix": "dynamodb_table_prefix",
		"redis.addr":                "redis_addr",
		"redis.password":            "redis_password",
		"minio.endpoint":            "minio_endpoint",
		"minio.access_key":          "minio_access_key",
		"minio.secret_key":          "minio_secret_key",
		"minio.bucket":              "minio_bucket",
		"allocation.reconcile":      "reconcile_schedule",
		"logging.level":             "log_level",
		"logging.format":            "log_format",
	}
	for nested, flat := range sections {
		if v.IsSet(nested) {
			v.Set(flat, v.GetString(nested))
		}
	}

	if v.IsSet("redis.db") {
		v.Set("redis_db", v.GetInt("redis.db"))
	}
	if v.IsSet("minio.secure") {
		v.Set("minio_secure", v.GetBool("minio.secure"))
	}
	if v.IsSet("allocation.default_max_jobs") {
		v.Set("default_max_jobs", v.GetInt("allocation.default_max_jobs"))
	}
	if v.IsSet("cors.origins") {
		v.Set("cors_origins", v.GetStringSlice("cors.origins"))
	}
}

// PrintPrettyJSON takes any struct or map and prints it as pretty JSON
func PrintPrettyJSON(data interface{}) string {
	prettyJSON, err := json.MarshalIndent(data, "", "    ")
	if err != nil {
		fmt.Println("Failed to generate JSON:", err)
		return ""
	}
	return string(prettyJSON)
}

// GenerateUUID returns a new UUID string
func GenerateUUID() string {
	return uuid.New().String()
}
