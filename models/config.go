package models

import "time"

// Config holds all configuration for the application
type Config struct {
	// Application
	AppName    string `mapstructure:"app_name"`
	AppVersion string `mapstructure:"app_version"`
	AppEnv     string `mapstructure:"app_env"`
	AppHost    string `mapstructure:"app_host"`
	AppPort    string `mapstructure:"app_port"`

	// JWT
	JWTSecret    string        `mapstructure:"jwt_secret"`
	JWTExpiresIn time.Duration `mapstructure:"jwt_expires_in"`

	// AWS
	AWSRegion           string `mapstructure:"aws_region"`
	AWSAccessKeyID      string `mapstructure:"aws_access_key_id"`
	AWSSecretAccessKey  string `mapstructure:"aws_secret_access_key"`
	DynamoDBEndpoint    string `mapstructure:"dynamodb_endpoint"`
	DynamoDBTablePrefix string `mapstructure:"dynamodb_table_prefix"`

	// Redis (optional; job numbers and in-flight guards)
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`

	// Report storage
	MinioEndpoint  string `mapstructure:"minio_endpoint"`
	MinioAccessKey string `mapstructure:"minio_access_key"`
	MinioSecretKey string `mapstructure:"minio_secret_key"`
	MinioBucket    string `mapstructure:"minio_bucket"`
	MinioSecure    bool   `mapstructure:"minio_secure"`
	ReportMaxBytes int64  `mapstructure:"report_max_bytes"`

	// Allocation
	DefaultMaxJobs     int           `mapstructure:"default_max_jobs"`
	ActionGuardTTL     time.Duration `mapstructure:"action_guard_ttl"`
	ReconcileSchedule  string        `mapstructure:"reconcile_schedule"`
	ReconcileOnStartup bool          `mapstructure:"reconcile_on_startup"`

	// Logging
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	// CORS
	CORSOrigins []string `mapstructure:"cors_origins"`

	// Base Path
	BasePath string `mapstructure:"basePath"`

	Tables []string `mapstructure:"tables"`
}

// JobsTable returns the prefixed jobs table name
func (c *Config) JobsTable() string {
	return c.DynamoDBTablePrefix + "_jobs"
}

// TechniciansTable returns the prefixed technicians table name
func (c *Config) TechniciansTable() string {
	return c.DynamoDBTablePrefix + "_technicians"
}

// CountersTable returns the prefixed counters table name
func (c *Config) CountersTable() string {
	return c.DynamoDBTablePrefix + "_counters"
}
