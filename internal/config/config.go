package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/zacaytion/fixturekit/internal/validation"
)

// DefaultPort is the port the application under test listens on and the port
// fixture URIs are built against.
const DefaultPort = 2426

// Config holds all application configuration.
type Config struct {
	PG       PGConfig       `mapstructure:"pg"`
	Server   ServerConfig   `mapstructure:"server"`
	Fixtures FixturesConfig `mapstructure:"fixtures"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// Validate checks if all configuration sections have valid values.
func (c Config) Validate() error {
	return validation.Validate(c)
}

// PGConfig holds PostgreSQL connection settings.
// Environment variables use the FIXTUREKIT_PG_* prefix (e.g., FIXTUREKIT_PG_HOST).
type PGConfig struct {
	Host     string `mapstructure:"host" validate:"required"`
	Port     int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Database string `mapstructure:"database" validate:"required"`
	SSLMode  string `mapstructure:"sslmode" validate:"required,sslmode"`
	User     string `mapstructure:"user" validate:"required"`
	Password string `mapstructure:"password"`

	// Schema holds every resource table. DropAll drops and recreates it.
	Schema string `mapstructure:"schema" validate:"required,identifier"`

	// AllowDrop permits DropAll on a database whose name does not end in _test.
	AllowDrop bool `mapstructure:"allow_drop"`

	// ReadyTimeout bounds how long AwaitReady polls the server.
	ReadyTimeout time.Duration `mapstructure:"ready_timeout" validate:"required,gt=0"`

	// Connection pool settings
	MaxConns          int32         `mapstructure:"max_conns" validate:"required,min=1"`
	MinConns          int32         `mapstructure:"min_conns" validate:"min=0,ltefield=MaxConns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime" validate:"required,gt=0"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time" validate:"required,gt=0"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period" validate:"required,gt=0"`
}

// DSN returns the PostgreSQL connection string for pgx.
func (c PGConfig) DSN() string {
	dsn := fmt.Sprintf("host=%s port=%d user=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Database, c.SSLMode)
	if c.Password != "" {
		dsn += fmt.Sprintf(" password='%s'", escapePassword(c.Password))
	}
	return dsn
}

// SSLMode represents valid PostgreSQL SSL modes.
// PGConfig keeps SSLMode as a string to simplify Viper unmarshaling;
// validation is handled by the "sslmode" validator in internal/validation.
type SSLMode string

// Valid SSL modes for PostgreSQL connections.
const (
	SSLModeDisable    SSLMode = "disable"
	SSLModeAllow      SSLMode = "allow"
	SSLModePrefer     SSLMode = "prefer"
	SSLModeRequire    SSLMode = "require"
	SSLModeVerifyCA   SSLMode = "verify-ca"
	SSLModeVerifyFull SSLMode = "verify-full"
)

// Valid returns true if the SSLMode is a recognized PostgreSQL SSL mode.
func (m SSLMode) Valid() bool {
	switch m {
	case SSLModeDisable, SSLModeAllow, SSLModePrefer, SSLModeRequire, SSLModeVerifyCA, SSLModeVerifyFull:
		return true
	default:
		return false
	}
}

// escapePassword escapes backslashes and single quotes for a single-quoted DSN value.
func escapePassword(password string) string {
	escaped := strings.ReplaceAll(password, `\`, `\\`)
	return strings.ReplaceAll(escaped, `'`, `\'`)
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string        `mapstructure:"host" validate:"required"`
	Port         int           `mapstructure:"port" validate:"required,min=1,max=65535"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" validate:"required,gt=0"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" validate:"required,gt=0"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout" validate:"required,gt=0"`
}

// Addr returns the listen address for the server.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// FixturesConfig locates fixture files on disk.
type FixturesConfig struct {
	Dir string `mapstructure:"dir" validate:"required"`
}

// LogLevel represents valid log levels.
type LogLevel string

// Valid log levels.
const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// LogFormat represents valid log formats.
type LogFormat string

// Valid log formats.
const (
	LogFormatJSON LogFormat = "json"
	LogFormatText LogFormat = "text"
)

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,loglevel"`
	Format string `mapstructure:"format" validate:"required,logformat"`
	Output string `mapstructure:"output" validate:"required"`
}

// NewViper creates a new Viper instance with defaults set.
// Use this when you need to bind CLI flags before loading config.
func NewViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

// Load reads configuration from file, environment, and sets defaults.
// Priority: CLI flags > env vars > config file > defaults.
func Load(configPath string) (*Config, error) {
	return LoadWithViper(NewViper(), configPath)
}

// LoadWithViper reads configuration using a pre-configured Viper instance.
// This allows CLI flags to be bound to Viper before loading.
func LoadWithViper(v *viper.Viper, configPath string) (*Config, error) {
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("fixturekit")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("FIXTUREKIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// PostgreSQL defaults (env vars: FIXTUREKIT_PG_*)
	v.SetDefault("pg.host", "localhost")
	v.SetDefault("pg.port", 5432)
	v.SetDefault("pg.database", "fixturekit_test")
	v.SetDefault("pg.sslmode", "disable")
	v.SetDefault("pg.user", "postgres")
	v.SetDefault("pg.password", "")
	v.SetDefault("pg.schema", "app")
	v.SetDefault("pg.allow_drop", false)
	v.SetDefault("pg.ready_timeout", 30*time.Second)

	// Connection pool defaults
	v.SetDefault("pg.max_conns", 10)
	v.SetDefault("pg.min_conns", 1)
	v.SetDefault("pg.max_conn_lifetime", time.Hour)
	v.SetDefault("pg.max_conn_idle_time", 30*time.Minute)
	v.SetDefault("pg.health_check_period", time.Minute)

	// Server defaults
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", DefaultPort)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)

	// Fixture defaults
	v.SetDefault("fixtures.dir", "fixtures")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
}
