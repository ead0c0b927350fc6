package config

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
	Agent    AgentConfig    `mapstructure:"agent"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig holds the HTTP server configuration
type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

// DatabaseConfig holds the database configuration
type DatabaseConfig struct {
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	User     string        `mapstructure:"user"`
	Password string        `mapstructure:"password"`
	Name     string        `mapstructure:"name"`
	SSLMode  string        `mapstructure:"ssl_mode"`
	MaxConn  int           `mapstructure:"max_conn"`
	MaxIdle  int           `mapstructure:"max_idle"`
	MaxLife  time.Duration `mapstructure:"max_life"`
	Debug    bool          `mapstructure:"debug"`
}

// RedisConfig holds the Redis configuration
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Enabled  bool   `mapstructure:"enabled"`
}

// TracingConfig holds the tracing configuration
type TracingConfig struct {
	LicenseKey     string `mapstructure:"license_key"`
	AppName        string `mapstructure:"app_name"`
	DistribTracing bool   `mapstructure:"distributed_tracing_enabled"`
}

// AgentConfig holds the field agent configuration
type AgentConfig struct {
	ServerURL       string        `mapstructure:"server_url"`
	DatabasePath    string        `mapstructure:"database_path"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ProbeInterval   time.Duration `mapstructure:"probe_interval"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	ActorID         string        `mapstructure:"actor_id"`
	ActorRoles      string        `mapstructure:"actor_roles"`
}

// LoggingConfig holds the logging configuration
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// Load reads configuration from file or environment variables
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.AddConfigPath(path)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("BALETRACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine; environment variables and defaults apply.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.Wrap(err, "failed to read config file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8090)
	v.SetDefault("server.mode", "debug")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.name", "baletrack")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_conn", 20)
	v.SetDefault("database.max_idle", 5)
	v.SetDefault("database.max_life", time.Hour)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.enabled", false)

	v.SetDefault("tracing.app_name", "baletrack")

	v.SetDefault("agent.server_url", "http://localhost:8090")
	v.SetDefault("agent.database_path", "baletrack-agent.db")
	v.SetDefault("agent.request_timeout", 10*time.Second)
	v.SetDefault("agent.probe_interval", 15*time.Second)
	v.SetDefault("agent.refresh_interval", 5*time.Minute)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.json", false)
}
