package internal

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	Env           string              `mapstructure:"env" env:"APP_ENV" envDefault:"development"`
	Server        ServerConfig        `mapstructure:"http_server" envPrefix:"HTTP_"`
	Database      DatabaseConfig      `mapstructure:"database" envPrefix:"DB_"`
	Security      SecurityConfig      `mapstructure:"security" envPrefix:"SECURITY_"`
	Redis         RedisConfig         `mapstructure:"redis" envPrefix:"REDIS_"`
	Media         MediaConfig         `mapstructure:"media" envPrefix:"MEDIA_"`
	RoleCache     RoleCacheConfig     `mapstructure:"role_cache" envPrefix:"ROLE_CACHE_"`
	Observability ObservabilityConfig `mapstructure:"observability" envPrefix:"OBSERVABILITY_"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port" env:"PORT" envDefault:"8080" validate:"min=1,max=65535"`
	BaseURL           string        `mapstructure:"base_url" env:"BASE_URL"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" env:"READ_HEADER_TIMEOUT" envDefault:"5s"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout" env:"READ_TIMEOUT" envDefault:"15s"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout" env:"IDLE_TIMEOUT" envDefault:"60s"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout" env:"WRITE_TIMEOUT" envDefault:"15s"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

type DatabaseConfig struct {
	Source          string        `mapstructure:"source" env:"SOURCE" validate:"required"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" env:"MAX_OPEN_CONNS" envDefault:"20" validate:"min=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" env:"MAX_IDLE_CONNS" envDefault:"5" validate:"min=1"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" env:"CONN_MAX_LIFETIME" envDefault:"30m"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time" env:"CONN_MAX_IDLE_TIME" envDefault:"5m"`
	QueryTimeout    time.Duration `mapstructure:"query_timeout" env:"QUERY_TIMEOUT" envDefault:"5s"`
}

type SecurityConfig struct {
	JWTSecret           string        `mapstructure:"jwt_secret" env:"JWT_SECRET" validate:"required,min=32"`
	AccessTokenDuration time.Duration `mapstructure:"access_token_duration" env:"ACCESS_TOKEN_DURATION" envDefault:"168h" validate:"required"`
	CookieName          string        `mapstructure:"cookie_name" env:"COOKIE_NAME" envDefault:"access_token" validate:"required"`
	CookieSecure        bool          `mapstructure:"cookie_secure" env:"COOKIE_SECURE"`
	BCryptCost          int           `mapstructure:"bcrypt_cost" env:"BCRYPT_COST" envDefault:"12" validate:"min=4,max=15"`
	// RevocationCacheSize bounds the in-process revocation store used when
	// redis is not configured.
	RevocationCacheSize int           `mapstructure:"revocation_cache_size" env:"REVOCATION_CACHE_SIZE" envDefault:"10000" validate:"min=0"`
	BootstrapAdminEmail string        `mapstructure:"bootstrap_admin_email" env:"BOOTSTRAP_ADMIN_EMAIL" validate:"omitempty,email"`
	BootstrapAdminPass  string        `mapstructure:"bootstrap_admin_password" env:"BOOTSTRAP_ADMIN_PASSWORD"`
}

// RedisConfig is optional. An empty Addr keeps token revocation in process.
type RedisConfig struct {
	Addr     string `mapstructure:"addr" env:"ADDR"`
	Password string `mapstructure:"password" env:"PASSWORD"`
	DB       int    `mapstructure:"db" env:"DB" validate:"min=0"`
}

func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

type MediaConfig struct {
	UploadDir      string        `mapstructure:"upload_dir" env:"UPLOAD_DIR" envDefault:"uploads" validate:"required"`
	Workers        int           `mapstructure:"workers" env:"WORKERS" envDefault:"2" validate:"min=1"`
	QueueSize      int           `mapstructure:"queue_size" env:"QUEUE_SIZE" envDefault:"100" validate:"min=1"`
	MaxRetries     uint64        `mapstructure:"max_retries" env:"MAX_RETRIES" envDefault:"3"`
	RetryBaseDelay time.Duration `mapstructure:"retry_base_delay" env:"RETRY_BASE_DELAY" envDefault:"200ms"`
}

type RoleCacheConfig struct {
	Size int `mapstructure:"size" env:"SIZE" envDefault:"64" validate:"min=1"`
}

type ObservabilityConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics" envPrefix:"METRICS_"`
	Logging LoggingConfig `mapstructure:"logging" envPrefix:"LOGGING_"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" env:"ENABLED"`
	Path    string `mapstructure:"path" env:"PATH" envDefault:"/metrics" validate:"required_if=Enabled true"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" env:"LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" env:"FORMAT" envDefault:"text" validate:"oneof=json text"`
}

// LoadConfigFromEnv builds the configuration from process environment
// variables, used for container deployments.
func LoadConfigFromEnv() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return &cfg, nil
}

// ApplyDefaults fills the zero values a partial config.yml leaves behind.
func (c *Config) ApplyDefaults() {
	if c.Env == "" {
		c.Env = "development"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 30 * time.Second
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 20
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Database.QueryTimeout == 0 {
		c.Database.QueryTimeout = 5 * time.Second
	}
	if c.Security.AccessTokenDuration == 0 {
		c.Security.AccessTokenDuration = 7 * 24 * time.Hour
	}
	if c.Security.CookieName == "" {
		c.Security.CookieName = "access_token"
	}
	if c.Security.BCryptCost == 0 {
		c.Security.BCryptCost = 12
	}
	if c.Security.RevocationCacheSize == 0 {
		c.Security.RevocationCacheSize = 10000
	}
	if c.Media.UploadDir == "" {
		c.Media.UploadDir = "uploads"
	}
	if c.Media.Workers == 0 {
		c.Media.Workers = 2
	}
	if c.Media.QueueSize == 0 {
		c.Media.QueueSize = 100
	}
	if c.Media.RetryBaseDelay == 0 {
		c.Media.RetryBaseDelay = 200 * time.Millisecond
	}
	if c.RoleCache.Size == 0 {
		c.RoleCache.Size = 64
	}
	if c.Observability.Metrics.Path == "" {
		c.Observability.Metrics.Path = "/metrics"
	}
	if c.Observability.Logging.Level == "" {
		c.Observability.Logging.Level = "info"
	}
	if c.Observability.Logging.Format == "" {
		c.Observability.Logging.Format = "text"
	}
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := validator.New().Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				errs = append(errs, fmt.Sprintf("%s failed on %s", fe.Namespace(), fe.Tag()))
			}
		} else {
			errs = append(errs, err.Error())
		}
	}

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *DatabaseConfig) Validate() error {
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return c.Source
}
