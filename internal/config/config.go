package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

// devAuthSecret signs cookies when AUTH_SECRET is unset outside production.
const devAuthSecret = "development-only-auth-secret-change-me"

// Config is the validated process configuration, read once at startup.
type Config struct {
	Environment string `env:"NODE_ENV" envDefault:"development" validate:"oneof=development production test"`

	Server    ServerConfig
	Logging   LoggingConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Admin     AdminBootstrapConfig
	Jobs      JobsConfig
	Tracing   TracingConfig
	Metrics   MetricsConfig
}

type ServerConfig struct {
	Host string `env:"HOST" envDefault:"0.0.0.0"`
	Port int    `env:"PORT" envDefault:"5000" validate:"min=1,max=65535"`
}

type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`
	Format string `env:"LOG_FORMAT" validate:"omitempty,oneof=console json"`
}

type DatabaseConfig struct {
	URL            string        `env:"DATABASE_URL,required,notEmpty" validate:"required"`
	MaxConnections int           `env:"DATABASE_MAX_CONNECTIONS" envDefault:"10" validate:"min=1"`
	ConnectTimeout time.Duration `env:"DATABASE_CONNECT_TIMEOUT" envDefault:"10s" validate:"min=0"`
}

type AuthConfig struct {
	Secret         string        `env:"AUTH_SECRET"`
	BaseURL        string        `env:"AUTH_BASE_URL" envDefault:"http://localhost:5000" validate:"url"`
	TrustedOrigins []string      `env:"AUTH_TRUSTED_ORIGINS" envSeparator:","`
	TrustedProxies []string      `env:"AUTH_TRUSTED_PROXIES" envSeparator:","`
	SessionExpiry  time.Duration `env:"AUTH_SESSION_EXPIRES_IN" envDefault:"168h" validate:"gt=0"`
	SessionUpdate  time.Duration `env:"AUTH_SESSION_UPDATE_AGE" envDefault:"24h" validate:"min=0"`
	CookieCacheTTL time.Duration `env:"AUTH_COOKIE_CACHE_MAX_AGE" envDefault:"5m" validate:"min=0"`
	CookiePrefix   string        `env:"AUTH_COOKIE_PREFIX" envDefault:"app" validate:"required,alphanum"`
	SignInPath     string        `env:"AUTH_SIGN_IN_PATH" envDefault:"/sign-in" validate:"startswith=/"`
}

type RateLimitConfig struct {
	Enabled bool          `env:"AUTH_RATE_LIMIT_ENABLED" envDefault:"true"`
	Window  time.Duration `env:"AUTH_RATE_LIMIT_WINDOW" envDefault:"60s" validate:"gt=0"`
	Max     int           `env:"AUTH_RATE_LIMIT_MAX" envDefault:"10" validate:"min=1"`
}

type AdminBootstrapConfig struct {
	Name     string `env:"ADMIN_NAME"`
	Email    string `env:"ADMIN_EMAIL" validate:"omitempty,email"`
	Password string `env:"ADMIN_PASSWORD"`
}

type JobsConfig struct {
	Enabled                bool          `env:"JOBS_ENABLED" envDefault:"true"`
	SessionCleanupInterval time.Duration `env:"JOBS_SESSION_CLEANUP_INTERVAL" envDefault:"1h" validate:"gt=0"`
}

type TracingConfig struct {
	Enabled      bool    `env:"TRACING_ENABLED" envDefault:"false"`
	Exporter     string  `env:"TRACING_EXPORTER" envDefault:"stdout" validate:"oneof=stdout otlp none"`
	ServiceName  string  `env:"TRACING_SERVICE_NAME" envDefault:"start-server"`
	OTLPEndpoint string  `env:"TRACING_OTLP_ENDPOINT" envDefault:"localhost:4317"`
	SampleRate   float64 `env:"TRACING_SAMPLE_RATE" envDefault:"1.0" validate:"min=0,max=1"`
}

type MetricsConfig struct {
	Enabled bool `env:"METRICS_ENABLED" envDefault:"true"`
}

// Load parses the process environment into a validated Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}

	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return Config{}, formatValidationErrors(verrs)
		}
		return Config{}, err
	}

	for _, cidr := range cfg.Auth.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			return Config{}, fmt.Errorf("AUTH_TRUSTED_PROXIES: invalid CIDR %q", cidr)
		}
	}

	if cfg.Auth.Secret == "" {
		if cfg.IsProduction() {
			return Config{}, fmt.Errorf("AUTH_SECRET is required in production")
		}
		cfg.Auth.Secret = devAuthSecret
	}
	if cfg.IsProduction() && len(cfg.Auth.Secret) < 32 {
		return Config{}, fmt.Errorf("AUTH_SECRET must be at least 32 characters in production")
	}

	bootstrap := cfg.Admin
	if (bootstrap.Email != "" || bootstrap.Password != "") && (bootstrap.Email == "" || bootstrap.Password == "") {
		return Config{}, fmt.Errorf("ADMIN_EMAIL and ADMIN_PASSWORD must be set together")
	}

	return cfg, nil
}

func (c Config) IsDevelopment() bool { return c.Environment == EnvDevelopment }
func (c Config) IsProduction() bool  { return c.Environment == EnvProduction }
func (c Config) IsTest() bool        { return c.Environment == EnvTest }

// Addr is the host:port the server listens on.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// envNames maps struct field paths to the variables they are read from so
// validation errors name what the operator actually sets.
var envNames = map[string]string{
	"Config.Environment":                 "NODE_ENV",
	"Config.Server.Port":                 "PORT",
	"Config.Logging.Level":               "LOG_LEVEL",
	"Config.Logging.Format":              "LOG_FORMAT",
	"Config.Database.URL":                "DATABASE_URL",
	"Config.Database.MaxConnections":     "DATABASE_MAX_CONNECTIONS",
	"Config.Database.ConnectTimeout":     "DATABASE_CONNECT_TIMEOUT",
	"Config.Auth.BaseURL":                "AUTH_BASE_URL",
	"Config.Auth.SessionExpiry":          "AUTH_SESSION_EXPIRES_IN",
	"Config.Auth.SessionUpdate":          "AUTH_SESSION_UPDATE_AGE",
	"Config.Auth.CookieCacheTTL":         "AUTH_COOKIE_CACHE_MAX_AGE",
	"Config.Auth.CookiePrefix":           "AUTH_COOKIE_PREFIX",
	"Config.Auth.SignInPath":             "AUTH_SIGN_IN_PATH",
	"Config.RateLimit.Window":            "AUTH_RATE_LIMIT_WINDOW",
	"Config.RateLimit.Max":               "AUTH_RATE_LIMIT_MAX",
	"Config.Admin.Email":                 "ADMIN_EMAIL",
	"Config.Jobs.SessionCleanupInterval": "JOBS_SESSION_CLEANUP_INTERVAL",
	"Config.Tracing.Exporter":            "TRACING_EXPORTER",
	"Config.Tracing.SampleRate":          "TRACING_SAMPLE_RATE",
}

func formatValidationErrors(verrs validator.ValidationErrors) error {
	errs := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		name, ok := envNames[fe.Namespace()]
		if !ok {
			name = fe.Namespace()
		}
		if fe.Param() != "" {
			errs = append(errs, fmt.Errorf("%s: failed %s=%s (got %v)", name, fe.Tag(), fe.Param(), fe.Value()))
		} else {
			errs = append(errs, fmt.Errorf("%s: failed %s (got %v)", name, fe.Tag(), fe.Value()))
		}
	}
	return errors.Join(errs...)
}
