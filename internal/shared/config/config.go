package config

import (
	"fmt"
	"time"

	"colony-server/internal/coordinate"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	SQLite    SQLiteConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Frontend  FrontendConfig
	Logging   LoggingConfig
	RateLimit RateLimitConfig
	Galaxy    GalaxyConfig
	Claims    ClaimsConfig
}

type ServerConfig struct {
	Port            string        `env:"SERVER_PORT" envDefault:"8080"`
	Environment     string        `env:"ENVIRONMENT" envDefault:"development"`
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"15s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

type DatabaseConfig struct {
	Host            string        `env:"DB_HOST" envDefault:"localhost"`
	Port            string        `env:"DB_PORT" envDefault:"5432"`
	User            string        `env:"DB_USER" envDefault:"postgres"`
	Password        string        `env:"DB_PASSWORD" envDefault:"postgres"`
	Name            string        `env:"DB_NAME" envDefault:"colonies"`
	SSLMode         string        `env:"DB_SSLMODE" envDefault:"disable"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"5m"`
}

type SQLiteConfig struct {
	Path string `env:"SQLITE_PATH" envDefault:"data/colonies.db"`
}

type RedisConfig struct {
	Enabled   bool   `env:"REDIS_ENABLED" envDefault:"false"`
	URL       string `env:"REDIS_URL"`
	Host      string `env:"REDIS_HOST" envDefault:"localhost"`
	Port      string `env:"REDIS_PORT" envDefault:"6379"`
	Password  string `env:"REDIS_PASSWORD"`
	DB        int    `env:"REDIS_DB" envDefault:"0"`
	KeyPrefix string `env:"REDIS_KEY_PREFIX" envDefault:"colony:"`
}

type AuthConfig struct {
	JWTSecret       string        `env:"JWT_SECRET"`
	TokenExpiration time.Duration `env:"JWT_EXPIRATION" envDefault:"24h"`
	CookieName      string        `env:"AUTH_COOKIE_NAME" envDefault:"auth_token"`
	CookieSecure    bool          `env:"AUTH_COOKIE_SECURE" envDefault:"false"`
	CookieSameSite  string        `env:"AUTH_COOKIE_SAMESITE" envDefault:"lax"`
}

type FrontendConfig struct {
	URL       string `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`
	CORSDebug bool   `env:"CORS_DEBUG" envDefault:"false"`
}

type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"debug"`
	Format string `env:"LOG_FORMAT" envDefault:"text"`
}

// JSONFormat reports whether logs should be emitted as JSON.
func (l LoggingConfig) JSONFormat() bool {
	return l.Format == "json"
}

type RateLimitConfig struct {
	Enabled           bool    `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	RequestsPerSecond float64 `env:"RATE_LIMIT_REQUESTS_PER_SECOND" envDefault:"2"`
	BurstSize         int     `env:"RATE_LIMIT_BURST_SIZE" envDefault:"5"`
	TrustProxy        bool    `env:"RATE_LIMIT_TRUST_PROXY" envDefault:"false"`
}

type GalaxyConfig struct {
	Galaxies         int    `env:"GALAXY_COUNT" envDefault:"9"`
	SystemsPerGalaxy int    `env:"GALAXY_SYSTEMS" envDefault:"499"`
	PositionsPerSys  int    `env:"GALAXY_POSITIONS" envDefault:"15"`
	ReservationsFile string `env:"GALAXY_RESERVATIONS_FILE"`
}

func (g GalaxyConfig) Bounds() coordinate.Bounds {
	return coordinate.Bounds{
		Galaxies:  g.Galaxies,
		Systems:   g.SystemsPerGalaxy,
		Positions: g.PositionsPerSys,
	}
}

type ClaimsConfig struct {
	// Store selects the persistence backend: postgres, sqlite, redis or memory.
	Store           string        `env:"CLAIM_STORE" envDefault:"postgres"`
	WriteTimeout    time.Duration `env:"CLAIM_WRITE_TIMEOUT" envDefault:"5s"`
	SnapshotTimeout time.Duration `env:"CLAIM_SNAPSHOT_TIMEOUT" envDefault:"5s"`
	FeedBuffer      int           `env:"CLAIM_FEED_BUFFER" envDefault:"64"`
	RetryMaxTries   uint          `env:"CLAIM_RETRY_MAX_TRIES" envDefault:"4"`
}

var GlobalConfig *Config

func Init() error {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using system environment variables")
	}

	config, err := Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := config.validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	GlobalConfig = config
	return nil
}

// Load parses the process environment without validating it.
func Load() (*Config, error) {
	var config Config
	if err := env.Parse(&config); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &config, nil
}

func (c *Config) validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters long")
	}

	if c.IsProduction() && !c.Auth.CookieSecure {
		return fmt.Errorf("AUTH_COOKIE_SECURE must be true in production")
	}

	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}

	return c.ValidateClaims()
}

// ValidateClaims checks the settings the claim services depend on. It needs
// no secrets, so colonyctl runs it on its own.
func (c *Config) ValidateClaims() error {
	if err := c.Galaxy.Bounds().Validate(); err != nil {
		return fmt.Errorf("galaxy bounds: %w", err)
	}

	switch c.Claims.Store {
	case "postgres":
		if c.Database.Host == "" {
			return fmt.Errorf("DB_HOST is required")
		}
		if c.Database.Name == "" {
			return fmt.Errorf("DB_NAME is required")
		}
	case "sqlite":
		if c.SQLite.Path == "" {
			return fmt.Errorf("SQLITE_PATH is required")
		}
	case "redis":
		if !c.Redis.Enabled {
			return fmt.Errorf("CLAIM_STORE=redis requires REDIS_ENABLED=true")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown CLAIM_STORE %q", c.Claims.Store)
	}

	if c.Claims.WriteTimeout <= 0 {
		return fmt.Errorf("CLAIM_WRITE_TIMEOUT must be positive")
	}

	if c.Claims.FeedBuffer < 1 {
		return fmt.Errorf("CLAIM_FEED_BUFFER must be at least 1")
	}

	if c.Claims.RetryMaxTries < 1 {
		return fmt.Errorf("CLAIM_RETRY_MAX_TRIES must be at least 1")
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

func (c DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.User,
		c.Password,
		c.Name,
		c.SSLMode,
	)
}
