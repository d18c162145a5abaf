package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

const (
	EnvProduction = "production"

	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
)

// Config is built once at start-up and passed down; nothing reads the
// environment after Load returns.
type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	Store    StoreConfig
	Mongo    MongoConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Password PasswordConfig
	Auth     AuthConfig
	Docs     DocsConfig
}

type StoreConfig struct {
	Driver          string        `env:"STORE_DRIVER,               default=sqlite"`
	DSN             string        `env:"DATABASE_DSN,               default=file:accounts.db?cache=shared"`
	AutoMigrate     bool          `env:"DATABASE_AUTO_MIGRATE,      default=true"`
	LogLevel        string        `env:"DATABASE_LOG_LEVEL,         default=warn"`
	SlowQuery       time.Duration `env:"DATABASE_SLOW_QUERY,        default=200ms"`
	MaxOpenConns    int           `env:"DATABASE_MAX_OPEN_CONNS,    default=25"`
	MaxIdleConns    int           `env:"DATABASE_MAX_IDLE_CONNS,    default=5"`
	ConnMaxLifetime time.Duration `env:"DATABASE_CONN_MAX_LIFETIME, default=30m"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=accounts"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

type JWTConfig struct {
	Secret     string        `env:"JWT_SECRET, required"`
	Issuer     string        `env:"JWT_ISSUER,        default=accounts-service"`
	AccessTTL  time.Duration `env:"ACCESS_TOKEN_TTL,  default=15m"`
	RefreshTTL time.Duration `env:"REFRESH_TOKEN_TTL, default=168h"`
}

type PasswordConfig struct {
	Hasher          string `env:"PASSWORD_HASHER,           default=bcrypt"`
	BcryptCost      int    `env:"BCRYPT_COST,               default=12"`
	MinLength       int    `env:"PASSWORD_MIN_LENGTH,       default=8"`
	CheckCommon     bool   `env:"PASSWORD_CHECK_COMMON,     default=true"`
	CheckNumeric    bool   `env:"PASSWORD_CHECK_NUMERIC,    default=true"`
	CheckSimilarity bool   `env:"PASSWORD_CHECK_SIMILARITY, default=true"`
	// CommonListFile extends the built-in common-password list (plain or gzip).
	CommonListFile  string `env:"PASSWORD_COMMON_LIST_FILE"`
}

type AuthConfig struct {
	// RequireVerified rejects unverified accounts on protected routes.
	RequireVerified bool `env:"AUTH_REQUIRE_VERIFIED, default=false"`
}

type DocsConfig struct {
	Enabled bool `env:"DOCS_ENABLED, default=true"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return LoadFrom(ctx, envconfig.OsLookuper())
}

// LoadFrom reads configuration from an arbitrary lookuper and validates it.
func LoadFrom(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("config: failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects combinations envconfig cannot express.
func (c *Config) Validate() error {
	var errs []error

	switch c.Store.Driver {
	case StoreSQLite, StorePostgres, StoreMongo:
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER must be one of sqlite, postgres, mongo; got %q", c.Store.Driver))
	}
	if strings.TrimSpace(c.JWT.Secret) == "" {
		errs = append(errs, errors.New("JWT_SECRET must not be empty"))
	}
	if c.JWT.AccessTTL <= 0 || c.JWT.RefreshTTL <= 0 {
		errs = append(errs, errors.New("token lifetimes must be positive"))
	} else if c.JWT.RefreshTTL <= c.JWT.AccessTTL {
		errs = append(errs, errors.New("REFRESH_TOKEN_TTL must be longer than ACCESS_TOKEN_TTL"))
	}
	switch strings.ToLower(c.Password.Hasher) {
	case "bcrypt", "argon2id":
	default:
		errs = append(errs, fmt.Errorf("PASSWORD_HASHER must be bcrypt or argon2id; got %q", c.Password.Hasher))
	}
	if c.Password.MinLength < 1 {
		errs = append(errs, errors.New("PASSWORD_MIN_LENGTH must be at least 1"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// IsProduction reports whether the service runs with production defaults.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, EnvProduction)
}
