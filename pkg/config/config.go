package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

const (
	// EnvPrefix scopes every environment variable this service reads.
	EnvPrefix = "SWMS"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "SWMS_DB_DSN"
	EnvDBHost = "SWMS_DB_HOST"
	EnvDBUser = "SWMS_DB_USER"
	EnvDBName = "SWMS_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Rewards      RewardsConfig
	Gateway      GatewayConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SWMS_APP_ENV" required:"true"`
	Port         string `envconfig:"SWMS_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SWMS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SWMS_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"SWMS_DB_DSN"`
	Driver string `envconfig:"SWMS_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SWMS_DB_HOST"`
	LegacyPort     int    `envconfig:"SWMS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SWMS_DB_USER"`
	LegacyPassword string `envconfig:"SWMS_DB_PASSWORD"`
	LegacyName     string `envconfig:"SWMS_DB_NAME"`
	LegacySSLMode  string `envconfig:"SWMS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SWMS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SWMS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SWMS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SWMS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the local sqlite driver is selected.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(db.Driver, "sqlite")
}

type RedisConfig struct {
	URL          string        `envconfig:"SWMS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SWMS_REDIS_ADDR"`
	Password     string        `envconfig:"SWMS_REDIS_PASSWORD"`
	DB           int           `envconfig:"SWMS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SWMS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SWMS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SWMS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SWMS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SWMS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"SWMS_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"SWMS_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"SWMS_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"SWMS_AUTO_MIGRATE" default:"false"`
}

// RewardsConfig carries the collection reward rates. The rates used to be
// module-level constants in the portal; they are injected here so they can be
// tested and tuned per deployment.
type RewardsConfig struct {
	StarPointsPerKg decimal.Decimal `envconfig:"SWMS_REWARD_STAR_POINTS_PER_KG" default:"10"`
	ChargePerKg     decimal.Decimal `envconfig:"SWMS_REWARD_CHARGE_PER_KG" default:"5"`
}

// GatewayConfig bounds the simulated card gateway. Latency stands in for the
// network round-trip; Timeout caps it, and a timeout is treated as a decline.
type GatewayConfig struct {
	Latency time.Duration `envconfig:"SWMS_GATEWAY_LATENCY" default:"150ms"`
	Timeout time.Duration `envconfig:"SWMS_GATEWAY_TIMEOUT" default:"2s"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" || db.IsSQLite() {
		if db.IsSQLite() && db.DSN == "" {
			db.DSN = "file:swms.db?cache=shared"
		}
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
