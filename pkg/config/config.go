package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	Square       SquareConfig
	Auction      AuctionConfig
	Scheduler    SchedulerConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	FeatureFlags FeatureFlagsConfig
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
	Env          string `envconfig:"PLATEORA_APP_ENV" required:"true"`
	Port         string `envconfig:"PLATEORA_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PLATEORA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PLATEORA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"PLATEORA_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"PLATEORA_DB_DSN"`
	Driver string `envconfig:"PLATEORA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PLATEORA_DB_HOST"`
	LegacyPort     int    `envconfig:"PLATEORA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PLATEORA_DB_USER"`
	LegacyPassword string `envconfig:"PLATEORA_DB_PASSWORD"`
	LegacyName     string `envconfig:"PLATEORA_DB_NAME"`
	LegacySSLMode  string `envconfig:"PLATEORA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PLATEORA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PLATEORA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PLATEORA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PLATEORA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PLATEORA_REDIS_URL" required:"true"`
	Address      string        `envconfig:"PLATEORA_REDIS_ADDR"`
	Password     string        `envconfig:"PLATEORA_REDIS_PASSWORD"`
	DB           int           `envconfig:"PLATEORA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PLATEORA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PLATEORA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PLATEORA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PLATEORA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PLATEORA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type SquareConfig struct {
	AccessToken string `envconfig:"PLATEORA_SQUARE_ACCESS_TOKEN"`
	Env         string `envconfig:"PLATEORA_SQUARE_ENV" default:"sandbox"`
	LocationID  string `envconfig:"PLATEORA_SQUARE_LOCATION_ID"`
}

// Environment returns the normalized Square environment (sandbox/production).
func (s SquareConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

// AuctionConfig carries the fee schedule applied at settlement. Amounts are
// pence; the transfer fee is the flat DVLA assignment charge billed to the
// winning buyer on top of the hammer price.
type AuctionConfig struct {
	Currency         string `envconfig:"PLATEORA_AUCTION_CURRENCY" default:"GBP"`
	TransferFeePence int64  `envconfig:"PLATEORA_AUCTION_TRANSFER_FEE_PENCE" default:"8000"`
	ListingFeePence  int64  `envconfig:"PLATEORA_AUCTION_LISTING_FEE_PENCE" default:"0"`
}

type SchedulerConfig struct {
	Interval time.Duration `envconfig:"PLATEORA_SCHEDULER_INTERVAL" default:"5m"`
	LockTTL  time.Duration `envconfig:"PLATEORA_SCHEDULER_LOCK_TTL" default:"10m"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"PLATEORA_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"PLATEORA_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"PLATEORA_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	SettlementTopic string `envconfig:"PLATEORA_PUBSUB_SETTLEMENT_TOPIC" default:"plt-settlement-events"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"PLATEORA_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
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
