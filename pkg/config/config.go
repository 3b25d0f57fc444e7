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
	JWT          JWTConfig
	Password     PasswordConfig
	FeatureFlags FeatureFlagsConfig
	Square       SquareConfig
	Checkout     CheckoutConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Cron         CronConfig
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
	Env          string `envconfig:"GAMEVAULT_APP_ENV" required:"true"`
	Port         string `envconfig:"GAMEVAULT_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"GAMEVAULT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"GAMEVAULT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"GAMEVAULT_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"GAMEVAULT_DB_DSN"`
	Driver string `envconfig:"GAMEVAULT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"GAMEVAULT_DB_HOST"`
	LegacyPort     int    `envconfig:"GAMEVAULT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"GAMEVAULT_DB_USER"`
	LegacyPassword string `envconfig:"GAMEVAULT_DB_PASSWORD"`
	LegacyName     string `envconfig:"GAMEVAULT_DB_NAME"`
	LegacySSLMode  string `envconfig:"GAMEVAULT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"GAMEVAULT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"GAMEVAULT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"GAMEVAULT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"GAMEVAULT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"GAMEVAULT_REDIS_URL" required:"true"`
	Address      string        `envconfig:"GAMEVAULT_REDIS_ADDR"`
	Password     string        `envconfig:"GAMEVAULT_REDIS_PASSWORD"`
	DB           int           `envconfig:"GAMEVAULT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"GAMEVAULT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"GAMEVAULT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"GAMEVAULT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"GAMEVAULT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"GAMEVAULT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"GAMEVAULT_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"GAMEVAULT_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"GAMEVAULT_JWT_EXPIRATION_MINUTES" required:"true"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"GAMEVAULT_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"GAMEVAULT_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"GAMEVAULT_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"GAMEVAULT_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"GAMEVAULT_ARGON_KEY_LEN" default:"32"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"GAMEVAULT_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"GAMEVAULT_AUTO_MIGRATE" default:"false"`
}

type SquareConfig struct {
	AccessToken   string `envconfig:"GAMEVAULT_SQUARE_ACCESS_TOKEN"`
	LocationID    string `envconfig:"GAMEVAULT_SQUARE_LOCATION_ID"`
	Env           string `envconfig:"GAMEVAULT_SQUARE_ENV" default:"sandbox"`
	WebhookSecret string `envconfig:"GAMEVAULT_SQUARE_WEBHOOK_SECRET"`
}

// Environment returns the normalized Square environment (sandbox/production).
func (s SquareConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

type CheckoutConfig struct {
	PaymentTimeout    time.Duration `envconfig:"GAMEVAULT_CHECKOUT_PAYMENT_TIMEOUT" default:"30s"`
	LockTTL           time.Duration `envconfig:"GAMEVAULT_CHECKOUT_LOCK_TTL" default:"2m"`
	ReserveStaleAfter time.Duration `envconfig:"GAMEVAULT_CHECKOUT_RESERVE_STALE_AFTER" default:"15m"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"GAMEVAULT_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"GAMEVAULT_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"GAMEVAULT_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	DomainTopic        string `envconfig:"GAMEVAULT_PUBSUB_DOMAIN_TOPIC" default:"gv-domain-events"`
	DomainSubscription string `envconfig:"GAMEVAULT_PUBSUB_DOMAIN_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"GAMEVAULT_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"GAMEVAULT_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"GAMEVAULT_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"GAMEVAULT_CRON_INTERVAL" default:"5m"`
	LockTTL  time.Duration `envconfig:"GAMEVAULT_CRON_LOCK_TTL" default:"10m"`
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
