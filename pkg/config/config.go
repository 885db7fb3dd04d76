package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App            AppConfig
	DB             DBConfig
	Redis          RedisConfig
	JWT            JWTConfig
	Password       PasswordConfig
	AuthRateLimit  AuthRateLimitConfig
	Booking        BookingConfig
	PaymentWebhook PaymentWebhookConfig
	GCP            GCPConfig
	PubSub         PubSubConfig
	Outbox         OutboxConfig
	FeatureFlags   FeatureFlagsConfig
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
	Env          string `envconfig:"STAGEPASS_APP_ENV" required:"true"`
	Port         string `envconfig:"STAGEPASS_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"STAGEPASS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STAGEPASS_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"STAGEPASS_DB_DSN"`
	Driver string `envconfig:"STAGEPASS_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"STAGEPASS_DB_HOST"`
	Port     int    `envconfig:"STAGEPASS_DB_PORT" default:"5432"`
	User     string `envconfig:"STAGEPASS_DB_USER"`
	Password string `envconfig:"STAGEPASS_DB_PASSWORD"`
	Name     string `envconfig:"STAGEPASS_DB_NAME"`
	SSLMode  string `envconfig:"STAGEPASS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STAGEPASS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STAGEPASS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STAGEPASS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STAGEPASS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"STAGEPASS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"STAGEPASS_REDIS_ADDR"`
	Password     string        `envconfig:"STAGEPASS_REDIS_PASSWORD"`
	DB           int           `envconfig:"STAGEPASS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STAGEPASS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STAGEPASS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STAGEPASS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STAGEPASS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STAGEPASS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"STAGEPASS_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"STAGEPASS_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"STAGEPASS_JWT_EXPIRATION_MINUTES" required:"true"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"STAGEPASS_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"STAGEPASS_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"STAGEPASS_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"STAGEPASS_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"STAGEPASS_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"STAGEPASS_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"STAGEPASS_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"STAGEPASS_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"STAGEPASS_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"STAGEPASS_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"STAGEPASS_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

// BookingConfig bounds the retry budget applied to contended reservation
// transactions. Retries absorb transient lock contention only; they never
// mask a genuine inventory shortfall.
type BookingConfig struct {
	ReserveMaxAttempts  int           `envconfig:"STAGEPASS_BOOKING_RESERVE_MAX_ATTEMPTS" default:"5"`
	ReserveRetryBackoff time.Duration `envconfig:"STAGEPASS_BOOKING_RESERVE_RETRY_BACKOFF" default:"10ms"`
	IdempotencyTTL      time.Duration `envconfig:"STAGEPASS_BOOKING_IDEMPOTENCY_TTL" default:"168h"`
}

type PaymentWebhookConfig struct {
	Secret string `envconfig:"STAGEPASS_PAYMENT_WEBHOOK_SECRET"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"STAGEPASS_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	BookingTopic        string `envconfig:"STAGEPASS_PUBSUB_BOOKING_TOPIC" default:"stagepass-booking-events"`
	BookingSubscription string `envconfig:"STAGEPASS_PUBSUB_BOOKING_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"STAGEPASS_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"STAGEPASS_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"STAGEPASS_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"STAGEPASS_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"STAGEPASS_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range requiredDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
