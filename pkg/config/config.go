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
	HTTP         HTTPConfig
	FeatureFlags FeatureFlagsConfig
	Fulfillment  FulfillmentConfig
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
	Env          string `envconfig:"PRINTFARM_APP_ENV" required:"true"`
	Port         string `envconfig:"PRINTFARM_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PRINTFARM_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"PRINTFARM_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"PRINTFARM_LOG_WARN_STACK" default:"false"`

	ReadHeaderTimeout time.Duration `envconfig:"PRINTFARM_HTTP_READ_HEADER_TIMEOUT" default:"5s"`
	WriteTimeout      time.Duration `envconfig:"PRINTFARM_HTTP_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout   time.Duration `envconfig:"PRINTFARM_HTTP_SHUTDOWN_TIMEOUT" default:"15s"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"PRINTFARM_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"PRINTFARM_DB_DSN"`
	Driver string `envconfig:"PRINTFARM_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PRINTFARM_DB_HOST"`
	LegacyPort     int    `envconfig:"PRINTFARM_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PRINTFARM_DB_USER"`
	LegacyPassword string `envconfig:"PRINTFARM_DB_PASSWORD"`
	LegacyName     string `envconfig:"PRINTFARM_DB_NAME"`
	LegacySSLMode  string `envconfig:"PRINTFARM_DB_SSLMODE" default:"disable"`

	// StatementTimeout is appended to postgres DSNs built from the legacy fields.
	StatementTimeout time.Duration `envconfig:"PRINTFARM_DB_STATEMENT_TIMEOUT" default:"30s"`

	MaxOpenConns    int           `envconfig:"PRINTFARM_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PRINTFARM_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PRINTFARM_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PRINTFARM_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold time.Duration `envconfig:"PRINTFARM_DB_SLOW_QUERY_THRESHOLD" default:"500ms"`
	// TxAttempts bounds reruns of a transaction aborted by a serialization
	// failure or deadlock.
	TxAttempts int `envconfig:"PRINTFARM_DB_TX_ATTEMPTS" default:"3"`
}

// IsSQLite reports whether the sqlite driver was requested (local dev only).
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"PRINTFARM_REDIS_URL"`
	Address      string        `envconfig:"PRINTFARM_REDIS_ADDR"`
	Password     string        `envconfig:"PRINTFARM_REDIS_PASSWORD"`
	DB           int           `envconfig:"PRINTFARM_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PRINTFARM_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PRINTFARM_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PRINTFARM_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PRINTFARM_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PRINTFARM_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// HTTPConfig covers the public API surface.
type HTTPConfig struct {
	CORSAllowedOrigins []string      `envconfig:"PRINTFARM_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
	WriteRateWindow    time.Duration `envconfig:"PRINTFARM_WRITE_RATE_WINDOW" default:"1m"`
	WriteRateLimit     int           `envconfig:"PRINTFARM_WRITE_RATE_LIMIT" default:"120"`
	IdempotencyTTL     time.Duration `envconfig:"PRINTFARM_IDEMPOTENCY_TTL" default:"24h"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"PRINTFARM_AUTO_MIGRATE" default:"false"`
	// LegacyStatusFallback maps unknown status labels to onay_bekliyor instead of rejecting them.
	LegacyStatusFallback bool `envconfig:"PRINTFARM_LEGACY_STATUS_FALLBACK" default:"false"`
}

type FulfillmentConfig struct {
	LowFilamentThresholdGrams float64 `envconfig:"PRINTFARM_LOW_FILAMENT_THRESHOLD_GRAMS" default:"100"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"PRINTFARM_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"PRINTFARM_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"PRINTFARM_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	AuditTopic     string `envconfig:"PRINTFARM_PUBSUB_AUDIT_TOPIC" default:"printfarm-audit-events"`
	InventoryTopic string `envconfig:"PRINTFARM_PUBSUB_INVENTORY_TOPIC" default:"printfarm-inventory-events"`
}

type OutboxConfig struct {
	BatchSize      int    `envconfig:"PRINTFARM_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int    `envconfig:"PRINTFARM_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int    `envconfig:"PRINTFARM_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int    `envconfig:"PRINTFARM_OUTBOX_RETENTION_DAYS" default:"30"`
	MetricsAddr    string `envconfig:"PRINTFARM_OUTBOX_METRICS_ADDR" default:":9091"`
}

type CronConfig struct {
	Interval   time.Duration `envconfig:"PRINTFARM_CRON_INTERVAL" default:"1h"`
	LockTTL    time.Duration `envconfig:"PRINTFARM_CRON_LOCK_TTL" default:"55m"`
	JobTimeout time.Duration `envconfig:"PRINTFARM_CRON_JOB_TIMEOUT" default:"10m"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		return fmt.Errorf("%s is required when %s=%s", EnvDBDSN, EnvDBDriver, DBDriverSQLite)
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

	q := u.Query()
	if db.LegacySSLMode != "" {
		q.Set("sslmode", db.LegacySSLMode)
	}
	if db.StatementTimeout > 0 {
		q.Set("statement_timeout", fmt.Sprintf("%d", db.StatementTimeout.Milliseconds()))
	}
	u.RawQuery = q.Encode()

	db.DSN = u.String()
	return nil
}
