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
	FeatureFlags FeatureFlagsConfig
	Traceability TraceabilityConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
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
	Env          string `envconfig:"GROVETRACE_APP_ENV" required:"true"`
	Port         string `envconfig:"GROVETRACE_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"GROVETRACE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"GROVETRACE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"GROVETRACE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"GROVETRACE_DB_DSN"`
	Driver string `envconfig:"GROVETRACE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"GROVETRACE_DB_HOST"`
	LegacyPort     int    `envconfig:"GROVETRACE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"GROVETRACE_DB_USER"`
	LegacyPassword string `envconfig:"GROVETRACE_DB_PASSWORD"`
	LegacyName     string `envconfig:"GROVETRACE_DB_NAME"`
	LegacySSLMode  string `envconfig:"GROVETRACE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"GROVETRACE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"GROVETRACE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"GROVETRACE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"GROVETRACE_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold time.Duration `envconfig:"GROVETRACE_DB_SLOW_QUERY_THRESHOLD" default:"500ms"`

	// TxRetries is how many times a transaction is re-run after a
	// serialization failure or deadlock.
	TxRetries int `envconfig:"GROVETRACE_DB_TX_RETRIES" default:"2"`
}

// IsSQLite reports whether the SQLite dialector was requested.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"GROVETRACE_REDIS_URL"`
	Address      string        `envconfig:"GROVETRACE_REDIS_ADDR"`
	Password     string        `envconfig:"GROVETRACE_REDIS_PASSWORD"`
	DB           int           `envconfig:"GROVETRACE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"GROVETRACE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"GROVETRACE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"GROVETRACE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"GROVETRACE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"GROVETRACE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether any redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"GROVETRACE_AUTO_MIGRATE" default:"false"`
}

// TraceabilityConfig tunes derivative item creation.
type TraceabilityConfig struct {
	ItemCodePrefix string        `envconfig:"GROVETRACE_ITEM_CODE_PREFIX" default:"GT"`
	ItemCodeDigits int           `envconfig:"GROVETRACE_ITEM_CODE_DIGITS" default:"12"`
	StockUOM       string        `envconfig:"GROVETRACE_STOCK_UOM" default:"Gram"`
	IdempotencyTTL time.Duration `envconfig:"GROVETRACE_IDEMPOTENCY_TTL" default:"168h"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"GROVETRACE_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	TraceabilityTopic        string `envconfig:"GROVETRACE_PUBSUB_TRACEABILITY_TOPIC" default:"gt-traceability-events"`
	TraceabilitySubscription string `envconfig:"GROVETRACE_PUBSUB_TRACEABILITY_SUBSCRIPTION"`

	// PlantTopic receives plant registry events. Empty routes them to
	// TraceabilityTopic.
	PlantTopic string `envconfig:"GROVETRACE_PUBSUB_PLANT_TOPIC"`
}

// PlantEventsTopic resolves the topic for plant registry events.
func (p PubSubConfig) PlantEventsTopic() string {
	if topic := strings.TrimSpace(p.PlantTopic); topic != "" {
		return topic
	}
	return p.TraceabilityTopic
}

// Topics lists the distinct topics events may be published to.
func (p PubSubConfig) Topics() []string {
	topics := []string{p.TraceabilityTopic}
	if plant := p.PlantEventsTopic(); plant != p.TraceabilityTopic {
		topics = append(topics, plant)
	}
	return topics
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"GROVETRACE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"GROVETRACE_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"GROVETRACE_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		return fmt.Errorf("%s is required for the sqlite driver", EnvDBDSN)
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
