package config

// EnvPrefix is handed to envconfig; every field carries its full name explicitly.
const EnvPrefix = "GROVETRACE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

const (
	EnvAppEnv     = "GROVETRACE_APP_ENV"
	EnvPort       = "GROVETRACE_APP_PORT"
	EnvLogLevel   = "GROVETRACE_LOG_LEVEL"
	EnvDBDSN      = "GROVETRACE_DB_DSN"
	EnvDBDriver   = "GROVETRACE_DB_DRIVER"
	EnvDBHost     = "GROVETRACE_DB_HOST"
	EnvDBPort     = "GROVETRACE_DB_PORT"
	EnvDBUser     = "GROVETRACE_DB_USER"
	EnvDBPassword = "GROVETRACE_DB_PASSWORD"
	EnvDBName     = "GROVETRACE_DB_NAME"
	EnvRedisURL   = "GROVETRACE_REDIS_URL"

	EnvItemCodePrefix = "GROVETRACE_ITEM_CODE_PREFIX"
	EnvStockUOM       = "GROVETRACE_STOCK_UOM"

	EnvGCPProjectID       = "GROVETRACE_GCP_PROJECT_ID"
	EnvPubSubTopic        = "GROVETRACE_PUBSUB_TRACEABILITY_TOPIC"
	EnvPubSubSubscription = "GROVETRACE_PUBSUB_TRACEABILITY_SUBSCRIPTION"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
