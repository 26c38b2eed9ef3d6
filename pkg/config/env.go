package config

const EnvPrefix = "PRINTFARM"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

const (
	EnvAppEnv   = "PRINTFARM_APP_ENV"
	EnvPort     = "PRINTFARM_APP_PORT"
	EnvLogLevel = "PRINTFARM_LOG_LEVEL"

	EnvDBDSN    = "PRINTFARM_DB_DSN"
	EnvDBDriver = "PRINTFARM_DB_DRIVER"
	EnvDBHost   = "PRINTFARM_DB_HOST"
	EnvDBPort   = "PRINTFARM_DB_PORT"
	EnvDBUser   = "PRINTFARM_DB_USER"
	EnvDBName   = "PRINTFARM_DB_NAME"

	EnvRedisURL = "PRINTFARM_REDIS_URL"

	EnvLegacyStatusFallback = "PRINTFARM_LEGACY_STATUS_FALLBACK"
	EnvLowFilamentThreshold = "PRINTFARM_LOW_FILAMENT_THRESHOLD_GRAMS"

	EnvGCPProjectID     = "PRINTFARM_GCP_PROJECT_ID"
	EnvPubSubAuditTopic = "PRINTFARM_PUBSUB_AUDIT_TOPIC"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
