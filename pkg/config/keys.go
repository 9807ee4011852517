package config

// EnvPrefix is handed to envconfig; every field carries its full key.
const EnvPrefix = "ENROLLMENT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
	DefaultSQLiteDSN = "file:enrollment.db?cache=shared&_foreign_keys=on"

	NotifyTransportLog    = "log"
	NotifyTransportPubSub = "pubsub"
	NotifyTransportAMQP   = "amqp"
)

const (
	EnvAppEnv          = "ENROLLMENT_APP_ENV"
	EnvPort            = "ENROLLMENT_APP_PORT"
	EnvDBDSN           = "ENROLLMENT_DB_DSN"
	EnvDBDriver        = "ENROLLMENT_DB_DRIVER"
	EnvDBHost          = "ENROLLMENT_DB_HOST"
	EnvDBUser          = "ENROLLMENT_DB_USER"
	EnvDBName          = "ENROLLMENT_DB_NAME"
	EnvRedisURL        = "ENROLLMENT_REDIS_URL"
	EnvJWTSecret       = "ENROLLMENT_JWT_SECRET"
	EnvJWTIssuer       = "ENROLLMENT_JWT_ISSUER"
	EnvJWTExpMins      = "ENROLLMENT_JWT_EXPIRATION_MINUTES"
	EnvUseSQLite       = "ENROLLMENT_USE_SQLITE"
	EnvAllowCredit     = "ENROLLMENT_CLEARANCE_ALLOW_CREDIT"
	EnvBatchSize       = "ENROLLMENT_RECURRING_BATCH_SIZE"
	EnvNotifyTransport = "ENROLLMENT_NOTIFY_TRANSPORT"
	EnvNotifyAMQPURL   = "ENROLLMENT_NOTIFY_AMQP_URL"
	EnvGCPProjectID    = "ENROLLMENT_GCP_PROJECT_ID"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
