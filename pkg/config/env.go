package config

const EnvPrefix = "TOKOFLOW"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"

	MidtransEnvSandbox    = "sandbox"
	MidtransEnvProduction = "production"
)

const (
	EnvAppEnv      = "TOKOFLOW_APP_ENV"
	EnvPort        = "TOKOFLOW_APP_PORT"
	EnvDBDSN       = "TOKOFLOW_DB_DSN"
	EnvDBHost      = "TOKOFLOW_DB_HOST"
	EnvDBUser      = "TOKOFLOW_DB_USER"
	EnvDBName      = "TOKOFLOW_DB_NAME"
	EnvDBPassword  = "TOKOFLOW_DB_PASSWORD"
	EnvRedisURL    = "TOKOFLOW_REDIS_URL"
	EnvJWTSecret   = "TOKOFLOW_JWT_SECRET"
	EnvJWTIssuer   = "TOKOFLOW_JWT_ISSUER"
	EnvMidtransEnv = "TOKOFLOW_MIDTRANS_ENV"
	EnvMidtransKey = "TOKOFLOW_MIDTRANS_SERVER_KEY"
	EnvPendingTTL  = "TOKOFLOW_ORDER_PENDING_TTL"
	EnvCORSOrigins = "TOKOFLOW_CORS_ALLOWED_ORIGINS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
