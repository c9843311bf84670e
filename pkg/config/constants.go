package config

// EnvPrefix scopes envconfig processing; individual fields carry fully
// qualified names so the prefix stays empty.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "PLATEORA_APP_ENV"
	EnvPort     = "PLATEORA_APP_PORT"
	EnvRedisURL = "PLATEORA_REDIS_URL"

	EnvDBDSN  = "PLATEORA_DB_DSN"
	EnvDBHost = "PLATEORA_DB_HOST"
	EnvDBUser = "PLATEORA_DB_USER"
	EnvDBName = "PLATEORA_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
