package config

// EnvPrefix namespaces every environment variable the service reads.
const EnvPrefix = "STAGEPASS"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "STAGEPASS_DB_DSN"
	EnvDBHost = "STAGEPASS_DB_HOST"
	EnvDBUser = "STAGEPASS_DB_USER"
	EnvDBName = "STAGEPASS_DB_NAME"
)

var requiredDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
