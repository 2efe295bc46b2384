package config

const (
	// EnvPrefix is the envconfig prefix for every setting.
	EnvPrefix = "hatbazar"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "HATBAZAR_DB_DSN"
	EnvDBHost = "HATBAZAR_DB_HOST"
	EnvDBUser = "HATBAZAR_DB_USER"
	EnvDBName = "HATBAZAR_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
