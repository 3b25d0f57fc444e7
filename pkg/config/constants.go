package config

const (
	// EnvPrefix is the envconfig prefix for all GameVault variables.
	EnvPrefix = "GAMEVAULT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "GAMEVAULT_DB_DSN"
	EnvDBHost = "GAMEVAULT_DB_HOST"
	EnvDBUser = "GAMEVAULT_DB_USER"
	EnvDBName = "GAMEVAULT_DB_NAME"
)

// legacyDBEnvVars are the discrete connection vars accepted when
// GAMEVAULT_DB_DSN is not set.
var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
