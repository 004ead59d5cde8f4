package config

// EnvPrefix is the envconfig prefix shared by every Giftwell binary.
const EnvPrefix = "GIFTWELL"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	EnvDBDSN  = "GIFTWELL_DB_DSN"
	EnvDBHost = "GIFTWELL_DB_HOST"
	EnvDBUser = "GIFTWELL_DB_USER"
	EnvDBName = "GIFTWELL_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
