package config

const (
	EnvPrefix = "MEDOK"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

// Environment variable names referenced by tests and the legacy DSN fallback.
const (
	EnvAppEnv                 = "MEDOK_APP_ENV"
	EnvPort                   = "MEDOK_APP_PORT"
	EnvDBDSN                  = "MEDOK_DB_DSN"
	EnvDBHost                 = "MEDOK_DB_HOST"
	EnvDBUser                 = "MEDOK_DB_USER"
	EnvDBName                 = "MEDOK_DB_NAME"
	EnvRedisURL               = "MEDOK_REDIS_URL"
	EnvJWTSecret              = "MEDOK_JWT_SECRET"
	EnvJWTIssuer              = "MEDOK_JWT_ISSUER"
	EnvJWTExpMins             = "MEDOK_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "MEDOK_REFRESH_TOKEN_TTL_MINUTES"
	EnvClientAPIKey           = "MEDOK_CLIENT_API_KEY"
	EnvGCPProjectID           = "MEDOK_GCP_PROJECT_ID"
	EnvGCSBucket              = "MEDOK_GCS_BUCKET_NAME"
	EnvPubSubExchangeTopic    = "MEDOK_PUBSUB_EXCHANGE_TOPIC"
	EnvPubSubExchangeSub      = "MEDOK_PUBSUB_EXCHANGE_SUBSCRIPTION"
	EnvSMTPHost               = "MEDOK_SMTP_HOSTNAME"
	EnvSMTPFrom               = "MEDOK_SMTP_FROM"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
