package config

const (
	EnvPrefix = "MARKET"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv     = "MARKET_APP_ENV"
	EnvPort       = "MARKET_APP_PORT"
	EnvDBDSN      = "MARKET_DB_DSN"
	EnvDBHost     = "MARKET_DB_HOST"
	EnvDBUser     = "MARKET_DB_USER"
	EnvDBName     = "MARKET_DB_NAME"
	EnvRedisURL   = "MARKET_REDIS_URL"
	EnvJWTSecret  = "MARKET_JWT_SECRET"
	EnvJWTIssuer  = "MARKET_JWT_ISSUER"
	EnvJWTExpMins = "MARKET_JWT_EXPIRATION_MINUTES"

	EnvPendingOrderTTL      = "MARKET_CHECKOUT_PENDING_ORDER_TTL"
	EnvAdminReasonMinLength = "MARKET_ADMIN_OVERRIDE_REASON_MIN_LENGTH"
	EnvMaxQuantityPerLine   = "MARKET_CHECKOUT_MAX_QUANTITY_PER_LINE"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
