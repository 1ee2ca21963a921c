package config

const EnvPrefix = "CONVOZO"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv             = "CONVOZO_APP_ENV"
	EnvPort               = "CONVOZO_APP_PORT"
	EnvAppURL             = "CONVOZO_APP_URL"
	EnvLogLevel           = "CONVOZO_LOG_LEVEL"
	EnvDBDSN              = "CONVOZO_DB_DSN"
	EnvDBHost             = "CONVOZO_DB_HOST"
	EnvDBUser             = "CONVOZO_DB_USER"
	EnvDBName             = "CONVOZO_DB_NAME"
	EnvRedisURL           = "CONVOZO_REDIS_URL"
	EnvStripeSecretKey    = "CONVOZO_STRIPE_SECRET_KEY"
	EnvStripeWebhook      = "CONVOZO_STRIPE_WEBHOOK_SECRET"
	EnvStripeEnv          = "CONVOZO_STRIPE_ENV"
	EnvStripeAllowSandbox = "CONVOZO_STRIPE_ALLOW_SANDBOX_PAYOUT"
	EnvPlatformFeePct     = "CONVOZO_PLATFORM_FEE_PERCENTAGE"
	EnvCheckoutRateLimit  = "CONVOZO_CHECKOUT_RATE_LIMIT"
	EnvAuthJWTSecret      = "CONVOZO_AUTH_JWT_SECRET"
	EnvSendgridAPIKey     = "CONVOZO_SENDGRID_API_KEY"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
