package config

const (
	EnvPrefix = "MARKETPLACE"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	AuthProviderFirebase = "firebase"
	AuthProviderLocal    = "local"
)

const (
	EnvAppEnv   = "MARKETPLACE_APP_ENV"
	EnvPort     = "MARKETPLACE_APP_PORT"
	EnvLogLevel = "MARKETPLACE_LOG_LEVEL"

	EnvDBDSN  = "MARKETPLACE_DB_DSN"
	EnvDBHost = "MARKETPLACE_DB_HOST"
	EnvDBUser = "MARKETPLACE_DB_USER"
	EnvDBName = "MARKETPLACE_DB_NAME"

	EnvRedisURL = "MARKETPLACE_REDIS_URL"

	EnvAuthProvider    = "MARKETPLACE_AUTH_PROVIDER"
	EnvAuthLocalSecret = "MARKETPLACE_AUTH_LOCAL_SECRET"
	EnvAdminEmails     = "MARKETPLACE_ADMIN_EMAILS"

	EnvForceFreeShipping = "MARKETPLACE_FORCE_FREE_SHIPPING"

	EnvGCPProjectID = "MARKETPLACE_GCP_PROJECT_ID"
	EnvGCSBucket    = "MARKETPLACE_GCS_BUCKET_NAME"

	EnvPubSubOrdersTopic       = "MARKETPLACE_PUBSUB_ORDERS_TOPIC"
	EnvPubSubNotificationSub   = "MARKETPLACE_PUBSUB_NOTIFICATION_SUBSCRIPTION"
	EnvPubSubAnalyticsSub      = "MARKETPLACE_PUBSUB_ANALYTICS_SUBSCRIPTION"
	EnvStripeSessionTTL        = "MARKETPLACE_STRIPE_SESSION_TTL"
	EnvGuestTokenTTL           = "MARKETPLACE_GUEST_TOKEN_TTL"
	EnvEnforceCouponUsageLimit = "MARKETPLACE_ENFORCE_COUPON_USAGE_LIMIT"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
