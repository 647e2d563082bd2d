package config

import "time"

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"
	defaultPort       = 2333
	defaultEnv        = "development"

	defaultDBDriver   = "mysql"
	defaultDBHost     = "127.0.0.1"
	defaultDBPort     = 3306
	defaultDBUser     = "root"
	defaultDBPassword = "password"
	defaultDBName     = "partnerhub"
	defaultDBCharset  = "utf8mb4"
	defaultDBLoc      = "Local"
	defaultSQLitePath = "data/partnerhub.db"

	defaultRedisHost = "localhost"
	defaultRedisPort = 6379
	defaultRedisDB   = 0

	defaultWebhookTimeout        = 5 * time.Second
	defaultWebhookMaxBody        = 4 << 10
	defaultWebhookMaxAttempts    = 1
	defaultWebhookRetryBaseDelay = time.Second
	defaultWebhookRetryMaxDelay  = 30 * time.Second
	defaultWebhookCacheTTL       = 5 * time.Minute
	defaultWebhookUserAgent      = "PartnerHub-Webhook/1.0"

	defaultWebhookManualRateLimit = 10
	defaultWebhookLogRetention    = 30 * 24 * time.Hour
)
