package config

// EnvPrefix is empty because every field carries its full variable name.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	StorageDriverS3    = "s3"
	StorageDriverMinIO = "minio"
)

const (
	EnvAppEnv = "CATALOG_APP_ENV"
	EnvPort   = "CATALOG_APP_PORT"

	EnvAdminUsername = "CATALOG_ADMIN_USERNAME"
	EnvAdminPassword = "CATALOG_ADMIN_PASSWORD"

	EnvDBDSN           = "CATALOG_DB_DSN"
	EnvDBRestrictedDSN = "CATALOG_DB_RESTRICTED_DSN"
	EnvDBHost          = "CATALOG_DB_HOST"
	EnvDBUser          = "CATALOG_DB_USER"
	EnvDBName          = "CATALOG_DB_NAME"

	EnvRedisURL = "CATALOG_REDIS_URL"

	EnvTrustedProxies = "CATALOG_AUTH_TRUSTED_PROXIES"

	EnvStorageDriver          = "CATALOG_STORAGE_DRIVER"
	EnvStorageBucket          = "CATALOG_STORAGE_BUCKET"
	EnvStorageEndpoint        = "CATALOG_STORAGE_ENDPOINT"
	EnvStorageAccessKeyID     = "CATALOG_STORAGE_ACCESS_KEY_ID"
	EnvStorageSecretAccessKey = "CATALOG_STORAGE_SECRET_ACCESS_KEY"
	EnvStoragePublicDomain    = "CATALOG_STORAGE_PUBLIC_DOMAIN"

	EnvUploadURLExpiry = "CATALOG_UPLOAD_URL_EXPIRY"
	EnvMaxUploadMB     = "CATALOG_MAX_UPLOAD_MB"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
