package config

import (
	"fmt"
	"net/netip"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Admin         AdminConfig
	DB            DBConfig
	Redis         RedisConfig
	AuthRateLimit AuthRateLimitConfig
	Storage       StorageConfig
	Upload        UploadConfig
	Checkout      CheckoutConfig
	FeatureFlags  FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if cfg.DB.RestrictedDSN == "" {
		cfg.DB.RestrictedDSN = cfg.DB.DSN
	}
	cfg.Admin.normalize()
	if _, err := cfg.AuthRateLimit.TrustedProxyPrefixes(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"CATALOG_APP_ENV" required:"true"`
	Port         string `envconfig:"CATALOG_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"CATALOG_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"CATALOG_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"CATALOG_LOG_WARN_STACK" default:"false"`
	WebDir       string `envconfig:"CATALOG_WEB_DIR"`
	CORSOrigins  string `envconfig:"CATALOG_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// AllowedOrigins splits the configured CORS origin list.
func (a AppConfig) AllowedOrigins() []string {
	var origins []string
	for _, part := range strings.Split(a.CORSOrigins, ",") {
		if origin := strings.TrimSpace(part); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

// AdminConfig holds the single administrator identity and the guarded route family.
type AdminConfig struct {
	Username      string        `envconfig:"CATALOG_ADMIN_USERNAME" required:"true"`
	Password      string        `envconfig:"CATALOG_ADMIN_PASSWORD" required:"true"`
	Prefix        string        `envconfig:"CATALOG_ADMIN_PREFIX" default:"/admin"`
	LoginPath     string        `envconfig:"CATALOG_ADMIN_LOGIN_PATH" default:"/login"`
	LandingPath   string        `envconfig:"CATALOG_ADMIN_LANDING_PATH" default:"/admin"`
	SessionMaxAge time.Duration `envconfig:"CATALOG_SESSION_MAX_AGE" default:"168h"`
}

func (a *AdminConfig) normalize() {
	a.Prefix = normalizePath(a.Prefix, "/admin")
	a.LoginPath = normalizePath(a.LoginPath, "/login")
	a.LandingPath = normalizePath(a.LandingPath, a.Prefix)
}

func normalizePath(value, fallback string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	if !strings.HasPrefix(value, "/") {
		value = "/" + value
	}
	if len(value) > 1 {
		value = strings.TrimRight(value, "/")
	}
	return value
}

type DBConfig struct {
	DSN           string `envconfig:"CATALOG_DB_DSN"`
	RestrictedDSN string `envconfig:"CATALOG_DB_RESTRICTED_DSN"`

	LegacyHost     string `envconfig:"CATALOG_DB_HOST"`
	LegacyPort     int    `envconfig:"CATALOG_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CATALOG_DB_USER"`
	LegacyPassword string `envconfig:"CATALOG_DB_PASSWORD"`
	LegacyName     string `envconfig:"CATALOG_DB_NAME"`
	LegacySSLMode  string `envconfig:"CATALOG_DB_SSLMODE" default:"require"`

	MaxOpenConns    int           `envconfig:"CATALOG_DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"CATALOG_DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"CATALOG_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CATALOG_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// Restricted returns a copy of the config pointing at the row-level-policy bound role.
func (db DBConfig) Restricted() DBConfig {
	restricted := db
	if restricted.RestrictedDSN != "" {
		restricted.DSN = restricted.RestrictedDSN
	}
	return restricted
}

type RedisConfig struct {
	URL          string        `envconfig:"CATALOG_REDIS_URL"`
	PoolSize     int           `envconfig:"CATALOG_REDIS_POOL_SIZE" default:"5"`
	DialTimeout  time.Duration `envconfig:"CATALOG_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CATALOG_REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"CATALOG_REDIS_WRITE_TIMEOUT" default:"3s"`
}

// Enabled reports whether a Redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != ""
}

// AuthRateLimitConfig throttles the login endpoint. A zero window disables it.
// TrustedProxies lists the peers allowed to set X-Forwarded-For, as
// comma-separated CIDRs or bare addresses.
type AuthRateLimitConfig struct {
	LoginWindow    time.Duration `envconfig:"CATALOG_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"0s"`
	LoginIPLimit   int           `envconfig:"CATALOG_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"10"`
	TrustedProxies string        `envconfig:"CATALOG_AUTH_TRUSTED_PROXIES"`
}

// TrustedProxyPrefixes parses TrustedProxies. A bare address becomes a
// single-host prefix.
func (a AuthRateLimitConfig) TrustedProxyPrefixes() ([]netip.Prefix, error) {
	var prefixes []netip.Prefix
	for _, part := range strings.Split(a.TrustedProxies, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if strings.Contains(part, "/") {
			prefix, err := netip.ParsePrefix(part)
			if err != nil {
				return nil, fmt.Errorf("parsing %s: %w", EnvTrustedProxies, err)
			}
			prefixes = append(prefixes, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(part)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", EnvTrustedProxies, err)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

type StorageConfig struct {
	Driver          string `envconfig:"CATALOG_STORAGE_DRIVER" default:"s3"`
	Bucket          string `envconfig:"CATALOG_STORAGE_BUCKET"`
	Region          string `envconfig:"CATALOG_STORAGE_REGION" default:"auto"`
	Endpoint        string `envconfig:"CATALOG_STORAGE_ENDPOINT"`
	AccessKeyID     string `envconfig:"CATALOG_STORAGE_ACCESS_KEY_ID"`
	SecretAccessKey string `envconfig:"CATALOG_STORAGE_SECRET_ACCESS_KEY"`
	PublicDomain    string `envconfig:"CATALOG_STORAGE_PUBLIC_DOMAIN"`
	UseSSL          bool   `envconfig:"CATALOG_STORAGE_USE_SSL" default:"true"`
}

// Validate reports the storage settings that must be present before a client can be built.
func (s StorageConfig) Validate() error {
	missing := []string{}
	if strings.TrimSpace(s.Bucket) == "" {
		missing = append(missing, EnvStorageBucket)
	}
	if strings.TrimSpace(s.AccessKeyID) == "" {
		missing = append(missing, EnvStorageAccessKeyID)
	}
	if strings.TrimSpace(s.SecretAccessKey) == "" {
		missing = append(missing, EnvStorageSecretAccessKey)
	}
	if s.Driver == StorageDriverMinIO && strings.TrimSpace(s.Endpoint) == "" {
		missing = append(missing, EnvStorageEndpoint)
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing storage configuration: %s", strings.Join(missing, ", "))
	}
	switch s.Driver {
	case StorageDriverS3, StorageDriverMinIO:
		return nil
	default:
		return fmt.Errorf("unknown storage driver %q", s.Driver)
	}
}

type UploadConfig struct {
	URLExpiry   time.Duration `envconfig:"CATALOG_UPLOAD_URL_EXPIRY" default:"300s"`
	MaxUploadMB int           `envconfig:"CATALOG_MAX_UPLOAD_MB" default:"10"`
}

// MaxUploadBytes converts the configured cap to bytes.
func (u UploadConfig) MaxUploadBytes() int64 {
	if u.MaxUploadMB <= 0 {
		return 0
	}
	return int64(u.MaxUploadMB) * 1024 * 1024
}

type CheckoutConfig struct {
	WhatsAppNumber   string `envconfig:"CATALOG_WHATSAPP_NUMBER"`
	WhatsAppGreeting string `envconfig:"CATALOG_WHATSAPP_GREETING" default:"Hola, me interesa el siguiente producto:"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"CATALOG_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
