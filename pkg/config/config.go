package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Client        ClientConfig
	Eventing      EventingConfig
	GCP           GCPConfig
	GCS           GCSConfig
	Media         MediaConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
	SMTP          SMTPConfig
	Cron          CronConfig
	Realtime      RealtimeConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env           string `envconfig:"MEDOK_APP_ENV" required:"true"`
	Port          string `envconfig:"MEDOK_APP_PORT" required:"true"`
	LogLevel      string `envconfig:"MEDOK_LOG_LEVEL" default:"info"`
	LogWarnStack  bool   `envconfig:"MEDOK_LOG_WARN_STACK" default:"false"`
	LogFormat     string `envconfig:"MEDOK_LOG_FORMAT" default:"json"`
	PublicBaseURL string `envconfig:"MEDOK_PUBLIC_BASE_URL" default:"http://localhost:5173"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"MEDOK_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"MEDOK_DB_DSN"`
	Driver string `envconfig:"MEDOK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"MEDOK_DB_HOST"`
	LegacyPort     int    `envconfig:"MEDOK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"MEDOK_DB_USER"`
	LegacyPassword string `envconfig:"MEDOK_DB_PASSWORD"`
	LegacyName     string `envconfig:"MEDOK_DB_NAME"`
	LegacySSLMode  string `envconfig:"MEDOK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MEDOK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MEDOK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MEDOK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MEDOK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"MEDOK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"MEDOK_REDIS_ADDR"`
	Password     string        `envconfig:"MEDOK_REDIS_PASSWORD"`
	DB           int           `envconfig:"MEDOK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MEDOK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MEDOK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MEDOK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MEDOK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MEDOK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string        `envconfig:"MEDOK_JWT_SECRET" required:"true"`
	Issuer                 string        `envconfig:"MEDOK_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int           `envconfig:"MEDOK_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int           `envconfig:"MEDOK_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
	ExchangeLinkTTL        time.Duration `envconfig:"MEDOK_EXCHANGE_LINK_TTL" default:"168h"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"MEDOK_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"MEDOK_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"MEDOK_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"MEDOK_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"MEDOK_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"MEDOK_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"MEDOK_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"MEDOK_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"MEDOK_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"MEDOK_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"MEDOK_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"MEDOK_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"MEDOK_AUTO_MIGRATE" default:"false"`
}

// ClientConfig holds the public key every SDK request must present.
type ClientConfig struct {
	APIKey         string   `envconfig:"MEDOK_CLIENT_API_KEY" required:"true"`
	AllowedOrigins []string `envconfig:"MEDOK_CORS_ALLOWED_ORIGINS" default:"http://localhost:5173"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"MEDOK_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"MEDOK_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"MEDOK_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"MEDOK_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName    string `envconfig:"MEDOK_GCS_BUCKET_NAME" required:"true"`
	AvatarPrefix  string `envconfig:"MEDOK_GCS_AVATAR_PREFIX" default:"avatars"`
	PublicBaseURL string `envconfig:"MEDOK_GCS_PUBLIC_BASE_URL" default:"https://storage.googleapis.com"`
}

type MediaConfig struct {
	MaxAvatarBytes int64 `envconfig:"MEDOK_MEDIA_MAX_AVATAR_BYTES" default:"5242880"`
}

type PubSubConfig struct {
	ExchangeTopic        string `envconfig:"MEDOK_PUBSUB_EXCHANGE_TOPIC" required:"true"`
	ExchangeSubscription string `envconfig:"MEDOK_PUBSUB_EXCHANGE_SUBSCRIPTION" required:"true"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"MEDOK_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"MEDOK_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"MEDOK_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type SMTPConfig struct {
	Host     string `envconfig:"MEDOK_SMTP_HOSTNAME"`
	Port     int    `envconfig:"MEDOK_SMTP_PORT" default:"465"`
	Username string `envconfig:"MEDOK_SMTP_USERNAME"`
	Password string `envconfig:"MEDOK_SMTP_PASSWORD"`
	From     string `envconfig:"MEDOK_SMTP_FROM"`
}

// Addr returns the host:port pair used to dial the SMTP server.
func (s SMTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Enabled reports whether enough SMTP settings are present to send mail.
func (s SMTPConfig) Enabled() bool {
	return s.Host != "" && s.From != ""
}

type CronConfig struct {
	Schedule string        `envconfig:"MEDOK_CRON_SCHEDULE" default:"@every 1h"`
	LockTTL  time.Duration `envconfig:"MEDOK_CRON_LOCK_TTL" default:"10m"`
}

type RealtimeConfig struct {
	HeartbeatInterval time.Duration `envconfig:"MEDOK_REALTIME_HEARTBEAT" default:"25s"`
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
