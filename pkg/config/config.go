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
	Gifting       GiftingConfig
	Nudge         NudgeConfig
	FeatureFlags  FeatureFlagsConfig
	OpenAI        OpenAIConfig
	Sendgrid      SendgridConfig
	Square        SquareConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
	Cron          CronConfig
	AuthRateLimit AuthRateLimitConfig
	Internal      InternalConfig
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
	Env          string `envconfig:"GIFTWELL_APP_ENV" required:"true"`
	Port         string `envconfig:"GIFTWELL_APP_PORT" required:"true"`
	BaseURL      string `envconfig:"GIFTWELL_APP_BASE_URL" default:"http://localhost:8080"`
	LogLevel     string `envconfig:"GIFTWELL_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"GIFTWELL_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"GIFTWELL_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"GIFTWELL_DB_DSN"`
	Driver string `envconfig:"GIFTWELL_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"GIFTWELL_DB_HOST"`
	LegacyPort     int    `envconfig:"GIFTWELL_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"GIFTWELL_DB_USER"`
	LegacyPassword string `envconfig:"GIFTWELL_DB_PASSWORD"`
	LegacyName     string `envconfig:"GIFTWELL_DB_NAME"`
	LegacySSLMode  string `envconfig:"GIFTWELL_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"GIFTWELL_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"GIFTWELL_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"GIFTWELL_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"GIFTWELL_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"GIFTWELL_REDIS_URL" required:"true"`
	Address      string        `envconfig:"GIFTWELL_REDIS_ADDR"`
	Password     string        `envconfig:"GIFTWELL_REDIS_PASSWORD"`
	DB           int           `envconfig:"GIFTWELL_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"GIFTWELL_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"GIFTWELL_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"GIFTWELL_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"GIFTWELL_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"GIFTWELL_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"GIFTWELL_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"GIFTWELL_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"GIFTWELL_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"GIFTWELL_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"GIFTWELL_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"GIFTWELL_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"GIFTWELL_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"GIFTWELL_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"GIFTWELL_ARGON_KEY_LEN" default:"32"`
}

// GiftingConfig carries the auto-gift pipeline policy knobs.
type GiftingConfig struct {
	MinGiftPriceCents    int           `envconfig:"GIFTWELL_GIFTING_MIN_GIFT_PRICE_CENTS" default:"1000"`
	WishlistScanLimit    int           `envconfig:"GIFTWELL_GIFTING_WISHLIST_SCAN_LIMIT" default:"10"`
	AddressTokenTTL      time.Duration `envconfig:"GIFTWELL_GIFTING_ADDRESS_TOKEN_TTL" default:"72h"`
	OccasionLeadDays     int           `envconfig:"GIFTWELL_GIFTING_OCCASION_LEAD_DAYS" default:"7"`
	DefaultBudgetDollars int           `envconfig:"GIFTWELL_GIFTING_DEFAULT_BUDGET_DOLLARS" default:"50"`
}

// NudgeConfig bounds how often a user may nudge the same connection.
type NudgeConfig struct {
	Window       time.Duration `envconfig:"GIFTWELL_NUDGE_WINDOW" default:"168h"`
	MaxPerWindow int           `envconfig:"GIFTWELL_NUDGE_MAX_PER_WINDOW" default:"3"`
	MinGap       time.Duration `envconfig:"GIFTWELL_NUDGE_MIN_GAP" default:"24h"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"GIFTWELL_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"GIFTWELL_AUTO_MIGRATE" default:"false"`
}

type OpenAIConfig struct {
	APIKey  string        `envconfig:"GIFTWELL_OPENAI_API_KEY"`
	Model   string        `envconfig:"GIFTWELL_OPENAI_MODEL" default:"gpt-4o-mini"`
	Timeout time.Duration `envconfig:"GIFTWELL_OPENAI_TIMEOUT" default:"10s"`
}

type SendgridConfig struct {
	APIKey      string `envconfig:"GIFTWELL_SENDGRID_API_KEY"`
	DefaultFrom string `envconfig:"GIFTWELL_SENDGRID_FROM_EMAIL" default:"gifts@giftwell.app"`
	FromName    string `envconfig:"GIFTWELL_SENDGRID_FROM_NAME" default:"Giftwell"`
}

type SquareConfig struct {
	AccessToken string `envconfig:"GIFTWELL_SQUARE_ACCESS_TOKEN"`
	LocationID  string `envconfig:"GIFTWELL_SQUARE_LOCATION_ID"`
	Env         string `envconfig:"GIFTWELL_SQUARE_ENV" default:"sandbox"`
}

// Environment returns the normalized Square environment (sandbox/production).
func (s SquareConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

type GCPConfig struct {
	ProjectID string `envconfig:"GIFTWELL_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	GiftingTopic      string `envconfig:"GIFTWELL_PUBSUB_GIFTING_TOPIC" default:"gw-gifting-events"`
	OrdersTopic       string `envconfig:"GIFTWELL_PUBSUB_ORDERS_TOPIC" default:"gw-order-events"`
	NotificationTopic string `envconfig:"GIFTWELL_PUBSUB_NOTIFICATION_TOPIC" default:"gw-notification-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"GIFTWELL_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"GIFTWELL_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"GIFTWELL_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"GIFTWELL_CRON_INTERVAL" default:"1h"`
}

// AuthRateLimitConfig bounds login and register attempts per IP and email.
// A zero limit disables the corresponding check.
type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"GIFTWELL_AUTH_RL_LOGIN_WINDOW" default:"5m"`
	LoginIPLimit       int           `envconfig:"GIFTWELL_AUTH_RL_LOGIN_IP_LIMIT" default:"20"`
	LoginEmailLimit    int           `envconfig:"GIFTWELL_AUTH_RL_LOGIN_EMAIL_LIMIT" default:"10"`
	RegisterWindow     time.Duration `envconfig:"GIFTWELL_AUTH_RL_REGISTER_WINDOW" default:"1h"`
	RegisterIPLimit    int           `envconfig:"GIFTWELL_AUTH_RL_REGISTER_IP_LIMIT" default:"10"`
	RegisterEmailLimit int           `envconfig:"GIFTWELL_AUTH_RL_REGISTER_EMAIL_LIMIT" default:"5"`
}

// InternalConfig guards service-to-service endpoints.
type InternalConfig struct {
	Token string `envconfig:"GIFTWELL_INTERNAL_TOKEN"`
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
