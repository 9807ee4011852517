package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Password     PasswordConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	Provisioning ProvisioningConfig
	Clearance    ClearanceConfig
	Recurring    RecurringConfig
	Cron         CronConfig
	Outbox       OutboxConfig
	Notify       NotifyConfig
	GCP          GCPConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = DBDriverSQLite
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Notify.validate(cfg.GCP); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"ENROLLMENT_APP_ENV" required:"true"`
	Port         string   `envconfig:"ENROLLMENT_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"ENROLLMENT_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"ENROLLMENT_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"ENROLLMENT_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"ENROLLMENT_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"ENROLLMENT_DB_DSN"`
	Driver string `envconfig:"ENROLLMENT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"ENROLLMENT_DB_HOST"`
	LegacyPort     int    `envconfig:"ENROLLMENT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"ENROLLMENT_DB_USER"`
	LegacyPassword string `envconfig:"ENROLLMENT_DB_PASSWORD"`
	LegacyName     string `envconfig:"ENROLLMENT_DB_NAME"`
	LegacySSLMode  string `envconfig:"ENROLLMENT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ENROLLMENT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ENROLLMENT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ENROLLMENT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ENROLLMENT_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold time.Duration `envconfig:"ENROLLMENT_DB_SLOW_QUERY" default:"500ms"`
}

// IsSQLite reports whether the embedded SQLite dialect is selected.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(db.Driver, DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"ENROLLMENT_REDIS_URL" required:"true"`
	Address      string        `envconfig:"ENROLLMENT_REDIS_ADDR"`
	Password     string        `envconfig:"ENROLLMENT_REDIS_PASSWORD"`
	DB           int           `envconfig:"ENROLLMENT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ENROLLMENT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ENROLLMENT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ENROLLMENT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ENROLLMENT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ENROLLMENT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"ENROLLMENT_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"ENROLLMENT_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"ENROLLMENT_JWT_EXPIRATION_MINUTES" required:"true"`
}

// Expiration returns the access token lifetime.
func (j JWTConfig) Expiration() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"ENROLLMENT_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"ENROLLMENT_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"ENROLLMENT_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"ENROLLMENT_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"ENROLLMENT_ARGON_KEY_LEN" default:"32"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"ENROLLMENT_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"ENROLLMENT_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	IdempotencyTTL time.Duration `envconfig:"ENROLLMENT_EVENTING_IDEMPOTENCY_TTL" default:"24h"`
}

type ProvisioningConfig struct {
	DefaultCredential string `envconfig:"ENROLLMENT_PROVISIONING_DEFAULT_CREDENTIAL" default:"ChangeMe123!"`
	DefaultRole       string `envconfig:"ENROLLMENT_PROVISIONING_DEFAULT_ROLE" default:"trainee"`
}

type ClearanceConfig struct {
	AllowCredit   bool `envconfig:"ENROLLMENT_CLEARANCE_ALLOW_CREDIT" default:"false"`
	MaxCASRetries int  `envconfig:"ENROLLMENT_CLEARANCE_MAX_CAS_RETRIES" default:"3"`
}

type RecurringConfig struct {
	BatchSize int `envconfig:"ENROLLMENT_RECURRING_BATCH_SIZE" default:"100"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"ENROLLMENT_CRON_INTERVAL" default:"24h"`
	LockTTL  time.Duration `envconfig:"ENROLLMENT_CRON_LOCK_TTL" default:"10m"`

	// JobTimeout of zero leaves each job bounded only by the cycle.
	JobTimeout            time.Duration `envconfig:"ENROLLMENT_CRON_JOB_TIMEOUT" default:"30m"`
	OutboxRetention       time.Duration `envconfig:"ENROLLMENT_CRON_OUTBOX_RETENTION" default:"720h"`
	NotificationRetention time.Duration `envconfig:"ENROLLMENT_CRON_NOTIFICATION_RETENTION" default:"720h"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"ENROLLMENT_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"ENROLLMENT_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"ENROLLMENT_OUTBOX_MAX_ATTEMPTS" default:"10"`
	SendTimeout    time.Duration `envconfig:"ENROLLMENT_OUTBOX_SEND_TIMEOUT" default:"10s"`
}

type NotifyConfig struct {
	Transport   string `envconfig:"ENROLLMENT_NOTIFY_TRANSPORT" default:"log"`
	PubSubTopic string `envconfig:"ENROLLMENT_NOTIFY_PUBSUB_TOPIC" default:"enrollment-notifications"`
	AMQPURL     string `envconfig:"ENROLLMENT_NOTIFY_AMQP_URL"`
	AMQPQueue   string `envconfig:"ENROLLMENT_NOTIFY_AMQP_QUEUE" default:"enrollment.notifications"`
}

func (n NotifyConfig) validate(gcp GCPConfig) error {
	switch strings.ToLower(strings.TrimSpace(n.Transport)) {
	case NotifyTransportLog:
		return nil
	case NotifyTransportPubSub:
		if gcp.ProjectID == "" {
			return fmt.Errorf("%s is required for pubsub transport", EnvGCPProjectID)
		}
		return nil
	case NotifyTransportAMQP:
		if n.AMQPURL == "" {
			return fmt.Errorf("%s is required for amqp transport", EnvNotifyAMQPURL)
		}
		return nil
	default:
		return fmt.Errorf("unsupported notify transport %q", n.Transport)
	}
}

type GCPConfig struct {
	ProjectID              string `envconfig:"ENROLLMENT_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"ENROLLMENT_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"ENROLLMENT_GOOGLE_APPLICATION_CREDENTIALS"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		db.DSN = DefaultSQLiteDSN
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
