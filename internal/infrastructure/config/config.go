package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/bibbank/leasing/pkg/kafka"
	"github.com/bibbank/leasing/pkg/postgres"
)

// EnvPrefix namespaces every environment override, e.g. LEASING_DB_HOST.
const EnvPrefix = "LEASING"

type DatabaseConfig struct {
	Host             string
	Port             int
	User             string
	Password         string
	Name             string
	SSLMode          string        `mapstructure:"ssl_mode"`
	MaxConns         int32         `mapstructure:"max_conns"`
	StatementTimeout time.Duration `mapstructure:"statement_timeout"`
	LockTimeout      time.Duration `mapstructure:"lock_timeout"`
	AutoMigrate      bool          `mapstructure:"auto_migrate"`
}

type KafkaConfig struct {
	Enabled       bool
	Brokers       []string
	EventsTopic   string `mapstructure:"events_topic"`
	PaymentsTopic string `mapstructure:"payments_topic"`
	ConsumerGroup string `mapstructure:"consumer_group"`
	TLS           bool
	TLSCAFile     string `mapstructure:"tls_ca_file"`
	SASLMechanism string `mapstructure:"sasl_mechanism"`
	SASLUsername  string `mapstructure:"sasl_username"`
	SASLPassword  string `mapstructure:"sasl_password"`
}

type LogConfig struct {
	Level  string
	Format string
}

// RateLimitConfig throttles the gRPC API. A non-positive RPS disables it.
type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int
}

type TLSConfig struct {
	CertFile string `mapstructure:"cert_file"`
	KeyFile  string `mapstructure:"key_file"`
}

// EngineConfig tunes reconciliation.
type EngineConfig struct {
	Store            string
	GracePeriodDays  int           `mapstructure:"grace_period_days"`
	BulkConcurrency  int           `mapstructure:"bulk_concurrency"`
	SweepSchedule    string        `mapstructure:"sweep_schedule"`
	SweepTimeout     time.Duration `mapstructure:"sweep_timeout"`
	RetryMaxAttempts int           `mapstructure:"retry_max_attempts"`
	RetryInitial     time.Duration `mapstructure:"retry_initial"`
	RetryMaxInterval time.Duration `mapstructure:"retry_max_interval"`
}

// Config is the daemon configuration.
type Config struct {
	ServiceName string `mapstructure:"service_name"`
	GRPCPort    int    `mapstructure:"grpc_port"`
	HTTPPort    int    `mapstructure:"http_port"`
	DB          DatabaseConfig
	Kafka       KafkaConfig
	Log         LogConfig
	TLS         TLSConfig
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
	Engine      EngineConfig
}

// Supported storage backends.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Load reads defaults, then an optional config file named by LEASING_CONFIG,
// then environment overrides. Variables from a dotenv file (LEASING_ENV_FILE,
// else ./.env when present) fill in whatever the process environment lacks.
func Load() (Config, error) {
	if err := loadDotenv(); err != nil {
		return Config{}, err
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	if path := os.Getenv(EnvPrefix + "_CONFIG"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return c, nil
}

func loadDotenv() error {
	path := os.Getenv(EnvPrefix + "_ENV_FILE")
	explicit := path != ""
	if !explicit {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service_name", "leasingd")
	v.SetDefault("grpc_port", 9095)
	v.SetDefault("http_port", 8095)

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "leasing")
	v.SetDefault("db.password", "")
	v.SetDefault("db.name", "leasing")
	v.SetDefault("db.ssl_mode", "require")
	v.SetDefault("db.max_conns", 20)
	v.SetDefault("db.statement_timeout", 30*time.Second)
	v.SetDefault("db.lock_timeout", 5*time.Second)
	v.SetDefault("db.auto_migrate", true)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.events_topic", "leasing-events")
	v.SetDefault("kafka.payments_topic", "leasing-payment-rows")
	v.SetDefault("kafka.consumer_group", "leasingd")
	v.SetDefault("kafka.tls", false)
	v.SetDefault("kafka.tls_ca_file", "")
	v.SetDefault("kafka.sasl_mechanism", "")
	v.SetDefault("kafka.sasl_username", "")
	v.SetDefault("kafka.sasl_password", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("tls.cert_file", "")
	v.SetDefault("tls.key_file", "")

	v.SetDefault("rate_limit.rps", 0)
	v.SetDefault("rate_limit.burst", 50)

	v.SetDefault("engine.store", StorePostgres)
	v.SetDefault("engine.grace_period_days", 0)
	v.SetDefault("engine.bulk_concurrency", 8)
	v.SetDefault("engine.sweep_schedule", "@every 1h")
	v.SetDefault("engine.sweep_timeout", 10*time.Minute)
	v.SetDefault("engine.retry_max_attempts", 5)
	v.SetDefault("engine.retry_initial", 50*time.Millisecond)
	v.SetDefault("engine.retry_max_interval", 2*time.Second)
}

// Validate reports settings the daemon cannot start with.
func (c Config) Validate() error {
	var errs []error
	switch c.Engine.Store {
	case StorePostgres:
		if c.DB.Password == "" {
			errs = append(errs, errors.New("LEASING_DB_PASSWORD is required for the postgres store"))
		}
	case StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown engine store %q", c.Engine.Store))
	}
	if c.GRPCPort <= 0 || c.HTTPPort <= 0 {
		errs = append(errs, errors.New("grpc_port and http_port must be positive"))
	}
	if c.Engine.GracePeriodDays < 0 {
		errs = append(errs, errors.New("engine.grace_period_days must not be negative"))
	}
	if c.Engine.BulkConcurrency < 1 {
		errs = append(errs, errors.New("engine.bulk_concurrency must be at least 1"))
	}
	if c.Engine.RetryMaxAttempts < 1 {
		errs = append(errs, errors.New("engine.retry_max_attempts must be at least 1"))
	}
	if c.RateLimit.RPS > 0 && c.RateLimit.Burst < 1 {
		errs = append(errs, errors.New("rate_limit.burst must be at least 1 when rate limiting is on"))
	}
	if c.Kafka.Enabled {
		if err := c.KafkaClient().Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Postgres converts the database section into pool settings.
func (c Config) Postgres() postgres.Config {
	return postgres.Config{
		Host:             c.DB.Host,
		Port:             c.DB.Port,
		User:             c.DB.User,
		Password:         c.DB.Password,
		Database:         c.DB.Name,
		SSLMode:          c.DB.SSLMode,
		MaxConns:         c.DB.MaxConns,
		StatementTimeout: c.DB.StatementTimeout,
		LockTimeout:      c.DB.LockTimeout,
	}
}

// KafkaClient converts the kafka section into client settings.
func (c Config) KafkaClient() kafka.Config {
	return kafka.Config{
		Brokers:       c.Kafka.Brokers,
		ConsumerGroup: c.Kafka.ConsumerGroup,
		ClientID:      c.ServiceName,
		TLS:           c.Kafka.TLS,
		TLSCAFile:     c.Kafka.TLSCAFile,
		SASLEnabled:   c.Kafka.SASLMechanism != "",
		SASLMechanism: c.Kafka.SASLMechanism,
		SASLUsername:  c.Kafka.SASLUsername,
		SASLPassword:  c.Kafka.SASLPassword,
	}
}

func (c Config) GRPCAddr() string {
	return fmt.Sprintf(":%d", c.GRPCPort)
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}
