package config

import (
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/rmazariegos/campaign-gateway/pkg/logger"
)

var config *Config

// Config holds every env-derived value used by the service. Only this
// struct should be consulted for configuration; no direct os.Getenv
// reads outside this package.
type Config struct {
	AppEnv  string `env:"APP_ENV" default:"dev"`
	AppName string `env:"APP_NAME" default:"campaign_gateway"`

	HttpListenAddr         string `env:"HTTP_LISTEN_ADDR" default:":8080"`
	HttpServerReadTimeout  int    `env:"HTTP_SERVER_READ_TIMEOUT"`
	HttpServerWriteTimeout int    `env:"HTTP_SERVER_WRITE_TIMEOUT"`

	PostgresReadHost     string `env:"POSTGRES_READ_HOST"`
	PostgresReadPort     string `env:"POSTGRES_READ_PORT"`
	PostgresReadUser     string `env:"POSTGRES_READ_USER"`
	PostgresReadPassword string `env:"POSTGRES_READ_PASSWORD"`
	PostgresReadDatabase string `env:"POSTGRES_READ_DBNAME"`

	PostgresWriteHost     string `env:"POSTGRES_WRITE_HOST"`
	PostgresWritePort     string `env:"POSTGRES_WRITE_PORT"`
	PostgresWriteUser     string `env:"POSTGRES_WRITE_USER"`
	PostgresWritePassword string `env:"POSTGRES_WRITE_PASSWORD"`
	PostgresWriteDatabase string `env:"POSTGRES_WRITE_DBNAME"`

	RedisAddr      string `env:"REDIS_ADDR"`
	RedisUsername  string `env:"REDIS_USER"`
	RedisPassword  string `env:"REDIS_PASS"`
	RedisDatabase  int    `env:"REDIS_DATABASE"`
	RedisKeyPrefix string `env:"REDIS_KEY_PREFIX"`

	PromNamespace   string `env:"PROM_NAMESPACE" default:"campaign_gateway"`
	PromListenAddr  string `env:"PROM_LISTEN_ADDR" default:":9100"`
	PromMetricsPath string `env:"PROM_METRICS_PATH" default:"/metrics"`

	// Broadcast provider (BuilderBot-compatible gateway)
	ProviderBroadcastURL string        `env:"PROVIDER_BROADCAST_URL"`
	ProviderAPIKey       string        `env:"PROVIDER_API_KEY"`
	ProviderTimeout      time.Duration `env:"PROVIDER_TIMEOUT" default:"10s"`

	SchedulerTickInterval time.Duration `env:"SCHEDULER_TICK_INTERVAL" default:"60s"`
	CampaignDefaultDelay  int           `env:"CAMPAIGN_DEFAULT_DELAY_MS" default:"2500"`

	TelemetryStream string `env:"TELEMETRY_STREAM" default:"campaigns:events"`
	TelemetryMaxLen int64  `env:"TELEMETRY_STREAM_MAXLEN" default:"100000"`
}

func Load(path string) error {
	logger.Info("loading configs..", "path", path)
	c := &Config{}
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return errors.Wrap(err, "failed to load configuration file "+path)
		}
	}

	if _, err := env.UnmarshalFromEnviron(c); err != nil {
		return errors.Wrap(err, "failed to map env variables to Configuration object")
	}

	config = c
	return nil
}

func Get() *Config {
	if config == nil {
		logger.Panic("Config is not initialized")
	}
	return config
}
