package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

type Config struct {
	Env  string `validate:"required,oneof=development stage production dev"`
	Http Http

	Cors CORS `validate:"required"`

	Kafka Kafka `validate:"required"`

	Postgres Postgres `validate:"required"`

	Actor Actor `validate:"required"`

	Sync Sync

	Geo       Geo
	Recommend Recommend
}

type Http struct {
	Host string `validate:"required,hostname|ip"`
	Port string `validate:"required,gt=0,lte=65535"`
}

type Kafka struct {
	GroupID string   `validate:"required"`
	Brokers []string `validate:"required,min=1,dive,hostname_port"`

	// OrdersTopic carries the change feed of the orders table.
	OrdersTopic string `validate:"required"`

	ReaderMaxWait time.Duration `validate:"gte=0"`
	BatchTimeout  time.Duration `validate:"gte=0"`
}

type Postgres struct {
	Host     string `validate:"required,hostname|ip"`
	Port     int    `validate:"required,gt=0,lte=65535"`
	DBName   string `validate:"required"`
	User     string `validate:"required"`
	Password string `validate:"required"`

	SSLMode string `validate:"required,oneof=disable require verify-ca verify-full"`

	MaxOpenConns    int           `validate:"gte=1"`
	MaxIdleConns    int           `validate:"gte=0"`
	ConnMaxLifetime time.Duration `validate:"gte=0"`
}

type CORS struct {
	AllowedOrigins []string `validate:"required,min=1,dive,url"`
}

// Actor is the user this instance syncs on behalf of.
type Actor struct {
	ID   string `validate:"required"`
	Role string `validate:"required,oneof=customer executor admin"`
}

type Sync struct {
	ReconcileInterval      time.Duration `validate:"gt=0"`
	ProfileRefreshInterval time.Duration `validate:"gt=0"`

	// ProfileIDColumn pins the primary key column of the profiles table.
	// Empty means probe the schema at startup.
	ProfileIDColumn string `validate:"omitempty,oneof=id user_id"`
}

type Geo struct {
	GeocoderURL string `validate:"omitempty,url"`
	RouterURL   string `validate:"omitempty,url"`
}

type Recommend struct {
	URL string `validate:"omitempty,url"`
}

func New() Config {
	return Config{
		Env: env("ENV", "dev"),

		Http: Http{
			Host: env("HOST", "localhost"),
			Port: env("PORT", "8080"),
		},

		Cors: CORS{
			AllowedOrigins: strings.Split(env("ALLOWED_CORS_ORIGINS", "http://localhost:3000"), ","),
		},

		Kafka: Kafka{
			GroupID:     env("KAFKA_GROUP_ID", "sync-service"),
			OrdersTopic: env("KAFKA_ORDERS_TOPIC", "orders-changes"),
			Brokers:     strings.Split(env("KAFKA_BROKERS", "localhost:9092"), ","),

			ReaderMaxWait: envDuration("KAFKA_READER_MAX_WAIT", 10*time.Millisecond),
			BatchTimeout:  envDuration("KAFKA_BATCH_TIMEOUT", 10*time.Millisecond),
		},

		Postgres: Postgres{
			Port:     envInt("POSTGRES_PORT", 5432),
			Host:     env("POSTGRES_HOST", "localhost"),
			DBName:   env("POSTGRES_DB", "mobihelp"),
			User:     env("POSTGRES_USER", ""),
			Password: env("POSTGRES_PASSWORD", ""),

			SSLMode: env("POSTGRES_SSL_MODE", "disable"),

			MaxOpenConns:    envInt("POSTGRES_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("POSTGRES_MAX_IDLE_CONNS", 25),
			ConnMaxLifetime: envDuration("POSTGRES_CONN_MAX_LIFETIME", 5*time.Minute),
		},

		Actor: Actor{
			ID:   env("ACTOR_ID", ""),
			Role: env("ACTOR_ROLE", "customer"),
		},

		Sync: Sync{
			ReconcileInterval:      envDuration("SYNC_RECONCILE_INTERVAL", 30*time.Second),
			ProfileRefreshInterval: envDuration("SYNC_PROFILE_REFRESH_INTERVAL", time.Minute),
			ProfileIDColumn:        env("SYNC_PROFILE_ID_COLUMN", ""),
		},

		Geo: Geo{
			GeocoderURL: env("GEOCODER_URL", ""),
			RouterURL:   env("ROUTER_URL", ""),
		},

		Recommend: Recommend{
			URL: env("RECOMMENDER_URL", ""),
		},
	}
}

func (c Config) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}

func env(key string, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	if len(fallback) == 0 {
		return ""
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		i, err := strconv.Atoi(value)
		if err == nil {
			return i
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return fallback
}
