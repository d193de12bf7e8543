package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreMemory    = "memory"
	StoreFirestore = "firestore"
	StoreMongo     = "mongo"

	AuthFirebase = "firebase"
	AuthJWT      = "jwt"
)

type Config struct {
	Port                    string
	Env                     string
	StoreDriver             string
	FirebaseCredentialsPath string
	MongoURI                string
	MongoDatabase           string
	PostgresConnStr         string
	RedisAddr               string
	EventStream             string
	EventGroup              string
	MetricsPort             string
	AuthMode                string
	JWTSecret               string
	Operators               []string
	MaxBatchSize            int
	DispatchMaxAttempts     int
	DispatchInitialBackoff  time.Duration
	DispatchMaxBackoff      time.Duration
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:                    getEnv("PORT", "8080"),
		Env:                     getEnv("ENV", "development"),
		StoreDriver:             getEnv("STORE_DRIVER", StoreMemory),
		FirebaseCredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", "./firebase_credentials.json"),
		MongoURI:                getEnv("MONGO_URI", ""),
		MongoDatabase:           getEnv("MONGO_DATABASE", "socialape"),
		PostgresConnStr:         getEnv("POSTGRES_CONN_STR", ""),
		RedisAddr:               getEnv("REDIS_ADDR", ""),
		EventStream:             getEnv("EVENT_STREAM", "socialape:events"),
		EventGroup:              getEnv("EVENT_GROUP", "triggers"),
		MetricsPort:             getEnv("METRICS_PORT", "9090"),
		AuthMode:                getEnv("AUTH_MODE", AuthFirebase),
		JWTSecret:               getEnv("JWT_SECRET", ""),
		Operators:               getList("OPERATOR_HANDLES"),
	}

	var err error
	if cfg.MaxBatchSize, err = getInt("MAX_BATCH_SIZE", 500); err != nil {
		return nil, err
	}
	if cfg.DispatchMaxAttempts, err = getInt("DISPATCH_MAX_ATTEMPTS", 3); err != nil {
		return nil, err
	}
	if cfg.DispatchInitialBackoff, err = getDuration("DISPATCH_INITIAL_BACKOFF", 100*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.DispatchMaxBackoff, err = getDuration("DISPATCH_MAX_BACKOFF", 2*time.Second); err != nil {
		return nil, err
	}
	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case StoreMemory, StoreFirestore:
	case StoreMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required for store driver %q", c.StoreDriver)
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	switch c.AuthMode {
	case AuthFirebase:
	case AuthJWT:
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required for auth mode %q", c.AuthMode)
		}
	default:
		return fmt.Errorf("unknown AUTH_MODE %q", c.AuthMode)
	}
	if c.MaxBatchSize <= 0 || c.MaxBatchSize > 500 {
		return fmt.Errorf("MAX_BATCH_SIZE must be between 1 and 500, got %d", c.MaxBatchSize)
	}
	if c.DispatchMaxAttempts < 1 {
		return fmt.Errorf("DISPATCH_MAX_ATTEMPTS must be at least 1, got %d", c.DispatchMaxAttempts)
	}
	return nil
}

// UsesFirebase reports whether the Firebase app is needed at all.
func (c *Config) UsesFirebase() bool {
	return c.StoreDriver == StoreFirestore || c.AuthMode == AuthFirebase
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}
