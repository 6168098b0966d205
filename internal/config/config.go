// Package config loads service settings from the environment into an explicit
// Config value that is passed to every component at startup.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends.
const (
	BackendFirebase = "firebase"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Config holds all runtime settings.
type Config struct {
	Port            string
	Backend         string
	ProductsPath    string
	SalesPath       string
	StoreTimeout    time.Duration
	ShutdownTimeout time.Duration
	LogLevel        string

	JWTSecret         string
	SalesRequireAdmin bool
	RolloutKey        string

	Firebase FirebaseConfig
	Redis    RedisConfig
	Postgres PostgresConfig
}

// FirebaseConfig describes the Realtime Database connection.
type FirebaseConfig struct {
	DatabaseURL     string
	CredentialsFile string
	EmulatorHost    string
	ServiceAccount  ServiceAccount
}

// ServiceAccount mirrors the Google service account JSON document.
type ServiceAccount struct {
	Type                    string `json:"type"`
	ProjectID               string `json:"project_id"`
	PrivateKeyID            string `json:"private_key_id"`
	PrivateKey              string `json:"private_key"`
	ClientEmail             string `json:"client_email"`
	ClientID                string `json:"client_id"`
	AuthURI                 string `json:"auth_uri"`
	TokenURI                string `json:"token_uri"`
	AuthProviderX509CertURL string `json:"auth_provider_x509_cert_url"`
	ClientX509CertURL       string `json:"client_x509_cert_url"`
}

// RedisConfig describes the Redis connection.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// PostgresConfig describes the PostgreSQL connection.
type PostgresConfig struct {
	URL    string
	Schema string
}

// Load reads the environment. It fails only on malformed values; use Validate
// to check that the selected backend is fully configured.
func Load() (*Config, error) {
	storeTimeout, err := durationEnv("STORE_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	shutdownTimeout, err := durationEnv("SHUTDOWN_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}
	redisDB, err := intEnv("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}
	requireAdmin, err := boolEnv("SALES_REQUIRE_ADMIN", false)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:              getEnv("PORT", "3001"),
		Backend:           strings.ToLower(getEnv("STORE_BACKEND", BackendFirebase)),
		ProductsPath:      getEnv("PRODUCTS_PATH", "products"),
		SalesPath:         getEnv("SALES_PATH", "sales"),
		StoreTimeout:      storeTimeout,
		ShutdownTimeout:   shutdownTimeout,
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		SalesRequireAdmin: requireAdmin,
		RolloutKey:        os.Getenv("ROLLOUT_KEY"),
		Firebase: FirebaseConfig{
			DatabaseURL:     os.Getenv("FIREBASE_DATABASE_URL"),
			CredentialsFile: os.Getenv("FIREBASE_CREDENTIALS_FILE"),
			EmulatorHost:    os.Getenv("FIREBASE_DATABASE_EMULATOR_HOST"),
			ServiceAccount: ServiceAccount{
				Type:                    os.Getenv("FIREBASE_TYPE"),
				ProjectID:               os.Getenv("FIREBASE_PROJECT_ID"),
				PrivateKeyID:            os.Getenv("FIREBASE_PRIVATE_KEY_ID"),
				PrivateKey:              strings.ReplaceAll(os.Getenv("FIREBASE_PRIVATE_KEY"), `\n`, "\n"),
				ClientEmail:             os.Getenv("FIREBASE_CLIENT_EMAIL"),
				ClientID:                os.Getenv("FIREBASE_CLIENT_ID"),
				AuthURI:                 os.Getenv("FIREBASE_AUTH_URI"),
				TokenURI:                os.Getenv("FIREBASE_TOKEN_URI"),
				AuthProviderX509CertURL: os.Getenv("FIREBASE_AUTH_PROVIDER_X509_CERT_URL"),
				ClientX509CertURL:       os.Getenv("FIREBASE_CLIENT_X509_CERT_URL"),
			},
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
			Prefix:   getEnv("REDIS_PREFIX", "catalog:"),
		},
		Postgres: PostgresConfig{
			URL:    os.Getenv("DATABASE_URL"),
			Schema: getEnv("DATABASE_SCHEMA", "catalog"),
		},
	}
	return cfg, nil
}

// Validate checks that the selected backend has what it needs.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendFirebase:
		if c.Firebase.DatabaseURL == "" {
			return fmt.Errorf("FIREBASE_DATABASE_URL is required for the %s backend", c.Backend)
		}
		if c.Firebase.EmulatorHost == "" && c.Firebase.CredentialsFile == "" &&
			c.Firebase.ServiceAccount.PrivateKey == "" {
			return fmt.Errorf("either FIREBASE_CREDENTIALS_FILE or FIREBASE_PRIVATE_KEY must be set")
		}
	case BackendRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("REDIS_ADDR is required for the %s backend", c.Backend)
		}
	case BackendPostgres:
		if c.Postgres.URL == "" {
			return fmt.Errorf("DATABASE_URL is required for the %s backend", c.Backend)
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.Backend)
	}
	if c.ProductsPath == "" || c.SalesPath == "" {
		return fmt.Errorf("PRODUCTS_PATH and SALES_PATH must not be empty")
	}
	return nil
}

// Addr is the HTTP listen address.
func (c *Config) Addr() string {
	return ":" + c.Port
}

// ServiceAccountJSON renders the service account assembled from FIREBASE_* variables.
func (f FirebaseConfig) ServiceAccountJSON() ([]byte, error) {
	return json.Marshal(f.ServiceAccount)
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func intEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func boolEnv(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}
