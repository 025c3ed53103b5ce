package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	units "github.com/docker/go-units"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	MongoDB   MongoDBConfig
	Redis     RedisConfig
	Keycloak  KeycloakConfig
	JWT       JWTConfig
	Auth      AuthConfig
	Storage   StorageConfig
	RateLimit RateLimitConfig
	Papers    PapersConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port            string
	Host            string
	Environment     string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

// IsProduction reports whether SERVER_ENVIRONMENT is "production".
func (s ServerConfig) IsProduction() bool {
	return strings.EqualFold(s.Environment, "production")
}

type MongoDBConfig struct {
	URI             string
	Database        string
	Timeout         time.Duration
	ConnectAttempts int
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Addr returns host:port, or "" when Redis is not configured.
func (r RedisConfig) Addr() string {
	if r.Host == "" {
		return ""
	}
	return r.Host + ":" + r.Port
}

type KeycloakConfig struct {
	URL      string
	Realm    string
	ClientID string
}

// Issuer returns the realm issuer URL, falling back to URL for older deployments.
func (k KeycloakConfig) Issuer() string {
	if k.Realm == "" {
		return k.URL
	}
	return strings.TrimRight(k.URL, "/") + "/realms/" + k.Realm
}

type JWTConfig struct {
	Secret             string
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
	RememberRefreshTTL time.Duration
}

// AuthConfig selects how requests are turned into principals.
type AuthConfig struct {
	Mode               string // jwt | oidc
	CookieName         string
	AllowInsecureToken bool
}

type StorageConfig struct {
	Mode           string // blob | inline
	MaxUploadBytes int64
	InlineMaxBytes int64
	LocalDir       string
	PublicPath     string
	MinIO          MinIOConfig
}

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	Region    string
	PublicURL string
}

// Enabled reports whether the managed backend has enough settings to be used.
func (m MinIOConfig) Enabled() bool {
	return m.Endpoint != "" && m.AccessKey != ""
}

type RateLimitConfig struct {
	Enabled       bool
	UseRedis      bool
	RPS           float64
	Burst         int
	WindowSeconds int
}

type PapersConfig struct {
	PageSize        int
	DerivePageCount bool
}

type LogConfig struct {
	Level  string
	Format string
}

const minSecretLength = 32

// LoadConfig loads configuration from environment variables and an optional .env file.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load(envFile())

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("SERVER_PORT", "5001")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_ENVIRONMENT", "development")
	v.SetDefault("SERVER_READ_TIMEOUT", "30s")
	v.SetDefault("SERVER_WRITE_TIMEOUT", "120s")
	v.SetDefault("SERVER_REQUEST_TIMEOUT", "60s")
	v.SetDefault("SERVER_SHUTDOWN_TIMEOUT", "15s")
	v.SetDefault("MONGODB_DATABASE", "dugsihub")
	v.SetDefault("MONGODB_TIMEOUT", 10)
	v.SetDefault("MONGODB_CONNECT_ATTEMPTS", 5)
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("JWT_ACCESS_TOKEN_TTL", 15)
	v.SetDefault("JWT_REFRESH_TOKEN_TTL", 10080)
	v.SetDefault("JWT_REMEMBER_REFRESH_TTL", 43200)
	v.SetDefault("AUTH_MODE", "jwt")
	v.SetDefault("AUTH_COOKIE_NAME", "session")
	v.SetDefault("STORAGE_MODE", "blob")
	v.SetDefault("MAX_UPLOAD_SIZE", "25MB")
	v.SetDefault("INLINE_MAX_SIZE", "15MB")
	v.SetDefault("STORAGE_LOCAL_DIR", "./data/uploads")
	v.SetDefault("STORAGE_PUBLIC_PATH", "/uploads")
	v.SetDefault("MINIO_BUCKET", "dugsihub")
	v.SetDefault("MINIO_REGION", "us-east-1")
	v.SetDefault("RATE_LIMIT_ENABLED", true)
	v.SetDefault("RATE_LIMIT_RPS", 5)
	v.SetDefault("RATE_LIMIT_BURST", 20)
	v.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 60)
	v.SetDefault("PAPERS_PAGE_SIZE", 12)
	v.SetDefault("PAPERS_DERIVE_PAGE_COUNT", true)
	v.SetDefault("LOG_LEVEL", "info")

	maxUpload, err := units.RAMInBytes(v.GetString("MAX_UPLOAD_SIZE"))
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_UPLOAD_SIZE: %w", err)
	}
	inlineMax, err := units.RAMInBytes(v.GetString("INLINE_MAX_SIZE"))
	if err != nil {
		return nil, fmt.Errorf("invalid INLINE_MAX_SIZE: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            v.GetString("SERVER_PORT"),
			Host:            v.GetString("SERVER_HOST"),
			Environment:     v.GetString("SERVER_ENVIRONMENT"),
			ReadTimeout:     v.GetDuration("SERVER_READ_TIMEOUT"),
			WriteTimeout:    v.GetDuration("SERVER_WRITE_TIMEOUT"),
			RequestTimeout:  v.GetDuration("SERVER_REQUEST_TIMEOUT"),
			ShutdownTimeout: v.GetDuration("SERVER_SHUTDOWN_TIMEOUT"),
		},
		MongoDB: MongoDBConfig{
			URI:             v.GetString("MONGODB_URI"),
			Database:        v.GetString("MONGODB_DATABASE"),
			Timeout:         time.Duration(v.GetInt("MONGODB_TIMEOUT")) * time.Second,
			ConnectAttempts: v.GetInt("MONGODB_CONNECT_ATTEMPTS"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Keycloak: KeycloakConfig{
			URL:      v.GetString("KEYCLOAK_URL"),
			Realm:    v.GetString("KEYCLOAK_REALM"),
			ClientID: v.GetString("KEYCLOAK_CLIENT_ID"),
		},
		JWT: JWTConfig{
			Secret:             os.Getenv("AUTH_SECRET"),
			AccessTokenTTL:     time.Duration(v.GetInt("JWT_ACCESS_TOKEN_TTL")) * time.Minute,
			RefreshTokenTTL:    time.Duration(v.GetInt("JWT_REFRESH_TOKEN_TTL")) * time.Minute,
			RememberRefreshTTL: time.Duration(v.GetInt("JWT_REMEMBER_REFRESH_TTL")) * time.Minute,
		},
		Auth: AuthConfig{
			Mode:               strings.ToLower(v.GetString("AUTH_MODE")),
			CookieName:         v.GetString("AUTH_COOKIE_NAME"),
			AllowInsecureToken: v.GetBool("ALLOW_INSECURE_TOKEN"),
		},
		Storage: StorageConfig{
			Mode:           strings.ToLower(v.GetString("STORAGE_MODE")),
			MaxUploadBytes: maxUpload,
			InlineMaxBytes: inlineMax,
			LocalDir:       v.GetString("STORAGE_LOCAL_DIR"),
			PublicPath:     v.GetString("STORAGE_PUBLIC_PATH"),
			MinIO: MinIOConfig{
				Endpoint:  v.GetString("MINIO_ENDPOINT"),
				AccessKey: v.GetString("MINIO_ACCESS_KEY"),
				SecretKey: os.Getenv("MINIO_SECRET_KEY"),
				UseSSL:    v.GetBool("MINIO_USE_SSL"),
				Bucket:    v.GetString("MINIO_BUCKET"),
				Region:    v.GetString("MINIO_REGION"),
				PublicURL: v.GetString("MINIO_PUBLIC_URL"),
			},
		},
		RateLimit: RateLimitConfig{
			Enabled:       v.GetBool("RATE_LIMIT_ENABLED"),
			UseRedis:      v.GetBool("RATE_LIMIT_USE_REDIS"),
			RPS:           v.GetFloat64("RATE_LIMIT_RPS"),
			Burst:         v.GetInt("RATE_LIMIT_BURST"),
			WindowSeconds: v.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
		Papers: PapersConfig{
			PageSize:        v.GetInt("PAPERS_PAGE_SIZE"),
			DerivePageCount: v.GetBool("PAPERS_DERIVE_PAGE_COUNT"),
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
		if cfg.Server.IsProduction() {
			cfg.Log.Format = "json"
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.Auth.Mode {
	case "jwt":
		if len(c.JWT.Secret) < minSecretLength {
			return fmt.Errorf("AUTH_SECRET must be at least %d characters", minSecretLength)
		}
	case "oidc":
		if c.Keycloak.URL == "" && !c.Auth.AllowInsecureToken {
			return fmt.Errorf("AUTH_MODE=oidc requires KEYCLOAK_URL or ALLOW_INSECURE_TOKEN=true")
		}
	default:
		return fmt.Errorf("unsupported AUTH_MODE %q", c.Auth.Mode)
	}
	switch c.Storage.Mode {
	case "blob", "inline":
	default:
		return fmt.Errorf("unsupported STORAGE_MODE %q", c.Storage.Mode)
	}
	if c.Storage.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_SIZE must be positive")
	}
	if c.Server.IsProduction() && c.MongoDB.URI == "" {
		return fmt.Errorf("environment variable MONGODB_URI is required in production")
	}
	if c.Papers.PageSize <= 0 {
		c.Papers.PageSize = 12
	}
	return nil
}

func envFile() string {
	if p := os.Getenv("ENV_FILE"); p != "" {
		return p
	}
	return ".env"
}
