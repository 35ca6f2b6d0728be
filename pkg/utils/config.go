package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendLocal  = "local"
	BackendMinio  = "minio"
)

type Config struct {
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
	SyncAddr string `mapstructure:"SYNC_ADDR"`
	LogEnv   string `mapstructure:"LOG_ENV"`

	StoreBackend  string `mapstructure:"STORE_BACKEND"`
	DBPath        string `mapstructure:"DB_PATH"`
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	BlobBackend    string `mapstructure:"BLOB_BACKEND"`
	UploadDir      string `mapstructure:"UPLOAD_DIR"`
	UploadBaseURL  string `mapstructure:"UPLOAD_BASE_URL"`
	UploadMaxBytes int64  `mapstructure:"UPLOAD_MAX_BYTES"`
	MinioEndpoint  string `mapstructure:"MINIO_ENDPOINT"`
	MinioPublicURL string `mapstructure:"MINIO_PUBLIC_URL"`
	MinioAccessKey string `mapstructure:"MINIO_ACCESS_KEY"`
	MinioSecretKey string `mapstructure:"MINIO_SECRET_KEY"`
	MinioBucket    string `mapstructure:"MINIO_BUCKET"`
	MinioUseSSL    bool   `mapstructure:"MINIO_USE_SSL"`

	ReactionCap     int           `mapstructure:"REACTION_CAP"`
	SharedUserID    string        `mapstructure:"SHARED_USER_ID"`
	RefreshInterval time.Duration `mapstructure:"REFRESH_INTERVAL"`

	CORSOrigins []string `mapstructure:"-"`
}

// LoadConfig reads .env (if present) and the process environment.
func LoadConfig() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.CORSOrigins = splitList(v.GetString("CORS_ORIGINS"))

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "."
	}

	defaults := map[string]any{
		"HTTP_ADDR":        ":8080",
		"GRPC_ADDR":        ":9090",
		"SYNC_ADDR":        ":7070",
		"LOG_ENV":          "dev",
		"STORE_BACKEND":    BackendSQLite,
		"DB_PATH":          filepath.Join(home, ".classreviews", "data.db"),
		"REDIS_ADDR":       "localhost:6379",
		"REDIS_PASSWORD":   "",
		"REDIS_DB":         0,
		"BLOB_BACKEND":     BackendLocal,
		"UPLOAD_DIR":       filepath.Join(home, ".classreviews", "uploads"),
		"UPLOAD_BASE_URL":  "http://localhost:8080/uploads",
		"UPLOAD_MAX_BYTES": 5 << 20,
		"MINIO_ENDPOINT":   "localhost:9000",
		"MINIO_PUBLIC_URL": "",
		"MINIO_ACCESS_KEY": "minioadmin",
		"MINIO_SECRET_KEY": "minioadmin",
		"MINIO_BUCKET":     "review-images",
		"MINIO_USE_SSL":    false,
		"REACTION_CAP":     5,
		"SHARED_USER_ID":   "anonymous",
		"REFRESH_INTERVAL": "30s",
		"CORS_ORIGINS":     "*",
	}
	// SetDefault also makes the key known to Unmarshal under AutomaticEnv.
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
}

func (c Config) validate() error {
	switch c.StoreBackend {
	case BackendSQLite, BackendRedis:
	default:
		return fmt.Errorf("STORE_BACKEND must be %s or %s, got %q", BackendSQLite, BackendRedis, c.StoreBackend)
	}
	switch c.BlobBackend {
	case BackendLocal, BackendMinio:
	default:
		return fmt.Errorf("BLOB_BACKEND must be %s or %s, got %q", BackendLocal, BackendMinio, c.BlobBackend)
	}
	if c.ReactionCap <= 0 {
		return fmt.Errorf("REACTION_CAP must be positive, got %d", c.ReactionCap)
	}
	if c.UploadMaxBytes <= 0 {
		return fmt.Errorf("UPLOAD_MAX_BYTES must be positive, got %d", c.UploadMaxBytes)
	}
	if strings.TrimSpace(c.SharedUserID) == "" {
		return fmt.Errorf("SHARED_USER_ID must not be empty")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
