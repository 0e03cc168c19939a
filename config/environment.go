package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Environment struct {
	IsDevelopment  bool     `yaml:"-"`
	Mode           string   `yaml:"mode"`
	Port           string   `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`

	DBDriver string `yaml:"db_driver"`
	DBURL    string `yaml:"db_url"`

	// Auth0 mode is used when AuthIssuer is set, otherwise tokens are
	// HS256 signed with JWTSecretKey.
	AuthIssuer   string        `yaml:"auth_issuer"`
	AuthAudience string        `yaml:"auth_audience"`
	JWTSecretKey string        `yaml:"jwt_secret_key"`
	AuthCacheTTL time.Duration `yaml:"auth_cache_ttl"`

	DeckCacheDedupe time.Duration `yaml:"deck_cache_dedupe"`
	RedisAddr       string        `yaml:"redis_addr"`
	RedisChannel    string        `yaml:"redis_channel"`

	VisionProvider string `yaml:"vision_provider"`
	OpenAIAPIKey   string `yaml:"openai_api_key"`
	OpenAIBaseURL  string `yaml:"openai_base_url"`
	OpenAIModel    string `yaml:"openai_model"`
	MyMemoryURL    string `yaml:"mymemory_url"`
	LingvaURL      string `yaml:"lingva_url"`

	StorageDriver   string `yaml:"storage_driver"`
	StorageBucket   string `yaml:"storage_bucket"`
	StoragePublic   string `yaml:"storage_public_base_url"`
	S3Region        string `yaml:"s3_region"`
	S3Endpoint      string `yaml:"s3_endpoint"`
	S3AccessKey     string `yaml:"s3_access_key"`
	S3SecretKey     string `yaml:"s3_secret_key"`
	MaxUploadBytes  int64  `yaml:"max_upload_bytes"`
	ExportWatermark string `yaml:"export_watermark"`
	// ImageBaseURL resolves relative image paths when rendering exports.
	ImageBaseURL string `yaml:"image_base_url"`
}

func defaults() Environment {
	return Environment{
		Mode:            "development",
		Port:            "8080",
		AllowedOrigins:  []string{"http://localhost:3000"},
		DBDriver:        "sqlite",
		DBURL:           "tarjetas.db",
		AuthCacheTTL:    30 * time.Second,
		DeckCacheDedupe: 2 * time.Second,
		RedisChannel:    "deck-cache",
		VisionProvider:  "openai",
		OpenAIBaseURL:   "https://api.openai.com/v1",
		OpenAIModel:     "gpt-4o-mini",
		MyMemoryURL:     "https://api.mymemory.translated.net/get",
		LingvaURL:       "https://lingva.ml/api/v1",
		StorageDriver:   "none",
		S3Region:        "us-east-1",
		MaxUploadBytes:  5 << 20,
		ExportWatermark: "tarjetas",
	}
}

// Load builds the Environment from defaults, then CONFIG_FILE (YAML) if set, then the
// environment. A .env file is read first outside production.
func Load() (Environment, error) {
	if os.Getenv("RAILWAY_ENVIRONMENT_NAME") == "" && os.Getenv("APP_ENV") != "production" {
		// missing .env is fine
		_ = godotenv.Load()
	}

	env := defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return env, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &env); err != nil {
			return env, fmt.Errorf("parse config file: %w", err)
		}
	}
	applyEnv(&env)

	env.IsDevelopment = !strings.EqualFold(env.Mode, "production") && !strings.EqualFold(env.Mode, "prod")
	if env.AuthIssuer == "" && env.JWTSecretKey == "" {
		return env, fmt.Errorf("config: either AUTH_ISSUER or JWT_SECRET_KEY must be set")
	}

	return env, nil
}

func applyEnv(env *Environment) {
	str(&env.Mode, "APP_ENV")
	str(&env.Port, "PORT")
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		env.AllowedOrigins = splitList(v)
	}
	str(&env.DBDriver, "DB_DRIVER")
	str(&env.DBURL, "DB_URL")
	str(&env.AuthIssuer, "AUTH_ISSUER")
	str(&env.AuthAudience, "AUTH_AUDIENCE")
	str(&env.JWTSecretKey, "JWT_SECRET_KEY")
	dur(&env.AuthCacheTTL, "AUTH_CACHE_TTL")
	dur(&env.DeckCacheDedupe, "DECK_CACHE_DEDUPE")
	str(&env.RedisAddr, "REDIS_ADDR")
	str(&env.RedisChannel, "REDIS_CHANNEL")
	str(&env.VisionProvider, "VISION_PROVIDER")
	str(&env.OpenAIAPIKey, "OPENAI_API_KEY")
	str(&env.OpenAIBaseURL, "OPENAI_BASE_URL")
	str(&env.OpenAIModel, "OPENAI_MODEL")
	str(&env.MyMemoryURL, "MYMEMORY_URL")
	str(&env.LingvaURL, "LINGVA_URL")
	str(&env.StorageDriver, "STORAGE_DRIVER")
	str(&env.StorageBucket, "STORAGE_BUCKET")
	str(&env.StoragePublic, "STORAGE_PUBLIC_BASE_URL")
	str(&env.S3Region, "S3_REGION")
	str(&env.S3Endpoint, "S3_ENDPOINT")
	str(&env.S3AccessKey, "S3_ACCESS_KEY")
	str(&env.S3SecretKey, "S3_SECRET_KEY")
	str(&env.ExportWatermark, "EXPORT_WATERMARK")
	str(&env.ImageBaseURL, "IMAGE_BASE_URL")
	if v := os.Getenv("MAX_UPLOAD_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			env.MaxUploadBytes = n
		}
	}
}

func str(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		*dst = strings.TrimSpace(v)
	}
}

func dur(dst *time.Duration, key string) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return
	}
	if d, err := time.ParseDuration(v); err == nil {
		*dst = d
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
