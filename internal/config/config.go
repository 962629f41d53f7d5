package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds all configuration for the application
type Config struct {
	PostgreSQL  PostgreSQLConfig
	Server      ServerConfig
	Catalog     CatalogConfig
	Recommend   RecommendConfig
	AI          AIConfig
	Redis       RedisConfig
	Logging     LoggingConfig
	Marketplace MarketplaceConfig
}

// PostgreSQLConfig holds PostgreSQL database configuration
type PostgreSQLConfig struct {
	DSN                string // 完整的数据库连接字符串（优先使用）
	Host               string
	Port               int
	User               string
	Password           string
	Database           string
	SSLMode            string
	MaxConnections     int
	MaxIdleConnections int
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	Host           string
	GinMode        string
	AllowedOrigins []string
}

// CatalogConfig selects the catalog store backend
type CatalogConfig struct {
	Driver              string // postgres or memory
	SeedFile            string // JSON seed for the memory driver
	EmbeddingDimensions int
}

// RecommendConfig holds recommendation pipeline settings
type RecommendConfig struct {
	MaxResults         int
	ReasoningProducts  int // products embedded in the reasoning prompt
	DescriptionExcerpt int // runes of description embedded per product
	CacheTTL           time.Duration
}

// AIConfig holds the natural-language analysis engine configuration
type AIConfig struct {
	Provider             string // ollama or openai
	Enabled              bool
	BaseURL              string
	APIKey               string
	Model                string
	Timeout              time.Duration
	AnalysisTemperature  float64
	ReasoningTemperature float64
	TopP                 float64
	MaxTokens            int
	RateLimit            float64 // calls per second, 0 disables throttling
	RateBurst            int
	BreakerMinRequests   uint32
	BreakerFailureRatio  float64
	BreakerOpenTimeout   time.Duration
}

// RedisConfig holds Redis result cache configuration
type RedisConfig struct {
	URL    string
	Prefix string
}

// Enabled reports whether the result cache is configured
func (r RedisConfig) Enabled() bool {
	return r.URL != ""
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// MarketplaceConfig holds affiliate API credentials
type MarketplaceConfig struct {
	TaobaoAppKey    string
	TaobaoAppSecret string
	TaobaoPID       string
	JDAppKey        string
	JDAppSecret     string
	JDSiteID        string
	Timeout         time.Duration
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (optional)
	_ = godotenv.Load()

	provider := strings.ToLower(getEnv("AI_PROVIDER", "ollama"))
	aiKey := getEnv("AI_API_KEY", getEnv("OPENAI_API_KEY", ""))
	aiEnabled := getEnvAsBool("OLLAMA_ENABLED", true)
	if provider == "openai" {
		aiEnabled = aiKey != ""
	}

	cfg := &Config{
		PostgreSQL: PostgreSQLConfig{
			// 优先使用完整的 DSN (DATABASE_URL, PG_DSN)
			DSN:                getEnv("DATABASE_URL", getEnv("PG_DSN", "")),
			Host:               getEnv("PG_HOST", "localhost"),
			Port:               getEnvAsInt("PG_PORT", 5432),
			User:               getEnv("PG_USER", "postgres"),
			Password:           getEnv("PG_PASSWORD", ""),
			Database:           getEnv("PG_DATABASE", "giftdb"),
			SSLMode:            getEnv("PG_SSLMODE", "disable"),
			MaxConnections:     getEnvAsInt("PG_MAX_CONNECTIONS", 25),
			MaxIdleConnections: getEnvAsInt("PG_MAX_IDLE_CONNECTIONS", 5),
		},
		Server: ServerConfig{
			Port:           getEnvAsInt("SERVER_PORT", 8000),
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			GinMode:        getEnv("GIN_MODE", "release"),
			AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		},
		Catalog: CatalogConfig{
			Driver:              strings.ToLower(getEnv("CATALOG_DRIVER", "postgres")),
			SeedFile:            getEnv("CATALOG_SEED_FILE", ""),
			EmbeddingDimensions: getEnvAsInt("CATALOG_EMBEDDING_DIMENSIONS", 1024),
		},
		Recommend: RecommendConfig{
			MaxResults:         getEnvAsInt("RECOMMEND_MAX_RESULTS", 10),
			ReasoningProducts:  getEnvAsInt("RECOMMEND_REASONING_PRODUCTS", 5),
			DescriptionExcerpt: getEnvAsInt("RECOMMEND_DESCRIPTION_EXCERPT", 50),
			CacheTTL:           getEnvAsDuration("RECOMMEND_CACHE_TTL", 10*time.Minute),
		},
		AI: AIConfig{
			Provider:             provider,
			Enabled:              aiEnabled,
			BaseURL:              strings.TrimRight(getEnv("AI_BASE_URL", getEnv("OLLAMA_BASE_URL", defaultBaseURL(provider))), "/"),
			APIKey:               aiKey,
			Model:                getEnv("AI_MODEL", getEnv("OLLAMA_MODEL_NAME", "qwen3:4b")),
			Timeout:              getEnvAsDuration("AI_TIMEOUT", 30*time.Second),
			AnalysisTemperature:  getEnvAsFloat("AI_ANALYSIS_TEMPERATURE", 0.3),
			ReasoningTemperature: getEnvAsFloat("AI_REASONING_TEMPERATURE", 0.7),
			TopP:                 getEnvAsFloat("AI_TOP_P", 0.9),
			MaxTokens:            getEnvAsInt("AI_MAX_TOKENS", 2048),
			RateLimit:            getEnvAsFloat("AI_RATE_LIMIT", 5),
			RateBurst:            getEnvAsInt("AI_RATE_BURST", 10),
			BreakerMinRequests:   uint32(getEnvAsInt("AI_BREAKER_MIN_REQUESTS", 5)),
			BreakerFailureRatio:  getEnvAsFloat("AI_BREAKER_FAILURE_RATIO", 0.6),
			BreakerOpenTimeout:   getEnvAsDuration("AI_BREAKER_OPEN_TIMEOUT", time.Minute),
		},
		Redis: RedisConfig{
			URL:    getEnv("REDIS_URL", ""),
			Prefix: getEnv("REDIS_PREFIX", "gift:"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Marketplace: MarketplaceConfig{
			TaobaoAppKey:    getEnv("TAOBAO_UNION_APP_KEY", ""),
			TaobaoAppSecret: getEnv("TAOBAO_UNION_APP_SECRET", ""),
			TaobaoPID:       getEnv("TAOBAO_UNION_PID", ""),
			JDAppKey:        getEnv("JD_UNION_APP_KEY", ""),
			JDAppSecret:     getEnv("JD_UNION_APP_SECRET", ""),
			JDSiteID:        getEnv("JD_UNION_SITE_ID", ""),
			Timeout:         getEnvAsDuration("MARKETPLACE_TIMEOUT", 10*time.Second),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the server cannot run with
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid SERVER_PORT: %d", c.Server.Port)
	}
	switch c.Catalog.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("invalid CATALOG_DRIVER %q, must be postgres or memory", c.Catalog.Driver)
	}
	switch c.AI.Provider {
	case "ollama", "openai":
	default:
		return fmt.Errorf("invalid AI_PROVIDER %q, must be ollama or openai", c.AI.Provider)
	}
	if c.Recommend.MaxResults < 1 {
		return fmt.Errorf("RECOMMEND_MAX_RESULTS must be at least 1")
	}
	if c.AI.Timeout <= 0 {
		return fmt.Errorf("AI_TIMEOUT must be positive")
	}
	return nil
}

// GetPostgreSQLDSN returns PostgreSQL connection string
func (c *Config) GetPostgreSQLDSN() string {
	// 优先使用完整的 DSN
	if c.PostgreSQL.DSN != "" {
		return c.PostgreSQL.DSN
	}

	// 否则从各个字段组装 DSN
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgreSQL.Host,
		c.PostgreSQL.Port,
		c.PostgreSQL.User,
		c.PostgreSQL.Password,
		c.PostgreSQL.Database,
		c.PostgreSQL.SSLMode,
	)
}

func defaultBaseURL(provider string) string {
	if provider == "openai" {
		return "https://api.openai.com/v1"
	}
	return "http://localhost:11434"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Warn().Str("key", key).Int("default", defaultValue).Msg("Invalid integer value, using default")
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Warn().Str("key", key).Float64("default", defaultValue).Msg("Invalid float value, using default")
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Warn().Str("key", key).Bool("default", defaultValue).Msg("Invalid boolean value, using default")
		return defaultValue
	}
	return value
}

// getEnvAsDuration accepts Go durations ("30s") or bare seconds ("30")
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	if secs, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(secs) * time.Second
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Warn().Str("key", key).Dur("default", defaultValue).Msg("Invalid duration value, using default")
		return defaultValue
	}
	return value
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
