// Package config provides configuration management and environment variable handling for the application
package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/trendforge/trendforge/utils"
)

// ProductionConfig holds all configuration for production environment
type ProductionConfig struct {
	Database   DatabaseConfig   `json:"database"`
	Server     ServerConfig     `json:"server"`
	Security   SecurityConfig   `json:"security"`
	JWT        JWTConfig        `json:"jwt"`
	Logging    LoggingConfig    `json:"logging"`
	Metrics    MetricsConfig    `json:"metrics"`
	Cache      CacheConfig      `json:"cache"`
	Scheduler  SchedulerConfig  `json:"scheduler"`
	Pipeline   PipelineConfig   `json:"pipeline"`
	Scoring    ScoringConfig    `json:"scoring"`
	Generation GenerationConfig `json:"generation"`
	Upload     UploadConfig     `json:"upload"`
	Deployment DeploymentConfig `json:"deployment"`
}

type DatabaseConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	Name            string        `json:"name"`
	User            string        `json:"user"`
	Password        string        `json:"password"`
	SSLMode         string        `json:"ssl_mode"`
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time"`
	SlowQueryLog    bool          `json:"slow_query_log"`
	SlowQueryTime   time.Duration `json:"slow_query_time"`
}

type ServerConfig struct {
	Host              string        `json:"host"`
	Port              int           `json:"port"`
	ReadTimeout       time.Duration `json:"read_timeout"`
	WriteTimeout      time.Duration `json:"write_timeout"`
	IdleTimeout       time.Duration `json:"idle_timeout"`
	ShutdownTimeout   time.Duration `json:"shutdown_timeout"`
	BodyLimit         int           `json:"body_limit"`
	EnableMetrics     bool          `json:"enable_metrics"`
	TrustedProxies    []string      `json:"trusted_proxies"`
	ProxyHeader       string        `json:"proxy_header"`
	EnableCompression bool          `json:"enable_compression"`
	CompressionLevel  int           `json:"compression_level"`
}

type SecurityConfig struct {
	// CORS
	AllowedOrigins   []string `json:"allowed_origins"`
	AllowedMethods   []string `json:"allowed_methods"`
	AllowedHeaders   []string `json:"allowed_headers"`
	AllowCredentials bool     `json:"allow_credentials"`
	CORSMaxAge       int      `json:"cors_max_age"`

	// Rate Limiting
	GlobalRateLimit int           `json:"global_rate_limit"` // requests per minute
	RateLimitWindow time.Duration `json:"rate_limit_window"`
}

type JWTConfig struct {
	SecretKey       string          `json:"secret_key"`
	PrivateKey      string          `json:"private_key"`  // RSA private key in PEM format
	PublicKey       string          `json:"public_key"`   // RSA public key in PEM format
	UseRSAKeys      bool            `json:"use_rsa_keys"` // Whether to use RSA keys instead of secret key
	AccessTokenTTL  time.Duration   `json:"access_token_ttl"`
	RefreshTokenTTL time.Duration   `json:"refresh_token_ttl"`
	Issuer          string          `json:"issuer"`
	Audience        string          `json:"audience"`
	OperatorKeys    map[string]uint `json:"operator_keys"` // API key -> operator ID
}

type LoggingConfig struct {
	Level        string `json:"level"`  // debug, info, warn, error
	Format       string `json:"format"` // json, text
	Output       string `json:"output"` // stdout, file, both
	FilePath     string `json:"file_path"`
	MaxSize      int    `json:"max_size"` // MB
	MaxBackups   int    `json:"max_backups"`
	MaxAge       int    `json:"max_age"` // days
	Compress     bool   `json:"compress"`
	EnableCaller bool   `json:"enable_caller"`
}

type MetricsConfig struct {
	Enabled        bool   `json:"enabled"`
	PrometheusPath string `json:"prometheus_path"`
}

type CacheConfig struct {
	Enabled     bool          `json:"enabled"`
	RedisURL    string        `json:"redis_url"`
	RedisDB     int           `json:"redis_db"`
	RedisPrefix string        `json:"redis_prefix"`
	DefaultTTL  time.Duration `json:"default_ttl"`
}

type SchedulerConfig struct {
	TrendPollInterval    time.Duration `json:"trend_poll_interval"`
	TrendSources         []string      `json:"trend_sources"`
	OpportunityRetention time.Duration `json:"opportunity_retention"`
	ExpiryInterval       time.Duration `json:"expiry_interval"`
	ResumeOnStart        bool          `json:"resume_on_start"`
}

type PipelineConfig struct {
	MaxConcurrentJobs  int           `json:"max_concurrent_jobs"`
	QueueDepth         int           `json:"queue_depth"`
	StageTimeout       time.Duration `json:"stage_timeout"`
	DefaultSceneCount  int           `json:"default_scene_count"`
	DefaultDuration    time.Duration `json:"default_duration"`
	ProgressCacheTTL   time.Duration `json:"progress_cache_ttl"`
	StageRetryAttempts int           `json:"stage_retry_attempts"`
}

type ScoringConfig struct {
	PopularityFloor       float64 `json:"popularity_floor"`
	ViralWeight           float64 `json:"viral_weight"`
	ROIWeight             float64 `json:"roi_weight"`
	RevenuePerMille       float64 `json:"revenue_per_mille"` // expected revenue per 1000 views
	LowCompetitionBonus   float64 `json:"low_competition_bonus"`
	MedCompetitionBonus   float64 `json:"med_competition_bonus"`
	HighCompetitionBonus  float64 `json:"high_competition_bonus"`
	FastProductionMinutes int     `json:"fast_production_minutes"`
}

// AdapterConfig describes one generation backend
type AdapterConfig struct {
	Name        string        `json:"name"`
	Capability  string        `json:"capability"` // text, image, audio, assembly
	Tier        string        `json:"tier"`       // budget, balanced, premium
	Kind        string        `json:"kind"`       // http, llm, mock
	Endpoint    string        `json:"endpoint"`
	APIKey      string        `json:"api_key"`
	Model       string        `json:"model"`
	CostPerCall float64       `json:"cost_per_call"`
	Timeout     time.Duration `json:"timeout"`
}

type GenerationConfig struct {
	Adapters []AdapterConfig `json:"adapters"`
}

// PlatformConfig describes one distribution platform
type PlatformConfig struct {
	Name          string        `json:"name"`
	Endpoint      string        `json:"endpoint"`
	APIKey        string        `json:"api_key"`
	Workers       int           `json:"workers"`
	RatePerMinute int           `json:"rate_per_minute"`
	Burst         int           `json:"burst"`
	MaxRetries    int           `json:"max_retries"`
	Timeout       time.Duration `json:"timeout"`
}

type UploadConfig struct {
	Platforms      []PlatformConfig `json:"platforms"`
	SchedulerTick  time.Duration    `json:"scheduler_tick"`
	StuckThreshold time.Duration    `json:"stuck_threshold"`
	RetryBaseDelay time.Duration    `json:"retry_base_delay"`
	RetryMaxDelay  time.Duration    `json:"retry_max_delay"`
}

type DeploymentConfig struct {
	Environment string `json:"environment"`
	Version     string `json:"version"`
	CommitHash  string `json:"commit_hash"`
	BuildTime   string `json:"build_time"`
}

// capability/tier pairs enumerated when reading the adapter catalog from env
var adapterSlots = []struct {
	capability string
	tier       string
}{
	{"text", "budget"}, {"text", "balanced"}, {"text", "premium"},
	{"image", "budget"}, {"image", "balanced"}, {"image", "premium"},
	{"audio", "budget"}, {"audio", "balanced"}, {"audio", "premium"},
	{"assembly", "budget"}, {"assembly", "balanced"}, {"assembly", "premium"},
}

// LoadProductionConfig loads and validates configuration from environment variables
func LoadProductionConfig() (*ProductionConfig, error) {
	// Load environment variables from .env file
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &ProductionConfig{
		Database: DatabaseConfig{
			Host:            getEnvString("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			Name:            getEnvString("DB_NAME", "postgres"),
			User:            getEnvString("DB_USER", "postgres"),
			Password:        getEnvString("DB_PASSWORD", ""),
			SSLMode:         getEnvString("DB_SSL_MODE", "require"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 100),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", 15*time.Minute),
			SlowQueryLog:    getEnvBool("DB_SLOW_QUERY_LOG", true),
			SlowQueryTime:   getEnvDuration("DB_SLOW_QUERY_TIME", 1*time.Second),
		},
		Server: ServerConfig{
			Host:              getEnvString("SERVER_HOST", "0.0.0.0"),
			Port:              getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:       getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:      getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:       getEnvDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			ShutdownTimeout:   getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			BodyLimit:         getEnvInt("SERVER_BODY_LIMIT", 4*1024*1024), // 4MB
			EnableMetrics:     getEnvBool("SERVER_ENABLE_METRICS", true),
			TrustedProxies:    getEnvStringSlice("SERVER_TRUSTED_PROXIES", []string{"127.0.0.1"}),
			ProxyHeader:       getEnvString("SERVER_PROXY_HEADER", "X-Real-IP"),
			EnableCompression: getEnvBool("SERVER_ENABLE_COMPRESSION", true),
			CompressionLevel:  getEnvInt("SERVER_COMPRESSION_LEVEL", 6),
		},
		Security: SecurityConfig{
			AllowedOrigins:   getEnvStringSlice("CORS_ALLOWED_ORIGINS", []string{"https://trendforge.io", "https://api.trendforge.io"}),
			AllowedMethods:   getEnvStringSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			AllowedHeaders:   getEnvStringSlice("CORS_ALLOWED_HEADERS", []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"}),
			AllowCredentials: getEnvBool("CORS_ALLOW_CREDENTIALS", true),
			CORSMaxAge:       getEnvInt("CORS_MAX_AGE", utils.CORSMaxAge),
			GlobalRateLimit:  getEnvInt("GLOBAL_RATE_LIMIT", 2000),
			RateLimitWindow:  getEnvDuration("RATE_LIMIT_WINDOW", 1*time.Minute),
		},
		JWT: JWTConfig{
			SecretKey:       getEnvString("JWT_SECRET_KEY", ""),
			PrivateKey:      getEnvString("JWT_PRIVATE_KEY", ""),
			PublicKey:       getEnvString("JWT_PUBLIC_KEY", ""),
			UseRSAKeys:      getEnvBool("JWT_USE_RSA_KEYS", false),
			AccessTokenTTL:  getEnvDuration("JWT_ACCESS_TOKEN_TTL", utils.AccessTokenTTL),
			RefreshTokenTTL: getEnvDuration("JWT_REFRESH_TOKEN_TTL", utils.RefreshTokenTTL),
			Issuer:          getEnvString("JWT_ISSUER", "trendforge"),
			Audience:        getEnvString("JWT_AUDIENCE", "trendforge-api"),
			OperatorKeys:    parseOperatorKeys(getEnvString("JWT_OPERATOR_KEYS", "")),
		},
		Logging: LoggingConfig{
			Level:        getEnvString("LOG_LEVEL", "info"),
			Format:       getEnvString("LOG_FORMAT", "json"),
			Output:       getEnvString("LOG_OUTPUT", "stdout"),
			FilePath:     getEnvString("LOG_FILE_PATH", "/var/log/trendforge/app.log"),
			MaxSize:      getEnvInt("LOG_MAX_SIZE", 100),
			MaxBackups:   getEnvInt("LOG_MAX_BACKUPS", 10),
			MaxAge:       getEnvInt("LOG_MAX_AGE", 30),
			Compress:     getEnvBool("LOG_COMPRESS", true),
			EnableCaller: getEnvBool("LOG_ENABLE_CALLER", true),
		},
		Metrics: MetricsConfig{
			Enabled:        getEnvBool("METRICS_ENABLED", true),
			PrometheusPath: getEnvString("METRICS_PROMETHEUS_PATH", "/metrics"),
		},
		Cache: CacheConfig{
			Enabled:     getEnvBool("CACHE_ENABLED", true),
			RedisURL:    getEnvString("CACHE_REDIS_URL", "redis://localhost:6379"),
			RedisDB:     getEnvInt("CACHE_REDIS_DB", 0),
			RedisPrefix: getEnvString("CACHE_REDIS_PREFIX", "trendforge:"),
			DefaultTTL:  getEnvDuration("CACHE_DEFAULT_TTL", 1*time.Hour),
		},
		Scheduler: SchedulerConfig{
			TrendPollInterval:    getEnvDuration("TREND_POLL_INTERVAL", 15*time.Minute),
			TrendSources:         getEnvStringSlice("TREND_SOURCES", []string{"mock"}),
			OpportunityRetention: getEnvDuration("OPPORTUNITY_RETENTION", utils.DefaultOpportunityRetention),
			ExpiryInterval:       getEnvDuration("OPPORTUNITY_EXPIRY_INTERVAL", 10*time.Minute),
			ResumeOnStart:        getEnvBool("PIPELINE_RESUME_ON_START", true),
		},
		Pipeline: PipelineConfig{
			MaxConcurrentJobs:  getEnvInt("PIPELINE_MAX_CONCURRENT_JOBS", 4),
			QueueDepth:         getEnvInt("PIPELINE_QUEUE_DEPTH", 16),
			StageTimeout:       getEnvDuration("PIPELINE_STAGE_TIMEOUT", utils.DefaultStageTimeout),
			DefaultSceneCount:  getEnvInt("PIPELINE_DEFAULT_SCENE_COUNT", 6),
			DefaultDuration:    getEnvDuration("PIPELINE_DEFAULT_DURATION", 45*time.Second),
			ProgressCacheTTL:   getEnvDuration("PIPELINE_PROGRESS_CACHE_TTL", 10*time.Minute),
			StageRetryAttempts: getEnvInt("PIPELINE_STAGE_RETRY_ATTEMPTS", 2),
		},
		Scoring: ScoringConfig{
			PopularityFloor:       getEnvFloat("SCORING_POPULARITY_FLOOR", 10),
			ViralWeight:           getEnvFloat("SCORING_VIRAL_WEIGHT", 0.4),
			ROIWeight:             getEnvFloat("SCORING_ROI_WEIGHT", 0.3),
			RevenuePerMille:       getEnvFloat("SCORING_REVENUE_PER_MILLE", 1.2),
			LowCompetitionBonus:   getEnvFloat("SCORING_LOW_COMPETITION_BONUS", 20),
			MedCompetitionBonus:   getEnvFloat("SCORING_MED_COMPETITION_BONUS", 12),
			HighCompetitionBonus:  getEnvFloat("SCORING_HIGH_COMPETITION_BONUS", 5),
			FastProductionMinutes: getEnvInt("SCORING_FAST_PRODUCTION_MINUTES", 30),
		},
		Generation: GenerationConfig{
			Adapters: loadAdapterCatalog(),
		},
		Upload: UploadConfig{
			Platforms:      loadPlatformCatalog(),
			SchedulerTick:  getEnvDuration("UPLOAD_SCHEDULER_TICK", 30*time.Second),
			StuckThreshold: getEnvDuration("UPLOAD_STUCK_THRESHOLD", 30*time.Minute),
			RetryBaseDelay: getEnvDuration("UPLOAD_RETRY_BASE_DELAY", 2*time.Second),
			RetryMaxDelay:  getEnvDuration("UPLOAD_RETRY_MAX_DELAY", 5*time.Minute),
		},
		Deployment: DeploymentConfig{
			Environment: getEnvString("APP_ENV", "production"),
			Version:     getEnvString("VERSION", "1.0.0"),
			CommitHash:  getEnvString("COMMIT_HASH", "unknown"),
			BuildTime:   getEnvString("BUILD_TIME", "unknown"),
		},
	}

	// Validate the loaded configuration
	if err := ValidateProductionConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadAdapterCatalog reads one adapter per capability/tier slot from env.
// Slots left unconfigured fall back to mock adapters at startup.
func loadAdapterCatalog() []AdapterConfig {
	var adapters []AdapterConfig
	for _, slot := range adapterSlots {
		prefix := fmt.Sprintf("GEN_%s_%s", strings.ToUpper(slot.capability), strings.ToUpper(slot.tier))
		adapters = append(adapters, AdapterConfig{
			Name:        getEnvString(prefix+"_NAME", fmt.Sprintf("%s-%s", slot.capability, slot.tier)),
			Capability:  slot.capability,
			Tier:        slot.tier,
			Kind:        getEnvString(prefix+"_KIND", "mock"),
			Endpoint:    getEnvString(prefix+"_ENDPOINT", ""),
			APIKey:      getEnvString(prefix+"_API_KEY", ""),
			Model:       getEnvString(prefix+"_MODEL", ""),
			CostPerCall: getEnvFloat(prefix+"_COST_PER_CALL", defaultCost(slot.tier)),
			Timeout:     getEnvDuration(prefix+"_TIMEOUT", 2*time.Minute),
		})
	}
	return adapters
}

func defaultCost(tier string) float64 {
	switch tier {
	case "premium":
		return 0.40
	case "balanced":
		return 0.10
	default:
		return 0.02
	}
}

// loadPlatformCatalog reads distribution platform settings from env
func loadPlatformCatalog() []PlatformConfig {
	names := getEnvStringSlice("UPLOAD_PLATFORMS", []string{"youtube", "tiktok", "instagram"})
	var platforms []PlatformConfig
	for _, name := range names {
		prefix := fmt.Sprintf("PLATFORM_%s", strings.ToUpper(name))
		platforms = append(platforms, PlatformConfig{
			Name:          name,
			Endpoint:      getEnvString(prefix+"_ENDPOINT", ""),
			APIKey:        getEnvString(prefix+"_API_KEY", ""),
			Workers:       getEnvInt(prefix+"_WORKERS", 2),
			RatePerMinute: getEnvInt(prefix+"_RATE_PER_MINUTE", 6),
			Burst:         getEnvInt(prefix+"_BURST", 3),
			MaxRetries:    getEnvInt(prefix+"_MAX_RETRIES", 3),
			Timeout:       getEnvDuration(prefix+"_TIMEOUT", 5*time.Minute),
		})
	}
	return platforms
}

// loadEnvFile loads environment variables from .env file if it exists
func loadEnvFile() error {
	envFile := ".env"

	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		return nil
	}

	file, err := os.Open(envFile)
	if err != nil {
		return fmt.Errorf("failed to open .env file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if strings.Contains(line, "=") {
			parts := strings.SplitN(line, "=", 2)
			if len(parts) == 2 {
				key := strings.TrimSpace(parts[0])
				value := strings.TrimSpace(parts[1])

				if (strings.HasPrefix(value, `"`) && strings.HasSuffix(value, `"`)) ||
					(strings.HasPrefix(value, `'`) && strings.HasSuffix(value, `'`)) {
					value = value[1 : len(value)-1]
				}

				if os.Getenv(key) == "" {
					os.Setenv(key, value)
				}
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading .env file: %w", err)
	}

	return nil
}

// Helper functions for environment variable parsing
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var result []string
		for _, item := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(item); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}

// parseOperatorKeys parses comma separated "operatorID:apiKey" pairs into a
// key to operator ID lookup
func parseOperatorKeys(raw string) map[string]uint {
	keys := make(map[string]uint)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.SplitN(pair, ":", 2)
		if len(parts) != 2 || parts[1] == "" {
			continue
		}
		id, err := strconv.ParseUint(parts[0], 10, 32)
		if err != nil {
			continue
		}
		keys[parts[1]] = uint(id)
	}
	return keys
}

// ValidateProductionConfig validates the production configuration
func ValidateProductionConfig(cfg *ProductionConfig) error {
	var errors []string

	if cfg.Database.Host == "" {
		errors = append(errors, "DB_HOST is required")
	}
	if cfg.Database.Port <= 0 || cfg.Database.Port > 65535 {
		errors = append(errors, "DB_PORT must be between 1 and 65535")
	}
	if cfg.Database.Name == "" {
		errors = append(errors, "DB_NAME is required")
	}
	if cfg.Database.User == "" {
		errors = append(errors, "DB_USER is required")
	}
	if cfg.Database.Password == "" {
		errors = append(errors, "DB_PASSWORD is required")
	}

	if !cfg.JWT.UseRSAKeys {
		if cfg.JWT.SecretKey == "" {
			errors = append(errors, "JWT_SECRET_KEY is required")
		} else if len(cfg.JWT.SecretKey) < 32 {
			errors = append(errors, "JWT_SECRET_KEY must be at least 32 characters long")
		}
	}
	if cfg.JWT.AccessTokenTTL <= 0 {
		errors = append(errors, "JWT_ACCESS_TOKEN_TTL must be positive")
	}
	if cfg.JWT.RefreshTokenTTL <= 0 {
		errors = append(errors, "JWT_REFRESH_TOKEN_TTL must be positive")
	}

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		errors = append(errors, "SERVER_PORT must be between 1 and 65535")
	}
	if cfg.Server.ReadTimeout <= 0 {
		errors = append(errors, "SERVER_READ_TIMEOUT must be positive")
	}
	if cfg.Server.WriteTimeout <= 0 {
		errors = append(errors, "SERVER_WRITE_TIMEOUT must be positive")
	}

	if cfg.Pipeline.MaxConcurrentJobs <= 0 {
		errors = append(errors, "PIPELINE_MAX_CONCURRENT_JOBS must be positive")
	}
	if cfg.Pipeline.QueueDepth < 0 {
		errors = append(errors, "PIPELINE_QUEUE_DEPTH must not be negative")
	}
	if cfg.Pipeline.StageTimeout <= 0 {
		errors = append(errors, "PIPELINE_STAGE_TIMEOUT must be positive")
	}

	if cfg.Scoring.PopularityFloor < 0 || cfg.Scoring.PopularityFloor > 100 {
		errors = append(errors, "SCORING_POPULARITY_FLOOR must be between 0 and 100")
	}

	for _, adapter := range cfg.Generation.Adapters {
		if adapter.Kind == "http" && adapter.Endpoint == "" {
			errors = append(errors, fmt.Sprintf("GEN adapter %s requires an endpoint", adapter.Name))
		}
		if adapter.Kind == "llm" && adapter.APIKey == "" {
			errors = append(errors, fmt.Sprintf("GEN adapter %s requires an API key", adapter.Name))
		}
	}

	for _, platform := range cfg.Upload.Platforms {
		if platform.Workers <= 0 {
			errors = append(errors, fmt.Sprintf("PLATFORM %s workers must be positive", platform.Name))
		}
		if platform.RatePerMinute <= 0 {
			errors = append(errors, fmt.Sprintf("PLATFORM %s rate must be positive", platform.Name))
		}
	}

	if cfg.Cache.Enabled && cfg.Cache.RedisURL == "" {
		errors = append(errors, "CACHE_REDIS_URL is required when cache is enabled")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errors, "; "))
	}

	return nil
}
