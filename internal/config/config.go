package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Log        LogConfig `mapstructure:"log"`
	Database   DatabaseConfig
	JWT        JWTConfig
	Storage    StorageConfig
	Tracing    TracingConfig `mapstructure:"tracing"`
	Redis      RedisConfig
	CORS       CORSConfig       `mapstructure:"cors"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Assessment AssessmentConfig `mapstructure:"assessment"`
	Scoring    ScoringConfig    `mapstructure:"scoring"`
	Integrity  IntegrityConfig  `mapstructure:"integrity"`
	Badge      BadgeConfig      `mapstructure:"badge"`

	// 运行时标志（非配置文件，通过命令行参数设置）
	ForceMigrate bool `mapstructure:"-"`
}

type ServerConfig struct {
	Port string
	Mode string
	// LockTimeout bounds how long a request waits for another request on the same session.
	LockTimeout time.Duration `mapstructure:"lock_timeout"`
}

type LogConfig struct {
	File string `mapstructure:"file"`
	// Level overrides the mode-derived level (debug, info, warn, error).
	Level string `mapstructure:"level"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	MaxRequests int `mapstructure:"max_requests"`
	// TelemetryMaxRequests is applied per client IP to the ingest route only.
	TelemetryMaxRequests int `mapstructure:"telemetry_max_requests"`
	WindowMinutes        int `mapstructure:"window_minutes"`
}

type DatabaseConfig struct {
	Driver    string // mysql, postgres, sqlite
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	Charset   string
	ParseTime bool
	SSLMode   string `mapstructure:"sslmode"`
	// Path is the sqlite file (or a file: URI) when Driver is sqlite.
	Path string
}

type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	ExpireTime time.Duration `mapstructure:"expire_hours"`
}

type StorageConfig struct {
	Type          string `mapstructure:"type"`
	LocalPath     string `mapstructure:"local_path"`
	MinioEndpoint string `mapstructure:"minio_endpoint"`
	MinioAccessID string `mapstructure:"minio_access_key"`
	MinioSecret   string `mapstructure:"minio_secret_key"`
	MinioBucket   string `mapstructure:"minio_bucket"`
	MinioSecure   bool   `mapstructure:"minio_secure"`
	OSSEndpoint   string `mapstructure:"oss_endpoint"`
	OSSAccessKey  string `mapstructure:"oss_access_key"`
	OSSSecretKey  string `mapstructure:"oss_secret_key"`
	OSSBucket     string `mapstructure:"oss_bucket"`
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	// VerdictTTL is how long a cached integrity verdict lives.
	VerdictTTL time.Duration `mapstructure:"verdict_ttl"`
}

type AssessmentConfig struct {
	// QuestionsPerSession truncates the bank order; 0 administers every question.
	QuestionsPerSession int `mapstructure:"questions_per_session"`
}

type ScoringConfig struct {
	PassThreshold         int     `mapstructure:"pass_threshold"`
	PlausibilityThreshold float64 `mapstructure:"plausibility_threshold"`
	ScoreCap              int     `mapstructure:"score_cap"`
}

type IntegrityConfig struct {
	FocusLossWindow       time.Duration `mapstructure:"focus_loss_window"`
	FocusLossMax          int           `mapstructure:"focus_loss_max"`
	RapidFireMin          int           `mapstructure:"rapid_fire_min"`
	PasteWindow           time.Duration `mapstructure:"paste_window"`
	MinHumanLatency       time.Duration `mapstructure:"min_human_latency"`
	ImplausibleAnswersMin int           `mapstructure:"implausible_answers_min"`
	IdleGapMin            time.Duration `mapstructure:"idle_gap_min"`

	Penalties map[string]float64 `mapstructure:"penalties"`
}

type BadgeConfig struct {
	IntegrityThreshold float64 `mapstructure:"integrity_threshold"`
	Issuer             string  `mapstructure:"issuer"`
	NodeID             int64   `mapstructure:"node_id"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.lock_timeout", 5*time.Second)
	v.SetDefault("log.file", "logs/app.log")

	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.charset", "utf8mb4")
	v.SetDefault("database.parsetime", true)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.path", "skillforge.db")

	v.SetDefault("jwt.expire_hours", 24)
	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local_path", "evidence")
	v.SetDefault("redis.verdict_ttl", 10*time.Minute)

	v.SetDefault("rate_limit.max_requests", 100000)
	v.SetDefault("rate_limit.telemetry_max_requests", 600)
	v.SetDefault("rate_limit.window_minutes", 1)

	v.SetDefault("scoring.pass_threshold", 50)
	v.SetDefault("scoring.plausibility_threshold", 0.5)
	v.SetDefault("scoring.score_cap", 40)

	v.SetDefault("integrity.focus_loss_window", 60*time.Second)
	v.SetDefault("integrity.focus_loss_max", 3)
	v.SetDefault("integrity.rapid_fire_min", 5)
	v.SetDefault("integrity.paste_window", 60*time.Second)
	v.SetDefault("integrity.min_human_latency", 2*time.Second)
	v.SetDefault("integrity.implausible_answers_min", 2)
	v.SetDefault("integrity.idle_gap_min", 5*time.Minute)

	v.SetDefault("badge.integrity_threshold", 0.6)
	v.SetDefault("badge.issuer", "skillforge")
	v.SetDefault("badge.node_id", 1)
}

// ShouldMigrate reports whether startup runs schema migration. Release mode
// only migrates when forced.
func (c *Config) ShouldMigrate() bool {
	return c.ForceMigrate || c.Server.Mode != "release"
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("SKILLFORGE")
	v.AutomaticEnv()
	setDefaults(v)

	// Database
	v.BindEnv("database.driver", "DATABASE_DRIVER")
	v.BindEnv("database.host", "DATABASE_HOST")
	v.BindEnv("database.port", "DATABASE_PORT")
	v.BindEnv("database.user", "DATABASE_USER")
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("database.dbname", "DATABASE_NAME")
	v.BindEnv("database.path", "DATABASE_PATH")

	// JWT
	v.BindEnv("jwt.secret", "JWT_SECRET")

	// Redis
	v.BindEnv("redis.enabled", "REDIS_ENABLED")
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// Server
	v.BindEnv("server.mode", "SERVER_MODE")
	v.BindEnv("server.port", "SERVER_PORT")

	// Storage
	v.BindEnv("storage.type", "STORAGE_TYPE")
	v.BindEnv("storage.oss_endpoint", "OSS_ENDPOINT")
	v.BindEnv("storage.oss_access_key", "OSS_ACCESS_KEY")
	v.BindEnv("storage.oss_secret_key", "OSS_SECRET_KEY")
	v.BindEnv("storage.oss_bucket", "OSS_BUCKET")
	v.BindEnv("storage.minio_endpoint", "MINIO_ENDPOINT")
	v.BindEnv("storage.minio_access_key", "MINIO_ACCESS_KEY")
	v.BindEnv("storage.minio_secret_key", "MINIO_SECRET_KEY")
	v.BindEnv("storage.minio_bucket", "MINIO_BUCKET")

	// Tracing
	v.BindEnv("tracing.enabled", "TRACING_ENABLED")
	v.BindEnv("tracing.collector_endpoint", "TRACING_COLLECTOR_ENDPOINT")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.JWT.ExpireTime = cfg.JWT.ExpireTime * time.Hour

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	// 生产环境校验 JWT Secret 强度
	if c.Server.Mode == "release" && len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret is too short (%d chars), must be at least 32 characters in release mode", len(c.JWT.Secret))
	}
	if c.Scoring.PassThreshold < 0 || c.Scoring.PassThreshold > 100 {
		return fmt.Errorf("scoring.pass_threshold must be within [0,100], got %d", c.Scoring.PassThreshold)
	}
	if c.Scoring.ScoreCap < 0 || c.Scoring.ScoreCap > 100 {
		return fmt.Errorf("scoring.score_cap must be within [0,100], got %d", c.Scoring.ScoreCap)
	}
	if c.Scoring.PlausibilityThreshold < 0 || c.Scoring.PlausibilityThreshold > 1 {
		return fmt.Errorf("scoring.plausibility_threshold must be within [0,1], got %v", c.Scoring.PlausibilityThreshold)
	}
	if c.Badge.IntegrityThreshold < 0 || c.Badge.IntegrityThreshold > 1 {
		return fmt.Errorf("badge.integrity_threshold must be within [0,1], got %v", c.Badge.IntegrityThreshold)
	}
	for rule, p := range c.Integrity.Penalties {
		if p < 0 || p > 1 {
			return fmt.Errorf("integrity.penalties.%s must be within [0,1], got %v", rule, p)
		}
	}
	return nil
}
