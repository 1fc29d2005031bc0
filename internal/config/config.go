package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"emperror.dev/errors"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DiscordToken    string          `yaml:"discord_token"`
	DatabasePath    string          `yaml:"database_path"`
	DatabaseURL     string          `yaml:"database_url"`
	LogLevel        string          `yaml:"log_level"`
	LogFile         LogFileConfig   `yaml:"log_file"`
	DefaultLanguage string          `yaml:"default_language"`
	RetentionDays   int             `yaml:"retention_days"`
	Health          HealthConfig    `yaml:"health"`
	Notifications   NotifyConfig    `yaml:"notifications"`
	Interactions    InteractConfig  `yaml:"interactions"`
	Scheduler       SchedulerConfig `yaml:"scheduler"`
	Cache           CacheConfig     `yaml:"cache"`
}

type HealthConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// LogFileConfig enables a rotating JSON log file next to stdout when Path is set.
type LogFileConfig struct {
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type NotifyConfig struct {
	LogRatePerSecond int         `yaml:"log_rate_per_second"`
	LogBurst         int         `yaml:"log_burst"`
	EmbedColors      EmbedColors `yaml:"embed_colors"`
}

type EmbedColors struct {
	Action  int `yaml:"action"`
	Success int `yaml:"success"`
	Warning int `yaml:"warning"`
	Error   int `yaml:"error"`
	Info    int `yaml:"info"`
}

type InteractConfig struct {
	ModalTimeout          time.Duration `yaml:"modal_timeout"`
	DuplicateNoticeTTL    time.Duration `yaml:"duplicate_notice_ttl"`
	NicknameRequests      int           `yaml:"nickname_requests"`
	NicknameRequestWindow time.Duration `yaml:"nickname_request_window"`
}

type SchedulerConfig struct {
	TempBanSweep string `yaml:"temp_ban_sweep"`
	AuditPrune   string `yaml:"audit_prune"`
	Location     string `yaml:"location"`
}

type CacheConfig struct {
	ConfigTTL time.Duration `yaml:"config_ttl"`
	// MessageTTL and MessageLimit bound the message snapshots kept for edit and delete logs.
	MessageTTL   time.Duration `yaml:"message_ttl"`
	MessageLimit int           `yaml:"message_limit"`
}

func DefaultConfig() Config {
	return Config{
		DatabasePath:    "/data/lilyguard.db",
		LogLevel:        "info",
		DefaultLanguage: "en",
		RetentionDays:   30,
		Health:          HealthConfig{Enabled: false, Addr: ":8080"},
		LogFile:         LogFileConfig{MaxSizeMB: 50, MaxBackups: 3, MaxAgeDays: 14},
		Notifications: NotifyConfig{
			LogRatePerSecond: 5,
			LogBurst:         10,
			EmbedColors: EmbedColors{
				Action:  0xFEE75C,
				Success: 0x57F287,
				Warning: 0xE67E22,
				Error:   0xED4245,
				Info:    0x5865F2,
			},
		},
		Interactions: InteractConfig{
			ModalTimeout:          5 * time.Minute,
			DuplicateNoticeTTL:    10 * time.Second,
			NicknameRequests:      3,
			NicknameRequestWindow: 10 * time.Minute,
		},
		Scheduler: SchedulerConfig{
			TempBanSweep: "@every 1m",
			AuditPrune:   "@daily",
			Location:     "UTC",
		},
		Cache: CacheConfig{
			ConfigTTL:    10 * time.Minute,
			MessageTTL:   30 * time.Minute,
			MessageLimit: 20000,
		},
	}
}

func Load() (Config, error) {
	// A missing .env file is normal outside of local development.
	_ = godotenv.Load()

	cfg := DefaultConfig()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, errors.WithMessage(err, "parse "+path)
		}
	}

	applyEnv(&cfg)
	if cfg.DiscordToken == "" {
		return Config{}, errors.New("DISCORD_TOKEN is required")
	}
	cfg.DefaultLanguage = strings.ToLower(strings.TrimSpace(cfg.DefaultLanguage))
	if cfg.DefaultLanguage == "" {
		cfg.DefaultLanguage = "en"
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.DiscordToken = envString("DISCORD_TOKEN", cfg.DiscordToken)
	cfg.DatabasePath = envString("DATABASE_PATH", cfg.DatabasePath)
	cfg.DatabaseURL = envString("DATABASE_URL", cfg.DatabaseURL)
	cfg.LogLevel = envString("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFile.Path = envString("LOG_FILE", cfg.LogFile.Path)
	cfg.DefaultLanguage = envString("DEFAULT_LANGUAGE", cfg.DefaultLanguage)
	cfg.RetentionDays = envInt("RETENTION_DAYS", cfg.RetentionDays)
	cfg.Health.Enabled = envBool("HEALTH_ENABLED", cfg.Health.Enabled)
	cfg.Health.Addr = envString("HEALTH_ADDR", cfg.Health.Addr)
	cfg.Notifications.LogRatePerSecond = envInt("LOG_RATE_PER_SECOND", cfg.Notifications.LogRatePerSecond)
	cfg.Notifications.LogBurst = envInt("LOG_BURST", cfg.Notifications.LogBurst)
	cfg.Notifications.EmbedColors.Action = envInt("EMBED_COLOR_ACTION", cfg.Notifications.EmbedColors.Action)
	cfg.Notifications.EmbedColors.Success = envInt("EMBED_COLOR_SUCCESS", cfg.Notifications.EmbedColors.Success)
	cfg.Notifications.EmbedColors.Warning = envInt("EMBED_COLOR_WARNING", cfg.Notifications.EmbedColors.Warning)
	cfg.Notifications.EmbedColors.Error = envInt("EMBED_COLOR_ERROR", cfg.Notifications.EmbedColors.Error)
	cfg.Notifications.EmbedColors.Info = envInt("EMBED_COLOR_INFO", cfg.Notifications.EmbedColors.Info)
	cfg.Interactions.ModalTimeout = envDuration("MODAL_TIMEOUT", cfg.Interactions.ModalTimeout)
	cfg.Interactions.DuplicateNoticeTTL = envDuration("DUPLICATE_NOTICE_TTL", cfg.Interactions.DuplicateNoticeTTL)
	cfg.Interactions.NicknameRequests = envInt("NICKNAME_REQUESTS", cfg.Interactions.NicknameRequests)
	cfg.Interactions.NicknameRequestWindow = envDuration("NICKNAME_REQUEST_WINDOW", cfg.Interactions.NicknameRequestWindow)
	cfg.Scheduler.TempBanSweep = envString("TEMP_BAN_SWEEP", cfg.Scheduler.TempBanSweep)
	cfg.Scheduler.AuditPrune = envString("AUDIT_PRUNE", cfg.Scheduler.AuditPrune)
	cfg.Scheduler.Location = envString("SCHEDULER_LOCATION", cfg.Scheduler.Location)
	cfg.Cache.ConfigTTL = envDuration("CONFIG_CACHE_TTL", cfg.Cache.ConfigTTL)
	cfg.Cache.MessageTTL = envDuration("MESSAGE_CACHE_TTL", cfg.Cache.MessageTTL)
	cfg.Cache.MessageLimit = envInt("MESSAGE_CACHE_LIMIT", cfg.Cache.MessageLimit)
}

// BuildLogger returns the JSON production logger, teed into a rotating file when file.Path is set.
func BuildLogger(level string, file LogFileConfig) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	lvl := parseLevel(strings.ToLower(level))
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	if file.Path == "" {
		return logger, nil
	}

	sink := zapcore.AddSync(&lumberjack.Logger{
		Filename:   file.Path,
		MaxSize:    file.MaxSizeMB,
		MaxBackups: file.MaxBackups,
		MaxAge:     file.MaxAgeDays,
		Compress:   true,
	})
	fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(cfg.EncoderConfig), sink, cfg.Level)
	return logger.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, fileCore)
	})), nil
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func envString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		lower := strings.ToLower(value)
		return lower == "1" || lower == "true" || lower == "yes"
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil && parsed > 0 {
			return parsed
		}
	}
	return fallback
}
