// Package config собирает настройки dev сервера авторизации.
//
// Порядок применения: значения по умолчанию, затем YAML файл (-config или
// GOPHGATE_CONFIG), затем переменные окружения, затем явно заданные флаги.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config настройки сервера
type Config struct {
	Addr           string        `yaml:"addr"`
	DBPath         string        `yaml:"db_path"`
	RedisURL       string        `yaml:"redis_url"`
	JWTSecret      string        `yaml:"jwt_secret"`
	TwilioSID      string        `yaml:"twilio_account_sid"`
	TwilioToken    string        `yaml:"twilio_auth_token"`
	TwilioFrom     string        `yaml:"twilio_from_number"`
	SMSCountryCode string        `yaml:"sms_country_code"`
	OAuthAppID     string        `yaml:"oauth_app_id"`
	LogLevel       string        `yaml:"log_level"`
	JWTTTL         time.Duration `yaml:"jwt_ttl"`
	CodeTTL        time.Duration `yaml:"sms_code_ttl"`
	ResendInterval time.Duration `yaml:"sms_resend_interval"`
	RateWindow     time.Duration `yaml:"rate_limit_window"`
	RateLimit      int           `yaml:"rate_limit"`
	AuthRateLimit  int           `yaml:"auth_rate_limit"`
}

// MinSecretLen минимальная длина секрета подписи JWT
const MinSecretLen = 32

// ErrWeakSecret секрет JWT не задан или слишком короткий
var ErrWeakSecret = errors.New("jwt secret must be at least 32 bytes")

// Default возвращает настройки для локального запуска
func Default() Config {
	return Config{
		Addr:           ":8080",
		DBPath:         "gophgate.db",
		RedisURL:       "redis://localhost:6379/0",
		SMSCountryCode: "+86",
		OAuthAppID:     "dev",
		LogLevel:       "info",
		JWTTTL:         7 * 24 * time.Hour,
		CodeTTL:        5 * time.Minute,
		ResendInterval: 60 * time.Second,
		RateWindow:     time.Minute,
		RateLimit:      120,
		AuthRateLimit:  20,
	}
}

// Load читает настройки. args без имени программы (os.Args[1:]).
// Флаг -version обрабатывается вызывающим кодом через showVersion.
func Load(args []string) (cfg Config, showVersion bool, err error) {
	fs := flag.NewFlagSet("gophgate-server", flag.ContinueOnError)

	var (
		configPath = fs.String("config", os.Getenv("GOPHGATE_CONFIG"), "Path to YAML config file")
		version    = fs.Bool("version", false, "Show version information")
		addr       = fs.String("addr", "", "HTTP listen address")
		dbPath     = fs.String("db", "", "Path to SQLite database")
		redisURL   = fs.String("redis", "", "Redis URL for SMS codes")
		logLevel   = fs.String("log-level", "", "Log level (debug, info, warn, error)")
	)

	if err := fs.Parse(args); err != nil {
		return Config{}, false, err
	}

	cfg = Default()

	if *configPath != "" {
		if err := loadFile(*configPath, &cfg); err != nil {
			return Config{}, false, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, false, err
	}

	// Явно заданные флаги важнее окружения
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			cfg.Addr = *addr
		case "db":
			cfg.DBPath = *dbPath
		case "redis":
			cfg.RedisURL = *redisURL
		case "log-level":
			cfg.LogLevel = *logLevel
		}
	})

	if *version {
		return cfg, true, nil
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, false, err
	}

	return cfg, false, nil
}

// Validate проверяет обязательные настройки
func (c Config) Validate() error {
	if len(c.JWTSecret) < MinSecretLen {
		return ErrWeakSecret
	}
	if c.Addr == "" {
		return fmt.Errorf("listen address is required")
	}
	if c.DBPath == "" {
		return fmt.Errorf("database path is required")
	}
	if c.RedisURL == "" {
		return fmt.Errorf("redis url is required")
	}
	if c.JWTTTL <= 0 || c.CodeTTL <= 0 || c.ResendInterval <= 0 {
		return fmt.Errorf("durations must be positive")
	}
	if c.RateLimit <= 0 || c.AuthRateLimit <= 0 || c.RateWindow <= 0 {
		return fmt.Errorf("rate limits must be positive")
	}
	return nil
}

// SMSEnabled сообщает, настроена ли реальная отправка через Twilio
func (c Config) SMSEnabled() bool {
	return c.TwilioSID != "" && c.TwilioFrom != ""
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	cfg.Addr = env("GOPHGATE_ADDR", cfg.Addr)
	cfg.DBPath = env("GOPHGATE_DB", cfg.DBPath)
	cfg.RedisURL = env("REDIS_URL", cfg.RedisURL)
	cfg.JWTSecret = env("JWT_SECRET", cfg.JWTSecret)
	cfg.TwilioSID = env("TWILIO_ACCOUNT_SID", cfg.TwilioSID)
	cfg.TwilioToken = env("TWILIO_AUTH_TOKEN", cfg.TwilioToken)
	cfg.TwilioFrom = env("TWILIO_FROM_NUMBER", cfg.TwilioFrom)
	cfg.SMSCountryCode = env("SMS_COUNTRY_CODE", cfg.SMSCountryCode)
	cfg.OAuthAppID = env("OAUTH_APP_ID", cfg.OAuthAppID)
	cfg.LogLevel = env("LOG_LEVEL", cfg.LogLevel)

	var err error
	if cfg.JWTTTL, err = envDuration("JWT_TTL", cfg.JWTTTL); err != nil {
		return err
	}
	if cfg.CodeTTL, err = envDuration("SMS_CODE_TTL", cfg.CodeTTL); err != nil {
		return err
	}
	if cfg.ResendInterval, err = envDuration("SMS_RESEND_INTERVAL", cfg.ResendInterval); err != nil {
		return err
	}
	if cfg.RateWindow, err = envDuration("RATE_LIMIT_WINDOW", cfg.RateWindow); err != nil {
		return err
	}
	if cfg.RateLimit, err = envInt("RATE_LIMIT", cfg.RateLimit); err != nil {
		return err
	}
	if cfg.AuthRateLimit, err = envInt("AUTH_RATE_LIMIT", cfg.AuthRateLimit); err != nil {
		return err
	}
	return nil
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envDuration(k string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", k, err)
	}
	return d, nil
}

func envInt(k string, def int) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", k, err)
	}
	return n, nil
}
