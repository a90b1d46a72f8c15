package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const EnvPrefix = "MCOURSE"

type Config struct {
	Port          int               `mapstructure:"port"`
	JWTSecret     string            `mapstructure:"jwt_secret"`
	Database      DatabaseConfig    `mapstructure:"database"`
	Redis         RedisConfig       `mapstructure:"redis"`
	LogConfig     LogConfig         `mapstructure:"log_config"`
	Auth          AuthConfig        `mapstructure:"auth"`
	RateLimit     RateLimitConfig   `mapstructure:"rate_limit"`
	OTPDelivery   OTPDeliveryConfig `mapstructure:"otp_delivery"`
	CleanupCron   string            `mapstructure:"cleanup_cron"`
	CORSAllowlist []string          `mapstructure:"cors_allowlist"`
}

type DatabaseConfig struct {
	DSN      string `mapstructure:"dsn"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.Addr) != ""
}

type LogConfig struct {
	File      string `mapstructure:"file"`
	Level     string `mapstructure:"level"`
	FileCount int    `mapstructure:"file_count"`
	FileSize  int    `mapstructure:"file_size"`
	KeepDays  int    `mapstructure:"keep_days"`
	Console   bool   `mapstructure:"console"`
}

type AuthConfig struct {
	OTPTTLSeconds             int    `mapstructure:"otp_ttl_seconds"`
	OTPDigits                 int    `mapstructure:"otp_digits"`
	SessionTTLHours           int    `mapstructure:"session_ttl_hours"`
	ReauthMinutes             int    `mapstructure:"reauth_minutes"`
	TokenTTLHours             int    `mapstructure:"token_ttl_hours"`
	HideAccountExistence      bool   `mapstructure:"hide_account_existence"`
	DebugOTPEcho              bool   `mapstructure:"debug_otp_echo"`
	AutoRegisterPhone         bool   `mapstructure:"auto_register_phone"`
	EnforceRequestFingerprint bool   `mapstructure:"enforce_request_fingerprint"`
	Fingerprint               string `mapstructure:"fingerprint"`
	TrustProxy                bool   `mapstructure:"trust_proxy"`
	MaxOTPAttempts            int    `mapstructure:"max_otp_attempts"`
	MaxLoginAttempts          int    `mapstructure:"max_login_attempts"`
	AttemptWindowSeconds      int    `mapstructure:"attempt_window_seconds"`
}

func (a AuthConfig) OTPTTL() time.Duration {
	return time.Duration(a.OTPTTLSeconds) * time.Second
}

func (a AuthConfig) SessionTTL() time.Duration {
	return time.Duration(a.SessionTTLHours) * time.Hour
}

func (a AuthConfig) ReauthWindow() time.Duration {
	return time.Duration(a.ReauthMinutes) * time.Minute
}

func (a AuthConfig) TokenTTL() time.Duration {
	return time.Duration(a.TokenTTLHours) * time.Hour
}

func (a AuthConfig) AttemptWindow() time.Duration {
	return time.Duration(a.AttemptWindowSeconds) * time.Second
}

type RateLimitConfig struct {
	WindowMillis int `mapstructure:"window_millis"`
	Burst        int `mapstructure:"burst"`
}

func (r RateLimitConfig) Window() time.Duration {
	return time.Duration(r.WindowMillis) * time.Millisecond
}

type OTPDeliveryConfig struct {
	Type string     `mapstructure:"type"`
	Mail MailConfig `mapstructure:"mail"`
	SMS  SMSConfig  `mapstructure:"sms"`
}

type MailConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type SMSConfig struct {
	URL            string `mapstructure:"url"`
	APIKey         string `mapstructure:"api_key"`
	Sender         string `mapstructure:"sender"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

func defaults(v *viper.Viper) {
	v.SetDefault("port", 0)
	v.SetDefault("jwt_secret", "")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.host", "")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("log_config.level", "info")
	v.SetDefault("log_config.console", true)
	v.SetDefault("auth.otp_ttl_seconds", 300)
	v.SetDefault("auth.otp_digits", 4)
	v.SetDefault("auth.session_ttl_hours", 24)
	v.SetDefault("auth.reauth_minutes", 60)
	v.SetDefault("auth.token_ttl_hours", 24)
	v.SetDefault("auth.hide_account_existence", true)
	v.SetDefault("auth.debug_otp_echo", false)
	v.SetDefault("auth.auto_register_phone", false)
	v.SetDefault("auth.enforce_request_fingerprint", false)
	v.SetDefault("auth.fingerprint", "ua_ip")
	v.SetDefault("auth.trust_proxy", false)
	v.SetDefault("auth.max_otp_attempts", 5)
	v.SetDefault("auth.max_login_attempts", 10)
	v.SetDefault("auth.attempt_window_seconds", 900)
	v.SetDefault("rate_limit.window_millis", 1000)
	v.SetDefault("rate_limit.burst", 5)
	v.SetDefault("otp_delivery.type", "log")
	v.SetDefault("otp_delivery.mail.host", "")
	v.SetDefault("otp_delivery.mail.port", 0)
	v.SetDefault("otp_delivery.mail.username", "")
	v.SetDefault("otp_delivery.mail.password", "")
	v.SetDefault("otp_delivery.mail.from", "")
	v.SetDefault("otp_delivery.sms.url", "")
	v.SetDefault("otp_delivery.sms.api_key", "")
	v.SetDefault("otp_delivery.sms.sender", "")
	v.SetDefault("otp_delivery.sms.timeout_seconds", 10)
	v.SetDefault("cleanup_cron", "*/10 * * * *")
}

// LoadEnvFile preloads KEY=VALUE pairs into the process environment. An empty path is a no-op.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

// Load reads the json config at path. Every key can be overridden with MCOURSE_<KEY>,
// nested keys joined by "_" (MCOURSE_AUTH_OTP_TTL_SECONDS).
func Load(path string) (*Config, error) {
	v := viper.New()
	defaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) validate() error {
	if cfg.JWTSecret == "" {
		return fmt.Errorf("jwt_secret is required")
	}
	if cfg.Port == 0 {
		return fmt.Errorf("port is required")
	}
	if cfg.Database.DSN == "" && cfg.Database.Host == "" {
		return fmt.Errorf("database.dsn or database.host is required")
	}
	a := &cfg.Auth
	if a.OTPTTLSeconds <= 0 {
		return fmt.Errorf("auth.otp_ttl_seconds must be positive")
	}
	if a.OTPDigits < 4 || a.OTPDigits > 10 {
		return fmt.Errorf("auth.otp_digits must be between 4 and 10")
	}
	if a.SessionTTLHours <= 0 || a.TokenTTLHours <= 0 {
		return fmt.Errorf("auth.session_ttl_hours and auth.token_ttl_hours must be positive")
	}
	if a.ReauthMinutes <= 0 {
		return fmt.Errorf("auth.reauth_minutes must be positive")
	}
	d := cfg.OTPDelivery
	switch d.Type {
	case "log", "smtp", "sms_webhook", "all":
	default:
		return fmt.Errorf("otp_delivery.type must be log, smtp, sms_webhook or all")
	}
	if (d.Type == "smtp" || d.Type == "all") && (d.Mail.Host == "" || d.Mail.Port == 0 || d.Mail.From == "") {
		return fmt.Errorf("otp_delivery.mail host/port/from are required for smtp delivery")
	}
	if (d.Type == "sms_webhook" || d.Type == "all") && d.SMS.URL == "" {
		return fmt.Errorf("otp_delivery.sms.url is required for sms_webhook delivery")
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	return nil
}
