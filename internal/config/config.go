// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	JWTSecret      string `mapstructure:"JWT_SECRET"`
	TokenSecret    string `mapstructure:"TOKEN_SECRET"`
	Port           string `mapstructure:"PORT"`
	DBHost         string `mapstructure:"DB_HOST"`
	DBPort         string `mapstructure:"DB_PORT"`
	DBUser         string `mapstructure:"DB_USER"`
	DBPassword     string `mapstructure:"DB_PASSWORD"`
	DBName         string `mapstructure:"DB_NAME"`
	DBSSLMode      string `mapstructure:"DB_SSLMODE"`
	DBReadHost     string `mapstructure:"DB_READ_HOST"`
	DBReadPort     string `mapstructure:"DB_READ_PORT"`
	DBReadUser     string `mapstructure:"DB_READ_USER"`
	DBReadPassword string `mapstructure:"DB_READ_PASSWORD"`
	RedisURL       string `mapstructure:"REDIS_URL"`
	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"`
	Env            string `mapstructure:"APP_ENV"`

	// SiteURL is the public origin used to build links in outgoing email.
	SiteURL      string `mapstructure:"SITE_URL"`
	MailDriver   string `mapstructure:"MAIL_DRIVER"`
	SMTPHost     string `mapstructure:"SMTP_HOST"`
	SMTPPort     int    `mapstructure:"SMTP_PORT"`
	SMTPUsername string `mapstructure:"SMTP_USERNAME"`
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`
	MailFrom     string `mapstructure:"MAIL_FROM"`

	OTPTTLMinutes           int    `mapstructure:"OTP_TTL_MINUTES"`
	LinkTokenTTLHours       int    `mapstructure:"LINK_TOKEN_TTL_HOURS"`
	SessionTTLHours         int    `mapstructure:"SESSION_TTL_HOURS"`
	OTPSweepIntervalMinutes int    `mapstructure:"OTP_SWEEP_INTERVAL_MINUTES"`
	AvatarDir               string `mapstructure:"AVATAR_DIR"`

	TracingEnabled     bool    `mapstructure:"TRACING_ENABLED"`
	TracingExporter    string  `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint       string  `mapstructure:"OTLP_ENDPOINT"`
	TracingSampleRatio float64 `mapstructure:"TRACING_SAMPLE_RATIO"`

	SuperuserEmail    string `mapstructure:"SUPERUSER_EMAIL"`
	SuperuserPassword string `mapstructure:"SUPERUSER_PASSWORD"`
	SeedDemo          bool   `mapstructure:"SEED_DEMO"`
}

// LoadConfig loads application configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// The base file is optional; environment variables may carry everything.
	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" && env != "test" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("required profile-specific config 'config.%s.yml' not found: %w", env, err)
		}
		log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
	}

	setDefaults()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("PORT", "8375")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "user")
	viper.SetDefault("DB_PASSWORD", "password")
	viper.SetDefault("DB_NAME", "inkwell")
	viper.SetDefault("DB_READ_HOST", "")
	viper.SetDefault("DB_READ_PORT", "5432")
	viper.SetDefault("DB_READ_USER", "user")
	viper.SetDefault("DB_READ_PASSWORD", "password")
	viper.SetDefault("REDIS_URL", "localhost:6379")
	viper.SetDefault("JWT_SECRET", defaultJWTSecret)
	viper.SetDefault("TOKEN_SECRET", "")
	viper.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("SITE_URL", "http://localhost:8375")
	viper.SetDefault("MAIL_DRIVER", "log")
	viper.SetDefault("SMTP_HOST", "localhost")
	viper.SetDefault("SMTP_PORT", 587)
	viper.SetDefault("SMTP_USERNAME", "")
	viper.SetDefault("SMTP_PASSWORD", "")
	viper.SetDefault("MAIL_FROM", "Inkwell <no-reply@inkwell.local>")
	viper.SetDefault("OTP_TTL_MINUTES", 5)
	viper.SetDefault("LINK_TOKEN_TTL_HOURS", 72)
	viper.SetDefault("SESSION_TTL_HOURS", 24*7)
	viper.SetDefault("OTP_SWEEP_INTERVAL_MINUTES", 10)
	viper.SetDefault("AVATAR_DIR", "media/display_pics")
	viper.SetDefault("TRACING_ENABLED", false)
	viper.SetDefault("TRACING_EXPORTER", "stdout")
	viper.SetDefault("OTLP_ENDPOINT", "localhost:4318")
	viper.SetDefault("TRACING_SAMPLE_RATIO", 1.0)
	viper.SetDefault("SUPERUSER_EMAIL", "")
	viper.SetDefault("SUPERUSER_PASSWORD", "")
	viper.SetDefault("SEED_DEMO", false)
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	switch c.MailDriver {
	case "", "log", "smtp":
	default:
		return fmt.Errorf("MAIL_DRIVER must be 'log' or 'smtp', got %q", c.MailDriver)
	}
	if c.OTPTTLMinutes < 0 || c.LinkTokenTTLHours < 0 {
		return errors.New("token lifetimes must not be negative")
	}

	if c.IsProduction() {
		if c.JWTSecret == defaultJWTSecret {
			return errors.New("JWT_SECRET must be changed from the default value in production")
		}
		if len(c.JWTSecret) < 32 {
			return errors.New("JWT_SECRET must be at least 32 characters in production")
		}
		if c.DBPassword == "password" || c.DBPassword == "" {
			return errors.New("a strong DB_PASSWORD is required in production")
		}
		if c.MailDriver != "smtp" {
			return errors.New("MAIL_DRIVER must be 'smtp' in production")
		}
		if !strings.HasPrefix(c.SiteURL, "https://") {
			log.Println("WARNING: SITE_URL is not https in production. Emailed links will be sent over plain HTTP.")
		}
		if c.DBSSLMode == "disable" || c.DBSSLMode == "" {
			log.Println("WARNING: DB_SSLMODE is 'disable' in production. It is highly recommended to use SSL for database connections.")
		}
		if c.AllowedOrigins == "*" {
			log.Println("WARNING: ALLOWED_ORIGINS is set to '*' in production. This is insecure.")
		}
	} else if len(c.JWTSecret) < 32 {
		log.Println("WARNING: JWT_SECRET is shorter than 32 characters. Consider using a stronger secret for production.")
	}

	return nil
}

// IsProduction reports whether the production profile is active.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// LinkSecret is the key signing emailed verification and reset links.
// It falls back to JWT_SECRET when TOKEN_SECRET is unset.
func (c *Config) LinkSecret() []byte {
	if c.TokenSecret != "" {
		return []byte(c.TokenSecret)
	}
	return []byte(c.JWTSecret)
}

// OTPTTL is the lifetime of password reset codes.
func (c *Config) OTPTTL() time.Duration {
	if c.OTPTTLMinutes <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.OTPTTLMinutes) * time.Minute
}

// LinkTokenTTL bounds the age of emailed links.
func (c *Config) LinkTokenTTL() time.Duration {
	if c.LinkTokenTTLHours <= 0 {
		return 72 * time.Hour
	}
	return time.Duration(c.LinkTokenTTLHours) * time.Hour
}

// SessionTTL is the lifetime of API session tokens.
func (c *Config) SessionTTL() time.Duration {
	if c.SessionTTLHours <= 0 {
		return 7 * 24 * time.Hour
	}
	return time.Duration(c.SessionTTLHours) * time.Hour
}

// OTPSweepInterval is how often expired codes are purged; zero disables the sweeper.
func (c *Config) OTPSweepInterval() time.Duration {
	if c.OTPSweepIntervalMinutes <= 0 {
		return 0
	}
	return time.Duration(c.OTPSweepIntervalMinutes) * time.Minute
}
