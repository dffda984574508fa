/**
 * @description
 * This package handles the configuration management for the service. It uses the
 * Viper library to read configuration from environment variables, with an optional
 * .env file, providing a centralized way to manage application settings.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

const (
	defaultDailyLimitResetSchedule = "0 0 * * *"
	defaultScheduledPaymentsCron   = "*/5 * * * *"
)

// Config holds all the configuration variables for the banking core.
// These values are loaded from environment variables.
type Config struct {
	ServerPort                string `mapstructure:"SERVER_PORT"`
	DatabaseURL               string `mapstructure:"DATABASE_URL"`
	AutoMigrate               bool   `mapstructure:"AUTO_MIGRATE"`
	RedisURL                  string `mapstructure:"REDIS_URL"`
	RedisKeyPrefix            string `mapstructure:"REDIS_KEY_PREFIX"`
	RabbitMQURL               string `mapstructure:"RABBITMQ_URL"`
	EventsExchange            string `mapstructure:"EVENTS_EXCHANGE"`
	NotificationsExchange     string `mapstructure:"NOTIFICATIONS_EXCHANGE"`
	JWTJWKSURL                string `mapstructure:"JWT_JWKS_URL"`
	JWTSecret                 string `mapstructure:"JWT_SECRET"`
	JWTIssuer                 string `mapstructure:"JWT_ISSUER"`
	JWTAudience               string `mapstructure:"JWT_AUDIENCE"`
	CORSAllowedOrigins        string `mapstructure:"CORS_ALLOWED_ORIGINS"`
	OTPTTLSeconds             int    `mapstructure:"OTP_TTL_SECONDS"`
	OTPMaxAttempts            int    `mapstructure:"OTP_MAX_ATTEMPTS"`
	DailyLimitResetSchedule   string `mapstructure:"DAILY_LIMIT_RESET_SCHEDULE"`
	ScheduledPaymentsSchedule string `mapstructure:"SCHEDULED_PAYMENTS_SCHEDULE"`
	DefaultCurrency           string `mapstructure:"DEFAULT_CURRENCY"`
}

// OTPTTL is the configured OTP lifetime.
func (c Config) OTPTTL() time.Duration {
	return time.Duration(c.OTPTTLSeconds) * time.Second
}

// AllowedOrigins splits CORS_ALLOWED_ORIGINS on commas.
func (c Config) AllowedOrigins() []string {
	out := make([]string, 0)
	for _, origin := range strings.Split(c.CORSAllowedOrigins, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// LoadConfig reads configuration from environment variables and an optional .env file in path.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("AUTO_MIGRATE", true)
	viper.SetDefault("REDIS_KEY_PREFIX", "sobs:otp")
	viper.SetDefault("EVENTS_EXCHANGE", "sobs.events")
	viper.SetDefault("NOTIFICATIONS_EXCHANGE", "sobs.notifications")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	viper.SetDefault("OTP_TTL_SECONDS", 300)
	viper.SetDefault("OTP_MAX_ATTEMPTS", 5)
	viper.SetDefault("DAILY_LIMIT_RESET_SCHEDULE", defaultDailyLimitResetSchedule)
	viper.SetDefault("SCHEDULED_PAYMENTS_SCHEDULE", defaultScheduledPaymentsCron)
	viper.SetDefault("DEFAULT_CURRENCY", "EGP")

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("AUTO_MIGRATE")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("REDIS_KEY_PREFIX")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("EVENTS_EXCHANGE")
	_ = viper.BindEnv("NOTIFICATIONS_EXCHANGE")
	_ = viper.BindEnv("JWT_JWKS_URL")
	_ = viper.BindEnv("JWT_SECRET")
	_ = viper.BindEnv("JWT_ISSUER")
	_ = viper.BindEnv("JWT_AUDIENCE")
	_ = viper.BindEnv("CORS_ALLOWED_ORIGINS")
	_ = viper.BindEnv("OTP_TTL_SECONDS")
	_ = viper.BindEnv("OTP_MAX_ATTEMPTS")
	_ = viper.BindEnv("DAILY_LIMIT_RESET_SCHEDULE")
	_ = viper.BindEnv("SCHEDULED_PAYMENTS_SCHEDULE")
	_ = viper.BindEnv("DEFAULT_CURRENCY")

	// A missing .env file is fine.
	if err = viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}
	config.DatabaseURL = strings.TrimSpace(config.DatabaseURL)
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RabbitMQURL = strings.TrimSpace(config.RabbitMQURL)
	config.JWTJWKSURL = strings.TrimSpace(config.JWTJWKSURL)
	config.RedisKeyPrefix = strings.TrimSpace(config.RedisKeyPrefix)
	if config.RedisKeyPrefix == "" {
		config.RedisKeyPrefix = "sobs:otp"
	}
	config.DefaultCurrency = strings.ToUpper(strings.TrimSpace(config.DefaultCurrency))
	if len(config.DefaultCurrency) != 3 {
		log.Printf("level=warn component=config msg=\"invalid DEFAULT_CURRENCY; using EGP\" value=%q", config.DefaultCurrency)
		config.DefaultCurrency = "EGP"
	}

	if config.OTPTTLSeconds <= 0 {
		log.Printf("level=warn component=config msg=\"non-positive OTP_TTL_SECONDS; using default\" value=%d", config.OTPTTLSeconds)
		config.OTPTTLSeconds = 300
	}
	if config.OTPMaxAttempts <= 0 {
		config.OTPMaxAttempts = 5
	}

	config.DailyLimitResetSchedule = validSchedule("DAILY_LIMIT_RESET_SCHEDULE", config.DailyLimitResetSchedule, defaultDailyLimitResetSchedule)
	config.ScheduledPaymentsSchedule = validSchedule("SCHEDULED_PAYMENTS_SCHEDULE", config.ScheduledPaymentsSchedule, defaultScheduledPaymentsCron)

	if config.JWTJWKSURL == "" && strings.TrimSpace(config.JWTSecret) == "" {
		log.Printf("level=warn component=config msg=\"neither JWT_JWKS_URL nor JWT_SECRET set; authenticated routes will reject every request\"")
	}

	return
}

func validSchedule(key, value, fallback string) string {
	value = strings.TrimSpace(value)
	if _, err := cron.ParseStandard(value); err != nil {
		log.Printf("level=warn component=config msg=\"invalid cron expression; using default\" key=%s value=%q err=%v", key, value, err)
		return fallback
	}
	return value
}
