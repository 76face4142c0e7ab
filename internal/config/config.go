/**
 * @description
 * This package handles the configuration management for the service. It uses the
 * Viper library to read configuration from environment variables, providing a
 * centralized and straightforward way to manage application settings.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the settlement service.
// These values are loaded from environment variables.
type Config struct {
	ServerPort              string `mapstructure:"SERVER_PORT"`
	DatabaseURL             string `mapstructure:"DATABASE_URL"`
	RedisURL                string `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix    string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	RabbitMQURL             string `mapstructure:"RABBITMQ_URL"`
	JWTSecret               string `mapstructure:"JWT_SECRET"`
	MomoAPIBaseURL          string `mapstructure:"MOMO_API_BASE_URL"`
	MomoAPIKey              string `mapstructure:"MOMO_API_KEY"`
	ReferralCreditLRD       int64  `mapstructure:"REFERRAL_CREDIT_LRD"`
	SubscriptionFeeLRD      int64  `mapstructure:"SUBSCRIPTION_FEE_LRD"`
	FreeSubscriptionMinimum int    `mapstructure:"FREE_SUBSCRIPTION_THRESHOLD"`
	SubscriptionPeriodDays  int    `mapstructure:"SUBSCRIPTION_PERIOD_DAYS"`
	PayoutRequestsPerHour   int    `mapstructure:"PAYOUT_REQUESTS_PER_HOUR"`
	AllowedOrigins          string `mapstructure:"ALLOWED_ORIGINS"`
}

// LoadConfig reads configuration from environment variables from the given path.
// It uses Viper to automatically bind environment variables to the Config struct.
func LoadConfig(path string) (config Config, err error) {
	// Tell viper the path to look for the optional .env file.
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	// Enable automatic binding of environment variables.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "refer2earn:rate_limit")
	viper.SetDefault("REFERRAL_CREDIT_LRD", 250)
	viper.SetDefault("SUBSCRIPTION_FEE_LRD", 500)
	viper.SetDefault("FREE_SUBSCRIPTION_THRESHOLD", 2)
	viper.SetDefault("SUBSCRIPTION_PERIOD_DAYS", 7)
	viper.SetDefault("PAYOUT_REQUESTS_PER_HOUR", 10)
	viper.SetDefault("ALLOWED_ORIGINS", "*")

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("JWT_SECRET")
	_ = viper.BindEnv("MOMO_API_BASE_URL")
	_ = viper.BindEnv("MOMO_API_KEY")
	_ = viper.BindEnv("REFERRAL_CREDIT_LRD")
	_ = viper.BindEnv("SUBSCRIPTION_FEE_LRD")
	_ = viper.BindEnv("FREE_SUBSCRIPTION_THRESHOLD")
	_ = viper.BindEnv("SUBSCRIPTION_PERIOD_DAYS")
	_ = viper.BindEnv("PAYOUT_REQUESTS_PER_HOUR")
	_ = viper.BindEnv("ALLOWED_ORIGINS")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		// If the config file is not found, we can ignore the error.
		// For other errors, we should return them.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	// Unmarshal the configuration into the Config struct.
	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RedisRateLimitPrefix = strings.TrimSpace(config.RedisRateLimitPrefix)
	if config.RedisRateLimitPrefix == "" {
		config.RedisRateLimitPrefix = "refer2earn:rate_limit"
	}

	if config.ReferralCreditLRD <= 0 {
		log.Printf("level=warn component=config msg=\"non-positive referral credit configured; using default\" credit_lrd=%d", config.ReferralCreditLRD)
		config.ReferralCreditLRD = 250
	}
	if config.SubscriptionFeeLRD <= 0 {
		log.Printf("level=warn component=config msg=\"non-positive subscription fee configured; using default\" fee_lrd=%d", config.SubscriptionFeeLRD)
		config.SubscriptionFeeLRD = 500
	}
	if config.FreeSubscriptionMinimum <= 0 {
		config.FreeSubscriptionMinimum = 2
	}
	if config.SubscriptionPeriodDays <= 0 {
		config.SubscriptionPeriodDays = 7
	}
	if config.PayoutRequestsPerHour <= 0 {
		config.PayoutRequestsPerHour = 10
	}

	return
}
