package config

import (
	"os"
	"testing"

	"github.com/spf13/viper"
)

func TestLoadConfig_Defaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	unsetEnvWithCleanup(t, "REFERRAL_CREDIT_LRD")
	unsetEnvWithCleanup(t, "SUBSCRIPTION_FEE_LRD")
	unsetEnvWithCleanup(t, "FREE_SUBSCRIPTION_THRESHOLD")
	unsetEnvWithCleanup(t, "SUBSCRIPTION_PERIOD_DAYS")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ReferralCreditLRD != 250 {
		t.Fatalf("expected default referral credit 250, got %d", cfg.ReferralCreditLRD)
	}
	if cfg.SubscriptionFeeLRD != 500 {
		t.Fatalf("expected default subscription fee 500, got %d", cfg.SubscriptionFeeLRD)
	}
	if cfg.FreeSubscriptionMinimum != 2 {
		t.Fatalf("expected default free threshold 2, got %d", cfg.FreeSubscriptionMinimum)
	}
	if cfg.SubscriptionPeriodDays != 7 {
		t.Fatalf("expected default period of 7 days, got %d", cfg.SubscriptionPeriodDays)
	}
}

func TestLoadConfig_PortEnvOverridesServerPort(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "SERVER_PORT", "8080")
	setEnvWithCleanup(t, "PORT", "9090")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ServerPort != "9090" {
		t.Fatalf("expected PORT to win, got %q", cfg.ServerPort)
	}
}

func TestLoadConfig_CoercesNonPositivePricing(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "REFERRAL_CREDIT_LRD", "-100")
	setEnvWithCleanup(t, "SUBSCRIPTION_FEE_LRD", "0")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.ReferralCreditLRD != 250 {
		t.Fatalf("expected negative credit to fall back to default, got %d", cfg.ReferralCreditLRD)
	}
	if cfg.SubscriptionFeeLRD != 500 {
		t.Fatalf("expected zero fee to fall back to default, got %d", cfg.SubscriptionFeeLRD)
	}
}

func TestLoadConfig_RateLimitPrefixDefault(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "REDIS_RATE_LIMIT_PREFIX", "   ")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.RedisRateLimitPrefix != "refer2earn:rate_limit" {
		t.Fatalf("expected blank prefix to fall back to default, got %q", cfg.RedisRateLimitPrefix)
	}
}

func setEnvWithCleanup(t *testing.T, key string, value string) {
	t.Helper()
	prev, hadPrev := os.LookupEnv(key)
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("failed to set env %s: %v", key, err)
	}
	t.Cleanup(func() {
		if hadPrev {
			_ = os.Setenv(key, prev)
			return
		}
		_ = os.Unsetenv(key)
	})
}

func unsetEnvWithCleanup(t *testing.T, key string) {
	t.Helper()
	prev, hadPrev := os.LookupEnv(key)
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("failed to unset env %s: %v", key, err)
	}
	t.Cleanup(func() {
		if hadPrev {
			_ = os.Setenv(key, prev)
			return
		}
		_ = os.Unsetenv(key)
	})
}
