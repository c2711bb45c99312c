package config

import (
	"os"
	"strconv"
	"time"
)

type DealConfig struct {
	BrokerageFee   int64         // flat fee charged to both sides, minor units
	FinalizeExpiry time.Duration // upper bound on the finalization transaction
	SeedDemoData   bool
	PayoutQueue    string
	PayoutBIC      string
	Currency       string
}

func LoadDealConfig() *DealConfig {
	return &DealConfig{
		BrokerageFee:   getEnvAsInt64("DEAL_BROKERAGE_FEE", 100),
		FinalizeExpiry: getEnvAsDuration("DEAL_FINALIZE_EXPIRY", 10*time.Second),
		SeedDemoData:   getEnvAsBool("DEAL_SEED_DEMO_DATA", false),
		PayoutQueue:    getEnv("DEAL_PAYOUT_QUEUE", "payout_queue"),
		PayoutBIC:      getEnv("DEAL_PAYOUT_BIC", "PROPMRKT"),
		Currency:       getEnv("DEAL_CURRENCY", "INR"),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvAsInt64(key string, defaultVal int64) int64 {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.ParseInt(val, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if boolVal, err := strconv.ParseBool(val); err == nil {
			return boolVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			return duration
		}
	}
	return defaultVal
}
