package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	DBSource     string
	ReadDBSource string
	Port         string
	Env          string
	MaxConns     int32
	AutoMigrate  bool

	// RepayPolicy is "allow" or "reject".
	RepayPolicy string
	// PartialPolicy is "trust" or "verify".
	PartialPolicy string
}

func Load() (*Config, error) {
	dbSource := os.Getenv("DB_SOURCE")
	if dbSource == "" {
		return nil, fmt.Errorf("DB_SOURCE environment variable is required")
	}

	maxConns, err := getEnvAsInt("DB_MAX_CONNS", 25)
	if err != nil {
		return nil, err
	}
	if maxConns < 1 || maxConns > math.MaxInt32 {
		return nil, fmt.Errorf("DB_MAX_CONNS must be between 1 and %d, got %d", math.MaxInt32, maxConns)
	}
	autoMigrate, err := getEnvAsBool("AUTO_MIGRATE", true)
	if err != nil {
		return nil, err
	}

	repay := strings.ToLower(getEnv("INSTALLMENT_REPAY_POLICY", "allow"))
	if repay != "allow" && repay != "reject" {
		return nil, fmt.Errorf("INSTALLMENT_REPAY_POLICY must be allow or reject, got %q", repay)
	}
	partial := strings.ToLower(getEnv("PARTIAL_SETTLEMENT_POLICY", "trust"))
	if partial != "trust" && partial != "verify" {
		return nil, fmt.Errorf("PARTIAL_SETTLEMENT_POLICY must be trust or verify, got %q", partial)
	}

	return &Config{
		DBSource:      dbSource,
		ReadDBSource:  getEnv("READ_DB_SOURCE", dbSource),
		Port:          getEnv("SERVER_PORT", "8080"),
		Env:           getEnv("ENVIRONMENT", "development"),
		MaxConns:      int32(maxConns),
		AutoMigrate:   autoMigrate,
		RepayPolicy:   repay,
		PartialPolicy: partial,
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) (int, error) {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return value, nil
}

func getEnvAsBool(key string, defaultValue bool) (bool, error) {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean: %w", key, err)
	}
	return value, nil
}
