package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dmitrijs2005/udinflow/internal/flagx"
	"github.com/joho/godotenv"
)

const envPrefix = "UDIN_"

// parseEnv overlays cfg with UDIN_* variables. The dotenv file named by
// -e/-env is loaded first, or ./.env when present; variables already set in
// the process win over the file.
func parseEnv(cfg *Config, args []string) error {
	if path := flagx.EnvFileFlags(args); path != "" {
		if err := godotenv.Load(path); err != nil {
			return err
		}
	} else if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return err
		}
	}

	lookupString("API_BASE_URL", &cfg.APIBaseURL)
	lookupString("DATA_DIR", &cfg.DataDir)
	lookupString("DATABASE_PATH", &cfg.DatabasePath)
	lookupString("PAYMENT_KEY_ID", &cfg.PaymentKeyID)
	lookupString("CURRENCY", &cfg.Currency)
	lookupString("LOG_LEVEL", &cfg.LogLevel)
	lookupString("LOG_FORMAT", &cfg.LogFormat)
	lookupString("METRICS_ADDR", &cfg.MetricsAddr)
	lookupString("SECURE_PASSPHRASE", &cfg.SecurePassphrase)

	if err := lookupDuration("REQUEST_TIMEOUT", &cfg.RequestTimeout); err != nil {
		return err
	}
	if err := lookupDuration("ONLINE_CHECK_INTERVAL", &cfg.OnlineCheckInterval); err != nil {
		return err
	}
	if err := lookupInt("MIN_FILE_SIZE", &cfg.MinFileSize); err != nil {
		return err
	}
	return lookupInt("MAX_FILE_SIZE", &cfg.MaxFileSize)
}

func lookupString(name string, dst *string) {
	if v, ok := os.LookupEnv(envPrefix + name); ok {
		*dst = v
	}
}

func lookupDuration(name string, dst *time.Duration) error {
	v, ok := os.LookupEnv(envPrefix + name)
	if !ok {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", envPrefix, name, err)
	}
	*dst = d
	return nil
}

func lookupInt(name string, dst *int64) error {
	v, ok := os.LookupEnv(envPrefix + name)
	if !ok {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fmt.Errorf("%s%s: %w", envPrefix, name, err)
	}
	*dst = n
	return nil
}
