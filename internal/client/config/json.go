package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/udinflow/internal/flagx"
	"github.com/dmitrijs2005/udinflow/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Absent fields
// leave the current value untouched.
type JsonConfig struct {
	APIBaseURL          *string         `json:"api_base_url"`
	DataDir             *string         `json:"data_dir"`
	DatabasePath        *string         `json:"database_path"`
	RequestTimeout      *timex.Duration `json:"request_timeout"`
	OnlineCheckInterval *timex.Duration `json:"online_check_interval"`
	PaymentKeyID        *string         `json:"payment_key_id"`
	Currency            *string         `json:"currency"`
	LogLevel            *string         `json:"log_level"`
	LogFormat           *string         `json:"log_format"`
	MetricsAddr         *string         `json:"metrics_addr"`
	SecurePassphrase    *string         `json:"secure_passphrase"`
	MinFileSize         *int64          `json:"min_file_size"`
	MaxFileSize         *int64          `json:"max_file_size"`
}

// parseJson overlays cfg with the JSON file named by -c or -config, if any.
func parseJson(cfg *Config, args []string) error {
	path := flagx.JsonConfigFlags(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return err
	}

	setString(&cfg.APIBaseURL, jc.APIBaseURL)
	setString(&cfg.DataDir, jc.DataDir)
	setString(&cfg.DatabasePath, jc.DatabasePath)
	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.OnlineCheckInterval != nil {
		cfg.OnlineCheckInterval = jc.OnlineCheckInterval.Duration
	}
	setString(&cfg.PaymentKeyID, jc.PaymentKeyID)
	setString(&cfg.Currency, jc.Currency)
	setString(&cfg.LogLevel, jc.LogLevel)
	setString(&cfg.LogFormat, jc.LogFormat)
	setString(&cfg.MetricsAddr, jc.MetricsAddr)
	setString(&cfg.SecurePassphrase, jc.SecurePassphrase)
	if jc.MinFileSize != nil {
		cfg.MinFileSize = *jc.MinFileSize
	}
	if jc.MaxFileSize != nil {
		cfg.MaxFileSize = *jc.MaxFileSize
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
