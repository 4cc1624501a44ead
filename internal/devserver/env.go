package devserver

import (
	"fmt"
	"time"
)

const DefaultAddr = ":5000"

// ConfigFromEnv overlays DefaultConfig with DEVSERVER_* variables read via
// getenv and returns the listen address alongside.
func ConfigFromEnv(getenv func(string) string) (Config, string, error) {
	cfg := DefaultConfig()
	addr := DefaultAddr

	if v := getenv("DEVSERVER_ADDR"); v != "" {
		addr = v
	}
	if v := getenv("DEVSERVER_JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}
	cfg.AdminEmail = getenv("DEVSERVER_ADMIN_EMAIL")
	cfg.AdminPassword = getenv("DEVSERVER_ADMIN_PASSWORD")

	for name, dst := range map[string]*time.Duration{
		"DEVSERVER_ACCESS_TTL":  &cfg.AccessTTL,
		"DEVSERVER_REFRESH_TTL": &cfg.RefreshTTL,
		"DEVSERVER_OTP_TTL":     &cfg.OTPTTL,
	} {
		v := getenv(name)
		if v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, "", fmt.Errorf("invalid %s %q", name, v)
		}
		*dst = d
	}

	return cfg, addr, nil
}
