package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/udinflow/internal/flagx"
)

var configFlags = []string{"-a", "-d", "-i", "-l", "-m"}

// PositionalArgs drops every flag LoadConfig understands, including the -c and
// -e source flags, and returns what is left for the command itself.
func PositionalArgs(args []string) []string {
	owned := append([]string{"-c", "-config", "-e", "-env"}, configFlags...)
	return flagx.RemainingArgs(args, owned)
}

// parseFlags populates selected Config fields from command-line flags.
//
//	-a string   base URL of the backend API
//	-d string   local database path
//	-i int      online check interval in seconds
//	-l string   log level
//	-m string   metrics listen address
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, configFlags)

	fs := flag.NewFlagSet("udin", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.APIBaseURL, "a", cfg.APIBaseURL, "base URL of the backend API")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "local database path")
	onlineCheckInterval := fs.Int("i", int(cfg.OnlineCheckInterval.Seconds()), "online check interval (in seconds)")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	fs.StringVar(&cfg.MetricsAddr, "m", cfg.MetricsAddr, "metrics listen address")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg.OnlineCheckInterval = time.Duration(*onlineCheckInterval) * time.Second
	return nil
}
