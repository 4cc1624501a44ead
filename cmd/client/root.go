package main

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/dmitrijs2005/udinflow/internal/buildinfo"
	"github.com/dmitrijs2005/udinflow/internal/client/cli"
	"github.com/dmitrijs2005/udinflow/internal/client/config"
	"github.com/spf13/cobra"
)

const flagsHelp = `
Configuration flags (after defaults, .env/UDIN_* and the JSON file):
  -a <url>       backend base URL
  -d <path>      local database path
  -i <seconds>   online check interval
  -l <level>     log level (debug, info, warn, error)
  -m <addr>      serve prometheus metrics on addr
  -c <file>      JSON config file
  -e <file>      dotenv file`

// Flags are owned by config.LoadConfig, so cobra hands them through untouched.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:                "udin [flags]",
		Short:              "Stage, pay for and upload documents for UDIN certification",
		Long:               "udin stages documents locally, prices and pays for them, then uploads\nthem to the UDIN backend. Without a subcommand it starts an interactive shell." + flagsHelp,
		DisableFlagParsing: true,
		SilenceUsage:       true,
		SilenceErrors:      true,
		Args: func(cmd *cobra.Command, args []string) error {
			if rest := config.PositionalArgs(args); len(rest) > 0 && !wantsHelp(args) {
				return fmt.Errorf("unknown command %q for %q", rest[0], cmd.CommandPath())
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if wantsHelp(args) {
				return cmd.Help()
			}
			buildinfo.PrintBuildData(cmd.OutOrStdout())
			return withApp(cmd, args, func(ctx context.Context, a *cli.App) error {
				a.Run(ctx)
				return nil
			})
		},
	}

	root.AddCommand(uploadCmd(), statusCmd(), resetCmd(), versionCmd())
	return root
}

func uploadCmd() *cobra.Command {
	return &cobra.Command{
		Use:                "upload [transaction-id] [flags]",
		Short:              "Upload the staged files for a paid transaction",
		Long:               "Upload the files staged by a previous session. Without a transaction id the\none remembered by the last checkout is used." + flagsHelp,
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if wantsHelp(args) {
				return cmd.Help()
			}
			rest := config.PositionalArgs(args)
			if len(rest) > 1 {
				return fmt.Errorf("upload takes at most one transaction id, got %d", len(rest))
			}
			return withApp(cmd, args, func(ctx context.Context, a *cli.App) error {
				a.Restore(ctx)
				return a.Exec(ctx, "upload", rest)
			})
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:                "status [flags]",
		Short:              "Show connection, session, staged files and pending transaction",
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if wantsHelp(args) {
				return cmd.Help()
			}
			return withApp(cmd, args, func(ctx context.Context, a *cli.App) error {
				a.Restore(ctx)
				a.CheckOnline(ctx)
				return a.Exec(ctx, "status", nil)
			})
		},
	}
}

func resetCmd() *cobra.Command {
	return &cobra.Command{
		Use:                "reset [flags]",
		Short:              "Discard every staged file",
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if wantsHelp(args) {
				return cmd.Help()
			}
			return withApp(cmd, args, func(ctx context.Context, a *cli.App) error {
				return a.Exec(ctx, "reset", nil)
			})
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			buildinfo.PrintBuildData(cmd.OutOrStdout())
		},
	}
}

// withApp loads the configuration from args, wires the application and
// releases it after fn returns.
func withApp(cmd *cobra.Command, args []string, fn func(context.Context, *cli.App) error) (err error) {
	cfg, err := config.LoadConfig(args)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := cli.Bootstrap(ctx, cfg, cmd.InOrStdin(), cmd.OutOrStdout())
	if err != nil {
		return fmt.Errorf("start: %w", err)
	}
	defer func() {
		err = errors.Join(err, a.Close())
	}()

	return fn(ctx, a)
}

func wantsHelp(args []string) bool {
	return slices.Contains(args, "-h") || slices.Contains(args, "--help") || slices.Contains(args, "-help")
}
