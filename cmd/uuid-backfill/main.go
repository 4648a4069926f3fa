package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sha1n/uuid-backfill/internal/app"
	"github.com/spf13/cobra"
)

var (
	// Version is injected at build time
	Version = "dev"
	// Build is injected at build time
	Build = "unknown"
	// ProgramName is injected at build time
	ProgramName = "uuid-backfill"
)

func main() {
	runMain(os.Args, os.Exit)
}

func runMain(args []string, exit func(int)) {
	if err := Execute(Version, Build, ProgramName, args[1:]); err != nil {
		exit(1)
	}
}

// Execute is the entry point for the CLI, extracted for testing
func Execute(version, build, programName string, args []string) error {
	rootCmd := &cobra.Command{
		Use:          programName + " [flags] <file.json>...",
		Short:        "Backfill UUIDs into JSON array files",
		Long:         "Adds a freshly generated UUID to every object of a JSON array file that lacks an identifier, rewriting the file in place.\n\nA file named like a subcommand (serve, help) must be given with a path, e.g. ./serve",
		Version:      version,
		Args:         cobra.ArbitraryArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return app.RunWithDeps(ctx, app.DefaultRunParams(), cmd.Flags(), programName, args)
		},
	}

	serveCmd := &cobra.Command{
		Use:          "serve",
		Short:        "Run an MCP server exposing the backfill as a tool",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return app.ServeWithDeps(ctx, app.DefaultServeParams(), cmd.Flags(), version)
		},
	}

	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SetVersionTemplate(`{{.Version}}
`)

	app.RegisterFlags(rootCmd.PersistentFlags())
	app.RegisterServeFlags(serveCmd.Flags())
	rootCmd.AddCommand(serveCmd)
	rootCmd.SetArgs(args)

	return rootCmd.ExecuteContext(context.Background())
}
