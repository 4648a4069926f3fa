package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sha1n/uuid-backfill/internal/config"
	mcputil "github.com/sha1n/uuid-backfill/internal/mcp"
	"github.com/spf13/pflag"
)

// ServeParams contains dependencies for the serve function
type ServeParams struct {
	LoadSettings      func(*pflag.FlagSet) (*config.Settings, error)
	ValidSettings     func(*config.Settings) error
	StartSSEServer    func(context.Context, *mcp.Server, *config.Settings) error
	CreateServer      func(*config.Settings, string) (*mcp.Server, error)
	Stderr            io.Writer
	CustomIOTransport mcp.Transport // Optional: for testing with custom IO
}

// DefaultServeParams returns production dependencies
func DefaultServeParams() ServeParams {
	return ServeParams{
		LoadSettings:   config.LoadSettingsWithFlags,
		ValidSettings:  config.ValidateServeSettings,
		StartSSEServer: StartSSEServer,
		CreateServer:   CreateMCPServer,
		Stderr:         os.Stderr,
	}
}

// ServeWithDeps runs the MCP server with the provided dependencies
func ServeWithDeps(ctx context.Context, params ServeParams, flags *pflag.FlagSet, version string) error {
	settings, err := params.LoadSettings(flags)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	if err := params.ValidSettings(settings); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Configure logging - always use stderr, stdout belongs to the stdio transport
	stderr := params.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	slog.SetDefault(config.NewLogger(stderr, settings))

	slog.Info("Starting uuid-backfill MCP server", "version", version)
	config.LogServe(settings)

	mcpServer, err := params.CreateServer(settings, version)
	if err != nil {
		return err
	}

	if settings.Serve.Transport == config.TransportStdio {
		// Use custom transport if provided (for testing), otherwise use stdio
		transport := params.CustomIOTransport
		if transport == nil {
			transport = &mcp.StdioTransport{}
		}
		return mcpServer.Run(ctx, transport)
	}

	slog.Info("Starting SSE server", "host", settings.Serve.Host, "port", settings.Serve.Port)
	return params.StartSSEServer(ctx, mcpServer, settings)
}

// CreateMCPServer creates the MCP server with the backfill tool registered
func CreateMCPServer(settings *config.Settings, version string) (*mcp.Server, error) {
	opts, err := BackfillOptions(settings, slog.Default())
	if err != nil {
		return nil, fmt.Errorf("failed to configure backfill tool: %w", err)
	}

	return mcputil.CreateServer(mcputil.ServerConfig{
		Name:     "uuid-backfill",
		Version:  version,
		Backfill: mcputil.NewBackfillHandler(settings.Serve.Root, opts),
	}), nil
}
