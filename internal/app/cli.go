package app

import (
	"github.com/sha1n/uuid-backfill/internal/backfill"
	"github.com/spf13/pflag"
)

// RegisterFlags registers the file-processing flags on the given FlagSet
func RegisterFlags(flags *pflag.FlagSet) {
	flags.StringP("field", "f", backfill.DefaultField, "Name of the identifier member")
	flags.String("uuid-version", "", "UUID version to generate: v4 or v7")
	flags.Int("indent", 0, "Indentation width of rewritten files")
	flags.BoolP("dry-run", "n", false, "Show a diff of the changes without writing any file")
	flags.Bool("strict", false, "Exit with status 1 when any file fails")
	flags.Bool("no-color", false, "Disable colored output")
	flags.String("lock-dir", "", "Directory holding rewrite lock files")
	flags.Duration("lock-timeout", 0, "How long to wait for another process rewriting the same file")
	flags.BoolP("verbose", "v", false, "Enable debug logging")
}

// RegisterServeFlags registers the MCP server flags on the given FlagSet
func RegisterServeFlags(flags *pflag.FlagSet) {
	flags.StringP("transport", "t", "", "Transport type: stdio or sse")
	flags.StringP("host", "H", "", "Host for SSE transport")
	flags.IntP("port", "p", 0, "Port for SSE transport")
	flags.StringP("root", "r", "", "Directory tool paths are resolved against")
	flags.StringP("auth-type", "a", "", "Authentication type: none, basic, or apikey")
	flags.StringP("auth-basic-username", "u", "", "Basic auth username")
	flags.StringP("auth-basic-password", "P", "", "Basic auth password")
	flags.StringSliceP("auth-api-keys", "k", nil, "API keys (comma-separated)")
}
