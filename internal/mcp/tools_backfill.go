package mcp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sha1n/uuid-backfill/internal/backfill"
	"github.com/sha1n/uuid-backfill/internal/report"
)

// ToolName is the name the backfill tool is registered under.
const ToolName = "backfill_ids"

// ErrPathOutsideRoot indicates a tool path that does not stay inside the root.
var ErrPathOutsideRoot = errors.New("path must be relative and inside the server root")

// BackfillArgument defines backfill parameters.
type BackfillArgument struct {
	Paths  []string `json:"paths" jsonschema:"JSON files to process, relative to the server root"`
	DryRun bool     `json:"dry_run,omitempty" jsonschema:"Preview the changes as a diff without writing any file"`
}

// BackfillHandler handles the backfill MCP tool.
type BackfillHandler struct {
	root string
	opts backfill.Options
}

// NewBackfillHandler creates a handler resolving paths against root and
// processing them with a Backfiller built from opts.
func NewBackfillHandler(root string, opts backfill.Options) *BackfillHandler {
	return &BackfillHandler{
		root: root,
		opts: opts,
	}
}

// Handle processes the requested files in order and returns the report text.
func (h *BackfillHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args BackfillArgument) (*mcp.CallToolResult, any, error) {
	if len(args.Paths) == 0 {
		return errorResult("paths cannot be empty"), nil, nil
	}

	paths := make([]string, 0, len(args.Paths))
	for _, p := range args.Paths {
		resolved, err := ResolvePath(h.root, p)
		if err != nil {
			return errorResult(fmt.Sprintf("Invalid path %q: %s", p, err)), nil, nil
		}
		paths = append(paths, resolved)
	}

	opts := h.opts
	opts.DryRun = opts.DryRun || args.DryRun
	opts.Root = h.root
	b := backfill.New(opts)

	var buf bytes.Buffer
	printer := report.NewPrinter(&buf, b.Field(), false)
	summary, err := b.Run(ctx, paths, printer)
	if err != nil {
		return errorResult(fmt.Sprintf("Backfill interrupted: %s", err)), nil, nil
	}
	printer.Summary(summary)

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: buf.String()},
		},
		IsError: summary.HasFailures(),
	}, nil, nil
}

// ResolvePath joins p onto root, rejecting absolute paths and paths that
// climb out of root. The check is lexical; symlinks are checked by the
// Backfiller against its Root.
func ResolvePath(root, p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", ErrPathOutsideRoot
	}
	rel := filepath.Clean(p)
	if filepath.IsAbs(rel) || filepath.VolumeName(rel) != "" {
		return "", ErrPathOutsideRoot
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrPathOutsideRoot
	}
	return filepath.Join(root, rel), nil
}

// GetToolDefinition returns the MCP tool definition.
func (h *BackfillHandler) GetToolDefinition() *mcp.Tool {
	return &mcp.Tool{
		Name:        ToolName,
		Description: "Add a freshly generated UUID under the identifier key to every object of a JSON array file that lacks one, rewriting the file in place",
	}
}

// RegisterBackfillTool registers the backfill tool with an MCP server.
func RegisterBackfillTool(server *mcp.Server, handler *BackfillHandler) {
	mcp.AddTool(server, handler.GetToolDefinition(), handler.Handle)
}

func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
		IsError: true,
	}
}
