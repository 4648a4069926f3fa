package mcp

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sha1n/uuid-backfill/internal/backfill"
)

func textOf(result *mcp.CallToolResult) string {
	var sb strings.Builder
	for _, c := range result.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			sb.WriteString(tc.Text)
		}
	}
	return sb.String()
}

func newTestHandler(t *testing.T) (*BackfillHandler, string) {
	t.Helper()
	root := t.TempDir()
	return NewBackfillHandler(root, backfill.Options{LockDir: t.TempDir()}), root
}

func writeFixture(t *testing.T, root, name, content string) string {
	t.Helper()
	path := filepath.Join(root, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}
	return path
}

func TestBackfillHandler_EmptyPaths(t *testing.T) {
	handler, _ := newTestHandler(t)

	result, _, err := handler.Handle(context.Background(), &mcp.CallToolRequest{}, BackfillArgument{})
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	if !result.IsError {
		t.Error("Expected error result for empty paths")
	}
	if !strings.Contains(textOf(result), "paths cannot be empty") {
		t.Errorf("Unexpected message: %s", textOf(result))
	}
}

func TestBackfillHandler_RejectsPathsOutsideRoot(t *testing.T) {
	handler, root := newTestHandler(t)
	inside := writeFixture(t, root, "a.json", `[{}]`)

	for _, p := range []string{"../a.json", "/etc/passwd", "sub/../../a.json", ""} {
		result, _, err := handler.Handle(context.Background(), &mcp.CallToolRequest{}, BackfillArgument{
			Paths: []string{"a.json", p},
		})
		if err != nil {
			t.Fatalf("Handle returned error: %v", err)
		}
		if !result.IsError {
			t.Errorf("Expected error result for %q", p)
		}
	}

	// Nothing is processed when any path is rejected.
	data, err := os.ReadFile(inside)
	if err != nil {
		t.Fatalf("Failed to read fixture: %v", err)
	}
	if string(data) != `[{}]` {
		t.Errorf("Expected file untouched, got %q", data)
	}
}

func TestBackfillHandler_RejectsSymlinkEscapingRoot(t *testing.T) {
	handler, root := newTestHandler(t)
	outside := writeFixture(t, t.TempDir(), "secret.json", `[{"name": "x"}]`)
	if err := os.Symlink(outside, filepath.Join(root, "link.json")); err != nil {
		t.Skipf("Symlinks not supported: %v", err)
	}
	if err := os.Symlink(filepath.Dir(outside), filepath.Join(root, "dir")); err != nil {
		t.Fatalf("Symlink failed: %v", err)
	}

	for _, p := range []string{"link.json", "dir/secret.json"} {
		result, _, err := handler.Handle(context.Background(), &mcp.CallToolRequest{}, BackfillArgument{
			Paths: []string{p},
		})
		if err != nil {
			t.Fatalf("Handle returned error: %v", err)
		}
		if !result.IsError {
			t.Errorf("Expected error result for %q", p)
		}
		if text := textOf(result); !strings.Contains(text, "outside the root") {
			t.Errorf("Expected the report to name the root violation, got: %s", text)
		}
	}

	data, err := os.ReadFile(outside)
	if err != nil {
		t.Fatalf("Failed to read outside file: %v", err)
	}
	if string(data) != `[{"name": "x"}]` {
		t.Errorf("Expected outside file untouched, got %q", data)
	}
}

func TestBackfillHandler_UpdatesFiles(t *testing.T) {
	handler, root := newTestHandler(t)
	path := writeFixture(t, root, "data/enemies.json", `[{"name": "orc"}, {"id": "keep", "name": "elf"}]`)

	result, _, err := handler.Handle(context.Background(), &mcp.CallToolRequest{}, BackfillArgument{
		Paths: []string{"data/enemies.json"},
	})
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	if result.IsError {
		t.Fatalf("Expected success, got: %s", textOf(result))
	}

	text := textOf(result)
	for _, want := range []string{"Processing: " + filepath.Join(root, "data/enemies.json"), "Added 1 identifier."} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in report, got: %s", want, text)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}
	if !strings.Contains(string(data), `"id": "keep"`) {
		t.Errorf("Expected existing id to be preserved, got: %s", data)
	}
	if strings.Count(string(data), `"id"`) != 2 {
		t.Errorf("Expected both objects to carry an id, got: %s", data)
	}
}

func TestBackfillHandler_DryRun(t *testing.T) {
	handler, root := newTestHandler(t)
	original := `[{"name": "orc"}]`
	path := writeFixture(t, root, "a.json", original)

	result, _, err := handler.Handle(context.Background(), &mcp.CallToolRequest{}, BackfillArgument{
		Paths:  []string{"a.json"},
		DryRun: true,
	})
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	if result.IsError {
		t.Fatalf("Expected success, got: %s", textOf(result))
	}
	if !strings.Contains(textOf(result), "(dry run)") {
		t.Errorf("Expected dry run report, got: %s", textOf(result))
	}

	data, _ := os.ReadFile(path)
	if string(data) != original {
		t.Errorf("Expected file untouched in dry run, got %q", data)
	}
}

func TestBackfillHandler_FailuresSetIsError(t *testing.T) {
	handler, root := newTestHandler(t)
	writeFixture(t, root, "good.json", `[{}]`)
	writeFixture(t, root, "bad.json", `{"not": "an array"}`)

	result, _, err := handler.Handle(context.Background(), &mcp.CallToolRequest{}, BackfillArgument{
		Paths: []string{"good.json", "bad.json", "missing.json"},
	})
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	if !result.IsError {
		t.Error("Expected error result when a file fails")
	}

	text := textOf(result)
	for _, want := range []string{"Added 1 identifier.", "root must be an array", "file not found", "3 files: 1 updated, 0 unchanged, 2 failed"} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in report, got: %s", want, text)
		}
	}
}

func TestBackfillHandler_CanceledContext(t *testing.T) {
	handler, root := newTestHandler(t)
	writeFixture(t, root, "a.json", `[{}]`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, _, err := handler.Handle(ctx, &mcp.CallToolRequest{}, BackfillArgument{Paths: []string{"a.json"}})
	if err != nil {
		t.Fatalf("Handle returned error: %v", err)
	}
	if !result.IsError {
		t.Error("Expected error result for canceled context")
	}
}

func TestResolvePath(t *testing.T) {
	root := filepath.FromSlash("/srv/data")

	tests := []struct {
		name string
		path string
		want string
		err  bool
	}{
		{name: "plain", path: "a.json", want: filepath.Join(root, "a.json")},
		{name: "nested", path: "x/y/a.json", want: filepath.Join(root, "x", "y", "a.json")},
		{name: "dot prefix", path: "./a.json", want: filepath.Join(root, "a.json")},
		{name: "inner parent", path: "x/../a.json", want: filepath.Join(root, "a.json")},
		{name: "dotdot file name", path: "..a.json", want: filepath.Join(root, "..a.json")},
		{name: "parent", path: "..", err: true},
		{name: "escape", path: "../a.json", err: true},
		{name: "nested escape", path: "x/../../a.json", err: true},
		{name: "absolute", path: "/a.json", err: true},
		{name: "blank", path: "  ", err: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolvePath(root, tt.path)
			if tt.err {
				if !errors.Is(err, ErrPathOutsideRoot) {
					t.Errorf("Expected ErrPathOutsideRoot, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestGetToolDefinition(t *testing.T) {
	handler, _ := newTestHandler(t)
	tool := handler.GetToolDefinition()
	if tool.Name != ToolName {
		t.Errorf("Expected tool name %q, got %q", ToolName, tool.Name)
	}
	if tool.Description == "" {
		t.Error("Expected non-empty description")
	}
}
