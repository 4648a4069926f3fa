package report

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/sha1n/uuid-backfill/internal/backfill"
)

func TestPrinter_Finished(t *testing.T) {
	tests := []struct {
		name string
		res  backfill.Result
		want []string
	}{
		{
			name: "updated",
			res:  backfill.Result{Path: "a.json", Status: backfill.StatusUpdated, Added: 1},
			want: []string{"Processed a.json", "Added 1 identifier."},
		},
		{
			name: "updated plural",
			res:  backfill.Result{Path: "a.json", Status: backfill.StatusUpdated, Added: 3},
			want: []string{"Added 3 identifiers."},
		},
		{
			name: "unchanged",
			res:  backfill.Result{Path: "c.json", Status: backfill.StatusUnchanged},
			want: []string{`No changes needed: every object in 'c.json' already has an "id".`},
		},
		{
			name: "failed",
			res: backfill.Result{
				Path:   "d.json",
				Status: backfill.StatusFailed,
				Err:    fmt.Errorf("%w, got object", backfill.ErrStructure),
			},
			want: []string{"Error: root must be an array, got object"},
		},
		{
			name: "dry run",
			res: backfill.Result{
				Path:   "e.json",
				Status: backfill.StatusWouldUpdate,
				Added:  2,
				Diff:   "--- e.json (original)\n+++ e.json (with identifiers)",
			},
			want: []string{"+++ e.json (with identifiers)\n", "Would add 2 identifiers to e.json (dry run)."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			p := NewPrinter(&buf, "id", true)

			p.Finished(tt.res)

			out := buf.String()
			for _, want := range tt.want {
				if !strings.Contains(out, want) {
					t.Errorf("Expected output to contain %q, got:\n%s", want, out)
				}
			}
			if !strings.HasSuffix(out, Separator+"\n") {
				t.Errorf("Expected output to end with separator, got:\n%s", out)
			}
			if strings.Contains(out, "\x1b[") {
				t.Error("Expected no color codes when writing to a buffer")
			}
		})
	}
}

func TestPrinter_Started(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf, "id", false).Started("data/x.json")

	if got := buf.String(); got != "Processing: data/x.json ...\n" {
		t.Errorf("Unexpected output %q", got)
	}
}

func TestPrinter_Summary(t *testing.T) {
	t.Run("single file prints nothing", func(t *testing.T) {
		var buf bytes.Buffer
		NewPrinter(&buf, "id", false).Summary(backfill.Summary{Files: 1, Updated: 1, Added: 2})
		if buf.Len() != 0 {
			t.Errorf("Expected no summary for one file, got %q", buf.String())
		}
	})

	t.Run("multiple files", func(t *testing.T) {
		var buf bytes.Buffer
		NewPrinter(&buf, "id", false).Summary(backfill.Summary{Files: 3, Updated: 1, Unchanged: 1, Failed: 1, Added: 1})
		want := "3 files: 1 updated, 1 unchanged, 1 failed; 1 identifier added.\n"
		if buf.String() != want {
			t.Errorf("Expected %q, got %q", want, buf.String())
		}
	})
}

func TestPrinter_Usage(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf, "id", false).Usage("uuid-backfill")

	if !strings.Contains(buf.String(), "Usage: uuid-backfill <file.json>...") {
		t.Errorf("Unexpected usage output: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "./serve") {
		t.Errorf("Expected a hint for files named like subcommands, got %q", buf.String())
	}
}

func TestPrinter_CustomFieldInMessage(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf, "uuid", false).Finished(backfill.Result{Path: "x.json", Status: backfill.StatusUnchanged})

	if !strings.Contains(buf.String(), `already has an "uuid"`) {
		t.Errorf("Expected custom field in message, got %q", buf.String())
	}
}

func TestIsTerminal(t *testing.T) {
	if IsTerminal(&bytes.Buffer{}) {
		t.Error("Expected buffer not to be a terminal")
	}

	f, err := os.CreateTemp(t.TempDir(), "out")
	if err != nil {
		t.Fatalf("CreateTemp failed: %v", err)
	}
	defer func() { _ = f.Close() }()
	if IsTerminal(f) {
		t.Error("Expected regular file not to be a terminal")
	}
}

func TestPrinter_WrappedErrorMessage(t *testing.T) {
	var buf bytes.Buffer
	err := fmt.Errorf("%w: %w", backfill.ErrWrite, errors.New("permission denied"))
	NewPrinter(&buf, "id", false).Finished(backfill.Result{Path: "x.json", Status: backfill.StatusFailed, Err: err})

	if !strings.Contains(buf.String(), "Error: failed to write file: permission denied") {
		t.Errorf("Unexpected output %q", buf.String())
	}
}
