package identity

import (
	"errors"
	"sort"
	"testing"

	"github.com/google/uuid"
)

func TestForVersion(t *testing.T) {
	tests := []struct {
		version     string
		wantVersion uuid.Version
		wantErr     bool
	}{
		{version: "", wantVersion: 4},
		{version: VersionV4, wantVersion: 4},
		{version: VersionV7, wantVersion: 7},
		{version: "v1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			gen, err := ForVersion(tt.version)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Expected error for unsupported version")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}

			id, err := gen.NewID()
			if err != nil {
				t.Fatalf("NewID failed: %v", err)
			}
			if !Valid(id) {
				t.Fatalf("Expected canonical uuid, got %q", id)
			}
			if got := uuid.MustParse(id).Version(); got != tt.wantVersion {
				t.Errorf("Expected version %d, got %d", tt.wantVersion, got)
			}
		})
	}
}

func TestV4_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for range 1000 {
		id, err := V4{}.NewID()
		if err != nil {
			t.Fatalf("NewID failed: %v", err)
		}
		if seen[id] {
			t.Fatalf("Duplicate id generated: %s", id)
		}
		seen[id] = true
	}
}

func TestV7_TimeOrdered(t *testing.T) {
	ids := make([]string, 100)
	for i := range ids {
		id, err := V7{}.NewID()
		if err != nil {
			t.Fatalf("NewID failed: %v", err)
		}
		ids[i] = id
	}

	if !sort.StringsAreSorted(ids) {
		t.Error("Expected v7 ids to sort in generation order")
	}
}

func TestValid(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"6ba7b810-9dad-11d1-80b4-00c04fd430c8", true},
		{"6BA7B810-9DAD-11D1-80B4-00C04FD430C8", true},
		{"6ba7b8109dad11d180b400c04fd430c8", false},
		{"{6ba7b810-9dad-11d1-80b4-00c04fd430c8}", false},
		{"urn:uuid:6ba7b810-9dad-11d1-80b4-00c04fd430c8", false},
		{"abc", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := Valid(tt.input); got != tt.want {
			t.Errorf("Valid(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestGeneratorFunc(t *testing.T) {
	wantErr := errors.New("boom")
	gen := GeneratorFunc(func() (string, error) { return "", wantErr })

	if _, err := gen.NewID(); !errors.Is(err, wantErr) {
		t.Errorf("Expected %v, got %v", wantErr, err)
	}
}
