// Package identity generates the identifiers assigned to records.
package identity

import (
	"fmt"

	"github.com/google/uuid"
)

// Supported UUID versions.
const (
	VersionV4 = "v4"
	VersionV7 = "v7"
)

// Generator produces new, globally unique identifiers.
type Generator interface {
	NewID() (string, error)
}

// GeneratorFunc adapts a plain function to Generator.
type GeneratorFunc func() (string, error)

// NewID calls f.
func (f GeneratorFunc) NewID() (string, error) {
	return f()
}

// V4 generates random (version 4) UUIDs.
type V4 struct{}

// NewID returns a random UUID in canonical form.
func (V4) NewID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate uuid v4: %w", err)
	}
	return id.String(), nil
}

// V7 generates time-ordered (version 7) UUIDs. Identifiers generated by the
// same process sort in generation order.
type V7 struct{}

// NewID returns a time-ordered UUID in canonical form.
func (V7) NewID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("failed to generate uuid v7: %w", err)
	}
	return id.String(), nil
}

// ForVersion returns the generator for a version name. An empty name selects
// VersionV4.
func ForVersion(version string) (Generator, error) {
	switch version {
	case VersionV4, "":
		return V4{}, nil
	case VersionV7:
		return V7{}, nil
	default:
		return nil, fmt.Errorf("unsupported uuid version: %q", version)
	}
}

// Valid reports whether s is a UUID in the canonical hyphenated
// 8-4-4-4-12 form.
func Valid(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}
