package backfill

import (
	"errors"
	"fmt"

	"github.com/sha1n/uuid-backfill/internal/document"
	"github.com/sha1n/uuid-backfill/internal/identity"
)

// DefaultField is the member that marks a record as already identified.
const DefaultField = "id"

// maxGenerateAttempts bounds retries when a generator repeats itself.
const maxGenerateAttempts = 3

var errDuplicateID = errors.New("generator returned a duplicate identifier")

// Assign inserts a new identifier under field into every object element of
// doc that has no such member, and returns the number of elements changed.
//
// An element that already has the member is left alone whatever the member
// holds, including null or an empty string. Elements that are not objects
// are never touched. Identifiers generated within one call are distinct.
func Assign(doc *document.Value, field string, gen identity.Generator) (int, error) {
	if !doc.IsArray() {
		return 0, fmt.Errorf("%w, got %s", ErrStructure, kindOf(doc))
	}

	seen := make(map[string]struct{})
	added := 0
	for _, rec := range doc.Values {
		if !rec.IsObject() || rec.Has(field) {
			continue
		}

		id, err := uniqueID(gen, seen)
		if err != nil {
			return added, fmt.Errorf("failed to generate identifier: %w", err)
		}
		rec.Set(field, document.FromString(id))
		added++
	}

	return added, nil
}

func uniqueID(gen identity.Generator, seen map[string]struct{}) (string, error) {
	for range maxGenerateAttempts {
		id, err := gen.NewID()
		if err != nil {
			return "", err
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		return id, nil
	}
	return "", errDuplicateID
}

func kindOf(v *document.Value) string {
	if v == nil {
		return "nothing"
	}
	return v.Kind.String()
}
