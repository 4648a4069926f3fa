package backfill

import "errors"

// Error kinds reported for a single file. Concrete errors wrap one of these
// together with the underlying cause, so callers match them with errors.Is.
var (
	// ErrFileNotFound indicates the path does not exist, is not a regular
	// file, or cannot be read.
	ErrFileNotFound = errors.New("file not found")

	// ErrParse indicates the file content is not valid JSON.
	ErrParse = errors.New("invalid JSON")

	// ErrStructure indicates the document root is not an array.
	ErrStructure = errors.New("root must be an array")

	// ErrWrite indicates the updated document could not be written back.
	ErrWrite = errors.New("failed to write file")

	// ErrLock indicates the file is being rewritten by another process.
	ErrLock = errors.New("failed to lock file")

	// ErrOutsideRoot indicates the file resolves outside the allowed root.
	ErrOutsideRoot = errors.New("path is outside the root")
)
