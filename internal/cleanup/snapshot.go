package cleanup

import (
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"os"
	"time"
)

// BranchSnapshot is the persisted form of one branch inside a catalog snapshot.
type BranchSnapshot struct {
	Name                string    `json:"name"`
	LastCommitTimestamp time.Time `json:"lastCommitTimestamp"`
}

// RepositoryCatalogEntry describes one repository together with its
// automation branches at snapshot time.
type RepositoryCatalogEntry struct {
	FullName      string           `json:"fullName"`
	DefaultBranch string           `json:"defaultBranch"`
	Branches      []BranchSnapshot `json:"branches"`
}

// SnapshotError wraps snapshot serialization failures with the file path involved.
type SnapshotError struct {
	Path  string
	Cause error
}

// Error describes the snapshot failure.
func (snapshotError SnapshotError) Error() string {
	return fmt.Sprintf("catalog snapshot %s: %s", snapshotError.Path, snapshotError.Cause)
}

// Unwrap exposes the underlying cause.
func (snapshotError SnapshotError) Unwrap() error {
	return snapshotError.Cause
}

// WriteCatalogSnapshot serializes catalog entries as indented JSON.
func WriteCatalogSnapshot(writer io.Writer, entries []RepositoryCatalogEntry) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	if encodeError := encoder.Encode(entries); encodeError != nil {
		return fmt.Errorf("unable to encode catalog snapshot: %w", encodeError)
	}
	return nil
}

// SaveCatalogSnapshot writes catalog entries to the given file path.
func SaveCatalogSnapshot(path string, entries []RepositoryCatalogEntry) error {
	snapshotFile, createError := os.Create(path)
	if createError != nil {
		return SnapshotError{Path: path, Cause: createError}
	}
	defer snapshotFile.Close()
	if writeError := WriteCatalogSnapshot(snapshotFile, entries); writeError != nil {
		return SnapshotError{Path: path, Cause: writeError}
	}
	return nil
}

// LoadCatalogSnapshot reads a previously saved catalog snapshot.
func LoadCatalogSnapshot(path string) ([]RepositoryCatalogEntry, error) {
	snapshotContents, readError := os.ReadFile(path)
	if readError != nil {
		return nil, SnapshotError{Path: path, Cause: readError}
	}
	var entries []RepositoryCatalogEntry
	if decodeError := json.Unmarshal(snapshotContents, &entries); decodeError != nil {
		return nil, SnapshotError{Path: path, Cause: decodeError}
	}
	return entries, nil
}

// CatalogFromEntries adapts a materialized entry slice to the lazy catalog
// shape the engine consumes.
func CatalogFromEntries(entries []RepositoryCatalogEntry) iter.Seq2[RepositoryCatalogEntry, error] {
	return func(yield func(RepositoryCatalogEntry, error) bool) {
		for _, entry := range entries {
			if !yield(entry, nil) {
				return
			}
		}
	}
}
