// Package delta classifies project files against the stored index ledger so
// incremental runs touch only what changed. The same engine drives code and
// document indexing; only the accept predicate and key space differ.
package delta

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/recallhq/recall/pkg/types"
)

// FileState is one scanned file: where it lives on disk plus the stat
// fields change classification compares.
type FileState struct {
	Path  string // absolute path
	Key   string // ledger key: root-relative by default, absolute for docs
	Mtime int64  // unix seconds
	Size  int64
}

// ScanOptions control which files a project walk collects.
type ScanOptions struct {
	// Accept reports whether a regular file belongs in the scan. Required.
	Accept func(path string) bool
	// SkipDir prunes a directory subtree by base name. Hidden directories
	// are always pruned.
	SkipDir func(name string) bool
	// AbsoluteKeys keys scanned files by absolute path instead of
	// root-relative slash path.
	AbsoluteKeys bool
}

// Scan walks root and returns the files the ledger should be compared
// against, in walk order. Unreadable subtrees are skipped rather than
// failing the walk; an unreadable root is the one fatal case.
func Scan(root string, opts ScanOptions) ([]FileState, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	var files []FileState
	err = filepath.Walk(absRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if path == absRoot {
				return err
			}
			// Stat failure: leave the file or subtree for the next run.
			if info != nil && info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if info.IsDir() {
			if path == absRoot {
				return nil
			}
			name := info.Name()
			if strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			if opts.SkipDir != nil && opts.SkipDir(name) {
				return filepath.SkipDir
			}
			return nil
		}

		if !info.Mode().IsRegular() || !opts.Accept(path) {
			return nil
		}

		key := path
		if !opts.AbsoluteKeys {
			rel, relErr := filepath.Rel(absRoot, path)
			if relErr != nil {
				return nil
			}
			key = filepath.ToSlash(rel)
		}
		files = append(files, FileState{
			Path:  path,
			Key:   key,
			Mtime: info.ModTime().Unix(),
			Size:  info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// DetectChanges classifies current files against the stored ledger, cheapest
// check first: an unknown key is new; matching mtime and size is unchanged
// without rehashing; any stat drift triggers a rehash, and only a real
// content change counts as modified; ledger keys missing from current are
// deleted. A file whose rehash fails lands in no bucket at all and is
// picked up on the next run. Each bucket comes back sorted.
func DetectChanges(stored map[string]types.FileMetadata, current []FileState) *types.ChangeSet {
	changes := &types.ChangeSet{}
	seen := make(map[string]struct{}, len(current))

	for _, f := range current {
		seen[f.Key] = struct{}{}

		meta, ok := stored[f.Key]
		if !ok {
			changes.New = append(changes.New, f.Key)
			continue
		}
		if meta.Mtime == f.Mtime && meta.Size == f.Size {
			changes.Unchanged = append(changes.Unchanged, f.Key)
			continue
		}

		// Stat drift; only the content hash decides. Backward mtime drift
		// takes this path too so a regressed timestamp cannot wedge a file
		// out of classification.
		hash, err := HashFile(f.Path)
		if err != nil {
			continue
		}
		if hash == meta.ContentHash {
			changes.Unchanged = append(changes.Unchanged, f.Key)
		} else {
			changes.Modified = append(changes.Modified, f.Key)
		}
	}

	for key := range stored {
		if _, ok := seen[key]; !ok {
			changes.Deleted = append(changes.Deleted, key)
		}
	}

	sort.Strings(changes.New)
	sort.Strings(changes.Modified)
	sort.Strings(changes.Deleted)
	sort.Strings(changes.Unchanged)
	return changes
}

// Fingerprint captures the ledger fields for one file in a single pass
type Fingerprint struct {
	ContentHash string
	Mtime       int64
	Size        int64
}

// FingerprintFile hashes and stats path together, so the ledger row an
// indexer writes matches the bytes it just parsed.
func FingerprintFile(path string) (Fingerprint, error) {
	f, err := os.Open(path)
	if err != nil {
		return Fingerprint{}, err
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return Fingerprint{}, err
	}

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return Fingerprint{}, err
	}

	return Fingerprint{
		ContentHash: hex.EncodeToString(h.Sum(nil)),
		Mtime:       info.ModTime().Unix(),
		Size:        info.Size(),
	}, nil
}

// HashFile returns the hex SHA-256 of the file's content
func HashFile(path string) (string, error) {
	fp, err := FingerprintFile(path)
	if err != nil {
		return "", err
	}
	return fp.ContentHash, nil
}
