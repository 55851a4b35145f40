package delta

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recallhq/recall/pkg/types"
)

func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func acceptExt(exts ...string) func(string) bool {
	return func(path string) bool {
		ext := filepath.Ext(path)
		for _, e := range exts {
			if ext == e {
				return true
			}
		}
		return false
	}
}

func TestScan(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.ts", "export const a = 1\n")
	writeFile(t, root, "b.rb", "def b; end\n")
	writeFile(t, root, "docs/readme.md", "# readme\n")
	writeFile(t, root, "node_modules/dep/index.ts", "ignored\n")
	writeFile(t, root, ".git/hooks/x.ts", "ignored\n")
	writeFile(t, root, "src/c.ts", "export const c = 3\n")

	files, err := Scan(root, ScanOptions{
		Accept:  acceptExt(".ts"),
		SkipDir: func(name string) bool { return name == "node_modules" },
	})
	require.NoError(t, err)

	keys := make([]string, len(files))
	for i, f := range files {
		keys[i] = f.Key
		assert.True(t, filepath.IsAbs(f.Path), "Path should be absolute: %s", f.Path)
		assert.Greater(t, f.Size, int64(0))
		assert.NotZero(t, f.Mtime)
	}
	assert.Equal(t, []string{"a.ts", "src/c.ts"}, keys)
}

func TestScanAbsoluteKeys(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "guide.md", "# guide\n")

	files, err := Scan(root, ScanOptions{
		Accept:       acceptExt(".md"),
		AbsoluteKeys: true,
	})
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, files[0].Path, files[0].Key)
	assert.True(t, filepath.IsAbs(files[0].Key))
}

func TestScanPrunesHiddenDirs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".cache/x.ts", "hidden\n")
	writeFile(t, root, "visible.ts", "ok\n")

	files, err := Scan(root, ScanOptions{Accept: acceptExt(".ts")})
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "visible.ts", files[0].Key)
}

func TestScanUnreadableRoot(t *testing.T) {
	_, err := Scan(filepath.Join(t.TempDir(), "does-not-exist"), ScanOptions{
		Accept: acceptExt(".ts"),
	})
	assert.Error(t, err)
}

// ledgerFor fingerprints every scanned file into a stored-metadata map, as a
// completed index run would have left it.
func ledgerFor(t *testing.T, files []FileState) map[string]types.FileMetadata {
	t.Helper()
	stored := make(map[string]types.FileMetadata, len(files))
	for _, f := range files {
		fp, err := FingerprintFile(f.Path)
		require.NoError(t, err)
		stored[f.Key] = types.FileMetadata{
			Path:        f.Key,
			ContentHash: fp.ContentHash,
			Mtime:       fp.Mtime,
			Size:        fp.Size,
		}
	}
	return stored
}

func TestDetectChanges(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.ts", "const a = 1\n")
	writeFile(t, root, "b.ts", "const b = 2\n")
	pathC := writeFile(t, root, "c.ts", "const c = 3\n")
	writeFile(t, root, "d.ts", "const d = 4\n")

	opts := ScanOptions{Accept: acceptExt(".ts")}
	files, err := Scan(root, opts)
	require.NoError(t, err)
	stored := ledgerFor(t, files)

	// Mutate: add e, rewrite b with different content, remove c. The new b
	// has a different length, so classification reaches the rehash even if
	// the rewrite lands within the same mtime second.
	writeFile(t, root, "e.ts", "const e = 5\n")
	writeFile(t, root, "b.ts", "const b = 2; const bb = 22\n")
	require.NoError(t, os.Remove(pathC))

	files, err = Scan(root, opts)
	require.NoError(t, err)
	changes := DetectChanges(stored, files)

	assert.Equal(t, []string{"e.ts"}, changes.New)
	assert.Equal(t, []string{"b.ts"}, changes.Modified)
	assert.Equal(t, []string{"c.ts"}, changes.Deleted)
	assert.Equal(t, []string{"a.ts", "d.ts"}, changes.Unchanged)
	assert.True(t, changes.Dirty())
	assert.Equal(t, 5, changes.Total())
}

func TestDetectChangesIdempotent(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.ts", "const a = 1\n")
	writeFile(t, root, "b.ts", "const b = 2\n")

	opts := ScanOptions{Accept: acceptExt(".ts")}
	files, err := Scan(root, opts)
	require.NoError(t, err)
	stored := ledgerFor(t, files)

	files, err = Scan(root, opts)
	require.NoError(t, err)
	changes := DetectChanges(stored, files)

	assert.Empty(t, changes.New)
	assert.Empty(t, changes.Modified)
	assert.Empty(t, changes.Deleted)
	assert.Len(t, changes.Unchanged, 2)
	assert.False(t, changes.Dirty())
}

func TestDetectChangesMtimeDrift(t *testing.T) {
	root := t.TempDir()
	path := writeFile(t, root, "a.ts", "const a = 1\n")

	opts := ScanOptions{Accept: acceptExt(".ts")}
	files, err := Scan(root, opts)
	require.NoError(t, err)
	stored := ledgerFor(t, files)

	// Touch without changing content: same size, drifted mtime. The rehash
	// recognizes the content and keeps the file out of modified.
	future := time.Now().Add(2 * time.Hour)
	require.NoError(t, os.Chtimes(path, future, future))

	files, err = Scan(root, opts)
	require.NoError(t, err)
	changes := DetectChanges(stored, files)

	assert.Empty(t, changes.Modified)
	assert.Equal(t, []string{"a.ts"}, changes.Unchanged)
}

func TestDetectChangesEmptyLedger(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.ts", "const a = 1\n")

	files, err := Scan(root, ScanOptions{Accept: acceptExt(".ts")})
	require.NoError(t, err)
	changes := DetectChanges(map[string]types.FileMetadata{}, files)

	assert.Equal(t, []string{"a.ts"}, changes.New)
	assert.Equal(t, 1, changes.Total())
}

func TestDetectChangesRehashFailureSkips(t *testing.T) {
	// A file the scanner saw but that vanished before the rehash: it must
	// land in no bucket, not even deleted, and wait for the next run.
	stored := map[string]types.FileMetadata{
		"ghost.ts": {Path: "ghost.ts", ContentHash: "aaaa", Mtime: 100, Size: 10},
	}
	current := []FileState{
		{Path: filepath.Join(t.TempDir(), "ghost.ts"), Key: "ghost.ts", Mtime: 200, Size: 12},
	}

	changes := DetectChanges(stored, current)
	assert.Empty(t, changes.New)
	assert.Empty(t, changes.Modified)
	assert.Empty(t, changes.Deleted)
	assert.Empty(t, changes.Unchanged)
}

func TestFingerprintFile(t *testing.T) {
	root := t.TempDir()
	content := "def greet\n  puts 'hi'\nend\n"
	path := writeFile(t, root, "greet.rb", content)

	fp, err := FingerprintFile(path)
	require.NoError(t, err)

	sum := sha256.Sum256([]byte(content))
	assert.Equal(t, hex.EncodeToString(sum[:]), fp.ContentHash)
	assert.Equal(t, int64(len(content)), fp.Size)
	assert.NotZero(t, fp.Mtime)

	_, err = FingerprintFile(filepath.Join(root, "missing.rb"))
	assert.Error(t, err)
}

func TestHashFileMatchesFingerprint(t *testing.T) {
	root := t.TempDir()
	path := writeFile(t, root, "x.py", strings.Repeat("x = 1\n", 100))

	hash, err := HashFile(path)
	require.NoError(t, err)
	fp, err := FingerprintFile(path)
	require.NoError(t, err)
	assert.Equal(t, fp.ContentHash, hash)
}
