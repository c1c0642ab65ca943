// Package tree provides the rooted file-tree abstraction the rename engine
// operates on. All paths crossing the package boundary are relative to the
// tree root; anything escaping the root is rejected.
package tree

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/checksum"
)

// TempPrefix is the name prefix of the transient files Write creates. The
// exclusivity guard filters watcher events on these names.
const TempPrefix = ".raido-tmp-"

// Entry describes a single file or directory under the root.
type Entry struct {
	Path  string // relative to root
	IsDir bool
}

// Tree is a file tree rooted at a directory.
type Tree struct {
	root     string // absolute path
	skipDirs map[string]struct{}
}

// Option configures a Tree.
type Option func(*Tree)

// WithSkipDirs excludes directories with the given base names (and everything
// below them) from traversal.
func WithSkipDirs(names ...string) Option {
	return func(t *Tree) {
		for _, n := range names {
			t.skipDirs[n] = struct{}{}
		}
	}
}

// New creates a Tree rooted at the given directory, which must already exist.
func New(root string, opts ...Option) (*Tree, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("tree: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, &apperr.IOError{Op: "stat", Path: root, Err: err}
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("tree: root is not a directory: %s", abs)
	}
	t := &Tree{root: abs, skipDirs: make(map[string]struct{})}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Root returns the absolute root path.
func (t *Tree) Root() string { return t.root }

// safePath resolves a relative path against the root and rejects any result
// that escapes it (directory traversal).
func (t *Tree) safePath(rel string) (string, error) {
	if rel == "" || rel == "." {
		return t.root, nil
	}
	cleaned := filepath.Clean(rel)
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("tree: absolute paths not allowed: %s", rel)
	}
	joined := filepath.Join(t.root, cleaned)
	abs, err := filepath.Abs(joined)
	if err != nil {
		return "", fmt.Errorf("tree: resolve path: %w", err)
	}
	if !strings.HasPrefix(abs, t.root+string(os.PathSeparator)) && abs != t.root {
		return "", fmt.Errorf("tree: path escapes root: %s", rel)
	}
	return abs, nil
}

func (t *Tree) skip(d fs.DirEntry) bool {
	if !d.IsDir() {
		return false
	}
	_, ok := t.skipDirs[d.Name()]
	return ok
}

// Files walks the tree and returns the relative path of every regular file,
// in lexical order. Symlinks and other non-regular entries are not followed.
func (t *Tree) Files() ([]string, error) {
	var out []string
	err := filepath.WalkDir(t.root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if t.skip(d) {
			return filepath.SkipDir
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		rel, _ := filepath.Rel(t.root, p)
		out = append(out, rel)
		return nil
	})
	if err != nil {
		return nil, &apperr.IOError{Op: "walk", Path: t.root, Err: err}
	}
	return out, nil
}

// Entries walks the tree and returns every file and directory below the root
// (the root itself is excluded), in lexical order.
func (t *Tree) Entries() ([]Entry, error) {
	var out []Entry
	err := filepath.WalkDir(t.root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if t.skip(d) {
			return filepath.SkipDir
		}
		if p == t.root {
			return nil
		}
		rel, _ := filepath.Rel(t.root, p)
		out = append(out, Entry{Path: rel, IsDir: d.IsDir()})
		return nil
	})
	if err != nil {
		return nil, &apperr.IOError{Op: "walk", Path: t.root, Err: err}
	}
	return out, nil
}

// Read returns the raw bytes of the file at path.
func (t *Tree) Read(path string) ([]byte, error) {
	abs, err := t.safePath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, &apperr.IOError{Op: "read", Path: path, Err: err}
	}
	return data, nil
}

// Write atomically replaces the content of an existing file: tmp file →
// fsync → rename. The original file mode is preserved; a file that does not
// exist yet is created with mode 0644.
func (t *Tree) Write(path string, content []byte) error {
	abs, err := t.safePath(path)
	if err != nil {
		return err
	}

	mode := fs.FileMode(0o644)
	if info, statErr := os.Stat(abs); statErr == nil {
		mode = info.Mode().Perm()
	}

	dir := filepath.Dir(abs)
	tmp, err := os.CreateTemp(dir, TempPrefix+"*")
	if err != nil {
		return &apperr.IOError{Op: "write", Path: path, Err: err}
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return &apperr.IOError{Op: "write", Path: path, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		return &apperr.IOError{Op: "write", Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &apperr.IOError{Op: "write", Path: path, Err: err}
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		return &apperr.IOError{Op: "write", Path: path, Err: err}
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return &apperr.IOError{Op: "write", Path: path, Err: err}
	}
	success = true
	return nil
}

// Move renames oldPath to newPath within the tree. It fails with ErrConflict
// when an entry already exists at newPath; os.Rename would silently replace a
// regular file there.
func (t *Tree) Move(oldPath, newPath string) error {
	absOld, err := t.safePath(oldPath)
	if err != nil {
		return err
	}
	absNew, err := t.safePath(newPath)
	if err != nil {
		return err
	}
	if _, err := os.Lstat(absNew); err == nil {
		return fmt.Errorf("%w: %s", apperr.ErrConflict, newPath)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return &apperr.IOError{Op: "stat", Path: newPath, Err: err}
	}
	if err := os.Rename(absOld, absNew); err != nil {
		return &apperr.IOError{Op: "rename", Path: oldPath, Err: err}
	}
	return nil
}

// Snapshot returns the checksum of every regular file keyed by relative path.
// Two trees with equal snapshots have byte-identical content and layout.
func (t *Tree) Snapshot() (map[string]string, error) {
	files, err := t.Files()
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(files))
	for _, rel := range files {
		data, err := t.Read(rel)
		if err != nil {
			return nil, err
		}
		out[rel] = checksum.Sum(data)
	}
	return out, nil
}
