// Package testutil provides shared test helpers for building file trees.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/raido/internal/tree"
)

// TestTree creates a temporary directory populated with the given files
// (relative path -> content) and returns its path and a Tree over it.
func TestTree(t *testing.T, files map[string]string) (string, *tree.Tree) {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		abs := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	tr, err := tree.New(root)
	if err != nil {
		t.Fatalf("tree.New: %v", err)
	}
	return root, tr
}

// Digest returns the checksum snapshot of a tree, failing the test on error.
func Digest(t *testing.T, tr *tree.Tree) map[string]string {
	t.Helper()
	snap, err := tr.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	return snap
}
