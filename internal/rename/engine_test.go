package rename_test

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/rename"
	"github.com/starford/raido/internal/testutil"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func readFile(t *testing.T, root, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		t.Fatalf("read %s: %v", rel, err)
	}
	return string(data)
}

func exists(root, rel string) bool {
	_, err := os.Lstat(filepath.Join(root, filepath.FromSlash(rel)))
	return err == nil
}

func TestRunRenamesContentAndPaths(t *testing.T) {
	root, _ := testutil.TestTree(t, map[string]string{
		"pkg/cobyqa.py":      "import cobyqa\n",
		"cobyqa/__init__.py": "from cobyqa.main import minimize\n",
		"README.md":          "cobyqa solves nonlinear problems\n",
	})

	report, err := rename.Run(rename.Spec{
		Old:  "cobyqa",
		New:  "cobyqa_abc123",
		Root: root,
	}, discard())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !exists(root, "cobyqa_abc123") || exists(root, "cobyqa") {
		t.Error("directory cobyqa should have become cobyqa_abc123")
	}
	if !exists(root, "pkg/cobyqa_abc123.py") || exists(root, "pkg/cobyqa.py") {
		t.Error("file pkg/cobyqa.py should have become pkg/cobyqa_abc123.py")
	}
	if got := readFile(t, root, "pkg/cobyqa_abc123.py"); got != "import cobyqa_abc123\n" {
		t.Errorf("content = %q", got)
	}
	if got := readFile(t, root, "cobyqa_abc123/__init__.py"); got != "from cobyqa_abc123.main import minimize\n" {
		t.Errorf("content = %q", got)
	}

	if report.FilesScanned != 3 {
		t.Errorf("FilesScanned = %d, want 3", report.FilesScanned)
	}
	if report.FilesRewritten != 3 {
		t.Errorf("FilesRewritten = %d, want 3", report.FilesRewritten)
	}
	if report.Replacements != 3 {
		t.Errorf("Replacements = %d, want 3", report.Replacements)
	}
	if report.EntriesRenamed != 2 {
		t.Errorf("EntriesRenamed = %d, want 2", report.EntriesRenamed)
	}
}

func TestRunNaiveSubstring(t *testing.T) {
	// Substrings of longer identifiers are altered too. That is the
	// documented matching semantic.
	root, _ := testutil.TestTree(t, map[string]string{
		"a.txt": "mycobyqa2 cobyqax\n",
	})

	if _, err := rename.Run(rename.Spec{Old: "cobyqa", New: "x", Root: root}, discard()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := readFile(t, root, "a.txt"); got != "myx2 xx\n" {
		t.Errorf("content = %q", got)
	}
}

func TestRunDeepestFirstOrdering(t *testing.T) {
	// Matching directories nested inside matching directories: renaming a
	// parent first would invalidate the child's stored path.
	root, _ := testutil.TestTree(t, map[string]string{
		"pkg/pkg/pkg.txt":      "pkg\n",
		"pkg/other/pkg_two.go": "package pkg\n",
	})

	report, err := rename.Run(rename.Spec{Old: "pkg", New: "lib", Root: root}, discard())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	for _, rel := range []string{"lib/lib/lib.txt", "lib/other/lib_two.go"} {
		if !exists(root, rel) {
			t.Errorf("missing %s", rel)
		}
	}
	if report.EntriesRenamed != 4 {
		t.Errorf("EntriesRenamed = %d, want 4", report.EntriesRenamed)
	}
}

func TestRunIdempotent(t *testing.T) {
	// Idempotence requires a new identifier that does not itself contain the
	// old one; cobyqa -> cobyqa_abc123 re-matches on a second run, exactly
	// like running the substitution through sed twice would.
	root, tr := testutil.TestTree(t, map[string]string{
		"cobyqa/main.py": "import cobyqa\n",
	})
	spec := rename.Spec{Old: "cobyqa", New: "newpkg", Root: root}

	if _, err := rename.Run(spec, discard()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	before := testutil.Digest(t, tr)

	report, err := rename.Run(spec, discard())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if report.FilesRewritten != 0 || report.Replacements != 0 || report.EntriesRenamed != 0 {
		t.Errorf("second run changed something: %+v", report)
	}
	if after := testutil.Digest(t, tr); !reflect.DeepEqual(before, after) {
		t.Error("tree changed on second run")
	}
}

func TestRunRoundTrip(t *testing.T) {
	root, tr := testutil.TestTree(t, map[string]string{
		"cobyqa/main.py":  "import cobyqa\nprint(cobyqa)\n",
		"docs/cobyqa.rst": "cobyqa docs\n",
		"unrelated.txt":   "nothing to see\n",
	})
	original := testutil.Digest(t, tr)

	if _, err := rename.Run(rename.Spec{Old: "cobyqa", New: "cobyqa_abc123", Root: root}, discard()); err != nil {
		t.Fatalf("forward run: %v", err)
	}
	if _, err := rename.Run(rename.Spec{Old: "cobyqa_abc123", New: "cobyqa", Root: root}, discard()); err != nil {
		t.Fatalf("reverse run: %v", err)
	}

	if restored := testutil.Digest(t, tr); !reflect.DeepEqual(original, restored) {
		t.Errorf("round trip did not restore the tree:\n before %v\n after  %v", original, restored)
	}
}

func TestRunInvalidSpec(t *testing.T) {
	root, tr := testutil.TestTree(t, map[string]string{
		"a.txt": "content\n",
	})
	before := testutil.Digest(t, tr)

	cases := []struct {
		name string
		spec rename.Spec
	}{
		{"empty old", rename.Spec{Old: "", New: "x", Root: root}},
		{"empty new", rename.Spec{Old: "x", New: "", Root: root}},
		{"old equals new", rename.Spec{Old: "x", New: "x", Root: root}},
		{"old has separator", rename.Spec{Old: "a/b", New: "x", Root: root}},
		{"new has separator", rename.Spec{Old: "x", New: "a/b", Root: root}},
		{"empty root", rename.Spec{Old: "a", New: "b", Root: ""}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := rename.Run(tc.spec, discard())
			if !errors.Is(err, apperr.ErrInvalidSpec) {
				t.Fatalf("err = %v, want ErrInvalidSpec", err)
			}
		})
	}

	if after := testutil.Digest(t, tr); !reflect.DeepEqual(before, after) {
		t.Error("invalid specs must not touch the filesystem")
	}
}

func TestRunConflictAbortsMidRun(t *testing.T) {
	// The target name already exists, so the path pass fails after the
	// content pass completed. Fail-fast leaves the mixed state in place.
	root, _ := testutil.TestTree(t, map[string]string{
		"alpha.txt": "alpha inside\n",
		"beta.txt":  "already here\n",
	})

	_, err := rename.Run(rename.Spec{Old: "alpha", New: "beta", Root: root}, discard())
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}

	// Content pass already ran, path pass did not complete.
	if got := readFile(t, root, "alpha.txt"); got != "beta inside\n" {
		t.Errorf("content = %q, want rewritten content", got)
	}
	if got := readFile(t, root, "beta.txt"); got != "already here\n" {
		t.Errorf("conflict target = %q, want untouched", got)
	}
}

func TestRunSkipBinary(t *testing.T) {
	root, _ := testutil.TestTree(t, map[string]string{
		"text.txt": "pkg here\n",
	})
	bin := append([]byte("pkg\x00"), []byte("binary pkg data")...)
	if err := os.WriteFile(filepath.Join(root, "blob.bin"), bin, 0o644); err != nil {
		t.Fatal(err)
	}

	report, err := rename.Run(rename.Spec{Old: "pkg", New: "lib", Root: root},
		discard(), rename.WithSkipBinary())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if report.FilesSkipped != 1 {
		t.Errorf("FilesSkipped = %d, want 1", report.FilesSkipped)
	}
	got, err := os.ReadFile(filepath.Join(root, "blob.bin"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(bin) {
		t.Error("binary file content should be untouched")
	}
	if readFile(t, root, "text.txt") != "lib here\n" {
		t.Error("text file should still be rewritten")
	}
}

func TestRunWithoutSkipBinaryRewritesEverything(t *testing.T) {
	// The historical behavior rewrites all files indiscriminately.
	root, _ := testutil.TestTree(t, map[string]string{})
	bin := []byte("pkg\x00pkg")
	if err := os.WriteFile(filepath.Join(root, "blob.bin"), bin, 0o644); err != nil {
		t.Fatal(err)
	}

	report, err := rename.Run(rename.Spec{Old: "pkg", New: "lib", Root: root}, discard())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Replacements != 2 {
		t.Errorf("Replacements = %d, want 2", report.Replacements)
	}
}

func TestRunSkipVCS(t *testing.T) {
	root, _ := testutil.TestTree(t, map[string]string{
		".git/config": "[remote] pkg\n",
		"pkg.txt":     "pkg\n",
	})

	report, err := rename.Run(rename.Spec{Old: "pkg", New: "lib", Root: root},
		discard(), rename.WithSkipVCS())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got := readFile(t, root, ".git/config"); got != "[remote] pkg\n" {
		t.Errorf(".git content = %q, want untouched", got)
	}
	if !exists(root, "lib.txt") {
		t.Error("pkg.txt outside .git should still be renamed")
	}
	if report.FilesScanned != 1 {
		t.Errorf("FilesScanned = %d, want 1", report.FilesScanned)
	}
}

func TestRunTouchFuncSeesEveryMutation(t *testing.T) {
	root, _ := testutil.TestTree(t, map[string]string{
		"pkg/pkg.txt": "pkg\n",
	})

	var touched []string
	_, err := rename.Run(rename.Spec{Old: "pkg", New: "lib", Root: root},
		discard(), rename.WithTouchFunc(func(rel string) {
			touched = append(touched, rel)
		}))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// pkg/pkg.txt appears twice: once for the content rewrite, once as the
	// rename source.
	allowed := map[string]bool{
		filepath.Join("pkg", "pkg.txt"): true,
		filepath.Join("pkg", "lib.txt"): true,
		"pkg":                           true,
		"lib":                           true,
	}
	covered := make(map[string]bool)
	for _, rel := range touched {
		if !allowed[rel] {
			t.Errorf("unexpected touch %q", rel)
		}
		covered[rel] = true
	}
	for rel := range allowed {
		if !covered[rel] {
			t.Errorf("never touched %q (got %v)", rel, touched)
		}
	}
}
