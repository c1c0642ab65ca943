// Package rename implements the two-pass identifier rename over a file tree:
// a content pass that rewrites every literal occurrence of the old identifier
// in file contents, then a path pass that renames every file and directory
// whose base name contains it.
//
// Matching is plain substring substitution. Substrings of unrelated longer
// identifiers that happen to contain the old identifier are altered too; this
// is the intended semantic, not an oversight.
package rename

import (
	"bytes"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/starford/raido/internal/tree"
)

// binarySniffLen is how many leading bytes are inspected for a NUL byte when
// binary skipping is enabled.
const binarySniffLen = 8192

// vcsDirs are the version-control metadata directories excluded under
// WithSkipVCS.
var vcsDirs = []string{".git", ".hg", ".svn"}

// Option configures a rename run.
type Option func(*runner)

// WithSkipVCS excludes version-control metadata directories from both passes.
// The default matches the historical behavior: nothing is excluded and every
// file under the root is fair game, the tool's own configuration included.
func WithSkipVCS() Option {
	return func(r *runner) { r.skipVCS = true }
}

// WithSkipBinary skips files that look binary (NUL byte in the leading bytes)
// during the content pass. Path-pass renaming still applies to them.
func WithSkipBinary() Option {
	return func(r *runner) { r.skipBinary = true }
}

// WithTouchFunc registers a callback invoked with each relative path the
// engine is about to mutate. The exclusivity guard uses it to tell the
// engine's own filesystem events apart from external ones.
func WithTouchFunc(fn func(rel string)) Option {
	return func(r *runner) { r.touch = fn }
}

type runner struct {
	t          *tree.Tree
	spec       Spec
	logger     *slog.Logger
	skipVCS    bool
	skipBinary bool
	touch      func(rel string)
	report     *Report
}

// Run validates spec and executes the content pass followed by the path pass.
// The passes are strictly ordered and sequential; the first error aborts the
// run, leaving any already-applied rewrites and renames in place.
func Run(spec Spec, logger *slog.Logger, opts ...Option) (*Report, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	r := &runner{spec: spec, logger: logger, report: &Report{}}
	for _, opt := range opts {
		opt(r)
	}

	var treeOpts []tree.Option
	if r.skipVCS {
		treeOpts = append(treeOpts, tree.WithSkipDirs(vcsDirs...))
	}
	t, err := tree.New(spec.Root, treeOpts...)
	if err != nil {
		return nil, err
	}
	r.t = t

	started := time.Now()
	if err := r.contentPass(); err != nil {
		return nil, err
	}
	if err := r.pathPass(); err != nil {
		return nil, err
	}
	r.report.Duration = time.Since(started)
	return r.report, nil
}

// contentPass rewrites every regular file containing the old identifier.
// Files are written back only when at least one replacement occurred.
func (r *runner) contentPass() error {
	files, err := r.t.Files()
	if err != nil {
		return err
	}

	oldB := []byte(r.spec.Old)
	newB := []byte(r.spec.New)

	for _, rel := range files {
		data, err := r.t.Read(rel)
		if err != nil {
			return err
		}
		r.report.FilesScanned++

		if r.skipBinary && isBinary(data) {
			r.report.FilesSkipped++
			r.logger.Debug("content: skipped binary", slog.String("path", rel))
			continue
		}

		n := bytes.Count(data, oldB)
		if n == 0 {
			continue
		}

		if r.touch != nil {
			r.touch(rel)
		}
		if err := r.t.Write(rel, bytes.ReplaceAll(data, oldB, newB)); err != nil {
			return err
		}
		r.report.FilesRewritten++
		r.report.Replacements += n
		r.logger.Debug("content: rewrote",
			slog.String("path", rel), slog.Int("occurrences", n))
	}
	return nil
}

// pathPass renames every entry whose base name contains the old identifier.
// Entries are processed deepest-first so renaming a parent directory never
// invalidates the stored path of a child still pending rename.
func (r *runner) pathPass() error {
	entries, err := r.t.Entries()
	if err != nil {
		return err
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return depth(entries[i].Path) > depth(entries[j].Path)
	})

	for _, ent := range entries {
		base := filepath.Base(ent.Path)
		if !strings.Contains(base, r.spec.Old) {
			continue
		}
		newBase := strings.ReplaceAll(base, r.spec.Old, r.spec.New)
		newRel := filepath.Join(filepath.Dir(ent.Path), newBase)

		if r.touch != nil {
			r.touch(ent.Path)
			r.touch(newRel)
		}
		if err := r.t.Move(ent.Path, newRel); err != nil {
			return err
		}
		r.report.EntriesRenamed++
		r.logger.Debug("path: renamed",
			slog.String("from", ent.Path), slog.String("to", newRel))
	}
	return nil
}

func depth(path string) int {
	return strings.Count(path, string(filepath.Separator))
}

func isBinary(data []byte) bool {
	if len(data) > binarySniffLen {
		data = data[:binarySniffLen]
	}
	return bytes.IndexByte(data, 0) >= 0
}
