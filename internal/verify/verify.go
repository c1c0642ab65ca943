// Package verify scans a tree for residual occurrences of an identifier in
// file contents and entry base names. It is the read-only counterpart of the
// rename engine: after a successful run, a scan for the old identifier must
// come back empty.
package verify

import (
	"bytes"
	"context"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/starford/raido/internal/tree"
)

// Occurrence reports one entry still carrying the identifier.
type Occurrence struct {
	Path       string
	InContent  int  // number of content occurrences, 0 for directories
	InBaseName bool // base name contains the identifier
}

// Scan reads every regular file under the tree and reports all occurrences of
// old in content or base names, sorted by path. Unlike the rename passes,
// scanning is read-only, so file reads run concurrently on up to workers
// goroutines.
func Scan(ctx context.Context, t *tree.Tree, old string, workers int) ([]Occurrence, error) {
	if workers < 1 {
		workers = 1
	}

	entries, err := t.Entries()
	if err != nil {
		return nil, err
	}

	oldB := []byte(old)
	byPath := make(map[string]*Occurrence)
	var mu sync.Mutex

	record := func(path string) *Occurrence {
		occ, ok := byPath[path]
		if !ok {
			occ = &Occurrence{Path: path}
			byPath[path] = occ
		}
		return occ
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, ent := range entries {
		if ent.IsDir {
			continue
		}
		ent := ent
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := t.Read(ent.Path)
			if err != nil {
				return err
			}
			if n := bytes.Count(data, oldB); n > 0 {
				mu.Lock()
				record(ent.Path).InContent = n
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, ent := range entries {
		if strings.Contains(filepath.Base(ent.Path), old) {
			record(ent.Path).InBaseName = true
		}
	}

	out := make([]Occurrence, 0, len(byPath))
	for _, occ := range byPath {
		out = append(out, *occ)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}
