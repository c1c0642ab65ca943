package rename

import (
	"fmt"
	"time"
)

// Report summarizes one rename run.
type Report struct {
	FilesScanned   int
	FilesRewritten int
	FilesSkipped   int // binary files skipped under WithSkipBinary
	Replacements   int // total content occurrences replaced
	EntriesRenamed int // files and directories renamed in the path pass
	Duration       time.Duration
}

// Summary returns a one-line human-readable summary.
func (r *Report) Summary() string {
	return fmt.Sprintf("rewrote %d of %d files (%d replacements), renamed %d entries in %s",
		r.FilesRewritten, r.FilesScanned, r.Replacements, r.EntriesRenamed,
		r.Duration.Round(time.Millisecond))
}
