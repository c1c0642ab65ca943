// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/starford/raido/internal/guard"
	"github.com/starford/raido/internal/rename"
	"github.com/starford/raido/internal/revision"
	"github.com/starford/raido/internal/tree"
	"github.com/starford/raido/internal/verify"
)

func (a *application) init(opts []Option) error {
	for _, opt := range opts {
		opt(a)
	}
	if a.config == nil {
		return fmt.Errorf("config is required")
	}

	if a.logger == nil {
		// Logs go to stderr so the summary line on stdout stays parseable.
		a.logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: a.config.App.LogLevel,
		}))
	}
	slog.SetDefault(a.logger)
	return nil
}

// newIdentifier resolves the new identifier from the configured precedence:
// explicit new, then explicit suffix, then git-derived suffix.
func (a *application) newIdentifier() (string, error) {
	r := a.config.Rename
	switch {
	case r.New != "":
		return r.New, nil
	case r.Suffix != "":
		return r.Old + "_" + r.Suffix, nil
	case r.GitSuffix:
		hash, err := revision.Short(r.Root)
		if err != nil {
			return "", fmt.Errorf("derive git suffix: %w", err)
		}
		return r.Old + "_" + hash, nil
	default:
		return "", fmt.Errorf("no new identifier: set new, suffix or git_suffix")
	}
}

// Run executes one rename run with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}
	if err := app.init(opts); err != nil {
		return err
	}
	cfg := app.config
	logger := app.logger

	newID, err := app.newIdentifier()
	if err != nil {
		return err
	}

	spec := rename.Spec{
		Old:  cfg.Rename.Old,
		New:  newID,
		Root: cfg.Rename.Root,
	}

	logger.Info("Starting rename",
		slog.String("old", spec.Old),
		slog.String("new", spec.New),
		slog.String("root", spec.Root))

	var engineOpts []rename.Option
	if cfg.Rename.SkipVCS {
		engineOpts = append(engineOpts, rename.WithSkipVCS())
	}
	if cfg.Rename.SkipBinary {
		engineOpts = append(engineOpts, rename.WithSkipBinary())
	}
	if cfg.Rename.Guard {
		g, err := guard.Start(spec.Root, logger)
		if err != nil {
			return fmt.Errorf("start guard: %w", err)
		}
		defer g.Stop()
		engineOpts = append(engineOpts, rename.WithTouchFunc(g.Expect))
	}

	report, err := rename.Run(spec, logger, engineOpts...)
	if err != nil {
		logger.Error("Rename aborted", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Rename complete",
		slog.Int("files_scanned", report.FilesScanned),
		slog.Int("files_rewritten", report.FilesRewritten),
		slog.Int("files_skipped", report.FilesSkipped),
		slog.Int("replacements", report.Replacements),
		slog.Int("entries_renamed", report.EntriesRenamed),
		slog.Duration("duration", report.Duration))

	fmt.Println(report.Summary())
	return nil
}

// RunVerify scans the tree for residual occurrences of the old identifier and
// fails when any remain.
func RunVerify(ctx context.Context, opts ...Option) error {
	app := &application{}
	if err := app.init(opts); err != nil {
		return err
	}
	cfg := app.config
	logger := app.logger

	if cfg.Rename.Old == "" {
		return fmt.Errorf("old identifier is required")
	}

	var treeOpts []tree.Option
	if cfg.Rename.SkipVCS {
		treeOpts = append(treeOpts, tree.WithSkipDirs(".git", ".hg", ".svn"))
	}
	t, err := tree.New(cfg.Rename.Root, treeOpts...)
	if err != nil {
		return err
	}

	occurrences, err := verify.Scan(ctx, t, cfg.Rename.Old, runtime.NumCPU())
	if err != nil {
		return err
	}
	if len(occurrences) == 0 {
		fmt.Printf("clean: no occurrences of %q under %s\n", cfg.Rename.Old, t.Root())
		return nil
	}

	for _, occ := range occurrences {
		logger.Warn("Residual occurrence",
			slog.String("path", occ.Path),
			slog.Int("in_content", occ.InContent),
			slog.Bool("in_base_name", occ.InBaseName))
	}
	return fmt.Errorf("%d entries still carry %q", len(occurrences), cfg.Rename.Old)
}
