package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/raido/internal"
	pkgconfig "github.com/starford/raido/pkg/config"
)

// commonFlags returns fresh instances of the flags shared by the rename and
// verify actions.
func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "old",
			Aliases: []string{"o"},
			Usage:   "Identifier to replace",
		},
		&cli.StringFlag{
			Name:    "root",
			Aliases: []string{"r"},
			Usage:   "Directory tree to operate on",
			Value:   ".",
		},
		&cli.BoolFlag{
			Name:  "skip-vcs",
			Usage: "Skip version-control metadata directories (.git, .hg, .svn)",
		},
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to config file",
			Sources: cli.EnvVars("APP_CONFIG_FILE"),
		},
	}
}

// buildConfig assembles the effective configuration: defaults, then the
// optional config file, then explicit CLI flags.
func buildConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()

	if path := cmd.String("config"); path != "" {
		if err := pkgconfig.LoadIfPresent(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if cmd.IsSet("old") {
		cfg.Rename.Old = cmd.String("old")
	}
	if cmd.IsSet("new") {
		cfg.Rename.New = cmd.String("new")
	}
	if cmd.IsSet("suffix") {
		cfg.Rename.Suffix = cmd.String("suffix")
	}
	if cmd.IsSet("git-suffix") {
		cfg.Rename.GitSuffix = cmd.Bool("git-suffix")
	}
	if cmd.IsSet("root") {
		cfg.Rename.Root = cmd.String("root")
	}
	if cmd.IsSet("skip-vcs") {
		cfg.Rename.SkipVCS = cmd.Bool("skip-vcs")
	}
	if cmd.IsSet("skip-binary") {
		cfg.Rename.SkipBinary = cmd.Bool("skip-binary")
	}
	if cmd.IsSet("guard") {
		cfg.Rename.Guard = cmd.Bool("guard")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runRename(ctx context.Context, cmd *cli.Command) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	return internal.Run(ctx, internal.WithConfig(cfg))
}

func runVerify(ctx context.Context, cmd *cli.Command) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunVerify(ctx, internal.WithConfig(cfg))
}

func main() {
	cmd := &cli.Command{
		Name:   "raido",
		Usage:  "Rename an identifier across file contents and paths, suffixing it with a revision hash",
		Action: runRename,
		Flags: append(commonFlags(),
			&cli.StringFlag{
				Name:    "new",
				Aliases: []string{"n"},
				Usage:   "Replacement identifier (mutually exclusive with --suffix and --git-suffix)",
			},
			&cli.StringFlag{
				Name:    "suffix",
				Aliases: []string{"s"},
				Usage:   "Use old + \"_\" + suffix as the replacement identifier",
			},
			&cli.BoolFlag{
				Name:  "git-suffix",
				Usage: "Derive the suffix from the short commit hash of the repository containing root",
			},
			&cli.BoolFlag{
				Name:  "skip-binary",
				Usage: "Skip binary-looking files during the content pass",
			},
			&cli.BoolFlag{
				Name:  "guard",
				Usage: "Warn about external filesystem activity during the run",
			},
		),
		Commands: []*cli.Command{
			{
				Name:   "verify",
				Usage:  "Report residual occurrences of the old identifier under root",
				Flags:  commonFlags(),
				Action: runVerify,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
