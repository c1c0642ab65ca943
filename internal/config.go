package internal

import (
	"fmt"
	"log/slog"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Rename RenameConfig      `yaml:"rename"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	return c.Rename.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error { return nil }

// RenameConfig holds the parameters of a rename run.
//
// The new identifier is resolved in order of precedence:
//   - New, when set, is used verbatim.
//   - Suffix, when set, yields Old + "_" + Suffix.
//   - GitSuffix derives the suffix from the short commit hash of the
//     repository containing Root.
type RenameConfig struct {
	Old        string `yaml:"old"`
	New        string `yaml:"new"`
	Suffix     string `yaml:"suffix"`
	GitSuffix  bool   `yaml:"git_suffix"`
	Root       string `yaml:"root"`
	SkipVCS    bool   `yaml:"skip_vcs"`
	SkipBinary bool   `yaml:"skip_binary"`
	Guard      bool   `yaml:"guard"`
}

// Validate checks internal consistency. Required-ness of the identifiers is
// deliberately not enforced here: a config file may carry only part of the
// parameters, with the rest supplied as CLI flags, and the assembled spec is
// validated again before the filesystem is touched.
func (c *RenameConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Old, validation.By(noPathSeparator)),
		validation.Field(&c.New, validation.By(noPathSeparator)),
		validation.Field(&c.Suffix, validation.By(noPathSeparator)),
	); err != nil {
		return err
	}
	if c.New != "" && c.Suffix != "" {
		return fmt.Errorf("rename: new and suffix are mutually exclusive")
	}
	if c.New != "" && c.GitSuffix {
		return fmt.Errorf("rename: new and git_suffix are mutually exclusive")
	}
	return nil
}

func noPathSeparator(value any) error {
	s, _ := value.(string)
	if strings.ContainsAny(s, `/\`) {
		return fmt.Errorf("must not contain a path separator")
	}
	return nil
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
		},
		Rename: RenameConfig{
			Root: ".",
		},
	}
}
