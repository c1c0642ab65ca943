package rename

import (
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/raido/internal/apperr"
)

// Spec names one renaming run: every literal occurrence of Old under Root
// becomes New, in file contents and in entry base names.
type Spec struct {
	Old  string
	New  string
	Root string
}

// Validate rejects a spec before the filesystem is touched. An empty Old
// would match everywhere and corrupt every file; Old == New would loop the
// path pass forever on naive substitution.
func (s Spec) Validate() error {
	err := validation.ValidateStruct(&s,
		validation.Field(&s.Old, validation.Required, validation.By(identifier)),
		validation.Field(&s.New, validation.Required, validation.By(identifier)),
		validation.Field(&s.Root, validation.Required),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrInvalidSpec, err)
	}
	if s.Old == s.New {
		return fmt.Errorf("%w: old and new identifiers are equal", apperr.ErrInvalidSpec)
	}
	return nil
}

// identifier is the ozzo rule for a renameable token: substituting it into a
// base name must never change path structure or truncate the name.
func identifier(value any) error {
	s, _ := value.(string)
	if strings.ContainsAny(s, `/\`) {
		return errors.New("must not contain a path separator")
	}
	if strings.ContainsRune(s, 0) {
		return errors.New("must not contain a NUL byte")
	}
	return nil
}
