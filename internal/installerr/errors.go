// Package installerr defines the error taxonomy shared by every stage of the
// install pipeline.
//
// Each stage wraps its failures in an *Error carrying a Kind. Callers branch
// on the kind with errors.Is against the package sentinels, or with KindOf:
//
//	if errors.Is(err, installerr.ErrNotFound) {
//	    // unknown tool, or no bottle for this platform
//	}
package installerr

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure.
type Kind int

const (
	// KindUnknown is reported for errors that did not come from the pipeline.
	KindUnknown Kind = iota
	// KindParse means the tool specifier text was rejected.
	KindParse
	// KindNotFound means no formula matched, or no bottle fits the platform.
	KindNotFound
	// KindNetwork means an HTTP request failed or returned a non-success status.
	KindNetwork
	// KindIntegrity means downloaded bytes did not match the expected digest.
	KindIntegrity
	// KindFilesystem means a create, extract, rename, copy or chmod failed.
	KindFilesystem
)

// String returns the taxonomy name of the kind.
func (k Kind) String() string {
	switch k {
	case KindParse:
		return "ParseError"
	case KindNotFound:
		return "NotFoundError"
	case KindNetwork:
		return "NetworkError"
	case KindIntegrity:
		return "IntegrityError"
	case KindFilesystem:
		return "FilesystemError"
	default:
		return "Error"
	}
}

// ExitCode maps a kind to the process exit status used by the CLI.
func (k Kind) ExitCode() int {
	switch k {
	case KindParse:
		return 2
	case KindNotFound:
		return 3
	case KindNetwork:
		return 4
	case KindIntegrity:
		return 5
	case KindFilesystem:
		return 6
	default:
		return 1
	}
}

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrParse      = &Error{Kind: KindParse}
	ErrNotFound   = &Error{Kind: KindNotFound}
	ErrNetwork    = &Error{Kind: KindNetwork}
	ErrIntegrity  = &Error{Kind: KindIntegrity}
	ErrFilesystem = &Error{Kind: KindFilesystem}
)

// Error is a classified pipeline failure.
type Error struct {
	Kind Kind
	Op   string // stage operation, e.g. "fetch token"
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Err != nil:
		return e.Err.Error()
	case e.Op != "":
		return e.Op
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	// Only sentinels (no op, no cause) match by kind.
	return t.Op == "" && t.Err == nil && t.Kind == e.Kind
}

// New wraps err with a kind and operation name.
func New(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf builds a classified error from a format string. %w is honored.
func Errorf(kind Kind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of the outermost *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
