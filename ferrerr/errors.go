// Package ferrerr defines the error taxonomy shared across the engine:
// parse errors, unsupported media types, broken invariants, I/O faults and
// write-lock conflicts. Callers use errors.Is against the sentinels below.
package ferrerr

import "errors"

var (
	// ErrParse marks a malformed query string.
	ErrParse = errors.New("parse error")

	// ErrNotSupported marks an unknown media type or a missing plugin.
	ErrNotSupported = errors.New("not supported")

	// ErrDataMisaligned marks a broken on-disk invariant: a duplicate in a
	// posting list, a validator miss, or an invalid postings offset. Fatal.
	ErrDataMisaligned = errors.New("data misaligned")

	// ErrIO marks an underlying filesystem fault.
	ErrIO = errors.New("io error")

	// ErrConflictingWrite marks a write session that could not acquire the
	// collection's exclusive lock file.
	ErrConflictingWrite = errors.New("conflicting write")
)

// Parse wraps err as a ParseError with context.
func Parse(context string, err error) error {
	return &wrapped{context: context, kind: ErrParse, cause: err}
}

// NotSupported returns a NotSupported error with context.
func NotSupported(context string) error {
	return &wrapped{context: context, kind: ErrNotSupported}
}

// DataMisaligned wraps err as a DataMisaligned error with context.
func DataMisaligned(context string, err error) error {
	return &wrapped{context: context, kind: ErrDataMisaligned, cause: err}
}

// IO wraps err as an IO error with context.
func IO(context string, err error) error {
	return &wrapped{context: context, kind: ErrIO, cause: err}
}

// ConflictingWrite wraps err as a ConflictingWrite error with context.
func ConflictingWrite(context string, err error) error {
	return &wrapped{context: context, kind: ErrConflictingWrite, cause: err}
}

type wrapped struct {
	context string
	kind    error
	cause   error
}

func (w *wrapped) Error() string {
	if w.cause == nil {
		return w.context
	}
	return w.context + ": " + w.cause.Error()
}

func (w *wrapped) Unwrap() error {
	if w.cause == nil {
		return w.kind
	}
	return w.kind
}

func (w *wrapped) Is(target error) bool {
	return target == w.kind
}
