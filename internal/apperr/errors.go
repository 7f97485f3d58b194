// Package apperr holds the sentinel errors shared across bootplan packages.
package apperr

import "errors"

var (
	ErrNotFound = errors.New("not found")
	ErrNoPlan   = errors.New("no plan compiled yet")

	ErrPathNotFound         = errors.New("path not found")
	ErrInvalidNormalization = errors.New("invalid normalization format")
	ErrCyclicInheritance    = errors.New("cyclic model inheritance")
	ErrUnknownModel         = errors.New("unknown model reference")
	ErrInvalidDefinition    = errors.New("invalid definition")
)

// Stable error codes reported by the API and MCP surfaces.
const (
	CodePathNotFound         = "PATH_NOT_FOUND"
	CodeInvalidNormalization = "INVALID_NORMALIZATION_FORMAT"
	CodeCyclicInheritance    = "CYCLIC_INHERITANCE"
	CodeUnknownModel         = "UNKNOWN_MODEL"
	CodeInvalidDefinition    = "INVALID_DEFINITION"
	CodeInternal             = "INTERNAL"
)

// Code maps err to its stable code. Unknown errors map to CodeInternal.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrPathNotFound):
		return CodePathNotFound
	case errors.Is(err, ErrInvalidNormalization):
		return CodeInvalidNormalization
	case errors.Is(err, ErrCyclicInheritance):
		return CodeCyclicInheritance
	case errors.Is(err, ErrUnknownModel):
		return CodeUnknownModel
	case errors.Is(err, ErrInvalidDefinition):
		return CodeInvalidDefinition
	default:
		return CodeInternal
	}
}

// IsCompileError reports whether err is one of the fatal compile conditions
// caused by the application layout rather than by the process itself.
func IsCompileError(err error) bool {
	return errors.Is(err, ErrPathNotFound) ||
		errors.Is(err, ErrInvalidNormalization) ||
		errors.Is(err, ErrCyclicInheritance) ||
		errors.Is(err, ErrInvalidDefinition)
}
