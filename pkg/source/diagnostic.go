package source

import (
	"fmt"

	"github.com/weave-lang/weave/pkg/werrors"
)

// Diagnostic is a single recoverable compiler error or warning. It wraps
// the matching werrors sentinel so callers can still use errors.Is against
// the closed error-kind taxonomy.
type Diagnostic struct {
	Kind    werrors.Kind
	Code    string // short machine-readable code, e.g. "inconsistent_indent"
	Message string
	Span    Span
}

func (d *Diagnostic) Error() string {
	return fmt.Sprintf("%s: %s [%s]: %s", d.Span, d.Kind, d.Code, d.Message)
}

func (d *Diagnostic) Unwrap() error {
	switch d.Kind {
	case werrors.KindNotFound:
		return werrors.ErrNotFound
	case werrors.KindDuplicate:
		return werrors.ErrDuplicate
	case werrors.KindTypeError:
		return werrors.ErrType
	case werrors.KindDomainError:
		return werrors.ErrDomain
	case werrors.KindInvalidState:
		return werrors.ErrInvalidState
	case werrors.KindPermissionDenied:
		return werrors.ErrPermissionDenied
	case werrors.KindDependencyCycle:
		return werrors.ErrDependencyCycle
	case werrors.KindLoadError:
		return werrors.ErrLoad
	case werrors.KindValidation:
		return werrors.ErrValidation
	default:
		return werrors.ErrParse
	}
}

func New(kind werrors.Kind, code string, span Span, format string, args ...any) *Diagnostic {
	return &Diagnostic{
		Kind:    kind,
		Code:    code,
		Span:    span,
		Message: fmt.Sprintf(format, args...),
	}
}

// Bag accumulates diagnostics during a recoverable pass (lexing, parsing).
// It is not safe for concurrent use; each compilation owns its own Bag.
type Bag struct {
	diagnostics []*Diagnostic
}

func (b *Bag) Add(d *Diagnostic) {
	b.diagnostics = append(b.diagnostics, d)
}

func (b *Bag) Addf(kind werrors.Kind, code string, span Span, format string, args ...any) {
	b.Add(New(kind, code, span, format, args...))
}

func (b *Bag) All() []*Diagnostic {
	return b.diagnostics
}

func (b *Bag) HasErrors() bool {
	return len(b.diagnostics) > 0
}

// First returns the first diagnostic with the given kind, or nil.
func (b *Bag) First(kind werrors.Kind) *Diagnostic {
	for _, d := range b.diagnostics {
		if d.Kind == kind {
			return d
		}
	}
	return nil
}
