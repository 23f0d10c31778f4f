// Package werrors defines the engine's closed error-kind taxonomy.
//
// Every fallible operation in the engine returns one of the sentinel
// errors below (optionally wrapped in a Diagnostic for span-carrying
// failures). Callers match kinds with errors.Is, never by inspecting
// error strings.
package werrors

import "errors"

// Kind identifies which of the closed set of error categories a failure
// belongs to.
type Kind string

const (
	KindValidation       Kind = "validation"
	KindNotFound         Kind = "not_found"
	KindDuplicate        Kind = "duplicate"
	KindParseError       Kind = "parse_error"
	KindTypeError        Kind = "type_error"
	KindDomainError      Kind = "domain_error"
	KindInvalidState     Kind = "invalid_state"
	KindPermissionDenied Kind = "permission_denied"
	KindDependencyCycle  Kind = "dependency_cycle"
	KindLoadError        Kind = "load_error"
)

// Sentinel errors, one per Kind. Wrap these with fmt.Errorf("...: %w", ...)
// or a *Diagnostic to add context; never construct a new unwrapped error
// for a case this taxonomy already covers.
var (
	ErrValidation       = errors.New(string(KindValidation))
	ErrNotFound         = errors.New(string(KindNotFound))
	ErrDuplicate        = errors.New(string(KindDuplicate))
	ErrParse            = errors.New(string(KindParseError))
	ErrType             = errors.New(string(KindTypeError))
	ErrDomain           = errors.New(string(KindDomainError))
	ErrInvalidState     = errors.New(string(KindInvalidState))
	ErrPermissionDenied = errors.New(string(KindPermissionDenied))
	ErrDependencyCycle  = errors.New(string(KindDependencyCycle))
	ErrLoad             = errors.New(string(KindLoadError))
)

func sentinelFor(k Kind) error {
	switch k {
	case KindValidation:
		return ErrValidation
	case KindNotFound:
		return ErrNotFound
	case KindDuplicate:
		return ErrDuplicate
	case KindParseError:
		return ErrParse
	case KindTypeError:
		return ErrType
	case KindDomainError:
		return ErrDomain
	case KindInvalidState:
		return ErrInvalidState
	case KindPermissionDenied:
		return ErrPermissionDenied
	case KindDependencyCycle:
		return ErrDependencyCycle
	case KindLoadError:
		return ErrLoad
	default:
		return errors.New(string(k))
	}
}

// Is reports whether err carries the given Kind.
func Is(err error, k Kind) bool {
	return errors.Is(err, sentinelFor(k))
}
