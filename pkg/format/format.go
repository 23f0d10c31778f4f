// Package format defines the pluggable import/export contract shared by
// every Story front-end (spec §4.8): a Format produces the same Story
// shape the emitter does, so the runtime can never distinguish a
// compiled-from-Script story from an imported one.
package format

import "github.com/weave-lang/weave/pkg/runtime"

// Format is implemented by each file-format front-end (an Ink-like JSON
// export is the one shipped with this module; a host may register
// additional formats of its own).
type Format interface {
	// Name is a short, stable identifier ("ink-json").
	Name() string
	// Extensions lists the file extensions this format claims,
	// lowercase, leading dot included (".json").
	Extensions() []string
	// MimeType is the format's canonical MIME type.
	MimeType() string

	// CanImport reports whether data looks like this format's input
	// shape, without fully validating it. Import is still expected to
	// fail with a validation error on malformed content CanImport
	// accepted optimistically.
	CanImport(data []byte) bool
	// Import parses data into a Story. Malformed input fails with
	// werrors.ErrValidation.
	Import(data []byte) (*runtime.Story, error)

	// CanExport reports whether this format supports exporting a Story
	// at all (a format may be import-only).
	CanExport() bool
	// Export serializes story into this format's text representation.
	Export(story *runtime.Story) (string, error)
}

// Registry looks up a Format by name or file extension. It is a plain
// slice wrapper, not a capability-gated component: format registration
// happens at process wiring time, before any plugin or story is loaded.
type Registry struct {
	byName []Format
}

// NewRegistry returns a Registry seeded with formats, in the order they
// should be tried by ByExtension when more than one claims the same
// extension.
func NewRegistry(formats ...Format) *Registry {
	return &Registry{byName: append([]Format(nil), formats...)}
}

// ByName returns the format registered under name, or nil if none matches.
func (r *Registry) ByName(name string) Format {
	for _, f := range r.byName {
		if f.Name() == name {
			return f
		}
	}
	return nil
}

// ByExtension returns the first registered format claiming ext
// (case-sensitive, leading dot included), or nil if none matches.
func (r *Registry) ByExtension(ext string) Format {
	for _, f := range r.byName {
		for _, e := range f.Extensions() {
			if e == ext {
				return f
			}
		}
	}
	return nil
}
