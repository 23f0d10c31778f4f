package ast

import "github.com/weave-lang/weave/pkg/source"

// Script is the unique AST root, produced from one source file. An
// include directive is kept as an Include node recording its path and
// alias; the parser does not read or parse the included file.
type Script struct {
	base
	// Declarations holds every top-level node (Metadata, Include, Passage)
	// in source order.
	Declarations []Node
}

func NewScript(span source.Span, decls []Node) *Script {
	return &Script{base: base{span}, Declarations: decls}
}

func (*Script) Kind() NodeKind { return KindScript }

// Metadata returns the top-level @@ directives in source order.
func (s *Script) Metadata() []*Metadata {
	var out []*Metadata
	for _, d := range s.Declarations {
		if m, ok := d.(*Metadata); ok {
			out = append(out, m)
		}
	}
	return out
}

// Includes returns the top-level >> directives in source order.
func (s *Script) Includes() []*Include {
	var out []*Include
	for _, d := range s.Declarations {
		if i, ok := d.(*Include); ok {
			out = append(out, i)
		}
	}
	return out
}

// Passages returns the top-level :: passages in source order.
func (s *Script) Passages() []*Passage {
	var out []*Passage
	for _, d := range s.Declarations {
		if p, ok := d.(*Passage); ok {
			out = append(out, p)
		}
	}
	return out
}

// Metadata is a story-level `@@ key: value` directive.
type Metadata struct {
	base
	Key   string
	Value Node // Literal, usually
}

func NewMetadata(span source.Span, key string, value Node) *Metadata {
	return &Metadata{base: base{span}, Key: key, Value: value}
}

func (*Metadata) Kind() NodeKind { return KindMetadata }

// Include is a `>> "path" (as alias)?` directive.
type Include struct {
	base
	Path  string
	Alias string // empty if no "as IDENT" clause
}

func NewInclude(span source.Span, path, alias string) *Include {
	return &Include{base: base{span}, Path: path, Alias: alias}
}

func (*Include) Kind() NodeKind { return KindInclude }

// Tag is a single `[name]` annotation attached to a passage or choice.
type Tag struct {
	base
	Name string
}

func NewTag(span source.Span, name string) *Tag {
	return &Tag{base: base{span}, Name: name}
}

func (*Tag) Kind() NodeKind { return KindTag }
