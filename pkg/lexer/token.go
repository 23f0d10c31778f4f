// Package lexer turns Script source text into an indentation-aware token
// stream (spec §4.3, component C).
package lexer

import "github.com/weave-lang/weave/pkg/source"

// Kind is the closed set of token kinds the lexer produces.
type Kind string

const (
	EOF     Kind = "EOF"
	Newline Kind = "Newline"
	Indent  Kind = "Indent"
	Dedent  Kind = "Dedent"

	PassageDecl  Kind = "PassageDecl"  // ::
	MetadataDecl Kind = "MetadataDecl" // @@
	IncludeDecl  Kind = "IncludeDecl"  // >>

	Ident   Kind = "Ident"
	String  Kind = "String"
	Number  Kind = "Number"
	Bool    Kind = "Bool"
	Keyword Kind = "Keyword"

	Colon    Kind = "Colon"
	Comma    Kind = "Comma"
	Pipe     Kind = "Pipe"
	LParen   Kind = "LParen"
	RParen   Kind = "RParen"
	LBracket Kind = "LBracket"
	RBracket Kind = "RBracket"
	LBrace   Kind = "LBrace"
	RBrace   Kind = "RBrace"

	Divert Kind = "Divert" // ->
	Tunnel Kind = "Tunnel" // ->->
	Thread Kind = "Thread" // <-
	Tilde  Kind = "Tilde"  // ~

	Plus    Kind = "Plus"
	Minus   Kind = "Minus"
	Star    Kind = "Star"
	Slash   Kind = "Slash"
	Percent Kind = "Percent"

	Assign       Kind = "Assign"       // =
	PlusAssign   Kind = "PlusAssign"   // +=
	MinusAssign  Kind = "MinusAssign"  // -=
	StarAssign   Kind = "StarAssign"   // *=
	SlashAssign  Kind = "SlashAssign"  // /=
	Eq           Kind = "Eq"           // ==
	NotEq        Kind = "NotEq"        // !=
	Lt           Kind = "Lt"
	LtEq         Kind = "LtEq"
	Gt           Kind = "Gt"
	GtEq         Kind = "GtEq"
)

// Keywords is the closed keyword set (spec §4.3). true/false lex as Bool,
// not Keyword.
var Keywords = map[string]bool{
	"as": true, "and": true, "or": true, "not": true,
	"if": true, "elif": true, "else": true, "end": true,
	"for": true, "do": true, "in": true, "nil": true,
}

// Token is one lexeme with its source span.
type Token struct {
	Kind    Kind
	Lexeme  string
	Literal any // string, float64, or bool; nil otherwise
	Span    source.Span
	// StartOfLine is true when this is the first token of its logical
	// line (immediately preceded only by Indent/Dedent/Newline tokens).
	// The parser uses it to disambiguate `*`/`+` choice markers from the
	// arithmetic operators of the same lexeme (spec §4.4 tie-breaks).
	StartOfLine bool
}

func (t Token) String() string {
	if t.Lexeme != "" {
		return string(t.Kind) + "(" + t.Lexeme + ")"
	}
	return string(t.Kind)
}
