package parser

import (
	"github.com/weave-lang/weave/pkg/lexer"
	"github.com/weave-lang/weave/pkg/source"
	"github.com/weave-lang/weave/pkg/werrors"
)

func (p *Parser) cur() lexer.Token  { return p.tokens.Peek() }
func (p *Parser) peek(n int) lexer.Token { return p.tokens.Lookahead(n) }
func (p *Parser) advance() lexer.Token   { return p.tokens.Advance() }
func (p *Parser) atEOF() bool            { return p.tokens.AtEOF() }

func (p *Parser) curIsKeyword(word string) bool {
	return p.cur().Kind == lexer.Keyword && p.cur().Lexeme == word
}

// skipNewlines consumes any run of blank Newline tokens between
// statements or declarations; it never consumes Indent/Dedent.
func (p *Parser) skipNewlines() {
	for p.cur().Kind == lexer.Newline {
		p.advance()
	}
}

// expectLineEnd consumes the Newline that ends a logical line. EOF and
// Dedent are also accepted in its place, since the lexer does not
// synthesize a trailing Newline before EOF or before a Dedent run at the
// very end of input.
func (p *Parser) expectLineEnd() {
	switch p.cur().Kind {
	case lexer.Newline:
		p.advance()
	case lexer.Dedent, lexer.EOF:
		// nothing to consume; caller's enclosing loop observes the
		// terminator directly.
	default:
		p.errorf("expected_newline", "expected end of line, found %s", p.cur())
	}
}

func (p *Parser) expect(kind lexer.Kind, msg string) lexer.Token {
	if p.cur().Kind == kind {
		return p.advance()
	}
	p.errorf("unexpected_token", "%s (found %s)", msg, p.cur())
	return p.cur()
}

func (p *Parser) expectIdentLexeme(what string) string {
	if p.cur().Kind != lexer.Ident {
		p.errorf("expected_identifier", "expected %s, found %s", what, p.cur())
		return ""
	}
	tok := p.advance()
	return tok.Lexeme
}

func (p *Parser) expectStringLexeme(what string) string {
	if p.cur().Kind != lexer.String {
		p.errorf("expected_string", "expected %s, found %s", what, p.cur())
		return ""
	}
	tok := p.advance()
	return tok.Literal.(string)
}

func (p *Parser) errorf(code, format string, args ...any) {
	p.errorAtf(werrors.KindParseError, p.cur().Span, code, format, args...)
}

func (p *Parser) errorAtf(kind werrors.Kind, span source.Span, code, format string, args ...any) {
	p.diags.Addf(kind, code, span, format, args...)
}
