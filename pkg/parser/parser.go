// Package parser builds an AST Script from a token stream (spec §4.4,
// component D). It recovers from malformed input by synchronizing to the
// next statement boundary rather than aborting, so a single bad line
// never hides diagnostics for the rest of the file.
package parser

import (
	"github.com/weave-lang/weave/pkg/ast"
	"github.com/weave-lang/weave/pkg/lexer"
	"github.com/weave-lang/weave/pkg/source"
	"github.com/weave-lang/weave/pkg/werrors"
)

// Parser consumes a *lexer.TokenStream and produces an *ast.Script.
type Parser struct {
	file   string
	tokens *lexer.TokenStream
	diags  *source.Bag
}

// New creates a parser over an already-lexed token stream. file is used
// only for diagnostics that need a span with no better source (none, in
// practice, since every token already carries one).
func New(file string, tokens *lexer.TokenStream) *Parser {
	return &Parser{file: file, tokens: tokens, diags: &source.Bag{}}
}

// Parse runs the full script grammar and returns the AST plus whatever
// diagnostics were recorded. The AST is always non-nil and usable even
// when diagnostics are present.
func (p *Parser) Parse() (*ast.Script, *source.Bag) {
	start := p.cur().Span
	var decls []ast.Node

	p.skipNewlines()
	for !p.atEOF() {
		decl := p.parseTopLevel()
		if decl != nil {
			decls = append(decls, decl)
		}
		p.skipNewlines()
	}

	end := p.cur().Span
	return ast.NewScript(source.Join(start, end), decls), p.diags
}

func (p *Parser) parseTopLevel() ast.Node {
	switch p.cur().Kind {
	case lexer.MetadataDecl:
		return p.parseMetadata()
	case lexer.IncludeDecl:
		return p.parseInclude()
	case lexer.PassageDecl:
		return p.parsePassage()
	default:
		p.errorf("unexpected_token", "expected a metadata, include, or passage declaration, found %s", p.cur())
		p.synchronizeTopLevel()
		return nil
	}
}

// synchronizeTopLevel discards tokens until one that can start a new
// top-level declaration, so one malformed line doesn't cascade into
// spurious diagnostics for the rest of the file.
func (p *Parser) synchronizeTopLevel() {
	for !p.atEOF() {
		switch p.cur().Kind {
		case lexer.MetadataDecl, lexer.IncludeDecl, lexer.PassageDecl:
			return
		}
		p.advance()
	}
}

func (p *Parser) parseMetadata() ast.Node {
	start := p.cur().Span
	p.advance() // @@
	key := p.expectIdentLexeme("metadata key")
	p.expect(lexer.Colon, "expected ':' after metadata key")
	value := p.parseExpr()
	end := p.cur().Span
	p.expectLineEnd()
	return ast.NewMetadata(source.Join(start, end), key, value)
}

func (p *Parser) parseInclude() ast.Node {
	start := p.cur().Span
	p.advance() // >>
	path := p.expectStringLexeme("include path")
	alias := ""
	if p.curIsKeyword("as") {
		p.advance()
		alias = p.expectIdentLexeme("include alias")
	}
	end := p.cur().Span
	p.expectLineEnd()
	return ast.NewInclude(source.Join(start, end), path, alias)
}

func (p *Parser) parsePassage() *ast.Passage {
	start := p.cur().Span
	p.advance() // ::
	name := p.expectIdentLexeme("passage name")
	tags := p.parseOptionalTags()
	end := p.cur().Span
	p.expectLineEnd()
	body := p.parseIndentedBody()
	return ast.NewPassage(source.Join(start, end), name, tags, body)
}

// parseOptionalTags parses a trailing `[tag, tag]` list, used by both
// passages and choices.
func (p *Parser) parseOptionalTags() []string {
	if p.cur().Kind != lexer.LBracket {
		return nil
	}
	p.advance()
	var tags []string
	for p.cur().Kind != lexer.RBracket && !p.atEOF() {
		tags = append(tags, p.expectIdentLexeme("tag name"))
		if p.cur().Kind == lexer.Comma {
			p.advance()
		}
	}
	p.expect(lexer.RBracket, "expected ']' to close tag list")
	return tags
}

// parseIndentedBody expects an Indent token, parses a statement sequence
// until the matching Dedent, and consumes that Dedent. If there is no
// indented block (an empty passage or choice body), it returns nil
// without consuming anything beyond the line end already consumed by the
// caller.
func (p *Parser) parseIndentedBody() []ast.Node {
	if p.cur().Kind != lexer.Indent {
		return nil
	}
	p.advance()
	body := p.parseStatementsUntilDedent()
	p.expect(lexer.Dedent, "expected dedent to close block")
	return body
}

// parseStatementsUntilDedent parses statements until it sees a Dedent,
// EOF, or one of the block-closing keywords (elif/else/end), whichever
// comes first; it does not consume the terminator.
func (p *Parser) parseStatementsUntilDedent() []ast.Node {
	var stmts []ast.Node
	p.skipNewlines()
	for !p.atEOF() && p.cur().Kind != lexer.Dedent && !p.curIsBlockTerminatorKeyword() {
		p.parseStatementInto(&stmts)
		p.skipNewlines()
	}
	return stmts
}

func (p *Parser) curIsBlockTerminatorKeyword() bool {
	return p.curIsKeyword("elif") || p.curIsKeyword("else") || p.curIsKeyword("end")
}

// parseStatementInto parses one logical-line statement and appends
// whatever nodes it produces to out. A text line (String/"{" fragments)
// can produce several sibling nodes from a single call; every other
// statement form produces exactly one.
func (p *Parser) parseStatementInto(out *[]ast.Node) {
	tok := p.cur()
	switch {
	case tok.Kind == lexer.Tilde:
		*out = append(*out, p.parseAssignment())
	case tok.Kind == lexer.Divert:
		*out = append(*out, p.parseDivert())
	case tok.Kind == lexer.Tunnel:
		*out = append(*out, p.parseTunnel())
	case tok.Kind == lexer.Thread:
		*out = append(*out, p.parseThreadStart())
	case tok.StartOfLine && (tok.Kind == lexer.Star || tok.Kind == lexer.Plus):
		*out = append(*out, p.parseChoice())
	case tok.Kind == lexer.LBrace && tok.StartOfLine:
		p.parseConditionalOrInlineFragmentInto(out)
	case tok.Kind == lexer.String || tok.Kind == lexer.LBrace:
		p.parseTextLineInto(out)
	default:
		p.errorf("unexpected_token", "expected a statement, found %s", tok)
		p.synchronizeStatement()
	}
}

// parseTextLineInto parses every fragment of a text line (String and
// inline "{ ... }" pieces, space-separated on one logical line) and
// appends each as its own sibling node, then consumes the line's end.
func (p *Parser) parseTextLineInto(out *[]ast.Node) {
	for p.cur().Kind == lexer.String || (p.cur().Kind == lexer.LBrace && !p.cur().StartOfLine) {
		*out = append(*out, p.parseTextFragment())
	}
	p.expectLineEnd()
}

// synchronizeStatement discards tokens to the next Newline, Dedent, or
// EOF so a malformed statement doesn't desync the whole block.
func (p *Parser) synchronizeStatement() {
	for !p.atEOF() && p.cur().Kind != lexer.Newline && p.cur().Kind != lexer.Dedent {
		p.advance()
	}
}

func (p *Parser) parseAssignment() ast.Node {
	start := p.cur().Span
	p.advance() // ~
	name := p.expectIdentLexeme("variable name")
	op := ""
	switch p.cur().Kind {
	case lexer.Assign:
		op = "="
	case lexer.PlusAssign:
		op = "+="
	case lexer.MinusAssign:
		op = "-="
	case lexer.StarAssign:
		op = "*="
	case lexer.SlashAssign:
		op = "/="
	default:
		p.errorf("expected_operator", "expected an assignment operator, found %s", p.cur())
	}
	p.advance()
	value := p.parseExpr()
	end := p.cur().Span
	p.expectLineEnd()
	return ast.NewAssignment(source.Join(start, end), name, op, value)
}

func (p *Parser) parseDivert() ast.Node {
	start := p.cur().Span
	p.advance() // ->
	target := p.expectIdentLexeme("divert target")
	end := p.cur().Span
	p.expectLineEnd()
	return ast.NewDivert(source.Join(start, end), target)
}

// parseTunnel handles both `->-> name` (call) and bare `->->` (return);
// the lexer emits both as the same Tunnel token kind.
func (p *Parser) parseTunnel() ast.Node {
	start := p.cur().Span
	p.advance() // ->->
	if p.cur().Kind == lexer.Ident {
		target := p.cur().Lexeme
		p.advance()
		end := p.cur().Span
		p.expectLineEnd()
		return ast.NewTunnelCall(source.Join(start, end), target)
	}
	end := p.cur().Span
	p.expectLineEnd()
	return ast.NewTunnelReturn(source.Join(start, end))
}

func (p *Parser) parseThreadStart() ast.Node {
	start := p.cur().Span
	p.advance() // <-
	target := p.expectIdentLexeme("thread target")
	end := p.cur().Span
	p.expectLineEnd()
	return ast.NewThreadStart(source.Join(start, end), target)
}

func (p *Parser) parseChoice() *ast.Choice {
	start := p.cur().Span
	sticky := p.cur().Kind == lexer.Plus
	p.advance() // * or +

	var text []ast.Node
	for p.cur().Kind == lexer.String || p.cur().Kind == lexer.LBrace {
		text = append(text, p.parseTextFragment())
	}

	var condition ast.Node
	if p.cur().Kind == lexer.LBracket {
		p.advance()
		condition = p.parseExpr()
		p.expect(lexer.RBracket, "expected ']' to close choice condition")
	}

	target := ""
	if p.cur().Kind == lexer.Divert {
		p.advance()
		target = p.expectIdentLexeme("divert target")
	}

	tags := p.parseOptionalTags()

	end := p.cur().Span
	p.expectLineEnd()
	body := p.parseIndentedBody()

	if target == "" && len(body) == 0 {
		p.errorAtf(werrors.KindValidation, start, "choice_without_target", "choice has no divert target and no body")
	}

	return ast.NewChoice(source.Join(start, end), sticky, text, condition, target, body, tags)
}

// parseTextFragment parses exactly one String literal or `{ ... }`
// fragment (plain interpolation or inline conditional).
func (p *Parser) parseTextFragment() ast.Node {
	tok := p.cur()
	if tok.Kind == lexer.String {
		p.advance()
		return ast.NewText(tok.Span, tok.Literal.(string))
	}
	return p.parseBraceFragment()
}

// parseBraceFragment parses the contents of a `{ ... }` fragment that
// appears inline within a text line or choice text. It disambiguates the
// plain-interpolation form `{ expr }` from the inline-conditional form
// `{ expr : thenFrag* (| elseFrag*)? }` by checking for a top-level ':'.
func (p *Parser) parseBraceFragment() ast.Node {
	start := p.cur().Span
	p.advance() // {
	cond := p.parseExpr()

	if p.cur().Kind != lexer.Colon {
		end := p.cur().Span
		p.expect(lexer.RBrace, "expected '}' to close interpolation")
		return ast.NewInlineExpr(source.Join(start, end), cond)
	}

	p.advance() // :
	var then, els []ast.Node
	for p.cur().Kind != lexer.Pipe && p.cur().Kind != lexer.RBrace && !p.atEOF() {
		then = append(then, p.parseTextFragment())
	}
	if p.cur().Kind == lexer.Pipe {
		p.advance()
		for p.cur().Kind != lexer.RBrace && !p.atEOF() {
			els = append(els, p.parseTextFragment())
		}
	}
	end := p.cur().Span
	p.expect(lexer.RBrace, "expected '}' to close inline conditional")
	return ast.NewInlineConditional(source.Join(start, end), cond, then, els)
}

// parseConditionalOrInlineFragmentInto disambiguates a line starting
// with `{`: a top-level ':' before the closing '}' makes it an inline-
// conditional text fragment (possibly followed by more fragments on the
// same line); otherwise, if a Newline immediately follows the closing
// '}', it's a block Conditional statement; otherwise it's a plain
// interpolation fragment followed by more text on the same line.
func (p *Parser) parseConditionalOrInlineFragmentInto(out *[]ast.Node) {
	start := p.cur().Span
	p.advance() // {
	cond := p.parseExpr()

	if p.cur().Kind == lexer.Colon {
		p.advance()
		var then, els []ast.Node
		for p.cur().Kind != lexer.Pipe && p.cur().Kind != lexer.RBrace && !p.atEOF() {
			then = append(then, p.parseTextFragment())
		}
		if p.cur().Kind == lexer.Pipe {
			p.advance()
			for p.cur().Kind != lexer.RBrace && !p.atEOF() {
				els = append(els, p.parseTextFragment())
			}
		}
		end := p.cur().Span
		p.expect(lexer.RBrace, "expected '}' to close inline conditional")
		*out = append(*out, ast.NewInlineConditional(source.Join(start, end), cond, then, els))
		p.parseTextLineInto(out)
		return
	}

	end := p.cur().Span
	p.expect(lexer.RBrace, "expected '}' to close interpolation or condition")

	if p.cur().Kind == lexer.Newline || p.cur().Kind == lexer.Dedent || p.atEOF() {
		p.expectLineEnd()
		*out = append(*out, p.parseConditionalBlock(start, cond))
		return
	}

	*out = append(*out, ast.NewInlineExpr(source.Join(start, end), cond))
	p.parseTextLineInto(out)
}

func (p *Parser) parseConditionalBlock(start source.Span, cond ast.Node) ast.Node {
	then := p.parseIndentedBody()

	var elifs []*ast.ElifClause
	for p.curIsKeyword("elif") {
		elifStart := p.cur().Span
		p.advance()
		p.expect(lexer.LBrace, "expected '{' after elif")
		elifCond := p.parseExpr()
		p.expect(lexer.RBrace, "expected '}' to close elif condition")
		p.expectLineEnd()
		body := p.parseIndentedBody()
		elifs = append(elifs, ast.NewElifClause(source.Join(elifStart, p.cur().Span), elifCond, body))
	}

	var els *ast.ElseClause
	if p.curIsKeyword("else") {
		elseStart := p.cur().Span
		p.advance()
		p.expectLineEnd()
		body := p.parseIndentedBody()
		els = ast.NewElseClause(source.Join(elseStart, p.cur().Span), body)
	}

	end := p.cur().Span
	if p.curIsKeyword("end") {
		p.advance()
		p.expectLineEnd()
	} else {
		p.errorf("missing_end", "expected 'end' to close conditional, found %s", p.cur())
	}

	return ast.NewConditional(source.Join(start, end), cond, then, elifs, els)
}
