package lexer

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/weave-lang/weave/pkg/source"
	"github.com/weave-lang/weave/pkg/werrors"
)

// Lexer scans one source file into a token slice. It never discards
// source positions and always produces a usable (possibly partial) token
// stream, recording diagnostics for anything it could not make sense of
// rather than aborting.
type Lexer struct {
	file   string
	src    string
	pos    int // byte offset into src
	line   int
	col    int // 1-based column, in runes
	indent []int
	diags  *source.Bag
	tokens []Token
}

// New creates a lexer for src, attributed to file in diagnostics.
func New(file, src string) *Lexer {
	return &Lexer{
		file:   file,
		src:    src,
		line:   1,
		col:    1,
		indent: []int{0},
		diags:  &source.Bag{},
	}
}

// Lex scans the entire source and returns a TokenStream plus whatever
// diagnostics were recorded. The stream is always non-nil and usable even
// when diagnostics are present (recoverable lexing, spec §4.2).
func (l *Lexer) Lex() (*TokenStream, *source.Bag) {
	startOfLine := true
	for {
		if startOfLine {
			cont := l.handleLineStart()
			if !cont {
				break
			}
		}
		if l.atEOF() {
			break
		}
		startOfLine = l.scanToken()
	}
	l.closeRemainingIndents()
	l.emit(EOF, "", nil, l.here(), false)
	return NewTokenStream(l.tokens), l.diags
}

func (l *Lexer) atEOF() bool { return l.pos >= len(l.src) }

func (l *Lexer) here() source.Span {
	p := source.Position{File: l.file, Line: l.line, Column: l.col, Offset: l.pos}
	return source.Span{Start: p, End: p}
}

func (l *Lexer) emit(kind Kind, lexeme string, literal any, span source.Span, startOfLine bool) {
	l.tokens = append(l.tokens, Token{Kind: kind, Lexeme: lexeme, Literal: literal, Span: span, StartOfLine: startOfLine})
}

// handleLineStart measures leading whitespace, emits Indent/Dedent as
// needed, and returns false once EOF is reached with nothing left to
// scan on this line (blank lines and comment-only lines are consumed
// here without affecting indentation, per spec §4.3).
func (l *Lexer) handleLineStart() bool {
	for {
		width, sawTab := l.measureIndent()
		if sawTab {
			l.diags.Addf(werrors.KindParseError, "tab_in_indent", l.here(),
				"tabs are not permitted in leading whitespace; use spaces")
		}

		if l.atEOF() {
			return false
		}

		if l.peekRune() == '\n' || l.peekRune() == '\r' || l.isCommentStart() {
			l.skipToLineEnd()
			if l.atEOF() {
				return false
			}
			l.advanceNewline()
			continue
		}

		l.applyIndent(width)
		return true
	}
}

func (l *Lexer) isCommentStart() bool {
	return l.pos+1 < len(l.src) && l.src[l.pos] == '/' && l.src[l.pos+1] == '/'
}

func (l *Lexer) measureIndent() (width int, sawTab bool) {
	for !l.atEOF() {
		switch l.src[l.pos] {
		case ' ':
			width++
			l.pos++
			l.col++
		case '\t':
			sawTab = true
			width++
			l.pos++
			l.col++
		default:
			return width, sawTab
		}
	}
	return width, sawTab
}

func (l *Lexer) skipToLineEnd() {
	for !l.atEOF() && l.src[l.pos] != '\n' {
		l.pos++
		l.col++
	}
}

func (l *Lexer) advanceNewline() {
	if !l.atEOF() && l.src[l.pos] == '\r' {
		l.pos++
	}
	if !l.atEOF() && l.src[l.pos] == '\n' {
		l.pos++
	}
	l.line++
	l.col = 1
}

func (l *Lexer) applyIndent(width int) {
	top := l.indent[len(l.indent)-1]
	switch {
	case width > top:
		l.indent = append(l.indent, width)
		l.emit(Indent, "", nil, l.here(), true)
	case width < top:
		for len(l.indent) > 1 && l.indent[len(l.indent)-1] > width {
			l.indent = l.indent[:len(l.indent)-1]
			l.emit(Dedent, "", nil, l.here(), true)
		}
		if l.indent[len(l.indent)-1] != width {
			l.diags.Addf(werrors.KindParseError, "inconsistent_indent", l.here(),
				"indentation does not match any enclosing level")
			l.indent = append(l.indent, width)
		}
	}
}

func (l *Lexer) closeRemainingIndents() {
	for len(l.indent) > 1 {
		l.indent = l.indent[:len(l.indent)-1]
		l.emit(Dedent, "", nil, l.here(), false)
	}
}

func (l *Lexer) peekRune() rune {
	if l.atEOF() {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.src[l.pos:])
	return r
}

func (l *Lexer) advanceRune() rune {
	r, size := utf8.DecodeRuneInString(l.src[l.pos:])
	l.pos += size
	l.col++
	return r
}

// scanToken scans exactly one logical line's worth of tokens starting at
// the current (post-indent) position, up to and including its Newline
// token, and reports whether the caller should treat the following
// position as a fresh line start.
func (l *Lexer) scanToken() bool {
	startOfLine := true
	for {
		if l.atEOF() {
			return false
		}
		c := l.src[l.pos]
		if c == '\n' || c == '\r' {
			start := l.here()
			l.advanceNewline()
			l.emit(Newline, "", nil, start, false)
			return true
		}
		if c == ' ' || c == '\t' {
			l.pos++
			l.col++
			continue
		}
		if l.isCommentStart() {
			l.skipToLineEnd()
			continue
		}
		l.scanOne(startOfLine)
		startOfLine = false
	}
}

func (l *Lexer) scanOne(startOfLine bool) {
	start := l.here()
	c := l.src[l.pos]

	switch {
	case c == '"':
		l.scanString(start, startOfLine)
		return
	case isDigit(c):
		l.scanNumber(start, startOfLine)
		return
	case isIdentStart(c):
		l.scanIdentOrKeyword(start, startOfLine)
		return
	}

	two := ""
	if l.pos+1 < len(l.src) {
		two = l.src[l.pos : l.pos+2]
	}
	three := ""
	if l.pos+2 < len(l.src) {
		three = l.src[l.pos : l.pos+3]
	}

	switch {
	case three == "->-":
		// "->->" — only matches when the 4th rune is also '>'.
		if l.pos+3 < len(l.src) && l.src[l.pos+3] == '>' {
			l.advanceN(4)
			l.finish(Tunnel, "->->", nil, start, startOfLine)
			return
		}
	}

	switch two {
	case "::":
		l.advanceN(2)
		l.finish(PassageDecl, "::", nil, start, startOfLine)
		return
	case "@@":
		l.advanceN(2)
		l.finish(MetadataDecl, "@@", nil, start, startOfLine)
		return
	case ">>":
		l.advanceN(2)
		l.finish(IncludeDecl, ">>", nil, start, startOfLine)
		return
	case "->":
		l.advanceN(2)
		l.finish(Divert, "->", nil, start, startOfLine)
		return
	case "<-":
		l.advanceN(2)
		l.finish(Thread, "<-", nil, start, startOfLine)
		return
	case "==":
		l.advanceN(2)
		l.finish(Eq, "==", nil, start, startOfLine)
		return
	case "!=":
		l.advanceN(2)
		l.finish(NotEq, "!=", nil, start, startOfLine)
		return
	case "<=":
		l.advanceN(2)
		l.finish(LtEq, "<=", nil, start, startOfLine)
		return
	case ">=":
		l.advanceN(2)
		l.finish(GtEq, ">=", nil, start, startOfLine)
		return
	case "+=":
		l.advanceN(2)
		l.finish(PlusAssign, "+=", nil, start, startOfLine)
		return
	case "-=":
		l.advanceN(2)
		l.finish(MinusAssign, "-=", nil, start, startOfLine)
		return
	case "*=":
		l.advanceN(2)
		l.finish(StarAssign, "*=", nil, start, startOfLine)
		return
	case "/=":
		l.advanceN(2)
		l.finish(SlashAssign, "/=", nil, start, startOfLine)
		return
	}

	r := l.advanceRune()
	switch r {
	case ':':
		l.finish(Colon, ":", nil, start, startOfLine)
	case ',':
		l.finish(Comma, ",", nil, start, startOfLine)
	case '|':
		l.finish(Pipe, "|", nil, start, startOfLine)
	case '(':
		l.finish(LParen, "(", nil, start, startOfLine)
	case ')':
		l.finish(RParen, ")", nil, start, startOfLine)
	case '[':
		l.finish(LBracket, "[", nil, start, startOfLine)
	case ']':
		l.finish(RBracket, "]", nil, start, startOfLine)
	case '{':
		l.finish(LBrace, "{", nil, start, startOfLine)
	case '}':
		l.finish(RBrace, "}", nil, start, startOfLine)
	case '~':
		l.finish(Tilde, "~", nil, start, startOfLine)
	case '+':
		l.finish(Plus, "+", nil, start, startOfLine)
	case '-':
		l.finish(Minus, "-", nil, start, startOfLine)
	case '*':
		l.finish(Star, "*", nil, start, startOfLine)
	case '/':
		l.finish(Slash, "/", nil, start, startOfLine)
	case '%':
		l.finish(Percent, "%", nil, start, startOfLine)
	case '=':
		l.finish(Assign, "=", nil, start, startOfLine)
	case '<':
		l.finish(Lt, "<", nil, start, startOfLine)
	case '>':
		l.finish(Gt, ">", nil, start, startOfLine)
	default:
		l.diags.Addf(werrors.KindParseError, "unexpected_character", spanTo(start, l.here()),
			"unexpected character %q", r)
	}
}

func (l *Lexer) advanceN(n int) {
	for i := 0; i < n; i++ {
		l.advanceRune()
	}
}

func (l *Lexer) finish(kind Kind, lexeme string, literal any, start source.Span, startOfLine bool) {
	l.emit(kind, lexeme, literal, spanTo(start, l.here()), startOfLine)
}

func spanTo(start, end source.Span) source.Span {
	return source.Span{Start: start.Start, End: end.Start}
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentCont(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

func (l *Lexer) scanNumber(start source.Span, startOfLine bool) {
	begin := l.pos
	for !l.atEOF() && isDigit(l.src[l.pos]) {
		l.pos++
		l.col++
	}
	if !l.atEOF() && l.src[l.pos] == '.' && l.pos+1 < len(l.src) && isDigit(l.src[l.pos+1]) {
		l.pos++
		l.col++
		for !l.atEOF() && isDigit(l.src[l.pos]) {
			l.pos++
			l.col++
		}
	}
	text := l.src[begin:l.pos]
	value, err := strconv.ParseFloat(text, 64)
	if err != nil {
		l.diags.Addf(werrors.KindParseError, "invalid_number", spanTo(start, l.here()), "invalid number literal %q", text)
		value = 0
	}
	l.emit(Number, text, value, spanTo(start, l.here()), startOfLine)
}

func (l *Lexer) scanIdentOrKeyword(start source.Span, startOfLine bool) {
	begin := l.pos
	for !l.atEOF() && isIdentCont(l.src[l.pos]) {
		l.pos++
		l.col++
	}
	text := l.src[begin:l.pos]
	switch text {
	case "true":
		l.emit(Bool, text, true, spanTo(start, l.here()), startOfLine)
	case "false":
		l.emit(Bool, text, false, spanTo(start, l.here()), startOfLine)
	default:
		if Keywords[text] {
			l.emit(Keyword, text, nil, spanTo(start, l.here()), startOfLine)
		} else {
			l.emit(Ident, text, nil, spanTo(start, l.here()), startOfLine)
		}
	}
}

func (l *Lexer) scanString(start source.Span, startOfLine bool) {
	l.pos++ // opening quote
	l.col++
	var sb strings.Builder
	closed := false
	for !l.atEOF() {
		c := l.src[l.pos]
		if c == '"' {
			l.pos++
			l.col++
			closed = true
			break
		}
		if c == '\n' {
			break
		}
		if c == '\\' && l.pos+1 < len(l.src) {
			l.pos++
			l.col++
			esc := l.src[l.pos]
			switch esc {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case '"':
				sb.WriteByte('"')
			case '\\':
				sb.WriteByte('\\')
			default:
				sb.WriteByte(esc)
			}
			l.pos++
			l.col++
			continue
		}
		sb.WriteByte(c)
		l.pos++
		l.col++
	}
	if !closed {
		l.diags.Addf(werrors.KindParseError, "unterminated_string", spanTo(start, l.here()), "unterminated string literal")
	}
	l.emit(String, sb.String(), sb.String(), spanTo(start, l.here()), startOfLine)
}
