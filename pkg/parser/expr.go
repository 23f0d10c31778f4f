package parser

import (
	"github.com/weave-lang/weave/pkg/ast"
	"github.com/weave-lang/weave/pkg/lexer"
	"github.com/weave-lang/weave/pkg/source"
)

// parseExpr parses a full expression at the lowest precedence level
// (logical or). Precedence, loosest to tightest:
//
//	or  <  and  <  not  <  == != <= > >= <  <  + -  <  * / %  <  unary-  <  primary
func (p *Parser) parseExpr() ast.Node {
	return p.parseOr()
}

func (p *Parser) parseOr() ast.Node {
	left := p.parseAnd()
	for p.curIsKeyword("or") {
		start := left.Span()
		p.advance()
		right := p.parseAnd()
		left = ast.NewBinaryExpr(source.Join(start, right.Span()), "or", left, right)
	}
	return left
}

func (p *Parser) parseAnd() ast.Node {
	left := p.parseNot()
	for p.curIsKeyword("and") {
		start := left.Span()
		p.advance()
		right := p.parseNot()
		left = ast.NewBinaryExpr(source.Join(start, right.Span()), "and", left, right)
	}
	return left
}

func (p *Parser) parseNot() ast.Node {
	if p.curIsKeyword("not") {
		start := p.cur().Span
		p.advance()
		operand := p.parseNot()
		return ast.NewUnaryExpr(source.Join(start, operand.Span()), "not", operand)
	}
	return p.parseComparison()
}

// parseComparison handles all six comparison operators at a single
// precedence level: == != <= > >= <.
func (p *Parser) parseComparison() ast.Node {
	left := p.parseAdditive()
	for isComparisonKind(p.cur().Kind) {
		op := opLexeme(p.cur().Kind)
		start := left.Span()
		p.advance()
		right := p.parseAdditive()
		left = ast.NewBinaryExpr(source.Join(start, right.Span()), op, left, right)
	}
	return left
}

func isComparisonKind(k lexer.Kind) bool {
	switch k {
	case lexer.Eq, lexer.NotEq, lexer.LtEq, lexer.Gt, lexer.GtEq, lexer.Lt:
		return true
	}
	return false
}

func (p *Parser) parseAdditive() ast.Node {
	left := p.parseTerm()
	for p.cur().Kind == lexer.Plus || p.cur().Kind == lexer.Minus {
		op := opLexeme(p.cur().Kind)
		start := left.Span()
		p.advance()
		right := p.parseTerm()
		left = ast.NewBinaryExpr(source.Join(start, right.Span()), op, left, right)
	}
	return left
}

func (p *Parser) parseTerm() ast.Node {
	left := p.parseUnary()
	for p.cur().Kind == lexer.Star || p.cur().Kind == lexer.Slash || p.cur().Kind == lexer.Percent {
		op := opLexeme(p.cur().Kind)
		start := left.Span()
		p.advance()
		right := p.parseUnary()
		left = ast.NewBinaryExpr(source.Join(start, right.Span()), op, left, right)
	}
	return left
}

func (p *Parser) parseUnary() ast.Node {
	if p.cur().Kind == lexer.Minus {
		start := p.cur().Span
		p.advance()
		operand := p.parseUnary()
		return ast.NewUnaryExpr(source.Join(start, operand.Span()), "-", operand)
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() ast.Node {
	tok := p.cur()
	switch tok.Kind {
	case lexer.Number:
		p.advance()
		return ast.NewLiteral(tok.Span, ast.LiteralNumber, tok.Literal)
	case lexer.String:
		p.advance()
		return ast.NewLiteral(tok.Span, ast.LiteralString, tok.Literal)
	case lexer.Bool:
		p.advance()
		return ast.NewLiteral(tok.Span, ast.LiteralBool, tok.Literal)
	case lexer.Keyword:
		if tok.Lexeme == "nil" {
			p.advance()
			return ast.NewLiteral(tok.Span, ast.LiteralNil, nil)
		}
	case lexer.LParen:
		p.advance()
		inner := p.parseExpr()
		p.expect(lexer.RParen, "expected ')' to close parenthesized expression")
		return inner
	case lexer.LBracket:
		return p.parseListLiteral()
	case lexer.Ident:
		return p.parseIdentOrCall(tok)
	}

	p.errorf("expected_expression", "expected an expression, found %s", tok)
	p.advance()
	return ast.NewLiteral(tok.Span, ast.LiteralNil, nil)
}

func (p *Parser) parseListLiteral() ast.Node {
	start := p.cur().Span
	p.advance() // [
	var elems []ast.Node
	for p.cur().Kind != lexer.RBracket && !p.atEOF() {
		elems = append(elems, p.parseExpr())
		if p.cur().Kind == lexer.Comma {
			p.advance()
		}
	}
	end := p.cur().Span
	p.expect(lexer.RBracket, "expected ']' to close list literal")
	return ast.NewListLiteral(source.Join(start, end), elems)
}

func (p *Parser) parseIdentOrCall(tok lexer.Token) ast.Node {
	p.advance()
	if p.cur().Kind == lexer.LParen {
		p.advance()
		var args []ast.Node
		for p.cur().Kind != lexer.RParen && !p.atEOF() {
			args = append(args, p.parseExpr())
			if p.cur().Kind == lexer.Comma {
				p.advance()
			}
		}
		end := p.cur().Span
		p.expect(lexer.RParen, "expected ')' to close function call arguments")
		return ast.NewFunctionCall(source.Join(tok.Span, end), tok.Lexeme, args)
	}

	if p.cur().Kind == lexer.LBracket {
		p.advance()
		index := p.parseExpr()
		end := p.cur().Span
		p.expect(lexer.RBracket, "expected ']' to close index expression")
		return ast.NewVariableRef(source.Join(tok.Span, end), tok.Lexeme, index)
	}

	return ast.NewVariableRef(tok.Span, tok.Lexeme, nil)
}

func opLexeme(k lexer.Kind) string {
	switch k {
	case lexer.Eq:
		return "=="
	case lexer.NotEq:
		return "!="
	case lexer.LtEq:
		return "<="
	case lexer.Gt:
		return ">"
	case lexer.GtEq:
		return ">="
	case lexer.Lt:
		return "<"
	case lexer.Plus:
		return "+"
	case lexer.Minus:
		return "-"
	case lexer.Star:
		return "*"
	case lexer.Slash:
		return "/"
	case lexer.Percent:
		return "%"
	}
	return string(k)
}
