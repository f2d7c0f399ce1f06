// Package parser implements a recursive-descent parser, with one expression
// function per precedence level, over the token stream produced by
// internal/lexer.
package parser

import (
	"fmt"

	"minic/internal/ast"
	"minic/internal/lexer"
	"minic/token"
)

// Error is a single syntax error, fail-fast: the parser does not attempt
// recovery past the first error in a unit.
type Error struct {
	Message string
	Pos     token.Position
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename, e.Pos.Line, e.Pos.Column, e.Message)
}

// Parser consumes a fixed token slice and builds an *ast.Unit.
type Parser struct {
	filename string
	tokens   []token.Token
	current  int
}

// Parse lexes and parses source, returning the compilation unit or the
// first lex/parse error encountered.
func Parse(filename, source string) (*ast.Unit, error) {
	toks, err := lexer.New(filename, source).Tokenize()
	if err != nil {
		return nil, err
	}
	return NewFromTokens(filename, toks).ParseUnit()
}

// NewFromTokens builds a Parser directly from an already-lexed token stream;
// useful for tests that want to exercise the parser in isolation.
func NewFromTokens(filename string, toks []token.Token) *Parser {
	return &Parser{filename: filename, tokens: toks}
}

// ParseUnit parses `function*` until EOF.
func (p *Parser) ParseUnit() (*ast.Unit, error) {
	unit := &ast.Unit{}
	for !p.isAtEnd() {
		fn, err := p.parseFunction()
		if err != nil {
			return nil, err
		}
		unit.Functions = append(unit.Functions, fn)
	}
	return unit, nil
}

func (p *Parser) parseFunction() (*ast.Function, error) {
	start, err := p.consume(token.FUNCTION, "expected 'fn'")
	if err != nil {
		return nil, err
	}
	name, err := p.consumeIdent("expected function name")
	if err != nil {
		return nil, err
	}

	if _, err := p.consume(token.LPAREN, "expected '(' after function name"); err != nil {
		return nil, err
	}
	var params []ast.Param
	for !p.check(token.RPAREN) {
		pname, err := p.consumeIdent("expected parameter name")
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(token.COLON, "expected ':' after parameter name"); err != nil {
			return nil, err
		}
		ptype, err := p.parseType()
		if err != nil {
			return nil, err
		}
		params = append(params, ast.Param{Name: pname, Type: ptype})
		if !p.match(token.COMMA) {
			break
		}
	}
	if _, err := p.consume(token.RPAREN, "expected ')' after parameter list"); err != nil {
		return nil, err
	}

	var ret *ast.Ident
	if p.match(token.ARROW) {
		rt, err := p.parseType()
		if err != nil {
			return nil, err
		}
		ret = &rt
	}

	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}

	return &ast.Function{
		StartPos: start.Pos,
		EndPos:   body.EndPos,
		Name:     name,
		Params:   params,
		Return:   ret,
		Body:     body,
	}, nil
}

func (p *Parser) parseType() (ast.Ident, error) {
	typ, err := p.consumeIdent("expected type name")
	if err != nil {
		return ast.Ident{}, err
	}
	if typ.Value != "i64" {
		return ast.Ident{}, p.errAt(typ.StartPos, fmt.Sprintf("unknown type %q (only 'i64' is supported)", typ.Value))
	}
	return typ, nil
}

func (p *Parser) parseBlock() (*ast.Block, error) {
	start, err := p.consume(token.LBRACE, "expected '{'")
	if err != nil {
		return nil, err
	}
	block := &ast.Block{StartPos: start.Pos}
	for !p.check(token.RBRACE) && !p.isAtEnd() {
		stmt, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		block.Stmts = append(block.Stmts, stmt)
	}
	end, err := p.consume(token.RBRACE, "expected '}'")
	if err != nil {
		return nil, err
	}
	block.EndPos = p.endPos(end)
	return block, nil
}

func (p *Parser) parseStmt() (ast.Stmt, error) {
	switch p.peek().Type {
	case token.LET:
		return p.parseLet()
	case token.IF:
		return p.parseIf()
	case token.WHILE:
		return p.parseWhile()
	case token.BREAK:
		return p.parseBreak()
	case token.CONTINUE:
		return p.parseContinue()
	case token.RETURN:
		return p.parseReturn()
	case token.IDENT:
		return p.parseIdentLeadStmt()
	default:
		tok := p.peek()
		return nil, p.errAt(tok.Pos, fmt.Sprintf("unexpected token %q at start of statement", tok.Literal))
	}
}

func (p *Parser) parseLet() (ast.Stmt, error) {
	start, _ := p.consume(token.LET, "expected 'let'")
	if _, err := p.consume(token.MUT, "expected 'mut' after 'let'"); err != nil {
		return nil, err
	}
	name, err := p.consumeIdent("expected local name")
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.COLON, "expected ':' after local name"); err != nil {
		return nil, err
	}
	typ, err := p.parseType()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.ASSIGN, "expected '=' in let statement"); err != nil {
		return nil, err
	}
	init, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	end, err := p.consume(token.SEMICOLON, "expected ';' after let statement")
	if err != nil {
		return nil, err
	}
	return &ast.LetStmt{StartPos: start.Pos, EndPos: p.endPos(end), Name: name, Type: typ, Init: init}, nil
}

// parseIdentLeadStmt disambiguates `name = expr;` from `name(args);` by
// peeking one token past the identifier.
func (p *Parser) parseIdentLeadStmt() (ast.Stmt, error) {
	identTok := p.peek()
	next := p.peekAt(1)

	if next.Type == token.ASSIGN {
		p.advance()
		p.advance()
		value, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		end, err := p.consume(token.SEMICOLON, "expected ';' after assignment")
		if err != nil {
			return nil, err
		}
		target := p.identFrom(identTok)
		return &ast.AssignStmt{StartPos: identTok.Pos, EndPos: p.endPos(end), Target: target, Value: value}, nil
	}

	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	call, ok := expr.(*ast.CallExpr)
	if !ok {
		return nil, p.errAt(identTok.Pos, "expected assignment or call statement")
	}
	end, err := p.consume(token.SEMICOLON, "expected ';' after expression statement")
	if err != nil {
		return nil, err
	}
	return &ast.ExprStmt{StartPos: identTok.Pos, EndPos: p.endPos(end), Call: call}, nil
}

func (p *Parser) parseIf() (ast.Stmt, error) {
	start, _ := p.consume(token.IF, "expected 'if'")
	if _, err := p.consume(token.LPAREN, "expected '(' after 'if'"); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.RPAREN, "expected ')' after if condition"); err != nil {
		return nil, err
	}
	thenBlock, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	end := thenBlock.EndPos
	var elseBlock *ast.Block
	if p.match(token.ELSE) {
		elseBlock, err = p.parseBlock()
		if err != nil {
			return nil, err
		}
		end = elseBlock.EndPos
	}
	return &ast.IfStmt{StartPos: start.Pos, EndPos: end, Cond: cond, Then: thenBlock, Else: elseBlock}, nil
}

func (p *Parser) parseWhile() (ast.Stmt, error) {
	start, _ := p.consume(token.WHILE, "expected 'while'")
	if _, err := p.consume(token.LPAREN, "expected '(' after 'while'"); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.RPAREN, "expected ')' after while condition"); err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.WhileStmt{StartPos: start.Pos, EndPos: body.EndPos, Cond: cond, Body: body}, nil
}

func (p *Parser) parseBreak() (ast.Stmt, error) {
	start, _ := p.consume(token.BREAK, "expected 'break'")
	end, err := p.consume(token.SEMICOLON, "expected ';' after 'break'")
	if err != nil {
		return nil, err
	}
	return &ast.BreakStmt{StartPos: start.Pos, EndPos: p.endPos(end)}, nil
}

func (p *Parser) parseContinue() (ast.Stmt, error) {
	start, _ := p.consume(token.CONTINUE, "expected 'continue'")
	end, err := p.consume(token.SEMICOLON, "expected ';' after 'continue'")
	if err != nil {
		return nil, err
	}
	return &ast.ContinueStmt{StartPos: start.Pos, EndPos: p.endPos(end)}, nil
}

func (p *Parser) parseReturn() (ast.Stmt, error) {
	start, _ := p.consume(token.RETURN, "expected 'return'")
	if p.match(token.SEMICOLON) {
		return &ast.ReturnStmt{StartPos: start.Pos, EndPos: p.endPos(p.previous())}, nil
	}
	value, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	end, err := p.consume(token.SEMICOLON, "expected ';' after return value")
	if err != nil {
		return nil, err
	}
	return &ast.ReturnStmt{StartPos: start.Pos, EndPos: p.endPos(end), Value: value}, nil
}
