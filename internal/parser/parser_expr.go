package parser

import (
	"minic/internal/ast"
	"minic/token"
)

var compareOps = map[token.Type]bool{
	token.EQ: true, token.NOT_EQ: true,
	token.LT: true, token.LE: true, token.GT: true, token.GE: true,
}

var additiveOps = map[token.Type]bool{
	token.PLUS: true, token.MINUS: true,
}

var multiplicativeOps = map[token.Type]bool{
	token.STAR: true, token.SLASH: true, token.PERCENT: true,
}

// parseExpr implements the grammar's `expr := cmp` entry point.
func (p *Parser) parseExpr() (ast.Expr, error) {
	return p.parseCmp()
}

// parseCmp implements `cmp := add (cmpOp add)?`: the comparison operators are
// non-associative, so at most one is consumed at this level.
func (p *Parser) parseCmp() (ast.Expr, error) {
	left, err := p.parseAdd()
	if err != nil {
		return nil, err
	}
	if op := p.peek(); compareOps[op.Type] {
		p.advance()
		right, err := p.parseAdd()
		if err != nil {
			return nil, err
		}
		return &ast.BinaryExpr{StartPos: left.Pos(), EndPos: right.End(), Op: op.Type, Left: left, Right: right}, nil
	}
	return left, nil
}

// parseAdd implements `add := mul (('+'|'-') mul)*`, left-associative.
func (p *Parser) parseAdd() (ast.Expr, error) {
	left, err := p.parseMul()
	if err != nil {
		return nil, err
	}
	for additiveOps[p.peek().Type] {
		op := p.advance()
		right, err := p.parseMul()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{StartPos: left.Pos(), EndPos: right.End(), Op: op.Type, Left: left, Right: right}
	}
	return left, nil
}

// parseMul implements `mul := unary (('*'|'/'|'%') unary)*`, left-associative.
func (p *Parser) parseMul() (ast.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for multiplicativeOps[p.peek().Type] {
		op := p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{StartPos: left.Pos(), EndPos: right.End(), Op: op.Type, Left: left, Right: right}
	}
	return left, nil
}

// parseUnary implements `unary := '-'? primary`.
func (p *Parser) parseUnary() (ast.Expr, error) {
	if p.check(token.MINUS) {
		minus := p.advance()
		value, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{StartPos: minus.Pos, EndPos: value.End(), Value: value}, nil
	}
	return p.parsePrimary()
}

// parsePrimary implements `primary := INT | 'true' | 'false' | IDENT | call | '(' expr ')'`.
func (p *Parser) parsePrimary() (ast.Expr, error) {
	tok := p.peek()
	switch tok.Type {
	case token.INT:
		p.advance()
		return &ast.IntLit{StartPos: tok.Pos, EndPos: p.endPos(tok), Value: tok.Literal}, nil
	case token.TRUE:
		p.advance()
		return &ast.BoolLit{StartPos: tok.Pos, EndPos: p.endPos(tok), Value: true}, nil
	case token.FALSE:
		p.advance()
		return &ast.BoolLit{StartPos: tok.Pos, EndPos: p.endPos(tok), Value: false}, nil
	case token.IDENT:
		return p.parseIdentOrCall()
	case token.LPAREN:
		p.advance()
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		end, err := p.consume(token.RPAREN, "expected ')' after parenthesized expression")
		if err != nil {
			return nil, err
		}
		return &ast.ParenExpr{StartPos: tok.Pos, EndPos: p.endPos(end), Value: inner}, nil
	default:
		return nil, p.errAt(tok.Pos, "expected an expression")
	}
}

func (p *Parser) parseIdentOrCall() (ast.Expr, error) {
	tok := p.advance()
	name := p.identFrom(tok)
	if !p.check(token.LPAREN) {
		return &ast.IdentExpr{StartPos: tok.Pos, EndPos: p.endPos(tok), Name: tok.Literal}, nil
	}

	p.advance() // consume '('
	var args []ast.Expr
	if !p.check(token.RPAREN) {
		for {
			arg, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if !p.match(token.COMMA) {
				break
			}
		}
	}
	end, err := p.consume(token.RPAREN, "expected ')' after call arguments")
	if err != nil {
		return nil, err
	}
	return &ast.CallExpr{StartPos: tok.Pos, EndPos: p.endPos(end), Callee: name, Args: args}, nil
}
