package logic

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// The grammar accepted here is the canonical text form produced by the String
// methods in this package:
//
//	clause  := atom "<-" atom ("," atom)*
//	atom    := ident "(" term ("," term)* ")"
//	term    := variable | constant
//
// A term starting with an uppercase letter is a variable and must use the
// canonical names (A..Z, then V26, V27, ...); anything else is a constant.
// Whitespace between tokens is ignored.

// ParseAtom parses an atom in canonical form.
func ParseAtom(s string) (Atom, error) {
	p := &parser{input: s}
	atom, err := p.atom()
	if err != nil {
		return Atom{}, err
	}
	if !p.done() {
		return Atom{}, fmt.Errorf("parse %q: trailing input at offset %d", s, p.pos)
	}
	return atom, nil
}

// ParseGroundAtom parses an atom and requires every argument to be a
// constant.
func ParseGroundAtom(s string) (GroundAtom, error) {
	atom, err := ParseAtom(s)
	if err != nil {
		return GroundAtom{}, err
	}
	ground, err := atom.Ground()
	if err != nil {
		return GroundAtom{}, fmt.Errorf("parse %q: %w", s, err)
	}
	return ground, nil
}

// ParseClause parses a clause in canonical "head<-body1, body2" form.
func ParseClause(s string) (Clause, error) {
	p := &parser{input: s}
	head, err := p.atom()
	if err != nil {
		return Clause{}, err
	}
	if err := p.expect("<-"); err != nil {
		return Clause{}, err
	}
	var body []Atom
	for {
		atom, err := p.atom()
		if err != nil {
			return Clause{}, err
		}
		body = append(body, atom)
		p.skipSpace()
		if !p.consume(',') {
			break
		}
	}
	if !p.done() {
		return Clause{}, fmt.Errorf("parse %q: trailing input at offset %d", s, p.pos)
	}
	return Clause{Head: head, Body: body}, nil
}

type parser struct {
	input string
	pos   int
}

func (p *parser) done() bool {
	p.skipSpace()
	return p.pos >= len(p.input)
}

func (p *parser) skipSpace() {
	for p.pos < len(p.input) && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t') {
		p.pos++
	}
}

func (p *parser) consume(c byte) bool {
	if p.pos < len(p.input) && p.input[p.pos] == c {
		p.pos++
		return true
	}
	return false
}

func (p *parser) expect(tok string) error {
	p.skipSpace()
	if !strings.HasPrefix(p.input[p.pos:], tok) {
		return fmt.Errorf("parse %q: expected %q at offset %d", p.input, tok, p.pos)
	}
	p.pos += len(tok)
	return nil
}

// token reads a run of characters valid inside a predicate or term name.
func (p *parser) token() (string, error) {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.input) {
		c := rune(p.input[p.pos])
		if unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_' {
			p.pos++
			continue
		}
		break
	}
	if p.pos == start {
		return "", fmt.Errorf("parse %q: expected identifier at offset %d", p.input, start)
	}
	return p.input[start:p.pos], nil
}

func (p *parser) atom() (Atom, error) {
	name, err := p.token()
	if err != nil {
		return Atom{}, err
	}
	if err := p.expect("("); err != nil {
		return Atom{}, err
	}
	var args []Term
	for {
		tok, err := p.token()
		if err != nil {
			return Atom{}, err
		}
		term, err := parseTerm(tok)
		if err != nil {
			return Atom{}, fmt.Errorf("parse %q: %w", p.input, err)
		}
		args = append(args, term)
		p.skipSpace()
		if p.consume(',') {
			continue
		}
		if p.consume(')') {
			break
		}
		return Atom{}, fmt.Errorf("parse %q: expected ',' or ')' at offset %d", p.input, p.pos)
	}
	return Atom{Pred: Predicate{Name: name, Arity: len(args)}, Args: args}, nil
}

func parseTerm(tok string) (Term, error) {
	first := rune(tok[0])
	if !unicode.IsUpper(first) {
		return Constant(tok), nil
	}
	if len(tok) == 1 {
		return Variable(first - 'A'), nil
	}
	if tok[0] == 'V' {
		n, err := strconv.Atoi(tok[1:])
		if err == nil && n >= 26 {
			return Variable(n), nil
		}
	}
	return nil, fmt.Errorf("variable %q is not in canonical form (A..Z or Vn with n >= 26)", tok)
}
