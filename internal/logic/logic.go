// Package logic defines the vocabulary value types of the engine: predicates,
// terms, atoms, ground atoms and clauses, together with their canonical text
// form and a parser for it.
//
// All types are immutable values. Identity of a predicate is its (name, arity)
// pair; two predicates with the same name but different arities are distinct.
package logic

import (
	"fmt"
	"strings"
)

// Predicate identifies a relation by name and arity.
type Predicate struct {
	Name  string
	Arity int
}

// String renders the predicate as "name/arity".
func (p Predicate) String() string {
	return fmt.Sprintf("%s/%d", p.Name, p.Arity)
}

// Constant is an opaque atomic value drawn from a problem-wide finite set.
type Constant string

// Variable is a clause-scoped symbolic term. Variables are numbered from
// zero; the canonical names are A..Z for the first 26 and V26, V27, ...
// beyond that.
type Variable int

// Term is either a Variable or a Constant.
type Term interface {
	isTerm()
	String() string
}

func (Constant) isTerm() {}
func (Variable) isTerm() {}

func (c Constant) String() string { return string(c) }

func (v Variable) String() string {
	if v >= 0 && v < 26 {
		return string(rune('A' + v))
	}
	return fmt.Sprintf("V%d", int(v))
}

// Atom is a predicate applied to arity-many terms.
type Atom struct {
	Pred Predicate
	Args []Term
}

// NewAtom builds an atom, checking that the argument count matches the
// predicate arity.
func NewAtom(pred Predicate, args ...Term) (Atom, error) {
	if len(args) != pred.Arity {
		return Atom{}, fmt.Errorf("predicate %s expects %d args, got %d", pred, pred.Arity, len(args))
	}
	return Atom{Pred: pred, Args: args}, nil
}

// String renders the atom as "name(arg1,arg2)".
func (a Atom) String() string {
	var sb strings.Builder
	sb.WriteString(a.Pred.Name)
	sb.WriteByte('(')
	for i, t := range a.Args {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(t.String())
	}
	sb.WriteByte(')')
	return sb.String()
}

// IsGround reports whether every argument is a constant.
func (a Atom) IsGround() bool {
	for _, t := range a.Args {
		if _, ok := t.(Constant); !ok {
			return false
		}
	}
	return true
}

// Ground converts the atom to a GroundAtom. It fails if any argument is a
// variable.
func (a Atom) Ground() (GroundAtom, error) {
	args := make([]Constant, len(a.Args))
	for i, t := range a.Args {
		c, ok := t.(Constant)
		if !ok {
			return GroundAtom{}, fmt.Errorf("atom %s is not ground: argument %d is a variable", a, i)
		}
		args[i] = c
	}
	return GroundAtom{Pred: a.Pred, Args: args}, nil
}

// GroundAtom is an atom whose arguments are all constants.
type GroundAtom struct {
	Pred Predicate
	Args []Constant
}

// NewGroundAtom builds a ground atom, checking arity.
func NewGroundAtom(pred Predicate, args ...Constant) (GroundAtom, error) {
	if len(args) != pred.Arity {
		return GroundAtom{}, fmt.Errorf("predicate %s expects %d args, got %d", pred, pred.Arity, len(args))
	}
	return GroundAtom{Pred: pred, Args: args}, nil
}

// String renders the ground atom in the same form as Atom.String.
func (g GroundAtom) String() string {
	var sb strings.Builder
	sb.WriteString(g.Pred.Name)
	sb.WriteByte('(')
	for i, c := range g.Args {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(string(c))
	}
	sb.WriteByte(')')
	return sb.String()
}

// Equal reports structural equality.
func (g GroundAtom) Equal(o GroundAtom) bool {
	if g.Pred != o.Pred || len(g.Args) != len(o.Args) {
		return false
	}
	for i := range g.Args {
		if g.Args[i] != o.Args[i] {
			return false
		}
	}
	return true
}

// Clause is a definite clause: a head atom over distinct variables and an
// ordered body of one or two atoms.
type Clause struct {
	Head Atom
	Body []Atom
}

// String renders the clause as "head<-body1, body2". The output is the
// canonical serialization: it orders generator output and parses back into an
// identical Clause.
func (c Clause) String() string {
	var sb strings.Builder
	sb.WriteString(c.Head.String())
	sb.WriteString("<-")
	for i, a := range c.Body {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(a.String())
	}
	return sb.String()
}

// Variables returns the distinct variables of the clause in order of first
// appearance, head first.
func (c Clause) Variables() []Variable {
	seen := make(map[Variable]bool)
	var out []Variable
	collect := func(a Atom) {
		for _, t := range a.Args {
			if v, ok := t.(Variable); ok && !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	collect(c.Head)
	for _, a := range c.Body {
		collect(a)
	}
	return out
}
