// Package rdfgraph holds a minimal RDF graph model for comparing Turtle
// payloads: parsing, deterministic serialization, set difference and
// blank-node aware isomorphism.
package rdfgraph

import (
	"sort"
	"strings"
)

// TermKind discriminates the three RDF term kinds.
type TermKind int

const (
	IRITerm TermKind = iota
	BlankTerm
	LiteralTerm
)

const xsdStringIRI = "http://www.w3.org/2001/XMLSchema#string"

// Term is one RDF term. Value holds the IRI, the blank-node label without
// the "_:" prefix, or the literal's lexical form. Datatype and Lang are only
// set for literals.
type Term struct {
	Kind     TermKind
	Value    string
	Datatype string
	Lang     string
}

// Triple is one RDF statement.
type Triple struct {
	Subject   Term
	Predicate Term
	Object    Term
}

// Prefix is one namespace binding carried through from the parsed source so
// serialized output stays readable.
type Prefix struct {
	Label string
	IRI   string
}

// Graph is a set of triples plus the prefix table of its source document.
type Graph struct {
	Triples  []Triple
	Prefixes []Prefix
}

// key is a canonical string form of the term, used for set membership.
func (t Term) key() string {
	switch t.Kind {
	case BlankTerm:
		return "_:" + t.Value
	case LiteralTerm:
		k := `"` + t.Value + `"`
		if t.Lang != "" {
			return k + "@" + t.Lang
		}
		if t.Datatype != "" && t.Datatype != xsdStringIRI {
			return k + "^^<" + t.Datatype + ">"
		}
		return k
	default:
		return "<" + t.Value + ">"
	}
}

func (tr Triple) key() string {
	return tr.Subject.key() + " " + tr.Predicate.key() + " " + tr.Object.key()
}

// HasBlank reports whether the triple touches a blank node.
func (tr Triple) HasBlank() bool {
	return tr.Subject.Kind == BlankTerm || tr.Object.Kind == BlankTerm
}

func (g *Graph) tripleSet() map[string]struct{} {
	set := make(map[string]struct{}, len(g.Triples))
	for _, tr := range g.Triples {
		set[tr.key()] = struct{}{}
	}
	return set
}

// Contains reports exact membership; blank-node labels compare literally.
func (g *Graph) Contains(tr Triple) bool {
	k := tr.key()
	for _, t := range g.Triples {
		if t.key() == k {
			return true
		}
	}
	return false
}

// Difference returns the triples of g absent from other, comparing blank-node
// labels literally. The receiver's prefixes carry over.
func (g *Graph) Difference(other *Graph) *Graph {
	otherSet := other.tripleSet()
	diff := &Graph{Prefixes: append([]Prefix(nil), g.Prefixes...)}
	for _, tr := range g.Triples {
		if _, ok := otherSet[tr.key()]; !ok {
			diff.Triples = append(diff.Triples, tr)
		}
	}
	return diff
}

// shorten rewrites an IRI as a prefixed name when a prefix covers it and the
// local part is a plain name; otherwise returns the bracketed IRI.
func (g *Graph) shorten(iri string) string {
	best := -1
	for i, p := range g.Prefixes {
		if !strings.HasPrefix(iri, p.IRI) || p.IRI == "" {
			continue
		}
		if best < 0 || len(p.IRI) > len(g.Prefixes[best].IRI) {
			best = i
		}
	}
	if best >= 0 {
		local := iri[len(g.Prefixes[best].IRI):]
		if isLocalName(local) {
			return g.Prefixes[best].Label + ":" + local
		}
	}
	return "<" + iri + ">"
}

func isLocalName(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '_' || r == '-':
		default:
			return false
		}
	}
	return true
}

func escapeLiteral(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	s = strings.ReplaceAll(s, "\r", `\r`)
	s = strings.ReplaceAll(s, "\t", `\t`)
	return s
}

// FormatTerm renders the term in Turtle syntax using the graph's prefixes.
func (g *Graph) FormatTerm(t Term) string {
	switch t.Kind {
	case BlankTerm:
		return "_:" + t.Value
	case LiteralTerm:
		s := `"` + escapeLiteral(t.Value) + `"`
		if t.Lang != "" {
			return s + "@" + t.Lang
		}
		if t.Datatype != "" && t.Datatype != xsdStringIRI {
			return s + "^^" + g.shorten(t.Datatype)
		}
		return s
	default:
		return g.shorten(t.Value)
	}
}

// TripleLines returns each triple as one Turtle statement line, sorted, so
// the same graph always serializes identically and a triple's line can be
// located in the document by plain substring search.
func (g *Graph) TripleLines() []string {
	lines := make([]string, 0, len(g.Triples))
	for _, tr := range g.Triples {
		lines = append(lines, g.TripleLine(tr))
	}
	sort.Strings(lines)
	return lines
}

// TripleLine renders one triple as a full Turtle statement.
func (g *Graph) TripleLine(tr Triple) string {
	return g.FormatTerm(tr.Subject) + " " + g.FormatTerm(tr.Predicate) + " " + g.FormatTerm(tr.Object) + " ."
}

// Format serializes the graph: prefix directives, a blank line, then one
// sorted statement per line.
func (g *Graph) Format() string {
	var b strings.Builder
	for _, p := range g.Prefixes {
		b.WriteString("@prefix " + p.Label + ": <" + p.IRI + "> .\n")
	}
	if len(g.Prefixes) > 0 {
		b.WriteString("\n")
	}
	for _, line := range g.TripleLines() {
		b.WriteString(line + "\n")
	}
	return b.String()
}

// FormatNoPrefix serializes the statements only, without prefix directives
// and without prefixed-name shortening.
func (g *Graph) FormatNoPrefix() string {
	bare := &Graph{Triples: g.Triples}
	var b strings.Builder
	for _, line := range bare.TripleLines() {
		b.WriteString(line + "\n")
	}
	return b.String()
}
