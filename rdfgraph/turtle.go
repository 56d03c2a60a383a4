package rdfgraph

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/knakk/rdf"
)

var prefixDirective = regexp.MustCompile(`(?i)^\s*(?:@prefix|prefix)\s+([^:\s]*):\s*<([^>]*)>`)

// ParseTurtle parses a Turtle document. The prefix table is taken from the
// document's own directives, one per line, so serialized diffs keep the
// source's namespace names.
func ParseTurtle(src string) (*Graph, error) {
	dec := rdf.NewTripleDecoder(strings.NewReader(src), rdf.Turtle)
	triples, err := dec.DecodeAll()
	if err != nil {
		return nil, fmt.Errorf("parse turtle: %w", err)
	}
	g := &Graph{}
	for _, tr := range triples {
		g.Triples = append(g.Triples, Triple{
			Subject:   fromRDFTerm(tr.Subj),
			Predicate: fromRDFTerm(tr.Pred),
			Object:    fromRDFTerm(tr.Obj),
		})
	}
	for _, line := range strings.Split(src, "\n") {
		if m := prefixDirective.FindStringSubmatch(line); m != nil {
			g.Prefixes = append(g.Prefixes, Prefix{Label: m[1], IRI: m[2]})
		}
	}
	return g, nil
}

func fromRDFTerm(t rdf.Term) Term {
	switch t := t.(type) {
	case rdf.Blank:
		return Term{Kind: BlankTerm, Value: strings.TrimPrefix(t.String(), "_:")}
	case rdf.Literal:
		out := Term{Kind: LiteralTerm, Value: t.String()}
		if lang := t.Lang(); lang != "" {
			out.Lang = lang
		} else {
			out.Datatype = t.DataType.String()
		}
		return out
	default:
		return Term{Kind: IRITerm, Value: t.String()}
	}
}
