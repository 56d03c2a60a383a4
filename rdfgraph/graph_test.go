package rdfgraph

import (
	"reflect"
	"strings"
	"testing"
)

func iri(v string) Term     { return Term{Kind: IRITerm, Value: v} }
func blank(v string) Term   { return Term{Kind: BlankTerm, Value: v} }
func literal(v string) Term { return Term{Kind: LiteralTerm, Value: v} }

func TestDifference(t *testing.T) {
	g1 := &Graph{Triples: []Triple{
		{iri("http://s"), iri("http://p"), literal("a")},
		{iri("http://s"), iri("http://p"), literal("b")},
	}}
	g2 := &Graph{Triples: []Triple{
		{iri("http://s"), iri("http://p"), literal("a")},
	}}
	diff := g1.Difference(g2)
	if len(diff.Triples) != 1 || diff.Triples[0].Object.Value != "b" {
		t.Fatalf("diff = %+v", diff.Triples)
	}
	if len(g2.Difference(g1).Triples) != 0 {
		t.Fatalf("reverse diff must be empty")
	}
}

func TestDifferenceBlankLabelsLiteral(t *testing.T) {
	g1 := &Graph{Triples: []Triple{{blank("a"), iri("http://p"), literal("x")}}}
	g2 := &Graph{Triples: []Triple{{blank("b"), iri("http://p"), literal("x")}}}
	if len(g1.Difference(g2).Triples) != 1 {
		t.Fatalf("differently labeled blank nodes are different triples in a set diff")
	}
}

func TestFormatTermShortening(t *testing.T) {
	g := &Graph{Prefixes: []Prefix{{Label: "ex", IRI: "http://example.org/"}}}
	if got := g.FormatTerm(iri("http://example.org/thing")); got != "ex:thing" {
		t.Fatalf("FormatTerm = %q, want ex:thing", got)
	}
	if got := g.FormatTerm(iri("http://example.org/a/b")); got != "<http://example.org/a/b>" {
		t.Fatalf("slash in local part must not be shortened, got %q", got)
	}
	if got := g.FormatTerm(iri("http://other.org/x")); got != "<http://other.org/x>" {
		t.Fatalf("FormatTerm = %q", got)
	}
}

func TestFormatTermLiteral(t *testing.T) {
	g := &Graph{}
	cases := []struct {
		term Term
		want string
	}{
		{literal("hi"), `"hi"`},
		{Term{Kind: LiteralTerm, Value: "hi", Lang: "en"}, `"hi"@en`},
		{Term{Kind: LiteralTerm, Value: "5", Datatype: "http://www.w3.org/2001/XMLSchema#integer"},
			`"5"^^<http://www.w3.org/2001/XMLSchema#integer>`},
		{Term{Kind: LiteralTerm, Value: "s", Datatype: "http://www.w3.org/2001/XMLSchema#string"}, `"s"`},
		{literal("a\"b\nc"), `"a\"b\nc"`},
	}
	for _, c := range cases {
		if got := g.FormatTerm(c.term); got != c.want {
			t.Fatalf("FormatTerm(%+v) = %q, want %q", c.term, got, c.want)
		}
	}
}

func TestTripleLinesSorted(t *testing.T) {
	g := &Graph{Triples: []Triple{
		{iri("http://s"), iri("http://p"), literal("b")},
		{iri("http://s"), iri("http://p"), literal("a")},
	}}
	lines := g.TripleLines()
	want := []string{
		`<http://s> <http://p> "a" .`,
		`<http://s> <http://p> "b" .`,
	}
	if !reflect.DeepEqual(lines, want) {
		t.Fatalf("lines = %v", lines)
	}
	for _, line := range lines {
		if !strings.Contains(g.Format(), line) {
			t.Fatalf("statement %q must appear verbatim in Format output", line)
		}
	}
}

func TestFormatPrefixHeader(t *testing.T) {
	g := &Graph{
		Prefixes: []Prefix{{Label: "ex", IRI: "http://example.org/"}},
		Triples:  []Triple{{iri("http://example.org/s"), iri("http://example.org/p"), literal("v")}},
	}
	out := g.Format()
	if !strings.HasPrefix(out, "@prefix ex: <http://example.org/> .\n\n") {
		t.Fatalf("Format output:\n%s", out)
	}
	if !strings.Contains(out, `ex:s ex:p "v" .`) {
		t.Fatalf("Format output:\n%s", out)
	}
	if strings.Contains(g.FormatNoPrefix(), "ex:") {
		t.Fatalf("FormatNoPrefix must not shorten:\n%s", g.FormatNoPrefix())
	}
}
