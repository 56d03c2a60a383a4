package rdfgraph

import "testing"

func TestParseTurtle(t *testing.T) {
	src := `@prefix ex: <http://example.org/> .
@prefix xsd: <http://www.w3.org/2001/XMLSchema#> .

ex:a ex:p "plain" .
ex:a ex:q "tagged"@en .
ex:a ex:r "5"^^xsd:integer .
_:b ex:p ex:a .
`
	g, err := ParseTurtle(src)
	if err != nil {
		t.Fatalf("ParseTurtle: %v", err)
	}
	if len(g.Triples) != 4 {
		t.Fatalf("got %d triples", len(g.Triples))
	}
	if len(g.Prefixes) != 2 || g.Prefixes[0].Label != "ex" || g.Prefixes[0].IRI != "http://example.org/" {
		t.Fatalf("prefixes = %+v", g.Prefixes)
	}

	var lang, typed, blank bool
	for _, tr := range g.Triples {
		if tr.Object.Kind == LiteralTerm && tr.Object.Lang == "en" {
			lang = true
		}
		if tr.Object.Kind == LiteralTerm && tr.Object.Datatype == "http://www.w3.org/2001/XMLSchema#integer" {
			typed = true
		}
		if tr.Subject.Kind == BlankTerm {
			blank = true
		}
	}
	if !lang || !typed || !blank {
		t.Fatalf("term details lost: lang=%v typed=%v blank=%v", lang, typed, blank)
	}
}

func TestParseTurtleError(t *testing.T) {
	if _, err := ParseTurtle("<http://s> <http://p>"); err == nil {
		t.Fatalf("truncated statement must error")
	}
}
