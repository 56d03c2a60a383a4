package compare

import (
	"strings"
	"testing"

	"github.com/sparql-conformance/harness/verdict"
)

func TestTurtleIdentical(t *testing.T) {
	doc := "<http://example.org/s> <http://example.org/p> \"v\" .\n"
	out := Turtle(doc, doc)
	if out.Status != verdict.Passed {
		t.Fatalf("status = %q, want Passed", out.Status)
	}
	if out.ExpectedR != "" || out.ActualR != "" {
		t.Fatalf("passing comparison must leave no residual")
	}
}

func TestTurtleBlankRelabeling(t *testing.T) {
	expected := "_:a <http://example.org/p> \"v\" .\n_:a <http://example.org/q> _:b .\n"
	actual := "_:n1 <http://example.org/p> \"v\" .\n_:n1 <http://example.org/q> _:n2 .\n"
	out := Turtle(expected, actual)
	if out.Status != verdict.Passed {
		t.Fatalf("relabeled blank nodes must pass, got %q", out.Status)
	}
}

func TestTurtleDifference(t *testing.T) {
	expected := "<http://example.org/s> <http://example.org/p> \"a\" .\n"
	actual := "<http://example.org/s> <http://example.org/p> \"b\" .\n"
	out := Turtle(expected, actual)
	if out.Status != verdict.Failed {
		t.Fatalf("status = %q, want Failed", out.Status)
	}
	if !strings.Contains(out.Expected, `<label class="red">`) {
		t.Fatalf("missing triple must be red:\n%s", out.Expected)
	}
	if !strings.Contains(out.ActualR, `&quot;b&quot;`) {
		t.Fatalf("actual residual must carry the surplus triple:\n%s", out.ActualR)
	}
}

func TestTurtleUnparseableExpected(t *testing.T) {
	out := Turtle("<http://s> <http://p>", "<http://s> <http://p> <http://o> .")
	if out.Status != verdict.NotTested {
		t.Fatalf("status = %q, want NotTested", out.Status)
	}
	if out.Kind != verdict.FormatError {
		t.Fatalf("kind = %q", out.Kind)
	}
}

func TestTurtleUnparseableActual(t *testing.T) {
	out := Turtle("<http://s> <http://p> <http://o> .", "not turtle at all <<<")
	if out.Status != verdict.Failed || out.Kind != verdict.FormatError {
		t.Fatalf("status/kind = %q/%q", out.Status, out.Kind)
	}
}

func TestTurtleImpliedPrefixes(t *testing.T) {
	expected := "<http://example.org/s> foaf:name \"Alice\" .\n"
	actual := "<http://example.org/s> <http://xmlns.com/foaf/0.1/name> \"Alice\" .\n"
	out := Turtle(expected, actual)
	if out.Status != verdict.Passed {
		t.Fatalf("undeclared foaf prefix must be recovered, got %q", out.Status)
	}
}
