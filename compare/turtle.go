package compare

import (
	"github.com/sparql-conformance/harness/rdfgraph"
	"github.com/sparql-conformance/harness/verdict"
)

// Some suite expectation files rely on these namespaces without declaring
// them; a first parse failure gets one retry with them injected.
const impliedPrefixes = "@prefix foaf: <http://xmlns.com/foaf/0.1/> .\n" +
	"@prefix v: <http://www.w3.org/2006/vcard/ns#> .\n\n"

// Turtle compares two Turtle payloads by graph isomorphism.
//
// An unparseable expectation means the test cannot be judged (NotTested); an
// unparseable actual payload is a failure. Non-isomorphic graphs get a
// both-way triple diff: diff lines are highlighted red in the full renders,
// and the red variants carry the bare diff statements.
func Turtle(expectedPayload, actualPayload string) verdict.Outcome {
	out := verdict.FailedOutcome()

	expectedGraph, err := rdfgraph.ParseTurtle(expectedPayload)
	if err != nil {
		expectedPayload = impliedPrefixes + expectedPayload
		expectedGraph, err = rdfgraph.ParseTurtle(expectedPayload)
		if err != nil {
			out.Status = verdict.NotTested
			out.Kind = verdict.FormatError
			out.Expected = wrapLabel("red", escapeHTML(expectedPayload))
			out.Actual = escapeHTML(actualPayload)
			out.ExpectedR = wrapLabel("red", escapeHTML(err.Error()))
			out.ActualR = escapeHTML(actualPayload)
			return out
		}
	}

	actualGraph, err := rdfgraph.ParseTurtle(actualPayload)
	if err != nil {
		out.Kind = verdict.FormatError
		out.Expected = escapeHTML(expectedPayload)
		out.Actual = wrapLabel("red", escapeHTML(actualPayload))
		out.ExpectedR = wrapLabel("red", escapeHTML(expectedPayload))
		out.ActualR = wrapLabel("red", escapeHTML(err.Error()))
		return out
	}

	if expectedGraph.Isomorphic(actualGraph) {
		out.Status = verdict.Passed
		out.Kind = ""
		out.Expected = escapeHTML(expectedPayload)
		out.Actual = escapeHTML(actualPayload)
		return out
	}

	missing := expectedGraph.Difference(actualGraph)
	surplus := actualGraph.Difference(expectedGraph)

	out.Expected = highlightTurtle(expectedGraph, missing)
	out.Actual = highlightTurtle(actualGraph, surplus)
	out.ExpectedR = wrapLabel("red", escapeHTML(missing.FormatNoPrefix()))
	out.ActualR = wrapLabel("red", escapeHTML(surplus.FormatNoPrefix()))
	return out
}

// highlightTurtle serializes the graph and wraps each diff triple's
// statement line in a red label. Serialization is one statement per line, so
// a triple's rendering is always an exact substring of the document.
func highlightTurtle(g, diff *rdfgraph.Graph) string {
	escaped := escapeHTML(g.Format())
	for _, tr := range diff.Triples {
		escaped = highlightFirstOccurrence(escaped, escapeHTML(g.TripleLine(tr)), "red")
	}
	return escaped
}
