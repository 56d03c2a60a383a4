// Package manifest loads W3C SPARQL test suite manifests: Turtle documents
// listing test entries, chained together through include lists.
package manifest

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/sparql-conformance/harness/rdfgraph"
)

const (
	nsRDF   = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	nsRDFS  = "http://www.w3.org/2000/01/rdf-schema#"
	nsMF    = "http://www.w3.org/2001/sw/DataAccess/tests/test-manifest#"
	nsDAWGT = "http://www.w3.org/2001/sw/DataAccess/tests/test-dawg#"
	nsSD    = "http://www.w3.org/ns/sparql-service-description#"
)

// Test is one manifest entry.
type Test struct {
	URI      string
	Name     string
	Type     string
	Group    string
	Path     string
	Action   *Node
	Result   *Node
	Approval string
	Approver string
	Comment  string
	Regime   string
	Profile  string
	Features []string
}

// Node is a parsed manifest resource: its predicates keyed by local name,
// each with one or more values.
type Node struct {
	Fields map[string][]Value
}

// Value is either a plain text value (IRI converted to a path, or a literal)
// or a nested node.
type Value struct {
	Text string
	Node *Node
}

// First returns the first text value for the key.
func (n *Node) First(key string) string {
	if n == nil {
		return ""
	}
	for _, v := range n.Fields[key] {
		if v.Node == nil {
			return v.Text
		}
	}
	return ""
}

// Has reports whether the node carries the key at all.
func (n *Node) Has(key string) bool {
	if n == nil {
		return false
	}
	_, ok := n.Fields[key]
	return ok
}

// Filter controls which entries Load keeps. Both lists match a test name or
// its group directory.
type Filter struct {
	Exclude []string
	Include []string
}

func (f Filter) keeps(name, group string) bool {
	for _, x := range f.Exclude {
		if x == name || x == group {
			return false
		}
	}
	if len(f.Include) == 0 {
		return true
	}
	for _, x := range f.Include {
		if x == name || x == group {
			return true
		}
	}
	return false
}

// Load reads the manifest at path and every reachable sub-manifest,
// returning the kept entries in document order.
func Load(path string, filter Filter) ([]*Test, error) {
	visited := make(map[string]struct{})
	return load(path, filter, visited)
}

func load(path string, filter Filter, visited map[string]struct{}) ([]*Test, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve manifest path: %w", err)
	}
	if _, ok := visited[abs]; ok {
		return nil, nil
	}
	visited[abs] = struct{}{}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	src := string(data)
	// Relative IRIs in a manifest resolve against the file's own location.
	if !strings.Contains(src, "@base") && !strings.Contains(src, "BASE") {
		src = "@base <file://" + filepath.Dir(abs) + "/> .\n" + src
	}
	g, err := rdfgraph.ParseTurtle(src)
	if err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", abs, err)
	}
	idx := newIndex(g)

	group := filepath.Base(filepath.Dir(abs))
	testPath := filepath.Dir(abs) + string(filepath.Separator)

	var tests []*Test
	for _, collection := range idx.objects(nsMF+"entries", "") {
		for _, entry := range idx.listItems(collection) {
			t := idx.buildTest(entry, group, testPath)
			if t == nil {
				continue
			}
			if !filter.keeps(t.Name, t.Group) {
				continue
			}
			tests = append(tests, t)
		}
	}

	for _, includeList := range idx.objects(nsMF+"include", "") {
		for _, sub := range idx.listItems(includeList) {
			subPath := filepath.Clean(uriToPath(sub.Value))
			if _, err := os.Stat(subPath); err != nil {
				continue
			}
			subTests, err := load(subPath, filter, visited)
			if err != nil {
				return nil, err
			}
			tests = append(tests, subTests...)
		}
	}
	return tests, nil
}

func (idx *index) buildTest(entry rdfgraph.Term, group, testPath string) *Test {
	typeTerm, ok := idx.value(entry, nsRDF+"type")
	if !ok || typeTerm.Kind != rdfgraph.IRITerm {
		return nil
	}
	t := &Test{
		URI:      entry.Value,
		Name:     idx.text(entry, nsMF+"name"),
		Type:     localName(typeTerm.Value),
		Group:    group,
		Path:     testPath,
		Approval: idx.text(entry, nsDAWGT+"approval"),
		Approver: idx.text(entry, nsDAWGT+"approvedBy"),
		Comment:  idx.text(entry, nsRDFS+"comment"),
		Regime:   idx.text(entry, nsSD+"entailmentRegime"),
		Profile:  idx.text(entry, nsSD+"entailmentProfile"),
	}
	for _, f := range idx.objectsOf(entry, nsMF+"feature") {
		if f.Kind == rdfgraph.IRITerm {
			t.Features = append(t.Features, f.Value)
		}
	}
	if action, ok := idx.value(entry, nsMF+"action"); ok {
		t.Action = idx.parseNode(action)
		if t.Action == nil {
			// A bare IRI action is the query itself.
			t.Action = &Node{Fields: map[string][]Value{"query": {{Text: uriToPath(action.Value)}}}}
		}
	}
	if result, ok := idx.value(entry, nsMF+"result"); ok {
		t.Result = idx.parseNode(result)
		if t.Result == nil {
			t.Result = &Node{Fields: map[string][]Value{"data": {{Text: uriToPath(result.Value)}}}}
		}
	}
	return t
}

// parseNode converts a resource with properties into a Node; a plain IRI or
// literal yields nil so the caller can decide its meaning.
func (idx *index) parseNode(term rdfgraph.Term) *Node {
	props := idx.properties(term)
	if len(props) == 0 {
		return nil
	}
	node := &Node{Fields: make(map[string][]Value)}
	for _, tr := range props {
		key := localName(tr.Predicate.Value)
		// Protocol manifests use mf:request where others use mf:action
		// sub-properties.
		if key == "request" {
			key = "query"
		}
		var v Value
		if nested := idx.parseNode(tr.Object); nested != nil {
			v = Value{Node: nested}
		} else {
			v = Value{Text: uriToPath(termText(tr.Object))}
		}
		node.Fields[key] = append(node.Fields[key], v)
	}
	return node
}

func termText(t rdfgraph.Term) string {
	if t.Kind == rdfgraph.BlankTerm {
		return "_:" + t.Value
	}
	return t.Value
}

// localName is the IRI fragment, or the last path segment without one.
func localName(uri string) string {
	if i := strings.LastIndex(uri, "#"); i >= 0 {
		return uri[i+1:]
	}
	if i := strings.LastIndex(uri, "/"); i >= 0 {
		return uri[i+1:]
	}
	return uri
}

// uriToPath converts a file IRI to a filesystem path; anything else passes
// through.
func uriToPath(uri string) string {
	if !strings.HasPrefix(uri, "file://") {
		return uri
	}
	u, err := url.Parse(uri)
	if err != nil {
		return strings.TrimPrefix(uri, "file://")
	}
	path, err := url.PathUnescape(u.Path)
	if err != nil {
		return u.Path
	}
	return path
}

// --- triple index ---

type index struct {
	bySubject map[string][]rdfgraph.Triple
	all       []rdfgraph.Triple
}

func newIndex(g *rdfgraph.Graph) *index {
	idx := &index{bySubject: make(map[string][]rdfgraph.Triple), all: g.Triples}
	for _, tr := range g.Triples {
		key := termText(tr.Subject)
		idx.bySubject[key] = append(idx.bySubject[key], tr)
	}
	return idx
}

func (idx *index) properties(subject rdfgraph.Term) []rdfgraph.Triple {
	if subject.Kind == rdfgraph.LiteralTerm {
		return nil
	}
	var props []rdfgraph.Triple
	for _, tr := range idx.bySubject[termText(subject)] {
		// List plumbing is walked separately.
		if tr.Predicate.Value == nsRDF+"first" || tr.Predicate.Value == nsRDF+"rest" {
			return nil
		}
		props = append(props, tr)
	}
	return props
}

// objects returns every object of the predicate; subject "" matches any.
func (idx *index) objects(predicate, subject string) []rdfgraph.Term {
	var out []rdfgraph.Term
	for _, tr := range idx.all {
		if tr.Predicate.Value != predicate {
			continue
		}
		if subject != "" && termText(tr.Subject) != subject {
			continue
		}
		out = append(out, tr.Object)
	}
	return out
}

func (idx *index) objectsOf(subject rdfgraph.Term, predicate string) []rdfgraph.Term {
	var out []rdfgraph.Term
	for _, tr := range idx.bySubject[termText(subject)] {
		if tr.Predicate.Value == predicate {
			out = append(out, tr.Object)
		}
	}
	return out
}

func (idx *index) value(subject rdfgraph.Term, predicate string) (rdfgraph.Term, bool) {
	objs := idx.objectsOf(subject, predicate)
	if len(objs) == 0 {
		return rdfgraph.Term{}, false
	}
	return objs[0], true
}

func (idx *index) text(subject rdfgraph.Term, predicate string) string {
	t, ok := idx.value(subject, predicate)
	if !ok {
		return ""
	}
	return t.Value
}

// listItems walks an RDF collection.
func (idx *index) listItems(head rdfgraph.Term) []rdfgraph.Term {
	var items []rdfgraph.Term
	seen := make(map[string]struct{})
	for {
		key := termText(head)
		if key == nsRDF+"nil" {
			break
		}
		if _, ok := seen[key]; ok {
			break
		}
		seen[key] = struct{}{}
		first, ok := idx.value(head, nsRDF+"first")
		if !ok {
			break
		}
		items = append(items, first)
		rest, ok := idx.value(head, nsRDF+"rest")
		if !ok {
			break
		}
		head = rest
	}
	return items
}
