// Package suite orchestrates a conformance run: per-group engine setup,
// test execution and classification, and the compressed result archive.
package suite

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/sparql-conformance/harness/manifest"
	"github.com/sparql-conformance/harness/verdict"
)

// NamedGraph is one labeled graph payload; order matters because update
// evaluation aligns expected and actual graph states positionally.
type NamedGraph struct {
	Label   string
	Content string
}

// TestCase is one manifest entry plus everything its run produced.
type TestCase struct {
	Meta *manifest.Test

	Query        string
	Graph        string
	QueryFile    string
	GraphFile    string
	IndexFiles   []NamedGraph
	Result       string
	ResultFormat string
	ResultFile   string
	ResultFiles  []NamedGraph

	Status verdict.Status
	Kind   verdict.ErrorKind

	ExpectedHTML string
	GotHTML      string
	ExpectedRed  string
	GotRed       string

	IndexLog          string
	ServerLog         string
	ServerStatus      string
	QueryResult       string
	QueryAnswer       string
	QueryLog          string
	QuerySent         string
	Protocol          string
	ProtocolSent      string
	ResponseExtracted string
	Response          string
}

// NewTestCase resolves the entry's file references and loads their contents.
// Missing files read as empty, matching how absent expectations behave.
func NewTestCase(t *manifest.Test) *TestCase {
	tc := &TestCase{Meta: t, Status: verdict.NotTested}

	if t.Action != nil {
		tc.Query = localFileName(t.Action.First("query"))
		tc.Graph = localFileName(t.Action.First("data"))
		tc.QueryFile = readFileOrEmpty(filepath.Join(t.Path, tc.Query))
		tc.GraphFile = readFileOrEmpty(filepath.Join(t.Path, tc.Graph))
		tc.IndexFiles = loadGraphData(t.Action)
	}
	if t.Result != nil {
		tc.Result = localFileName(t.Result.First("data"))
		if i := strings.LastIndex(tc.Result, "."); i >= 0 {
			tc.ResultFormat = tc.Result[i+1:]
		}
		tc.ResultFile = readFileOrEmpty(filepath.Join(t.Path, tc.Result))
		tc.ResultFiles = loadGraphData(t.Result)
	}
	return tc
}

func loadGraphData(n *manifest.Node) []NamedGraph {
	var graphs []NamedGraph
	for _, ref := range n.GraphData() {
		label := ref.Name
		if label == "" {
			label = lastPathSegment(ref.Path)
		}
		graphs = append(graphs, NamedGraph{Label: label, Content: readFileOrEmpty(ref.Path)})
	}
	return graphs
}

func localFileName(uri string) string {
	if uri == "" {
		return ""
	}
	if i := strings.LastIndex(uri, "#"); i >= 0 {
		return uri[i+1:]
	}
	return lastPathSegment(uri)
}

func lastPathSegment(s string) string {
	if i := strings.LastIndex(s, "/"); i >= 0 {
		return s[i+1:]
	}
	return s
}

func readFileOrEmpty(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return string(data)
}

func (tc *TestCase) setStatus(status verdict.Status, kind verdict.ErrorKind) {
	tc.Status = status
	tc.Kind = kind
}
