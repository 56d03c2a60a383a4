package manifest

import (
	"path/filepath"
	"sort"
	"strings"
)

// GraphRef names one input graph: file path plus target graph name, "-" for
// the default graph.
type GraphRef struct {
	Path string
	Name string
}

// Group is a set of tests sharing the same input graphs; the engine is set
// up once per group.
type Group struct {
	Key    string
	Graphs []GraphRef
	Tests  []*Test
}

// Categories in execution order. Service description tests are grouped but
// never run.
var Categories = []string{
	"query", "format", "update", "syntax", "protocol", "graphstoreprotocol", "service",
}

var typeToCategory = map[string]string{
	"QueryEvaluationTest":        "query",
	"CSVResultFormatTest":        "format",
	"UpdateEvaluationTest":       "update",
	"PositiveSyntaxTest11":       "syntax",
	"NegativeSyntaxTest11":       "syntax",
	"PositiveUpdateSyntaxTest11": "syntax",
	"NegativeUpdateSyntaxTest11": "syntax",
	"ProtocolTest":               "protocol",
	"GraphStoreProtocolTest":     "graphstoreprotocol",
	"ServiceDescriptionTest":     "service",
}

// GroupByGraphs buckets tests by category and by their graph-reference set.
// Tests without input data share an empty placeholder graph so the engine
// still gets an index. Groups come back sorted by key, tests in manifest
// order.
func GroupByGraphs(tests []*Test, suiteDir string) map[string][]*Group {
	grouped := make(map[string][]*Group, len(Categories))
	if len(tests) == 0 {
		return grouped
	}
	fallback := GraphRef{Path: filepath.Join(suiteDir, "property-path", "empty.ttl"), Name: "-"}

	byKey := make(map[string]map[string]*Group)
	for _, c := range Categories {
		byKey[c] = make(map[string]*Group)
	}

	for _, t := range tests {
		category, ok := typeToCategory[t.Type]
		if !ok {
			continue
		}
		refs := t.graphRefs(fallback)
		key := groupKey(refs)
		g, ok := byKey[category][key]
		if !ok {
			g = &Group{Key: key, Graphs: refs}
			byKey[category][key] = g
		}
		g.Tests = append(g.Tests, t)
	}

	for _, c := range Categories {
		keys := make([]string, 0, len(byKey[c]))
		for k := range byKey[c] {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			grouped[c] = append(grouped[c], byKey[c][k])
		}
	}
	return grouped
}

// graphRefs collects the test's input graphs: the default-graph data file
// (or the fallback) plus any named graphData entries.
func (t *Test) graphRefs(fallback GraphRef) []GraphRef {
	if t.Action == nil {
		return []GraphRef{fallback}
	}
	var refs []GraphRef
	if data := t.Action.First("data"); data != "" {
		refs = append(refs, GraphRef{Path: data, Name: "-"})
	} else {
		refs = append(refs, fallback)
	}
	refs = append(refs, t.Action.GraphData()...)

	// Deduplicate and order so equal sets group together.
	seen := make(map[GraphRef]struct{}, len(refs))
	unique := refs[:0]
	for _, r := range refs {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		unique = append(unique, r)
	}
	sort.Slice(unique, func(i, j int) bool {
		if unique[i].Path != unique[j].Path {
			return unique[i].Path < unique[j].Path
		}
		return unique[i].Name < unique[j].Name
	})
	return unique
}

// GraphData extracts named-graph references: either nested nodes carrying
// graph and label, or bare file references labeled by their last path
// segment.
func (n *Node) GraphData() []GraphRef {
	if n == nil {
		return nil
	}
	var refs []GraphRef
	for _, v := range n.Fields["graphData"] {
		if v.Node != nil {
			if g := v.Node.First("graph"); g != "" {
				refs = append(refs, GraphRef{Path: g, Name: v.Node.First("label")})
			}
			continue
		}
		if v.Text != "" {
			refs = append(refs, GraphRef{Path: v.Text, Name: lastSegment(v.Text)})
		}
	}
	return refs
}

func lastSegment(s string) string {
	if i := strings.LastIndex(s, "/"); i >= 0 {
		return s[i+1:]
	}
	return s
}

func groupKey(refs []GraphRef) string {
	parts := make([]string, len(refs))
	for i, r := range refs {
		parts[i] = r.Path + "|" + r.Name
	}
	return strings.Join(parts, "\x00")
}
