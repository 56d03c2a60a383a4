package compare

import (
	"sort"
	"strings"

	"github.com/beevik/etree"

	"github.com/sparql-conformance/harness/verdict"
)

const xsdString = "http://www.w3.org/2001/XMLSchema#string"

// xmlNode is a namespace-stripped view of one element: tag, attributes, text,
// trailing text (tail) and child elements. Comparison and element removal
// operate on this model; etree is only used to parse and pretty-print.
type xmlNode struct {
	tag      string
	attrs    map[string]string
	text     string
	tail     string
	children []*xmlNode
}

// XML compares two SPARQL results XML payloads.
//
// The actual payload is pretty-printed first, namespaces are stripped, then
// <head> children are reconciled strictly and <result> elements in two
// passes. Equality of elements covers tag, attributes (with the xsd:string
// default-datatype rule and case-insensitive xml:lang), text (blank-node
// labels via the shared bijection, numeric text for numeric datatypes),
// whitespace-normalized tails and recursive child matching.
func XML(expectedPayload, actualPayload string, aliases AliasTable, numTypes NumericTypes) verdict.Outcome {
	out := verdict.FailedOutcome()

	prettyActual, err := prettyXML(actualPayload)
	if err != nil {
		out.Kind = verdict.FormatError
		out.Expected = escapeHTML(expectedPayload)
		out.Actual = wrapLabel("red", escapeHTML(actualPayload))
		out.ActualR = wrapLabel("red", escapeHTML(err.Error()))
		return out
	}
	expectedTree, err := parseXMLTree(expectedPayload)
	if err != nil {
		out.Kind = verdict.FormatError
		out.Expected = wrapLabel("red", escapeHTML(expectedPayload))
		out.Actual = escapeHTML(prettyActual)
		out.ExpectedR = wrapLabel("red", escapeHTML(err.Error()))
		return out
	}
	actualTree, err := parseXMLTree(prettyActual)
	if err != nil {
		out.Kind = verdict.FormatError
		out.Expected = escapeHTML(expectedPayload)
		out.Actual = wrapLabel("red", escapeHTML(actualPayload))
		out.ActualR = wrapLabel("red", escapeHTML(err.Error()))
		return out
	}

	fullExpected := expectedTree.clone()
	fullActual := actualTree.clone()
	bnodes := NewBNodeMap()

	head1 := expectedTree.findFirst("head")
	head2 := actualTree.findFirst("head")
	if head1 != nil && head2 != nil {
		removeEqualChildren(head1, head2, false, nil, numTypes, bnodes)
	}

	bool1 := expectedTree.findFirst("boolean")
	bool2 := actualTree.findFirst("boolean")
	if bool1 != nil && bool2 != nil && bool1.text == bool2.text {
		expectedTree.removeDescendant(bool1)
		actualTree.removeDescendant(bool2)
		bool1, bool2 = nil, nil
	}

	results1 := expectedTree.findFirst("results")
	results2 := actualTree.findFirst("results")
	if results1 != nil && results2 != nil {
		removeEqualChildren(results1, results2, false, nil, numTypes, bnodes)
	}

	// Snapshot after the strict pass: what the full render highlights.
	remainingExpected := expectedTree.clone()
	remainingActual := actualTree.clone()

	emptyHeads := nodeEmpty(head1) && nodeEmpty(head2)
	switch {
	case results1 != nil && results2 != nil && nodeEmpty(results1) && nodeEmpty(results2) && emptyHeads:
		out.Status = verdict.Passed
		out.Kind = ""
	case results1 == nil && results2 == nil && head1 == nil && head2 == nil && bool1 == nil && bool2 == nil:
		out.Status = verdict.Passed
		out.Kind = ""
	default:
		if results1 != nil && results2 != nil {
			removeEqualChildren(results1, results2, true, aliases, numTypes, bnodes)
			if nodeEmpty(results1) && nodeEmpty(results2) {
				out.Status = verdict.Intended
				out.Kind = verdict.IntendedBehaviour
			}
		} else if bool1 == nil && bool2 == nil {
			out.Status = verdict.Passed
			out.Kind = ""
		}
	}

	// The mutated trees now hold only what even the lenient pass could not
	// match: the red set.
	out.Expected = highlightXML(fullExpected, remainingExpected, expectedTree, numTypes)
	out.Actual = highlightXML(fullActual, remainingActual, actualTree, numTypes)
	out.ExpectedR = highlightXML(remainingExpected, remainingExpected, expectedTree, numTypes)
	out.ActualR = highlightXML(remainingActual, remainingActual, actualTree, numTypes)
	return out
}

// xmlElementsEqual ports the element equivalence rules used for <result>
// reconciliation. The alias table applies only on the lenient pass.
func xmlElementsEqual(e1, e2 *xmlNode, lenient bool, aliases AliasTable, numTypes NumericTypes, bnodes *BNodeMap) bool {
	if len(e1.children) != len(e2.children) {
		return false
	}
	if e1.tag != e2.tag {
		if !lenient || !aliases.Matches(e1.tag, e2.tag) {
			return false
		}
	}

	if !attrsEqual(e1.attrs, e2.attrs) {
		dt1, hasDT1 := e1.attrs["datatype"]
		dt2, hasDT2 := e2.attrs["datatype"]
		// One side without a datatype matches the other side's explicit
		// xsd:string; otherwise the attribute sets must reconcile below.
		stringDefault := (!hasDT1 && dt2 == xsdString) || (!hasDT2 && dt1 == xsdString)
		if !stringDefault {
			if !hasDT1 && !hasDT2 {
				lang1, ok1 := e1.attrs["xml:lang"]
				lang2, ok2 := e2.attrs["xml:lang"]
				if !ok1 || !ok2 || !strings.EqualFold(lang1, lang2) {
					return false
				}
			} else if !lenient || !aliases.Matches(dt1, dt2) {
				return false
			}
		}
	}

	isNum1 := numTypes.Contains(e1.attrs["datatype"])
	isNum2 := numTypes.Contains(e2.attrs["datatype"])
	if isNum1 != isNum2 {
		return false
	}
	isNum := isNum1 && isNum2

	t1, t2 := strings.TrimSpace(e1.tail), strings.TrimSpace(e2.tail)
	if e1.tail != "" && e2.tail != "" && t1 != t2 {
		return false
	}

	if e1.text != e2.text {
		switch {
		case e1.tag == "bnode":
			if !bnodes.Bind(e1.text, e2.text) {
				return false
			}
		case strings.TrimSpace(e1.text) == strings.TrimSpace(e2.text):
		case isNum && numericEqual(e1.text, e2.text):
		case lenient && aliases.Matches(e1.text, e2.text):
		default:
			return false
		}
	}

	for _, c1 := range e1.children {
		matched := false
		for _, c2 := range e2.children {
			if xmlElementsEqual(c1, c2, lenient, aliases, numTypes, bnodes) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

// removeEqualChildren drops pairwise-equal children from both parents,
// first match wins.
func removeEqualChildren(p1, p2 *xmlNode, lenient bool, aliases AliasTable, numTypes NumericTypes, bnodes *BNodeMap) {
	for _, c1 := range append([]*xmlNode(nil), p1.children...) {
		for _, c2 := range append([]*xmlNode(nil), p2.children...) {
			if xmlElementsEqual(c1, c2, lenient, aliases, numTypes, bnodes) {
				p1.removeChild(c1)
				p2.removeChild(c2)
				break
			}
		}
	}
}

func attrsEqual(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

func nodeEmpty(n *xmlNode) bool {
	return n == nil || len(n.children) == 0
}

// --- tree construction ---

func prettyXML(payload string) (string, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(payload); err != nil {
		return "", err
	}
	doc.Indent(2)
	return doc.WriteToString()
}

func parseXMLTree(payload string) (*xmlNode, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(payload); err != nil {
		return nil, err
	}
	root := doc.Root()
	if root == nil {
		return &xmlNode{tag: ""}, nil
	}
	return fromEtree(root), nil
}

func fromEtree(el *etree.Element) *xmlNode {
	n := &xmlNode{tag: el.Tag, attrs: make(map[string]string), text: el.Text()}
	for _, a := range el.Attr {
		if a.Space == "xmlns" || (a.Space == "" && a.Key == "xmlns") {
			continue
		}
		key := a.Key
		if a.Space != "" {
			key = a.Space + ":" + a.Key
		}
		n.attrs[key] = a.Value
	}
	for _, c := range el.ChildElements() {
		child := fromEtree(c)
		child.tail = tailOf(el, c)
		n.children = append(n.children, child)
	}
	return n
}

// tailOf returns the character data directly following child inside parent.
func tailOf(parent, child *etree.Element) string {
	for i, tok := range parent.Child {
		if el, ok := tok.(*etree.Element); ok && el == child {
			if i+1 < len(parent.Child) {
				if cd, ok := parent.Child[i+1].(*etree.CharData); ok {
					return cd.Data
				}
			}
			return ""
		}
	}
	return ""
}

func (n *xmlNode) clone() *xmlNode {
	c := &xmlNode{tag: n.tag, text: n.text, tail: n.tail, attrs: make(map[string]string, len(n.attrs))}
	for k, v := range n.attrs {
		c.attrs[k] = v
	}
	for _, child := range n.children {
		c.children = append(c.children, child.clone())
	}
	return c
}

func (n *xmlNode) findFirst(tag string) *xmlNode {
	for _, c := range n.children {
		if c.tag == tag {
			return c
		}
		if found := c.findFirst(tag); found != nil {
			return found
		}
	}
	return nil
}

func (n *xmlNode) findAll(tag string, into []*xmlNode) []*xmlNode {
	for _, c := range n.children {
		if c.tag == tag {
			into = append(into, c)
		}
		into = c.findAll(tag, into)
	}
	return into
}

func (n *xmlNode) removeChild(child *xmlNode) {
	for i, c := range n.children {
		if c == child {
			n.children = append(n.children[:i], n.children[i+1:]...)
			return
		}
	}
}

func (n *xmlNode) removeDescendant(target *xmlNode) bool {
	for _, c := range n.children {
		if c == target {
			n.removeChild(target)
			return true
		}
		if c.removeDescendant(target) {
			return true
		}
	}
	return false
}

// --- rendering ---

func xmlEscape(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}

// serialize writes the node in a canonical open/close-tag form so that an
// element's serialization is an exact substring of its document's
// serialization, which is what makes first-occurrence highlighting reliable.
func (n *xmlNode) serialize(b *strings.Builder) {
	b.WriteString("<" + n.tag)
	keys := make([]string, 0, len(n.attrs))
	for k := range n.attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString(" " + k + `="` + xmlEscape(n.attrs[k]) + `"`)
	}
	b.WriteString(">")
	b.WriteString(xmlEscape(n.text))
	for _, c := range n.children {
		c.serialize(b)
		b.WriteString(xmlEscape(c.tail))
	}
	b.WriteString("</" + n.tag + ">")
}

func serializeTree(n *xmlNode) string {
	var b strings.Builder
	n.serialize(&b)
	return b.String()
}

// highlightXML renders the base tree and wraps the remaining head variables
// (red), boolean (red) and result elements (yellow, or red when even the
// lenient pass left them in the red tree) in labels.
func highlightXML(base, remaining, red *xmlNode, numTypes NumericTypes) string {
	escaped := escapeHTML(serializeTree(base))

	var variables []*xmlNode
	for _, head := range remaining.findAll("head", nil) {
		for _, c := range head.children {
			if c.tag == "variable" {
				variables = append(variables, c)
			}
		}
	}
	for _, v := range variables {
		escaped = highlightFirstOccurrence(escaped, escapeHTML(serializeTree(v)), "red")
	}

	if boolNode := remaining.findFirst("boolean"); boolNode != nil {
		escaped = highlightFirstOccurrence(escaped, escapeHTML(serializeTree(boolNode)), "red")
	}

	redResults := red.findAll("result", nil)
	for _, result := range remaining.findAll("result", nil) {
		label := "yellow"
		for _, redResult := range redResults {
			if xmlElementsEqual(result, redResult, false, nil, numTypes, NewBNodeMap()) {
				label = "red"
				break
			}
		}
		escaped = highlightFirstOccurrence(escaped, escapeHTML(serializeTree(result)), label)
	}
	return escaped
}
