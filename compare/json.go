package compare

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/sparql-conformance/harness/verdict"
)

// Binding is one row of a SPARQL results JSON "bindings" array: a variable
// name mapped to a {type, value, datatype?, xml:lang?} sub-object.
type Binding = map[string]any

// JSON compares two SPARQL results JSON payloads.
//
// Shared head.vars entries are removed from both sides first. Boolean results
// compare directly. Bindings are reconciled as a bag, with blank-node
// sub-values resolved through a shared BNodeMap and numeric-typed sub-values
// compared as floats. The rendered HTML marks strict-pass residual bindings
// yellow and lenient-pass residual bindings red.
func JSON(expectedPayload, actualPayload string, aliases AliasTable, numTypes NumericTypes) verdict.Outcome {
	out := verdict.FailedOutcome()

	var expected, actual map[string]any
	if err := json.Unmarshal([]byte(expectedPayload), &expected); err != nil {
		out.Kind = verdict.FormatError
		out.Expected = wrapLabel("red", escapeHTML(expectedPayload))
		out.Actual = escapeHTML(actualPayload)
		out.ExpectedR = wrapLabel("red", escapeHTML(err.Error()))
		return out
	}
	if err := json.Unmarshal([]byte(actualPayload), &actual); err != nil {
		out.Kind = verdict.FormatError
		out.Expected = escapeHTML(expectedPayload)
		out.Actual = wrapLabel("red", escapeHTML(actualPayload))
		out.ActualR = wrapLabel("red", escapeHTML(err.Error()))
		return out
	}

	bnodes := NewBNodeMap()

	vars1 := headVars(expected)
	vars2 := headVars(actual)
	uniqueVars1 := diffPreservingOrder(vars1, vars2)
	uniqueVars2 := diffPreservingOrder(vars2, vars1)

	if resultsOf(expected) == nil || resultsOf(actual) == nil {
		return compareJSONBoolean(expected, actual, uniqueVars1, uniqueVars2, out)
	}

	bindings1 := bindingsOf(expected)
	bindings2 := bindingsOf(actual)

	strict1, strict2, red1, red2 := TwoPass(bindings1, bindings2,
		func(a, b Binding, lenient bool) bool {
			return bindingsEqual(a, b, lenient, aliases, numTypes, bnodes)
		})

	remaining1 := remainingJSON(expected, uniqueVars1, strict1)
	remaining2 := remainingJSON(actual, uniqueVars2, strict2)

	switch {
	case len(strict1) == 0 && len(strict2) == 0 && len(uniqueVars1) == 0 && len(uniqueVars2) == 0:
		out.Status = verdict.Passed
		out.Kind = ""
	case len(red1) == 0 && len(red2) == 0:
		out.Status = verdict.Intended
		out.Kind = verdict.IntendedBehaviour
	}

	out.Expected = renderJSON(expected, remaining1, red1, 0)
	out.Actual = renderJSON(actual, remaining2, red2, 0)
	out.ExpectedR = renderJSON(remaining1, remaining1, red1, 0)
	out.ActualR = renderJSON(remaining2, remaining2, red2, 0)
	return out
}

func compareJSONBoolean(expected, actual map[string]any, uniqueVars1, uniqueVars2 []any, out verdict.Outcome) verdict.Outcome {
	b1, ok1 := expected["boolean"]
	b2, ok2 := actual["boolean"]
	remaining1 := remainingJSON(expected, uniqueVars1, nil)
	remaining2 := remainingJSON(actual, uniqueVars2, nil)
	if ok1 && ok2 && fmt.Sprint(b1) == fmt.Sprint(b2) {
		delete(remaining1, "boolean")
		delete(remaining2, "boolean")
		out.Status = verdict.Passed
		out.Kind = ""
	}
	out.Expected = renderJSON(expected, remaining1, nil, 0)
	out.Actual = renderJSON(actual, remaining2, nil, 0)
	out.ExpectedR = renderJSON(remaining1, remaining1, nil, 0)
	out.ActualR = renderJSON(remaining2, remaining2, nil, 0)
	return out
}

// bindingsEqual compares two binding rows. Both must bind the same variables.
// Sub-object fields must be identical except: bnode values go through the
// shared bijection, numeric-typed values compare as floats, and on the
// lenient pass differing fields may be alias pairs.
func bindingsEqual(e1, e2 Binding, lenient bool, aliases AliasTable, numTypes NumericTypes, bnodes *BNodeMap) bool {
	if len(e1) != len(e2) {
		return false
	}
	for k := range e1 {
		if _, ok := e2[k]; !ok {
			return false
		}
	}
	for key, field1 := range e1 {
		field2 := e2[key]
		sub1, isMap1 := field1.(map[string]any)
		sub2, isMap2 := field2.(map[string]any)
		if !isMap1 || !isMap2 {
			if !reflect.DeepEqual(field1, field2) {
				return false
			}
			continue
		}
		for _, subKey := range unionKeys(sub1, sub2) {
			v1, v2 := sub1[subKey], sub2[subKey]
			if reflect.DeepEqual(v1, v2) {
				continue
			}
			if subKey == "value" &&
				asString(sub1["type"]) == "bnode" && asString(sub2["type"]) == "bnode" &&
				bnodes.Bind(asString(v1), asString(v2)) {
				continue
			}
			if subKey == "value" &&
				numTypes.Contains(asString(sub1["datatype"])) && numTypes.Contains(asString(sub2["datatype"])) &&
				numericEqual(asString(v1), asString(v2)) {
				continue
			}
			if lenient && aliases.Matches(asString(v1), asString(v2)) {
				continue
			}
			return false
		}
	}
	return true
}

func headVars(doc map[string]any) []any {
	head, _ := doc["head"].(map[string]any)
	if head == nil {
		return nil
	}
	vars, _ := head["vars"].([]any)
	return vars
}

func resultsOf(doc map[string]any) map[string]any {
	results, _ := doc["results"].(map[string]any)
	return results
}

func bindingsOf(doc map[string]any) []Binding {
	results := resultsOf(doc)
	if results == nil {
		return nil
	}
	raw, _ := results["bindings"].([]any)
	bindings := make([]Binding, 0, len(raw))
	for _, b := range raw {
		m, _ := b.(map[string]any)
		bindings = append(bindings, m)
	}
	return bindings
}

// remainingJSON rebuilds a document shape holding only the unmatched parts:
// the vars unique to this side and the residual bindings.
func remainingJSON(doc map[string]any, uniqueVars []any, residual []Binding) map[string]any {
	remaining := make(map[string]any, len(doc))
	for k, v := range doc {
		remaining[k] = v
	}
	if head, ok := doc["head"].(map[string]any); ok {
		newHead := make(map[string]any, len(head))
		for k, v := range head {
			newHead[k] = v
		}
		newHead["vars"] = uniqueVars
		remaining["head"] = newHead
	}
	if results := resultsOf(doc); results != nil {
		newResults := make(map[string]any, len(results))
		for k, v := range results {
			newResults[k] = v
		}
		anyResidual := make([]any, len(residual))
		for i, b := range residual {
			anyResidual[i] = any(b)
		}
		newResults["bindings"] = anyResidual
		remaining["results"] = newResults
	}
	return remaining
}

func diffPreservingOrder(a, b []any) []any {
	var unique []any
	for _, v := range a {
		if !containsDeep(b, v) {
			unique = append(unique, v)
		}
	}
	return unique
}

func containsDeep(list []any, v any) bool {
	for _, x := range list {
		if reflect.DeepEqual(x, v) {
			return true
		}
	}
	return false
}

func containsBinding(list []Binding, b Binding) bool {
	for _, x := range list {
		if reflect.DeepEqual(x, b) {
			return true
		}
	}
	return false
}

func unionKeys(a, b map[string]any) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	var keys []string
	for k := range a {
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	for k := range b {
		if _, ok := seen[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func asString(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

const jsonIndent = 4

// renderJSON converts a results document to indented text, wrapping elements
// still present in the remaining document in highlight labels. Member order
// is fixed (head, results, boolean, then the rest sorted) so output is
// deterministic.
func renderJSON(v any, remaining any, markRed []Binding, level int) string {
	switch val := v.(type) {
	case map[string]any:
		remMap, _ := remaining.(map[string]any)
		return renderJSONObject(val, remMap, markRed, level)
	case []any:
		remList, _ := remaining.([]any)
		return renderJSONList(val, remList, level)
	case string:
		return `"` + val + `"`
	case bool:
		if val {
			return "true"
		}
		return "false"
	case nil:
		return "null"
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
}

func renderJSONObject(obj, remaining map[string]any, markRed []Binding, level int) string {
	if len(obj) == 0 {
		return "{}"
	}
	pad := strings.Repeat(" ", jsonIndent*(level+1))
	closePad := strings.Repeat(" ", jsonIndent*level)

	var parts []string
	for _, key := range orderedKeys(obj) {
		value := obj[key]
		list, isList := value.([]any)
		var rendered string
		switch {
		case key == "vars" && isList:
			remList, _ := remaining["vars"].([]any)
			rendered = renderJSONList(list, remList, level+1)
		case key == "bindings" && isList:
			remList, _ := remaining["bindings"].([]any)
			rendered = renderBindings(list, remList, markRed, level+1)
		case key == "boolean":
			rendered = renderJSON(value, nil, nil, level+1)
			if _, mismatch := remaining["boolean"]; mismatch {
				rendered = wrapLabel("red", rendered)
			}
		default:
			rendered = renderJSON(value, remaining[key], markRed, level+1)
		}
		parts = append(parts, pad+`"`+key+`": `+rendered)
	}
	return "{\n" + strings.Join(parts, ", \n") + "\n" + closePad + "}"
}

func renderJSONList(list, remaining []any, level int) string {
	if len(list) == 0 {
		return "[]"
	}
	pad := strings.Repeat(" ", jsonIndent*(level+1))
	closePad := strings.Repeat(" ", jsonIndent*level)
	var parts []string
	for _, item := range list {
		rendered := renderJSON(item, nil, nil, level+1)
		if containsDeep(remaining, item) {
			rendered = wrapLabel("red", rendered)
		}
		parts = append(parts, pad+rendered)
	}
	return "[\n" + strings.Join(parts, ", \n") + "\n" + closePad + "]"
}

// renderBindings marks bindings that stayed unmatched: red when unmatched even
// by the lenient pass, yellow when only the strict pass missed them.
func renderBindings(bindings, remaining []any, markRed []Binding, level int) string {
	if len(bindings) == 0 {
		return "[]"
	}
	pad := strings.Repeat(" ", jsonIndent*(level+1))
	closePad := strings.Repeat(" ", jsonIndent*level)
	var parts []string
	for _, item := range bindings {
		rendered := renderJSON(item, nil, markRed, level+1)
		if containsDeep(remaining, item) {
			b, _ := item.(map[string]any)
			if containsBinding(markRed, b) {
				rendered = wrapLabel("red", rendered)
			} else {
				rendered = wrapLabel("yellow", rendered)
			}
		}
		parts = append(parts, pad+rendered)
	}
	return "[\n" + strings.Join(parts, ", \n") + "\n" + closePad + "]"
}

func orderedKeys(obj map[string]any) []string {
	fixed := []string{"head", "results", "boolean"}
	var keys []string
	for _, k := range fixed {
		if _, ok := obj[k]; ok {
			keys = append(keys, k)
		}
	}
	var rest []string
	for k := range obj {
		switch k {
		case "head", "results", "boolean":
		default:
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}
