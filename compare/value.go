// Package compare implements the result-equivalence engine: value, bag and
// per-format comparison of expected vs. actual SPARQL results, plus the
// highlighted diff rendering used in reports.
//
// Comparison is two-pass. The strict pass allows only literal, numeric and
// blank-node equivalence. If it leaves a residual, a lenient pass additionally
// consults the configured alias table; a residual that clears only under the
// lenient pass classifies the test as Intended rather than Failed.
package compare

import (
	"strconv"
	"strings"
)

// AliasTable is a set of unordered pairs of interchangeable tokens, e.g. the
// datatype suffixes "int" and "integer". It is consulted only on the lenient
// comparison pass.
type AliasTable [][2]string

// Matches reports whether (a, b) is an alias pair in either order.
func (t AliasTable) Matches(a, b string) bool {
	for _, p := range t {
		if (p[0] == a && p[1] == b) || (p[0] == b && p[1] == a) {
			return true
		}
	}
	return false
}

// NumericTypes is the set of datatype IRIs whose literals compare numerically.
type NumericTypes map[string]struct{}

// DefaultNumericTypes returns the XSD numeric datatypes treated as numbers.
func DefaultNumericTypes() NumericTypes {
	ts := []string{
		"http://www.w3.org/2001/XMLSchema#integer",
		"http://www.w3.org/2001/XMLSchema#double",
		"http://www.w3.org/2001/XMLSchema#decimal",
		"http://www.w3.org/2001/XMLSchema#float",
		"http://www.w3.org/2001/XMLSchema#int",
	}
	nt := make(NumericTypes, len(ts))
	for _, t := range ts {
		nt[t] = struct{}{}
	}
	return nt
}

// Contains reports whether the datatype IRI is numeric.
func (n NumericTypes) Contains(datatype string) bool {
	_, ok := n[datatype]
	return ok
}

// BNodeMap records the bijection between blank-node labels seen on the
// expected side and labels seen on the actual side of one comparison run.
//
// The assignment is greedy: the first co-occurrence of two unbound labels
// binds them, and every later occurrence must agree with that binding in both
// directions. A conflicting pair is a hard mismatch; there is no backtracking.
// Known limitation: on graphs with symmetric blank-node structure the greedy
// choice can bind the wrong pair first and report a false negative. This
// matches the established verdict behavior and is kept as-is.
type BNodeMap struct {
	m map[string]string
}

// NewBNodeMap returns an empty mapping, to be shared across every value
// comparison of one comparator call (both strict and lenient passes).
func NewBNodeMap() *BNodeMap {
	return &BNodeMap{m: make(map[string]string)}
}

// Bind records or checks the pairing of an expected-side label with an
// actual-side label. It returns true if the pair is consistent with the
// mapping so far.
func (b *BNodeMap) Bind(expected, actual string) bool {
	_, haveE := b.m[expected]
	_, haveA := b.m[actual]
	if !haveE && !haveA {
		b.m[expected] = actual
		b.m[actual] = expected
		return true
	}
	return b.m[expected] == actual && b.m[actual] == expected
}

// Len returns the number of recorded label entries (two per bound pair).
func (b *BNodeMap) Len() int { return len(b.m) }

func isNumber(s string) bool {
	_, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return err == nil
}

func numericEqual(a, b string) bool {
	fa, errA := strconv.ParseFloat(strings.TrimSpace(a), 64)
	fb, errB := strconv.ParseFloat(strings.TrimSpace(b), 64)
	return errA == nil && errB == nil && fa == fb
}

func isBlankLabel(v string) bool {
	return len(v) > 1 && v[0] == '_'
}

// EqualValues compares two literal values for equivalence.
//
// Order of rules: blank-node labels resolve through the shared BNodeMap;
// identical strings are equal (two empty cells are equal); values that both
// parse as floating-point numbers compare numerically (so "30000" equals
// "3E4"); finally, on the lenient pass only, the alias table may declare the
// pair interchangeable. Absent values are a caller concern: a missing field
// never reaches this function.
func EqualValues(v1, v2 string, lenient bool, aliases AliasTable, bnodes *BNodeMap) bool {
	if isBlankLabel(v1) && isBlankLabel(v2) {
		return bnodes.Bind(v1, v2)
	}
	if v1 == v2 {
		return true
	}
	if isNumber(v1) && isNumber(v2) {
		return numericEqual(v1, v2)
	}
	return lenient && aliases.Matches(v1, v2)
}
