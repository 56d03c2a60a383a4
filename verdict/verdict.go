// Package verdict defines the pass/fail taxonomy for conformance runs.
//
// Every test ends in exactly one Status, and every non-passing test carries an
// ErrorKind describing which phase went wrong. The string values are stable:
// they appear verbatim in report archives and are consumed by the result
// visualization.
package verdict

// Status is the final classification of one test.
type Status string

const (
	// Passed means actual output was semantically equal to the expected output
	// under strict comparison.
	Passed Status = "Passed"
	// Intended means the result differs from the expected output only in ways
	// covered by a configured alias rule. A softer pass.
	Intended Status = "Failed: Intended"
	Failed   Status = "Failed"
	// NotTested is the initial state, and the final state for tests whose
	// expected payload could not even be parsed.
	NotTested Status = "Not tested"
)

// ErrorKind is a stable failure category.
type ErrorKind string

const (
	QueryException          ErrorKind = "QUERY EXCEPTION"
	RequestError            ErrorKind = "REQUEST ERROR"
	QueryResultError        ErrorKind = "QUERY RESULT ERROR"
	IndexBuildError         ErrorKind = "INDEX BUILD ERROR"
	ServerError             ErrorKind = "SERVER ERROR"
	NotTestedError          ErrorKind = "NOT TESTED"
	ResultsNotTheSame       ErrorKind = "RESULTS NOT THE SAME"
	IntendedBehaviour       ErrorKind = "Known, intended behaviour that does not comply with SPARQL standard"
	ExpectedException       ErrorKind = "EXPECTED: QUERY EXCEPTION ERROR"
	FormatError             ErrorKind = "QUERY RESULT FORMAT ERROR"
	NotSupported            ErrorKind = "QUERY NOT SUPPORTED"
	ContentTypeNotSupported ErrorKind = "CONTENT TYPE NOT SUPPORTED"
)

// IsQueryError reports whether the kind is in the query-related subset. A
// negative syntax test passes exactly when its query attempt ended in one of
// these.
func (k ErrorKind) IsQueryError() bool {
	switch k {
	case QueryException, QueryResultError, RequestError, NotSupported, ContentTypeNotSupported:
		return true
	}
	return false
}

// Outcome is the result of one comparator call: the classification plus the
// four rendered diff fragments (full and residual-only, for each side).
type Outcome struct {
	Status    Status
	Kind      ErrorKind
	Expected  string // expected payload, highlighted
	Actual    string // actual payload, highlighted
	ExpectedR string // expected residual only
	ActualR   string // actual residual only
}

// FailedOutcome is the zero-progress outcome comparators start from.
func FailedOutcome() Outcome {
	return Outcome{Status: Failed, Kind: ResultsNotTheSame}
}
