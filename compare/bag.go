package compare

// Reconcile removes matched elements from both bags and returns what is left
// on each side.
//
// For each element of bagA it scans bagB for the first not-yet-matched element
// the callback considers equal, and consumes it. The matching is intentionally
// greedy, first-match, O(n*m): ties are broken by original bag order and a
// consumed element is never given back. This is not a minimum-cost matching,
// and it must stay that way; established verdicts depend on the first-match
// order.
func Reconcile[T any](bagA, bagB []T, equal func(a, b T) bool) (restA, restB []T) {
	matchedB := make([]bool, len(bagB))
	for _, a := range bagA {
		found := -1
		for j, b := range bagB {
			if matchedB[j] {
				continue
			}
			if equal(a, b) {
				found = j
				break
			}
		}
		if found >= 0 {
			matchedB[found] = true
		} else {
			restA = append(restA, a)
		}
	}
	for j, b := range bagB {
		if !matchedB[j] {
			restB = append(restB, b)
		}
	}
	return restA, restB
}

// TwoPass runs the strict reconciliation and, only if it leaves a residual,
// a lenient second pass over that residual. The strict residuals are what a
// report highlights yellow; the lenient residuals (red) are the genuinely
// unmatched elements. An empty red residual with a non-empty strict residual
// means the divergence is alias-explainable: Intended, not Failed.
//
// The equality callback receives the lenient flag; any blank-node state it
// carries is shared across both passes.
func TwoPass[T any](bagA, bagB []T, equal func(a, b T, lenient bool) bool) (strictA, strictB, redA, redB []T) {
	strictA, strictB = Reconcile(bagA, bagB, func(a, b T) bool {
		return equal(a, b, false)
	})
	if len(strictA) == 0 && len(strictB) == 0 {
		return strictA, strictB, nil, nil
	}
	redA, redB = Reconcile(strictA, strictB, func(a, b T) bool {
		return equal(a, b, true)
	})
	return strictA, strictB, redA, redB
}
