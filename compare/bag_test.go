package compare

import (
	"reflect"
	"testing"
)

func TestReconcileFirstMatch(t *testing.T) {
	bagA := []string{"a", "b", "b", "c"}
	bagB := []string{"b", "c", "c", "d"}
	restA, restB := Reconcile(bagA, bagB, func(a, b string) bool { return a == b })
	if !reflect.DeepEqual(restA, []string{"a", "b"}) {
		t.Fatalf("restA = %v", restA)
	}
	if !reflect.DeepEqual(restB, []string{"c", "d"}) {
		t.Fatalf("restB = %v", restB)
	}
}

func TestReconcileEmpty(t *testing.T) {
	restA, restB := Reconcile(nil, nil, func(a, b string) bool { return a == b })
	if len(restA) != 0 || len(restB) != 0 {
		t.Fatalf("residuals of empty bags must be empty, got %v / %v", restA, restB)
	}
}

func TestReconcileConsumesOnce(t *testing.T) {
	bagA := []string{"x", "x"}
	bagB := []string{"x"}
	restA, restB := Reconcile(bagA, bagB, func(a, b string) bool { return a == b })
	if len(restA) != 1 || restA[0] != "x" {
		t.Fatalf("a matched element must not be reused, restA = %v", restA)
	}
	if len(restB) != 0 {
		t.Fatalf("restB = %v", restB)
	}
}

func TestReconcileResidualSymmetry(t *testing.T) {
	cases := []struct {
		name string
		bagA []string
		bagB []string
	}{
		{"plain", []string{"a", "b", "b", "c"}, []string{"b", "c", "c", "d"}},
		{"duplicates", []string{"x", "x", "x"}, []string{"x", "y"}},
		{"numeric forms", []string{"30000", "3E4"}, []string{"30001", "3.0E4"}},
		{"blank labels", []string{"_:a", "_:a", "_:b"}, []string{"_:x", "_:y", "_:y"}},
		{"one empty", []string{"a", "b"}, nil},
	}
	for _, c := range cases {
		// One fresh bnode map per direction, as each comparator call gets.
		fwdBn := NewBNodeMap()
		fwdA, fwdB := Reconcile(c.bagA, c.bagB, func(a, b string) bool {
			return EqualValues(a, b, false, nil, fwdBn)
		})
		revBn := NewBNodeMap()
		revB, revA := Reconcile(c.bagB, c.bagA, func(b, a string) bool {
			return EqualValues(b, a, false, nil, revBn)
		})
		if len(fwdA) != len(revA) || len(fwdB) != len(revB) {
			t.Fatalf("%s: residual sizes depend on argument order: %v/%v vs %v/%v",
				c.name, fwdA, fwdB, revA, revB)
		}
	}
}

func TestTwoPassResidualSymmetry(t *testing.T) {
	aliases := AliasTable{{"int", "integer"}}
	bagA := []string{"int", "_:a", "p", "q"}
	bagB := []string{"integer", "_:x", "p", "r"}

	fwdBn := NewBNodeMap()
	fsA, fsB, frA, frB := TwoPass(bagA, bagB, func(a, b string, lenient bool) bool {
		return EqualValues(a, b, lenient, aliases, fwdBn)
	})
	revBn := NewBNodeMap()
	rsB, rsA, rrB, rrA := TwoPass(bagB, bagA, func(b, a string, lenient bool) bool {
		return EqualValues(b, a, lenient, aliases, revBn)
	})
	if len(fsA) != len(rsA) || len(fsB) != len(rsB) {
		t.Fatalf("strict residual sizes depend on argument order: %v/%v vs %v/%v",
			fsA, fsB, rsA, rsB)
	}
	if len(frA) != len(rrA) || len(frB) != len(rrB) {
		t.Fatalf("red residual sizes depend on argument order: %v/%v vs %v/%v",
			frA, frB, rrA, rrB)
	}
	if len(frA) != 1 || frA[0] != "q" || len(frB) != 1 || frB[0] != "r" {
		t.Fatalf("red residuals = %v / %v", frA, frB)
	}
}

func TestTwoPassLenientClearsResidual(t *testing.T) {
	equal := func(a, b string, lenient bool) bool {
		if a == b {
			return true
		}
		return lenient && a == "int" && b == "integer"
	}
	strictA, strictB, redA, redB := TwoPass([]string{"int", "p"}, []string{"integer", "p"}, equal)
	if !reflect.DeepEqual(strictA, []string{"int"}) || !reflect.DeepEqual(strictB, []string{"integer"}) {
		t.Fatalf("strict residuals = %v / %v", strictA, strictB)
	}
	if len(redA) != 0 || len(redB) != 0 {
		t.Fatalf("lenient pass must clear the residual, got %v / %v", redA, redB)
	}
}

func TestTwoPassSkipsLenientWhenStrictMatches(t *testing.T) {
	calls := 0
	equal := func(a, b string, lenient bool) bool {
		if lenient {
			calls++
		}
		return a == b
	}
	_, _, redA, redB := TwoPass([]string{"p"}, []string{"p"}, equal)
	if calls != 0 {
		t.Fatalf("lenient pass ran %d times on a clean strict result", calls)
	}
	if redA != nil || redB != nil {
		t.Fatalf("red residuals = %v / %v", redA, redB)
	}
}
