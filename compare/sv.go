package compare

import (
	"encoding/csv"
	"reflect"
	"sort"
	"strings"

	"github.com/sparql-conformance/harness/verdict"
)

// SV compares CSV or TSV result payloads (format is "csv" or "tsv").
//
// Rows are compared as a bag, header row included. If the actual header is a
// permutation of the expected one, actual columns are realigned to the
// expected order first; column order carries no meaning in these encodings.
// Cell values are cut at their "^^datatype" suffix before value comparison.
func SV(expectedPayload, actualPayload, format string, aliases AliasTable) verdict.Outcome {
	out := verdict.FailedOutcome()
	bnodes := NewBNodeMap()

	expectedRows := parseSV(expectedPayload, format)
	actualRows := reorderColumnsToExpected(expectedRows, parseSV(actualPayload, format))

	strict1, strict2, red1, red2 := TwoPass(expectedRows, actualRows,
		func(a, b []string, lenient bool) bool {
			return rowsEqual(a, b, lenient, aliases, bnodes)
		})

	switch {
	case len(strict1) == 0 && len(strict2) == 0:
		out.Status = verdict.Passed
		out.Kind = ""
	case len(red1) == 0 && len(red2) == 0:
		out.Status = verdict.Intended
		out.Kind = verdict.IntendedBehaviour
	}

	sep := svSeparator(format)
	out.Expected = renderSV(expectedRows, strict1, red1, sep)
	out.Actual = renderSV(actualRows, strict2, red2, sep)
	out.ExpectedR = renderSV(strict1, strict1, red1, sep)
	out.ActualR = renderSV(strict2, strict2, red2, sep)
	return out
}

func svSeparator(format string) string {
	if format == "csv" {
		return ","
	}
	return "\t"
}

// parseSV splits the payload into rows, dropping rows that are entirely blank.
func parseSV(payload, format string) [][]string {
	r := csv.NewReader(strings.NewReader(payload))
	r.Comma = rune(svSeparator(format)[0])
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var rows [][]string
	for {
		record, err := r.Read()
		if err != nil {
			break
		}
		blank := true
		for _, cell := range record {
			if strings.TrimSpace(cell) != "" {
				blank = false
				break
			}
		}
		if blank {
			continue
		}
		rows = append(rows, record)
	}
	return rows
}

func rowsEqual(row1, row2 []string, lenient bool, aliases AliasTable, bnodes *BNodeMap) bool {
	if len(row1) != len(row2) {
		return false
	}
	for i := range row1 {
		v1, _, _ := strings.Cut(row1[i], "^")
		v2, _, _ := strings.Cut(row2[i], "^")
		if !EqualValues(v1, v2, lenient, aliases, bnodes) {
			return false
		}
	}
	return true
}

// reorderColumnsToExpected realigns actual data columns when the header rows
// are a permutation of each other; otherwise returns actual unchanged.
func reorderColumnsToExpected(expected, actual [][]string) [][]string {
	if len(expected) == 0 || len(actual) == 0 {
		return actual
	}
	mapping := columnMapping(expected[0], actual[0])
	if mapping == nil {
		return actual
	}
	reordered := make([][]string, len(actual))
	for i, row := range actual {
		newRow := make([]string, len(mapping))
		for j, src := range mapping {
			if src < len(row) {
				newRow[j] = row[src]
			}
		}
		reordered[i] = newRow
	}
	return reordered
}

// columnMapping returns mapping with actual[row][mapping[i]] aligned to
// expected[row][i], or nil when the headers are not a permutation.
func columnMapping(expectedHeader, actualHeader []string) []int {
	if len(expectedHeader) != len(actualHeader) {
		return nil
	}
	if !sameMultiset(expectedHeader, actualHeader) {
		return nil
	}
	used := make(map[int]bool, len(actualHeader))
	mapping := make([]int, 0, len(expectedHeader))
	for _, name := range expectedHeader {
		idx := -1
		for j, col := range actualHeader {
			if used[j] {
				continue
			}
			if strings.TrimSpace(col) == strings.TrimSpace(name) {
				idx = j
				break
			}
		}
		if idx < 0 {
			return nil
		}
		used[idx] = true
		mapping = append(mapping, idx)
	}
	return mapping
}

func sameMultiset(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	sa := append([]string(nil), a...)
	sb := append([]string(nil), b...)
	sort.Strings(sa)
	sort.Strings(sb)
	return reflect.DeepEqual(sa, sb)
}

func renderSV(rows, remaining, markRed [][]string, sep string) string {
	var b strings.Builder
	for _, row := range rows {
		line := escapeHTML(rowToString(row, sep))
		if containsRow(remaining, row) {
			if containsRow(markRed, row) {
				b.WriteString(wrapLabel("red", line))
			} else {
				b.WriteString(wrapLabel("yellow", line))
			}
			b.WriteString("\n")
			continue
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func rowToString(row []string, sep string) string {
	parts := make([]string, len(row))
	for i, cell := range row {
		if strings.Contains(cell, sep) {
			cell = `"` + cell + `"`
		}
		parts[i] = cell
	}
	return strings.Join(parts, sep)
}

func containsRow(rows [][]string, row []string) bool {
	for _, r := range rows {
		if reflect.DeepEqual(r, row) {
			return true
		}
	}
	return false
}
