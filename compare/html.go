package compare

import "strings"

// EscapeHTML escapes a string for embedding in the report HTML.
func EscapeHTML(s string) string {
	return escapeHTML(s)
}

// escapeHTML escapes a string for embedding in the report HTML. Same
// replacement set and order as the report viewer expects.
func escapeHTML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, `"`, "&quot;")
	s = strings.ReplaceAll(s, "'", "&apos;")
	return s
}

func wrapLabel(class, s string) string {
	return `<label class="` + class + `">` + s + `</label>`
}

// highlightFirstOccurrence wraps the first occurrence of part in original
// that is not already wrapped, so repeated identical elements do not get
// double-labeled.
func highlightFirstOccurrence(original, part, class string) string {
	if part == "" {
		return original
	}
	from := 0
	for {
		i := strings.Index(original[from:], part)
		if i < 0 {
			return original
		}
		i += from
		end := i + len(part)
		if !strings.HasPrefix(original[end:], "</label>") {
			return original[:i] + wrapLabel(class, part) + original[end:]
		}
		from = end
	}
}
