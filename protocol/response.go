package protocol

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	wildcardStatus = regexp.MustCompile(`\dxx`)
	literalStatus  = regexp.MustCompile(`^\d\d\d `)
)

// Expected is the parsed response part of one script section.
type Expected struct {
	// StatusPatterns hold three-character codes where "x" is a digit
	// wildcard, e.g. "2xx".
	StatusPatterns []string
	// ContentTypes are acceptable media types, parameters stripped. Empty
	// means any.
	ContentTypes []string
	// Result is the body fragment that must appear in the response: a
	// boolean token or a Turtle payload.
	Result    string
	HasResult bool
	// WantsNewPath marks sections that capture the Location header for the
	// next request in the chain.
	WantsNewPath bool
}

// PrepareResponse parses the response part of a script section.
func PrepareResponse(section, graphStore, carriedPath string, graphStoreTest bool) Expected {
	var exp Expected
	_, response, ok := strings.Cut(section, "#### Response")
	if !ok {
		return exp
	}
	// Detect the capture marker before substitution destroys it.
	exp.WantsNewPath = strings.Contains(response, "Location: $NEWPATH$")
	if graphStoreTest {
		response = strings.ReplaceAll(response, "$HOST$", "localhost")
		response = strings.ReplaceAll(response, "$GRAPHSTORE$", graphStore)
		response = strings.ReplaceAll(response, "$NEWPATH$", carriedPath)
	}

	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasSuffix(line, "response") || wildcardStatus.MatchString(line) {
			line = strings.ReplaceAll(line, "response", "")
			for _, code := range strings.Split(strings.TrimSpace(line), "or") {
				exp.StatusPatterns = append(exp.StatusPatterns, strings.TrimSpace(code))
			}
		}
		if m := literalStatus.FindString(line); m != "" {
			exp.StatusPatterns = append(exp.StatusPatterns, m)
		}
		if strings.HasPrefix(line, "Content-Type:") {
			line = strings.TrimPrefix(line, "Content-Type:")
			for _, alt := range strings.Split(strings.TrimSpace(line), "or") {
				for _, ct := range strings.Split(alt, ",") {
					if ct == "" {
						continue
					}
					mediaType, _, _ := strings.Cut(strings.TrimSpace(ct), ";")
					exp.ContentTypes = append(exp.ContentTypes, mediaType)
				}
			}
		}
		if strings.HasPrefix(line, "true") {
			exp.Result, exp.HasResult = "true", true
		}
		if strings.HasPrefix(line, "false") {
			exp.Result, exp.HasResult = "false", true
		}
	}

	// Turtle responses carry their expected body after the status and
	// header paragraphs.
	if containsString(exp.ContentTypes, "text/turtle") && !exp.HasResult {
		paragraphs := strings.Split(response, "\n\n")
		if len(paragraphs) > 2 {
			exp.Result = strings.Join(paragraphs[2:], "\n\n")
			exp.HasResult = true
		}
	}
	return exp
}

// String renders the expectation for the report.
func (e Expected) String() string {
	s := fmt.Sprintf("status: %v, content types: %v", e.StatusPatterns, e.ContentTypes)
	if e.HasResult {
		s += ", result: " + e.Result
	}
	if e.WantsNewPath {
		s += ", captures Location"
	}
	return s
}

func containsString(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
