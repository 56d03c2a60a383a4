// Package protocol runs SPARQL protocol and graph-store protocol test
// scripts: literal request/response templates that are prepared, sent over a
// raw TCP connection and validated against status, content-type and body
// expectations.
package protocol

import "strings"

// SplitScript cuts a test script into its request/response sections.
//
// Chained scripts use a "followed by" separator; some instead repeat the
// "#### Request" heading. A script with a single section is returned as-is.
func SplitScript(script string) []string {
	if strings.Contains(script, "followed by") {
		return strings.Split(script, "followed by")
	}
	if strings.Count(script, "#### Request") > 1 {
		var sections []string
		for _, part := range strings.Split(script, "#### Request") {
			if len(part) > 2 {
				sections = append(sections, part)
			}
		}
		return sections
	}
	return []string{script}
}
