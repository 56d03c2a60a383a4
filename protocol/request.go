package protocol

import (
	"strconv"
	"strings"
)

// PrepareRequest turns the request part of a script section into the header
// block and body to put on the wire.
//
// The literal "sparql" endpoint token is rewritten to the engine's endpoint,
// bare GET request lines get their HTTP version appended, a Content-Length
// placeholder is added when the script carries none, and an authorization
// header is appended. Graph-store sections additionally substitute the host,
// graph-store path and carried path placeholders. The real body length is
// spliced into the placeholder last.
func PrepareRequest(section, endpoint, graphStore, accessToken, carriedPath string, graphStoreTest bool) (head, body string) {
	request, _, _ := strings.Cut(section, "#### Response")
	// Some scripts carry this misspelled media type.
	request = strings.ReplaceAll(request,
		"application/x-www-url-form-urlencoded", "application/x-www-form-urlencoded")
	if graphStoreTest {
		request = strings.ReplaceAll(request, "$HOST$", "localhost")
		request = strings.ReplaceAll(request, "$NEWPATH$", carriedPath)
	}

	lines := strings.Split(request, "\n")
	headerIdx := 0
	blankIdx := 0
	beforeHeader := true
	for i, line := range lines {
		line = strings.TrimSpace(line)
		lines[i] = line
		if line == "" && !beforeHeader && blankIdx == 0 {
			blankIdx = i
		}
		if isMethodLine(line) {
			beforeHeader = false
			headerIdx = i
			line = strings.ReplaceAll(line, "sparql", endpoint)
			if strings.HasPrefix(line, "GET") && !strings.HasSuffix(line, "HTTP/1.1") {
				line += " HTTP/1.1"
			}
			lines[i] = line
		}
	}

	if blankIdx == 0 {
		blankIdx = len(lines)
	}
	headerLines := lines[headerIdx:blankIdx]
	hasLength := false
	for _, l := range headerLines {
		if strings.Contains(l, "Content-Length") {
			hasLength = true
			break
		}
	}
	if !hasLength {
		headerLines = append(headerLines, "Content-Length: XXX")
	}

	var bodyLines []string
	if blankIdx+1 < len(lines) {
		for _, l := range lines[blankIdx+1:] {
			if l != "" {
				bodyLines = append(bodyLines, l)
			}
		}
	}

	head = strings.Join(headerLines, "\r\n") + "\r\nAuthorization: Bearer " + accessToken
	body = strings.Join(bodyLines, "\r\n")
	if graphStoreTest {
		head = strings.ReplaceAll(head, "$GRAPHSTORE$", "/"+graphStore)
		body = strings.ReplaceAll(body, "$GRAPHSTORE$", graphStore)
	}
	head = strings.ReplaceAll(head, "XXX", strconv.Itoa(len(body)))
	return head + "\r\n\r\n", body + "\r\n"
}

func isMethodLine(line string) bool {
	for _, m := range []string{"POST", "GET", "PUT", "DELETE", "HEAD"} {
		if strings.HasPrefix(line, m) {
			return true
		}
	}
	return false
}
