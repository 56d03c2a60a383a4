package protocol

import (
	"strings"
	"testing"
)

func TestSplitScriptSingle(t *testing.T) {
	script := "#### Request\nGET /sparql\n\n#### Response\n2xx response\n"
	sections := SplitScript(script)
	if len(sections) != 1 || sections[0] != script {
		t.Fatalf("sections = %q", sections)
	}
}

func TestSplitScriptFollowedBy(t *testing.T) {
	script := "#### Request\nfirst\nfollowed by\n#### Request\nsecond\n"
	sections := SplitScript(script)
	if len(sections) != 2 {
		t.Fatalf("sections = %q", sections)
	}
	if !strings.Contains(sections[0], "first") || !strings.Contains(sections[1], "second") {
		t.Fatalf("sections = %q", sections)
	}
}

func TestSplitScriptRepeatedHeading(t *testing.T) {
	script := "#### Request\nGET /a\n\n#### Response\n2xx response\n#### Request\nGET /b\n\n#### Response\n2xx response\n"
	sections := SplitScript(script)
	if len(sections) != 2 {
		t.Fatalf("got %d sections: %q", len(sections), sections)
	}
	if !strings.Contains(sections[0], "GET /a") || !strings.Contains(sections[1], "GET /b") {
		t.Fatalf("sections = %q", sections)
	}
}
