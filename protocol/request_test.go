package protocol

import (
	"strings"
	"testing"
)

func TestPrepareRequestBasic(t *testing.T) {
	section := `#### Request
POST /sparql HTTP/1.1
Content-Type: application/sparql-query

SELECT * WHERE { ?s ?p ?o }

#### Response
2xx response
`
	head, body := PrepareRequest(section, "query", "", "abc", "", false)
	if !strings.Contains(head, "POST /query HTTP/1.1") {
		t.Fatalf("endpoint not rewritten:\n%s", head)
	}
	if !strings.Contains(head, "Authorization: Bearer abc") {
		t.Fatalf("missing authorization header:\n%s", head)
	}
	if !strings.HasSuffix(head, "\r\n\r\n") {
		t.Fatalf("head must end with a blank line: %q", head)
	}
	if body != "SELECT * WHERE { ?s ?p ?o }\r\n" {
		t.Fatalf("body = %q", body)
	}
	if !strings.Contains(head, "Content-Length: 27") {
		t.Fatalf("content length must match the body:\n%s", head)
	}
}

func TestPrepareRequestKeepsExplicitContentLength(t *testing.T) {
	section := `#### Request
POST /sparql HTTP/1.1
Content-Length: 5

hello

#### Response
2xx response
`
	head, _ := PrepareRequest(section, "query", "", "abc", "", false)
	if !strings.Contains(head, "Content-Length: 5") {
		t.Fatalf("explicit length must survive:\n%s", head)
	}
	if strings.Contains(head, "XXX") {
		t.Fatalf("placeholder must not be appended twice:\n%s", head)
	}
}

func TestPrepareRequestGETVersionSuffix(t *testing.T) {
	section := "#### Request\nGET /sparql?query=ask\n\n#### Response\n2xx response\n"
	head, _ := PrepareRequest(section, "query", "", "abc", "", false)
	if !strings.Contains(head, "GET /query?query=ask HTTP/1.1") {
		t.Fatalf("bare GET line must get the version suffix:\n%s", head)
	}
}

func TestPrepareRequestMediaTypeTypo(t *testing.T) {
	section := "#### Request\nPOST /sparql HTTP/1.1\nContent-Type: application/x-www-url-form-urlencoded\n\nquery=ask\n\n#### Response\n2xx response\n"
	head, _ := PrepareRequest(section, "query", "", "abc", "", false)
	if !strings.Contains(head, "application/x-www-form-urlencoded") {
		t.Fatalf("media type typo must be fixed:\n%s", head)
	}
}

func TestPrepareRequestGraphStoreSubstitution(t *testing.T) {
	section := `#### Request
PUT $GRAPHSTORE$?graph=http://$HOST$/g HTTP/1.1
Host: $HOST$

<http://example.org/s> <http://example.org/p> "$GRAPHSTORE$" .

#### Response
2xx response
`
	head, body := PrepareRequest(section, "query", "store", "abc", "/carried", true)
	if !strings.Contains(head, "PUT /store?graph=http://localhost/g HTTP/1.1") {
		t.Fatalf("head substitution:\n%s", head)
	}
	if !strings.Contains(head, "Host: localhost") {
		t.Fatalf("host substitution:\n%s", head)
	}
	if !strings.Contains(body, `"store"`) {
		t.Fatalf("body gets the store name without a leading slash: %q", body)
	}
}

func TestPrepareRequestCarriedPath(t *testing.T) {
	section := "#### Request\nGET $NEWPATH$ HTTP/1.1\n\n#### Response\n2xx response\n"
	head, _ := PrepareRequest(section, "query", "store", "abc", "/data/abc123", true)
	if !strings.Contains(head, "GET /data/abc123 HTTP/1.1") {
		t.Fatalf("carried path must replace the placeholder:\n%s", head)
	}
}
