package protocol

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/sparql-conformance/harness/compare"
	"github.com/sparql-conformance/harness/httpwire"
	"github.com/sparql-conformance/harness/verdict"
)

var locationHeader = regexp.MustCompile(`(?m)^Location:\s*(.*)`)

// Runner executes protocol test scripts against one endpoint.
type Runner struct {
	Client      *httpwire.Client
	Endpoint    string
	GraphStore  string
	AccessToken string
	Logger      *zap.Logger
}

// Result is the outcome of one script run, with the report texts and the
// path variable carried into the next test of a chain.
type Result struct {
	Status            verdict.Status
	Kind              verdict.ErrorKind
	ExpectedResponses string
	SentRequests      string
	GotResponses      string
	NewPath           string
}

// Run prepares, sends and validates every section of the script in order.
// The path captured from one response's Location header feeds the next
// section's placeholder. Passed requires every section to match.
func (r *Runner) Run(ctx context.Context, script, carriedPath string, graphStoreTest bool) Result {
	res := Result{Status: verdict.Failed, Kind: verdict.ResultsNotTheSame}

	allMatched := true
	var expected, sent, got strings.Builder
	for _, section := range SplitScript(script) {
		if ctx.Err() != nil {
			break
		}
		head, body := PrepareRequest(section, r.Endpoint, r.GraphStore, r.AccessToken, carriedPath, graphStoreTest)
		exp := PrepareResponse(section, r.GraphStore, carriedPath, graphStoreTest)
		expected.WriteString(exp.String() + "\n")
		sent.WriteString(head + body + "\n")

		response, err := r.Client.Exchange(ctx, encodeRequest(head, body))
		if err != nil {
			if r.Logger != nil {
				r.Logger.Warn("protocol exchange failed", zap.Error(err))
			}
			allMatched = false
			got.WriteString(err.Error() + "\n")
			carriedPath = ""
			continue
		}
		got.WriteString(response + "\n")

		matched, newPath := Validate(exp, response, strings.Contains(section, "SELECT"))
		if !matched {
			allMatched = false
		}
		if newPath != "" {
			carriedPath = newPath
		}
	}

	if allMatched {
		res.Status = verdict.Passed
		res.Kind = ""
	}
	res.ExpectedResponses = expected.String()
	res.SentRequests = sent.String()
	res.GotResponses = got.String()
	res.NewPath = carriedPath
	return res
}

// encodeRequest assembles the wire bytes. The header block is always UTF-8;
// the body switches to UTF-16 only when the headers declare that charset.
func encodeRequest(head, body string) []byte {
	bodyBytes := []byte(body)
	if strings.Contains(head, "charset=UTF-16") {
		enc := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder()
		if encoded, _, err := transform.Bytes(enc, bodyBytes); err == nil {
			bodyBytes = encoded
		}
	}
	return append([]byte(head), bodyBytes...)
}

// Validate checks one raw response against the section's expectation and
// returns the captured Location path, if the section asked for one.
func Validate(exp Expected, response string, isSelect bool) (bool, string) {
	statusMatch := false
	for _, pattern := range exp.StatusPatterns {
		if statusPattern(pattern).MatchString(response) {
			statusMatch = true
			break
		}
	}

	contentTypeMatch := len(exp.ContentTypes) == 0
	for _, ct := range exp.ContentTypes {
		if strings.Contains(response, ct) {
			contentTypeMatch = true
			break
		}
	}

	resultMatch := !exp.HasResult || strings.Contains(response, exp.Result)

	// A SELECT with an expected boolean answers with a bindings document;
	// the match is on whether any bindings came back at all.
	if exp.HasResult && exp.Result != "" && isSelect {
		if body, err := httpwire.DecodeChunkedResponse(response); err == nil {
			var doc struct {
				Results struct {
					Bindings []any `json:"bindings"`
				} `json:"results"`
			}
			if json.Unmarshal([]byte(body), &doc) == nil {
				resultMatch = len(doc.Results.Bindings) > 0
			}
		}
	}

	if containsString(exp.ContentTypes, "text/turtle") && statusMatch && contentTypeMatch {
		if body, err := httpwire.DecodeChunkedResponse(response); err == nil {
			if compare.Turtle(exp.Result, body).Status == verdict.Passed {
				resultMatch = true
			}
		}
	}

	newPath := ""
	if exp.WantsNewPath {
		if m := locationHeader.FindStringSubmatch(response); m != nil {
			newPath = strings.TrimRight(m[1], "\r")
		}
	}
	return statusMatch && contentTypeMatch && resultMatch, newPath
}

// statusPattern builds the matcher for one expected code: "x" matches any
// digit, everything else matches literally, anchored to the status line.
func statusPattern(code string) *regexp.Regexp {
	pattern := `HTTP/1\.1 `
	for _, c := range code {
		if c == 'x' {
			pattern += `\d`
		} else {
			pattern += regexp.QuoteMeta(string(c))
		}
	}
	return regexp.MustCompile(pattern)
}
