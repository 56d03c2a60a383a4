package suite

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sparql-conformance/harness/config"
	"github.com/sparql-conformance/harness/engine"
	"github.com/sparql-conformance/harness/manifest"
	"github.com/sparql-conformance/harness/verdict"
)

type fakeEngine struct {
	setup       engine.SetupResult
	queryResp   engine.Response
	updateResp  engine.Response
	syntaxCalls int
	setupCalls  int
}

func (f *fakeEngine) Setup(ctx context.Context, graphs []engine.GraphRef) engine.SetupResult {
	f.setupCalls++
	return f.setup
}
func (f *fakeEngine) Cleanup(ctx context.Context) error { return nil }
func (f *fakeEngine) Query(ctx context.Context, query, format string) engine.Response {
	return f.queryResp
}
func (f *fakeEngine) Update(ctx context.Context, query string) engine.Response {
	return f.updateResp
}
func (f *fakeEngine) ProtocolEndpoint() string { return "sparql" }
func (f *fakeEngine) ActivateSyntaxTestMode(ctx context.Context) error {
	f.syntaxCalls++
	return nil
}

func okEngine() *fakeEngine {
	return &fakeEngine{setup: engine.SetupResult{IndexOK: true, ServerOK: true}}
}

func testConfig(dir string) *config.Config {
	return &config.Config{
		System:       config.SystemBinary,
		Port:         7001,
		GraphStore:   "store",
		TestSuiteDir: dir,
		BinariesDir:  dir,
		AccessToken:  "abc",
	}
}

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func queryEvalTest(dir, name string) *manifest.Test {
	return &manifest.Test{
		Name: name,
		Type: "QueryEvaluationTest",
		Path: dir + string(filepath.Separator),
		Action: &manifest.Node{Fields: map[string][]manifest.Value{
			"query": {{Text: filepath.Join(dir, "query.rq")}},
			"data":  {{Text: filepath.Join(dir, "data.ttl")}},
		}},
		Result: &manifest.Node{Fields: map[string][]manifest.Value{
			"data": {{Text: filepath.Join(dir, "result.srj")}},
		}},
	}
}

const resultJSON = `{"head":{"vars":["s"]},"results":{"bindings":[{"s":{"type":"uri","value":"http://example.org/a"}}]}}`

func TestRunQueryTestsPassed(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"query.rq":   "SELECT ?s WHERE { ?s ?p ?o }",
		"data.ttl":   "<http://example.org/a> <http://example.org/p> \"v\" .",
		"result.srj": resultJSON,
	})
	eng := okEngine()
	eng.queryResp = engine.Response{Status: 200, Body: resultJSON}

	s := New("run", testConfig(dir), eng, zap.NewNop(), []*manifest.Test{queryEvalTest(dir, "q1")})
	require.NoError(t, s.Run(context.Background()))

	tc := s.groups["query"][0].tests[0]
	assert.Equal(t, verdict.Passed, tc.Status)
	assert.Equal(t, 1, eng.setupCalls)
	assert.Zero(t, eng.syntaxCalls)
}

func TestRunQueryTestsIndexBuildFailure(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"query.rq":   "SELECT ?s WHERE { ?s ?p ?o }",
		"data.ttl":   "",
		"result.srj": resultJSON,
	})
	eng := &fakeEngine{setup: engine.SetupResult{IndexOK: false, IndexLog: "boom"}}
	s := New("run", testConfig(dir), eng, zap.NewNop(), []*manifest.Test{queryEvalTest(dir, "q1")})
	require.NoError(t, s.Run(context.Background()))

	tc := s.groups["query"][0].tests[0]
	assert.Equal(t, verdict.Failed, tc.Status)
	assert.Equal(t, verdict.IndexBuildError, tc.Kind)
}

func TestClassifyFailedResponse(t *testing.T) {
	s := &Suite{logger: zap.NewNop()}
	cases := []struct {
		body string
		want verdict.ErrorKind
	}{
		{`{"exception": "parse error; at line 3"}`, verdict.QueryException},
		{"Invalid HTTP Request method", verdict.RequestError},
		{"operation not supported", verdict.NotSupported},
		{"content type application/foo not supported", verdict.ContentTypeNotSupported},
		{"something else entirely", verdict.QueryResultError},
	}
	for _, c := range cases {
		tc := &TestCase{Meta: &manifest.Test{}}
		s.classifyFailedResponse(tc, engine.Response{Status: 400, Body: c.body})
		assert.Equal(t, verdict.Failed, tc.Status, c.body)
		assert.Equal(t, c.want, tc.Kind, c.body)
	}
}

func TestClassifyExceptionUnfoldsMessage(t *testing.T) {
	s := &Suite{logger: zap.NewNop()}
	tc := &TestCase{Meta: &manifest.Test{}}
	s.classifyFailedResponse(tc, engine.Response{
		Status: 400,
		Body:   `{"exception": "first; second"}`,
	})
	assert.Equal(t, "first;\n second", tc.QueryLog)
}

func syntaxTest(dir, name, typ string) *manifest.Test {
	return &manifest.Test{
		Name: name,
		Type: typ,
		Path: dir + string(filepath.Separator),
		Action: &manifest.Node{Fields: map[string][]manifest.Value{
			"query": {{Text: filepath.Join(dir, "query.rq")}},
		}},
	}
}

func TestRunSyntaxTests(t *testing.T) {
	dir := writeFiles(t, map[string]string{"query.rq": "SELECT * WHERE { ?s ?p ?o }"})

	eng := okEngine()
	eng.queryResp = engine.Response{Status: 200, Body: resultJSON}
	s := New("run", testConfig(dir), eng, zap.NewNop(),
		[]*manifest.Test{syntaxTest(dir, "pos", "PositiveSyntaxTest11")})
	require.NoError(t, s.Run(context.Background()))
	assert.Equal(t, verdict.Passed, s.groups["syntax"][0].tests[0].Status)
	assert.Equal(t, 1, eng.syntaxCalls)
}

func TestRunNegativeSyntaxTests(t *testing.T) {
	dir := writeFiles(t, map[string]string{"query.rq": "SELECT WHERE broken"})

	// The engine rejects the query: the negative test passes.
	eng := okEngine()
	eng.queryResp = engine.Response{Status: 400, Body: `{"exception": "parse error"}`}
	s := New("run", testConfig(dir), eng, zap.NewNop(),
		[]*manifest.Test{syntaxTest(dir, "neg", "NegativeSyntaxTest11")})
	require.NoError(t, s.Run(context.Background()))
	assert.Equal(t, verdict.Passed, s.groups["syntax"][0].tests[0].Status)

	// The engine accepts the query: the negative test fails.
	eng = okEngine()
	eng.queryResp = engine.Response{Status: 200, Body: resultJSON}
	s = New("run", testConfig(dir), eng, zap.NewNop(),
		[]*manifest.Test{syntaxTest(dir, "neg", "NegativeSyntaxTest11")})
	require.NoError(t, s.Run(context.Background()))
	tc := s.groups["syntax"][0].tests[0]
	assert.Equal(t, verdict.Failed, tc.Status)
	assert.Equal(t, verdict.ExpectedException, tc.Kind)
}

func TestRunUpdateTests(t *testing.T) {
	graph := "<http://example.org/a> <http://example.org/p> \"v\" .\n"
	dir := writeFiles(t, map[string]string{
		"update.ru":  "INSERT DATA { <http://example.org/a> <http://example.org/p> \"v\" }",
		"result.ttl": graph,
	})
	eng := okEngine()
	eng.updateResp = engine.Response{Status: 200}
	eng.queryResp = engine.Response{Status: 200, Body: graph}

	upd := &manifest.Test{
		Name: "u1",
		Type: "UpdateEvaluationTest",
		Path: dir + string(filepath.Separator),
		Action: &manifest.Node{Fields: map[string][]manifest.Value{
			"query": {{Text: filepath.Join(dir, "update.ru")}},
		}},
		Result: &manifest.Node{Fields: map[string][]manifest.Value{
			"data": {{Text: filepath.Join(dir, "result.ttl")}},
		}},
	}
	s := New("run", testConfig(dir), eng, zap.NewNop(), []*manifest.Test{upd})
	require.NoError(t, s.Run(context.Background()))
	assert.Equal(t, verdict.Passed, s.groups["update"][0].tests[0].Status)
}

func TestRunHonorsCancellation(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"query.rq":   "SELECT ?s WHERE { ?s ?p ?o }",
		"data.ttl":   "",
		"result.srj": resultJSON,
	})
	eng := okEngine()
	s := New("run", testConfig(dir), eng, zap.NewNop(), []*manifest.Test{queryEvalTest(dir, "q1")})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := s.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, eng.setupCalls)
}

func TestWriteReport(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"query.rq":   "SELECT ?s WHERE { ?s ?p ?o }",
		"data.ttl":   "",
		"result.srj": resultJSON,
	})
	eng := okEngine()
	eng.queryResp = engine.Response{Status: 200, Body: resultJSON}
	s := New("report-run", testConfig(dir), eng, zap.NewNop(), []*manifest.Test{queryEvalTest(dir, "q1")})
	require.NoError(t, s.Run(context.Background()))

	out := t.TempDir()
	path, err := s.WriteReport(out)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, "report-run.json.gz"), path)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	zr, err := gzip.NewReader(f)
	require.NoError(t, err)

	var data map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(zr).Decode(&data))

	var info Info
	require.NoError(t, json.Unmarshal(data["info"], &info))
	assert.Equal(t, 1, info.Tests)
	assert.Equal(t, 1, info.Passed)
	assert.Zero(t, info.Failed)
	assert.NotEmpty(t, info.RunID)

	var record map[string]string
	require.NoError(t, json.Unmarshal(data["q1"], &record))
	assert.Equal(t, "Passed", record["status"])
	assert.Equal(t, "QueryEvaluationTest", record["typeName"])
	assert.Contains(t, record, "expectedHtml")
	assert.Contains(t, record, "config")

	passed, failed, intended := s.Counts()
	assert.Equal(t, 1, passed)
	assert.Zero(t, failed)
	assert.Zero(t, intended)
}
