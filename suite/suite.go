package suite

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/sparql-conformance/harness/compare"
	"github.com/sparql-conformance/harness/config"
	"github.com/sparql-conformance/harness/engine"
	"github.com/sparql-conformance/harness/httpwire"
	"github.com/sparql-conformance/harness/manifest"
	"github.com/sparql-conformance/harness/protocol"
	"github.com/sparql-conformance/harness/verdict"
)

const serverLogFile = "TestSuite.server-log.txt"

var logTimestamp = regexp.MustCompile(`\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\.\d{3}\s*-`)

type group struct {
	graphs []engine.GraphRef
	tests  []*TestCase
}

// Suite drives one conformance run over the grouped tests.
type Suite struct {
	Name string

	cfg    *config.Config
	eng    engine.Engine
	logger *zap.Logger

	groups    map[string][]*group
	testCount int

	passed       int
	failed       int
	passedFailed int
}

// New builds a suite from loaded manifest entries.
func New(name string, cfg *config.Config, eng engine.Engine, logger *zap.Logger, tests []*manifest.Test) *Suite {
	cases := make(map[*manifest.Test]*TestCase, len(tests))
	for _, t := range tests {
		cases[t] = NewTestCase(t)
	}
	groups := make(map[string][]*group)
	for category, gs := range manifest.GroupByGraphs(tests, cfg.TestSuiteDir) {
		for _, g := range gs {
			converted := &group{graphs: toEngineGraphs(g.Graphs)}
			for _, t := range g.Tests {
				converted.tests = append(converted.tests, cases[t])
			}
			groups[category] = append(groups[category], converted)
		}
	}
	return &Suite{
		Name:      name,
		cfg:       cfg,
		eng:       eng,
		logger:    logger,
		groups:    groups,
		testCount: len(tests),
	}
}

func toEngineGraphs(refs []manifest.GraphRef) []engine.GraphRef {
	out := make([]engine.GraphRef, len(refs))
	for i, r := range refs {
		out[i] = engine.GraphRef{Path: r.Path, Name: r.Name}
	}
	return out
}

// Run executes every category in order. Cancellation is honored at group
// boundaries so a group that started gets torn down cleanly.
func (s *Suite) Run(ctx context.Context) error {
	s.runQueryTests(ctx, s.groups["query"])
	s.runQueryTests(ctx, s.groups["format"])
	s.runUpdateTests(ctx, s.groups["update"])
	s.runSyntaxTests(ctx, s.groups["syntax"])
	s.runProtocolTests(ctx, s.groups["protocol"])
	s.runGraphStoreProtocolTests(ctx, s.groups["graphstoreprotocol"])
	if ctx.Err() != nil {
		s.logger.Warn("run interrupted")
		s.eng.Cleanup(context.WithoutCancel(ctx))
		return ctx.Err()
	}
	return nil
}

// prepareEnvironment indexes the group's graphs and starts the server. On
// failure every test of the group is classified accordingly.
func (s *Suite) prepareEnvironment(ctx context.Context, graphs []engine.GraphRef, tests []*TestCase) bool {
	s.eng.Cleanup(ctx)
	res := s.eng.Setup(ctx, graphs)
	if !res.IndexOK {
		s.eng.Cleanup(ctx)
		for _, tc := range tests {
			tc.setStatus(verdict.Failed, verdict.IndexBuildError)
		}
	} else if !res.ServerOK {
		s.eng.Cleanup(ctx)
		for _, tc := range tests {
			tc.setStatus(verdict.Failed, verdict.ServerError)
		}
	}
	if res.IndexOK && res.ServerOK && len(tests) > 0 && strings.Contains(tests[0].Meta.Type, "Syntax") {
		if err := s.eng.ActivateSyntaxTestMode(ctx); err != nil {
			s.logger.Warn("activating syntax test mode", zap.Error(err))
		}
	}
	for _, tc := range tests {
		tc.IndexLog = res.IndexLog
		tc.ServerLog = res.ServerLog
	}
	return res.IndexOK && res.ServerOK
}

// classifyFailedResponse maps a non-200 engine answer onto the error
// taxonomy by its body content.
func (s *Suite) classifyFailedResponse(tc *TestCase, resp engine.Response) {
	kind := verdict.QueryResultError
	queryLog := resp.Body
	switch {
	case strings.Contains(resp.Body, "exception"):
		kind = verdict.QueryException
		var payload struct {
			Exception string `json:"exception"`
		}
		if err := json.Unmarshal([]byte(resp.Body), &payload); err == nil {
			queryLog = strings.ReplaceAll(payload.Exception, ";", ";\n")
		}
	case strings.Contains(resp.Body, "HTTP Request"):
		kind = verdict.RequestError
	case strings.Contains(resp.Body, "not supported"):
		kind = verdict.NotSupported
		if strings.Contains(resp.Body, "content type") {
			kind = verdict.ContentTypeNotSupported
		}
	}
	tc.QueryLog = queryLog
	tc.setStatus(verdict.Failed, kind)
}

func (s *Suite) evaluateQuery(tc *TestCase, expected, actual, format string) {
	out := compare.ByFormat(format, expected, actual, s.cfg.AliasTable(), s.cfg.NumericTypes())
	tc.setStatus(out.Status, out.Kind)
	tc.ExpectedHTML = out.Expected
	tc.GotHTML = out.Actual
	tc.ExpectedRed = out.ExpectedR
	tc.GotRed = out.ActualR
}

// evaluateUpdate compares the post-update state of the default graph and
// every named graph; the first non-passing graph decides the verdict.
func (s *Suite) evaluateUpdate(tc *TestCase, expected, actual []string) {
	outs := make([]verdict.Outcome, len(expected))
	for i := range expected {
		outs[i] = compare.Turtle(expected[i], actual[i])
	}
	final := outs[0]
	for _, out := range outs {
		if out.Status != verdict.Passed {
			final = out
			break
		}
	}
	tc.setStatus(final.Status, final.Kind)

	got := "<b>default:</b><br>" + outs[0].Actual
	exp := "<b>default:</b><br>" + outs[0].Expected
	gotRed := "<b>default:</b><br>" + outs[0].ActualR
	expRed := "<b>default:</b><br>" + outs[0].ExpectedR
	for i, g := range tc.ResultFiles {
		out := outs[i+1]
		got += "<br><br><b>" + g.Label + ":</b><br>" + out.Actual
		exp += "<br><br><b>" + g.Label + ":</b><br>" + out.Expected
		gotRed += "<br><br><b>" + g.Label + ":</b><br>" + out.ActualR
		expRed += "<br><br><b>" + g.Label + ":</b><br>" + out.ExpectedR
	}
	tc.GotHTML = got
	tc.ExpectedHTML = exp
	tc.GotRed = gotRed
	tc.ExpectedRed = expRed
}

func (s *Suite) attachServerLog(tests []*TestCase) {
	log := readFileOrEmpty(serverLogFile)
	if log == "" {
		return
	}
	log = logTimestamp.ReplaceAllString(log, "")
	for _, tc := range tests {
		tc.ServerLog = log
	}
}

func (s *Suite) runQueryTests(ctx context.Context, groups []*group) {
	for _, g := range groups {
		if ctx.Err() != nil {
			return
		}
		s.logger.Info("running query tests", zap.Int("tests", len(g.tests)))
		if !s.prepareEnvironment(ctx, g.graphs, g.tests) {
			continue
		}
		for _, tc := range g.tests {
			s.logger.Info("running", zap.String("test", tc.Meta.Name))
			resp := s.eng.Query(ctx, tc.QueryFile, tc.ResultFormat)
			if resp.Status == 200 {
				s.evaluateQuery(tc, tc.ResultFile, resp.Body, tc.ResultFormat)
			} else {
				s.classifyFailedResponse(tc, resp)
			}
		}
		s.attachServerLog(g.tests)
		s.eng.Cleanup(ctx)
	}
}

func (s *Suite) runUpdateTests(ctx context.Context, groups []*group) {
	for _, g := range groups {
		for _, tc := range g.tests {
			if ctx.Err() != nil {
				return
			}
			s.logger.Info("running", zap.String("test", tc.Meta.Name))
			// Updates mutate the index; every test gets a fresh one.
			if !s.prepareEnvironment(ctx, g.graphs, g.tests) {
				break
			}
			resp := s.eng.Update(ctx, tc.QueryFile)
			if resp.Status == 200 {
				actual := []string{s.eng.Query(ctx,
					"CONSTRUCT {?s ?p ?o} WHERE { GRAPH ql:default-graph {?s ?p ?o}}", "ttl").Body}
				expected := []string{tc.ResultFile}
				for _, named := range tc.ResultFiles {
					q := fmt.Sprintf("CONSTRUCT {?s ?p ?o} WHERE { GRAPH <%s> {?s ?p ?o}}", named.Label)
					actual = append(actual, s.eng.Query(ctx, q, "ttl").Body)
					expected = append(expected, named.Content)
				}
				s.evaluateUpdate(tc, expected, actual)
			} else {
				s.classifyFailedResponse(tc, resp)
			}
			s.attachServerLog(g.tests)
			s.eng.Cleanup(ctx)
		}
	}
}

func (s *Suite) runSyntaxTests(ctx context.Context, groups []*group) {
	for _, g := range groups {
		if ctx.Err() != nil {
			return
		}
		s.logger.Info("running syntax tests", zap.Int("tests", len(g.tests)))
		if !s.prepareEnvironment(ctx, g.graphs, g.tests) {
			continue
		}
		for _, tc := range g.tests {
			s.logger.Info("running", zap.String("test", tc.Meta.Name))
			format := "srx"
			if strings.Contains(tc.Meta.Name, "construct") {
				format = "ttl"
			}
			var resp engine.Response
			if strings.Contains(tc.Meta.Type, "Update") {
				resp = s.eng.Update(ctx, tc.QueryFile)
			} else {
				resp = s.eng.Query(ctx, tc.QueryFile, format)
			}
			if resp.Status != 200 {
				s.classifyFailedResponse(tc, resp)
			} else {
				tc.QueryLog = resp.Body
				tc.setStatus(verdict.Passed, "")
			}
			// Negative syntax tests expect the engine to reject the query.
			if tc.Meta.Type == "NegativeSyntaxTest11" || tc.Meta.Type == "NegativeUpdateSyntaxTest11" {
				if tc.Kind.IsQueryError() {
					tc.setStatus(verdict.Passed, "")
				} else {
					tc.setStatus(verdict.Failed, verdict.ExpectedException)
				}
			}
		}
		s.attachServerLog(g.tests)
		s.eng.Cleanup(ctx)
	}
}

func (s *Suite) protocolRunner() *protocol.Runner {
	return &protocol.Runner{
		Client:      &httpwire.Client{Address: s.cfg.Endpoint()},
		Endpoint:    s.eng.ProtocolEndpoint(),
		GraphStore:  s.cfg.GraphStore,
		AccessToken: s.cfg.AccessToken,
		Logger:      s.logger,
	}
}

func (s *Suite) runProtocolTests(ctx context.Context, groups []*group) {
	runner := s.protocolRunner()
	for _, g := range groups {
		// Several protocol scripts query graphs the manifest never lists.
		graphs := append([]engine.GraphRef(nil), g.graphs...)
		graphs = append(graphs, protocolDataGraphs(s.cfg.TestSuiteDir)...)
		for _, tc := range g.tests {
			if ctx.Err() != nil {
				return
			}
			s.logger.Info("running", zap.String("test", tc.Meta.Name))
			if !s.prepareEnvironment(ctx, graphs, g.tests) {
				break
			}
			if tc.Meta.Comment != "" {
				res := runner.Run(ctx, tc.Meta.Comment, "", false)
				s.attachServerLog(g.tests)
				s.eng.Cleanup(ctx)
				tc.setStatus(res.Status, res.Kind)
				tc.ProtocolSent = res.SentRequests
				tc.ResponseExtracted = res.ExpectedResponses
				tc.Response = res.GotResponses
			}
			tc.Protocol = tc.Meta.Comment
		}
	}
}

func (s *Suite) runGraphStoreProtocolTests(ctx context.Context, groups []*group) {
	runner := s.protocolRunner()
	for _, g := range groups {
		if ctx.Err() != nil {
			return
		}
		if !s.prepareEnvironment(ctx, g.graphs, g.tests) {
			break
		}
		// Graph-store tests chain: one test creates a resource, later
		// tests address it through the carried path.
		carriedPath := "/newpath-not-set"
		for _, tc := range g.tests {
			s.logger.Info("running", zap.String("test", tc.Meta.Name))
			if tc.Meta.Comment != "" {
				res := runner.Run(ctx, tc.Meta.Comment, carriedPath, true)
				if res.NewPath != "" {
					carriedPath = res.NewPath
				}
				tc.setStatus(res.Status, res.Kind)
				tc.ProtocolSent = res.SentRequests
				tc.ResponseExtracted = res.ExpectedResponses
				tc.Response = res.GotResponses
			}
			tc.Protocol = tc.Meta.Comment
		}
		s.attachServerLog(g.tests)
		s.eng.Cleanup(ctx)
	}
}

// Analyze sets up the engine for each graph group and keeps the server
// running until the operator advances, for inspecting a failing setup by
// hand.
func (s *Suite) Analyze(ctx context.Context, in io.Reader, out io.Writer) error {
	reader := bufio.NewReader(in)
	for _, category := range manifest.Categories {
		for _, g := range s.groups[category] {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if !s.prepareEnvironment(ctx, g.graphs, g.tests) {
				return fmt.Errorf("environment setup failed for %d tests", len(g.tests))
			}
			fmt.Fprintf(out, "Listening on: %s ...\n\n\n", s.cfg.Endpoint())
			fmt.Fprintln(out, "Press Enter to shutdown the server and continue...")
			if _, err := reader.ReadString('\n'); err != nil {
				s.eng.Cleanup(ctx)
				return err
			}
			s.eng.Cleanup(ctx)
		}
	}
	return nil
}

func protocolDataGraphs(suiteDir string) []engine.GraphRef {
	var graphs []engine.GraphRef
	for i := 0; i < 4; i++ {
		graphs = append(graphs, engine.GraphRef{
			Path: fmt.Sprintf("%s/data/data%d.rdf", suiteDir, i),
			Name: fmt.Sprintf("http://kasei.us/2009/09/sparql/data/data%d.rdf", i),
		})
	}
	return graphs
}
