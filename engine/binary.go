package engine

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sparql-conformance/harness/config"
	"github.com/sparql-conformance/harness/rdfgraph"
)

const (
	indexName         = "TestSuite"
	indexBuiltMarker  = "Index build completed"
	serverProbeQuery  = "SELECT ?s ?p ?o { ?s ?p ?o } LIMIT 1"
	serverProbeTries  = 8
	serverProbePause  = 250 * time.Millisecond
	indexSettingsJSON = `{ "num-triples-per-batch": 1000000 }`
)

// Binary drives engine binaries (IndexBuilderMain, ServerMain) directly on
// the host.
type Binary struct {
	cfg    *config.Config
	runner CommandRunner
	client *http.Client
	logger *zap.Logger

	server   Process
	tempTTLs []string
}

// NewBinary returns a lifecycle for the binary system.
func NewBinary(cfg *config.Config, runner CommandRunner, logger *zap.Logger) *Binary {
	return &Binary{
		cfg:    cfg,
		runner: runner,
		client: &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}
}

// ProtocolEndpoint implements Engine.
func (b *Binary) ProtocolEndpoint() string { return "sparql" }

// Setup implements Engine: index build first, then server start with a
// readiness probe.
func (b *Binary) Setup(ctx context.Context, graphs []GraphRef) SetupResult {
	var res SetupResult

	settingsPath := indexName + ".settings.json"
	if err := os.WriteFile(settingsPath, []byte(indexSettingsJSON), 0o644); err != nil {
		res.IndexLog = fmt.Sprintf("write %s: %v", settingsPath, err)
		return res
	}

	argv := []string{
		filepath.Join(b.cfg.BinariesDir, "IndexBuilderMain"),
		"-s", settingsPath,
		"-i", indexName,
		"-p", "false",
	}
	for _, g := range graphs {
		path, err := b.prepareGraph(g)
		if err != nil {
			res.IndexLog = err.Error()
			return res
		}
		name := g.Name
		if name == "" {
			name = "-"
		}
		argv = append(argv, "-f", path, "-F", "ttl", "-g", name)
	}

	out, err := b.runner.Run(ctx, argv)
	res.IndexLog = out
	if err != nil {
		res.IndexLog = fmt.Sprintf("indexing error: %v\n\n%s", err, out)
		return res
	}
	if !strings.Contains(out, indexBuiltMarker) {
		return res
	}
	res.IndexOK = true
	b.removeTempTTLs()

	res.ServerOK, res.ServerLog = b.startServer(ctx)
	return res
}

func (b *Binary) prepareGraph(g GraphRef) (string, error) {
	if !strings.HasSuffix(g.Path, ".rdf") {
		return g.Path, nil
	}
	data, err := os.ReadFile(g.Path)
	if err != nil {
		return "", fmt.Errorf("read graph %s: %w", g.Path, err)
	}
	turtle, err := rdfgraph.RDFXMLToTurtle(string(data), g.Name)
	if err != nil {
		return "", fmt.Errorf("convert graph %s: %w", g.Path, err)
	}
	ttlPath := strings.TrimSuffix(g.Path, ".rdf") + ".ttl"
	if err := os.WriteFile(ttlPath, []byte(turtle), 0o644); err != nil {
		return "", fmt.Errorf("write graph %s: %w", ttlPath, err)
	}
	b.tempTTLs = append(b.tempTTLs, ttlPath)
	return ttlPath, nil
}

func (b *Binary) removeTempTTLs() {
	for _, p := range b.tempTTLs {
		os.Remove(p)
	}
	b.tempTTLs = nil
}

func (b *Binary) startServer(ctx context.Context) (bool, string) {
	logPath := indexName + ".server-log.txt"
	argv := []string{
		filepath.Join(b.cfg.BinariesDir, "ServerMain"),
		"-i", indexName,
		"-j", "8",
		"-p", strconv.Itoa(b.cfg.Port),
		"-a", b.cfg.AccessToken,
	}
	proc, err := b.runner.Start(ctx, argv, logPath)
	if err != nil {
		return false, fmt.Sprintf("starting server: %v", err)
	}
	b.server = proc

	for i := 0; i < serverProbeTries; i++ {
		if ctx.Err() != nil {
			return false, "server startup canceled"
		}
		resp := b.post(ctx, b.baseURL(), "application/sparql-query", "", serverProbeQuery)
		if resp.Status == http.StatusOK {
			return true, b.readLog(logPath)
		}
		time.Sleep(serverProbePause)
	}
	return false, "server failed to start within expected time\n" + b.readLog(logPath)
}

func (b *Binary) readLog(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return string(data)
}

// Cleanup implements Engine: stop the server and remove index artifacts.
func (b *Binary) Cleanup(context.Context) error {
	if b.server != nil {
		if err := b.server.Kill(); err != nil {
			b.logger.Warn("stopping server", zap.Error(err))
		}
		b.server = nil
	}
	b.removeTempTTLs()
	patterns := []string{
		indexName + ".index.*",
		indexName + ".vocabulary.*",
		indexName + ".prefixes",
		indexName + ".meta-data.json",
		indexName + ".settings.json",
		indexName + ".index-log.txt",
		indexName + ".server-log.txt",
	}
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			continue
		}
		for _, m := range matches {
			if err := os.Remove(m); err != nil {
				return fmt.Errorf("remove index artifact %s: %w", m, err)
			}
		}
	}
	return nil
}

// Query implements Engine.
func (b *Binary) Query(ctx context.Context, query, format string) Response {
	return b.post(ctx, b.baseURL(), "application/sparql-query; charset=utf-8", AcceptHeader(format), query)
}

// Update implements Engine.
func (b *Binary) Update(ctx context.Context, query string) Response {
	u := b.baseURL() + "?access-token=" + url.QueryEscape(b.cfg.AccessToken)
	return b.post(ctx, u, "application/sparql-update; charset=utf-8", "", query)
}

// ActivateSyntaxTestMode implements Engine: syntax tests only need the
// engine to parse, not evaluate.
func (b *Binary) ActivateSyntaxTestMode(ctx context.Context) error {
	u := fmt.Sprintf("%s?access-token=%s&syntax-test-mode=true",
		b.baseURL(), url.QueryEscape(b.cfg.AccessToken))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("activate syntax test mode: %w", err)
	}
	resp.Body.Close()
	return nil
}

func (b *Binary) baseURL() string {
	return "http://" + b.cfg.Endpoint()
}

func (b *Binary) post(ctx context.Context, u, contentType, accept, body string) Response {
	return postSPARQL(ctx, b.client, u, contentType, accept, body)
}
