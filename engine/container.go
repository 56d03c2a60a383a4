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
	serverContainerName = "sparql-conformance-server"
	indexContainerName  = "sparql-conformance-index"
)

// Container drives the engine through a container runtime. Graph files are
// copied into the working directory, which is mounted into the container.
type Container struct {
	cfg    *config.Config
	runner CommandRunner
	client *http.Client
	logger *zap.Logger

	copiedGraphs []string
}

// NewContainer returns a lifecycle for the container system.
func NewContainer(cfg *config.Config, runner CommandRunner, logger *zap.Logger) *Container {
	return &Container{
		cfg:    cfg,
		runner: runner,
		client: &http.Client{Timeout: 30 * time.Second},
		logger: logger,
	}
}

// ProtocolEndpoint implements Engine.
func (c *Container) ProtocolEndpoint() string { return "sparql" }

// Setup implements Engine.
func (c *Container) Setup(ctx context.Context, graphs []GraphRef) SetupResult {
	var res SetupResult

	workdir, err := os.Getwd()
	if err != nil {
		res.IndexLog = fmt.Sprintf("resolve workdir: %v", err)
		return res
	}

	local := make([]GraphRef, 0, len(graphs))
	for _, g := range graphs {
		name, err := c.stageGraph(g)
		if err != nil {
			res.IndexLog = err.Error()
			return res
		}
		local = append(local, GraphRef{Path: name, Name: g.Name})
	}

	res.IndexOK, res.IndexLog = c.buildIndex(ctx, workdir, local)
	if !res.IndexOK {
		return res
	}
	res.ServerOK, res.ServerLog = c.startServer(ctx, workdir)
	if res.ServerOK {
		c.removeStagedGraphs()
	}
	return res
}

// stageGraph copies the graph into the working directory, converting RDF/XML
// inputs to Turtle, and returns the container-relative file name.
func (c *Container) stageGraph(g GraphRef) (string, error) {
	data, err := os.ReadFile(g.Path)
	if err != nil {
		return "", fmt.Errorf("read graph %s: %w", g.Path, err)
	}
	name := filepath.Base(g.Path)
	if strings.HasSuffix(name, ".rdf") {
		turtle, err := rdfgraph.RDFXMLToTurtle(string(data), g.Name)
		if err != nil {
			return "", fmt.Errorf("convert graph %s: %w", g.Path, err)
		}
		data = []byte(turtle)
		name = strings.TrimSuffix(name, ".rdf") + ".ttl"
	}
	if err := os.WriteFile(name, data, 0o644); err != nil {
		return "", fmt.Errorf("stage graph %s: %w", name, err)
	}
	c.copiedGraphs = append(c.copiedGraphs, name)
	return name, nil
}

func (c *Container) removeStagedGraphs() {
	for _, p := range c.copiedGraphs {
		os.Remove(p)
	}
	c.copiedGraphs = nil
}

func (c *Container) buildIndex(ctx context.Context, workdir string, graphs []GraphRef) (bool, string) {
	if err := os.WriteFile(indexName+".settings.json", []byte(indexSettingsJSON), 0o644); err != nil {
		return false, fmt.Sprintf("write settings: %v", err)
	}
	argv := []string{
		"docker", "run", "--rm",
		"--name", indexContainerName,
		"-v", workdir + ":/index",
		"-w", "/index",
		c.cfg.Image,
		"IndexBuilderMain",
		"-s", indexName + ".settings.json",
		"-i", indexName,
		"-p", "false",
	}
	for _, g := range graphs {
		name := g.Name
		if name == "" {
			name = "-"
		}
		argv = append(argv, "-f", g.Path, "-F", "ttl", "-g", name)
	}
	out, err := c.runner.Run(ctx, argv)
	if err != nil {
		return false, fmt.Sprintf("indexing error: %v\n\n%s", err, out)
	}
	return strings.Contains(out, indexBuiltMarker), out
}

func (c *Container) startServer(ctx context.Context, workdir string) (bool, string) {
	port := strconv.Itoa(c.cfg.Port)
	argv := []string{
		"docker", "run", "-d",
		"--name", serverContainerName,
		"-p", port + ":" + port,
		"-v", workdir + ":/index",
		"-w", "/index",
		c.cfg.Image,
		"ServerMain",
		"-i", indexName,
		"-j", "8",
		"-p", port,
		"-a", c.cfg.AccessToken,
	}
	if out, err := c.runner.Run(ctx, argv); err != nil {
		return false, fmt.Sprintf("starting server: %v\n%s", err, out)
	}

	for i := 0; i < serverProbeTries; i++ {
		if ctx.Err() != nil {
			return false, "server startup canceled"
		}
		resp := postSPARQL(ctx, c.client, c.baseURL(), "application/sparql-query", "", serverProbeQuery)
		if resp.Status == http.StatusOK {
			return true, c.serverLog(ctx)
		}
		time.Sleep(serverProbePause)
	}
	return false, "server failed to start within expected time\n" + c.serverLog(ctx)
}

func (c *Container) serverLog(ctx context.Context) string {
	out, err := c.runner.Run(ctx, []string{"docker", "logs", serverContainerName})
	if err != nil {
		return ""
	}
	return out
}

// Cleanup implements Engine: remove the server container and the index
// artifacts from the working directory.
func (c *Container) Cleanup(ctx context.Context) error {
	if out, err := c.runner.Run(ctx, []string{"docker", "rm", "-f", serverContainerName}); err != nil {
		c.logger.Warn("removing server container", zap.Error(err), zap.String("output", out))
	}
	c.removeStagedGraphs()
	matches, err := filepath.Glob(indexName + ".*")
	if err != nil {
		return err
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil {
			return fmt.Errorf("remove index artifact %s: %w", m, err)
		}
	}
	return nil
}

// Query implements Engine.
func (c *Container) Query(ctx context.Context, query, format string) Response {
	return postSPARQL(ctx, c.client, c.baseURL(), "application/sparql-query; charset=utf-8", AcceptHeader(format), query)
}

// Update implements Engine.
func (c *Container) Update(ctx context.Context, query string) Response {
	u := c.baseURL() + "?access-token=" + url.QueryEscape(c.cfg.AccessToken)
	return postSPARQL(ctx, c.client, u, "application/sparql-update; charset=utf-8", "", query)
}

// ActivateSyntaxTestMode implements Engine. The container build has no such
// switch; queries in syntax tests are evaluated normally.
func (c *Container) ActivateSyntaxTestMode(context.Context) error { return nil }

func (c *Container) baseURL() string {
	return "http://" + c.cfg.Endpoint()
}

// New returns the lifecycle for the configured system.
func New(cfg *config.Config, runner CommandRunner, logger *zap.Logger) (Engine, error) {
	switch cfg.System {
	case config.SystemContainer:
		return NewContainer(cfg, runner, logger), nil
	case config.SystemBinary:
		return NewBinary(cfg, runner, logger), nil
	default:
		return nil, fmt.Errorf("unknown engine system %q", cfg.System)
	}
}
