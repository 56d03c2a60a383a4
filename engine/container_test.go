package engine

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sparql-conformance/harness/config"
)

func TestContainerSetupStagesGraphs(t *testing.T) {
	t.Chdir(t.TempDir())
	host, port := probeServer(t)

	runner := &fakeRunner{runOut: "Index build completed"}
	c := NewContainer(&config.Config{
		System:        config.SystemContainer,
		Image:         "engine:latest",
		ServerAddress: host,
		Port:          port,
		AccessToken:   "abc",
	}, runner, zap.NewNop())

	srcDir := t.TempDir()
	graph := filepath.Join(srcDir, "data.ttl")
	require.NoError(t, os.WriteFile(graph, []byte("<http://s> <http://p> <http://o> .\n"), 0o644))

	res := c.Setup(context.Background(), []GraphRef{{Path: graph, Name: "-"}})
	assert.True(t, res.IndexOK, res.IndexLog)
	assert.True(t, res.ServerOK, res.ServerLog)

	// First run builds the index, second starts the server, third reads logs.
	require.GreaterOrEqual(t, len(runner.runArgv), 2)
	indexArgv := strings.Join(runner.runArgv[0], " ")
	assert.Contains(t, indexArgv, "docker run --rm")
	assert.Contains(t, indexArgv, "engine:latest")
	// The graph was staged into the working directory under its base name.
	assert.Contains(t, indexArgv, "-f data.ttl")

	serverArgv := strings.Join(runner.runArgv[1], " ")
	assert.Contains(t, serverArgv, "docker run -d")
	assert.Contains(t, serverArgv, "-a abc")
}

func TestContainerSetupIndexFailure(t *testing.T) {
	t.Chdir(t.TempDir())
	runner := &fakeRunner{runOut: "exploded"}
	c := NewContainer(&config.Config{Image: "engine:latest", Port: 1}, runner, zap.NewNop())

	srcDir := t.TempDir()
	graph := filepath.Join(srcDir, "data.ttl")
	require.NoError(t, os.WriteFile(graph, []byte("<http://s> <http://p> <http://o> .\n"), 0o644))

	res := c.Setup(context.Background(), []GraphRef{{Path: graph, Name: "-"}})
	assert.False(t, res.IndexOK)
	require.Len(t, runner.runArgv, 1)
}

func TestContainerCleanupRemovesArtifacts(t *testing.T) {
	t.Chdir(t.TempDir())
	runner := &fakeRunner{}
	c := NewContainer(&config.Config{Image: "engine:latest", Port: 1}, runner, zap.NewNop())

	require.NoError(t, os.WriteFile("TestSuite.settings.json", []byte("{}"), 0o644))
	require.NoError(t, c.Cleanup(context.Background()))

	if _, err := os.Stat("TestSuite.settings.json"); !os.IsNotExist(err) {
		t.Fatalf("index artifact must be removed")
	}
	last := runner.runArgv[len(runner.runArgv)-1]
	assert.Equal(t, []string{"docker", "rm", "-f", "sparql-conformance-server"}, last)
}
