// Package engine manages the SPARQL engine under test: building an index
// over the test graphs, starting and stopping the server, and sending
// queries and updates. Two lifecycles exist, one driving a container
// runtime and one driving engine binaries on the host.
package engine

import "context"

// GraphRef points at one input graph file. Name is the target graph IRI,
// "-" or empty for the default graph.
type GraphRef struct {
	Path string
	Name string
}

// SetupResult reports the two setup stages separately so a failed index
// build and a failed server start classify differently.
type SetupResult struct {
	IndexOK   bool
	ServerOK  bool
	IndexLog  string
	ServerLog string
}

// Response is an engine answer to a query or update.
type Response struct {
	Status int
	Body   string
}

// Engine is the lifecycle collaborator the orchestrator drives.
type Engine interface {
	// Setup builds the index over the given graphs and starts the server.
	Setup(ctx context.Context, graphs []GraphRef) SetupResult
	// Cleanup stops the server and removes index artifacts.
	Cleanup(ctx context.Context) error
	// Query executes a SPARQL query, asking for the given result format.
	// Transport failures come back as a non-200 response, not an error.
	Query(ctx context.Context, query, format string) Response
	// Update executes a SPARQL update.
	Update(ctx context.Context, query string) Response
	// ProtocolEndpoint is the path token protocol scripts use in place of
	// the literal "sparql".
	ProtocolEndpoint() string
	// ActivateSyntaxTestMode switches the engine into a mode where syntax
	// tests are answered without evaluation. Engines without such a mode
	// treat this as a no-op.
	ActivateSyntaxTestMode(ctx context.Context) error
}

// AcceptHeader maps a result format to the media type requested from the
// engine. Unknown formats fall back to results JSON.
func AcceptHeader(format string) string {
	switch format {
	case "csv":
		return "text/csv"
	case "tsv":
		return "text/tab-separated-values"
	case "srx":
		return "application/sparql-results+xml"
	case "ttl":
		return "text/turtle"
	default:
		return "application/sparql-results+json"
	}
}
