package suite

import (
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	cyberphone "github.com/cyberphone/json-canonicalization/go/src/webpki.org/jsoncanonicalizer"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sparql-conformance/harness/compare"
	"github.com/sparql-conformance/harness/manifest"
	"github.com/sparql-conformance/harness/verdict"
)

// Info is the aggregate block of a result archive.
type Info struct {
	Name         string `json:"name"`
	RunID        string `json:"runId"`
	Passed       int    `json:"passed"`
	Tests        int    `json:"tests"`
	Failed       int    `json:"failed"`
	PassedFailed int    `json:"passedFailed"`
	NotTested    int    `json:"notTested"`
}

// WriteReport writes the gzip-compressed JSON result archive into dir and
// returns its path. Duplicate test names get a numeric suffix so no record
// is lost. The archive's canonical-form digest is logged for comparing runs
// byte-independently.
func (s *Suite) WriteReport(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create results dir: %w", err)
	}
	path := filepath.Join(dir, s.Name+".json.gz")

	cfgJSON, err := json.MarshalIndent(s.cfg, "", "    ")
	if err != nil {
		return "", fmt.Errorf("marshal config: %w", err)
	}

	data := make(map[string]any)
	for _, category := range manifest.Categories {
		for _, g := range s.groups[category] {
			for _, tc := range g.tests {
				switch tc.Status {
				case verdict.Passed:
					s.passed++
				case verdict.Failed:
					s.failed++
				case verdict.Intended:
					s.passedFailed++
				}
				name := tc.Meta.Name
				for i := 2; ; i++ {
					if _, taken := data[name]; !taken {
						break
					}
					name = fmt.Sprintf("%s %d", tc.Meta.Name, i)
				}
				data[name] = tc.ToRecord(string(cfgJSON))
			}
		}
	}
	data["info"] = Info{
		Name:         "info",
		RunID:        uuid.NewString(),
		Passed:       s.passed,
		Tests:        s.testCount,
		Failed:       s.failed,
		PassedFailed: s.passedFailed,
		NotTested:    s.testCount - s.passed - s.failed - s.passedFailed,
	}

	payload, err := json.MarshalIndent(data, "", "    ")
	if err != nil {
		return "", fmt.Errorf("marshal results: %w", err)
	}

	if canonical, err := cyberphone.Transform(payload); err == nil {
		sum := sha256.Sum256(canonical)
		s.logger.Info("result archive digest",
			zap.String("sha256", hex.EncodeToString(sum[:])))
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create result archive: %w", err)
	}
	zw := gzip.NewWriter(f)
	if _, err := zw.Write(payload); err != nil {
		zw.Close()
		f.Close()
		return "", fmt.Errorf("write result archive: %w", err)
	}
	if err := zw.Close(); err != nil {
		f.Close()
		return "", fmt.Errorf("close result archive: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close result archive: %w", err)
	}
	s.logger.Info("done writing result file", zap.String("path", path))
	return path, nil
}

// Counts returns the aggregated verdict counters of the last WriteReport.
func (s *Suite) Counts() (passed, failed, passedFailed int) {
	return s.passed, s.failed, s.passedFailed
}

// ToRecord flattens the test case into the archive's string-record shape.
// HTML diff fields are stored as-is; everything else is escaped for direct
// embedding in the report viewer.
func (tc *TestCase) ToRecord(configJSON string) map[string]string {
	esc := compare.EscapeHTML

	graphFile := "<b>default:</b> <br> <pre>" + esc(tc.GraphFile) + "</pre>"
	for _, g := range tc.IndexFiles {
		graphFile += "<br><b>" + g.Label + ":</b> <br> <pre>" + esc(g.Content) + "</pre>"
	}

	features := make([]string, len(tc.Meta.Features))
	copy(features, tc.Meta.Features)

	return map[string]string{
		"test":              esc(tc.Meta.URI),
		"typeName":          esc(tc.Meta.Type),
		"name":              esc(tc.Meta.Name),
		"group":             esc(tc.Meta.Group),
		"feature":           esc(strings.Join(features, ";")),
		"comment":           esc(tc.Meta.Comment),
		"approval":          esc(tc.Meta.Approval),
		"approvedBy":        esc(tc.Meta.Approver),
		"query":             esc(tc.Query),
		"graph":             esc(tc.Graph),
		"queryFile":         esc(tc.QueryFile),
		"graphFile":         graphFile,
		"resultFile":        esc(tc.ResultFile),
		"status":            esc(string(tc.Status)),
		"errorType":         esc(string(tc.Kind)),
		"expectedHtml":      tc.ExpectedHTML,
		"gotHtml":           tc.GotHTML,
		"expectedHtmlRed":   tc.ExpectedRed,
		"gotHtmlRed":        tc.GotRed,
		"indexLog":          esc(tc.IndexLog),
		"serverLog":         esc(tc.ServerLog),
		"serverStatus":      esc(tc.ServerStatus),
		"queryResult":       esc(tc.QueryResult),
		"queryAnswer":       esc(tc.QueryAnswer),
		"queryLog":          esc(tc.QueryLog),
		"querySent":         esc(tc.QuerySent),
		"regime":            esc(tc.Meta.Regime),
		"protocol":          esc(tc.Protocol),
		"protocolSent":      esc(tc.ProtocolSent),
		"responseExtracted": esc(tc.ResponseExtracted),
		"response":          esc(tc.Response),
		"config":            esc(configJSON),
		"indexFiles":        esc(marshalNamedGraphs(tc.IndexFiles)),
		"resultFiles":       esc(marshalNamedGraphs(tc.ResultFiles)),
	}
}

func marshalNamedGraphs(graphs []NamedGraph) string {
	m := make(map[string]string, len(graphs))
	for _, g := range graphs {
		m[g.Label] = g.Content
	}
	data, err := json.MarshalIndent(m, "", "    ")
	if err != nil {
		return "{}"
	}
	return string(data)
}
