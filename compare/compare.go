package compare

import "github.com/sparql-conformance/harness/verdict"

// ByFormat routes to the comparator for the result encoding. Unknown formats
// fail outright with empty renders.
func ByFormat(format, expectedPayload, actualPayload string, aliases AliasTable, numTypes NumericTypes) verdict.Outcome {
	switch format {
	case "srx":
		return XML(expectedPayload, actualPayload, aliases, numTypes)
	case "srj":
		return JSON(expectedPayload, actualPayload, aliases, numTypes)
	case "csv", "tsv":
		return SV(expectedPayload, actualPayload, format, aliases)
	case "ttl":
		return Turtle(expectedPayload, actualPayload)
	default:
		return verdict.FailedOutcome()
	}
}
