package engine

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// postSPARQL sends one query or update over HTTP. Transport failures fold
// into a 500 response so the orchestrator can classify them from the body.
func postSPARQL(ctx context.Context, client *http.Client, u, contentType, accept, body string) Response {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(body))
	if err != nil {
		return Response{Status: http.StatusInternalServerError, Body: fmt.Sprintf("query execution error: %v", err)}
	}
	req.Header.Set("Content-Type", contentType)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	resp, err := client.Do(req)
	if err != nil {
		return Response{Status: http.StatusInternalServerError, Body: fmt.Sprintf("query execution error: %v", err)}
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{Status: http.StatusInternalServerError, Body: fmt.Sprintf("query execution error: %v", err)}
	}
	return Response{Status: resp.StatusCode, Body: string(data)}
}
