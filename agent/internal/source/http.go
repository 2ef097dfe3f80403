package source

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/scanboard/scanboard/pkg/types"
)

// httpSource fetches a results document, typically a dashboard's
// /results.json or the output of an audit job published over HTTP.
type httpSource struct {
	url    string
	client *http.Client
}

func (s *httpSource) Load(ctx context.Context) (*types.AuditSummary, error) {
	body, err := get(ctx, s.client, s.url, "application/json, application/yaml;q=0.9")
	if err != nil {
		return nil, err
	}
	return types.Decode(body)
}

// get performs a GET and returns the body of a 200 response.
func get(ctx context.Context, client *http.Client, url, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", accept)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}
