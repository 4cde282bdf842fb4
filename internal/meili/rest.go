package meili

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/kailas-cloud/meiligate/internal/domain"
)

// rest sends requests whose bodies must reach Meilisearch exactly as built.
// meilisearch-go request structs drop zero values and empty collections.
type rest struct {
	hc      *http.Client
	baseURL string
	apiKey  string
}

func newRest(hc *http.Client, baseURL, apiKey string) *rest {
	return &rest{hc: hc, baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey}
}

// call sends body as JSON and returns the raw response body.
// Non-2xx answers come back as *domain.UpstreamError.
func (r *rest) call(ctx context.Context, method, path string, body any) ([]byte, error) {
	payload, err := bridge.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode %T: %w", body, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, upstreamError(resp.StatusCode, data)
	}
	return data, nil
}

func upstreamError(status int, data []byte) *domain.UpstreamError {
	var body struct {
		Message string `json:"message"`
		Code    string `json:"code"`
		Type    string `json:"type"`
		Link    string `json:"link"`
	}
	_ = bridge.Unmarshal(data, &body)

	up := &domain.UpstreamError{
		Status:  status,
		Code:    body.Code,
		Type:    body.Type,
		Message: body.Message,
		Link:    body.Link,
	}
	if up.Message == "" {
		up.Message = fmt.Sprintf("meilisearch answered %d: %s", status, bytes.TrimSpace(data))
	}
	return up
}
