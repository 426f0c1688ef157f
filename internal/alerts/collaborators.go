package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPCollaborator forwards opaque payloads to an owning system
// (compliance notification desk or ticketing). Failures are reported to
// the caller, which logs them; there is no retry at this layer.
type HTTPCollaborator struct {
	url    string
	client *http.Client
}

func NewHTTPCollaborator(url string) *HTTPCollaborator {
	if url == "" {
		return nil
	}
	return &HTTPCollaborator{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Send POSTs the payload as JSON to the collaborator endpoint.
func (c *HTTPCollaborator) Send(ctx context.Context, payload map[string]interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("collaborator returned status %d", resp.StatusCode)
	}
	return nil
}
