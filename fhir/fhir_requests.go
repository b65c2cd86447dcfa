package fhir

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client posts resources to a FHIR server.
type Client struct {
	Endpoint   string
	HTTPClient *http.Client
}

func NewClient(endpoint string) *Client {
	return &Client{
		Endpoint:   strings.TrimSuffix(endpoint, "/"),
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// PostTransaction submits the bundle to the server base URL.  Any non-2xx
// response is reported as an error that includes the status code.
func (c *Client) PostTransaction(ctx context.Context, bundle *Bundle) error {
	data, err := json.Marshal(bundle)
	if err != nil {
		return fmt.Errorf("encode bundle: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build request for %s: %w", c.Endpoint, err)
	}
	req.Header.Set("Content-Type", "application/fhir+json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("could not post to %s: %w", c.Endpoint, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("risk assessments did not post properly, received response code: %d", resp.StatusCode)
	}
	return nil
}
