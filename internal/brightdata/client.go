// Package brightdata implements the asynchronous scrape engine on top of the
// Bright Data datasets API: one trigger call per job, then snapshot polling
// until the provider delivers records.
package brightdata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultBaseURL is the production datasets API endpoint.
const DefaultBaseURL = "https://api.brightdata.com/datasets/v3"

// Client is a thin HTTP client for the trigger and snapshot endpoints. The
// base URL is injectable so tests can point it at a local server.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient creates a client against the production API.
func NewClient(apiKey string) *Client {
	return NewClientWithBaseURL(apiKey, DefaultBaseURL)
}

// NewClientWithBaseURL creates a client against a specific endpoint.
func NewClientWithBaseURL(apiKey, baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

type triggerRequest struct {
	URL       string `json:"url"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// Trigger submits one collection run against a dataset and returns the
// provider-side snapshot id.
func (c *Client) Trigger(ctx context.Context, datasetID, targetURL string, start, end time.Time) (string, error) {
	const stamp = "2006-01-02T15:04:05.000Z"

	body, err := json.Marshal([]triggerRequest{{
		URL:       targetURL,
		StartDate: start.UTC().Format(stamp),
		EndDate:   end.UTC().Format(stamp),
	}})
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/trigger?dataset_id=%s&include_errors=true&type=discover_new&discover_by=profile_url", c.baseURL, datasetID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("trigger failed: status %d, body: %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		SnapshotID string `json:"snapshot_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	if result.SnapshotID == "" {
		return "", fmt.Errorf("no snapshot_id in trigger response")
	}
	return result.SnapshotID, nil
}

// Snapshot is one poll of a provider-side job. Either Records is populated
// (the run finished and delivered its payload) or Message describes the
// in-progress state.
type Snapshot struct {
	Ready   bool
	Message string
	Records []map[string]any
}

// FetchSnapshot polls the snapshot endpoint. 202 and 404 both mean the run
// is still in progress; a JSON object with a running status likewise. A JSON
// array is the finished payload.
func (c *Client) FetchSnapshot(ctx context.Context, snapshotID string) (*Snapshot, error) {
	url := fmt.Sprintf("%s/snapshot/%s?format=json", c.baseURL, snapshotID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case http.StatusAccepted:
		return &Snapshot{Message: progressMessage(body, "snapshot is being processed")}, nil
	case http.StatusNotFound:
		return &Snapshot{Message: "snapshot not ready yet"}, nil
	case http.StatusOK:
	default:
		return nil, fmt.Errorf("snapshot poll failed: status %d, body: %s", resp.StatusCode, string(body))
	}

	var records []map[string]any
	if err := json.Unmarshal(body, &records); err == nil {
		return &Snapshot{Ready: true, Records: records}, nil
	}

	// Object payload: still running.
	return &Snapshot{Message: progressMessage(body, "scraping in progress")}, nil
}

func progressMessage(body []byte, fallback string) string {
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &obj); err == nil && obj.Message != "" {
		return obj.Message
	}
	return fallback
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
}
