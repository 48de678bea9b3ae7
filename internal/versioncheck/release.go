package versioncheck

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// DefaultAPIBase is the base URL of the release feed.
const DefaultAPIBase = "https://api.github.com"

// DefaultTimeout bounds a release lookup.
const DefaultTimeout = 2 * time.Second

const latestReleasePath = "/repos/gobeyondidentity/keyissuer/releases/latest"

// Release holds the fields used from a published release.
type Release struct {
	TagName string `json:"tag_name"`
	HTMLURL string `json:"html_url"`
}

// ReleaseClient fetches the latest release.
type ReleaseClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewReleaseClient creates a client against baseURL.
func NewReleaseClient(baseURL string, timeout time.Duration) *ReleaseClient {
	return &ReleaseClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Latest fetches the most recent release.
func (c *ReleaseClient) Latest(ctx context.Context) (*Release, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+latestReleasePath, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", "keyissuer-cli")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching release: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("release feed returned status %d", resp.StatusCode)
	}

	var release Release
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &release, nil
}
