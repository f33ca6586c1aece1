// Package cmr provides a minimal client for NASA's Common Metadata
// Repository, used to recover a collection short name from a collection
// concept ID when granule metadata does not carry one.
package cmr

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is the default CMR API base URL.
const DefaultBaseURL = "https://cmr.earthdata.nasa.gov/search"

// Client handles communication with the CMR API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new CMR API client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 100,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger: slog.Default(),
	}
}

// WithLogger sets a custom logger for the client.
func (c *Client) WithLogger(logger *slog.Logger) *Client {
	c.logger = logger
	return c
}

// collectionResponse mirrors the legacy CMR collections JSON feed.
type collectionResponse struct {
	Feed struct {
		Entry []struct {
			ID        string `json:"id"`
			ShortName string `json:"short_name"`
		} `json:"entry"`
	} `json:"feed"`
}

// CollectionShortName looks up the short name of a collection by its
// concept ID, for example "C1234567890-LARC_CLOUD".
func (c *Client) CollectionShortName(ctx context.Context, conceptID string) (string, error) {
	if conceptID == "" {
		return "", fmt.Errorf("concept ID is required")
	}

	query := url.Values{}
	query.Set("concept_id", conceptID)
	searchURL := c.baseURL + "/collections.json?" + query.Encode()

	c.logger.DebugContext(ctx, "resolving collection short name",
		slog.String("concept_id", conceptID),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "harmony-swath-projector/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.ErrorContext(ctx, "CMR API request failed",
			slog.String("error", err.Error()),
		)
		return "", fmt.Errorf("CMR API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		c.logger.ErrorContext(ctx, "CMR API returned non-200 status",
			slog.Int("status_code", resp.StatusCode),
			slog.String("response_body", string(body)),
		)
		return "", fmt.Errorf("CMR API returned status %d: %s", resp.StatusCode, string(body))
	}

	var collections collectionResponse
	if err := json.NewDecoder(resp.Body).Decode(&collections); err != nil {
		return "", fmt.Errorf("failed to decode CMR response: %w", err)
	}

	if len(collections.Feed.Entry) == 0 {
		return "", fmt.Errorf("collection not found: %s", conceptID)
	}

	shortName := collections.Feed.Entry[0].ShortName
	if shortName == "" {
		return "", fmt.Errorf("collection %s has no short name", conceptID)
	}

	return shortName, nil
}
