package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"
)

// ErrFetch marks any transport, auth, or non-2xx failure against the
// upstream feed. Callers match it with errors.Is.
var ErrFetch = errors.New("feed: fetch failed")

// Client fetches feed documents from the transit authority's API.
type Client struct {
	alertsURL     string
	departuresURL string
	apiKey        string
	httpClient    *http.Client
}

// ClientConfig holds feed client configuration.
type ClientConfig struct {
	AlertsURL     string
	DeparturesURL string
	APIKey        string
	Timeout       time.Duration
}

// NewClient creates a feed client with a dedicated HTTP transport.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 60 * time.Second}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &Client{
		alertsURL:     cfg.AlertsURL,
		departuresURL: cfg.DeparturesURL,
		apiKey:        cfg.APIKey,
		httpClient:    &http.Client{Timeout: timeout, Transport: tr},
	}
}

// FetchAlerts retrieves the current service-alert document.
func (c *Client) FetchAlerts(ctx context.Context) (*Document, error) {
	var doc Document
	if err := c.getJSON(ctx, c.alertsURL, nil, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// FetchDepartures retrieves the planned departures for the given stop.
// The query parameters mirror the departure monitor's stop-scoped request,
// excluding all transport modes other than light rail.
func (c *Client) FetchDepartures(ctx context.Context, stationID string) (*DepartureDocument, error) {
	params := url.Values{
		"name_dm":       {stationID},
		"type_dm":       {"stop"},
		"mode":          {"direct"},
		"excludedMeans": {"checkbox"},
		"exclMOT_1":     {"1"},
		"exclMOT_2":     {"1"},
		"exclMOT_5":     {"1"},
		"exclMOT_7":     {"1"},
		"exclMOT_9":     {"1"},
		"exclMOT_11":    {"1"},
	}
	var doc DepartureDocument
	if err := c.getJSON(ctx, c.departuresURL, params, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// getJSON performs an authenticated GET and decodes the JSON response.
func (c *Client) getJSON(ctx context.Context, rawURL string, params url.Values, out any) error {
	target := rawURL
	if len(params) > 0 {
		sep := "?"
		if u, err := url.Parse(rawURL); err == nil && u.RawQuery != "" {
			sep = "&"
		}
		target = rawURL + sep + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("%w: building request: %v", ErrFetch, err)
	}
	req.Header.Set("Authorization", "apikey "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Error("Feed request failed", "url", rawURL, "error", err)
		return fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		slog.Error("Feed returned non-2xx status",
			"url", rawURL,
			"status", resp.StatusCode,
			"body", string(body),
		)
		return fmt.Errorf("%w: unexpected status %d", ErrFetch, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding response: %v", ErrFetch, err)
	}
	return nil
}
