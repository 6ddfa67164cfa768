package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-lead-sync/internal/model"
	"gitlab.com/timkado/api/daisi-lead-sync/internal/observer"
	"gitlab.com/timkado/api/daisi-lead-sync/pkg/logger"
)

const leadsPath = "/api/leads"

// Error kinds reported by TestConnection. Expected failure classes are data,
// not Go errors; callers branch on the kind.
const (
	ErrorKindAuthentication = "authentication"
	ErrorKindConnectivity   = "connectivity"
	ErrorKindAPI            = "api"
)

// Client wraps one external lead API endpoint. A client is built per request
// from a SourceConfig; it holds no per-tenant state beyond the credentials.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// FetchFilters narrows a lead fetch. Zero values mean "not set" and are
// omitted from the query string.
type FetchFilters struct {
	LeadType       string
	DaysFilter     string
	SourceFilter   string
	CampaignFilter string
}

// ConnectionResult is the outcome of a connection test.
type ConnectionResult struct {
	Success   bool   `json:"success"`
	ErrorKind string `json:"error_kind,omitempty"`
	Message   string `json:"message,omitempty"`
}

// FetchResult is one page of leads from the external API. ErrorKind is set on
// failed pages so callers can classify without parsing the message.
type FetchResult struct {
	Success   bool                       `json:"success"`
	Data      []model.ExternalLeadRecord `json:"data,omitempty"`
	Total     int                        `json:"total,omitempty"`
	Error     string                     `json:"error,omitempty"`
	ErrorKind string                     `json:"error_kind,omitempty"`
}

// apiEnvelope mirrors the upstream response body.
type apiEnvelope struct {
	Success *bool                      `json:"success"`
	Data    []model.ExternalLeadRecord `json:"data"`
	Total   int                        `json:"total"`
	Error   string                     `json:"error"`
}

// NewClient creates a client for one external lead API.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		apiKey:     apiKey,
	}
}

// TestConnection probes the leads endpoint with a minimal request and
// classifies the outcome. Auth and connectivity failures are expected
// operational states and come back in the result, never as a Go error.
func (c *Client) TestConnection(ctx context.Context) ConnectionResult {
	start := time.Now()
	resp, err := c.get(ctx, url.Values{"limit": []string{"1"}})
	if err != nil {
		observer.ObserveSourceRequestDuration("test", "error", time.Since(start))
		logger.FromContext(ctx).Warn("Connection test failed to reach source", zap.Error(err))
		return ConnectionResult{
			Success:   false,
			ErrorKind: ErrorKindConnectivity,
			Message:   connectivityMessage(err),
		}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		observer.ObserveSourceRequestDuration("test", "auth_error", time.Since(start))
		return ConnectionResult{
			Success:   false,
			ErrorKind: ErrorKindAuthentication,
			Message:   "API key rejected by the source",
		}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		observer.ObserveSourceRequestDuration("test", "api_error", time.Since(start))
		return ConnectionResult{
			Success:   false,
			ErrorKind: ErrorKindAPI,
			Message:   fmt.Sprintf("source returned %s", resp.Status),
		}
	}

	observer.ObserveSourceRequestDuration("test", "success", time.Since(start))
	return ConnectionResult{Success: true}
}

// FetchLeads requests one page of leads. Filters with zero values are
// omitted. A malformed response body (missing success flag) is reported as a
// failed result rather than a decode panic or a Go error.
func (c *Client) FetchLeads(ctx context.Context, filters FetchFilters, limit, offset int) FetchResult {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("offset", strconv.Itoa(offset))
	if filters.LeadType != "" {
		query.Set("type", filters.LeadType)
	}
	if filters.DaysFilter != "" {
		query.Set("days", filters.DaysFilter)
	}
	if filters.SourceFilter != "" {
		query.Set("source", filters.SourceFilter)
	}
	if filters.CampaignFilter != "" {
		query.Set("campaign", filters.CampaignFilter)
	}

	start := time.Now()
	resp, err := c.get(ctx, query)
	if err != nil {
		observer.ObserveSourceRequestDuration("fetch", "error", time.Since(start))
		return FetchResult{Success: false, Error: connectivityMessage(err), ErrorKind: ErrorKindConnectivity}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		observer.ObserveSourceRequestDuration("fetch", "auth_error", time.Since(start))
		io.Copy(io.Discard, resp.Body)
		return FetchResult{Success: false, Error: "API key rejected by the source", ErrorKind: ErrorKindAuthentication}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		observer.ObserveSourceRequestDuration("fetch", "api_error", time.Since(start))
		io.Copy(io.Discard, resp.Body)
		return FetchResult{Success: false, Error: fmt.Sprintf("source returned %s", resp.Status), ErrorKind: ErrorKindAPI}
	}

	var envelope apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		observer.ObserveSourceRequestDuration("fetch", "decode_error", time.Since(start))
		logger.FromContext(ctx).Warn("Failed to decode source response", zap.Error(err))
		return FetchResult{Success: false, Error: "invalid response body from source", ErrorKind: ErrorKindAPI}
	}
	if envelope.Success == nil {
		observer.ObserveSourceRequestDuration("fetch", "decode_error", time.Since(start))
		return FetchResult{Success: false, Error: "unexpected response shape from source", ErrorKind: ErrorKindAPI}
	}
	if !*envelope.Success {
		observer.ObserveSourceRequestDuration("fetch", "api_error", time.Since(start))
		errMsg := envelope.Error
		if errMsg == "" {
			errMsg = "source reported failure without detail"
		}
		return FetchResult{Success: false, Error: errMsg, ErrorKind: ErrorKindAPI}
	}

	observer.ObserveSourceRequestDuration("fetch", "success", time.Since(start))
	return FetchResult{
		Success: true,
		Data:    envelope.Data,
		Total:   envelope.Total,
	}
}

func (c *Client) get(ctx context.Context, query url.Values) (*http.Response, error) {
	endpoint := c.baseURL + leadsPath
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

// connectivityMessage keeps upstream dial failures readable for operators.
func connectivityMessage(err error) string {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return fmt.Sprintf("could not resolve source host: %s", dnsErr.Name)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "source did not respond before the timeout"
	}
	return fmt.Sprintf("could not reach source: %v", err)
}
