// Package google provides a client for the Google Maps Platform Geocoding and
// Place Details web services.
package google

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/place-enrich/internal/resilience"
)

const (
	defaultGeocodeURL = "https://maps.googleapis.com/maps/api/geocode/json"
	defaultDetailsURL = "https://maps.googleapis.com/maps/api/place/details/json"
)

// DefaultPlaceFields is the field mask sent with place-details requests.
var DefaultPlaceFields = []string{
	"place_id",
	"name",
	"url",
	"formatted_address",
	"user_ratings_total",
	"website",
	"types",
	"rating",
	"business_status",
}

// Client performs Google Maps Platform operations.
type Client interface {
	Geocode(ctx context.Context, req GeocodeRequest) (*GeocodeResponse, error)
	PlaceDetails(ctx context.Context, placeID string) (*PlaceDetailsResponse, error)
}

// GeocodeRequest is a single forward-geocoding query.
type GeocodeRequest struct {
	Address string
	// Bounds biases results toward a region. It does not restrict them.
	Bounds *Bounds
}

// GeocodeResponse is the envelope returned by the Geocoding API. Results are
// kept raw so callers can persist them verbatim.
type GeocodeResponse struct {
	Status       string            `json:"status"`
	ErrorMessage string            `json:"error_message,omitempty"`
	Results      []json.RawMessage `json:"results"`
}

// PlaceDetailsResponse is the envelope returned by the Place Details API.
type PlaceDetailsResponse struct {
	Status       string          `json:"status"`
	ErrorMessage string          `json:"error_message,omitempty"`
	Result       json.RawMessage `json:"result"`
}

// Option configures the client.
type Option func(*httpClient)

// WithGeocodeURL overrides the Geocoding API endpoint.
func WithGeocodeURL(u string) Option {
	return func(c *httpClient) {
		c.geocodeURL = u
	}
}

// WithDetailsURL overrides the Place Details API endpoint.
func WithDetailsURL(u string) Option {
	return func(c *httpClient) {
		c.detailsURL = u
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithPlaceFields sets the place-details field mask. An empty list requests
// every field, which bills at the highest SKU.
func WithPlaceFields(fields []string) Option {
	return func(c *httpClient) {
		c.placeFields = fields
	}
}

// WithRetry enables retries of transient failures.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *httpClient) {
		c.retry = cfg
	}
}

type httpClient struct {
	apiKey      string
	geocodeURL  string
	detailsURL  string
	placeFields []string
	retry       resilience.RetryConfig
	http        *http.Client
}

// NewClient creates a Google Maps Platform client. Calls are not retried
// unless WithRetry is given.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:      apiKey,
		geocodeURL:  defaultGeocodeURL,
		detailsURL:  defaultDetailsURL,
		placeFields: DefaultPlaceFields,
		retry:       resilience.RetryConfig{MaxAttempts: 1},
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Geocode(ctx context.Context, req GeocodeRequest) (*GeocodeResponse, error) {
	params := url.Values{
		"address": {req.Address},
		"key":     {c.apiKey},
	}
	if req.Bounds != nil {
		params.Set("bounds", req.Bounds.Param())
	}

	return resilience.DoVal(ctx, c.retry, func(ctx context.Context) (*GeocodeResponse, error) {
		var resp GeocodeResponse
		status, err := c.getJSON(ctx, c.geocodeURL, params, &resp)
		if err != nil {
			return nil, eris.Wrap(err, "google: geocode")
		}
		if err := checkStatus("geocode", resp.Status, resp.ErrorMessage, status); err != nil {
			return nil, err
		}
		if resp.Results == nil {
			resp.Results = []json.RawMessage{}
		}
		return &resp, nil
	})
}

func (c *httpClient) PlaceDetails(ctx context.Context, placeID string) (*PlaceDetailsResponse, error) {
	params := url.Values{
		"place_id": {placeID},
		"key":      {c.apiKey},
	}
	if len(c.placeFields) > 0 {
		params.Set("fields", strings.Join(c.placeFields, ","))
	}

	return resilience.DoVal(ctx, c.retry, func(ctx context.Context) (*PlaceDetailsResponse, error) {
		var resp PlaceDetailsResponse
		status, err := c.getJSON(ctx, c.detailsURL, params, &resp)
		if err != nil {
			return nil, eris.Wrap(err, "google: place details")
		}
		if err := checkStatus("place details", resp.Status, resp.ErrorMessage, status); err != nil {
			return nil, err
		}
		if len(resp.Result) == 0 || string(resp.Result) == "null" {
			return nil, &APIError{Op: "place details", Status: resp.Status, Message: "empty result", HTTPStatus: status}
		}
		return &resp, nil
	})
}

// getJSON issues a GET and decodes the body into out. It returns the HTTP
// status code so API-level errors can be classified.
func (c *httpClient) getJSON(ctx context.Context, endpoint string, params url.Values, out any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return 0, eris.Wrap(err, "create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// url.Error embeds the request URL, which carries the API key.
		var ue *url.Error
		if errors.As(err, &ue) {
			err = ue.Err
		}
		return 0, eris.Wrap(err, "send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, eris.Wrap(err, "read response")
	}

	if resp.StatusCode != http.StatusOK {
		statusErr := eris.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(string(body), 256))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return resp.StatusCode, resilience.NewTransientError(statusErr, resp.StatusCode)
		}
		return resp.StatusCode, statusErr
	}

	if err := json.Unmarshal(body, out); err != nil {
		return resp.StatusCode, eris.Wrap(err, "unmarshal response")
	}
	return resp.StatusCode, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
