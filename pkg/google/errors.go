package google

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/sells-group/place-enrich/internal/resilience"
)

// ErrOffline is returned by the offline client for every call.
var ErrOffline = eris.New("google: offline mode, remote calls disabled")

// APIError is a non-OK status reported in an API response body.
type APIError struct {
	Op         string
	Status     string
	Message    string
	HTTPStatus int
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("google: %s: status %s", e.Op, e.Status)
	}
	return fmt.Sprintf("google: %s: status %s: %s", e.Op, e.Status, e.Message)
}

// checkStatus maps a response status to an error. ZERO_RESULTS is a valid,
// empty answer.
func checkStatus(op, status, message string, httpStatus int) error {
	switch status {
	case "OK", "ZERO_RESULTS":
		return nil
	}

	apiErr := &APIError{Op: op, Status: status, Message: message, HTTPStatus: httpStatus}
	switch status {
	case "OVER_QUERY_LIMIT", "UNKNOWN_ERROR":
		return resilience.NewTransientError(apiErr, httpStatus)
	default:
		return apiErr
	}
}

type offlineClient struct{}

// NewOfflineClient returns a Client that never reaches the network. Every
// call fails with ErrOffline so that only cached data is used.
func NewOfflineClient() Client {
	return offlineClient{}
}

func (offlineClient) Geocode(_ context.Context, _ GeocodeRequest) (*GeocodeResponse, error) {
	return nil, ErrOffline
}

func (offlineClient) PlaceDetails(_ context.Context, _ string) (*PlaceDetailsResponse, error) {
	return nil, ErrOffline
}
