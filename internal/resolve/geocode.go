package resolve

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/place-enrich/internal/blobcache"
	"github.com/sells-group/place-enrich/pkg/google"
)

// GeocodeResolver resolves addresses to their first geocode candidate.
type GeocodeResolver struct {
	client   google.Client
	cache    *blobcache.Cache
	bounds   *google.Bounds
	throttle *throttle
}

// NewGeocodeResolver creates a resolver. bounds may be nil to send no bias.
func NewGeocodeResolver(client google.Client, cache *blobcache.Cache, bounds *google.Bounds, opts ...Option) *GeocodeResolver {
	return &GeocodeResolver{
		client:   client,
		cache:    cache,
		bounds:   bounds,
		throttle: newThrottle("geocode", opts),
	}
}

// Resolve returns the first candidate for address, or nil when the address
// is blank or the API found nothing. The full candidate list is cached, so an
// address is sent to the API at most once per cache store.
func (r *GeocodeResolver) Resolve(ctx context.Context, address string) (*google.GeocodeResult, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, nil
	}

	payload, err := r.cache.GetOrFetch(ctx, blobcache.NamespaceGeocode, blobcache.AddressKey(address), func(ctx context.Context) ([]byte, error) {
		return r.fetch(ctx, address)
	})
	if err != nil {
		return nil, eris.Wrapf(err, "resolve: geocode %q", address)
	}

	results, err := google.DecodeGeocodeResults(payload)
	if err != nil {
		return nil, eris.Wrapf(err, "resolve: cached geocode for %q", address)
	}
	if len(results) == 0 {
		return nil, nil
	}

	first := results[0]
	if r.bounds != nil && !r.bounds.Contains(first.Geometry.Location) {
		zap.L().Warn("geocode result outside bounds",
			zap.String("address", address),
			zap.String("place_id", first.PlaceID),
			zap.Float64("lat", first.Geometry.Location.Lat),
			zap.Float64("lng", first.Geometry.Location.Lng),
		)
	}
	return &first, nil
}

func (r *GeocodeResolver) fetch(ctx context.Context, address string) ([]byte, error) {
	var resp *google.GeocodeResponse
	err := r.throttle.do(ctx, func(ctx context.Context) error {
		zap.L().Info("querying geocode", zap.String("address", address))
		var err error
		resp, err = r.client.Geocode(ctx, google.GeocodeRequest{Address: address, Bounds: r.bounds})
		return err
	})
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(resp.Results)
	if err != nil {
		return nil, eris.Wrap(err, "resolve: marshal geocode results")
	}
	return payload, nil
}

// RemoteCalls returns the number of geocode requests sent.
func (r *GeocodeResolver) RemoteCalls() int {
	return r.throttle.calls
}
