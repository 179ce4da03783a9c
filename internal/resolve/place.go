package resolve

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/place-enrich/internal/blobcache"
	"github.com/sells-group/place-enrich/pkg/google"
)

// PlaceResolver resolves place ids to place details.
type PlaceResolver struct {
	client   google.Client
	cache    *blobcache.Cache
	throttle *throttle
}

// NewPlaceResolver creates a resolver with its own limiter.
func NewPlaceResolver(client google.Client, cache *blobcache.Cache, opts ...Option) *PlaceResolver {
	return &PlaceResolver{
		client:   client,
		cache:    cache,
		throttle: newThrottle("place_details", opts),
	}
}

// Resolve returns the details for placeID.
func (r *PlaceResolver) Resolve(ctx context.Context, placeID string) (*google.PlaceDetail, error) {
	if placeID == "" {
		return nil, eris.New("resolve: empty place id")
	}

	payload, err := r.cache.GetOrFetch(ctx, blobcache.NamespacePlaces, blobcache.PlaceKey(placeID), func(ctx context.Context) ([]byte, error) {
		var resp *google.PlaceDetailsResponse
		err := r.throttle.do(ctx, func(ctx context.Context) error {
			zap.L().Info("querying place details", zap.String("place_id", placeID))
			var err error
			resp, err = r.client.PlaceDetails(ctx, placeID)
			return err
		})
		if err != nil {
			return nil, err
		}
		return resp.Result, nil
	})
	if err != nil {
		return nil, eris.Wrapf(err, "resolve: place details %s", placeID)
	}

	detail, err := google.DecodePlaceDetail(payload)
	if err != nil {
		return nil, eris.Wrapf(err, "resolve: cached place details for %s", placeID)
	}
	return detail, nil
}

// RemoteCalls returns the number of place-details requests sent.
func (r *PlaceResolver) RemoteCalls() int {
	return r.throttle.calls
}
