package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/place-enrich/internal/blobcache"
	"github.com/sells-group/place-enrich/internal/config"
	"github.com/sells-group/place-enrich/internal/metrics"
	"github.com/sells-group/place-enrich/internal/resilience"
	"github.com/sells-group/place-enrich/internal/resolve"
	"github.com/sells-group/place-enrich/pkg/google"
)

// enrichEnv holds the cache, resolvers and metrics shared by the enrich and
// lookup commands.
type enrichEnv struct {
	Cache    *blobcache.Cache
	Geocoder *resolve.GeocodeResolver
	Places   *resolve.PlaceResolver
	Metrics  *metrics.Metrics
}

// Close releases the cache store.
func (e *enrichEnv) Close() {
	if e.Cache != nil {
		_ = e.Cache.Close()
	}
}

// initEnv validates configuration, opens the cache store and builds both
// resolvers. Offline environments use a client that refuses every call.
func initEnv(ctx context.Context, offline bool) (*enrichEnv, error) {
	mode := config.ModeOnline
	if offline {
		mode = config.ModeOffline
	}
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	store, err := blobcache.Open(ctx, cfg.Cache)
	if err != nil {
		return nil, eris.Wrap(err, "open cache")
	}

	m := metrics.New()
	cache := blobcache.New(store, blobcache.WithMetrics(m))
	client := newGoogleClient(offline)
	bounds := cfg.Geocode.Bounds

	return &enrichEnv{
		Cache: cache,
		Geocoder: resolve.NewGeocodeResolver(client, cache, &bounds,
			resolve.WithDelay(time.Duration(cfg.Geocode.DelayMs)*time.Millisecond),
			resolve.WithMetrics(m),
		),
		Places: resolve.NewPlaceResolver(client, cache,
			resolve.WithDelay(time.Duration(cfg.Places.DelayMs)*time.Millisecond),
			resolve.WithMetrics(m),
		),
		Metrics: m,
	}, nil
}

func newGoogleClient(offline bool) google.Client {
	if offline {
		return google.NewOfflineClient()
	}

	retry := resilience.FromSettings(cfg.Google.MaxAttempts, cfg.Google.InitialBackoffMs, cfg.Google.MaxBackoffMs)
	retry.OnRetry = resilience.RetryLogger("google")

	opts := []google.Option{
		google.WithPlaceFields(cfg.Google.PlaceFields),
		google.WithRetry(retry),
	}
	if cfg.Google.GeocodeURL != "" {
		opts = append(opts, google.WithGeocodeURL(cfg.Google.GeocodeURL))
	}
	if cfg.Google.DetailsURL != "" {
		opts = append(opts, google.WithDetailsURL(cfg.Google.DetailsURL))
	}
	if cfg.Google.TimeoutSecs > 0 {
		opts = append(opts, google.WithHTTPClient(&http.Client{
			Timeout: time.Duration(cfg.Google.TimeoutSecs) * time.Second,
		}))
	}
	return google.NewClient(cfg.Google.APIKey, opts...)
}
