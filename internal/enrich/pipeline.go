// Package enrich merges place details into every record that shares a
// resolved address.
package enrich

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/place-enrich/internal/blobcache"
	"github.com/sells-group/place-enrich/internal/cost"
	"github.com/sells-group/place-enrich/internal/metrics"
	"github.com/sells-group/place-enrich/internal/resilience"
	"github.com/sells-group/place-enrich/internal/table"
	"github.com/sells-group/place-enrich/pkg/google"
)

// GeocodeResolver resolves an address to its first geocode candidate.
type GeocodeResolver interface {
	Resolve(ctx context.Context, address string) (*google.GeocodeResult, error)
	RemoteCalls() int
}

// PlaceResolver resolves a place id to its details.
type PlaceResolver interface {
	Resolve(ctx context.Context, placeID string) (*google.PlaceDetail, error)
	RemoteCalls() int
}

// Options controls a run.
type Options struct {
	AddressColumn   string
	ContinueOnError bool
}

// Row is one output record: the untouched input cells plus the detail
// resolved for its address, if any.
type Row struct {
	Record  []string
	Address string
	Detail  *google.PlaceDetail
}

// Values returns the input cells followed by the enrichment cells.
func (r Row) Values() []string {
	return append(slices.Clone(r.Record), detailValues(r.Detail)...)
}

// Augment builds the output table from the input header and rows.
func Augment(header []string, rows []Row) *table.Table {
	out := &table.Table{
		Header:  append(slices.Clone(header), Columns...),
		Records: make([][]string, 0, len(rows)),
	}
	for _, r := range rows {
		out.Records = append(out.Records, r.Values())
	}
	return out
}

// Pipeline resolves every distinct address in a table, one at a time.
type Pipeline struct {
	geocoder GeocodeResolver
	places   PlaceResolver
	opts     Options
	cache    *blobcache.Cache
	cost     *cost.Calculator
	metrics  *metrics.Metrics
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithCacheStats copies c's counters into the run summary.
func WithCacheStats(c *blobcache.Cache) Option {
	return func(p *Pipeline) {
		p.cache = c
	}
}

// WithCost estimates the run's spend.
func WithCost(c *cost.Calculator) Option {
	return func(p *Pipeline) {
		p.cost = c
	}
}

// WithMetrics counts output rows in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// New creates a Pipeline.
func New(geocoder GeocodeResolver, places PlaceResolver, opts Options, options ...Option) *Pipeline {
	if opts.AddressColumn == "" {
		opts.AddressColumn = "ADDRESS"
	}
	p := &Pipeline{
		geocoder: geocoder,
		places:   places,
		opts:     opts,
	}
	for _, o := range options {
		o(p)
	}
	return p
}

// Run resolves the table's addresses and returns one Row per input record in
// input order. The input is not modified. A remote failure aborts the run
// unless ContinueOnError is set; offline refusals leave the address
// unresolved.
func (p *Pipeline) Run(ctx context.Context, in *table.Table) ([]Row, *Summary, error) {
	sum := &Summary{
		RunID:     uuid.New().String(),
		StartedAt: time.Now().UTC(),
		Rows:      len(in.Records),
	}
	defer p.finish(sum)

	log := zap.L().With(zap.String("run_id", sum.RunID))

	col, err := in.ColumnIndex(p.opts.AddressColumn)
	if err != nil {
		return nil, sum, eris.Wrap(err, "enrich: address column")
	}

	addresses := distinctAddresses(in.Records, col)
	sum.Addresses = len(addresses)
	log.Info("starting enrichment",
		zap.Int("rows", sum.Rows),
		zap.Int("addresses", sum.Addresses),
	)

	details := make(map[string]*google.PlaceDetail, len(addresses))
	for i, addr := range addresses {
		if err := ctx.Err(); err != nil {
			return nil, sum, eris.Wrap(err, "enrich: run canceled")
		}
		log.Debug("resolving address",
			zap.Int("index", i+1),
			zap.Int("total", len(addresses)),
			zap.String("address", addr),
		)

		placeID, detail, err := p.resolve(ctx, addr)
		switch {
		case errors.Is(err, google.ErrOffline):
			log.Info("not cached, skipping in offline mode", zap.String("address", addr))
			sum.Unresolved++
		case err != nil:
			if !p.opts.ContinueOnError || ctx.Err() != nil {
				return nil, sum, err
			}
			log.Error("enrichment failed for address", zap.String("address", addr), zap.Error(err))
			sum.Failed++
			sum.Failures = append(sum.Failures, Failure{
				Address: addr,
				PlaceID: placeID,
				Class:   resilience.ClassifyError(err),
				Error:   err.Error(),
			})
		case detail == nil:
			sum.Unresolved++
		default:
			sum.Resolved++
			details[addr] = detail
		}
	}

	rows := make([]Row, 0, len(in.Records))
	for _, rec := range in.Records {
		addr := addressAt(rec, col)
		row := Row{Record: slices.Clone(rec), Address: addr, Detail: details[addr]}
		if row.Detail != nil {
			sum.EnrichedRows++
		}
		p.metrics.ObserveRow(row.Detail != nil)
		rows = append(rows, row)
	}
	return rows, sum, nil
}

// resolve returns a nil detail and no error when the address has no geocode
// or no place id.
func (p *Pipeline) resolve(ctx context.Context, addr string) (string, *google.PlaceDetail, error) {
	geo, err := p.geocoder.Resolve(ctx, addr)
	if err != nil {
		return "", nil, err
	}
	if geo == nil {
		zap.L().Warn("could not geocode", zap.String("address", addr))
		return "", nil, nil
	}
	if geo.PlaceID == "" {
		zap.L().Warn("geocode result has no place id", zap.String("address", addr))
		return "", nil, nil
	}
	detail, err := p.places.Resolve(ctx, geo.PlaceID)
	return geo.PlaceID, detail, err
}

func (p *Pipeline) finish(sum *Summary) {
	sum.FinishedAt = time.Now().UTC()
	sum.GeocodeCalls = p.geocoder.RemoteCalls()
	sum.PlaceCalls = p.places.RemoteCalls()
	if p.cache != nil {
		sum.Cache = p.cache.Stats()
	}
	if p.cost != nil {
		sum.EstimatedCostUSD = p.cost.Run(sum.GeocodeCalls, sum.PlaceCalls)
	}
}

// distinctAddresses returns the trimmed, non-empty addresses in col in
// first-seen order.
func distinctAddresses(records [][]string, col int) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, rec := range records {
		addr := addressAt(rec, col)
		if addr == "" {
			continue
		}
		if _, ok := seen[addr]; ok {
			continue
		}
		seen[addr] = struct{}{}
		out = append(out, addr)
	}
	return out
}

func addressAt(rec []string, col int) string {
	if col >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[col])
}
