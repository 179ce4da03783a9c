package enrich

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/place-enrich/internal/blobcache"
	"github.com/sells-group/place-enrich/internal/cost"
	"github.com/sells-group/place-enrich/internal/resilience"
	"github.com/sells-group/place-enrich/internal/resolve"
	"github.com/sells-group/place-enrich/internal/table"
	"github.com/sells-group/place-enrich/pkg/google"
	"github.com/sells-group/place-enrich/pkg/google/mocks"
)

const (
	mainStGeocode = `[{"place_id":"ChIJ-main","formatted_address":"123 Main St, Austin, TX 78701, USA","geometry":{"location":{"lat":30.27,"lng":-97.74}}}]`
	mainStDetail  = `{"place_id":"ChIJ-main","name":"Main Street Diner","url":"https://maps.google.com/?cid=1","formatted_address":"123 Main St, Austin, TX 78701, USA","website":"https://diner.example","types":["restaurant","food"],"rating":4.2,"user_ratings_total":310,"business_status":"OPERATIONAL"}`
)

type harness struct {
	client *mocks.MockClient
	fs     afero.Fs
	cache  *blobcache.Cache
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	fsys := afero.NewMemMapFs()
	return &harness{
		client: mocks.NewMockClient(t),
		fs:     fsys,
		cache:  blobcache.New(blobcache.NewFileStore(fsys, "data")),
	}
}

func (h *harness) pipeline(client google.Client, opts Options) *Pipeline {
	return New(
		resolve.NewGeocodeResolver(client, h.cache, nil),
		resolve.NewPlaceResolver(client, h.cache),
		opts,
		WithCacheStats(h.cache),
		WithCost(cost.NewCalculator(cost.DefaultRates())),
	)
}

func (h *harness) expectGeocode(address, results string) *mock.Call {
	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(results), &raw); err != nil {
		panic(err)
	}
	if raw == nil {
		raw = []json.RawMessage{}
	}
	return h.client.On("Geocode", mock.Anything, mock.MatchedBy(func(req google.GeocodeRequest) bool {
		return req.Address == address
	})).Return(&google.GeocodeResponse{Status: "OK", Results: raw}, nil)
}

func (h *harness) expectDetails(placeID, result string) *mock.Call {
	return h.client.On("PlaceDetails", mock.Anything, placeID).
		Return(&google.PlaceDetailsResponse{Status: "OK", Result: json.RawMessage(result)}, nil)
}

func complaints(addresses ...string) *table.Table {
	tbl := &table.Table{Header: []string{"ID", "ADDRESS"}}
	for i, a := range addresses {
		tbl.Records = append(tbl.Records, []string{string(rune('1' + i)), a})
	}
	return tbl
}

func TestRun_DuplicateAndBlankAddresses(t *testing.T) {
	h := newHarness(t)
	h.expectGeocode("123 Main St", mainStGeocode).Once()
	h.expectDetails("ChIJ-main", mainStDetail).Once()

	in := complaints("123 Main St", "123 Main St", "")
	rows, sum, err := h.pipeline(h.client, Options{}).Run(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "Main Street Diner", rows[0].Detail.Name)
	assert.Same(t, rows[0].Detail, rows[1].Detail)
	assert.Nil(t, rows[2].Detail)
	assert.Equal(t, make([]string, len(Columns)), rows[2].Values()[2:])

	assert.Equal(t, 1, sum.Addresses)
	assert.Equal(t, 1, sum.Resolved)
	assert.Equal(t, 2, sum.EnrichedRows)
	assert.Equal(t, 1, sum.GeocodeCalls)
	assert.Equal(t, 1, sum.PlaceCalls)
	assert.InDelta(t, 0.005+0.017, sum.EstimatedCostUSD, 1e-9)
	assert.NotEmpty(t, sum.RunID)
}

func TestRun_UnresolvedAddressKeepsRow(t *testing.T) {
	h := newHarness(t)
	h.expectGeocode("Nowhere", `[]`).Once()

	in := complaints("Nowhere")
	rows, sum, err := h.pipeline(h.client, Options{}).Run(context.Background(), in)
	require.NoError(t, err)

	require.Len(t, rows, 1)
	assert.Nil(t, rows[0].Detail)
	assert.Equal(t, []string{"1", "Nowhere"}, rows[0].Record)
	assert.Equal(t, 1, sum.Unresolved)

	// Second run hits the cached empty list.
	_, sum, err = h.pipeline(h.client, Options{}).Run(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 0, sum.GeocodeCalls)
	assert.Equal(t, 1, sum.Unresolved)
}

func TestRun_PreservesOrderAndInput(t *testing.T) {
	h := newHarness(t)
	h.expectGeocode("123 Main St", mainStGeocode).Once()
	h.expectGeocode("9 Elm St", `[{"place_id":"ChIJ-elm"}]`).Once()
	h.expectDetails("ChIJ-main", mainStDetail).Once()
	h.expectDetails("ChIJ-elm", `{"place_id":"ChIJ-elm","name":"Elm Cleaners"}`).Once()

	in := complaints("9 Elm St", "", "123 Main St", " 9 Elm St ")
	before := [][]string{}
	for _, r := range in.Records {
		before = append(before, append([]string(nil), r...))
	}

	rows, _, err := h.pipeline(h.client, Options{}).Run(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, before, in.Records)
	names := make([]string, len(rows))
	for i, r := range rows {
		assert.Equal(t, in.Records[i], r.Record)
		if r.Detail != nil {
			names[i] = r.Detail.Name
		}
	}
	assert.Equal(t, []string{"Elm Cleaners", "", "Main Street Diner", "Elm Cleaners"}, names)
}

func TestRun_WarmCacheIdentical(t *testing.T) {
	h := newHarness(t)
	h.expectGeocode("123 Main St", mainStGeocode).Once()
	h.expectDetails("ChIJ-main", mainStDetail).Once()
	in := complaints("123 Main St", "")

	first, _, err := h.pipeline(h.client, Options{}).Run(context.Background(), in)
	require.NoError(t, err)

	// A client that fails every call proves the second run never goes remote.
	second, sum, err := h.pipeline(google.NewOfflineClient(), Options{}).Run(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, Augment(in.Header, first), Augment(in.Header, second))
	assert.Equal(t, 0, sum.GeocodeCalls+sum.PlaceCalls)
	// Counters accumulate on the shared cache across both runs.
	assert.Equal(t, blobcache.Stats{Hits: 1, Misses: 1, Writes: 1}, sum.Cache[blobcache.NamespaceGeocode])
}

func TestRun_RemoteFailureIsFatal(t *testing.T) {
	h := newHarness(t)
	h.client.On("Geocode", mock.Anything, mock.Anything).
		Return(nil, &google.APIError{Op: "geocode", Status: "REQUEST_DENIED"}).Once()

	rows, sum, err := h.pipeline(h.client, Options{}).Run(context.Background(), complaints("123 Main St", "9 Elm St"))
	require.Error(t, err)
	assert.Nil(t, rows)
	assert.Contains(t, err.Error(), "123 Main St")
	assert.Equal(t, 1, sum.GeocodeCalls)

	_, err = h.cache.Lookup(context.Background(), blobcache.NamespaceGeocode, blobcache.AddressKey("123 Main St"))
	assert.ErrorIs(t, err, blobcache.ErrNotFound)
}

func TestRun_ContinueOnError(t *testing.T) {
	h := newHarness(t)
	h.expectGeocode("123 Main St", mainStGeocode).Once()
	h.client.On("PlaceDetails", mock.Anything, "ChIJ-main").
		Return(nil, resilience.NewTransientError(assert.AnError, 503)).Once()
	h.expectGeocode("9 Elm St", `[{"place_id":"ChIJ-elm"}]`).Once()
	h.expectDetails("ChIJ-elm", `{"place_id":"ChIJ-elm","name":"Elm Cleaners"}`).Once()

	rows, sum, err := h.pipeline(h.client, Options{ContinueOnError: true}).
		Run(context.Background(), complaints("123 Main St", "9 Elm St"))
	require.NoError(t, err)

	assert.Nil(t, rows[0].Detail)
	assert.Equal(t, "Elm Cleaners", rows[1].Detail.Name)
	assert.Equal(t, 1, sum.Failed)
	require.Len(t, sum.Failures, 1)
	assert.Equal(t, "123 Main St", sum.Failures[0].Address)
	assert.Equal(t, "ChIJ-main", sum.Failures[0].PlaceID)
	assert.Equal(t, "transient", sum.Failures[0].Class)
}

func TestRun_Offline(t *testing.T) {
	h := newHarness(t)
	rows, sum, err := h.pipeline(google.NewOfflineClient(), Options{}).Run(context.Background(), complaints("123 Main St"))
	require.NoError(t, err)

	assert.Nil(t, rows[0].Detail)
	assert.Equal(t, 1, sum.Unresolved)
	assert.Equal(t, 0, sum.GeocodeCalls)
}

func TestRun_MissingAddressColumn(t *testing.T) {
	h := newHarness(t)
	in := &table.Table{Header: []string{"ID", "LOCATION"}, Records: [][]string{{"1", "x"}}}

	_, _, err := h.pipeline(h.client, Options{}).Run(context.Background(), in)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"ADDRESS"`)
}

func TestRun_CustomAddressColumn(t *testing.T) {
	h := newHarness(t)
	h.expectGeocode("1 Oak Ave", `[]`).Once()
	in := &table.Table{Header: []string{"Mailing Address"}, Records: [][]string{{"1 Oak Ave"}}}

	_, sum, err := h.pipeline(h.client, Options{AddressColumn: "Mailing Address"}).Run(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Addresses)
}

func TestRun_NoPlaceIDSkipsDetails(t *testing.T) {
	h := newHarness(t)
	h.expectGeocode("123 Main St", `[{"formatted_address":"Austin, TX"}]`).Once()

	rows, sum, err := h.pipeline(h.client, Options{}).Run(context.Background(), complaints("123 Main St"))
	require.NoError(t, err)
	assert.Nil(t, rows[0].Detail)
	assert.Equal(t, 1, sum.Unresolved)
}

func TestRun_Canceled(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := h.pipeline(h.client, Options{}).Run(ctx, complaints("123 Main St"))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAugment(t *testing.T) {
	rating := 4.5
	total := 12
	rows := []Row{
		{Record: []string{"1", "123 Main St"}, Detail: &google.PlaceDetail{
			PlaceID:          "p1",
			Name:             "Diner",
			Types:            []string{"restaurant"},
			Rating:           &rating,
			UserRatingsTotal: &total,
			BusinessStatus:   "CLOSED_TEMPORARILY",
		}},
		{Record: []string{"2", ""}},
	}

	out := Augment([]string{"ID", "ADDRESS"}, rows)
	assert.Equal(t, append([]string{"ID", "ADDRESS"}, Columns...), out.Header)
	assert.Equal(t, []string{"1", "123 Main St", "Diner", "p1", "", "", "12", "", `["restaurant"]`, "4.5", "CLOSED_TEMPORARILY"}, out.Records[0])
	assert.Equal(t, []string{"2", "", "", "", "", "", "", "", "", "", ""}, out.Records[1])
}

func TestSummaryWriteYAML(t *testing.T) {
	fsys := afero.NewMemMapFs()
	sum := &Summary{RunID: "run-1", Rows: 3, Failures: []Failure{{Address: "x", Class: "permanent", Error: "boom"}}}

	require.NoError(t, sum.WriteYAML(fsys, "run.yaml"))

	data, err := afero.ReadFile(fsys, "run.yaml")
	require.NoError(t, err)
	assert.Contains(t, string(data), "run_id: run-1")
	assert.Contains(t, string(data), "rows: 3")
	assert.Contains(t, string(data), "class: permanent")
}
