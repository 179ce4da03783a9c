package google

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// LatLng is a WGS84 coordinate pair.
type LatLng struct {
	Lat float64 `json:"lat" mapstructure:"lat" yaml:"lat"`
	Lng float64 `json:"lng" mapstructure:"lng" yaml:"lng"`
}

// Bounds is a latitude/longitude rectangle.
type Bounds struct {
	Northeast LatLng `json:"northeast" mapstructure:"northeast" yaml:"northeast"`
	Southwest LatLng `json:"southwest" mapstructure:"southwest" yaml:"southwest"`
}

// Normalized returns the rectangle with corners ordered so that Southwest
// holds the minimum latitude and longitude.
func (b Bounds) Normalized() Bounds {
	return Bounds{
		Northeast: LatLng{
			Lat: math.Max(b.Northeast.Lat, b.Southwest.Lat),
			Lng: math.Max(b.Northeast.Lng, b.Southwest.Lng),
		},
		Southwest: LatLng{
			Lat: math.Min(b.Northeast.Lat, b.Southwest.Lat),
			Lng: math.Min(b.Northeast.Lng, b.Southwest.Lng),
		},
	}
}

// Validate reports whether the corners are real coordinates spanning a
// non-empty area.
func (b Bounds) Validate() error {
	for _, p := range []LatLng{b.Northeast, b.Southwest} {
		if p.Lat < -90 || p.Lat > 90 || p.Lng < -180 || p.Lng > 180 {
			return eris.Errorf("google: bounds corner out of range: %v", p)
		}
	}
	if b.Northeast.Lat == b.Southwest.Lat || b.Northeast.Lng == b.Southwest.Lng {
		return eris.New("google: bounds have zero area")
	}
	return nil
}

// Param encodes the rectangle as the Geocoding API bounds parameter
// ("swLat,swLng|neLat,neLng").
func (b Bounds) Param() string {
	n := b.Normalized()
	return fmt.Sprintf("%f,%f|%f,%f", n.Southwest.Lat, n.Southwest.Lng, n.Northeast.Lat, n.Northeast.Lng)
}

// Contains reports whether p lies inside the rectangle, edges included.
func (b Bounds) Contains(p LatLng) bool {
	n := b.Normalized()
	box := geom.NewBounds(geom.XY).Set(n.Southwest.Lng, n.Southwest.Lat, n.Northeast.Lng, n.Northeast.Lat)
	return box.OverlapsPoint(geom.XY, geom.Coord{p.Lng, p.Lat})
}

// Geometry is the location part of a geocode candidate.
type Geometry struct {
	Location     LatLng  `json:"location"`
	LocationType string  `json:"location_type,omitempty"`
	Viewport     *Bounds `json:"viewport,omitempty"`
}

// GeocodeResult is one geocode candidate.
type GeocodeResult struct {
	PlaceID          string   `json:"place_id"`
	FormattedAddress string   `json:"formatted_address"`
	Geometry         Geometry `json:"geometry"`
	Types            []string `json:"types,omitempty"`
	PartialMatch     bool     `json:"partial_match,omitempty"`
}

// PlaceDetail is the subset of Place Details used for enrichment. Optional
// numeric fields are pointers so that "absent" differs from zero.
type PlaceDetail struct {
	PlaceID          string   `json:"place_id"`
	Name             string   `json:"name,omitempty"`
	URL              string   `json:"url,omitempty"`
	FormattedAddress string   `json:"formatted_address,omitempty"`
	Website          string   `json:"website,omitempty"`
	Types            []string `json:"types,omitempty"`
	Rating           *float64 `json:"rating,omitempty"`
	UserRatingsTotal *int     `json:"user_ratings_total,omitempty"`
	BusinessStatus   string   `json:"business_status,omitempty"`
}

// DecodeGeocodeResults parses a persisted candidate list.
func DecodeGeocodeResults(raw []byte) ([]GeocodeResult, error) {
	var results []GeocodeResult
	if err := json.Unmarshal(raw, &results); err != nil {
		return nil, eris.Wrap(err, "google: decode geocode results")
	}
	return results, nil
}

// DecodePlaceDetail parses a persisted place-details object.
func DecodePlaceDetail(raw []byte) (*PlaceDetail, error) {
	var detail PlaceDetail
	if err := json.Unmarshal(raw, &detail); err != nil {
		return nil, eris.Wrap(err, "google: decode place detail")
	}
	return &detail, nil
}
