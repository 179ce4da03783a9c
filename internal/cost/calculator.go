package cost

// Rates holds Google Maps Platform list prices in USD per 1000 requests.
type Rates struct {
	GeocodePer1000 float64 `yaml:"geocode_per_1000" mapstructure:"geocode_per_1000"`
	DetailsPer1000 float64 `yaml:"details_per_1000" mapstructure:"details_per_1000"`
}

// Calculator computes costs for API usage.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// Geocode computes the cost of n geocoding requests.
func (c *Calculator) Geocode(n int) float64 {
	return (float64(n) / 1000) * c.rates.GeocodePer1000
}

// PlaceDetails computes the cost of n place-details requests. Field masks
// that include contact or atmosphere fields bill at the higher SKU, which
// DetailsPer1000 is expected to reflect.
func (c *Calculator) PlaceDetails(n int) float64 {
	return (float64(n) / 1000) * c.rates.DetailsPer1000
}

// Run computes the total for one enrichment run.
func (c *Calculator) Run(geocodeCalls, detailCalls int) float64 {
	return c.Geocode(geocodeCalls) + c.PlaceDetails(detailCalls)
}

// DefaultRates returns the default pricing rates.
func DefaultRates() Rates {
	return Rates{
		GeocodePer1000: 5.00,
		DetailsPer1000: 17.00,
	}
}
