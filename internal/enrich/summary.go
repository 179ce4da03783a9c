package enrich

import (
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/afero"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/place-enrich/internal/blobcache"
)

// Failure describes one address that could not be enriched because of a
// remote or cache error.
type Failure struct {
	Address string `yaml:"address"`
	PlaceID string `yaml:"place_id,omitempty"`
	Class   string `yaml:"class"`
	Error   string `yaml:"error"`
}

// Summary reports what one run did.
type Summary struct {
	RunID            string                                  `yaml:"run_id"`
	StartedAt        time.Time                               `yaml:"started_at"`
	FinishedAt       time.Time                               `yaml:"finished_at"`
	Rows             int                                     `yaml:"rows"`
	EnrichedRows     int                                     `yaml:"enriched_rows"`
	Addresses        int                                     `yaml:"addresses"`
	Resolved         int                                     `yaml:"resolved"`
	Unresolved       int                                     `yaml:"unresolved"`
	Failed           int                                     `yaml:"failed"`
	GeocodeCalls     int                                     `yaml:"geocode_calls"`
	PlaceCalls       int                                     `yaml:"place_calls"`
	Cache            map[blobcache.Namespace]blobcache.Stats `yaml:"cache,omitempty"`
	EstimatedCostUSD float64                                 `yaml:"estimated_cost_usd"`
	Failures         []Failure                               `yaml:"failures,omitempty"`
}

// Log writes the summary at Info level.
func (s *Summary) Log() {
	zap.L().Info("enrichment complete",
		zap.String("run_id", s.RunID),
		zap.Int("rows", s.Rows),
		zap.Int("enriched_rows", s.EnrichedRows),
		zap.Int("addresses", s.Addresses),
		zap.Int("resolved", s.Resolved),
		zap.Int("unresolved", s.Unresolved),
		zap.Int("failed", s.Failed),
		zap.Int("geocode_calls", s.GeocodeCalls),
		zap.Int("place_calls", s.PlaceCalls),
		zap.Float64("estimated_cost_usd", s.EstimatedCostUSD),
		zap.Duration("elapsed", s.FinishedAt.Sub(s.StartedAt)),
	)
}

// WriteYAML writes the summary to path.
func (s *Summary) WriteYAML(fsys afero.Fs, path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return eris.Wrap(err, "enrich: marshal summary")
	}
	if err := afero.WriteFile(fsys, path, data, 0o644); err != nil {
		return eris.Wrapf(err, "enrich: write summary %s", path)
	}
	return nil
}
