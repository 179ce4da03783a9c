package enrich

import (
	"encoding/json"
	"strconv"

	"github.com/sells-group/place-enrich/pkg/google"
)

// Columns are appended to every output row, in this order.
var Columns = []string{
	"google_name",
	"google_place_id",
	"google_url",
	"google_formatted_address",
	"google_user_ratings_total",
	"google_website",
	"google_types",
	"google_rating",
	"google_business_status",
}

// detailValues renders d into cells matching Columns. A nil detail yields
// empty cells.
func detailValues(d *google.PlaceDetail) []string {
	cells := make([]string, len(Columns))
	if d == nil {
		return cells
	}

	cells[0] = d.Name
	cells[1] = d.PlaceID
	cells[2] = d.URL
	cells[3] = d.FormattedAddress
	if d.UserRatingsTotal != nil {
		cells[4] = strconv.Itoa(*d.UserRatingsTotal)
	}
	cells[5] = d.Website
	if d.Types != nil {
		// Marshalling a []string cannot fail.
		b, _ := json.Marshal(d.Types)
		cells[6] = string(b)
	}
	if d.Rating != nil {
		cells[7] = strconv.FormatFloat(*d.Rating, 'f', -1, 64)
	}
	cells[8] = d.BusinessStatus
	return cells
}
