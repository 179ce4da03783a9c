package main

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/place-enrich/pkg/google"
)

var lookupOffline bool

type lookupResult struct {
	Address string                `json:"address"`
	Geocode *google.GeocodeResult `json:"geocode"`
	Place   *google.PlaceDetail   `json:"place"`
}

var lookupCmd = &cobra.Command{
	Use:   "lookup <address>",
	Short: "Resolve one address and print its geocode and place details",
	Long: `Resolves a single address through the same cache and resolvers as enrich
and prints the result as JSON. Arguments are joined with spaces, so quoting
the address is optional.

Examples:
  place-enrich lookup "123 Main St, Austin, TX"
  place-enrich lookup --offline 123 Main St`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		address := strings.TrimSpace(strings.Join(args, " "))

		env, err := initEnv(ctx, lookupOffline)
		if err != nil {
			return eris.Wrap(err, "lookup: init")
		}
		defer env.Close()

		res := lookupResult{Address: address}
		res.Geocode, err = env.Geocoder.Resolve(ctx, address)
		if err != nil {
			return eris.Wrap(err, "lookup")
		}
		if res.Geocode != nil && res.Geocode.PlaceID != "" {
			res.Place, err = env.Places.Resolve(ctx, res.Geocode.PlaceID)
			if err != nil {
				return eris.Wrap(err, "lookup")
			}
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	},
}

func init() {
	lookupCmd.Flags().BoolVar(&lookupOffline, "offline", false, "use cached responses only")
	rootCmd.AddCommand(lookupCmd)
}
