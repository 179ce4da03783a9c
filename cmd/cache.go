package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/place-enrich/internal/blobcache"
	"github.com/sells-group/place-enrich/internal/config"
)

var (
	cacheShowGeocode string
	cacheShowPlace   string
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect the response cache",
}

var cacheShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print a cached geocode or place-details payload",
	Long: `Prints the raw cached payload for an address or place id. Never calls the API.

Examples:
  place-enrich cache show --geocode "123 Main St"
  place-enrich cache show --place ChIJN1t_tDeuEmsRUsoyG83frY4`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate(config.ModeOffline); err != nil {
			return err
		}

		store, err := blobcache.Open(ctx, cfg.Cache)
		if err != nil {
			return eris.Wrap(err, "cache show: open cache")
		}
		cache := blobcache.New(store)
		defer cache.Close() //nolint:errcheck

		address := strings.TrimSpace(cacheShowGeocode)
		ns, key, label := blobcache.NamespaceGeocode, blobcache.AddressKey(address), address
		if cacheShowPlace != "" {
			ns, key, label = blobcache.NamespacePlaces, blobcache.PlaceKey(cacheShowPlace), cacheShowPlace
		}

		payload, err := cache.Lookup(ctx, ns, key)
		if errors.Is(err, blobcache.ErrNotFound) {
			return eris.Errorf("cache show: %s %q is not cached", ns, label)
		}
		if err != nil {
			return eris.Wrap(err, "cache show")
		}

		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(payload))
		return err
	},
}

func init() {
	cacheShowCmd.Flags().StringVar(&cacheShowGeocode, "geocode", "", "address whose geocode candidates to print")
	cacheShowCmd.Flags().StringVar(&cacheShowPlace, "place", "", "place id whose details to print")
	cacheShowCmd.MarkFlagsMutuallyExclusive("geocode", "place")
	cacheShowCmd.MarkFlagsOneRequired("geocode", "place")
	cacheCmd.AddCommand(cacheShowCmd)
	rootCmd.AddCommand(cacheCmd)
}
