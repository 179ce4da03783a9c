package main

import (
	"bytes"
	"os"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupCLI moves into a temp dir with a file cache under data/ and quiet
// logging. It returns the temp dir.
func setupCLI(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck

	t.Setenv("ENRICH_LOG_LEVEL", "error")
	t.Setenv("ENRICH_CACHE_DRIVER", "file")
	t.Setenv("ENRICH_CACHE_DIR", "data")
	t.Setenv("GOOGLE_MAPS_API_KEY", "")
	return dir
}

// runCLI executes the root command with args and returns its stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return out.String(), err
}

// resetFlags restores every flag of cmd and its children to its default so
// runs within one test binary do not leak into each other.
func resetFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	})
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"enrich", "lookup", "cache"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "place-enrich", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestEnrichCommand_Flags(t *testing.T) {
	defaults := map[string]string{
		"in":           "complaints.csv",
		"out":          "complaints_augmented.csv",
		"format":       "",
		"limit":        "0",
		"offline":      "false",
		"report":       "",
		"metrics-file": "",
	}
	for name, def := range defaults {
		flag := enrichCmd.Flags().Lookup(name)
		require.NotNil(t, flag, "enrich should have --%s flag", name)
		assert.Equal(t, def, flag.DefValue, name)
	}
}

func TestCacheShowCommand_Flags(t *testing.T) {
	for _, name := range []string{"geocode", "place"} {
		assert.NotNil(t, cacheShowCmd.Flags().Lookup(name), "cache show should have --%s flag", name)
	}
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, "xlsx", formatFromPath("out/Report.XLSX"))
	assert.Equal(t, "csv", formatFromPath("complaints_augmented.csv"))
	assert.Equal(t, "csv", formatFromPath("noext"))
}
