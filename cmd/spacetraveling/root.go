package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eringen/spacetraveling"
)

// version is set at build time via ldflags.
var version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "spacetraveling",
	Short: "A blog front-end for a Prismic repository",
	Long: `spacetraveling serves a paginated post listing and post pages read from
a Prismic repository (or a local SQLite snapshot of it), and can export the
same pages as a static site.

Configuration is read from --config and SPACETRAVELING_* environment
variables, e.g.:

  --config site.yaml
  PRISMIC_API_ENDPOINT=https://repo.cdn.prismic.io/api/v2
  SPACETRAVELING_SOURCE=sqlite`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("spacetraveling %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", spacetraveling.EnvOr("SPACETRAVELING_CONFIG", ""), "path to a YAML config file")
	rootCmd.AddCommand(versionCmd, serveCmd, buildCmd, syncCmd, initCmd)
}

func loadConfig() (spacetraveling.SiteConfig, error) {
	return spacetraveling.LoadConfig(configPath)
}
