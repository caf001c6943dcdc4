package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/eringen/spacetraveling/scaffold"
)

var initEndpoint string

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Create a config file and public/ directory for a new site",
	Args:  cobra.MaximumNArgs(1),
	RunE:  initAction,
}

func init() {
	initCmd.Flags().StringVar(&initEndpoint, "endpoint", "", "Prismic API endpoint")
}

func initAction(_ *cobra.Command, args []string) error {
	dir := "."
	if len(args) == 1 {
		dir = args[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	created, err := scaffold.Write(dir, scaffold.Data{
		SiteName:        scaffold.Title(filepath.Base(abs)),
		PrismicEndpoint: initEndpoint,
	})
	if err != nil {
		return err
	}
	if len(created) == 0 {
		fmt.Printf("%s is already initialized.\n", dir)
		return nil
	}
	for _, p := range created {
		fmt.Printf("  created %s\n", p)
	}
	return nil
}
