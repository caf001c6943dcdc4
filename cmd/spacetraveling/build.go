package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eringen/spacetraveling"
)

var buildOut string

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Export the site as static files",
	RunE:  buildAction,
}

func init() {
	buildCmd.Flags().StringVarP(&buildOut, "out", "o", "dist", "output directory")
	buildCmd.Flags().StringVar(&staticDir, "static", "", "directory of extra assets copied to public/")
}

func buildAction(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	var opts []spacetraveling.Option
	if staticDir != "" {
		opts = append(opts, spacetraveling.WithStaticDir(staticDir))
	}
	app := spacetraveling.New(cfg, opts...)
	defer app.Close()

	res, err := app.Export(cmd.Context(), buildOut)
	if err != nil {
		return err
	}
	fmt.Printf("Exported %d posts and %d listing fragments to %s\n", res.Posts, res.Fragments, buildOut)
	return nil
}
