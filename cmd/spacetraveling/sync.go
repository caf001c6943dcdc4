package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eringen/spacetraveling"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Copy every post from Prismic into the SQLite store",
	RunE:  syncAction,
}

func syncAction(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.Source = spacetraveling.SourcePrismic
	src, closeSrc, err := spacetraveling.OpenSource(cfg)
	if err != nil {
		return err
	}
	defer closeSrc()

	store, err := spacetraveling.NewStore(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	res, err := spacetraveling.Sync(cmd.Context(), src, store)
	if err != nil {
		return err
	}
	fmt.Printf("Synced %d posts into %s (%d removed)\n", res.Saved, cfg.DatabasePath, res.Deleted)
	return nil
}
