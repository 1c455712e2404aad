package main

import (
	"github.com/spf13/cobra"

	"jqs/internal/config"
	"jqs/internal/store"
)

var rootFlagStoreRoot string

var rootCmd = &cobra.Command{
	Use:           "jqs",
	Short:         "Single-host filesystem-backed batch job queue and scheduler",
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootFlagStoreRoot, "root", "", "job store root directory (default: $JQS_ROOT or $HOME/jqs)")

	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(qCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(cancelCmd)
	rootCmd.AddCommand(nodesCmd)
	rootCmd.AddCommand(schedulerCmd)
}

// openStore resolves the configured root and ensures its directory
// layout exists. Every subcommand uses it; scheduler maps a failure here
// to exit code 1, failing fast on an unwritable root per spec §7.
func openStore() (*store.Store, error) {
	root, err := config.ResolveRoot(rootFlagStoreRoot)
	if err != nil {
		return nil, withExit(3, err)
	}
	s := store.New(root)
	if err := s.EnsureLayout(); err != nil {
		return nil, withExit(3, err)
	}
	return s, nil
}
