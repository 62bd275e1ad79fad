// Package main provides the kartquiz binary: the quiz server, database
// migrations and quiz import.
package main

import (
	"log"

	"github.com/spf13/cobra"
)

const (
	releaseVersion = "0.4.0"
)

func main() {
	log.SetFlags(0)
	cobra.CheckErr(newRootCmd().Execute())
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "kartquiz",
		Short:         "Real-time multi-room map quiz server.",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		Version:       releaseVersion,
	}

	cmd.PersistentFlags().String("config", "", "path to a YAML configuration file (env: KARTQUIZ_CONFIG)")

	cmd.AddCommand(newServeCmd(), newMigrateCmd(), newImportCmd())

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("kartquiz v{{.Version}}\n")

	return cmd
}
