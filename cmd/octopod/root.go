package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "octopod",
		Short: "Provision containerized applications and test them",
		Long: `Octopod creates an isolated network and containers for each application described
in the topology files, runs tests against it, and removes everything it created.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(newRunCommand(), newValidateCommand())
	return rootCmd
}
