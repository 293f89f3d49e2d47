package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/octopod/octopod/config"
)

func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate PATH...",
		Short: "Check topology files without provisioning anything",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			apps, err := config.Load(args...)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, app := range apps {
				fmt.Fprintf(out, "%s\n", app.Name)
				for _, svc := range app.Services {
					fmt.Fprintf(out, "  %s (%s)\n", svc.Name, svc.Image)
				}
			}
			return nil
		},
	}
}
