package cmd

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/kgview/kgview/internal/build"
)

// NewVersionCommand returns the command to get kgview version
func NewVersionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Return the kgview version",
		Long:  "Return the kgview version.",
		RunE:  version,
		Args:  cobra.NoArgs,
	}

	return cmd
}

// print out the built version
func version(_ *cobra.Command, _ []string) error {
	log.Printf("kgview Version %s Date %s commit id %s ", build.Version, build.Date, build.Commit)
	return nil
}
