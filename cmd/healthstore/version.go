// Version command for the healthstore CLI.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/perch-health/healthstore/pkg/healthstore"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the healthstore version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("healthstore", healthstore.Version)
	},
}
