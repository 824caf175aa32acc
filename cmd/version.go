package cmd

import (
	"github.com/spf13/cobra"

	"github.com/wenpm/bucketctl/pkg/buildinfo"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show bucketctl version",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("bucketctl %s\n", buildinfo.BinaryVersion)
	},
}
