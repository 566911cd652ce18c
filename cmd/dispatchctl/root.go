package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "dispatchctl",
	Short:        "Operator CLI for the job dispatch API",
	Long:         "dispatchctl lists, assigns, claims and completes jobs through the dispatch REST API.",
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	cobra.EnableCommandSorting = false

	rootCmd.PersistentFlags().String("server", "", "API base URL, default "+defaultServer+" (or DISPATCH_SERVER env var)")
	rootCmd.PersistentFlags().String("token", "", "Bearer token (or DISPATCH_TOKEN env var)")

	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(jobsCmd)
	rootCmd.AddCommand(techniciansCmd)
	rootCmd.AddCommand(tokenCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
