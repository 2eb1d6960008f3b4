// Package cmd defines the docuchat command line interface.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "docuchat",
	Short: "docuchat - thread-scoped document question answering",
	Long: `docuchat ingests documents into per-thread collections and answers
questions grounded in them. Each conversation thread sees only its own
documents.

Run "docuchat serve" to start the HTTP API.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
