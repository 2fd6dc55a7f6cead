package main

import (
	"os"

	cmd "github.com/mosaicnetworks/auditchain/cmd/auditpeerd/commands"
)

func main() {
	rootCmd := cmd.RootCmd

	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
