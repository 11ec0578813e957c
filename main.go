package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "stocks-simulator",
		Short: "Paper trading web application",
	}
	rootCmd.AddCommand(newServeCmd(), newMigrateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing stocks-simulator CLI: %s\n", err)
		os.Exit(1)
	}
}
