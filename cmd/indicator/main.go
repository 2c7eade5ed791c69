package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "indicator",
		Short: "Statistic indicator widgets: aggregate a data source field and keep the value up to date",
	}

	rootCmd.AddCommand(
		newServeCmd(),
		newComputeCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
