// spillhost is a development stand-in for the launcher client: it listens on
// a local port, accepts one integration connection, drives the handshake and
// prints the traffic. The demo subcommand runs a sample integration against
// a host, so a full round trip needs no real client at all.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	execute()
}

func execute() {
	rootCmd := &cobra.Command{
		Use:   "spillhost",
		Short: "development host for spill integrations",
		RunE:  runServeCmd,
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "path to config file")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newDemoCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
