package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/my-pwa-apps/Bloxs/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "bloxsproxy",
	Short: "Bloxs OData proxy",
	Long:  `Authenticating, query-rewriting proxy in front of the Bloxs OData feed.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(func() { config.Init(cfgFile) })

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./configs/config.yaml)")
}

func main() {
	Execute()
}
