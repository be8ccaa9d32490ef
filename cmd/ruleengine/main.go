package main

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "ruleengine",
		Short: "ruleengine",
		Long:  `Run the warehouse inventory anomaly-detection engine against a snapshot, a ruleset, and one or more warehouse templates.`,

		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if debug, _ := cmd.Flags().GetBool("debug"); debug {
				log.SetLevel(log.DebugLevel)
			}
			return nil
		},
	}

	rootCmd.AddCommand(newEvaluateCmd())

	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
