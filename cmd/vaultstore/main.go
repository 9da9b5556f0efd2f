package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cuemby/vaultstore/pkg/log"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "vaultstore",
	Short: "Inspect and manage a vaultstore data directory",
	Long: `vaultstore operates directly on a Store data directory: it logs
into an account, then creates, lists, reads, and revises objects
through the same engine a desktop client would embed.`,
}

func init() {
	rootCmd.PersistentFlags().String("data-dir", "", "Path to the Store data directory (required)")
	rootCmd.PersistentFlags().String("user", "", "Account user name (required)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	_ = rootCmd.MarkPersistentFlagRequired("data-dir")
	_ = rootCmd.MarkPersistentFlagRequired("user")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(accountCmd)
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(readCmd)
	rootCmd.AddCommand(reviseCmd)
	rootCmd.AddCommand(revisionsCmd)
	rootCmd.AddCommand(lockCmd)
	rootCmd.AddCommand(applyCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}
