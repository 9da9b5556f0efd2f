package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cuemby/vaultstore/pkg/models"
	"github.com/cuemby/vaultstore/pkg/session"
)

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Manage Store accounts",
}

var accountCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new account and bootstrap its data directory",
	RunE:  runAccountCreate,
}

func init() {
	accountCmd.AddCommand(accountCreateCmd)
}

func runAccountCreate(cmd *cobra.Command, args []string) error {
	dataDir, _ := cmd.Flags().GetString("data-dir")
	userName, _ := cmd.Flags().GetString("user")

	password, err := promptPassword(fmt.Sprintf("New password for %s: ", userName))
	if err != nil {
		return err
	}
	confirm, err := promptPassword("Confirm password: ")
	if err != nil {
		return err
	}
	if password != confirm {
		return fmt.Errorf("passwords do not match")
	}

	if err := session.SetupAccount(dataDir, userName, password, models.TopLevel); err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	fmt.Printf("account created: %s\n", userName)
	return nil
}
