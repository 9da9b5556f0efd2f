package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/cuemby/vaultstore/pkg/session"
)

func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(pw), nil
}

// openSession reads the --data-dir and --user persistent flags, prompts
// for the account password, and logs in.
func openSession(cmd *cobra.Command) (*session.Session, error) {
	dataDir, _ := cmd.Flags().GetString("data-dir")
	userName, _ := cmd.Flags().GetString("user")

	password, err := promptPassword(fmt.Sprintf("Password for %s: ", userName))
	if err != nil {
		return nil, err
	}
	return session.Login(dataDir, userName, password)
}
