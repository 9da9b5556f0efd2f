package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var revisionsCmd = &cobra.Command{
	Use:   "revisions",
	Short: "Inspect an object's revision history",
}

var revisionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List revision metadata without decrypting any payload",
	RunE:  runRevisionsList,
}

var revisionsReadCmd = &cobra.Command{
	Use:   "read",
	Short: "Decrypt and print every revision of an object",
	RunE:  runRevisionsRead,
}

func init() {
	for _, c := range []*cobra.Command{revisionsListCmd, revisionsReadCmd} {
		c.Flags().String("model", "ClientFile", "Model kind: ClientFile or ProgNote")
		c.Flags().String("parent-id", "", "Parent clientFile id, required for ProgNote")
		c.Flags().String("id", "", "Object id")
		_ = c.MarkFlagRequired("id")
	}
	revisionsCmd.AddCommand(revisionsListCmd)
	revisionsCmd.AddCommand(revisionsReadCmd)
}

func runRevisionsList(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	kind, _ := cmd.Flags().GetString("model")
	parentID, _ := cmd.Flags().GetString("parent-id")
	id, _ := cmd.Flags().GetString("id")

	coll, ctxIDs, err := resolveCollection(s, kind, parentID)
	if err != nil {
		return err
	}
	revisions, err := coll.ListRevisions(ctxIDs, id)
	if err != nil {
		return fmt.Errorf("list revisions: %w", err)
	}
	return printJSON(revisions)
}

func runRevisionsRead(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	kind, _ := cmd.Flags().GetString("model")
	parentID, _ := cmd.Flags().GetString("parent-id")
	id, _ := cmd.Flags().GetString("id")

	coll, ctxIDs, err := resolveCollection(s, kind, parentID)
	if err != nil {
		return err
	}
	revisions, err := coll.ReadRevisions(ctxIDs, id)
	if err != nil {
		return fmt.Errorf("read revisions: %w", err)
	}
	return printJSON(revisions)
}
