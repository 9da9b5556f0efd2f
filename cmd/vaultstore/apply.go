package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply an object manifest",
	Long: `Apply creates or revises an object from a YAML manifest.

Example:
  vaultstore apply -f clientfile.yaml --data-dir ./data --user alice`,
	RunE: runApply,
}

func init() {
	applyCmd.Flags().StringP("file", "f", "", "YAML manifest to apply (required)")
	_ = applyCmd.MarkFlagRequired("file")
}

// manifest is the on-disk shape of a vaultstore object manifest: a Kind
// naming the model, optional metadata locating an existing object to
// revise, and a spec carrying the model's business fields.
type manifest struct {
	APIVersion string                 `yaml:"apiVersion"`
	Kind       string                 `yaml:"kind"`
	Metadata   manifestMetadata       `yaml:"metadata"`
	Spec       map[string]interface{} `yaml:"spec"`
}

type manifestMetadata struct {
	ID       string `yaml:"id,omitempty"`
	ParentID string `yaml:"parentId,omitempty"`
}

func runApply(cmd *cobra.Command, args []string) error {
	filename, _ := cmd.Flags().GetString("file")

	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("read manifest: %w", err)
	}
	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("parse manifest: %w", err)
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	coll, ctxIDs, err := resolveCollection(s, m.Kind, m.Metadata.ParentID)
	if err != nil {
		return err
	}

	userName, _ := cmd.Flags().GetString("user")
	if m.Metadata.ID == "" {
		created, err := coll.Create(ctxIDs, m.Spec, userName)
		if err != nil {
			return fmt.Errorf("create: %w", err)
		}
		fmt.Printf("created %s %s\n", m.Kind, created["id"])
		return printJSON(created)
	}

	latest, err := coll.ReadLatestRevisions(ctxIDs, m.Metadata.ID, 1)
	if err != nil {
		return fmt.Errorf("read current revision: %w", err)
	}
	if len(latest) == 0 {
		return fmt.Errorf("read current revision: object %s has no revisions", m.Metadata.ID)
	}
	current := latest[0]
	for k, v := range m.Spec {
		current[k] = v
	}
	updated, err := coll.CreateRevision(ctxIDs, current, userName)
	if err != nil {
		return fmt.Errorf("revise: %w", err)
	}
	fmt.Printf("revised %s %s\n", m.Kind, updated["id"])
	return printJSON(updated)
}
