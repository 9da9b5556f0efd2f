package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cuemby/vaultstore/pkg/models"
	"github.com/cuemby/vaultstore/pkg/session"
	"github.com/cuemby/vaultstore/pkg/store"
)

// resolveCollection returns the Collection and context ids for a model
// kind, resolving one level of nesting via --parent-id for child models.
func resolveCollection(s *session.Session, kind, parentID string) (*store.Collection, []string, error) {
	switch kind {
	case "ClientFile":
		return s.Collection(models.ClientFile), nil, nil
	case "ProgNote":
		if parentID == "" {
			return nil, nil, fmt.Errorf("--parent-id is required for ProgNote")
		}
		return s.Collection(models.ClientFile).Child(models.ProgNote), []string{parentID}, nil
	default:
		return nil, nil, fmt.Errorf("unknown model kind %q", kind)
	}
}

func readPayload(path string) (map[string]interface{}, error) {
	var raw []byte
	var err error
	if path == "-" || path == "" {
		raw, err = readAllStdin()
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	var obj map[string]interface{}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("parse payload JSON: %w", err)
	}
	return obj, nil
}

func readAllStdin() ([]byte, error) {
	dec := json.NewDecoder(os.Stdin)
	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new object",
	RunE:  runCreate,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List objects in a collection",
	RunE:  runList,
}

var readCmd = &cobra.Command{
	Use:   "read",
	Short: "Read an object's current revision",
	RunE:  runRead,
}

var reviseCmd = &cobra.Command{
	Use:   "revise",
	Short: "Create a new revision for an existing object",
	RunE:  runRevise,
}

func init() {
	for _, c := range []*cobra.Command{createCmd, listCmd, readCmd, reviseCmd} {
		c.Flags().String("model", "ClientFile", "Model kind: ClientFile or ProgNote")
		c.Flags().String("parent-id", "", "Parent clientFile id, required for ProgNote")
	}
	for _, c := range []*cobra.Command{createCmd, reviseCmd} {
		c.Flags().StringP("file", "f", "", "Payload JSON file (reads stdin if omitted)")
	}
	for _, c := range []*cobra.Command{readCmd, reviseCmd} {
		c.Flags().String("id", "", "Object id")
		_ = c.MarkFlagRequired("id")
	}
}

func runCreate(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	kind, _ := cmd.Flags().GetString("model")
	parentID, _ := cmd.Flags().GetString("parent-id")
	file, _ := cmd.Flags().GetString("file")

	coll, ctxIDs, err := resolveCollection(s, kind, parentID)
	if err != nil {
		return err
	}
	obj, err := readPayload(file)
	if err != nil {
		return err
	}

	userName, _ := cmd.Flags().GetString("user")
	created, err := coll.Create(ctxIDs, obj, userName)
	if err != nil {
		return fmt.Errorf("create: %w", err)
	}
	return printJSON(created)
}

func runList(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	kind, _ := cmd.Flags().GetString("model")
	parentID, _ := cmd.Flags().GetString("parent-id")

	coll, ctxIDs, err := resolveCollection(s, kind, parentID)
	if err != nil {
		return err
	}
	entries, err := coll.List(ctxIDs)
	if err != nil {
		return fmt.Errorf("list: %w", err)
	}
	return printJSON(entries)
}

func runRead(cmd *cobra.Command, args []string) error {
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
	latest, err := coll.ReadLatestRevisions(ctxIDs, id, 1)
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}
	if len(latest) == 0 {
		return fmt.Errorf("read: object %s has no revisions", id)
	}
	return printJSON(latest[0])
}

func runRevise(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	kind, _ := cmd.Flags().GetString("model")
	parentID, _ := cmd.Flags().GetString("parent-id")
	id, _ := cmd.Flags().GetString("id")
	file, _ := cmd.Flags().GetString("file")

	coll, ctxIDs, err := resolveCollection(s, kind, parentID)
	if err != nil {
		return err
	}
	latest, err := coll.ReadLatestRevisions(ctxIDs, id, 1)
	if err != nil {
		return fmt.Errorf("read current revision: %w", err)
	}
	if len(latest) == 0 {
		return fmt.Errorf("read current revision: object %s has no revisions", id)
	}
	current := latest[0]
	patch, err := readPayload(file)
	if err != nil {
		return err
	}
	for k, v := range patch {
		current[k] = v
	}

	userName, _ := cmd.Flags().GetString("user")
	updated, err := coll.CreateRevision(ctxIDs, current, userName)
	if err != nil {
		return fmt.Errorf("revise: %w", err)
	}
	return printJSON(updated)
}
