package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/cuemby/vaultstore/pkg/atomicfs"
	"github.com/cuemby/vaultstore/pkg/events"
	"github.com/cuemby/vaultstore/pkg/metrics"
	"github.com/cuemby/vaultstore/pkg/schema"
	"github.com/cuemby/vaultstore/pkg/vaulterr"
)

// Create validates obj, stamps on metadata, and atomically writes a new
// object directory containing its first revision and one subdirectory
// per declared child collection. It returns obj with metadata fields
// populated.
func (c *Collection) Create(ctxIDs []string, obj map[string]interface{}, author string) (map[string]interface{}, error) {
	timer := metrics.NewTimer()
	defer c.observe(timer, "create")

	names := c.ancestorNames()
	if err := schema.RejectIfMetadataPresent(c.def.Name, obj, names); err != nil {
		return nil, err
	}

	// Per §4.6, contextualIds are extracted from the object's own
	// <ancestor>Id fields; callers that already resolved them
	// separately (the CLI, tests) may pass ctxIDs directly instead.
	if len(ctxIDs) == 0 && len(names) > 0 {
		ctxIDs = schema.AncestorIDsFromObj(names, obj)
	}

	id, idBytes, err := newID()
	if err != nil {
		return nil, err
	}
	revisionID, revisionIDBytes, err := newID()
	if err != nil {
		return nil, err
	}
	now := time.Now()

	schema.StampMetadata(obj, id, revisionID, now, author, ancestorIDsMap(names, ctxIDs))

	if err := schema.ValidateMetadata(c.def.Name, obj, names); err != nil {
		return nil, err
	}
	if err := schema.Validate(c.def, obj, names); err != nil {
		return nil, err
	}

	parentDir, err := c.collectionDir(ctxIDs)
	if err != nil {
		return nil, err
	}

	indexValues := schema.IndexValues(c.def, obj)
	components := make([][]byte, 0, len(indexValues)+1)
	for _, v := range indexValues {
		components = append(components, []byte(v))
	}
	components = append(components, idBytes)
	dirName, err := c.encodeName(components)
	if err != nil {
		return nil, err
	}
	objDirPath := filepath.Join(parentDir, dirName)

	commit, err := atomicfs.WriteDirectory(objDirPath, c.tmpRoot)
	if err != nil {
		return nil, err
	}

	for _, child := range c.def.Children {
		if err := os.MkdirAll(filepath.Join(commit.TmpPath(), child.CollectionName), 0o700); err != nil {
			commit.Abandon()
			return nil, vaulterr.NewIOError("mkdir", child.CollectionName, err)
		}
	}

	revFileName, ciphertext, err := c.buildRevisionFile(names, ctxIDs, id, revisionIDBytes, now, obj)
	if err != nil {
		commit.Abandon()
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(commit.TmpPath(), revFileName), ciphertext, 0o600); err != nil {
		commit.Abandon()
		return nil, vaulterr.NewIOError("write", revFileName, err)
	}

	if err := commit.Commit(); err != nil {
		return nil, err
	}

	if c.bus != nil {
		c.bus.Publish(&events.Event{Type: events.EventCreate, Model: c.def.Name, ObjectID: id})
	}
	c.logger.Debug().Str("object_id", id).Msg("object created")
	return obj, nil
}

// buildRevisionFile encrypts obj into a tamper-checkable payload and
// returns the revision's on-disk file name plus its ciphertext.
func (c *Collection) buildRevisionFile(ancestorNames, ctxIDs []string, id string, revisionIDBytes []byte, timestamp time.Time, obj map[string]interface{}) (string, []byte, error) {
	payload := make(map[string]interface{}, len(obj)+3)
	for k, v := range obj {
		payload[k] = v
	}
	payload["_contextCollectionNames"] = ancestorNames
	payload["_contextIds"] = ctxIDs
	payload["_collectionName"] = c.def.CollectionName

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", nil, vaulterr.NewIOError("marshal", id, err)
	}
	ciphertext, err := c.strongKey.Encrypt(raw)
	if err != nil {
		return "", nil, vaulterr.NewIOError("encrypt", id, err)
	}

	ts := timestamp.UTC().Format(schema.TimestampLayout)
	fileName, err := c.encodeName([][]byte{[]byte(ts), revisionIDBytes})
	if err != nil {
		return "", nil, err
	}
	return fileName, ciphertext, nil
}
