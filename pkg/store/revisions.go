package store

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/cuemby/vaultstore/pkg/atomicfs"
	"github.com/cuemby/vaultstore/pkg/codec"
	"github.com/cuemby/vaultstore/pkg/events"
	"github.com/cuemby/vaultstore/pkg/metrics"
	"github.com/cuemby/vaultstore/pkg/schema"
	"github.com/cuemby/vaultstore/pkg/vaulterr"
)

// RevisionInfo describes one revision file without decrypting it.
type RevisionInfo struct {
	Timestamp  time.Time
	RevisionID string
	FileName   string
}

// revisionFiles scans an object directory for revision files (plain
// files, not child-collection subdirectories), sorted ascending by
// their decoded timestamp (I4).
func (c *Collection) revisionFiles(dirPath string) ([]RevisionInfo, error) {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return nil, vaulterr.NewIOError("readdir", dirPath, err)
	}

	var infos []RevisionInfo
	for _, e := range entries {
		if e.IsDir() || codec.IsReservedName(e.Name()) {
			continue
		}
		components, err := c.decodeName(e.Name(), 2)
		if err != nil {
			c.logger.Warn().Str("entry", e.Name()).Err(err).Msg("skipping undecodable revision file")
			continue
		}
		ts, err := time.Parse(schema.TimestampLayout, string(components[0]))
		if err != nil {
			continue
		}
		infos = append(infos, RevisionInfo{
			Timestamp:  ts,
			RevisionID: base64.RawURLEncoding.EncodeToString(components[1]),
			FileName:   e.Name(),
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Timestamp.Before(infos[j].Timestamp) })
	return infos, nil
}

// decryptRevision decrypts and JSON-decodes one revision file, then
// enforces the I2 tamper-detection check: the payload's embedded
// context must match the physical path it was found at.
func (c *Collection) decryptRevision(dirPath, fileName string, ctxIDs []string, objID string) (map[string]interface{}, error) {
	if c.metrics != nil {
		c.metrics.DecryptCalls.WithLabelValues(c.def.CollectionName).Inc()
	}

	raw, err := os.ReadFile(filepath.Join(dirPath, fileName))
	if err != nil {
		return nil, vaulterr.NewIOError("read", fileName, err)
	}
	plain, err := c.strongKey.Decrypt(raw)
	if err != nil {
		return nil, &vaulterr.IntegrityError{Path: dirPath, Reason: fmt.Sprintf("payload does not decrypt/authenticate: %v", err)}
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(plain, &payload); err != nil {
		return nil, &vaulterr.IntegrityError{Path: dirPath, Reason: "decrypted payload is not valid JSON"}
	}

	if err := c.verifyContext(payload, ctxIDs, objID, dirPath); err != nil {
		return nil, err
	}

	names := c.ancestorNames()
	if err := schema.ValidateMetadata(c.def.Name, payload, names); err != nil {
		return nil, err
	}
	if err := schema.Validate(c.def, payload, names); err != nil {
		return nil, err
	}

	delete(payload, "_contextCollectionNames")
	delete(payload, "_contextIds")
	delete(payload, "_collectionName")
	return payload, nil
}

func (c *Collection) verifyContext(payload map[string]interface{}, ctxIDs []string, objID, dirPath string) error {
	collectionName, _ := payload["_collectionName"].(string)
	if collectionName != c.def.CollectionName {
		return &vaulterr.IntegrityError{Path: dirPath, Reason: "embedded _collectionName does not match physical path"}
	}
	id, _ := payload["id"].(string)
	if id != objID {
		return &vaulterr.IntegrityError{Path: dirPath, Reason: "embedded id does not match directory id"}
	}

	names := c.ancestorNames()
	gotNames, err := stringSlice(payload["_contextCollectionNames"])
	if err != nil || !equalStrings(gotNames, names) {
		return &vaulterr.IntegrityError{Path: dirPath, Reason: "embedded _contextCollectionNames does not match physical path"}
	}
	gotIDs, err := stringSlice(payload["_contextIds"])
	if err != nil || !equalStrings(gotIDs, ctxIDs) {
		return &vaulterr.IntegrityError{Path: dirPath, Reason: "embedded _contextIds does not match physical path"}
	}
	return nil
}

func stringSlice(v interface{}) ([]string, error) {
	arr, ok := v.([]interface{})
	if !ok {
		if v == nil {
			return nil, nil
		}
		return nil, fmt.Errorf("not a string array")
	}
	out := make([]string, len(arr))
	for i, e := range arr {
		s, ok := e.(string)
		if !ok {
			return nil, fmt.Errorf("non-string element")
		}
		out[i] = s
	}
	return out, nil
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Read locates the object by id and reads its single revision file.
// Finding more than one revision file is an I3 violation and is fatal.
// Read does not itself check that the collection is immutable. A mutable
// object passes only until its first CreateRevision, which adds a second
// revision file; after that Read fails with an IntegrityError, and
// ReadLatestRevisions(ctxIDs, id, 1) returns the current state.
func (c *Collection) Read(ctxIDs []string, id string) (map[string]interface{}, error) {
	timer := metrics.NewTimer()
	defer c.observe(timer, "read")

	entry, err := c.findEntry(ctxIDs, id)
	if err != nil {
		return nil, err
	}
	revisions, err := c.revisionFiles(entry.DirPath)
	if err != nil {
		return nil, err
	}
	if len(revisions) != 1 {
		return nil, &vaulterr.IntegrityError{Path: entry.DirPath, Reason: fmt.Sprintf("expected exactly one revision file, found %d", len(revisions))}
	}
	return c.decryptRevision(entry.DirPath, revisions[0].FileName, ctxIDs, id)
}

// CreateRevision writes a new revision for an existing, mutable object
// and renames its directory if the post-update indexed fields changed
// the canonical name.
func (c *Collection) CreateRevision(ctxIDs []string, obj map[string]interface{}, author string) (map[string]interface{}, error) {
	timer := metrics.NewTimer()
	defer c.observe(timer, "createRevision")

	id, ok := obj["id"].(string)
	if !ok || id == "" {
		return nil, &vaulterr.ValidationError{Model: c.def.Name, Err: fmt.Errorf("createRevision requires obj.id")}
	}

	entry, err := c.findEntry(ctxIDs, id)
	if err != nil {
		return nil, err
	}

	names := c.ancestorNames()
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

	idBytes, err := base64.RawURLEncoding.DecodeString(id)
	if err != nil {
		return nil, &vaulterr.IntegrityError{Path: entry.DirPath, Reason: "object id is not valid base64url"}
	}

	revFileName, ciphertext, err := c.buildRevisionFile(names, ctxIDs, id, revisionIDBytes, now, obj)
	if err != nil {
		return nil, err
	}
	if err := atomicfs.WriteBufferToFile(filepath.Join(entry.DirPath, revFileName), c.tmpRoot, ciphertext); err != nil {
		return nil, err
	}

	indexValues := schema.IndexValues(c.def, obj)
	components := make([][]byte, 0, len(indexValues)+1)
	for _, v := range indexValues {
		components = append(components, []byte(v))
	}
	components = append(components, idBytes)
	newDirName, err := c.encodeName(components)
	if err != nil {
		return nil, err
	}
	if newDirName != filepath.Base(entry.DirPath) {
		newPath := filepath.Join(filepath.Dir(entry.DirPath), newDirName)
		if err := os.Rename(entry.DirPath, newPath); err != nil {
			return nil, vaulterr.NewIOError("rename", newPath, err)
		}
	}

	if c.bus != nil {
		c.bus.Publish(&events.Event{Type: events.EventCreateRevision, Model: c.def.Name, ObjectID: id})
	}
	c.logger.Debug().Str("object_id", id).Str("revision_id", revisionID).Msg("revision created")
	return obj, nil
}

// ListRevisions returns every revision's metadata for an object, sorted
// ascending by timestamp, without decrypting any payload.
func (c *Collection) ListRevisions(ctxIDs []string, id string) ([]RevisionInfo, error) {
	entry, err := c.findEntry(ctxIDs, id)
	if err != nil {
		return nil, err
	}
	return c.revisionFiles(entry.DirPath)
}

// ReadRevisions decrypts and returns every revision of an object,
// ascending by timestamp.
func (c *Collection) ReadRevisions(ctxIDs []string, id string) ([]map[string]interface{}, error) {
	entry, err := c.findEntry(ctxIDs, id)
	if err != nil {
		return nil, err
	}
	revisions, err := c.revisionFiles(entry.DirPath)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]interface{}, 0, len(revisions))
	for _, r := range revisions {
		payload, err := c.decryptRevision(entry.DirPath, r.FileName, ctxIDs, id)
		if err != nil {
			return nil, err
		}
		out = append(out, payload)
	}
	return out, nil
}

// ReadLatestRevisions resolves the object directory even for k==0 (so a
// nonexistent object still fails with ObjectNotFoundError), but
// performs zero payload decryptions in that case.
func (c *Collection) ReadLatestRevisions(ctxIDs []string, id string, k int) ([]map[string]interface{}, error) {
	entry, err := c.findEntry(ctxIDs, id)
	if err != nil {
		return nil, err
	}
	if k == 0 {
		return []map[string]interface{}{}, nil
	}
	revisions, err := c.revisionFiles(entry.DirPath)
	if err != nil {
		return nil, err
	}
	if k > len(revisions) {
		k = len(revisions)
	}
	latest := revisions[len(revisions)-k:]
	out := make([]map[string]interface{}, 0, len(latest))
	for _, r := range latest {
		payload, err := c.decryptRevision(entry.DirPath, r.FileName, ctxIDs, id)
		if err != nil {
			return nil, err
		}
		out = append(out, payload)
	}
	return out, nil
}
