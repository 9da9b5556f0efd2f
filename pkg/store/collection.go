package store

import (
	"encoding/base64"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cuemby/vaultstore/pkg/codec"
	"github.com/cuemby/vaultstore/pkg/events"
	"github.com/cuemby/vaultstore/pkg/log"
	"github.com/cuemby/vaultstore/pkg/metrics"
	"github.com/cuemby/vaultstore/pkg/schema"
	"github.com/cuemby/vaultstore/pkg/security"
	"github.com/cuemby/vaultstore/pkg/vaulterr"
)

// weakKeySecurityLevel is the hardcoded "security level" parameter
// passed to the single security.DeriveWeakKey call in
// NewTopLevelCollection; the resulting key encrypts both object
// directory names and revision file names.
const weakKeySecurityLevel = 5

// Collection is the runtime handle for one model's collection at one
// location in the ancestor tree. Top-level collections have no
// parent; a child collection's directory is resolved per call through
// its parent.
type Collection struct {
	def      *schema.ModelDefinition
	parent   *Collection
	dataDir  string
	tmpRoot  string
	strongKey *security.StrongKey
	weakKey   *security.WeakKey
	bus       *events.Broker
	metrics   *metrics.Registry
	logger    zerolog.Logger
}

// NewTopLevelCollection constructs a Collection for a top-level model,
// rooted directly under dataDir.
func NewTopLevelCollection(dataDir string, def *schema.ModelDefinition, strongKey *security.StrongKey, bus *events.Broker, metricsReg *metrics.Registry) *Collection {
	return &Collection{
		def:       def,
		dataDir:   dataDir,
		tmpRoot:   filepath.Join(dataDir, "_tmp"),
		strongKey: strongKey,
		weakKey:   security.DeriveWeakKey(strongKey, weakKeySecurityLevel),
		bus:       bus,
		metrics:   metricsReg,
		logger:    log.WithCollection(def.CollectionName),
	}
}

// Child returns a Collection for childDef, nested inside this
// Collection's objects.
func (c *Collection) Child(childDef *schema.ModelDefinition) *Collection {
	return &Collection{
		def:       childDef,
		parent:    c,
		dataDir:   c.dataDir,
		tmpRoot:   c.tmpRoot,
		strongKey: c.strongKey,
		weakKey:   c.weakKey,
		bus:       c.bus,
		metrics:   c.metrics,
		logger:    log.WithCollection(childDef.CollectionName),
	}
}

// Model returns the collection's model definition.
func (c *Collection) Model() *schema.ModelDefinition { return c.def }

// ancestorNames returns the chain of ancestor model names, top-level
// first, for this collection.
func (c *Collection) ancestorNames() []string {
	var names []string
	if c.parent != nil {
		names = c.parent.ancestorNames()
		names = append(names, c.parent.def.Name)
	}
	return names
}

// ancestorIDsMap maps each ancestor model name to its id, using ctxIDs in
// the same top-level-first order as ancestorNames.
func ancestorIDsMap(names []string, ctxIDs []string) map[string]string {
	m := make(map[string]string, len(names))
	for i, n := range names {
		if i < len(ctxIDs) {
			m[n] = ctxIDs[i]
		}
	}
	return m
}

// ListEntry is one row produced by List: the object's id, its declared
// indexed field values reconstructed from the directory name, and the
// directory's physical path (used by Read/CreateRevision/ListRevisions
// to avoid a second scan; the field is exported and appears in the
// CLI's list output).
type ListEntry struct {
	ID      string
	Fields  map[string]interface{}
	DirPath string
}

// collectionDir resolves the filesystem directory this collection's
// objects live under, given the ancestor ids leading to it.
func (c *Collection) collectionDir(ctxIDs []string) (string, error) {
	if c.parent == nil {
		return filepath.Join(c.dataDir, c.def.CollectionName), nil
	}
	if len(ctxIDs) == 0 {
		return "", &vaulterr.ObjectNotFoundError{Collection: c.parent.def.CollectionName, ID: ""}
	}
	parentID := ctxIDs[len(ctxIDs)-1]
	parentCtxIDs := ctxIDs[:len(ctxIDs)-1]

	parentCollDir, err := c.parent.collectionDir(parentCtxIDs)
	if err != nil {
		return "", err
	}
	parentObjDir, err := c.parent.lookupObjDirByID(parentCollDir, parentID)
	if err != nil {
		return "", err
	}
	return filepath.Join(parentObjDir, c.def.CollectionName), nil
}

// lookupObjDirByID scans collDir for the object directory whose
// decoded id matches id.
func (c *Collection) lookupObjDirByID(collDir, id string) (string, error) {
	entries, err := os.ReadDir(collDir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", &vaulterr.ObjectNotFoundError{Collection: c.def.CollectionName, ID: id}
		}
		return "", vaulterr.NewIOError("readdir", collDir, err)
	}

	count := len(c.def.Indexes) + 1
	for _, e := range entries {
		if !e.IsDir() || codec.IsReservedName(e.Name()) {
			continue
		}
		components, err := c.decodeName(e.Name(), count)
		if err != nil {
			continue
		}
		idBytes := components[len(components)-1]
		if base64.RawURLEncoding.EncodeToString(idBytes) == id {
			return filepath.Join(collDir, e.Name()), nil
		}
	}
	return "", &vaulterr.ObjectNotFoundError{Collection: c.def.CollectionName, ID: id}
}

// decodeName base64url-decodes, weak-decrypts, and codec-decodes a
// directory or file name into its plaintext components.
func (c *Collection) decodeName(name string, count int) ([][]byte, error) {
	raw, err := base64.RawURLEncoding.DecodeString(name)
	if err != nil {
		return nil, err
	}
	plain, err := c.weakKey.Decrypt(raw)
	if err != nil {
		return nil, err
	}
	return codec.Decode(plain, count)
}

// encodeName codec-encodes, weak-encrypts, and base64url-encodes a list
// of plaintext components into an on-disk name.
func (c *Collection) encodeName(components [][]byte) (string, error) {
	plain := codec.Encode(components)
	cipher, err := c.weakKey.Encrypt(plain)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(cipher), nil
}

// newID returns a fresh 128-bit random identifier both in raw bytes and
// base64url-encoded form.
func newID() (string, []byte, error) {
	u, err := uuid.NewRandom()
	if err != nil {
		return "", nil, vaulterr.NewIOError("rand", "", err)
	}
	b := u[:]
	return base64.RawURLEncoding.EncodeToString(b), b, nil
}

// List scans the collection directory and returns one entry per object,
// without decrypting any payload.
func (c *Collection) List(ctxIDs []string) ([]ListEntry, error) {
	timer := metrics.NewTimer()
	defer c.observe(timer, "list")

	collDir, err := c.collectionDir(ctxIDs)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(collDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, vaulterr.NewIOError("readdir", collDir, err)
	}

	count := len(c.def.Indexes) + 1
	results := make([]ListEntry, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() || codec.IsReservedName(e.Name()) {
			continue
		}
		components, err := c.decodeName(e.Name(), count)
		if err != nil {
			c.logger.Warn().Str("entry", e.Name()).Err(err).Msg("skipping undecodable directory entry")
			continue
		}
		fields := make(map[string]interface{}, len(c.def.Indexes))
		for i, path := range c.def.Indexes {
			setPath(fields, path, string(components[i]))
		}
		id := base64.RawURLEncoding.EncodeToString(components[len(components)-1])
		results = append(results, ListEntry{
			ID:      id,
			Fields:  fields,
			DirPath: filepath.Join(collDir, e.Name()),
		})
	}
	return results, nil
}

func setPath(m map[string]interface{}, path []string, value string) {
	cur := m
	for i, p := range path {
		if i == len(path)-1 {
			cur[p] = value
			return
		}
		next, ok := cur[p].(map[string]interface{})
		if !ok {
			next = make(map[string]interface{})
			cur[p] = next
		}
		cur = next
	}
}

func (c *Collection) findEntry(ctxIDs []string, id string) (ListEntry, error) {
	entries, err := c.List(ctxIDs)
	if err != nil {
		return ListEntry{}, err
	}
	for _, e := range entries {
		if e.ID == id {
			return e, nil
		}
	}
	return ListEntry{}, &vaulterr.ObjectNotFoundError{Collection: c.def.CollectionName, ID: id}
}

func (c *Collection) observe(timer *metrics.Timer, op string) {
	if c.metrics != nil {
		timer.ObserveDurationVec(c.metrics.CollectionOpDuration, c.def.CollectionName, op)
	}
}
