package session

import (
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/cuemby/vaultstore/pkg/atomicfs"
	"github.com/cuemby/vaultstore/pkg/events"
	"github.com/cuemby/vaultstore/pkg/lock"
	"github.com/cuemby/vaultstore/pkg/log"
	"github.com/cuemby/vaultstore/pkg/metrics"
	"github.com/cuemby/vaultstore/pkg/schema"
	"github.com/cuemby/vaultstore/pkg/security"
	"github.com/cuemby/vaultstore/pkg/store"
	"github.com/cuemby/vaultstore/pkg/vaulterr"
)

const (
	accountFileName = "account.json"
	keyFileName     = "key"
)

type accountRecord struct {
	PasswordSalt string `json:"passwordSalt"`
	Deactivated  bool   `json:"deactivated"`
}

// Session carries everything a logged-in caller needs to construct
// collections: the data directory, the user's name, their strong key,
// and the session-scoped event bus, lock manager, and metrics
// registry.
type Session struct {
	DataDirectory       string
	UserName            string
	GlobalEncryptionKey *security.StrongKey
	Bus                 *events.Broker
	Locks               *lock.Manager
	Metrics             *metrics.Registry
}

// SetupAccount bootstraps a brand new account and data directory: one
// subdirectory per top-level model plus _tmp, _users, _locks, and the
// account's own salt and wrapped strong key under _users/<userName>/.
func SetupAccount(dataDir, userName, password string, topLevel []*schema.ModelDefinition) error {
	collectionNames := make([]string, len(topLevel))
	for i, def := range topLevel {
		collectionNames[i] = def.CollectionName
	}
	if err := atomicfs.EnsureDataTree(dataDir, collectionNames); err != nil {
		return err
	}

	salt, err := security.GenerateSalt()
	if err != nil {
		return err
	}
	loginKey, err := security.DeriveLoginKey(password, salt)
	if err != nil {
		return err
	}
	strongKey, err := security.GenerateStrongKey()
	if err != nil {
		return err
	}
	wrapped, err := loginKey.Encrypt(strongKey.Bytes())
	if err != nil {
		return err
	}

	record, err := json.Marshal(accountRecord{PasswordSalt: base64.StdEncoding.EncodeToString(salt), Deactivated: false})
	if err != nil {
		return vaulterr.NewIOError("marshal", userName, err)
	}

	tmpRoot := filepath.Join(dataDir, "_tmp")
	userDir := filepath.Join(dataDir, "_users", userName)
	commit, err := atomicfs.WriteDirectory(userDir, tmpRoot)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(commit.TmpPath(), accountFileName), record, 0o600); err != nil {
		commit.Abandon()
		return vaulterr.NewIOError("write", accountFileName, err)
	}
	if err := os.WriteFile(filepath.Join(commit.TmpPath(), keyFileName), wrapped, 0o600); err != nil {
		commit.Abandon()
		return vaulterr.NewIOError("write", keyFileName, err)
	}
	return commit.Commit()
}

// Login verifies userName/password against the on-disk account record
// and, on success, returns a Session carrying the unwrapped strong key.
func Login(dataDir, userName, password string) (*Session, error) {
	userDir := filepath.Join(dataDir, "_users", userName)
	recordBytes, err := os.ReadFile(filepath.Join(userDir, accountFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &vaulterr.UnknownUserNameError{UserName: userName}
		}
		return nil, vaulterr.NewIOError("read", accountFileName, err)
	}

	var record accountRecord
	if err := json.Unmarshal(recordBytes, &record); err != nil {
		return nil, &vaulterr.IntegrityError{Path: userDir, Reason: "account record is not valid JSON"}
	}
	salt, err := base64.StdEncoding.DecodeString(record.PasswordSalt)
	if err != nil {
		return nil, &vaulterr.IntegrityError{Path: userDir, Reason: "account salt is not valid base64"}
	}

	loginKey, err := security.DeriveLoginKey(password, salt)
	if err != nil {
		return nil, err
	}

	wrapped, err := os.ReadFile(filepath.Join(userDir, keyFileName))
	if err != nil {
		return nil, vaulterr.NewIOError("read", keyFileName, err)
	}
	strongKeyBytes, err := loginKey.Decrypt(wrapped)
	if err != nil {
		return nil, &vaulterr.IncorrectPasswordError{UserName: userName}
	}
	strongKey, err := security.NewStrongKey(strongKeyBytes)
	if err != nil {
		return nil, &vaulterr.IntegrityError{Path: userDir, Reason: "unwrapped key has the wrong size"}
	}

	if record.Deactivated {
		return nil, &vaulterr.DeactivatedAccountError{UserName: userName}
	}

	bus := events.NewBroker()
	bus.Start()

	metricsReg := metrics.NewRegistry()
	locks := lock.NewManager(dataDir, lock.DefaultLeaseTime, lock.DefaultRenewalInterval, metricsReg, bus)

	log.WithComponent("session").Info().Str("user", userName).Msg("login succeeded")

	return &Session{
		DataDirectory:       dataDir,
		UserName:            userName,
		GlobalEncryptionKey: strongKey,
		Bus:                 bus,
		Locks:               locks,
		Metrics:             metricsReg,
	}, nil
}

// Close stops the session's event broker. It does not touch the data
// directory; a Session has no other in-process resources to release.
func (s *Session) Close() {
	s.Bus.Stop()
}

// Collection returns a top-level Collection handle for def, rooted at
// this session's data directory and keyed with its strong key.
func (s *Session) Collection(def *schema.ModelDefinition) *store.Collection {
	return store.NewTopLevelCollection(s.DataDirectory, def, s.GlobalEncryptionKey, s.Bus, s.Metrics)
}
