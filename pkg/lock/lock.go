package lock

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cuemby/vaultstore/pkg/atomicfs"
	"github.com/cuemby/vaultstore/pkg/events"
	"github.com/cuemby/vaultstore/pkg/log"
	"github.com/cuemby/vaultstore/pkg/metrics"
	"github.com/cuemby/vaultstore/pkg/vaulterr"
)

const (
	// DefaultLeaseTime is the recommended lock lease duration.
	DefaultLeaseTime = 3 * time.Minute
	// DefaultRenewalInterval is the recommended renewal timer period.
	DefaultRenewalInterval = 1 * time.Minute
	// DefaultPollInterval is how often AcquireWhenFree retries a
	// contended lock.
	DefaultPollInterval = 1 * time.Second

	timestampLayout   = "2006-01-02T15:04:05.000Z07:00"
	metadataFileName  = "metadata"
	expirePrefix      = "expire-"
	expiryLockSuffix  = ".expiry"
	reclaimRetryDelay = 20 * time.Millisecond
	reclaimMaxRetries = 50
)

type lockMetadata struct {
	UserName string `json:"userName"`
}

// Manager coordinates lock directories under one data directory.
type Manager struct {
	dataDir         string
	tmpRoot         string
	leaseTime       time.Duration
	renewalInterval time.Duration
	metrics         *metrics.Registry
	bus             *events.Broker
	logger          zerolog.Logger
}

// NewManager constructs a Manager rooted at dataDir/_locks, staging
// through dataDir/_tmp. metricsReg and bus may be nil in tests that
// don't care about observability.
func NewManager(dataDir string, leaseTime, renewalInterval time.Duration, metricsReg *metrics.Registry, bus *events.Broker) *Manager {
	return &Manager{
		dataDir:         dataDir,
		tmpRoot:         filepath.Join(dataDir, "_tmp"),
		leaseTime:       leaseTime,
		renewalInterval: renewalInterval,
		metrics:         metricsReg,
		bus:             bus,
		logger:          log.WithComponent("lock"),
	}
}

// Lock is a held lock handle. Renew and Release are safe to call from
// any goroutine; Release is idempotent.
type Lock struct {
	manager    *Manager
	lockID     string
	path       string
	userName   string
	mu         sync.Mutex
	nextExpiry time.Time
	released   bool
	timer      *time.Timer
}

func (m *Manager) lockPath(lockID string) string {
	return filepath.Join(m.dataDir, "_locks", lockID)
}

func formatExpiry(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// Acquire attempts to take lockID for userName. On contention by a
// live holder it returns *vaulterr.LockInUseError immediately; callers
// wanting to wait should use AcquireWhenFree.
func (m *Manager) Acquire(ctx context.Context, lockID, userName string) (*Lock, error) {
	return m.acquireOnce(ctx, lockID, userName, true)
}

func (m *Manager) acquireOnce(ctx context.Context, lockID, userName string, allowReclaim bool) (*Lock, error) {
	path := m.lockPath(lockID)

	commit, err := atomicfs.WriteDirectory(path, m.tmpRoot)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	expiry := now.Add(m.leaseTime)

	metaBytes, err := json.Marshal(lockMetadata{UserName: userName})
	if err != nil {
		commit.Abandon()
		return nil, vaulterr.NewIOError("marshal", path, err)
	}
	if err := os.WriteFile(filepath.Join(commit.TmpPath(), metadataFileName), metaBytes, 0o600); err != nil {
		commit.Abandon()
		return nil, vaulterr.NewIOError("write", filepath.Join(commit.TmpPath(), metadataFileName), err)
	}
	expireName := expirePrefix + formatExpiry(expiry)
	if err := os.WriteFile(filepath.Join(commit.TmpPath(), expireName), []byte{}, 0o600); err != nil {
		commit.Abandon()
		return nil, vaulterr.NewIOError("write", filepath.Join(commit.TmpPath(), expireName), err)
	}

	if err := commit.Commit(); err != nil {
		if !os.IsExist(unwrapErrno(err)) {
			return nil, err
		}
		return m.handleCollision(ctx, lockID, userName, allowReclaim)
	}

	if m.metrics != nil {
		m.metrics.LockAcquisitions.WithLabelValues(lockID).Inc()
	}
	m.logger.Debug().Str("lock_id", lockID).Str("user", userName).Msg("lock acquired")

	l := &Lock{manager: m, lockID: lockID, path: path, userName: userName, nextExpiry: expiry}
	l.startRenewalTimer()
	return l, nil
}

// unwrapErrno extracts the original OS error from a *vaulterr.IOError
// so os.IsExist can classify it; non-IOErrors pass through unchanged.
func unwrapErrno(err error) error {
	if ioErr, ok := err.(*vaulterr.IOError); ok {
		return ioErr.Err
	}
	return err
}

func (m *Manager) handleCollision(ctx context.Context, lockID, userName string, allowReclaim bool) (*Lock, error) {
	path := m.lockPath(lockID)
	meta, isStale, err := m.inspect(path)
	if err != nil {
		return nil, err
	}

	if !isStale {
		if m.metrics != nil {
			m.metrics.LockContentions.WithLabelValues(lockID).Inc()
		}
		return nil, &vaulterr.LockInUseError{LockID: lockID, UserName: meta.UserName}
	}

	if !allowReclaim {
		return nil, &vaulterr.LockInUseError{LockID: lockID, UserName: meta.UserName}
	}

	if err := m.reclaim(ctx, lockID); err != nil {
		return nil, err
	}
	return m.acquireOnce(ctx, lockID, userName, false)
}

// inspect reads a held lock's metadata and determines whether it is
// stale: its maximum expire-* timestamp is in the past, or it has no
// expire-* marker at all (see the lock-directory-with-no-markers
// decision recorded in DESIGN.md).
func (m *Manager) inspect(path string) (lockMetadata, bool, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Raced with a concurrent release; report it as stale so
			// the caller's reclaim-then-retry path runs (the delete is
			// a harmless no-op and the retried acquire proceeds).
			return lockMetadata{}, true, nil
		}
		return lockMetadata{}, false, vaulterr.NewIOError("readdir", path, err)
	}

	var meta lockMetadata
	var maxExpiry time.Time
	found := false

	for _, e := range entries {
		name := e.Name()
		if name == metadataFileName {
			raw, err := os.ReadFile(filepath.Join(path, name))
			if err != nil {
				return lockMetadata{}, false, vaulterr.NewIOError("read", filepath.Join(path, name), err)
			}
			if err := json.Unmarshal(raw, &meta); err != nil {
				return lockMetadata{}, false, &vaulterr.IntegrityError{Path: path, Reason: "lock metadata is not valid JSON"}
			}
			continue
		}
		if strings.HasPrefix(name, expirePrefix) {
			ts, err := time.Parse(timestampLayout, strings.TrimPrefix(name, expirePrefix))
			if err != nil {
				continue
			}
			found = true
			if ts.After(maxExpiry) {
				maxExpiry = ts
			}
		}
	}

	if !found {
		m.logger.Warn().Str("path", path).Msg("lock directory has no expire marker, treating as stale")
		return meta, true, nil
	}
	return meta, maxExpiry.Before(time.Now()), nil
}

// reclaim deletes a stale primary lock directory, guarded by a
// secondary "<lockId>.expiry" lock so two racing reclaimers never both
// delete it.
func (m *Manager) reclaim(ctx context.Context, lockID string) error {
	expiryLockID := lockID + expiryLockSuffix
	guard, err := m.acquireGuard(ctx, expiryLockID)
	if err != nil {
		return err
	}
	defer guard.release()

	path := m.lockPath(lockID)
	_, isStale, err := m.inspect(path)
	if err != nil {
		return err
	}
	if !isStale {
		// Another caller renewed in the meantime; nothing to reclaim.
		return nil
	}

	if m.metrics != nil {
		m.metrics.LockStaleReclaims.WithLabelValues(lockID).Inc()
	}
	m.logger.Info().Str("lock_id", lockID).Msg("reclaiming stale lock")
	return atomicfs.DeleteDirectory(path, m.tmpRoot)
}

// guardLock is a short-lived internal mutex directory, held only for
// the duration of a single reclaim.
type guardLock struct {
	manager *Manager
	path    string
}

func (g *guardLock) release() {
	if err := atomicfs.DeleteDirectory(g.path, g.manager.tmpRoot); err != nil {
		g.manager.logger.Warn().Err(err).Str("path", g.path).Msg("failed to release reclaim guard lock")
	}
}

func (m *Manager) acquireGuard(ctx context.Context, guardLockID string) (*guardLock, error) {
	path := m.lockPath(guardLockID)
	for attempt := 0; attempt < reclaimMaxRetries; attempt++ {
		commit, err := atomicfs.WriteDirectory(path, m.tmpRoot)
		if err != nil {
			return nil, err
		}
		// A non-empty guard directory cannot be replaced by another
		// reclaimer's rename, so only one commit can win.
		if err := os.WriteFile(filepath.Join(commit.TmpPath(), metadataFileName), []byte("{}"), 0o600); err != nil {
			commit.Abandon()
			return nil, vaulterr.NewIOError("write", filepath.Join(commit.TmpPath(), metadataFileName), err)
		}
		if err := commit.Commit(); err == nil {
			return &guardLock{manager: m, path: path}, nil
		} else if !os.IsExist(unwrapErrno(err)) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(reclaimRetryDelay):
		}
	}
	return nil, fmt.Errorf("lock: could not acquire reclaim guard %s after %d attempts", guardLockID, reclaimMaxRetries)
}

// AcquireWhenFree acquires lockID, polling every pollInterval while it
// is held by a live holder. On success after at least one contended
// attempt, it publishes a clientFile:lockAcquired event.
func (m *Manager) AcquireWhenFree(ctx context.Context, lockID, userName string, pollInterval time.Duration) (*Lock, error) {
	contended := false
	for {
		l, err := m.Acquire(ctx, lockID, userName)
		if err == nil {
			if contended && m.bus != nil {
				m.bus.Publish(&events.Event{Type: events.EventLockAcquired, ObjectID: lockID})
			}
			return l, nil
		}
		var inUse *vaulterr.LockInUseError
		if !asLockInUse(err, &inUse) {
			return nil, err
		}
		contended = true
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

func asLockInUse(err error, target **vaulterr.LockInUseError) bool {
	if e, ok := err.(*vaulterr.LockInUseError); ok {
		*target = e
		return true
	}
	return false
}

func (l *Lock) startRenewalTimer() {
	l.timer = time.AfterFunc(l.manager.renewalInterval, l.onRenewalTick)
}

func (l *Lock) onRenewalTick() {
	if err := l.Renew(); err != nil {
		l.manager.logger.Warn().Err(err).Str("lock_id", l.lockID).Msg("lock renewal failed")
	}
}

// Renew extends the lease by writing a fresh expire-<now+lease> marker.
// If the handle's previously cached expiry has already passed, the
// lock is treated as self-released: this and all subsequent
// renew/release calls are no-ops.
func (l *Lock) Renew() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.released {
		return nil
	}
	if time.Now().After(l.nextExpiry) {
		l.released = true
		if l.timer != nil {
			l.timer.Stop()
		}
		return nil
	}

	newExpiry := time.Now().Add(l.manager.leaseTime)
	expireName := expirePrefix + formatExpiry(newExpiry)
	if err := os.WriteFile(filepath.Join(l.path, expireName), []byte{}, 0o600); err != nil {
		return vaulterr.NewIOError("write", filepath.Join(l.path, expireName), err)
	}
	if newExpiry.After(l.nextExpiry) {
		l.nextExpiry = newExpiry
	}
	l.timer = time.AfterFunc(l.manager.renewalInterval, l.onRenewalTick)
	return nil
}

// Release stops the renewal timer and atomically deletes the lock
// directory. Idempotent.
func (l *Lock) Release() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.released {
		return nil
	}
	l.released = true
	if l.timer != nil {
		l.timer.Stop()
	}
	return atomicfs.DeleteDirectory(l.path, l.manager.tmpRoot)
}

// LockID returns the lock's identifier.
func (l *Lock) LockID() string { return l.lockID }
