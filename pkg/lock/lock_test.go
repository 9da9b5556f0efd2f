package lock

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cuemby/vaultstore/pkg/vaulterr"
)

func newTestManager(t *testing.T, lease, renewal time.Duration) *Manager {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "_tmp"), 0o700))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "_locks"), 0o700))
	return NewManager(root, lease, renewal, nil, nil)
}

func TestAcquireRelease(t *testing.T) {
	m := newTestManager(t, DefaultLeaseTime, DefaultRenewalInterval)

	l, err := m.Acquire(context.Background(), "clientFile-1", "admin")
	require.NoError(t, err)
	require.NoError(t, l.Release())

	// Releasing again is a no-op.
	require.NoError(t, l.Release())
}

func TestAcquireExclusion(t *testing.T) {
	m := newTestManager(t, DefaultLeaseTime, DefaultRenewalInterval)

	l1, err := m.Acquire(context.Background(), "clientFile-1", "admin")
	require.NoError(t, err)
	defer l1.Release()

	_, err = m.Acquire(context.Background(), "clientFile-1", "other")
	require.Error(t, err)
	var lockErr *vaulterr.LockInUseError
	require.ErrorAs(t, err, &lockErr)
	require.Equal(t, "admin", lockErr.UserName)
}

func TestAcquireStaleReclaim(t *testing.T) {
	// A lease so short it's already expired by the time we attempt a
	// second acquire simulates a crashed holder without waiting
	// minutes in the test suite.
	m := newTestManager(t, 10*time.Millisecond, time.Hour)

	l1, err := m.Acquire(context.Background(), "clientFile-1", "admin")
	require.NoError(t, err)
	l1.timer.Stop() // simulate a crash: no release, no further renewal

	time.Sleep(30 * time.Millisecond)

	l2, err := m.Acquire(context.Background(), "clientFile-1", "other")
	require.NoError(t, err)
	require.NoError(t, l2.Release())
}

func TestAcquireWhenFreePollsUntilFree(t *testing.T) {
	m := newTestManager(t, DefaultLeaseTime, DefaultRenewalInterval)

	l1, err := m.Acquire(context.Background(), "clientFile-1", "admin")
	require.NoError(t, err)

	go func() {
		time.Sleep(30 * time.Millisecond)
		l1.Release()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	l2, err := m.AcquireWhenFree(ctx, "clientFile-1", "other", 10*time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, l2.Release())
}

func TestRenewExtendsLease(t *testing.T) {
	m := newTestManager(t, 50*time.Millisecond, time.Hour)

	l, err := m.Acquire(context.Background(), "clientFile-1", "admin")
	require.NoError(t, err)
	l.timer.Stop()

	require.NoError(t, l.Renew())
	require.True(t, l.nextExpiry.After(time.Now()))
	require.NoError(t, l.Release())
}

func TestRenewAfterExpirySelfReleases(t *testing.T) {
	m := newTestManager(t, 10*time.Millisecond, time.Hour)

	l, err := m.Acquire(context.Background(), "clientFile-1", "admin")
	require.NoError(t, err)
	l.timer.Stop()

	time.Sleep(30 * time.Millisecond)
	require.NoError(t, l.Renew())
	require.True(t, l.released)

	// A second acquirer can now take the lock since it was never
	// actually renewed on disk.
	l2, err := m.Acquire(context.Background(), "clientFile-1", "other")
	require.NoError(t, err)
	require.NoError(t, l2.Release())
}
