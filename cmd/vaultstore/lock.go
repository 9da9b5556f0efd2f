package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cuemby/vaultstore/pkg/lock"
)

var lockCmd = &cobra.Command{
	Use:   "lock",
	Short: "Acquire or release an advisory client-file lock",
}

var lockAcquireCmd = &cobra.Command{
	Use:   "acquire",
	Short: "Acquire a lock, waiting for it to free up",
	RunE:  runLockAcquire,
}

var lockReleaseCmd = &cobra.Command{
	Use:   "release",
	Short: "Release a held lock by reacquiring then releasing it",
	RunE:  runLockRelease,
}

func init() {
	for _, c := range []*cobra.Command{lockAcquireCmd, lockReleaseCmd} {
		c.Flags().String("lock-id", "", "Lock identifier, typically the client file's object id")
		_ = c.MarkFlagRequired("lock-id")
	}
	lockCmd.AddCommand(lockAcquireCmd)
	lockCmd.AddCommand(lockReleaseCmd)
}

func runLockAcquire(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	lockID, _ := cmd.Flags().GetString("lock-id")
	userName, _ := cmd.Flags().GetString("user")

	l, err := s.Locks.AcquireWhenFree(context.Background(), lockID, userName, lock.DefaultPollInterval)
	if err != nil {
		return fmt.Errorf("acquire: %w", err)
	}
	fmt.Printf("lock acquired: %s\n", l.LockID())
	return nil
}

func runLockRelease(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	lockID, _ := cmd.Flags().GetString("lock-id")
	userName, _ := cmd.Flags().GetString("user")

	l, err := s.Locks.Acquire(context.Background(), lockID, userName)
	if err != nil {
		return fmt.Errorf("lock is not held by this user: %w", err)
	}
	if err := l.Release(); err != nil {
		return fmt.Errorf("release: %w", err)
	}
	fmt.Printf("lock released: %s\n", lockID)
	return nil
}
