// Package orchestrator drives one full trading cycle through the priority
// pyramid of spec.md §4.11: market hours, health, exits, reconciliation,
// pending orders, signal scanning, and admission — in that order, every
// tick.
//
// lock.go implements the cross-process single-instance file lock, grounded
// on original_source/core/utils/lock.py's CrossPlatformLock.
package orchestrator

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"golang.org/x/sys/unix"
)

// DefaultLockPath is where the engine's single-instance lock lives.
const DefaultLockPath = "data/run.lock"

// DefaultStaleMinutes is how old a lock file's mtime must be before a new
// process treats it as abandoned and steals it.
const DefaultStaleMinutes = 10

// ErrLockHeld is returned by Acquire when another live process holds the
// lock.
var ErrLockHeld = fmt.Errorf("orchestrator: lock held by another process")

// FileLock is a cross-process single-instance lock backed by flock(2) on a
// regular file, with PID recording and mtime-based staleness recovery —
// the closest Go/Unix equivalent of the Python original's msvcrt/fcntl
// dual-path CrossPlatformLock (this port only needs the Unix path).
type FileLock struct {
	path         string
	staleAfter   time.Duration
	file         *os.File
}

// NewFileLock creates a FileLock at path. staleAfter<=0 falls back to
// DefaultStaleMinutes.
func NewFileLock(path string, staleAfter time.Duration) *FileLock {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleMinutes * time.Minute
	}
	return &FileLock{path: path, staleAfter: staleAfter}
}

// Acquire takes the lock, stealing a stale lock file (mtime older than
// staleAfter) left behind by a crashed process. Returns ErrLockHeld if a
// live process currently holds it.
func (l *FileLock) Acquire() error {
	if err := l.removeIfStale(); err != nil {
		return err
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("orchestrator: open lock file: %w", err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if err == unix.EWOULDBLOCK {
			return ErrLockHeld
		}
		return fmt.Errorf("orchestrator: flock: %w", err)
	}

	if err := f.Truncate(0); err != nil {
		unix.Flock(int(f.Fd()), unix.LOCK_UN)
		f.Close()
		return fmt.Errorf("orchestrator: truncate lock file: %w", err)
	}
	if _, err := f.WriteAt([]byte(strconv.Itoa(os.Getpid())), 0); err != nil {
		unix.Flock(int(f.Fd()), unix.LOCK_UN)
		f.Close()
		return fmt.Errorf("orchestrator: write pid: %w", err)
	}

	l.file = f
	return nil
}

// Release unlocks and removes the lock file.
func (l *FileLock) Release() error {
	if l.file == nil {
		return nil
	}
	unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	l.file.Close()
	l.file = nil
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("orchestrator: remove lock file: %w", err)
	}
	return nil
}

// removeIfStale deletes l.path if it exists and its mtime is older than
// staleAfter, so a crashed process's abandoned lock doesn't deadlock the
// engine forever.
func (l *FileLock) removeIfStale() error {
	info, err := os.Stat(l.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("orchestrator: stat lock file: %w", err)
	}
	if time.Since(info.ModTime()) > l.staleAfter {
		if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("orchestrator: remove stale lock file: %w", err)
		}
	}
	return nil
}
