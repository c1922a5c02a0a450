// Package filelock provides cooperative flock(2) based file locks.
package filelock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"market-ledger/internal/metrics"
)

// ErrLockTimeout is returned when a lock could not be obtained in time
var ErrLockTimeout = errors.New("file lock timeout")

// Mode selects shared or exclusive locking
type Mode int

const (
	Shared Mode = iota
	Exclusive
)

func (m Mode) String() string {
	if m == Exclusive {
		return "exclusive"
	}
	return "shared"
}

func (m Mode) how() int {
	if m == Exclusive {
		return unix.LOCK_EX
	}
	return unix.LOCK_SH
}

// Options controls lock acquisition
type Options struct {
	Timeout      time.Duration
	PollInterval time.Duration
}

// DefaultOptions returns the acquisition settings used when none are configured
func DefaultOptions() Options {
	return Options{Timeout: 5 * time.Second, PollInterval: 25 * time.Millisecond}
}

// Lock is a held advisory lock on an open file
type Lock struct {
	file *os.File
	mode Mode
}

// Acquire takes a lock on f, retrying a non-blocking flock until the timeout
// elapses or ctx is done.
func Acquire(ctx context.Context, f *os.File, mode Mode, opts Options) (*Lock, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultOptions().Timeout
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultOptions().PollInterval
	}

	start := time.Now()
	deadline := start.Add(opts.Timeout)
	for {
		err := unix.Flock(int(f.Fd()), mode.how()|unix.LOCK_NB)
		if err == nil {
			metrics.FileLockWait.WithLabelValues(mode.String()).Observe(time.Since(start).Seconds())
			return &Lock{file: f, mode: mode}, nil
		}
		if !errors.Is(err, unix.EWOULDBLOCK) && !errors.Is(err, unix.EINTR) {
			return nil, fmt.Errorf("failed to lock %s: %w", f.Name(), err)
		}
		if !time.Now().Before(deadline) {
			return nil, fmt.Errorf("%w: %s lock on %s after %s", ErrLockTimeout, mode, f.Name(), opts.Timeout)
		}

		timer := time.NewTimer(opts.PollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// Mode returns the lock mode
func (l *Lock) Mode() Mode {
	return l.mode
}

// Release drops the lock. The file stays open.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	err := unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	l.file = nil
	if err != nil {
		return fmt.Errorf("failed to unlock: %w", err)
	}
	return nil
}
