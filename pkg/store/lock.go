package store

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"
)

// taskLock enforces the single-writer-per-task discipline spec.md §4.1/§5
// requires: one writer per task via file lock, many concurrent readers
// permitted. No file-locking library appears anywhere in the retrieved
// corpus (checked across every go.mod/go.sum in the example pack), so this
// is implemented directly over O_CREATE|O_EXCL plus a liveness check on the
// owning PID — the standard dependency-free Go idiom for this problem.
type taskLock struct {
	path string
	mu   sync.Mutex // serializes lock attempts from this process
}

func newTaskLock(path string) *taskLock {
	return &taskLock{path: path}
}

// acquire creates the lock file, reclaiming it if the recorded owner PID is
// no longer alive (a crashed process cannot hold a lock forever). Blocks up
// to timeout, polling at a short interval, then gives up.
func (l *taskLock) acquire(timeout time.Duration) (func(), error) {
	l.mu.Lock()
	deadline := time.Now().Add(timeout)
	for {
		f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			fmt.Fprintf(f, "%d\n%d\n", os.Getpid(), time.Now().UnixNano())
			f.Close()
			release := func() {
				os.Remove(l.path)
				l.mu.Unlock()
			}
			return release, nil
		}
		if !os.IsExist(err) {
			l.mu.Unlock()
			return nil, fmt.Errorf("create lock file %s: %w", l.path, err)
		}
		if l.reclaimIfStale() {
			continue
		}
		if time.Now().After(deadline) {
			l.mu.Unlock()
			return nil, fmt.Errorf("timed out waiting for lock %s", l.path)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// reclaimIfStale removes the lock file if it names a PID that is no longer
// running, and reports whether it did so.
func (l *taskLock) reclaimIfStale() bool {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return false
	}
	lines := strings.SplitN(strings.TrimSpace(string(data)), "\n", 2)
	if len(lines) == 0 {
		return false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(lines[0]))
	if err != nil {
		return false
	}
	if processAlive(pid) {
		return false
	}
	_ = os.Remove(l.path)
	return true
}

// processAlive reports whether a process with the given PID currently
// exists. On Unix, signal 0 performs existence/permission checks without
// delivering a signal.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil
}
