// Package lock provides the mutex types used to serialize operations on a
// single clone directory while leaving distinct clones free to run
// concurrently.
package lock

import (
	"github.com/sasha-s/go-deadlock"
)

// RWMutex is a drop-in replacement for sync.RWMutex which also detects
// lock-ordering cycles. It is used to guard the git invocations on each
// clone directory, so that a bug that takes two locks in inconsistent order
// is caught as a deadlock report instead of hanging the process.
type RWMutex = deadlock.RWMutex

// Mutex is the non-RW variant, used where only exclusive access is needed.
type Mutex = deadlock.Mutex
