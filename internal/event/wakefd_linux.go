//go:build linux

package event

import (
	"encoding/binary"
	"sync"

	"golang.org/x/sys/unix"
)

// wakeFD is an eventfd(2) counter bumped every time an event is pushed
// and after each hook turn while events remain queued. A single counter
// is shared by every Dispatcher in the process. It lets an external host
// fold the dispatcher into
// its own epoll/poll loop instead of dedicating a goroutine to Run —
// the same role the original engine's spa_system_eventfd_create wake
// source plays against PipeWire's GSource-based main loop.
type wakeFD struct {
	mu sync.Mutex
	fd int
	ok bool
}

var globalWakeFD wakeFD

// WakeFD returns the process-wide wake eventfd (the same one for every
// Dispatcher), creating it on first use. ok
// is false if eventfd(2) creation failed (unsupported kernel, fd
// exhaustion); callers should fall back to Run in that case.
func (d *Dispatcher) WakeFD() (fd int, ok bool) {
	globalWakeFD.mu.Lock()
	defer globalWakeFD.mu.Unlock()
	if !globalWakeFD.ok {
		f, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
		if err != nil {
			return 0, false
		}
		globalWakeFD.fd = f
		globalWakeFD.ok = true
	}
	return globalWakeFD.fd, true
}

// bumpWakeFD writes to the eventfd counter; a non-blocking write that
// fails because the counter is saturated is not an error, the reader
// only needs to observe "at least one wakeup happened".
func bumpWakeFD() {
	globalWakeFD.mu.Lock()
	fd, ok := globalWakeFD.fd, globalWakeFD.ok
	globalWakeFD.mu.Unlock()
	if !ok {
		return
	}
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], 1)
	_, _ = unix.Write(fd, buf[:])
}
