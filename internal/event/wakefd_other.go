//go:build !linux

package event

// WakeFD is unavailable outside Linux; callers must drive the
// dispatcher with Run instead.
func (d *Dispatcher) WakeFD() (fd int, ok bool) { return 0, false }

func bumpWakeFD() {}
