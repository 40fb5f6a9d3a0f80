//go:build !windows

package decoder

import "syscall"

// terminateSignal is the graceful-shutdown signal sent before the kill
// grace period elapses.
var terminateSignal = syscall.SIGTERM
