//go:build linux

package workerpool

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// pinToCPU binds the calling OS thread to one CPU.
func pinToCPU(workerID int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(workerID % runtime.NumCPU())
	return unix.SchedSetaffinity(0, &set)
}
