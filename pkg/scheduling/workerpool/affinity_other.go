//go:build !linux

package workerpool

// pinToCPU is a no-op where thread affinity is not supported; the worker is
// still locked to its OS thread.
func pinToCPU(int) error {
	return nil
}
