//go:build nogpu

package capability

// gpuAvailable always reports false on nogpu builds.
func gpuAvailable() bool { return false }
