//go:build !nogpu

package capability

import (
	"log"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/core"
)

var gpuProbe struct {
	once sync.Once
	ok   bool
}

// gpuAvailable reports whether a GPU adapter can be acquired. The
// answer is memoized: adapter enumeration is expensive and does not
// change within a process lifetime.
func gpuAvailable() bool {
	gpuProbe.once.Do(func() {
		instance := core.NewInstance(&gputypes.InstanceDescriptor{
			Backends: gputypes.BackendsPrimary,
		})

		adapterID, err := instance.RequestAdapter(&gputypes.RequestAdapterOptions{
			PowerPreference: gputypes.PowerPreferenceHighPerformance,
		})
		if err != nil {
			log.Printf("capability: no GPU adapter: %v", err)
			return
		}

		if info, infoErr := core.GetAdapterInfo(adapterID); infoErr == nil {
			log.Printf("capability: GPU adapter: %s (%s)", info.Name, info.Backend)
		}

		if err := core.AdapterDrop(adapterID); err != nil {
			log.Printf("capability: error releasing adapter: %v", err)
		}
		gpuProbe.ok = true
	})
	return gpuProbe.ok
}
