package backend

import (
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
)

// cpuBudget describes the CPUs a pool may size itself to.
type cpuBudget struct {
	available int // usable by this process: affinity mask and GOMAXPROCS
	logical   int // machine-wide logical CPUs, 0 if unknown
	physical  int // machine-wide physical cores, 0 if unknown
}

func detectCPUs() cpuBudget {
	b := cpuBudget{available: availableCPUs()}
	if n, err := cpu.Counts(true); err == nil {
		b.logical = n
	}
	if n, err := cpu.Counts(false); err == nil {
		b.physical = n
	}
	return b
}

// availableCPUs returns the number of CPUs this process may run on. Since
// Go 1.25 GOMAXPROCS also follows the cgroup CPU limit, so a container
// quota lowers it as well.
func availableCPUs() int {
	return max(1, min(runtime.NumCPU(), runtime.GOMAXPROCS(0)))
}

// oversubscribed reports whether workers exceeds the machine's logical CPUs.
// An unknown CPU count never oversubscribes.
func (b cpuBudget) oversubscribed(workers int) bool {
	return b.logical > 0 && workers > b.logical
}
