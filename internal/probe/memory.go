package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v3/mem"
)

// virtualMemory is swapped out in tests.
var virtualMemory = mem.VirtualMemoryWithContext

// MemoryProber succeeds when the host has at least minAvailableMB of
// available memory. It gates JVM-style applications that size their heap
// at startup.
type MemoryProber struct {
	minAvailableMB uint64
}

func NewMemoryProber(minAvailableMB uint64) *MemoryProber {
	return &MemoryProber{minAvailableMB: minAvailableMB}
}

func (p *MemoryProber) Target() string {
	return fmt.Sprintf("memory>=%dMiB", p.minAvailableMB)
}

func (p *MemoryProber) Probe(ctx context.Context) Result {
	res := newResult(p.Target())

	start := time.Now()
	vm, err := virtualMemory(ctx)
	res.Latency = time.Since(start)
	if err != nil {
		res.Err = fmt.Errorf("failed to read memory stats: %w", err)
		return res
	}

	availableMB := vm.Available / 1024 / 1024
	if availableMB < p.minAvailableMB {
		res.Err = fmt.Errorf("available memory %dMiB below %dMiB", availableMB, p.minAvailableMB)
		return res
	}

	res.OK = true
	return res
}
