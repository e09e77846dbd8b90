// internal/schedule/probe.go
package schedule

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
)

// ResourceSnapshot is one observation of host resource pressure.
type ResourceSnapshot struct {
	// MemoryUtilization is used memory as a fraction of total, 0..1.
	MemoryUtilization float64

	// Load1 is the 1-minute load average.
	Load1 float64

	// Cores is the logical CPU count Load1 is compared against.
	Cores int
}

// ResourceProbe reports host resource pressure to the governor.
type ResourceProbe interface {
	Snapshot() (ResourceSnapshot, error)
}

// ProcProbe reads memory and load figures from the /proc filesystem.
type ProcProbe struct {
	meminfoPath string
	loadavgPath string
}

// NewProcProbe builds the default /proc-backed probe.
func NewProcProbe() *ProcProbe {
	return &ProcProbe{
		meminfoPath: "/proc/meminfo",
		loadavgPath: "/proc/loadavg",
	}
}

// Snapshot reads current memory utilization and load average.
func (p *ProcProbe) Snapshot() (ResourceSnapshot, error) {
	snap := ResourceSnapshot{Cores: runtime.NumCPU()}

	memTotal, memAvailable, err := p.readMeminfo()
	if err != nil {
		return snap, err
	}
	if memTotal > 0 {
		snap.MemoryUtilization = 1 - float64(memAvailable)/float64(memTotal)
	}

	load1, err := p.readLoadavg()
	if err != nil {
		return snap, err
	}
	snap.Load1 = load1

	return snap, nil
}

func (p *ProcProbe) readMeminfo() (total, available uint64, err error) {
	data, err := os.ReadFile(p.meminfoPath)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read meminfo: %w", err)
	}

	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		switch fields[0] {
		case "MemTotal:":
			total, _ = strconv.ParseUint(fields[1], 10, 64)
		case "MemAvailable:":
			available, _ = strconv.ParseUint(fields[1], 10, 64)
		}
	}
	if total == 0 {
		return 0, 0, fmt.Errorf("meminfo missing MemTotal")
	}
	return total, available, nil
}

func (p *ProcProbe) readLoadavg() (float64, error) {
	data, err := os.ReadFile(p.loadavgPath)
	if err != nil {
		return 0, fmt.Errorf("failed to read loadavg: %w", err)
	}
	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return 0, fmt.Errorf("loadavg is empty")
	}
	load1, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse load average: %w", err)
	}
	return load1, nil
}
