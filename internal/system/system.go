package system

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// DefaultWorkers returns the number of logical cores, as reported by the
// host, for sizing worker pools.
func DefaultWorkers() int {
	n, err := cpu.Counts(true)
	if err != nil || n <= 0 {
		return runtime.NumCPU()
	}
	return n
}

// Host describes the machine composer runs on.
type Host struct {
	LogicalCores  int
	PhysicalCores int
	TotalMemory   uint64
	FreeMemory    uint64
}

// HostSummary collects core counts and memory. Fields the platform cannot
// report are left at zero.
func HostSummary() (Host, error) {
	h := Host{LogicalCores: DefaultWorkers()}

	if n, err := cpu.Counts(false); err == nil {
		h.PhysicalCores = n
	}

	vm, err := mem.VirtualMemory()
	if err != nil {
		return h, fmt.Errorf("failed to read memory stats: %w", err)
	}
	h.TotalMemory = vm.Total
	h.FreeMemory = vm.Available
	return h, nil
}

func (h Host) String() string {
	return fmt.Sprintf("cores: %d logical / %d physical | memory: %s free of %s",
		h.LogicalCores, h.PhysicalCores, FormatBytes(h.FreeMemory), FormatBytes(h.TotalMemory))
}

// FormatBytes renders a byte count with a binary unit.
func FormatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// FindLatestFile returns the most recently modified file in dir whose
// extension matches one of exts (case-insensitive).
func FindLatestFile(dir string, exts ...string) (string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	var latestFile string
	var latestTime time.Time

	for _, f := range files {
		if f.IsDir() || !hasExt(f.Name(), exts) {
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		if latestFile == "" || info.ModTime().After(latestTime) {
			latestTime = info.ModTime()
			latestFile = filepath.Join(dir, f.Name())
		}
	}

	if latestFile == "" {
		return "", fmt.Errorf("no %s files found in %s", strings.Join(exts, "/"), dir)
	}

	return latestFile, nil
}

func hasExt(name string, exts []string) bool {
	lower := strings.ToLower(name)
	for _, ext := range exts {
		if strings.HasSuffix(lower, strings.ToLower(ext)) {
			return true
		}
	}
	return false
}
