package metrics

import (
	"fmt"
	"os"
	"runtime"
)

// SysHealth represents real-time process and storage metrics.
type SysHealth struct {
	AllocMB      uint64
	TotalAllocMB uint64
	SysMB        uint64
	NumGC        uint32
	Goroutines   int
	DatabaseSize string
	CatalogSize  string
}

// GetSysHealth collects health data for the admin report: runtime memory
// stats plus the on-disk size of the sqlite database and the credit
// catalog document.
func GetSysHealth(dbPath, catalogPath string) SysHealth {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return SysHealth{
		AllocMB:      m.Alloc / 1024 / 1024,
		TotalAllocMB: m.TotalAlloc / 1024 / 1024,
		SysMB:        m.Sys / 1024 / 1024,
		NumGC:        m.NumGC,
		Goroutines:   runtime.NumGoroutine(),
		DatabaseSize: fileSize(dbPath),
		CatalogSize:  fileSize(catalogPath),
	}
}

func fileSize(path string) string {
	info, err := os.Stat(path)
	if err != nil {
		return "n/a"
	}
	size := info.Size()

	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
