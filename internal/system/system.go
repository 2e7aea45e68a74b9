package system

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
	"github.com/sirupsen/logrus"
)

// InputExtensions are the file types accepted as a page source.
var InputExtensions = []string{".pdf", ".jpg", ".jpeg", ".png", ".webp"}

func InitResourceLimits(log logrus.FieldLogger) {
	var rLimit syscall.Rlimit
	err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		log.Warnf("[!] Не удалось получить лимит файлов: %v", err)
		return
	}

	rLimit.Cur = 2048
	if rLimit.Cur > rLimit.Max {
		rLimit.Cur = rLimit.Max
	}

	err = syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		log.Warnf("[!] Не удалось установить лимит файлов: %v", err)
	} else {
		log.Debugf("[*] Системный лимит открытых файлов увеличен до %d", rLimit.Cur)
	}
}

// DefaultWorkers returns the number of physical cores, falling back to the
// logical CPU count when gopsutil cannot tell.
func DefaultWorkers() int {
	n, err := cpu.Counts(false)
	if err != nil || n < 1 {
		return runtime.NumCPU()
	}
	return n
}

// MemoryStats is a snapshot of host and process memory.
type MemoryStats struct {
	ProcessRSS  uint64
	HostUsed    uint64
	HostTotal   uint64
	UsedPercent float64
}

func (m MemoryStats) String() string {
	return fmt.Sprintf("RSS %.1f MiB | host %.1f/%.1f GiB (%.0f%%)",
		float64(m.ProcessRSS)/(1<<20),
		float64(m.HostUsed)/(1<<30),
		float64(m.HostTotal)/(1<<30),
		m.UsedPercent)
}

// ReadMemoryStats collects memory figures for the performance report.
func ReadMemoryStats() (MemoryStats, error) {
	var stats MemoryStats

	vm, err := mem.VirtualMemory()
	if err != nil {
		return stats, fmt.Errorf("virtual memory: %w", err)
	}
	stats.HostUsed = vm.Used
	stats.HostTotal = vm.Total
	stats.UsedPercent = vm.UsedPercent

	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return stats, fmt.Errorf("process: %w", err)
	}
	info, err := proc.MemoryInfo()
	if err != nil {
		return stats, fmt.Errorf("process memory: %w", err)
	}
	stats.ProcessRSS = info.RSS
	return stats, nil
}

// IsInputFile reports whether the path has one of InputExtensions.
func IsInputFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range InputExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// FindLatestInput returns the most recently modified page source in dir.
func FindLatestInput(dir string) (string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	var latestFile string
	var latestTime time.Time

	for _, f := range files {
		if f.IsDir() || !IsInputFile(f.Name()) {
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(latestTime) {
			latestTime = info.ModTime()
			latestFile = filepath.Join(dir, f.Name())
		}
	}

	if latestFile == "" {
		return "", fmt.Errorf("в папке %s не найдено страниц (pdf, jpg, png, webp)", dir)
	}

	return latestFile, nil
}
