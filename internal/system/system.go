// Package system wraps host facts: file limits, encoder detection, resource
// usage and output file naming.
package system

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// InitResourceLimits raises the open file limit. Every video handle holds
// an ffmpeg pipe.
func InitResourceLimits() {
	var rLimit syscall.Rlimit
	err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		log.Printf("[!] Could not read the open file limit: %v", err)
		return
	}

	rLimit.Cur = 2048
	if rLimit.Cur > rLimit.Max {
		rLimit.Cur = rLimit.Max
	}

	err = syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		log.Printf("[!] Could not raise the open file limit: %v", err)
	} else {
		fmt.Printf("[*] Open file limit raised to %d\n", rLimit.Cur)
	}
}

// hardwareEncoders in order of preference.
var hardwareEncoders = []string{"h264_videotoolbox", "h264_nvenc"}

// GetBestH264Encoder asks ffmpeg for its encoders and returns the first
// hardware H.264 encoder found, or libx264.
func GetBestH264Encoder(ffmpeg string) string {
	out, err := exec.Command(ffmpeg, "-hide_banner", "-encoders").CombinedOutput()
	if err != nil {
		return "libx264"
	}
	return pickEncoder(string(out))
}

func pickEncoder(listing string) string {
	for _, name := range hardwareEncoders {
		if strings.Contains(listing, name) {
			return name
		}
	}
	return "libx264"
}

// HostStats is a point-in-time view of the machine and this process.
type HostStats struct {
	CPUs         int
	CPUPercent   float64
	MemTotalMB   uint64
	MemUsedPct   float64
	ProcessRSSMB uint64
}

// ReadHostStats samples the host. Fields that cannot be read stay zero.
func ReadHostStats() HostStats {
	var s HostStats
	if n, err := cpu.Counts(true); err == nil {
		s.CPUs = n
	}
	if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
		s.CPUPercent = pct[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		s.MemTotalMB = vm.Total / (1 << 20)
		s.MemUsedPct = vm.UsedPercent
	}
	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if mi, err := p.MemoryInfo(); err == nil {
			s.ProcessRSSMB = mi.RSS / (1 << 20)
		}
	}
	return s
}

func (s HostStats) String() string {
	return fmt.Sprintf("CPUs: %d (%.1f%% busy) | RAM: %d MB (%.1f%% used) | RSS: %d MB",
		s.CPUs, s.CPUPercent, s.MemTotalMB, s.MemUsedPct, s.ProcessRSSMB)
}

// TimestampedPath returns dir/prefix_<timestamp>ext.
func TimestampedPath(dir, prefix, ext string) string {
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	return filepath.Join(dir, fmt.Sprintf("%s_%s%s", prefix, timestamp, ext))
}

// FindLatest returns the most recently modified file in dir with one of
// the given extensions.
func FindLatest(dir string, exts ...string) (string, error) {
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
		return "", fmt.Errorf("no %s files in %s", strings.Join(exts, "/"), dir)
	}
	return latestFile, nil
}

func hasExt(name string, exts []string) bool {
	lower := strings.ToLower(name)
	for _, ext := range exts {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
