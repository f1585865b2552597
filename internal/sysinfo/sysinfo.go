// Package sysinfo captures a point-in-time host resource snapshot for audit
// reports. Collection is best effort: a failed reading leaves its field zero
// rather than failing the caller.
package sysinfo

import (
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
	gopsnet "github.com/shirou/gopsutil/v4/net"
)

// Snapshot holds host resource usage at one instant.
type Snapshot struct {
	MemoryUsedPercent float64 `json:"memory_used_percent"`
	DiskUsedPercent   float64 `json:"disk_used_percent"`
	CPUPercent        float64 `json:"cpu_percent"`
	Load1             float64 `json:"load1"`
	Load5             float64 `json:"load5"`
	Load15            float64 `json:"load15"`
	Connections       int     `json:"connections"`
}

// Collect gathers the snapshot.
func Collect() Snapshot {
	var snap Snapshot

	if vm, err := mem.VirtualMemory(); err == nil {
		snap.MemoryUsedPercent = vm.UsedPercent
	}
	if du, err := disk.Usage("/"); err == nil {
		snap.DiskUsedPercent = du.UsedPercent
	}
	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		snap.CPUPercent = percents[0]
	}
	if avg, err := load.Avg(); err == nil {
		snap.Load1, snap.Load5, snap.Load15 = avg.Load1, avg.Load5, avg.Load15
	}
	if conns, err := gopsnet.Connections("all"); err == nil {
		snap.Connections = len(conns)
	}

	return snap
}
