package filesystem

import "github.com/tapestry/safefetch/internal/port"

func newDiskUsage(total, free uint64) *port.DiskUsage {
	used := total - free
	var pct float64
	if total > 0 {
		pct = float64(used) / float64(total) * 100
	}
	return &port.DiskUsage{
		Total:   total,
		Used:    used,
		Free:    free,
		UsedPct: pct,
	}
}
