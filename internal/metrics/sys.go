package metrics

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var startedAt = time.Now()

// Health is a point-in-time view of the process and its data directory.
type Health struct {
	HeapMB     uint64
	SysMB      uint64
	GCCycles   uint32
	Goroutines int
	Uptime     time.Duration
	DataBytes  int64
}

// ReadHealth samples the runtime and sums the files under dataDir.
func ReadHealth(dataDir string) Health {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return Health{
		HeapMB:     m.HeapAlloc >> 20,
		SysMB:      m.Sys >> 20,
		GCCycles:   m.NumGC,
		Goroutines: runtime.NumGoroutine(),
		Uptime:     time.Since(startedAt).Round(time.Second),
		DataBytes:  dirBytes(dataDir),
	}
}

func (h Health) DataSize() string { return humanSize(h.DataBytes) }

// TrackDataDir exports the size of dataDir as a gauge sampled on scrape.
func (c *Collector) TrackDataDir(dataDir string) {
	c.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "pantry_data_dir_bytes",
		Help: "Bytes stored under the data directory",
	}, func() float64 { return float64(dirBytes(dataDir)) }))
}

// dirBytes ignores entries it cannot stat; a missing directory is empty.
func dirBytes(root string) int64 {
	var total int64
	_ = filepath.WalkDir(root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			total += info.Size()
		}
		return nil
	})
	return total
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	value, suffix := float64(n)/unit, 0
	for value >= unit && suffix < 5 {
		value /= unit
		suffix++
	}
	return fmt.Sprintf("%.1f %cB", value, "KMGTPE"[suffix])
}
