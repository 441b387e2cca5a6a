package store

import (
	"io/fs"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DiskBytes computes the on-disk size of the store directory. Best-effort:
// unreadable entries are skipped.
func DiskBytes() uint64 {
	if db == nil || dbPath == "" {
		return 0
	}
	var total uint64
	_ = filepath.WalkDir(dbPath, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return nil
		}
		total += uint64(fi.Size())
		return nil
	})
	return total
}

var _ = promauto.NewGaugeFunc(prometheus.GaugeOpts{
	Name: "courier_store_disk_bytes",
	Help: "On-disk size of the message store directory.",
}, func() float64 { return float64(DiskBytes()) })
