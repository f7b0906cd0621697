package metrics

import (
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/runningman84/truenas-status/pkg/models"
	"k8s.io/klog/v2"
)

const namespace = "truenas"

// Registry holds the gauges describing one snapshot
type Registry struct {
	registry *prometheus.Registry

	Up                 prometheus.Gauge
	PoolSize           *prometheus.GaugeVec
	PoolAllocated      *prometheus.GaugeVec
	PoolAvailable      *prometheus.GaugeVec
	PoolUsedPercent    *prometheus.GaugeVec
	PoolErrors         *prometheus.GaugeVec
	PoolOnline         *prometheus.GaugeVec
	PoolResilvering    *prometheus.GaugeVec
	DiskTemperature    *prometheus.GaugeVec
	DiskSmartPassed    *prometheus.GaugeVec
	DatasetUsed        *prometheus.GaugeVec
	ActiveAlerts       *prometheus.GaugeVec
	AppAvailableGB     prometheus.Gauge
	CollectionWarnings prometheus.Gauge
}

// NewRegistry creates the gauges on a private registry
func NewRegistry() *Registry {
	r := &Registry{registry: prometheus.NewRegistry()}
	r.Up = prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "up", Help: "1 when system information could be read"})
	r.PoolSize = prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: namespace, Name: "pool_size_bytes", Help: "Pool capacity in bytes"}, []string{"pool"})
	r.PoolAllocated = prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: namespace, Name: "pool_allocated_bytes", Help: "Pool allocated bytes"}, []string{"pool"})
	r.PoolAvailable = prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: namespace, Name: "pool_available_bytes", Help: "Pool available bytes"}, []string{"pool"})
	r.PoolUsedPercent = prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: namespace, Name: "pool_used_percent", Help: "Pool usage in percent"}, []string{"pool"})
	r.PoolErrors = prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: namespace, Name: "pool_errors", Help: "Pool error counters by type"}, []string{"pool", "type"})
	r.PoolOnline = prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: namespace, Name: "pool_online", Help: "1 when the pool status is ONLINE"}, []string{"pool", "status"})
	r.PoolResilvering = prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: namespace, Name: "pool_resilver_active", Help: "1 while a resilver is running"}, []string{"pool"})
	r.DiskTemperature = prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: namespace, Name: "disk_temperature_celsius", Help: "Disk temperature"}, []string{"pool", "disk", "serial"})
	r.DiskSmartPassed = prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: namespace, Name: "disk_smart_passed", Help: "1 when the last SMART test passed"}, []string{"pool", "disk", "serial"})
	r.DatasetUsed = prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: namespace, Name: "dataset_used_bytes", Help: "Dataset used bytes"}, []string{"pool", "dataset"})
	r.ActiveAlerts = prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: namespace, Name: "active_alerts", Help: "Active alerts by level"}, []string{"level"})
	r.AppAvailableGB = prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "app_available_space_gigabytes", Help: "Space available for applications"})
	r.CollectionWarnings = prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "collection_warnings", Help: "Requests that failed during collection"})

	r.registry.MustRegister(
		r.Up, r.PoolSize, r.PoolAllocated, r.PoolAvailable, r.PoolUsedPercent, r.PoolErrors,
		r.PoolOnline, r.PoolResilvering, r.DiskTemperature, r.DiskSmartPassed, r.DatasetUsed,
		r.ActiveAlerts, r.AppAvailableGB, r.CollectionWarnings,
	)
	return r
}

// Gatherer exposes the underlying registry
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Observe sets the gauges from a snapshot. Absent values are not exported.
func (r *Registry) Observe(snap *models.Snapshot) {
	if snap.SystemInfo.Error == "" {
		r.Up.Set(1)
	} else {
		r.Up.Set(0)
	}

	for i := range snap.Pools {
		pool := &snap.Pools[i]
		if pool.SizeBytes != nil {
			r.PoolSize.WithLabelValues(pool.Name).Set(float64(*pool.SizeBytes))
		}
		if pool.AllocatedBytes != nil {
			r.PoolAllocated.WithLabelValues(pool.Name).Set(float64(*pool.AllocatedBytes))
		}
		if pool.AvailableBytes != nil {
			r.PoolAvailable.WithLabelValues(pool.Name).Set(float64(*pool.AvailableBytes))
		}
		if pool.UsedPercent != nil {
			r.PoolUsedPercent.WithLabelValues(pool.Name).Set(*pool.UsedPercent)
		}

		r.PoolErrors.WithLabelValues(pool.Name, "read").Set(float64(pool.ReadErrors))
		r.PoolErrors.WithLabelValues(pool.Name, "write").Set(float64(pool.WriteErrors))
		r.PoolErrors.WithLabelValues(pool.Name, "checksum").Set(float64(pool.ChecksumErrors))
		r.PoolOnline.WithLabelValues(pool.Name, pool.Status).Set(boolValue(pool.Status == "ONLINE"))
		r.PoolResilvering.WithLabelValues(pool.Name).Set(boolValue(pool.Resilvering.Active))

		for _, disk := range pool.Disks {
			if disk.TemperatureCelsius != nil {
				r.DiskTemperature.WithLabelValues(pool.Name, disk.Name, disk.Serial).Set(*disk.TemperatureCelsius)
			}
			r.DiskSmartPassed.WithLabelValues(pool.Name, disk.Name, disk.Serial).Set(boolValue(disk.SmartPassed))
		}
	}

	for _, ds := range snap.Datasets {
		if ds.UsedBytes != nil {
			r.DatasetUsed.WithLabelValues(ds.PoolName, ds.Name).Set(float64(*ds.UsedBytes))
		}
	}

	levels := map[string]int{}
	for _, alert := range snap.Alerts {
		if alert.Dismissed {
			continue
		}
		level := strings.ToUpper(alert.Level)
		if level == "" {
			level = "UNKNOWN"
		}
		levels[level]++
	}
	for level, count := range levels {
		r.ActiveAlerts.WithLabelValues(level).Set(float64(count))
	}

	if snap.Applications.AvailableSpaceGB != nil {
		r.AppAvailableGB.Set(*snap.Applications.AvailableSpaceGB)
	}
	r.CollectionWarnings.Set(float64(len(snap.Warnings)))
}

// WriteTextfile writes the registry in the text exposition format for the
// node_exporter textfile collector. The file is replaced atomically.
func (r *Registry) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile %s: %w", path, err)
	}
	klog.Infof("Metrics written to %s", path)
	return nil
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
