package parser

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/runningman84/truenas-status/pkg/models"
	"github.com/runningman84/truenas-status/pkg/units"
)

// PoolJSON represents a pool as returned by the pool endpoint
type PoolJSON struct {
	ID             interface{}   `json:"id"`
	Name           string        `json:"name"`
	GUID           interface{}   `json:"guid"`
	Status         string        `json:"status"`
	Healthy        bool          `json:"healthy"`
	Size           interface{}   `json:"size"`
	Allocated      interface{}   `json:"allocated"`
	Free           interface{}   `json:"free"`
	Fragmentation  interface{}   `json:"fragmentation"`
	SelfHealed     interface{}   `json:"self_healed"`
	ReadErrors     interface{}   `json:"read_errors"`
	WriteErrors    interface{}   `json:"write_errors"`
	ChecksumErrors interface{}   `json:"checksum_errors"`
	Autotrim       PropertyJSON  `json:"autotrim"`
	Scan           *PoolScanJSON `json:"scan,omitempty"`
	Topology       *TopologyJSON `json:"topology,omitempty"`
}

// PoolScanJSON represents the scrub/resilver information of a pool
type PoolScanJSON struct {
	Function   string      `json:"function"` // "SCRUB" or "RESILVER"
	State      string      `json:"state"`    // "SCANNING", "FINISHED", "CANCELED"
	Percentage interface{} `json:"percentage"`
	Errors     interface{} `json:"errors"`
}

// TopologyJSON represents how the devices of a pool are arranged
type TopologyJSON struct {
	Data    []VdevJSON `json:"data"`
	Log     []VdevJSON `json:"log"`
	Cache   []VdevJSON `json:"cache"`
	Spare   []VdevJSON `json:"spare"`
	Special []VdevJSON `json:"special"`
	Dedup   []VdevJSON `json:"dedup"`
}

// VdevJSON represents a vdev in the pool topology
type VdevJSON struct {
	Name     string         `json:"name"`
	Type     string         `json:"type"`
	Status   string         `json:"status"`
	Disk     string         `json:"disk"`
	Stats    *VdevStatsJSON `json:"stats,omitempty"`
	Children []VdevJSON     `json:"children,omitempty"`
}

// VdevStatsJSON represents the space and error statistics of a vdev
type VdevStatsJSON struct {
	Size           interface{} `json:"size"`
	Allocated      interface{} `json:"allocated"`
	ReadErrors     interface{} `json:"read_errors"`
	WriteErrors    interface{} `json:"write_errors"`
	ChecksumErrors interface{} `json:"checksum_errors"`
}

// DiskJSON represents a disk as returned by the disk endpoint
type DiskJSON struct {
	Name        interface{} `json:"name"`
	Serial      interface{} `json:"serial"`
	Type        interface{} `json:"type"`
	Model       interface{} `json:"model"`
	Description interface{} `json:"description"`
	Size        interface{} `json:"size"`
	Pool        interface{} `json:"pool"`
	Temperature interface{} `json:"temperature"`
	Smart       interface{} `json:"smart"`
	ToggleSmart interface{} `json:"togglesmart"`
	SmartStatus interface{} `json:"smart_status"`
}

// DatasetJSON represents a dataset as returned by the pool/dataset endpoint
type DatasetJSON struct {
	ID            interface{}  `json:"id"`
	Name          interface{}  `json:"name"`
	Pool          interface{}  `json:"pool"`
	Type          interface{}  `json:"type"`
	Mountpoint    interface{}  `json:"mountpoint"`
	Used          PropertyJSON `json:"used"`
	Available     PropertyJSON `json:"available"`
	Quota         PropertyJSON `json:"quota"`
	Refquota      PropertyJSON `json:"refquota"`
	Compression   PropertyJSON `json:"compression"`
	Compressratio PropertyJSON `json:"compressratio"`
	Sync          PropertyJSON `json:"sync"`
	Dedup         PropertyJSON `json:"dedup"`
	Deduplication PropertyJSON `json:"deduplication"`
	Atime         PropertyJSON `json:"atime"`
	Recordsize    PropertyJSON `json:"recordsize"`
	Refrecordsize PropertyJSON `json:"refrecordsize"`
	Readonly      PropertyJSON `json:"readonly"`
}

// PropertyJSON represents a ZFS property value. The appliance sends either an
// object like {"value": "10G", "rawvalue": "10737418240", "parsed": 10737418240}
// or a bare scalar.
type PropertyJSON struct {
	Value    interface{} `json:"value"`
	Rawvalue interface{} `json:"rawvalue"`
	Parsed   interface{} `json:"parsed"`
	Bytes    interface{} `json:"bytes"`
}

// UnmarshalJSON accepts both the object and the scalar property shapes
func (p *PropertyJSON) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		type propertyAlias PropertyJSON
		var alias propertyAlias
		if err := json.Unmarshal(trimmed, &alias); err != nil {
			return err
		}
		*p = PropertyJSON(alias)
		return nil
	}

	var scalar interface{}
	if err := json.Unmarshal(trimmed, &scalar); err != nil {
		return err
	}
	*p = PropertyJSON{Value: scalar, Parsed: scalar}
	return nil
}

// Int64 returns the property as a byte count, trying the parsed, raw and
// humanized values in that order
func (p PropertyJSON) Int64() *int64 {
	if v, ok := toInt64(p.Bytes); ok {
		return &v
	}
	if v, ok := toInt64(p.Parsed); ok {
		return &v
	}
	if raw := strings.TrimSpace(toString(p.Rawvalue)); raw != "" {
		if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return &v
		}
	}
	if s, ok := p.Value.(string); ok && s != "" {
		if v := units.ParseSize(s); v != 0 || strings.HasPrefix(strings.TrimSpace(s), "0") {
			return &v
		}
	}
	if v, ok := toInt64(p.Value); ok {
		return &v
	}
	return nil
}

// String returns the display value of the property
func (p PropertyJSON) String() string {
	if s := toString(p.Value); s != "" {
		return s
	}
	if s := toString(p.Parsed); s != "" {
		return s
	}
	return toString(p.Rawvalue)
}

// IsOn returns true for "on"-style property values
func (p PropertyJSON) IsOn() bool {
	if b, ok := p.Parsed.(bool); ok {
		return b
	}
	return toBool(p.Value)
}

// AlertJSON represents an alert as returned by the alert/list endpoint
type AlertJSON struct {
	ID        interface{} `json:"id"`
	UUID      interface{} `json:"uuid"`
	Level     interface{} `json:"level"`
	Klass     interface{} `json:"klass"`
	Formatted interface{} `json:"formatted"`
	Title     interface{} `json:"title"`
	Message   interface{} `json:"message"`
	Datetime  interface{} `json:"datetime"`
	Dismissed interface{} `json:"dismissed"`
	Source    interface{} `json:"source"`
}

// SystemInfoJSON represents the response of the system/info endpoint
type SystemInfoJSON struct {
	Hostname      interface{} `json:"hostname"`
	Version       interface{} `json:"version"`
	Buildtime     interface{} `json:"buildtime"`
	Datetime      interface{} `json:"datetime"`
	UptimeSeconds interface{} `json:"uptime_seconds"`
	License       interface{} `json:"license"`
	Physmem       interface{} `json:"physmem"`
}

// ParsePoolsJSON parses the pool endpoint output
func ParsePoolsJSON(data []byte) ([]PoolJSON, error) {
	var pools []PoolJSON
	if err := json.Unmarshal(data, &pools); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	return pools, nil
}

// ParseDisksJSON parses the disk endpoint output into disk records.
// Disks that are not assigned to a pool are omitted.
func ParseDisksJSON(data []byte) ([]models.DiskRecord, error) {
	var raw []DiskJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	disks := make([]models.DiskRecord, 0, len(raw))
	for _, d := range raw {
		pool := toString(d.Pool)
		if pool == "" {
			continue
		}

		smartEnabled := d.Smart
		if smartEnabled == nil {
			smartEnabled = d.ToggleSmart
		}

		disks = append(disks, models.DiskRecord{
			Name:               toString(d.Name),
			Serial:             toString(d.Serial),
			Type:               toString(d.Type),
			Model:              toString(d.Model),
			Description:        toString(d.Description),
			Pool:               pool,
			SizeBytes:          int64Ptr(d.Size),
			TemperatureCelsius: float64Ptr(d.Temperature),
			SmartEnabled:       toBool(smartEnabled),
			SmartPassed:        SmartPassed(d.SmartStatus),
		})
	}
	return disks, nil
}

// SmartPassed maps the SMART status of a disk to a boolean.
// Only {"passed": true} (or the legacy "PASSED" string) counts as passed.
func SmartPassed(status interface{}) bool {
	switch s := status.(type) {
	case map[string]interface{}:
		passed, ok := s["passed"].(bool)
		return ok && passed
	case string:
		return strings.EqualFold(s, "PASSED")
	default:
		return false
	}
}

// ParseDatasetsJSON parses the pool/dataset endpoint output into dataset records
func ParseDatasetsJSON(data []byte) ([]models.DatasetRecord, error) {
	var raw []DatasetJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	datasets := make([]models.DatasetRecord, 0, len(raw))
	for _, ds := range raw {
		name := firstNonEmpty(toString(ds.ID), toString(ds.Name))

		// 0 means no quota
		var quota *int64
		if q := ds.Quota.Int64(); q != nil && *q > 0 {
			quota = q
		} else if q := ds.Refquota.Int64(); q != nil && *q > 0 {
			quota = q
		}

		dedup := ds.Dedup.String()
		if dedup == "" {
			dedup = ds.Deduplication.String()
		}
		recordSize := ds.Refrecordsize.String()
		if recordSize == "" {
			recordSize = ds.Recordsize.String()
		}

		poolName := toString(ds.Pool)
		if poolName == "" {
			poolName = strings.SplitN(name, "/", 2)[0]
		}

		datasets = append(datasets, models.DatasetRecord{
			Name:             name,
			PoolName:         poolName,
			Mountpoint:       toString(ds.Mountpoint),
			UsedBytes:        ds.Used.Int64(),
			AvailableBytes:   ds.Available.Int64(),
			QuotaBytes:       quota,
			Compression:      ds.Compression.String(),
			CompressionRatio: ds.Compressratio.String(),
			Sync:             ds.Sync.String(),
			Deduplication:    dedup,
			Atime:            ds.Atime.String(),
			RecordSize:       recordSize,
			Readonly:         ds.Readonly.IsOn(),
		})
	}
	return datasets, nil
}

// ParseAlertsJSON parses the alert/list endpoint output into alert records
func ParseAlertsJSON(data []byte) ([]models.AlertRecord, error) {
	var raw []AlertJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	alerts := make([]models.AlertRecord, 0, len(raw))
	for _, a := range raw {
		id := toString(a.ID)
		if id == "" {
			id = toString(a.UUID)
		}
		klass := toString(a.Klass)
		level := firstNonEmpty(toString(a.Level), klass)

		alerts = append(alerts, models.AlertRecord{
			ID:          id,
			Level:       strings.ToUpper(level),
			Klass:       klass,
			Description: firstNonEmpty(toString(a.Formatted), toString(a.Title), toString(a.Message), units.NotAvailable),
			Timestamp:   units.ParseApplianceTimePtr(a.Datetime),
			Dismissed:   toBool(a.Dismissed),
			Source:      toString(a.Source),
		})
	}
	return alerts, nil
}

// ParseSystemInfoJSON parses the system/info endpoint output
func ParseSystemInfoJSON(data []byte) (models.SystemInfo, error) {
	var raw SystemInfoJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return models.SystemInfo{}, fmt.Errorf("failed to parse JSON: %w", err)
	}

	info := models.SystemInfo{
		Hostname:      toString(raw.Hostname),
		Version:       toString(raw.Version),
		BuildTime:     units.ParseApplianceTimePtr(raw.Buildtime),
		SystemTime:    units.ParseApplianceTimePtr(raw.Datetime),
		UptimeSeconds: float64Ptr(raw.UptimeSeconds),
	}

	switch l := raw.License.(type) {
	case map[string]interface{}:
		info.License = toString(l["model"])
	case string:
		info.License = l
	}

	if physmem, ok := toFloat64(raw.Physmem); ok && physmem > 0 {
		gb := units.BytesToGB(physmem)
		info.PhysMemGB = &gb
	}

	return info, nil
}

// ParseAvailableSpace parses a bare numeric byte count (number or numeric string)
func ParseAvailableSpace(data []byte) (float64, error) {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return 0, fmt.Errorf("invalid response %q: %w", truncate(string(data), 64), err)
	}
	value, ok := toFloat64(raw)
	if !ok {
		return 0, fmt.Errorf("response is not a number: %s", truncate(string(data), 64))
	}
	return value, nil
}

// ParseKubernetesAvailableSpace extracts the app space from the kubernetes/config output
func ParseKubernetesAvailableSpace(data []byte) (float64, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return 0, fmt.Errorf("failed to parse JSON: %w", err)
	}
	value, ok := toFloat64(raw["available_space_for_apps_bytes"])
	if !ok {
		if pool := toString(raw["pool"]); pool != "" {
			return 0, fmt.Errorf("no available space reported (apps pool is %s)", pool)
		}
		return 0, fmt.Errorf("no available space reported")
	}
	return value, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
