package models

import "time"

// Snapshot is the full state of the appliance collected in one run
type Snapshot struct {
	Timestamp    time.Time       `json:"timestamp"`
	SystemInfo   SystemInfo      `json:"system_info"`
	Pools        []PoolRecord    `json:"pools"`
	Datasets     []DatasetRecord `json:"datasets"`
	Applications AppSpace        `json:"applications"`
	Alerts       []AlertRecord   `json:"alerts_events"`
	Warnings     []string        `json:"warnings"`
}

// SystemInfo represents general information about the appliance
type SystemInfo struct {
	TrueNASURL    string     `json:"truenas_url"`
	AuthMethod    string     `json:"auth_method"`
	VerifySSL     bool       `json:"verify_ssl"`
	Hostname      string     `json:"hostname,omitempty"`
	Version       string     `json:"version,omitempty"`
	BuildTime     *time.Time `json:"buildtime"`
	SystemTime    *time.Time `json:"system_time_iso"`
	UptimeSeconds *float64   `json:"uptime_seconds"`
	License       string     `json:"license,omitempty"`
	PhysMemGB     *float64   `json:"physmem_gb"`
	Error         string     `json:"error,omitempty"`
}

// PoolRecord represents a storage pool with its disks and datasets
type PoolRecord struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	GUID   string `json:"guid,omitempty"`

	// Space figures are nil when no source reported them
	SizeBytes      *int64   `json:"size_bytes"`
	AllocatedBytes *int64   `json:"allocated_bytes"`
	AvailableBytes *int64   `json:"available_bytes"`
	UsedPercent    *float64 `json:"used_percent"`
	SpaceSource    string   `json:"space_source,omitempty"`

	ReadErrors     int64 `json:"read_errors"`
	WriteErrors    int64 `json:"write_errors"`
	ChecksumErrors int64 `json:"checksum_errors"`

	FragmentationPercent *float64 `json:"fragmentation_percent"`
	SelfHealedBytes      *int64   `json:"self_healed_bytes"`
	Autotrim             string   `json:"autotrim,omitempty"`

	Scan        ScanState     `json:"scan"`
	Resilvering ResilverState `json:"resilvering"`

	Disks    []DiskRecord    `json:"disks"`
	Datasets []DatasetRecord `json:"datasets"`
}

// HasErrors reports whether any error counter is non-zero
func (p *PoolRecord) HasErrors() bool {
	return p.ReadErrors > 0 || p.WriteErrors > 0 || p.ChecksumErrors > 0
}

// HasSpace reports whether the pool carries usable space figures
func (p *PoolRecord) HasSpace() bool {
	return p.SizeBytes != nil && *p.SizeBytes > 0 && p.AvailableBytes != nil && p.UsedPercent != nil
}

// ScanState represents the last or running scrub/resilver of a pool
type ScanState struct {
	Function   string  `json:"function,omitempty"` // "SCRUB" or "RESILVER"
	State      string  `json:"state,omitempty"`    // "SCANNING", "FINISHED", "CANCELED"
	Percentage float64 `json:"percentage"`
	Errors     int64   `json:"errors"`
}

// ResilverState represents resilver progress of a pool
type ResilverState struct {
	Active          bool    `json:"active"`
	ProgressPercent float64 `json:"progress_percent"`
}

// DiskRecord represents a physical disk assigned to a pool
type DiskRecord struct {
	Name               string   `json:"name"`
	Serial             string   `json:"serial"`
	Type               string   `json:"type"`
	Model              string   `json:"model,omitempty"`
	Description        string   `json:"description,omitempty"`
	Pool               string   `json:"pool"`
	SizeBytes          *int64   `json:"size_bytes"`
	TemperatureCelsius *float64 `json:"temperature_celsius"`
	SmartEnabled       bool     `json:"smart_enabled"`
	SmartPassed        bool     `json:"smart_passed"`
}

// DatasetRecord represents a dataset within a pool
type DatasetRecord struct {
	Name             string `json:"name"`
	PoolName         string `json:"pool_name"`
	Mountpoint       string `json:"mountpoint"`
	UsedBytes        *int64 `json:"used_bytes"`
	AvailableBytes   *int64 `json:"available_bytes"`
	QuotaBytes       *int64 `json:"quota_bytes"`
	Compression      string `json:"compression"`
	CompressionRatio string `json:"compression_ratio"`
	Sync             string `json:"sync"`
	Deduplication    string `json:"deduplication"`
	Atime            string `json:"atime"`
	RecordSize       string `json:"record_size"`
	Readonly         bool   `json:"readonly"`
}

// AlertRecord represents an alert raised by the appliance
type AlertRecord struct {
	ID          string     `json:"id"`
	Level       string     `json:"level"`
	Klass       string     `json:"klass,omitempty"`
	Description string     `json:"description"`
	Timestamp   *time.Time `json:"timestamp_iso"`
	Dismissed   bool       `json:"dismissed"`
	Source      string     `json:"source,omitempty"`
}

// AppSpace represents the space available for applications
type AppSpace struct {
	AvailableSpaceGB *float64 `json:"available_space_gb"`
	Source           string   `json:"source,omitempty"`
	Error            *string  `json:"error"`
}
