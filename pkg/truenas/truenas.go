package truenas

import (
	"context"
	"fmt"

	"github.com/runningman84/truenas-status/pkg/client"
	"github.com/runningman84/truenas-status/pkg/config"
	"github.com/runningman84/truenas-status/pkg/models"
	"github.com/runningman84/truenas-status/pkg/parser"
	"github.com/runningman84/truenas-status/pkg/units"
	"k8s.io/klog/v2"
)

// Appliance API endpoints, relative to TRUENAS_URL
const (
	EndpointSystemInfo        = "system/info"
	EndpointDatasets          = "pool/dataset"
	EndpointPools             = "pool"
	EndpointDisks             = "disk"
	EndpointAlerts            = "alert/list"
	EndpointAppAvailableSpace = "app/available_space"
	EndpointKubernetesConfig  = "kubernetes/config"
	EndpointConfigSave        = "config/save"
)

// AppSpaceStrategy reads the space available for applications from one endpoint
type AppSpaceStrategy struct {
	Name  string
	Path  string
	Parse func(data []byte) (float64, error)
}

// DefaultAppSpaceStrategies are tried in order, the first success wins
var DefaultAppSpaceStrategies = []AppSpaceStrategy{
	{Name: "app", Path: EndpointAppAvailableSpace, Parse: parser.ParseAvailableSpace},
	{Name: "kubernetes", Path: EndpointKubernetesConfig, Parse: parser.ParseKubernetesAvailableSpace},
}

// Manager fetches resources from the appliance. A failed fetch is logged,
// recorded as a warning and yields an empty result.
type Manager struct {
	config             *config.Config
	client             *client.Client
	appSpaceStrategies []AppSpaceStrategy
	warnings           []string
}

// NewManager creates a new appliance manager
func NewManager(cfg *config.Config) *Manager {
	return &Manager{
		config:             cfg,
		client:             client.NewClient(cfg),
		appSpaceStrategies: DefaultAppSpaceStrategies,
	}
}

// Client returns the underlying API client
func (m *Manager) Client() *client.Client {
	return m.client
}

// Warnings returns the warnings recorded since the manager was created
func (m *Manager) Warnings() []string {
	out := make([]string, len(m.warnings))
	copy(out, m.warnings)
	return out
}

// warn logs a failed fetch and records it for the run summary
func (m *Manager) warn(resource string, err error) {
	klog.Warningf("Failed to fetch %s: %v", resource, err)
	m.warnings = append(m.warnings, fmt.Sprintf("%s: %v", resource, err))
}

// fetch issues a GET and returns the raw body, or nil after recording a warning
func (m *Manager) fetch(ctx context.Context, resource, path string) []byte {
	body, err := m.client.GetRaw(ctx, path)
	if err != nil {
		m.warn(resource, err)
		return nil
	}
	return body
}

// GetSystemInfo retrieves general appliance information. The connection
// settings are always filled in; Error is set when the call failed.
func (m *Manager) GetSystemInfo(ctx context.Context) models.SystemInfo {
	base := models.SystemInfo{
		TrueNASURL: m.config.TrueNASURL,
		AuthMethod: m.config.AuthMethod,
		VerifySSL:  m.config.VerifySSL,
	}

	body := m.fetch(ctx, "system info", EndpointSystemInfo)
	if body == nil {
		base.Error = "system information unavailable"
		return base
	}

	info, err := parser.ParseSystemInfoJSON(body)
	if err != nil {
		m.warn("system info", err)
		base.Error = "system information unavailable"
		return base
	}

	info.TrueNASURL = base.TrueNASURL
	info.AuthMethod = base.AuthMethod
	info.VerifySSL = base.VerifySSL
	return info
}

// GetDatasets retrieves all datasets
func (m *Manager) GetDatasets(ctx context.Context) []models.DatasetRecord {
	body := m.fetch(ctx, "datasets", EndpointDatasets)
	if body == nil {
		return []models.DatasetRecord{}
	}

	datasets, err := parser.ParseDatasetsJSON(body)
	if err != nil {
		m.warn("datasets", err)
		return []models.DatasetRecord{}
	}

	klog.V(1).Infof(" Fetched %d dataset(s)", len(datasets))
	return datasets
}

// GetPools retrieves all pools in their raw shape for aggregation
func (m *Manager) GetPools(ctx context.Context) []parser.PoolJSON {
	body := m.fetch(ctx, "pools", EndpointPools)
	if body == nil {
		return []parser.PoolJSON{}
	}

	pools, err := parser.ParsePoolsJSON(body)
	if err != nil {
		m.warn("pools", err)
		return []parser.PoolJSON{}
	}

	klog.V(1).Infof(" Fetched %d pool(s)", len(pools))
	return pools
}

// GetDisks retrieves all disks that belong to a pool
func (m *Manager) GetDisks(ctx context.Context) []models.DiskRecord {
	body := m.fetch(ctx, "disks", EndpointDisks)
	if body == nil {
		return []models.DiskRecord{}
	}

	disks, err := parser.ParseDisksJSON(body)
	if err != nil {
		m.warn("disks", err)
		return []models.DiskRecord{}
	}

	klog.V(1).Infof(" Fetched %d pool disk(s)", len(disks))
	return disks
}

// GetAlerts retrieves all alerts, dismissed ones included
func (m *Manager) GetAlerts(ctx context.Context) []models.AlertRecord {
	body := m.fetch(ctx, "alerts", EndpointAlerts)
	if body == nil {
		return []models.AlertRecord{}
	}

	alerts, err := parser.ParseAlertsJSON(body)
	if err != nil {
		m.warn("alerts", err)
		return []models.AlertRecord{}
	}

	klog.V(1).Infof(" Fetched %d alert(s)", len(alerts))
	return alerts
}

// GetAppSpace retrieves the space available for applications, trying each
// strategy in order. When all fail, Error holds the last failure.
func (m *Manager) GetAppSpace(ctx context.Context) models.AppSpace {
	var lastErr error
	for _, strategy := range m.appSpaceStrategies {
		body, err := m.client.GetRaw(ctx, strategy.Path)
		if err != nil {
			klog.V(1).Infof(" App space strategy %s failed: %v", strategy.Name, err)
			lastErr = err
			continue
		}

		bytes, err := strategy.Parse(body)
		if err != nil {
			klog.V(1).Infof(" App space strategy %s failed: %v", strategy.Name, err)
			lastErr = fmt.Errorf("%s: %w", strategy.Path, err)
			continue
		}

		gb := units.BytesToGB(bytes)
		return models.AppSpace{AvailableSpaceGB: &gb, Source: strategy.Name}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no strategy configured")
	}
	m.warn("application space", lastErr)
	msg := lastErr.Error()
	return models.AppSpace{Error: &msg}
}
