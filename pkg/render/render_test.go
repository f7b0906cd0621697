package render

import (
	"bytes"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/runningman84/truenas-status/pkg/config"
	"github.com/runningman84/truenas-status/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func int64Ptr(v int64) *int64       { return &v }
func float64Ptr(v float64) *float64 { return &v }

func testSnapshot() *models.Snapshot {
	ts := time.Date(2024, 1, 15, 10, 0, 0, 0, time.FixedZone("CET", 3600))
	alertTime := time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)
	return &models.Snapshot{
		Timestamp: ts,
		SystemInfo: models.SystemInfo{
			TrueNASURL: "https://nas/api/v2.0/",
			AuthMethod: config.AuthMethodToken,
			Hostname:   "nas",
			Version:    "25.04",
			PhysMemGB:  float64Ptr(32),
		},
		Pools: []models.PoolRecord{
			{
				Name:           "tank",
				Status:         "ONLINE",
				SizeBytes:      int64Ptr(1000),
				AllocatedBytes: int64Ptr(250),
				AvailableBytes: int64Ptr(750),
				UsedPercent:    float64Ptr(25),
				Disks: []models.DiskRecord{
					{Name: "sda", Pool: "tank", SmartPassed: true, TemperatureCelsius: float64Ptr(35)},
					{Name: "sdb", Pool: "tank", SmartPassed: false},
				},
				Datasets: []models.DatasetRecord{
					{Name: "tank", UsedBytes: int64Ptr(100)},
					{Name: "tank/backups", UsedBytes: int64Ptr(50)},
				},
			},
			{
				Name:   "empty",
				Status: "ONLINE",
			},
		},
		Applications: models.AppSpace{AvailableSpaceGB: float64Ptr(12.5), Source: "app"},
		Alerts: []models.AlertRecord{
			{ID: "1", Level: "CRITICAL", Description: "Pool degraded\nsecond line", Timestamp: &alertTime},
			{ID: "2", Level: "INFO", Description: "Old news", Dismissed: true},
		},
	}
}

func TestNew(t *testing.T) {
	assert.IsType(t, &JSONPresenter{}, New(config.OutputJSON))
	assert.IsType(t, &TextPresenter{}, New(config.OutputRich))
	assert.IsType(t, &TextPresenter{}, New(""))
}

func TestJSONPresenter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&JSONPresenter{}).Present(&buf, testSnapshot()))

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))

	for _, key := range []string{"timestamp", "system_info", "pools", "datasets", "applications", "alerts_events", "warnings"} {
		assert.Contains(t, doc, key)
	}

	ts, ok := doc["timestamp"].(string)
	require.True(t, ok)
	assert.Equal(t, "2024-01-15T09:00:00Z", ts)

	sys := doc["system_info"].(map[string]interface{})
	assert.Equal(t, "https://nas/api/v2.0/", sys["truenas_url"])
	assert.Equal(t, "token", sys["auth_method"])
	assert.Equal(t, false, sys["verify_ssl"])
	assert.Nil(t, sys["uptime_seconds"])

	pools := doc["pools"].([]interface{})
	require.Len(t, pools, 2)
	empty := pools[1].(map[string]interface{})
	assert.Nil(t, empty["size_bytes"])
	assert.Nil(t, empty["used_percent"])

	// nil slices become empty arrays
	assert.Equal(t, []interface{}{}, doc["datasets"])
	assert.Equal(t, []interface{}{}, doc["warnings"])
}

func TestTextPresenter(t *testing.T) {
	snap := testSnapshot()
	snap.Warnings = []string{"disks: HTTP 500"}

	var buf bytes.Buffer
	require.NoError(t, (&TextPresenter{}).Present(&buf, snap))
	out := buf.String()

	assert.Contains(t, out, "TRUENAS SYSTEM STATUS")
	assert.Contains(t, out, "nas")
	assert.Contains(t, out, "Pool: tank")
	assert.Contains(t, out, "25.00% used")
	assert.Contains(t, out, "Space statistics not available.")
	assert.Contains(t, out, "150.00 B")
	assert.Contains(t, out, "sda")
	assert.Contains(t, out, "FAIL")
	assert.Contains(t, out, "12.50 GB")
	assert.Contains(t, out, "CRITICAL: Pool degraded")
	assert.NotContains(t, out, "second line")
	assert.NotContains(t, out, "Old news")
	assert.Contains(t, out, "disks: HTTP 500")
}

func TestTextPresenterZeroSizePool(t *testing.T) {
	snap := &models.Snapshot{
		Pools: []models.PoolRecord{{
			Name:           "tank",
			Status:         "ONLINE",
			SizeBytes:      int64Ptr(0),
			AllocatedBytes: int64Ptr(0),
		}},
	}

	var buf bytes.Buffer
	require.NoError(t, (&TextPresenter{}).Present(&buf, snap))
	out := buf.String()

	assert.Contains(t, out, "Space statistics not available.")
	assert.NotContains(t, out, "0.00% used")
	assert.Contains(t, out, "No active alerts.")
	assert.Contains(t, out, "Not available")
}

func TestTextPresenterNoPools(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&TextPresenter{}).Present(&buf, &models.Snapshot{}))
	assert.Contains(t, buf.String(), "No pool information found")
}
