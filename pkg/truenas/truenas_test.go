package truenas

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/runningman84/truenas-status/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newFakeAppliance serves fixed bodies per endpoint, anything else is a 404
func newFakeAppliance(t *testing.T, routes map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestManager(url string) *Manager {
	return NewManager(&config.Config{
		TrueNASURL: url + "/api/v2.0/",
		AuthMethod: config.AuthMethodToken,
		APIKey:     "1-secret",
		Timeout:    2 * time.Second,
	})
}

func TestGetSystemInfo(t *testing.T) {
	srv := newFakeAppliance(t, map[string]string{
		"/api/v2.0/system/info": `{"hostname": "nas", "version": "25.04", "physmem": 17179869184, "uptime_seconds": 3600}`,
	})
	m := newTestManager(srv.URL)

	info := m.GetSystemInfo(context.Background())
	assert.Equal(t, "nas", info.Hostname)
	assert.Equal(t, srv.URL+"/api/v2.0/", info.TrueNASURL)
	assert.Equal(t, config.AuthMethodToken, info.AuthMethod)
	assert.False(t, info.VerifySSL)
	require.NotNil(t, info.PhysMemGB)
	assert.Equal(t, 16.0, *info.PhysMemGB)
	assert.Empty(t, info.Error)
	assert.Empty(t, m.Warnings())
}

func TestGetSystemInfoFailure(t *testing.T) {
	srv := newFakeAppliance(t, map[string]string{})
	m := newTestManager(srv.URL)

	info := m.GetSystemInfo(context.Background())
	assert.NotEmpty(t, info.Error)
	assert.Equal(t, srv.URL+"/api/v2.0/", info.TrueNASURL)
	require.Len(t, m.Warnings(), 1)
	assert.Contains(t, m.Warnings()[0], "system info")
}

func TestFetchFailuresReturnEmpty(t *testing.T) {
	srv := newFakeAppliance(t, map[string]string{
		"/api/v2.0/pool": `not json`,
	})
	m := newTestManager(srv.URL)
	ctx := context.Background()

	pools := m.GetPools(ctx)
	assert.NotNil(t, pools)
	assert.Empty(t, pools)

	disks := m.GetDisks(ctx)
	assert.NotNil(t, disks)
	assert.Empty(t, disks)

	datasets := m.GetDatasets(ctx)
	assert.NotNil(t, datasets)
	assert.Empty(t, datasets)

	alerts := m.GetAlerts(ctx)
	assert.NotNil(t, alerts)
	assert.Empty(t, alerts)

	assert.Len(t, m.Warnings(), 4)
}

func TestGetResources(t *testing.T) {
	srv := newFakeAppliance(t, map[string]string{
		"/api/v2.0/pool":         `[{"name": "tank", "status": "ONLINE", "size": 1000, "free": 500}]`,
		"/api/v2.0/disk":         `[{"name": "sda", "pool": "tank", "smart_status": {"passed": true}}, {"name": "sdb", "pool": null}]`,
		"/api/v2.0/pool/dataset": `[{"id": "tank/backups", "used": {"parsed": 100}}]`,
		"/api/v2.0/alert/list":   `[{"uuid": "1", "level": "WARNING", "formatted": "Scrub paused"}]`,
	})
	m := newTestManager(srv.URL)
	ctx := context.Background()

	pools := m.GetPools(ctx)
	require.Len(t, pools, 1)
	assert.Equal(t, "tank", pools[0].Name)

	disks := m.GetDisks(ctx)
	require.Len(t, disks, 1)
	assert.True(t, disks[0].SmartPassed)

	datasets := m.GetDatasets(ctx)
	require.Len(t, datasets, 1)
	assert.Equal(t, "tank", datasets[0].PoolName)

	alerts := m.GetAlerts(ctx)
	require.Len(t, alerts, 1)
	assert.Equal(t, "Scrub paused", alerts[0].Description)

	assert.Empty(t, m.Warnings())
}

func TestGetAppSpace(t *testing.T) {
	tests := []struct {
		name       string
		routes     map[string]string
		wantGB     float64
		wantSource string
		wantErr    bool
	}{
		{
			name: "app endpoint",
			routes: map[string]string{
				"/api/v2.0/app/available_space": `107374182400`,
				"/api/v2.0/kubernetes/config":   `{"available_space_for_apps_bytes": 1073741824}`,
			},
			wantGB:     100,
			wantSource: "app",
		},
		{
			name: "falls back to kubernetes",
			routes: map[string]string{
				"/api/v2.0/kubernetes/config": `{"available_space_for_apps_bytes": 1073741824}`,
			},
			wantGB:     1,
			wantSource: "kubernetes",
		},
		{
			name: "non numeric body falls back",
			routes: map[string]string{
				"/api/v2.0/app/available_space": `"unknown"`,
				"/api/v2.0/kubernetes/config":   `{"available_space_for_apps_bytes": "2147483648"}`,
			},
			wantGB:     2,
			wantSource: "kubernetes",
		},
		{
			name: "all strategies fail",
			routes: map[string]string{
				"/api/v2.0/app/available_space": `{"oops": true}`,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newFakeAppliance(t, tt.routes)
			m := newTestManager(srv.URL)

			space := m.GetAppSpace(context.Background())
			if tt.wantErr {
				assert.Nil(t, space.AvailableSpaceGB)
				require.NotNil(t, space.Error)
				assert.NotEmpty(t, *space.Error)
				assert.Len(t, m.Warnings(), 1)
				return
			}
			require.NotNil(t, space.AvailableSpaceGB)
			assert.Equal(t, tt.wantGB, *space.AvailableSpaceGB)
			assert.Equal(t, tt.wantSource, space.Source)
			assert.Nil(t, space.Error)
			assert.Empty(t, m.Warnings())
		})
	}
}
