package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/growhub-io/growhub/internal/orchestrator/core/model"
	"github.com/growhub-io/growhub/internal/orchestrator/feed"
	"github.com/growhub-io/growhub/internal/orchestrator/liveness"
	"github.com/growhub-io/growhub/internal/orchestrator/queue"
	"github.com/growhub-io/growhub/internal/orchestrator/registry"
	"github.com/growhub-io/growhub/internal/orchestrator/remediation"
	"github.com/growhub-io/growhub/internal/orchestrator/store"
	genericoptions "github.com/growhub-io/growhub/pkg/options"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	sqliteOpts := genericoptions.NewSqliteOptions()
	sqliteOpts.Path = ":memory:"
	st, err := store.Open(sqliteOpts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	q := queue.New(st.Audit(), st.Archive())
	reg := registry.New(st.Devices(), q, st.Audit())
	t.Cleanup(reg.Scheduler().Stop)
	snaps := feed.NewStore()

	mon := liveness.New(liveness.Config{
		SweepInterval:      5 * time.Minute,
		OfflineThreshold:   10 * time.Minute,
		EmergencyThreshold: 60 * time.Minute,
		EscalationInterval: 30 * time.Minute,
		MaxEscalations:     5,
	}, reg, remediation.New(remediation.Limits{TempCeiling: 40, SoilMoistureFloor: 15, TankFloor: 10}), snaps, nil, st.Audit())

	srv := NewServer(genericoptions.NewHTTPOptions(), reg, q, mon, snaps, st)
	ts := httptest.NewServer(srv.server.Handler)
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, []byte) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	payload := make([]byte, 0)
	if resp.Body != nil {
		var out bytes.Buffer
		_, _ = out.ReadFrom(resp.Body)
		resp.Body.Close()
		payload = out.Bytes()
	}
	return resp, payload
}

// TestPollProtocol_EndToEnd drives the full device loop over the wire:
// provision by heartbeat, operator state change, poll, acknowledge.
func TestPollProtocol_EndToEnd(t *testing.T) {
	ts := newTestServer(t)
	base := ts.URL + "/api/v1"

	// First heartbeat provisions the device.
	resp, _ := doJSON(t, http.MethodPost, base+"/devices/dev-1/heartbeat", nil)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	// A second heartbeat is a plain update.
	resp, _ = doJSON(t, http.MethodPost, base+"/devices/dev-1/heartbeat", map[string]any{"batteryLevel": 91.0})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Operator turns the pump on.
	resp, body := doJSON(t, http.MethodPut, base+"/devices/dev-1/actuators/WaterPump/state",
		map[string]any{"state": true, "actorId": "operator-7", "reason": "dry bed"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var change struct {
		Previous string `json:"previous"`
		New      string `json:"new"`
	}
	require.NoError(t, json.Unmarshal(body, &change))
	assert.Equal(t, "OFF", change.Previous)
	assert.Equal(t, "ON", change.New)

	// The device polls and receives the command as Sent.
	resp, body = doJSON(t, http.MethodGet, base+"/devices/dev-1/commands", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var cmds []model.Command
	require.NoError(t, json.Unmarshal(body, &cmds))
	require.Len(t, cmds, 1)
	assert.Equal(t, model.CommandStatusSent, cmds[0].Status)
	require.NotNil(t, cmds[0].DesiredState)
	assert.True(t, *cmds[0].DesiredState)

	// A second poll is empty: at-most-once delivery.
	resp, body = doJSON(t, http.MethodGet, base+"/devices/dev-1/commands", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var again []model.Command
	require.NoError(t, json.Unmarshal(body, &again))
	assert.Empty(t, again)

	// Acknowledge success.
	ackURL := fmt.Sprintf("%s/devices/dev-1/commands/%s/ack", base, cmds[0].ID)
	resp, _ = doJSON(t, http.MethodPost, ackURL, map[string]any{"success": true})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	// Re-acking a terminal command is a 404.
	resp, _ = doJSON(t, http.MethodPost, ackURL, map[string]any{"success": true})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// The audit trail shows the operator change.
	resp, body = doJSON(t, http.MethodGet, base+"/devices/dev-1/audit", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var entries []model.AuditEntry
	require.NoError(t, json.Unmarshal(body, &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "operator-7", entries[0].ActorID)
}

// TestSetMode_FertilizerAutoRejected verifies the manual-only rule surfaces
// as 422 over the API.
func TestSetMode_FertilizerAutoRejected(t *testing.T) {
	ts := newTestServer(t)
	base := ts.URL + "/api/v1"

	resp, _ := doJSON(t, http.MethodPost, base+"/devices/dev-1/heartbeat", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPut, base+"/devices/dev-1/actuators/FertilizerPump/mode",
		map[string]any{"mode": "AUTO"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

// TestErrorMapping covers unknown device, unknown actuator, and bad body.
func TestErrorMapping(t *testing.T) {
	ts := newTestServer(t)
	base := ts.URL + "/api/v1"

	resp, _ := doJSON(t, http.MethodGet, base+"/devices/ghost", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodGet, base+"/devices/ghost/commands", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	doJSON(t, http.MethodPost, base+"/devices/dev-1/heartbeat", nil)

	resp, _ = doJSON(t, http.MethodPut, base+"/devices/dev-1/actuators/Sprinkler/state",
		map[string]any{"state": true})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	req, _ := http.NewRequest(http.MethodPut, base+"/devices/dev-1/actuators/WaterPump/state",
		bytes.NewBufferString("{not json"))
	badResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	badResp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, badResp.StatusCode)
}

// TestSensorReport_FlowsIntoDeviceStatus verifies a sensor report counts as
// liveness proof and surfaces in the device detail.
func TestSensorReport_FlowsIntoDeviceStatus(t *testing.T) {
	ts := newTestServer(t)
	base := ts.URL + "/api/v1"

	resp, _ := doJSON(t, http.MethodPost, base+"/devices/dev-1/sensors",
		map[string]any{"greenhouseTemp": 27.5, "soilMoisture": 33.0, "waterTank": 64.0})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body := doJSON(t, http.MethodGet, base+"/devices/dev-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var status struct {
		model.Device
		PendingCommands int                   `json:"pendingCommands"`
		LastSnapshot    *model.SensorSnapshot `json:"lastSnapshot"`
	}
	require.NoError(t, json.Unmarshal(body, &status))
	assert.Equal(t, "dev-1", status.ID)
	require.NotNil(t, status.LastSnapshot)
	assert.Equal(t, 27.5, status.LastSnapshot.GreenhouseTemp)
}
