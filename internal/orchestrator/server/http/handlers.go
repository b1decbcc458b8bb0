package http

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/growhub-io/growhub/internal/orchestrator/core"
	"github.com/growhub-io/growhub/internal/orchestrator/core/model"
	"github.com/growhub-io/growhub/internal/orchestrator/registry"
)

// deviceStatus is the operator view of one device: catalog record plus the
// live queue depth and offline tracker, when one exists.
type deviceStatus struct {
	*model.Device

	PendingCommands int                   `json:"pendingCommands"`
	Offline         *model.OfflineTracker `json:"offline,omitempty"`
	LastSnapshot    *model.SensorSnapshot `json:"lastSnapshot,omitempty"`
}

func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	devices := s.registry.Devices()

	out := make([]*deviceStatus, 0, len(devices))
	for _, dev := range devices {
		out = append(out, s.statusFor(dev))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	dev, err := s.registry.Device(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.statusFor(dev))
}

func (s *Server) statusFor(dev *model.Device) *deviceStatus {
	st := &deviceStatus{
		Device:          dev,
		PendingCommands: s.queue.PendingCount(dev.ID),
	}
	if tr, ok := s.monitor.Status(dev.ID); ok {
		st.Offline = tr
	}
	if snap, ok := s.feed.Latest(dev.ID); ok {
		st.LastSnapshot = snap
	}
	return st
}

func (s *Server) handleAuditTrail(w http.ResponseWriter, r *http.Request) {
	deviceID := mux.Vars(r)["id"]
	if _, err := s.registry.Device(deviceID); err != nil {
		writeError(w, err)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := s.store.Entries(r.Context(), deviceID, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if entries == nil {
		entries = []*model.AuditEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

type setStateRequest struct {
	State              bool   `json:"state"`
	TriggeredBy        string `json:"triggeredBy,omitempty"`
	ActorID            string `json:"actorId,omitempty"`
	Reason             string `json:"reason,omitempty"`
	ExpireAfterSeconds int    `json:"expireAfterSeconds,omitempty"`
}

func (s *Server) handleSetState(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	kind, ok := parseKind(w, vars["kind"])
	if !ok {
		return
	}

	var req setStateRequest
	if !decodeBody(w, r, &req) {
		return
	}

	trig := model.TriggeredBy(req.TriggeredBy)
	if trig == "" {
		trig = model.TriggeredByManual
	}

	change, err := s.registry.SetState(r.Context(), registry.SetStateRequest{
		DeviceID:    vars["id"],
		Kind:        kind,
		Desired:     req.State,
		TriggeredBy: trig,
		ActorID:     req.ActorID,
		Reason:      req.Reason,
		ExpireAfter: time.Duration(req.ExpireAfterSeconds) * time.Second,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, change)
}

type setModeRequest struct {
	Mode        string `json:"mode"`
	TriggeredBy string `json:"triggeredBy,omitempty"`
	ActorID     string `json:"actorId,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

func (s *Server) handleSetMode(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	kind, ok := parseKind(w, vars["kind"])
	if !ok {
		return
	}

	var req setModeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	change, err := s.registry.SetMode(r.Context(), registry.SetModeRequest{
		DeviceID:    vars["id"],
		Kind:        kind,
		Desired:     model.Mode(req.Mode),
		TriggeredBy: model.TriggeredBy(req.TriggeredBy),
		ActorID:     req.ActorID,
		Reason:      req.Reason,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, change)
}

func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	hb := model.Heartbeat{}
	// The body is optional; a bare POST still counts as proof of life.
	if r.ContentLength > 0 && !decodeBody(w, r, &hb) {
		return
	}
	hb.DeviceID = mux.Vars(r)["id"]

	created, err := s.registry.RecordHeartbeat(r.Context(), &hb)
	if err != nil {
		writeError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, map[string]any{"deviceId": hb.DeviceID, "provisioned": created})
}

func (s *Server) handleSensorReport(w http.ResponseWriter, r *http.Request) {
	deviceID := mux.Vars(r)["id"]

	var snap model.SensorSnapshot
	if !decodeBody(w, r, &snap) {
		return
	}

	// A sensor report is also proof of life.
	if _, err := s.registry.RecordHeartbeat(r.Context(), &model.Heartbeat{DeviceID: deviceID}); err != nil {
		writeError(w, err)
		return
	}

	s.feed.Update(deviceID, &snap)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePollCommands(w http.ResponseWriter, r *http.Request) {
	deviceID := mux.Vars(r)["id"]
	if _, err := s.registry.Device(deviceID); err != nil {
		writeError(w, err)
		return
	}

	cmds := s.queue.PendingFor(r.Context(), deviceID)
	if cmds == nil {
		cmds = []*model.Command{}
	}
	writeJSON(w, http.StatusOK, cmds)
}

type ackRequest struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func (s *Server) handleAcknowledge(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var req ackRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := s.queue.Acknowledge(r.Context(), vars["id"], vars["cid"], req.Success, req.Error); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseKind(w http.ResponseWriter, raw string) (model.ActuatorKind, bool) {
	kind, err := model.ParseActuatorKind(raw)
	if err != nil {
		writeError(w, fmt.Errorf("actuator %q: %w", raw, core.ErrUnknownActuator))
		return "", false
	}
	return kind, true
}
