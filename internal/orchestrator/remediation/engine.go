package remediation

import (
	"fmt"

	"github.com/growhub-io/growhub/internal/orchestrator/core/model"
)

// Action is one remediation step: force a state, a mode, or both, on a
// single actuator. The liveness monitor applies actions through the
// registry so every remediation is audited identically to a manual change.
type Action struct {
	Kind  model.ActuatorKind
	State *bool
	Mode  *model.Mode

	// Reason explains the action in the audit trail.
	Reason string
}

// Alert is a condition that warrants a critical_alert event but no actuator
// mutation, such as an empty water tank.
type Alert struct {
	Message string
}

// Limits are the critical-condition thresholds for AssessCritical.
type Limits struct {
	// TempCeiling in °C: above this the greenhouse must be ventilated.
	TempCeiling float64

	// SoilMoistureFloor in %: below this the soil needs water.
	SoilMoistureFloor float64

	// TankFloor in %: below this there is no water worth pumping.
	TankFloor float64
}

// Engine produces emergency and recovery action plans. All methods are pure
// functions of their inputs; the engine performs no I/O.
type Engine struct {
	limits Limits
}

// New creates an engine with the given limits.
func New(limits Limits) *Engine {
	return &Engine{limits: limits}
}

func boolPtr(b bool) *bool             { return &b }
func modePtr(m model.Mode) *model.Mode { return &m }

// AssessCritical inspects the last-known sensor snapshot of a device that
// just went offline and returns targeted actions for conditions that cannot
// wait for the emergency threshold, plus alert-only findings.
func (e *Engine) AssessCritical(dev *model.Device, snap *model.SensorSnapshot) ([]Action, []Alert) {
	if snap == nil {
		return nil, nil
	}

	var actions []Action
	var alerts []Alert

	if snap.GreenhouseTemp > e.limits.TempCeiling {
		if _, ok := dev.Actuators[model.ActuatorVentilationFan]; ok {
			actions = append(actions, Action{
				Kind:   model.ActuatorVentilationFan,
				State:  boolPtr(true),
				Mode:   modePtr(model.ModeManual),
				Reason: fmt.Sprintf("greenhouse temperature %.1f°C above ceiling %.1f°C", snap.GreenhouseTemp, e.limits.TempCeiling),
			})
		}
	}

	tankEmpty := snap.WaterTank < e.limits.TankFloor

	if snap.SoilMoisture < e.limits.SoilMoistureFloor && !tankEmpty {
		if _, ok := dev.Actuators[model.ActuatorWaterPump]; ok {
			actions = append(actions, Action{
				Kind:   model.ActuatorWaterPump,
				State:  boolPtr(true),
				Mode:   modePtr(model.ModeManual),
				Reason: fmt.Sprintf("soil moisture %.1f%% below floor %.1f%%", snap.SoilMoisture, e.limits.SoilMoistureFloor),
			})
		}
	}

	if tankEmpty {
		// No water to pump: alert only.
		alerts = append(alerts, Alert{
			Message: fmt.Sprintf("water tank at %.1f%%, below critical floor %.1f%%", snap.WaterTank, e.limits.TankFloor),
		})
	}

	return actions, alerts
}

// EmergencyPlan returns the failsafe actions for a device offline past the
// emergency threshold: keep the plants watered and ventilated, and stop the
// fertilizer pump, which must never run unattended.
func (e *Engine) EmergencyPlan(dev *model.Device) []Action {
	var actions []Action

	if _, ok := dev.Actuators[model.ActuatorWaterPump]; ok {
		actions = append(actions, Action{
			Kind:   model.ActuatorWaterPump,
			State:  boolPtr(true),
			Mode:   modePtr(model.ModeManual),
			Reason: "emergency failsafe: device offline past emergency threshold",
		})
	}
	if _, ok := dev.Actuators[model.ActuatorVentilationFan]; ok {
		actions = append(actions, Action{
			Kind:   model.ActuatorVentilationFan,
			State:  boolPtr(true),
			Mode:   modePtr(model.ModeManual),
			Reason: "emergency failsafe: device offline past emergency threshold",
		})
	}
	if _, ok := dev.Actuators[model.ActuatorFertilizerPump]; ok {
		actions = append(actions, Action{
			Kind:   model.ActuatorFertilizerPump,
			State:  boolPtr(false),
			Reason: "emergency failsafe: fertilizer must not run unattended",
		})
	}

	return actions
}

// RecoveryPlan returns the actions reverting an emergency episode once the
// device is live again: hand the pump and fan back to their automatic
// control logic. The fertilizer pump is manual-only and left untouched.
func (e *Engine) RecoveryPlan(dev *model.Device) []Action {
	var actions []Action

	if _, ok := dev.Actuators[model.ActuatorWaterPump]; ok {
		actions = append(actions, Action{
			Kind:   model.ActuatorWaterPump,
			Mode:   modePtr(model.ModeAuto),
			Reason: "device recovered: restoring automatic control",
		})
	}
	if _, ok := dev.Actuators[model.ActuatorVentilationFan]; ok {
		actions = append(actions, Action{
			Kind:   model.ActuatorVentilationFan,
			Mode:   modePtr(model.ModeAuto),
			Reason: "device recovered: restoring automatic control",
		})
	}

	return actions
}
