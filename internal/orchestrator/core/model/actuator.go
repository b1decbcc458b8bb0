package model

import "fmt"

// ActuatorKind identifies a controllable relay on a field device.
// The set is closed: unsupported kinds are rejected at the boundary so the
// rest of the engine can switch exhaustively.
type ActuatorKind string

const (
	ActuatorWaterPump      ActuatorKind = "WaterPump"
	ActuatorVentilationFan ActuatorKind = "VentilationFan"
	ActuatorFertilizerPump ActuatorKind = "FertilizerPump"
)

// AllActuatorKinds lists every supported kind in a stable order.
func AllActuatorKinds() []ActuatorKind {
	return []ActuatorKind{ActuatorWaterPump, ActuatorVentilationFan, ActuatorFertilizerPump}
}

// Valid reports whether k is a supported actuator kind.
func (k ActuatorKind) Valid() bool {
	switch k {
	case ActuatorWaterPump, ActuatorVentilationFan, ActuatorFertilizerPump:
		return true
	}
	return false
}

// ParseActuatorKind converts a wire string into an ActuatorKind.
func ParseActuatorKind(s string) (ActuatorKind, error) {
	k := ActuatorKind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown actuator kind %q", s)
	}
	return k, nil
}

// Mode is an actuator's operating mode.
type Mode string

const (
	// ModeAuto hands state control to the device's own automatic logic.
	ModeAuto Mode = "AUTO"

	// ModeManual pins the state to whatever the orchestrator last set.
	ModeManual Mode = "MANUAL"
)

// Valid reports whether m is a recognized mode.
func (m Mode) Valid() bool {
	return m == ModeAuto || m == ModeManual
}

// SupportsMode reports whether an actuator kind accepts the given mode.
// The fertilizer pump is manual-only: it must never run unattended.
func (k ActuatorKind) SupportsMode(m Mode) bool {
	if k == ActuatorFertilizerPump && m == ModeAuto {
		return false
	}
	return true
}

// Actuator is a controllable output belonging to exactly one device.
type Actuator struct {
	Kind ActuatorKind `json:"kind"`

	// State is the authoritative desired on/off state.
	State bool `json:"state"`

	Mode Mode `json:"mode"`
}

// DefaultActuators returns the greenhouse relay set a freshly provisioned
// device starts with.
func DefaultActuators() map[ActuatorKind]*Actuator {
	return map[ActuatorKind]*Actuator{
		ActuatorWaterPump:      {Kind: ActuatorWaterPump, Mode: ModeAuto},
		ActuatorVentilationFan: {Kind: ActuatorVentilationFan, Mode: ModeAuto},
		ActuatorFertilizerPump: {Kind: ActuatorFertilizerPump, Mode: ModeManual},
	}
}
