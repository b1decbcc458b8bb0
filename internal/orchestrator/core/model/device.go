package model

import "time"

// Device represents a field controller and its actuator catalog.
type Device struct {
	// ID is the opaque unique device identifier (the original hardware
	// reports its MAC address).
	ID string `json:"deviceId"`

	// LastHeartbeat is the time the device last proved it was reachable.
	LastHeartbeat time.Time `json:"lastHeartbeat"`

	// Optional health extras reported alongside heartbeats.
	BatteryLevel  *float64 `json:"batteryLevel,omitempty"`
	Signal        *int     `json:"signal,omitempty"`
	UptimeSeconds *int64   `json:"uptime,omitempty"`

	// Actuators is the device's relay catalog keyed by kind.
	Actuators map[ActuatorKind]*Actuator `json:"actuators"`
}

// Clone returns a deep copy safe to hand outside the registry's locks.
func (d *Device) Clone() *Device {
	out := *d
	out.Actuators = make(map[ActuatorKind]*Actuator, len(d.Actuators))
	for k, a := range d.Actuators {
		cp := *a
		out.Actuators[k] = &cp
	}
	return &out
}

// SensorSnapshot is the last-known sensor reading for a device, owned by the
// sensor-ingestion collaborator and read-only inside the engine. Field names
// mirror the firmware's report payload.
type SensorSnapshot struct {
	OutsideTemp        float64 `json:"outsideTemp"`
	GreenhouseTemp     float64 `json:"greenhouseTemp"`
	OutsideHumidity    float64 `json:"outsideHumidity"`
	GreenhouseHumidity float64 `json:"greenhouseHumidity"`
	SoilMoisture       float64 `json:"soilMoisture"`
	LightLevel         float64 `json:"lightLevel"`
	WaterTank          float64 `json:"waterTank"`
	PHLevel            float64 `json:"phLevel"`

	ReportedAt time.Time `json:"reportedAt"`
}

// Heartbeat is a device's periodic status report.
type Heartbeat struct {
	DeviceID      string     `json:"deviceId"`
	Timestamp     *time.Time `json:"timestamp,omitempty"`
	BatteryLevel  *float64   `json:"batteryLevel,omitempty"`
	Signal        *int       `json:"signal,omitempty"`
	UptimeSeconds *int64     `json:"uptime,omitempty"`
}
