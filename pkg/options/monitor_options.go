package options

import (
	"errors"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*MonitorOptions)(nil)

// MonitorOptions contains the liveness monitor thresholds and the
// remediation engine's critical-condition limits.
type MonitorOptions struct {
	// SweepInterval is how often every device's heartbeat age is evaluated.
	SweepInterval time.Duration `json:"sweep-interval" mapstructure:"sweep-interval"`

	// OfflineThreshold is the heartbeat age past which a device is
	// considered offline.
	OfflineThreshold time.Duration `json:"offline-threshold" mapstructure:"offline-threshold"`

	// EmergencyThreshold is the offline duration past which emergency
	// failsafe actions are applied.
	EmergencyThreshold time.Duration `json:"emergency-threshold" mapstructure:"emergency-threshold"`

	// EscalationInterval is the elapsed offline time between escalation
	// notifications.
	EscalationInterval time.Duration `json:"escalation-interval" mapstructure:"escalation-interval"`

	// MaxEscalations caps the number of escalation notifications per
	// offline episode.
	MaxEscalations int `json:"max-escalations" mapstructure:"max-escalations"`

	// TempCeiling is the greenhouse temperature (°C) above which the
	// ventilation fan is forced on while a device is offline.
	TempCeiling float64 `json:"temp-ceiling" mapstructure:"temp-ceiling"`

	// SoilMoistureFloor is the soil moisture (%) below which the water pump
	// is forced on, provided the tank is not critically low.
	SoilMoistureFloor float64 `json:"soil-moisture-floor" mapstructure:"soil-moisture-floor"`

	// TankFloor is the water tank level (%) below which pumping is pointless
	// and only a critical alert is raised.
	TankFloor float64 `json:"tank-floor" mapstructure:"tank-floor"`
}

// NewMonitorOptions creates a new MonitorOptions with default values.
func NewMonitorOptions() *MonitorOptions {
	return &MonitorOptions{
		SweepInterval:      5 * time.Minute,
		OfflineThreshold:   10 * time.Minute,
		EmergencyThreshold: 60 * time.Minute,
		EscalationInterval: 30 * time.Minute,
		MaxEscalations:     5,
		TempCeiling:        40,
		SoilMoistureFloor:  15,
		TankFloor:          10,
	}
}

// Validate is used to parse and validate the parameters entered by the user at
// the command line when the program starts.
func (o *MonitorOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errs := []error{}

	if o.SweepInterval <= 0 {
		errs = append(errs, errors.New("sweep interval must be positive"))
	}
	if o.OfflineThreshold <= 0 {
		errs = append(errs, errors.New("offline threshold must be positive"))
	}
	if o.EmergencyThreshold <= o.OfflineThreshold {
		errs = append(errs, errors.New("emergency threshold must exceed the offline threshold"))
	}
	if o.EscalationInterval <= 0 {
		errs = append(errs, errors.New("escalation interval must be positive"))
	}
	if o.MaxEscalations < 1 {
		errs = append(errs, errors.New("max escalations must be at least 1"))
	}

	return errs
}

// AddFlags adds flags for MonitorOptions to the specified FlagSet.
func (o *MonitorOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.DurationVar(&o.SweepInterval, "monitor.sweep-interval", o.SweepInterval, "Interval between liveness sweeps.")
	fs.DurationVar(&o.OfflineThreshold, "monitor.offline-threshold", o.OfflineThreshold, "Heartbeat age past which a device is offline.")
	fs.DurationVar(&o.EmergencyThreshold, "monitor.emergency-threshold", o.EmergencyThreshold, "Offline duration past which emergency actions apply.")
	fs.DurationVar(&o.EscalationInterval, "monitor.escalation-interval", o.EscalationInterval, "Elapsed offline time between escalation notifications.")
	fs.IntVar(&o.MaxEscalations, "monitor.max-escalations", o.MaxEscalations, "Maximum escalation notifications per offline episode.")
	fs.Float64Var(&o.TempCeiling, "monitor.temp-ceiling", o.TempCeiling, "Greenhouse temperature ceiling in °C for critical assessment.")
	fs.Float64Var(&o.SoilMoistureFloor, "monitor.soil-moisture-floor", o.SoilMoistureFloor, "Soil moisture floor in % for critical assessment.")
	fs.Float64Var(&o.TankFloor, "monitor.tank-floor", o.TankFloor, "Water tank floor in % below which pumping is suppressed.")
}
