package core

import "errors"

// Sentinel errors forming the engine's failure taxonomy. Validation and
// not-found failures are rejected synchronously with no state change and no
// audit entry; everything else is isolated to the device or command it
// concerns and is never process-fatal.
var (
	// ErrDeviceNotFound indicates an unknown device ID.
	ErrDeviceNotFound = errors.New("device not found")

	// ErrUnknownActuator indicates the actuator kind does not exist for the
	// targeted device.
	ErrUnknownActuator = errors.New("unknown actuator")

	// ErrInvalidMode indicates a mode outside {AUTO, MANUAL}.
	ErrInvalidMode = errors.New("invalid mode")

	// ErrModeNotSupported indicates a mode the actuator kind rejects, such
	// as AUTO on the fertilizer pump.
	ErrModeNotSupported = errors.New("mode not supported")

	// ErrCommandNotFound indicates an unknown command ID, including
	// acknowledgments for commands already archived as terminal.
	ErrCommandNotFound = errors.New("command not found")

	// ErrCommandNotDelivered indicates an acknowledgment for a command the
	// device was never handed: only Sent commands can be acknowledged.
	ErrCommandNotDelivered = errors.New("command not delivered")

	// ErrInvalidTrigger indicates an unrecognized triggeredBy source.
	ErrInvalidTrigger = errors.New("invalid trigger source")
)
