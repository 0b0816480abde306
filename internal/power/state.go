package power

// SwitchState mirrors the power switch output line.
type SwitchState int

const (
	Released SwitchState = iota
	Pressed
)

func (s SwitchState) String() string {
	if s == Pressed {
		return "PRESSED"
	}
	return "RELEASED"
}

// SensorState is the cached level of the power LED input.
type SensorState int32

const (
	SensorUnknown SensorState = iota
	SensorOff
	SensorOn
)

func (s SensorState) String() string {
	switch s {
	case SensorOn:
		return "ON"
	case SensorOff:
		return "OFF"
	}
	return "UNKNOWN"
}

func sensorFromLevel(on bool) SensorState {
	if on {
		return SensorOn
	}
	return SensorOff
}

// payload is the raw status payload for a line level.
func payload(on bool) []byte {
	if on {
		return []byte("ON")
	}
	return []byte("OFF")
}
