package idea

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Terminator ends every command line and every reply line.
const Terminator byte = '\r'

// addressPrefix introduces the optional drive address in front of a command.
const addressPrefix = '#'

// PositionScale is the number of device position units per full motor step.
// Move targets are always given in steps and sent in 1/64 step units.
const PositionScale = 64

// BoostCurrent is added to the acceleration and deceleration currents of a
// boosted move, in milliamps.
const BoostCurrent = 600

// MaxCurrent is the largest current, in milliamps, any move phase may request.
const MaxCurrent = 6000

// EncoderInterruptDisabled is the encoder interrupt priority that turns the
// interrupt off.
const EncoderInterruptDisabled = 10

// Opcode is the single character that selects a drive command.
type Opcode byte

const (
	OpMove          Opcode = 'M'
	OpEnableEncoder Opcode = 'z'
	OpSetPosition   Opcode = 'Z'
	OpFactoryReset  Opcode = 'a'
	OpReset         Opcode = 'R'
	OpAbort         Opcode = 'A'
	OpDriveNumber   Opcode = 'k'
	OpPosition      Opcode = 'l'
	OpMoving        Opcode = 'o'
	OpFirmware      Opcode = 'v'
	OpFaults        Opcode = 'f'
)

var opcodeNames = map[Opcode]string{
	OpMove:          "move",
	OpEnableEncoder: "enable-encoder",
	OpSetPosition:   "set-position",
	OpFactoryReset:  "factory-reset",
	OpReset:         "reset",
	OpAbort:         "abort",
	OpDriveNumber:   "drive-number",
	OpPosition:      "position",
	OpMoving:        "moving",
	OpFirmware:      "firmware-version",
	OpFaults:        "faults",
}

func (o Opcode) String() string {
	if name, ok := opcodeNames[o]; ok {
		return name
	}
	return fmt.Sprintf("opcode(%q)", rune(o))
}

// Encode makes a bare Opcode usable as a parameterless Command.
// Opcodes that require parameters are rejected.
func (o Opcode) Encode() (string, error) {
	switch o {
	case OpFactoryReset, OpReset, OpAbort, OpDriveNumber, OpPosition, OpMoving, OpFirmware, OpFaults:
		return string(o), nil
	case OpMove, OpEnableEncoder, OpSetPosition:
		return "", &EncodingError{Command: o, Err: errors.New("command requires parameters")}
	default:
		return "", &EncodingError{Command: o, Err: errors.New("unknown opcode")}
	}
}

// Command is a typed drive request that encodes to the body of one wire line.
type Command interface {
	Encode() (string, error)
}

// Line encodes cmd into a complete wire line: the optional #address prefix,
// the command body and the terminator.
func Line(address string, cmd Command) (string, error) {
	if cmd == nil {
		return "", fmt.Errorf("%w: nil command", ErrInvalidParameter)
	}
	body, err := cmd.Encode()
	if err != nil {
		return "", err
	}
	if address != "" {
		return string(addressPrefix) + address + body + string(Terminator), nil
	}
	return body + string(Terminator), nil
}

// StepMode is the microstepping divisor of a move.
type StepMode int

const (
	StepFull StepMode = 1
	StepHalf StepMode = 2
	Step4    StepMode = 4
	Step8    StepMode = 8
	Step16   StepMode = 16
	Step32   StepMode = 32
	Step64   StepMode = 64
)

// Valid reports whether m is one of the divisors the drive accepts.
func (m StepMode) Valid() bool {
	switch m {
	case StepFull, StepHalf, Step4, Step8, Step16, Step32, Step64:
		return true
	}
	return false
}

// MoveCommand moves the motor to an absolute target position.
//
// The four start/end speed and acceleration/deceleration rate fields of the
// move grammar are not used and always sent as 0.
type MoveCommand struct {
	// Steps is the target in full motor steps. It is sent as Steps*64.
	Steps int `validate:"gte=-33554432,lte=33554431"`
	// RunSpeed is the top speed in steps per second.
	RunSpeed int `validate:"gt=0"`
	// RunCurrent and HoldCurrent are RMS currents in mA.
	RunCurrent  int `validate:"gte=0,lte=6000"`
	HoldCurrent int `validate:"gte=0,lte=6000"`
	// Delay is the pause between the last step and the switch to hold
	// current. It is sent in whole milliseconds.
	Delay    time.Duration `validate:"gte=0s"`
	StepMode StepMode      `validate:"stepmode"`
	// Boost adds BoostCurrent to the acceleration and deceleration currents.
	Boost bool
}

// NewMove returns a move to steps with the usual defaults: 500 steps/s,
// 2000 mA run, 250 mA hold, 50 ms delay, full steps, no boost.
func NewMove(steps int) MoveCommand {
	return MoveCommand{
		Steps:       steps,
		RunSpeed:    500,
		RunCurrent:  2000,
		HoldCurrent: 250,
		Delay:       50 * time.Millisecond,
		StepMode:    StepFull,
	}
}

// PhaseCurrents returns the acceleration and deceleration currents in mA.
func (m MoveCommand) PhaseCurrents() (accel, decel int) {
	accel, decel = m.RunCurrent, m.RunCurrent
	if m.Boost {
		accel += BoostCurrent
		decel += BoostCurrent
	}
	return accel, decel
}

func (m MoveCommand) Encode() (string, error) {
	if err := validateCommand(OpMove, m); err != nil {
		return "", err
	}
	accel, decel := m.PhaseCurrents()
	if accel > MaxCurrent {
		return "", &EncodingError{
			Command: OpMove,
			Field:   "RunCurrent",
			Err:     fmt.Errorf("boosted current %d mA exceeds %d mA", accel, MaxCurrent),
		}
	}
	return fmt.Sprintf("%c%d,%d,0,0,0,0,%d,%d,%d,%d,%d,%d",
		OpMove,
		m.Steps*PositionScale,
		m.RunSpeed,
		m.RunCurrent,
		m.HoldCurrent,
		accel,
		decel,
		m.Delay.Milliseconds(),
		m.StepMode,
	), nil
}

// EncoderCommand enables the position encoder.
type EncoderCommand struct {
	Deadband          int `validate:"gte=0"` // 1/64 step units
	EncoderResolution int `validate:"gt=0"`  // counts per revolution
	MotorResolution   int `validate:"gt=0"`  // steps per revolution
	// Priority is the interrupt priority 0-4, or EncoderInterruptDisabled.
	Priority int `validate:"oneof=0 1 2 3 4 10"`
}

// NewEncoder returns an EncoderCommand with the interrupt disabled.
func NewEncoder(deadband, encoderRes, motorRes int) EncoderCommand {
	return EncoderCommand{
		Deadband:          deadband,
		EncoderResolution: encoderRes,
		MotorResolution:   motorRes,
		Priority:          EncoderInterruptDisabled,
	}
}

func (e EncoderCommand) Encode() (string, error) {
	if err := validateCommand(OpEnableEncoder, e); err != nil {
		return "", err
	}
	return fmt.Sprintf("%c%d,0,0,%d,%d,%d",
		OpEnableEncoder,
		e.Deadband,
		e.Priority,
		e.EncoderResolution,
		e.MotorResolution,
	), nil
}

// SetPositionCommand assigns Position to the current physical position.
type SetPositionCommand struct {
	Position int64
}

func (s SetPositionCommand) Encode() (string, error) {
	if s.Position < math.MinInt32 || s.Position > math.MaxInt32 {
		return "", &EncodingError{
			Command: OpSetPosition,
			Field:   "Position",
			Err:     fmt.Errorf("%d does not fit a 32-bit position", s.Position),
		}
	}
	return fmt.Sprintf("%c%d", OpSetPosition, s.Position), nil
}
