package idea

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoveCommand_DefaultLine(t *testing.T) {
	line, err := Line("", NewMove(10))
	require.NoError(t, err)
	assert.Equal(t, "M640,500,0,0,0,0,2000,250,2000,2000,50,1\r", line)
}

func TestMoveCommand_BoostedLine(t *testing.T) {
	m := NewMove(10)
	m.Boost = true

	line, err := Line("", m)
	require.NoError(t, err)
	assert.Equal(t, "M640,500,0,0,0,0,2000,250,2600,2600,50,1\r", line)
}

func TestMoveCommand_StepsScaledBy64(t *testing.T) {
	for _, steps := range []int{0, 1, 7, 350, 1000, 33554431, -1, -33554432} {
		body, err := NewMove(steps).Encode()
		require.NoError(t, err, "steps=%d", steps)

		fields := splitFields(t, body[1:])
		assert.Equal(t, itoa(steps*64), fields[0], "steps=%d", steps)
	}
}

func TestMoveCommand_PhaseCurrents(t *testing.T) {
	for _, runCur := range []int{0, 250, 2000, 5400} {
		for _, boost := range []bool{false, true} {
			m := NewMove(1)
			m.RunCurrent = runCur
			m.Boost = boost

			body, err := m.Encode()
			require.NoError(t, err)

			want := runCur
			if boost {
				want += BoostCurrent
			}
			fields := splitFields(t, body[1:])
			assert.Equal(t, itoa(want), fields[8], "accel run=%d boost=%v", runCur, boost)
			assert.Equal(t, itoa(want), fields[9], "decel run=%d boost=%v", runCur, boost)
		}
	}
}

func TestMoveCommand_PlaceholderFieldsAlwaysZero(t *testing.T) {
	m := MoveCommand{
		Steps:       -3,
		RunSpeed:    1200,
		RunCurrent:  1500,
		HoldCurrent: 0,
		Delay:       125 * time.Millisecond,
		StepMode:    Step16,
	}
	body, err := m.Encode()
	require.NoError(t, err)
	assert.Equal(t, "M-192,1200,0,0,0,0,1500,0,1500,1500,125,16", body)
}

func TestMoveCommand_DelayTruncatedToMilliseconds(t *testing.T) {
	m := NewMove(1)
	m.Delay = 2500 * time.Microsecond
	body, err := m.Encode()
	require.NoError(t, err)
	assert.Equal(t, "2", splitFields(t, body[1:])[10])
}

func TestMoveCommand_InvalidParameters(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*MoveCommand)
		field string
	}{
		{"step mode 3", func(m *MoveCommand) { m.StepMode = 3 }, "StepMode"},
		{"step mode 0", func(m *MoveCommand) { m.StepMode = 0 }, "StepMode"},
		{"step mode 128", func(m *MoveCommand) { m.StepMode = 128 }, "StepMode"},
		{"zero speed", func(m *MoveCommand) { m.RunSpeed = 0 }, "RunSpeed"},
		{"negative run current", func(m *MoveCommand) { m.RunCurrent = -1 }, "RunCurrent"},
		{"run current too high", func(m *MoveCommand) { m.RunCurrent = MaxCurrent + 1 }, "RunCurrent"},
		{"boost over limit", func(m *MoveCommand) { m.RunCurrent = MaxCurrent; m.Boost = true }, "RunCurrent"},
		{"hold current too high", func(m *MoveCommand) { m.HoldCurrent = 7000 }, "HoldCurrent"},
		{"negative delay", func(m *MoveCommand) { m.Delay = -time.Millisecond }, "Delay"},
		{"position overflow", func(m *MoveCommand) { m.Steps = 33554432 }, "Steps"},
		{"position underflow", func(m *MoveCommand) { m.Steps = -33554433 }, "Steps"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMove(10)
			tt.edit(&m)

			_, err := Line("", m)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidParameter)

			var encErr *EncodingError
			require.True(t, errors.As(err, &encErr))
			assert.Equal(t, OpMove, encErr.Command)
			assert.Equal(t, tt.field, encErr.Field)
		})
	}
}

func TestStepMode_Valid(t *testing.T) {
	for _, m := range []StepMode{StepFull, StepHalf, Step4, Step8, Step16, Step32, Step64} {
		assert.True(t, m.Valid(), "%d", m)
	}
	for _, m := range []StepMode{-1, 0, 3, 5, 12, 63, 65, 128} {
		assert.False(t, m.Valid(), "%d", m)
	}
}

func TestEncoderCommand_Line(t *testing.T) {
	line, err := Line("", NewEncoder(5, 4000, 200))
	require.NoError(t, err)
	assert.Equal(t, "z5,0,0,10,4000,200\r", line)

	e := NewEncoder(0, 1024, 400)
	e.Priority = 2
	line, err = Line("", e)
	require.NoError(t, err)
	assert.Equal(t, "z0,0,0,2,1024,400\r", line)
}

func TestEncoderCommand_InvalidParameters(t *testing.T) {
	tests := []struct {
		name  string
		cmd   EncoderCommand
		field string
	}{
		{"negative deadband", EncoderCommand{Deadband: -1, EncoderResolution: 1, MotorResolution: 1, Priority: 10}, "Deadband"},
		{"zero encoder resolution", EncoderCommand{EncoderResolution: 0, MotorResolution: 1, Priority: 10}, "EncoderResolution"},
		{"zero motor resolution", EncoderCommand{EncoderResolution: 1, MotorResolution: 0, Priority: 10}, "MotorResolution"},
		{"priority 5", EncoderCommand{EncoderResolution: 1, MotorResolution: 1, Priority: 5}, "Priority"},
		{"priority -1", EncoderCommand{EncoderResolution: 1, MotorResolution: 1, Priority: -1}, "Priority"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.cmd.Encode()
			var encErr *EncodingError
			require.ErrorAs(t, err, &encErr)
			assert.Equal(t, OpEnableEncoder, encErr.Command)
			assert.Equal(t, tt.field, encErr.Field)
		})
	}
}

func TestSetPositionCommand(t *testing.T) {
	line, err := Line("", SetPositionCommand{Position: 0})
	require.NoError(t, err)
	assert.Equal(t, "Z0\r", line)

	line, err = Line("", SetPositionCommand{Position: -12800})
	require.NoError(t, err)
	assert.Equal(t, "Z-12800\r", line)

	_, err = SetPositionCommand{Position: 1 << 31}.Encode()
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestOpcode_ParameterlessLines(t *testing.T) {
	tests := map[Opcode]string{
		OpFactoryReset: "a\r",
		OpReset:        "R\r",
		OpAbort:        "A\r",
		OpDriveNumber:  "k\r",
		OpPosition:     "l\r",
		OpMoving:       "o\r",
		OpFirmware:     "v\r",
		OpFaults:       "f\r",
	}
	for op, want := range tests {
		line, err := Line("", op)
		require.NoError(t, err, op.String())
		assert.Equal(t, want, line)
	}
}

func TestOpcode_RejectsBareParameterisedAndUnknown(t *testing.T) {
	for _, op := range []Opcode{OpMove, OpEnableEncoder, OpSetPosition, 'x', 0} {
		_, err := op.Encode()
		assert.ErrorIs(t, err, ErrInvalidParameter, op.String())
	}
}

func TestOpcode_String(t *testing.T) {
	assert.Equal(t, "move", OpMove.String())
	assert.Equal(t, "faults", OpFaults.String())
	assert.Equal(t, `opcode('x')`, Opcode('x').String())
}

func TestLine_Address(t *testing.T) {
	line, err := Line("1", OpAbort)
	require.NoError(t, err)
	assert.Equal(t, "#1A\r", line)

	line, err = Line("B", NewMove(10))
	require.NoError(t, err)
	assert.Equal(t, "#BM640,500,0,0,0,0,2000,250,2000,2000,50,1\r", line)
}

func TestLine_NilCommand(t *testing.T) {
	_, err := Line("", nil)
	assert.ErrorIs(t, err, ErrInvalidParameter)
}
