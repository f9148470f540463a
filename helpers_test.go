package idea

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func splitFields(t *testing.T, s string) []string {
	t.Helper()
	fields := strings.Split(s, ",")
	require.Len(t, fields, 12, "move body %q", s)
	return fields
}

func itoa(v int) string {
	return strconv.Itoa(v)
}

// readStep is one scripted result for mockPort.Read.
type readStep struct {
	data string // bytes returned, one per call; empty means a timeout
	err  error
}

// mockPort is a Transport that replays scripted reads and records writes.
// Reads past the end of the script time out.
type mockPort struct {
	steps     []readStep
	reads     int
	writes    []string
	writeErr  error
	shortN    int // when > 0, each Write accepts at most shortN bytes
	zeroWrite bool
}

func newMockPort(steps ...readStep) *mockPort {
	return &mockPort{steps: steps}
}

// bytesThenTimeout scripts s byte by byte followed by one timeout.
func bytesThenTimeout(s string) []readStep {
	steps := make([]readStep, 0, len(s)+1)
	for i := 0; i < len(s); i++ {
		steps = append(steps, readStep{data: s[i : i+1]})
	}
	return append(steps, readStep{})
}

func (m *mockPort) Read(p []byte) (int, error) {
	m.reads++
	if len(m.steps) == 0 {
		return 0, nil
	}
	step := m.steps[0]
	if step.err != nil {
		m.steps = m.steps[1:]
		return 0, step.err
	}
	if step.data == "" {
		m.steps = m.steps[1:]
		return 0, nil
	}
	n := copy(p, step.data)
	if n == len(step.data) {
		m.steps = m.steps[1:]
	} else {
		m.steps[0].data = step.data[n:]
	}
	return n, nil
}

func (m *mockPort) Write(p []byte) (int, error) {
	if m.writeErr != nil {
		return 0, m.writeErr
	}
	if m.zeroWrite {
		return 0, nil
	}
	n := len(p)
	if m.shortN > 0 && n > m.shortN {
		n = m.shortN
	}
	m.writes = append(m.writes, string(p[:n]))
	return n, nil
}

func (m *mockPort) written() string {
	return strings.Join(m.writes, "")
}

// fakeHandle stands in for a go.bug.st/serial port.
type fakeHandle struct {
	mockPort
	readTimeout time.Duration
	dtr, rts    bool
	closed      int
	timeoutErr  error
	dtrErr      error
	closeErr    error
}

func (f *fakeHandle) SetReadTimeout(d time.Duration) error {
	if f.timeoutErr != nil {
		return f.timeoutErr
	}
	f.readTimeout = d
	return nil
}

func (f *fakeHandle) SetDTR(v bool) error {
	if f.dtrErr != nil {
		return f.dtrErr
	}
	f.dtr = v
	return nil
}

func (f *fakeHandle) SetRTS(v bool) error {
	f.rts = v
	return nil
}

func (f *fakeHandle) Close() error {
	f.closed++
	return f.closeErr
}
