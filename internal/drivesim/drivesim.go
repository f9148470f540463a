// Package drivesim simulates an IDEA drive on the far side of a serial line.
//
// A Drive is an in-memory byte stream: lines written to it are parsed and
// executed, replies are queued for reading. A read with nothing queued
// returns (0, nil), the same as a serial read timing out.
package drivesim

import (
	"bytes"
	"strconv"
	"strings"
	"sync"
)

// Drive is a simulated drive. It is safe for concurrent use.
type Drive struct {
	mu sync.Mutex

	address string

	DriveNumber string
	Firmware    string
	Faults      string
	// PositionTrailer is the line the drive sends after every position reply.
	PositionTrailer string

	position int64
	moving   bool
	encoder  []int64

	// WriteErr and ReadErr, when set, are returned by every Write or Read.
	WriteErr error
	ReadErr  error

	partial []byte
	out     bytes.Buffer
	lines   []string
}

// New returns a drive at position 0 that answers unaddressed commands.
func New() *Drive {
	return &Drive{
		DriveNumber: "1",
		Firmware:    "ACM4826E 1.0",
		Faults:      "0",
	}
}

// NewAddressed returns a drive that only acts on lines prefixed with #addr.
func NewAddressed(addr string) *Drive {
	d := New()
	d.address = addr
	return d
}

// Write receives command bytes. Complete lines are executed immediately.
func (d *Drive) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.WriteErr != nil {
		return 0, d.WriteErr
	}
	d.partial = append(d.partial, p...)
	for {
		idx := bytes.IndexByte(d.partial, '\r')
		if idx == -1 {
			break
		}
		line := string(d.partial[:idx])
		d.partial = d.partial[idx+1:]
		d.lines = append(d.lines, line)
		d.execute(line)
	}
	return len(p), nil
}

// Read returns queued reply bytes, or (0, nil) when nothing is queued.
func (d *Drive) Read(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ReadErr != nil {
		return 0, d.ReadErr
	}
	if d.out.Len() == 0 || len(p) == 0 {
		return 0, nil
	}
	return d.out.Read(p)
}

// Lines returns every complete line received, terminators stripped.
func (d *Drive) Lines() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.lines...)
}

// Position returns the current position in 1/64 step units.
func (d *Drive) Position() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.position
}

// Moving reports whether a move is in progress.
func (d *Drive) Moving() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.moving
}

// Encoder returns the last encoder settings as deadband, priority,
// encoder resolution and motor resolution, or nil if never enabled.
func (d *Drive) Encoder() []int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]int64(nil), d.encoder...)
}

// Pending returns the number of reply bytes not yet read.
func (d *Drive) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.out.Len()
}

// Inject queues raw bytes for reading, as if the drive had sent them.
func (d *Drive) Inject(s string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.out.WriteString(s)
}

func (d *Drive) execute(line string) {
	if d.address != "" {
		var ok bool
		if line, ok = strings.CutPrefix(line, "#"+d.address); !ok {
			return
		}
	} else if strings.HasPrefix(line, "#") {
		return
	}
	if line == "" {
		return
	}

	op, args := line[0], line[1:]
	switch op {
	case 'M':
		fields, ok := parseFields(args, 12)
		if !ok {
			return
		}
		d.position = fields[0]
		d.moving = true
	case 'z':
		fields, ok := parseFields(args, 6)
		if !ok {
			return
		}
		d.encoder = []int64{fields[0], fields[3], fields[4], fields[5]}
	case 'Z':
		fields, ok := parseFields(args, 1)
		if !ok {
			return
		}
		d.position = fields[0]
	case 'a':
		d.position, d.moving, d.encoder = 0, false, nil
	case 'R':
		d.position, d.moving = 0, false
	case 'A':
		d.moving = false
	case 'k':
		d.reply(d.DriveNumber)
	case 'l':
		d.reply(strconv.FormatInt(d.position, 10))
		d.reply(d.PositionTrailer)
	case 'o':
		if d.moving {
			d.reply("1")
			// the move completes by the next poll
			d.moving = false
		} else {
			d.reply("0")
		}
	case 'v':
		d.reply(d.Firmware)
	case 'f':
		d.reply(d.Faults)
	}
}

func (d *Drive) reply(s string) {
	d.out.WriteString(s)
	d.out.WriteByte('\r')
}

func parseFields(args string, want int) ([]int64, bool) {
	parts := strings.Split(args, ",")
	if len(parts) != want {
		return nil, false
	}
	fields := make([]int64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, false
		}
		fields[i] = v
	}
	return fields, true
}
