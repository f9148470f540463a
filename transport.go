package idea

import (
	"errors"
	"fmt"
	"io"
	"time"

	gobug "go.bug.st/serial"
	"go.uber.org/atomic"
)

// allow tests to override external dependencies
var (
	openPort     = func(name string, mode *gobug.Mode) (portHandle, error) { return gobug.Open(name, mode) }
	getPortsList = gobug.GetPortsList
)

// Transport is the byte stream a Client borrows. A Read that returns no
// bytes and no error means the read timeout elapsed; io.EOF is treated the
// same way. The Client never closes its Transport.
type Transport interface {
	io.Reader
	io.Writer
}

// portHandle abstracts the subset of go.bug.st/serial.Port used by this package.
type portHandle interface {
	SetReadTimeout(timeout time.Duration) error
	SetDTR(bool) error
	SetRTS(bool) error
	Write([]byte) (int, error)
	Read([]byte) (int, error)
	Close() error
}

// Port is a Transport backed by a go.bug.st/serial port.
type Port struct {
	handle portHandle
	cfg    Config
	closed atomic.Bool
}

var _ Transport = (*Port)(nil)

// Open validates cfg, opens the serial device and applies the read timeout
// and control lines. Every failure is an *OpenError.
func Open(cfg Config) (*Port, error) {
	cfg = cfg.withDefaults()
	if err := ValidateConfig(&cfg); err != nil {
		return nil, &OpenError{Port: cfg.PortName, Err: fmt.Errorf("invalid serial port configuration: %w", err)}
	}

	ok, err := isPortAvailable(cfg.PortName)
	if err != nil {
		return nil, &OpenError{Port: cfg.PortName, Err: fmt.Errorf("%w: %v", ErrInvalidPortName, err)}
	}
	if !ok {
		return nil, &OpenError{Port: cfg.PortName, Err: ErrInvalidPortName}
	}

	mode := &gobug.Mode{
		BaudRate: cfg.BaudRate.Int(),
		DataBits: cfg.DataBits.Int(),
		Parity:   cfg.Parity.Get(),
		StopBits: cfg.StopBits.Get(),
	}

	h, err := openPort(cfg.PortName, mode)
	if err != nil {
		return nil, &OpenError{Port: cfg.PortName, Err: err}
	}

	if err = h.SetReadTimeout(cfg.ReadTimeout); err != nil {
		return nil, &OpenError{Port: cfg.PortName, Err: closeAfterError(h, fmt.Errorf("setting read timeout: %w", err))}
	}
	// Explicitly set control lines to configured values
	if err = h.SetDTR(cfg.DTR); err != nil {
		return nil, &OpenError{Port: cfg.PortName, Err: closeAfterError(h, fmt.Errorf("setting DTR: %w", err))}
	}
	if err = h.SetRTS(cfg.RTS); err != nil {
		return nil, &OpenError{Port: cfg.PortName, Err: closeAfterError(h, fmt.Errorf("setting RTS: %w", err))}
	}

	return &Port{handle: h, cfg: cfg}, nil
}

// closeAfterError closes h and joins any error from closing with err.
func closeAfterError(h portHandle, err error) error {
	if e := h.Close(); e != nil {
		err = errors.Join(err, e)
	}
	return err
}

// Read implements io.Reader. On timeout it returns (0, nil).
func (p *Port) Read(b []byte) (int, error) {
	if p.closed.Load() {
		return 0, ErrPortClosed
	}
	return p.handle.Read(b)
}

// Write implements io.Writer.
func (p *Port) Write(b []byte) (int, error) {
	if p.closed.Load() {
		return 0, ErrPortClosed
	}
	return p.handle.Write(b)
}

// SetReadTimeout changes how long a single read may wait for data, which is
// also how long the framer waits before treating a reply as complete.
func (p *Port) SetReadTimeout(d time.Duration) error {
	if p.closed.Load() {
		return ErrPortClosed
	}
	if err := p.handle.SetReadTimeout(d); err != nil {
		return err
	}
	p.cfg.ReadTimeout = d
	return nil
}

// PortName returns the serial device path.
func (p *Port) PortName() string {
	return p.cfg.PortName
}

// Config returns the effective configuration the port was opened with.
func (p *Port) Config() Config {
	return p.cfg
}

// Close closes the underlying port. It is safe to call multiple times.
func (p *Port) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	return p.handle.Close()
}
