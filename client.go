package idea

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Client sends commands to one IDEA drive and frames its replies.
//
// A Client borrows its Transport and never closes it. It performs no
// locking: callers that share a Client or its Transport between goroutines
// must serialise access themselves. Blocking is bounded only by the
// transport's read timeout; the context is checked before each write and
// between byte reads. Nothing is retried.
type Client struct {
	t        Transport
	address  string
	maxReply int
	log      zerolog.Logger
	metrics  *Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithAddress prefixes every command with #addr so that only the drive with
// that address acts on it.
func WithAddress(addr string) Option {
	return func(c *Client) {
		c.address = addr
	}
}

// WithMaxReplyLength bounds the length of a single reply line.
func WithMaxReplyLength(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxReply = n
		}
	}
}

// WithLogger sets the logger used for wire-level debug output.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) {
		c.log = l
	}
}

// WithMetrics records traffic into m, which may be shared between clients.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) {
		if m != nil {
			c.metrics = m
		}
	}
}

// NewClient returns a Client talking over t.
func NewClient(t Transport, opts ...Option) (*Client, error) {
	if t == nil {
		return nil, ErrNilTransport
	}
	c := &Client{
		t:        t,
		maxReply: DefaultMaxReplyLength,
		log:      zerolog.Nop(),
		metrics:  &Metrics{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.address != "" {
		if err := validate.Var(c.address, "alphanum,max=8"); err != nil {
			return nil, fmt.Errorf("%w: address %q must be up to 8 letters or digits", ErrInvalidParameter, c.address)
		}
	}
	c.log = c.log.With().Str("component", "idea").Str("address", c.address).Logger()
	return c, nil
}

// ClientOptions returns the options that apply the drive-level settings of cfg.
func (c Config) ClientOptions() []Option {
	return []Option{WithAddress(c.Address), WithMaxReplyLength(c.MaxReplyLength)}
}

// Address returns the drive address, or "" for unaddressed commands.
func (c *Client) Address() string {
	return c.address
}

// Metrics returns the client's traffic counters.
func (c *Client) Metrics() *Metrics {
	return c.metrics
}

// Send encodes cmd and writes it as one line. Nothing is written when the
// command fails to encode.
func (c *Client) Send(ctx context.Context, cmd Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	line, err := Line(c.address, cmd)
	if err != nil {
		c.metrics.recordEncodingError()
		c.log.Debug().Err(err).Msg("command rejected")
		return err
	}
	return c.writeLine(line)
}

func (c *Client) writeLine(line string) error {
	data := []byte(line)
	body := strings.TrimSuffix(line, string(Terminator))

	written := 0
	for written < len(data) {
		n, err := c.t.Write(data[written:])
		written += n
		if err == nil && n == 0 {
			// Prevent infinite loop if Write returns 0
			err = io.ErrShortWrite
		}
		if err != nil {
			c.metrics.recordWrite(written, err)
			c.log.Debug().Str("line", body).Int("written", written).Err(err).Msg("write failed")
			return &WriteError{Command: body, Err: err}
		}
	}

	c.metrics.recordWrite(written, nil)
	c.log.Debug().Str("line", body).Msg("command sent")
	return nil
}

// ReadReply performs one framed read: bytes up to \r, or up to the first
// read timeout. An empty reply is not an error.
func (c *Client) ReadReply(ctx context.Context) (string, error) {
	start := time.Now()
	reply, end, err := readReply(ctx, c.t, c.maxReply)
	c.metrics.recordReply(reply, end, err, time.Since(start))
	if err != nil {
		c.log.Debug().Err(err).Msg("reply failed")
		return "", err
	}
	c.log.Debug().Str("reply", reply).Bool("timeout", end == endTimeout).Msg("reply received")
	return reply, nil
}

// Exec sends cmd and performs one framed read.
func (c *Client) Exec(ctx context.Context, cmd Command) (string, error) {
	if err := c.Send(ctx, cmd); err != nil {
		return "", err
	}
	return c.ReadReply(ctx)
}

// Move commands a move. No reply is read.
func (c *Client) Move(ctx context.Context, m MoveCommand) error {
	return c.Send(ctx, m)
}

// EnableEncoder enables the position encoder. No reply is read.
func (c *Client) EnableEncoder(ctx context.Context, e EncoderCommand) error {
	return c.Send(ctx, e)
}

// SetPosition assigns pos to the current physical position, typically to
// re-zero the drive. No reply is read.
func (c *Client) SetPosition(ctx context.Context, pos int64) error {
	return c.Send(ctx, SetPositionCommand{Position: pos})
}

// FactoryReset restores the drive's factory settings.
func (c *Client) FactoryReset(ctx context.Context) error {
	return c.Send(ctx, OpFactoryReset)
}

// Reset restarts the drive, the same as a power cycle.
func (c *Client) Reset(ctx context.Context) error {
	return c.Send(ctx, OpReset)
}

// Abort halts the current motion.
func (c *Client) Abort(ctx context.Context) error {
	return c.Send(ctx, OpAbort)
}

// QueryDriveNumber returns the drive's ID number.
func (c *Client) QueryDriveNumber(ctx context.Context) (string, error) {
	return c.Exec(ctx, OpDriveNumber)
}

// QueryPosition returns the drive's position.
//
// After the position line the drive emits one more line. QueryPosition
// always performs exactly two framed reads and returns only the first, so
// the trailing line never leaks into the next query's reply.
func (c *Client) QueryPosition(ctx context.Context) (string, error) {
	pos, err := c.Exec(ctx, OpPosition)
	if err != nil {
		return "", err
	}
	if _, err = c.ReadReply(ctx); err != nil {
		return "", fmt.Errorf("reading trailing position line: %w", err)
	}
	return pos, nil
}

// QueryMoving returns the drive's moving/stopped indication as sent.
func (c *Client) QueryMoving(ctx context.Context) (string, error) {
	return c.Exec(ctx, OpMoving)
}

// QueryFirmwareVersion returns the firmware version string.
func (c *Client) QueryFirmwareVersion(ctx context.Context) (string, error) {
	return c.Exec(ctx, OpFirmware)
}

// QueryFaults returns the drive's fault report.
func (c *Client) QueryFaults(ctx context.Context) (string, error) {
	return c.Exec(ctx, OpFaults)
}
