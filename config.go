package idea

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-json"
)

const (
	// DefaultReadTimeout bounds a single byte read. An empty read ends a reply.
	DefaultReadTimeout = time.Second

	// DefaultMaxReplyLength bounds one reply line. Drive replies are short
	// status strings, so anything longer means the line is noise.
	DefaultMaxReplyLength = 256
)

// Config holds configuration for opening a drive's serial port.
type Config struct {
	// PortName is the path to the serial device, e.g. /dev/ttyUSB0.
	PortName string `validate:"required"`

	BaudRate BaudRate `validate:"baudrate"`
	DataBits DataBits `validate:"gte=5,lte=8"`
	Parity   Parity   `validate:"gte=0,lte=4"`
	StopBits StopBits `validate:"gte=0,lte=2"`

	// ReadTimeout is the underlying port read timeout.
	ReadTimeout time.Duration `validate:"gte=0s"`

	DTR bool
	RTS bool

	// Address selects one drive on a shared line. Empty sends unaddressed
	// commands.
	Address string `validate:"omitempty,alphanum,max=8"`

	// MaxReplyLength bounds one reply line in bytes.
	MaxReplyLength int `validate:"gte=1,lte=65536"`
}

// DefaultConfig returns the factory settings for portName: 57600 8N1 with
// a one second read timeout.
func DefaultConfig(portName string) Config {
	return Config{PortName: portName}.withDefaults()
}

// withDefaults fills zero fields. Parity and stop bits default through their
// zero values.
func (c Config) withDefaults() Config {
	if c.BaudRate == 0 {
		c.BaudRate = DefaultBaudRate
	}
	if c.DataBits == 0 {
		c.DataBits = DataBits8
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.MaxReplyLength == 0 {
		c.MaxReplyLength = DefaultMaxReplyLength
	}
	return c
}

// fileConfig is the on-disk JSON form of Config.
type fileConfig struct {
	PortName       string `json:"port_name"`
	BaudRate       int    `json:"baud_rate"`
	DataBits       int    `json:"data_bits"`
	Parity         string `json:"parity"`
	StopBits       string `json:"stop_bits"`
	ReadTimeout    string `json:"read_timeout"`
	DTR            bool   `json:"dtr"`
	RTS            bool   `json:"rts"`
	Address        string `json:"address"`
	MaxReplyLength int    `json:"max_reply_length"`
}

// LoadConfig reads a JSON configuration file. Missing fields take their
// defaults and the result is validated.
func LoadConfig(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("loading config: %w", err)
	}
	defer f.Close()

	var fc fileConfig
	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err = dec.Decode(&fc); err != nil {
		return Config{}, fmt.Errorf("decoding config %s: %w", path, err)
	}

	cfg, err := fc.toConfig()
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	if err = ValidateConfig(&cfg); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (fc fileConfig) toConfig() (Config, error) {
	parity, err := ParseParity(fc.Parity)
	if err != nil {
		return Config{}, err
	}
	stopBits, err := ParseStopBits(fc.StopBits)
	if err != nil {
		return Config{}, err
	}
	var timeout time.Duration
	if fc.ReadTimeout != "" {
		if timeout, err = time.ParseDuration(fc.ReadTimeout); err != nil {
			return Config{}, fmt.Errorf("read_timeout: %w", err)
		}
	}
	cfg := Config{
		PortName:       fc.PortName,
		BaudRate:       BaudRate(fc.BaudRate),
		DataBits:       DataBits(fc.DataBits),
		Parity:         parity,
		StopBits:       stopBits,
		ReadTimeout:    timeout,
		DTR:            fc.DTR,
		RTS:            fc.RTS,
		Address:        fc.Address,
		MaxReplyLength: fc.MaxReplyLength,
	}
	return cfg.withDefaults(), nil
}
