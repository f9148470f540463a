// Command ideacli sends commands to an IDEA stepper drive over a serial port.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Station-Manager/idea"
)

func main() {
	configPath := flag.String("config", "", "JSON config file; flags given explicitly override it")
	device := flag.String("device", "/dev/ttyUSB0", "serial device path")
	baud := flag.Int("baud", int(idea.DefaultBaudRate), "baud rate")
	parity := flag.String("parity", "N", "parity (N,O,E,M,S)")
	stopBits := flag.String("stopbits", "1", "stop bits (1, 1.5 or 2)")
	readTimeout := flag.Duration("read-timeout", idea.DefaultReadTimeout, "per-read timeout; also ends a reply")
	address := flag.String("address", "", "drive address for a shared line (sent as #<address>)")
	maxReply := flag.Int("max-reply", idea.DefaultMaxReplyLength, "maximum reply length in bytes")
	logLevel := flag.String("log-level", "info", "log level (debug shows wire traffic)")
	cmd := flag.String("cmd", "", "single command to run; if empty, read commands from stdin")
	list := flag.Bool("list", false, "list available serial ports and exit")

	flag.Parse()

	logger := newLogger(*logLevel)

	if *list {
		ports, err := idea.AvailablePorts()
		if err != nil {
			logger.Fatal().Err(err).Msg("listing ports")
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return
	}

	cfg := idea.DefaultConfig(*device)
	if *configPath != "" {
		loaded, err := idea.LoadConfig(*configPath)
		if err != nil {
			logger.Fatal().Err(err).Msg("loading config")
		}
		cfg = loaded
	}

	// flags override the file only when given explicitly
	var flagErr error
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "device":
			cfg.PortName = *device
		case "baud":
			cfg.BaudRate = idea.BaudRate(*baud)
		case "parity":
			p, err := idea.ParseParity(*parity)
			flagErr = errors.Join(flagErr, err)
			cfg.Parity = p
		case "stopbits":
			sb, err := idea.ParseStopBits(*stopBits)
			flagErr = errors.Join(flagErr, err)
			cfg.StopBits = sb
		case "read-timeout":
			cfg.ReadTimeout = *readTimeout
		case "address":
			cfg.Address = *address
		case "max-reply":
			cfg.MaxReplyLength = *maxReply
		}
	})
	if flagErr != nil {
		logger.Fatal().Err(flagErr).Msg("invalid flags")
	}

	port, err := idea.Open(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("open")
	}
	defer port.Close()

	opts := append(port.Config().ClientOptions(), idea.WithLogger(logger))
	client, err := idea.NewClient(port, opts...)
	if err != nil {
		logger.Fatal().Err(err).Msg("client")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	sh := &shell{client: client, out: os.Stdout}

	if *cmd != "" {
		// Single command mode
		if err = sh.exec(ctx, *cmd); err != nil && !errors.Is(err, errQuit) {
			logger.Error().Err(err).Str("cmd", *cmd).Msg("command failed")
			port.Close()
			os.Exit(1)
		}
		return
	}

	src := newLineSource()
	defer src.Close()

	logger.Info().
		Str("port", cfg.PortName).
		Int("baud", cfg.BaudRate.Int()).
		Str("framing", fmt.Sprintf("%d%s%s", cfg.DataBits, cfg.Parity, cfg.StopBits)).
		Msg("connected; type help for commands")

	if err = runSession(ctx, sh, src, os.Stderr); err != nil {
		logger.Error().Err(err).Msg("input")
	}
}

// runSession executes lines from src until it ends, the user quits or ctx
// is cancelled. Command failures are reported and the session continues.
func runSession(ctx context.Context, sh *shell, src lineSource, errOut io.Writer) error {
	for ctx.Err() == nil {
		line, err := src.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		err = sh.exec(ctx, line)
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
		}
	}
	return nil
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		Level(lvl).
		With().
		Timestamp().
		Logger()
}
