package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/Station-Manager/idea"
)

var errQuit = errors.New("quit")

const usage = `commands:
  move <steps> [speed] [runcur] [holdcur] [delay-ms] [stepmode] [boost]
  encoder <deadband> <encoder-res> <motor-res> [priority]
  setpos <position>
  factory-reset | reset | abort
  drive | pos | moving | version | faults
  metrics | help | quit`

// shell runs one textual command at a time against a drive.
type shell struct {
	client *idea.Client
	out    io.Writer
}

// exec runs line. It returns errQuit when the user asks to leave.
func (s *shell) exec(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	name, args := strings.ToLower(fields[0]), fields[1:]

	switch name {
	case "move":
		m, err := parseMove(args)
		if err != nil {
			return err
		}
		return s.client.Move(ctx, m)
	case "encoder":
		e, err := parseEncoder(args)
		if err != nil {
			return err
		}
		return s.client.EnableEncoder(ctx, e)
	case "setpos":
		if len(args) != 1 {
			return errors.New("usage: setpos <position>")
		}
		pos, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("position: %w", err)
		}
		return s.client.SetPosition(ctx, pos)
	case "factory-reset":
		return s.client.FactoryReset(ctx)
	case "reset":
		return s.client.Reset(ctx)
	case "abort":
		return s.client.Abort(ctx)
	case "drive":
		return s.print(s.client.QueryDriveNumber(ctx))
	case "pos":
		return s.print(s.client.QueryPosition(ctx))
	case "moving":
		return s.print(s.client.QueryMoving(ctx))
	case "version":
		return s.print(s.client.QueryFirmwareVersion(ctx))
	case "faults":
		return s.print(s.client.QueryFaults(ctx))
	case "metrics":
		s.printMetrics(s.client.Metrics().Snapshot())
		return nil
	case "help", "?":
		fmt.Fprintln(s.out, usage)
		return nil
	case "quit", "exit":
		return errQuit
	}
	return fmt.Errorf("unknown command %q (try help)", name)
}

func (s *shell) print(reply string, err error) error {
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, reply)
	return nil
}

func (s *shell) printMetrics(m idea.MetricsSnapshot) {
	fmt.Fprintf(s.out, "commands=%d replies=%d empty=%d timeouts=%d\n",
		m.CommandsSent, m.Replies, m.EmptyReplies, m.TimeoutReplies)
	fmt.Fprintf(s.out, "errors: write=%d read=%d encode=%d overflow=%d\n",
		m.WriteErrors, m.ReadErrors, m.EncodingErrors, m.Overflows)
	fmt.Fprintf(s.out, "latency: avg=%s max=%s\n", m.AverageReplyLatency, m.MaxReplyLatency)
	fmt.Fprintf(s.out, "health=%s score=%.0f\n", m.HealthStatus, m.HealthScore)
}

// parseMove reads positional move arguments on top of the NewMove defaults.
func parseMove(args []string) (idea.MoveCommand, error) {
	if len(args) < 1 || len(args) > 7 {
		return idea.MoveCommand{}, errors.New("usage: move <steps> [speed] [runcur] [holdcur] [delay-ms] [stepmode] [boost]")
	}
	ints := make([]int, 0, 6)
	for i, a := range args {
		if i == 6 {
			break
		}
		v, err := strconv.Atoi(a)
		if err != nil {
			return idea.MoveCommand{}, fmt.Errorf("move argument %d: %w", i+1, err)
		}
		ints = append(ints, v)
	}

	m := idea.NewMove(ints[0])
	targets := []func(int){
		func(v int) { m.RunSpeed = v },
		func(v int) { m.RunCurrent = v },
		func(v int) { m.HoldCurrent = v },
		func(v int) { m.Delay = time.Duration(v) * time.Millisecond },
		func(v int) { m.StepMode = idea.StepMode(v) },
	}
	for i, v := range ints[1:] {
		targets[i](v)
	}
	if len(args) == 7 {
		boost, err := parseBoost(args[6])
		if err != nil {
			return idea.MoveCommand{}, err
		}
		m.Boost = boost
	}
	return m, nil
}

func parseBoost(s string) (bool, error) {
	if strings.EqualFold(s, "boost") {
		return true, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("boost: %w", err)
	}
	return b, nil
}

func parseEncoder(args []string) (idea.EncoderCommand, error) {
	if len(args) < 3 || len(args) > 4 {
		return idea.EncoderCommand{}, errors.New("usage: encoder <deadband> <encoder-res> <motor-res> [priority]")
	}
	vals := make([]int, len(args))
	for i, a := range args {
		v, err := strconv.Atoi(a)
		if err != nil {
			return idea.EncoderCommand{}, fmt.Errorf("encoder argument %d: %w", i+1, err)
		}
		vals[i] = v
	}
	e := idea.NewEncoder(vals[0], vals[1], vals[2])
	if len(vals) == 4 {
		e.Priority = vals[3]
	}
	return e, nil
}
