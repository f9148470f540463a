// Package idea is a client for the serial command protocol of IDEA
// stepper-motor drives.
//
// Commands are single ASCII lines terminated by a carriage return. A few
// queries answer with a line of their own; the client frames a reply by
// reading one byte at a time until a carriage return arrives or a read
// times out, so the port's read timeout is also the reply timeout.
//
//	port, err := idea.Open(idea.DefaultConfig("/dev/ttyUSB0"))
//	...
//	client, err := idea.NewClient(port, port.Config().ClientOptions()...)
//	...
//	err = client.Move(ctx, idea.NewMove(350))
//	pos, err := client.QueryPosition(ctx)
//
// Move targets are given in full steps and sent in 1/64 step units. Command
// parameters are validated before anything is written.
package idea
