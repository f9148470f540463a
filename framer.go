package idea

import (
	"context"
	"errors"
	"io"
)

// frameEnd records why a reply stopped accumulating.
type frameEnd int

const (
	endTerminator frameEnd = iota // \r seen
	endTimeout                    // empty read or io.EOF
)

// ReadReply reads one reply line from r, one byte at a time.
//
// The line ends at the first \r, which is not included in the result, or at
// the first read that returns no data, which is how the drive signals it has
// nothing further to send. An immediate timeout therefore yields an empty
// reply and no error. io.EOF is handled like a timeout. Any other read error
// is returned as a *ReadError.
//
// If more than limit bytes arrive without a terminator the read stops with an
// *OverflowError. A limit of zero or less selects DefaultMaxReplyLength.
func ReadReply(r io.Reader, limit int) (string, error) {
	reply, _, err := readReply(context.Background(), r, limit)
	return reply, err
}

func readReply(ctx context.Context, r io.Reader, limit int) (string, frameEnd, error) {
	if limit <= 0 {
		limit = DefaultMaxReplyLength
	}

	var (
		b   [1]byte
		acc []byte
	)
	for {
		if err := ctx.Err(); err != nil {
			return string(acc), endTimeout, err
		}

		n, err := r.Read(b[:])
		if n > 0 {
			// compare the raw byte, never the accumulated line
			if b[0] == Terminator {
				return string(acc), endTerminator, nil
			}
			if len(acc) >= limit {
				return "", endTimeout, &OverflowError{Limit: limit, Partial: string(acc)}
			}
			acc = append(acc, b[0])
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return string(acc), endTimeout, nil
			}
			return string(acc), endTimeout, &ReadError{Err: err}
		}
		if n == 0 {
			return string(acc), endTimeout, nil
		}
	}
}
