package idea

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadReply_StripsTerminator(t *testing.T) {
	mp := newMockPort(readStep{data: "OK\r"})

	reply, err := ReadReply(mp, 0)
	require.NoError(t, err)
	assert.Equal(t, "OK", reply)
	assert.Equal(t, 3, mp.reads, "one read per byte")
}

func TestReadReply_TimeoutEndsPartialReply(t *testing.T) {
	mp := newMockPort(bytesThenTimeout("PARTIAL")...)

	reply, err := ReadReply(mp, 0)
	require.NoError(t, err)
	assert.Equal(t, "PARTIAL", reply)
}

func TestReadReply_ImmediateTimeoutIsEmptyReply(t *testing.T) {
	mp := newMockPort(readStep{})

	reply, err := ReadReply(mp, 0)
	require.NoError(t, err)
	assert.Empty(t, reply)
	assert.Equal(t, 1, mp.reads)
}

func TestReadReply_StopsAtFirstTerminator(t *testing.T) {
	mp := newMockPort(readStep{data: "12\r34\r"})

	first, err := ReadReply(mp, 0)
	require.NoError(t, err)
	second, err := ReadReply(mp, 0)
	require.NoError(t, err)

	assert.Equal(t, "12", first)
	assert.Equal(t, "34", second)
}

func TestReadReply_EmptyLine(t *testing.T) {
	reply, err := ReadReply(newMockPort(readStep{data: "\r"}), 0)
	require.NoError(t, err)
	assert.Empty(t, reply)
}

func TestReadReply_KeepsOtherControlBytes(t *testing.T) {
	reply, err := ReadReply(newMockPort(readStep{data: "a\nb\x00\r"}), 0)
	require.NoError(t, err)
	assert.Equal(t, "a\nb\x00", reply)
}

func TestReadReply_EOFEndsReply(t *testing.T) {
	reply, err := ReadReply(strings.NewReader("EOF-ended"), 0)
	require.NoError(t, err)
	assert.Equal(t, "EOF-ended", reply)
}

func TestReadReply_ReadError(t *testing.T) {
	boom := errors.New("device unplugged")
	mp := newMockPort(readStep{data: "AB"}, readStep{err: boom})

	_, err := ReadReply(mp, 0)
	require.Error(t, err)

	var readErr *ReadError
	require.ErrorAs(t, err, &readErr)
	assert.ErrorIs(t, err, boom)
}

func TestReadReply_Overflow(t *testing.T) {
	mp := newMockPort(readStep{data: strings.Repeat("x", 10)})

	_, err := ReadReply(mp, 4)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrReplyTooLong)

	var ovf *OverflowError
	require.ErrorAs(t, err, &ovf)
	assert.Equal(t, 4, ovf.Limit)
	assert.Equal(t, "xxxx", ovf.Partial)
	assert.Equal(t, 5, mp.reads, "stops on the first byte past the limit")
}

func TestReadReply_ExactlyAtLimit(t *testing.T) {
	reply, err := ReadReply(newMockPort(readStep{data: "abcd\r"}), 4)
	require.NoError(t, err)
	assert.Equal(t, "abcd", reply)
}

func TestReadReply_DefaultLimit(t *testing.T) {
	_, err := ReadReply(newMockPort(readStep{data: strings.Repeat("y", DefaultMaxReplyLength+1)}), 0)
	assert.ErrorIs(t, err, ErrReplyTooLong)
}

type dataAndErrReader struct{ done bool }

func (r *dataAndErrReader) Read(p []byte) (int, error) {
	if r.done {
		return 0, io.EOF
	}
	r.done = true
	p[0] = 'Z'
	return 1, io.EOF
}

func TestReadReply_ByteDeliveredWithEOF(t *testing.T) {
	reply, err := ReadReply(&dataAndErrReader{}, 0)
	require.NoError(t, err)
	assert.Equal(t, "Z", reply)
}

func TestReadReply_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	mp := newMockPort(readStep{data: "OK\r"})
	_, _, err := readReply(ctx, mp, 0)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, mp.reads)
}
