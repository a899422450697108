package transport

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/LukeWait/rps-lan/internal/wire"
)

// MaxFrameSize bounds a single payload. Game and chat messages are
// tiny; anything larger means a corrupt or hostile stream.
const MaxFrameSize = 64 << 10

var ErrFrameTooLarge = errors.New("frame exceeds size limit")
var ErrBadChannel = errors.New("unknown channel tag")

// A frame on the wire is: channel tag byte, uvarint payload length,
// payload bytes. A zero-length control frame is a heartbeat.

// Frame is one decoded unit as delivered to the session.
type Frame struct {
	Channel wire.Channel
	Payload []byte
}

func writeFrame(w io.Writer, ch wire.Channel, payload []byte) error {
	if len(payload) > MaxFrameSize {
		return ErrFrameTooLarge
	}
	buf := make([]byte, 0, 1+binary.MaxVarintLen32+len(payload))
	buf = append(buf, byte(ch))
	buf = binary.AppendUvarint(buf, uint64(len(payload)))
	buf = append(buf, payload...)
	// Single Write so a frame is never interleaved with another.
	_, err := w.Write(buf)
	return err
}

func readFrame(r *bufio.Reader) (Frame, error) {
	tag, err := r.ReadByte()
	if err != nil {
		return Frame{}, err
	}
	ch := wire.Channel(tag)
	if !ch.Valid() {
		return Frame{}, fmt.Errorf("%w: 0x%02x", ErrBadChannel, tag)
	}
	size, err := binary.ReadUvarint(r)
	if err != nil {
		return Frame{}, err
	}
	if size > MaxFrameSize {
		return Frame{}, ErrFrameTooLarge
	}
	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		// A partial frame must never surface; the caller reports loss.
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return Frame{}, err
	}
	return Frame{Channel: ch, Payload: payload}, nil
}
