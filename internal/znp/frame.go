package znp

import (
	"bufio"
	"fmt"
	"io"
)

// SOF marks the start of every MT frame.
const SOF = 0xfe

// MaxDataLen is the largest payload a single MT frame carries.
const MaxDataLen = 250

// Frame is a decoded MT frame.
type Frame struct {
	Command CommandID
	Data    []byte
}

// MarshalBinary encodes the frame including SOF and FCS.
func (f Frame) MarshalBinary() ([]byte, error) {
	if len(f.Data) > MaxDataLen {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLong, len(f.Data))
	}
	buf := make([]byte, 0, len(f.Data)+5)
	buf = append(buf, SOF, byte(len(f.Data)), f.Command.Cmd0(), f.Command.Cmd1())
	buf = append(buf, f.Data...)
	buf = append(buf, fcs(buf[1:]))
	return buf, nil
}

// fcs is the XOR of b.
func fcs(b []byte) byte {
	var x byte
	for _, c := range b {
		x ^= c
	}
	return x
}

// ReadFrame reads the next frame from r, discarding bytes up to the SOF.
func ReadFrame(r *bufio.Reader) (Frame, error) {
	for {
		b, err := r.ReadByte()
		if err != nil {
			return Frame{}, err
		}
		if b == SOF {
			break
		}
	}

	var hdr [3]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return Frame{}, err
	}
	n := int(hdr[0])
	if n > MaxDataLen {
		return Frame{}, fmt.Errorf("%w: length byte %d", ErrFrameTooLong, n)
	}

	body := make([]byte, n+1)
	if _, err := io.ReadFull(r, body); err != nil {
		return Frame{}, err
	}

	sum := fcs(hdr[:]) ^ fcs(body[:n])
	if sum != body[n] {
		return Frame{}, fmt.Errorf("%w: got 0x%02x, want 0x%02x", ErrBadChecksum, body[n], sum)
	}

	return Frame{
		Command: CommandID(uint16(hdr[1])<<8 | uint16(hdr[2])),
		Data:    body[:n],
	}, nil
}
