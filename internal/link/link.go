// Package link implements fragmentation and reassembly of variable
// size packets over the physical layer's fixed-MTU frames, using a
// one-byte sequence per fragment and resync-on-gap recovery.
package link

import (
	"encoding/binary"
	"fmt"

	"github.com/tadnir/audionet/internal/config"
	"github.com/tadnir/audionet/internal/protoerr"
)

const headerSize = 4 // little-endian uint32 payload length

// Physical is the subset of physical.Socket the link layer depends
// on.
type Physical interface {
	Send(frame []byte) error
	Peek(out []byte, blocking bool) (int, error)
	Pop()
	Recv(out []byte) (int, error)
}

// Socket fragments and reassembles link packets over a physical
// socket.
type Socket struct {
	cfg      config.Config
	physical Physical
}

// New builds a link-layer socket over phys.
func New(cfg config.Config, phys Physical) *Socket {
	return &Socket{cfg: cfg, physical: phys}
}

// MaxPacketSize returns the largest payload Send will accept:
// 256 fragments of PhysicalMTU-1 bytes, minus the 4-byte header.
func (s *Socket) MaxPacketSize() int {
	return s.cfg.LinkMTU() - headerSize
}

// Send fragments a 4-byte length header followed by data across
// physical frames carrying a 1-byte sequence and up to
// PhysicalMTU-1 payload bytes each. There is no acknowledgement at
// this layer; loss surfaces as a receive error upstream.
func (s *Socket) Send(data []byte) error {
	if len(data) > s.MaxPacketSize() {
		return fmt.Errorf("link: send: %w", protoerr.ErrInvalid)
	}

	var header [headerSize]byte
	binary.LittleEndian.PutUint32(header[:], uint32(len(data)))

	payload := append(append([]byte(nil), header[:]...), data...)

	fragmentSize := s.cfg.PhysicalMTU - 1
	var seq byte
	for offset := 0; offset < len(payload); offset += fragmentSize {
		end := offset + fragmentSize
		if end > len(payload) {
			end = len(payload)
		}

		frame := make([]byte, 1+(end-offset))
		frame[0] = seq
		copy(frame[1:], payload[offset:end])

		if err := s.physical.Send(frame); err != nil {
			return fmt.Errorf("link: physical send: %w", err)
		}
		seq++
	}
	return nil
}

// Recv reassembles one link packet into out, returning the number of
// payload bytes written (at most min(len(out), packet length)). Extra
// payload bytes beyond len(out) are consumed from the physical layer
// but not delivered, matching the reference implementation's
// behaviour: callers are expected to size their buffer to LinkMTU.
//
// Returns protoerr.ErrOutOfSync if the observed fragment sequence
// skips a value; the physical layer has already been flushed to the
// next fresh (seq 0) frame.
func (s *Socket) Recv(out []byte) (int, error) {
	physFrame := make([]byte, s.cfg.PhysicalMTU)
	var header [headerSize]byte
	var headerWritten, written int
	// totalSeen tracks the real count of payload bytes observed after
	// the header, independent of out's capacity: this is what decides
	// when the packet is complete, even once out is full. Only
	// `written` (capped to len(out)) is ever copied or returned.
	var totalSeen, length uint32
	var expectedSeq byte

	for {
		n, err := s.physical.Recv(physFrame)
		if err != nil {
			return written, fmt.Errorf("link: recv: %w", err)
		}

		if physFrame[0] != expectedSeq {
			return written, s.resync()
		}
		expectedSeq++

		newData := physFrame[1:n]

		if headerWritten < headerSize {
			take := headerSize - headerWritten
			if take > len(newData) {
				take = len(newData)
			}
			copy(header[headerWritten:], newData[:take])
			headerWritten += take
			newData = newData[take:]

			if headerWritten == headerSize {
				length = binary.LittleEndian.Uint32(header[:])
			}
		}

		if len(newData) > 0 {
			totalSeen += uint32(len(newData))

			room := len(out) - written
			if room > 0 {
				take := len(newData)
				if take > room {
					take = room
				}
				copy(out[written:], newData[:take])
				written += take
			}
		}

		if headerWritten == headerSize && totalSeen >= length {
			break
		}
	}

	return written, nil
}

// resync flushes frames from the physical layer (peek without
// waiting, then pop) until a fresh (seq 0) frame surfaces or the
// queue empties, then reports out-of-sync.
func (s *Socket) resync() error {
	probe := make([]byte, s.cfg.PhysicalMTU)
	for {
		n, err := s.physical.Peek(probe, false)
		if err != nil {
			return fmt.Errorf("link: resync: %w", err)
		}
		if n == 0 || probe[0] == 0 {
			return fmt.Errorf("link: %w", protoerr.ErrOutOfSync)
		}
		s.physical.Pop()
	}
}
