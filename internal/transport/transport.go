// Package transport implements stop-and-wait reliable delivery over
// the link layer: a shared 8-bit sequence counter, a 4-byte
// total-length prefix on the first packet of a message, and one
// unacknowledged packet in flight at a time.
package transport

import (
	"encoding/binary"
	"fmt"

	"github.com/tadnir/audionet/internal/protoerr"
)

const headerSize = 4 // little-endian uint32 total length, first packet only

// Link is the subset of link.Socket the transport layer depends on.
type Link interface {
	Send(data []byte) error
	Recv(out []byte) (int, error)
	MaxPacketSize() int
}

// Socket implements stop-and-wait ARQ over a link-layer socket.
type Socket struct {
	link Link
	seq  byte
}

// New builds a transport-layer socket over lnk, with the sequence
// counter starting at 0.
func New(lnk Link) *Socket {
	return &Socket{link: lnk}
}

// maxPayload is the largest data chunk a single transport packet can
// carry: the link layer's capacity minus this layer's own 1-byte
// sequence.
func (s *Socket) maxPayload() int {
	return s.link.MaxPacketSize() - 1
}

// Send transmits data reliably: the first packet is prefixed with a
// 4-byte little-endian total length. Each packet is retransmitted
// until its sequence is acknowledged; link-layer timeouts and
// out-of-sync errors simply trigger a retransmit of the same packet.
func (s *Socket) Send(data []byte) error {
	maxPayload := s.maxPayload()

	var header [headerSize]byte
	binary.LittleEndian.PutUint32(header[:], uint32(len(data)))
	remaining := append(append([]byte(nil), header[:]...), data...)

	ackBuf := make([]byte, s.maxPayload()+1)
	for len(remaining) > 0 {
		chunkSize := maxPayload
		if chunkSize > len(remaining) {
			chunkSize = len(remaining)
		}
		chunk := remaining[:chunkSize]

		packet := make([]byte, 1+len(chunk))
		packet[0] = s.seq
		copy(packet[1:], chunk)

		acked, err := s.sendAndAwaitAck(packet, ackBuf)
		if err != nil {
			return err
		}
		if !acked {
			continue
		}

		s.seq++
		remaining = remaining[chunkSize:]
	}
	return nil
}

// sendAndAwaitAck sends packet and waits for its acknowledgement.
// Returns acked=true only if the ACK's sequence matches the sent
// packet; link timeouts and out-of-sync errors are swallowed into
// acked=false so the caller retransmits.
func (s *Socket) sendAndAwaitAck(packet, ackBuf []byte) (acked bool, err error) {
	if err := s.link.Send(packet); err != nil {
		return false, fmt.Errorf("transport: link send: %w", err)
	}

	n, err := s.link.Recv(ackBuf)
	switch {
	case err != nil:
		// Any link-layer failure (timeout, out-of-sync) just means
		// the ACK didn't arrive; retransmit.
		return false, nil
	case n < 1:
		return false, nil
	default:
		return ackBuf[0] == packet[0], nil
	}
}

// Recv reassembles one user message reliably, acknowledging every
// packet it accepts. Returns protoerr.ErrSequenceAhead if the observed
// sequence is ahead of the expected counter at all; this is
// unrecoverable. Only sequences behind the counter are re-acked.
func (s *Socket) Recv(out []byte) (int, error) {
	packetBuf := make([]byte, s.maxPayload()+1)

	var written int
	var totalLength uint32
	haveLength := false

	for {
		n, err := s.link.Recv(packetBuf)
		if err != nil {
			// Link timeout or out-of-sync: the sender will
			// retransmit, simply retry the recv.
			continue
		}
		if n < 1 {
			continue
		}

		seq := packetBuf[0]
		payload := packetBuf[1:n]

		switch {
		case seq < s.seq:
			// The previous ACK was lost; the sender retransmitted.
			// Drop our counter to match and re-ack below.
			s.seq--
		case seq > s.seq:
			return written, fmt.Errorf("transport: recv: %w", protoerr.ErrSequenceAhead)
		default:
			written += s.consume(payload, out[written:], &totalLength, &haveLength)
		}

		if err := s.ack(seq); err != nil {
			return written, err
		}

		if haveLength && uint32(written) >= totalLength {
			break
		}
		if written >= len(out) {
			// The caller's buffer is full. Mirror the link layer's
			// truncate-don't-hang behavior: stop delivering even
			// though more of the message may still be in flight.
			break
		}
	}

	return written, nil
}

// consume appends payload to out, parsing the 4-byte length prefix on
// the first packet of the message. Returns the number of bytes
// written to out.
func (s *Socket) consume(payload, out []byte, totalLength *uint32, haveLength *bool) int {
	if !*haveLength {
		if len(payload) < headerSize {
			return 0
		}
		*totalLength = binary.LittleEndian.Uint32(payload[:headerSize])
		*haveLength = true
		payload = payload[headerSize:]
	}

	n := len(payload)
	if n > len(out) {
		n = len(out)
	}
	copy(out, payload[:n])
	return n
}

// ack sends a bare sequence-only acknowledgement packet and advances
// the shared counter.
func (s *Socket) ack(seq byte) error {
	s.seq++
	if err := s.link.Send([]byte{seq}); err != nil {
		return fmt.Errorf("transport: send ack: %w", err)
	}
	return nil
}
