package link

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tadnir/audionet/internal/config"
	"github.com/tadnir/audionet/internal/protoerr"
)

// fakePhysical is an in-memory physical layer: Send appends frames to
// a queue, Recv/Peek/Pop drain it in order. It lets link-layer tests
// exercise fragmentation, resync, and the min(size,length) overread
// behaviour without any audio or FFT machinery.
type fakePhysical struct {
	frames [][]byte
}

func (f *fakePhysical) Send(frame []byte) error {
	cp := append([]byte(nil), frame...)
	f.frames = append(f.frames, cp)
	return nil
}

func (f *fakePhysical) Peek(out []byte, blocking bool) (int, error) {
	if len(f.frames) == 0 {
		if blocking {
			return 0, protoerr.ErrTimeout
		}
		return 0, nil
	}
	n := copy(out, f.frames[0])
	return n, nil
}

func (f *fakePhysical) Pop() {
	if len(f.frames) > 0 {
		f.frames = f.frames[1:]
	}
}

func (f *fakePhysical) Recv(out []byte) (int, error) {
	n, err := f.Peek(out, true)
	if err != nil {
		return 0, err
	}
	f.Pop()
	return n, nil
}

func newTestSocket() (*Socket, *fakePhysical) {
	cfg := config.Default()
	cfg.PhysicalMTU = 9
	phys := &fakePhysical{}
	return New(cfg, phys), phys
}

func TestSend_FragmentSequenceIsContiguous(t *testing.T) {
	s, phys := newTestSocket()

	payload := make([]byte, 32)
	for i := range payload {
		payload[i] = byte(i)
	}

	require.NoError(t, s.Send(payload))
	require.Len(t, phys.frames, 5) // ceil((4+32)/8)

	for i, frame := range phys.frames {
		assert.Equal(t, byte(i), frame[0])
		assert.LessOrEqual(t, len(frame), s.cfg.PhysicalMTU)
	}
}

func TestSendRecv_RoundTrip(t *testing.T) {
	s, _ := newTestSocket()

	payload := []byte("the quick brown fox jumps over the lazy dog")
	require.NoError(t, s.Send(payload))

	out := make([]byte, s.cfg.LinkMTU())
	n, err := s.Recv(out)
	require.NoError(t, err)
	assert.Equal(t, payload, out[:n])
}

func TestRecv_UndersizedBufferCapsDelivery(t *testing.T) {
	s, _ := newTestSocket()

	payload := []byte("hello world")
	require.NoError(t, s.Send(payload))

	out := make([]byte, 5)
	n, err := s.Recv(out)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, payload[:5], out)
}

func TestRecv_SequenceGapReturnsOutOfSync(t *testing.T) {
	s, phys := newTestSocket()

	require.NoError(t, s.Send([]byte("hello")))
	// Drop the first fragment to force a sequence mismatch.
	phys.frames = phys.frames[1:]

	out := make([]byte, s.cfg.LinkMTU())
	_, err := s.Recv(out)
	assert.ErrorIs(t, err, protoerr.ErrOutOfSync)
}

func TestRecv_ResyncFlushesToNextFreshPacket(t *testing.T) {
	s, phys := newTestSocket()

	require.NoError(t, s.Send([]byte("first")))
	require.NoError(t, s.Send([]byte("second")))
	// Drop the first packet's leading fragment so recv sees a
	// mismatched sequence immediately, then resync flushes the rest
	// of "first" until the next seq-0 fragment (the start of
	// "second").
	phys.frames = phys.frames[1:]

	out := make([]byte, s.cfg.LinkMTU())
	_, err := s.Recv(out)
	assert.ErrorIs(t, err, protoerr.ErrOutOfSync)

	n, err := s.Recv(out)
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), out[:n])
}

func TestSend_RejectsOversizedPacket(t *testing.T) {
	s, _ := newTestSocket()

	err := s.Send(make([]byte, s.MaxPacketSize()+1))
	assert.ErrorIs(t, err, protoerr.ErrInvalid)
}
