// Package physical implements the half-duplex octet-frame transport:
// a sender that composes a preamble/data/separator/post sound
// sequence, and a receiver state machine driven by the audio
// capture callback that buffers completed frames in a ring.
package physical

import (
	"fmt"
	"sync"
	"time"

	"github.com/tadnir/audionet/internal/audio"
	"github.com/tadnir/audionet/internal/config"
	"github.com/tadnir/audionet/internal/fft"
	"github.com/tadnir/audionet/internal/modem"
	"github.com/tadnir/audionet/internal/protoerr"
)

// state is the receive state machine's current state.
type state int

const (
	statePreamble state = iota
	stateWord
	stateDiscarding
)

// frameSlot holds one completed (or in-progress) physical frame.
type frameSlot struct {
	size   int
	ready  bool
	buffer []byte
}

// AudioBackend is the subset of *audio.Backend the physical layer
// depends on. Declaring it as an interface here lets tests drive the
// state machine with a synthetic backend instead of real hardware.
type AudioBackend interface {
	SetRecordingCallback(fn audio.RecordingCallback)
	Start() error
	Stop() error
	Close() error
	PlaySounds(sounds []audio.SoundDescriptor) error
}

// Socket is one endpoint of the physical layer: it owns the audio
// backend and FFT engine, and runs the receive state machine inline
// in the audio capture callback.
//
// The receive ring is single-producer (the capture callback),
// single-consumer (Peek/Pop/Recv callers). A mutex guards it instead
// of manual memory fences — simpler to read and just as correct for
// the buffer sizes this protocol deals with.
type Socket struct {
	cfg   config.Config
	audio AudioBackend
	fft   *fft.Engine
	freq  *modem.Codec

	mu         sync.Mutex
	state      state
	votes      [256]int
	voted      bool
	ring       []frameSlot
	writeIndex int
	readIndex  int
}

// New builds a physical-layer socket over the given audio backend,
// wires its own FFT engine and frequency codec from cfg, and starts
// the audio backend's capture loop.
func New(cfg config.Config, backend AudioBackend) (*Socket, error) {
	s := &Socket{
		cfg:   cfg,
		audio: backend,
		fft:   fft.New(cfg.FFTFrame, cfg.SampleRate),
		freq:  modem.New(cfg),
		ring:  make([]frameSlot, cfg.FrameRing),
	}
	for i := range s.ring {
		s.ring[i].buffer = make([]byte, cfg.PhysicalMTU)
	}

	backend.SetRecordingCallback(s.onCapture)
	if err := backend.Start(); err != nil {
		return nil, fmt.Errorf("physical: start audio backend: %w", err)
	}
	return s, nil
}

// Close stops the underlying audio backend.
func (s *Socket) Close() error {
	if err := s.audio.Stop(); err != nil {
		return err
	}
	return s.audio.Close()
}

// onCapture is the audio callback entry point: decode one capture
// buffer into a symbol, classify it, and drive the state machine.
func (s *Socket) onCapture(samples []float32) {
	bins, err := s.calculateSpectrum(samples)
	if err != nil {
		return
	}

	v, err := s.freq.DecodeFrequencies(bins)
	if err != nil {
		// Quiet or unrecognised spectrum: ignore, matching every row
		// of the receive table for "Quiet / Unknown".
		return
	}

	class, data := s.freq.Classify(v)
	if class == modem.ClassUnknown {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	switch class {
	case modem.ClassData:
		s.onData(data)
	case modem.ClassPreamble:
		s.onPreamble()
	case modem.ClassSeparator:
		s.onSeparator()
	case modem.ClassPost:
		s.onPost()
	}
}

func (s *Socket) calculateSpectrum(samples []float32) ([]fft.Bin, error) {
	if len(samples) != s.fft.FrameCount() {
		return nil, fmt.Errorf("physical: %w", protoerr.ErrInvalid)
	}
	f64 := make([]float64, len(samples))
	for i, v := range samples {
		f64[i] = float64(v)
	}
	return s.fft.Calculate(f64)
}

func (s *Socket) onData(b byte) {
	if s.state != stateWord {
		return
	}
	s.voted = true
	s.votes[b]++
}

func (s *Socket) onPreamble() {
	switch s.state {
	case statePreamble:
		if s.ring[s.writeIndex].ready {
			// The write slot is still full and was never popped: the
			// previous frame's POST was missed. Start discarding
			// symbols until the next POST, or until a later preamble
			// finds the write slot free.
			s.state = stateDiscarding
			return
		}
		s.state = stateWord
		s.ring[s.writeIndex].size = 0
	case stateDiscarding:
		// A fresh preamble recovers the frame if the write slot has
		// freed up since we started discarding.
		if s.ring[s.writeIndex].ready {
			return
		}
		s.state = stateWord
		s.ring[s.writeIndex].size = 0
	}
}

func (s *Socket) onSeparator() {
	if s.state != stateWord || !s.voted {
		return
	}
	s.voted = false

	slot := &s.ring[s.writeIndex]
	if slot.size >= s.cfg.PhysicalMTU {
		s.state = stateDiscarding
	} else {
		slot.buffer[slot.size] = argmax(s.votes[:])
		slot.size++
	}
	s.votes = [256]int{}
}

func (s *Socket) onPost() {
	switch s.state {
	case stateDiscarding, statePreamble:
		if !s.ring[s.writeIndex].ready {
			s.ring[s.writeIndex].size = 0
		}
		s.state = statePreamble
	default: // stateWord
		slot := &s.ring[s.writeIndex]
		if slot.size > 0 {
			slot.ready = true
			s.writeIndex = (s.writeIndex + 1) % len(s.ring)
		}
		s.votes = [256]int{}
		s.voted = false
		s.state = statePreamble
	}
}

// argmax returns the index of the largest value in votes, the
// majority-vote winner for the byte just received.
func argmax(votes []int) byte {
	best := 0
	for i, v := range votes {
		if v > votes[best] {
			best = i
		}
	}
	return byte(best)
}

// Send blocks until the sound sequence encoding frame has finished
// playing: one preamble, a data+separator pair per byte, one post.
func (s *Socket) Send(frame []byte) error {
	if len(frame) == 0 || len(frame) > s.cfg.PhysicalMTU {
		return fmt.Errorf("physical: send: %w", protoerr.ErrInvalid)
	}

	sounds := make([]audio.SoundDescriptor, 0, 2+2*len(frame))
	sound, err := s.sound(s.cfg.PreambleDuration, modem.PreambleSignal)
	if err != nil {
		return err
	}
	sounds = append(sounds, sound)

	for _, b := range frame {
		sound, err := s.sound(s.cfg.SymbolDuration, uint64(b))
		if err != nil {
			return err
		}
		sounds = append(sounds, sound)

		sound, err = s.sound(s.cfg.SeparatorDuration, modem.SeparatorSignal)
		if err != nil {
			return err
		}
		sounds = append(sounds, sound)
	}

	sound, err = s.sound(s.cfg.PostDuration, modem.PostSignal)
	if err != nil {
		return err
	}
	sounds = append(sounds, sound)

	if err := s.audio.PlaySounds(sounds); err != nil {
		return fmt.Errorf("physical: %w: %v", protoerr.ErrBackend, err)
	}
	return nil
}

func (s *Socket) sound(d time.Duration, v uint64) (audio.SoundDescriptor, error) {
	freqs, err := s.freq.EncodeFrequencies(v)
	if err != nil {
		return audio.SoundDescriptor{}, fmt.Errorf("physical: encode value %d: %w", v, err)
	}
	return audio.SoundDescriptor{
		DurationMs:  uint32(d.Milliseconds()),
		Frequencies: freqs,
	}, nil
}

// Peek returns the size of the head ring slot without popping it. If
// the slot isn't ready and blocking is true, it waits up to the
// configured receive timeout in one-second ticks; if not ready and
// non-blocking, it returns 0 immediately.
func (s *Socket) Peek(out []byte, blocking bool) (int, error) {
	deadline := time.Now().Add(s.cfg.RecvTimeout)
	for {
		if n, ok := s.tryPeek(out); ok {
			return n, nil
		}
		if !blocking {
			return 0, nil
		}
		if time.Now().After(deadline) {
			return 0, fmt.Errorf("physical: peek: %w", protoerr.ErrTimeout)
		}
		time.Sleep(time.Second)
	}
}

func (s *Socket) tryPeek(out []byte) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot := &s.ring[s.readIndex]
	if !slot.ready {
		return 0, false
	}

	n := slot.size
	if n > len(out) {
		n = len(out)
	}
	copy(out, slot.buffer[:n])
	return n, true
}

// Pop drops the head slot if ready and advances the read index. A
// no-op if the head slot isn't ready.
func (s *Socket) Pop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot := &s.ring[s.readIndex]
	if !slot.ready {
		return
	}
	slot.size = 0
	slot.ready = false
	s.readIndex = (s.readIndex + 1) % len(s.ring)
}

// Recv is a blocking Peek followed by Pop on success.
func (s *Socket) Recv(out []byte) (int, error) {
	n, err := s.Peek(out, true)
	if err != nil {
		return 0, err
	}
	s.Pop()
	return n, nil
}
