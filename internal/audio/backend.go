package audio

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"

	"github.com/tadnir/audionet/internal/config"
)

// RecordingCallback receives one capture buffer of single-channel f32
// PCM samples. It is invoked from the backend's capture goroutine,
// never concurrently with itself.
type RecordingCallback func(samples []float32)

// SoundDescriptor is one chord: a set of frequencies to mix equally
// and play for a fixed duration.
type SoundDescriptor struct {
	DurationMs  uint32
	Frequencies []float64
}

// Init initializes the PortAudio runtime. Must be called once before
// any Backend is constructed.
func Init() error {
	return portaudio.Initialize()
}

// Terminate shuts down the PortAudio runtime.
func Terminate() error {
	return portaudio.Terminate()
}

// Backend implements the audio I/O contract the physical layer is
// built on: a duplex stream whose capture side feeds a registered
// callback, and whose playback side synthesizes and blocks until a
// queued sequence of sounds has finished. While a sound sequence is
// playing, captured frames are not dispatched to the callback — this
// is the half-duplex policy that keeps the local speaker from being
// picked up by the local microphone.
type Backend struct {
	cfg config.Config

	stream *portaudio.Stream
	inBuf  []float32
	outBuf []float32

	mu       sync.Mutex
	callback RecordingCallback

	playing atomic.Bool
	stopped atomic.Bool
}

// New builds a Backend for the given configuration. Start must be
// called before any capture or playback happens.
func New(cfg config.Config) *Backend {
	frames := cfg.FFTFrame
	return &Backend{
		cfg:    cfg,
		inBuf:  make([]float32, frames),
		outBuf: make([]float32, frames),
	}
}

// SetRecordingCallback registers fn to receive every capture buffer.
// Must be called before Start.
func (b *Backend) SetRecordingCallback(fn RecordingCallback) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.callback = fn
}

// Start opens the duplex stream and begins the capture loop on a
// dedicated goroutine.
func (b *Backend) Start() error {
	stream, err := portaudio.OpenDefaultStream(
		1, 1,
		float64(b.cfg.SampleRate),
		len(b.inBuf),
		b.inBuf, b.outBuf,
	)
	if err != nil {
		return fmt.Errorf("audio: open duplex stream: %w", err)
	}
	b.stream = stream

	if err := b.stream.Start(); err != nil {
		return fmt.Errorf("audio: start stream: %w", err)
	}

	go b.captureLoop()
	return nil
}

func (b *Backend) captureLoop() {
	for !b.stopped.Load() {
		if err := b.stream.Read(); err != nil {
			return
		}
		if b.playing.Load() {
			continue
		}

		b.mu.Lock()
		cb := b.callback
		b.mu.Unlock()
		if cb == nil {
			continue
		}

		frame := make([]float32, len(b.inBuf))
		copy(frame, b.inBuf)
		cb(frame)
	}
}

// Stop halts the capture loop and the underlying stream. Any sender
// blocked in PlaySounds is allowed to finish its current write before
// the stream is stopped.
func (b *Backend) Stop() error {
	b.stopped.Store(true)
	if b.stream == nil {
		return nil
	}
	return b.stream.Stop()
}

// Close releases the stream. Stop should be called first.
func (b *Backend) Close() error {
	if b.stream == nil {
		return nil
	}
	return b.stream.Close()
}

// PlaySounds synthesizes and plays sounds back to back, blocking until
// the whole sequence has finished. Recording dispatch is suppressed
// for the duration.
func (b *Backend) PlaySounds(sounds []SoundDescriptor) error {
	b.playing.Store(true)
	defer b.playing.Store(false)

	for _, s := range sounds {
		samples := synthesize(s, b.cfg.SampleRate)
		if err := b.writeSamples(samples); err != nil {
			return fmt.Errorf("audio: play sound: %w", err)
		}
	}
	return nil
}

// writeSamples pushes samples to the output stream in frame-sized
// chunks, zero-padding the final partial chunk.
func (b *Backend) writeSamples(samples []float32) error {
	frameLen := len(b.outBuf)
	for i := 0; i < len(samples); i += frameLen {
		end := i + frameLen
		if end > len(samples) {
			chunk := make([]float32, frameLen)
			copy(chunk, samples[i:])
			copy(b.outBuf, chunk)
		} else {
			copy(b.outBuf, samples[i:end])
		}
		if err := b.stream.Write(); err != nil {
			return err
		}
	}
	return nil
}

// synthesize renders a sound descriptor as an equal-mix, clamped sine
// wave at the given sample rate.
func synthesize(s SoundDescriptor, sampleRate int) []float32 {
	n := int(float64(sampleRate) * float64(s.DurationMs) / 1000.0)
	out := make([]float32, n)
	if len(s.Frequencies) == 0 {
		return out
	}

	mix := 1.0 / float64(len(s.Frequencies))
	for i := 0; i < n; i++ {
		t := float64(i) / float64(sampleRate)
		var v float64
		for _, f := range s.Frequencies {
			v += mix * math.Sin(2*math.Pi*f*t)
		}
		out[i] = float32(clamp(v, -1, 1))
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
