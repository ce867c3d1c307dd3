// Package modem maps symbol values onto the audible frequency channels
// that carry them, and recovers symbol values from FFT spectra.
package modem

import (
	"fmt"
	"math"
	"sort"

	"github.com/tadnir/audionet/internal/config"
	"github.com/tadnir/audionet/internal/fft"
	"github.com/tadnir/audionet/internal/protoerr"
	"github.com/tadnir/audionet/internal/symbol"
)

// Control signal base values, above the 256-value data range. The
// transmitter emits base+1 of each for tolerance; the receiver accepts
// each whole range up to the next base: [270,275) preamble, [275,280)
// separator, [280, capacity) post.
const (
	DataRange       = 256
	PreambleBase    = 270
	SeparatorBase   = 275
	PostBase        = 280
	PreambleSignal  = PreambleBase + 1
	SeparatorSignal = SeparatorBase + 1
	PostSignal      = PostBase + 1
)

// Class identifies what kind of signal a decoded symbol represents.
type Class int

const (
	ClassUnknown Class = iota
	ClassData
	ClassPreamble
	ClassSeparator
	ClassPost
)

// Codec maps symbol values to audio frequencies and back, wrapping the
// combinatorial symbol.Codec with the channel<->frequency plan.
type Codec struct {
	cfg   config.Config
	chans *symbol.Codec
}

// Classify buckets a decoded symbol value into its signal class. A
// symbol at or beyond the codec's capacity (the reference plan's
// capacity is exactly 286, matching the end of the POST range) is
// ClassUnknown and discarded by callers.
func (c *Codec) Classify(v uint64) (class Class, data byte) {
	switch {
	case v < DataRange:
		return ClassData, byte(v)
	case v >= PreambleBase && v < SeparatorBase:
		return ClassPreamble, 0
	case v >= SeparatorBase && v < PostBase:
		return ClassSeparator, 0
	case v >= PostBase && v < c.chans.Capacity():
		return ClassPost, 0
	default:
		return ClassUnknown, 0
	}
}

// New builds a frequency codec from cfg's frequency plan.
func New(cfg config.Config) *Codec {
	return &Codec{
		cfg:   cfg,
		chans: symbol.New(cfg.NumChannels, cfg.Concurrency),
	}
}

// Capacity returns the number of distinct symbol values this codec can
// represent, C(N,K).
func (c *Codec) Capacity() uint64 { return c.chans.Capacity() }

// channelFrequency maps a channel index to its centre frequency,
// F0 + (c+0.5)*W.
func (c *Codec) channelFrequency(ch int) float64 {
	return c.cfg.BaseFrequencyHz + (float64(ch)+0.5)*c.cfg.ChannelBandWidthHz
}

// frequencyChannel maps a frequency back to the nearest channel index,
// by rounding f/W to the nearest integer and subtracting the base
// channel offset.
func (c *Codec) frequencyChannel(freqHz float64) int {
	baseChannels := math.Round(c.cfg.BaseFrequencyHz / c.cfg.ChannelBandWidthHz)
	return int(math.Round(freqHz/c.cfg.ChannelBandWidthHz) - baseChannels)
}

// EncodeFrequencies returns the K frequencies, rounded to whole hertz,
// that together transmit symbol value v.
func (c *Codec) EncodeFrequencies(v uint64) ([]float64, error) {
	channels, err := c.chans.Encode(v)
	if err != nil {
		return nil, err
	}

	freqs := make([]float64, len(channels))
	for i, ch := range channels {
		freqs[i] = math.Round(c.channelFrequency(ch))
	}
	return freqs, nil
}

// DecodeFrequencies recovers a symbol value from an FFT spectrum. It
// sorts bins by descending magnitude, keeps the first K that round to
// a distinct in-range channel, and rejects collisions/out-of-band
// peaks by skipping them. Returns protoerr.ErrQuiet if fewer than K
// bins qualify.
func (c *Codec) DecodeFrequencies(bins []fft.Bin) (uint64, error) {
	sorted := append([]fft.Bin(nil), bins...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Magnitude > sorted[j].Magnitude
	})

	seen := make(map[int]bool, c.cfg.Concurrency)
	channels := make([]int, 0, c.cfg.Concurrency)
	for _, b := range sorted {
		if b.Magnitude <= c.cfg.MagnitudeThreshold {
			break
		}
		if len(channels) >= c.cfg.Concurrency {
			break
		}

		ch := c.frequencyChannel(b.FrequencyHz)
		if ch < 0 || ch >= c.cfg.NumChannels {
			continue
		}
		if seen[ch] {
			continue
		}
		seen[ch] = true
		channels = append(channels, ch)
	}

	if len(channels) < c.cfg.Concurrency {
		return 0, fmt.Errorf("modem: %w", protoerr.ErrQuiet)
	}

	sort.Ints(channels)
	return c.chans.Decode(channels)
}

// SynthesizeBins builds a spectrum with unit magnitude at each of the
// given frequencies and zero elsewhere, the inverse of picking peaks —
// useful for testing the decode path without a real FFT engine.
func SynthesizeBins(freqs []float64) []fft.Bin {
	bins := make([]fft.Bin, len(freqs))
	for i, f := range freqs {
		bins[i] = fft.Bin{FrequencyHz: f, Magnitude: 1.0}
	}
	return bins
}
