// Package fft implements the FFT engine contract consumed by the
// physical layer: given a fixed-size window of real audio samples, it
// returns the N/2+1 (frequency, magnitude) bins of the spectrum.
package fft

import (
	"fmt"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Bin is one (frequency, magnitude) pair of the computed spectrum.
type Bin struct {
	FrequencyHz float64
	Magnitude   float64
}

// Engine computes the real FFT of a fixed-size window of samples taken
// at a fixed sample rate. It is built on gonum's dsp/fourier package
// rather than a hand-rolled transform.
type Engine struct {
	fft        *fourier.FFT
	frameCount int
	sampleRate int
	coeffs     []complex128
}

// New initializes an FFT engine for frameCount real samples captured at
// sampleRate Hz. Every subsequent call to Calculate must be given
// exactly frameCount samples.
func New(frameCount, sampleRate int) *Engine {
	return &Engine{
		fft:        fourier.NewFFT(frameCount),
		frameCount: frameCount,
		sampleRate: sampleRate,
	}
}

// FrameCount returns the sample window size this engine was initialized
// with.
func (e *Engine) FrameCount() int { return e.frameCount }

// Calculate computes the FFT of samples, returning N/2+1 bins where bin
// i carries frequency i*sampleRate/frameCount and the magnitude of the
// corresponding (unnormalized) complex coefficient. Fails if len(samples)
// does not match the configured frame count.
func (e *Engine) Calculate(samples []float64) ([]Bin, error) {
	if len(samples) != e.frameCount {
		return nil, fmt.Errorf("fft: frame count mismatch: got %d samples, want %d", len(samples), e.frameCount)
	}

	e.coeffs = e.fft.Coefficients(e.coeffs, samples)

	bins := make([]Bin, len(e.coeffs))
	for i, c := range e.coeffs {
		bins[i] = Bin{
			FrequencyHz: e.fft.Freq(i) * float64(e.sampleRate),
			Magnitude:   cmplx.Abs(c),
		}
	}
	return bins, nil
}
