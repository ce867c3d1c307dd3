package fft

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculate_FrameCountMismatch(t *testing.T) {
	e := New(64, 8000)
	_, err := e.Calculate(make([]float64, 10))
	require.Error(t, err)
}

func TestCalculate_SingleToneHasPeakAtExpectedBin(t *testing.T) {
	const (
		frameCount = 256
		sampleRate = 8000
		toneHz     = 1000.0
	)

	e := New(frameCount, sampleRate)
	samples := make([]float64, frameCount)
	for i := range samples {
		samples[i] = math.Sin(2 * math.Pi * toneHz * float64(i) / float64(sampleRate))
	}

	bins, err := e.Calculate(samples)
	require.NoError(t, err)
	require.Len(t, bins, frameCount/2+1)

	peak := bins[0]
	for _, b := range bins {
		if b.Magnitude > peak.Magnitude {
			peak = b
		}
	}

	assert.InDelta(t, toneHz, peak.FrequencyHz, sampleRate/float64(frameCount))
}

func TestCalculate_SilenceHasNegligibleMagnitude(t *testing.T) {
	e := New(128, 8000)
	bins, err := e.Calculate(make([]float64, 128))
	require.NoError(t, err)
	for _, b := range bins {
		assert.InDelta(t, 0, b.Magnitude, 1e-9)
	}
}
