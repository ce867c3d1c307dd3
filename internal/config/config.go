// Package config holds the single compile-time tunable record shared by
// every layer of the acoustic modem stack.
package config

import "time"

// Config collects every tunable named in the protocol design: the
// frequency plan, the physical/link/transport MTUs, and the audio/FFT
// front-end parameters. Carrying these as a struct rather than bare
// package constants lets tests build alternate plans (e.g. a small `M`
// for ring-overflow tests) without mutating shared state.
type Config struct {
	// Frequency plan.
	BaseFrequencyHz   float64 // F0
	ChannelBandWidthHz float64 // W
	NumChannels       int     // N
	Concurrency       int     // K
	MagnitudeThreshold float64 // T

	// Physical / link layer sizing.
	PhysicalMTU int // PHY_MTU
	FrameRing   int // M, ready-slot ring depth

	// Audio front-end.
	SampleRate int // samples/sec
	FFTFrame   int // samples per FFT window

	// Symbol timing.
	SymbolDuration    time.Duration
	PreambleDuration  time.Duration
	PostDuration      time.Duration
	SeparatorDuration time.Duration

	// Receive timeout for a blocking physical-layer peek/recv.
	RecvTimeout time.Duration
}

// Default returns the reference configuration values from the protocol
// design: F0=100, W=150, N=13, K=3, T=0.1, PHY_MTU=9, SAMPLE_RATE=48000,
// FFT_FRAME=3600, SYMBOL_MS=150, PRE_MS=300, POST_MS=300, SEP_MS=150,
// M=50, RECV_TIMEOUT_SEC=6.
func Default() Config {
	return Config{
		BaseFrequencyHz:    100,
		ChannelBandWidthHz: 150,
		NumChannels:        13,
		Concurrency:        3,
		MagnitudeThreshold: 0.1,

		PhysicalMTU: 9,
		FrameRing:   50,

		SampleRate: 48000,
		FFTFrame:   3600,

		SymbolDuration:    150 * time.Millisecond,
		PreambleDuration:  300 * time.Millisecond,
		PostDuration:      300 * time.Millisecond,
		SeparatorDuration: 150 * time.Millisecond,

		RecvTimeout: 6 * time.Second,
	}
}

// LinkMTU returns the maximum link-layer packet size: 256 fragments of
// up to PhysicalMTU-1 payload bytes each.
func (c Config) LinkMTU() int {
	return 256 * (c.PhysicalMTU - 1)
}
