// Package audio provides audio extraction from video sources, additive
// mixing with normalization, and WAV encoding for the mux phase.
//
// Samples are mono float64 in [-1, 1] at a fixed 44.1 kHz rate. Extraction
// failures are degraded, not fatal: a source without a usable audio track
// simply contributes nothing to the mix.
package audio

// SampleRate is the fixed processing sample rate in Hz.
const SampleRate = 44100

// mixHeadroom is the peak amplitude the normalized mix is scaled to,
// leaving headroom against clipping.
const mixHeadroom = 0.8
