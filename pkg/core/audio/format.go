// Package audio holds the PCM utilities used by the live session engine:
// WAV encoding, buffer analysis, energy measurement, bounded buffers and the
// debug recorder that dumps captured audio to disk.
//
// All PCM handled here is signed 16-bit little-endian.
package audio

import "fmt"

// Format specifies audio format parameters.
type Format struct {
	// SampleRate in Hz. Common values: 16000, 24000, 44100, 48000.
	SampleRate int `json:"sample_rate"`

	// Channels: 1 for mono, 2 for stereo.
	Channels int `json:"channels"`

	// BitsPerSample: 16 for the PCM handled by this package.
	BitsPerSample int `json:"bits_per_sample"`
}

// DefaultFormat returns the format the upstream channel expects.
func DefaultFormat() Format {
	return Format{
		SampleRate:    24000,
		Channels:      1,
		BitsPerSample: 16,
	}
}

// BytesPerSecond returns the audio byte rate.
func (f Format) BytesPerSecond() int {
	return f.SampleRate * f.Channels * (f.BitsPerSample / 8)
}

// BlockAlign returns the size of one frame (one sample for every channel).
func (f Format) BlockAlign() int {
	return f.Channels * (f.BitsPerSample / 8)
}

// DurationMs returns the duration in milliseconds for the given byte count.
func (f Format) DurationMs(bytes int) int {
	if f.BytesPerSecond() == 0 {
		return 0
	}
	return (bytes * 1000) / f.BytesPerSecond()
}

// BytesForDurationMs returns the byte count for the given duration in milliseconds.
func (f Format) BytesForDurationMs(ms int) int {
	return (f.BytesPerSecond() * ms) / 1000
}

// MIMEType returns the upstream MIME type for raw PCM in this format.
func (f Format) MIMEType() string {
	return fmt.Sprintf("audio/pcm;rate=%d", f.SampleRate)
}
