package audio

import (
	"encoding/binary"
	"math"
)

// WAVHeaderSize is the size of the canonical RIFF/WAVE header written by EncodeWAV.
const WAVHeaderSize = 44

// SilenceThreshold is the absolute sample value at or below which a sample
// counts as silent in Analyze.
const SilenceThreshold = 100

// EncodeWAV wraps raw PCM in a canonical 44-byte WAV header. The payload is
// copied byte for byte; nothing is resampled.
func EncodeWAV(pcm []byte, format Format) []byte {
	if format.SampleRate <= 0 {
		format.SampleRate = 24000
	}
	if format.Channels <= 0 {
		format.Channels = 1
	}
	if format.BitsPerSample <= 0 {
		format.BitsPerSample = 16
	}

	out := make([]byte, WAVHeaderSize+len(pcm))
	le := binary.LittleEndian

	// RIFF descriptor
	copy(out[0:4], "RIFF")
	le.PutUint32(out[4:8], uint32(36+len(pcm)))
	copy(out[8:12], "WAVE")

	// fmt subchunk
	copy(out[12:16], "fmt ")
	le.PutUint32(out[16:20], 16)
	le.PutUint16(out[20:22], 1) // PCM
	le.PutUint16(out[22:24], uint16(format.Channels))
	le.PutUint32(out[24:28], uint32(format.SampleRate))
	le.PutUint32(out[28:32], uint32(format.BytesPerSecond()))
	le.PutUint16(out[32:34], uint16(format.BlockAlign()))
	le.PutUint16(out[34:36], uint16(format.BitsPerSample))

	// data subchunk
	copy(out[36:40], "data")
	le.PutUint32(out[40:44], uint32(len(pcm)))
	copy(out[WAVHeaderSize:], pcm)

	return out
}

// Analysis is a read-only summary of a PCM buffer.
type Analysis struct {
	SampleCount       int     `json:"sampleCount"`
	MinValue          int     `json:"minValue"`
	MaxValue          int     `json:"maxValue"`
	SilencePercentage float64 `json:"silencePercentage"`
}

// Analyze reads pcm as 16-bit little-endian samples and reports the sample
// count, the extreme values and the share of samples within SilenceThreshold.
// A trailing odd byte is ignored. An empty buffer reports 100% silence.
func Analyze(pcm []byte) Analysis {
	count := len(pcm) / 2
	if count == 0 {
		return Analysis{SilencePercentage: 100}
	}

	minV, maxV := math.MaxInt16, math.MinInt16
	silent := 0
	for i := 0; i < count*2; i += 2 {
		s := int(sampleAt(pcm, i))
		if s < minV {
			minV = s
		}
		if s > maxV {
			maxV = s
		}
		if s >= -SilenceThreshold && s <= SilenceThreshold {
			silent++
		}
	}

	return Analysis{
		SampleCount:       count,
		MinValue:          minV,
		MaxValue:          maxV,
		SilencePercentage: float64(silent) * 100 / float64(count),
	}
}

// StereoToMono keeps the left channel of interleaved 16-bit stereo PCM.
// A trailing partial frame is dropped.
func StereoToMono(stereo []byte) []byte {
	frames := len(stereo) / 4
	mono := make([]byte, frames*2)
	for i := 0; i < frames; i++ {
		mono[i*2] = stereo[i*4]
		mono[i*2+1] = stereo[i*4+1]
	}
	return mono
}
