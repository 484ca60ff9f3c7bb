package audio

import "math"

// Level is the loudness of a PCM buffer. Both values are normalized to
// [0, 1] against full scale.
type Level struct {
	RMS  float64 `json:"rms"`
	Peak float64 `json:"peak"`
}

// MeasureLevel reads pcm as 16-bit little-endian samples. A trailing odd
// byte is ignored and an empty buffer measures zero.
func MeasureLevel(pcm []byte) Level {
	count := len(pcm) / 2
	if count == 0 {
		return Level{}
	}

	var sumSquares, peak float64
	for i := 0; i < count*2; i += 2 {
		v := float64(sampleAt(pcm, i)) / 32768
		sumSquares += v * v
		peak = max(peak, math.Abs(v))
	}
	return Level{RMS: math.Sqrt(sumSquares / float64(count)), Peak: peak}
}

func sampleAt(pcm []byte, i int) int16 {
	return int16(pcm[i]) | int16(pcm[i+1])<<8
}
