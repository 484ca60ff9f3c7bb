package audio

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pcmFromSamples(samples ...int16) []byte {
	pcm := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(s))
	}
	return pcm
}

func TestEncodeWAV_Header(t *testing.T) {
	pcm := pcmFromSamples(1, -1, 300, -300, 20000)
	wav := EncodeWAV(pcm, DefaultFormat())

	require.Len(t, wav, WAVHeaderSize+len(pcm))
	le := binary.LittleEndian

	assert.Equal(t, "RIFF", string(wav[0:4]))
	assert.Equal(t, uint32(36+len(pcm)), le.Uint32(wav[4:8]))
	assert.Equal(t, "WAVE", string(wav[8:12]))
	assert.Equal(t, "fmt ", string(wav[12:16]))
	assert.Equal(t, uint32(16), le.Uint32(wav[16:20]))
	assert.Equal(t, uint16(1), le.Uint16(wav[20:22]), "format code")
	assert.Equal(t, uint16(1), le.Uint16(wav[22:24]), "channels")
	assert.Equal(t, uint32(24000), le.Uint32(wav[24:28]), "sample rate")
	assert.Equal(t, uint32(48000), le.Uint32(wav[28:32]), "byte rate")
	assert.Equal(t, uint16(2), le.Uint16(wav[32:34]), "block align")
	assert.Equal(t, uint16(16), le.Uint16(wav[34:36]), "bits per sample")
	assert.Equal(t, "data", string(wav[36:40]))
	assert.Equal(t, uint32(len(pcm)), le.Uint32(wav[40:44]))
	assert.Equal(t, pcm, wav[WAVHeaderSize:], "payload must pass through unchanged")
}

func TestEncodeWAV_StereoFormat(t *testing.T) {
	format := Format{SampleRate: 44100, Channels: 2, BitsPerSample: 16}
	wav := EncodeWAV(make([]byte, 8), format)
	le := binary.LittleEndian

	assert.Equal(t, uint16(2), le.Uint16(wav[22:24]))
	assert.Equal(t, uint32(44100*2*2), le.Uint32(wav[28:32]))
	assert.Equal(t, uint16(4), le.Uint16(wav[32:34]))
}

func TestEncodeWAV_MagicForAnyNonEmptyInput(t *testing.T) {
	for _, n := range []int{1, 2, 3, 100, 4801} {
		wav := EncodeWAV(make([]byte, n), DefaultFormat())
		assert.Equal(t, "RIFF", string(wav[0:4]))
		assert.Equal(t, "WAVE", string(wav[8:12]))
		assert.Equal(t, "fmt ", string(wav[12:16]))
	}
}

func TestAnalyze_AllZero(t *testing.T) {
	for _, n := range []int{2, 10, 4800} {
		a := Analyze(make([]byte, n))
		assert.Equal(t, n/2, a.SampleCount)
		assert.Equal(t, 0, a.MinValue)
		assert.Equal(t, 0, a.MaxValue)
		assert.Equal(t, 100.0, a.SilencePercentage)
	}
}

func TestAnalyze_FullScaleSignal(t *testing.T) {
	a := Analyze(pcmFromSamples(20000, -20000))
	assert.Equal(t, Analysis{
		SampleCount:       2,
		MinValue:          -20000,
		MaxValue:          20000,
		SilencePercentage: 0,
	}, a)
}

func TestAnalyze_Empty(t *testing.T) {
	a := Analyze(nil)
	assert.Equal(t, 0, a.SampleCount)
	assert.Equal(t, 100.0, a.SilencePercentage)
}

func TestAnalyze_OddLengthTruncates(t *testing.T) {
	pcm := append(pcmFromSamples(500, -50), 0x7f)
	a := Analyze(pcm)
	assert.Equal(t, 2, a.SampleCount)
	assert.Equal(t, -50, a.MinValue)
	assert.Equal(t, 500, a.MaxValue)
	assert.Equal(t, 50.0, a.SilencePercentage)
}

func TestAnalyze_ThresholdIsInclusive(t *testing.T) {
	a := Analyze(pcmFromSamples(SilenceThreshold, -SilenceThreshold, SilenceThreshold+1, -SilenceThreshold-1))
	assert.Equal(t, 50.0, a.SilencePercentage)
}

func TestStereoToMono(t *testing.T) {
	stereo := pcmFromSamples(10, -10, 20, -20, 30)
	mono := StereoToMono(stereo)
	assert.Equal(t, pcmFromSamples(10, 20), mono)
}

func TestFormat(t *testing.T) {
	f := DefaultFormat()

	// 24kHz, mono, 16-bit = 48000 bytes/second
	assert.Equal(t, 48000, f.BytesPerSecond())
	assert.Equal(t, 4800, f.BytesForDurationMs(100))
	assert.Equal(t, 1000, f.DurationMs(48000))
	assert.Equal(t, "audio/pcm;rate=24000", f.MIMEType())
}
