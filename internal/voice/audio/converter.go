// Package audio converts 16-bit little-endian mono PCM between the rates used
// by the media bridge and the model backends.
package audio

import (
	"encoding/base64"
	"encoding/binary"
	"math"
	"time"
)

const (
	// BridgeSampleRate is the rate of audio exchanged with the room
	BridgeSampleRate = 24000
	// GeminiInputSampleRate is the rate the Gemini Live API expects for input
	GeminiInputSampleRate = 16000

	bytesPerSample = 2
)

// Resample converts PCM16 from one rate to another with linear interpolation.
func Resample(pcm []byte, fromRate, toRate int) []byte {
	if fromRate == toRate || fromRate <= 0 || toRate <= 0 {
		return pcm
	}

	in := toSamples(pcm)
	if len(in) == 0 {
		return nil
	}

	outLen := int(int64(len(in)) * int64(toRate) / int64(fromRate))
	out := make([]int16, outLen)
	step := float64(fromRate) / float64(toRate)

	for i := range out {
		pos := float64(i) * step
		idx := int(pos)
		if idx >= len(in)-1 {
			out[i] = in[len(in)-1]
			continue
		}
		frac := pos - float64(idx)
		out[i] = int16(math.Round(float64(in[idx])*(1-frac) + float64(in[idx+1])*frac))
	}

	return fromSamples(out)
}

// Duration reports how long a PCM16 buffer plays at the given rate.
func Duration(pcm []byte, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	samples := len(pcm) / bytesPerSample
	return time.Duration(samples) * time.Second / time.Duration(sampleRate)
}

func Base64ToBytes(base64String string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(base64String)
}

func BytesToBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

func toSamples(pcm []byte) []int16 {
	samples := make([]int16, len(pcm)/bytesPerSample)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(pcm[i*bytesPerSample:]))
	}
	return samples
}

func fromSamples(samples []int16) []byte {
	pcm := make([]byte, len(samples)*bytesPerSample)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(pcm[i*bytesPerSample:], uint16(s))
	}
	return pcm
}
