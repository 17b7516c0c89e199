// Package audio defines the PCM types and sample-level helpers shared by the
// Minutewire pipeline.
//
// Audio enters the pipeline as fixed-size [Frame] values produced by an
// external capture subsystem. Frames carry mono float32 samples in [-1, 1] at
// a fixed sample rate (16 kHz throughout the pipeline). [PCM16ToFloat32]
// converts raw 16-bit device or file PCM, downmixing interleaved multi-channel
// input to mono, so callers feeding the pipeline do not have to reimplement
// that.
package audio

import (
	"math"
	"time"
)

// DefaultSampleRate is the working sample rate of the pipeline in Hz.
// External capture and decoding subsystems are expected to resample to this
// rate before handing audio to Minutewire.
const DefaultSampleRate = 16000

// Frame represents a single fixed-size block of audio flowing through the
// pipeline. Frames are ephemeral: the segmenter copies what it needs during
// processing and callers may reuse the backing slice afterwards.
type Frame struct {
	// Samples is mono PCM in [-1, 1].
	Samples []float32

	// SampleRate in Hz (16000 for the STT-optimised pipeline).
	SampleRate int

	// Timestamp marks when this frame was captured, relative to stream start.
	Timestamp time.Duration
}

// Duration returns the play time of the frame.
func (f Frame) Duration() time.Duration {
	if f.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(f.Samples)) * time.Second / time.Duration(f.SampleRate)
}

// RMS returns the root-mean-square energy of samples in [0, 1].
// An empty slice has zero energy.
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}
