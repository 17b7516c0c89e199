package audio

import "encoding/binary"

// PCM16ToFloat32 converts interleaved 16-bit little-endian signed PCM to mono
// float32 samples in [-1, 1]. Multi-channel input is downmixed by averaging
// the channels of each sample frame. A trailing partial sample frame is
// dropped.
func PCM16ToFloat32(pcm []byte, channels int) []float32 {
	if channels <= 0 {
		channels = 1
	}
	bytesPerFrame := 2 * channels
	frames := len(pcm) / bytesPerFrame
	out := make([]float32, 0, frames)
	for i := 0; i < frames; i++ {
		var acc float64
		for c := 0; c < channels; c++ {
			off := i*bytesPerFrame + c*2
			s := int16(binary.LittleEndian.Uint16(pcm[off : off+2]))
			acc += float64(s) / 32768.0
		}
		out = append(out, float32(acc/float64(channels)))
	}
	return out
}

// Float32ToPCM16 converts mono float32 samples in [-1, 1] to 16-bit
// little-endian signed PCM. Samples outside [-1, 1] are clipped.
func Float32ToPCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		v := int16(s * 32767)
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	return out
}
