package diarize

import (
	"math"

	"github.com/minutewire/minutewire/pkg/audio"
)

// Estimator derives a raw [FeatureVector] from utterance audio. It is a
// deliberately lightweight signal-analysis pass: autocorrelation pitch over
// short windows, a zero-crossing formant proxy, and Goertzel band energies.
// The output still goes through [FeatureVector.Normalize] before clustering;
// the estimator only has to be consistent, not acoustically exact.
//
// An Estimator is stateless and safe for concurrent use.
type Estimator struct {
	sampleRate int
}

// Pitch search range in Hz, matching the feature clamp range.
const (
	pitchMin = 80
	pitchMax = 400

	// windowMs is the analysis window length. 30 ms at 16 kHz gives 480
	// samples, enough for two periods at the lowest tracked pitch.
	windowMs = 30

	// voicedRMSFloor gates pitch tracking: windows quieter than this are
	// treated as unvoiced and contribute no pitch sample.
	voicedRMSFloor = 0.005
)

// Representative frequencies for the three spectral bands (Hz):
// low 0–1 kHz, mid 1–3 kHz, high 3–8 kHz.
var bandFreqs = [3]float64{500, 2000, 5000}

// NewEstimator creates an Estimator for the given sample rate.
func NewEstimator(sampleRate int) *Estimator {
	if sampleRate <= 0 {
		sampleRate = audio.DefaultSampleRate
	}
	return &Estimator{sampleRate: sampleRate}
}

// Extract computes the raw feature vector for one utterance. Short or silent
// input yields a vector of zeros, which the normalization clamps map to the
// range floors.
func (e *Estimator) Extract(samples []float32) FeatureVector {
	window := e.sampleRate * windowMs / 1000
	if window <= 0 || len(samples) < window {
		return FeatureVector{Duration: float64(len(samples)) / float64(e.sampleRate)}
	}

	var (
		pitches  []float64
		energies []float64
		zcrSum   float64
		bandSum  [3]float64
		windows  int
	)

	for off := 0; off+window <= len(samples); off += window {
		w := samples[off : off+window]
		windows++

		rms := audio.RMS(w)
		energies = append(energies, rms)
		zcrSum += zeroCrossingRate(w)

		total := 0.0
		var power [3]float64
		for i, f := range bandFreqs {
			power[i] = goertzelPower(w, f, e.sampleRate)
			total += power[i]
		}
		if total > 0 {
			for i := range power {
				bandSum[i] += power[i] / total
			}
		}

		if rms >= voicedRMSFloor {
			if p, ok := autocorrelationPitch(w, e.sampleRate); ok {
				pitches = append(pitches, p)
			}
		}
	}

	v := FeatureVector{
		Duration: float64(len(samples)) / float64(e.sampleRate),
	}
	v.Pitch, v.PitchVariance = meanAndVariance(pitches)
	v.Energy, v.EnergyVariance = meanAndVariance(energies)

	// Zero-crossing rate tracks spectral brightness, a crude but stable
	// vocal-tract proxy; map the typical speech range onto [0, 100].
	v.Formant = clamp(zcrSum/float64(windows)*400, 0, 100)

	if windows > 0 {
		v.LowBand = bandSum[0] / float64(windows)
		v.MidBand = bandSum[1] / float64(windows)
		v.HighBand = bandSum[2] / float64(windows)
	}
	return v
}

// autocorrelationPitch estimates the fundamental frequency of one window by
// locating the autocorrelation peak within the tracked pitch range. Returns
// false when no lag clearly dominates (unvoiced or noisy window).
func autocorrelationPitch(w []float32, sampleRate int) (float64, bool) {
	minLag := sampleRate / pitchMax
	maxLag := sampleRate / pitchMin
	if maxLag >= len(w) {
		maxLag = len(w) - 1
	}
	if minLag < 1 || minLag >= maxLag {
		return 0, false
	}

	var zeroLag float64
	for _, s := range w {
		zeroLag += float64(s) * float64(s)
	}
	if zeroLag == 0 {
		return 0, false
	}

	bestLag, bestCorr := 0, 0.0
	for lag := minLag; lag <= maxLag; lag++ {
		var corr float64
		for i := 0; i+lag < len(w); i++ {
			corr += float64(w[i]) * float64(w[i+lag])
		}
		if corr > bestCorr {
			bestCorr = corr
			bestLag = lag
		}
	}

	// Require the peak to carry a meaningful fraction of the signal energy,
	// otherwise the window is treated as unvoiced.
	if bestLag == 0 || bestCorr/zeroLag < 0.3 {
		return 0, false
	}
	return float64(sampleRate) / float64(bestLag), true
}

// goertzelPower evaluates the Goertzel algorithm at the target frequency and
// returns the spectral power of that bin.
func goertzelPower(w []float32, freq float64, sampleRate int) float64 {
	omega := 2 * math.Pi * freq / float64(sampleRate)
	coeff := 2 * math.Cos(omega)
	var s0, s1, s2 float64
	for _, x := range w {
		s0 = float64(x) + coeff*s1 - s2
		s2 = s1
		s1 = s0
	}
	return s1*s1 + s2*s2 - coeff*s1*s2
}

func zeroCrossingRate(w []float32) float64 {
	if len(w) < 2 {
		return 0
	}
	var crossings int
	for i := 1; i < len(w); i++ {
		if (w[i-1] >= 0) != (w[i] >= 0) {
			crossings++
		}
	}
	return float64(crossings) / float64(len(w)-1)
}

func meanAndVariance(xs []float64) (mean, variance float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	for _, x := range xs {
		d := x - mean
		variance += d * d
	}
	variance /= float64(len(xs))
	return mean, variance
}
