// Package diarize implements Minutewire's online, unsupervised speaker
// diarization: a fixed-shape acoustic feature vector per utterance, a
// weighted-distance nearest-centroid clusterer with adaptive thresholds, and
// a lightweight feature estimator for raw PCM.
//
// The clustering is a heuristic, best-effort online algorithm — deterministic
// for a given utterance sequence, O(speaker count) per utterance, with no
// batch or retraining step.
package diarize

import "time"

// FeatureVector is the per-utterance acoustic descriptor consumed by the
// clusterer. All fields must be clamped via [FeatureVector.Normalize] before
// any distance computation; the clusterer normalizes defensively on every
// assignment so malformed or missing fields degrade to clamp boundaries
// rather than propagating as failures.
type FeatureVector struct {
	// Pitch is the fundamental frequency estimate in Hz. Range [80, 400].
	Pitch float64 `json:"pitch"`

	// Formant is a vocal-tract proxy score. Range [0, 100].
	Formant float64 `json:"formant"`

	// Energy is the mean RMS level. Range [0, 1].
	Energy float64 `json:"energy"`

	// LowBand, MidBand, HighBand are relative spectral band energies,
	// each in [0, 1].
	LowBand  float64 `json:"lowBand"`
	MidBand  float64 `json:"midBand"`
	HighBand float64 `json:"highBand"`

	// PitchVariance is the variance of per-window pitch estimates.
	// Range [0, 1000].
	PitchVariance float64 `json:"pitchVariance"`

	// EnergyVariance is the variance of per-window RMS. Range [0, 1].
	EnergyVariance float64 `json:"energyVariance"`

	// Duration is the utterance length in seconds. Not used in the distance;
	// carried for weighting centroid bookkeeping and export.
	Duration float64 `json:"duration"`
}

// Normalize returns v with every field clamped to its documented range.
// This must run identically on every vector before distance computation.
func (v FeatureVector) Normalize() FeatureVector {
	v.Pitch = clamp(v.Pitch, 80, 400)
	v.Formant = clamp(v.Formant, 0, 100)
	v.Energy = clamp(v.Energy, 0, 1)
	v.LowBand = clamp(v.LowBand, 0, 1)
	v.MidBand = clamp(v.MidBand, 0, 1)
	v.HighBand = clamp(v.HighBand, 0, 1)
	v.PitchVariance = clamp(v.PitchVariance, 0, 1000)
	v.EnergyVariance = clamp(v.EnergyVariance, 0, 1)
	if v.Duration < 0 {
		v.Duration = 0
	}
	return v
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// Speaker is one tracked speaker identity. The centroid is a running
// exponential moving average of the assigned utterances' feature vectors.
// Speakers are created lazily and never deleted.
type Speaker struct {
	// ID is the zero-based speaker index, stable for the session lifetime.
	ID int `json:"id"`

	// Name is the display name ("Speaker 1", ...). Renaming is allowed;
	// identity is carried by ID.
	Name string `json:"name"`

	// ColorTag is a stable UI hint drawn from a fixed palette.
	ColorTag string `json:"colorTag"`

	// Centroid is the running-average feature vector.
	Centroid FeatureVector `json:"centroid"`

	// UtteranceCount is the number of utterances assigned to this speaker.
	UtteranceCount int `json:"utteranceCount"`

	// TotalDuration is the summed speech time assigned to this speaker.
	TotalDuration time.Duration `json:"totalDuration"`
}
