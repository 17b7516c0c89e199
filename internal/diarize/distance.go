package diarize

import "math"

// Per-dimension weights reflecting discriminative value for voice identity.
const (
	weightPitch         = 2.0
	weightFormant       = 1.8
	weightMidBand       = 1.5
	weightLowBand       = 1.2
	weightHighBand      = 1.0
	weightEnergy        = 0.5
	weightPitchVariance = 0.8
)

// Fixed normalization divisors applied to each raw difference before
// squaring and weighting. Band differences are already in [0, 1] and are
// used unscaled.
const (
	scalePitch         = 200
	scaleFormant       = 50
	scaleEnergy        = 0.1
	scalePitchVariance = 100
)

// sumWeights is the total of all dimension weights, used to bound the final
// score so distances are comparable regardless of dimensionality.
const sumWeights = weightPitch + weightFormant + weightMidBand +
	weightLowBand + weightHighBand + weightEnergy + weightPitchVariance

// Distance returns the weighted Euclidean distance between two normalized
// feature vectors, divided by the square root of the summed weights. Both
// inputs must already be normalized.
func Distance(a, b FeatureVector) float64 {
	var sum float64

	d := (a.Pitch - b.Pitch) / scalePitch
	sum += weightPitch * d * d

	d = (a.Formant - b.Formant) / scaleFormant
	sum += weightFormant * d * d

	d = a.MidBand - b.MidBand
	sum += weightMidBand * d * d

	d = a.LowBand - b.LowBand
	sum += weightLowBand * d * d

	d = a.HighBand - b.HighBand
	sum += weightHighBand * d * d

	d = (a.Energy - b.Energy) / scaleEnergy
	sum += weightEnergy * d * d

	d = (a.PitchVariance - b.PitchVariance) / scalePitchVariance
	sum += weightPitchVariance * d * d

	return math.Sqrt(sum) / math.Sqrt(sumWeights)
}
