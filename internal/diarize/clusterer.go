package diarize

import (
	"fmt"
	"sort"
	"time"
)

// Clusterer defaults.
const (
	// DefaultBaseThreshold is the base assignment distance threshold.
	DefaultBaseThreshold = 0.35

	// DefaultMaxSpeakers caps speaker creation. Utterances arriving after the
	// cap are assigned to the nearest existing speaker without adaptation.
	DefaultMaxSpeakers = 8

	// minSeparationRatio is the required ratio between the second-closest and
	// closest centroid distances. Below it the assignment is ambiguous and a
	// new speaker is created instead, a conservative bias against false merges.
	minSeparationRatio = 1.3

	// thresholdLoosening widens the adaptive threshold per tracked speaker,
	// reflecting increased acceptable intra-speaker variance.
	thresholdLoosening = 0.03

	// emaBase scales the confidence-weighted centroid learning rate.
	emaBase = 0.15
)

// colorPalette supplies one stable UI color tag per speaker slot.
var colorPalette = [DefaultMaxSpeakers]string{
	"blue", "green", "orange", "purple", "red", "teal", "pink", "amber",
}

// Assignment describes the outcome of classifying one utterance.
type Assignment struct {
	// SpeakerID is the assigned speaker index.
	SpeakerID int

	// Created reports whether this utterance caused a new speaker to be
	// created.
	Created bool

	// Distance is the weighted distance to the assigned centroid; zero when
	// a new speaker was created from the vector itself.
	Distance float64
}

// Clusterer is a deterministic online nearest-centroid classifier with EMA
// centroid adaptation and separation-based ambiguity rejection.
//
// Not safe for concurrent use: it must be invoked from the single
// utterance-completion call site of a session, never concurrently for two
// utterances of the same meeting.
type Clusterer struct {
	baseThreshold float64
	maxSpeakers   int
	speakers      []*Speaker
}

// Option is a functional option for [NewClusterer].
type Option func(*Clusterer)

// WithBaseThreshold overrides the base assignment threshold. Default: 0.35.
func WithBaseThreshold(t float64) Option {
	return func(c *Clusterer) { c.baseThreshold = t }
}

// WithMaxSpeakers overrides the speaker creation cap. Default: 8.
func WithMaxSpeakers(n int) Option {
	return func(c *Clusterer) { c.maxSpeakers = n }
}

// NewClusterer creates a Clusterer with the given options.
func NewClusterer(opts ...Option) *Clusterer {
	c := &Clusterer{
		baseThreshold: DefaultBaseThreshold,
		maxSpeakers:   DefaultMaxSpeakers,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Assign classifies one utterance's feature vector, creating a speaker when
// no existing centroid is an unambiguous match and the cap allows it. The
// vector is normalized before use; duration is credited to the assigned
// speaker's totals.
func (c *Clusterer) Assign(v FeatureVector, duration time.Duration) Assignment {
	v = v.Normalize()

	// First utterance bootstraps speaker 0 with the vector as-is.
	if len(c.speakers) == 0 {
		sp := c.newSpeaker(v)
		sp.UtteranceCount = 1
		sp.TotalDuration = duration
		return Assignment{SpeakerID: sp.ID, Created: true}
	}

	type candidate struct {
		id       int
		distance float64
	}
	cands := make([]candidate, len(c.speakers))
	for i, sp := range c.speakers {
		cands[i] = candidate{id: sp.ID, distance: Distance(v, sp.Centroid)}
	}
	sort.Slice(cands, func(i, j int) bool { return cands[i].distance < cands[j].distance })

	closest := cands[0]

	// With a single speaker there is no second distance; treat the
	// separation as comfortably wide.
	separationRatio := 2.0
	if len(cands) > 1 && closest.distance > 0 {
		separationRatio = cands[1].distance / closest.distance
	}

	adaptiveThreshold := c.baseThreshold * (1 + float64(len(c.speakers))*thresholdLoosening)

	if closest.distance < adaptiveThreshold && separationRatio >= minSeparationRatio {
		sp := c.speakers[closest.id]
		sp.adapt(v, closest.distance)
		sp.UtteranceCount++
		sp.TotalDuration += duration
		return Assignment{SpeakerID: sp.ID, Distance: closest.distance}
	}

	if len(c.speakers) < c.maxSpeakers {
		sp := c.newSpeaker(v)
		sp.UtteranceCount = 1
		sp.TotalDuration = duration
		return Assignment{SpeakerID: sp.ID, Created: true}
	}

	// Cap reached: assign to the nearest speaker without moving its
	// centroid. Degraded but defined.
	sp := c.speakers[closest.id]
	sp.UtteranceCount++
	sp.TotalDuration += duration
	return Assignment{SpeakerID: sp.ID, Distance: closest.distance}
}

// Speakers returns a copy of the current speaker list, ordered by ID.
func (c *Clusterer) Speakers() []Speaker {
	out := make([]Speaker, len(c.speakers))
	for i, sp := range c.speakers {
		out[i] = *sp
	}
	return out
}

// Count returns the number of tracked speakers.
func (c *Clusterer) Count() int { return len(c.speakers) }

func (c *Clusterer) newSpeaker(v FeatureVector) *Speaker {
	id := len(c.speakers)
	sp := &Speaker{
		ID:       id,
		Name:     fmt.Sprintf("Speaker %d", id+1),
		ColorTag: colorPalette[id%len(colorPalette)],
		Centroid: v,
	}
	c.speakers = append(c.speakers, sp)
	return sp
}

// adapt moves the centroid toward v with a confidence-weighted EMA: closer
// matches pull harder.
func (sp *Speaker) adapt(v FeatureVector, distance float64) {
	confidence := 1 / (1 + distance)
	alpha := emaBase * confidence
	cen := &sp.Centroid
	cen.Pitch = ema(cen.Pitch, v.Pitch, alpha)
	cen.Formant = ema(cen.Formant, v.Formant, alpha)
	cen.Energy = ema(cen.Energy, v.Energy, alpha)
	cen.LowBand = ema(cen.LowBand, v.LowBand, alpha)
	cen.MidBand = ema(cen.MidBand, v.MidBand, alpha)
	cen.HighBand = ema(cen.HighBand, v.HighBand, alpha)
	cen.PitchVariance = ema(cen.PitchVariance, v.PitchVariance, alpha)
	cen.EnergyVariance = ema(cen.EnergyVariance, v.EnergyVariance, alpha)
	cen.Duration = ema(cen.Duration, v.Duration, alpha)
}

func ema(old, new, alpha float64) float64 {
	return (1-alpha)*old + alpha*new
}
