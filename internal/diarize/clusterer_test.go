package diarize_test

import (
	"testing"
	"time"

	"github.com/minutewire/minutewire/internal/diarize"
)

// voice builds a plausible feature vector around a pitch, with correlated
// secondary dimensions so different pitches produce well-separated voices
// while nearby pitches stay within the assignment threshold.
func voice(pitch float64) diarize.FeatureVector {
	return diarize.FeatureVector{
		Pitch:          pitch,
		Formant:        pitch / 4,
		Energy:         pitch / 400,
		LowBand:        0.5,
		MidBand:        0.3,
		HighBand:       0.2,
		PitchVariance:  2 * pitch,
		EnergyVariance: 0.02,
		Duration:       2,
	}
}

// capVoice builds the i-th of nine mutually distant voices for the
// speaker-cap scenario. Adjacent indices alternate energy and spread the
// pitch-variance range so every pairwise distance clears the adaptive
// threshold even at eight tracked speakers.
func capVoice(i int) diarize.FeatureVector {
	return diarize.FeatureVector{
		Pitch:          85 + 38*float64(i),
		Formant:        12.5 * float64(i),
		Energy:         float64(i%2)*0.9 + 0.05,
		LowBand:        float64(i) / 8,
		MidBand:        1 - float64(i)/8,
		HighBand:       0.2,
		PitchVariance:  1000 * float64(i) / 8,
		EnergyVariance: 0.02,
		Duration:       2,
	}
}

func TestClusterer_NearIdenticalVectorsShareSpeaker(t *testing.T) {
	t.Parallel()

	c := diarize.NewClusterer()

	a := c.Assign(voice(120), time.Second)
	if !a.Created || a.SpeakerID != 0 {
		t.Fatalf("first assignment = %+v, want created speaker 0", a)
	}

	b := c.Assign(voice(125), time.Second)
	if b.Created {
		t.Errorf("near-identical vector created a new speaker: %+v", b)
	}
	if b.SpeakerID != 0 {
		t.Errorf("SpeakerID = %d, want 0", b.SpeakerID)
	}

	// A clearly different voice, well above the adaptive threshold.
	cv := c.Assign(voice(220), time.Second)
	if !cv.Created || cv.SpeakerID != 1 {
		t.Errorf("distant vector assignment = %+v, want new speaker 1", cv)
	}
}

func TestClusterer_CapAtEightSpeakers(t *testing.T) {
	t.Parallel()

	c := diarize.NewClusterer()

	var last diarize.Assignment
	for i := 0; i < 9; i++ {
		last = c.Assign(capVoice(i), time.Second)
	}

	if got := c.Count(); got != 8 {
		t.Fatalf("speaker count = %d, want 8", got)
	}
	if last.Created {
		t.Error("9th distinct utterance created a speaker past the cap")
	}

	// For capVoice(8) the nearest existing centroid is capVoice(6): same
	// energy parity, smallest pitch/variance gap.
	if last.SpeakerID != 6 {
		t.Errorf("9th utterance assigned to speaker %d, want nearest speaker 6", last.SpeakerID)
	}

	// Saturated assignment must not move the centroid.
	sp := c.Speakers()[last.SpeakerID]
	if want := 85 + 38*6.0; sp.Centroid.Pitch != want {
		t.Errorf("centroid pitch moved to %f after saturated assignment, want %f", sp.Centroid.Pitch, want)
	}
}

func TestClusterer_Deterministic(t *testing.T) {
	t.Parallel()

	run := func() ([]int, int) {
		c := diarize.NewClusterer()
		seq := []float64{120, 124, 220, 122, 226, 320, 119, 310}
		ids := make([]int, len(seq))
		for i, p := range seq {
			ids[i] = c.Assign(voice(p), time.Second).SpeakerID
		}
		return ids, c.Count()
	}

	ids1, n1 := run()
	ids2, n2 := run()
	if n1 != n2 {
		t.Fatalf("speaker counts differ across runs: %d vs %d", n1, n2)
	}
	for i := range ids1 {
		if ids1[i] != ids2[i] {
			t.Fatalf("assignment %d differs across runs: %d vs %d", i, ids1[i], ids2[i])
		}
	}
}

func TestClusterer_CentroidAdaptsTowardNewVectors(t *testing.T) {
	t.Parallel()

	c := diarize.NewClusterer()
	c.Assign(voice(120), time.Second)
	c.Assign(voice(130), time.Second)

	sp := c.Speakers()[0]
	if sp.Centroid.Pitch <= 120 || sp.Centroid.Pitch >= 130 {
		t.Errorf("centroid pitch = %f, want strictly between 120 and 130 after EMA update", sp.Centroid.Pitch)
	}
	if sp.UtteranceCount != 2 {
		t.Errorf("UtteranceCount = %d, want 2", sp.UtteranceCount)
	}
	if sp.TotalDuration != 2*time.Second {
		t.Errorf("TotalDuration = %v, want 2s", sp.TotalDuration)
	}
}

func TestClusterer_BookkeepingOnSpeakers(t *testing.T) {
	t.Parallel()

	c := diarize.NewClusterer()
	c.Assign(voice(120), time.Second)
	c.Assign(voice(220), time.Second)

	speakers := c.Speakers()
	if len(speakers) != 2 {
		t.Fatalf("len(Speakers) = %d, want 2", len(speakers))
	}
	if speakers[0].Name != "Speaker 1" || speakers[1].Name != "Speaker 2" {
		t.Errorf("names = %q, %q; want Speaker 1, Speaker 2", speakers[0].Name, speakers[1].Name)
	}
	if speakers[0].ColorTag == speakers[1].ColorTag {
		t.Errorf("speakers share color tag %q", speakers[0].ColorTag)
	}
}

func TestClusterer_NormalizesBeforeAssigning(t *testing.T) {
	t.Parallel()

	c := diarize.NewClusterer()
	// Malformed vector: out-of-range fields must be clamped, not rejected.
	c.Assign(diarize.FeatureVector{Pitch: 9000, Energy: 40, PitchVariance: -5}, time.Second)

	sp := c.Speakers()[0]
	if sp.Centroid.Pitch != 400 {
		t.Errorf("centroid pitch = %f, want 400 (clamped)", sp.Centroid.Pitch)
	}
	if sp.Centroid.Energy != 1 {
		t.Errorf("centroid energy = %f, want 1 (clamped)", sp.Centroid.Energy)
	}
	if sp.Centroid.PitchVariance != 0 {
		t.Errorf("centroid pitch variance = %f, want 0 (clamped)", sp.Centroid.PitchVariance)
	}
}
