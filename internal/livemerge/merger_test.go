package livemerge_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/minutewire/minutewire/internal/livemerge"
)

func TestMerger_OverlapMerge(t *testing.T) {
	t.Parallel()

	m := livemerge.NewMerger()
	if _, err := m.Merge("the quick brown fox"); err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	got, err := m.Merge("brown fox jumps over")
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if want := "the quick brown fox jumps over"; got != want {
		t.Errorf("display = %q, want %q", got, want)
	}
}

func TestMerger_NoOverlapAppendsWithSpace(t *testing.T) {
	t.Parallel()

	m := livemerge.NewMerger()
	m.Merge("hello there everyone")
	got, err := m.Merge("completely different words")
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if want := "hello there everyone completely different words"; got != want {
		t.Errorf("display = %q, want %q", got, want)
	}
}

func TestMerger_CaseInsensitiveOverlap(t *testing.T) {
	t.Parallel()

	m := livemerge.NewMerger()
	m.Merge("We Will Ship Friday")
	got, err := m.Merge("will ship friday after review")
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if want := "We Will Ship Friday after review"; got != want {
		t.Errorf("display = %q, want %q", got, want)
	}
}

func TestMerger_LongestOverlapWins(t *testing.T) {
	t.Parallel()

	m := livemerge.NewMerger()
	m.Merge("we will ship we will")
	got, err := m.Merge("we will ship we will ship it")
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	// A shortest-first search would stop at the two-word overlap and
	// duplicate "ship we will".
	if want := "we will ship we will ship it"; got != want {
		t.Errorf("display = %q, want %q", got, want)
	}
}

func TestMerger_ExtremeRepetitionRejected(t *testing.T) {
	t.Parallel()

	m := livemerge.NewMerger()
	m.Merge("earlier display text")
	before := m.Text()

	looped := strings.TrimSpace(strings.Repeat("thank you so very much ", 6))
	got, err := m.Merge(looped)
	if !errors.Is(err, livemerge.ErrExtremeRepetition) {
		t.Fatalf("Merge(looped) error = %v, want ErrExtremeRepetition", err)
	}
	if got != before {
		t.Errorf("display changed on rejected snapshot: %q", got)
	}
}

func TestMerger_ModerateRepetitionAccepted(t *testing.T) {
	t.Parallel()

	m := livemerge.NewMerger()
	phrase := strings.TrimSpace(strings.Repeat("thank you so very much ", 3))
	got, err := m.Merge(phrase)
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if got != phrase {
		t.Errorf("display = %q, want %q", got, phrase)
	}
}

func TestMerger_DisplayCap(t *testing.T) {
	t.Parallel()

	m := livemerge.NewMerger(livemerge.WithMaxDisplayWords(20))
	for chunk := 0; chunk < 3; chunk++ {
		words := make([]string, 10)
		for i := range words {
			words[i] = fmt.Sprintf("word%d", chunk*10+i)
		}
		if _, err := m.Merge(strings.Join(words, " ")); err != nil {
			t.Fatalf("Merge(chunk %d) error = %v", chunk, err)
		}
	}

	if got := m.WordCount(); got != 20 {
		t.Fatalf("WordCount() = %d, want 20", got)
	}
	fields := strings.Fields(m.Text())
	if fields[0] != "word10" || fields[len(fields)-1] != "word29" {
		t.Errorf("retained window = %q .. %q, want word10 .. word29", fields[0], fields[len(fields)-1])
	}
}

func TestMerger_EmptySnapshotIsNoOp(t *testing.T) {
	t.Parallel()

	m := livemerge.NewMerger()
	m.Merge("steady state text")
	got, err := m.Merge("   ")
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if want := "steady state text"; got != want {
		t.Errorf("display = %q, want %q", got, want)
	}
}

func TestMerger_Reset(t *testing.T) {
	t.Parallel()

	m := livemerge.NewMerger()
	m.Merge("some words here")
	m.Reset()
	if got := m.Text(); got != "" {
		t.Errorf("Text() after Reset = %q, want empty", got)
	}
	if got := m.WordCount(); got != 0 {
		t.Errorf("WordCount() after Reset = %d, want 0", got)
	}
}
