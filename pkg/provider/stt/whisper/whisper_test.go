package whisper

import (
	"testing"
	"time"
)

func TestNew_EmptyModelPath(t *testing.T) {
	t.Parallel()

	if _, err := New(""); err == nil {
		t.Fatal("New(\"\") error = nil, want error")
	}
}

func TestInterpolateWords_EvenSpread(t *testing.T) {
	t.Parallel()

	words := interpolateWords("we ship friday", 0, 3*time.Second)
	if len(words) != 3 {
		t.Fatalf("got %d words, want 3", len(words))
	}
	if words[0].Start != 0 || words[0].End != time.Second {
		t.Errorf("word 0 span = [%v, %v], want [0s, 1s]", words[0].Start, words[0].End)
	}
	if words[2].End != 3*time.Second {
		t.Errorf("last word end = %v, want 3s", words[2].End)
	}
	for i := 1; i < len(words); i++ {
		if words[i].Start != words[i-1].End {
			t.Errorf("gap between word %d and %d: %v != %v", i-1, i, words[i-1].End, words[i].Start)
		}
	}
}

func TestInterpolateWords_Empty(t *testing.T) {
	t.Parallel()

	if words := interpolateWords("   ", 0, time.Second); words != nil {
		t.Errorf("got %v, want nil", words)
	}
}

func TestInterpolateWords_InvertedSpan(t *testing.T) {
	t.Parallel()

	words := interpolateWords("hello", 2*time.Second, time.Second)
	if len(words) != 1 {
		t.Fatalf("got %d words, want 1", len(words))
	}
	if words[0].Start != 2*time.Second || words[0].End != 2*time.Second {
		t.Errorf("span = [%v, %v], want collapsed to [2s, 2s]", words[0].Start, words[0].End)
	}
}
