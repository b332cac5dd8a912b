package segment

import (
	"reflect"
	"testing"
)

func collect(deltas []string) ([]string, string) {
	s := New()
	var sentences []string
	for _, d := range deltas {
		sentences = append(sentences, s.Push(d)...)
	}
	tail, ok := s.Flush()
	if !ok {
		tail = ""
	}
	return sentences, tail
}

func TestSegmenter_ReferenceDeltaSequence(t *testing.T) {
	got, tail := collect([]string{"Hello, how ", "are you? I am ", "fine."})
	want := []string{"Hello, how are you?", "I am fine."}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("sentences = %q, want %q", got, want)
	}
	if tail != "" {
		t.Fatalf("unexpected tail %q", tail)
	}
}

func TestSegmenter_TerminatorAtDeltaEndEmitsImmediately(t *testing.T) {
	s := New()
	got := s.Push("Done.")
	if !reflect.DeepEqual(got, []string{"Done."}) {
		t.Fatalf("got %q", got)
	}
	if tail, ok := s.Flush(); ok {
		t.Fatalf("carry should be empty, got %q", tail)
	}
}

func TestSegmenter_MultipleSentencesInOneDelta(t *testing.T) {
	s := New()
	got := s.Push("One. Two! Three? Four")
	want := []string{"One.", "Two!", "Three?"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %q, want %q", got, want)
	}
	tail, ok := s.Flush()
	if !ok || tail != "Four" {
		t.Fatalf("tail = %q ok=%v, want Four", tail, ok)
	}
}

func TestSegmenter_BoundaryWhitespaceSwallowedAcrossDeltas(t *testing.T) {
	s := New()
	var got []string
	got = append(got, s.Push("Wait!")...)
	got = append(got, s.Push("   \n ")...)
	got = append(got, s.Push("Okay.")...)
	want := []string{"Wait!", "Okay."}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestSegmenter_NoCharactersDroppedOrDuplicated(t *testing.T) {
	deltas := []string{"a", "b", "c. d", "e? ", "fgh"}
	sentences, tail := collect(deltas)
	joined := ""
	for _, s := range sentences {
		joined += s
	}
	joined += tail
	// boundary whitespace is the only permitted loss
	if joined != "abc.de?fgh" {
		t.Fatalf("reassembled %q", joined)
	}
}

func TestSegmenter_FlushOnWhitespaceOnlyCarry(t *testing.T) {
	s := New()
	s.Push("   ")
	if tail, ok := s.Flush(); ok {
		t.Fatalf("whitespace carry must not flush, got %q", tail)
	}
}

func TestSegmenter_DiscardDropsCarry(t *testing.T) {
	s := New()
	s.Push("half a thought")
	s.Discard()
	if tail, ok := s.Flush(); ok {
		t.Fatalf("carry should be gone after Discard, got %q", tail)
	}
}

func TestSegmenter_EmptyDelta(t *testing.T) {
	s := New()
	if got := s.Push(""); len(got) != 0 {
		t.Fatalf("empty delta emitted %q", got)
	}
}
