// Package segment splits a streamed text reply into complete sentences so
// synthesis can start before generation finishes.
package segment

import (
	"strings"
	"unicode"
)

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// Segmenter scans incremental text deltas and emits a sentence as soon as its
// terminating punctuation (plus any trailing whitespace) has been consumed.
// Text after the last terminator is carried as a prefix for the next delta.
//
// A deliberately small state machine rather than a regex: the carry is
// explicit, so the caller can discard it on interruption instead of speaking
// a truncated thought.
type Segmenter struct {
	carry strings.Builder
}

func New() *Segmenter { return &Segmenter{} }

// Push consumes one delta and returns every sentence it completes, in order.
// Whitespace that separates a terminator from the next sentence is swallowed
// at the boundary; interior whitespace is preserved verbatim.
func (s *Segmenter) Push(delta string) []string {
	var out []string
	pending := false // a terminator has been seen, trailing whitespace may follow
	for _, r := range delta {
		if pending {
			if unicode.IsSpace(r) {
				continue
			}
			out = append(out, s.carry.String())
			s.carry.Reset()
			pending = false
		}
		s.carry.WriteRune(r)
		if isTerminator(r) {
			pending = true
		}
	}
	if pending {
		out = append(out, s.carry.String())
		s.carry.Reset()
	}
	return out
}

// Flush returns the held carry as a final sentence, if it contains anything
// beyond whitespace. Callers invoke it only when the delta stream ended
// without interruption.
func (s *Segmenter) Flush() (string, bool) {
	tail := s.carry.String()
	s.carry.Reset()
	if strings.TrimSpace(tail) == "" {
		return "", false
	}
	return tail, true
}

// Discard drops the held carry. Used after a barge-in.
func (s *Segmenter) Discard() {
	s.carry.Reset()
}
