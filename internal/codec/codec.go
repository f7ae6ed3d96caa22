// Package codec implements the canonical encoding of candidate answers.
//
// Every answer is stored as a single string whose shape depends on the
// question type: one letter for single choice, a sorted comma-joined letter
// list for multi choice, trimmed free text, or a comma-joined permutation of
// the present letters for ordering questions.
package codec

import (
	"sort"
	"strings"

	"github.com/velora-edu/examspace-backend/internal/model"
)

// Alphabet is the fixed ordered choice alphabet; letter i maps to choice i+1.
var Alphabet = []string{"A", "B", "C", "D"}

// normalizeLetter trims and uppercases a raw letter token. Returns "" for
// tokens that do not reduce to a single alphabet letter.
func normalizeLetter(tok string) string {
	tok = strings.ToUpper(strings.TrimSpace(tok))
	for _, l := range Alphabet {
		if tok == l {
			return l
		}
	}
	return ""
}

// EncodeSingle canonicalizes a single-choice selection. An unrecognized or
// empty input encodes as "" (cleared).
func EncodeSingle(letter string) string {
	return normalizeLetter(letter)
}

// EncodeMulti canonicalizes a multi-choice selection: dedupe
// (case-insensitive, trimmed), drop invalid tokens, emit in alphabet order
// joined by commas.
func EncodeMulti(letters []string) string {
	seen := make(map[string]bool, len(letters))
	for _, tok := range letters {
		if l := normalizeLetter(tok); l != "" {
			seen[l] = true
		}
	}
	out := make([]string, 0, len(seen))
	for _, l := range Alphabet {
		if seen[l] {
			out = append(out, l)
		}
	}
	return strings.Join(out, ",")
}

// DecodeMulti splits a stored multi-choice value back into letters: split on
// comma, trim, uppercase, drop empties. Stale letters are preserved here;
// filtering against the live choice set is Display's job.
func DecodeMulti(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// EncodeText stores free text verbatim apart from surrounding whitespace.
func EncodeText(text string) string {
	return strings.TrimSpace(text)
}

// IdentityOrder returns the default ordering value for a fresh ORDER
// question: the present letters in definition order, comma-joined.
func IdentityOrder(letters []string) string {
	return strings.Join(letters, ",")
}

// ReconcileOrder repairs a stored ORDER value against the live choice set:
// any letter present in choices but absent from the stored order is appended
// at the end, preserving the stored prefix. Stale letters in the stored value
// are kept; they are hidden on display, not rewritten.
func ReconcileOrder(raw string, letters []string) string {
	stored := DecodeMulti(raw)
	have := make(map[string]bool, len(stored))
	for _, l := range stored {
		have[l] = true
	}
	for _, l := range letters {
		if !have[l] {
			stored = append(stored, l)
		}
	}
	return strings.Join(stored, ",")
}

// Display filters a stored letter-list value down to the letters present on
// the question, without touching the stored value. Recovers silently from
// stale letters left behind by transient render-order mismatches.
func Display(raw string, letters []string) []string {
	present := make(map[string]bool, len(letters))
	for _, l := range letters {
		present[l] = true
	}
	stored := DecodeMulti(raw)
	out := make([]string, 0, len(stored))
	for _, l := range stored {
		if present[l] {
			out = append(out, l)
		}
	}
	return out
}

// Reorder moves the element at src to dst, preserving all other relative
// positions. Out-of-range indices leave the slice unchanged. The input is
// never mutated.
func Reorder(list []string, src, dst int) []string {
	out := make([]string, len(list))
	copy(out, list)
	if src < 0 || src >= len(out) || dst < 0 || dst >= len(out) || src == dst {
		return out
	}
	moved := out[src]
	out = append(out[:src], out[src+1:]...)
	rest := append(out[:dst:dst], append([]string{moved}, out[dst:]...)...)
	return rest
}

// DefaultValue returns the type-appropriate initial RawValue for a question
// with no prior answer: empty for everything except ORDER, which starts at
// the identity permutation of the present choices.
func DefaultValue(q model.Question) string {
	if q.Type == model.QuestionTypeOrder {
		return IdentityOrder(q.Letters())
	}
	return ""
}

// RestoreValue reconciles a prior stored value with the question's live
// choice set when a session resumes.
func RestoreValue(q model.Question, prior string) string {
	if q.Type == model.QuestionTypeOrder {
		if prior == "" {
			return IdentityOrder(q.Letters())
		}
		return ReconcileOrder(prior, q.Letters())
	}
	return prior
}

// SortedDedup is the reference normal form used by tests and scoring: the
// valid letters of the input, deduplicated and alphabet-ordered.
func SortedDedup(letters []string) []string {
	seen := make(map[string]bool, len(letters))
	for _, tok := range letters {
		if l := normalizeLetter(tok); l != "" {
			seen[l] = true
		}
	}
	out := make([]string, 0, len(seen))
	for l := range seen {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}
