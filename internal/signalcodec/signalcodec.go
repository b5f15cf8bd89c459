// Package signalcodec holds the pure signal-set transformations used by
// the Interface core: row-16 addressing conversions, O+15 handling, and
// canonical signal ordering. Nothing here touches I/O.
package signalcodec

import "sort"

// Set is an unordered collection of signal names, e.g. {"N", "K", "0075"}.
type Set map[string]struct{}

// NewSet builds a Set from a slice of names.
func NewSet(names ...string) Set {
	s := make(Set, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

// Clone returns a shallow copy.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for k := range s {
		out[k] = struct{}{}
	}
	return out
}

// Has reports whether name is present.
func (s Set) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// HasAll reports whether every name in names is present.
func (s Set) HasAll(names ...string) bool {
	for _, n := range names {
		if !s.Has(n) {
			return false
		}
	}
	return true
}

// Add inserts name.
func (s Set) Add(name string) {
	s[name] = struct{}{}
}

// Discard removes name if present.
func (s Set) Discard(name string) {
	delete(s, name)
}

// Slice returns the set's members in no particular order.
func (s Set) Slice() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	return out
}

// OrderedSignals returns the members of s in the canonical order implied by
// order (typically the concatenation of the four configured valve tuples).
// Names in s that don't appear in order are appended afterwards, sorted,
// so nothing is silently dropped.
func OrderedSignals(s Set, order []string) []string {
	out := make([]string, 0, len(s))
	seen := make(map[string]struct{}, len(s))
	for _, name := range order {
		if s.Has(name) {
			out = append(out, name)
			seen[name] = struct{}{}
		}
	}
	var leftover []string
	for name := range s {
		if _, ok := seen[name]; !ok {
			leftover = append(leftover, name)
		}
	}
	sort.Strings(leftover)
	return append(out, leftover...)
}

// StripSixteen implements plain row-16 mode: "16" collapses to "15".
func StripSixteen(source Set) Set {
	out := source.Clone()
	if out.Has("16") {
		out.Discard("16")
		out.Add("15")
	}
	return out
}

// ConvertHMN implements the HMN row-16 addressing scheme: the 16th row is
// reached by energizing H, M and N simultaneously instead of a dedicated
// row-16 pin.
func ConvertHMN(source Set) Set {
	return convertSixteen(source, "H", "M", "N")
}

// ConvertKMN implements the KMN row-16 addressing scheme: the 16th row is
// reached by energizing K, M and N simultaneously.
func ConvertKMN(source Set) Set {
	return convertSixteen(source, "K", "M", "N")
}

// ConvertUnitShift implements the unit-shift row-16 addressing scheme: the
// unit-shift attachment is triggered by the combined E+F signal in place of
// the dedicated row-16 pin.
func ConvertUnitShift(source Set) Set {
	return convertSixteen(source, "E", "F")
}

func convertSixteen(source Set, replacement ...string) Set {
	out := source.Clone()
	if out.Has("16") {
		out.Discard("16")
		for _, r := range replacement {
			out.Add(r)
		}
	}
	return out
}

// ConvertO15 merges bare "O" or "15" into the combined "O15" signal, used
// when testing so the wire-level combination can be inspected directly.
func ConvertO15(source Set) Set {
	out := source.Clone()
	merged := false
	for _, sig := range []string{"O", "15"} {
		if out.Has(sig) {
			out.Discard(sig)
			merged = true
		}
	}
	if merged {
		out.Add("O15")
	}
	return out
}

// StripO15 removes "O15"; casting never uses the combined paper-advance
// signal.
func StripO15(source Set) Set {
	out := source.Clone()
	out.Discard("O15")
	return out
}

// AddMissingO15 adds "O15" when fewer than two signals are present, so the
// perforator's paper-advance mechanism still engages on a near-empty code.
func AddMissingO15(source Set) Set {
	out := source.Clone()
	if len(out) < 2 {
		out.Add("O15")
	}
	return out
}
