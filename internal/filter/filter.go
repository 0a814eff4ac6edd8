// Package filter reduces entity collections to the subset matching a set of
// predicates. Every function is pure and preserves the input order.
package filter

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Predicate reports whether an item is kept. A nil predicate imposes no constraint.
type Predicate[T any] func(T) bool

// Apply returns the items for which every non-nil predicate holds.
func Apply[T any](items []T, preds ...Predicate[T]) []T {
	if items == nil {
		return nil
	}
	active := make([]Predicate[T], 0, len(preds))
	for _, p := range preds {
		if p != nil {
			active = append(active, p)
		}
	}
	out := make([]T, 0, len(items))
	for _, item := range items {
		if matchAll(item, active) {
			out = append(out, item)
		}
	}
	return out
}

func matchAll[T any](item T, preds []Predicate[T]) bool {
	for _, p := range preds {
		if !p(item) {
			return false
		}
	}
	return true
}

// Text matches query as a case and accent insensitive substring of any of
// the fields returned by fields. A blank query yields a nil predicate.
func Text[T any](query string, fields func(T) []string) Predicate[T] {
	needle := Fold(query)
	if needle == "" {
		return nil
	}
	return func(item T) bool {
		for _, f := range fields(item) {
			if strings.Contains(Fold(f), needle) {
				return true
			}
		}
		return false
	}
}

// Equal keeps items whose value equals want. A zero want yields a nil predicate.
func Equal[T any, V comparable](want V, get func(T) V) Predicate[T] {
	var zero V
	if want == zero {
		return nil
	}
	return func(item T) bool { return get(item) == want }
}

// Flag keeps items whose flag equals *want. A nil want yields a nil predicate.
func Flag[T any](want *bool, get func(T) bool) Predicate[T] {
	if want == nil {
		return nil
	}
	expected := *want
	return func(item T) bool { return get(item) == expected }
}

// Fold normalises text for comparison: accents are stripped, case is folded
// and surrounding space trimmed.
func Fold(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	return cases.Fold().String(stripped)
}
