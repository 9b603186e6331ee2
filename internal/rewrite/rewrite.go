// Package rewrite substitutes absolute paths inside generated artifacts.
//
// Matching is literal: an old path that is a prefix of an unrelated longer
// path is rewritten as well.
package rewrite

import (
	"slices"
	"strings"

	"github.com/drape-io/virtphp/internal/phpser"
)

// Text replaces every occurrence of oldPath in text with newPath. It is the
// single-spelling form of Replacer.Text.
func Text(text, oldPath, newPath string) string {
	if oldPath == "" {
		return text
	}
	return NewReplacer(newPath, oldPath).Text(text)
}

// Tree applies Text to every string leaf of v. Keys, nesting and
// non-string leaves are preserved.
func Tree(v phpser.Value, oldPath, newPath string) phpser.Value {
	return NewReplacer(newPath, oldPath).Tree(v)
}

// Placeholder replaces token with value in every string leaf of v.
func Placeholder(v phpser.Value, token, value string) phpser.Value {
	return Tree(v, token, value)
}

// Walk returns a copy of v with fn applied to every string leaf.
// The input is never modified.
func Walk(v phpser.Value, fn func(string) string) phpser.Value {
	switch t := v.(type) {
	case phpser.String:
		return phpser.String(fn(string(t)))
	case *phpser.Array:
		out := phpser.NewArray()
		for _, e := range t.Entries() {
			out.Set(e.Key, Walk(e.Value, fn))
		}
		return out
	default:
		return v
	}
}

// Replacer rewrites several spellings of one old path to a new path in a
// single pass, so text produced by one replacement is never matched again.
type Replacer struct {
	r *strings.Replacer
}

// NewReplacer returns a Replacer mapping every non-empty entry of oldPaths
// to newPath. Longer old paths take precedence over their prefixes.
func NewReplacer(newPath string, oldPaths ...string) *Replacer {
	olds := slices.Clone(oldPaths)
	slices.SortFunc(olds, func(a, b string) int {
		if d := len(b) - len(a); d != 0 {
			return d
		}
		return strings.Compare(a, b)
	})
	olds = slices.Compact(olds)

	var pairs []string
	for _, old := range olds {
		if old != "" {
			pairs = append(pairs, old, newPath)
		}
	}
	return &Replacer{r: strings.NewReplacer(pairs...)}
}

// Text replaces every old spelling in text with the new path.
func (r *Replacer) Text(text string) string {
	return r.r.Replace(text)
}

// Tree applies Text to every string leaf of v.
func (r *Replacer) Tree(v phpser.Value) phpser.Value {
	return Walk(v, r.Text)
}
