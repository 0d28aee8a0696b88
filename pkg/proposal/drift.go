package proposal

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rivo/uniseg"
)

// KeepFunc decides whether a grapheme cluster survives stripping.
type KeepFunc func(cluster string) bool

const (
	StripRuleASCII      = "ascii"
	StripRuleDecorative = "decorative"

	// DefaultMinBaseLength is the number of runes a stripped fragment must
	// exceed before a relaxed search is attempted.
	DefaultMinBaseLength = 4
)

var stripRules = map[string]KeepFunc{
	StripRuleASCII:      KeepPrintableASCII,
	StripRuleDecorative: KeepNonDecorative,
}

// ParseStripRule returns the KeepFunc registered under name.
func ParseStripRule(name string) (KeepFunc, error) {
	if name == "" {
		return KeepPrintableASCII, nil
	}
	keep, ok := stripRules[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown strip rule %q (want one of %s)", name, strings.Join(StripRuleNames(), ", "))
	}
	return keep, nil
}

func StripRuleNames() []string {
	names := make([]string, 0, len(stripRules))
	for name := range stripRules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// KeepPrintableASCII keeps clusters made only of printable ASCII, tabs and
// line breaks.
func KeepPrintableASCII(cluster string) bool {
	for _, r := range cluster {
		if r == '\t' || r == '\n' || r == '\r' {
			continue
		}
		if r < 0x20 || r > 0x7e {
			return false
		}
	}
	return true
}

var decorativeRunes = map[rune]bool{
	'•': true, '◦': true, '▪': true, '▫': true, '‣': true, '⁃': true,
	'●': true, '○': true, '■': true, '□': true, '★': true, '☆': true,
	'→': true, '←': true, '⇒': true, '➜': true, '➤': true, '·': true,
	'\u200d': true, '\ufffd': true,
}

// KeepNonDecorative drops bullets, symbols, emoji, private-use characters and
// joiners while keeping letters, digits and punctuation of every script.
func KeepNonDecorative(cluster string) bool {
	for _, r := range cluster {
		switch {
		case decorativeRunes[r]:
			return false
		case unicode.In(r, unicode.So, unicode.Co, unicode.Variation_Selector):
			return false
		case r >= 0x1f3fb && r <= 0x1f3ff: // skin tone modifiers
			return false
		}
	}
	return true
}

// DriftResolver performs the relaxed match used after a feedback round,
// when the model echoes stale decorated text that no longer matches
// verbatim.
type DriftResolver struct {
	keep      KeepFunc
	minLength int
}

func NewDriftResolver(keep KeepFunc, minLength int) *DriftResolver {
	if keep == nil {
		keep = KeepPrintableASCII
	}
	if minLength < 0 {
		minLength = DefaultMinBaseLength
	}
	return &DriftResolver{keep: keep, minLength: minLength}
}

// Recovery describes a relaxed search. Range and Matched are only meaningful
// when Count is 1.
type Recovery struct {
	Base     string
	Count    int
	TooShort bool
	Range    Range
	Matched  string
}

// Resolve strips fragment to its base form and looks for it in the stripped
// projection of document. On a unique hit the returned range covers the
// original document text, decorations included.
func (r *DriftResolver) Resolve(document, fragment string) (Recovery, bool) {
	base := strings.TrimSpace(r.project(fragment).text)
	rec := Recovery{Base: base}
	if utf8.RuneCountInString(base) <= r.minLength {
		rec.TooShort = true
		return rec, false
	}

	doc := r.project(document)
	loc := Locate(doc.text, base)
	rec.Count = loc.Count()
	if rec.Count != 1 {
		return rec, false
	}

	start := loc.Offsets[0]
	end := start + len(base)
	rec.Range = Range{Start: doc.origin[start], End: doc.origin[end-1] + 1}
	rec.Matched = document[rec.Range.Start:rec.Range.End]
	return rec, true
}

// Strip returns the stripped form of s.
func (r *DriftResolver) Strip(s string) string {
	return r.project(s).text
}

type projection struct {
	text string
	// origin[i] is the byte offset in the source of projected byte i.
	origin []int
}

// project drops clusters rejected by keep and collapses runs of spaces and
// tabs into a single space.
func (r *DriftResolver) project(s string) projection {
	var b strings.Builder
	origin := make([]int, 0, len(s))
	lastSpace := false

	state := -1
	offset := 0
	rest := s
	var cluster string
	for len(rest) > 0 {
		cluster, rest, _, state = uniseg.FirstGraphemeClusterInString(rest, state)
		start := offset
		offset += len(cluster)

		if !r.keep(cluster) {
			continue
		}
		if cluster == " " || cluster == "\t" {
			if lastSpace {
				continue
			}
			b.WriteByte(' ')
			origin = append(origin, start)
			lastSpace = true
			continue
		}
		lastSpace = false
		b.WriteString(cluster)
		for j := 0; j < len(cluster); j++ {
			origin = append(origin, start+j)
		}
	}
	return projection{text: b.String(), origin: origin}
}
