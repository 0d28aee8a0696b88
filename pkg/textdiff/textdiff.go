// Package textdiff renders line-level differences between two versions of a
// document.
package textdiff

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

type LineType string

const (
	LineContext LineType = "context"
	LineAdded   LineType = "added"
	LineRemoved LineType = "removed"
)

type Line struct {
	Type    LineType `json:"type"`
	Text    string   `json:"text"`
	OldLine int      `json:"old_line,omitempty"`
	NewLine int      `json:"new_line,omitempty"`
}

// Hunk is a run of changed lines with up to Context unchanged lines on each
// side.
type Hunk struct {
	OldStart int    `json:"old_start"`
	NewStart int    `json:"new_start"`
	Lines    []Line `json:"lines"`
}

type Stats struct {
	Added   int `json:"added"`
	Removed int `json:"removed"`
}

const (
	DefaultContext  = 3
	DefaultMaxLines = 5000
)

// Lines returns every line of the two texts tagged as context, added or
// removed.
func Lines(before, after string) []Line {
	dmp := diffmatchpatch.New()
	a, b, lineArray := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lineArray)

	var lines []Line
	oldLine, newLine := 1, 1
	for _, d := range diffs {
		chunk := strings.Split(d.Text, "\n")
		if chunk[len(chunk)-1] == "" {
			chunk = chunk[:len(chunk)-1]
		}
		for _, text := range chunk {
			switch d.Type {
			case diffmatchpatch.DiffEqual:
				lines = append(lines, Line{Type: LineContext, Text: text, OldLine: oldLine, NewLine: newLine})
				oldLine++
				newLine++
			case diffmatchpatch.DiffDelete:
				lines = append(lines, Line{Type: LineRemoved, Text: text, OldLine: oldLine})
				oldLine++
			case diffmatchpatch.DiffInsert:
				lines = append(lines, Line{Type: LineAdded, Text: text, NewLine: newLine})
				newLine++
			}
		}
	}
	return lines
}

// Hunks groups changed lines into hunks with the given number of context
// lines. Identical inputs produce no hunks.
func Hunks(before, after string, context int) []Hunk {
	if context < 0 {
		context = DefaultContext
	}
	lines := Lines(before, after)

	var hunks []Hunk
	i := 0
	for i < len(lines) {
		if lines[i].Type == LineContext {
			i++
			continue
		}

		start := max(i-context, 0)
		end := i
		// extend while the next change is within 2*context lines
		for end < len(lines) {
			if lines[end].Type != LineContext {
				end++
				continue
			}
			run := end
			for run < len(lines) && lines[run].Type == LineContext {
				run++
			}
			if run < len(lines) && run-end <= 2*context {
				end = run
				continue
			}
			end = min(end+context, len(lines))
			break
		}

		h := Hunk{Lines: append([]Line(nil), lines[start:end]...)}
		h.OldStart, h.NewStart = startLines(lines, start)
		hunks = append(hunks, h)
		i = end
	}
	return hunks
}

// HunksWithLimit skips the diff when the inputs together exceed maxLines and
// reports truncated=true instead.
func HunksWithLimit(before, after string, context, maxLines int) (hunks []Hunk, truncated bool) {
	if maxLines <= 0 {
		maxLines = DefaultMaxLines
	}
	if lineCount(before)+lineCount(after) > maxLines {
		return nil, true
	}
	return Hunks(before, after, context), false
}

func Count(hunks []Hunk) Stats {
	var s Stats
	for _, h := range hunks {
		for _, l := range h.Lines {
			switch l.Type {
			case LineAdded:
				s.Added++
			case LineRemoved:
				s.Removed++
			}
		}
	}
	return s
}

// startLines finds the old and new line numbers at position idx, looking
// forward past lines that only exist on one side.
func startLines(lines []Line, idx int) (oldStart, newStart int) {
	for j := idx; j < len(lines) && (oldStart == 0 || newStart == 0); j++ {
		if oldStart == 0 && lines[j].OldLine > 0 {
			oldStart = lines[j].OldLine
		}
		if newStart == 0 && lines[j].NewLine > 0 {
			newStart = lines[j].NewLine
		}
	}
	return oldStart, newStart
}

func lineCount(value string) int {
	if value == "" {
		return 0
	}
	return strings.Count(value, "\n") + 1
}
