// Package diff computes line diffs between two versions of a project file.
package diff

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

type Line struct {
	Type    string `json:"type"`
	Text    string `json:"text"`
	OldLine int    `json:"old_line,omitempty"`
	NewLine int    `json:"new_line,omitempty"`
}

type Hunk struct {
	Lines []Line `json:"lines"`
}

// Stats counts changed lines.
type Stats struct {
	Added   int `json:"added"`
	Removed int `json:"removed"`
}

func (s Stats) String() string {
	return fmt.Sprintf("+%d -%d", s.Added, s.Removed)
}

const (
	LineContext = "context"
	LineAdded   = "added"
	LineRemoved = "removed"
)

// DefaultContext is the number of unchanged lines kept around each change.
const DefaultContext = 3

func lineDiff(before, after string) []Line {
	dmp := diffmatchpatch.New()
	beforeChars, afterChars, lineArray := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffMain(beforeChars, afterChars, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	var lines []Line
	oldLine := 1
	newLine := 1
	for _, d := range diffs {
		chunkLines := strings.Split(d.Text, "\n")
		if len(chunkLines) > 0 && chunkLines[len(chunkLines)-1] == "" {
			chunkLines = chunkLines[:len(chunkLines)-1]
		}
		for _, line := range chunkLines {
			switch d.Type {
			case diffmatchpatch.DiffEqual:
				lines = append(lines, Line{Type: LineContext, Text: line, OldLine: oldLine, NewLine: newLine})
				oldLine++
				newLine++
			case diffmatchpatch.DiffDelete:
				lines = append(lines, Line{Type: LineRemoved, Text: line, OldLine: oldLine})
				oldLine++
			case diffmatchpatch.DiffInsert:
				lines = append(lines, Line{Type: LineAdded, Text: line, NewLine: newLine})
				newLine++
			}
		}
	}
	return lines
}

// TextDiff groups changed lines into hunks with up to context unchanged
// lines on either side. Identical inputs produce no hunks.
func TextDiff(before, after string, context int) []Hunk {
	if context < 0 {
		context = 0
	}
	lines := lineDiff(before, after)
	var hunks []Hunk
	var current []Line
	lastChange := -1
	for i, line := range lines {
		if line.Type == LineContext {
			continue
		}
		from := i - context
		if from < 0 {
			from = 0
		}
		if lastChange >= 0 && from <= lastChange+context+1 {
			current = append(current, lines[lastChange+1:i+1]...)
		} else {
			if current != nil {
				hunks = append(hunks, Hunk{Lines: append(current, trailing(lines, lastChange, context)...)})
			}
			current = append([]Line(nil), lines[from:i+1]...)
		}
		lastChange = i
	}
	if current != nil {
		hunks = append(hunks, Hunk{Lines: append(current, trailing(lines, lastChange, context)...)})
	}
	return hunks
}

func trailing(lines []Line, lastChange, context int) []Line {
	end := lastChange + 1 + context
	if end > len(lines) {
		end = len(lines)
	}
	return lines[lastChange+1 : end]
}

func Summarize(before, after string) Stats {
	var s Stats
	for _, line := range lineDiff(before, after) {
		switch line.Type {
		case LineAdded:
			s.Added++
		case LineRemoved:
			s.Removed++
		}
	}
	return s
}

const MaxDiffLines = 5000

func TextDiffWithLimit(before, after string, maxLines int) ([]Hunk, bool) {
	if maxLines <= 0 {
		maxLines = MaxDiffLines
	}
	if lineCount(before)+lineCount(after) > maxLines {
		return nil, true
	}
	return TextDiff(before, after, DefaultContext), false
}

func lineCount(value string) int {
	if value == "" {
		return 0
	}
	return strings.Count(value, "\n") + 1
}
