// Package parser locates the managed region of a weekly note and extracts
// the embedded daily-note links it contains.
package parser

import (
	"regexp"
	"strings"
)

// embedRe matches the three embed shapes the region may contain:
// ![[name]], ![[name.md]] and ![[name|alias]]. The capture group is the raw
// link target before alias stripping.
var embedRe = regexp.MustCompile(`!\[\[([^\]|]+)(?:\|[^\]]*)?\]\]`)

// Region is the delimiter-bounded split of a document. Only the first
// start/end marker pair is authoritative; Before and After are immutable
// from the engine's perspective.
type Region struct {
	Before string
	Body   string
	After  string
}

// SplitRegion splits raw at the first occurrence of the start marker and the
// first occurrence of the end marker after it. Markers are matched verbatim
// and case-sensitively. A start marker with no end marker after it counts as
// "no region": the whole document is Before and untouched.
func SplitRegion(raw, start, end string) (Region, bool) {
	is := strings.Index(raw, start)
	if is < 0 {
		return Region{Before: raw}, false
	}
	rest := raw[is+len(start):]
	ie := strings.Index(rest, end)
	if ie < 0 {
		return Region{Before: raw}, false
	}
	return Region{
		Before: raw[:is],
		Body:   rest[:ie],
		After:  rest[ie+len(end):],
	}, true
}

// ExtractEmbeds returns the deduplicated basenames of all embed links in
// body, in order of first appearance. Aliases and a trailing .md extension
// are stripped from the target.
func ExtractEmbeds(body string) []string {
	matches := embedRe.FindAllStringSubmatch(body, -1)
	seen := make(map[string]struct{}, len(matches))
	var out []string
	for _, m := range matches {
		target := strings.TrimSpace(m[1])
		target = strings.TrimSuffix(target, ".md")
		if target == "" {
			continue
		}
		if _, ok := seen[target]; ok {
			continue
		}
		seen[target] = struct{}{}
		out = append(out, target)
	}
	return out
}

// HasLine reports whether text contains want as a full line, ignoring
// trailing whitespace on the candidate line. Used to find a configured
// section heading.
func HasLine(text, want string) bool {
	_, ok := LineIndex(text, want)
	return ok
}

// LineIndex returns the byte offset just past the newline of the first line
// equal to want (trailing whitespace ignored). If the matching line is the
// last line without a newline, the offset is len(text).
func LineIndex(text, want string) (int, bool) {
	offset := 0
	for {
		nl := strings.IndexByte(text[offset:], '\n')
		var line string
		var next int
		if nl < 0 {
			line = text[offset:]
			next = len(text)
		} else {
			line = text[offset : offset+nl]
			next = offset + nl + 1
		}
		if strings.TrimRight(line, " \t\r") == want {
			return next, true
		}
		if nl < 0 {
			return 0, false
		}
		offset = next
	}
}
